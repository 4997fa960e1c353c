// Package control drives a PDP-11/34 from the host side of its axi
// register page: the front panel functions, memory access by DMA and
// the console terminal.
package control

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/cpu"
	"github.com/davecheney/pdp1134/devices"
)

var (
	// ErrTimeout is returned when nothing on the unibus answers a DMA cycle.
	ErrTimeout = errors.New("control: unibus timeout")

	// ErrStuck is returned when the processor does not respond to the
	// front panel.
	ErrStuck = errors.New("control: processor not responding")

	// ErrLocked is returned by Lock when someone else holds the DMA lock.
	ErrLocked = errors.New("control: dma port locked")
)

// polls is how many register reads to wait for the processor.
const polls = 100000

// processor control register indexes
const (
	cpuCtlA   = 1
	cpuSteps  = 9
	cpuPSWPC  = 10
	cpuStatus = 11
)

// Controller is the front panel of a machine reached through an axi
// register page.
type Controller struct {
	port    axi.Port
	cpu, ky uint32
}

// New locates the processor and front panel on port.
func New(port axi.Port) (*Controller, error) {
	c := &Controller{port: port}
	var err error
	if c.cpu, err = axi.Find(port, "11"); err != nil {
		return nil, err
	}
	if c.ky, err = axi.Find(port, "KY"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) ky2() uint32 { return c.port.Read(c.ky + 2) }

// Halt asks the processor to stop at the end of the current
// instruction and waits until it has.
func (c *Controller) Halt() error {
	c.port.Write(c.ky+2, c.ky2()|devices.KY2HaltReq)
	return c.waitHalted()
}

// StepOnce lets a halted processor execute one instruction.
func (c *Controller) StepOnce() error {
	c.port.Write(c.ky+2, c.ky2()|devices.KY2HaltReq|devices.KY2StepReq)
	return c.waitHalted()
}

// Continue releases a halt request.
func (c *Controller) Continue() {
	c.port.Write(c.ky+2, c.ky2()&^(devices.KY2HaltReq|devices.KY2StepReq))
}

func (c *Controller) waitHalted() error {
	for i := 0; i < polls; i++ {
		ky2 := c.ky2()
		if ky2&devices.KY2Halted != 0 && ky2&devices.KY2StepReq == 0 {
			return nil
		}
	}
	return ErrStuck
}

// Simulate puts the processor board in simulation mode and power cycles
// it.
func (c *Controller) Simulate() error {
	c.port.Write(c.ky+2, c.ky2()|devices.KY2HaltReq)
	ctla := c.port.Read(c.cpu + cpuCtlA)
	c.port.Write(c.cpu+cpuCtlA, ctla&^(3<<30)|cpu.FMSim<<30)
	return c.Reset()
}

// Reset power cycles the processor. It comes back up halted, having
// loaded the power-on vector at 024.
func (c *Controller) Reset() error {
	c.port.Write(c.ky+2, c.ky2()|devices.KY2HaltReq)
	ctla := c.port.Read(c.cpu + cpuCtlA)
	c.port.Write(c.cpu+cpuCtlA, ctla|cpu.CtlaDCLo)
	c.port.Write(c.cpu+cpuCtlA, ctla&^cpu.CtlaDCLo)
	for i := 0; i < polls; i++ {
		if c.port.Read(c.cpu+cpuStatus)&2 != 0 {
			return nil
		}
	}
	return ErrStuck
}

// Status is a snapshot of the processor.
type Status struct {
	PC, PSW uint16
	Powered bool   // power-on vector has been loaded
	Jammed  bool   // stopped on HALT, double fault or power down
	Halted  bool   // halted from the front panel or jammed
	Steps   uint32 // cycles since power up
}

func (s Status) String() string {
	state := "running"
	switch {
	case !s.Powered:
		state = "off"
	case s.Jammed:
		state = "jammed"
	case s.Halted:
		state = "halted"
	}
	return fmt.Sprintf("PC=%06o PS=%06o %s", s.PC, s.PSW, state)
}

// Status reads the processor state.
func (c *Controller) Status() Status {
	pswpc := c.port.Read(c.cpu + cpuPSWPC)
	st := c.port.Read(c.cpu + cpuStatus)
	return Status{
		PC:      uint16(pswpc),
		PSW:     uint16(pswpc >> 16),
		Powered: st&2 != 0,
		Jammed:  st&1 != 0,
		Halted:  c.ky2()&devices.KY2Halted != 0,
		Steps:   c.port.Read(c.cpu + cpuSteps),
	}
}

// dma starts the unibus cycle cmd and waits for it to finish.
func (c *Controller) dma(cmd uint32) error {
	addr := cmd & 0777777
	c.port.Write(c.ky+3, devices.KY3DMAStart|cmd)
	for i := 0; i < polls; i++ {
		ky3 := c.port.Read(c.ky + 3)
		if ky3&devices.KY3DMAStart != 0 {
			continue
		}
		if ky3&devices.KY3DMAFail != 0 {
			return fmt.Errorf("%w at %06o", ErrTimeout, addr)
		}
		return nil
	}
	return fmt.Errorf("%w: dma at %06o", ErrStuck, addr)
}

// Examine reads the word at unibus address addr. Odd addresses are
// passed through, since each general register has its own address.
func (c *Controller) Examine(addr uint32) (uint16, error) {
	if err := c.dma(addr & 0777777); err != nil {
		return 0, err
	}
	return uint16(c.port.Read(c.ky + 4)), nil
}

// Deposit writes w at unibus address addr.
func (c *Controller) Deposit(addr uint32, w uint16) error {
	c.port.Write(c.ky+4, uint32(w))
	return c.dma(devices.KY3DMAWrite | addr&0777777)
}

// DepositByte writes b at unibus address addr.
func (c *Controller) DepositByte(addr uint32, b uint8) error {
	c.port.Write(c.ky+4, uint32(b)*0401)
	return c.dma(devices.KY3DMAWrite | devices.KY3DMAByte | addr&0777777)
}

// Lock takes the DMA port for id, which must not be zero.
func (c *Controller) Lock(id uint32) error {
	c.port.Write(c.ky+5, id)
	if held := c.port.Read(c.ky + 5); held != id {
		return fmt.Errorf("%w by %d", ErrLocked, held)
	}
	return nil
}

// Unlock releases the DMA port held by id.
func (c *Controller) Unlock(id uint32) {
	if c.port.Read(c.ky+5) == id {
		c.port.Write(c.ky+5, id)
	}
}

// EnableMemory enables the first n 4KB blocks of memory.
func (c *Controller) EnableMemory(n int) error {
	bm, err := axi.Find(c.port, "BM")
	if err != nil {
		return err
	}
	if n < 0 || n > 62 {
		return fmt.Errorf("control: %d blocks of memory", n)
	}
	mask := uint64(1)<<uint(n) - 1
	c.port.Write(bm+1, uint32(mask))
	c.port.Write(bm+2, uint32(mask>>32))
	return nil
}

// enable bit 31 of these registers connects a board to the unibus
var enableReg = map[string]uint32{
	"DL": 3,
	"KL": 1,
	"KY": 2,
	"RL": 5,
}

// Enable connects the board named name to the unibus.
func (c *Controller) Enable(name string) error {
	idx, ok := enableReg[name]
	if !ok {
		return fmt.Errorf("control: %q has no enable", name)
	}
	base, err := axi.Find(c.port, name)
	if err != nil {
		return err
	}
	c.port.Write(base+idx, c.port.Read(base+idx)|1<<31)
	return nil
}

// Load deposits the little endian words read from r starting at addr.
func (c *Controller) Load(r io.Reader, addr uint32) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("control: load: %w", err)
	}
	if len(buf)%2 != 0 {
		buf = append(buf, 0)
	}
	for i := 0; i < len(buf); i += 2 {
		if err := c.Deposit(addr+uint32(i), binary.LittleEndian.Uint16(buf[i:])); err != nil {
			return fmt.Errorf("control: load: %w", err)
		}
	}
	return nil
}
