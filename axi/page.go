// Package axi implements the simulator's control register page: 1024
// 32-bit slots shared out among the boards, the same way the FPGA's AXI
// page is on the real machine.
package axi

import (
	"errors"
	"fmt"
)

// Slots is the number of 32-bit registers on the page.
const Slots = 1024

// Unassigned is what a read of an unused slot returns.
const Unassigned = 0xDEADBEEF

// ErrOverflow is returned by Build when the devices do not fit on the page.
var ErrOverflow = errors.New("axi: devices overflow the register page")

// Device is a board with registers on the page. Index 0 must return the
// identification word: two ID characters in bits 31:16, the block size
// in bits 15:12 (the device gets 2<<size slots) and a version in 11:0.
type Device interface {
	AxiRead(index uint32) uint32
	AxiWrite(index, data uint32)
}

// Port is anything that gives indexed access to a register page.
type Port interface {
	Read(index uint32) uint32
	Write(index, data uint32)
}

// Size returns the number of slots a device with identification word id
// occupies.
func Size(id uint32) uint32 { return 2 << ((id >> 12) & 15) }

// Builder collects devices in registration order.
type Builder struct {
	devs []Device
}

// Add registers d.
func (b *Builder) Add(d Device) { b.devs = append(b.devs, d) }

// Build assigns every registered device a block of the page, largest
// blocks first and ties in registration order, so each block is aligned
// on its own size.
func (b *Builder) Build() (*Page, error) {
	p := new(Page)
	next := uint32(0)
	for size := 15; size >= 0; size-- {
		for _, d := range b.devs {
			if int((d.AxiRead(0)>>12)&15) != size {
				continue
			}
			n := uint32(2) << size
			if next+n > Slots {
				return nil, fmt.Errorf("%w: %08X needs %d slots at %d", ErrOverflow, d.AxiRead(0), n, next)
			}
			for i := uint32(0); i < n; i++ {
				p.devs[next] = d
				p.masks[next] = n - 1
				next++
			}
		}
	}
	return p, nil
}

// Page is an assigned register page.
type Page struct {
	devs  [Slots]Device
	masks [Slots]uint32
}

// Read reads slot index.
func (p *Page) Read(index uint32) uint32 {
	if index >= Slots || p.devs[index] == nil {
		return Unassigned
	}
	return p.devs[index].AxiRead(index & p.masks[index])
}

// Write writes data to slot index.
func (p *Page) Write(index, data uint32) {
	if index >= Slots || p.devs[index] == nil {
		return
	}
	p.devs[index].AxiWrite(index&p.masks[index], data)
}
