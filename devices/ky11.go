package devices

import (
	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/unibus"
)

const (
	ky11ID   = 0x4B59200D // "KY"; size; version
	ky11Addr = 0777570
)

// KY2, the front panel control register.
const (
	KY2Enable  = 1 << 31
	KY2HaltReq = 1 << 30
	KY2Halted  = 1 << 29 // halt requested or processor jammed
	KY2StepReq = 1 << 28
	KY2Jammed  = 1 << 17
)

// KY3, the DMA command register.
const (
	KY3DMAStart = 1 << 29
	KY3DMAFail  = 1 << 28
	KY3DMAWrite = 2 << 26
	KY3DMAByte  = 1 << 26
)

// Jammer is a processor that can report being stopped on a HALT.
type Jammer interface {
	Jammed() bool
}

// KY11 is the programmer's front panel: switch and light registers, halt
// and single step requests, a programmable interrupt and a DMA port the
// host uses to examine and deposit while the processor is stopped.
type KY11 struct {
	bus *unibus.Bus
	cpu Jammer

	lights, switches uint16
	enable           bool
	haltreq, stepreq bool
	irqlev           uint16
	irqvec           uint8

	dmafail bool
	dmactrl uint32
	dmaaddr uint32
	dmadata uint16
	dmalock uint32
}

// NewKY11 plugs a front panel for cpu into bus.
func NewKY11(bus *unibus.Bus, cpu Jammer) *KY11 {
	ky := &KY11{bus: bus, cpu: cpu}
	bus.Claim(ky, ky11Addr)
	bus.Attach(ky)
	return ky
}

// HaltRequested reports whether the host asked for a hard halt.
func (ky *KY11) HaltRequested() bool { return ky.haltreq }

// StepRequested lets one processor cycle through after a step request,
// then holds the processor halted.
func (ky *KY11) StepRequested() bool {
	if ky.stepreq {
		ky.stepreq = false
		ky.haltreq = true
		return true
	}
	return !ky.haltreq
}

func (ky *KY11) AxiRead(index uint32) uint32 {
	switch index {
	case 0:
		return ky11ID
	case 1:
		return uint32(ky.lights)<<16 | uint32(ky.switches)
	case 2:
		jammed := ky.cpu.Jammed()
		return b2u(ky.enable)<<31 |
			b2u(ky.haltreq)<<30 |
			b2u(jammed || ky.haltreq)<<29 |
			b2u(ky.stepreq)<<28 |
			b2u(jammed)<<17 |
			uint32(ky.irqlev)<<14 |
			uint32(ky.irqvec)<<8
	case 3:
		return b2u(ky.dmafail)<<28 | ky.dmactrl<<26 | ky.dmaaddr
	case 4:
		return uint32(ky.dmadata)
	case 5:
		return ky.dmalock
	}
	return axi.Unassigned
}

func (ky *KY11) AxiWrite(index, data uint32) {
	switch index {
	case 1:
		ky.switches = uint16(data)
	case 2:
		ky.enable = data&KY2Enable != 0
		ky.haltreq = data&KY2HaltReq != 0
		ky.stepreq = data&KY2StepReq != 0
		ky.irqlev = uint16(data>>14) & 7
		ky.irqvec = uint8(data>>8) & 63
	case 3:
		ky.dma(data)
	case 4:
		ky.dmadata = uint16(data)
	case 5:
		switch ky.dmalock {
		case 0:
			ky.dmalock = data
		case data:
			ky.dmalock = 0
		}
	}
}

// dma performs the unibus cycle requested by a write of KY3. It completes
// before returning, so the start bit always reads back clear.
func (ky *KY11) dma(data uint32) {
	ky.dmaaddr = data & 0777777
	ky.dmactrl = (data >> 26) & 3
	ky.dmafail = data&KY3DMAFail != 0
	if data&KY3DMAStart == 0 {
		return
	}
	addr := unibus.Addr(ky.dmaaddr)
	if ky.dmactrl&2 != 0 {
		byte := ky.dmactrl&1 != 0
		if byte && addr&1 != 0 {
			ky.dmadata >>= 8
		}
		ky.dmafail = !ky.bus.Write(addr, ky.dmadata, byte)
		return
	}
	w, ok := ky.bus.Read(addr)
	if ok {
		ky.dmadata = w
	}
	ky.dmafail = !ok
}

func (ky *KY11) BusReset() { ky.irqlev = 0 }

func (ky *KY11) BusInterrupt(level uint16) uint8 {
	if level == ky.irqlev {
		return ky.irqvec * 4
	}
	return 0
}

func (ky *KY11) BusRead(addr unibus.Addr) (uint16, bool) {
	if !ky.enable {
		return 0, false
	}
	return ky.switches, true
}

func (ky *KY11) BusWrite(addr unibus.Addr, data uint16, byte bool) bool {
	if !ky.enable {
		return false
	}
	if byte {
		ky.lights = unibus.MergeByte(ky.lights, addr, data)
	} else {
		ky.lights = data
	}
	if data == 0 {
		ky.irqlev = 0
	}
	return true
}
