// Package devices holds the unibus boards of the simulator other than the
// processor: memory, the console terminal, the line clock, the front
// panel and the disk controller.
package devices

import (
	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/unibus"
)

const bigmemID = 0x424D2005 // "BM"; size; version

// BigMem is 256KB of unibus memory, enabled in 4KB blocks.
type BigMem struct {
	enable  uint64 // one bit per 4KB block, 62 blocks
	armaddr uint32
	armdata uint32
	words   [1 << 17]uint16
}

// NewBigMem plugs memory into bus.
func NewBigMem(bus *unibus.Bus) *BigMem {
	m := new(BigMem)
	bus.AttachMemory(m)
	bus.Attach(m)
	return m
}

func (m *BigMem) AxiRead(index uint32) uint32 {
	switch index {
	case 0:
		return bigmemID
	case 1:
		return uint32(m.enable)
	case 2:
		return uint32(m.enable >> 32)
	case 3:
		return m.armaddr
	case 4:
		return m.armdata
	}
	return axi.Unassigned
}

// AxiWrite sets the enable mask, or accesses memory directly for the
// host. A write of index 3 carries the address in its low bits and the
// command in bits 31:29.
func (m *BigMem) AxiWrite(index, data uint32) {
	switch index {
	case 1:
		m.enable = m.enable&0x3FFFFFFF00000000 | uint64(data)
	case 2:
		m.enable = m.enable&0xFFFFFFFF | uint64(data&0x3FFFFFFF)<<32
	case 3:
		m.armaddr = data & 0777776
		w := &m.words[m.armaddr>>1]
		switch data >> 29 {
		case 1: // write low byte
			*w = *w&0177400 | uint16(m.armdata&0377)
		case 2: // write high byte
			*w = uint16(m.armdata&0177400) | *w&0377
		case 3:
			*w = uint16(m.armdata)
		case 4:
			m.armdata = uint32(*w)
		}
	case 4:
		m.armdata = data & 0xFFFF
	}
}

// memory does not reset or interrupt

func (m *BigMem) BusReset() {}

func (m *BigMem) BusInterrupt(level uint16) uint8 { return 0 }

func (m *BigMem) enabled(addr unibus.Addr) bool {
	return m.enable>>(addr>>12) != 0
}

func (m *BigMem) BusRead(addr unibus.Addr) (uint16, bool) {
	if !m.enabled(addr) {
		return 0, false
	}
	return m.words[addr>>1], true
}

func (m *BigMem) BusWrite(addr unibus.Addr, data uint16, byte bool) bool {
	if !m.enabled(addr) {
		return false
	}
	w := &m.words[addr>>1]
	if byte {
		*w = unibus.MergeByte(*w, addr, data)
	} else {
		*w = data
	}
	return true
}
