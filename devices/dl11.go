package devices

import (
	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/unibus"
)

const (
	dl11ID   = 0x444C1002 // "DL"; size; version
	dl11Addr = 0777560
	dl11Vec  = 060 // receiver; transmitter is 064
)

// DL11 is the console serial line. The host side moves characters in
// and out through the axi registers.
type DL11 struct {
	rcsr, rbuf, xcsr, xbuf uint16
	enable                 bool
}

// NewDL11 plugs a console line into bus.
func NewDL11(bus *unibus.Bus) *DL11 {
	dl := new(DL11)
	bus.Claim(dl, dl11Addr, dl11Addr+2, dl11Addr+4, dl11Addr+6)
	bus.Attach(dl)
	return dl
}

func (dl *DL11) AxiRead(index uint32) uint32 {
	switch index {
	case 0:
		return dl11ID
	case 1:
		return uint32(dl.rbuf)<<16 | uint32(dl.rcsr)
	case 2:
		return uint32(dl.xbuf)<<16 | uint32(dl.xcsr)
	case 3:
		return b2u(dl.enable)<<31 | dl11Vec<<18 | dl11Addr
	}
	return axi.Unassigned
}

// AxiWrite index 1 delivers a received character with the done bit;
// index 2 sets the transmitter ready bit once the host has taken xbuf.
func (dl *DL11) AxiWrite(index, data uint32) {
	switch index {
	case 1:
		dl.rbuf = uint16(data >> 16)
		dl.rcsr = dl.rcsr&^0200 | uint16(data&0200)
	case 2:
		dl.xcsr = dl.xcsr&^0200 | uint16(data&0200)
	case 3:
		dl.enable = data>>31 != 0
	}
}

func (dl *DL11) BusReset() {
	dl.rcsr = 0
	dl.xcsr = 0200
}

func (dl *DL11) BusInterrupt(level uint16) uint8 {
	if level != 4 {
		return 0
	}
	if dl.rcsr&0300 == 0300 {
		return dl11Vec
	}
	if dl.xcsr&0300 == 0300 {
		return dl11Vec + 4
	}
	return 0
}

func (dl *DL11) BusRead(addr unibus.Addr) (uint16, bool) {
	if !dl.enable {
		return 0, false
	}
	switch addr & 6 {
	case 0:
		return dl.rcsr & 0300, true
	case 2:
		dl.rcsr &^= 0200
		return dl.rbuf, true
	case 4:
		return dl.xcsr & 0300, true
	default:
		return dl.xbuf, true
	}
}

func (dl *DL11) BusWrite(addr unibus.Addr, data uint16, byte bool) bool {
	if !dl.enable {
		return false
	}
	if byte {
		switch addr & 7 {
		case 0:
			dl.rcsr = dl.rcsr&^0100 | data&0100
		case 4:
			dl.xcsr = dl.xcsr&^0100 | data&0100
		case 6:
			dl.xbuf = data & 0377
			dl.xcsr &^= 0200
		case 7:
			dl.xcsr &^= 0200
		}
		return true
	}
	switch addr & 6 {
	case 0:
		dl.rcsr = dl.rcsr&^0100 | data&0100
	case 4:
		dl.xcsr = dl.xcsr&^0100 | data&0100
	case 6:
		dl.xbuf = data & 0377
		dl.xcsr &^= 0200
	}
	return true
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
