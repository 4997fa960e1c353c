package devices

import (
	"time"

	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/unibus"
)

const (
	kl11ID   = 0x4B4C0002 // "KL"; size; version
	kl11Addr = 0777546
	kl11Vec  = 0100
)

// KL11 is the line time clock. Every value received from ticks sets the
// clock flag.
type KL11 struct {
	ticks <-chan time.Time

	enable bool
	intreq bool
	lkflag bool // bit 7
	lkiena bool // bit 6
}

// NewKL11 plugs a line clock driven by ticks into bus.
func NewKL11(bus *unibus.Bus, ticks <-chan time.Time) *KL11 {
	kl := &KL11{ticks: ticks}
	bus.Claim(kl, kl11Addr)
	bus.Attach(kl)
	return kl
}

func (kl *KL11) AxiRead(index uint32) uint32 {
	switch index {
	case 0:
		return kl11ID
	case 1:
		return b2u(kl.enable)<<31 | b2u(kl.intreq)<<30
	}
	return axi.Unassigned
}

func (kl *KL11) AxiWrite(index, data uint32) {
	if index == 1 {
		kl.enable = data>>31 != 0
	}
}

func (kl *KL11) BusReset() {
	kl.intreq = false
	kl.lkflag = false
	kl.lkiena = false
	kl.drain()
}

func (kl *KL11) BusInterrupt(level uint16) uint8 {
	if level != 6 || !kl.enable {
		return 0
	}
	kl.tick()
	if !kl.intreq {
		return 0
	}
	kl.intreq = false
	return kl11Vec
}

func (kl *KL11) BusRead(addr unibus.Addr) (uint16, bool) {
	if !kl.enable {
		return 0, false
	}
	kl.tick()
	var csr uint16
	if kl.lkflag {
		csr |= 1 << 7
	}
	if kl.lkiena {
		csr |= 1 << 6
	}
	return csr, true
}

func (kl *KL11) BusWrite(addr unibus.Addr, data uint16, byte bool) bool {
	if !kl.enable {
		return false
	}
	kl.intreq = false
	kl.lkflag = false
	kl.lkiena = data&(1<<6) != 0
	kl.drain()
	return true
}

func (kl *KL11) tick() {
	select {
	case <-kl.ticks:
		kl.lkflag = true
		kl.intreq = kl.lkiena
	default:
	}
}

// drain discards ticks that arrived before now.
func (kl *KL11) drain() {
	for {
		select {
		case <-kl.ticks:
		default:
			return
		}
	}
}
