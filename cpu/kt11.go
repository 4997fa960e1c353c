package cpu

import (
	"github.com/davecheney/pdp1134/unibus"
)

// SR0 (MMR0) bits.
const (
	sr0Enable      = 0000001
	sr0AbortRO     = 0020000
	sr0AbortLength = 0040000
	sr0AbortNR     = 0100000
	sr0Aborts      = sr0AbortNR | sr0AbortLength | sr0AbortRO
)

type page struct {
	par, pdr uint16
}

func (p *page) addr() unibus.Addr { return unibus.Addr(p.par & 07777) }
func (p *page) len() uint16       { return (p.pdr >> 8) & 0177 }
func (p *page) read() bool        { return p.pdr&2 == 2 }
func (p *page) write() bool       { return p.pdr&4 == 4 }
func (p *page) ed() bool          { return p.pdr&8 == 8 }

// KT11 is the 11/34 memory management unit: kernel and user page sets
// of eight pages each.
type KT11 struct {
	SR0, SR2 uint16
	pages    [16]page // kernel 0-7, user 8-15
}

// decode translates the virtual address a for an access in mode.
func (kt *KT11) decode(wr bool, a, mode uint16) unibus.Addr {
	if kt.SR0&sr0Enable == 0 {
		addr := unibus.Addr(a)
		if addr >= 0160000 {
			return addr | 0760000
		}
		return addr
	}

	var set uint16
	switch mode & 3 {
	case 0:
	case 3:
		set = 8
	default:
		panic(trap{TrapBus})
	}

	n := a >> 13
	p := &kt.pages[set+n]

	// abort status is frozen until software clears it
	if kt.SR0&sr0Aborts == 0 {
		kt.SR0 = kt.SR0&^01560 | (mode&3)<<5 | n<<1
	}

	if !p.read() {
		kt.SR0 |= sr0AbortNR
		panic(trap{TrapMMU})
	}
	block := (a >> 6) & 0177
	if (p.ed() && block < p.len()) || (!p.ed() && block > p.len()) {
		kt.SR0 |= sr0AbortLength
		panic(trap{TrapMMU})
	}
	if wr {
		if !p.write() {
			kt.SR0 |= sr0AbortRO
			panic(trap{TrapMMU})
		}
		p.pdr |= 1 << 6
	}
	return p.addr()<<6 + unibus.Addr(a&017777)
}

// peek is decode without side effects. It reports false where decode
// would abort.
func (kt *KT11) peek(a, mode uint16) (unibus.Addr, bool) {
	if kt.SR0&sr0Enable == 0 {
		addr := unibus.Addr(a)
		if addr >= 0160000 {
			addr |= 0760000
		}
		return addr, true
	}
	set := uint16(0)
	if mode&3 != 0 {
		set = 8
	}
	p := &kt.pages[set+a>>13]
	if !p.read() {
		return 0, false
	}
	block := (a >> 6) & 0177
	if (p.ed() && block < p.len()) || (!p.ed() && block > p.len()) {
		return 0, false
	}
	return p.addr()<<6 + unibus.Addr(a&017777), true
}

func (kt *KT11) read16(addr unibus.Addr) (uint16, bool) {
	switch addr {
	case 0777572:
		return kt.SR0, true
	case 0777576:
		return kt.SR2, true
	}
	i := (addr & 016) >> 1
	switch addr & ^unibus.Addr(017) {
	case 0772300:
		return kt.pages[i].pdr, true
	case 0772340:
		return kt.pages[i].par, true
	case 0777600:
		return kt.pages[i+8].pdr, true
	case 0777640:
		return kt.pages[i+8].par, true
	}
	return 0, false
}

func (kt *KT11) write16(addr unibus.Addr, v uint16) bool {
	switch addr {
	case 0777572:
		kt.SR0 = v & 0160557
		return true
	case 0777576:
		// read only
		return true
	}
	i := (addr & 016) >> 1
	switch addr & ^unibus.Addr(017) {
	case 0772300:
		kt.pages[i].pdr = v & 077416
	case 0772340:
		kt.pages[i].par = v & 07777
		kt.pages[i].pdr &= 077416
	case 0777600:
		kt.pages[i+8].pdr = v & 077416
	case 0777640:
		kt.pages[i+8].par = v & 07777
		kt.pages[i+8].pdr &= 077416
	default:
		return false
	}
	return true
}
