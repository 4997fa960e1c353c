package devices

import (
	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/unibus"
)

const (
	rl11ID   = 0x524C2002 // "RL"; size; version
	rl11Addr = 0774400
	rl11Vec  = 0160
)

// RL11 is the register file of an RL01/02 disk controller. Commands are
// carried out by the host, which watches the registers over axi and
// posts drive ready and error bits.
type RL11 struct {
	rlcs, rlba, rlda    uint16
	rlmp1, rlmp2, rlmp3 uint16 // multipurpose register fifo

	drivereadys uint32 // one bit per drive
	driveerrors uint32
	enable      bool
}

// NewRL11 plugs a disk controller into bus.
func NewRL11(bus *unibus.Bus) *RL11 {
	rl := new(RL11)
	bus.Claim(rl, rl11Addr, rl11Addr+2, rl11Addr+4, rl11Addr+6)
	bus.Attach(rl)
	return rl
}

func (rl *RL11) AxiRead(index uint32) uint32 {
	rl.updatercs()
	switch index {
	case 0:
		return rl11ID
	case 1:
		return uint32(rl.rlba)<<16 | uint32(rl.rlcs)
	case 2:
		return uint32(rl.rlmp1)<<16 | uint32(rl.rlda)
	case 3:
		return uint32(rl.rlmp3)<<16 | uint32(rl.rlmp2)
	case 4:
		return rl.driveerrors<<4 | rl.drivereadys
	case 5:
		return b2u(rl.enable)<<31 | rl11Vec<<18 | rl11Addr
	}
	return axi.Unassigned
}

func (rl *RL11) AxiWrite(index, data uint32) {
	switch index {
	case 1:
		rl.rlcs, rl.rlba = uint16(data), uint16(data>>16)
	case 2:
		rl.rlda, rl.rlmp1 = uint16(data), uint16(data>>16)
	case 3:
		rl.rlmp2, rl.rlmp3 = uint16(data), uint16(data>>16)
	case 4:
		rl.drivereadys = data & 15
		rl.driveerrors = (data >> 4) & 15
	case 5:
		rl.enable = data>>31 != 0
	}
}

func (rl *RL11) BusReset() {
	rl.rlcs = 0200
	rl.rlba = 0
	rl.rlda = 0
	rl.rlmp1 = 0
	rl.rlmp2 = 0
	rl.rlmp3 = 0
}

func (rl *RL11) BusInterrupt(level uint16) uint8 {
	if level == 5 && rl.rlcs&0300 == 0300 {
		return rl11Vec
	}
	return 0
}

func (rl *RL11) BusRead(addr unibus.Addr) (uint16, bool) {
	if !rl.enable {
		return 0, false
	}
	switch addr & 6 {
	case 0:
		rl.updatercs()
		return rl.rlcs, true
	case 2:
		return rl.rlba, true
	case 4:
		return rl.rlda, true
	default:
		mp := rl.rlmp1
		rl.rlmp1, rl.rlmp2, rl.rlmp3 = rl.rlmp2, rl.rlmp3, mp
		return mp, true
	}
}

func (rl *RL11) BusWrite(addr unibus.Addr, data uint16, byte bool) bool {
	if !rl.enable {
		return false
	}
	var reg *uint16
	switch addr & 6 {
	case 0:
		reg = &rl.rlcs
	case 2:
		reg = &rl.rlba
	case 4:
		reg = &rl.rlda
	default:
		reg = &rl.rlmp1
	}
	if byte {
		data = unibus.MergeByte(*reg, addr, data)
	}
	*reg = data
	if reg == &rl.rlmp1 {
		rl.rlmp2, rl.rlmp3 = data, data
	}
	return true
}

// updatercs folds the selected drive's ready and error bits into RLCS.
func (rl *RL11) updatercs() {
	dsel := (rl.rlcs >> 8) & 3
	drdy := uint16(rl.drivereadys>>dsel) & 1
	derr := uint16(rl.driveerrors>>dsel) & 1
	var cerr uint16
	if derr != 0 || rl.rlcs&036000 != 0 {
		cerr = 1
	}
	rl.rlcs = rl.rlcs&037776 | derr<<14 | cerr<<15 | drdy
}
