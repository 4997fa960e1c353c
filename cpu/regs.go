package cpu

import "github.com/davecheney/pdp1134/unibus"

// The processor answers on the unibus for its general registers, the
// memory management registers and the PSW.

func (kd *KD11) BusReset() {}

func (kd *KD11) BusInterrupt(level uint16) uint8 { return 0 }

func isGPR(addr unibus.Addr) bool { return addr&0777760 == 0777700 }

func (kd *KD11) BusRead(addr unibus.Addr) (uint16, bool) {
	if isGPR(addr) {
		return kd.R[addr&017], true
	}
	addr &^= 1
	if addr == 0777776 {
		return kd.PSW, true
	}
	return kd.mmu.read16(addr)
}

func (kd *KD11) BusWrite(addr unibus.Addr, data uint16, byte bool) bool {
	if isGPR(addr) {
		r := addr & 017
		if byte {
			// every register has its own address, a byte goes to the low half
			data = kd.R[r]&0177400 | data&0377
		}
		kd.R[r] = data
		return true
	}
	if byte {
		word, ok := kd.BusRead(addr)
		if !ok {
			return false
		}
		data = unibus.MergeByte(word, addr, data)
	}
	addr &^= 1
	if addr == 0777776 {
		kd.PSW = kd.PSW&020 | data&0170357
		return true
	}
	return kd.mmu.write16(addr, data)
}
