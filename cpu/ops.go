package cpu

import "github.com/davecheney/pdp1134/unibus"

// opaddr computes the virtual address of the operand described by the
// low six bits of dd, applying any autoincrement or autodecrement.
// Mode 0, register, has no address and traps.
func (kd *KD11) opaddr(dd uint16, byte bool) uint16 {
	mode := kd.currentmode()
	r := kd.gprx(dd, mode)

	inc := uint16(2)
	if byte && r&7 < 6 {
		inc = 1
	}

	switch (dd >> 3) & 7 {
	case 1: // (R)
		return kd.R[r]
	case 2: // (R)+
		addr := kd.R[r]
		kd.R[r] += inc
		return addr
	case 3: // @(R)+
		addr := kd.readWord(kd.R[r], mode)
		kd.R[r] += 2
		return addr
	case 4: // -(R)
		kd.R[r] -= inc
		if r == 6 {
			kd.yellowstkck = true
		}
		return kd.R[r]
	case 5: // @-(R)
		kd.R[r] -= 2
		if r == 6 {
			kd.yellowstkck = true
		}
		return kd.readWord(kd.R[r], mode)
	case 6: // X(R)
		x := kd.fetch()
		return x + kd.R[r]
	case 7: // @X(R)
		x := kd.fetch()
		return kd.readWord(x+kd.R[r], mode)
	}
	panic(trap{TrapIllegal})
}

// fetch reads the word at PC and steps over it.
func (kd *KD11) fetch() uint16 {
	w := kd.readWord(kd.R[7], kd.currentmode())
	kd.R[7] += 2
	return w
}

// pop pops a word off the stack whose pointer is R[sp].
func (kd *KD11) pop(sp, mode uint16) uint16 {
	w := kd.readWord(kd.R[sp], mode)
	kd.R[sp] += 2
	return w
}

// readSrc reads the source operand. A register source is always the
// full word.
func (kd *KD11) readSrc(byte bool) uint16 {
	mode := kd.currentmode()
	if kd.IR&07000 == 0 {
		return kd.R[kd.gprx(kd.IR>>6, mode)]
	}
	addr := kd.opaddr(kd.IR>>6, byte)
	if byte {
		return uint16(kd.readByte(addr, mode))
	}
	return kd.readWord(addr, mode)
}

// readDst reads the destination operand and remembers its address for
// the following writeDst.
func (kd *KD11) readDst(byte bool) uint16 {
	mode := kd.currentmode()
	if kd.IR&070 == 0 {
		return kd.R[kd.gprx(kd.IR, mode)]
	}
	kd.dstaddr = kd.opaddr(kd.IR, byte)
	kd.havedstaddr = true
	if byte {
		return uint16(kd.readByte(kd.dstaddr, mode))
	}
	return kd.readWord(kd.dstaddr, mode)
}

// writeDst writes the destination operand. A byte write to a register
// replaces only its low byte.
func (kd *KD11) writeDst(data uint16, byte bool) {
	mode := kd.currentmode()
	if kd.IR&070 == 0 {
		r := kd.gprx(kd.IR, mode)
		if byte {
			data = kd.R[r]&0177400 | data&0377
		}
		kd.R[r] = data
		return
	}
	if !kd.havedstaddr {
		kd.dstaddr = kd.opaddr(kd.IR, byte)
		kd.havedstaddr = true
	}
	if byte {
		kd.writeByte(kd.dstaddr, uint8(data), mode)
		return
	}
	kd.writeWord(kd.dstaddr, data, mode)
}

// virtual memory access

func (kd *KD11) readWord(va, mode uint16) uint16 {
	if va&1 != 0 {
		panic(trap{TrapBus})
	}
	return kd.readPhys(kd.mmu.decode(false, va, mode))
}

func (kd *KD11) readByte(va, mode uint16) uint8 {
	pa := kd.mmu.decode(false, va, mode)
	w := kd.readPhys(pa &^ 1)
	if pa&1 != 0 {
		return uint8(w >> 8)
	}
	return uint8(w)
}

func (kd *KD11) writeWord(va, data, mode uint16) {
	if va&1 != 0 {
		panic(trap{TrapBus})
	}
	kd.writePhys(kd.mmu.decode(true, va, mode), data, false)
}

func (kd *KD11) writeByte(va uint16, data uint8, mode uint16) {
	kd.writePhys(kd.mmu.decode(true, va, mode), uint16(data), true)
}

// physical memory access, a bus timeout traps

func (kd *KD11) readPhys(pa unibus.Addr) uint16 {
	w, ok := kd.bus.Read(pa)
	if !ok {
		panic(trap{TrapBus})
	}
	return w
}

func (kd *KD11) writePhys(pa unibus.Addr, data uint16, byte bool) {
	if !kd.bus.Write(pa, data, byte) {
		panic(trap{TrapBus})
	}
}

// condition codes

func signBit(byte bool) uint16 {
	if byte {
		return 0200
	}
	return 0100000
}

func (kd *KD11) setFlags(n, z, v, c bool) {
	kd.PSW &^= FLAGN | FLAGZ | FLAGV | FLAGC
	if n {
		kd.PSW |= FLAGN
	}
	if z {
		kd.PSW |= FLAGZ
	}
	if v {
		kd.PSW |= FLAGV
	}
	if c {
		kd.PSW |= FLAGC
	}
}

// setNZVC sets N and Z from result, its low byte if byte is set.
func (kd *KD11) setNZVC(result uint16, byte, v, c bool) {
	z := result == 0
	if byte {
		z = result&0377 == 0
	}
	kd.setFlags(result&signBit(byte) != 0, z, v, c)
}

// addV reports signed overflow of a+b.
func addV(a, b uint16, byte bool) bool {
	if byte {
		s := int16(int8(a)) + int16(int8(b))
		return s < -128 || s > 127
	}
	s := int32(int16(a)) + int32(int16(b))
	return s < -32768 || s > 32767
}

// addC reports a carry out of a+b.
func addC(a, b uint16, byte bool) bool {
	if byte {
		return uint16(uint8(a))+uint16(uint8(b)) > 0377
	}
	return uint32(a)+uint32(b) > 0177777
}

// subV reports signed overflow of a-b.
func subV(a, b uint16, byte bool) bool {
	if byte {
		d := int16(int8(a)) - int16(int8(b))
		return d < -128 || d > 127
	}
	d := int32(int16(a)) - int32(int16(b))
	return d < -32768 || d > 32767
}

// subC reports a borrow out of a-b.
func subC(a, b uint16, byte bool) bool {
	if byte {
		return uint8(a) < uint8(b)
	}
	return a < b
}

// aslV is the V of a left shift: the sign changed.
func aslV(old, result uint16, byte bool) bool {
	sb := signBit(byte)
	return (old^result)&sb != 0
}

// asrV is the V of a right shift: N xor C afterwards.
func asrV(old, result uint16, byte bool) bool {
	return (old&1 != 0) != (result&signBit(byte) != 0)
}
