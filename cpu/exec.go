package cpu

// end is how an instruction finished.
type end int

const (
	endInst end = iota // check the yellow stack and the trace bit
	endRTT             // RTT, the trace trap waits one instruction
	endHalt            // HALT, leaves IR holding the halt
)

// cycle takes one pending interrupt, or fetches and executes one
// instruction.
func (kd *KD11) cycle() {
	for level := uint16(7); level >= 4 && level > kd.priority(); level-- {
		if vec := kd.bus.Interrupt(level); vec != 0 {
			panic(trap{uint16(vec)})
		}
	}

	kd.IR = kd.readWord(kd.R[7], kd.currentmode())
	if kd.mmu.SR0&sr0Aborts == 0 {
		kd.mmu.SR2 = kd.R[7]
	}
	if kd.trace != nil {
		kd.traceInstr()
	}
	kd.R[7] += 2

	kd.havedstaddr = false
	kd.yellowstkck = false
	if kd.execute() != endInst {
		return
	}

	if kd.yellowstkck && kd.currentmode() == 0 && kd.R[6] < yellowStack {
		panic(trap{TrapBus})
	}
	if kd.PSW&020 != 0 {
		panic(trap{TrapBPT})
	}
}

// execute decodes and executes the instruction in IR.
func (kd *KD11) execute() end {
	ir := kd.IR
	byte := ir&0100000 != 0

	switch (ir >> 12) & 7 {
	case 0:
		if e, ok := kd.execControl(ir, byte); ok {
			return e
		}
		if ir&04000 != 0 {
			// 007xxx and 107xxx, no branch has bit 11 set
			panic(trap{TrapIllegal})
		}
		return kd.execBranch(ir)
	case 1:
		kd.MOV(byte)
	case 2:
		kd.CMP(byte)
	case 3:
		kd.BIT(byte)
	case 4:
		kd.BIC(byte)
	case 5:
		kd.BIS(byte)
	case 6:
		if byte {
			kd.SUB()
		} else {
			kd.ADD()
		}
	case 7:
		if byte {
			// floating point
			panic(trap{TrapIllegal})
		}
		switch (ir >> 9) & 7 {
		case 0:
			kd.MUL()
		case 1:
			kd.DIV()
		case 2:
			kd.ASH()
		case 3:
			kd.ASHC()
		case 4:
			kd.XOR()
		case 7:
			kd.SOB()
		default:
			panic(trap{TrapIllegal})
		}
	}
	return endInst
}

// execControl handles the single operand and program control
// instructions in 0000100-0006777 and 1040000-1067777. It reports false
// for anything it does not recognise.
func (kd *KD11) execControl(ir uint16, byte bool) (end, bool) {
	switch (ir >> 6) & 077 {
	case 001:
		if byte {
			return 0, false
		}
		kd.JMP()
	case 002:
		switch {
		case byte:
			return 0, false
		case ir&0177770 == 0200:
			kd.RTS()
		case ir&0177740 == 0240:
			kd.CCS()
		default:
			return 0, false
		}
	case 003:
		if byte {
			return 0, false
		}
		kd.SWAB()
	case 040, 041, 042, 043, 044, 045, 046, 047:
		switch {
		case !byte:
			kd.JSR()
		case ir&0400 == 0:
			panic(trap{TrapEMT})
		default:
			panic(trap{TrapTRAP})
		}
	case 050:
		kd.CLR(byte)
	case 051:
		kd.COM(byte)
	case 052:
		kd.INC(byte)
	case 053:
		kd.DEC(byte)
	case 054:
		kd.NEG(byte)
	case 055:
		kd.ADC(byte)
	case 056:
		kd.SBC(byte)
	case 057:
		kd.TST(byte)
	case 060:
		kd.ROR(byte)
	case 061:
		kd.ROL(byte)
	case 062:
		kd.ASR(byte)
	case 063:
		kd.ASL(byte)
	case 064:
		if byte {
			kd.MTPS()
		} else {
			kd.MARK()
		}
	case 065:
		kd.MFPI()
	case 066:
		kd.MTPI()
	case 067:
		if byte {
			kd.MFPS()
		} else {
			kd.SXT()
		}
	default:
		return 0, false
	}
	return endInst, true
}

// execBranch handles the branches and, under branch code zero, the
// operandless instructions.
func (kd *KD11) execBranch(ir uint16) end {
	var taken bool
	switch (ir>>12)&010 | (ir>>8)&007 {
	case 000:
		return kd.execZero(ir)
	case 001: // BR
		taken = true
	case 002: // BNE
		taken = !kd.z()
	case 003: // BEQ
		taken = kd.z()
	case 004: // BGE
		taken = kd.n() == kd.v()
	case 005: // BLT
		taken = kd.n() != kd.v()
	case 006: // BGT
		taken = !kd.z() && kd.n() == kd.v()
	case 007: // BLE
		taken = kd.z() || kd.n() != kd.v()
	case 010: // BPL
		taken = !kd.n()
	case 011: // BMI
		taken = kd.n()
	case 012: // BHI
		taken = !kd.c() && !kd.z()
	case 013: // BLOS
		taken = kd.c() || kd.z()
	case 014: // BVC
		taken = !kd.v()
	case 015: // BVS
		taken = kd.v()
	case 016: // BCC
		taken = !kd.c()
	case 017: // BCS
		taken = kd.c()
	}
	if taken {
		kd.R[7] += uint16(int8(ir)) * 2
	}
	return endInst
}

func (kd *KD11) execZero(ir uint16) end {
	switch ir {
	case 0: // HALT
		if kd.mmu.SR0&sr0Enable != 0 && kd.PSW&0160000 != 0 {
			panic(trap{TrapIllegal})
		}
		return endHalt
	case 1: // WAIT
	case 2:
		kd.RTI()
	case 3:
		panic(trap{TrapBPT})
	case 4:
		panic(trap{TrapIOT})
	case 5:
		if kd.currentmode() == 0 {
			kd.bus.Reset()
		}
	case 6:
		kd.RTI()
		return endRTT
	default:
		panic(trap{TrapIllegal})
	}
	return endInst
}

// double operand

func (kd *KD11) MOV(byte bool) {
	src := kd.readSrc(byte)
	if byte && kd.IR&070 == 0 {
		// MOVB to a register sign extends
		src = uint16(int8(src))
		byte = false
	}
	kd.setNZVC(src, byte, false, kd.c())
	kd.writeDst(src, byte)
}

func (kd *KD11) CMP(byte bool) {
	src := kd.readSrc(byte)
	dst := kd.readDst(byte)
	kd.setNZVC(src-dst, byte, subV(src, dst, byte), subC(src, dst, byte))
}

func (kd *KD11) BIT(byte bool) {
	src := kd.readSrc(byte)
	dst := kd.readDst(byte)
	kd.setNZVC(src&dst, byte, false, kd.c())
}

func (kd *KD11) BIC(byte bool) {
	src := kd.readSrc(byte)
	dst := kd.readDst(byte)
	result := dst &^ src
	kd.setNZVC(result, byte, false, kd.c())
	kd.writeDst(result, byte)
}

func (kd *KD11) BIS(byte bool) {
	src := kd.readSrc(byte)
	dst := kd.readDst(byte)
	result := dst | src
	kd.setNZVC(result, byte, false, kd.c())
	kd.writeDst(result, byte)
}

func (kd *KD11) ADD() {
	src := kd.readSrc(false)
	dst := kd.readDst(false)
	sum := dst + src
	kd.setNZVC(sum, false, addV(dst, src, false), addC(dst, src, false))
	kd.writeDst(sum, false)
}

func (kd *KD11) SUB() {
	src := kd.readSrc(false)
	dst := kd.readDst(false)
	diff := dst - src
	kd.setNZVC(diff, false, subV(dst, src, false), subC(dst, src, false))
	kd.writeDst(diff, false)
}

// single operand

func (kd *KD11) CLR(byte bool) {
	kd.setNZVC(0, byte, false, false)
	kd.writeDst(0, byte)
}

func (kd *KD11) COM(byte bool) {
	result := ^kd.readDst(byte)
	kd.setNZVC(result, byte, false, true)
	kd.writeDst(result, byte)
}

func (kd *KD11) INC(byte bool) {
	dst := kd.readDst(byte)
	result := dst + 1
	kd.setNZVC(result, byte, addV(dst, 1, byte), kd.c())
	kd.writeDst(result, byte)
}

func (kd *KD11) DEC(byte bool) {
	dst := kd.readDst(byte)
	result := dst - 1
	kd.setNZVC(result, byte, subV(dst, 1, byte), kd.c())
	kd.writeDst(result, byte)
}

func (kd *KD11) NEG(byte bool) {
	dst := kd.readDst(byte)
	result := -dst
	kd.setNZVC(result, byte, subV(0, dst, byte), subC(0, dst, byte))
	kd.writeDst(result, byte)
}

func (kd *KD11) ADC(byte bool) {
	dst := kd.readDst(byte)
	cin := kd.PSW & FLAGC
	result := dst + cin
	kd.setNZVC(result, byte, addV(dst, cin, byte), addC(dst, cin, byte))
	kd.writeDst(result, byte)
}

func (kd *KD11) SBC(byte bool) {
	dst := kd.readDst(byte)
	cin := kd.PSW & FLAGC
	result := dst - cin
	kd.setNZVC(result, byte, subV(dst, cin, byte), subC(dst, cin, byte))
	kd.writeDst(result, byte)
}

func (kd *KD11) TST(byte bool) {
	kd.setNZVC(kd.readDst(byte), byte, false, false)
}

func (kd *KD11) ROR(byte bool) {
	dst := kd.readDst(byte)
	cin := kd.PSW & FLAGC
	var result uint16
	if byte {
		result = (dst&0377)>>1 | cin<<7
	} else {
		result = dst>>1 | cin<<15
	}
	kd.setNZVC(result, byte, asrV(dst, result, byte), dst&1 != 0)
	kd.writeDst(result, byte)
}

func (kd *KD11) ROL(byte bool) {
	dst := kd.readDst(byte)
	result := dst<<1 | kd.PSW&FLAGC
	kd.setNZVC(result, byte, aslV(dst, result, byte), dst&signBit(byte) != 0)
	kd.writeDst(result, byte)
}

func (kd *KD11) ASR(byte bool) {
	dst := kd.readDst(byte)
	var result uint16
	if byte {
		result = uint16(int8(dst) >> 1)
	} else {
		result = uint16(int16(dst) >> 1)
	}
	kd.setNZVC(result, byte, asrV(dst, result, byte), dst&1 != 0)
	kd.writeDst(result, byte)
}

func (kd *KD11) ASL(byte bool) {
	dst := kd.readDst(byte)
	result := dst << 1
	kd.setNZVC(result, byte, aslV(dst, result, byte), dst&signBit(byte) != 0)
	kd.writeDst(result, byte)
}

func (kd *KD11) SWAB() {
	dst := kd.readDst(false)
	result := dst<<8 | dst>>8
	kd.setNZVC(result, true, false, false)
	kd.writeDst(result, false)
}

func (kd *KD11) SXT() {
	var result uint16
	if kd.n() {
		result = 0177777
	}
	kd.setNZVC(result, false, false, kd.c())
	kd.writeDst(result, false)
}

func (kd *KD11) MFPS() {
	result := uint16(int8(kd.PSW))
	kd.setNZVC(result, true, false, kd.c())
	// a register gets the sign extended word
	kd.writeDst(result, kd.IR&070 != 0)
}

func (kd *KD11) MTPS() {
	src := kd.readDst(true)
	if kd.currentmode() == 0 {
		kd.PSW = kd.PSW&^0340 | src&0340
	}
	kd.PSW = kd.PSW&^017 | src&017
}

// program control

func (kd *KD11) JMP() {
	if kd.IR&070 == 0 {
		panic(trap{TrapBus})
	}
	kd.R[7] = kd.opaddr(kd.IR, false)
}

func (kd *KD11) JSR() {
	if kd.IR&070 == 0 {
		panic(trap{TrapBus})
	}
	dst := kd.opaddr(kd.IR, false)
	mode := kd.currentmode()
	kd.yellowstkck = true
	sp := kd.gprx(6, mode)
	r := kd.gprx(kd.IR>>6, mode)
	kd.R[sp] -= 2
	kd.writeWord(kd.R[sp], kd.R[r], mode)
	kd.R[r] = kd.R[7]
	kd.R[7] = dst
}

func (kd *KD11) RTS() {
	mode := kd.currentmode()
	sp := kd.gprx(6, mode)
	r := kd.gprx(kd.IR, mode)
	kd.R[7] = kd.R[r]
	kd.R[r] = kd.pop(sp, mode)
}

func (kd *KD11) MARK() {
	mode := kd.currentmode()
	sp := kd.gprx(6, mode)
	kd.R[sp] = kd.R[7] + 2*(kd.IR&077)
	kd.R[7] = kd.R[5]
	kd.R[5] = kd.pop(sp, mode)
}

func (kd *KD11) SOB() {
	r := kd.gprx(kd.IR>>6, kd.currentmode())
	kd.R[r]--
	if kd.R[r] != 0 {
		kd.R[7] -= 2 * (kd.IR & 077)
	}
}

// RTI also serves RTT. Only kernel mode may change the mode and
// priority bits.
func (kd *KD11) RTI() {
	mode := kd.currentmode()
	sp := kd.gprx(6, mode)
	pc := kd.pop(sp, mode)
	ps := kd.pop(sp, mode)
	kd.R[7] = pc
	if mode != 0 {
		kd.PSW = kd.PSW&0170340 | ps&037
	} else {
		kd.PSW = ps & 0170377
	}
}

func (kd *KD11) CCS() {
	set := kd.IR&020 != 0
	for _, bit := range []uint16{FLAGN, FLAGZ, FLAGV, FLAGC} {
		if kd.IR&bit == 0 {
			continue
		}
		if set {
			kd.PSW |= bit
		} else {
			kd.PSW &^= bit
		}
	}
}

// MFPI pushes a word from the previous address space.
func (kd *KD11) MFPI() {
	mode := kd.currentmode()
	prev := kd.previousmode()
	var src uint16
	if kd.IR&070 == 0 {
		src = kd.R[kd.gprx(kd.IR, prev)]
	} else {
		src = kd.readWord(kd.opaddr(kd.IR, false), prev)
	}
	sp := kd.gprx(6, mode)
	kd.yellowstkck = true
	kd.R[sp] -= 2
	kd.setNZVC(src, false, false, kd.c())
	kd.writeWord(kd.R[sp], src, mode)
}

// MTPI pops a word into the previous address space.
func (kd *KD11) MTPI() {
	mode := kd.currentmode()
	prev := kd.previousmode()
	src := kd.pop(kd.gprx(6, mode), mode)
	if kd.IR&070 == 0 {
		kd.R[kd.gprx(kd.IR, prev)] = src
		kd.setNZVC(src, false, false, kd.c())
		return
	}
	addr := kd.opaddr(kd.IR, false)
	kd.setNZVC(src, false, false, kd.c())
	kd.writeWord(addr, src, prev)
}

// extended instruction set

func (kd *KD11) MUL() {
	src := int16(kd.readDst(false))
	r := kd.gprx(kd.IR>>6, kd.currentmode())
	prod := int32(int16(kd.R[r])) * int32(src)
	kd.R[r] = uint16(prod >> 16)
	kd.R[r|1] = uint16(prod)
	kd.setFlags(prod < 0, prod == 0, false, prod != int32(int16(prod)))
}

func (kd *KD11) DIV() {
	src := int32(int16(kd.readDst(false)))
	r := kd.gprx(kd.IR>>6, kd.currentmode())
	if src == 0 {
		kd.setFlags(false, true, true, true)
		return
	}
	dividend := int32(uint32(kd.R[r])<<16 | uint32(kd.R[r|1]))
	quot := dividend / src
	rem := dividend % src
	if quot != int32(int16(quot)) {
		// registers are left alone on overflow
		kd.setFlags(quot < 0, false, true, false)
		return
	}
	kd.R[r] = uint16(quot)
	kd.R[r|1] = uint16(rem)
	kd.setFlags(quot < 0, quot == 0, false, false)
}

func (kd *KD11) ASH() {
	shift := kd.readDst(false) & 077
	r := kd.gprx(kd.IR>>6, kd.currentmode())
	val := int16(kd.R[r])
	v, c := false, kd.c()
	if shift&040 != 0 {
		for n := 0100 - shift; n > 0; n-- {
			c = val&1 != 0
			val >>= 1
		}
	} else {
		for n := shift; n > 0; n-- {
			c = val < 0
			v = v || (val^val<<1) < 0
			val <<= 1
		}
	}
	kd.R[r] = uint16(val)
	kd.setNZVC(uint16(val), false, v, c)
}

func (kd *KD11) ASHC() {
	shift := kd.readDst(false) & 077
	r := kd.gprx(kd.IR>>6, kd.currentmode())
	val := int32(uint32(kd.R[r])<<16 | uint32(kd.R[r|1]))
	v, c := false, kd.c()
	if shift&040 != 0 {
		for n := 0100 - shift; n > 0; n-- {
			c = val&1 != 0
			val >>= 1
		}
	} else {
		for n := shift; n > 0; n-- {
			c = val < 0
			v = v || (val^val<<1) < 0
			val <<= 1
		}
	}
	kd.R[r] = uint16(val >> 16)
	kd.R[r|1] = uint16(val)
	kd.setFlags(val < 0, val == 0, v, c)
}

func (kd *KD11) XOR() {
	src := kd.R[kd.gprx(kd.IR>>6, kd.currentmode())]
	result := kd.readDst(false) ^ src
	kd.setNZVC(result, false, false, kd.c())
	kd.writeDst(result, false)
}
