package cpu

import (
	"fmt"
	"strings"
)

var (
	rs = [...]string{"R0", "R1", "R2", "R3", "R4", "R5", "SP", "PC"}
)

const (
	DD = 1 << 1 // destination in bits 5:0
	S  = 1 << 2 // source in bits 11:6
	RR = 1 << 3 // register in bits 8:6, or 2:0 alone
	O  = 1 << 4 // branch offset
	N  = 1 << 5 // number in the low bits
	CC = 1 << 6 // condition code operate
)

type D struct {
	mask uint16
	ins  uint16
	msg  string
	flag uint8
	b    bool
}

var (
	disamtable = [...]D{
		{0177777, 0000000, "HALT", 0, false},
		{0177777, 0000001, "WAIT", 0, false},
		{0177777, 0000002, "RTI", 0, false},
		{0177777, 0000003, "BPT", 0, false},
		{0177777, 0000004, "IOT", 0, false},
		{0177777, 0000005, "RESET", 0, false},
		{0177777, 0000006, "RTT", 0, false},

		{0177700, 0000100, "JMP", DD, false},
		{0177770, 0000200, "RTS", RR, false},
		{0177740, 0000240, "", CC, false},
		{0177700, 0000300, "SWAB", DD, false},

		{0177700, 0006400, "MARK", N, false},
		{0177700, 0006500, "MFPI", DD, false},
		{0177700, 0006600, "MTPI", DD, false},
		{0177700, 0006700, "SXT", DD, false},
		{0177700, 0106400, "MTPS", DD, false},
		{0177700, 0106500, "MFPD", DD, false},
		{0177700, 0106600, "MTPD", DD, false},
		{0177700, 0106700, "MFPS", DD, false},

		{0177400, 0104000, "EMT", N, false},
		{0177400, 0104400, "TRAP", N, false},
		{0177400, 0100000, "BPL", O, false},
		{0177400, 0100400, "BMI", O, false},
		{0177400, 0101000, "BHI", O, false},
		{0177400, 0101400, "BLOS", O, false},
		{0177400, 0102000, "BVC", O, false},
		{0177400, 0102400, "BVS", O, false},
		{0177400, 0103000, "BCC", O, false},
		{0177400, 0103400, "BCS", O, false},
		{0177400, 0000400, "BR", O, false},
		{0177400, 0001000, "BNE", O, false},
		{0177400, 0001400, "BEQ", O, false},
		{0177400, 0002000, "BGE", O, false},
		{0177400, 0002400, "BLT", O, false},
		{0177400, 0003000, "BGT", O, false},
		{0177400, 0003400, "BLE", O, false},

		{0177000, 0004000, "JSR", RR | DD, false},
		{0177000, 0070000, "MUL", RR | DD, false},
		{0177000, 0071000, "DIV", RR | DD, false},
		{0177000, 0072000, "ASH", RR | DD, false},
		{0177000, 0073000, "ASHC", RR | DD, false},
		{0177000, 0074000, "XOR", RR | DD, false},
		{0177000, 0077000, "SOB", RR | O, false},
		{0170000, 0060000, "ADD", S | DD, false},
		{0170000, 0160000, "SUB", S | DD, false},

		{0077700, 0005000, "CLR", DD, true},
		{0077700, 0005100, "COM", DD, true},
		{0077700, 0005200, "INC", DD, true},
		{0077700, 0005300, "DEC", DD, true},
		{0077700, 0005400, "NEG", DD, true},
		{0077700, 0005500, "ADC", DD, true},
		{0077700, 0005600, "SBC", DD, true},
		{0077700, 0005700, "TST", DD, true},
		{0077700, 0006000, "ROR", DD, true},
		{0077700, 0006100, "ROL", DD, true},
		{0077700, 0006200, "ASR", DD, true},
		{0077700, 0006300, "ASL", DD, true},

		{0070000, 0010000, "MOV", S | DD, true},
		{0070000, 0020000, "CMP", S | DD, true},
		{0070000, 0030000, "BIT", S | DD, true},
		{0070000, 0040000, "BIC", S | DD, true},
		{0070000, 0050000, "BIS", S | DD, true},
	}
)

// operand formats one operand, taking its index word from ops if it
// needs one, and returns the unused ops.
func operand(sb *strings.Builder, m uint16, ops []uint16) []uint16 {
	switch m {
	case 027:
		fmt.Fprintf(sb, "$%06o", ops[0])
		return ops[1:]
	case 037:
		fmt.Fprintf(sb, "*$%06o", ops[0])
		return ops[1:]
	}

	r := rs[m&7]
	switch m & 070 {
	case 000:
		sb.WriteString(r)
	case 010:
		fmt.Fprintf(sb, "(%s)", r)
	case 020:
		fmt.Fprintf(sb, "(%s)+", r)
	case 030:
		fmt.Fprintf(sb, "*(%s)+", r)
	case 040:
		fmt.Fprintf(sb, "-(%s)", r)
	case 050:
		fmt.Fprintf(sb, "*-(%s)", r)
	case 060:
		fmt.Fprintf(sb, "%06o(%s)", ops[0], r)
		return ops[1:]
	case 070:
		fmt.Fprintf(sb, "*%06o(%s)", ops[0], r)
		return ops[1:]
	}
	return ops
}

func ccs(ins uint16) string {
	prefix := "CL"
	if ins&020 != 0 {
		prefix = "SE"
	}
	var names []string
	for i, f := range "NZVC" {
		if ins&(010>>uint(i)) != 0 {
			names = append(names, prefix+string(f))
		}
	}
	if len(names) == 0 {
		return "NOP"
	}
	return strings.Join(names, " ")
}

// Disassemble returns the text of instruction ins, taking index words
// from op1 and op2, and the number of words the instruction occupies.
// An illegal instruction returns zero words.
func Disassemble(ins, op1, op2 uint16) (string, int) {
	var l D
	found := false
	for _, l = range disamtable {
		if ins&l.mask == l.ins {
			found = true
			break
		}
	}
	if !found {
		return "???", 0
	}
	if l.flag == CC {
		return ccs(ins), 1
	}

	ops := []uint16{op1, op2}
	var sb strings.Builder
	sb.WriteString(l.msg)
	if l.b && ins&0100000 > 0 {
		sb.WriteString("B")
	}
	s := (ins & 07700) >> 6
	d := ins & 077
	o := ins & 0377
	switch l.flag {
	case S | DD:
		sb.WriteString(" ")
		ops = operand(&sb, s, ops)
		sb.WriteString(",")
		fallthrough
	case DD:
		sb.WriteString(" ")
		ops = operand(&sb, d, ops)
	case RR | O:
		fmt.Fprintf(&sb, " %s, -%03o", rs[(ins&0700)>>6], 2*(o&077))
	case O:
		if o&0x80 > 0 {
			fmt.Fprintf(&sb, " -%03o", 2*((0xFF^o)+1))
		} else {
			fmt.Fprintf(&sb, " +%03o", 2*o)
		}
	case RR | DD:
		fmt.Fprintf(&sb, " %s, ", rs[(ins&0700)>>6])
		ops = operand(&sb, d, ops)
	case RR:
		fmt.Fprintf(&sb, " %s", rs[ins&7])
	case N:
		if l.ins == 0006400 {
			fmt.Fprintf(&sb, " %02o", ins&077)
		} else {
			fmt.Fprintf(&sb, " %03o", ins&0377)
		}
	}
	return sb.String(), 3 - len(ops)
}
