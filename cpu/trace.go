package cpu

import (
	"fmt"

	"github.com/davecheney/pdp1134/unibus"
)

// Peek reads the word at virtual address va in the current mode without
// disturbing the machine: no MMU status is updated and no device
// register with read side effects is touched.
func (kd *KD11) Peek(va uint16) (uint16, bool) {
	pa, ok := kd.mmu.peek(va&^1, kd.currentmode())
	if !ok {
		return 0, false
	}
	if pa >= unibus.IOPage && !quiet(pa) {
		return 0, false
	}
	return kd.bus.Read(pa)
}

// quiet reports whether reading the i/o page register at pa is free of
// side effects.
func quiet(pa unibus.Addr) bool {
	switch {
	case pa >= 0777700 && pa <= 0777717, // gprs
		pa >= 0772300 && pa <= 0772377, // kernel pdr/par
		pa >= 0777600 && pa <= 0777677, // user pdr/par
		pa == 0777570,                  // switches
		pa == 0777572, pa == 0777576, pa == 0777776:
		return true
	}
	return false
}

func (kd *KD11) traceInstr() {
	pc := kd.R[7]
	op1, ok := kd.Peek(pc + 2)
	if !ok {
		op1 = 0xDEAD
	}
	op2, ok := kd.Peek(pc + 4)
	if !ok {
		op2 = 0xBEEF
	}
	text, _ := Disassemble(kd.IR, op1, op2)
	fmt.Fprintf(kd.trace, "%06o.%06o %s\n", pc, kd.PSW, text)
}
