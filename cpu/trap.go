package cpu

import "fmt"

// Trap vectors.
const (
	TrapBus     = 0004 // odd address, bus timeout, bad psw mode, yellow stack
	TrapIllegal = 0010 // illegal or reserved instruction
	TrapBPT     = 0014 // BPT and trace bit
	TrapIOT     = 0020
	TrapEMT     = 0030
	TrapTRAP    = 0034
	TrapMMU     = 0250 // memory management abort
)

// trap is raised with panic while a step executes and is recovered
// before the step returns.
type trap struct {
	vec uint16
}

func (t trap) String() string {
	return fmt.Sprintf("trap: %03o", t.vec)
}

// catch runs fn and returns the trap it raised, if any. Any other panic
// is passed on.
func catch(fn func()) (t trap, trapped bool) {
	defer func() {
		if r := recover(); r != nil {
			tr, ok := r.(trap)
			if !ok {
				panic(r)
			}
			t, trapped = tr, true
		}
	}()
	fn()
	return t, false
}
