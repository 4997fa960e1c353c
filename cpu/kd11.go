// Package cpu implements the KD11, the PDP-11/34 processor, as a board
// on the simulated unibus.
package cpu

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/unibus"
)

// Control register A, axi index 1.
const (
	CtlaDCLo    = 1 << 26 // man_dc_lo_out_h, power is off while set
	ctlaNPGOutL = 1 << 21

	// fpgamode, bits 31:30
	FMOff  = 0
	FMSim  = 1
	FMReal = 2
	FMMan  = 3
)

const (
	axiID = 0x31314017 // "11"; size; version

	haltOp      = 0
	yellowStack = 0400
)

// State is what the processor did on its last step.
type State int

const (
	StateOff      State = iota + 1 // fpga not in simulate mode
	StatePowerOff                  // dc_lo asserted
	StatePowerUp                   // loaded the power-on vector
	StateHalted                    // halted by the console
	StateJammed                    // executed HALT or double faulted
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StatePowerOff:
		return "power off"
	case StatePowerUp:
		return "powering up"
	case StateHalted:
		return "halted by switches"
	case StateJammed:
		return "jammed up"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Console is the front panel as the processor sees it.
type Console interface {
	// HaltRequested reports a hard halt request.
	HaltRequested() bool

	// StepRequested reports whether the processor may execute this
	// cycle. A single step request is consumed by the call.
	StepRequested() bool
}

// KD11 is a PDP-11/34 processor.
type KD11 struct {
	bus     *unibus.Bus
	log     logrus.Ext1FieldLogger
	console Console
	trace   io.Writer

	// R0-R5, kernel SP in 6, PC in 7, user SP in 016.
	// Use gprx to pick the stack pointer for a mode.
	R   [16]uint16
	PSW uint16
	IR  uint16 // instruction register; HALT here means jammed
	mmu KT11

	lastpoweron bool
	state       State

	// operand state for the instruction being executed
	dstaddr     uint16
	havedstaddr bool
	yellowstkck bool

	ctla, ctlb uint32
	ctli       uint32 // steps since power up
}

// New plugs a processor into bus.
func New(bus *unibus.Bus, log logrus.Ext1FieldLogger) *KD11 {
	if log == nil {
		log = logrus.StandardLogger()
	}
	kd := &KD11{
		bus:  bus,
		log:  log.WithField("dev", "kd11"),
		ctla: FMOff<<30 | ctlaNPGOutL,
		ctlb: 15 << 24, // man_bg_out_l
	}

	var addrs []unibus.Addr
	for i := unibus.Addr(0); i < 8; i++ {
		addrs = append(addrs,
			0777700+2*i, // gprs
			0772300+2*i, // kernel pdrs
			0772340+2*i, // kernel pars
			0777600+2*i, // user pdrs
			0777640+2*i, // user pars
		)
	}
	addrs = append(addrs, 0777572, 0777576, 0777776) // mmr0, mmr2, psw
	bus.Claim(kd, addrs...)
	bus.Attach(kd)
	return kd
}

// AttachConsole connects the front panel that can halt and single step
// the processor.
func (kd *KD11) AttachConsole(c Console) { kd.console = c }

// SetTrace makes the processor write a line to w for every instruction
// and trap. A nil w turns tracing off.
func (kd *KD11) SetTrace(w io.Writer) { kd.trace = w }

// State returns what the processor did on its last step.
func (kd *KD11) State() State { return kd.state }

// Jammed reports whether the processor is stopped on a HALT, or never
// powered up, and needs a power cycle to continue.
func (kd *KD11) Jammed() bool {
	if !kd.lastpoweron {
		return true
	}
	if kd.IR != haltOp {
		return false
	}
	if kd.mmu.SR0&sr0Enable != 0 && kd.PSW&0140000 != 0 {
		return false
	}
	return true
}

// Step advances the processor by one interrupt or instruction, or
// handles a power transition.
func (kd *KD11) Step() {
	if (kd.ctla>>30)&3 != FMSim {
		kd.enter(StateOff)
		kd.lastpoweron = false
		return
	}

	if kd.ctla&CtlaDCLo != 0 {
		kd.enter(StatePowerOff)
		if kd.lastpoweron {
			kd.bus.Reset()
		}
		kd.lastpoweron = false
		return
	}

	if !kd.lastpoweron {
		kd.enter(StatePowerUp)
		kd.powerUp()
		return
	}

	if kd.console != nil && !kd.console.StepRequested() {
		kd.enter(StateHalted)
		return
	}

	// HALT or double fault; only dc_lo gets us out
	if kd.Jammed() {
		kd.enter(StateJammed)
		return
	}

	kd.enter(StateRunning)
	kd.ctli++

	if t, trapped := catch(kd.cycle); trapped {
		kd.service(t)
	}
}

func (kd *KD11) enter(s State) {
	if kd.state == s {
		return
	}
	kd.state = s
	kd.log.WithFields(logrus.Fields{
		"pc": fmt.Sprintf("%06o", kd.R[7]),
		"ps": fmt.Sprintf("%06o", kd.PSW),
	}).Debug(s.String())
}

func (kd *KD11) powerUp() {
	kd.bus.Reset()
	kd.IR = haltOp
	kd.lastpoweron = true
	kd.mmu.SR0 = 0
	kd.PSW = 0
	kd.ctli = 1

	t, trapped := catch(func() {
		kd.R[7] = kd.readPhys(024)
		kd.PSW = kd.readPhys(026)
		kd.IR = ^uint16(haltOp)
	})
	if trapped {
		kd.log.Errorf("trap %03o reading power-on vector", t.vec)
		return
	}
	kd.log.Debugf("powered up to PC=%06o PS=%06o", kd.R[7], kd.PSW)
}

// service delivers trap t. A trap while doing so is a double fault and
// jams the processor.
func (kd *KD11) service(t trap) {
	t2, trapped := catch(func() {
		vec := t.vec
		for {
			if vec&3 != 0 {
				panic(trap{TrapBus})
			}
			newpc := kd.readPhys(unibus.Addr(vec))
			newps := kd.readPhys(unibus.Addr(vec | 2))
			if kd.trace != nil {
				fmt.Fprintf(kd.trace, "%06o.%06o trap %03o %06o %06o\n", kd.R[7], kd.PSW, vec, newpc, newps)
			}
			kd.log.Tracef("trap %03o to PC=%06o PS=%06o", vec, newpc, newps)

			sp := kd.gprx(6, newps>>14)
			kd.R[sp] -= 2
			kd.writeWord(kd.R[sp], kd.PSW, newps>>14)
			kd.R[sp] -= 2
			kd.writeWord(kd.R[sp], kd.R[7], newps>>14)

			kd.R[7] = newpc
			kd.PSW = newps&0140377 | (kd.PSW>>2)&0030000

			if vec == TrapBus || kd.PSW&0140000 != 0 || kd.R[6] >= yellowStack {
				return
			}
			// pushed into the yellow zone of the kernel stack
			vec = TrapBus
		}
	})
	if trapped {
		kd.log.Errorf("trap %03o got double fault %03o", t.vec, t2.vec)
		kd.IR = haltOp
	}
}

// currentmode returns the current cpu mode.
// 0: kernel, 1: supervisor, 2: illegal, 3: user
func (kd *KD11) currentmode() uint16 { return kd.PSW >> 14 }

// previousmode returns the previous cpu mode.
func (kd *KD11) previousmode() uint16 { return (kd.PSW >> 12) & 3 }

// priority returns the current CPU interrupt priority.
func (kd *KD11) priority() uint16 { return (kd.PSW >> 5) & 7 }

// gprx returns the index in R of register r for mode. The 11/34 has no
// supervisor mode, so a stack pointer reference in modes 1 and 2 traps.
func (kd *KD11) gprx(r, mode uint16) uint16 {
	r &= 7
	if r == 6 {
		switch mode & 3 {
		case 0:
		case 3:
			r = 016
		default:
			panic(trap{TrapBus})
		}
	}
	return r
}

// SP returns the stack pointer of the current mode.
func (kd *KD11) SP() uint16 {
	if kd.currentmode() == 3 {
		return kd.R[016]
	}
	return kd.R[6]
}

const (
	FLAGC = 1
	FLAGV = 2
	FLAGZ = 4
	FLAGN = 8
)

func (kd *KD11) n() bool { return kd.PSW&FLAGN > 0 }
func (kd *KD11) z() bool { return kd.PSW&FLAGZ > 0 }
func (kd *KD11) v() bool { return kd.PSW&FLAGV > 0 }
func (kd *KD11) c() bool { return kd.PSW&FLAGC > 0 }

// AxiRead reads the processor's control registers.
func (kd *KD11) AxiRead(index uint32) uint32 {
	switch index {
	case 0:
		return axiID
	case 1:
		return kd.ctla
	case 2:
		return kd.ctlb
	case 4:
		halt := kd.Jammed() || (kd.console != nil && kd.console.HaltRequested())
		return b2u(halt) << 28 // dev_hltgr_l
	case 9:
		return kd.ctli
	case 10:
		return uint32(kd.PSW)<<16 | uint32(kd.R[7])
	case 11:
		return b2u(kd.lastpoweron)<<1 | b2u(kd.Jammed())
	case 3, 5, 6, 7, 8, 28, 29, 30, 31:
		return 0
	}
	return axi.Unassigned
}

// AxiWrite writes the processor's control registers.
func (kd *KD11) AxiWrite(index, data uint32) {
	switch index {
	case 1:
		kd.ctla = data
	case 2:
		kd.ctlb = data
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
