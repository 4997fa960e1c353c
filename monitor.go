package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/control"
	"github.com/davecheney/pdp1134/cpu"
)

// monitor runs front panel commands against a machine.
type monitor struct {
	out  io.Writer
	port axi.Port
	ctl  *control.Controller
}

var commands = map[string]string{
	"cont":  "cont                  continue from a halt",
	"dep":   "dep ADDR WORD...      deposit octal words",
	"devs":  "devs                  list the boards on the register page",
	"ex":    "ex ADDR [N]           examine N octal words",
	"halt":  "halt                  halt the processor",
	"help":  "help                  this text",
	"quit":  "quit                  leave the monitor",
	"rd":    "rd INDEX              read a register page slot",
	"regs":  "regs                  show the processor registers",
	"reset": "reset                 power cycle, halting at the power-on vector",
	"step":  "step [N]              execute N instructions",
	"wr":    "wr INDEX VALUE        write a register page slot",
}

func completeCommand(line string) []string {
	var c []string
	for name := range commands {
		if strings.HasPrefix(name, line) {
			c = append(c, name)
		}
	}
	sort.Strings(c)
	return c
}

// exec runs one command line and reports whether the monitor should exit.
func (m *monitor) exec(line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		var names []string
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(m.out, commands[name])
		}
	case "devs":
		axi.Walk(m.port, func(base, id uint32) bool {
			fmt.Fprintf(m.out, "%4d %s %08X\n", base, axi.ID(id), id)
			return true
		})
	case "rd":
		if len(args) != 1 {
			return false, usage(cmd)
		}
		idx, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(m.out, "%4d: %08X\n", idx, m.port.Read(uint32(idx)))
	case "wr":
		if len(args) != 2 {
			return false, usage(cmd)
		}
		idx, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return false, err
		}
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return false, err
		}
		m.port.Write(uint32(idx), uint32(v))
	case "ex":
		if len(args) < 1 || len(args) > 2 {
			return false, usage(cmd)
		}
		addr, err := strconv.ParseUint(args[0], 8, 18)
		if err != nil {
			return false, err
		}
		n := uint64(1)
		if len(args) == 2 {
			if n, err = strconv.ParseUint(args[1], 0, 16); err != nil {
				return false, err
			}
		}
		for i := uint64(0); i < n; i++ {
			a := uint32(addr + 2*i)
			w, err := m.ctl.Examine(a)
			if err != nil {
				return false, err
			}
			fmt.Fprintf(m.out, "%06o: %06o\n", a, w)
		}
	case "dep":
		if len(args) < 2 {
			return false, usage(cmd)
		}
		addr, err := strconv.ParseUint(args[0], 8, 18)
		if err != nil {
			return false, err
		}
		for i, s := range args[1:] {
			w, err := strconv.ParseUint(s, 8, 16)
			if err != nil {
				return false, err
			}
			if err := m.ctl.Deposit(uint32(addr)+uint32(2*i), uint16(w)); err != nil {
				return false, err
			}
		}
	case "regs":
		return false, m.regs()
	case "halt":
		if err := m.ctl.Halt(); err != nil {
			return false, err
		}
		m.where()
	case "step":
		n := uint64(1)
		if len(args) > 0 {
			var err error
			if n, err = strconv.ParseUint(args[0], 0, 32); err != nil {
				return false, err
			}
		}
		for i := uint64(0); i < n; i++ {
			if err := m.ctl.StepOnce(); err != nil {
				return false, err
			}
			m.where()
		}
	case "cont":
		m.ctl.Continue()
	case "reset":
		if err := m.ctl.Reset(); err != nil {
			return false, err
		}
		m.where()
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, nil
}

func usage(cmd string) error { return fmt.Errorf("usage: %s", commands[cmd]) }

// gprs are the unibus addresses of R0-R5, SP and PC in the current set.
const gprs = 0777700

func (m *monitor) regs() error {
	names := [...]string{"R0", "R1", "R2", "R3", "R4", "R5", "SP", "PC"}
	var sb strings.Builder
	for i, name := range names {
		w, err := m.ctl.Examine(gprs + uint32(i))
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "%s=%06o ", name, w)
	}
	fmt.Fprintln(m.out, strings.TrimSpace(sb.String()))
	fmt.Fprintln(m.out, m.ctl.Status())
	return nil
}

// where prints the processor status and the instruction at PC. Memory
// is read physically, so the disassembly is only right with the MMU off.
func (m *monitor) where() {
	st := m.ctl.Status()
	var w [3]uint16
	for i := range w {
		v, err := m.ctl.Examine(uint32(st.PC) + uint32(2*i))
		if err != nil {
			fmt.Fprintln(m.out, st)
			return
		}
		w[i] = v
	}
	text, _ := cpu.Disassemble(w[0], w[1], w[2])
	fmt.Fprintf(m.out, "%v  %s\n", st, text)
}
