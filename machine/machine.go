// Package machine wires the simulated PDP-11/34 together and gives the
// host access to it through the axi register page.
package machine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/cpu"
	"github.com/davecheney/pdp1134/devices"
	"github.com/davecheney/pdp1134/unibus"
)

// Config is the optional wiring of a Machine.
type Config struct {
	// Ticks drives the line clock. If nil a 60Hz ticker is used.
	Ticks <-chan time.Time

	// Trace receives a line per instruction and trap.
	Trace io.Writer
}

// Machine is a PDP-11/34 with memory, console line, line clock, front
// panel and disk controller. All methods are safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	log   logrus.Ext1FieldLogger
	page  *axi.Page
	chain Chain

	ticker *time.Ticker

	Bus  *unibus.Bus
	CPU  *cpu.KD11
	Mem  *devices.BigMem
	DL11 *devices.DL11
	KL11 *devices.KL11
	KY11 *devices.KY11
	RL11 *devices.RL11
}

// New builds a machine. The boards are registered in the order memory,
// processor, console line, clock, front panel, disk, which fixes their
// places on the register page.
func New(cfg Config, log logrus.Ext1FieldLogger) (*Machine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Machine{
		log: log,
		Bus: unibus.New(),
	}

	ticks := cfg.Ticks
	if ticks == nil {
		m.ticker = time.NewTicker(time.Second / 60)
		ticks = m.ticker.C
	}

	m.Mem = devices.NewBigMem(m.Bus)
	m.CPU = cpu.New(m.Bus, log)
	m.DL11 = devices.NewDL11(m.Bus)
	m.KL11 = devices.NewKL11(m.Bus, ticks)
	m.KY11 = devices.NewKY11(m.Bus, m.CPU)
	m.RL11 = devices.NewRL11(m.Bus)
	m.CPU.AttachConsole(m.KY11)
	if cfg.Trace != nil {
		m.CPU.SetTrace(cfg.Trace)
	}

	var b axi.Builder
	for _, d := range []axi.Device{m.Mem, m.CPU, m.DL11, m.KL11, m.KY11, m.RL11} {
		b.Add(d)
	}
	page, err := b.Build()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("machine: %w", err)
	}
	m.page = page

	m.chain.Add(m.CPU)

	axi.Walk(page, func(base, id uint32) bool {
		log.WithField("base", base).Debugf("board %s %08X", axi.ID(id), id)
		return true
	})
	return m, nil
}

// Read reads a register on the axi page, then lets the machine step.
func (m *Machine) Read(index uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.page.Read(index)
	m.chain.Step()
	return v
}

// Write writes a register on the axi page, then lets the machine step.
func (m *Machine) Write(index, data uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page.Write(index, data)
	m.chain.Step()
}

// Step steps every board once.
func (m *Machine) Step() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chain.Step()
}

// Run steps the machine until ctx is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	const batch = 256
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m.mu.Lock()
		for i := 0; i < batch; i++ {
			m.chain.Step()
		}
		m.mu.Unlock()
	}
}

// Close stops the default line clock.
func (m *Machine) Close() error {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	return nil
}
