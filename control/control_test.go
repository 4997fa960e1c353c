package control

import (
	"bytes"
	"errors"
	"io/ioutil"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sirupsen/logrus"

	"github.com/davecheney/pdp1134/machine"
)

func newMachine(t *testing.T) (*machine.Machine, *Controller) {
	t.Helper()
	is := is.New(t)
	log := logrus.New()
	log.Out = ioutil.Discard
	m, err := machine.New(machine.Config{Ticks: make(chan time.Time)}, log)
	is.NoErr(err)
	t.Cleanup(func() { m.Close() })
	c, err := New(m)
	is.NoErr(err)
	is.NoErr(c.EnableMemory(1))
	return m, c
}

// boot deposits prog at 01000, points the power-on vector at it and
// powers up halted.
func boot(t *testing.T, c *Controller, prog ...uint16) {
	t.Helper()
	is := is.New(t)
	for i, w := range prog {
		is.NoErr(c.Deposit(01000+uint32(2*i), w))
	}
	is.NoErr(c.Deposit(024, 01000))
	is.NoErr(c.Deposit(026, 0340))
	is.NoErr(c.Simulate())
}

func TestStepAndContinue(t *testing.T) {
	is := is.New(t)
	_, c := newMachine(t)
	boot(t, c,
		0005200, // inc r0
		0000776, // br .-2
	)

	st := c.Status()
	is.Equal(st.PC, uint16(01000))
	is.Equal(st.PSW, uint16(0340))
	is.True(st.Powered)
	is.True(st.Halted)
	is.True(!st.Jammed)
	is.Equal(st.String(), "PC=001000 PS=000340 halted")

	is.NoErr(c.StepOnce())
	is.Equal(c.Status().PC, uint16(01002))
	r0, err := c.Examine(0777700)
	is.NoErr(err)
	is.Equal(r0, uint16(1))

	is.NoErr(c.StepOnce())
	is.Equal(c.Status().PC, uint16(01000))

	c.Continue()
	for i := 0; i < 10; i++ {
		c.Status()
	}
	is.NoErr(c.Halt())
	r0, err = c.Examine(0777700)
	is.NoErr(err)
	is.True(r0 > 2)
}

func TestHaltJamsUntilReset(t *testing.T) {
	is := is.New(t)
	_, c := newMachine(t)
	boot(t, c,
		0005200, // inc r0
		0000000, // halt
	)

	c.Continue()
	c.Status()
	st := c.Status()
	is.True(st.Jammed)
	is.True(st.Halted)
	is.Equal(st.PC, uint16(01004))
	is.Equal(st.String(), "PC=001004 PS=000340 jammed")

	is.NoErr(c.Reset())
	st = c.Status()
	is.True(!st.Jammed)
	is.Equal(st.PC, uint16(01000))
}

func TestExamineDeposit(t *testing.T) {
	is := is.New(t)
	_, c := newMachine(t)

	is.NoErr(c.Deposit(02000, 0123456))
	w, err := c.Examine(02000)
	is.NoErr(err)
	is.Equal(w, uint16(0123456))

	is.NoErr(c.DepositByte(02003, 0xAB))
	w, err = c.Examine(02002)
	is.NoErr(err)
	is.Equal(w, uint16(0xAB00))

	_, err = c.Examine(010000) // second block not enabled
	is.True(errors.Is(err, ErrTimeout))
	err = c.Deposit(0770000, 1)
	is.True(errors.Is(err, ErrTimeout))
}

func TestLoad(t *testing.T) {
	is := is.New(t)
	_, c := newMachine(t)

	is.NoErr(c.Load(bytes.NewReader([]byte{1, 2, 3}), 03000))
	w, _ := c.Examine(03000)
	is.Equal(w, uint16(0x0201))
	w, _ = c.Examine(03002)
	is.Equal(w, uint16(0x0003))

	err := c.Load(bytes.NewReader([]byte{1, 2}), 020000)
	is.True(errors.Is(err, ErrTimeout))
}

func TestLock(t *testing.T) {
	is := is.New(t)
	_, c := newMachine(t)

	is.NoErr(c.Lock(7))
	is.True(errors.Is(c.Lock(8), ErrLocked))
	c.Unlock(8)
	is.True(errors.Is(c.Lock(8), ErrLocked))
	c.Unlock(7)
	is.NoErr(c.Lock(8))
}

func TestEnable(t *testing.T) {
	is := is.New(t)
	m, c := newMachine(t)

	is.Equal(m.DL11.AxiRead(3)>>31, uint32(0))
	is.NoErr(c.Enable("DL"))
	is.Equal(m.DL11.AxiRead(3)>>31, uint32(1))
	is.NoErr(c.Enable("RL"))
	is.Equal(m.RL11.AxiRead(5)>>31, uint32(1))
	is.True(c.Enable("BM") != nil)
}

func TestTeletype(t *testing.T) {
	is := is.New(t)
	m, c := newMachine(t)
	is.NoErr(c.Enable("DL"))
	boot(t, c,
		0012737, 'H', 0177566, // mov #'H, @#xbuf
		0105737, 0177564, // tstb @#xcsr
		0100375,               // bpl .-4
		0012737, 'I', 0177566, // mov #'I, @#xbuf
		0105737, 0177564, // tstb @#xcsr
		0100375, // bpl .-4
		0000000, // halt
	)

	var out bytes.Buffer
	tty, err := NewTeletype(m, &out)
	is.NoErr(err)
	c.Continue()
	for i := 0; i < 1000 && !c.Status().Jammed; i++ {
		_, err := tty.Poll()
		is.NoErr(err)
	}
	is.True(c.Status().Jammed)
	is.Equal(out.String(), "HI")
}

func TestTeletypeReceive(t *testing.T) {
	is := is.New(t)
	m, c := newMachine(t)
	is.NoErr(c.Enable("DL"))
	boot(t, c,
		0105737, 0177560, // tstb @#rcsr
		0100375,          // bpl .-4
		0013700, 0177562, // mov @#rbuf, r0
		0000000, // halt
	)

	tty, err := NewTeletype(m, ioutil.Discard)
	is.NoErr(err)
	tty.Type('z')
	c.Continue()
	for i := 0; i < 1000 && !c.Status().Jammed; i++ {
		_, err := tty.Poll()
		is.NoErr(err)
	}
	r0, err := c.Examine(0777700)
	is.NoErr(err)
	is.Equal(r0, uint16('z'))
}
