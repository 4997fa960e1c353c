package devices

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/davecheney/pdp1134/unibus"
)

func TestBigMemEnable(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	m := NewBigMem(bus)

	is.Equal(m.AxiRead(0), uint32(0x424D2005))
	_, ok := bus.Read(01000)
	is.True(!ok) // starts disabled

	m.AxiWrite(1, 1) // block 0 only
	is.True(bus.Write(01000, 0123456, false))
	w, ok := bus.Read(01000)
	is.True(ok)
	is.Equal(w, uint16(0123456))
	_, ok = bus.Read(010000)
	is.True(!ok)

	m.AxiWrite(2, 0xFFFFFFFF)
	is.Equal(m.AxiRead(2), uint32(0x3FFFFFFF))
	_, ok = bus.Read(0757776)
	is.True(ok)
}

func TestBigMemHostAccess(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	m := NewBigMem(bus)

	m.AxiWrite(4, 0x12345)
	is.Equal(m.AxiRead(4), uint32(0x2345))
	m.AxiWrite(3, 3<<29|01001) // write word, address forced even
	is.Equal(m.AxiRead(3), uint32(01000))
	is.Equal(m.words[01000>>1], uint16(0x2345))

	m.AxiWrite(4, 0xAB00)
	m.AxiWrite(3, 2<<29|01000) // high byte
	is.Equal(m.words[01000>>1], uint16(0xAB45))
	m.AxiWrite(4, 0x00CD)
	m.AxiWrite(3, 1<<29|01000) // low byte
	is.Equal(m.words[01000>>1], uint16(0xABCD))

	m.AxiWrite(4, 0)
	m.AxiWrite(3, 4<<29|01000) // read
	is.Equal(m.AxiRead(4), uint32(0xABCD))
}

func TestBigMemByteWrite(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	m := NewBigMem(bus)
	m.AxiWrite(1, 1)
	is.True(bus.Write(02000, 0177777, false))
	is.True(bus.Write(02001, 0, true))
	w, _ := bus.Read(02000)
	is.Equal(w, uint16(0377))
}

func newDL11(t *testing.T) (*unibus.Bus, *DL11) {
	bus := unibus.New()
	dl := NewDL11(bus)
	dl.AxiWrite(3, 1<<31)
	bus.Reset()
	return bus, dl
}

func TestDL11Transmit(t *testing.T) {
	is := is.New(t)
	bus, dl := newDL11(t)
	is.Equal(dl.AxiRead(3), uint32(1<<31|060<<18|0777560))

	xcsr, ok := bus.Read(0777564)
	is.True(ok)
	is.Equal(xcsr, uint16(0200)) // ready after reset

	is.True(bus.Write(0777566, 0x141, false))
	xcsr, _ = bus.Read(0777564)
	is.Equal(xcsr, uint16(0))
	is.Equal(dl.AxiRead(2), uint32(0101<<16)) // host sees 'A', not ready

	dl.AxiWrite(2, 0200) // host took it
	xcsr, _ = bus.Read(0777564)
	is.Equal(xcsr, uint16(0200))
}

func TestDL11Receive(t *testing.T) {
	is := is.New(t)
	bus, dl := newDL11(t)

	dl.AxiWrite(1, 'x'<<16|0200)
	rcsr, _ := bus.Read(0777560)
	is.Equal(rcsr, uint16(0200))
	rbuf, _ := bus.Read(0777562)
	is.Equal(rbuf, uint16('x'))
	rcsr, _ = bus.Read(0777560)
	is.Equal(rcsr, uint16(0)) // reading rbuf clears done
}

func TestDL11Interrupts(t *testing.T) {
	is := is.New(t)
	bus, dl := newDL11(t)

	is.Equal(bus.Interrupt(4), uint8(0))
	is.True(bus.Write(0777564, 0100, false)) // transmitter interrupt enable
	is.Equal(bus.Interrupt(4), uint8(064))
	is.Equal(bus.Interrupt(5), uint8(0))

	is.True(bus.Write(0777560, 0100, false))
	dl.AxiWrite(1, 0200)
	is.Equal(bus.Interrupt(4), uint8(060)) // receiver first

	dl.AxiWrite(3, 0)
	_, ok := bus.Read(0777560)
	is.True(!ok)
}

func TestKL11(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	ticks := make(chan time.Time, 1)
	kl := NewKL11(bus, ticks)
	is.Equal(kl.AxiRead(0), uint32(0x4B4C0002))

	_, ok := bus.Read(0777546)
	is.True(!ok)
	kl.AxiWrite(1, 1<<31)
	bus.Reset()

	is.True(bus.Write(0777546, 0100, false))
	csr, _ := bus.Read(0777546)
	is.Equal(csr, uint16(0100))
	is.Equal(bus.Interrupt(6), uint8(0))

	ticks <- time.Now()
	is.Equal(bus.Interrupt(6), uint8(0100))
	is.Equal(bus.Interrupt(6), uint8(0)) // taken once
	csr, _ = bus.Read(0777546)
	is.Equal(csr, uint16(0300))

	is.True(bus.Write(0777546, 0, false))
	ticks <- time.Now()
	is.Equal(bus.Interrupt(6), uint8(0)) // disabled
	csr, _ = bus.Read(0777546)
	is.Equal(csr, uint16(0200))
	is.Equal(kl.AxiRead(1), uint32(1<<31))
}

type jammer bool

func (j *jammer) Jammed() bool { return bool(*j) }

func TestKY11StepRequest(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	var j jammer
	ky := NewKY11(bus, &j)

	is.True(ky.StepRequested())
	ky.AxiWrite(2, KY2HaltReq)
	is.True(ky.HaltRequested())
	is.True(!ky.StepRequested())
	is.Equal(ky.AxiRead(2), uint32(KY2HaltReq|KY2Halted))

	ky.AxiWrite(2, KY2HaltReq|KY2StepReq)
	is.True(ky.StepRequested())  // one cycle through
	is.True(!ky.StepRequested()) // then halted again
	is.True(ky.HaltRequested())

	ky.AxiWrite(2, 0)
	j = true
	is.Equal(ky.AxiRead(2), uint32(KY2Halted|KY2Jammed))
}

func TestKY11SwitchesAndLights(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	var j jammer
	ky := NewKY11(bus, &j)

	ky.AxiWrite(1, 0123456)
	_, ok := bus.Read(0777570)
	is.True(!ok)
	ky.AxiWrite(2, KY2Enable)
	sw, ok := bus.Read(0777570)
	is.True(ok)
	is.Equal(sw, uint16(0123456))

	is.True(bus.Write(0777570, 0177777, false))
	is.True(bus.Write(0777571, 0, true))
	is.Equal(ky.AxiRead(1), uint32(0377<<16|0123456))
}

func TestKY11Interrupt(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	var j jammer
	ky := NewKY11(bus, &j)

	ky.AxiWrite(2, KY2Enable|5<<14|(0140/4)<<8)
	is.Equal(bus.Interrupt(5), uint8(0140))
	is.Equal(bus.Interrupt(4), uint8(0))
	is.True(bus.Write(0777570, 0, false)) // lights zero cancels
	is.Equal(bus.Interrupt(5), uint8(0))

	ky.AxiWrite(2, KY2Enable|6<<14|(0200/4)<<8)
	bus.Reset()
	is.Equal(bus.Interrupt(6), uint8(0))
}

func TestKY11DMA(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	m := NewBigMem(bus)
	var j jammer
	ky := NewKY11(bus, &j)
	m.AxiWrite(1, 0xFFFFFFFF)

	ky.AxiWrite(4, 0123456)
	ky.AxiWrite(3, KY3DMAStart|KY3DMAWrite|01000)
	is.Equal(ky.AxiRead(3)&KY3DMAFail, uint32(0))
	is.Equal(m.words[01000>>1], uint16(0123456))

	ky.AxiWrite(4, 0xAA*0401)
	ky.AxiWrite(3, KY3DMAStart|KY3DMAWrite|KY3DMAByte|01001)
	is.Equal(m.words[01000>>1], uint16(0xAA<<8|0123456&0377))

	ky.AxiWrite(4, 0)
	ky.AxiWrite(3, KY3DMAStart|01000)
	is.Equal(ky.AxiRead(4), uint32(0xAA<<8|0123456&0377))

	ky.AxiWrite(3, KY3DMAStart|0777000) // nothing there
	is.Equal(ky.AxiRead(3), uint32(KY3DMAFail|0777000))
}

func TestKY11Lock(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	var j jammer
	ky := NewKY11(bus, &j)

	ky.AxiWrite(5, 42)
	is.Equal(ky.AxiRead(5), uint32(42))
	ky.AxiWrite(5, 43) // held by someone else
	is.Equal(ky.AxiRead(5), uint32(42))
	ky.AxiWrite(5, 42)
	is.Equal(ky.AxiRead(5), uint32(0))
}

func TestRL11(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	rl := NewRL11(bus)
	is.Equal(rl.AxiRead(5), uint32(0160<<18|0774400))
	rl.AxiWrite(5, 1<<31)
	bus.Reset()

	cs, ok := bus.Read(0774400)
	is.True(ok)
	is.Equal(cs, uint16(0200)) // no drive ready

	rl.AxiWrite(4, 1) // drive 0 ready
	cs, _ = bus.Read(0774400)
	is.Equal(cs, uint16(0201))

	is.True(bus.Write(0774400, 0100|1<<8, false)) // select drive 1, interrupt enable
	rl.AxiWrite(4, 1<<(4+1))                      // drive 1 error
	cs, _ = bus.Read(0774400)
	is.Equal(cs, uint16(0140000|1<<8|0100))
	is.Equal(bus.Interrupt(5), uint8(0)) // not done

	rl.AxiWrite(1, 0300)
	is.Equal(bus.Interrupt(5), uint8(0160))
}

func TestRL11MultipurposeRotates(t *testing.T) {
	is := is.New(t)
	bus := unibus.New()
	rl := NewRL11(bus)
	rl.AxiWrite(5, 1<<31)

	rl.AxiWrite(2, 1<<16)
	rl.AxiWrite(3, 3<<16|2)
	for _, want := range []uint16{1, 2, 3, 1} {
		mp, _ := bus.Read(0774406)
		is.Equal(mp, want)
	}

	is.True(bus.Write(0774406, 0777, false))
	is.Equal(rl.AxiRead(3), uint32(0777<<16|0777))

	is.True(bus.Write(0774404, 0177777, false))
	is.True(bus.Write(0774404, 0, true))
	is.Equal(rl.AxiRead(2)&0xFFFF, uint32(0177400))
}
