package shim

import (
	"context"
	"errors"
	"io/ioutil"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sirupsen/logrus"

	"github.com/davecheney/pdp1134/axi"
	"github.com/davecheney/pdp1134/control"
	"github.com/davecheney/pdp1134/machine"
)

type regs struct {
	sync.Mutex
	m map[uint32]uint32
}

func (r *regs) Read(index uint32) uint32 {
	r.Lock()
	defer r.Unlock()
	return r.m[index]
}

func (r *regs) Write(index, data uint32) {
	r.Lock()
	defer r.Unlock()
	r.m[index] = data
}

func quiet() *logrus.Logger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}

func TestPipe(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &regs{m: map[uint32]uint32{3: 0xCAFEF00D}}
	srv := &Server{Port: r, Log: quiet()}
	a, b := net.Pipe()
	go srv.serveConn(ctx, b)

	c := NewClient(a)
	defer c.Close()
	is.Equal(c.Read(3), uint32(0xCAFEF00D))
	c.Write(1023, 42)
	is.Equal(c.Read(1023), uint32(42))
	is.Equal(c.Read(1024), uint32(axi.Unassigned)) // off the page
	is.NoErr(c.Err())
}

func TestClientStickyError(t *testing.T) {
	is := is.New(t)
	a, b := net.Pipe()
	b.Close()

	c := NewClient(a)
	is.Equal(c.Read(0), uint32(axi.Unassigned))
	err := c.Err()
	is.True(err != nil)
	c.Write(0, 1)
	is.Equal(c.Read(0), uint32(axi.Unassigned))
	is.Equal(c.Err(), err)
}

func TestServeMachine(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := machine.New(machine.Config{Ticks: make(chan time.Time)}, quiet())
	is.NoErr(err)
	defer m.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	is.NoErr(err)
	srv := &Server{Port: m, Log: quiet()}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	c, err := Dial(ln.Addr().String())
	is.NoErr(err)
	defer c.Close()

	base, err := axi.Find(c, "RL")
	is.NoErr(err)
	is.Equal(base, uint32(48))

	ctl, err := control.New(c)
	is.NoErr(err)
	is.NoErr(ctl.EnableMemory(2))
	is.NoErr(ctl.Deposit(014000, 0123456))
	w, err := ctl.Examine(014000)
	is.NoErr(err)
	is.Equal(w, uint16(0123456))
	is.NoErr(c.Err())

	cancel()
	select {
	case err := <-served:
		is.True(errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
