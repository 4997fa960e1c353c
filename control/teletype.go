package control

import (
	"context"
	"io"
	"time"

	"github.com/davecheney/pdp1134/axi"
)

// Teletype is the host end of the DL11 console line.
type Teletype struct {
	port axi.Port
	dl   uint32
	out  io.Writer

	pending []byte
}

// NewTeletype connects the console line on port to out.
func NewTeletype(port axi.Port, out io.Writer) (*Teletype, error) {
	dl, err := axi.Find(port, "DL")
	if err != nil {
		return nil, err
	}
	return &Teletype{port: port, dl: dl, out: out}, nil
}

// Type queues b to be received by the processor.
func (t *Teletype) Type(b ...byte) { t.pending = append(t.pending, b...) }

// Poll moves at most one character in each direction and reports
// whether it moved any.
func (t *Teletype) Poll() (bool, error) {
	busy := false

	xmit := t.port.Read(t.dl + 2)
	if xmit&0200 == 0 {
		c := byte(xmit>>16) & 0177
		t.port.Write(t.dl+2, 0200)
		busy = true
		if c != 0 {
			if _, err := t.out.Write([]byte{c}); err != nil {
				return busy, err
			}
		}
	}

	if len(t.pending) > 0 && t.port.Read(t.dl+1)&0200 == 0 {
		t.port.Write(t.dl+1, uint32(t.pending[0])<<16|0200)
		t.pending = t.pending[1:]
		busy = true
	}
	return busy, nil
}

// Run polls the line until ctx is done, queueing the bytes read from in.
func (t *Teletype) Run(ctx context.Context, in <-chan byte) error {
	idle := time.NewTicker(time.Millisecond)
	defer idle.Stop()
	for {
		busy, err := t.Poll()
		if err != nil {
			return err
		}
		if busy {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			t.Type(b)
		case <-idle.C:
		}
	}
}
