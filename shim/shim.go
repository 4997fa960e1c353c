// Package shim carries axi register reads and writes over TCP, so a
// controller in one process can drive a machine in another.
//
// Each request is an 8 byte little endian frame: the register index
// (uint16), the operation (0 read, 1 write), a pad byte and the data
// (uint32). A read is answered with the same frame carrying the data.
// Writes are not answered.
package shim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/davecheney/pdp1134/axi"
)

const (
	opRead  = 0
	opWrite = 1
)

type frame struct {
	Index uint16
	Op    uint8
	_     uint8
	Data  uint32
}

// Server answers shim requests from any number of connections against
// one port. The port must be safe for concurrent use.
type Server struct {
	Port axi.Port
	Log  logrus.FieldLogger

	wg sync.WaitGroup
}

func (s *Server) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln,
// waits for open connections to finish and returns ctx.Err().
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	s.log().WithField("addr", ln.Addr()).Info("shim listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("shim: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	log := s.log().WithField("remote", conn.RemoteAddr())
	log.Info("connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		var f frame
		if err := binary.Read(conn, binary.LittleEndian, &f); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.WithError(err).Warn("read")
			}
			log.Info("disconnected")
			return
		}
		switch f.Op {
		case opRead:
			f.Data = s.Port.Read(uint32(f.Index))
			if err := binary.Write(conn, binary.LittleEndian, &f); err != nil {
				log.WithError(err).Warn("write")
				return
			}
		case opWrite:
			s.Port.Write(uint32(f.Index), f.Data)
		default:
			log.Warnf("bad op %d", f.Op)
			return
		}
	}
}

// Client is an axi.Port on the far side of a shim connection. Once an
// operation fails every later read returns axi.Unassigned, writes are
// dropped and Err reports the first failure.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	err  error
}

// Dial connects to a shim server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("shim: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient speaks the shim protocol over conn.
func NewClient(conn net.Conn) *Client { return &Client{conn: conn} }

func (c *Client) Read(index uint32) uint32 {
	if index >= axi.Slots {
		return axi.Unassigned
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f := frame{Index: uint16(index), Op: opRead}
	if !c.send(&f) {
		return axi.Unassigned
	}
	if c.err = binary.Read(c.conn, binary.LittleEndian, &f); c.err != nil {
		c.err = fmt.Errorf("shim: read %d: %w", index, c.err)
		return axi.Unassigned
	}
	return f.Data
}

func (c *Client) Write(index, data uint32) {
	if index >= axi.Slots {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send(&frame{Index: uint16(index), Op: opWrite, Data: data})
}

func (c *Client) send(f *frame) bool {
	if c.err != nil {
		return false
	}
	if err := binary.Write(c.conn, binary.LittleEndian, f); err != nil {
		c.err = fmt.Errorf("shim: send %d: %w", f.Index, err)
		return false
	}
	return true
}

// Err returns the first error the client hit.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }
