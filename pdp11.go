// pdp1134 simulates a PDP-11/34 and its front panel.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/peterh/liner"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/davecheney/pdp1134/control"
	"github.com/davecheney/pdp1134/machine"
	"github.com/davecheney/pdp1134/shim"
)

func main() {
	var cli struct {
		Debug int `short:"d" default:"0" help:"log level: 0 info, 1 debug, 2 trace"`

		Serve   serveCmd   `cmd:"" help:"serve a machine over TCP"`
		Run     runCmd     `cmd:"" help:"load an image and run it on this terminal"`
		Monitor monitorCmd `cmd:"" help:"front panel for a served machine"`
	}

	ctx := kong.Parse(&cli, kong.Name("pdp1134"), kong.Description("help yourself to a PDP-11/34"))
	log := logrus.New()
	switch {
	case cli.Debug >= 2:
		log.SetLevel(logrus.TraceLevel)
	case cli.Debug == 1:
		log.SetLevel(logrus.DebugLevel)
	}
	err := ctx.Run(log)
	ctx.FatalIfErrorf(err)
}

// machineConfig opens the instruction trace, if any. The returned func
// flushes and closes it.
func machineConfig(cpulog string) (machine.Config, func() error, error) {
	var cfg machine.Config
	if cpulog == "" {
		return cfg, func() error { return nil }, nil
	}
	f, err := os.Create(cpulog)
	if err != nil {
		return cfg, nil, err
	}
	w := bufio.NewWriter(f)
	cfg.Trace = w
	return cfg, func() error {
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

type serveCmd struct {
	Listen  string `default:"localhost:1134" help:"address to listen on"`
	CPULog  string `name:"cpulog" type:"path" help:"write an instruction trace to this file"`
	FreeRun bool   `name:"free-run" help:"run the processor between register accesses"`
}

func (s *serveCmd) Run(log *logrus.Logger) error {
	cfg, closeTrace, err := machineConfig(s.CPULog)
	if err != nil {
		return err
	}
	defer closeTrace()

	m, err := machine.New(cfg, log)
	if err != nil {
		return err
	}
	defer m.Close()

	ln, err := net.Listen("tcp", s.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on address %s: %w", s.Listen, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if s.FreeRun {
		go m.Run(ctx)
	}

	srv := &shim.Server{Port: m, Log: log}
	if err := srv.Serve(ctx, ln); !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown")
	return nil
}

// quitChar ends a run session; every other key goes to the console line.
const quitChar = 035 // ^]

type runCmd struct {
	Image      string `arg:"" type:"existingfile" help:"memory image of little endian words"`
	Load       string `default:"0" help:"octal address to load the image at"`
	Start      string `default:"1000" help:"octal start address for the power-on vector"`
	Memory     int    `default:"62" help:"4KB blocks of memory to enable"`
	CPULog     string `name:"cpulog" type:"path" help:"write an instruction trace to this file"`
	CPUProfile bool   `name:"cpuprofile" help:"write a CPU profile to the current directory"`
}

func (r *runCmd) Run(log *logrus.Logger) error {
	load, err := strconv.ParseUint(r.Load, 8, 18)
	if err != nil {
		return fmt.Errorf("--load: %w", err)
	}
	start, err := strconv.ParseUint(r.Start, 8, 16)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	if r.CPUProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	cfg, closeTrace, err := machineConfig(r.CPULog)
	if err != nil {
		return err
	}
	defer closeTrace()

	m, err := machine.New(cfg, log)
	if err != nil {
		return err
	}
	defer m.Close()

	c, err := control.New(m)
	if err != nil {
		return err
	}
	if err := c.EnableMemory(r.Memory); err != nil {
		return err
	}
	for _, dev := range []string{"DL", "KL", "KY", "RL"} {
		if err := c.Enable(dev); err != nil {
			return err
		}
	}

	f, err := os.Open(r.Image)
	if err != nil {
		return err
	}
	err = c.Load(f, uint32(load))
	f.Close()
	if err != nil {
		return err
	}
	if err := c.Deposit(024, uint16(start)); err != nil {
		return err
	}
	if err := c.Deposit(026, 0340); err != nil {
		return err
	}
	if err := c.Simulate(); err != nil {
		return err
	}
	log.WithField("image", r.Image).Infof("%v, ^] to quit", c.Status())

	restore, err := makeRaw(os.Stdin.Fd())
	if err != nil {
		return err
	}
	defer restore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan byte, 64)
	go readKeys(ctx, os.Stdin, in, cancel)
	go func() {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if c.Status().Jammed {
					cancel()
					return
				}
			}
		}
	}()

	tty, err := control.NewTeletype(m, os.Stdout)
	if err != nil {
		return err
	}
	c.Continue()
	go m.Run(ctx)
	err = tty.Run(ctx, in)
	fmt.Printf("\r\n%v\r\n", c.Status())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readKeys copies r to in until quitChar or EOF, then calls done. It
// gives up a pending send once ctx is done.
func readKeys(ctx context.Context, r io.Reader, in chan<- byte, done func()) {
	defer done()
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil || b == quitChar {
			return
		}
		select {
		case in <- b:
		case <-ctx.Done():
			return
		}
	}
}

type monitorCmd struct {
	Addr string `default:"localhost:1134" help:"address of a pdp1134 serve"`
}

func (mc *monitorCmd) Run(log *logrus.Logger) error {
	cl, err := shim.Dial(mc.Addr)
	if err != nil {
		return err
	}
	defer cl.Close()
	c, err := control.New(cl)
	if err != nil {
		return err
	}
	mon := &monitor{out: os.Stdout, port: cl, ctl: c}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	for {
		cmd, err := line.Prompt("pdp1134> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.WithError(err).Error("error reading line")
			return err
		}
		line.AppendHistory(cmd)
		quit, err := mon.exec(cmd)
		if err != nil {
			fmt.Println("Error: " + err.Error())
		}
		if err := cl.Err(); err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}
