// Package capture drives a child on a pseudo-terminal through an emulator
// and produces the final screen snapshot.
package capture

import (
	"context"
	"errors"
	"io"
	"syscall"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/termsnap/internal/pty"
	"pkt.systems/termsnap/internal/terminal"
	"pkt.systems/termsnap/internal/terminal/emu"
)

const (
	// DefaultEOTInterval is how often ^D is re-sent after input ends.
	DefaultEOTInterval = 500 * time.Millisecond
	// DefaultDrainTimeout is how long output may stay quiet after the child
	// exits before the capture finishes.
	DefaultDrainTimeout = 250 * time.Millisecond

	endOfTransmission = 0x04
	readBufferSize    = 4096
	writeQueue        = 128
)

// Emulator is the part of the terminal emulator the pump drives.
type Emulator interface {
	terminal.Emulator
	Feed(p []byte) emu.Result
	TakeReplies() []byte
}

// Options control a capture run.
type Options struct {
	// Input is copied to the child. Nil means no input.
	Input io.Reader
	// Interactive passes child output through to Output and drops the
	// emulator's replies, leaving them to the real terminal.
	Interactive bool
	Output      io.Writer
	// SendEOT writes ^D to the child once Input is exhausted and repeats it
	// every EOTInterval until the child exits.
	SendEOT     bool
	EOTInterval time.Duration
	// RenderBeforeClear takes the snapshot just before an alternate-screen
	// program clears what it drew.
	RenderBeforeClear bool
	DrainTimeout      time.Duration
	// Resize delivers new window sizes, applied to both the pty and the
	// emulator.
	Resize <-chan terminal.Size
	Logger pslog.Logger
}

type readResult struct {
	data []byte
	err  error
}

type writeRequest struct {
	data []byte
	eot  bool
}

type pump struct {
	sess pty.Session
	emu  Emulator
	opts Options
	log  pslog.Logger

	stop   chan struct{}
	writes chan writeRequest

	captured *terminal.Snapshot
}

// Run pumps output from sess into e until the child exits and its output is
// drained, then returns the screen. With RenderBeforeClear the screen is the
// first pre-clear snapshot, if one occurs. Fatal failures are *Error values.
func Run(ctx context.Context, sess pty.Session, e Emulator, opts Options) (terminal.Snapshot, error) {
	if opts.EOTInterval <= 0 {
		opts.EOTInterval = DefaultEOTInterval
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	p := &pump{
		sess:   sess,
		emu:    e,
		opts:   opts,
		log:    logger.With("component", "capture"),
		stop:   make(chan struct{}),
		writes: make(chan writeRequest, writeQueue),
	}
	defer close(p.stop)
	return p.run(ctx)
}

func (p *pump) run(ctx context.Context) (terminal.Snapshot, error) {
	reads := make(chan readResult, 16)
	writeErr := make(chan error, 1)
	go p.readLoop(reads)
	go p.writeLoop(writeErr)
	if p.opts.Input != nil {
		go p.inputLoop()
	}

	exited := p.sess.Exited()
	childGone := false
	var drain *time.Timer
	var drainC <-chan time.Time
	defer func() {
		if drain != nil {
			drain.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return terminal.Snapshot{}, ctx.Err()
		case r := <-reads:
			if len(r.data) > 0 {
				if err := p.apply(r.data); err != nil {
					return terminal.Snapshot{}, err
				}
				if drain != nil {
					drain.Reset(p.opts.DrainTimeout)
				}
			}
			if r.err != nil {
				if pty.IsEndOfStream(r.err) || childGone {
					p.log.Debug("pty drained", "err", r.err)
					return p.finish(), nil
				}
				return terminal.Snapshot{}, NewError(StageIO, r.err)
			}
		case err := <-writeErr:
			if childGone || pty.IsEndOfStream(err) || errors.Is(err, syscall.EPIPE) {
				p.log.Debug("pty write stopped", "err", err)
				continue
			}
			return terminal.Snapshot{}, NewError(StageIO, err)
		case size, ok := <-p.opts.Resize:
			if !ok {
				p.opts.Resize = nil
				continue
			}
			p.resize(size)
		case <-exited:
			exited = nil
			childGone = true
			p.log.Debug("child exited")
			drain = time.NewTimer(p.opts.DrainTimeout)
			drainC = drain.C
		case <-drainC:
			p.log.Debug("pty quiet after child exit")
			return p.finish(), nil
		}
	}
}

func (p *pump) finish() terminal.Snapshot {
	if p.captured != nil {
		return *p.captured
	}
	return p.emu.Snapshot()
}

func (p *pump) resize(size terminal.Size) {
	if !size.Valid() {
		return
	}
	if err := p.sess.Resize(size); err != nil {
		p.log.Debug("pty resize failed", "err", err)
		return
	}
	p.emu.Resize(size)
	p.log.Debug("resized", "rows", size.Rows, "cols", size.Cols)
}

// apply feeds child output to the emulator. Once a pre-clear snapshot is
// held, output is still drained but no longer applied.
func (p *pump) apply(data []byte) error {
	if p.opts.Interactive && p.opts.Output != nil {
		if _, err := p.opts.Output.Write(data); err != nil {
			return NewError(StageIO, err)
		}
	}
	if p.captured != nil {
		return nil
	}
	for len(data) > 0 {
		res := p.emu.Feed(data)
		data = data[res.Consumed:]
		if res.Signal == emu.SignalNone {
			continue
		}
		p.log.Debug("emulator signal", "signal", res.Signal.String(), "alt", res.AltScreen)
		if p.opts.RenderBeforeClear && res.PreClear() && res.Prior != nil {
			snap := *res.Prior
			p.captured = &snap
			p.log.Debug("pre-clear snapshot taken", "signal", res.Signal.String())
			break
		}
	}
	p.flushReplies()
	return nil
}

func (p *pump) flushReplies() {
	replies := p.emu.TakeReplies()
	if len(replies) == 0 || p.opts.Interactive {
		return
	}
	select {
	case p.writes <- writeRequest{data: replies}:
	default:
		p.log.Debug("dropping terminal reply", "bytes", len(replies))
	}
}

func (p *pump) readLoop(out chan<- readResult) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := p.sess.Read(buf)
		if err != nil && (errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)) {
			if n == 0 {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			err = nil
		}
		var r readResult
		if n > 0 {
			r.data = make([]byte, n)
			copy(r.data, buf[:n])
		}
		r.err = err
		if r.data == nil && r.err == nil {
			continue
		}
		select {
		case out <- r:
		case <-p.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// writeLoop owns every write to the pty so input, replies and EOT do not
// interleave mid-chunk.
func (p *pump) writeLoop(errc chan<- error) {
	var last byte
	for {
		var req writeRequest
		select {
		case <-p.stop:
			return
		case req = <-p.writes:
		}
		data := req.data
		if req.eot {
			data = []byte{endOfTransmission}
			if last != '\r' {
				data = []byte{'\r', endOfTransmission}
			}
		}
		if len(data) == 0 {
			continue
		}
		if _, err := p.sess.Write(data); err != nil {
			select {
			case errc <- err:
			default:
			}
			return
		}
		last = data[len(data)-1]
	}
}

func (p *pump) send(req writeRequest) bool {
	select {
	case p.writes <- req:
		return true
	case <-p.stop:
		return false
	}
}

func (p *pump) inputLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := p.opts.Input.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !p.send(writeRequest{data: data}) {
				return
			}
		}
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if !errors.Is(err, io.EOF) {
				p.log.Debug("input read error", "err", err)
			}
			break
		}
	}
	if !p.opts.SendEOT {
		return
	}
	ticker := time.NewTicker(p.opts.EOTInterval)
	defer ticker.Stop()
	exited := p.sess.Exited()
	for {
		if !p.send(writeRequest{eot: true}) {
			return
		}
		p.log.Debug("sent EOT")
		select {
		case <-p.stop:
			return
		case <-exited:
			return
		case <-ticker.C:
		}
	}
}
