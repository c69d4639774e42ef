package termsnap

import (
	"context"
	"errors"
	"io"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/termsnap/internal/capture"
	"pkt.systems/termsnap/internal/pty"
	"pkt.systems/termsnap/internal/terminal"
	"pkt.systems/termsnap/internal/terminal/emu"
)

// Snapshot is a copy of the emulated screen.
type Snapshot = terminal.Snapshot

// Size is a terminal geometry in character cells.
type Size = terminal.Size

// Error reports which stage of a capture failed.
type Error = capture.Error

// Stage names a capture stage.
type Stage = capture.Stage

// Capture stages.
const (
	StageResource = capture.StageResource
	StageSpawn    = capture.StageSpawn
	StageIO       = capture.StageIO
)

// Sentinels matched by errors.Is on capture failures.
var (
	ErrResource = capture.ErrResource
	ErrSpawn    = capture.ErrSpawn
	ErrIO       = capture.ErrIO
)

// StageOf returns the stage of the first *Error in err's chain.
func StageOf(err error) (Stage, bool) {
	return capture.StageOf(err)
}

// CaptureOptions configures Capture.
type CaptureOptions struct {
	Command string
	Args    []string
	Dir     string
	// Env is appended to the inherited environment.
	Env  []string
	Term string
	Size Size

	// Input is copied to the child. Nil means the child gets no input.
	Input io.Reader
	// Interactive passes child output through to Output.
	Interactive bool
	Output      io.Writer
	SendEOT     bool
	EOTInterval time.Duration

	RenderBeforeClear bool
	DrainTimeout      time.Duration
	Resize            <-chan Size

	Logger pslog.Logger
}

// Capture runs a command on a new pseudo-terminal and returns its final
// screen. Failures are *Error values carrying the stage that failed.
func Capture(ctx context.Context, opts CaptureOptions) (Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	if opts.Command == "" {
		return Snapshot{}, capture.NewError(capture.StageSpawn, errors.New("no command given"))
	}
	size := opts.Size
	if !size.Valid() {
		size = Size{Rows: DefaultTerminalRows, Cols: DefaultTerminalCols}
	}
	term := opts.Term
	if term == "" {
		term = DefaultTerminalTerm
	}

	p, err := pty.Open(size)
	if err != nil {
		return Snapshot{}, capture.NewError(capture.StageResource, err)
	}
	defer func() {
		_ = p.Close()
	}()

	if err := p.Spawn(pty.Command{
		Path: opts.Command,
		Args: opts.Args,
		Dir:  opts.Dir,
		Env:  opts.Env,
		Term: term,
	}); err != nil {
		return Snapshot{}, capture.NewError(capture.StageSpawn, err)
	}
	logger.Debug("spawned", "command", opts.Command, "pid", p.Pid(), "size", size.String(), "term", term)

	snap, err := capture.Run(ctx, p, emu.New(size), capture.Options{
		Input:             opts.Input,
		Interactive:       opts.Interactive,
		Output:            opts.Output,
		SendEOT:           opts.SendEOT,
		EOTInterval:       opts.EOTInterval,
		RenderBeforeClear: opts.RenderBeforeClear,
		DrainTimeout:      opts.DrainTimeout,
		Resize:            opts.Resize,
		Logger:            logger,
	})
	if err != nil {
		return Snapshot{}, err
	}
	logger.Debug("captured", "command", opts.Command, "exit_code", p.ExitCode(), "alt_screen", snap.AltScreen)
	return snap, nil
}

// Emulate feeds everything read from r into a new emulator of the given
// size and returns the resulting screen.
func Emulate(r io.Reader, size Size) (Snapshot, error) {
	if !size.Valid() {
		size = Size{Rows: DefaultTerminalRows, Cols: DefaultTerminalCols}
	}
	e := emu.New(size)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := e.Write(buf[:n]); werr != nil {
				return Snapshot{}, werr
			}
		}
		if errors.Is(err, io.EOF) {
			return e.Snapshot(), nil
		}
		if err != nil {
			return Snapshot{}, capture.NewError(capture.StageIO, err)
		}
	}
}
