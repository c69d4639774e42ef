package termsnap

import (
	"context"
	"os"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/termsnap/internal/capture"
)

// InteractiveOptions configures an interactive capture attached to the
// invoking terminal.
type InteractiveOptions struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Term    string

	// Stdin and Stdout default to os.Stdin and os.Stdout.
	Stdin  *os.File
	Stdout *os.File

	RenderBeforeClear bool
	DrainTimeout      time.Duration
	Logger            pslog.Logger
}

// Interactive runs a command sized to the invoking terminal, with stdin in
// raw mode and window size changes relayed to the child. The child's output
// is shown as it arrives and the final screen is returned.
func Interactive(ctx context.Context, opts InteractiveOptions) (Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	logger = logger.With("component", "interactive")
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	size, ok := capture.WindowSize(int(stdout.Fd()))
	if !ok {
		logger.Warn("stdout is not a terminal, using default size")
		size = Size{Rows: DefaultTerminalRows, Cols: DefaultTerminalCols}
	}

	restore, err := capture.MakeRaw(int(stdin.Fd()))
	if err != nil {
		return Snapshot{}, capture.NewError(capture.StageResource, err)
	}
	defer restore()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	return Capture(ctx, CaptureOptions{
		Command:           opts.Command,
		Args:              opts.Args,
		Dir:               opts.Dir,
		Env:               opts.Env,
		Term:              opts.Term,
		Size:              size,
		Input:             stdin,
		Interactive:       true,
		Output:            stdout,
		RenderBeforeClear: opts.RenderBeforeClear,
		DrainTimeout:      opts.DrainTimeout,
		Resize:            capture.WatchResize(ctx, int(stdout.Fd())),
		Logger:            logger,
	})
}
