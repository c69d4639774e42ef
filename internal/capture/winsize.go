package capture

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"pkt.systems/termsnap/internal/terminal"
)

// WindowSize returns the size of the terminal on fd.
func WindowSize(fd int) (terminal.Size, bool) {
	cols, rows, err := term.GetSize(fd)
	if err != nil || cols <= 0 || rows <= 0 {
		return terminal.Size{}, false
	}
	return terminal.Size{Rows: rows, Cols: cols}, true
}

// WatchResize relays SIGWINCH as the new size of the terminal on fd. The
// channel is closed when ctx is done.
func WatchResize(ctx context.Context, fd int) <-chan terminal.Size {
	out := make(chan terminal.Size, 1)
	sigwinch := make(chan os.Signal, 1)
	signal.Notify(sigwinch, syscall.SIGWINCH)
	go func() {
		defer close(out)
		defer signal.Stop(sigwinch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigwinch:
			}
			size, ok := WindowSize(fd)
			if !ok {
				continue
			}
			// Only the latest size matters.
			select {
			case <-out:
			default:
			}
			out <- size
		}
	}()
	return out
}

// MakeRaw puts the terminal on fd into raw mode and returns a restore func.
// It is a no-op when fd is not a terminal.
func MakeRaw(fd int) (func(), error) {
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { _ = term.Restore(fd, state) }, nil
}
