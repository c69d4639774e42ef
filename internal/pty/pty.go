// Package pty allocates pseudo-terminals and runs child processes on them.
package pty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"pkt.systems/termsnap/internal/terminal"
)

var (
	// ErrOpen reports that no pseudo-terminal could be allocated.
	ErrOpen = errors.New("pty: open failed")
	// ErrSpawn reports that the child process could not be started.
	ErrSpawn = errors.New("pty: spawn failed")
	// ErrNotStarted is returned by operations that need a running child.
	ErrNotStarted = errors.New("pty: no child started")
)

// closeGrace bounds how long Close waits for the child after SIGTERM.
const closeGrace = 500 * time.Millisecond

// Session is the capability the capture loop needs from a pseudo-terminal
// with a child attached. Read returns io.EOF (or an EIO error) once every
// writer on the slave side is gone.
type Session interface {
	io.ReadWriter
	Resize(size terminal.Size) error
	// Exited is closed once the child has been reaped.
	Exited() <-chan struct{}
	Close() error
}

// Command describes the child to spawn.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
	// Term is exported as TERM when set.
	Term string
}

// PTY is a pseudo-terminal master and, after Spawn, the child running on
// its slave side.
type PTY struct {
	master *os.File
	slave  *os.File
	size   terminal.Size

	cmd    *exec.Cmd
	exited chan struct{}

	mu      sync.Mutex
	waitErr error

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

var _ Session = (*PTY)(nil)

// Open allocates a pseudo-terminal of the given size.
func Open(size terminal.Size) (*PTY, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: invalid size %s", ErrOpen, size)
	}
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := setSize(master, size); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PTY{
		master: master,
		slave:  slave,
		size:   size,
		exited: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Spawn starts c as a session leader with the slave side as its
// controlling terminal and stdio. The parent's copy of the slave is closed
// once the child runs.
func (p *PTY) Spawn(c Command) error {
	if p.cmd != nil {
		return fmt.Errorf("%w: child already started", ErrSpawn)
	}
	if p.slave == nil {
		return fmt.Errorf("%w: pty closed", ErrSpawn)
	}
	cmd := exec.Command(c.Path, c.Args...)
	if cmd.Err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, cmd.Err)
	}
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), childEnv(c, p.size)...)
	cmd.Stdin = p.slave
	cmd.Stdout = p.slave
	cmd.Stderr = p.slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	_ = p.slave.Close()
	p.slave = nil
	p.cmd = cmd
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.exited)
	}()
	return nil
}

func childEnv(c Command, size terminal.Size) []string {
	env := []string{
		"LINES=" + strconv.Itoa(size.Rows),
		"COLUMNS=" + strconv.Itoa(size.Cols),
	}
	if c.Term != "" {
		env = append(env, "TERM="+c.Term)
	}
	return append(env, c.Env...)
}

// Read reads child output from the master.
func (p *PTY) Read(buf []byte) (int, error) {
	return readPTY(p.ctx, p.master, buf)
}

// Write sends input to the child.
func (p *PTY) Write(data []byte) (int, error) {
	if p.master == nil {
		return 0, os.ErrClosed
	}
	return p.master.Write(data)
}

// Resize updates the kernel-side window size, which signals SIGWINCH to the
// child's foreground process group.
func (p *PTY) Resize(size terminal.Size) error {
	if !size.Valid() {
		return nil
	}
	if err := setSize(p.master, size); err != nil {
		return err
	}
	p.size = size
	return nil
}

// Size returns the last size applied.
func (p *PTY) Size() terminal.Size {
	return p.size
}

// Exited is closed once the child has been reaped. It never closes when no
// child was spawned.
func (p *PTY) Exited() <-chan struct{} {
	return p.exited
}

// Pid returns the child process id, or 0 before Spawn.
func (p *PTY) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// ExitCode returns the child's exit status, or -1 while it runs.
func (p *PTY) ExitCode() int {
	if p.cmd == nil {
		return -1
	}
	select {
	case <-p.exited:
	default:
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Wait blocks until the child is reaped and returns its wait error.
func (p *PTY) Wait(ctx context.Context) error {
	if p.cmd == nil {
		return ErrNotStarted
	}
	select {
	case <-p.exited:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Close terminates the child if it is still running, reaps it and releases
// the pseudo-terminal.
func (p *PTY) Close() error {
	var err error
	p.once.Do(func() {
		p.cancel()
		if p.cmd != nil {
			p.terminate()
		}
		if p.slave != nil {
			_ = p.slave.Close()
			p.slave = nil
		}
		err = p.master.Close()
	})
	return err
}

func (p *PTY) terminate() {
	select {
	case <-p.exited:
		return
	default:
	}
	pid := p.cmd.Process.Pid
	// The child leads its own session, so signal the whole group.
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
	timer := time.NewTimer(closeGrace)
	defer timer.Stop()
	select {
	case <-p.exited:
		return
	case <-timer.C:
	}
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		_ = p.cmd.Process.Kill()
	}
	timer.Reset(closeGrace)
	select {
	case <-p.exited:
	case <-timer.C:
	}
}

func setSize(file *os.File, size terminal.Size) error {
	if file == nil {
		return os.ErrClosed
	}
	return pty.Setsize(file, &pty.Winsize{Cols: uint16(size.Cols), Rows: uint16(size.Rows)})
}

// IsEndOfStream reports whether err from Read means the slave side is gone.
// Linux reports this as EIO on the master.
func IsEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}
