package capture

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/x/vt"

	"pkt.systems/termsnap/internal/pty"
	"pkt.systems/termsnap/internal/terminal"
	"pkt.systems/termsnap/internal/terminal/emu"
)

// recordingSession keeps a copy of everything read from the child.
type recordingSession struct {
	pty.Session
	mu  sync.Mutex
	raw bytes.Buffer
}

func (r *recordingSession) Read(p []byte) (int, error) {
	n, err := r.Session.Read(p)
	r.mu.Lock()
	r.raw.Write(p[:n])
	r.mu.Unlock()
	return n, err
}

func (r *recordingSession) bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.raw.Bytes()...)
}

func TestShellSessionMatchesReferenceTerminal(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	const cols, rows = 60, 12
	size := terminal.Size{Rows: rows, Cols: cols}

	p, err := pty.Open(size)
	if err != nil {
		t.Fatalf("open pty: %v", err)
	}
	defer p.Close()
	err = p.Spawn(pty.Command{
		Path: "/bin/sh",
		Env:  []string{"PS1=$ ", "ENV="},
		Term: "linux",
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	sess := &recordingSession{Session: p}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	snap, err := Run(ctx, sess, emu.New(size), Options{
		Input:   strings.NewReader("echo $-\ntty\nexit\n"),
		SendEOT: true,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw := sess.bytes()
	if len(raw) == 0 {
		t.Fatalf("no output from shell")
	}
	ref := vt.NewEmulator(cols, rows)
	if _, err := ref.Write(raw); err != nil {
		t.Fatalf("reference write: %v", err)
	}
	for y := 0; y < rows; y++ {
		want := strings.TrimRight(referenceRow(ref, y), " ")
		got := strings.TrimRight(snap.Row(y), " ")
		if got != want {
			t.Fatalf("row %d = %q, want %q\nraw: %q", y, got, want, raw)
		}
	}
	if !strings.Contains(strings.Join(snapRows(snap), "\n"), "/dev/") {
		t.Fatalf("tty output missing from screen:\n%s", strings.Join(snapRows(snap), "\n"))
	}
}

// referenceRow assumes single-width output, which is all the shell prints.
func referenceRow(e *vt.Emulator, y int) string {
	var b strings.Builder
	for x := 0; x < e.Width(); x++ {
		cell := e.CellAt(x, y)
		if cell == nil {
			b.WriteByte(' ')
			continue
		}
		if cell.Content == "" {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(cell.Content)
	}
	return b.String()
}

func snapRows(s terminal.Snapshot) []string {
	out := make([]string, s.Rows)
	for y := range out {
		out[y] = s.Row(y)
	}
	return out
}
