package termsnap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"pkt.systems/pslog"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func testLogger() pslog.Logger {
	return pslog.NewWithOptions(&bytes.Buffer{}, pslog.Options{Mode: pslog.ModeStructured, DisableTimestamp: true, NoColor: true})
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func TestEmulateFeedsWholeStream(t *testing.T) {
	snap, err := Emulate(strings.NewReader("hello\r\n\x1b[1mworld"), Size{Rows: 2, Cols: 8})
	if err != nil {
		t.Fatalf("Emulate: %v", err)
	}
	if got := snap.Row(0); got != "hello   " {
		t.Fatalf("row0 = %q", got)
	}
	if got := snap.Row(1); got != "world   " {
		t.Fatalf("row1 = %q", got)
	}
}

func TestEmulateDefaultsSize(t *testing.T) {
	snap, err := Emulate(strings.NewReader(""), Size{})
	if err != nil {
		t.Fatalf("Emulate: %v", err)
	}
	if snap.Cols != DefaultTerminalCols || snap.Rows != DefaultTerminalRows {
		t.Fatalf("size = %dx%d", snap.Cols, snap.Rows)
	}
}

func TestEmulateReportsReadError(t *testing.T) {
	_, err := Emulate(failingReader{}, Size{Rows: 1, Cols: 1})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	var capErr *Error
	if !errors.As(err, &capErr) || capErr.Stage != StageIO {
		t.Fatalf("expected io stage, got %v", err)
	}
}

func TestCaptureRunsCommand(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := Capture(ctx, CaptureOptions{
		Command: "/bin/sh",
		Args:    []string{"-c", `printf 'size %s %s\n' "$COLUMNS" "$LINES"`},
		Size:    Size{Rows: 3, Cols: 20},
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got := strings.TrimRight(snap.Row(0), " "); got != "size 20 3" {
		t.Fatalf("row0 = %q", got)
	}
}

func TestCaptureFeedsInput(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := Capture(ctx, CaptureOptions{
		Command: "/bin/sh",
		Args:    []string{"-c", `stty -echo; read line; printf 'got:%s' "$line"`},
		Size:    Size{Rows: 2, Cols: 20},
		Input:   strings.NewReader("abc\n"),
		SendEOT: true,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.Contains(snap.Row(0)+snap.Row(1), "got:abc") {
		t.Fatalf("screen = %q / %q", snap.Row(0), snap.Row(1))
	}
}

func TestCaptureMissingCommandIsSpawnError(t *testing.T) {
	_, err := Capture(context.Background(), CaptureOptions{
		Command: "termsnap-definitely-missing-binary",
		Logger:  testLogger(),
	})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected exec.ErrNotFound, got %v", err)
	}
}

func TestCaptureRequiresCommand(t *testing.T) {
	if _, err := Capture(context.Background(), CaptureOptions{Logger: testLogger()}); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte("char_delay: 5ms\nsteps:\n  - line: ls\n  - delay: 1s\n    text: q\n"))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if s.CharDelay != 5*time.Millisecond || len(s.Steps) != 2 || s.Steps[1].Delay != time.Second {
		t.Fatalf("script = %+v", s)
	}
	if got := string(s.Steps[0].Payload()); got != "ls\r" {
		t.Fatalf("payload = %q", got)
	}
}

func TestEncodeFormats(t *testing.T) {
	snap, err := Emulate(strings.NewReader("\x1b[31mhi"), Size{Rows: 1, Cols: 4})
	if err != nil {
		t.Fatalf("Emulate: %v", err)
	}

	var svg bytes.Buffer
	if err := Encode(&svg, snap, FormatSVG, RenderOptions{}); err != nil {
		t.Fatalf("Encode svg: %v", err)
	}
	if !strings.HasPrefix(svg.String(), "<svg ") || !strings.HasSuffix(svg.String(), "</svg>\n") {
		t.Fatalf("svg = %q", svg.String())
	}

	var ansi bytes.Buffer
	if err := Encode(&ansi, snap, FormatANSI, RenderOptions{}); err != nil {
		t.Fatalf("Encode ansi: %v", err)
	}
	if !strings.Contains(ansi.String(), "31") || !strings.Contains(ansi.String(), "hi") {
		t.Fatalf("ansi = %q", ansi.String())
	}

	var js bytes.Buffer
	if err := Encode(&js, snap, FormatJSON, RenderOptions{}); err != nil {
		t.Fatalf("Encode json: %v", err)
	}
	var dump struct {
		Lines  []string `json:"lines"`
		Styled []struct {
			X     int    `json:"x"`
			Glyph string `json:"glyph"`
			FG    string `json:"fg"`
		} `json:"styled"`
	}
	if err := json.Unmarshal(js.Bytes(), &dump); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(dump.Lines) != 1 || dump.Lines[0] != "hi" {
		t.Fatalf("lines = %q", dump.Lines)
	}
	if len(dump.Styled) != 2 || dump.Styled[1].X != 1 || dump.Styled[1].Glyph != "i" || dump.Styled[1].FG != "indexed(1)" {
		t.Fatalf("styled = %+v", dump.Styled)
	}

	if err := Encode(&js, snap, "png", RenderOptions{}); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestInspectWritesJSON(t *testing.T) {
	snap, err := Emulate(strings.NewReader("ok"), Size{Rows: 1, Cols: 4})
	if err != nil {
		t.Fatalf("Emulate: %v", err)
	}
	var buf bytes.Buffer
	if err := Inspect(&buf, snap); err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !strings.Contains(buf.String(), "lines") || !strings.Contains(buf.String(), "ok") {
		t.Fatalf("inspect = %q", buf.String())
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	snap, err := Emulate(strings.NewReader("x"), Size{Rows: 1, Cols: 2})
	if err != nil {
		t.Fatalf("Emulate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.svg")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := WriteFile(path, snap, FormatSVG, RenderOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "<svg ") {
		t.Fatalf("file = %q", data)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestWriteFileUnknownFormatLeavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.svg")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := WriteFile(path, Snapshot{}, "png", RenderOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "old" {
		t.Fatalf("file changed: %q %v", data, err)
	}
}

func TestRenderOptionsFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Font.Families = []string{"Iosevka"}
	cfg.Font.Size = 14
	cfg.Theme.Background = "#ffffff"
	opts, err := RenderOptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("RenderOptionsFromConfig: %v", err)
	}
	if opts.Metrics.Size != 14 || opts.Fonts[0] != "Iosevka" {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Palette == nil || opts.Palette.Background.String() != "#ffffff" {
		t.Fatalf("palette = %+v", opts.Palette)
	}

	cfg.Theme.Palette = []string{"#000000"}
	if _, err := RenderOptionsFromConfig(cfg); err == nil {
		t.Fatalf("expected palette error")
	}
}

func TestBootstrapWritesConfigOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	got, err := Bootstrap(context.Background(), cfg, path, testLogger())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if got != path {
		t.Fatalf("path = %q", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if decoded.Terminal.Term != cfg.Terminal.Term || decoded.Capture.DrainTimeout != cfg.Capture.DrainTimeout {
		t.Fatalf("decoded = %+v", decoded)
	}
	if _, err := Bootstrap(context.Background(), cfg, path, testLogger()); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
}

func TestLoaderReadsBootstrappedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Terminal.Cols = 100
	cfg.Output.Format = FormatANSI
	if _, err := Bootstrap(context.Background(), cfg, path, testLogger()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	loader := NewLoader()
	loader.SetConfigFile(path)
	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Terminal.Cols != 100 || loaded.Output.Format != FormatANSI {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.Capture.DrainTimeout != DefaultDrainTimeout {
		t.Fatalf("drain timeout = %v", loaded.Capture.DrainTimeout)
	}
}
