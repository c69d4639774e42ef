package termsnap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio/v2"

	"pkt.systems/prettyx"

	"pkt.systems/termsnap/internal/render"
	"pkt.systems/termsnap/internal/terminal"
)

// RenderOptions configures SVG rendering.
type RenderOptions = render.Options

// FontMetrics describes the monospace font used for SVG layout.
type FontMetrics = render.FontMetrics

// Palette maps the 16 ANSI colours and the defaults to RGB.
type Palette = terminal.Palette

// RenderOptionsFromConfig builds SVG options from the font and theme
// configuration.
func RenderOptionsFromConfig(cfg Config) (RenderOptions, error) {
	palette, err := cfg.Theme.Palette16()
	if err != nil {
		return RenderOptions{}, err
	}
	return RenderOptions{
		Fonts: cfg.Font.Families,
		Metrics: FontMetrics{
			UnitsPerEm: cfg.Font.UnitsPerEm,
			Advance:    cfg.Font.Advance,
			LineHeight: cfg.Font.LineHeight,
			Descent:    cfg.Font.Descent,
			Size:       cfg.Font.Size,
		},
		Palette: &palette,
	}, nil
}

// RenderSVG renders the snapshot as a standalone SVG document.
func RenderSVG(snap Snapshot, opts RenderOptions) string {
	return render.SVG(snap, opts)
}

// RenderANSI redraws the snapshot on w with ANSI escapes.
func RenderANSI(w io.Writer, snap Snapshot) error {
	return render.ANSI(w, snap)
}

// Dump is the JSON form of a snapshot written by Inspect.
type Dump struct {
	Cols          int             `json:"cols"`
	Rows          int             `json:"rows"`
	Cursor        terminal.Cursor `json:"cursor"`
	CursorVisible bool            `json:"cursor_visible"`
	AltScreen     bool            `json:"alt_screen"`
	Title         string          `json:"title,omitempty"`
	Lines         []string        `json:"lines"`
	Styled        []DumpCell      `json:"styled,omitempty"`
}

// DumpCell is a cell that differs from a blank default cell.
type DumpCell struct {
	X int `json:"x"`
	Y int `json:"y"`
	terminal.Cell
}

// NewDump summarises a snapshot: rows as text with trailing blanks trimmed,
// plus every non-blank cell that carries colour or attributes.
func NewDump(snap Snapshot) Dump {
	d := Dump{
		Cols:          snap.Cols,
		Rows:          snap.Rows,
		Cursor:        snap.Cursor,
		CursorVisible: snap.CursorVisible,
		AltScreen:     snap.AltScreen,
		Title:         snap.Title,
		Lines:         make([]string, snap.Rows),
	}
	for y := 0; y < snap.Rows; y++ {
		d.Lines[y] = strings.TrimRight(snap.Row(y), " ")
		for x := 0; x < snap.Cols; x++ {
			cell := snap.Cells[y*snap.Cols+x]
			if cell.Spacer || (cell.FG.IsDefault() && cell.BG.IsDefault() && cell.Attrs == 0) {
				continue
			}
			d.Styled = append(d.Styled, DumpCell{X: x, Y: y, Cell: cell})
		}
	}
	return d
}

// Inspect writes the snapshot as indented, colourised JSON.
func Inspect(w io.Writer, snap Snapshot) error {
	data, err := json.Marshal(NewDump(snap))
	if err != nil {
		return err
	}
	return prettyx.PrettyTo(w, data, prettyx.DefaultOptions)
}

// Encode writes the snapshot to w in the given format.
func Encode(w io.Writer, snap Snapshot, format string, opts RenderOptions) error {
	switch format {
	case "", FormatSVG:
		_, err := io.WriteString(w, RenderSVG(snap, opts)+"\n")
		return err
	case FormatANSI:
		if err := RenderANSI(w, snap); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\x1b[0m\r\n")
		return err
	case FormatJSON:
		data, err := json.Marshal(NewDump(snap))
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFile encodes the snapshot and replaces path atomically, so a failed
// write never leaves a partial file behind.
func WriteFile(path string, snap Snapshot, format string, opts RenderOptions) error {
	var b strings.Builder
	if err := Encode(&b, snap, format, opts); err != nil {
		return err
	}
	return renameio.WriteFile(path, []byte(b.String()), 0o644)
}

// WriteOutput writes to path, or to stdout when path is empty.
func WriteOutput(path string, snap Snapshot, format string, opts RenderOptions) error {
	if path == "" {
		return Encode(os.Stdout, snap, format, opts)
	}
	return WriteFile(path, snap, format, opts)
}
