package terminal

import "fmt"

// Emulator provides access to an in-memory terminal emulator.
type Emulator interface {
	Write(p []byte) error
	Resize(size Size)
	Snapshot() Snapshot
}

// Size is a terminal geometry in character cells.
type Size struct {
	Rows int
	Cols int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Rows > 0 && s.Cols > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Cols, s.Rows)
}

// Cursor represents a cursor position.
type Cursor struct {
	X int
	Y int
}

// Cell represents a terminal cell's content and attributes.
//
// Glyph holds one extended grapheme cluster. A wide glyph occupies its own
// cell, marked Wide, and the cell to its right, which has Spacer set and an
// empty Glyph.
type Cell struct {
	Glyph  string `json:"glyph"`
	Wide   bool   `json:"wide,omitempty"`
	Spacer bool   `json:"spacer,omitempty"`
	FG     Color  `json:"fg"`
	BG     Color  `json:"bg"`
	Attrs  Attr   `json:"attrs,omitempty"`
}

// Blank returns a space cell using the supplied colours.
func Blank(fg, bg Color, attrs Attr) Cell {
	return Cell{Glyph: " ", FG: fg, BG: bg, Attrs: attrs}
}

// Attr is a bit-set of graphic rendition attributes.
type Attr uint16

// Cell attribute flags.
const (
	AttrBold Attr = 1 << iota
	AttrFaint
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrInverse
	AttrHidden
	AttrStrikethrough
)

// Snapshot is an immutable copy of the active screen buffer.
type Snapshot struct {
	Cols          int    `json:"cols"`
	Rows          int    `json:"rows"`
	Cursor        Cursor `json:"cursor"`
	CursorVisible bool   `json:"cursor_visible"`
	AltScreen     bool   `json:"alt_screen"`
	Title         string `json:"title,omitempty"`
	Cells         []Cell `json:"cells"`
}

// Size returns the snapshot geometry.
func (s Snapshot) Size() Size {
	return Size{Rows: s.Rows, Cols: s.Cols}
}

// CellAt returns the cell at (x, y).
func (s Snapshot) CellAt(x, y int) (Cell, error) {
	if x < 0 || y < 0 || x >= s.Cols || y >= s.Rows {
		return Cell{}, fmt.Errorf("cell out of range")
	}
	idx := y*s.Cols + x
	return s.Cells[idx], nil
}

// Row returns the glyphs of row y as a string, skipping wide-glyph spacers.
func (s Snapshot) Row(y int) string {
	if y < 0 || y >= s.Rows {
		return ""
	}
	var out []byte
	for x := 0; x < s.Cols; x++ {
		cell := s.Cells[y*s.Cols+x]
		if cell.Spacer {
			continue
		}
		if cell.Glyph == "" {
			out = append(out, ' ')
			continue
		}
		out = append(out, cell.Glyph...)
	}
	return string(out)
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Cells = make([]Cell, len(s.Cells))
	copy(out.Cells, s.Cells)
	return out
}
