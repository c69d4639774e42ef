package emu

import (
	"strings"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/vt"

	"pkt.systems/termsnap/internal/terminal"
)

type refCell struct {
	content string
	bold    bool
	italic  bool
	reverse bool
}

func referenceCell(e *vt.Emulator, x, y int) refCell {
	cell := e.CellAt(x, y)
	if cell == nil {
		return refCell{content: " "}
	}
	return fromUV(cell)
}

func fromUV(cell *uv.Cell) refCell {
	content := cell.Content
	if content == "" {
		content = " "
	}
	return refCell{
		content: content,
		bold:    cell.Style.Attrs&uv.AttrBold != 0,
		italic:  cell.Style.Attrs&uv.AttrItalic != 0,
		reverse: cell.Style.Attrs&uv.AttrReverse != 0,
	}
}

func ownCell(c terminal.Cell) refCell {
	content := c.Glyph
	if content == "" {
		content = " "
	}
	return refCell{
		content: content,
		bold:    c.Attrs&terminal.AttrBold != 0,
		italic:  c.Attrs&terminal.AttrItalic != 0,
		reverse: c.Attrs&terminal.AttrInverse != 0,
	}
}

func TestMatchesReferenceEmulator(t *testing.T) {
	const cols, rows = 20, 6
	streams := map[string]string{
		"styles":  "\x1b[1mbold\x1b[0m plain\r\n\x1b[3mit\x1b[7mrev\x1b[0m done",
		"scroll":  strings.Repeat("line\r\n", 9) + "last",
		"erase":   "abcdefgh\r\n12345678\x1b[1;3H\x1b[K\x1b[2;4H\x1b[1K",
		"clear":   "junk\x1b[2J\x1b[3;5Hhere",
		"lines":   "a\r\nb\r\nc\r\nd\x1b[2;1H\x1b[L\x1b[4;1H\x1b[M",
		"chars":   "abcdef\x1b[1;2H\x1b[2P\x1b[1;1H\x1b[3@",
		"wrap":    strings.Repeat("x", cols+5),
		"tabs":    "a\tb\tc",
		"region":  "1\r\n2\r\n3\r\n4\r\n5\r\n6\x1b[2;4r\x1b[4;1H\n\n\x1b[r",
		"altback": "main\x1b[?1049h\x1b[Halt\x1b[?1049l",
	}
	for name, stream := range streams {
		t.Run(name, func(t *testing.T) {
			ref := vt.NewEmulator(cols, rows)
			if _, err := ref.Write([]byte(stream)); err != nil {
				t.Fatalf("reference write: %v", err)
			}
			e := newEmu(cols, rows)
			if err := e.Write([]byte(stream)); err != nil {
				t.Fatalf("write: %v", err)
			}
			snap := e.Snapshot()
			for y := 0; y < rows; y++ {
				for x := 0; x < cols; x++ {
					want := referenceCell(ref, x, y)
					got := ownCell(snap.Cells[y*cols+x])
					if got != want {
						t.Fatalf("cell (%d,%d) = %+v, want %+v", x, y, got, want)
					}
				}
			}
		})
	}
}
