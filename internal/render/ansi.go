// Package render turns terminal snapshots into SVG documents or ANSI
// escape streams.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"pkt.systems/termsnap/internal/terminal"
)

const (
	ansiClearScreen = "\x1b[2J"
	ansiHome        = "\x1b[H"
	ansiHideCursor  = "\x1b[?25l"
	ansiShowCursor  = "\x1b[?25h"
	ansiReset       = "\x1b[0m"
)

// ANSI redraws a snapshot on a terminal using ANSI escapes.
func ANSI(w io.Writer, snap terminal.Snapshot) error {
	return ANSIViewport(w, snap, snap.Cols, snap.Rows)
}

// ANSIViewport redraws a snapshot cropped or padded to a viewport, keeping
// the cursor visible when cropping.
func ANSIViewport(w io.Writer, snap terminal.Snapshot, viewCols, viewRows int) error {
	if _, err := io.WriteString(w, ansiClearScreen+ansiHome); err != nil {
		return err
	}
	if snap.CursorVisible {
		if _, err := io.WriteString(w, ansiShowCursor); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(w, ansiHideCursor); err != nil {
			return err
		}
	}

	cols := snap.Cols
	rows := snap.Rows
	if viewCols <= 0 {
		viewCols = cols
	}
	if viewRows <= 0 {
		viewRows = rows
	}

	cursorX := min(max(snap.Cursor.X, 0), max(cols-1, 0))
	cursorY := min(max(snap.Cursor.Y, 0), max(rows-1, 0))

	x0, y0 := viewportOrigin(cols, rows, viewCols, viewRows, cursorX, cursorY)

	current := renderAttr{attrs: ^terminal.Attr(0)}
	if _, err := io.WriteString(w, ansiReset); err != nil {
		return err
	}
	for y := 0; y < viewRows; y++ {
		cy := y0 + y
		if _, err := fmt.Fprintf(w, "\x1b[%d;%dH", y+1, 1); err != nil {
			return err
		}
		var rowBuilder strings.Builder
		for x := 0; x < viewCols; x++ {
			cx := x0 + x
			var attr renderAttr
			glyph := " "
			if cx >= 0 && cy >= 0 && cx < cols && cy < rows && cy*cols+cx < len(snap.Cells) {
				cell := snap.Cells[cy*cols+cx]
				if cell.Spacer && x > 0 {
					// The wide glyph to the left already advanced the cursor.
					continue
				}
				attr = renderAttr{attrs: cell.Attrs, fg: cell.FG, bg: cell.BG}
				if cell.Glyph != "" && !cell.Spacer {
					glyph = cell.Glyph
				}
				if cell.Wide && x == viewCols-1 {
					glyph = " "
				}
			}
			if attr.attrs&terminal.AttrHidden != 0 {
				glyph = " "
			}
			if current != attr {
				rowBuilder.WriteString(sgr(attr))
				current = attr
			}
			rowBuilder.WriteString(glyph)
		}
		if _, err := io.WriteString(w, rowBuilder.String()); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, ansiReset); err != nil {
		return err
	}

	// Move cursor to position (1-based).
	if cursorX >= x0 && cursorX < x0+viewCols && cursorY >= y0 && cursorY < y0+viewRows {
		if _, err := fmt.Fprintf(w, "\x1b[%d;%dH", cursorY-y0+1, cursorX-x0+1); err != nil {
			return err
		}
	} else if snap.CursorVisible {
		if _, err := io.WriteString(w, ansiHideCursor); err != nil {
			return err
		}
	}

	if snap.Title != "" {
		if _, err := fmt.Fprintf(w, "\x1b]0;%s\x07", sanitizeTitle(snap.Title)); err != nil {
			return err
		}
	}

	return nil
}

type renderAttr struct {
	attrs terminal.Attr
	fg    terminal.Color
	bg    terminal.Color
}

func sgr(attr renderAttr) string {
	codes := []string{"0"}
	if attr.attrs&terminal.AttrBold != 0 {
		codes = append(codes, "1")
	}
	if attr.attrs&terminal.AttrFaint != 0 {
		codes = append(codes, "2")
	}
	if attr.attrs&terminal.AttrItalic != 0 {
		codes = append(codes, "3")
	}
	if attr.attrs&terminal.AttrUnderline != 0 {
		codes = append(codes, "4")
	}
	if attr.attrs&terminal.AttrBlink != 0 {
		codes = append(codes, "5")
	}
	if attr.attrs&terminal.AttrInverse != 0 {
		codes = append(codes, "7")
	}
	if attr.attrs&terminal.AttrHidden != 0 {
		codes = append(codes, "8")
	}
	if attr.attrs&terminal.AttrStrikethrough != 0 {
		codes = append(codes, "9")
	}

	codes = append(codes, colorCode(true, attr.fg)...)
	codes = append(codes, colorCode(false, attr.bg)...)

	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func colorCode(fg bool, c terminal.Color) []string {
	if idx, ok := c.Index(); ok {
		switch {
		case idx < 8 && fg:
			return []string{strconv.Itoa(30 + int(idx))}
		case idx < 8:
			return []string{strconv.Itoa(40 + int(idx))}
		case idx < 16 && fg:
			return []string{strconv.Itoa(90 + int(idx) - 8)}
		case idx < 16:
			return []string{strconv.Itoa(100 + int(idx) - 8)}
		case fg:
			return []string{"38", "5", strconv.Itoa(int(idx))}
		default:
			return []string{"48", "5", strconv.Itoa(int(idx))}
		}
	}
	if rgb, ok := c.RGB(); ok {
		lead := "48"
		if fg {
			lead = "38"
		}
		return []string{lead, "2", strconv.Itoa(int(rgb.R)), strconv.Itoa(int(rgb.G)), strconv.Itoa(int(rgb.B))}
	}
	if fg {
		return []string{"39"}
	}
	return []string{"49"}
}

func sanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', 0x07, 0x1b:
			return -1
		default:
			return r
		}
	}, title)
}

func viewportOrigin(cw, ch, vw, vh, cursorX, cursorY int) (int, int) {
	x0 := 0
	y0 := 0

	if vw < cw {
		if cursorX >= vw {
			x0 = cursorX - vw + 1
		}
		if x0 > cw-vw {
			x0 = cw - vw
		}
	}

	if vh < ch {
		if cursorY >= vh {
			y0 = cursorY - vh + 1
		}
		if y0 > ch-vh {
			y0 = ch - vh
		}
	}

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	return x0, y0
}
