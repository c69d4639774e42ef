package emu

import (
	"math/rand"
	"strings"
	"testing"

	"pkt.systems/termsnap/internal/terminal"
)

func newEmu(cols, rows int) *Emulator {
	return New(terminal.Size{Cols: cols, Rows: rows})
}

func TestBasicWriteSnapshot(t *testing.T) {
	emu := newEmu(4, 2)
	if err := emu.Write([]byte("ab")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	snap := emu.Snapshot()
	if got := glyphAt(snap, 0, 0); got != "a" {
		t.Fatalf("cell(0,0) = %q", got)
	}
	if got := glyphAt(snap, 1, 0); got != "b" {
		t.Fatalf("cell(1,0) = %q", got)
	}
	if snap.Cursor != (terminal.Cursor{X: 2, Y: 0}) {
		t.Fatalf("cursor = %+v", snap.Cursor)
	}
}

func TestWrapAndScroll(t *testing.T) {
	emu := newEmu(3, 2)
	_ = emu.Write([]byte("abcdefg"))
	snap := emu.Snapshot()
	if row := snap.Row(0); row != "def" {
		t.Fatalf("row0 = %q", row)
	}
	if row := snap.Row(1); row != "g  " {
		t.Fatalf("row1 = %q", row)
	}
}

func TestPendingWrapAtLastColumn(t *testing.T) {
	emu := newEmu(3, 2)
	_ = emu.Write([]byte("abc"))
	snap := emu.Snapshot()
	if snap.Cursor != (terminal.Cursor{X: 2, Y: 0}) {
		t.Fatalf("cursor = %+v", snap.Cursor)
	}
	_ = emu.Write([]byte("\r\n"))
	snap = emu.Snapshot()
	if snap.Cursor != (terminal.Cursor{X: 0, Y: 1}) {
		t.Fatalf("cursor after CRLF = %+v", snap.Cursor)
	}
}

func TestCursorMovement(t *testing.T) {
	emu := newEmu(5, 1)
	_ = emu.Write([]byte("abc"))
	_ = emu.Write([]byte("\x1b[2D"))
	_ = emu.Write([]byte("Z"))
	if got := emu.Snapshot().Row(0); got[:3] != "aZc" {
		t.Fatalf("row = %q", got)
	}
}

func TestCursorPositionClampsToScreen(t *testing.T) {
	emu := newEmu(10, 5)
	_ = emu.Write([]byte("\x1b[2;3r\x1b[9;99H"))
	snap := emu.Snapshot()
	if snap.Cursor != (terminal.Cursor{X: 9, Y: 4}) {
		t.Fatalf("cursor = %+v", snap.Cursor)
	}
}

func TestCursorStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pieces := []string{
		"\x1b[A", "\x1b[5B", "\x1b[99C", "\x1b[D", "\x1b[H", "\x1b[40;40H",
		"\r", "\n", "\t", "\b", "x", "世", "\x1b[2J", "\x1b[?1049h", "\x1b[?1049l",
		"\x1bM", "\x1bD", "\x1b[3L", "\x1b[2M", "\x1b[4@", "\x1b[2P", "\x1b[1;2r",
		"\x1b[?6h", "\x1b[?6l", "\x1b[r", "\x1b7", "\x1b8", "\xff", "\xe4\xb8",
	}
	emu := newEmu(7, 4)
	for i := 0; i < 5000; i++ {
		_ = emu.Write([]byte(pieces[rng.Intn(len(pieces))]))
		if i%500 == 0 {
			emu.Resize(terminal.Size{Cols: 3 + rng.Intn(8), Rows: 2 + rng.Intn(5)})
		}
		snap := emu.Snapshot()
		if snap.Cursor.X < 0 || snap.Cursor.X >= snap.Cols || snap.Cursor.Y < 0 || snap.Cursor.Y >= snap.Rows {
			t.Fatalf("step %d: cursor %+v outside %dx%d", i, snap.Cursor, snap.Cols, snap.Rows)
		}
		if len(snap.Cells) != snap.Cols*snap.Rows {
			t.Fatalf("step %d: %d cells for %dx%d", i, len(snap.Cells), snap.Cols, snap.Rows)
		}
	}
}

func TestEraseLine(t *testing.T) {
	emu := newEmu(5, 1)
	_ = emu.Write([]byte("hello"))
	_ = emu.Write([]byte("\x1b[2K"))
	if row := emu.Snapshot().Row(0); row != "     " {
		t.Fatalf("row = %q", row)
	}
}

func TestAltScreenSwitch(t *testing.T) {
	emu := newEmu(5, 1)
	_ = emu.Write([]byte("main"))
	_ = emu.Write([]byte("\x1b[?1049h\x1b[H"))
	_ = emu.Write([]byte("alt"))
	snap := emu.Snapshot()
	if !snap.AltScreen {
		t.Fatalf("expected alt screen")
	}
	if got := snap.Row(0); got[:3] != "alt" {
		t.Fatalf("alt row = %q", got)
	}
	_ = emu.Write([]byte("\x1b[?1049l"))
	snap = emu.Snapshot()
	if snap.AltScreen {
		t.Fatalf("expected primary screen")
	}
	if got := snap.Row(0); got[:4] != "main" {
		t.Fatalf("main row = %q", got)
	}
}

func TestFeedStopsAtLeaveAltScreen(t *testing.T) {
	emu := newEmu(6, 2)
	input := []byte("main\x1b[?1049h\x1b[Hdrawn\x1b[?1049ltail")
	var prior *terminal.Snapshot
	for len(input) > 0 {
		res := emu.Feed(input)
		input = input[res.Consumed:]
		if res.PreClear() && prior == nil {
			prior = res.Prior
			if string(input) != "tail" {
				t.Fatalf("remaining input = %q", input)
			}
		}
	}
	if prior == nil {
		t.Fatalf("expected a pre-clear snapshot")
	}
	if !prior.AltScreen {
		t.Fatalf("prior snapshot not taken from alt screen")
	}
	if got := prior.Row(0); got != "drawn " {
		t.Fatalf("prior row = %q", got)
	}
	// The primary cursor is restored after "main", so "tail" wraps.
	if got := emu.Snapshot().Row(0); got != "mainta" {
		t.Fatalf("final row = %q", got)
	}
}

func TestClearOfBlankAltScreenIsNotPreClear(t *testing.T) {
	emu := newEmu(4, 2)
	res := emu.Feed([]byte("\x1b[?1049h"))
	if res.Signal != SignalEnterAltScreen || res.PreClear() {
		t.Fatalf("enter result = %+v", res)
	}
	res = emu.Feed([]byte("\x1b[2J"))
	if res.Signal != SignalClearScreen {
		t.Fatalf("signal = %v", res.Signal)
	}
	if res.PreClear() || res.Prior != nil {
		t.Fatalf("blank clear reported as pre-clear: %+v", res)
	}
	_ = emu.Write([]byte("hi"))
	res = emu.Feed([]byte("\x1b[H\x1b[2J"))
	if !res.PreClear() || res.Prior == nil {
		t.Fatalf("expected pre-clear, got %+v", res)
	}
	if got := res.Prior.Row(0); got != "hi  " {
		t.Fatalf("prior row = %q", got)
	}
	if got := emu.Snapshot().Row(0); got != "    " {
		t.Fatalf("row after clear = %q", got)
	}
}

func TestFeedSplitsAcrossChunks(t *testing.T) {
	emu := newEmu(8, 1)
	for _, chunk := range []string{"\x1b", "[3", "1m", "\xe4", "\xb8", "\x96", "x"} {
		res := emu.Feed([]byte(chunk))
		if res.Consumed != len(chunk) {
			t.Fatalf("consumed %d of %q", res.Consumed, chunk)
		}
	}
	snap := emu.Snapshot()
	cell := cellAt(snap, 0, 0)
	if cell.Glyph != "世" || !cell.Wide {
		t.Fatalf("cell = %+v", cell)
	}
	if idx, ok := cell.FG.Index(); !ok || idx != 1 {
		t.Fatalf("fg = %v", cell.FG)
	}
	if got := glyphAt(snap, 2, 0); got != "x" {
		t.Fatalf("cell2 = %q", got)
	}
}

func TestInvalidUTF8BecomesReplacement(t *testing.T) {
	emu := newEmu(4, 1)
	_ = emu.Write([]byte("\xffa\xe4b"))
	if got := emu.Snapshot().Row(0); got != "�a�b" {
		t.Fatalf("row = %q", got)
	}
}

func TestSGRColors(t *testing.T) {
	emu := newEmu(4, 1)
	_ = emu.Write([]byte("\x1b[31mA\x1b[38;5;200mB\x1b[38;2;1;2;3mC\x1b[48:2::9:8:7mD"))
	snap := emu.Snapshot()
	if idx, ok := cellAt(snap, 0, 0).FG.Index(); !ok || idx != 1 {
		t.Fatalf("A fg = %v", cellAt(snap, 0, 0).FG)
	}
	if idx, ok := cellAt(snap, 1, 0).FG.Index(); !ok || idx != 200 {
		t.Fatalf("B fg = %v", cellAt(snap, 1, 0).FG)
	}
	if rgb, ok := cellAt(snap, 2, 0).FG.RGB(); !ok || rgb != (terminal.RGB{R: 1, G: 2, B: 3}) {
		t.Fatalf("C fg = %v", cellAt(snap, 2, 0).FG)
	}
	if rgb, ok := cellAt(snap, 3, 0).BG.RGB(); !ok || rgb != (terminal.RGB{R: 9, G: 8, B: 7}) {
		t.Fatalf("D bg = %v", cellAt(snap, 3, 0).BG)
	}
}

func TestSGREmptyResetsAttributes(t *testing.T) {
	emu := newEmu(3, 1)
	_ = emu.Write([]byte("\x1b[1;4;7mA\x1b[mB\x1b[9;4:0mC"))
	snap := emu.Snapshot()
	cellA := cellAt(snap, 0, 0)
	cellB := cellAt(snap, 1, 0)
	cellC := cellAt(snap, 2, 0)
	want := terminal.AttrBold | terminal.AttrUnderline | terminal.AttrInverse
	if cellA.Attrs != want {
		t.Fatalf("A attrs = %v", cellA.Attrs)
	}
	if cellB.Attrs != 0 || !cellB.FG.IsDefault() {
		t.Fatalf("expected attributes cleared on second cell: %+v", cellB)
	}
	if cellC.Attrs != terminal.AttrStrikethrough {
		t.Fatalf("C attrs = %v", cellC.Attrs)
	}
}

func TestWideGlyphOccupiesTwoCells(t *testing.T) {
	emu := newEmu(4, 2)
	_ = emu.Write([]byte("a世"))
	snap := emu.Snapshot()
	if !cellAt(snap, 1, 0).Wide || !cellAt(snap, 2, 0).Spacer {
		t.Fatalf("cells = %+v %+v", cellAt(snap, 1, 0), cellAt(snap, 2, 0))
	}
	if snap.Cursor.X != 3 {
		t.Fatalf("cursor = %+v", snap.Cursor)
	}
	// Overwriting the spacer orphans the head, which is blanked.
	_ = emu.Write([]byte("\x1b[1;3Hz"))
	snap = emu.Snapshot()
	if got := snap.Row(0); got != "a z " {
		t.Fatalf("row = %q", got)
	}
}

func TestWideGlyphWrapsEarly(t *testing.T) {
	emu := newEmu(3, 2)
	_ = emu.Write([]byte("ab世"))
	snap := emu.Snapshot()
	if got := snap.Row(0); got != "ab " {
		t.Fatalf("row0 = %q", got)
	}
	if got := glyphAt(snap, 0, 1); got != "世" {
		t.Fatalf("row1 head = %q", got)
	}
}

func TestCombiningMarkJoinsPreviousCell(t *testing.T) {
	emu := newEmu(4, 1)
	_ = emu.Write([]byte("e\u0301x"))
	snap := emu.Snapshot()
	if got := glyphAt(snap, 0, 0); got != "e\u0301" {
		t.Fatalf("cell0 = %q", got)
	}
	if got := glyphAt(snap, 1, 0); got != "x" {
		t.Fatalf("cell1 = %q", got)
	}
}

func TestResizeKeepsOverlapAndClampsCursor(t *testing.T) {
	emu := newEmu(6, 3)
	_ = emu.Write([]byte("abcdef\r\n12\x1b[3;6H"))
	emu.Resize(terminal.Size{Cols: 4, Rows: 2})
	snap := emu.Snapshot()
	if snap.Cols != 4 || snap.Rows != 2 {
		t.Fatalf("size = %dx%d", snap.Cols, snap.Rows)
	}
	if got := snap.Row(0); got != "abcd" {
		t.Fatalf("row0 = %q", got)
	}
	if got := snap.Row(1); got != "12  " {
		t.Fatalf("row1 = %q", got)
	}
	if snap.Cursor != (terminal.Cursor{X: 3, Y: 1}) {
		t.Fatalf("cursor = %+v", snap.Cursor)
	}
}

func TestScrollRegion(t *testing.T) {
	emu := newEmu(3, 4)
	_ = emu.Write([]byte("top\r\n1\r\n2\r\nbot\x1b[2;3r\x1b[3;1H\n\n"))
	snap := emu.Snapshot()
	want := []string{"top", "   ", "   ", "bot"}
	for y, w := range want {
		if got := snap.Row(y); got != w {
			t.Fatalf("row%d = %q, want %q", y, got, w)
		}
	}
}

func TestDeviceReplies(t *testing.T) {
	emu := newEmu(10, 5)
	_ = emu.Write([]byte("\x1b[3;4H\x1b[6n\x1b[c\x1b[5n"))
	if got := string(emu.TakeReplies()); got != "\x1b[3;4R\x1b[?6c\x1b[0n" {
		t.Fatalf("replies = %q", got)
	}
	if got := emu.TakeReplies(); got != nil {
		t.Fatalf("replies not cleared: %q", got)
	}
}

func TestTitleFromOSC(t *testing.T) {
	emu := newEmu(4, 1)
	_ = emu.Write([]byte("\x1b]0;hello\x07\x1b]2;world\x1b\\"))
	if got := emu.Snapshot().Title; got != "world" {
		t.Fatalf("title = %q", got)
	}
}

func TestTabStops(t *testing.T) {
	emu := newEmu(10, 1)
	_ = emu.Write([]byte("a\tb"))
	snap := emu.Snapshot()
	if got := glyphAt(snap, 0, 0); got != "a" {
		t.Fatalf("cell0 = %q", got)
	}
	if got := glyphAt(snap, 8, 0); got != "b" {
		t.Fatalf("cell8 = %q", got)
	}
}

func TestLineDrawingCharset(t *testing.T) {
	emu := newEmu(2, 1)
	_ = emu.Write([]byte("\x1b)0\x0eq\x0fq"))
	if got := emu.Snapshot().Row(0); got != "─q" {
		t.Fatalf("row = %q", got)
	}
}

func TestCRLFMovesToNextLine(t *testing.T) {
	emu := newEmu(4, 3)
	_ = emu.Write([]byte("one\r\ntwo\r\n"))
	snap := emu.Snapshot()
	if row := snap.Row(0); !strings.HasPrefix(row, "one") {
		t.Fatalf("row0 = %q", row)
	}
	if row := snap.Row(1); !strings.HasPrefix(row, "two") {
		t.Fatalf("row1 = %q", row)
	}
}

func TestResetRaisesSignal(t *testing.T) {
	emu := newEmu(4, 1)
	res := emu.Feed([]byte("ab\x1bccd"))
	if res.Signal != SignalReset || res.Consumed != 4 {
		t.Fatalf("result = %+v", res)
	}
	_ = emu.Write([]byte("cd"))
	if got := emu.Snapshot().Row(0); got != "cd  " {
		t.Fatalf("row = %q", got)
	}
}

func glyphAt(s terminal.Snapshot, x, y int) string {
	return cellAt(s, x, y).Glyph
}

func cellAt(s terminal.Snapshot, x, y int) terminal.Cell {
	cell, err := s.CellAt(x, y)
	if err != nil {
		return terminal.Cell{Glyph: " "}
	}
	return cell
}
