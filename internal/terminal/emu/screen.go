package emu

import "pkt.systems/termsnap/internal/terminal"

// screen is one buffer of the grid. The emulator owns two of them: primary
// and alternate.
type screen struct {
	cols int
	rows int

	cells        []terminal.Cell
	cursor       terminal.Cursor
	savedCursor  terminal.Cursor
	savedAttr    cellAttr
	scrollTop    int
	scrollBottom int

	// written is set once a glyph lands on the buffer and cleared by a full
	// erase.
	written bool
}

func newScreen(cols, rows int) screen {
	s := screen{
		cols:         cols,
		rows:         rows,
		cells:        make([]terminal.Cell, cols*rows),
		scrollTop:    0,
		scrollBottom: rows - 1,
	}
	s.clearAll(blank)
	return s
}

var blank = terminal.Blank(terminal.ColorDefault, terminal.ColorDefault, 0)

func (s screen) resize(cols, rows int) screen {
	next := newScreen(cols, rows)
	minCols := min(cols, s.cols)
	minRows := min(rows, s.rows)
	for y := 0; y < minRows; y++ {
		copy(next.cells[y*cols:y*cols+minCols], s.cells[y*s.cols:y*s.cols+minCols])
	}
	for y := 0; y < minRows; y++ {
		// A wide glyph cut in half by the new right margin becomes blank.
		next.repairWide(minCols, y)
	}
	next.written = s.written
	next.cursor = clampCursor(s.cursor, cols, rows)
	next.savedCursor = clampCursor(s.savedCursor, cols, rows)
	next.savedAttr = s.savedAttr
	return next
}

func clampCursor(c terminal.Cursor, cols, rows int) terminal.Cursor {
	c.X = clamp(c.X, 0, cols-1)
	c.Y = clamp(c.Y, 0, rows-1)
	return c
}

func (s *screen) saveCursor(attr cellAttr) {
	s.savedCursor = s.cursor
	s.savedAttr = attr
}

func (s *screen) restoreCursor() cellAttr {
	s.cursor = clampCursor(s.savedCursor, s.cols, s.rows)
	return s.savedAttr
}

func (s *screen) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.cols && y < s.rows
}

func (s *screen) index(x, y int) int {
	return y*s.cols + x
}

func (s *screen) clearAll(fill terminal.Cell) {
	for i := range s.cells {
		s.cells[i] = fill
	}
	s.written = false
}

func (s *screen) clearLine(y, x0, x1 int, fill terminal.Cell) {
	if y < 0 || y >= s.rows {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 >= s.cols {
		x1 = s.cols - 1
	}
	if x0 > x1 {
		return
	}
	for x := x0; x <= x1; x++ {
		s.cells[s.index(x, y)] = fill
	}
	s.repairWide(x0, y)
	s.repairWide(x1+1, y)
}

// repairWide blanks the half of a wide glyph left behind when an edit
// boundary falls between its two columns. x is the first column to the
// right of the boundary.
func (s *screen) repairWide(x, y int) {
	if x < 0 || x > s.cols || y < 0 || y >= s.rows {
		return
	}
	if x < s.cols {
		right := s.index(x, y)
		if s.cells[right].Spacer && (x == 0 || !s.cells[right-1].Wide) {
			s.cells[right] = withGlyph(s.cells[right], " ")
		}
	}
	if x > 0 {
		left := s.index(x-1, y)
		if s.cells[left].Wide && (x == s.cols || !s.cells[left+1].Spacer) {
			s.cells[left] = withGlyph(s.cells[left], " ")
		}
	}
}

func withGlyph(c terminal.Cell, g string) terminal.Cell {
	c.Glyph = g
	c.Spacer = false
	c.Wide = false
	return c
}

func (s *screen) scrollUp(n int, fill terminal.Cell) {
	if n < 1 {
		return
	}
	top := max(s.scrollTop, 0)
	bottom := min(s.scrollBottom, s.rows-1)
	height := bottom - top + 1
	if n > height {
		n = height
	}
	cols := s.cols
	copy(s.cells[top*cols:], s.cells[(top+n)*cols:(bottom+1)*cols])
	for y := bottom - n + 1; y <= bottom; y++ {
		for x := 0; x < cols; x++ {
			s.cells[s.index(x, y)] = fill
		}
	}
}

func (s *screen) scrollDown(n int, fill terminal.Cell) {
	if n < 1 {
		return
	}
	top := max(s.scrollTop, 0)
	bottom := min(s.scrollBottom, s.rows-1)
	height := bottom - top + 1
	if n > height {
		n = height
	}
	cols := s.cols
	for y := bottom; y >= top+n; y-- {
		copy(s.cells[y*cols:(y+1)*cols], s.cells[(y-n)*cols:(y-n+1)*cols])
	}
	for y := top; y < top+n; y++ {
		for x := 0; x < cols; x++ {
			s.cells[s.index(x, y)] = fill
		}
	}
}

func (s *screen) insertLines(row, n int, fill terminal.Cell) {
	if row < s.scrollTop || row > s.scrollBottom {
		return
	}
	if n < 1 {
		return
	}
	if n > s.scrollBottom-row+1 {
		n = s.scrollBottom - row + 1
	}
	cols := s.cols
	for y := s.scrollBottom; y >= row+n; y-- {
		copy(s.cells[y*cols:(y+1)*cols], s.cells[(y-n)*cols:(y-n+1)*cols])
	}
	for y := row; y < row+n; y++ {
		for x := 0; x < cols; x++ {
			s.cells[s.index(x, y)] = fill
		}
	}
}

func (s *screen) deleteLines(row, n int, fill terminal.Cell) {
	if row < s.scrollTop || row > s.scrollBottom {
		return
	}
	if n < 1 {
		return
	}
	if n > s.scrollBottom-row+1 {
		n = s.scrollBottom - row + 1
	}
	cols := s.cols
	for y := row; y <= s.scrollBottom-n; y++ {
		copy(s.cells[y*cols:(y+1)*cols], s.cells[(y+n)*cols:(y+n+1)*cols])
	}
	for y := s.scrollBottom - n + 1; y <= s.scrollBottom; y++ {
		for x := 0; x < cols; x++ {
			s.cells[s.index(x, y)] = fill
		}
	}
}

func (s *screen) insertChars(row, col, n int, fill terminal.Cell) {
	if row < 0 || row >= s.rows {
		return
	}
	if n < 1 {
		return
	}
	if col < 0 {
		col = 0
	}
	if col >= s.cols {
		return
	}
	if n > s.cols-col {
		n = s.cols - col
	}
	start := s.index(col, row)
	end := s.index(s.cols-1, row) + 1
	copy(s.cells[start+n:end], s.cells[start:end-n])
	for x := col; x < col+n; x++ {
		s.cells[s.index(x, row)] = fill
	}
	s.repairWide(col, row)
	s.repairWide(col+n, row)
	s.repairWide(s.cols, row)
}

func (s *screen) deleteChars(row, col, n int, fill terminal.Cell) {
	if row < 0 || row >= s.rows {
		return
	}
	if n < 1 {
		return
	}
	if col < 0 {
		col = 0
	}
	if col >= s.cols {
		return
	}
	if n > s.cols-col {
		n = s.cols - col
	}
	start := s.index(col, row)
	end := s.index(s.cols-1, row) + 1
	copy(s.cells[start:end-n], s.cells[start+n:end])
	for x := s.cols - n; x < s.cols; x++ {
		s.cells[s.index(x, row)] = fill
	}
	s.repairWide(col, row)
}
