package emu

import (
	"strconv"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"pkt.systems/termsnap/internal/terminal"
)

// maxReplies caps queued terminal replies that nobody collects.
const maxReplies = 4096

// Emulator implements a VT-style terminal emulator over a primary and an
// alternate screen buffer.
type Emulator struct {
	cols int
	rows int

	main screen
	alt  screen
	scr  *screen

	cursorVisible bool
	title         string

	wrapPending bool
	wrapMode    bool
	originMode  bool
	insertMode  bool
	newLineMode bool

	attr cellAttr

	parser parserState

	tabStops []bool

	g0LineDrawing bool
	g1LineDrawing bool
	useG1         bool

	// last printed glyph, for joining combining marks and ZWJ sequences.
	lastX     int
	lastY     int
	lastValid bool

	replies []byte
	pending Result
}

type cellAttr struct {
	attrs terminal.Attr
	fg    terminal.Color
	bg    terminal.Color
}

// New constructs a new VT emulator with the given size.
func New(size terminal.Size) *Emulator {
	cols, rows := size.Cols, size.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	e := &Emulator{
		cols:          cols,
		rows:          rows,
		cursorVisible: true,
		wrapMode:      true,
	}
	e.main = newScreen(cols, rows)
	e.alt = newScreen(cols, rows)
	e.scr = &e.main
	e.tabStops = defaultTabs(cols)
	e.resetAttributes()
	return e
}

// Write feeds terminal output into the emulator. Malformed input is ignored,
// so the returned error is always nil.
func (e *Emulator) Write(p []byte) error {
	for len(p) > 0 {
		res := e.Feed(p)
		p = p[res.Consumed:]
	}
	return nil
}

// Feed consumes bytes until p is exhausted or a sequence raising a Signal has
// been dispatched, whichever comes first. A trailing partial sequence is kept
// for the next call.
func (e *Emulator) Feed(p []byte) Result {
	for i, b := range p {
		e.consumeByte(b)
		if e.pending.Signal != SignalNone {
			res := e.pending
			res.Consumed = i + 1
			e.pending = Result{}
			return res
		}
	}
	return Result{Consumed: len(p)}
}

// Resize changes the emulator size.
func (e *Emulator) Resize(size terminal.Size) {
	if !size.Valid() {
		return
	}
	e.cols = size.Cols
	e.rows = size.Rows
	e.main = e.main.resize(size.Cols, size.Rows)
	e.alt = e.alt.resize(size.Cols, size.Rows)
	e.tabStops = defaultTabs(size.Cols)
	e.wrapPending = false
	e.lastValid = false
	e.ensureCursorInBounds()
}

// Size returns the current geometry.
func (e *Emulator) Size() terminal.Size {
	return terminal.Size{Rows: e.rows, Cols: e.cols}
}

// AltScreen reports whether the alternate buffer is active.
func (e *Emulator) AltScreen() bool {
	return e.scr == &e.alt
}

// Snapshot captures the active buffer.
func (e *Emulator) Snapshot() terminal.Snapshot {
	cells := make([]terminal.Cell, len(e.scr.cells))
	copy(cells, e.scr.cells)
	return terminal.Snapshot{
		Cols:          e.cols,
		Rows:          e.rows,
		Cursor:        e.scr.cursor,
		CursorVisible: e.cursorVisible,
		AltScreen:     e.AltScreen(),
		Title:         e.title,
		Cells:         cells,
	}
}

// TakeReplies returns and clears the bytes the terminal would send back to
// the program, such as device attribute and cursor position reports.
func (e *Emulator) TakeReplies() []byte {
	if len(e.replies) == 0 {
		return nil
	}
	out := e.replies
	e.replies = nil
	return out
}

func (e *Emulator) reply(s string) {
	if len(e.replies)+len(s) > maxReplies {
		return
	}
	e.replies = append(e.replies, s...)
}

func (e *Emulator) consumeByte(b byte) {
	switch e.parser.state {
	case stateGround:
		e.handleGround(b)
	case stateEscape:
		e.handleEscape(b)
	case stateCSI:
		e.handleCSIByte(b)
	case stateOSC:
		e.handleOSCByte(b)
	case stateString:
		e.handleStringByte(b)
	case stateCharset:
		e.handleCharsetByte(b)
	default:
		e.parser.state = stateGround
	}
}

func (e *Emulator) handleGround(b byte) {
	if b < 0x20 || b == 0x7f {
		e.flushUTF8()
		if b == 0x1b { // ESC
			e.lastValid = false
			e.parser.state = stateEscape
			return
		}
		e.handleControl(b)
		return
	}
	e.handlePrintableByte(b)
}

func (e *Emulator) handleEscape(b byte) {
	e.parser.state = stateGround
	switch b {
	case '[':
		e.parser.resetCSI()
		e.parser.state = stateCSI
	case ']':
		e.parser.resetOSC()
		e.parser.state = stateOSC
	case 'P', 'X', '^', '_':
		e.parser.resetString()
		e.parser.state = stateString
	case '7':
		e.scr.saveCursor(e.attr)
	case '8':
		e.attr = e.scr.restoreCursor()
		e.wrapPending = false
	case 'D':
		e.index()
	case 'M':
		e.reverseIndex()
	case 'E':
		e.newLine(true)
	case 'c':
		e.reset()
	case 'H':
		e.setTabStop()
	case '(':
		e.parser.charsetTarget = 0
		e.parser.state = stateCharset
	case ')':
		e.parser.charsetTarget = 1
		e.parser.state = stateCharset
	case 0x1b:
		e.parser.state = stateEscape
	default:
		// Ignore unknown escape.
	}
}

func (e *Emulator) handleCSIByte(b byte) {
	if b >= 0x40 && b <= 0x7e {
		prefix := e.parser.prefix
		intermediate := e.parser.intermediate
		params := e.parser.finalizeParams()
		e.parser.state = stateGround
		if intermediate {
			return
		}
		e.handleCSI(b, params, prefix)
		return
	}
	switch {
	case (b == '?' || b == '>' || b == '=' || b == '<') && !e.parser.paramSeen && e.parser.prefix == 0:
		e.parser.prefix = b
	case b >= '0' && b <= '9':
		e.parser.addDigit(int(b - '0'))
	case b == ';':
		e.parser.nextParam(false)
	case b == ':':
		e.parser.nextParam(true)
	case b >= 0x20 && b <= 0x2f:
		e.parser.intermediate = true
	case b == 0x1b:
		e.parser.state = stateEscape
	case b == 0x18 || b == 0x1a: // CAN, SUB abort the sequence
		e.parser.resetCSI()
		e.parser.state = stateGround
	case b < 0x20:
		// C0 controls execute inside a CSI sequence.
		e.handleControl(b)
	}
}

func (e *Emulator) handleOSCByte(b byte) {
	if e.parser.oscEsc {
		e.parser.oscEsc = false
		if b == '\\' {
			e.parser.state = stateGround
			e.handleOSC()
			return
		}
		// ESC that is not a string terminator aborts the string and starts
		// a new escape sequence.
		e.parser.resetOSC()
		e.parser.state = stateEscape
		e.handleEscape(b)
		return
	}
	switch b {
	case 0x1b:
		e.parser.oscEsc = true
	case 0x07:
		e.parser.state = stateGround
		e.handleOSC()
	default:
		if len(e.parser.oscBuf) < maxReplies {
			e.parser.oscBuf = append(e.parser.oscBuf, b)
		}
	}
}

func (e *Emulator) handleStringByte(b byte) {
	if e.parser.oscEsc {
		e.parser.oscEsc = false
		if b == '\\' {
			e.parser.state = stateGround
		}
		return
	}
	if b == 0x1b {
		e.parser.oscEsc = true
	}
}

func (e *Emulator) handleControl(b byte) {
	e.lastValid = false
	switch b {
	case 0x07: // BEL
	case 0x08: // BS
		e.moveCursor(-1, 0)
	case 0x09: // TAB
		e.tab()
	case 0x0a, 0x0b, 0x0c: // LF, VT, FF
		e.newLine(false)
	case 0x0d: // CR
		e.scr.cursor.X = 0
		e.wrapPending = false
	case 0x0e: // SO
		e.useG1 = true
	case 0x0f: // SI
		e.useG1 = false
	default:
	}
}

func (e *Emulator) handlePrintableByte(b byte) {
	if b < utf8.RuneSelf {
		e.flushUTF8()
		e.printRune(rune(b))
		return
	}
	if len(e.parser.utf8Buf) > 0 && !utf8.RuneStart(b) {
		e.parser.utf8Buf = append(e.parser.utf8Buf, b)
	} else {
		e.flushUTF8()
		e.parser.utf8Buf = append(e.parser.utf8Buf, b)
	}
	if utf8.FullRune(e.parser.utf8Buf) {
		r, _ := utf8.DecodeRune(e.parser.utf8Buf)
		e.parser.utf8Buf = e.parser.utf8Buf[:0]
		e.printRune(r)
	}
}

// flushUTF8 prints a replacement character for an interrupted multi-byte
// sequence.
func (e *Emulator) flushUTF8() {
	if len(e.parser.utf8Buf) == 0 {
		return
	}
	e.parser.utf8Buf = e.parser.utf8Buf[:0]
	e.printRune(utf8.RuneError)
}

func (e *Emulator) handleOSC() {
	code, payload := parseOSC(e.parser.oscBuf)
	if code == 0 || code == 2 {
		e.title = payload
	}
	e.parser.resetOSC()
}

func (e *Emulator) handleCharsetByte(b byte) {
	switch e.parser.charsetTarget {
	case 0:
		e.g0LineDrawing = b == '0'
	case 1:
		e.g1LineDrawing = b == '0'
	}
	e.parser.state = stateGround
}

func (e *Emulator) handleCSI(final byte, params csiParams, prefix byte) {
	e.lastValid = false
	switch prefix {
	case '?':
		switch final {
		case 'h':
			e.setMode(params, true, true)
		case 'l':
			e.setMode(params, true, false)
		}
		return
	case '>':
		if final == 'c' && param(params, 0, 0) == 0 {
			e.reply("\x1b[>0;10;1c")
		}
		return
	case 0:
	default:
		return
	}
	switch final {
	case 'A':
		e.cursorUp(param(params, 0, 1))
	case 'B', 'e':
		e.cursorDown(param(params, 0, 1))
	case 'C', 'a':
		e.cursorForward(param(params, 0, 1))
	case 'D':
		e.cursorBackward(param(params, 0, 1))
	case 'E':
		e.cursorDown(param(params, 0, 1))
		e.scr.cursor.X = 0
	case 'F':
		e.cursorUp(param(params, 0, 1))
		e.scr.cursor.X = 0
	case 'G', '`':
		e.cursorHorizontal(param(params, 0, 1))
	case 'H', 'f':
		row := param(params, 0, 1)
		col := param(params, 1, 1)
		e.cursorPosition(row, col)
	case 'I':
		for n := param(params, 0, 1); n > 0; n-- {
			e.tab()
		}
	case 'J':
		e.eraseDisplay(max(params.values[0], 0))
	case 'K':
		e.eraseLine(max(params.values[0], 0))
	case 'L':
		e.insertLines(param(params, 0, 1))
	case 'M':
		e.deleteLines(param(params, 0, 1))
	case '@':
		e.insertChars(param(params, 0, 1))
	case 'P':
		e.deleteChars(param(params, 0, 1))
	case 'X':
		e.eraseChars(param(params, 0, 1))
	case 'S':
		e.scrollUp(param(params, 0, 1))
	case 'T':
		e.scrollDown(param(params, 0, 1))
	case 'm':
		e.selectGraphicRendition(params)
	case 'r':
		e.setScrollRegion(params)
	case 's':
		e.scr.saveCursor(e.attr)
	case 'u':
		e.attr = e.scr.restoreCursor()
		e.wrapPending = false
	case 'g':
		e.clearTabStops(max(params.values[0], 0))
	case 'h':
		e.setMode(params, false, true)
	case 'l':
		e.setMode(params, false, false)
	case 'd':
		row := param(params, 0, 1)
		e.cursorPosition(row, e.scr.cursor.X+1)
	case 'c':
		if param(params, 0, 0) == 0 {
			e.reply("\x1b[?6c")
		}
	case 'n':
		e.deviceStatus(param(params, 0, 0))
	}
}

func (e *Emulator) deviceStatus(mode int) {
	switch mode {
	case 5:
		e.reply("\x1b[0n")
	case 6:
		y := e.scr.cursor.Y
		if e.originMode {
			y -= e.scr.scrollTop
		}
		e.reply("\x1b[" + strconv.Itoa(y+1) + ";" + strconv.Itoa(e.scr.cursor.X+1) + "R")
	}
}

func (e *Emulator) printRune(r rune) {
	r = e.translateRune(r)
	if r >= utf8.RuneSelf && e.joinGrapheme(r) {
		return
	}
	if e.wrapPending {
		e.wrapPending = false
		if e.wrapMode {
			e.newLine(true)
		}
	}

	width := runewidth.RuneWidth(r)
	if width <= 0 {
		// A zero-width rune with nothing to attach to is dropped.
		return
	}
	if width > e.cols {
		width = 1
	}

	if width == 2 && e.scr.cursor.X == e.cols-1 {
		if !e.wrapMode {
			return
		}
		e.setCell(e.scr.cursor.X, e.scr.cursor.Y, " ", 1)
		e.newLine(true)
	}

	if e.insertMode {
		e.insertChars(width)
	}

	e.setCell(e.scr.cursor.X, e.scr.cursor.Y, string(r), width)
	e.lastX, e.lastY, e.lastValid = e.scr.cursor.X, e.scr.cursor.Y, true

	e.scr.cursor.X += width
	if e.scr.cursor.X >= e.cols {
		e.scr.cursor.X = e.cols - 1
		if e.wrapMode {
			e.wrapPending = true
		}
	}
}

// joinGrapheme appends r to the previously printed glyph when the two form a
// single extended grapheme cluster.
func (e *Emulator) joinGrapheme(r rune) bool {
	if !e.lastValid || !e.scr.inBounds(e.lastX, e.lastY) {
		return false
	}
	idx := e.scr.index(e.lastX, e.lastY)
	cell := &e.scr.cells[idx]
	if cell.Spacer || cell.Glyph == "" {
		return false
	}
	joined := cell.Glyph + string(r)
	if uniseg.GraphemeClusterCount(joined) != 1 {
		return false
	}
	cell.Glyph = joined
	return true
}

func (e *Emulator) translateRune(r rune) rune {
	if r < 0x20 || r > 0x7e {
		return r
	}
	lineDrawing := e.g0LineDrawing
	if e.useG1 {
		lineDrawing = e.g1LineDrawing
	}
	if !lineDrawing {
		return r
	}
	return mapLineDrawing(r)
}

func (e *Emulator) setCell(x, y int, glyph string, width int) {
	if !e.scr.inBounds(x, y) {
		return
	}
	idx := e.scr.index(x, y)
	e.scr.cells[idx] = terminal.Cell{
		Glyph: glyph,
		Wide:  width == 2 && x+1 < e.cols,
		FG:    e.attr.fg,
		BG:    e.attr.bg,
		Attrs: e.attr.attrs,
	}
	e.scr.written = true
	if width == 2 && x+1 < e.cols {
		e.scr.cells[idx+1] = terminal.Cell{
			Spacer: true,
			FG:     e.attr.fg,
			BG:     e.attr.bg,
			Attrs:  e.attr.attrs,
		}
		e.scr.repairWide(x+width, y)
	} else {
		e.scr.repairWide(x+1, y)
	}
	e.scr.repairWide(x, y)
}

func (e *Emulator) setTabStop() {
	if e.scr.cursor.X >= 0 && e.scr.cursor.X < len(e.tabStops) {
		e.tabStops[e.scr.cursor.X] = true
	}
}

func (e *Emulator) clearTabStops(mode int) {
	switch mode {
	case 0:
		if e.scr.cursor.X >= 0 && e.scr.cursor.X < len(e.tabStops) {
			e.tabStops[e.scr.cursor.X] = false
		}
	case 3:
		e.tabStops = make([]bool, e.cols)
	}
}

func (e *Emulator) tab() {
	next := e.cols - 1
	for i := e.scr.cursor.X + 1; i < len(e.tabStops); i++ {
		if e.tabStops[i] {
			next = i
			break
		}
	}
	e.scr.cursor.X = next
	e.wrapPending = false
}

func (e *Emulator) cursorPosition(row, col int) {
	if row < 1 {
		row = 1
	}
	if col < 1 {
		col = 1
	}
	y := row - 1
	maxY := e.rows - 1
	if e.originMode {
		y += e.scr.scrollTop
		maxY = e.scr.scrollBottom
	}
	e.scr.cursor.X = clamp(col-1, 0, e.cols-1)
	e.scr.cursor.Y = clamp(y, 0, maxY)
	e.wrapPending = false
}

func (e *Emulator) cursorHorizontal(col int) {
	e.scr.cursor.X = clamp(col-1, 0, e.cols-1)
	e.wrapPending = false
}

func (e *Emulator) cursorUp(n int) {
	minY := 0
	if e.scr.cursor.Y >= e.scr.scrollTop {
		minY = e.scr.scrollTop
	}
	e.scr.cursor.Y = clamp(e.scr.cursor.Y-n, minY, e.rows-1)
	e.wrapPending = false
}

func (e *Emulator) cursorDown(n int) {
	maxY := e.rows - 1
	if e.scr.cursor.Y <= e.scr.scrollBottom {
		maxY = e.scr.scrollBottom
	}
	e.scr.cursor.Y = clamp(e.scr.cursor.Y+n, 0, maxY)
	e.wrapPending = false
}

func (e *Emulator) cursorForward(n int) {
	e.scr.cursor.X = clamp(e.scr.cursor.X+n, 0, e.cols-1)
	e.wrapPending = false
}

func (e *Emulator) cursorBackward(n int) {
	e.scr.cursor.X = clamp(e.scr.cursor.X-n, 0, e.cols-1)
	e.wrapPending = false
}

func (e *Emulator) moveCursor(dx, dy int) {
	e.scr.cursor.X = clamp(e.scr.cursor.X+dx, 0, e.cols-1)
	e.scr.cursor.Y = clamp(e.scr.cursor.Y+dy, 0, e.rows-1)
	e.wrapPending = false
}

func (e *Emulator) newLine(withCR bool) {
	if withCR || e.newLineMode {
		e.scr.cursor.X = 0
	}
	switch {
	case e.scr.cursor.Y == e.scr.scrollBottom:
		e.scrollUp(1)
	case e.scr.cursor.Y < e.rows-1:
		e.scr.cursor.Y++
	}
	e.wrapPending = false
}

func (e *Emulator) index() {
	e.newLine(false)
}

func (e *Emulator) reverseIndex() {
	if e.scr.cursor.Y == e.scr.scrollTop {
		e.scrollDown(1)
		return
	}
	if e.scr.cursor.Y > 0 {
		e.scr.cursor.Y--
	}
	e.wrapPending = false
}

func (e *Emulator) scrollUp(n int) {
	e.scr.scrollUp(max(n, 1), e.blankCell())
}

func (e *Emulator) scrollDown(n int) {
	e.scr.scrollDown(max(n, 1), e.blankCell())
}

func (e *Emulator) eraseDisplay(mode int) {
	switch mode {
	case 0:
		e.eraseLine(0)
		for y := e.scr.cursor.Y + 1; y < e.rows; y++ {
			e.scr.clearLine(y, 0, e.cols-1, e.blankCell())
		}
	case 1:
		for y := 0; y < e.scr.cursor.Y; y++ {
			e.scr.clearLine(y, 0, e.cols-1, e.blankCell())
		}
		e.eraseLine(1)
	case 2:
		e.raise(SignalClearScreen)
		e.scr.clearAll(e.blankCell())
	case 3:
		// No scrollback is kept, so there is nothing to erase.
	}
}

func (e *Emulator) eraseLine(mode int) {
	switch mode {
	case 0:
		e.scr.clearLine(e.scr.cursor.Y, e.scr.cursor.X, e.cols-1, e.blankCell())
	case 1:
		e.scr.clearLine(e.scr.cursor.Y, 0, e.scr.cursor.X, e.blankCell())
	case 2:
		e.scr.clearLine(e.scr.cursor.Y, 0, e.cols-1, e.blankCell())
	}
	e.wrapPending = false
}

func (e *Emulator) insertLines(n int) {
	e.scr.insertLines(e.scr.cursor.Y, max(n, 1), e.blankCell())
	e.scr.cursor.X = 0
	e.wrapPending = false
}

func (e *Emulator) deleteLines(n int) {
	e.scr.deleteLines(e.scr.cursor.Y, max(n, 1), e.blankCell())
	e.scr.cursor.X = 0
	e.wrapPending = false
}

func (e *Emulator) insertChars(n int) {
	e.scr.insertChars(e.scr.cursor.Y, e.scr.cursor.X, max(n, 1), e.blankCell())
}

func (e *Emulator) deleteChars(n int) {
	e.scr.deleteChars(e.scr.cursor.Y, e.scr.cursor.X, max(n, 1), e.blankCell())
	e.wrapPending = false
}

func (e *Emulator) eraseChars(n int) {
	e.scr.clearLine(e.scr.cursor.Y, e.scr.cursor.X, e.scr.cursor.X+max(n, 1)-1, e.blankCell())
	e.wrapPending = false
}

func (e *Emulator) setScrollRegion(params csiParams) {
	top := param(params, 0, 1) - 1
	bottom := param(params, 1, e.rows) - 1
	if top < 0 {
		top = 0
	}
	if bottom >= e.rows {
		bottom = e.rows - 1
	}
	if top >= bottom {
		e.scr.scrollTop = 0
		e.scr.scrollBottom = e.rows - 1
	} else {
		e.scr.scrollTop = top
		e.scr.scrollBottom = bottom
	}
	e.cursorPosition(1, 1)
}

func (e *Emulator) setMode(params csiParams, private, enable bool) {
	if private {
		for _, p := range params.values {
			switch p {
			case 7:
				e.wrapMode = enable
				if !enable {
					e.wrapPending = false
				}
			case 25:
				e.cursorVisible = enable
			case 6:
				e.originMode = enable
				e.cursorPosition(1, 1)
			case 47, 1047, 1049:
				e.setAltScreen(enable, p == 1049)
			}
		}
		return
	}
	for _, p := range params.values {
		switch p {
		case 4:
			e.insertMode = enable
		case 20:
			e.newLineMode = enable
		}
	}
}

func (e *Emulator) setAltScreen(enable bool, saveCursor bool) {
	if enable {
		if e.AltScreen() {
			return
		}
		e.raise(SignalEnterAltScreen)
		if saveCursor {
			e.main.saveCursor(e.attr)
		}
		e.alt.clearAll(e.blankCell())
		e.alt.cursor = e.main.cursor
		e.alt.scrollTop, e.alt.scrollBottom = 0, e.rows-1
		e.scr = &e.alt
	} else {
		if !e.AltScreen() {
			return
		}
		e.raise(SignalLeaveAltScreen)
		e.scr = &e.main
		if saveCursor {
			e.attr = e.main.restoreCursor()
		}
	}
	e.wrapPending = false
}

func (e *Emulator) selectGraphicRendition(params csiParams) {
	vals := params.values
	for i := 0; i < len(vals); i++ {
		p := max(vals[i], 0)
		// Colon sub-parameters belonging to this parameter.
		end := i + 1
		for end < len(vals) && end < len(params.sub) && params.sub[end] {
			end++
		}
		subs := vals[i+1 : end]
		switch {
		case p == 0:
			e.resetAttributes()
		case p == 1:
			e.attr.attrs |= terminal.AttrBold
		case p == 2:
			e.attr.attrs |= terminal.AttrFaint
		case p == 3:
			e.attr.attrs |= terminal.AttrItalic
		case p == 4:
			if len(subs) > 0 && subs[0] == 0 {
				e.attr.attrs &^= terminal.AttrUnderline
			} else {
				e.attr.attrs |= terminal.AttrUnderline
			}
		case p == 5 || p == 6:
			e.attr.attrs |= terminal.AttrBlink
		case p == 7:
			e.attr.attrs |= terminal.AttrInverse
		case p == 8:
			e.attr.attrs |= terminal.AttrHidden
		case p == 9:
			e.attr.attrs |= terminal.AttrStrikethrough
		case p == 21:
			e.attr.attrs |= terminal.AttrUnderline
		case p == 22:
			e.attr.attrs &^= terminal.AttrBold | terminal.AttrFaint
		case p == 23:
			e.attr.attrs &^= terminal.AttrItalic
		case p == 24:
			e.attr.attrs &^= terminal.AttrUnderline
		case p == 25:
			e.attr.attrs &^= terminal.AttrBlink
		case p == 27:
			e.attr.attrs &^= terminal.AttrInverse
		case p == 28:
			e.attr.attrs &^= terminal.AttrHidden
		case p == 29:
			e.attr.attrs &^= terminal.AttrStrikethrough
		case p >= 30 && p <= 37:
			e.attr.fg = terminal.Indexed(uint8(p - 30))
		case p == 39:
			e.attr.fg = terminal.ColorDefault
		case p >= 40 && p <= 47:
			e.attr.bg = terminal.Indexed(uint8(p - 40))
		case p == 49:
			e.attr.bg = terminal.ColorDefault
		case p >= 90 && p <= 97:
			e.attr.fg = terminal.Indexed(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			e.attr.bg = terminal.Indexed(uint8(p - 100 + 8))
		case p == 38 || p == 48 || p == 58:
			var color terminal.Color
			var ok bool
			if len(subs) > 0 {
				color, ok = extendedColor(subs, true)
			} else {
				var used int
				color, used, ok = extendedColorSemicolon(vals[i+1:])
				end = i + 1 + used
			}
			if ok {
				switch p {
				case 38:
					e.attr.fg = color
				case 48:
					e.attr.bg = color
				}
			}
		}
		i = end - 1
	}
}

// extendedColor decodes the colon form "38:5:n" or "38:2:[cs]:r:g:b".
func extendedColor(subs []int, colon bool) (terminal.Color, bool) {
	if len(subs) == 0 {
		return 0, false
	}
	switch subs[0] {
	case 5:
		if len(subs) < 2 || subs[1] < 0 {
			return 0, false
		}
		return terminal.Indexed(uint8(clamp(subs[1], 0, 255))), true
	case 2:
		rgb := subs[1:]
		if colon && len(rgb) >= 4 {
			// Colour space identifier precedes the components.
			rgb = rgb[1:]
		}
		if len(rgb) < 3 {
			return 0, false
		}
		return terminal.TrueColor(channel(rgb[0]), channel(rgb[1]), channel(rgb[2])), true
	}
	return 0, false
}

// extendedColorSemicolon decodes "38;5;n" and "38;2;r;g;b" and reports how
// many parameters it consumed.
func extendedColorSemicolon(rest []int) (terminal.Color, int, bool) {
	if len(rest) == 0 {
		return 0, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return 0, len(rest), false
		}
		c, ok := extendedColor(rest[:2], false)
		return c, 2, ok
	case 2:
		if len(rest) < 4 {
			return 0, len(rest), false
		}
		c, ok := extendedColor(rest[:4], false)
		return c, 4, ok
	}
	return 0, 1, false
}

func channel(v int) uint8 {
	return uint8(clamp(v, 0, 255))
}

func (e *Emulator) blankCell() terminal.Cell {
	return terminal.Blank(e.attr.fg, e.attr.bg, 0)
}

func (e *Emulator) resetAttributes() {
	e.attr = cellAttr{
		fg: terminal.ColorDefault,
		bg: terminal.ColorDefault,
	}
}

func (e *Emulator) reset() {
	e.raise(SignalReset)
	e.resetAttributes()
	e.wrapMode = true
	e.originMode = false
	e.insertMode = false
	e.newLineMode = false
	e.cursorVisible = true
	e.wrapPending = false
	e.title = ""
	e.g0LineDrawing, e.g1LineDrawing, e.useG1 = false, false, false
	e.main = newScreen(e.cols, e.rows)
	e.alt = newScreen(e.cols, e.rows)
	e.scr = &e.main
	e.tabStops = defaultTabs(e.cols)
}

func (e *Emulator) ensureCursorInBounds() {
	e.scr.cursor = clampCursor(e.scr.cursor, e.cols, e.rows)
}

func defaultTabs(cols int) []bool {
	stops := make([]bool, cols)
	for i := 0; i < cols; i += 8 {
		stops[i] = true
	}
	return stops
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mapLineDrawing(r rune) rune {
	switch r {
	case '`':
		return '◆'
	case 'a':
		return '▒'
	case 'f':
		return '°'
	case 'g':
		return '±'
	case 'j':
		return '┘'
	case 'k':
		return '┐'
	case 'l':
		return '┌'
	case 'm':
		return '└'
	case 'n':
		return '┼'
	case 'q':
		return '─'
	case 't':
		return '├'
	case 'u':
		return '┤'
	case 'v':
		return '┴'
	case 'w':
		return '┬'
	case 'x':
		return '│'
	case '~':
		return '·'
	default:
		return r
	}
}
