package render

import (
	"strconv"
	"strings"
	"unicode"

	"pkt.systems/termsnap/internal/terminal"
)

// DefaultFontSize is the nominal font size in pixels.
const DefaultFontSize = 12

// DefaultFontFamilies are listed ahead of the generic monospace family.
var DefaultFontFamilies = []string{"ui-monospace", "Consolas", "Liberation Mono", "Source Code Pro"}

// FontMetrics describe a monospaced font in font units. Values for a given
// size are obtained by scaling with Size/UnitsPerEm.
type FontMetrics struct {
	UnitsPerEm float64 `json:"unitsPerEm"`
	// Advance is the horizontal distance between glyph origins.
	Advance float64 `json:"advance"`
	// LineHeight is the distance between baselines; lines touch.
	LineHeight float64 `json:"lineHeight"`
	// Descent is the space below the baseline.
	Descent float64 `json:"descent"`
	Size    float64 `json:"size"`
}

// DefaultFontMetrics fit fonts such as Liberation Mono, Consolas or Menlo.
var DefaultFontMetrics = FontMetrics{
	UnitsPerEm: 1000,
	Advance:    600,
	LineHeight: 1200,
	Descent:    300,
	Size:       DefaultFontSize,
}

type scaledMetrics struct {
	advance    float64
	lineHeight float64
	descent    float64
}

func (m FontMetrics) scaled() scaledMetrics {
	d := DefaultFontMetrics
	if m.UnitsPerEm > 0 {
		d.UnitsPerEm = m.UnitsPerEm
	}
	if m.Advance > 0 {
		d.Advance = m.Advance
	}
	if m.LineHeight > 0 {
		d.LineHeight = m.LineHeight
	}
	if m.Descent > 0 {
		d.Descent = m.Descent
	}
	if m.Size > 0 {
		d.Size = m.Size
	}
	scale := d.Size / d.UnitsPerEm
	return scaledMetrics{
		advance:    d.Advance * scale,
		lineHeight: d.LineHeight * scale,
		descent:    d.Descent * scale,
	}
}

// Options control SVG output. Zero values select the defaults.
type Options struct {
	Fonts   []string
	Metrics FontMetrics
	Palette *terminal.Palette
}

// styledCell is a cell with colours resolved and inverse applied.
type styledCell struct {
	glyph  string
	spacer bool
	wide   bool
	fg     terminal.RGB
	bg     terminal.RGB
	attrs  terminal.Attr
}

// textAttrs are the attributes that change how a glyph is drawn.
const textAttrs = terminal.AttrBold | terminal.AttrFaint | terminal.AttrItalic |
	terminal.AttrUnderline | terminal.AttrStrikethrough | terminal.AttrHidden

// SVG renders snap as a standalone SVG document. It does not modify snap.
func SVG(snap terminal.Snapshot, opts Options) string {
	palette := opts.Palette
	if palette == nil {
		palette = &terminal.DefaultPalette
	}
	fonts := opts.Fonts
	if fonts == nil {
		fonts = DefaultFontFamilies
	}
	size := opts.Metrics.Size
	if size <= 0 {
		size = DefaultFontSize
	}
	m := opts.Metrics.scaled()

	cols, rows := snap.Cols, snap.Rows
	cells := resolveCells(snap, palette)

	var b strings.Builder
	b.WriteString(`<svg viewBox="0 0 `)
	b.WriteString(num(float64(cols) * m.advance))
	b.WriteByte(' ')
	b.WriteString(num(float64(rows) * m.lineHeight))
	b.WriteString(`" xmlns="http://www.w3.org/2000/svg">`)
	b.WriteString("\n<style>\n  .screen {\n    font-family: ")
	for _, font := range fonts {
		b.WriteByte('"')
		b.WriteString(escapeFont(font))
		b.WriteString(`", `)
	}
	b.WriteString("monospace;\n    font-size: ")
	b.WriteString(num(size))
	b.WriteString("px;\n  }\n</style>\n<g class=\"screen\">\n")

	if cols > 0 && rows > 0 {
		main := mostCommonBackground(cells, palette)
		writeRect(&b, 0, 0, cols-1, rows-1, main, m)
		writeBackgrounds(&b, cells, cols, rows, main, m)
		writeText(&b, cells, cols, rows, m)
	}

	b.WriteString("</g>\n</svg>")
	return b.String()
}

func resolveCells(snap terminal.Snapshot, palette *terminal.Palette) []styledCell {
	out := make([]styledCell, snap.Cols*snap.Rows)
	for i := range out {
		if i >= len(snap.Cells) {
			out[i] = styledCell{glyph: " ", fg: palette.Foreground, bg: palette.Background}
			continue
		}
		c := snap.Cells[i]
		fg := palette.ResolveForeground(c.FG)
		bg := palette.ResolveBackground(c.BG)
		if c.Attrs&terminal.AttrInverse != 0 {
			fg, bg = bg, fg
		}
		glyph := c.Glyph
		if glyph == "" {
			glyph = " "
		}
		out[i] = styledCell{
			glyph:  glyph,
			spacer: c.Spacer,
			wide:   c.Wide,
			fg:     fg,
			bg:     bg,
			attrs:  c.Attrs & textAttrs,
		}
	}
	return out
}

// mostCommonBackground picks the most frequent background. Ties go to the
// colour seen first.
func mostCommonBackground(cells []styledCell, palette *terminal.Palette) terminal.RGB {
	if len(cells) == 0 {
		return palette.Background
	}
	counts := make(map[terminal.RGB]int)
	best := cells[0].bg
	for _, c := range cells {
		counts[c.bg]++
		if counts[c.bg] > counts[best] {
			best = c.bg
		}
	}
	return best
}

// writeBackgrounds floods each undrawn non-main background first along the
// row, then down while whole row segments match.
func writeBackgrounds(b *strings.Builder, cells []styledCell, cols, rows int, main terminal.RGB, m scaledMetrics) {
	drawn := make([]bool, len(cells))
	for y0 := 0; y0 < rows; y0++ {
		for x0 := 0; x0 < cols; x0++ {
			idx := y0*cols + x0
			if drawn[idx] {
				continue
			}
			bg := cells[idx].bg
			if bg == main {
				continue
			}
			endX := x0
			for x := x0 + 1; x < cols; x++ {
				i := y0*cols + x
				if drawn[i] || cells[i].bg != bg {
					break
				}
				endX = x
			}
			endY := y0
			for y := y0 + 1; y < rows; y++ {
				all := true
				for x := x0; x <= endX; x++ {
					i := y*cols + x
					if drawn[i] || cells[i].bg != bg {
						all = false
						break
					}
				}
				if !all {
					break
				}
				endY = y
			}
			for y := y0; y <= endY; y++ {
				for x := x0; x <= endX; x++ {
					drawn[y*cols+x] = true
				}
			}
			writeRect(b, x0, y0, endX, endY, bg, m)
		}
	}
}

func writeRect(b *strings.Builder, x0, y0, x1, y1 int, color terminal.RGB, m scaledMetrics) {
	b.WriteString(`<rect x="`)
	b.WriteString(num(float64(x0) * m.advance))
	b.WriteString(`" y="`)
	b.WriteString(num(float64(y0) * m.lineHeight))
	b.WriteString(`" width="`)
	b.WriteString(num(float64(x1-x0+1) * m.advance))
	b.WriteString(`" height="`)
	b.WriteString(num(float64(y1-y0+1) * m.lineHeight))
	b.WriteString(`" style="fill: `)
	b.WriteString(color.String())
	b.WriteString(";\" />\n")
}

type textRun struct {
	x     int
	cells []styledCell
}

func sameStyle(a, b styledCell) bool {
	return a.fg == b.fg && a.bg == b.bg && a.attrs == b.attrs
}

func writeText(b *strings.Builder, cells []styledCell, cols, rows int, m scaledMetrics) {
	var run textRun
	flush := func(y int) {
		if len(run.cells) > 0 {
			writeRun(b, run, y, m)
		}
		run.cells = run.cells[:0]
	}
	for y := 0; y < rows; y++ {
		row := cells[y*cols : (y+1)*cols]
		for x := 0; x < cols; x++ {
			c := row[x]
			if c.spacer {
				// Covered by the wide glyph to its left.
				if len(run.cells) > 0 {
					run.cells = append(run.cells, c)
				}
				continue
			}
			if len(run.cells) > 0 && !sameStyle(run.cells[0], c) {
				flush(y)
			}
			if len(run.cells) == 0 {
				if isSpace(c.glyph) {
					continue
				}
				run.x = x
			}
			run.cells = append(run.cells, c)
		}
		flush(y)
	}
}

func writeRun(b *strings.Builder, run textRun, y int, m scaledMetrics) {
	style := run.cells[0]
	if style.attrs&terminal.AttrHidden != 0 {
		return
	}
	end := len(run.cells)
	for end > 0 && !run.cells[end-1].spacer && isSpace(run.cells[end-1].glyph) {
		end--
	}
	cells := run.cells[:end]
	if len(cells) == 0 {
		return
	}
	b.WriteString(`<text x="`)
	b.WriteString(num(float64(run.x) * m.advance))
	b.WriteString(`" y="`)
	b.WriteString(num(float64(y+1)*m.lineHeight - m.descent))
	b.WriteString(`" textLength="`)
	b.WriteString(num(float64(len(cells)) * m.advance))
	b.WriteString(`" style="fill: `)
	b.WriteString(style.fg.String())
	b.WriteByte(';')
	if style.attrs&terminal.AttrBold != 0 {
		b.WriteString(" font-weight: 600;")
	}
	if style.attrs&terminal.AttrItalic != 0 {
		b.WriteString(" font-style: italic;")
	}
	if style.attrs&terminal.AttrFaint != 0 {
		b.WriteString(" opacity: 0.5;")
	}
	if style.attrs&(terminal.AttrUnderline|terminal.AttrStrikethrough) != 0 {
		b.WriteString(" text-decoration:")
		if style.attrs&terminal.AttrUnderline != 0 {
			b.WriteString(" underline")
		}
		if style.attrs&terminal.AttrStrikethrough != 0 {
			b.WriteString(" line-through")
		}
		b.WriteByte(';')
	}
	b.WriteString(`">`)
	prevSpace := false
	for _, c := range cells {
		if c.spacer {
			continue
		}
		space := c.glyph == " "
		switch {
		case space && prevSpace:
			b.WriteString("&#160;")
		default:
			writeEscaped(b, c.glyph)
		}
		prevSpace = space
	}
	b.WriteString("</text>\n")
}

func writeEscaped(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			if r < 0x20 || r == 0x7f || r == 0xfffe || r == 0xffff {
				// Not representable in XML.
				b.WriteRune('\uFFFD')
				continue
			}
			b.WriteRune(r)
		}
	}
}

func escapeFont(s string) string {
	return strings.NewReplacer(`"`, "", "<", "", ">", "", "&", "").Replace(s)
}

func isSpace(glyph string) bool {
	if glyph == "" {
		return true
	}
	for _, r := range glyph {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}
