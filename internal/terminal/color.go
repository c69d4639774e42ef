package terminal

import "fmt"

// Color is a tagged colour value: default, indexed (0-255) or truecolor.
// The tag lives in the top byte and the payload in the low 24 bits.
type Color uint32

// Color encoding flags.
const (
	ColorDefault   Color = 0
	ColorIndexed   Color = 1 << 24
	ColorTrue      Color = 2 << 24
	ColorFlagMask  Color = 0xff000000
	ColorValueMask Color = 0x00ffffff
)

// Indexed returns a palette colour.
func Indexed(i uint8) Color {
	return ColorIndexed | Color(i)
}

// TrueColor returns a 24-bit colour.
func TrueColor(r, g, b uint8) Color {
	return ColorTrue | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// IsDefault reports whether c is the terminal default colour.
func (c Color) IsDefault() bool {
	return c&ColorFlagMask == 0
}

// Index returns the palette index and true when c is an indexed colour.
func (c Color) Index() (uint8, bool) {
	if c&ColorFlagMask != ColorIndexed {
		return 0, false
	}
	return uint8(c & 0xff), true
}

// RGB returns the components and true when c is a truecolor value.
func (c Color) RGB() (RGB, bool) {
	if c&ColorFlagMask != ColorTrue {
		return RGB{}, false
	}
	v := c & ColorValueMask
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// MarshalText renders the colour in the same form as String.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c Color) String() string {
	if i, ok := c.Index(); ok {
		return fmt.Sprintf("indexed(%d)", i)
	}
	if rgb, ok := c.RGB(); ok {
		return rgb.String()
	}
	return "default"
}

// RGB is a colour in the sRGB colour space.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// String formats the colour as #rrggbb.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette holds the 16 ANSI colours and the default foreground/background.
type Palette struct {
	ANSI       [16]RGB
	Foreground RGB
	Background RGB
}

// DefaultPalette is Solarized dark.
var DefaultPalette = Palette{
	ANSI: [16]RGB{
		{0x07, 0x36, 0x42}, // black
		{0xdc, 0x32, 0x2f}, // red
		{0x85, 0x99, 0x00}, // green
		{0xb5, 0x89, 0x00}, // yellow
		{0x26, 0x8b, 0xd2}, // blue
		{0xd3, 0x36, 0x82}, // magenta
		{0x2a, 0xa1, 0x98}, // cyan
		{0xee, 0xe8, 0xd5}, // white
		{0x00, 0x2b, 0x36}, // bright black
		{0xcb, 0x4b, 0x16}, // bright red
		{0x58, 0x6e, 0x75}, // bright green
		{0x65, 0x7b, 0x83}, // bright yellow
		{0x83, 0x94, 0x96}, // bright blue
		{0x6c, 0x71, 0xc4}, // bright magenta
		{0x93, 0xa1, 0xa1}, // bright cyan
		{0xfd, 0xf6, 0xe3}, // bright white
	},
	Foreground: RGB{0x83, 0x94, 0x96},
	Background: RGB{0x00, 0x2b, 0x36},
}

// IndexedRGB maps a 256-colour palette index to RGB. Indices 0-15 come from
// the palette, 16-231 from the 6x6x6 cube and 232-255 from the grey ramp.
func (p *Palette) IndexedRGB(i uint8) RGB {
	switch {
	case i < 16:
		return p.ANSI[i]
	case i < 232:
		v := int(i) - 16
		return RGB{R: cubeLevel(v / 36), G: cubeLevel((v / 6) % 6), B: cubeLevel(v % 6)}
	default:
		g := uint8(8 + 10*(int(i)-232))
		return RGB{R: g, G: g, B: g}
	}
}

// ResolveForeground resolves c as a foreground colour.
func (p *Palette) ResolveForeground(c Color) RGB {
	return p.resolve(c, p.Foreground)
}

// ResolveBackground resolves c as a background colour.
func (p *Palette) ResolveBackground(c Color) RGB {
	return p.resolve(c, p.Background)
}

func (p *Palette) resolve(c Color, def RGB) RGB {
	if i, ok := c.Index(); ok {
		return p.IndexedRGB(i)
	}
	if rgb, ok := c.RGB(); ok {
		return rgb
	}
	return def
}

func cubeLevel(v int) uint8 {
	if v == 0 {
		return 0
	}
	return uint8(55 + 40*v)
}
