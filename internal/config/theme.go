package config

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"pkt.systems/termsnap/internal/terminal"
)

// DefaultTheme returns the built-in palette as hex strings.
func DefaultTheme() ThemeConfig {
	p := terminal.DefaultPalette
	palette := make([]string, len(p.ANSI))
	for i, c := range p.ANSI {
		palette[i] = c.String()
	}
	return ThemeConfig{
		Foreground: p.Foreground.String(),
		Background: p.Background.String(),
		Palette:    palette,
	}
}

// Palette16 parses the theme. Empty fields fall back to the built-in
// palette; a non-empty palette must list exactly 16 colours.
func (t ThemeConfig) Palette16() (terminal.Palette, error) {
	p := terminal.DefaultPalette
	var err error
	if t.Foreground != "" {
		if p.Foreground, err = parseHex(t.Foreground); err != nil {
			return terminal.Palette{}, fmt.Errorf("theme.foreground: %w", err)
		}
	}
	if t.Background != "" {
		if p.Background, err = parseHex(t.Background); err != nil {
			return terminal.Palette{}, fmt.Errorf("theme.background: %w", err)
		}
	}
	if len(t.Palette) == 0 {
		return p, nil
	}
	if len(t.Palette) != len(p.ANSI) {
		return terminal.Palette{}, fmt.Errorf("theme.palette: want %d colours, got %d", len(p.ANSI), len(t.Palette))
	}
	for i, hex := range t.Palette {
		if p.ANSI[i], err = parseHex(hex); err != nil {
			return terminal.Palette{}, fmt.Errorf("theme.palette[%d]: %w", i, err)
		}
	}
	return p, nil
}

func parseHex(s string) (terminal.RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return terminal.RGB{}, err
	}
	r, g, b := c.RGB255()
	return terminal.RGB{R: r, G: g, B: b}, nil
}
