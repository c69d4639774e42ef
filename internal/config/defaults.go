package config

import (
	"os"
	"strconv"
	"strings"
)

// DefaultConfig returns the default configuration values. Terminal size
// follows LINES and COLUMNS when they hold positive integers.
func DefaultConfig() Config {
	theme := DefaultTheme()
	return Config{
		Terminal: TerminalConfig{
			Rows: envInt("LINES", DefaultTerminalRows),
			Cols: envInt("COLUMNS", DefaultTerminalCols),
			Term: DefaultTerminalTerm,
		},
		Capture: CaptureConfig{
			SendEOT:      DefaultSendEOT,
			DrainTimeout: DefaultDrainTimeout,
		},
		Output: OutputConfig{
			Format: FormatSVG,
		},
		Font: FontConfig{
			Families:   append([]string(nil), DefaultFontFamilies...),
			Size:       DefaultFontSize,
			UnitsPerEm: DefaultUnitsPerEm,
			Advance:    DefaultAdvance,
			LineHeight: DefaultLineHeight,
			Descent:    DefaultDescent,
		},
		Theme: theme,
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > MaxTerminalDimension {
		return def
	}
	return v
}
