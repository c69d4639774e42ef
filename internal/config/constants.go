package config

import "time"

const (
	// DefaultConfigDirName is the directory name under the home directory.
	DefaultConfigDirName = ".termsnap"
	// DefaultConfigFileName is the default config file name.
	DefaultConfigFileName = "config.yaml"

	// DefaultTerminalCols is the default terminal columns.
	DefaultTerminalCols = 80
	// DefaultTerminalRows is the default terminal rows.
	DefaultTerminalRows = 24
	// DefaultTerminalTerm is the default TERM for the child.
	DefaultTerminalTerm = "linux"
	// MaxTerminalDimension bounds rows and columns.
	MaxTerminalDimension = 4096

	// DefaultDrainTimeout is the quiet period after the child exits.
	DefaultDrainTimeout = 250 * time.Millisecond
	// DefaultSendEOT enables ^D once input is exhausted.
	DefaultSendEOT = true

	// DefaultFontSize is the SVG font size in pixels.
	DefaultFontSize = 12
	// DefaultUnitsPerEm is the font unit scale of the default metrics.
	DefaultUnitsPerEm = 1000
	// DefaultAdvance is the default glyph advance in font units.
	DefaultAdvance = 600
	// DefaultLineHeight is the default line height in font units.
	DefaultLineHeight = 1200
	// DefaultDescent is the default descent in font units.
	DefaultDescent = 300
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatANSI = "ansi"
	FormatJSON = "json"
)

// DefaultFontFamilies are listed in the SVG before the generic monospace.
var DefaultFontFamilies = []string{"ui-monospace", "Consolas", "Liberation Mono", "Source Code Pro"}
