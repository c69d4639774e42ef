package termsnap

import "pkt.systems/termsnap/internal/config"

// Config mirrors the termsnap configuration.
type Config = config.Config

// TerminalConfig configures the emulated terminal.
type TerminalConfig = config.TerminalConfig

// CaptureConfig configures how the child is driven.
type CaptureConfig = config.CaptureConfig

// OutputConfig configures where the screen is written.
type OutputConfig = config.OutputConfig

// FontConfig configures SVG font families and metrics.
type FontConfig = config.FontConfig

// ThemeConfig configures the colour palette.
type ThemeConfig = config.ThemeConfig

// Loader wraps configuration loading via Viper.
type Loader = config.Loader

const (
	// DefaultConfigDirName is the directory name under the home directory.
	DefaultConfigDirName = config.DefaultConfigDirName
	// DefaultConfigFileName is the default config file name.
	DefaultConfigFileName = config.DefaultConfigFileName

	// DefaultTerminalCols is the default terminal column count.
	DefaultTerminalCols = config.DefaultTerminalCols
	// DefaultTerminalRows is the default terminal row count.
	DefaultTerminalRows = config.DefaultTerminalRows
	// DefaultTerminalTerm is the default TERM for the child.
	DefaultTerminalTerm = config.DefaultTerminalTerm
	// DefaultDrainTimeout is the quiet period after the child exits.
	DefaultDrainTimeout = config.DefaultDrainTimeout
	// DefaultSendEOT reports whether ^D is sent once input ends.
	DefaultSendEOT = config.DefaultSendEOT
	// DefaultFontSize is the default SVG font size in pixels.
	DefaultFontSize = config.DefaultFontSize

	FormatSVG  = config.FormatSVG
	FormatANSI = config.FormatANSI
	FormatJSON = config.FormatJSON
)

// NewLoader returns a config loader with defaults wired.
func NewLoader() *config.Loader {
	return config.NewLoader()
}

// DefaultConfig returns default termsnap configuration.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// DefaultConfigDir returns the default config directory.
func DefaultConfigDir() string {
	return config.DefaultConfigDir()
}

// DefaultConfigPath returns the default config path.
func DefaultConfigPath() string {
	return config.DefaultConfigPath()
}

// DefaultFontFamilies returns the font families listed before monospace.
func DefaultFontFamilies() []string {
	return append([]string(nil), config.DefaultFontFamilies...)
}
