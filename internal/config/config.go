package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for termsnap.
type Config struct {
	Terminal TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Font     FontConfig     `mapstructure:"font" yaml:"font"`
	Theme    ThemeConfig    `mapstructure:"theme" yaml:"theme"`
}

// TerminalConfig configures the emulated terminal.
type TerminalConfig struct {
	Rows int    `mapstructure:"rows" yaml:"rows"`
	Cols int    `mapstructure:"cols" yaml:"cols"`
	Term string `mapstructure:"term" yaml:"term"`
}

// CaptureConfig configures how the child is driven.
type CaptureConfig struct {
	Interactive       bool          `mapstructure:"interactive" yaml:"interactive"`
	RenderBeforeClear bool          `mapstructure:"render_before_clear" yaml:"render_before_clear"`
	SendEOT           bool          `mapstructure:"send_eot" yaml:"send_eot"`
	DrainTimeout      time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`
	// Script is a YAML input script used instead of stdin.
	Script string `mapstructure:"script" yaml:"script,omitempty"`
}

// OutputConfig configures where and how the screen is written.
type OutputConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Format string `mapstructure:"format" yaml:"format"`
}

// FontConfig holds the font families and metrics used for SVG layout.
type FontConfig struct {
	Families   []string `mapstructure:"families" yaml:"families"`
	Size       float64  `mapstructure:"size" yaml:"size"`
	UnitsPerEm float64  `mapstructure:"units_per_em" yaml:"units_per_em"`
	Advance    float64  `mapstructure:"advance" yaml:"advance"`
	LineHeight float64  `mapstructure:"line_height" yaml:"line_height"`
	Descent    float64  `mapstructure:"descent" yaml:"descent"`
}

// ThemeConfig holds colours as hex strings.
type ThemeConfig struct {
	Foreground string   `mapstructure:"foreground" yaml:"foreground"`
	Background string   `mapstructure:"background" yaml:"background"`
	Palette    []string `mapstructure:"palette" yaml:"palette"`
}

// Validate checks values that would otherwise fail later.
func (c Config) Validate() error {
	if c.Terminal.Rows <= 0 || c.Terminal.Cols <= 0 {
		return fmt.Errorf("terminal size must be positive, got %dx%d", c.Terminal.Cols, c.Terminal.Rows)
	}
	if c.Terminal.Rows > MaxTerminalDimension || c.Terminal.Cols > MaxTerminalDimension {
		return fmt.Errorf("terminal size %dx%d exceeds %d", c.Terminal.Cols, c.Terminal.Rows, MaxTerminalDimension)
	}
	if c.Capture.DrainTimeout < 0 {
		return fmt.Errorf("capture.drain_timeout must not be negative")
	}
	switch c.Output.Format {
	case "", FormatSVG, FormatANSI, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Font.Size < 0 || c.Font.UnitsPerEm < 0 || c.Font.Advance < 0 || c.Font.LineHeight < 0 || c.Font.Descent < 0 {
		return fmt.Errorf("font metrics must not be negative")
	}
	if _, err := c.Theme.Palette16(); err != nil {
		return err
	}
	return nil
}

// Loader wraps Viper configuration loading for termsnap.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader initializes a Loader with standard search paths and defaults.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("TERMSNAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/termsnap")
	v.AddConfigPath("$HOME/" + DefaultConfigDirName)

	SetDefaults(v, DefaultConfig())
	return &Loader{v: v}
}

// SetDefaults registers cfg as Viper defaults so environment overrides work
// for every key.
func SetDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("terminal.rows", cfg.Terminal.Rows)
	v.SetDefault("terminal.cols", cfg.Terminal.Cols)
	v.SetDefault("terminal.term", cfg.Terminal.Term)
	v.SetDefault("capture.interactive", cfg.Capture.Interactive)
	v.SetDefault("capture.render_before_clear", cfg.Capture.RenderBeforeClear)
	v.SetDefault("capture.send_eot", cfg.Capture.SendEOT)
	v.SetDefault("capture.drain_timeout", cfg.Capture.DrainTimeout)
	v.SetDefault("capture.script", cfg.Capture.Script)
	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("font.families", cfg.Font.Families)
	v.SetDefault("font.size", cfg.Font.Size)
	v.SetDefault("font.units_per_em", cfg.Font.UnitsPerEm)
	v.SetDefault("font.advance", cfg.Font.Advance)
	v.SetDefault("font.line_height", cfg.Font.LineHeight)
	v.SetDefault("font.descent", cfg.Font.Descent)
	v.SetDefault("theme.foreground", cfg.Theme.Foreground)
	v.SetDefault("theme.background", cfg.Theme.Background)
	v.SetDefault("theme.palette", cfg.Theme.Palette)
}

// Viper exposes the underlying Viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = strings.TrimSpace(path)
}

// ConfigFileUsed returns the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// ReadInConfig reads configuration from file if available.
func (l *Loader) ReadInConfig() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads configuration, unmarshals it into a Config struct and
// validates it.
func (l *Loader) Load() (Config, error) {
	if err := l.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
