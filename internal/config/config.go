package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Log output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Config holds every setting.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Script ScriptConfig `toml:"script"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `toml:"level"`
	// Format is one of text, json, logfmt.
	Format string `toml:"format"`
	// Timestamps prefixes each line with the time.
	Timestamps bool `toml:"timestamps"`
}

// ScriptConfig configures the Lua script host.
type ScriptConfig struct {
	// Timeout bounds one script run. Zero disables the bound.
	Timeout Duration `toml:"timeout"`
	// WatchDebounce is how long watch mode waits for writes to settle.
	WatchDebounce Duration `toml:"watch_debounce"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
		Script: ScriptConfig{
			Timeout:       Duration(5 * time.Second),
			WatchDebounce: Duration(200 * time.Millisecond),
		},
	}
}

// Validate checks every setting and joins all failures.
func (c *Config) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, &ValidationError{Path: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
	}
	switch c.Log.Format {
	case FormatText, FormatJSON, FormatLogfmt:
	default:
		errs = append(errs, &ValidationError{Path: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)})
	}
	if c.Script.Timeout < 0 {
		errs = append(errs, &ValidationError{Path: "script.timeout", Message: "must not be negative"})
	}
	if c.Script.WatchDebounce < 0 {
		errs = append(errs, &ValidationError{Path: "script.watch_debounce", Message: "must not be negative"})
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, or info when the level is invalid.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// LogFormatter returns the charmbracelet/log formatter for Log.Format.
func (c *Config) LogFormatter() log.Formatter {
	switch c.Log.Format {
	case FormatJSON:
		return log.JSONFormatter
	case FormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "privatise", "config.toml")
}
