// Package config provides configuration management for the notegraph CLI.
//
// This package extends the shared analysis configuration from
// internal/config with CLI-specific fields (output mode, logging).
package config

import (
	"log/slog"
	"strings"

	sharedcfg "github.com/leapstack-labs/notegraph/internal/config"
)

// AnalysisConfig is an alias for the shared analysis configuration.
type AnalysisConfig = sharedcfg.AnalysisConfig

// WatchConfig is an alias for the shared watch configuration.
type WatchConfig = sharedcfg.WatchConfig

// Config holds all CLI configuration options.
type Config struct {
	AnalysisConfig `koanf:",squash"`

	Verbose      bool        `koanf:"verbose"`
	OutputFormat string      `koanf:"output"`
	LogLevel     string      `koanf:"log_level"`
	Watch        WatchConfig `koanf:"watch"`

	// ProjectRoot is the directory the config file was found in, or the
	// working directory.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultOutput   = sharedcfg.DefaultOutput
	DefaultLogLevel = sharedcfg.DefaultLogLevel
	DefaultDebounce = sharedcfg.DefaultDebounce
)

// Valid output formats.
var outputFormats = []string{"auto", "text", "markdown", "json"}

// Valid log levels.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the effective log level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	if level, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return level
	}
	return slog.LevelWarn
}
