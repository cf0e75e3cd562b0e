package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OutputFormat != "" && !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q, must be one of: %s", c.OutputFormat, strings.Join(outputFormats, ", "))
	}
	if c.LogLevel != "" {
		if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
			return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	for _, name := range c.IgnoreNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("ignore_names must not contain empty names")
		}
	}
	return nil
}
