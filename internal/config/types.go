// Package config provides shared configuration types for notegraph.
// This package is decoupled from CLI concerns so that any caller embedding
// the analyzer can load the same settings.
package config

import (
	"log/slog"
	"time"

	"github.com/leapstack-labs/notegraph/pkg/reactivity"
)

// AnalysisConfig controls how block lists are turned into graphs.
type AnalysisConfig struct {
	// AcceptPartialDAG reports structural problems as diagnostics instead
	// of failing.
	AcceptPartialDAG bool `koanf:"accept_partial_dag"`

	// IgnoreNames are names never treated as uses (kernel-injected globals).
	IgnoreNames []string `koanf:"ignore_names"`

	// Notebook selects a notebook by id or name when a document has several.
	Notebook string `koanf:"notebook"`
}

// WatchConfig holds file watching settings.
type WatchConfig struct {
	// Debounce is how long to wait after a write before re-analysing.
	Debounce time.Duration `koanf:"debounce"`
}

// Options converts the configuration into graph options.
func (c AnalysisConfig) Options(logger *slog.Logger) reactivity.Options {
	return reactivity.Options{
		AcceptPartialDAG: c.AcceptPartialDAG,
		IgnoreNames:      c.IgnoreNames,
		Logger:           logger,
	}
}

// ProjectConfig is the subset of notegraph.yaml that non-CLI tools need.
type ProjectConfig struct {
	AnalysisConfig `koanf:",squash"`
	Watch          WatchConfig `koanf:"watch"`
}
