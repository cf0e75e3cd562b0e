// Package core defines the shared language of the notegraph system.
//
// This package contains:
//   - Notebook entities (Block, BlockType and the metadata keys blocks carry)
//   - Analysis results (Binding, Edge, Diagnostics)
//   - Variable name helpers shared by extractors and loaders
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
