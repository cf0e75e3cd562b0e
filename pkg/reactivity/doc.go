// Package reactivity discovers producer/consumer relationships between
// notebook blocks and answers two questions about them: what the full
// dependency structure of a block list is, and which blocks must re-run
// when a given set of blocks runs.
//
// Every entry point is a pure function of its input. Nothing is cached
// between calls and nothing outside the call frame is touched, so calls
// are safe from multiple goroutines and a superseded result can simply be
// discarded.
//
// The pipeline is:
//
//	ExtractBindings  per block: names defined, used, imported
//	BuildGraph       resolve uses to definers, emit data and control edges
//	CheckCycles      enumerate cycles, flag the edges that lie on them
//	Order            Kahn ordering with notebook position as tie-break
//	Downstream       forward closure from seeds, ordered
//
// Strict mode (the default) fails on any structural problem. Partial mode
// (Options.AcceptPartialDAG) attaches the problems to the graph instead and
// orders only the acyclic part.
package reactivity
