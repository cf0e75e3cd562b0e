package reactivity

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/notegraph/pkg/core"
)

// UnresolvedReferenceError reports uses that no block defines.
// Strict mode only.
type UnresolvedReferenceError struct {
	Refs []core.UnresolvedRef
}

func (e *UnresolvedReferenceError) Error() string {
	if len(e.Refs) == 0 {
		return "unresolved reference"
	}
	first := e.Refs[0]
	msg := fmt.Sprintf("unresolved reference: block %q uses %q, which no block defines", first.BlockID, first.Name)
	if len(e.Refs) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Refs)-1)
	}
	return msg
}

// DuplicateDefinitionError reports names defined by more than one block.
// Strict mode only.
type DuplicateDefinitionError struct {
	Defs []core.DuplicateDef
}

func (e *DuplicateDefinitionError) Error() string {
	if len(e.Defs) == 0 {
		return "duplicate definition"
	}
	first := e.Defs[0]
	msg := fmt.Sprintf("duplicate definition: %q is defined by blocks %s", first.Name, strings.Join(quoteAll(first.BlockIDs), ", "))
	if len(e.Defs) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Defs)-1)
	}
	return msg
}

// CycleDetectedError reports a dependency cycle. Strict mode only.
type CycleDetectedError struct {
	// Cycle is the first cycle found, starting at its lowest block id.
	Cycle []string
	// Cycles holds every cycle found.
	Cycles [][]string
}

func (e *CycleDetectedError) Error() string {
	path := append(append([]string{}, e.Cycle...), firstOf(e.Cycle))
	msg := "cycle detected: " + strings.Join(path, " -> ")
	if len(e.Cycles) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Cycles)-1)
	}
	return msg
}

// UnknownSeedError reports seed ids that are not in the block list.
// It is fatal in both modes.
type UnknownSeedError struct {
	IDs []string
}

func (e *UnknownSeedError) Error() string {
	if len(e.IDs) == 1 {
		return fmt.Sprintf("unknown seed block %q", e.IDs[0])
	}
	return fmt.Sprintf("unknown seed blocks %s", strings.Join(quoteAll(e.IDs), ", "))
}

// UnsupportedBlockTypeError describes a block whose type is outside the
// known enumeration. Extraction degrades it to an empty binding with a
// warning; it never fails a call.
type UnsupportedBlockTypeError struct {
	BlockID string
	Type    core.BlockType
}

func (e *UnsupportedBlockTypeError) Error() string {
	return fmt.Sprintf("block %q has unsupported type %q", e.BlockID, e.Type)
}

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%q", id)
	}
	return out
}

func firstOf(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
