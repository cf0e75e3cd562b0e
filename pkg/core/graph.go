package core

// EdgeKind distinguishes shared-data dependencies from trigger relationships.
type EdgeKind string

// Edge kinds.
const (
	// EdgeData means the consumer reads a variable the producer defines.
	EdgeData EdgeKind = "data"
	// EdgeControl means the consumer references a button trigger.
	EdgeControl EdgeKind = "control"
)

// Edge is a resolved dependency from a producing block to a consuming block.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Via  string   `json:"via"`
	Kind EdgeKind `json:"kind"`
	// InCycle marks edges excluded from ordering because they lie on a cycle.
	InCycle bool `json:"in_cycle,omitempty"`
}

// UnresolvedRef is a use that no block defines.
type UnresolvedRef struct {
	BlockID string `json:"block_id"`
	Name    string `json:"name"`
}

// DuplicateDef is a name defined by more than one block.
// BlockIDs are in notebook order; the first one wins resolution.
type DuplicateDef struct {
	Name     string   `json:"name"`
	BlockIDs []string `json:"block_ids"`
}

// WarningKind classifies soft diagnostics.
type WarningKind string

// Warning kinds.
const (
	WarningUnsupportedType WarningKind = "unsupported_block_type"
	WarningTemplate        WarningKind = "template"
	WarningFunctionCall    WarningKind = "function_call"
)

// Warning is a soft, per-block diagnostic. Warnings never make a graph invalid.
type Warning struct {
	BlockID string      `json:"block_id"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Diagnostics collects structural problems found while building a graph.
type Diagnostics struct {
	Unresolved    []UnresolvedRef `json:"unresolved"`
	DuplicateDefs []DuplicateDef  `json:"duplicate_defs"`
	// Cycles are open block-id sequences, each starting at its lowest id.
	Cycles   [][]string `json:"cycles"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// IsEmpty reports whether there are no structural problems.
// Warnings are not structural.
func (d Diagnostics) IsEmpty() bool {
	return len(d.Unresolved) == 0 && len(d.DuplicateDefs) == 0 && len(d.Cycles) == 0
}
