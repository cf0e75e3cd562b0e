package core

// Binding holds the variable names a block defines and uses.
// All slices are sorted and free of duplicates.
type Binding struct {
	BlockID string    `json:"block_id"`
	Type    BlockType `json:"type"`

	// Defines are names the block makes available to other blocks.
	Defines []string `json:"defines"`
	// Uses are names the block needs from another block.
	Uses []string `json:"uses"`
	// Optional names link to a defining block when one exists and are
	// dropped silently otherwise (SQL table names, environment references).
	Optional []string `json:"optional,omitempty"`
	// Imports are module aliases bound by import statements. They satisfy
	// uses in other blocks when nothing defines the name, and never conflict.
	Imports []string `json:"imports,omitempty"`
	// Triggers is the subset of Defines that are button trigger names.
	Triggers []string `json:"triggers,omitempty"`

	// Warnings are soft problems found while extracting this binding.
	Warnings []Warning `json:"warnings,omitempty"`
}

// DefinesName reports whether the binding defines name.
func (b *Binding) DefinesName(name string) bool {
	return containsSorted(b.Defines, name)
}

// ImportsName reports whether the binding imports name.
func (b *Binding) ImportsName(name string) bool {
	return containsSorted(b.Imports, name)
}

// IsTrigger reports whether name is a trigger defined by this binding.
func (b *Binding) IsTrigger(name string) bool {
	return containsSorted(b.Triggers, name)
}

// IsEmpty reports whether the binding carries no names at all.
func (b *Binding) IsEmpty() bool {
	return len(b.Defines) == 0 && len(b.Uses) == 0 && len(b.Optional) == 0 && len(b.Imports) == 0
}

func containsSorted(list []string, name string) bool {
	lo, hi := 0, len(list)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case list[mid] == name:
			return true
		case list[mid] < name:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}
