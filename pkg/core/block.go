package core

import "strings"

// =============================================================================
// Block types
// =============================================================================

// BlockType identifies the kind of a notebook block.
type BlockType string

// Executable block types understood by the reactivity engine.
const (
	BlockCode             BlockType = "code"
	BlockSQL              BlockType = "sql"
	BlockNotebookFunction BlockType = "notebook-function"
	BlockVisualization    BlockType = "visualization"
	BlockButton           BlockType = "button"
	BlockBigNumber        BlockType = "big-number"

	BlockInputText      BlockType = "input-text"
	BlockInputTextarea  BlockType = "input-textarea"
	BlockInputFile      BlockType = "input-file"
	BlockInputSelect    BlockType = "input-select"
	BlockInputDate      BlockType = "input-date"
	BlockInputDateRange BlockType = "input-date-range"
	BlockInputSlider    BlockType = "input-slider"
	BlockInputCheckbox  BlockType = "input-checkbox"
	BlockInputNumber    BlockType = "input-number"
	BlockInputDropdown  BlockType = "input-dropdown"
)

// Document block types that never execute.
const (
	BlockMarkdown  BlockType = "markdown"
	BlockImage     BlockType = "image"
	BlockSeparator BlockType = "separator"
)

// inputPrefix is shared by every input widget variant.
const inputPrefix = "input-"

// textCellPrefix is shared by rich text cells (text-cell-h1, text-cell-p, ...).
const textCellPrefix = "text-cell-"

// InputBlockTypes lists the input widget variants, in documentation order.
var InputBlockTypes = []BlockType{
	BlockInputText,
	BlockInputTextarea,
	BlockInputFile,
	BlockInputSelect,
	BlockInputDate,
	BlockInputDateRange,
	BlockInputSlider,
	BlockInputCheckbox,
	BlockInputNumber,
	BlockInputDropdown,
}

// IsInput reports whether the type is an input widget.
// Unknown input-* variants are treated as inputs too.
func (t BlockType) IsInput() bool {
	return strings.HasPrefix(string(t), inputPrefix) && len(t) > len(inputPrefix)
}

// IsInert reports whether the type is a non-executable document block.
func (t BlockType) IsInert() bool {
	switch t {
	case BlockMarkdown, BlockImage, BlockSeparator:
		return true
	}
	return strings.HasPrefix(string(t), textCellPrefix)
}

// IsKnown reports whether the type belongs to the fixed enumeration
// (executable or inert).
func (t BlockType) IsKnown() bool {
	switch t {
	case BlockCode, BlockSQL, BlockNotebookFunction, BlockVisualization, BlockButton, BlockBigNumber:
		return true
	}
	return t.IsInput() || t.IsInert()
}

// Normalize returns the effective type. A missing type means code.
func (t BlockType) Normalize() BlockType {
	if strings.TrimSpace(string(t)) == "" {
		return BlockCode
	}
	return BlockType(strings.ToLower(strings.TrimSpace(string(t))))
}

// String returns the string representation of the block type.
func (t BlockType) String() string {
	return string(t)
}

// =============================================================================
// Metadata keys
// =============================================================================

// Metadata keys read from block configuration.
const (
	// MetaVariableName is the declared variable of input, sql and button blocks
	// and the data reference of a visualization block.
	MetaVariableName = "deepnote_variable_name"
	// MetaBigNumberValue is the variable shown by a big-number block.
	MetaBigNumberValue = "deepnote_big_number_value"
	// MetaBigNumberComparisonValue is the optional comparison variable of a big-number block.
	MetaBigNumberComparisonValue = "deepnote_big_number_comparison_value"
	// MetaFunctionInputs maps notebook-function parameters to their bindings.
	MetaFunctionInputs = "function_notebook_inputs"
	// MetaFunctionExports maps notebook-function outputs to exported variables.
	MetaFunctionExports = "function_notebook_export_mappings"
)

// =============================================================================
// Block
// =============================================================================

// Block is a single executable or declarative unit of a notebook.
// Blocks are owned by the caller; the engine never mutates them.
type Block struct {
	ID       string         `yaml:"id" json:"id"`
	Type     BlockType      `yaml:"type" json:"type"`
	Content  string         `yaml:"content,omitempty" json:"content,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// MetaString returns a trimmed string metadata value, or "" when the key is
// missing or not a string.
func (b Block) MetaString(key string) string {
	if b.Metadata == nil {
		return ""
	}
	s, ok := b.Metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// MetaMap returns a nested metadata object keyed by string.
// YAML decoders may produce map[any]any; both shapes are accepted.
func (b Block) MetaMap(key string) map[string]any {
	if b.Metadata == nil {
		return nil
	}
	return AsStringMap(b.Metadata[key])
}

// AsStringMap converts decoded YAML/JSON objects to map[string]any.
func AsStringMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out
	default:
		return nil
	}
}
