package output

import "github.com/leapstack-labs/notegraph/pkg/core"

// GraphOutput is the JSON shape of the graph command.
type GraphOutput struct {
	Notebook    string           `json:"notebook"`
	Nodes       []string         `json:"nodes"`
	Edges       []core.Edge      `json:"edges"`
	Levels      [][]string       `json:"levels"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
	Partial     bool             `json:"partial"`
}

// SequenceOutput is the JSON shape of ordered block lists (order,
// downstream, upstream).
type SequenceOutput struct {
	Notebook string   `json:"notebook"`
	Seeds    []string `json:"seeds,omitempty"`
	Blocks   []string `json:"blocks"`
}

// BindingsOutput is the JSON shape of the bindings command.
type BindingsOutput struct {
	Notebook string         `json:"notebook"`
	Bindings []core.Binding `json:"bindings"`
}
