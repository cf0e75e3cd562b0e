package reactivity

import (
	"errors"
	"sort"

	"github.com/leapstack-labs/notegraph/internal/dag"
	"github.com/leapstack-labs/notegraph/pkg/core"
)

// Graph is the dependency structure of one block list.
// It is built fresh per call and never mutated after BuildGraph returns.
type Graph struct {
	// Nodes are block ids in notebook order.
	Nodes []string `json:"nodes"`
	// Edges are in emission order: consumer block order, then use name.
	Edges []core.Edge `json:"edges"`
	// Bindings are the extracted bindings, one per block, in notebook order.
	Bindings    []core.Binding   `json:"bindings"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
	// Partial is set when the graph was built with AcceptPartialDAG and
	// has structural problems.
	Partial bool `json:"partial"`

	positions map[string]int
}

// Valid reports whether the graph has no structural diagnostics.
func (g *Graph) Valid() bool {
	return g.Diagnostics.IsEmpty()
}

// Position returns the notebook position of a block.
func (g *Graph) Position(id string) (int, bool) {
	pos, ok := g.positions[id]
	return pos, ok
}

// HasNode reports whether id is a block of this graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.positions[id]
	return ok
}

// Binding returns the binding extracted for a block.
func (g *Graph) Binding(id string) (core.Binding, bool) {
	pos, ok := g.positions[id]
	if !ok {
		return core.Binding{}, false
	}
	return g.Bindings[pos], true
}

// OrderableEdges returns the edges that do not lie on a cycle.
func (g *Graph) OrderableEdges() []core.Edge {
	out := make([]core.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if !e.InCycle {
			out = append(out, e)
		}
	}
	return out
}

// fullDAG returns every resolved edge, cycles included.
func (g *Graph) fullDAG() *dag.Graph {
	return g.toDAG(g.Edges)
}

// acyclicDAG returns the cycle-free subgraph used for ordering.
func (g *Graph) acyclicDAG() *dag.Graph {
	return g.toDAG(g.OrderableEdges())
}

func (g *Graph) toDAG(edges []core.Edge) *dag.Graph {
	d := dag.NewGraph()
	for i, id := range g.Nodes {
		d.AddNode(id, i, nil)
	}
	for _, e := range edges {
		// Both ends are nodes and self-edges are never emitted.
		_ = d.AddEdge(e.From, e.To)
	}
	return d
}

// BuildGraph extracts bindings from every block, resolves uses to their
// definers and checks the result for cycles.
//
// In strict mode (the default) any unresolved reference, duplicate
// definition or cycle fails the call with the matching typed errors joined
// together, and no graph is returned. With AcceptPartialDAG the problems are
// reported in Graph.Diagnostics instead.
func BuildGraph(blocks []core.Block, opts Options) (*Graph, error) {
	logger := opts.logger()

	g := &Graph{
		Nodes:     make([]string, 0, len(blocks)),
		Edges:     []core.Edge{},
		Bindings:  make([]core.Binding, 0, len(blocks)),
		positions: make(map[string]int, len(blocks)),
		Diagnostics: core.Diagnostics{
			Unresolved:    []core.UnresolvedRef{},
			DuplicateDefs: []core.DuplicateDef{},
			Cycles:        [][]string{},
		},
	}

	definers := make(map[string][]int)
	importers := make(map[string][]int)

	for _, block := range blocks {
		if _, dup := g.positions[block.ID]; dup {
			logger.Warn("duplicate block id, keeping the first", "block", block.ID)
			continue
		}
		pos := len(g.Nodes)
		g.positions[block.ID] = pos
		g.Nodes = append(g.Nodes, block.ID)

		binding := ExtractBindingsWithOptions(block, opts)
		g.Bindings = append(g.Bindings, binding)
		g.Diagnostics.Warnings = append(g.Diagnostics.Warnings, binding.Warnings...)

		for _, name := range binding.Defines {
			definers[name] = append(definers[name], pos)
		}
		for _, name := range binding.Imports {
			importers[name] = append(importers[name], pos)
		}

		logger.Debug("bindings extracted",
			"block", block.ID,
			"type", binding.Type,
			"defines", len(binding.Defines),
			"uses", len(binding.Uses)+len(binding.Optional))
	}

	g.Diagnostics.DuplicateDefs = duplicateDefs(g.Nodes, definers)
	g.resolve(definers, importers)

	cycles := CheckCycles(g)

	logger.Debug("graph built",
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"unresolved", len(g.Diagnostics.Unresolved),
		"duplicates", len(g.Diagnostics.DuplicateDefs),
		"cycles", len(cycles))

	if g.Valid() {
		return g, nil
	}
	if !opts.AcceptPartialDAG {
		return nil, structuralError(g.Diagnostics)
	}
	g.Partial = true
	return g, nil
}

// resolve emits edges and unresolved diagnostics. Each use resolves to the
// first other block, in notebook order, that defines it. Import aliases only
// serve when no block defines the name. A block never satisfies its own use.
func (g *Graph) resolve(definers, importers map[string][]int) {
	for pos, binding := range g.Bindings {
		for _, ref := range mergeUses(binding) {
			from, ok := firstOther(definers[ref.name], pos)
			if !ok {
				from, ok = firstOther(importers[ref.name], pos)
			}
			if !ok {
				if !ref.optional {
					g.Diagnostics.Unresolved = append(g.Diagnostics.Unresolved, core.UnresolvedRef{
						BlockID: binding.BlockID,
						Name:    ref.name,
					})
				}
				continue
			}

			kind := core.EdgeData
			producer := g.Bindings[from]
			if producer.IsTrigger(ref.name) {
				kind = core.EdgeControl
			}
			g.Edges = append(g.Edges, core.Edge{
				From: producer.BlockID,
				To:   binding.BlockID,
				Via:  ref.name,
				Kind: kind,
			})
		}
	}
}

type useRef struct {
	name     string
	optional bool
}

// mergeUses interleaves hard and optional uses in lexical order.
func mergeUses(b core.Binding) []useRef {
	refs := make([]useRef, 0, len(b.Uses)+len(b.Optional))
	for _, name := range b.Uses {
		refs = append(refs, useRef{name: name})
	}
	for _, name := range b.Optional {
		refs = append(refs, useRef{name: name, optional: true})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].name < refs[j].name
	})
	return refs
}

// firstOther returns the first position that is not self.
func firstOther(positions []int, self int) (int, bool) {
	for _, p := range positions {
		if p != self {
			return p, true
		}
	}
	return 0, false
}

func duplicateDefs(nodes []string, definers map[string][]int) []core.DuplicateDef {
	out := []core.DuplicateDef{}
	for name, positions := range definers {
		if len(positions) < 2 {
			continue
		}
		ids := make([]string, len(positions))
		for i, p := range positions {
			ids[i] = nodes[p]
		}
		out = append(out, core.DuplicateDef{Name: name, BlockIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// structuralError joins one typed error per kind of problem present.
func structuralError(d core.Diagnostics) error {
	var errs []error
	if len(d.Unresolved) > 0 {
		errs = append(errs, &UnresolvedReferenceError{Refs: d.Unresolved})
	}
	if len(d.DuplicateDefs) > 0 {
		errs = append(errs, &DuplicateDefinitionError{Defs: d.DuplicateDefs})
	}
	if len(d.Cycles) > 0 {
		errs = append(errs, &CycleDetectedError{Cycle: d.Cycles[0], Cycles: d.Cycles})
	}
	return errors.Join(errs...)
}
