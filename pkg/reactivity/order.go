package reactivity

import "fmt"

// Order returns block ids so that every producer precedes its consumers.
// With no ids it orders the whole graph; otherwise only the given blocks
// and the edges between them. Edges on a cycle are ignored. Among blocks
// that are ready at the same time the earlier notebook position goes first.
func Order(g *Graph, ids ...string) ([]string, error) {
	d := g.acyclicDAG()
	if len(ids) > 0 {
		if err := g.checkKnown(ids); err != nil {
			return nil, err
		}
		d = d.Subgraph(ids)
	}

	order, err := d.TopologicalIDs()
	if err != nil {
		// cycle edges were excluded above
		return nil, fmt.Errorf("ordering blocks: %w", err)
	}
	return order, nil
}

// Levels groups blocks into execution waves. Blocks in one level depend
// only on blocks in earlier levels and can run in parallel.
func Levels(g *Graph) ([][]string, error) {
	levels, err := g.acyclicDAG().GetExecutionLevels()
	if err != nil {
		return nil, fmt.Errorf("computing execution levels: %w", err)
	}
	return levels, nil
}

// checkKnown returns an UnknownSeedError naming every id that is not a node.
func (g *Graph) checkKnown(ids []string) error {
	var unknown []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !g.HasNode(id) && !seen[id] {
			seen[id] = true
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &UnknownSeedError{IDs: unknown}
	}
	return nil
}
