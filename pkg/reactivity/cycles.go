package reactivity

// CheckCycles finds the cycles of a graph, records them in
// g.Diagnostics.Cycles and marks every edge that lies on one.
//
// Each cycle is an open block-id sequence starting at its lowest id. An
// edge is marked when both ends belong to the same strongly connected
// component, so the unmarked edges always form an acyclic graph.
func CheckCycles(g *Graph) [][]string {
	d := g.fullDAG()

	cycles := d.FindCycles()
	if cycles == nil {
		cycles = [][]string{}
	}
	g.Diagnostics.Cycles = cycles

	component := make(map[string]int)
	for i, members := range d.StronglyConnected() {
		for _, id := range members {
			component[id] = i + 1
		}
	}
	for i := range g.Edges {
		e := &g.Edges[i]
		from, to := component[e.From], component[e.To]
		e.InCycle = from != 0 && from == to
	}

	return cycles
}
