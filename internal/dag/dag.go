// Package dag provides directed graph operations for notebook block dependencies.
// It supports cycle enumeration, position-stable topological sorting, and
// downstream/upstream change propagation.
package dag

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier (block id)
	ID string
	// Position is the node's place in the notebook's declared order
	Position int
	// Data holds arbitrary node data
	Data interface{}
}

// Graph represents a directed graph whose nodes carry a declared position.
// Iteration order is always position order, never map order.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // node ids in insertion order
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph at the given position.
func (g *Graph) AddNode(id string, position int, data interface{}) {
	if node, exists := g.nodes[id]; exists {
		// Update data if node already exists
		node.Position = position
		node.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Position: position, Data: data}
	g.order = append(g.order, id)
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	// Ensure both nodes exist
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}

	// Check for self-loops
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	// Add edge (avoid duplicates)
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}

	return nil
}

// HasEdge reports whether parent -> child exists.
func (g *Graph) HasEdge(parentID, childID string) bool {
	return contains(g.edges[parentID], childID)
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// GetAllNodes returns all nodes in position order.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	g.sortNodes(nodes)
	return nodes
}

// NodeIDs returns all node ids in position order.
func (g *Graph) NodeIDs() []string {
	nodes := g.GetAllNodes()
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with one cycle.
func (g *Graph) HasCycle() (bool, []string) {
	cycles := g.FindCycles()
	if len(cycles) == 0 {
		return false, nil
	}
	return true, cycles[0]
}

// FindCycles enumerates the cycles closed by back edges of a depth-first
// traversal that visits roots and children in position order.
// Each cycle is an open id sequence rotated to start at its lowest id;
// duplicates are dropped. Removing every edge of every returned cycle always
// leaves an acyclic graph.
func (g *Graph) FindCycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = grey
		stack = append(stack, id)

		for _, childID := range g.sortedIDs(g.edges[id]) {
			switch color[childID] {
			case white:
				dfs(childID)
			case grey:
				// Back edge: the cycle is the stack suffix starting at childID
				start := len(stack) - 1
				for stack[start] != childID {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				sig := strings.Join(cycle, "\x00")
				if !seen[sig] {
					seen[sig] = true
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range g.NodeIDs() {
		if color[id] == white {
			dfs(id)
		}
	}

	return cycles
}

// canonicalCycle rotates a cycle so that it starts at its lowest id.
func canonicalCycle(cycle []string) []string {
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minIdx:]...)
	out = append(out, cycle[:minIdx]...)
	return out
}

// StronglyConnected returns every strongly connected component with more
// than one node. An edge lies on a cycle iff both its ends share one of
// these components. Components and their members are in position order.
func (g *Graph) StronglyConnected() [][]string {
	index := make(map[string]int, len(g.nodes))
	low := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var stack []string
	var components [][]string
	next := 0

	var connect func(id string)
	connect = func(id string) {
		index[id] = next
		low[id] = next
		next++
		stack = append(stack, id)
		onStack[id] = true

		for _, childID := range g.sortedIDs(g.edges[id]) {
			if _, seen := index[childID]; !seen {
				connect(childID)
				low[id] = min(low[id], low[childID])
			} else if onStack[childID] {
				low[id] = min(low[id], index[childID])
			}
		}

		if low[id] != index[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		if len(component) > 1 {
			components = append(components, g.sortedIDs(component))
		}
	}

	for _, id := range g.NodeIDs() {
		if _, seen := index[id]; !seen {
			connect(id)
		}
	}

	sort.SliceStable(components, func(i, j int) bool {
		return g.less(components[i][0], components[j][0])
	})
	return components
}

// TopologicalSort returns nodes in topological order (dependencies before dependents).
// It uses Kahn's algorithm; among ready nodes the lowest position goes first.
// Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	inDegree := make(map[string]int, len(g.nodes))
	ready := &nodeQueue{}
	for _, id := range g.order {
		inDegree[id] = len(g.parents[id])
		if inDegree[id] == 0 {
			heap.Push(ready, g.nodes[id])
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for ready.Len() > 0 {
		node := heap.Pop(ready).(*Node)
		result = append(result, node)

		for _, childID := range g.edges[node.ID] {
			inDegree[childID]--
			if inDegree[childID] == 0 {
				heap.Push(ready, g.nodes[childID])
			}
		}
	}

	if len(result) != len(g.nodes) {
		_, cyclePath := g.HasCycle()
		return nil, &CycleError{Path: cyclePath}
	}

	return result, nil
}

// TopologicalIDs is TopologicalSort returning ids only.
func (g *Graph) TopologicalIDs() ([]string, error) {
	nodes, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids, nil
}

// GetExecutionLevels returns nodes grouped by execution level.
// Nodes at level N can be executed in parallel after level N-1 completes.
// Level 0 contains nodes with no dependencies.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]int, len(sorted))
	maxLevel := -1
	for _, node := range sorted {
		level := 0
		for _, parentID := range g.parents[node.ID] {
			if assigned[parentID]+1 > level {
				level = assigned[parentID] + 1
			}
		}
		assigned[node.ID] = level
		if level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, node := range sorted {
		level := assigned[node.ID]
		levels[level] = append(levels[level], node.ID)
	}

	return levels, nil
}

// GetAffectedNodes returns all nodes reachable from the given nodes,
// including the given nodes themselves, in breadth-first discovery order.
// Unknown ids are ignored.
func (g *Graph) GetAffectedNodes(changedIDs []string) []string {
	affected := make(map[string]bool)
	var queue, result []string

	for _, id := range changedIDs {
		if _, exists := g.nodes[id]; exists && !affected[id] {
			affected[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		// Mark all children as affected
		for _, childID := range g.sortedIDs(g.edges[id]) {
			if !affected[childID] {
				affected[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	return result
}

// GetUpstreamNodes returns all nodes upstream of the given node (its dependencies and their dependencies).
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var markUpstream func(nodeID string)
	markUpstream = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				markUpstream(parentID)
			}
		}
	}

	markUpstream(id)

	result := make([]string, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	return g.sortedIDs(result)
}

// GetRoots returns nodes with no parents (no dependencies).
func (g *Graph) GetRoots() []string {
	var roots []string
	for _, id := range g.NodeIDs() {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// GetLeaves returns nodes with no children (no dependents).
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for _, id := range g.NodeIDs() {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Subgraph returns a new graph containing only the specified nodes and their edges.
// Positions are preserved.
func (g *Graph) Subgraph(nodeIDs []string) *Graph {
	subgraph := NewGraph()
	nodeSet := make(map[string]bool)

	for _, id := range g.sortedIDs(nodeIDs) {
		if node, exists := g.nodes[id]; exists {
			nodeSet[id] = true
			subgraph.AddNode(id, node.Position, node.Data)
		}
	}

	// Add edges between included nodes
	for _, id := range subgraph.order {
		for _, childID := range g.edges[id] {
			if nodeSet[childID] {
				_ = subgraph.AddEdge(id, childID)
			}
		}
	}

	return subgraph
}

// sortedIDs returns a copy of ids ordered by node position.
// Unknown ids sort last, by id.
func (g *Graph) sortedIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		return g.less(out[i], out[j])
	})
	return out
}

func (g *Graph) sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return g.less(nodes[i].ID, nodes[j].ID)
	})
}

func (g *Graph) less(a, b string) bool {
	na, okA := g.nodes[a]
	nb, okB := g.nodes[b]
	switch {
	case okA && okB:
		if na.Position != nb.Position {
			return na.Position < nb.Position
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// CycleError is returned when an operation needs an acyclic graph.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// nodeQueue is a min-heap of nodes ordered by position, then id.
type nodeQueue []*Node

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].Position != q[j].Position {
		return q[i].Position < q[j].Position
	}
	return q[i].ID < q[j].ID
}
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(*Node)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	node := old[n-1]
	*q = old[:n-1]
	return node
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
