package reactivity

import (
	"github.com/leapstack-labs/notegraph/pkg/core"
)

// Downstream returns the seeds and every block that transitively depends
// on them, in execution order. The graph is always built in partial mode
// so an inconsistent document still yields an answer. A seed that is not
// in blocks fails with UnknownSeedError.
func Downstream(blocks []core.Block, seeds []string) ([]string, error) {
	return DownstreamWithOptions(blocks, seeds, Options{})
}

// DownstreamWithOptions is Downstream with explicit options.
// AcceptPartialDAG is forced on.
func DownstreamWithOptions(blocks []core.Block, seeds []string, opts Options) ([]string, error) {
	if err := checkSeeds(blocks, seeds); err != nil {
		return nil, err
	}
	opts.AcceptPartialDAG = true
	g, err := BuildGraph(blocks, opts)
	if err != nil {
		return nil, err
	}
	ids, err := DownstreamOf(g, seeds)
	if err != nil {
		return nil, err
	}
	opts.logger().Debug("downstream resolved", "seeds", len(seeds), "blocks", len(ids))
	return ids, nil
}

// DownstreamOf resolves the downstream set over an already built graph.
// Reachability follows every edge, cycle edges included, and data and
// control edges alike.
func DownstreamOf(g *Graph, seeds []string) ([]string, error) {
	if err := g.checkKnown(seeds); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return []string{}, nil
	}
	return Order(g, g.fullDAG().GetAffectedNodes(seeds)...)
}

// Upstream returns the given blocks and every block they transitively
// depend on, in execution order.
func Upstream(blocks []core.Block, ids []string) ([]string, error) {
	return UpstreamWithOptions(blocks, ids, Options{})
}

// UpstreamWithOptions is Upstream with explicit options.
// AcceptPartialDAG is forced on.
func UpstreamWithOptions(blocks []core.Block, ids []string, opts Options) ([]string, error) {
	if err := checkSeeds(blocks, ids); err != nil {
		return nil, err
	}
	opts.AcceptPartialDAG = true
	g, err := BuildGraph(blocks, opts)
	if err != nil {
		return nil, err
	}
	return UpstreamOf(g, ids)
}

// UpstreamOf resolves the upstream set over an already built graph.
func UpstreamOf(g *Graph, ids []string) ([]string, error) {
	if err := g.checkKnown(ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	d := g.fullDAG()
	seen := make(map[string]bool)
	var collected []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			collected = append(collected, id)
		}
	}
	for _, id := range ids {
		add(id)
		for _, parent := range d.GetUpstreamNodes(id) {
			add(parent)
		}
	}
	return Order(g, collected...)
}

// checkSeeds validates seeds against the raw block list, before any
// analysis runs.
func checkSeeds(blocks []core.Block, seeds []string) error {
	known := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		known[b.ID] = true
	}
	var unknown []string
	reported := make(map[string]bool)
	for _, id := range seeds {
		if !known[id] && !reported[id] {
			reported[id] = true
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &UnknownSeedError{IDs: unknown}
	}
	return nil
}
