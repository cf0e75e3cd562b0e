package reactivity

import (
	"github.com/leapstack-labs/notegraph/internal/pyscan"
	"github.com/leapstack-labs/notegraph/pkg/core"
)

// extractCode scans Python source. Magic and shell lines are skipped by
// the scanner, builtins are never uses.
func extractCode(s *bindingSet, block core.Block) {
	r := pyscan.Analyze(block.Content)
	s.define(r.Defines...)
	s.use(r.Uses...)
	s.imported(r.Imports...)
}
