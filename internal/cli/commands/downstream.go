package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/notegraph/internal/cli/output"
	"github.com/leapstack-labs/notegraph/internal/loader"
	"github.com/leapstack-labs/notegraph/pkg/core"
	"github.com/leapstack-labs/notegraph/pkg/reactivity"
)

// NewDownstreamCommand creates the downstream command.
func NewDownstreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downstream <file> <block-id>...",
		Short: "List blocks that must re-run after the given blocks",
		Long: `Print the given blocks and every block that depends on them, directly
or transitively, in execution order. Button triggers count as dependencies.

The graph is always built in partial mode so an inconsistent notebook still
yields an answer. Unknown block ids are an error.`,
		Example: `  # What re-runs when the input widget changes?
  notegraph downstream analysis.deepnote input-1

  notegraph downstream analysis.deepnote a1 b2 -o json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosure(cmd, args, "Downstream", reactivity.DownstreamWithOptions)
		},
	}
	return cmd
}

// NewUpstreamCommand creates the upstream command.
func NewUpstreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upstream <file> <block-id>...",
		Short: "List blocks the given blocks depend on",
		Long: `Print the given blocks and every block they depend on, directly or
transitively, in execution order. Use it to find what must run before a
block can run.`,
		Example: `  notegraph upstream analysis.deepnote chart-1`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosure(cmd, args, "Upstream", reactivity.UpstreamWithOptions)
		},
	}
	return cmd
}

type closureFunc func(blocks []core.Block, ids []string, opts reactivity.Options) ([]string, error)

func runClosure(cmd *cobra.Command, args []string, title string, closure closureFunc) error {
	cc := NewCommandContext(cmd)

	doc, err := loader.Load(args[0])
	if err != nil {
		return err
	}
	seeds := args[1:]

	nb, err := notebookWithBlocks(doc, cc.Cfg.Notebook, seeds)
	if err != nil {
		return err
	}

	ids, err := closure(nb.Blocks, seeds, cc.Options())
	if err != nil {
		return err
	}
	cc.Logger.Debug("closure resolved", "kind", title, "notebook", nb.Name, "seeds", len(seeds), "blocks", len(ids))

	return renderSequences(cc.Renderer, title, []output.SequenceOutput{{
		Notebook: nb.Name,
		Seeds:    seeds,
		Blocks:   ids,
	}})
}
