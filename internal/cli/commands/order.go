package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/notegraph/internal/cli/output"
	"github.com/leapstack-labs/notegraph/pkg/reactivity"
)

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order [file]",
		Short: "Print blocks in execution order",
		Long: `Print every block so that producers come before their consumers.
Blocks without a dependency between them keep notebook order.`,
		Example: `  notegraph order analysis.deepnote
  notegraph order analysis.deepnote --partial -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(cmd, args)
		},
	}
	return cmd
}

func runOrder(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	_, results, err := loadAndAnalyze(cmd, cc, args)
	if err != nil {
		return err
	}

	outputs := make([]output.SequenceOutput, 0, len(results))
	for _, res := range results {
		ids, err := reactivity.Order(res.Graph)
		if err != nil {
			return err
		}
		outputs = append(outputs, output.SequenceOutput{Notebook: res.Name, Blocks: ids})
	}
	return renderSequences(cc.Renderer, "Execution order", outputs)
}

// renderSequences prints ordered block lists.
func renderSequences(r *output.Renderer, title string, outputs []output.SequenceOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(outputs)
	}

	styles := r.Styles()
	for _, out := range outputs {
		r.Header(1, title+": "+out.Notebook)
		for i, id := range out.Blocks {
			if r.EffectiveMode() == output.ModeText {
				r.Printf("  %s %s\n", styles.Muted.Render(padIndex(i+1, len(out.Blocks))), styles.BlockID.Render(id))
				continue
			}
			r.Printf("%d. %s\n", i+1, id)
		}
		r.Println("")
	}
	return nil
}

// padIndex right-aligns a 1-based position to the width of total.
func padIndex(i, total int) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("%*d.", width, i)
}
