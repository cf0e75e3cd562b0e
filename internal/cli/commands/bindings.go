package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/notegraph/internal/cli/output"
	"github.com/leapstack-labs/notegraph/internal/loader"
	"github.com/leapstack-labs/notegraph/pkg/core"
	"github.com/leapstack-labs/notegraph/pkg/reactivity"
)

// NewBindingsCommand creates the bindings command.
func NewBindingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings [file]",
		Short: "Show the names each block defines and uses",
		Long: `List the variables every block defines and uses, as seen by the
dependency analysis. Optional uses (SQL table names, environment references)
only link when a block defines them.

Bindings never fail: blocks that cannot be analysed show a warning.`,
		Example: `  notegraph bindings analysis.deepnote
  notegraph bindings analysis.deepnote --notebook Analysis -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBindings(cmd, args)
		},
	}
	return cmd
}

func runBindings(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	path, err := resolveDocument(cc.Cfg, args)
	if err != nil {
		return err
	}
	doc, err := loader.Load(path)
	if err != nil {
		return err
	}
	notebooks, err := selectNotebooks(doc, cc.Cfg.Notebook)
	if err != nil {
		return err
	}

	opts := cc.Options()
	outputs := make([]output.BindingsOutput, 0, len(notebooks))
	for _, nb := range notebooks {
		bindings := make([]core.Binding, 0, len(nb.Blocks))
		for _, b := range nb.Blocks {
			bindings = append(bindings, reactivity.ExtractBindingsWithOptions(b, opts))
		}
		outputs = append(outputs, output.BindingsOutput{Notebook: nb.Name, Bindings: bindings})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(outputs)
	}

	for _, out := range outputs {
		r.Header(1, "Bindings "+out.Notebook)
		rows := make([][]string, 0, len(out.Bindings))
		for _, b := range out.Bindings {
			rows = append(rows, []string{
				b.BlockID,
				output.TypeLabel(b.Type.String()),
				output.FormatList(b.Defines),
				output.FormatList(b.Uses),
				output.FormatList(append(append([]string{}, b.Optional...), b.Imports...)),
			})
		}
		r.Table([]string{"Block", "Type", "Defines", "Uses", "Optional / Imports"}, rows)
		r.Println("")
		for _, b := range out.Bindings {
			for _, w := range b.Warnings {
				r.Warning(b.BlockID + ": " + w.Message)
			}
		}
	}
	return nil
}
