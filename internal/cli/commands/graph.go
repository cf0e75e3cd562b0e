package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/notegraph/internal/cli/output"
	"github.com/leapstack-labs/notegraph/pkg/core"
	"github.com/leapstack-labs/notegraph/pkg/reactivity"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [file]",
		Short: "Show the block dependency graph",
		Long: `Display the dependency graph of every notebook in a document.

Blocks are grouped by execution level: blocks in one level only depend on
blocks in earlier levels. Edges name the variable they carry; control edges
come from buttons.

Structural problems (unresolved references, duplicate definitions, cycles)
fail the command unless --partial is set, in which case they are listed.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph of the only document in the current directory
  notegraph graph

  # Tolerate an inconsistent notebook
  notegraph graph analysis.deepnote --partial

  # Output as JSON
  notegraph graph analysis.deepnote --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args)
		},
	}

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	_, results, err := loadAndAnalyze(cmd, cc, args)
	if err != nil {
		return err
	}

	outputs := make([]output.GraphOutput, 0, len(results))
	for _, res := range results {
		levels, err := reactivity.Levels(res.Graph)
		if err != nil {
			return err
		}
		outputs = append(outputs, output.GraphOutput{
			Notebook:    res.Name,
			Nodes:       res.Graph.Nodes,
			Edges:       res.Graph.Edges,
			Levels:      levels,
			Diagnostics: res.Graph.Diagnostics,
			Partial:     res.Graph.Partial,
		})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(outputs)
	case output.ModeMarkdown:
		for _, out := range outputs {
			graphMarkdown(r, out)
		}
	default:
		for _, out := range outputs {
			graphText(r, out)
		}
	}
	return nil
}

// parentsOf lists incoming edges per block as "from (via)".
func parentsOf(edges []core.Edge) map[string][]string {
	parents := make(map[string][]string)
	for _, e := range edges {
		label := fmt.Sprintf("%s (%s)", e.From, e.Via)
		if e.Kind == core.EdgeControl {
			label = fmt.Sprintf("%s (%s, control)", e.From, e.Via)
		}
		parents[e.To] = append(parents[e.To], label)
	}
	return parents
}

// graphText outputs a graph in styled text format.
func graphText(r *output.Renderer, out output.GraphOutput) {
	styles := r.Styles()
	parents := parentsOf(out.Edges)

	r.Header(1, "Notebook "+out.Notebook)

	for i, level := range out.Levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, id := range level {
			r.Printf("  %s\n", styles.BlockID.Render(id))
			if deps := parents[id]; len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
		}
		r.Println("")
	}

	diagnosticsText(r, out.Diagnostics)
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d blocks, %d edges", len(out.Nodes), len(out.Edges))))
	r.Println("")
}

func diagnosticsText(r *output.Renderer, d core.Diagnostics) {
	styles := r.Styles()
	for _, ref := range d.Unresolved {
		r.Println(styles.Warning.Render(fmt.Sprintf("! %s uses %s, which no block defines", ref.BlockID, ref.Name)))
	}
	for _, dup := range d.DuplicateDefs {
		r.Println(styles.Warning.Render(fmt.Sprintf("! %s is defined by %s", dup.Name, strings.Join(dup.BlockIDs, ", "))))
	}
	for _, cycle := range d.Cycles {
		r.Println(styles.Error.Render("! cycle: " + strings.Join(append(append([]string{}, cycle...), cycle[0]), " -> ")))
	}
	for _, w := range d.Warnings {
		r.Println(styles.Muted.Render(fmt.Sprintf("  %s: %s", w.BlockID, w.Message)))
	}
	if !d.IsEmpty() || len(d.Warnings) > 0 {
		r.Println("")
	}
}

// graphMarkdown outputs a graph in markdown format.
func graphMarkdown(r *output.Renderer, out output.GraphOutput) {
	parents := parentsOf(out.Edges)

	r.Println(output.FormatHeader(1, "Notebook "+out.Notebook))
	r.Println("")

	for i, level := range out.Levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Sources)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, id := range level {
			r.Printf("- %s\n", id)
			if deps := parents[id]; len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
		}
		r.Println("")
	}

	diagnosticsMarkdown(r, out.Diagnostics)

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Blocks", fmt.Sprintf("%d", len(out.Nodes))))
	r.Println(output.FormatKeyValue("Total Edges", fmt.Sprintf("%d", len(out.Edges))))
	r.Println(output.FormatKeyValue("Partial", fmt.Sprintf("%t", out.Partial)))
	r.Println("")
}

func diagnosticsMarkdown(r *output.Renderer, d core.Diagnostics) {
	if d.IsEmpty() && len(d.Warnings) == 0 {
		return
	}
	r.Println(output.FormatHeader(2, "Diagnostics"))
	for _, ref := range d.Unresolved {
		r.Printf("- unresolved: `%s` in %s\n", ref.Name, ref.BlockID)
	}
	for _, dup := range d.DuplicateDefs {
		r.Printf("- duplicate: `%s` defined by %s\n", dup.Name, strings.Join(dup.BlockIDs, ", "))
	}
	for _, cycle := range d.Cycles {
		r.Printf("- cycle: %s\n", strings.Join(append(append([]string{}, cycle...), cycle[0]), " -> "))
	}
	for _, w := range d.Warnings {
		r.Printf("- warning (%s): %s\n", w.BlockID, w.Message)
	}
	r.Println("")
}
