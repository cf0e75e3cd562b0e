package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/notegraph/internal/cli/config"
	"github.com/leapstack-labs/notegraph/internal/cli/output"
	"github.com/leapstack-labs/notegraph/internal/loader"
	"github.com/leapstack-labs/notegraph/pkg/core"
	"github.com/leapstack-labs/notegraph/pkg/reactivity"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for the running command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Options returns graph options for the loaded configuration.
func (c *CommandContext) Options() reactivity.Options {
	return c.Cfg.Options(c.Logger)
}

// getConfig returns the current configuration, or defaults when none was
// loaded (commands constructed directly in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cwd, _ := os.Getwd()
	return &config.Config{
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
		Watch:        config.WatchConfig{Debounce: config.DefaultDebounce},
		ProjectRoot:  cwd,
	}
}

// resolveDocument returns the document path from args, or the single
// document under the project root when no path is given.
func resolveDocument(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		info, err := os.Stat(args[0])
		if err != nil {
			return "", fmt.Errorf("cannot open %s: %w", args[0], err)
		}
		if !info.IsDir() {
			return args[0], nil
		}
		return singleDocument(args[0])
	}
	return singleDocument(cfg.ProjectRoot)
}

func singleDocument(dir string) (string, error) {
	paths, err := loader.Discover(dir)
	if err != nil {
		return "", err
	}
	switch len(paths) {
	case 0:
		return "", fmt.Errorf("no %s files found in %s", loader.Extension, dir)
	case 1:
		return paths[0], nil
	default:
		rel := make([]string, len(paths))
		for i, p := range paths {
			if r, err := filepath.Rel(dir, p); err == nil {
				rel[i] = r
			} else {
				rel[i] = p
			}
		}
		return "", fmt.Errorf("found %d documents, pass one explicitly: %s", len(paths), strings.Join(rel, ", "))
	}
}

// NotebookAnalysis is the graph of one notebook.
type NotebookAnalysis struct {
	Name   string
	ID     string
	Blocks []core.Block
	Graph  *reactivity.Graph
}

// selectNotebooks returns the notebook matching selector, or all of them.
func selectNotebooks(doc *loader.Document, selector string) ([]loader.Notebook, error) {
	if selector == "" {
		return doc.Notebooks, nil
	}
	nb, ok := doc.Notebook(selector)
	if !ok {
		return nil, fmt.Errorf("notebook %q not found in %s", selector, doc.Name)
	}
	return []loader.Notebook{*nb}, nil
}

// analyzeNotebooks builds one graph per notebook concurrently. Results keep
// notebook order. In strict mode the first structural failure aborts.
func analyzeNotebooks(ctx context.Context, notebooks []loader.Notebook, opts reactivity.Options) ([]NotebookAnalysis, error) {
	results := make([]NotebookAnalysis, len(notebooks))

	g, ctx := errgroup.WithContext(ctx)
	for i, nb := range notebooks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			graph, err := reactivity.BuildGraph(nb.Blocks, opts)
			if err != nil {
				return fmt.Errorf("notebook %q: %w", nb.Name, err)
			}
			results[i] = NotebookAnalysis{Name: nb.Name, ID: nb.ID, Blocks: nb.Blocks, Graph: graph}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// loadAndAnalyze loads the document named by args and analyses the
// selected notebooks.
func loadAndAnalyze(cmd *cobra.Command, cc *CommandContext, args []string) (*loader.Document, []NotebookAnalysis, error) {
	path, err := resolveDocument(cc.Cfg, args)
	if err != nil {
		return nil, nil, err
	}
	doc, err := loader.Load(path)
	if err != nil {
		return nil, nil, err
	}
	notebooks, err := selectNotebooks(doc, cc.Cfg.Notebook)
	if err != nil {
		return nil, nil, err
	}
	cc.Logger.Debug("document loaded", "path", path, "notebooks", len(notebooks), "blocks", doc.BlockCount())

	results, err := analyzeNotebooks(cmd.Context(), notebooks, cc.Options())
	if err != nil {
		return nil, nil, err
	}
	return doc, results, nil
}

// notebookWithBlocks picks the notebook holding every id. With an explicit
// selector only that notebook is considered.
func notebookWithBlocks(doc *loader.Document, selector string, ids []string) (*loader.Notebook, error) {
	candidates, err := selectNotebooks(doc, selector)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if hasBlocks(candidates[i], ids) {
			return &candidates[i], nil
		}
	}
	if len(candidates) == 1 {
		// let the resolver name the missing ids
		return &candidates[0], nil
	}
	return nil, &reactivity.UnknownSeedError{IDs: ids}
}

func hasBlocks(nb loader.Notebook, ids []string) bool {
	known := make(map[string]bool, len(nb.Blocks))
	for _, b := range nb.Blocks {
		known[b.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return false
		}
	}
	return true
}
