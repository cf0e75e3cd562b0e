package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/notegraph/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/notegraph/internal/config"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-analyse a document every time it is saved",
		Long: `Watch a document and print a graph summary after every save.
Problems are reported but never stop the watch; press Ctrl+C to exit.

Analysis always runs in partial mode while watching.`,
		Example: `  notegraph watch analysis.deepnote
  notegraph watch analysis.deepnote --debounce 500ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}
	cmd.Flags().Duration("debounce", 0, "Wait this long after a write before re-analysing")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	cc.Cfg.AcceptPartialDAG = true

	path, err := resolveDocument(cc.Cfg, args)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	debounce := cc.Cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	dir := filepath.Dir(abs)
	session := &watchSession{
		path:     abs,
		configs:  configPaths(dir),
		debounce: debounce,
		logger:   cc.Logger,
		analyze: func() {
			summarize(cmd, cc, []string{abs})
		},
		reload: func() {
			reloadAnalysis(cc, dir)
		},
	}

	cc.Renderer.Muted(fmt.Sprintf("watching %s", path))
	session.analyze()
	return session.loop(ctx, watcher.Events, watcher.Errors)
}

// watchSession debounces file events into analysis runs. A change to a
// config file beside the document reloads analysis settings first.
type watchSession struct {
	path     string
	configs  []string
	debounce time.Duration
	logger   *slog.Logger
	analyze  func()
	reload   func()
}

// classify reports whether ev touches the document or a config file.
func (s *watchSession) classify(ev fsnotify.Event) (doc, cfg bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false, false
	}
	name := filepath.Clean(ev.Name)
	if name == s.path {
		return true, false
	}
	for _, c := range s.configs {
		if name == c {
			return false, true
		}
	}
	return false, false
}

// loop runs until ctx is done or the watcher closes its channels.
func (s *watchSession) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	reload := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			doc, cfg := s.classify(ev)
			if !doc && !cfg {
				continue
			}
			reload = reload || cfg
			s.logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(s.debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		case <-timer.C:
			if reload && s.reload != nil {
				s.reload()
			}
			reload = false
			s.analyze()
		}
	}
}

func configPaths(dir string) []string {
	return []string{
		filepath.Join(dir, sharedcfg.ConfigFileName),
		filepath.Join(dir, sharedcfg.ConfigFileNameAlt),
	}
}

// reloadAnalysis re-reads the analysis settings of the config file in dir.
// Watching stays in partial mode whatever the file says.
func reloadAnalysis(cc *CommandContext, dir string) {
	pc, err := sharedcfg.LoadFromDir(dir)
	if err != nil {
		cc.Renderer.Error(err.Error())
		return
	}
	if pc == nil {
		return
	}
	cc.Cfg.AnalysisConfig = pc.AnalysisConfig
	cc.Cfg.AcceptPartialDAG = true
	cc.Logger.Info("analysis settings reloaded", "dir", dir)
}

// summarize prints one line per notebook plus its diagnostics.
func summarize(cmd *cobra.Command, cc *CommandContext, args []string) {
	r := cc.Renderer
	styles := r.Styles()

	_, results, err := loadAndAnalyze(cmd, cc, args)
	if err != nil {
		r.Error(err.Error())
		return
	}

	stamp := time.Now().Format("15:04:05")
	for _, res := range results {
		status := styles.Success.Render("valid")
		if !res.Graph.Valid() {
			status = styles.Warning.Render("partial")
		}
		r.Printf("%s %s: %d blocks, %d edges, %s\n",
			styles.Muted.Render(stamp), res.Name, len(res.Graph.Nodes), len(res.Graph.Edges), status)
		if r.EffectiveMode() == output.ModeText {
			diagnosticsText(r, res.Graph.Diagnostics)
		} else {
			diagnosticsMarkdown(r, res.Graph.Diagnostics)
		}
	}
}
