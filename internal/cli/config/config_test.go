package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	flags.String("log-level", "", "")
	flags.Bool("partial", false, "")
	flags.StringSlice("ignore", nil, "")
	flags.String("notebook", "", "")
	flags.Duration("debounce", 0, "")
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "notegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	defer ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.False(t, cfg.AcceptPartialDAG)
	assert.Empty(t, cfg.IgnoreNames)
	assert.Equal(t, "", GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `accept_partial_dag: true
ignore_names: [spark]
output: json
log_level: debug
watch:
  debounce: 750ms
`)
	defer ResetConfig()

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.True(t, cfg.AcceptPartialDAG)
	assert.Equal(t, []string{"spark"}, cfg.IgnoreNames)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 750*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, dir, cfg.ProjectRoot)
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "notebook: Analysis\n")
	nested := filepath.Join(root, "notebooks", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)
	defer ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "Analysis", cfg.Notebook)

	// macOS temp dirs resolve through symlinks
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(cfg.ProjectRoot)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "output: markdown\nignore_names: [a]\nlog_level: info\n")
	t.Setenv("NOTEGRAPH_OUTPUT", "text")
	t.Setenv("NOTEGRAPH_IGNORE_NAMES", "b,c")
	t.Setenv("NOTEGRAPH_WATCH_DEBOUNCE", "2s")
	defer ResetConfig()

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.OutputFormat, "env overrides file")
	assert.Equal(t, []string{"b", "c"}, cfg.IgnoreNames)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.LogLevel, "file value survives")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"-o", "json", "--partial", "--ignore", "x,y", "--debounce", "5s"}))

	cfg, err = LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat, "flag overrides env")
	assert.True(t, cfg.AcceptPartialDAG)
	assert.Equal(t, []string{"x", "y"}, cfg.IgnoreNames)
	assert.Equal(t, 5*time.Second, cfg.Watch.Debounce)
}

func TestLoadConfig_UnchangedFlagsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "output: markdown\n")
	defer ResetConfig()

	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "bad output", content: "output: xml\n", errSubstr: "invalid output format"},
		{name: "bad level", content: "log_level: loud\n", errSubstr: "invalid log level"},
		{name: "negative debounce", content: "watch:\n  debounce: -1s\n", errSubstr: "must not be negative"},
		{name: "bad yaml", content: "output: [\n", errSubstr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			defer ResetConfig()

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		cfg  Config
		want slog.Level
	}{
		{Config{LogLevel: "error"}, slog.LevelError},
		{Config{LogLevel: "INFO"}, slog.LevelInfo},
		{Config{LogLevel: ""}, slog.LevelWarn},
		{Config{LogLevel: "error", Verbose: true}, slog.LevelDebug},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.SlogLevel())
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "log_level", envKey("NOTEGRAPH_LOG_LEVEL"))
	assert.Equal(t, "watch.debounce", envKey("NOTEGRAPH_WATCH_DEBOUNCE"))
	assert.Equal(t, "accept_partial_dag", envKey("NOTEGRAPH_ACCEPT_PARTIAL_DAG"))
}

func TestGetLogger(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)

	assert.Same(t, logger, GetLogger(ctx))
	assert.NotNil(t, GetLogger(context.Background()))
}
