package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// importsOf returns the imports of every non-test file in dir, keyed by file.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	fset := token.NewFileSet()
	out := make(map[string][]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		require.NoError(t, err, name)
		for _, imp := range f.Imports {
			out[name] = append(out[name], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCoreImportsOnlyStdlib keeps the block and graph types free of
// dependencies so any consumer can use them.
func TestCoreImportsOnlyStdlib(t *testing.T) {
	for file, imports := range importsOf(t, ".") {
		for _, imp := range imports {
			first, _, _ := strings.Cut(imp, "/")
			assert.NotContains(t, first, ".", "%s imports non-stdlib package %s", file, imp)
		}
	}
}

// TestReactivityIndependentOfCLI keeps the graph engine usable as a library.
func TestReactivityIndependentOfCLI(t *testing.T) {
	forbidden := []string{"/internal/cli", "/internal/loader", "/internal/config"}

	for file, imports := range importsOf(t, filepath.Join("..", "reactivity")) {
		for _, imp := range imports {
			for _, f := range forbidden {
				assert.NotContains(t, imp, f, "%s imports %s", file, imp)
			}
		}
	}
}
