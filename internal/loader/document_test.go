package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/notegraph/pkg/core"
)

const projectDoc = `version: 1.0.0
project:
  id: p1
  name: Sales
  notebooks:
    - id: nb1
      name: Analysis
      blocks:
        - id: c1
          type: code
          sortingKey: a1
          content: y = name + '!'
        - id: x
          type: input-text
          sortingKey: a0
          metadata:
            deepnote_variable_name: name
        - id: bn
          type: big-number
          sortingKey: a2
          metadata:
            deepnote_big_number_value: y
    - id: nb2
      blocks:
        - id: m
          type: markdown
          content: "# Notes"
`

func TestParse_Project(t *testing.T) {
	doc, err := Parse([]byte(projectDoc), "sales.deepnote")
	require.NoError(t, err)

	assert.Equal(t, "Sales", doc.Name)
	require.Len(t, doc.Notebooks, 2)
	assert.Equal(t, 4, doc.BlockCount())

	nb := doc.Notebooks[0]
	assert.Equal(t, "nb1", nb.ID)
	assert.Equal(t, "Analysis", nb.Name)

	var ids []string
	for _, b := range nb.Blocks {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"x", "c1", "bn"}, ids, "blocks follow sortingKey")
	assert.Equal(t, core.BlockInputText, nb.Blocks[0].Type)
	assert.Equal(t, "name", nb.Blocks[0].MetaString(core.MetaVariableName))
	assert.Equal(t, "y = name + '!'", nb.Blocks[1].Content)

	assert.Equal(t, "notebook-2", doc.Notebooks[1].Name)

	found, ok := doc.Notebook("Analysis")
	require.True(t, ok)
	assert.Equal(t, "nb1", found.ID)
	_, ok = doc.Notebook("nb2")
	assert.True(t, ok)
	_, ok = doc.Notebook("missing")
	assert.False(t, ok)
}

func TestParse_BlockList(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "blocks key",
			src: `blocks:
  - {id: b, type: code, content: "z = 1"}
  - {id: a, type: code, content: "w = z"}
`,
		},
		{
			name: "bare sequence",
			src: `- id: b
  type: code
  content: z = 1
- id: a
  type: code
  content: w = z
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.src), "dir/demo.yaml")
			require.NoError(t, err)

			assert.Equal(t, "demo", doc.Name)
			require.Len(t, doc.Notebooks, 1)
			blocks := doc.Notebooks[0].Blocks
			require.Len(t, blocks, 2)
			assert.Equal(t, "b", blocks[0].ID, "declared order is kept without sorting keys")
			assert.Equal(t, "a", blocks[1].ID)
		})
	}
}

func TestParse_PartialSortingKeysKeepDeclaredOrder(t *testing.T) {
	src := `blocks:
  - {id: second, sortingKey: b}
  - {id: first}
`
	doc, err := Parse([]byte(src), "x.yaml")
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Notebooks[0].Blocks[0].ID)
}

func TestParse_NestedMetadata(t *testing.T) {
	src := `blocks:
  - id: f
    type: notebook-function
    metadata:
      function_notebook_inputs:
        source:
          variable_name: df
      function_notebook_export_mappings:
        result:
          enabled: true
          variable_name: out
`
	doc, err := Parse([]byte(src), "f.yaml")
	require.NoError(t, err)

	b := doc.Notebooks[0].Blocks[0]
	inputs := b.MetaMap(core.MetaFunctionInputs)
	require.NotNil(t, inputs)
	source := core.AsStringMap(inputs["source"])
	assert.Equal(t, "df", source["variable_name"])
	exports := core.AsStringMap(b.MetaMap(core.MetaFunctionExports)["result"])
	assert.Equal(t, true, exports["enabled"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{name: "empty", src: "  \n", wantMsg: "empty document"},
		{name: "invalid yaml", src: "blocks: [", wantMsg: "invalid YAML"},
		{name: "no known key", src: "title: nothing", wantMsg: `expected a "project" or "blocks" key`},
		{name: "missing id", src: "blocks:\n  - type: code\n", wantMsg: "block 1 has no id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.yaml")
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "bad.yaml", parseErr.File)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadAndDiscover(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "sales.deepnote"), []byte(projectDoc), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.deepnote"), []byte("blocks: []\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden", "skip.deepnote"), []byte(projectDoc), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))

	paths, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.deepnote"),
		filepath.Join(root, "sub", "sales.deepnote"),
	}, paths)

	doc, err := Load(paths[1])
	require.NoError(t, err)
	assert.Equal(t, paths[1], doc.Path)
	assert.Equal(t, "Sales", doc.Name)

	_, err = Load(filepath.Join(root, "missing.deepnote"))
	assert.Error(t, err)
}
