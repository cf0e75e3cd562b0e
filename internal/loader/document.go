// Package loader decodes notebook documents into block lists.
//
// Two shapes are accepted: a .deepnote project file
// (project.notebooks[].blocks[]) and a plain block list, either a top-level
// sequence or a mapping with a "blocks" key. Nothing beyond what the graph
// engine needs is validated.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/notegraph/pkg/core"
)

// Extension is the file extension of project documents.
const Extension = ".deepnote"

// Document is a decoded file holding one or more notebooks.
type Document struct {
	// Path is the file the document was read from, if any.
	Path      string
	Name      string
	Notebooks []Notebook
}

// Notebook is an ordered block list.
type Notebook struct {
	ID     string
	Name   string
	Blocks []core.Block
}

// Notebook finds a notebook by id or name.
func (d *Document) Notebook(key string) (*Notebook, bool) {
	for i := range d.Notebooks {
		nb := &d.Notebooks[i]
		if nb.ID == key || nb.Name == key {
			return nb, true
		}
	}
	return nil, false
}

// BlockCount is the number of blocks across all notebooks.
func (d *Document) BlockCount() int {
	n := 0
	for _, nb := range d.Notebooks {
		n += len(nb.Blocks)
	}
	return n
}

// rawDocument covers both accepted mapping shapes.
type rawDocument struct {
	Project *struct {
		Name      string        `yaml:"name"`
		Notebooks []rawNotebook `yaml:"notebooks"`
	} `yaml:"project"`
	Blocks []rawBlock `yaml:"blocks"`
}

type rawNotebook struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Blocks []rawBlock `yaml:"blocks"`
}

type rawBlock struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Content    string         `yaml:"content"`
	Metadata   map[string]any `yaml:"metadata"`
	SortingKey string         `yaml:"sortingKey"`
}

// Load reads and decodes a document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Parse decodes a document. source names the input in errors and supplies
// the document name when the content has none.
func Parse(data []byte, source string) (*Document, error) {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{File: source, Message: "empty document"}
	}

	// a bare sequence is a single block list
	if trimmed[0] == '-' || trimmed[0] == '[' {
		var blocks []rawBlock
		if err := yaml.Unmarshal(data, &blocks); err != nil {
			return nil, newParseError(source, err)
		}
		nb, err := convertNotebook(source, rawNotebook{Name: name, Blocks: blocks})
		if err != nil {
			return nil, err
		}
		return &Document{Name: name, Notebooks: []Notebook{nb}}, nil
	}

	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newParseError(source, err)
	}

	doc := &Document{Name: name}
	switch {
	case raw.Project != nil:
		if raw.Project.Name != "" {
			doc.Name = raw.Project.Name
		}
		for i, rnb := range raw.Project.Notebooks {
			if rnb.Name == "" {
				rnb.Name = fmt.Sprintf("notebook-%d", i+1)
			}
			nb, err := convertNotebook(source, rnb)
			if err != nil {
				return nil, err
			}
			doc.Notebooks = append(doc.Notebooks, nb)
		}
	case raw.Blocks != nil:
		nb, err := convertNotebook(source, rawNotebook{Name: name, Blocks: raw.Blocks})
		if err != nil {
			return nil, err
		}
		doc.Notebooks = []Notebook{nb}
	default:
		return nil, &ParseError{File: source, Message: `expected a "project" or "blocks" key`}
	}

	return doc, nil
}

// convertNotebook orders blocks by sortingKey when every block carries one,
// and keeps the declared order otherwise.
func convertNotebook(source string, rnb rawNotebook) (Notebook, error) {
	nb := Notebook{ID: rnb.ID, Name: rnb.Name, Blocks: make([]core.Block, 0, len(rnb.Blocks))}

	keyed := len(rnb.Blocks) > 0
	for _, rb := range rnb.Blocks {
		if rb.SortingKey == "" {
			keyed = false
			break
		}
	}
	raws := rnb.Blocks
	if keyed {
		raws = append([]rawBlock(nil), rnb.Blocks...)
		sort.SliceStable(raws, func(i, j int) bool {
			return raws[i].SortingKey < raws[j].SortingKey
		})
	}

	for i, rb := range raws {
		id := strings.TrimSpace(rb.ID)
		if id == "" {
			return Notebook{}, &ParseError{
				File:    source,
				Message: fmt.Sprintf("notebook %q: block %d has no id", rnb.Name, i+1),
			}
		}
		nb.Blocks = append(nb.Blocks, core.Block{
			ID:       id,
			Type:     core.BlockType(rb.Type),
			Content:  rb.Content,
			Metadata: rb.Metadata,
		})
	}
	return nb, nil
}

// Discover lists document files under root, sorted by path.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == Extension {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ParseError reports an undecodable document.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

func newParseError(source string, err error) *ParseError {
	return &ParseError{File: source, Message: fmt.Sprintf("invalid YAML: %v", err)}
}
