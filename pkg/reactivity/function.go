package reactivity

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/syntax"

	"github.com/leapstack-labs/notegraph/internal/pyscan"
	"github.com/leapstack-labs/notegraph/pkg/core"
)

var callOptions = &syntax.FileOptions{}

// extractFunction reads a notebook-function block. Inputs bound to a
// variable (no custom value) are uses and enabled export mappings are
// defines. Call content of the form "out = fn(a, b=c)" adds fn, a and c
// as uses and out as a define.
func extractFunction(s *bindingSet, block core.Block) {
	inputs := block.MetaMap(core.MetaFunctionInputs)
	for _, key := range sortedMapKeys(inputs) {
		cfg := core.AsStringMap(inputs[key])
		if cfg == nil || cfg["custom_value"] != nil {
			continue
		}
		if name, _ := cfg["variable_name"].(string); strings.TrimSpace(name) != "" {
			s.use(core.SanitizeVariableName(name))
		}
	}

	exports := block.MetaMap(core.MetaFunctionExports)
	for _, key := range sortedMapKeys(exports) {
		cfg := core.AsStringMap(exports[key])
		if cfg == nil {
			continue
		}
		enabled, _ := cfg["enabled"].(bool)
		if name, _ := cfg["variable_name"].(string); enabled && strings.TrimSpace(name) != "" {
			s.define(core.SanitizeVariableName(name))
		}
	}

	content := strings.TrimSpace(block.Content)
	if content == "" {
		return
	}
	f, err := callOptions.Parse(block.ID, content, 0)
	if err != nil {
		s.warn(core.WarningFunctionCall, fmt.Sprintf("cannot parse function call: %v", err))
		return
	}

	for _, stmt := range f.Stmts {
		switch stmt := stmt.(type) {
		case *syntax.AssignStmt:
			if stmt.Op != syntax.EQ {
				s.warn(core.WarningFunctionCall, "unsupported assignment operator "+stmt.Op.String())
				continue
			}
			s.define(assignTargets(stmt.LHS)...)
			s.use(callNames(stmt.RHS)...)
		case *syntax.ExprStmt:
			s.use(callNames(stmt.X)...)
		default:
			s.warn(core.WarningFunctionCall, "expected a function call or an assignment from one")
		}
	}
}

// assignTargets returns the names bound by "out" or "a, b".
func assignTargets(e syntax.Expr) []string {
	switch e := e.(type) {
	case *syntax.Ident:
		return []string{e.Name}
	case *syntax.TupleExpr:
		var out []string
		for _, item := range e.List {
			out = append(out, assignTargets(item)...)
		}
		return out
	case *syntax.ListExpr:
		var out []string
		for _, item := range e.List {
			out = append(out, assignTargets(item)...)
		}
		return out
	case *syntax.ParenExpr:
		return assignTargets(e.X)
	}
	return nil
}

// callNames returns the free names an expression reads. Attribute names
// and keyword argument names are not reads.
func callNames(e syntax.Expr) []string {
	var names []string
	var walk func(syntax.Expr)
	walk = func(e syntax.Expr) {
		switch e := e.(type) {
		case *syntax.Ident:
			if !isPythonConstant(e.Name) && !pyscan.IsBuiltin(e.Name) {
				names = append(names, e.Name)
			}
		case *syntax.DotExpr:
			walk(e.X)
		case *syntax.CallExpr:
			walk(e.Fn)
			for _, arg := range e.Args {
				if b, ok := arg.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
					walk(b.Y)
					continue
				}
				walk(arg)
			}
		case *syntax.IndexExpr:
			walk(e.X)
			walk(e.Y)
		case *syntax.BinaryExpr:
			walk(e.X)
			walk(e.Y)
		case *syntax.UnaryExpr:
			if e.X != nil {
				walk(e.X)
			}
		case *syntax.ParenExpr:
			walk(e.X)
		case *syntax.ListExpr:
			for _, item := range e.List {
				walk(item)
			}
		case *syntax.TupleExpr:
			for _, item := range e.List {
				walk(item)
			}
		case *syntax.DictExpr:
			for _, item := range e.List {
				if entry, ok := item.(*syntax.DictEntry); ok {
					walk(entry.Key)
					walk(entry.Value)
				}
			}
		}
	}
	walk(e)
	return names
}

func isPythonConstant(name string) bool {
	return name == "None" || name == "True" || name == "False"
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
