package template

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"go.starlark.net/syntax"
)

// fileOptions accepts every expression form Starlark supports.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// builtinNames are provided by the template engine, never by a notebook block.
var builtinNames = map[string]struct{}{
	"true": {}, "false": {}, "none": {}, "True": {}, "False": {}, "None": {},
	"loop": {}, "range": {}, "dict": {}, "lipsum": {}, "cycler": {}, "joiner": {},
	"namespace": {}, "self": {}, "varargs": {}, "kwargs": {}, "caller": {},
}

// isTest matches Jinja tests ("x is defined", "n is not divisibleby(3)").
// Starlark has no "is" operator, so tests are dropped before parsing.
var isTest = regexp.MustCompile(`\s+is\s+(?:not\s+)?[A-Za-z_]\w*(?:\s*\([^)]*\))?`)

// leadingName matches the first identifier of each expression tag. It is
// the fallback when the template cannot be tokenized.
var leadingName = regexp.MustCompile(`\{\{-?\s*([A-Za-z_]\w*)`)

// exprKeywords can open an expression without naming a variable.
var exprKeywords = map[string]struct{}{
	"not": {}, "lambda": {}, "if": {}, "in": {}, "and": {}, "or": {},
}

type scope struct {
	kind  StmtKind
	names map[string]struct{}
}

// extractor walks a token stream tracking template-local bindings.
type extractor struct {
	file   string
	scopes []*scope
	uses   map[string]struct{}
	errs   []error
}

// References returns the sorted free names a template reads: names that
// are not bound by the template itself (for, set, macro, with, import) and
// are not engine builtins. Filter names after "|" are not references.
//
// Extraction is best-effort. Malformed expressions or statements are skipped
// and reported through the joined error, while the names from every
// well-formed part are still returned. When the template does not tokenize
// at all, the leading name of every {{ tag is returned alongside the lexer
// error.
func References(src, file string) ([]string, error) {
	tokens, err := NewLexer(src, file).Tokenize()
	if err != nil {
		return leadingNames(src), err
	}

	x := &extractor{
		file:   file,
		scopes: []*scope{{names: make(map[string]struct{})}},
		uses:   make(map[string]struct{}),
	}

	for _, tok := range tokens {
		switch tok.Type {
		case TokenExpr:
			x.expr(tok.Value, tok.Pos, nil)
		case TokenStmt:
			x.stmt(tok)
		}
	}

	for _, s := range x.scopes[1:] {
		x.errs = append(x.errs, unmatchedError(Position{File: file}, s.kind))
	}

	uses := make([]string, 0, len(x.uses))
	for name := range x.uses {
		uses = append(uses, name)
	}
	sort.Strings(uses)
	return uses, errors.Join(x.errs...)
}

// leadingNames scans raw source for the first identifier of each
// expression tag, skipping builtins and keywords.
func leadingNames(src string) []string {
	seen := make(map[string]struct{})
	names := []string{}
	for _, m := range leadingName.FindAllStringSubmatch(src, -1) {
		name := m[1]
		if _, ok := builtinNames[name]; ok {
			continue
		}
		if _, ok := exprKeywords[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (x *extractor) stmt(tok Token) {
	st, err := ParseStmt(tok.Value, tok.Pos)
	if err != nil {
		x.errs = append(x.errs, err)
		return
	}

	switch st.Kind {
	case StmtFor:
		x.expr(st.Expr, st.Pos, nil)
		x.push(StmtFor, st.Targets...)
		if st.Filter != "" {
			x.expr(st.Filter, st.Pos, nil)
		}
	case StmtIf, StmtElif, StmtExpr:
		x.expr(st.Expr, st.Pos, nil)
	case StmtSet:
		if st.Expr != "" {
			x.expr(st.Expr, st.Pos, nil)
		}
		x.bind(st.Targets...)
	case StmtMacro:
		x.bind(st.Targets...)
		x.push(StmtMacro, x.params(st.Expr, st.Pos)...)
	case StmtWith:
		x.expr(st.Expr, st.Pos, nil)
		x.push(StmtWith, st.Targets...)
	case StmtImport:
		x.bind(st.Targets...)
	case StmtEndFor:
		x.pop(StmtFor, st)
	case StmtEndMacro:
		x.pop(StmtMacro, st)
	case StmtEndWith:
		x.pop(StmtWith, st)
	}
}

func (x *extractor) push(kind StmtKind, names ...string) {
	s := &scope{kind: kind, names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	x.scopes = append(x.scopes, s)
}

func (x *extractor) pop(kind StmtKind, st *Stmt) {
	top := x.scopes[len(x.scopes)-1]
	if len(x.scopes) == 1 || top.kind != kind {
		x.errs = append(x.errs, unmatchedError(st.Pos, st.Kind))
		return
	}
	x.scopes = x.scopes[:len(x.scopes)-1]
}

func (x *extractor) bind(names ...string) {
	top := x.scopes[len(x.scopes)-1]
	for _, n := range names {
		top.names[n] = struct{}{}
	}
}

func (x *extractor) isBound(name string) bool {
	if _, ok := builtinNames[name]; ok {
		return true
	}
	for _, s := range x.scopes {
		if _, ok := s.names[name]; ok {
			return true
		}
	}
	return false
}

// params reads a macro signature "name(a, b=default)": defaults are
// references, parameter names are returned for the macro body scope.
func (x *extractor) params(signature string, pos Position) []string {
	e, err := fileOptions.ParseExpr(x.file, signature, 0)
	if err != nil {
		x.errs = append(x.errs, exprError(pos, signature, err))
		return nil
	}
	call, ok := e.(*syntax.CallExpr)
	if !ok {
		return nil
	}

	var names []string
	for _, arg := range call.Args {
		switch a := arg.(type) {
		case *syntax.Ident:
			names = append(names, a.Name)
		case *syntax.BinaryExpr:
			if id, ok := a.X.(*syntax.Ident); ok && a.Op == syntax.EQ {
				names = append(names, id.Name)
				x.walk(a.Y, nil)
			}
		}
	}
	return names
}

// expr parses a template expression and records its free names.
func (x *extractor) expr(src string, pos Position, local map[string]struct{}) {
	src = strings.TrimSpace(src)
	if src == "" {
		return
	}
	src = strings.NewReplacer("\r\n", " ", "\n", " ").Replace(src)
	src = isTest.ReplaceAllString(src, "")
	src = replaceOutsideQuotes(src, '~', '+')

	e, err := fileOptions.ParseExpr(x.file, src, 0)
	if err != nil {
		x.errs = append(x.errs, exprError(pos, src, err))
		return
	}
	x.walk(e, local)
}

func (x *extractor) walk(e syntax.Expr, local map[string]struct{}) {
	if e == nil {
		return
	}

	switch e := e.(type) {
	case *syntax.Ident:
		if _, ok := local[e.Name]; ok {
			return
		}
		if !x.isBound(e.Name) {
			x.uses[e.Name] = struct{}{}
		}
	case *syntax.Literal:
		// no names
	case *syntax.DotExpr:
		x.walk(e.X, local)
	case *syntax.CallExpr:
		x.walk(e.Fn, local)
		x.args(e.Args, local)
	case *syntax.IndexExpr:
		x.walk(e.X, local)
		x.walk(e.Y, local)
	case *syntax.SliceExpr:
		x.walk(e.X, local)
		x.walk(e.Lo, local)
		x.walk(e.Hi, local)
		x.walk(e.Step, local)
	case *syntax.BinaryExpr:
		if e.Op == syntax.PIPE {
			// value | filter(args): the filter name is not a reference
			x.walk(e.X, local)
			switch f := e.Y.(type) {
			case *syntax.Ident:
			case *syntax.CallExpr:
				x.args(f.Args, local)
			default:
				x.walk(f, local)
			}
			return
		}
		x.walk(e.X, local)
		x.walk(e.Y, local)
	case *syntax.UnaryExpr:
		x.walk(e.X, local)
	case *syntax.CondExpr:
		x.walk(e.Cond, local)
		x.walk(e.True, local)
		x.walk(e.False, local)
	case *syntax.ParenExpr:
		x.walk(e.X, local)
	case *syntax.ListExpr:
		for _, item := range e.List {
			x.walk(item, local)
		}
	case *syntax.TupleExpr:
		for _, item := range e.List {
			x.walk(item, local)
		}
	case *syntax.DictExpr:
		for _, item := range e.List {
			if entry, ok := item.(*syntax.DictEntry); ok {
				x.walk(entry.Key, local)
				x.walk(entry.Value, local)
			}
		}
	case *syntax.Comprehension:
		inner := copySet(local)
		for _, clause := range e.Clauses {
			switch c := clause.(type) {
			case *syntax.ForClause:
				x.walk(c.X, inner)
				for _, name := range targetNames(c.Vars) {
					inner[name] = struct{}{}
				}
			case *syntax.IfClause:
				x.walk(c.Cond, inner)
			}
		}
		x.walk(e.Body, inner)
	case *syntax.LambdaExpr:
		inner := copySet(local)
		for _, p := range e.Params {
			switch p := p.(type) {
			case *syntax.Ident:
				inner[p.Name] = struct{}{}
			case *syntax.BinaryExpr:
				x.walk(p.Y, local)
				for _, name := range targetNames(p.X) {
					inner[name] = struct{}{}
				}
			case *syntax.UnaryExpr:
				for _, name := range targetNames(p.X) {
					inner[name] = struct{}{}
				}
			}
		}
		x.walk(e.Body, inner)
	}
}

// args walks call arguments, skipping keyword names.
func (x *extractor) args(args []syntax.Expr, local map[string]struct{}) {
	for _, arg := range args {
		if b, ok := arg.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
			if _, isIdent := b.X.(*syntax.Ident); isIdent {
				x.walk(b.Y, local)
				continue
			}
		}
		x.walk(arg, local)
	}
}

// targetNames returns the identifiers bound by a loop target such as "k, v".
func targetNames(e syntax.Expr) []string {
	switch e := e.(type) {
	case *syntax.Ident:
		return []string{e.Name}
	case *syntax.TupleExpr:
		var out []string
		for _, item := range e.List {
			out = append(out, targetNames(item)...)
		}
		return out
	case *syntax.ListExpr:
		var out []string
		for _, item := range e.List {
			out = append(out, targetNames(item)...)
		}
		return out
	case *syntax.ParenExpr:
		return targetNames(e.X)
	}
	return nil
}

func copySet(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// replaceOutsideQuotes replaces old with repl outside string literals.
func replaceOutsideQuotes(s string, old, repl byte) string {
	if strings.IndexByte(s, old) < 0 {
		return s
	}
	b := []byte(s)
	var quote byte
	for i := 0; i < len(b); i++ {
		switch {
		case quote != 0:
			if b[i] == '\\' {
				i++
			} else if b[i] == quote {
				quote = 0
			}
		case b[i] == '\'' || b[i] == '"':
			quote = b[i]
		case b[i] == old:
			b[i] = repl
		}
	}
	return string(b)
}
