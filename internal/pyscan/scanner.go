package pyscan

import (
	"sort"
)

// Result holds the bindings found in a Python source fragment.
type Result struct {
	// Defines are names bound at module level (assignments, def, class,
	// for/with targets, walrus, and global assignments inside functions).
	Defines []string
	// Uses are free names read by the fragment that it does not bind first.
	Uses []string
	// Imports are names bound by import statements at module level.
	Imports []string
}

type frameKind int

const (
	frameModule frameKind = iota
	frameFunction
	frameClass
)

// frame is a lexical scope opened by def or class.
type frame struct {
	kind    frameKind
	indent  int // indent of the header line
	locals  map[string]struct{}
	globals map[string]struct{}
	refs    []string
}

func newFrame(kind frameKind, indent int) *frame {
	return &frame{
		kind:    kind,
		indent:  indent,
		locals:  make(map[string]struct{}),
		globals: make(map[string]struct{}),
	}
}

// Scanner performs def/use analysis over the logical lines of a source fragment.
type Scanner struct {
	stack []*frame

	defined  map[string]struct{} // bound at module level so far
	defines  map[string]struct{}
	imports  map[string]struct{}
	uses     map[string]struct{}
	deferred []string // free names read inside function or class bodies
}

// Analyze scans Python source and returns its module-level bindings.
// It never fails; unparseable fragments degrade to reads.
func Analyze(src string) *Result {
	s := &Scanner{
		stack:   []*frame{newFrame(frameModule, -1)},
		defined: make(map[string]struct{}),
		defines: make(map[string]struct{}),
		imports: make(map[string]struct{}),
		uses:    make(map[string]struct{}),
	}

	for _, line := range NewLexer(src).Lines() {
		for len(s.stack) > 1 && line.Indent <= s.top().indent {
			s.pop()
		}
		s.simpleStatements(line.Indent, line.Tokens)
	}
	for len(s.stack) > 1 {
		s.pop()
	}

	// Bodies run after the whole fragment, so they see every top-level name.
	for _, name := range s.deferred {
		if _, ok := s.defined[name]; !ok {
			s.uses[name] = struct{}{}
		}
	}

	return &Result{
		Defines: sortedSet(s.defines),
		Uses:    sortedSet(s.uses),
		Imports: sortedSet(s.imports),
	}
}

func (s *Scanner) top() *frame {
	return s.stack[len(s.stack)-1]
}

func (s *Scanner) push(kind frameKind, indent int) *frame {
	f := newFrame(kind, indent)
	s.stack = append(s.stack, f)
	return f
}

// pop closes the innermost scope and hands its free names to the parent.
func (s *Scanner) pop() {
	f := s.top()
	s.stack = s.stack[:len(s.stack)-1]

	// Class bodies are not visible from the functions nested in them.
	parent := s.top()
	for i := len(s.stack) - 1; parent.kind == frameClass && i > 0; i-- {
		parent = s.stack[i-1]
	}

	for _, name := range f.refs {
		if _, ok := f.globals[name]; ok {
			s.deferred = append(s.deferred, name)
			continue
		}
		if _, ok := f.locals[name]; ok {
			continue
		}
		if parent.kind == frameModule {
			s.deferred = append(s.deferred, name)
		} else {
			parent.refs = append(parent.refs, name)
		}
	}
}

// bind records an assignment in the current scope.
func (s *Scanner) bind(name string) {
	if isKeyword(name) {
		return
	}
	f := s.top()
	if f.kind == frameModule {
		s.defined[name] = struct{}{}
		s.defines[name] = struct{}{}
		return
	}
	if _, ok := f.globals[name]; ok {
		s.defined[name] = struct{}{}
		s.defines[name] = struct{}{}
		return
	}
	f.locals[name] = struct{}{}
}

// bindHidden records a binding that shadows reads but is not exported,
// such as an exception alias.
func (s *Scanner) bindHidden(name string) {
	f := s.top()
	if f.kind == frameModule {
		s.defined[name] = struct{}{}
		return
	}
	f.locals[name] = struct{}{}
}

func (s *Scanner) bindImport(name string) {
	f := s.top()
	if f.kind == frameModule {
		s.defined[name] = struct{}{}
		s.imports[name] = struct{}{}
		return
	}
	f.locals[name] = struct{}{}
}

// ref records a read of name in the current scope.
func (s *Scanner) ref(name string) {
	if isKeyword(name) || IsBuiltin(name) {
		return
	}
	f := s.top()
	if f.kind == frameModule {
		if _, ok := s.defined[name]; !ok {
			s.uses[name] = struct{}{}
		}
		return
	}
	f.refs = append(f.refs, name)
}

// simpleStatements splits a logical line on top-level semicolons.
func (s *Scanner) simpleStatements(indent int, toks []Token) {
	for _, stmt := range splitTop(toks, ";") {
		if len(stmt) > 0 {
			s.statement(indent, stmt)
		}
	}
}

func (s *Scanner) statement(indent int, toks []Token) {
	first := toks[0]
	if first.Kind == KindOp && first.Value == "@" {
		s.expr(toks[1:], nil)
		return
	}
	if first.Kind != KindName {
		s.assignment(toks)
		return
	}

	switch first.Value {
	case "async":
		if len(toks) > 1 {
			s.statement(indent, toks[1:])
		}
	case "def":
		s.functionDef(indent, toks)
	case "class":
		s.classDef(indent, toks)
	case "import":
		s.importStmt(toks[1:])
	case "from":
		s.fromImport(toks)
	case "global":
		for _, t := range toks[1:] {
			if t.Kind == KindName {
				s.top().globals[t.Value] = struct{}{}
			}
		}
	case "nonlocal", "pass", "break", "continue":
		// no bindings
	case "for":
		s.forStmt(indent, toks)
	case "with":
		s.withStmt(indent, toks)
	case "except":
		s.exceptStmt(indent, toks)
	case "if", "elif", "while", "else", "try", "finally":
		s.compound(indent, toks[1:])
	case "match", "case":
		if _, _, ok := splitHeader(toks); ok && len(toks) > 1 && toks[1].Kind != KindOp {
			if first.Value == "match" {
				s.compound(indent, toks[1:])
			} else {
				s.caseStmt(indent, toks)
			}
			return
		}
		s.assignment(toks)
	case "return", "yield", "raise", "assert", "del", "await":
		s.expr(toks[1:], nil)
	default:
		s.assignment(toks)
	}
}

// compound handles a header whose condition is an expression, followed by
// an optional inline body.
func (s *Scanner) compound(indent int, toks []Token) {
	header, body, ok := splitHeader(toks)
	if !ok {
		s.expr(toks, nil)
		return
	}
	s.expr(header, nil)
	s.simpleStatements(indent, body)
}

func (s *Scanner) functionDef(indent int, toks []Token) {
	if len(toks) < 2 || toks[1].Kind != KindName {
		s.expr(toks[1:], nil)
		return
	}
	s.bind(toks[1].Value)

	rest := toks[2:]
	var typeParams []string
	if len(rest) > 0 && rest[0].Is(KindOp, "[") {
		end := matching(rest, 0)
		typeParams = names(rest[1:end])
		rest = rest[min(end+1, len(rest)):]
	}

	var params []string
	if len(rest) > 0 && rest[0].Is(KindOp, "(") {
		end := matching(rest, 0)
		params = s.parameters(rest[1:end])
		rest = rest[min(end+1, len(rest)):]
	}

	header, body, _ := splitHeader(rest)
	if len(header) > 0 && header[0].Is(KindOp, "->") {
		s.expr(header[1:], nil)
	}

	f := s.push(frameFunction, indent)
	for _, p := range append(typeParams, params...) {
		f.locals[p] = struct{}{}
	}
	s.simpleStatements(indent, body)
}

// parameters reads annotation and default expressions in the enclosing scope
// and returns the parameter names.
func (s *Scanner) parameters(toks []Token) []string {
	var params []string
	for _, p := range splitTop(toks, ",") {
		for len(p) > 0 && p[0].Kind == KindOp && (p[0].Value == "*" || p[0].Value == "**") {
			p = p[1:]
		}
		if len(p) == 0 || p[0].Kind != KindName {
			continue
		}
		params = append(params, p[0].Value)

		rest := p[1:]
		if len(rest) > 0 && rest[0].Is(KindOp, ":") {
			ann := rest[1:]
			if i := indexTop(ann, "="); i >= 0 {
				s.expr(ann[:i], nil)
				s.expr(ann[i+1:], nil)
			} else {
				s.expr(ann, nil)
			}
			continue
		}
		if len(rest) > 0 && rest[0].Is(KindOp, "=") {
			s.expr(rest[1:], nil)
		}
	}
	return params
}

func (s *Scanner) classDef(indent int, toks []Token) {
	if len(toks) < 2 || toks[1].Kind != KindName {
		s.expr(toks[1:], nil)
		return
	}
	s.bind(toks[1].Value)

	header, body, _ := splitHeader(toks[2:])
	var typeParams []string
	if len(header) > 0 && header[0].Is(KindOp, "[") {
		end := matching(header, 0)
		typeParams = names(header[1:end])
		header = header[min(end+1, len(header)):]
	}
	s.expr(header, nil)

	f := s.push(frameClass, indent)
	for _, p := range typeParams {
		f.locals[p] = struct{}{}
	}
	s.simpleStatements(indent, body)
}

// importStmt handles "import a.b as c, d".
func (s *Scanner) importStmt(toks []Token) {
	for _, item := range splitTop(toks, ",") {
		if len(item) == 0 {
			continue
		}
		if i := indexName(item, "as"); i >= 0 && i+1 < len(item) {
			s.bindImport(item[i+1].Value)
			continue
		}
		if item[0].Kind == KindName {
			s.bindImport(item[0].Value)
		}
	}
}

// fromImport handles "from x import (a as b, c)".
func (s *Scanner) fromImport(toks []Token) {
	i := indexName(toks, "import")
	if i < 0 {
		return
	}
	items := toks[i+1:]
	if len(items) > 0 && items[0].Is(KindOp, "(") {
		items = items[1:matching(items, 0)]
	}
	for _, item := range splitTop(items, ",") {
		if len(item) == 0 || item[0].Kind != KindName {
			continue
		}
		if j := indexName(item, "as"); j >= 0 && j+1 < len(item) {
			s.bindImport(item[j+1].Value)
			continue
		}
		s.bindImport(item[0].Value)
	}
}

func (s *Scanner) forStmt(indent int, toks []Token) {
	in := indexNameTop(toks, "in")
	if in < 0 {
		s.expr(toks[1:], nil)
		return
	}
	header, body, _ := splitHeader(toks[in+1:])
	s.expr(header, nil)
	s.targets(toks[1:in])
	s.simpleStatements(indent, body)
}

func (s *Scanner) withStmt(indent int, toks []Token) {
	header, body, _ := splitHeader(toks[1:])
	// parenthesized with-items: with (a as b, c as d):
	if len(header) > 0 && header[0].Is(KindOp, "(") && matching(header, 0) == len(header)-1 && indexName(header, "as") >= 0 {
		header = header[1 : len(header)-1]
	}
	for _, item := range splitTop(header, ",") {
		if i := indexNameTop(item, "as"); i >= 0 {
			s.expr(item[:i], nil)
			s.targets(item[i+1:])
			continue
		}
		s.expr(item, nil)
	}
	s.simpleStatements(indent, body)
}

func (s *Scanner) exceptStmt(indent int, toks []Token) {
	header, body, _ := splitHeader(toks[1:])
	if len(header) > 0 && header[0].Is(KindOp, "*") {
		header = header[1:]
	}
	if i := indexNameTop(header, "as"); i >= 0 {
		s.expr(header[:i], nil)
		if i+1 < len(header) && header[i+1].Kind == KindName {
			s.bindHidden(header[i+1].Value)
		}
	} else {
		s.expr(header, nil)
	}
	s.simpleStatements(indent, body)
}

// caseStmt binds capture names of a match-case pattern. Dotted names are
// value patterns and count as reads.
func (s *Scanner) caseStmt(indent int, toks []Token) {
	header, body, _ := splitHeader(toks[1:])
	var guard []Token
	if g := indexNameTop(header, "if"); g >= 0 {
		header, guard = header[:g], header[g+1:]
	}
	for i, t := range header {
		if t.Kind != KindName || isKeyword(t.Value) || t.Value == "_" {
			continue
		}
		dotted := (i+1 < len(header) && header[i+1].Is(KindOp, ".")) || (i > 0 && header[i-1].Is(KindOp, "."))
		call := i+1 < len(header) && header[i+1].Is(KindOp, "(")
		kwarg := i+1 < len(header) && header[i+1].Is(KindOp, "=")
		switch {
		case dotted && i > 0 && header[i-1].Is(KindOp, "."):
			// attribute of a value pattern
		case dotted || call:
			s.ref(t.Value)
		case kwarg:
			// keyword pattern name
		default:
			s.bindHidden(t.Value)
		}
	}
	s.expr(guard, nil)
	s.simpleStatements(indent, body)
}

// assignment handles expression statements and every assignment form.
func (s *Scanner) assignment(toks []Token) {
	if parts := splitAssign(toks); len(parts) > 1 {
		targets, value := parts[:len(parts)-1], parts[len(parts)-1]
		s.expr(value, nil)

		first := targets[0]
		if i := indexTop(first, ":"); i >= 0 {
			s.expr(first[i+1:], nil)
			targets[0] = first[:i]
		}
		for _, t := range targets {
			s.targets(t)
		}
		return
	}

	for i, t := range toks {
		if t.Kind == KindOp && isAugmented(t.Value) && depthAt(toks, i) == 0 {
			s.expr(toks[i+1:], nil)
			s.expr(toks[:i], nil)
			s.targets(toks[:i])
			return
		}
	}

	// bare annotation: x: int
	if i := indexTop(toks, ":"); i > 0 && !containsName(toks[:i], "lambda") {
		s.expr(toks[i+1:], nil)
		return
	}

	s.expr(toks, nil)
}

// targets binds assignment target names. Attribute and subscript targets
// read their base object instead.
func (s *Scanner) targets(toks []Token) {
	if len(toks) == 0 {
		return
	}
	if parts := splitTop(toks, ","); len(parts) > 1 {
		for _, p := range parts {
			s.targets(p)
		}
		return
	}
	if toks[0].Is(KindOp, "*") {
		s.targets(toks[1:])
		return
	}
	if (toks[0].Is(KindOp, "(") || toks[0].Is(KindOp, "[")) && matching(toks, 0) == len(toks)-1 {
		s.targets(toks[1 : len(toks)-1])
		return
	}
	if len(toks) == 1 && toks[0].Kind == KindName {
		s.bind(toks[0].Value)
		return
	}
	s.expr(toks, nil)
}

// expr records the free names read by an expression. bound holds names
// bound by enclosing comprehensions or lambdas.
func (s *Scanner) expr(toks []Token, bound map[string]struct{}) {
	if len(toks) == 0 {
		return
	}

	group := make([]int, len(toks)) // index of the enclosing open bracket, or -1
	var open []int
	for i, t := range toks {
		group[i] = -1
		if len(open) > 0 {
			group[i] = open[len(open)-1]
		}
		if t.Kind != KindOp {
			continue
		}
		switch t.Value {
		case "(", "[", "{":
			open = append(open, i)
		case ")", "]", "}":
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}

	// names bound per bracket group by comprehension targets and lambda params
	local := make(map[int]map[string]struct{})
	bindIn := func(g int, name string) {
		if local[g] == nil {
			local[g] = make(map[string]struct{})
		}
		local[g][name] = struct{}{}
	}
	for i, t := range toks {
		switch {
		case t.Is(KindName, "for") && group[i] >= 0:
			for j := i + 1; j < len(toks); j++ {
				if toks[j].Is(KindName, "in") && group[j] == group[i] {
					break
				}
				if toks[j].Kind == KindName && !(j > 0 && toks[j-1].Is(KindOp, ".")) {
					bindIn(group[i], toks[j].Value)
				}
			}
		case t.Is(KindName, "lambda"):
			expectName := true
			for j := i + 1; j < len(toks); j++ {
				if group[j] == group[i] && toks[j].Is(KindOp, ":") {
					break
				}
				switch {
				case toks[j].Kind == KindOp && (toks[j].Value == "," || toks[j].Value == "*" || toks[j].Value == "**"):
					expectName = true
				case toks[j].Kind == KindName && expectName:
					bindIn(group[i], toks[j].Value)
					expectName = false
				default:
					expectName = false
				}
			}
		}
	}

	isBound := func(i int, name string) bool {
		if _, ok := bound[name]; ok {
			return true
		}
		for g := group[i]; ; {
			if _, ok := local[g][name]; ok {
				return true
			}
			if g < 0 {
				return false
			}
			g = group[g]
		}
	}
	scopeAt := func(i int) map[string]struct{} {
		out := make(map[string]struct{}, len(bound))
		for k := range bound {
			out[k] = struct{}{}
		}
		for g := group[i]; ; g = group[g] {
			for k := range local[g] {
				out[k] = struct{}{}
			}
			if g < 0 {
				return out
			}
		}
	}

	for i, t := range toks {
		switch t.Kind {
		case KindString:
			for _, field := range t.Fields {
				s.expr(field, scopeAt(i))
			}
		case KindName:
			if isKeyword(t.Value) {
				continue
			}
			if i > 0 && toks[i-1].Is(KindOp, ".") {
				continue
			}
			if i+1 < len(toks) && toks[i+1].Is(KindOp, ":=") {
				s.bind(t.Value)
				continue
			}
			if isKeywordArgument(toks, group, i) {
				continue
			}
			if isBound(i, t.Value) {
				continue
			}
			s.ref(t.Value)
		}
	}
}

// isKeywordArgument reports whether the name at i is the keyword of a call
// argument, as in f(x=1).
func isKeywordArgument(toks []Token, group []int, i int) bool {
	if i+1 >= len(toks) || !toks[i+1].Is(KindOp, "=") {
		return false
	}
	g := group[i]
	if g < 0 || !toks[g].Is(KindOp, "(") {
		return false
	}
	prev := toks[i-1]
	return prev.Is(KindOp, "(") || prev.Is(KindOp, ",")
}

// splitHeader splits a compound statement at its block colon, skipping
// colons that belong to lambdas or sit inside brackets.
func splitHeader(toks []Token) (header, body []Token, ok bool) {
	depth, lambdas := 0, 0
	for i, t := range toks {
		switch {
		case t.Kind == KindOp && (t.Value == "(" || t.Value == "[" || t.Value == "{"):
			depth++
		case t.Kind == KindOp && (t.Value == ")" || t.Value == "]" || t.Value == "}"):
			depth--
		case depth == 0 && t.Is(KindName, "lambda"):
			lambdas++
		case depth == 0 && t.Is(KindOp, ":"):
			if lambdas > 0 {
				lambdas--
				continue
			}
			return toks[:i], toks[i+1:], true
		}
	}
	return toks, nil, false
}

// splitTop splits toks on an operator at bracket depth zero.
func splitTop(toks []Token, sep string) [][]Token {
	var parts [][]Token
	depth, start := 0, 0
	for i, t := range toks {
		if t.Kind != KindOp {
			continue
		}
		switch t.Value {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, toks[start:])
}

// splitAssign splits a statement on its assignment operators. An "=" that
// belongs to a lambda default is not one.
func splitAssign(toks []Token) [][]Token {
	var parts [][]Token
	depth, lambdas, start := 0, 0, 0
	for i, t := range toks {
		switch {
		case t.Kind == KindOp && (t.Value == "(" || t.Value == "[" || t.Value == "{"):
			depth++
		case t.Kind == KindOp && (t.Value == ")" || t.Value == "]" || t.Value == "}"):
			depth--
		case depth != 0:
		case t.Is(KindName, "lambda"):
			lambdas++
		case t.Is(KindOp, ":") && lambdas > 0:
			lambdas--
		case t.Is(KindOp, "=") && lambdas == 0:
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

func indexTop(toks []Token, op string) int {
	for i, t := range toks {
		if t.Is(KindOp, op) && depthAt(toks, i) == 0 {
			return i
		}
	}
	return -1
}

func indexName(toks []Token, name string) int {
	for i, t := range toks {
		if t.Is(KindName, name) {
			return i
		}
	}
	return -1
}

func indexNameTop(toks []Token, name string) int {
	for i, t := range toks {
		if t.Is(KindName, name) && depthAt(toks, i) == 0 {
			return i
		}
	}
	return -1
}

func containsName(toks []Token, name string) bool {
	return indexName(toks, name) >= 0
}

// depthAt returns the bracket depth before toks[i].
func depthAt(toks []Token, i int) int {
	depth := 0
	for _, t := range toks[:i] {
		if t.Kind != KindOp {
			continue
		}
		switch t.Value {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
	}
	return depth
}

// matching returns the index of the bracket closing toks[open], or the last
// index if it is unbalanced.
func matching(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		if toks[i].Kind != KindOp {
			continue
		}
		switch toks[i].Value {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

func names(toks []Token) []string {
	var out []string
	for _, t := range toks {
		if t.Kind == KindName && !isKeyword(t.Value) {
			out = append(out, t.Value)
		}
	}
	return out
}

func isAugmented(op string) bool {
	switch op {
	case "+=", "-=", "*=", "/=", "//=", "%=", "**=", "@=", "&=", "|=", "^=", ">>=", "<<=":
		return true
	}
	return false
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
