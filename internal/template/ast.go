// Package template reads Jinja-style SQL templates.
// It supports {{ expr }} for expressions, {% stmt %} for control flow and
// {# ... #} for comments, and extracts the names a template reads without
// rendering it.
package template

import (
	"regexp"
	"strings"
)

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// StmtKind identifies the type of control flow statement.
type StmtKind int

// StmtKind constants for control flow statement types.
const (
	StmtUnknown  StmtKind = iota // Unknown/invalid statement
	StmtFor                      // {% for x in items %}
	StmtEndFor                   // {% endfor %}
	StmtIf                       // {% if cond %}
	StmtElif                     // {% elif cond %}
	StmtElse                     // {% else %}
	StmtEndIf                    // {% endif %}
	StmtSet                      // {% set x = expr %} or {% set x %}
	StmtEndSet                   // {% endset %}
	StmtMacro                    // {% macro name(params) %}
	StmtEndMacro                 // {% endmacro %}
	StmtWith                     // {% with a = x %}
	StmtEndWith                  // {% endwith %}
	StmtImport                   // {% import 'file' as name %} / {% from 'file' import a %}
	StmtExpr                     // do, include, extends, call: an expression to scan
	StmtNoop                     // block, raw, filter and their end tags
)

func (k StmtKind) String() string {
	switch k {
	case StmtFor:
		return "for"
	case StmtEndFor:
		return "endfor"
	case StmtIf:
		return "if"
	case StmtElif:
		return "elif"
	case StmtElse:
		return "else"
	case StmtEndIf:
		return "endif"
	case StmtSet:
		return "set"
	case StmtEndSet:
		return "endset"
	case StmtMacro:
		return "macro"
	case StmtEndMacro:
		return "endmacro"
	case StmtWith:
		return "with"
	case StmtEndWith:
		return "endwith"
	case StmtImport:
		return "import"
	case StmtExpr:
		return "expr"
	case StmtNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// Stmt is a classified {% ... %} statement.
type Stmt struct {
	Kind StmtKind
	Pos  Position
	// Expr is the condition (if/elif), iterable (for), assigned value (set),
	// macro signature, or scanned expression (StmtExpr).
	Expr string
	// Targets are names the statement binds: loop variables, set targets,
	// with-assignments and import aliases.
	Targets []string
	// Filter is the inline loop filter of "for x in xs if cond".
	Filter string
}

var (
	forPattern   = regexp.MustCompile(`^for\s+(.+?)\s+in\s+(.+)$`)
	setPattern   = regexp.MustCompile(`^set\s+([^=]+?)\s*(?:=\s*(.+))?$`)
	macroPattern = regexp.MustCompile(`^macro\s+([A-Za-z_]\w*)\s*(\(.*\))?\s*$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// ParseStmt classifies statement content (without delimiters).
func ParseStmt(content string, pos Position) (*Stmt, error) {
	content = strings.TrimSpace(content)
	end := 0
	for end < len(content) && (content[end] == '_' || (content[end] >= 'a' && content[end] <= 'z')) {
		end++
	}
	keyword, rest := content[:end], strings.TrimSpace(content[end:])
	stmt := &Stmt{Pos: pos}

	switch keyword {
	case "for":
		m := forPattern.FindStringSubmatch(content)
		if m == nil {
			return nil, stmtError(pos, "invalid for syntax, expected: for x in items")
		}
		stmt.Kind = StmtFor
		stmt.Targets = splitNames(m[1])
		iter := strings.TrimSuffix(strings.TrimSpace(m[2]), " recursive")
		if i := topLevelKeyword(iter, "if"); i >= 0 {
			stmt.Filter = strings.TrimSpace(iter[i+len(" if "):])
			iter = iter[:i]
		}
		stmt.Expr = strings.TrimSpace(iter)
	case "endfor":
		stmt.Kind = StmtEndFor
	case "if":
		stmt.Kind, stmt.Expr = StmtIf, rest
	case "elif":
		stmt.Kind, stmt.Expr = StmtElif, rest
	case "else":
		stmt.Kind = StmtElse
	case "endif":
		stmt.Kind = StmtEndIf
	case "set":
		m := setPattern.FindStringSubmatch(content)
		if m == nil {
			return nil, stmtError(pos, "invalid set syntax, expected: set x = value")
		}
		stmt.Kind = StmtSet
		stmt.Targets = splitNames(m[1])
		stmt.Expr = strings.TrimSpace(m[2])
		if strings.Contains(m[1], ".") {
			// namespace attribute assignment: set ns.total = ...
			stmt.Targets = nil
			stmt.Expr = strings.TrimSpace(m[1]) + ", " + stmt.Expr
		}
	case "endset":
		stmt.Kind = StmtEndSet
	case "macro":
		m := macroPattern.FindStringSubmatch(content)
		if m == nil {
			return nil, stmtError(pos, "invalid macro syntax, expected: macro name(params)")
		}
		stmt.Kind = StmtMacro
		stmt.Targets = []string{m[1]}
		stmt.Expr = m[1] + m[2]
		if m[2] == "" {
			stmt.Expr = m[1] + "()"
		}
	case "endmacro":
		stmt.Kind = StmtEndMacro
	case "with":
		stmt.Kind = StmtWith
		for _, part := range splitTopLevel(rest, ',') {
			name, value, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			stmt.Targets = append(stmt.Targets, strings.TrimSpace(name))
			if stmt.Expr != "" {
				stmt.Expr += ", "
			}
			stmt.Expr += strings.TrimSpace(value)
		}
	case "endwith":
		stmt.Kind = StmtEndWith
	case "import":
		// import 'file' as name
		stmt.Kind = StmtImport
		if _, alias, ok := strings.Cut(rest, " as "); ok {
			stmt.Targets = splitNames(alias)
		}
	case "from":
		// from 'file' import a, b as c
		stmt.Kind = StmtImport
		_, names, ok := strings.Cut(rest, " import ")
		if !ok {
			return nil, stmtError(pos, "invalid from syntax, expected: from 'file' import name")
		}
		for _, item := range splitTopLevel(names, ',') {
			item = strings.TrimSpace(item)
			if _, alias, ok := strings.Cut(item, " as "); ok {
				item = alias
			}
			item = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(item), "with context"))
			if identPattern.MatchString(item) {
				stmt.Targets = append(stmt.Targets, item)
			}
		}
	case "do", "include", "extends", "call":
		stmt.Kind = StmtExpr
		stmt.Expr = rest
		if keyword == "call" {
			// {% call(user) macro(args) %}: the leading parens are caller params
			if strings.HasPrefix(rest, "(") {
				if end := strings.Index(rest, ")"); end >= 0 {
					stmt.Expr = strings.TrimSpace(rest[end+1:])
				}
			}
		}
		if keyword == "include" || keyword == "extends" {
			stmt.Expr = strings.TrimSuffix(strings.TrimSuffix(stmt.Expr, " ignore missing"), " with context")
		}
	case "block", "endblock", "raw", "endraw", "endcall", "filter", "endfilter", "autoescape", "endautoescape", "break", "continue":
		stmt.Kind = StmtNoop
	default:
		return nil, stmtError(pos, "unknown statement: "+keyword)
	}

	return stmt, nil
}

// splitNames splits a comma-separated target list such as "k, v" or "(a, b)".
func splitNames(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "()")
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), "()")
		if identPattern.MatchString(part) {
			out = append(out, part)
		}
	}
	return out
}

// splitTopLevel splits s on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// topLevelKeyword returns the index of " kw " outside brackets and quotes, or -1.
func topLevelKeyword(s, kw string) int {
	needle := " " + kw + " "
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], needle):
			return i
		}
	}
	return -1
}
