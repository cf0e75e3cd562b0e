package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain SQL",
			input:    "SELECT * FROM users",
			expected: []string{},
		},
		{
			name:     "single reference",
			input:    "SELECT * FROM t WHERE id = {{ user_id }}",
			expected: []string{"user_id"},
		},
		{
			name:     "attribute and subscript",
			input:    "{{ cfg.schema }}.{{ tables['orders'] }}",
			expected: []string{"cfg", "tables"},
		},
		{
			name:     "filters are not references",
			input:    "WHERE id IN {{ ids | inclause }} AND name = {{ name | sqlsafe | bind }}",
			expected: []string{"ids", "name"},
		},
		{
			name:     "filter arguments are references",
			input:    "{{ value | default(fallback) }}",
			expected: []string{"fallback", "value"},
		},
		{
			name:     "function call and keyword arguments",
			input:    "{{ fmt(amount, precision=digits) }}",
			expected: []string{"amount", "digits", "fmt"},
		},
		{
			name:     "loop variable is bound",
			input:    "{% for col in columns %}{{ col }}, {{ loop.index }}{% endfor %}",
			expected: []string{"columns"},
		},
		{
			name:     "loop variable does not leak",
			input:    "{% for c in cols %}{{ c }}{% endfor %}{{ c }}",
			expected: []string{"c", "cols"},
		},
		{
			name:     "tuple loop with filter",
			input:    "{% for k, v in pairs if v > threshold %}{{ k }}{% endfor %}",
			expected: []string{"pairs", "threshold"},
		},
		{
			name:     "set binds",
			input:    "{% set limit = max_rows * 2 %}LIMIT {{ limit }}",
			expected: []string{"max_rows"},
		},
		{
			name:     "use before set",
			input:    "{{ label }}{% set label = 'x' %}",
			expected: []string{"label"},
		},
		{
			name:     "if and elif conditions",
			input:    "{% if env == 'prod' %}a{% elif region %}b{% else %}c{% endif %}",
			expected: []string{"env", "region"},
		},
		{
			name:     "is tests",
			input:    "{% if start_date is defined and end is not none %}x{% endif %}",
			expected: []string{"end", "start_date"},
		},
		{
			name:     "tilde concatenation",
			input:    "{{ prefix ~ '~suffix' }}",
			expected: []string{"prefix"},
		},
		{
			name:     "macro params are local",
			input:    "{% macro cents(col, scale=factor) %}{{ col }} * {{ scale }}{% endmacro %}{{ cents(amount) }}",
			expected: []string{"amount", "factor"},
		},
		{
			name:     "with block",
			input:    "{% with d = days %}{{ d }}{% endwith %}",
			expected: []string{"days"},
		},
		{
			name:     "literals and builtins",
			input:    "{{ true }} {{ none }} {{ range(3) }} {{ 'text' }} {{ 42 }}",
			expected: []string{},
		},
		{
			name:     "comprehension",
			input:    "{{ [c.upper() for c in names if c] }}",
			expected: []string{"names"},
		},
		{
			name:     "comments are ignored",
			input:    "{# {{ secret }} #}{{ shown }}",
			expected: []string{"shown"},
		},
		{
			name:     "multi-line expression",
			input:    "{{ a +\n   b }}",
			expected: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := References(tt.input, "test.sql")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, refs)
		})
	}
}

func TestReferences_BestEffort(t *testing.T) {
	// The malformed expression is skipped; the rest is still extracted.
	refs, err := References("{{ good }} {{ bad bad }} {% frobnicate %}", "q.sql")
	require.Error(t, err)
	assert.Equal(t, []string{"good"}, refs)

	assert.ElementsMatch(t, []ErrorKind{ErrExpression, ErrStatement}, kinds(err))

	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "q.sql", syntaxErr.Pos.File)
}

// kinds lists the kinds of every SyntaxError joined into err.
func kinds(err error) []ErrorKind {
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	} else if err != nil {
		errs = []error{err}
	}
	var out []ErrorKind
	for _, e := range errs {
		var se *SyntaxError
		if errors.As(e, &se) {
			out = append(out, se.Kind)
		}
	}
	return out
}

func TestReferences_UnmatchedBlocks(t *testing.T) {
	refs, err := References("{% for x in xs %}{{ x }}", "q.sql")
	require.Error(t, err)
	assert.Equal(t, []string{"xs"}, refs)

	var unmatched *SyntaxError
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, ErrUnmatched, unmatched.Kind)
	assert.Equal(t, StmtFor, unmatched.Block)
	assert.Contains(t, unmatched.Error(), `unclosed "for" block (missing "endfor")`)

	_, err = References("{% endfor %}", "q.sql")
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, StmtEndFor, unmatched.Block)
	assert.Contains(t, unmatched.Error(), `"endfor" without matching "for"`)
}

func TestReferences_LexError(t *testing.T) {
	refs, err := References("SELECT {{ broken", "q.sql")
	require.Error(t, err)
	assert.Equal(t, []string{"broken"}, refs)

	assert.Equal(t, []ErrorKind{ErrLex}, kinds(err))
}

func TestReferences_LexErrorKeepsEarlierNames(t *testing.T) {
	src := "SELECT * FROM t WHERE a = {{ df.x }} AND c = {{- True }} AND d = {{ not flag }} AND b = {{ oops"
	refs, err := References(src, "q.sql")
	require.Error(t, err)
	assert.Equal(t, []ErrorKind{ErrLex}, kinds(err))
	assert.Equal(t, []string{"df", "oops"}, refs)
}

func TestReferences_DanglingOperator(t *testing.T) {
	refs, err := References("SELECT {{ a + }}", "q.sql")
	require.Error(t, err)
	assert.Equal(t, []ErrorKind{ErrExpression}, kinds(err))
	assert.Empty(t, refs)
}

func TestParseStmt(t *testing.T) {
	tests := []struct {
		input   string
		kind    StmtKind
		expr    string
		targets []string
	}{
		{"for x in items", StmtFor, "items", []string{"x"}},
		{"for (k, v) in d.items() recursive", StmtFor, "d.items()", []string{"k", "v"}},
		{"if a and b", StmtIf, "a and b", nil},
		{"set total = a + b", StmtSet, "a + b", []string{"total"}},
		{"set body", StmtSet, "", []string{"body"}},
		{"set ns.count = ns.count + 1", StmtSet, "ns.count, ns.count + 1", nil},
		{"macro m(a, b=1)", StmtMacro, "m(a, b=1)", []string{"m"}},
		{"macro noargs", StmtMacro, "noargs()", []string{"noargs"}},
		{"with a = x, b = y", StmtWith, "x, y", []string{"a", "b"}},
		{"import 'macros.sql' as m", StmtImport, "", []string{"m"}},
		{"from 'macros.sql' import cents, pct as p", StmtImport, "", []string{"cents", "p"}},
		{"include 'header.sql'", StmtExpr, "'header.sql'", nil},
		{"call(row) table(rows)", StmtExpr, "table(rows)", nil},
		{"filter upper", StmtNoop, "", nil},
		{"endfor", StmtEndFor, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			st, err := ParseStmt(tt.input, Position{})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, st.Kind)
			assert.Equal(t, tt.expr, st.Expr)
			assert.Equal(t, tt.targets, st.Targets)
		})
	}
}

func TestParseStmt_Invalid(t *testing.T) {
	for _, input := range []string{"for x", "frobnicate", "macro 1bad()"} {
		_, err := ParseStmt(input, Position{Line: 3})
		require.Error(t, err, "input %q", input)

		var stmtErr *SyntaxError
		require.True(t, errors.As(err, &stmtErr))
		assert.Equal(t, ErrStatement, stmtErr.Kind)
		assert.Equal(t, 3, stmtErr.Position().Line)
	}
}
