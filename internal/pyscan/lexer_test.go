package pyscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_LogicalLines(t *testing.T) {
	input := "if a:\n    b = (1,\n         2)\n\n# comment\nc = 3\n"
	lines := NewLexer(input).Lines()

	require.Len(t, lines, 3, "bracket continuation should join physical lines")
	assert.Equal(t, 0, lines[0].Indent)
	assert.Equal(t, 4, lines[1].Indent)
	assert.Equal(t, 0, lines[2].Indent)

	assert.Equal(t, "b", lines[1].Tokens[0].Value)
	assert.Len(t, lines[1].Tokens, 7) // b = ( 1 , 2 )
}

func TestLexer_BackslashContinuation(t *testing.T) {
	lines := NewLexer("x = a \\\n    + b\ny = 1").Lines()

	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[0].Tokens[len(lines[0].Tokens)-1].Value)
}

func TestLexer_SkipsMagicsAndShell(t *testing.T) {
	lines := NewLexer("%matplotlib inline\n!pip install pandas\nx = 1\n").Lines()

	require.Len(t, lines, 1)
	assert.Equal(t, "x", lines[0].Tokens[0].Value)
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
	}{
		{"single", `'abc'`, "abc"},
		{"double", `"a'b"`, "a'b"},
		{"escaped quote", `"a\"b"`, `a\"b`},
		{"triple", "'''x\ny = z'''", "x\ny = z"},
		{"raw bytes prefix", `rb'\d+'`, `\d+`},
		{"unterminated", `'abc`, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Tokenize(tt.input)
			require.Len(t, toks, 1)
			assert.Equal(t, KindString, toks[0].Kind)
			assert.Equal(t, tt.value, toks[0].Value)
		})
	}
}

func TestLexer_FStringFields(t *testing.T) {
	toks := Tokenize(`f"{greeting}, {user.name!r:>{width}} {{literal}}"`)
	require.Len(t, toks, 1)

	var got []string
	for _, field := range toks[0].Fields {
		got = append(got, field[0].Value)
	}
	assert.Equal(t, []string{"greeting", "user", "width"}, got)
}

func TestLexer_Numbers(t *testing.T) {
	toks := Tokenize("x = 1e-5 + 0x1F + .5")

	var numbers []string
	for _, tok := range toks {
		if tok.Kind == KindNumber {
			numbers = append(numbers, tok.Value)
		}
	}
	assert.Equal(t, []string{"1e-5", "0x1F", ".5"}, numbers)
}

func TestLexer_Operators(t *testing.T) {
	toks := Tokenize("a **= b // c := d -> e")

	var ops []string
	for _, tok := range toks {
		if tok.Kind == KindOp {
			ops = append(ops, tok.Value)
		}
	}
	assert.Equal(t, []string{"**=", "//", ":=", "->"}, ops)
}
