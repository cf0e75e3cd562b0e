// Package pyscan extracts variable bindings from Python source without parsing it.
//
// The scanner tokenizes source into logical lines (bracket continuation,
// backslash continuation and indentation are honoured) and then walks each
// line with a small statement classifier. It understands enough of Python to
// tell assignments from reads, function and class scopes from module scope,
// and comprehension or lambda variables from free names. Anything it cannot
// classify is treated as a read, so results err on the side of extra uses.
package pyscan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies the type of token.
type Kind int

// Kind constants for Python token types.
const (
	KindName   Kind = iota // Identifier or keyword
	KindNumber             // Numeric literal
	KindString             // String literal (f-string fields in Token.Fields)
	KindOp                 // Operator or delimiter
)

func (k Kind) String() string {
	switch k {
	case KindName:
		return "NAME"
	case KindNumber:
		return "NUMBER"
	case KindString:
		return "STRING"
	case KindOp:
		return "OP"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Kind  Kind
	Value string
	Line  int
	// Fields holds the tokenized replacement fields of an f-string.
	Fields [][]Token
}

// Is reports whether the token has the given kind and value.
func (t Token) Is(kind Kind, value string) bool {
	return t.Kind == kind && t.Value == value
}

// LogicalLine is one Python logical line with its indentation width.
type LogicalLine struct {
	Indent int
	Tokens []Token
}

// Lexer tokenizes Python source into logical lines.
type Lexer struct {
	input string
	pos   int // current position in input
	line  int // current line number (1-based)
	depth int // open bracket depth

	atLineStart bool
	indent      int
	current     []Token
	lines       []LogicalLine
}

// NewLexer creates a new lexer for the given source.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:       input,
		line:        1,
		atLineStart: true,
	}
}

// Lines tokenizes the whole input. It never fails: unterminated strings run
// to the end of input and stray characters are emitted as operators.
func (l *Lexer) Lines() []LogicalLine {
	for l.pos < len(l.input) {
		if l.atLineStart && l.depth == 0 {
			if l.skipIgnoredLine() {
				continue
			}
			l.atLineStart = false
		}

		ch := l.input[l.pos]
		switch {
		case ch == '\n':
			l.pos++
			l.line++
			if l.depth == 0 {
				l.flush()
				l.atLineStart = true
			}
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f':
			l.pos++
		case ch == '#':
			l.skipToEOL()
		case ch == '\\' && l.continuation():
			// explicit line joining
		case isIdentStart(l.peekRune()):
			l.scanNameOrString()
		case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
			l.scanNumber()
		case ch == '\'' || ch == '"':
			l.scanString("")
		default:
			l.scanOp()
		}
	}
	l.flush()
	return l.lines
}

// skipIgnoredLine measures indentation at the start of a physical line and
// skips blank lines, comment-only lines and IPython magic/shell lines.
// Returns true if the line was consumed.
func (l *Lexer) skipIgnoredLine() bool {
	start := l.pos
	width := 0
measure:
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ':
			width++
		case '\t':
			width += 8 - width%8
		case '\f':
			width = 0
		default:
			break measure
		}
		l.pos++
	}
	if l.pos >= len(l.input) {
		return true
	}

	ch := l.input[l.pos]
	magic := l.pos == start && (ch == '%' || ch == '!')
	if ch == '\n' || ch == '\r' || ch == '#' || magic {
		l.skipToEOL()
		if l.pos < len(l.input) {
			l.pos++ // newline
			l.line++
		}
		return true
	}

	l.indent = width
	return false
}

// continuation consumes a backslash-newline pair. Returns false when the
// backslash is not followed by a newline, leaving it for scanOp.
func (l *Lexer) continuation() bool {
	rest := l.input[l.pos+1:]
	switch {
	case strings.HasPrefix(rest, "\n"):
		l.pos += 2
	case strings.HasPrefix(rest, "\r\n"):
		l.pos += 3
	default:
		return false
	}
	l.line++
	return true
}

func (l *Lexer) scanNameOrString() {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	word := l.input[start:l.pos]

	if l.pos < len(l.input) && (l.input[l.pos] == '\'' || l.input[l.pos] == '"') && isStringPrefix(word) {
		l.scanString(word)
		return
	}
	l.emit(Token{Kind: KindName, Value: word, Line: l.line})
}

func (l *Lexer) scanNumber() {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) || isLetter(ch) || ch == '_' || ch == '.' {
			l.pos++
			continue
		}
		// exponent sign: 1e-5, 2E+3
		if (ch == '+' || ch == '-') && l.pos > start {
			prev := l.input[l.pos-1]
			hex := strings.HasPrefix(strings.ToLower(l.input[start:]), "0x")
			if (prev == 'e' || prev == 'E') && !hex {
				l.pos++
				continue
			}
		}
		break
	}
	l.emit(Token{Kind: KindNumber, Value: l.input[start:l.pos], Line: l.line})
}

// scanString scans a string literal whose prefix has already been consumed.
func (l *Lexer) scanString(prefix string) {
	startLine := l.line
	quote := l.input[l.pos]
	triple := strings.HasPrefix(l.input[l.pos:], strings.Repeat(string(quote), 3))
	delim := string(quote)
	if triple {
		delim = strings.Repeat(string(quote), 3)
	}
	l.pos += len(delim)
	bodyStart := l.pos
	bodyEnd := len(l.input)

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\n' {
				l.line++
			}
			l.pos += 2
			continue
		}
		if ch == '\n' {
			if !triple {
				// unterminated single-quoted string ends at the newline
				bodyEnd = l.pos
				break
			}
			l.line++
		}
		if strings.HasPrefix(l.input[l.pos:], delim) {
			bodyEnd = l.pos
			l.pos += len(delim)
			break
		}
		l.pos++
	}
	if l.pos > len(l.input) {
		l.pos = len(l.input)
	}
	if bodyEnd > len(l.input) {
		bodyEnd = len(l.input)
	}

	tok := Token{Kind: KindString, Value: l.input[bodyStart:bodyEnd], Line: startLine}
	if strings.ContainsAny(prefix, "fF") {
		tok.Fields = formatFields(tok.Value)
	}
	l.emit(tok)
}

var threeCharOps = []string{"**=", "//=", ">>=", "<<=", "..."}

var twoCharOps = []string{
	"==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"->", ":=", "**", "//", "<<", ">>",
}

func (l *Lexer) scanOp() {
	for _, group := range [][]string{threeCharOps, twoCharOps} {
		for _, op := range group {
			if strings.HasPrefix(l.input[l.pos:], op) {
				l.pos += len(op)
				l.emit(Token{Kind: KindOp, Value: op, Line: l.line})
				return
			}
		}
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	switch r {
	case '(', '[', '{':
		l.depth++
	case ')', ']', '}':
		if l.depth > 0 {
			l.depth--
		}
	}
	l.emit(Token{Kind: KindOp, Value: string(r), Line: l.line})
}

func (l *Lexer) skipToEOL() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) emit(tok Token) {
	l.current = append(l.current, tok)
}

func (l *Lexer) flush() {
	if len(l.current) == 0 {
		return
	}
	l.lines = append(l.lines, LogicalLine{Indent: l.indent, Tokens: l.current})
	l.current = nil
}

func (l *Lexer) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// Tokenize lexes a source fragment as one flat token list, ignoring
// newlines and indentation. Used for f-string replacement fields.
func Tokenize(src string) []Token {
	var out []Token
	for _, line := range NewLexer(src).Lines() {
		out = append(out, line.Tokens...)
	}
	return out
}

// formatFields extracts and tokenizes the replacement fields of an f-string body.
func formatFields(body string) [][]Token {
	var fields [][]Token
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			if i+1 < len(body) && body[i+1] == '{' {
				i++
				continue
			}
			end := matchingBrace(body, i)
			inner := body[i+1 : end]
			expr, spec := splitFormatSpec(inner)
			if toks := Tokenize(expr); len(toks) > 0 {
				fields = append(fields, toks)
			}
			// format specs may nest fields: {value:{width}}
			fields = append(fields, formatFields(spec)...)
			i = end
		case '}':
			if i+1 < len(body) && body[i+1] == '}' {
				i++
			}
		}
	}
	return fields
}

// matchingBrace returns the index of the brace closing the field opened at
// open, or len(s) if it is unterminated.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"':
			// skip nested string literal
			q := s[i]
			for i++; i < len(s) && s[i] != q; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return len(s)
}

// splitFormatSpec separates a field expression from its !conversion and
// :format_spec suffixes.
func splitFormatSpec(field string) (expr, spec string) {
	depth := 0
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '!':
			if depth == 0 && (i+1 >= len(field) || field[i+1] != '=') {
				if j := strings.IndexByte(field[i:], ':'); j >= 0 {
					return field[:i], field[i+j+1:]
				}
				return field[:i], ""
			}
		case ':':
			if depth == 0 {
				return field[:i], field[i+1:]
			}
		}
	}
	return field, ""
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf", "t", "tr", "rt":
		return true
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
