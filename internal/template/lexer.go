package template

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText TokenType = iota // Literal text (SQL)
	TokenExpr                  // Expression content (between {{ and }})
	TokenStmt                  // Statement content (between {% and %})
	TokenEOF                   // End of input
)

// Delimiters.
const (
	exprOpen     = "{{"
	exprClose    = "}}"
	stmtOpen     = "{%"
	stmtClose    = "%}"
	commentOpen  = "{#"
	commentClose = "#}"
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenExpr:
		return "EXPR"
	case TokenStmt:
		return "STMT"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer tokenizes a template string.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
	raw      bool
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string) *Lexer {
	return &Lexer{
		input: input,
		file:  file,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() (Token, error) {
	for {
		if l.pos >= len(l.input) {
			return Token{Type: TokenEOF, Pos: l.position()}, nil
		}
		if l.raw {
			return l.scanRaw()
		}

		switch {
		case l.matchString(exprOpen):
			return l.scanTag(TokenExpr, exprClose, true)
		case l.matchString(stmtOpen):
			tok, err := l.scanTag(TokenStmt, stmtClose, false)
			if err == nil && tok.Value == "raw" {
				l.raw = true
			}
			return tok, err
		case l.matchString(commentOpen):
			if _, err := l.scanTag(TokenText, commentClose, false); err != nil {
				return Token{}, err
			}
			continue
		}

		return l.scanText()
	}
}

// scanText scans literal text until a delimiter or EOF.
func (l *Lexer) scanText() (Token, error) {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) {
		if l.atDelimiter() {
			break
		}
		l.advance()
	}

	if l.pos == start {
		// No text consumed, something is wrong
		return Token{}, lexError(l.position(), "unexpected state in lexer")
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}, nil
}

// scanRaw scans the body of a {% raw %} block as plain text.
func (l *Lexer) scanRaw() (Token, error) {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) {
		if l.matchString(stmtOpen) {
			rest := strings.TrimLeft(l.input[l.pos+len(stmtOpen):], "-+ \t\r\n")
			if strings.HasPrefix(rest, "endraw") {
				break
			}
		}
		l.advance()
	}
	l.raw = false

	if l.pos == start {
		return l.nextToken()
	}
	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}, nil
}

// scanTag scans a delimited tag. Whitespace-control markers ({{- -}},
// {%+ %}) are stripped from the content. Braces nest inside expressions so
// dict literals do not end the tag early.
func (l *Lexer) scanTag(typ TokenType, closer string, nestBraces bool) (Token, error) {
	l.markStart()

	// Skip opener
	l.pos += 2
	l.col += 2

	contentStart := l.pos
	depth := 0

	for l.pos < len(l.input) {
		if l.matchString(closer) && depth == 0 {
			content := l.input[contentStart:l.pos]

			l.pos += len(closer)
			l.col += len(closer)

			return Token{
				Type:  typ,
				Value: trimTag(content, typ == TokenStmt),
				Pos:   l.startPosition(),
			}, nil
		}

		if nestBraces {
			r := l.peek()
			if r == '{' {
				depth++
			} else if r == '}' && depth > 0 {
				depth--
			}
		}

		l.advance()
	}

	switch closer {
	case exprClose:
		return Token{}, lexError(l.startPosition(), "unclosed expression: missing '}}'")
	case stmtClose:
		return Token{}, lexError(l.startPosition(), "unclosed statement: missing '%}'")
	default:
		return Token{}, lexError(l.startPosition(), "unclosed comment: missing '#}'")
	}
}

// trimTag removes surrounding whitespace and whitespace-control markers.
// The + marker only exists on statement tags; in an expression it is an
// operator and must survive so a dangling "a +" still fails to parse.
func trimTag(content string, stmt bool) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "-")
	content = strings.TrimSuffix(content, "-")
	if stmt {
		content = strings.TrimPrefix(content, "+")
		content = strings.TrimSuffix(content, "+")
	}
	return strings.TrimSpace(content)
}

func (l *Lexer) atDelimiter() bool {
	return l.matchString(exprOpen) || l.matchString(stmtOpen) || l.matchString(commentOpen)
}

// Helper methods

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}
