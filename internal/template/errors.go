package template

import "fmt"

// ErrorKind says which stage rejected part of a template.
type ErrorKind int

const (
	// ErrLex is an unterminated tag. Nothing after it can be read.
	ErrLex ErrorKind = iota
	// ErrStatement is a {% %} tag that does not parse.
	ErrStatement
	// ErrExpression is an expression Starlark cannot parse.
	ErrExpression
	// ErrUnmatched is an opening block without its end tag, or the reverse.
	ErrUnmatched
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLex:
		return "lex"
	case ErrStatement:
		return "statement"
	case ErrExpression:
		return "expression"
	case ErrUnmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// SyntaxError is a template problem found while collecting references.
type SyntaxError struct {
	Pos  Position
	Kind ErrorKind
	Msg  string
	// Block is set for ErrUnmatched.
	Block StmtKind
	// Cause is the Starlark syntax error behind an ErrExpression.
	Cause error
}

func (e *SyntaxError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Pos.Line, e.Pos.Column)
	if e.Pos.File != "" {
		loc = e.Pos.File + ":" + loc
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Cause)
	}
	return loc + ": " + e.Msg
}

func (e *SyntaxError) Unwrap() error { return e.Cause }

// Position returns where in the template the problem starts.
func (e *SyntaxError) Position() Position { return e.Pos }

func lexError(pos Position, msg string) *SyntaxError {
	return &SyntaxError{Pos: pos, Kind: ErrLex, Msg: msg}
}

func stmtError(pos Position, msg string) *SyntaxError {
	return &SyntaxError{Pos: pos, Kind: ErrStatement, Msg: msg}
}

func exprError(pos Position, expr string, cause error) *SyntaxError {
	if len(expr) > 40 {
		expr = expr[:37] + "..."
	}
	return &SyntaxError{Pos: pos, Kind: ErrExpression, Msg: fmt.Sprintf("invalid expression %q", expr), Cause: cause}
}

var closers = map[StmtKind]string{StmtFor: "endfor", StmtMacro: "endmacro", StmtWith: "endwith"}

var openers = map[StmtKind]string{StmtEndFor: "for", StmtEndMacro: "macro", StmtEndWith: "with"}

func unmatchedError(pos Position, kind StmtKind) *SyntaxError {
	msg := fmt.Sprintf("unmatched block: %v", kind)
	if end, ok := closers[kind]; ok {
		msg = fmt.Sprintf("unclosed %q block (missing %q)", end[3:], end)
	} else if open, ok := openers[kind]; ok {
		msg = fmt.Sprintf("%q without matching %q", "end"+open, open)
	}
	return &SyntaxError{Pos: pos, Kind: ErrUnmatched, Msg: msg, Block: kind}
}
