// Package lex implements the Waveling lexer (§4.1): source text to a
// span-tagged token stream.
package lex

import "github.com/synthizer/waveling/pkg/source"

// Kind identifies the lexical category of a Token.
type Kind uint8

// The closed set of token kinds produced by the lexer.
const (
	EOF Kind = iota
	IDENT
	NUMBER
	BOOL

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	COLON
	SEMI
	DOT
	ARROW_RIGHT // ->
	ARROW_LEFT  // <-

	// Operators
	ASSIGN // =
	BANG   // !
	TILDE  // ~
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	SHL // <<
	SHR // >>
	LT
	LE
	GT
	GE
	EQ // ==
	NE // !=
	AMP
	CARET
	PIPE
	ANDAND
	OROR
)

var kindNames = map[Kind]string{
	EOF: "<eof>", IDENT: "identifier", NUMBER: "number", BOOL: "boolean",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",", COLON: ":", SEMI: ";", DOT: ".",
	ARROW_RIGHT: "->", ARROW_LEFT: "<-",
	ASSIGN: "=", BANG: "!", TILDE: "~",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	SHL: "<<", SHR: ">>", LT: "<", LE: "<=", GT: ">", GE: ">=",
	EQ: "==", NE: "!=", AMP: "&", CARET: "^", PIPE: "|",
	ANDAND: "&&", OROR: "||",
}

// String renders the token kind the way it would appear in source.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "<unknown>"
}

// NumberSuffix records an optional type suffix attached to a numeric
// literal (e.g. the "f64" in "1f64").
type NumberSuffix string

// The recognized numeric literal suffixes. An empty suffix means the
// literal's type must be determined from context (§4.5).
const (
	NoSuffix  NumberSuffix = ""
	SuffixI32 NumberSuffix = "i32"
	SuffixI64 NumberSuffix = "i64"
	SuffixF32 NumberSuffix = "f32"
	SuffixF64 NumberSuffix = "f64"
)

// Token is a single lexeme with its source span. Numeric and boolean
// literals carry their decoded value alongside the raw text.
type Token struct {
	Kind Kind
	Span source.Span
	// Text is the raw source text of this token (used for identifiers and
	// for diagnostics).
	Text string
	// NumValue holds the decoded magnitude for NUMBER tokens, before any
	// suffix-driven conversion (integers held exactly; floats parsed as
	// float64, widened to arbitrary precision only by the folder).
	NumValue float64
	// Suffix holds the optional type suffix for NUMBER tokens.
	Suffix NumberSuffix
	// IsHex records whether a NUMBER token was written in hexadecimal.
	IsHex bool
	// BoolValue holds the decoded value for BOOL tokens.
	BoolValue bool
}
