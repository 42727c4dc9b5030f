package lex

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/synthizer/waveling/pkg/source"
)

// Lexer converts a source.File into a stream of Tokens, raising diagnostics
// for unterminated literals, invalid suffixes, and stray characters (§4.1).
type Lexer struct {
	file  *source.File
	runes []rune
	pos   int
	sink  *source.Sink
}

// NewLexer constructs a lexer over the given file, reporting errors to sink.
func NewLexer(file *source.File, sink *source.Sink) *Lexer {
	return &Lexer{file: file, runes: file.Contents(), sink: sink}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.runes) {
		return 0
	}

	return l.runes[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.runes) {
		return 0
	}

	return l.runes[l.pos+offset]
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.runes)
}

// Tokenize scans the entire file into a token slice terminated by EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token

	for {
		tok := l.next()
		tokens = append(tokens, tok)

		if tok.Kind == EOF {
			return tokens
		}
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.eof() {
		r := l.peek()

		if r == '/' && l.peekAt(1) == '/' {
			for !l.eof() && l.peek() != '\n' {
				l.pos++
			}

			continue
		}

		if unicode.IsSpace(r) {
			l.pos++
			continue
		}

		break
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) next() Token {
	l.skipWhitespaceAndComments()

	start := l.pos

	if l.eof() {
		return Token{Kind: EOF, Span: source.NewSpan(start, start)}
	}

	r := l.peek()

	switch {
	case isIdentStart(r):
		return l.scanIdentOrKeyword(start)
	case unicode.IsDigit(r):
		return l.scanNumber(start)
	}

	return l.scanPunctuation(start)
}

func (l *Lexer) scanIdentOrKeyword(start int) Token {
	for !l.eof() && isIdentCont(l.peek()) {
		l.pos++
	}

	text := string(l.runes[start:l.pos])
	span := source.NewSpan(start, l.pos)

	switch text {
	case "true":
		return Token{Kind: BOOL, Span: span, Text: text, BoolValue: true}
	case "false":
		return Token{Kind: BOOL, Span: span, Text: text, BoolValue: false}
	default:
		return Token{Kind: IDENT, Span: span, Text: text}
	}
}

func (l *Lexer) scanNumber(start int) Token {
	isHex := false

	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		isHex = true
		l.pos += 2

		for !l.eof() && isHexDigit(l.peek()) {
			l.pos++
		}
	} else {
		for !l.eof() && unicode.IsDigit(l.peek()) {
			l.pos++
		}

		if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
			l.pos++
			for !l.eof() && unicode.IsDigit(l.peek()) {
				l.pos++
			}
		}
	}

	digits := string(l.runes[start:l.pos])

	suffixStart := l.pos
	for !l.eof() && isIdentCont(l.peek()) {
		l.pos++
	}

	suffixText := string(l.runes[suffixStart:l.pos])
	suffix := NumberSuffix(suffixText)

	span := source.NewSpan(start, l.pos)

	switch suffix {
	case NoSuffix, SuffixI32, SuffixI64, SuffixF32, SuffixF64:
		// valid
	default:
		l.sink.Error(source.CodeLexical, span, "invalid numeric literal suffix %q", suffixText)
		suffix = NoSuffix
	}

	value, err := parseNumberMagnitude(digits, isHex)
	if err != nil {
		l.sink.Error(source.CodeLexical, span, "malformed numeric literal %q", digits)
	}

	return Token{Kind: NUMBER, Span: span, Text: digits + suffixText, NumValue: value, Suffix: suffix, IsHex: isHex}
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func parseNumberMagnitude(digits string, isHex bool) (float64, error) {
	if isHex {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X"), 16, 64)
		return float64(v), err
	}

	return strconv.ParseFloat(digits, 64)
}

type punct struct {
	text string
	kind Kind
}

// Longest-match-first punctuation table.
var puncts = []punct{
	{"->", ARROW_RIGHT}, {"<-", ARROW_LEFT},
	{"<<", SHL}, {">>", SHR},
	{"<=", LE}, {">=", GE}, {"==", EQ}, {"!=", NE},
	{"&&", ANDAND}, {"||", OROR},
	{"(", LPAREN}, {")", RPAREN}, {"{", LBRACE}, {"}", RBRACE},
	{"[", LBRACKET}, {"]", RBRACKET},
	{",", COMMA}, {":", COLON}, {";", SEMI}, {".", DOT},
	{"=", ASSIGN}, {"!", BANG}, {"~", TILDE},
	{"+", PLUS}, {"-", MINUS}, {"*", STAR}, {"/", SLASH}, {"%", PERCENT},
	{"<", LT}, {">", GT}, {"&", AMP}, {"^", CARET}, {"|", PIPE},
}

func (l *Lexer) scanPunctuation(start int) Token {
	remaining := l.runes[start:]

	for _, p := range puncts {
		n := len([]rune(p.text))
		if len(remaining) < n {
			continue
		}

		if string(remaining[:n]) == p.text {
			l.pos += n
			return Token{Kind: p.kind, Span: source.NewSpan(start, l.pos), Text: p.text}
		}
	}

	// Stray character: consume one rune so the lexer always makes progress.
	l.pos++
	span := source.NewSpan(start, l.pos)
	l.sink.Error(source.CodeLexical, span, "stray character %q", string(l.runes[start]))

	return l.next()
}
