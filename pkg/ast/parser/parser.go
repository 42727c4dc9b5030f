// Package parser implements the Waveling recursive-descent parser (§4.2):
// token stream to ast.Program.
package parser

import (
	"github.com/synthizer/waveling/pkg/ast"
	"github.com/synthizer/waveling/pkg/lex"
	"github.com/synthizer/waveling/pkg/source"
)

// Parser holds the token stream and cursor for a single source file.
type Parser struct {
	file   *source.File
	tokens []lex.Token
	pos    int
	sink   *source.Sink
}

// Parse lexes and parses file in one step, returning the parsed program
// (never nil; partial when errors were recorded in sink).
func Parse(file *source.File, sink *source.Sink) *ast.Program {
	lexer := lex.NewLexer(file, sink)
	tokens := lexer.Tokenize()
	p := &Parser{file: file, tokens: tokens, sink: sink}

	return p.parseProgram()
}

func (p *Parser) cur() lex.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) lex.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}

	return p.tokens[i]
}

func (p *Parser) advance() lex.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}

	return t
}

func (p *Parser) at(kind lex.Kind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) atKeyword(word string) bool {
	return p.cur().Kind == lex.IDENT && p.cur().Text == word
}

func (p *Parser) expect(kind lex.Kind) lex.Token {
	if !p.at(kind) {
		p.sink.Error(source.CodeSyntactic, p.cur().Span, "expected %s, found %s", kind, p.cur().Kind)
		return p.cur()
	}

	return p.advance()
}

func (p *Parser) expectIdent() lex.Token {
	if !p.at(lex.IDENT) {
		p.sink.Error(source.CodeSyntactic, p.cur().Span, "expected identifier, found %s", p.cur().Kind)
		return p.cur()
	}

	return p.advance()
}

func (p *Parser) expectKeyword(word string) lex.Token {
	if !p.atKeyword(word) {
		p.sink.Error(source.CodeSyntactic, p.cur().Span, "expected keyword %q, found %q", word, p.cur().Text)
		return p.cur()
	}

	return p.advance()
}

// ===========================================================================
// Top level
// ===========================================================================

func (p *Parser) parseProgram() *ast.Program {
	start := p.cur().Span

	p.expectKeyword("program")
	name := p.expectIdent().Text
	p.expect(lex.SEMI)

	external := p.parseExternal()

	var stages []ast.StageDecl
	for p.atKeyword("stage") {
		stages = append(stages, p.parseStage())
	}

	end := p.tokens[p.pos].Span

	return &ast.Program{
		Name:     name,
		External: external,
		Stages:   stages,
		Span:     start.Merge(end),
	}
}

func (p *Parser) parseExternal() ast.ExternalDecl {
	start := p.cur().Span

	p.expectKeyword("external")
	p.expect(lex.LBRACE)

	var decl ast.ExternalDecl

	for !p.at(lex.RBRACE) && !p.at(lex.EOF) {
		key := p.expectIdent().Text
		p.expect(lex.COLON)

		switch key {
		case "sr":
			decl.SampleRate = p.parseUintLiteral()
		case "block_size":
			decl.BlockSize = p.parseUintLiteral()
		case "inputs":
			decl.Inputs = p.parsePortList()
		case "outputs":
			decl.Outputs = p.parsePortList()
		case "properties":
			decl.Properties = p.parsePropertyList()
		default:
			p.sink.Error(source.CodeExternal, p.cur().Span, "unknown external block key %q", key)
			p.skipValue()
		}

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	end := p.cur().Span
	p.expect(lex.RBRACE)

	decl.Span = start.Merge(end)

	return decl
}

func (p *Parser) parseUintLiteral() uint {
	tok := p.expect(lex.NUMBER)
	return uint(tok.NumValue)
}

func (p *Parser) parsePortList() []ast.PortDecl {
	p.expect(lex.LBRACKET)

	var ports []ast.PortDecl

	for !p.at(lex.RBRACKET) && !p.at(lex.EOF) {
		start := p.cur().Span
		p.expect(lex.LBRACE)

		var port ast.PortDecl

		for !p.at(lex.RBRACE) && !p.at(lex.EOF) {
			key := p.expectIdent().Text
			p.expect(lex.COLON)

			switch key {
			case "name":
				port.Name = p.expectIdent().Text
			case "width":
				port.Shape.Width = p.parseUintLiteral()
			default:
				p.sink.Error(source.CodeExternal, p.cur().Span, "unknown port field %q", key)
				p.skipValue()
			}

			if p.at(lex.COMMA) {
				p.advance()
			}
		}

		end := p.cur().Span
		p.expect(lex.RBRACE)
		port.Span = start.Merge(end)
		ports = append(ports, port)

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	p.expect(lex.RBRACKET)

	return ports
}

func (p *Parser) parsePropertyList() []ast.PropertyDecl {
	p.expect(lex.LBRACKET)

	var props []ast.PropertyDecl

	for !p.at(lex.RBRACKET) && !p.at(lex.EOF) {
		start := p.cur().Span
		p.expect(lex.LBRACE)

		prop := ast.PropertyDecl{Rate: "b"}

		for !p.at(lex.RBRACE) && !p.at(lex.EOF) {
			key := p.expectIdent().Text
			p.expect(lex.COLON)

			switch key {
			case "name":
				prop.Name = p.expectIdent().Text
			case "type":
				prop.Type = p.expectIdent().Text
			case "rate":
				prop.Rate = p.expectIdent().Text
			default:
				p.sink.Error(source.CodeExternal, p.cur().Span, "unknown property field %q", key)
				p.skipValue()
			}

			if p.at(lex.COMMA) {
				p.advance()
			}
		}

		end := p.cur().Span
		p.expect(lex.RBRACE)
		prop.Span = start.Merge(end)
		props = append(props, prop)

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	p.expect(lex.RBRACKET)

	return props
}

// skipValue consumes a single malformed external-block value so parsing of
// the surrounding block can continue after an unknown-key diagnostic.
func (p *Parser) skipValue() {
	depth := 0

	for !p.at(lex.EOF) {
		switch p.cur().Kind {
		case lex.LBRACE, lex.LBRACKET:
			depth++
		case lex.RBRACE, lex.RBRACKET:
			if depth == 0 {
				return
			}

			depth--
		case lex.COMMA:
			if depth == 0 {
				return
			}
		}

		p.advance()
	}
}

func (p *Parser) parseStage() ast.StageDecl {
	start := p.cur().Span

	p.expectKeyword("stage")
	name := p.expectIdent().Text

	p.expect(lex.LPAREN)

	var outputs []ast.PortDecl
	for !p.at(lex.RPAREN) && !p.at(lex.EOF) {
		outputs = append(outputs, p.parseNamedShape())

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	p.expect(lex.RPAREN)
	p.expect(lex.LBRACE)

	var body []ast.Stmt
	for !p.at(lex.RBRACE) && !p.at(lex.EOF) {
		body = append(body, p.parseStmt())
	}

	end := p.cur().Span
	p.expect(lex.RBRACE)

	return ast.StageDecl{Name: name, Outputs: outputs, Body: body, Span: start.Merge(end)}
}

func (p *Parser) parseNamedShape() ast.PortDecl {
	start := p.cur().Span
	name := p.expectIdent().Text
	p.expect(lex.COLON)
	shape := p.parseShapeExpr()

	return ast.PortDecl{Name: name, Shape: shape, Span: start.Merge(shape.Span)}
}

func (p *Parser) parseShapeExpr() ast.ShapeExpr {
	start := p.cur().Span
	scalar := p.expectIdent().Text
	p.expect(lex.LPAREN)
	width := p.parseUintLiteral()
	end := p.cur().Span
	p.expect(lex.RPAREN)

	return ast.ShapeExpr{Scalar: scalar, Width: width, Span: start.Merge(end)}
}

// ===========================================================================
// Statements
// ===========================================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.atKeyword("let"):
		return p.parseLetStmt()
	case p.atKeyword("cell"):
		return p.parseCellStmt()
	case p.atKeyword("buffer"):
		return p.parseBufferStmt()
	case p.at(lex.IDENT) && p.peekAt(1).Kind == lex.ASSIGN:
		return p.parseAssignStmt()
	default:
		start := p.cur().Span
		value := p.parseExpr()
		end := p.cur().Span
		p.expect(lex.SEMI)

		return ast.NewExprStmt(value, start.Merge(end))
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.cur().Span
	p.advance() // "let"
	name := p.expectIdent().Text
	p.expect(lex.ASSIGN)
	value := p.parseExpr()
	end := p.cur().Span
	p.expect(lex.SEMI)

	return ast.NewLetStmt(name, value, start.Merge(end))
}

func (p *Parser) parseAssignStmt() ast.Stmt {
	start := p.cur().Span
	name := p.advance().Text
	p.expect(lex.ASSIGN)
	value := p.parseExpr()
	end := p.cur().Span
	p.expect(lex.SEMI)

	return ast.NewAssignStmt(name, value, start.Merge(end))
}

// parseParenExprList parses a comma-separated list of sub-comma-precedence
// expressions between parentheses, used for both the `cell(k)` delay group
// and the `(start, end)` name-pair group (the two are disambiguated by the
// caller based on count and content).
func (p *Parser) parseParenExprList() []ast.Expr {
	p.expect(lex.LPAREN)

	var items []ast.Expr
	for !p.at(lex.RPAREN) && !p.at(lex.EOF) {
		items = append(items, p.parseLogicalOr())

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	p.expect(lex.RPAREN)

	return items
}

func (p *Parser) parseCellStmt() ast.Stmt {
	start := p.cur().Span
	p.advance() // "cell"

	group1 := p.parseParenExprList()

	var delay ast.Expr

	var pair []ast.Expr

	if p.at(lex.LPAREN) {
		// group1 was the "(k)" delay group.
		if len(group1) != 1 {
			p.sink.Error(source.CodeSyntactic, start, "cell delay must be a single value")
		} else {
			delay = group1[0]
		}

		pair = p.parseParenExprList()
	} else {
		pair = group1
	}

	startName, endName := "", ""

	if len(pair) != 2 {
		p.sink.Error(source.CodeSyntactic, start, "cell declaration requires exactly (start, end) names")
	} else {
		startName = identName(p.sink, pair[0])
		endName = identName(p.sink, pair[1])
	}

	p.expect(lex.COLON)
	shape := p.parseShapeExpr()
	end := p.cur().Span
	p.expect(lex.SEMI)

	return ast.NewCellStmt(startName, endName, delay, shape, start.Merge(end))
}

func identName(sink *source.Sink, e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}

	sink.Error(source.CodeSyntactic, e.Span(), "expected a plain identifier here")

	return ""
}

func (p *Parser) parseBufferStmt() ast.Stmt {
	start := p.cur().Span
	p.advance() // "buffer"
	name := p.expectIdent().Text
	p.expect(lex.LPAREN)
	capacity := p.parseLogicalOr()
	p.expect(lex.RPAREN)
	p.expect(lex.COLON)
	shape := p.parseShapeExpr()
	end := p.cur().Span
	p.expect(lex.SEMI)

	return ast.NewBufferStmt(name, capacity, shape, start.Merge(end))
}

// ===========================================================================
// Expressions (§4.2 precedence table, tightest first):
//   primary -> unary -> muldiv -> addsub -> shift -> compare -> band ->
//   bxor -> bor -> land -> lor -> comma(stack) -> arrows (-> tighter than <-)
// ===========================================================================

// parseExpr is the full top-level grammar, including the output-stacking
// comma operator and routing arrows.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseLeftArrow()
}

func (p *Parser) parseLeftArrow() ast.Expr {
	left := p.parseRightArrow()

	for p.at(lex.ARROW_LEFT) {
		span := p.advance().Span
		right := p.parseRightArrow()
		// `a <- b` means `b -> a`.
		left = ast.NewRoutingExpr(right, left, left.Span().Merge(span).Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseRightArrow() ast.Expr {
	left := p.parseComma()

	for p.at(lex.ARROW_RIGHT) {
		span := p.advance().Span
		right := p.parseComma()
		left = ast.NewRoutingExpr(left, right, left.Span().Merge(span).Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseComma() ast.Expr {
	first := p.parseLogicalOr()

	if !p.at(lex.COMMA) {
		return first
	}

	items := []ast.Expr{first}

	for p.at(lex.COMMA) {
		p.advance()
		items = append(items, p.parseLogicalOr())
	}

	span := items[0].Span()
	for _, it := range items[1:] {
		span = span.Merge(it.Span())
	}

	return ast.NewOutputStackExpr(items, span)
}

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()

	for p.at(lex.OROR) {
		p.advance()
		right := p.parseLogicalAnd()
		left = ast.NewBinaryExpr("||", left, right, left.Span().Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseBitOr()

	for p.at(lex.ANDAND) {
		p.advance()
		right := p.parseBitOr()
		left = ast.NewBinaryExpr("&&", left, right, left.Span().Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()

	for p.at(lex.PIPE) {
		p.advance()
		right := p.parseBitXor()
		left = ast.NewBinaryExpr("|", left, right, left.Span().Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()

	for p.at(lex.CARET) {
		p.advance()
		right := p.parseBitAnd()
		left = ast.NewBinaryExpr("^", left, right, left.Span().Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseCompare()

	for p.at(lex.AMP) {
		p.advance()
		right := p.parseCompare()
		left = ast.NewBinaryExpr("&", left, right, left.Span().Merge(right.Span()))
	}

	return left
}

var compareOps = map[lex.Kind]string{
	lex.LT: "<", lex.LE: "<=", lex.GT: ">", lex.GE: ">=", lex.EQ: "==", lex.NE: "!=",
}

func (p *Parser) parseCompare() ast.Expr {
	left := p.parseShift()

	for {
		op, ok := compareOps[p.cur().Kind]
		if !ok {
			return left
		}

		p.advance()
		right := p.parseShift()
		left = ast.NewBinaryExpr(op, left, right, left.Span().Merge(right.Span()))
	}
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdd()

	for p.at(lex.SHL) || p.at(lex.SHR) {
		op := "<<"
		if p.at(lex.SHR) {
			op = ">>"
		}

		p.advance()

		right := p.parseAdd()
		left = ast.NewBinaryExpr(op, left, right, left.Span().Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()

	for p.at(lex.PLUS) || p.at(lex.MINUS) {
		op := "+"
		if p.at(lex.MINUS) {
			op = "-"
		}

		p.advance()

		right := p.parseMul()
		left = ast.NewBinaryExpr(op, left, right, left.Span().Merge(right.Span()))
	}

	return left
}

func (p *Parser) parseMul() ast.Expr {
	left := p.parseUnary()

	for p.at(lex.STAR) || p.at(lex.SLASH) || p.at(lex.PERCENT) {
		var op string

		switch p.cur().Kind {
		case lex.STAR:
			op = "*"
		case lex.SLASH:
			op = "/"
		default:
			op = "%"
		}

		p.advance()

		right := p.parseUnary()
		left = ast.NewBinaryExpr(op, left, right, left.Span().Merge(right.Span()))
	}

	return left
}

var unaryOps = map[lex.Kind]string{
	lex.BANG: "!", lex.TILDE: "~", lex.PLUS: "+", lex.MINUS: "-",
}

func (p *Parser) parseUnary() ast.Expr {
	if op, ok := unaryOps[p.cur().Kind]; ok {
		span := p.advance().Span
		operand := p.parseUnary()

		return ast.NewUnaryExpr(op, operand, span.Merge(operand.Span()))
	}

	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()

	for {
		switch {
		case p.at(lex.DOT):
			p.advance()
			name := p.expectIdent()
			expr = ast.NewFieldExpr(expr, name.Text, expr.Span().Merge(name.Span))
		case p.at(lex.LBRACKET):
			p.advance()
			idxTok := p.expect(lex.NUMBER)
			end := p.cur().Span
			p.expect(lex.RBRACKET)
			expr = ast.NewIndexExpr(expr, uint(idxTok.NumValue), expr.Span().Merge(end))
		case p.at(lex.LPAREN):
			name, ok := dottedName(expr)
			if !ok {
				p.sink.Error(source.CodeSyntactic, expr.Span(), "only a plain or dotted name can be called")
			}

			args := p.parseArgs()
			end := p.cur().Span
			expr = ast.NewCallExpr(name, args, expr.Span().Merge(end))
		default:
			return expr
		}
	}
}

// dottedName flattens a chain of Ident/FieldExpr nodes into a dotted string
// (e.g. biquad.lowpass), used to recognize built-in call targets.
func dottedName(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.Ident:
		return n.Name, true
	case *ast.FieldExpr:
		base, ok := dottedName(n.Target)
		if !ok {
			return "", false
		}

		return base + "." + n.Name, true
	default:
		return "", false
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(lex.LPAREN)

	var args []ast.Expr

	for !p.at(lex.RPAREN) && !p.at(lex.EOF) {
		args = append(args, p.parseBundleOrLogicalOr())

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	p.expect(lex.RPAREN)

	return args
}

// parseBundleOrLogicalOr parses a call argument, which may be a named
// "k: v" form inside a call (for builtins taking keyword pins) or a plain
// positional expression.
func (p *Parser) parseBundleOrLogicalOr() ast.Expr {
	if p.at(lex.IDENT) && p.peekAt(1).Kind == lex.COLON {
		// A lone "name: value" call argument is sugar for a single-entry
		// bundle literal, letting builtins be called with named pins
		// (e.g. biquad.lowpass(input: x, frequency: f, q: q)).
		start := p.cur().Span
		name := p.advance().Text
		p.advance() // ':'
		value := p.parseLogicalOr()

		return ast.NewBundleLit([]ast.BundleEntry{{Name: name, Value: value}}, start.Merge(value.Span()))
	}

	return p.parseLogicalOr()
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()

	switch tok.Kind {
	case lex.NUMBER:
		p.advance()
		return ast.NewNumberLit(tok.NumValue, ast.NumberSuffix(tok.Suffix), tok.IsHex, tok.Span)
	case lex.BOOL:
		p.advance()
		return ast.NewBoolLit(tok.BoolValue, tok.Span)
	case lex.IDENT:
		p.advance()
		return ast.NewIdent(tok.Text, tok.Span)
	case lex.LPAREN:
		p.advance()
		inner := p.parseExpr()
		p.expect(lex.RPAREN)

		return inner
	case lex.LBRACE:
		return p.parseBundleLit()
	default:
		p.sink.Error(source.CodeSyntactic, tok.Span, "unexpected token %s", tok.Kind)
		p.advance()

		return ast.NewNumberLit(0, ast.NoSuffix, false, tok.Span)
	}
}

func (p *Parser) parseBundleLit() ast.Expr {
	start := p.cur().Span
	p.expect(lex.LBRACE)

	var entries []ast.BundleEntry

	for !p.at(lex.RBRACE) && !p.at(lex.EOF) {
		if p.at(lex.IDENT) && p.peekAt(1).Kind == lex.COLON {
			name := p.advance().Text
			p.advance() // ':'
			value := p.parseLogicalOr()
			entries = append(entries, ast.BundleEntry{Name: name, Value: value})
		} else {
			entries = append(entries, ast.BundleEntry{Value: p.parseLogicalOr()})
		}

		if p.at(lex.COMMA) {
			p.advance()
		}
	}

	end := p.cur().Span
	p.expect(lex.RBRACE)

	return ast.NewBundleLit(entries, start.Merge(end))
}
