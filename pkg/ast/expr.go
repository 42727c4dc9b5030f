// Package ast defines the Waveling syntax tree produced by pkg/ast/parser
// from a pkg/lex token stream (§4.2).
package ast

import "github.com/synthizer/waveling/pkg/source"

// Expr is any syntactic expression node.
type Expr interface {
	Span() source.Span
	exprNode()
}

type exprBase struct {
	span source.Span
}

func (e exprBase) Span() source.Span { return e.span }
func (e exprBase) exprNode()         {}

// Ident is a bare identifier, resolved by the name/scope resolver to a node,
// pin, buffer, stage, or built-in (§4.3).
type Ident struct {
	exprBase
	Name string
}

// NewIdent constructs an identifier expression.
func NewIdent(name string, span source.Span) *Ident {
	return &Ident{exprBase{span}, name}
}

// NumberSuffix mirrors the lexer's literal type suffix.
type NumberSuffix string

const (
	NoSuffix  NumberSuffix = ""
	SuffixI32 NumberSuffix = "i32"
	SuffixI64 NumberSuffix = "i64"
	SuffixF32 NumberSuffix = "f32"
	SuffixF64 NumberSuffix = "f64"
)

// NumberLit is a numeric literal, with an optional type suffix (§4.1). An
// unsuffixed literal's type is a free variable resolved by context (§4.5).
type NumberLit struct {
	exprBase
	Value  float64
	Suffix NumberSuffix
	IsHex  bool
}

// NewNumberLit constructs a numeric literal expression.
func NewNumberLit(value float64, suffix NumberSuffix, isHex bool, span source.Span) *NumberLit {
	return &NumberLit{exprBase{span}, value, suffix, isHex}
}

// BoolLit is a boolean literal.
type BoolLit struct {
	exprBase
	Value bool
}

// NewBoolLit constructs a boolean literal expression.
func NewBoolLit(value bool, span source.Span) *BoolLit {
	return &BoolLit{exprBase{span}, value}
}

// UnaryExpr is one of ! ~ + - applied to a single operand (§4.2).
type UnaryExpr struct {
	exprBase
	Op      string
	Operand Expr
}

// NewUnaryExpr constructs a unary expression.
func NewUnaryExpr(op string, operand Expr, span source.Span) *UnaryExpr {
	return &UnaryExpr{exprBase{span}, op, operand}
}

// BinaryExpr is a left/right operator expression from the §4.2 precedence
// table (arithmetic, comparison, bitwise, logical).
type BinaryExpr struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

// NewBinaryExpr constructs a binary expression.
func NewBinaryExpr(op string, left, right Expr, span source.Span) *BinaryExpr {
	return &BinaryExpr{exprBase{span}, op, left, right}
}

// IndexExpr is `target[i]`, selecting output pin i of the node denoted by
// target (§4.2).
type IndexExpr struct {
	exprBase
	Target Expr
	Index  uint
}

// NewIndexExpr constructs a pin-index selection expression.
func NewIndexExpr(target Expr, index uint, span source.Span) *IndexExpr {
	return &IndexExpr{exprBase{span}, target, index}
}

// FieldExpr is `target.name`, a path selection into a module or bundle
// (§4.2, §4.3). Dotted built-in names (e.g. `biquad.lowpass`) are folded
// into a single CallExpr.Name by the parser rather than represented here.
type FieldExpr struct {
	exprBase
	Target Expr
	Name   string
}

// NewFieldExpr constructs a path-selection expression.
func NewFieldExpr(target Expr, name string, span source.Span) *FieldExpr {
	return &FieldExpr{exprBase{span}, target, name}
}

// BundleEntry is one entry of a bundle literal: bare items are positional,
// `k: v` items are named (§4.2).
type BundleEntry struct {
	Name  string // empty for positional entries
	Value Expr
}

// BundleLit is `{ k: v, … }`, consumed by the graph builder to wire each
// entry into the matching destination input pin (§4.4).
type BundleLit struct {
	exprBase
	Entries []BundleEntry
}

// NewBundleLit constructs a bundle literal expression.
func NewBundleLit(entries []BundleEntry, span source.Span) *BundleLit {
	return &BundleLit{exprBase{span}, entries}
}

// CallExpr invokes a built-in primitive or structural keyword form by name
// (sin, cos, biquad.lowpass, xoroshiro, if, select, broadcast, truncate,
// merge, split, slice, delread, delwrite), §4.3/§4.4. Name may be dotted
// (e.g. "biquad.lowpass").
type CallExpr struct {
	exprBase
	Name string
	Args []Expr
}

// NewCallExpr constructs a call expression.
func NewCallExpr(name string, args []Expr, span source.Span) *CallExpr {
	return &CallExpr{exprBase{span}, name, args}
}

// RoutingExpr is `a -> b` or `a <- b` (§4.4). `<-` is rewritten by the
// parser into the equivalent `->` form (src, dst swapped) so the builder
// only ever sees one direction. The expression's value is its destination
// operand, which is what makes `a -> b -> c` chain left to right.
type RoutingExpr struct {
	exprBase
	Src Expr
	Dst Expr
}

// NewRoutingExpr constructs a routing expression in src -> dst form.
func NewRoutingExpr(src, dst Expr, span source.Span) *RoutingExpr {
	return &RoutingExpr{exprBase{span}, src, dst}
}

// OutputStackExpr is `a, b`, producing a temporary composite output whose
// width is the sum of its items' widths (§4.4).
type OutputStackExpr struct {
	exprBase
	Items []Expr
}

// NewOutputStackExpr constructs an output-stacking expression.
func NewOutputStackExpr(items []Expr, span source.Span) *OutputStackExpr {
	return &OutputStackExpr{exprBase{span}, items}
}
