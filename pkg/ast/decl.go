package ast

import "github.com/synthizer/waveling/pkg/source"

// PortDecl declares one entry of an external input/output array or a stage
// output bundle: `name: shape` (§6).
type PortDecl struct {
	Name  string
	Shape ShapeExpr
	Span  source.Span
}

// PropertyDecl declares one external property (§6).
type PropertyDecl struct {
	Name string
	// Type is one of "f32", "f64", "i32", "i64" as written; semantically
	// treated as f64 in this version regardless (§6).
	Type string
	// Rate is "s" or "b"; defaults to "b" when omitted (§6).
	Rate string
	Span source.Span
}

// ExternalDecl is the `external { … }` block (§6).
type ExternalDecl struct {
	SampleRate uint
	BlockSize  uint
	Inputs     []PortDecl
	Outputs    []PortDecl
	Properties []PropertyDecl
	Span       source.Span
}

// StageDecl is a `stage name(decls) { stmts }` declaration. The
// parenthesized decls declare the stage's output bundle (a stage has zero
// inputs, §3); statements assign each declared output name (and any `let`-
// bound intermediates) within the stage's lexical scope.
type StageDecl struct {
	Name    string
	Outputs []PortDecl
	Body    []Stmt
	Span    source.Span
}

// Program is the root of a parsed Waveling source file (§3 Program).
type Program struct {
	Name     string
	External ExternalDecl
	Stages   []StageDecl
	Span     source.Span
}
