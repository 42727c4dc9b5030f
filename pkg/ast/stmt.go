package ast

import "github.com/synthizer/waveling/pkg/source"

// Stmt is any statement within a stage body (§4.2).
type Stmt interface {
	Span() source.Span
	stmtNode()
}

type stmtBase struct {
	span source.Span
}

func (s stmtBase) Span() source.Span { return s.span }
func (s stmtBase) stmtNode()         {}

// LetStmt declares a new immutable name bound to the node its expression
// evaluates to (§3 Variable, §4.2). Redeclaration within the same scope is
// an error (§3 Invariants).
type LetStmt struct {
	stmtBase
	Name  string
	Value Expr
}

// NewLetStmt constructs a let-statement.
func NewLetStmt(name string, value Expr, span source.Span) *LetStmt {
	return &LetStmt{stmtBase{span}, name, value}
}

// AssignStmt wires an expression's value into an already-declared
// destination name: a cell's `end` input pin, a declared stage output, or
// an external output (§4.2). It is only legal where name was already bound
// in the same scope, and is equivalent to `value -> name;`.
type AssignStmt struct {
	stmtBase
	Name  string
	Value Expr
}

// NewAssignStmt constructs an assignment statement.
func NewAssignStmt(name string, value Expr, span source.Span) *AssignStmt {
	return &AssignStmt{stmtBase{span}, name, value}
}

// ExprStmt is a bare expression used for its routing side effects; its
// value is discarded (§4.2).
type ExprStmt struct {
	stmtBase
	Value Expr
}

// NewExprStmt constructs an expression statement.
func NewExprStmt(value Expr, span source.Span) *ExprStmt {
	return &ExprStmt{stmtBase{span}, value}
}

// CellStmt declares a one-or-more-sample recursion cell: `cell (start,
// end): shape;` or `cell(k) (start, end): shape;` (§4.4). It binds two new
// names: Start to the cell's 0-th (and only) output pin, End to its 0-th
// (and only) input pin.
type CellStmt struct {
	stmtBase
	Start string
	End   string
	// Delay is nil for a plain `cell (...)` (one-sample delay); otherwise
	// the `k` of `cell(k) (...)`, required to be a positive integer
	// literal (§4.6).
	Delay Expr
	Shape ShapeExpr
}

// NewCellStmt constructs a recursion-cell declaration.
func NewCellStmt(start, end string, delay Expr, shape ShapeExpr, span source.Span) *CellStmt {
	return &CellStmt{stmtBase{span}, start, end, delay, shape}
}

// BufferStmt declares a circular buffer: `buffer name(capacity): shape;`
// (§4.4). Capacity must be a constant-rate positive integer (§4.6).
type BufferStmt struct {
	stmtBase
	Name     string
	Capacity Expr
	Shape    ShapeExpr
}

// NewBufferStmt constructs a buffer declaration.
func NewBufferStmt(name string, capacity Expr, shape ShapeExpr, span source.Span) *BufferStmt {
	return &BufferStmt{stmtBase{span}, name, capacity, shape}
}
