package ast

import "github.com/synthizer/waveling/pkg/source"

// ShapeExpr is the syntax `scalar(width)` used to declare the shape of a
// buffer or recursion cell (§4.4), e.g. `f32(1)`.
type ShapeExpr struct {
	Scalar string
	Width  uint
	Span   source.Span
}
