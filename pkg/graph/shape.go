// Package graph defines the Waveling graph intermediate representation
// (§3 data model, §6 IR contract): nodes, pins, bundles, edges, buffers,
// stages and the program that contains them. Values here are constructed by
// pkg/compiler, rewritten by its inference and folding passes, and frozen
// once pkg/compiler/emitter.go serializes them; pkg/graph itself performs no
// inference or checking.
package graph

import "fmt"

// Scalar is one of the five primitive scalar types (§3).
type Scalar uint8

const (
	ScalarUnresolved Scalar = iota
	I32
	I64
	F32
	F64
	Bool
)

func (s Scalar) String() string {
	switch s {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	default:
		return "<unresolved>"
	}
}

// IsInteger reports whether s is one of the integral scalar types.
func (s Scalar) IsInteger() bool {
	return s == I32 || s == I64
}

// IsFloat reports whether s is one of the floating-point scalar types.
func (s Scalar) IsFloat() bool {
	return s == F32 || s == F64
}

// promotionRank gives the position of a scalar within its own promotion
// lattice (§4.5): i32 <= i64, f32 <= f64, bool32 <= bool64. Scalars from
// different lattices are incomparable (rank -1 means "not in this lattice").
func promotionRank(s Scalar) int {
	switch s {
	case I32, F32:
		return 0
	case I64, F64:
		return 1
	default:
		return -1
	}
}

// Join computes the least upper bound of two scalars under the promotion
// lattice, or ScalarUnresolved if no promotion path exists (§4.5: integers
// never implicitly promote to floats, and vice versa).
func (s Scalar) Join(other Scalar) (Scalar, bool) {
	if s == other {
		return s, true
	}

	if s == Bool || other == Bool {
		return ScalarUnresolved, false
	}

	if s.IsInteger() && other.IsInteger() {
		if promotionRank(s) >= promotionRank(other) {
			return s, true
		}

		return other, true
	}

	if s.IsFloat() && other.IsFloat() {
		if promotionRank(s) >= promotionRank(other) {
			return s, true
		}

		return other, true
	}

	return ScalarUnresolved, false
}

// Shape is the static (scalar-type, channel-count) pair carried by every
// pin (§3 Value shape).
type Shape struct {
	Scalar Scalar
	Width  uint
}

// String renders a shape as "scalar(width)", e.g. "f32(2)".
func (s Shape) String() string {
	return fmt.Sprintf("%s(%d)", s.Scalar, s.Width)
}

// Resolved reports whether this shape has a concrete scalar and nonzero
// width.
func (s Shape) Resolved() bool {
	return s.Scalar != ScalarUnresolved && s.Width > 0
}

// Rate is one of constant/block/sample (§3).
type Rate uint8

const (
	// C - constant for the entire program lifetime.
	C Rate = iota
	// B - may change between blocks, fixed within a block.
	B
	// S - may change every sample.
	S
)

func (r Rate) String() string {
	switch r {
	case C:
		return "C"
	case B:
		return "B"
	default:
		return "S"
	}
}

// Max returns the higher of two rates under C < B < S (§3, §4.5).
func Max(a, b Rate) Rate {
	if a > b {
		return a
	}

	return b
}
