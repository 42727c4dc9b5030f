package compiler

import (
	"math"
	"math/big"

	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
)

// foldPrecision is the working precision (in bits) used while evaluating one
// foldable node. The node's result is rounded to float64 when it is stored
// as a KindLiteral value, and a consumer folded later reads that float64
// back, so a nested constant expression is rounded once per folded node, not
// once for the whole expression.
const foldPrecision = 256

// isFoldableKind reports the purely combinational node kinds eligible for
// constant folding once every one of their inputs traces back to a literal
// (§4.7). Stateful primitives (cell, buffer, xoroshiro) and the
// table-driven `select` form are deliberately excluded even when their
// inputs happen to be constant, since folding them would require modeling
// state or multi-width literal storage this IR does not carry.
func isFoldableKind(node *graph.Node) bool {
	switch node.Kind {
	case graph.KindUnary, graph.KindBinary, graph.KindSum, graph.KindLogicalOr,
		graph.KindAdapter, graph.KindMerge, graph.KindBroadcast, graph.KindTruncate, graph.KindSlice:
		return true
	case graph.KindBuiltinCall:
		name, _ := node.Attr("name")
		switch name {
		case "sin", "cos", "tan", "sqrt", "if":
			return true
		}
	}

	return false
}

// Fold replaces every maximal constant-rate subgraph reachable only through
// foldable kinds with a single KindLiteral node (§4.7), iterating to a
// fixpoint since folding one node can make its consumer foldable in turn.
// Only scalar (width-1) results are materialized, since a KindLiteral node
// carries one value; wider constant subgraphs are left unfolded.
func Fold(prog *graph.Program, sink *source.Sink) {
	for {
		changed := false

		for _, n := range prog.Nodes {
			if n.Kind == graph.KindLiteral {
				continue
			}

			if n.Outputs.Len() != 1 || n.Outputs.Pins[0].Shape.Width != 1 {
				continue
			}

			if n.Outputs.Pins[0].Rate != graph.C {
				continue
			}

			if !isFoldableKind(n) {
				continue
			}

			if !allInputsLiteral(prog, n) {
				continue
			}

			value, ok := evaluate(prog, n, sink)
			if !ok {
				continue
			}

			replaceWithLiteral(prog, n, value)
			changed = true
		}

		if !changed {
			break
		}
	}
}

func allInputsLiteral(prog *graph.Program, n *graph.Node) bool {
	for i := range n.Inputs.Pins {
		edges := prog.EdgesInto(graph.Endpoint{Node: n.ID, Pin: uint(i)})
		if len(edges) != 1 {
			return false
		}

		if prog.Node(edges[0].Src.Node).Kind != graph.KindLiteral {
			return false
		}
	}

	return true
}

// replaceWithLiteral turns n itself into a KindLiteral node carrying value,
// preserving its identity so that existing edges out of it remain valid; its
// former input edges are dropped since a literal has no inputs.
func replaceWithLiteral(prog *graph.Program, n *graph.Node, value constVal) {
	n.Kind = graph.KindLiteral
	n.Attrs = map[string]any{}

	if value.isBool {
		n.SetAttr("bool", value.boolVal)
	} else {
		f, _ := value.num.Float64()
		n.SetAttr("value", f)
	}

	n.Inputs = graph.NewBundle()

	var rebuilt []graph.Edge

	for _, e := range prog.Edges {
		if e.Dst.Node == n.ID {
			continue
		}

		rebuilt = append(rebuilt, e)
	}

	prog.Edges = rebuilt
}

// constVal is the value of a folded constant expression: either a real
// number (tracked at extended precision) or a boolean.
type constVal struct {
	num     *big.Float
	boolVal bool
	isBool  bool
}

func numConst(f *big.Float) constVal { return constVal{num: f} }
func boolConst(b bool) constVal      { return constVal{isBool: true, boolVal: b} }

func literalValue(n *graph.Node) constVal {
	if b, ok := n.Attr("bool"); ok {
		bv, _ := b.(bool)
		return boolConst(bv)
	}

	v, _ := n.Attr("value")
	fv, _ := v.(float64)

	return numConst(new(big.Float).SetPrec(foldPrecision).SetFloat64(fv))
}

func evaluate(prog *graph.Program, n *graph.Node, sink *source.Sink) (constVal, bool) {
	inputs := make([]constVal, len(n.Inputs.Pins))

	for i := range n.Inputs.Pins {
		edges := prog.EdgesInto(graph.Endpoint{Node: n.ID, Pin: uint(i)})
		inputs[i] = literalValue(prog.Node(edges[0].Src.Node))
	}

	switch n.Kind {
	case graph.KindUnary:
		return evaluateUnary(n, inputs[0], sink)
	case graph.KindBinary:
		return evaluateBinary(n, inputs[0], inputs[1], sink)
	case graph.KindSum:
		return evaluateSum(inputs)
	case graph.KindLogicalOr:
		return evaluateLogicalOr(inputs)
	case graph.KindAdapter:
		return evaluateAdapter(n, inputs[0])
	case graph.KindMerge, graph.KindBroadcast, graph.KindTruncate, graph.KindSlice:
		return inputs[0], true
	case graph.KindBuiltinCall:
		return evaluateBuiltin(n, inputs, sink)
	}

	return constVal{}, false
}

func evaluateUnary(n *graph.Node, operand constVal, sink *source.Sink) (constVal, bool) {
	op, _ := n.Attr("op")

	switch op {
	case "-":
		return numConst(new(big.Float).SetPrec(foldPrecision).Neg(operand.num)), true
	case "+":
		return operand, true
	case "~":
		if operand.isBool {
			return boolConst(!operand.boolVal), true
		}

		i, _ := operand.num.Int64()

		return numConst(new(big.Float).SetPrec(foldPrecision).SetInt64(^i)), true
	}

	sink.Error(source.CodeFold, n.Span, "unsupported unary operator %v in constant folding", op)

	return constVal{}, false
}

func evaluateBinary(n *graph.Node, left, right constVal, sink *source.Sink) (constVal, bool) {
	op, _ := n.Attr("op")
	opStr, _ := op.(string)

	if left.isBool || right.isBool {
		switch opStr {
		case "&":
			return boolConst(left.boolVal && right.boolVal), true
		case "|":
			return boolConst(left.boolVal || right.boolVal), true
		case "==":
			return boolConst(left.boolVal == right.boolVal), true
		case "!=":
			return boolConst(left.boolVal != right.boolVal), true
		}

		sink.Error(source.CodeFold, n.Span, "unsupported bool operator %q in constant folding", opStr)

		return constVal{}, false
	}

	switch opStr {
	case "+":
		return numConst(new(big.Float).SetPrec(foldPrecision).Add(left.num, right.num)), true
	case "-":
		return numConst(new(big.Float).SetPrec(foldPrecision).Sub(left.num, right.num)), true
	case "*":
		return numConst(new(big.Float).SetPrec(foldPrecision).Mul(left.num, right.num)), true
	case "/":
		if right.num.Sign() == 0 {
			sink.Error(source.CodeFold, n.Span, "division by zero in constant folding")
			return constVal{}, false
		}

		return numConst(new(big.Float).SetPrec(foldPrecision).Quo(left.num, right.num)), true
	case "<", ">", "<=", ">=", "==", "!=":
		cmp := left.num.Cmp(right.num)

		var result bool

		switch opStr {
		case "<":
			result = cmp < 0
		case ">":
			result = cmp > 0
		case "<=":
			result = cmp <= 0
		case ">=":
			result = cmp >= 0
		case "==":
			result = cmp == 0
		case "!=":
			result = cmp != 0
		}

		return boolConst(result), true
	case "&", "|", "^", "<<", ">>":
		li, _ := left.num.Int64()
		ri, _ := right.num.Int64()

		var result int64

		switch opStr {
		case "&":
			result = li & ri
		case "|":
			result = li | ri
		case "^":
			result = li ^ ri
		case "<<":
			result = li << uint(ri)
		case ">>":
			result = li >> uint(ri)
		}

		return numConst(new(big.Float).SetPrec(foldPrecision).SetInt64(result)), true
	}

	sink.Error(source.CodeFold, n.Span, "unsupported binary operator %q in constant folding", opStr)

	return constVal{}, false
}

func evaluateSum(inputs []constVal) (constVal, bool) {
	sum := new(big.Float).SetPrec(foldPrecision)
	for _, in := range inputs {
		sum.Add(sum, in.num)
	}

	return numConst(sum), true
}

func evaluateLogicalOr(inputs []constVal) (constVal, bool) {
	result := false
	for _, in := range inputs {
		result = result || in.boolVal
	}

	return boolConst(result), true
}

func evaluateAdapter(n *graph.Node, operand constVal) (constVal, bool) {
	to, _ := n.Attr("to")

	if to == "i32" || to == "i64" {
		truncated, _ := operand.num.Int(nil)

		return numConst(new(big.Float).SetPrec(foldPrecision).SetInt(truncated)), true
	}

	return operand, true
}

func evaluateBuiltin(n *graph.Node, inputs []constVal, sink *source.Sink) (constVal, bool) {
	name, _ := n.Attr("name")

	switch name {
	case "sin", "cos", "tan", "sqrt":
		f, _ := inputs[0].num.Float64()

		var result float64

		switch name {
		case "sin":
			result = math.Sin(f)
		case "cos":
			result = math.Cos(f)
		case "tan":
			result = math.Tan(f)
		case "sqrt":
			result = math.Sqrt(f)
		}

		return numConst(new(big.Float).SetPrec(foldPrecision).SetFloat64(result)), true
	case "if":
		if inputs[0].boolVal {
			return inputs[1], true
		}

		return inputs[2], true
	}

	sink.Error(source.CodeFold, n.Span, "unsupported built-in %v in constant folding", name)

	return constVal{}, false
}
