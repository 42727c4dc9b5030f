package compiler

import (
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
)

// typer resolves the shape and rate of every pin in a built graph.Program
// (§4.5). Many pins already carry a concrete shape/rate from construction
// (external ports, properties, cell/buffer pins, stage outputs, literal
// suffixes); the typer's job is to propagate the rest through the
// combinational node kinds, in dependency order via memoized recursion
// rather than a work-list fixpoint — recursion naturally terminates at the
// already-resolved cell/buffer/stage-output-ref pins that break the only
// cycles the graph can contain (§3 Invariants).
type typer struct {
	prog *graph.Program
	sink *source.Sink

	edgeInto map[graph.Endpoint]graph.Edge

	shapeDone map[graph.NodeID]bool
	rateDone  map[graph.NodeID]bool
	visiting  map[graph.NodeID]bool
}

// Infer runs shape and rate inference over prog, reporting unresolvable
// promotions and width mismatches to sink. It mutates prog's pins in place.
func Infer(prog *graph.Program, sink *source.Sink) {
	t := &typer{
		prog:      prog,
		sink:      sink,
		edgeInto:  make(map[graph.Endpoint]graph.Edge),
		shapeDone: make(map[graph.NodeID]bool),
		rateDone:  make(map[graph.NodeID]bool),
		visiting:  make(map[graph.NodeID]bool),
	}

	for _, e := range prog.Edges {
		t.edgeInto[e.Dst] = e
	}

	for _, n := range prog.Nodes {
		t.resolveShape(n.ID)
	}

	for _, n := range prog.Nodes {
		t.resolveRate(n.ID)
	}

	t.insertAdapters()
}

var comparisonOps = map[string]bool{
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
}

// ===========================================================================
// Shape
// ===========================================================================

// shapeOfInput resolves the pin at ep, following its single incoming edge if
// its owning node hasn't been resolved yet.
func (t *typer) shapeOfInput(ep graph.Endpoint) graph.Shape {
	edge, ok := t.edgeInto[ep]
	if !ok {
		return graph.Shape{}
	}

	t.resolveShape(edge.Src.Node)

	src := t.prog.Node(edge.Src.Node)
	pin, _ := src.Outputs.ByIndex(edge.Src.Pin)

	return pin.Shape
}

func (t *typer) resolveShape(id graph.NodeID) {
	if t.shapeDone[id] {
		return
	}

	if t.visiting[id] {
		return // defensive: a genuine cycle outside cell/buffer is a structural error caught by the validator.
	}

	t.visiting[id] = true
	defer delete(t.visiting, id)

	node := t.prog.Node(id)

	switch node.Kind {
	case graph.KindLiteral:
		if node.Outputs.Pins[0].Shape.Scalar == graph.ScalarUnresolved {
			node.Outputs.Pins[0].Shape.Scalar = graph.F64
		}
	case graph.KindExternalInput, graph.KindProperty, graph.KindCell,
		graph.KindBufferRead, graph.KindStageOutputRef:
		// Already concrete from construction.
	case graph.KindExternalOutput, graph.KindStageOutputSink:
		// Declared shape is already fixed; the adapter pass reconciles a
		// mismatched upstream scalar.
	case graph.KindUnary:
		operand := t.shapeOfInput(graph.Endpoint{Node: id, Pin: 0})
		node.Inputs.Pins[0].Shape = operand
		node.Outputs.Pins[0].Shape = operand
	case graph.KindBinary:
		t.resolveBinaryShape(node)
	case graph.KindMerge:
		t.resolveMergeShape(node)
	case graph.KindSum, graph.KindLogicalOr:
		t.resolveFanInShape(node)
	case graph.KindBroadcast, graph.KindTruncate, graph.KindSlice:
		operand := t.shapeOfInput(graph.Endpoint{Node: id, Pin: 0})
		node.Inputs.Pins[0].Shape = operand
		node.Outputs.Pins[0].Shape.Scalar = operand.Scalar
	case graph.KindSplit:
		operand := t.shapeOfInput(graph.Endpoint{Node: id, Pin: 0})
		node.Inputs.Pins[0].Shape = operand

		for i := range node.Outputs.Pins {
			node.Outputs.Pins[i].Shape.Scalar = operand.Scalar
		}
	case graph.KindBufferWrite:
		// Input/output shapes are already fixed to the buffer's element
		// shape at construction.
	case graph.KindBuiltinCall:
		t.resolveBuiltinShape(node)
	case graph.KindAdapter:
		// Adapters are only created by insertAdapters, after this pass.
	}

	t.shapeDone[id] = true
}

func (t *typer) resolveBinaryShape(node *graph.Node) {
	left := t.shapeOfInput(graph.Endpoint{Node: node.ID, Pin: 0})
	right := t.shapeOfInput(graph.Endpoint{Node: node.ID, Pin: 1})
	node.Inputs.Pins[0].Shape = left
	node.Inputs.Pins[1].Shape = right

	op, _ := node.Attr("op")
	opStr, _ := op.(string)

	if comparisonOps[opStr] {
		node.Outputs.Pins[0].Shape = graph.Shape{Scalar: graph.Bool, Width: 1}
		return
	}

	joined, ok := left.Scalar.Join(right.Scalar)
	if !ok {
		t.sink.Error(source.CodeShape, node.Span, "operator %q cannot combine %s and %s", opStr, left, right)

		joined = left.Scalar
	}

	if left.Width != right.Width {
		t.sink.Error(source.CodeShape, node.Span, "operator %q operand widths disagree: %d vs %d", opStr, left.Width, right.Width)
	}

	node.Outputs.Pins[0].Shape = graph.Shape{Scalar: joined, Width: left.Width}
}

func (t *typer) resolveMergeShape(node *graph.Node) {
	var totalWidth uint

	scalar := graph.ScalarUnresolved

	for i := range node.Inputs.Pins {
		shape := t.shapeOfInput(graph.Endpoint{Node: node.ID, Pin: uint(i)})
		node.Inputs.Pins[i].Shape = shape
		totalWidth += shape.Width

		if scalar == graph.ScalarUnresolved {
			scalar = shape.Scalar
		} else if joined, ok := scalar.Join(shape.Scalar); ok {
			scalar = joined
		} else {
			t.sink.Error(source.CodeShape, node.Span, "merge entries have incompatible scalar types")
		}
	}

	node.Outputs.Pins[0].Shape = graph.Shape{Scalar: scalar, Width: totalWidth}
}

// resolveFanInShape handles the synthetic Sum/LogicalOr nodes materialized by
// the builder: every input feeds the same original destination pin, so their
// scalars unify by the same promotion-lattice join as a binary operator's
// operands (§4.5) rather than requiring bit-for-bit identical shapes; widths
// are not promotable and so must agree exactly.
func (t *typer) resolveFanInShape(node *graph.Node) {
	var shape graph.Shape

	for i := range node.Inputs.Pins {
		s := t.shapeOfInput(graph.Endpoint{Node: node.ID, Pin: uint(i)})
		node.Inputs.Pins[i].Shape = s

		if i == 0 {
			shape = s
			continue
		}

		if s.Width != shape.Width {
			t.sink.Error(source.CodeShape, node.Span, "fan-in sources disagree on width (%s vs %s)", shape, s)
			continue
		}

		joined, ok := shape.Scalar.Join(s.Scalar)
		if !ok {
			t.sink.Error(source.CodeShape, node.Span, "fan-in sources disagree on shape (%s vs %s)", shape, s)
			continue
		}

		shape.Scalar = joined
	}

	node.Outputs.Pins[0].Shape = shape
}

func (t *typer) resolveBuiltinShape(node *graph.Node) {
	for i := range node.Inputs.Pins {
		node.Inputs.Pins[i].Shape = t.shapeOfInput(graph.Endpoint{Node: node.ID, Pin: uint(i)})
	}

	name, _ := node.Attr("name")
	nameStr, _ := name.(string)

	switch nameStr {
	case "sin", "cos", "tan", "sqrt":
		node.Outputs.Pins[0].Shape = node.Inputs.Pins[0].Shape
	case "biquad.lowpass", "biquad.highpass", "biquad.bandpass":
		node.Outputs.Pins[0].Shape = node.Inputs.Pins[0].Shape
	case "xoroshiro":
		node.Outputs.Pins[0].Shape = graph.Shape{Scalar: graph.F64, Width: 1}
	case "if":
		then := node.Inputs.Pins[1].Shape
		els := node.Inputs.Pins[2].Shape

		if then.Scalar != els.Scalar || then.Width != els.Width {
			t.sink.Error(source.CodeShape, node.Span, "if branches disagree on shape (%s vs %s)", then, els)
		}

		node.Outputs.Pins[0].Shape = then
	case "select":
		node.Outputs.Pins[0].Shape = node.Inputs.Pins[1].Shape
	}
}

// ===========================================================================
// Rate
// ===========================================================================

func (t *typer) rateOfInput(ep graph.Endpoint) graph.Rate {
	edge, ok := t.edgeInto[ep]
	if !ok {
		return graph.C
	}

	t.resolveRate(edge.Src.Node)

	src := t.prog.Node(edge.Src.Node)
	pin, _ := src.Outputs.ByIndex(edge.Src.Pin)

	return pin.Rate
}

func fixedNodeRate(node *graph.Node) (graph.Rate, bool) {
	switch node.Kind {
	case graph.KindLiteral:
		return graph.C, true
	case graph.KindExternalInput:
		return graph.S, true
	case graph.KindProperty:
		return node.Outputs.Pins[0].Rate, true
	case graph.KindCell, graph.KindBufferRead, graph.KindBufferWrite, graph.KindStageOutputRef:
		return graph.S, true
	case graph.KindBuiltinCall:
		name, _ := node.Attr("name")
		if name == "xoroshiro" {
			return graph.S, true
		}
	}

	return graph.C, false
}

func (t *typer) resolveRate(id graph.NodeID) {
	if t.rateDone[id] {
		return
	}

	node := t.prog.Node(id)

	if _, fixed := fixedNodeRate(node); fixed {
		t.rateDone[id] = true
		return
	}

	if t.visiting[id] {
		return
	}

	t.visiting[id] = true
	defer delete(t.visiting, id)

	rate := graph.C

	for i := range node.Inputs.Pins {
		rate = graph.Max(rate, t.rateOfInput(graph.Endpoint{Node: id, Pin: uint(i)}))
	}

	for i := range node.Outputs.Pins {
		node.Outputs.Pins[i].Rate = rate
	}

	t.rateDone[id] = true
}

// ===========================================================================
// Implicit adapters
// ===========================================================================

// insertAdapters rewrites an edge whose source and destination pins resolved
// to promotable-but-unequal scalars into src -> adapter -> dst, recording the
// conversion explicitly in the IR rather than leaving it implicit (§4.5: "the
// type inferencer inserts the adapter; it is never written by the author").
// Edges whose scalars disagree with no promotion path are left untouched
// and reported here as shape errors.
func (t *typer) insertAdapters() {
	var rebuilt []graph.Edge

	for _, e := range t.prog.Edges {
		srcNode := t.prog.Node(e.Src.Node)
		dstNode := t.prog.Node(e.Dst.Node)

		srcPin, _ := srcNode.Outputs.ByIndex(e.Src.Pin)
		dstPin, _ := dstNode.Inputs.ByIndex(e.Dst.Pin)

		if srcPin.Shape.Scalar == graph.ScalarUnresolved || dstPin.Shape.Scalar == graph.ScalarUnresolved {
			rebuilt = append(rebuilt, e)
			continue
		}

		if srcPin.Shape.Scalar == dstPin.Shape.Scalar {
			rebuilt = append(rebuilt, e)
			continue
		}

		if _, ok := srcPin.Shape.Scalar.Join(dstPin.Shape.Scalar); !ok {
			t.sink.Error(source.CodeShape, dstNode.Span, "cannot convert %s to %s without an explicit conversion", srcPin.Shape.Scalar, dstPin.Shape.Scalar)
			rebuilt = append(rebuilt, e)
			continue
		}

		adapter := graph.NewNode(0, graph.KindAdapter, dstNode.Stage, dstNode.Span)
		adapter.SetAttr("from", srcPin.Shape.Scalar.String())
		adapter.SetAttr("to", dstPin.Shape.Scalar.String())
		adapter.Inputs.Add(graph.Pin{Direction: graph.In, Shape: srcPin.Shape, Rate: srcPin.Rate})
		adapter.Outputs.Add(graph.Pin{Direction: graph.Out, Shape: dstPin.Shape, Rate: srcPin.Rate})
		id := t.prog.AddNode(adapter)

		rebuilt = append(rebuilt, graph.Edge{Src: e.Src, Dst: graph.Endpoint{Node: id, Pin: 0}})
		rebuilt = append(rebuilt, graph.Edge{Src: graph.Endpoint{Node: id, Pin: 0}, Dst: e.Dst})
	}

	t.prog.Edges = rebuilt
}
