package compiler

import (
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
)

// Validate checks a built, typed graph.Program against the structural
// invariants of §4.6: pin-index range, required-pin completeness, cycle
// legality outside a recursion cell, stage locality of every edge, width
// compatibility of the explicit width operators and of every other edge,
// and constant-ness of buffer capacities. Cell delays are checked by the
// builder, not here.
func Validate(prog *graph.Program, sink *source.Sink) {
	markBackedges(prog)
	validatePinRanges(prog, sink)
	validateBundleCompleteness(prog, sink)
	validateStageLocality(prog, sink)
	validateWidths(prog, sink)
	validateEdgeWidths(prog, sink)
	validateBufferCapacities(prog, sink)
	validateAcyclic(prog, sink)
}

// markBackedges flags every edge landing on a recursion cell's `end` input
// as a back-edge (§9 "Graph with back-edges": cells and buffers are the only
// kinds that introduce logical back-edges, marked and excluded from the
// topological sort a backend uses for evaluation order). Buffers never
// appear as a direct graph edge (delwrite/delread share only a buffer id),
// so cells are the only node kind this applies to.
func markBackedges(prog *graph.Program) {
	for i, e := range prog.Edges {
		if prog.Node(e.Dst.Node).Kind == graph.KindCell {
			prog.Edges[i].Backedge = true
		}
	}
}

func validatePinRanges(prog *graph.Program, sink *source.Sink) {
	for _, e := range prog.Edges {
		src := prog.Node(e.Src.Node)
		dst := prog.Node(e.Dst.Node)

		if _, ok := src.Outputs.ByIndex(e.Src.Pin); !ok {
			sink.Error(source.CodeStructural, src.Span, "edge references unknown output pin %d on node %s", e.Src.Pin, src.Kind)
		}

		if _, ok := dst.Inputs.ByIndex(e.Dst.Pin); !ok {
			sink.Error(source.CodeStructural, dst.Span, "edge references unknown input pin %d on node %s", e.Dst.Pin, dst.Kind)
		}
	}
}

// validateBundleCompleteness checks that every required pin is connected
// (§4.6 "bundle completeness", §3 "every required pin of every node kind is
// connected"): a built-in call's required arguments, a stage's declared
// output, a recursion cell's `end` pin, and a buffer's write `value` pin.
// Every other node kind is always built with exactly the pins its statement
// connects, so completeness for them is guaranteed by construction.
func validateBundleCompleteness(prog *graph.Program, sink *source.Sink) {
	for _, n := range prog.Nodes {
		switch n.Kind {
		case graph.KindBuiltinCall:
			validateBuiltinCallCompleteness(prog, sink, n)
		case graph.KindStageOutputSink:
			if len(prog.EdgesInto(graph.Endpoint{Node: n.ID, Pin: 0})) == 0 {
				pin, _ := n.Inputs.ByIndex(0)
				sink.Error(source.CodeStructural, n.Span, "stage output %q is declared but never assigned", pin.Name)
			}
		case graph.KindCell:
			if len(prog.EdgesInto(graph.Endpoint{Node: n.ID, Pin: 0})) == 0 {
				sink.Error(source.CodeStructural, n.Span, "recursion cell's end pin is never assigned")
			}
		case graph.KindBufferWrite:
			if len(prog.EdgesInto(graph.Endpoint{Node: n.ID, Pin: 0})) == 0 {
				sink.Error(source.CodeStructural, n.Span, "delwrite is missing its value argument")
			}
		}
	}
}

func validateBuiltinCallCompleteness(prog *graph.Program, sink *source.Sink, n *graph.Node) {
	name, _ := n.Attr("name")
	nameStr, _ := name.(string)

	sig, ok := graph.BuiltinSignature(nameStr)
	if !ok {
		return
	}

	for _, pinSig := range sig.Inputs {
		if !pinSig.Required {
			continue
		}

		if len(prog.EdgesInto(graph.Endpoint{Node: n.ID, Pin: pinSig.Index})) == 0 {
			sink.Error(source.CodeStructural, n.Span, "%s is missing required argument %q", nameStr, pinSig.Name)
		}
	}
}

// validateStageLocality checks that every edge's endpoints belong to the
// same stage (§3: "cross-stage edges may only originate from a stage's
// declared outputs"); by construction every such crossing is already
// mediated through a KindStageOutputRef node local to the consuming stage,
// so this is defense-in-depth against a builder regression.
func validateStageLocality(prog *graph.Program, sink *source.Sink) {
	for _, e := range prog.Edges {
		src := prog.Node(e.Src.Node)
		dst := prog.Node(e.Dst.Node)

		if src.Stage != dst.Stage {
			sink.Error(source.CodeStructural, dst.Span, "edge crosses stage boundary outside a stage-output reference")
		}
	}
}

func validateWidths(prog *graph.Program, sink *source.Sink) {
	for _, n := range prog.Nodes {
		switch n.Kind {
		case graph.KindBroadcast:
			in := n.Inputs.Pins[0].Shape.Width
			out := n.Outputs.Pins[0].Shape.Width

			if out < in {
				sink.Error(source.CodeStructural, n.Span, "broadcast target width %d is narrower than source width %d", out, in)
			}
		case graph.KindTruncate:
			in := n.Inputs.Pins[0].Shape.Width
			out := n.Outputs.Pins[0].Shape.Width

			if out > in {
				sink.Error(source.CodeStructural, n.Span, "truncate target width %d is wider than source width %d", out, in)
			}
		case graph.KindSplit:
			in := n.Inputs.Pins[0].Shape.Width

			var total uint
			for _, p := range n.Outputs.Pins {
				total += p.Shape.Width
			}

			if total != in {
				sink.Error(source.CodeStructural, n.Span, "split widths sum to %d but source width is %d", total, in)
			}
		case graph.KindSlice:
			in := n.Inputs.Pins[0].Shape.Width

			start, _ := n.Attr("start")
			end, _ := n.Attr("end")

			startU, _ := start.(uint)
			endU, _ := end.(uint)

			if endU > in {
				sink.Error(source.CodeStructural, n.Span, "slice range [%d,%d) exceeds source width %d", startU, endU, in)
			}
		}
	}
}

// validateEdgeWidths rejects a plain edge whose source and destination
// widths disagree when the destination's width is fixed independent of the
// edge (external output, stage output, cell end, buffer write) rather than
// derived from it. The explicit width operators intentionally change width
// and are excluded (§4.5 "width mismatch without width-op").
func validateEdgeWidths(prog *graph.Program, sink *source.Sink) {
	for _, e := range prog.Edges {
		dst := prog.Node(e.Dst.Node)

		switch dst.Kind {
		case graph.KindBroadcast, graph.KindTruncate, graph.KindSplit, graph.KindSlice, graph.KindMerge:
			continue
		}

		srcNode := prog.Node(e.Src.Node)

		srcPin, ok1 := srcNode.Outputs.ByIndex(e.Src.Pin)
		dstPin, ok2 := dst.Inputs.ByIndex(e.Dst.Pin)

		if !ok1 || !ok2 {
			continue
		}

		if srcPin.Shape.Width != dstPin.Shape.Width {
			sink.Error(source.CodeShape, dst.Span, "edge width mismatch: source is width %d, destination %s expects width %d", srcPin.Shape.Width, dst.Kind, dstPin.Shape.Width)
		}
	}
}

// validateBufferCapacities rejects a non-constant-rate capacity expression
// (§8 scenario 6: a sample-rate value used as a buffer capacity is a rate
// error, not a structural one, since the expression is otherwise
// well-formed).
func validateBufferCapacities(prog *graph.Program, sink *source.Sink) {
	for _, buf := range prog.Buffers {
		if buf.CapacitySource == nil {
			continue
		}

		srcNode := prog.Node(buf.CapacitySource.Node)
		pin, _ := srcNode.Outputs.ByIndex(buf.CapacitySource.Pin)

		if pin.Rate != graph.C {
			sink.Error(source.CodeRate, srcNode.Span, "buffer %q capacity must be a compile-time constant, found a %s-rate value", buf.Name, pin.Rate)
		}
	}
}

// validateAcyclic detects illegal cycles (§3 Invariants: "Cycles are
// permitted only through a recursion cell or a buffer"). A cell's `end`
// input pin is the one legal back-edge; it is excluded from the dependency
// graph before searching for cycles. Buffers never appear as a graph edge
// at all (delread/delwrite share a buffer id, not a direct connection), so
// they cannot introduce a cycle here.
func validateAcyclic(prog *graph.Program, sink *source.Sink) {
	adjacency := make(map[graph.NodeID][]graph.NodeID)

	for _, e := range prog.Edges {
		dstNode := prog.Node(e.Dst.Node)
		if dstNode.Kind == graph.KindCell {
			continue
		}

		adjacency[e.Src.Node] = append(adjacency[e.Src.Node], e.Dst.Node)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[graph.NodeID]int)

	var visit func(id graph.NodeID) bool

	visit = func(id graph.NodeID) bool {
		color[id] = gray

		for _, next := range adjacency[id] {
			if color[next] == gray {
				return true
			}

			if color[next] == white && visit(next) {
				return true
			}
		}

		color[id] = black

		return false
	}

	for _, n := range prog.Nodes {
		if color[n.ID] == white && visit(n.ID) {
			sink.Error(source.CodeStructural, n.Span, "graph contains a cycle not mediated by a recursion cell or buffer")
		}
	}
}
