package compiler

import (
	"testing"

	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

// addPassthrough appends a one-in-one-out unary node to prog in stage 0,
// wired to nothing, and returns its id. Used to build small hand-assembled
// graphs for validator tests that are awkward to reach through surface
// syntax (e.g. an illegal cycle).
func addPassthrough(prog *graph.Program, stage graph.StageID) graph.NodeID {
	n := graph.NewNode(0, graph.KindUnary, stage, source.Span{})
	n.SetAttr("op", "+")
	n.Inputs.Add(graph.Pin{Name: "operand", Direction: graph.In, Shape: graph.Shape{Scalar: graph.F32, Width: 1}, Rate: graph.S})
	n.Outputs.Add(graph.Pin{Name: "result", Direction: graph.Out, Shape: graph.Shape{Scalar: graph.F32, Width: 1}, Rate: graph.S})

	return prog.AddNode(n)
}

func TestValidate_IllegalCycleIsStructuralError(t *testing.T) {
	prog := graph.NewProgram("cyclic", 48000, 128)
	stage := prog.AddStage("main")

	a := addPassthrough(prog, stage)
	b := addPassthrough(prog, stage)

	prog.AddEdge(graph.Edge{Src: graph.Endpoint{Node: a, Pin: 0}, Dst: graph.Endpoint{Node: b, Pin: 0}})
	prog.AddEdge(graph.Edge{Src: graph.Endpoint{Node: b, Pin: 0}, Dst: graph.Endpoint{Node: a, Pin: 0}})

	sink := source.NewSink()
	Validate(prog, sink)

	found := false
	for _, d := range sink.Diagnostics() {
		if d.Code == source.CodeStructural {
			found = true
		}
	}

	assert.True(t, found, "expected a cycle with no mediating cell to be rejected")
}

func TestValidate_CellBackedgeBreaksCycleLegally(t *testing.T) {
	prog := graph.NewProgram("recur", 48000, 128)
	stage := prog.AddStage("main")

	a := addPassthrough(prog, stage)

	cell := graph.NewNode(0, graph.KindCell, stage, source.Span{})
	cell.Inputs.Add(graph.Pin{Name: "end", Direction: graph.In, Shape: graph.Shape{Scalar: graph.F32, Width: 1}, Rate: graph.S})
	cell.Outputs.Add(graph.Pin{Name: "start", Direction: graph.Out, Shape: graph.Shape{Scalar: graph.F32, Width: 1}, Rate: graph.S})
	cellID := prog.AddNode(cell)

	// cell.start -> a.operand -> cell.end: a legal cycle mediated by the cell.
	prog.AddEdge(graph.Edge{Src: graph.Endpoint{Node: cellID, Pin: 0}, Dst: graph.Endpoint{Node: a, Pin: 0}})
	prog.AddEdge(graph.Edge{Src: graph.Endpoint{Node: a, Pin: 0}, Dst: graph.Endpoint{Node: cellID, Pin: 0}})

	sink := source.NewSink()
	Validate(prog, sink)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	assert.True(t, prog.Edges[1].Backedge, "expected the edge into the cell's end pin to be marked as a backedge")
	assert.False(t, prog.Edges[0].Backedge, "expected the edge out of the cell's start pin to not be marked as a backedge")
}

func TestValidate_SliceOutOfBoundsIsStructuralError(t *testing.T) {
	prog := graph.NewProgram("badslice", 48000, 128)
	stage := prog.AddStage("main")

	src := addPassthrough(prog, stage)

	n := graph.NewNode(0, graph.KindSlice, stage, source.Span{})
	n.SetAttr("start", uint(0))
	n.SetAttr("end", uint(4))
	n.Inputs.Add(graph.Pin{Name: "input", Direction: graph.In, Shape: graph.Shape{Scalar: graph.F32, Width: 1}, Rate: graph.S})
	n.Outputs.Add(graph.Pin{Name: "output", Direction: graph.Out, Shape: graph.Shape{Scalar: graph.F32, Width: 4}, Rate: graph.S})
	sliceID := prog.AddNode(n)

	prog.AddEdge(graph.Edge{Src: graph.Endpoint{Node: src, Pin: 0}, Dst: graph.Endpoint{Node: sliceID, Pin: 0}})

	sink := source.NewSink()
	Validate(prog, sink)

	found := false
	for _, d := range sink.Diagnostics() {
		if d.Code == source.CodeStructural {
			found = true
		}
	}

	assert.True(t, found, "expected slice [0,4) of a width-1 value to be rejected")
}
