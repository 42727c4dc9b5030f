package compiler

import (
	"testing"

	"github.com/synthizer/waveling/pkg/ast/parser"
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

func buildAndInfer(t *testing.T, text string) (*graph.Program, *source.Sink) {
	t.Helper()

	file := source.NewFile("<test>", []byte(text))
	sink := source.NewSink()
	astProgram := parser.Parse(file, sink)
	prog := Build(astProgram, sink)
	Infer(prog, sink)

	return prog, sink
}

func TestInfer_LiteralIntoF32OutputInsertsAdapter(t *testing.T) {
	// A bare numeric literal resolves to f64 (§4.5 default literal scalar);
	// routed into an f32 external output this must promote through an
	// explicit adapter node rather than silently reinterpreting bits.
	prog, sink := buildAndInfer(t, `
program promote;
external { sr: 48000, block_size: 128, inputs: [], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  1.5 -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	adapterCount := 0
	for _, n := range prog.Nodes {
		if n.Kind == graph.KindAdapter {
			adapterCount++

			from, _ := n.Attr("from")
			to, _ := n.Attr("to")
			assert.Equal(t, "f64", from)
			assert.Equal(t, "f32", to)
		}
	}

	assert.Equal(t, 1, adapterCount, "expected exactly one adapter inserted for the f64->f32 edge")
}

func TestInfer_ComparisonProducesBoolShape(t *testing.T) {
	prog, sink := buildAndInfer(t, `
program cmp;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 1 }, { name: b, width: 1 } ],
  outputs: [], properties: []
}
stage main() {
  let gt = a > b;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	found := false
	for _, n := range prog.Nodes {
		if n.Kind == graph.KindBinary {
			op, _ := n.Attr("op")
			if op == ">" {
				found = true
				assert.Equal(t, graph.Bool, n.Outputs.Pins[0].Shape.Scalar)
			}
		}
	}

	assert.True(t, found, "expected to find the comparison's binary node")
}

func TestInfer_ExternalInputDrivesSampleRate(t *testing.T) {
	// External inputs are always sample-rate (§6); a binary node consuming
	// one must be promoted to S even though its other operand is a constant.
	prog, sink := buildAndInfer(t, `
program rate;
external { sr: 48000, block_size: 128, inputs: [ { name: a, width: 1 } ], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  a + 1.0 -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	for _, n := range prog.Nodes {
		if n.Kind == graph.KindBinary {
			assert.Equal(t, graph.S, n.Outputs.Pins[0].Rate)
		}
	}
}

func TestInfer_MismatchedWidthIsShapeError(t *testing.T) {
	_, sink := buildAndInfer(t, `
program bad;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 2 }, { name: b, width: 1 } ],
  outputs: [ { name: o, width: 2 } ],
  properties: []
}
stage main() {
  a + b -> o;
}
`)

	found := false
	for _, d := range sink.Diagnostics() {
		if d.Code == source.CodeShape {
			found = true
		}
	}

	assert.True(t, found, "expected disagreeing operand widths to raise a shape error")
}
