package parser

import (
	"testing"

	"github.com/synthizer/waveling/pkg/ast"
	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

func parse(t *testing.T, text string) (*ast.Program, *source.Sink) {
	t.Helper()

	file := source.NewFile("<test>", []byte(text))
	sink := source.NewSink()
	prog := Parse(file, sink)

	return prog, sink
}

func TestParser_PointwiseMix(t *testing.T) {
	prog, sink := parse(t, `
program mix;
external {
  sr: 48000,
  block_size: 128,
  inputs: [ { name: a, width: 1 }, { name: b, width: 1 } ],
  outputs: [ { name: o, width: 1 } ],
  properties: []
}
stage main() {
  a + b -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	assert.Equal(t, "mix", prog.Name)
	assert.Equal(t, uint(48000), prog.External.SampleRate)
	assert.Equal(t, 2, len(prog.External.Inputs))
	assert.Equal(t, 1, len(prog.Stages))
	assert.Equal(t, 1, len(prog.Stages[0].Body))

	stmt, ok := prog.Stages[0].Body[0].(*ast.ExprStmt)
	assert.True(t, ok, "expected ExprStmt")

	routing, ok := stmt.Value.(*ast.RoutingExpr)
	assert.True(t, ok, "expected RoutingExpr")

	_, ok = routing.Src.(*ast.BinaryExpr)
	assert.True(t, ok, "expected BinaryExpr source of routing")
}

func TestParser_ConstantFoldCandidate(t *testing.T) {
	prog, sink := parse(t, `
program k;
external { sr: 48000, block_size: 128, inputs: [], outputs: [], properties: [] }
stage main() {
  let k = (2 + 3) * 4 -> f32;
}
`)

	assert.False(t, sink.HasErrors())
	assert.Equal(t, 1, len(prog.Stages[0].Body))

	let, ok := prog.Stages[0].Body[0].(*ast.LetStmt)
	assert.True(t, ok, "expected LetStmt")
	assert.Equal(t, "k", let.Name)
}

func TestParser_CellWithDelay(t *testing.T) {
	prog, sink := parse(t, `
program fb;
external { sr: 48000, block_size: 128, inputs: [ { name: input, width: 1 } ], outputs: [ { name: output, width: 1 } ], properties: [] }
stage main(output: f32(1)) {
  cell (prev, nxt): f32(1);
  nxt = (input[0] * 0.1f32) + (prev * 0.9f32);
  output = prev;
}
`)

	assert.False(t, sink.HasErrors())

	cell, ok := prog.Stages[0].Body[0].(*ast.CellStmt)
	assert.True(t, ok, "expected CellStmt")
	assert.Equal(t, "prev", cell.Start)
	assert.Equal(t, "nxt", cell.End)
	assert.True(t, cell.Delay == nil)
}

func TestParser_CellWithExplicitDelay(t *testing.T) {
	prog, sink := parse(t, `
program fb;
external { sr: 48000, block_size: 128, inputs: [], outputs: [], properties: [] }
stage main() {
  cell(4) (prev, nxt): f32(1);
}
`)

	assert.False(t, sink.HasErrors())

	cell, ok := prog.Stages[0].Body[0].(*ast.CellStmt)
	assert.True(t, ok, "expected CellStmt")
	assert.True(t, cell.Delay != nil)
}

func TestParser_BufferDelayLine(t *testing.T) {
	prog, sink := parse(t, `
program delay;
external { sr: 48000, block_size: 128, inputs: [ { name: input, width: 1 } ], outputs: [ { name: output, width: 1 } ], properties: [] }
stage main(output: f32(1)) {
  buffer buf(128): f32(1);
  delwrite(buf, input[0]);
  output = delread(buf, 64);
}
`)

	assert.False(t, sink.HasErrors())

	buf, ok := prog.Stages[0].Body[0].(*ast.BufferStmt)
	assert.True(t, ok, "expected BufferStmt")
	assert.Equal(t, "buf", buf.Name)

	write, ok := prog.Stages[0].Body[1].(*ast.ExprStmt)
	assert.True(t, ok, "expected ExprStmt for delwrite")

	call, ok := write.Value.(*ast.CallExpr)
	assert.True(t, ok, "expected CallExpr for delwrite")
	assert.Equal(t, "delwrite", call.Name)
}

func TestParser_StereoBroadcast(t *testing.T) {
	prog, sink := parse(t, `
program stereo;
external { sr: 48000, block_size: 128, inputs: [ { name: m, width: 1 } ], outputs: [ { name: s, width: 2 } ], properties: [] }
stage main(s: f32(2)) {
  s = broadcast(m);
}
`)

	assert.False(t, sink.HasErrors())
	assert.Equal(t, 1, len(prog.Stages[0].Body))
}

func TestParser_OutputStacking(t *testing.T) {
	prog, sink := parse(t, `
program stack;
external { sr: 48000, block_size: 128, inputs: [ { name: a, width: 1 }, { name: b, width: 1 } ], outputs: [ { name: x, width: 2 } ], properties: [] }
stage main(x: f32(2)) {
  x = a, b;
}
`)

	assert.False(t, sink.HasErrors())

	assign, ok := prog.Stages[0].Body[0].(*ast.AssignStmt)
	assert.True(t, ok, "expected AssignStmt")

	_, ok = assign.Value.(*ast.OutputStackExpr)
	assert.True(t, ok, "expected OutputStackExpr")
}

func TestParser_BiquadNamedArgs(t *testing.T) {
	_, sink := parse(t, `
program filt;
external { sr: 48000, block_size: 128, inputs: [ { name: input, width: 1 }, { name: cutoff, width: 1 } ], outputs: [ { name: output, width: 1 } ], properties: [] }
stage main(output: f32(1)) {
  output = biquad.lowpass(input: input[0], frequency: cutoff[0], q: 0.707f32);
}
`)

	assert.False(t, sink.HasErrors())
}
