package compiler

import (
	"testing"

	"github.com/synthizer/waveling/pkg/ast/parser"
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

func build(t *testing.T, text string) (*graph.Program, *source.Sink) {
	t.Helper()

	file := source.NewFile("<test>", []byte(text))
	sink := source.NewSink()
	astProgram := parser.Parse(file, sink)
	prog := Build(astProgram, sink)

	return prog, sink
}

func TestBuild_FanInIntoOutputInsertsSum(t *testing.T) {
	prog, sink := build(t, `
program fanin;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 1 }, { name: b, width: 1 } ],
  outputs: [ { name: o, width: 1 } ],
  properties: []
}
stage main() {
  a -> o;
  b -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	sumCount := 0
	for _, n := range prog.Nodes {
		if n.Kind == graph.KindSum {
			sumCount++
		}
	}

	assert.Equal(t, 1, sumCount, "expected a- and b- routed into o to normalize to one KindSum node")
}

func TestBuild_StageScopeShadowsProgramScope(t *testing.T) {
	// `a` here is both a declared external input and a stage-local let
	// binding; within the stage the let binding must win (§4.3 shadowing).
	prog, sink := build(t, `
program shadow;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 1 } ],
  outputs: [ { name: o, width: 1 } ],
  properties: []
}
stage main() {
  let a = 2;
  a -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	// The only node feeding the external output `o` should be the literal
	// `2`, never a KindExternalInput node.
	for _, n := range prog.Nodes {
		if n.Kind == graph.KindExternalInput {
			t.Errorf("expected the shadowing let-binding to suppress use of the external input node")
		}
	}
}

func TestBuild_RedeclarationInSameScopeIsNameResolutionError(t *testing.T) {
	_, sink := build(t, `
program dup;
external { sr: 48000, block_size: 128, inputs: [], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  let x = 1;
  let x = 2;
  x -> o;
}
`)

	found := false
	for _, d := range sink.Diagnostics() {
		if d.Code == source.CodeNameResolution {
			found = true
		}
	}

	assert.True(t, found, "expected redeclaring x in the same scope to raise a name-resolution error")
}

func TestBuild_BufferDeclaresWriteAndReadAsSeparateNodeKinds(t *testing.T) {
	prog, sink := build(t, `
program delay;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 1 } ],
  outputs: [ { name: o, width: 1 } ],
  properties: []
}
stage main() {
  buffer history(512): f32(1);
  delwrite(history, a);
  delread(history, 0) -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	assert.Equal(t, 1, len(prog.Buffers))

	var sawWrite, sawRead bool

	for _, n := range prog.Nodes {
		switch n.Kind {
		case graph.KindBufferWrite:
			sawWrite = true
		case graph.KindBufferRead:
			sawRead = true
		}
	}

	assert.True(t, sawWrite, "expected a KindBufferWrite node")
	assert.True(t, sawRead, "expected a KindBufferRead node")
}
