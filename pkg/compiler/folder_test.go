package compiler

import (
	"testing"

	"github.com/synthizer/waveling/pkg/ast/parser"
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

func runFrontEnd(t *testing.T, text string) (*graph.Program, *source.Sink) {
	t.Helper()

	file := source.NewFile("<test>", []byte(text))
	sink := source.NewSink()
	astProgram := parser.Parse(file, sink)
	prog := Build(astProgram, sink)
	Infer(prog, sink)
	Validate(prog, sink)
	Fold(prog, sink)

	return prog, sink
}

func literalFloat(t *testing.T, n *graph.Node) float64 {
	t.Helper()

	v, ok := n.Attr("value")
	if !ok {
		t.Fatalf("node %d has no literal value attribute", n.ID)
	}

	f, ok := v.(float64)
	if !ok {
		t.Fatalf("node %d literal value is not a float64", n.ID)
	}

	return f
}

func TestFold_NestedArithmeticFoldsToFixpoint(t *testing.T) {
	// (2 * 3) + (10 - 4) requires two rounds: the products/differences fold
	// first, then the outer sum folds against the now-literal operands.
	prog, sink := runFrontEnd(t, `
program k;
external { sr: 48000, block_size: 128, inputs: [], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  (2 * 3) + (10 - 4) -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	literals := 0

	for _, n := range prog.Nodes {
		if n.Kind != graph.KindLiteral {
			continue
		}

		if _, ok := n.Attr("value"); !ok {
			continue
		}

		if literalFloat(t, n) == 12 {
			literals++
		}
	}

	assert.True(t, literals > 0, "expected the nested arithmetic to fold down to the literal 12")
}

func TestFold_StopsAtNonConstantOperand(t *testing.T) {
	prog, sink := runFrontEnd(t, `
program k;
external { sr: 48000, block_size: 128, inputs: [ { name: a, width: 1 } ], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  a + (2 + 3) -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	sawFoldedFive := false
	sawUnfoldedBinary := false

	for _, n := range prog.Nodes {
		if n.Kind == graph.KindLiteral {
			if _, ok := n.Attr("value"); ok && literalFloat(t, n) == 5 {
				sawFoldedFive = true
			}
		}

		if n.Kind == graph.KindBinary {
			op, _ := n.Attr("op")
			if op == "+" {
				sawUnfoldedBinary = true
			}
		}
	}

	assert.True(t, sawFoldedFive, "expected the constant subexpression (2 + 3) to fold")
	assert.True(t, sawUnfoldedBinary, "expected the top-level a + ... addition to remain a binary node since a is not constant")
}

func TestFold_BuiltinMathFoldsOverLiteralArgument(t *testing.T) {
	prog, sink := runFrontEnd(t, `
program k;
external { sr: 48000, block_size: 128, inputs: [], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  sqrt(9) -> o;
}
`)

	for _, d := range sink.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	found := false

	for _, n := range prog.Nodes {
		if n.Kind == graph.KindLiteral {
			if _, ok := n.Attr("value"); ok && literalFloat(t, n) == 3 {
				found = true
			}
		}
	}

	assert.True(t, found, "expected sqrt(9) to fold to the literal 3")
}
