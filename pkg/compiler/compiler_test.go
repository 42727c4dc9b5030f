package compiler

import (
	"encoding/json"
	"testing"

	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

func compile(t *testing.T, text string) *Result {
	t.Helper()

	file := source.NewFile("<test>", []byte(text))
	return Compile(file, Options{})
}

func TestCompile_PointwiseMixEmitsIR(t *testing.T) {
	result := compile(t, `
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

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	assert.True(t, result.IR != nil, "expected IR to be emitted")

	var doc map[string]any
	if err := json.Unmarshal(result.IR, &doc); err != nil {
		t.Fatalf("IR did not parse as JSON: %s", err)
	}

	assert.Equal(t, float64(1), doc["ir_version"])
}

func TestCompile_SampleRateOverride(t *testing.T) {
	file := source.NewFile("<test>", []byte(`
program k;
external { sr: 48000, block_size: 128, inputs: [], outputs: [], properties: [] }
stage main() {}
`))

	result := Compile(file, Options{SampleRateOverride: 96000, BlockSizeOverride: 256})

	assert.Equal(t, uint(96000), result.Program.SampleRate)
	assert.Equal(t, uint(256), result.Program.BlockSize)
}

func TestCompile_UndeclaredNameIsNameResolutionError(t *testing.T) {
	result := compile(t, `
program bad;
external { sr: 48000, block_size: 128, inputs: [], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  missing -> o;
}
`)

	assert.True(t, result.Diagnostics != nil, "expected at least one diagnostic")

	found := false
	for _, d := range result.Diagnostics {
		if d.Code == source.CodeNameResolution {
			found = true
		}
	}

	assert.True(t, found, "expected a name-resolution diagnostic")
	assert.True(t, result.IR == nil, "IR must not be emitted for a failing program")
}

func TestCompile_WidthMismatchIsShapeError(t *testing.T) {
	result := compile(t, `
program bad;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 2 } ],
  outputs: [ { name: o, width: 1 } ],
  properties: []
}
stage main() {
  a -> o;
}
`)

	found := false
	for _, d := range result.Diagnostics {
		if d.Code == source.CodeShape || d.Code == source.CodeStructural {
			found = true
		}
	}

	assert.True(t, found, "expected a shape or structural diagnostic for the width mismatch")
	assert.True(t, result.IR == nil, "IR must not be emitted for a failing program")
}

func TestCompile_RecursionCellMarksBackedge(t *testing.T) {
	result := compile(t, `
program accum;
external {
  sr: 48000, block_size: 128,
  inputs: [ { name: a, width: 1 } ],
  outputs: [ { name: o, width: 1 } ],
  properties: []
}
stage main() {
  cell (prev, next): f32(1);
  prev + a -> next;
  prev -> o;
}
`)

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	backedges := 0
	for _, e := range result.Program.Edges {
		if e.Backedge {
			backedges++
		}
	}

	assert.True(t, backedges > 0, "expected at least one edge marked as a backedge into the cell")
}

func TestCompile_ConstantFoldsArithmeticToLiteral(t *testing.T) {
	result := compile(t, `
program k;
external { sr: 48000, block_size: 128, inputs: [], outputs: [ { name: o, width: 1 } ], properties: [] }
stage main() {
  (2 + 3) -> o;
}
`)

	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", d.Error())
	}

	foldedToLiteral := false
	for _, n := range result.Program.Nodes {
		if n.Kind.String() == "literal" {
			if v, ok := n.Attr("value"); ok {
				if f, ok := v.(float64); ok && f == 5 {
					foldedToLiteral = true
				}
			}
		}
	}

	assert.True(t, foldedToLiteral, "expected 2 + 3 to fold to a literal node with value 5")
}
