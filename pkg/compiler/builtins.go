package compiler

import "github.com/synthizer/waveling/pkg/graph"

// builtinKeywords lists every built-in name recognized by the root scope
// (§4.3). Names here can be shadowed by a program-scope declaration of the
// same name (§9).
var builtinKeywords = []string{
	"sin", "cos", "tan", "sqrt",
	"biquad.lowpass", "biquad.highpass", "biquad.bandpass",
	"if", "select", "broadcast", "truncate", "merge", "split", "slice",
	"xoroshiro", "delread", "delwrite", "cell", "buffer",
}

// newBuiltinScope constructs the root scope containing every built-in name
// (§4.3 tier 1).
func newBuiltinScope() *Scope {
	root := NewScope(nil)

	for _, name := range builtinKeywords {
		root.Bind(name, BuiltinBinding{Name: name})
	}

	return root
}

// structuralCallNames are CallExpr names lowered directly to a dedicated
// graph.Kind by the builder, rather than dispatched through
// graph.BuiltinSignature.
var structuralCallNames = map[string]bool{
	"broadcast": true, "truncate": true, "merge": true, "split": true,
	"slice": true, "delread": true, "delwrite": true,
}

// IsStructuralCall reports whether name is one of the built-in forms with
// bespoke lowering (as opposed to the generic BuiltinSignature-driven
// KindBuiltinCall path).
func IsStructuralCall(name string) bool {
	return structuralCallNames[name]
}

// defaultRateOverride reports the node kinds whose output rate is fixed
// regardless of their inputs' rates (§4.5: "delread/xoroshiro/stage
// outputs are S-rate").
func defaultRateOverride(kind graph.Kind, builtinName string) (graph.Rate, bool) {
	switch kind {
	case graph.KindBufferRead, graph.KindStageOutputRef, graph.KindCell:
		return graph.S, true
	case graph.KindBuiltinCall:
		if builtinName == "xoroshiro" {
			return graph.S, true
		}
	}

	return graph.C, false
}
