package graph

// Kind is the closed, versioned enum of node kinds that make up the IR
// contract (§6: "Kind enum is closed and versioned"). Version 1.
type Kind uint8

// IRVersion identifies the revision of this closed Kind enum, emitted
// alongside the IR so that backends can detect a mismatch (§6).
const IRVersion = 1

const (
	// KindLiteral is a folded or source constant (§4.7).
	KindLiteral Kind = iota
	// KindExternalInput reads one of the program's declared input arrays.
	KindExternalInput
	// KindExternalOutput writes one of the program's declared output arrays.
	KindExternalOutput
	// KindProperty reads a declared property (§6 external block).
	KindProperty
	// KindUnary is a unary operator node (! ~ + -), §4.4.
	KindUnary
	// KindBinary is a binary arithmetic/comparison/bitwise operator node,
	// §4.4. Logical && || lower to bitwise at this level (no short-circuit).
	KindBinary
	// KindBroadcast widens a value by zero-extension (§4.4).
	KindBroadcast
	// KindTruncate drops trailing channels (§4.4).
	KindTruncate
	// KindMerge concatenates two or more values (§4.4).
	KindMerge
	// KindSplit divides a value into multiple outputs of given widths (§4.4).
	KindSplit
	// KindSlice selects a contiguous channel range (§4.4).
	KindSlice
	// KindSum is an implicit N-ary fan-in adder on a non-bool pin (§3, §4.4).
	KindSum
	// KindLogicalOr is an implicit N-ary fan-in OR on a bool pin (§3, §4.4).
	KindLogicalOr
	// KindCell is a one-or-more-sample recursion cell (§4.4).
	KindCell
	// KindBufferWrite is a delwrite onto a circular buffer (§4.4).
	KindBufferWrite
	// KindBufferRead is a delread from a circular buffer (§4.4).
	KindBufferRead
	// KindStageOutputRef reads a named output of a declared stage (§3).
	KindStageOutputRef
	// KindStageOutputSink is the fan-in point backing one of a stage's
	// declared outputs (§3): every statement that routes into that
	// declared output name adds an edge into this node's 0th input pin.
	KindStageOutputSink
	// KindAdapter is an implicit promotion/conversion node inserted on an
	// edge by the type inferencer (§4.5).
	KindAdapter
	// KindBuiltinCall invokes a built-in primitive (trigonometric ops,
	// filter designers, xoroshiro, if, select) identified by attribute
	// "name" (§4.3).
	KindBuiltinCall
)

var kindNames = map[Kind]string{
	KindLiteral: "literal", KindExternalInput: "external_input",
	KindExternalOutput: "external_output", KindProperty: "property",
	KindUnary: "unary", KindBinary: "binary", KindBroadcast: "broadcast",
	KindTruncate: "truncate", KindMerge: "merge", KindSplit: "split",
	KindSlice: "slice", KindSum: "sum", KindLogicalOr: "logical_or",
	KindCell: "cell", KindBufferWrite: "buffer_write", KindBufferRead: "buffer_read",
	KindStageOutputRef: "stage_output_ref", KindStageOutputSink: "stage_output_sink",
	KindAdapter:     "adapter",
	KindBuiltinCall: "builtin_call",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "<unknown kind>"
}

// PinSignature describes one required or optional pin in a node kind's
// bundle shape: its positional index, optional name, and whether it must be
// connected for the bundle to be complete (§4.6 "required pin").
type PinSignature struct {
	Index    uint
	Name     string
	Required bool
}

// BundleSignature is the kind-specific metadata declaring which named pins
// exist on a node kind and which indices they alias (§3 Bundle).
type BundleSignature struct {
	Inputs  []PinSignature
	Outputs []PinSignature
}

// builtinSignatures is the registry of built-in primitives and their fixed
// bundle shapes (§4.3, §4.6). Width/scalar constraints beyond "numeric" or
// "bool" are enforced by pkg/compiler/typing.go; this table only fixes
// pin identity and requiredness.
var builtinSignatures = map[string]BundleSignature{
	"sin":  unaryMathSignature(),
	"cos":  unaryMathSignature(),
	"tan":  unaryMathSignature(),
	"sqrt": unaryMathSignature(),
	"biquad.lowpass": {
		Inputs: []PinSignature{
			{0, "input", true}, {1, "frequency", true}, {2, "q", true},
		},
		Outputs: []PinSignature{{0, "output", true}},
	},
	"biquad.highpass": {
		Inputs: []PinSignature{
			{0, "input", true}, {1, "frequency", true}, {2, "q", true},
		},
		Outputs: []PinSignature{{0, "output", true}},
	},
	"biquad.bandpass": {
		Inputs: []PinSignature{
			{0, "input", true}, {1, "frequency", true}, {2, "q", true},
		},
		Outputs: []PinSignature{{0, "output", true}},
	},
	"xoroshiro": {
		Inputs:  []PinSignature{{0, "seed", true}},
		Outputs: []PinSignature{{0, "output", true}},
	},
	"if": {
		Inputs: []PinSignature{
			{0, "cond", true}, {1, "then", true}, {2, "else", true},
		},
		Outputs: []PinSignature{{0, "output", true}},
	},
	"select": {
		Inputs: []PinSignature{
			{0, "index", true}, {1, "options", true},
		},
		Outputs: []PinSignature{{0, "output", true}},
	},
}

func unaryMathSignature() BundleSignature {
	return BundleSignature{
		Inputs:  []PinSignature{{0, "input", true}},
		Outputs: []PinSignature{{0, "output", true}},
	}
}

// BuiltinSignature looks up the fixed bundle shape of a built-in by name.
func BuiltinSignature(name string) (BundleSignature, bool) {
	sig, ok := builtinSignatures[name]
	return sig, ok
}

// IsBuiltinName reports whether name identifies a built-in primitive
// callable as `name(args...)` (as opposed to a structural keyword such as
// `cell`, `buffer`, `delread`, `delwrite`, `merge`, `split`, `slice`,
// `broadcast`, `truncate`, which the builder lowers directly to their own
// node kinds).
func IsBuiltinName(name string) bool {
	_, ok := builtinSignatures[name]
	return ok
}
