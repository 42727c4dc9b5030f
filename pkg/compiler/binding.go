package compiler

import "github.com/synthizer/waveling/pkg/graph"

// Binding is what a name in scope refers to (§4.3). A name binds to exactly
// one of these categories; §3's "a variable... bound to a node (never to a
// bundle or pin)" is the common case (NodeBinding), with a small documented
// set of exceptions where a name must address a pin or external surface
// directly (recursion-cell start/end, declared stage outputs, external
// ports and properties, buffers).
type Binding interface {
	bindingKind()
}

// NodeBinding is a `let`-declared name bound to the node its expression
// evaluated to.
type NodeBinding struct {
	Node graph.NodeID
}

func (NodeBinding) bindingKind() {}

// PinBinding names a single pin directly: the `start`/`end` names
// introduced by a `cell` declaration (§4.4).
type PinBinding struct {
	Endpoint  graph.Endpoint
	Direction graph.Direction
}

func (PinBinding) bindingKind() {}

// BufferBinding names a declared circular buffer (§4.4).
type BufferBinding struct {
	Buffer graph.BufferID
}

func (BufferBinding) bindingKind() {}

// StageBinding names a declared stage (§3: "Stage names are nodes in the
// enclosing program graph").
type StageBinding struct {
	Stage graph.StageID
}

func (StageBinding) bindingKind() {}

// StageOutputBinding names one of the current stage's own declared outputs.
// Used in destination position it records the producer into that output
// slot; used in source position it reads back via a KindStageOutputRef
// node.
type StageOutputBinding struct {
	Stage graph.StageID
	Index uint
}

func (StageOutputBinding) bindingKind() {}

// ExternalInputBinding names a declared external input array (§6). Always
// a source.
type ExternalInputBinding struct {
	Index uint
}

func (ExternalInputBinding) bindingKind() {}

// ExternalOutputBinding names a declared external output array (§6).
// Always a destination.
type ExternalOutputBinding struct {
	Index uint
}

func (ExternalOutputBinding) bindingKind() {}

// PropertyBinding names a declared external property (§6). Always a
// source.
type PropertyBinding struct {
	Index uint
}

func (PropertyBinding) bindingKind() {}

// BuiltinBinding names a built-in keyword or primitive (§4.3): math/filter
// ops, `if`, `select`, `broadcast`, `truncate`, `merge`, `split`, `slice`,
// `xoroshiro`, `delread`, `delwrite`, `cell`, `buffer`. It carries no
// payload; recognition of which specific form applies happens by name in
// the graph builder.
type BuiltinBinding struct {
	Name string
}

func (BuiltinBinding) bindingKind() {}
