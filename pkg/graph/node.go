package graph

import "github.com/synthizer/waveling/pkg/source"

// NodeID uniquely identifies a node within a Program's node arena.
type NodeID uint32

// StageID uniquely identifies a stage within a Program.
type StageID uint32

// Node is an opaque graph vertex with a kind, input/output pin bundles, and
// kind-specific attributes (§3). Every node belongs to exactly one stage.
type Node struct {
	ID      NodeID
	Kind    Kind
	Stage   StageID
	Inputs  *Bundle
	Outputs *Bundle
	// Attrs carries kind-specific attributes: operator symbol for
	// KindUnary/KindBinary, built-in name for KindBuiltinCall, slice bounds
	// for KindSlice, delay-cell length for KindCell, buffer id for
	// KindBufferWrite/KindBufferRead, stage id and output index for
	// KindStageOutputRef/KindStageOutputSink, external/property index for
	// KindExternalInput/KindExternalOutput/KindProperty, and the decoded
	// value for KindLiteral. KindSplit keeps its widths in its output pins'
	// shapes, not here.
	Attrs map[string]any
	// Span is the source location this node was lowered from, for
	// diagnostics raised by later passes.
	Span source.Span
}

// NewNode constructs a node with empty input/output bundles.
func NewNode(id NodeID, kind Kind, stage StageID, span source.Span) *Node {
	return &Node{
		ID:      id,
		Kind:    kind,
		Stage:   stage,
		Inputs:  NewBundle(),
		Outputs: NewBundle(),
		Attrs:   make(map[string]any),
		Span:    span,
	}
}

// Attr fetches a kind-specific attribute.
func (n *Node) Attr(key string) (any, bool) {
	v, ok := n.Attrs[key]
	return v, ok
}

// SetAttr sets a kind-specific attribute.
func (n *Node) SetAttr(key string, value any) {
	n.Attrs[key] = value
}
