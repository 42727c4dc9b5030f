package graph

// Endpoint addresses a single pin on a single node.
type Endpoint struct {
	Node NodeID
	Pin  uint
}

// Edge is a connection from a source output pin to a destination input pin
// (§3). Multiple edges into the same pin are legal (fan-in, summed for
// non-bool pins and OR-ed for bool pins via an inserted KindSum/
// KindLogicalOr node, §4.4) and multiple edges out of the same pin are
// legal (fan-out).
type Edge struct {
	Src Endpoint
	Dst Endpoint
	// Backedge marks an edge into a recursion cell's `end` pin, excluded
	// from the topological evaluation order (§3 Invariants, §9 "Graph with
	// back-edges"). A buffer's delwrite and delread share a buffer id rather
	// than an edge, so no edge is marked on a buffer's account.
	Backedge bool
}
