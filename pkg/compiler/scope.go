// Package compiler implements the Waveling middle end (§4.3-§4.8): name
// resolution, graph building, type/rate inference, validation, constant
// folding and IR emission, orchestrated by Compile in compiler.go.
package compiler

// Scope is one tier of the three-tier lookup chain described in §4.3:
// built-ins at the root, the program scope as its child, and one lexical
// scope per stage as the program scope's child. Lookup walks inner to
// outer; a name bound in an inner scope shadows the same name in an outer
// one (§4.3, §9).
type Scope struct {
	parent   *Scope
	bindings map[string]Binding
}

// NewScope constructs a scope chained to parent (nil for the root built-in
// scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, bindings: make(map[string]Binding)}
}

// Bind introduces name into this scope. It returns false without modifying
// the scope if name is already declared *in this scope* (§3 Invariants: "A
// name cannot be redeclared in the same scope"); shadowing an outer scope's
// binding of the same name is always permitted.
func (s *Scope) Bind(name string, b Binding) bool {
	if _, exists := s.bindings[name]; exists {
		return false
	}

	s.bindings[name] = b

	return true
}

// Lookup walks this scope and its ancestors, innermost first, returning the
// first binding found for name.
func (s *Scope) Lookup(name string) (Binding, bool) {
	if b, ok := s.bindings[name]; ok {
		return b, true
	}

	if s.parent != nil {
		return s.parent.Lookup(name)
	}

	return nil, false
}

// LocalLookup checks only this scope, without walking to ancestors; used to
// enforce the single-declaration-per-scope rule.
func (s *Scope) LocalLookup(name string) (Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}
