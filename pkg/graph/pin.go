package graph

// Direction distinguishes an input pin from an output pin (§3 Pin).
type Direction uint8

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}

	return "out"
}

// Pin is a single numbered, optionally named endpoint on a node (§3). Pins
// are addressable both by index and, where the owning node kind declares
// one, by name.
type Pin struct {
	Index     uint
	Name      string
	Direction Direction
	Shape     Shape
	Rate      Rate
}

// Bundle is an ordered collection of pins plus a name-to-index map (§3).
// Bundles are purely a front-end/IR convenience: they are never stored in a
// variable and have no existence as a runtime value (§9).
type Bundle struct {
	Pins    []Pin
	byName  map[string]uint
}

// NewBundle constructs an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{byName: make(map[string]uint)}
}

// Add appends a pin to the bundle, indexing it by name if one is given.
func (b *Bundle) Add(pin Pin) {
	if b.byName == nil {
		b.byName = make(map[string]uint)
	}

	pin.Index = uint(len(b.Pins))
	b.Pins = append(b.Pins, pin)

	if pin.Name != "" {
		b.byName[pin.Name] = pin.Index
	}
}

// ByIndex returns the pin at the given index, or false if out of range.
func (b *Bundle) ByIndex(i uint) (Pin, bool) {
	if int(i) >= len(b.Pins) {
		return Pin{}, false
	}

	return b.Pins[i], true
}

// ByName resolves a named pin to its pin, or false if no such name exists
// on this bundle (§4.6 "no unknown named pin").
func (b *Bundle) ByName(name string) (Pin, bool) {
	idx, ok := b.byName[name]
	if !ok {
		return Pin{}, false
	}

	return b.Pins[idx], true
}

// Width returns the total channel count represented by all pins in this
// bundle.
func (b *Bundle) Width() uint {
	var total uint
	for _, p := range b.Pins {
		total += p.Shape.Width
	}

	return total
}

// Len returns the number of pins in the bundle.
func (b *Bundle) Len() int {
	return len(b.Pins)
}
