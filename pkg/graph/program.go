package graph

// PropertyRate is the declared rate of a property: block or sample (§6).
type PropertyRate uint8

const (
	PropertyBlock PropertyRate = iota
	PropertySample
)

// ExternalInput is a declared input array (§6 external block). Inputs are
// always f32 (§6).
type ExternalInput struct {
	Index uint
	Name  string
	Width uint
}

// ExternalOutput is a declared output array (§6 external block). Outputs
// are always f32 (§6).
type ExternalOutput struct {
	Index uint
	Name  string
	Width uint
}

// ExternalProperty is a declared property (§6 external block). Its
// declared type is recorded but treated as f64 semantically in this
// version (§6).
type ExternalProperty struct {
	Index        uint
	Name         string
	DeclaredType Scalar
	Rate         PropertyRate
}

// Externals collects the externally-declared surface of a program (§6).
type Externals struct {
	Inputs     []ExternalInput
	Outputs    []ExternalOutput
	Properties []ExternalProperty
}

// Program is the root of the validated, typed, folded IR: the backend
// contract of §6. It is built incrementally by pkg/compiler and frozen
// once pkg/compiler/emitter.go serializes it.
type Program struct {
	Name      string
	SampleRate uint
	BlockSize  uint
	Externals  Externals
	Buffers    []*Buffer
	Stages     []*Stage
	Nodes      []*Node
	Edges      []Edge
}

// NewProgram constructs an empty program shell.
func NewProgram(name string, sampleRate, blockSize uint) *Program {
	return &Program{Name: name, SampleRate: sampleRate, BlockSize: blockSize}
}

// AddNode appends a node to the program's arena and to its owning stage,
// returning the freshly assigned NodeID.
func (p *Program) AddNode(n *Node) NodeID {
	n.ID = NodeID(len(p.Nodes))
	p.Nodes = append(p.Nodes, n)

	if int(n.Stage) < len(p.Stages) {
		stage := p.Stages[n.Stage]
		stage.Nodes = append(stage.Nodes, n.ID)
	}

	return n.ID
}

// AddEdge appends an edge to the program.
func (p *Program) AddEdge(e Edge) {
	p.Edges = append(p.Edges, e)
}

// AddStage appends a new, empty stage and returns its id.
func (p *Program) AddStage(name string) StageID {
	id := StageID(len(p.Stages))
	p.Stages = append(p.Stages, &Stage{ID: id, Name: name, Outputs: NewBundle()})

	return id
}

// AddBuffer appends a new buffer declaration and returns its id.
func (p *Program) AddBuffer(name string, stage StageID, capacity uint, elem Shape) BufferID {
	id := BufferID(len(p.Buffers))
	p.Buffers = append(p.Buffers, &Buffer{ID: id, Name: name, Stage: stage, Capacity: capacity, Element: elem})

	return id
}

// Node fetches a node by id.
func (p *Program) Node(id NodeID) *Node {
	return p.Nodes[id]
}

// Stage fetches a stage by id.
func (p *Program) Stage(id StageID) *Stage {
	return p.Stages[id]
}

// Buffer fetches a buffer by id.
func (p *Program) Buffer(id BufferID) *Buffer {
	return p.Buffers[id]
}

// EdgesInto returns all edges whose destination is the given endpoint, in
// insertion order (used by the validator and builder for fan-in detection).
func (p *Program) EdgesInto(dst Endpoint) []Edge {
	var result []Edge

	for _, e := range p.Edges {
		if e.Dst == dst {
			result = append(result, e)
		}
	}

	return result
}
