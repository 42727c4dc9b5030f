package compiler

import (
	"encoding/json"

	"github.com/synthizer/waveling/pkg/graph"
)

// The following irXxx types mirror graph's in-memory model one-to-one and
// exist solely to pin down the wire encoding of the IR contract (§6):
// field names and shapes here are part of that contract and must not change
// without bumping graph.IRVersion.

type irShape struct {
	Scalar string `json:"scalar"`
	Width  uint   `json:"width"`
}

type irPin struct {
	Index     uint    `json:"index"`
	Name      string  `json:"name,omitempty"`
	Direction string  `json:"direction"`
	Shape     irShape `json:"shape"`
	Rate      string  `json:"rate"`
}

type irEndpoint struct {
	Node uint32 `json:"node"`
	Pin  uint   `json:"pin"`
}

type irEdge struct {
	Src      irEndpoint `json:"src"`
	Dst      irEndpoint `json:"dst"`
	Backedge bool       `json:"backedge,omitempty"`
}

type irNode struct {
	ID      uint32         `json:"id"`
	Kind    string         `json:"kind"`
	Stage   uint32         `json:"stage"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Inputs  []irPin        `json:"inputs"`
	Outputs []irPin        `json:"outputs"`
}

type irPort struct {
	Index uint   `json:"index"`
	Name  string `json:"name"`
	Width uint   `json:"width"`
}

type irProperty struct {
	Index uint   `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Rate  string `json:"rate"`
}

type irExternals struct {
	Inputs     []irPort     `json:"inputs"`
	Outputs    []irPort     `json:"outputs"`
	Properties []irProperty `json:"properties"`
}

type irBuffer struct {
	ID       uint32  `json:"id"`
	Name     string  `json:"name"`
	Stage    uint32  `json:"stage"`
	Capacity uint    `json:"capacity"`
	Element  irShape `json:"element"`
}

type irStage struct {
	ID            uint32       `json:"id"`
	Name          string       `json:"name"`
	Outputs       []irPin      `json:"outputs"`
	OutputSources []irEndpoint `json:"output_sources"`
	Nodes         []uint32     `json:"nodes"`
}

type irDocument struct {
	IRVersion   int         `json:"ir_version"`
	ProgramName string      `json:"program_name"`
	SampleRate  uint        `json:"sr"`
	BlockSize   uint        `json:"block_size"`
	Externals   irExternals `json:"externals"`
	Buffers     []irBuffer  `json:"buffers"`
	Stages      []irStage   `json:"stages"`
	Nodes       []irNode    `json:"nodes"`
	Edges       []irEdge    `json:"edges"`
}

func toIRShape(s graph.Shape) irShape {
	return irShape{Scalar: s.Scalar.String(), Width: s.Width}
}

func toIRPins(bundle *graph.Bundle) []irPin {
	pins := make([]irPin, 0, bundle.Len())

	for _, p := range bundle.Pins {
		pins = append(pins, irPin{
			Index: p.Index, Name: p.Name, Direction: p.Direction.String(),
			Shape: toIRShape(p.Shape), Rate: p.Rate.String(),
		})
	}

	return pins
}

func toIREndpoint(e graph.Endpoint) irEndpoint {
	return irEndpoint{Node: uint32(e.Node), Pin: e.Pin}
}

// Emit renders a validated, folded graph.Program to its IR wire form (§6,
// §4.8). Callers are expected to have already checked the diagnostic sink
// for errors; Emit does not itself reject an invalid program.
func Emit(prog *graph.Program) ([]byte, error) {
	doc := irDocument{
		IRVersion:   graph.IRVersion,
		ProgramName: prog.Name,
		SampleRate:  prog.SampleRate,
		BlockSize:   prog.BlockSize,
	}

	for _, in := range prog.Externals.Inputs {
		doc.Externals.Inputs = append(doc.Externals.Inputs, irPort{Index: in.Index, Name: in.Name, Width: in.Width})
	}

	for _, out := range prog.Externals.Outputs {
		doc.Externals.Outputs = append(doc.Externals.Outputs, irPort{Index: out.Index, Name: out.Name, Width: out.Width})
	}

	for _, prop := range prog.Externals.Properties {
		rate := "b"
		if prop.Rate == graph.PropertySample {
			rate = "s"
		}

		doc.Externals.Properties = append(doc.Externals.Properties, irProperty{
			Index: prop.Index, Name: prop.Name, Type: prop.DeclaredType.String(), Rate: rate,
		})
	}

	for _, buf := range prog.Buffers {
		doc.Buffers = append(doc.Buffers, irBuffer{
			ID: uint32(buf.ID), Name: buf.Name, Stage: uint32(buf.Stage),
			Capacity: buf.Capacity, Element: toIRShape(buf.Element),
		})
	}

	for _, stage := range prog.Stages {
		sources := make([]irEndpoint, 0, len(stage.OutputSources))
		for _, ep := range stage.OutputSources {
			sources = append(sources, toIREndpoint(ep))
		}

		nodeIDs := make([]uint32, 0, len(stage.Nodes))
		for _, id := range stage.Nodes {
			nodeIDs = append(nodeIDs, uint32(id))
		}

		doc.Stages = append(doc.Stages, irStage{
			ID: uint32(stage.ID), Name: stage.Name, Outputs: toIRPins(stage.Outputs),
			OutputSources: sources, Nodes: nodeIDs,
		})
	}

	for _, n := range prog.Nodes {
		doc.Nodes = append(doc.Nodes, irNode{
			ID: uint32(n.ID), Kind: n.Kind.String(), Stage: uint32(n.Stage),
			Attrs: n.Attrs, Inputs: toIRPins(n.Inputs), Outputs: toIRPins(n.Outputs),
		})
	}

	for _, e := range prog.Edges {
		doc.Edges = append(doc.Edges, irEdge{Src: toIREndpoint(e.Src), Dst: toIREndpoint(e.Dst), Backedge: e.Backedge})
	}

	return json.MarshalIndent(doc, "", "  ")
}
