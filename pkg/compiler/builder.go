package compiler

import (
	"fmt"

	"github.com/synthizer/waveling/pkg/ast"
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
)

// Builder lowers a parsed ast.Program into a graph.Program (§4.4), resolving
// names against the three-tier Scope chain as it goes (§4.3). Nodes are
// built eagerly as expressions are reduced, matching the teacher's
// translator.go approach of a single recursive lowering walk rather than a
// separate resolve-then-lower pass.
type Builder struct {
	prog *graph.Program
	sink *source.Sink

	builtins *Scope
	program  *Scope

	stage      graph.StageID
	stageScope *Scope

	externalInputNodes  map[uint]graph.NodeID
	externalOutputNodes map[uint]graph.NodeID
	propertyNodes       map[uint]graph.NodeID
	stageOutputRefNodes map[graph.StageID]map[uint]graph.NodeID

	// lastBufferWrite tracks, per buffer, the most recently built
	// KindBufferWrite node. Nothing reads it back: the graph records no
	// write-before-read ordering (§4.4/§9) beyond its ordinary data edges.
	lastBufferWrite map[graph.BufferID]graph.NodeID
}

// Build lowers prog into a graph.Program, reporting errors to sink.
func Build(prog *ast.Program, sink *source.Sink) *graph.Program {
	b := &Builder{
		sink:                sink,
		builtins:            newBuiltinScope(),
		externalInputNodes:  make(map[uint]graph.NodeID),
		externalOutputNodes: make(map[uint]graph.NodeID),
		propertyNodes:       make(map[uint]graph.NodeID),
		stageOutputRefNodes: make(map[graph.StageID]map[uint]graph.NodeID),
		lastBufferWrite:     make(map[graph.BufferID]graph.NodeID),
	}

	b.prog = graph.NewProgram(prog.Name, prog.External.SampleRate, prog.External.BlockSize)
	b.program = NewScope(b.builtins)

	b.declareExternals(prog.External)
	b.declareStages(prog.Stages)

	for i, stageDecl := range prog.Stages {
		b.lowerStageBody(graph.StageID(i), stageDecl)
	}

	b.finalizeFanIn()

	return b.prog
}

// ===========================================================================
// Declaration passes
// ===========================================================================

func (b *Builder) declareExternals(ext ast.ExternalDecl) {
	for i, in := range ext.Inputs {
		b.prog.Externals.Inputs = append(b.prog.Externals.Inputs, graph.ExternalInput{
			Index: uint(i), Name: in.Name, Width: in.Shape.Width,
		})

		if !b.program.Bind(in.Name, ExternalInputBinding{Index: uint(i)}) {
			b.sink.Error(source.CodeNameResolution, in.Span, "external input %q redeclares an existing name", in.Name)
		}
	}

	for i, out := range ext.Outputs {
		b.prog.Externals.Outputs = append(b.prog.Externals.Outputs, graph.ExternalOutput{
			Index: uint(i), Name: out.Name, Width: out.Shape.Width,
		})

		if !b.program.Bind(out.Name, ExternalOutputBinding{Index: uint(i)}) {
			b.sink.Error(source.CodeNameResolution, out.Span, "external output %q redeclares an existing name", out.Name)
		}
	}

	for i, prop := range ext.Properties {
		declType, _ := parseScalarName(prop.Type)
		rate := graph.PropertyBlock

		if prop.Rate == "s" {
			rate = graph.PropertySample
		}

		b.prog.Externals.Properties = append(b.prog.Externals.Properties, graph.ExternalProperty{
			Index: uint(i), Name: prop.Name, DeclaredType: declType, Rate: rate,
		})

		if !b.program.Bind(prop.Name, PropertyBinding{Index: uint(i)}) {
			b.sink.Error(source.CodeNameResolution, prop.Span, "property %q redeclares an existing name", prop.Name)
		}
	}
}

func parseScalarName(name string) (graph.Scalar, bool) {
	switch name {
	case "i32":
		return graph.I32, true
	case "i64":
		return graph.I64, true
	case "f32":
		return graph.F32, true
	case "f64":
		return graph.F64, true
	case "bool":
		return graph.Bool, true
	default:
		return graph.ScalarUnresolved, false
	}
}

// declareStages creates every stage's shell (and its declared-output sink
// nodes) before any stage body is lowered, so that stage names and outputs
// resolve regardless of declaration order (§8: "resolution is independent
// of declaration order within a program (stages)").
func (b *Builder) declareStages(decls []ast.StageDecl) {
	for _, decl := range decls {
		stageID := b.prog.AddStage(decl.Name)
		stage := b.prog.Stage(stageID)

		if !b.program.Bind(decl.Name, StageBinding{Stage: stageID}) {
			b.sink.Error(source.CodeNameResolution, decl.Span, "stage %q redeclares an existing name", decl.Name)
		}

		for i, out := range decl.Outputs {
			scalar, ok := parseScalarName(out.Shape.Scalar)
			if !ok {
				b.sink.Error(source.CodeShape, out.Shape.Span, "unknown scalar type %q", out.Shape.Scalar)
			}

			shape := graph.Shape{Scalar: scalar, Width: out.Shape.Width}
			stage.Outputs.Add(graph.Pin{Name: out.Name, Direction: graph.Out, Shape: shape, Rate: graph.S})

			sink := graph.NewNode(0, graph.KindStageOutputSink, stageID, out.Span)
			sink.SetAttr("stage", stageID)
			sink.SetAttr("output_index", uint(i))
			sink.Inputs.Add(graph.Pin{Name: out.Name, Direction: graph.In, Shape: shape, Rate: graph.S})
			sinkID := b.prog.AddNode(sink)

			stage.OutputSources = append(stage.OutputSources, graph.Endpoint{Node: sinkID, Pin: 0})
		}
	}
}

// ===========================================================================
// Statement lowering
// ===========================================================================

func (b *Builder) lowerStageBody(stageID graph.StageID, decl ast.StageDecl) {
	b.stage = stageID
	b.stageScope = NewScope(b.program)

	for i, out := range decl.Outputs {
		b.stageScope.Bind(out.Name, StageOutputBinding{Stage: stageID, Index: uint(i)})
	}

	for _, stmt := range decl.Body {
		b.lowerStmt(stmt)
	}
}

func (b *Builder) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if _, exists := b.stageScope.LocalLookup(s.Name); exists {
			b.sink.Error(source.CodeNameResolution, s.Span(), "%q is already declared in this scope", s.Name)
			return
		}

		value := b.lowerExpr(s.Value)
		b.stageScope.Bind(s.Name, NodeBinding{Node: value.Endpoint.Node})
	case *ast.AssignStmt:
		binding, ok := b.stageScope.Lookup(s.Name)
		if !ok {
			b.sink.Error(source.CodeNameResolution, s.Span(), "%q is not declared", s.Name)
			return
		}

		value := b.lowerExpr(s.Value)
		b.connectValueIntoBinding(value, binding, s.Name, s.Span())
	case *ast.ExprStmt:
		b.lowerStmtExpr(s.Value)
	case *ast.CellStmt:
		b.lowerCellStmt(s)
	case *ast.BufferStmt:
		b.lowerBufferStmt(s)
	default:
		b.sink.Error(source.CodeSyntactic, stmt.Span(), "unsupported statement")
	}
}

// lowerStmtExpr evaluates an expression statement purely for its routing
// side effects (§4.2); a bare RoutingExpr performs its wiring, anything
// else is evaluated and its (now unused) value discarded.
func (b *Builder) lowerStmtExpr(e ast.Expr) {
	if routing, ok := e.(*ast.RoutingExpr); ok {
		b.connectRouting(routing.Src, routing.Dst)
		return
	}

	b.lowerExpr(e)
}

func (b *Builder) lowerCellStmt(s *ast.CellStmt) {
	scalar, ok := parseScalarName(s.Shape.Scalar)
	if !ok {
		b.sink.Error(source.CodeShape, s.Shape.Span, "unknown scalar type %q", s.Shape.Scalar)
	}

	shape := graph.Shape{Scalar: scalar, Width: s.Shape.Width}

	delay := uint(1)

	if s.Delay != nil {
		lit, ok := s.Delay.(*ast.NumberLit)
		if !ok || lit.Value != float64(int64(lit.Value)) || lit.Value < 1 {
			b.sink.Error(source.CodeStructural, s.Delay.Span(), "cell delay must be a positive integer literal")
		} else {
			delay = uint(lit.Value)
		}
	}

	node := graph.NewNode(0, graph.KindCell, b.stage, s.Span())
	node.SetAttr("delay", delay)
	node.Inputs.Add(graph.Pin{Name: "end", Direction: graph.In, Shape: shape, Rate: graph.S})
	node.Outputs.Add(graph.Pin{Name: "start", Direction: graph.Out, Shape: shape, Rate: graph.S})
	nodeID := b.prog.AddNode(node)

	if s.Start != "" && !b.stageScope.Bind(s.Start, PinBinding{Endpoint: graph.Endpoint{Node: nodeID, Pin: 0}, Direction: graph.Out}) {
		b.sink.Error(source.CodeNameResolution, s.Span(), "%q is already declared in this scope", s.Start)
	}

	if s.End != "" && !b.stageScope.Bind(s.End, PinBinding{Endpoint: graph.Endpoint{Node: nodeID, Pin: 0}, Direction: graph.In}) {
		b.sink.Error(source.CodeNameResolution, s.Span(), "%q is already declared in this scope", s.End)
	}
}

func (b *Builder) lowerBufferStmt(s *ast.BufferStmt) {
	scalar, ok := parseScalarName(s.Shape.Scalar)
	if !ok {
		b.sink.Error(source.CodeShape, s.Shape.Span, "unknown scalar type %q", s.Shape.Scalar)
	}

	shape := graph.Shape{Scalar: scalar, Width: s.Shape.Width}

	capacity := uint(0)

	var capSource *graph.Endpoint

	if lit, ok := s.Capacity.(*ast.NumberLit); ok {
		if lit.Value == float64(uint(lit.Value)) && lit.Value > 0 {
			capacity = uint(lit.Value)
		}
	} else {
		ep := b.lowerExpr(s.Capacity)
		capSource = &ep.Endpoint
	}

	bufID := b.prog.AddBuffer(s.Name, b.stage, capacity, shape)

	if capSource != nil {
		b.prog.Buffer(bufID).CapacitySource = capSource
	} else if capacity == 0 {
		b.sink.Error(source.CodeStructural, s.Capacity.Span(), "buffer capacity must be a positive integer literal")
	}

	if !b.program.Bind(s.Name, BufferBinding{Buffer: bufID}) {
		b.sink.Error(source.CodeNameResolution, s.Span(), "%q is already declared", s.Name)
	}
}

// ===========================================================================
// Routing
// ===========================================================================

// connectRouting implements the §4.4 operand-kind table for `src -> dst`.
func (b *Builder) connectRouting(srcExpr, dstExpr ast.Expr) {
	if bundle, ok := srcExpr.(*ast.BundleLit); ok {
		b.connectBundleIntoNode(bundle, dstExpr)
		return
	}

	value := b.lowerExpr(srcExpr)
	b.connectValueIntoDestination(value, dstExpr)
}

// connectBundleIntoNode handles "bundle literal -> node": each entry
// becomes an edge into the matching destination input pin, by index for
// positional entries and by name for named entries (§4.4).
func (b *Builder) connectBundleIntoNode(bundle *ast.BundleLit, dstExpr ast.Expr) {
	nodeID, ok := b.lowerNode(dstExpr)
	if !ok {
		b.sink.Error(source.CodeStructural, dstExpr.Span(), "bundle literal routing requires a node destination")
		return
	}

	node := b.prog.Node(nodeID)
	positional := uint(0)

	for _, entry := range bundle.Entries {
		value := b.lowerExpr(entry.Value)

		pinIndex := positional

		if entry.Name != "" {
			pin, found := node.Inputs.ByName(entry.Name)
			if !found {
				b.sink.Error(source.CodeStructural, entry.Value.Span(), "unknown named pin %q", entry.Name)
				continue
			}

			pinIndex = pin.Index
		} else {
			positional++
		}

		b.addEdge(value.Endpoint, graph.Endpoint{Node: nodeID, Pin: pinIndex})
	}
}

// connectValueIntoDestination resolves dstExpr to a concrete input-pin
// endpoint and records the edge, per the §4.4 routing table.
func (b *Builder) connectValueIntoDestination(value exprValue, dstExpr ast.Expr) {
	switch d := dstExpr.(type) {
	case *ast.Ident:
		binding, ok := b.stageScope.Lookup(d.Name)
		if !ok {
			b.sink.Error(source.CodeNameResolution, d.Span(), "undeclared name %q", d.Name)
			return
		}

		b.connectValueIntoBinding(value, binding, d.Name, d.Span())
	case *ast.IndexExpr:
		nodeID, ok := b.lowerNode(d.Target)
		if !ok {
			b.sink.Error(source.CodeStructural, d.Span(), "invalid routing destination")
			return
		}

		b.addEdge(value.Endpoint, graph.Endpoint{Node: nodeID, Pin: d.Index})
	case *ast.FieldExpr:
		nodeID, ok := b.lowerNode(d.Target)
		if !ok {
			b.sink.Error(source.CodeStructural, d.Span(), "invalid routing destination")
			return
		}

		node := b.prog.Node(nodeID)

		pin, found := node.Inputs.ByName(d.Name)
		if !found {
			b.sink.Error(source.CodeStructural, d.Span(), "unknown named pin %q", d.Name)
			return
		}

		b.addEdge(value.Endpoint, graph.Endpoint{Node: nodeID, Pin: pin.Index})
	case *ast.CallExpr:
		nodeID := b.lowerCall(d)
		b.addEdge(value.Endpoint, graph.Endpoint{Node: nodeID, Pin: 0})
	default:
		b.sink.Error(source.CodeStructural, dstExpr.Span(), "invalid routing destination")
	}
}

func (b *Builder) connectValueIntoBinding(value exprValue, binding Binding, name string, span source.Span) {
	switch bd := binding.(type) {
	case NodeBinding:
		b.addEdge(value.Endpoint, graph.Endpoint{Node: bd.Node, Pin: 0})
	case PinBinding:
		if bd.Direction != graph.In {
			b.sink.Error(source.CodeStructural, span, "%q is not an input pin", name)
			return
		}

		b.addEdge(value.Endpoint, bd.Endpoint)
	case StageOutputBinding:
		stage := b.prog.Stage(bd.Stage)
		b.addEdge(value.Endpoint, stage.OutputSources[bd.Index])
	case ExternalOutputBinding:
		b.addEdge(value.Endpoint, b.externalOutputEndpoint(bd.Index))
	default:
		b.sink.Error(source.CodeStructural, span, "%q is not a valid routing destination", name)
	}
}

func (b *Builder) addEdge(src, dst graph.Endpoint) {
	b.prog.AddEdge(graph.Edge{Src: src, Dst: dst})
}

// ===========================================================================
// Expression lowering
// ===========================================================================

// exprValue is the result of lowering an expression used in source/value
// position: a single output-pin endpoint.
type exprValue struct {
	Endpoint graph.Endpoint
}

// lowerNode resolves an expression to the identity of the node it denotes,
// discarding any particular pin selection already implied by the
// expression (used for postfix Index/Field destinations and bundle-literal
// routing, §4.3: "a name bound to a node... denotes its 0-th numbered
// input (destination position)").
func (b *Builder) lowerNode(e ast.Expr) (graph.NodeID, bool) {
	switch expr := e.(type) {
	case *ast.Ident:
		binding, ok := b.stageScope.Lookup(expr.Name)
		if !ok {
			b.sink.Error(source.CodeNameResolution, expr.Span(), "undeclared name %q", expr.Name)
			return 0, false
		}

		switch bd := binding.(type) {
		case NodeBinding:
			return bd.Node, true
		case PinBinding:
			return bd.Endpoint.Node, true
		case ExternalInputBinding:
			return b.externalInputEndpoint(bd.Index).Node, true
		case ExternalOutputBinding:
			return b.externalOutputEndpoint(bd.Index).Node, true
		case PropertyBinding:
			return b.propertyEndpoint(bd.Index).Node, true
		case StageOutputBinding:
			return b.stageOutputRefEndpoint(bd.Stage, bd.Index).Node, true
		default:
			b.sink.Error(source.CodeNameResolution, expr.Span(), "%q does not denote a node", expr.Name)
			return 0, false
		}
	case *ast.CallExpr:
		return b.lowerCall(expr), true
	case *ast.IndexExpr:
		return b.lowerNode(expr.Target)
	case *ast.FieldExpr:
		return b.lowerFieldNode(expr)
	default:
		value := b.lowerExpr(e)
		return value.Endpoint.Node, true
	}
}

func (b *Builder) lowerFieldNode(expr *ast.FieldExpr) (graph.NodeID, bool) {
	if outputs, ok := expr.Target.(*ast.FieldExpr); ok && outputs.Name == "outputs" {
		if ident, ok := outputs.Target.(*ast.Ident); ok {
			if binding, ok := b.stageScope.Lookup(ident.Name); ok {
				if sb, ok := binding.(StageBinding); ok {
					stage := b.prog.Stage(sb.Stage)
					pin, found := stage.Outputs.ByName(expr.Name)

					if !found {
						b.sink.Error(source.CodeStructural, expr.Span(), "stage %q has no output named %q", ident.Name, expr.Name)
						return 0, false
					}

					return b.stageOutputRefEndpoint(sb.Stage, pin.Index).Node, true
				}
			}
		}
	}

	b.sink.Error(source.CodeNameResolution, expr.Span(), "unresolved path expression")

	return 0, false
}

// lowerExpr lowers an expression used in source/value position to a single
// endpoint.
func (b *Builder) lowerExpr(e ast.Expr) exprValue {
	switch expr := e.(type) {
	case *ast.NumberLit:
		return b.lowerNumberLit(expr)
	case *ast.BoolLit:
		return b.lowerBoolLit(expr)
	case *ast.Ident:
		return b.lowerIdent(expr)
	case *ast.IndexExpr:
		return b.lowerIndex(expr)
	case *ast.FieldExpr:
		nodeID, ok := b.lowerFieldNode(expr)
		if !ok {
			return b.errorValue(expr.Span())
		}

		return exprValue{graph.Endpoint{Node: nodeID, Pin: 0}}
	case *ast.UnaryExpr:
		return b.lowerUnary(expr)
	case *ast.BinaryExpr:
		return b.lowerBinary(expr)
	case *ast.CallExpr:
		return exprValue{graph.Endpoint{Node: b.lowerCall(expr), Pin: 0}}
	case *ast.BundleLit:
		return b.lowerStack(spanEntries(expr), expr.Span())
	case *ast.OutputStackExpr:
		return b.lowerStack(expr.Items, expr.Span())
	case *ast.RoutingExpr:
		b.connectRouting(expr.Src, expr.Dst)
		return b.resolveChainValue(expr.Dst)
	default:
		b.sink.Error(source.CodeSyntactic, e.Span(), "unsupported expression")
		return b.errorValue(e.Span())
	}
}

func spanEntries(bundle *ast.BundleLit) []ast.Expr {
	items := make([]ast.Expr, len(bundle.Entries))
	for i, entry := range bundle.Entries {
		items[i] = entry.Value
	}

	return items
}

// resolveChainValue re-reads a routing destination so that `a -> b -> c`
// can continue wiring from b's value (§4.4).
func (b *Builder) resolveChainValue(dstExpr ast.Expr) exprValue {
	nodeID, ok := b.lowerNode(dstExpr)
	if !ok {
		return b.errorValue(dstExpr.Span())
	}

	return exprValue{graph.Endpoint{Node: nodeID, Pin: 0}}
}

func (b *Builder) errorValue(span source.Span) exprValue {
	node := graph.NewNode(0, graph.KindLiteral, b.stage, span)
	node.SetAttr("value", 0.0)
	node.Outputs.Add(graph.Pin{Direction: graph.Out, Shape: graph.Shape{Scalar: graph.F32, Width: 1}, Rate: graph.C})
	id := b.prog.AddNode(node)

	return exprValue{graph.Endpoint{Node: id, Pin: 0}}
}

func (b *Builder) lowerNumberLit(n *ast.NumberLit) exprValue {
	node := graph.NewNode(0, graph.KindLiteral, b.stage, n.Span())
	node.SetAttr("value", n.Value)

	scalar := graph.ScalarUnresolved

	switch n.Suffix {
	case ast.SuffixI32:
		scalar = graph.I32
	case ast.SuffixI64:
		scalar = graph.I64
	case ast.SuffixF32:
		scalar = graph.F32
	case ast.SuffixF64:
		scalar = graph.F64
	}

	node.Outputs.Add(graph.Pin{Direction: graph.Out, Shape: graph.Shape{Scalar: scalar, Width: 1}, Rate: graph.C})
	id := b.prog.AddNode(node)

	return exprValue{graph.Endpoint{Node: id, Pin: 0}}
}

func (b *Builder) lowerBoolLit(n *ast.BoolLit) exprValue {
	node := graph.NewNode(0, graph.KindLiteral, b.stage, n.Span())
	node.SetAttr("bool", n.Value)
	node.Outputs.Add(graph.Pin{Direction: graph.Out, Shape: graph.Shape{Scalar: graph.Bool, Width: 1}, Rate: graph.C})
	id := b.prog.AddNode(node)

	return exprValue{graph.Endpoint{Node: id, Pin: 0}}
}

func (b *Builder) lowerIdent(n *ast.Ident) exprValue {
	binding, ok := b.stageScope.Lookup(n.Name)
	if !ok {
		b.sink.Error(source.CodeNameResolution, n.Span(), "undeclared name %q", n.Name)
		return b.errorValue(n.Span())
	}

	switch bd := binding.(type) {
	case NodeBinding:
		return exprValue{graph.Endpoint{Node: bd.Node, Pin: 0}}
	case PinBinding:
		if bd.Direction != graph.Out {
			b.sink.Error(source.CodeStructural, n.Span(), "%q is an input pin and cannot be read as a value", n.Name)
			return b.errorValue(n.Span())
		}

		return exprValue{bd.Endpoint}
	case ExternalInputBinding:
		return exprValue{b.externalInputEndpoint(bd.Index)}
	case PropertyBinding:
		return exprValue{b.propertyEndpoint(bd.Index)}
	case StageOutputBinding:
		return exprValue{b.stageOutputRefEndpoint(bd.Stage, bd.Index)}
	default:
		b.sink.Error(source.CodeNameResolution, n.Span(), "%q cannot be used as a value here", n.Name)
		return b.errorValue(n.Span())
	}
}

func (b *Builder) lowerIndex(n *ast.IndexExpr) exprValue {
	nodeID, ok := b.lowerNode(n.Target)
	if !ok {
		return b.errorValue(n.Span())
	}

	return exprValue{graph.Endpoint{Node: nodeID, Pin: n.Index}}
}

func (b *Builder) lowerUnary(n *ast.UnaryExpr) exprValue {
	operand := b.lowerExpr(n.Operand)

	op := n.Op
	if op == "!" {
		op = "~"
	}

	node := graph.NewNode(0, graph.KindUnary, b.stage, n.Span())
	node.SetAttr("op", op)
	node.Inputs.Add(graph.Pin{Name: "operand", Direction: graph.In, Rate: graph.C})
	node.Outputs.Add(graph.Pin{Direction: graph.Out, Rate: graph.C})
	id := b.prog.AddNode(node)

	b.addEdge(operand.Endpoint, graph.Endpoint{Node: id, Pin: 0})

	return exprValue{graph.Endpoint{Node: id, Pin: 0}}
}

func (b *Builder) lowerBinary(n *ast.BinaryExpr) exprValue {
	left := b.lowerExpr(n.Left)
	right := b.lowerExpr(n.Right)

	op := n.Op

	switch op {
	case "&&":
		op = "&"
	case "||":
		op = "|"
	}

	node := graph.NewNode(0, graph.KindBinary, b.stage, n.Span())
	node.SetAttr("op", op)
	node.Inputs.Add(graph.Pin{Name: "lhs", Direction: graph.In, Rate: graph.C})
	node.Inputs.Add(graph.Pin{Name: "rhs", Direction: graph.In, Rate: graph.C})
	node.Outputs.Add(graph.Pin{Direction: graph.Out, Rate: graph.C})
	id := b.prog.AddNode(node)

	b.addEdge(left.Endpoint, graph.Endpoint{Node: id, Pin: 0})
	b.addEdge(right.Endpoint, graph.Endpoint{Node: id, Pin: 1})

	return exprValue{graph.Endpoint{Node: id, Pin: 0}}
}

// lowerStack lowers an output-stacking expression `a, b` (or a bare bundle
// literal used as a value) to a KindMerge node concatenating its items in
// order (§4.4: width sum, contiguous channel ranges).
func (b *Builder) lowerStack(items []ast.Expr, span source.Span) exprValue {
	node := graph.NewNode(0, graph.KindMerge, b.stage, span)
	id := b.prog.AddNode(node)

	for i, item := range items {
		value := b.lowerExpr(item)
		node.Inputs.Add(graph.Pin{Name: fmt.Sprintf("item%d", i), Direction: graph.In, Rate: graph.C})
		b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: uint(i)})
	}

	node.Outputs.Add(graph.Pin{Direction: graph.Out, Rate: graph.C})

	return exprValue{graph.Endpoint{Node: id, Pin: 0}}
}

// ===========================================================================
// Lazily-created external/property/stage-output-read nodes
// ===========================================================================

func (b *Builder) externalInputEndpoint(index uint) graph.Endpoint {
	if id, ok := b.externalInputNodes[index]; ok {
		return graph.Endpoint{Node: id, Pin: 0}
	}

	decl := b.prog.Externals.Inputs[index]
	node := graph.NewNode(0, graph.KindExternalInput, b.stage, source.Span{})
	node.SetAttr("index", index)
	node.Outputs.Add(graph.Pin{Name: decl.Name, Direction: graph.Out, Shape: graph.Shape{Scalar: graph.F32, Width: decl.Width}, Rate: graph.S})
	id := b.prog.AddNode(node)
	b.externalInputNodes[index] = id

	return graph.Endpoint{Node: id, Pin: 0}
}

func (b *Builder) externalOutputEndpoint(index uint) graph.Endpoint {
	if id, ok := b.externalOutputNodes[index]; ok {
		return graph.Endpoint{Node: id, Pin: 0}
	}

	decl := b.prog.Externals.Outputs[index]
	node := graph.NewNode(0, graph.KindExternalOutput, b.stage, source.Span{})
	node.SetAttr("index", index)
	node.Inputs.Add(graph.Pin{Name: decl.Name, Direction: graph.In, Shape: graph.Shape{Scalar: graph.F32, Width: decl.Width}, Rate: graph.S})
	id := b.prog.AddNode(node)
	b.externalOutputNodes[index] = id

	return graph.Endpoint{Node: id, Pin: 0}
}

func (b *Builder) propertyEndpoint(index uint) graph.Endpoint {
	if id, ok := b.propertyNodes[index]; ok {
		return graph.Endpoint{Node: id, Pin: 0}
	}

	decl := b.prog.Externals.Properties[index]
	rate := graph.B

	if decl.Rate == graph.PropertySample {
		rate = graph.S
	}

	node := graph.NewNode(0, graph.KindProperty, b.stage, source.Span{})
	node.SetAttr("index", index)
	node.Outputs.Add(graph.Pin{Name: decl.Name, Direction: graph.Out, Shape: graph.Shape{Scalar: graph.F64, Width: 1}, Rate: rate})
	id := b.prog.AddNode(node)
	b.propertyNodes[index] = id

	return graph.Endpoint{Node: id, Pin: 0}
}

// ===========================================================================
// Calls: structural forms and generic built-ins
// ===========================================================================

// lowerCall lowers a call expression to a node and returns its id. Structural
// forms (broadcast/truncate/merge/split/slice/delread/delwrite) get bespoke
// lowering; everything else recognized by graph.IsBuiltinName goes through
// the generic bundle-signature path (§4.3, §4.4).
func (b *Builder) lowerCall(call *ast.CallExpr) graph.NodeID {
	switch call.Name {
	case "broadcast":
		return b.lowerBroadcastOrTruncate(call, graph.KindBroadcast)
	case "truncate":
		return b.lowerBroadcastOrTruncate(call, graph.KindTruncate)
	case "merge":
		value := b.lowerStack(call.Args, call.Span())
		return value.Endpoint.Node
	case "split":
		return b.lowerSplit(call)
	case "slice":
		return b.lowerSlice(call)
	case "delread":
		return b.lowerDelread(call)
	case "delwrite":
		return b.lowerDelwrite(call)
	}

	if graph.IsBuiltinName(call.Name) {
		return b.lowerBuiltinCall(call)
	}

	b.sink.Error(source.CodeNameResolution, call.Span(), "unknown call %q", call.Name)

	return b.errorValue(call.Span()).Endpoint.Node
}

func (b *Builder) literalUint(e ast.Expr) (uint, bool) {
	lit, ok := e.(*ast.NumberLit)
	if !ok || lit.Value < 0 || lit.Value != float64(uint(lit.Value)) {
		b.sink.Error(source.CodeStructural, e.Span(), "expected a non-negative integer literal")
		return 0, false
	}

	return uint(lit.Value), true
}

func (b *Builder) lowerBroadcastOrTruncate(call *ast.CallExpr, kind graph.Kind) graph.NodeID {
	if len(call.Args) != 2 {
		b.sink.Error(source.CodeStructural, call.Span(), "%s expects (value, width)", call.Name)
		return b.errorValue(call.Span()).Endpoint.Node
	}

	value := b.lowerExpr(call.Args[0])
	width, _ := b.literalUint(call.Args[1])

	node := graph.NewNode(0, kind, b.stage, call.Span())
	node.SetAttr("width", width)
	node.Inputs.Add(graph.Pin{Name: "input", Direction: graph.In, Rate: graph.C})
	node.Outputs.Add(graph.Pin{Name: "output", Direction: graph.Out, Shape: graph.Shape{Width: width}, Rate: graph.C})
	id := b.prog.AddNode(node)

	b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: 0})

	return id
}

func (b *Builder) lowerSplit(call *ast.CallExpr) graph.NodeID {
	if len(call.Args) < 2 {
		b.sink.Error(source.CodeStructural, call.Span(), "split expects (value, width, ...)")
		return b.errorValue(call.Span()).Endpoint.Node
	}

	value := b.lowerExpr(call.Args[0])

	node := graph.NewNode(0, graph.KindSplit, b.stage, call.Span())
	node.Inputs.Add(graph.Pin{Name: "input", Direction: graph.In, Rate: graph.C})
	id := b.prog.AddNode(node)

	for i, arg := range call.Args[1:] {
		width, _ := b.literalUint(arg)
		node.Outputs.Add(graph.Pin{Name: fmt.Sprintf("output%d", i), Direction: graph.Out, Shape: graph.Shape{Width: width}, Rate: graph.C})
	}

	b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: 0})

	return id
}

func (b *Builder) lowerSlice(call *ast.CallExpr) graph.NodeID {
	if len(call.Args) != 3 {
		b.sink.Error(source.CodeStructural, call.Span(), "slice expects (value, start, end)")
		return b.errorValue(call.Span()).Endpoint.Node
	}

	value := b.lowerExpr(call.Args[0])
	start, _ := b.literalUint(call.Args[1])
	end, _ := b.literalUint(call.Args[2])

	if end < start {
		b.sink.Error(source.CodeStructural, call.Span(), "slice end must not precede start")
	}

	node := graph.NewNode(0, graph.KindSlice, b.stage, call.Span())
	node.SetAttr("start", start)
	node.SetAttr("end", end)
	node.Inputs.Add(graph.Pin{Name: "input", Direction: graph.In, Rate: graph.C})
	node.Outputs.Add(graph.Pin{Name: "output", Direction: graph.Out, Shape: graph.Shape{Width: end - start}, Rate: graph.C})
	id := b.prog.AddNode(node)

	b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: 0})

	return id
}

func (b *Builder) resolveBufferArg(e ast.Expr) (graph.BufferID, bool) {
	ident, ok := e.(*ast.Ident)
	if !ok {
		b.sink.Error(source.CodeStructural, e.Span(), "expected a buffer name")
		return 0, false
	}

	binding, ok := b.program.Lookup(ident.Name)
	if !ok {
		b.sink.Error(source.CodeNameResolution, e.Span(), "undeclared name %q", ident.Name)
		return 0, false
	}

	bufBinding, ok := binding.(BufferBinding)
	if !ok {
		b.sink.Error(source.CodeStructural, e.Span(), "%q is not a buffer", ident.Name)
		return 0, false
	}

	return bufBinding.Buffer, true
}

func (b *Builder) lowerDelread(call *ast.CallExpr) graph.NodeID {
	if len(call.Args) != 2 {
		b.sink.Error(source.CodeStructural, call.Span(), "delread expects (buffer, delay)")
		return b.errorValue(call.Span()).Endpoint.Node
	}

	bufID, ok := b.resolveBufferArg(call.Args[0])
	if !ok {
		return b.errorValue(call.Span()).Endpoint.Node
	}

	buf := b.prog.Buffer(bufID)

	if lit, ok := call.Args[1].(*ast.NumberLit); ok && buf.CapacitySource == nil {
		if lit.Value == float64(uint(lit.Value)) && uint(lit.Value) >= buf.Capacity {
			b.sink.Error(source.CodeStructural, lit.Span(), "delread delay %d is out of range for buffer %q with capacity %d", uint(lit.Value), buf.Name, buf.Capacity)
		}
	}

	delay := b.lowerExpr(call.Args[1])

	node := graph.NewNode(0, graph.KindBufferRead, b.stage, call.Span())
	node.SetAttr("buffer", bufID)
	node.Inputs.Add(graph.Pin{Name: "delay", Direction: graph.In, Rate: graph.C})
	node.Outputs.Add(graph.Pin{Name: "value", Direction: graph.Out, Shape: buf.Element, Rate: graph.S})
	id := b.prog.AddNode(node)

	b.addEdge(delay.Endpoint, graph.Endpoint{Node: id, Pin: 0})

	return id
}

func (b *Builder) lowerDelwrite(call *ast.CallExpr) graph.NodeID {
	if len(call.Args) != 2 {
		b.sink.Error(source.CodeStructural, call.Span(), "delwrite expects (buffer, value)")
		return b.errorValue(call.Span()).Endpoint.Node
	}

	bufID, ok := b.resolveBufferArg(call.Args[0])
	if !ok {
		return b.errorValue(call.Span()).Endpoint.Node
	}

	buf := b.prog.Buffer(bufID)
	value := b.lowerExpr(call.Args[1])

	node := graph.NewNode(0, graph.KindBufferWrite, b.stage, call.Span())
	node.SetAttr("buffer", bufID)
	node.Inputs.Add(graph.Pin{Name: "value", Direction: graph.In, Shape: buf.Element, Rate: graph.S})
	node.Outputs.Add(graph.Pin{Name: "value", Direction: graph.Out, Shape: buf.Element, Rate: graph.S})
	id := b.prog.AddNode(node)

	b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: 0})
	b.lastBufferWrite[bufID] = id

	return id
}

func (b *Builder) lowerBuiltinCall(call *ast.CallExpr) graph.NodeID {
	sig, _ := graph.BuiltinSignature(call.Name)

	node := graph.NewNode(0, graph.KindBuiltinCall, b.stage, call.Span())
	node.SetAttr("name", call.Name)

	for _, pin := range sig.Inputs {
		node.Inputs.Add(graph.Pin{Name: pin.Name, Direction: graph.In, Rate: graph.C})
	}

	for _, pin := range sig.Outputs {
		node.Outputs.Add(graph.Pin{Name: pin.Name, Direction: graph.Out, Rate: graph.C})
	}

	id := b.prog.AddNode(node)

	positional := 0

	for _, arg := range call.Args {
		if bundle, ok := arg.(*ast.BundleLit); ok && len(bundle.Entries) == 1 && bundle.Entries[0].Name != "" {
			entry := bundle.Entries[0]

			pin, found := node.Inputs.ByName(entry.Name)
			if !found {
				b.sink.Error(source.CodeStructural, arg.Span(), "%s has no pin named %q", call.Name, entry.Name)
				continue
			}

			value := b.lowerExpr(entry.Value)
			b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: pin.Index})

			continue
		}

		if positional >= len(node.Inputs.Pins) {
			b.sink.Error(source.CodeStructural, arg.Span(), "%s takes at most %d arguments", call.Name, len(node.Inputs.Pins))
			b.lowerExpr(arg)

			continue
		}

		value := b.lowerExpr(arg)
		b.addEdge(value.Endpoint, graph.Endpoint{Node: id, Pin: uint(positional)})
		positional++
	}

	rate, hasOverride := defaultRateOverride(graph.KindBuiltinCall, call.Name)
	if hasOverride && len(node.Outputs.Pins) > 0 {
		node.Outputs.Pins[0].Rate = rate
	}

	return id
}

// ===========================================================================
// Fan-in normalization
// ===========================================================================

// finalizeFanIn materializes the implicit N-ary sum/OR nodes described in
// §3/§4.4: two or more edges landing on the same input pin are replaced by
// edges into a fresh Sum (or LogicalOr, when the destination pin's scalar is
// already known to be bool) node, whose single output feeds that pin.
func (b *Builder) finalizeFanIn() {
	groups := make(map[graph.Endpoint][]graph.Edge)

	var order []graph.Endpoint

	for _, e := range b.prog.Edges {
		if _, seen := groups[e.Dst]; !seen {
			order = append(order, e.Dst)
		}

		groups[e.Dst] = append(groups[e.Dst], e)
	}

	var rebuilt []graph.Edge

	for _, dst := range order {
		edges := groups[dst]

		if len(edges) == 1 {
			rebuilt = append(rebuilt, edges[0])
			continue
		}

		isBool := b.destinationIsBool(dst)

		kind := graph.KindSum
		if isBool {
			kind = graph.KindLogicalOr
		}

		fanInNode := graph.NewNode(0, kind, b.prog.Node(dst.Node).Stage, source.Span{})

		for i := range edges {
			fanInNode.Inputs.Add(graph.Pin{Name: fmt.Sprintf("in%d", i), Direction: graph.In, Rate: graph.C})
		}

		fanInNode.Outputs.Add(graph.Pin{Direction: graph.Out, Rate: graph.C})
		id := b.prog.AddNode(fanInNode)

		for i, e := range edges {
			rebuilt = append(rebuilt, graph.Edge{Src: e.Src, Dst: graph.Endpoint{Node: id, Pin: uint(i)}})
		}

		rebuilt = append(rebuilt, graph.Edge{Src: graph.Endpoint{Node: id, Pin: 0}, Dst: dst})
	}

	b.prog.Edges = rebuilt
}

// destinationIsBool reports whether a destination pin's scalar is already
// known to be bool at this point in lowering: either declared explicitly
// (stage outputs, cell ends, buffer/external pins) or, failing that, inferred
// from the uniform scalar of its own fan-in sources.
func (b *Builder) destinationIsBool(dst graph.Endpoint) bool {
	node := b.prog.Node(dst.Node)

	if pin, ok := node.Inputs.ByIndex(dst.Pin); ok && pin.Shape.Scalar != graph.ScalarUnresolved {
		return pin.Shape.Scalar == graph.Bool
	}

	allBool := true
	any := false

	for _, e := range b.prog.EdgesInto(dst) {
		srcNode := b.prog.Node(e.Src.Node)
		if pin, ok := srcNode.Outputs.ByIndex(e.Src.Pin); ok {
			any = true

			if pin.Shape.Scalar != graph.Bool {
				allBool = false
			}
		}
	}

	return any && allBool
}

func (b *Builder) stageOutputRefEndpoint(stage graph.StageID, index uint) graph.Endpoint {
	if m, ok := b.stageOutputRefNodes[stage]; ok {
		if id, ok := m[index]; ok {
			return graph.Endpoint{Node: id, Pin: 0}
		}
	} else {
		b.stageOutputRefNodes[stage] = make(map[uint]graph.NodeID)
	}

	pin, _ := b.prog.Stage(stage).Outputs.ByIndex(index)

	node := graph.NewNode(0, graph.KindStageOutputRef, b.stage, source.Span{})
	node.SetAttr("stage", stage)
	node.SetAttr("output_index", index)
	node.Outputs.Add(graph.Pin{Direction: graph.Out, Shape: pin.Shape, Rate: graph.S})
	id := b.prog.AddNode(node)
	b.stageOutputRefNodes[stage][index] = id

	return graph.Endpoint{Node: id, Pin: 0}
}
