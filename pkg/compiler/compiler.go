package compiler

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/synthizer/waveling/pkg/ast/parser"
	"github.com/synthizer/waveling/pkg/graph"
	"github.com/synthizer/waveling/pkg/source"
)

// Result is the outcome of compiling one source file: the built program
// (never nil; partial when parsing or building reported errors), the serialized
// IR (nil unless every pass reported zero errors), and every diagnostic
// raised along the way.
type Result struct {
	Program     *graph.Program
	IR          []byte
	Diagnostics []source.Diagnostic
}

// Options carries project-level overrides layered on top of a source file's
// own `external { sr: ..., block_size: ... }` values (waveling.yaml's
// default_sample_rate/default_block_size, §6, SPEC_FULL.md "Configuration").
// A zero value applies no overrides.
type Options struct {
	SampleRateOverride uint
	BlockSizeOverride  uint
}

// Compile runs the full pipeline (§2): lex, parse, build the graph, infer
// shapes and rates, validate, constant-fold, and emit. Each pass runs
// best-effort even after an earlier pass reported errors — the builder and
// typer tolerate missing bindings and unresolved shapes by substituting
// placeholder literals, so later passes keep surfacing independent
// diagnostics instead of stopping at the first one (§7). IR emission is the
// one pass explicitly gated: it does not run unless the sink is clean.
func Compile(file *source.File, opts Options) *Result {
	log := logrus.WithField("program", file.Filename())

	sink := source.NewSink()

	log.Debug("parsing")

	astProgram := parser.Parse(file, sink)

	log.WithField("errors", len(sink.Diagnostics())).Debug("building graph")

	prog := Build(astProgram, sink)

	if opts.SampleRateOverride != 0 {
		prog.SampleRate = opts.SampleRateOverride
	}

	if opts.BlockSizeOverride != 0 {
		prog.BlockSize = opts.BlockSizeOverride
	}

	log.Debug("inferring shapes and rates")
	Infer(prog, sink)

	log.Debug("validating")
	Validate(prog, sink)

	log.Debug("constant folding")
	Fold(prog, sink)

	result := &Result{Program: prog, Diagnostics: sink.Diagnostics()}

	if sink.HasErrors() {
		log.WithField("errors", len(sink.Diagnostics())).Warn("compilation failed, skipping IR emission")
		return result
	}

	log.Debug("emitting IR")

	ir, err := Emit(prog)
	if err != nil {
		sink.Error(source.CodeExternal, source.Span{}, "failed to emit IR: %s", err)
		result.Diagnostics = sink.Diagnostics()

		return result
	}

	result.IR = ir

	return result
}

// FormatDiagnostics renders a sink's diagnostics as one line per entry, in
// the `file:line:col: severity[code]: message` style used by the `check`
// and `emit` subcommands' text output.
func FormatDiagnostics(file *source.File, diags []source.Diagnostic) []string {
	lines := make([]string, 0, len(diags))

	for _, d := range diags {
		line, col := file.Position(d.Primary.Start())
		lines = append(lines, fmt.Sprintf("%s:%d:%d: %s[%s]: %s", file.Filename(), line, col, d.Severity, d.Code, d.Message))
	}

	return lines
}
