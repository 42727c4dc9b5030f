package source

import "fmt"

// Severity distinguishes a hard compilation failure from an advisory note.
type Severity uint8

const (
	// Warning indicates an advisory diagnostic; it never fails compilation
	// on its own.
	Warning Severity = iota
	// Error indicates a diagnostic that causes compilation to fail (§6, §7).
	Error
)

// String renders a severity the way it is printed in diagnostic output.
func (s Severity) String() string {
	if s == Error {
		return "error"
	}

	return "warning"
}

// Code is a closed taxonomy of diagnostic categories, following §7's
// classification: lexical, syntactic, name-resolution, shape, rate,
// structural, fold, external.
type Code string

// The closed set of diagnostic codes. A pass may emit codes from more than
// one category (the graph builder raises name-resolution, shape and
// structural errors, for instance); Compile() does not consult codes.
const (
	CodeLexical        Code = "lexical"
	CodeSyntactic      Code = "syntactic"
	CodeNameResolution Code = "name-resolution"
	CodeShape          Code = "shape"
	CodeRate           Code = "rate"
	CodeStructural     Code = "structural"
	CodeFold           Code = "fold"
	CodeExternal       Code = "external"
)

// Diagnostic is a single first-class error or warning value, per §6's
// contract: a severity, a code, a primary span, optional secondary spans,
// and a human message.
type Diagnostic struct {
	Severity  Severity
	Code      Code
	Primary   Span
	Secondary []Span
	Message   string
}

// Error implements the error interface so a Diagnostic can be returned from
// ordinary Go functions when only a single diagnostic is in play.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Code, d.Message)
}

// Sink accumulates diagnostics raised across the whole compilation pipeline.
// Passes never stop at the first error (§7): each pass collects everything
// it can, and Compile() runs every pass, skipping only IR emission once an
// error has been recorded.
type Sink struct {
	diagnostics []Diagnostic
}

// NewSink constructs an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{}
}

// Error records an error-severity diagnostic.
func (s *Sink) Error(code Code, span Span, format string, args ...any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Severity: Error,
		Code:     code,
		Primary:  span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// ErrorWith records an error-severity diagnostic carrying secondary spans
// (e.g. "declared here" on a redeclaration error).
func (s *Sink) ErrorWith(code Code, span Span, secondary []Span, format string, args ...any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Severity:  Error,
		Code:      code,
		Primary:   span,
		Secondary: secondary,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Warn records a warning-severity diagnostic.
func (s *Sink) Warn(code Code, span Span, format string, args ...any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Severity: Warning,
		Code:     code,
		Primary:  span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any error-severity diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diagnostics {
		if d.Severity == Error {
			return true
		}
	}

	return false
}

// Diagnostics returns all diagnostics recorded so far, in emission order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// Append merges another sink's diagnostics into this one, preserving order.
func (s *Sink) Append(other *Sink) {
	s.diagnostics = append(s.diagnostics, other.diagnostics...)
}
