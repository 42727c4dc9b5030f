package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/synthizer/waveling/pkg/compiler"
	"github.com/synthizer/waveling/pkg/config"
	"github.com/synthizer/waveling/pkg/source"
)

// wireDiagnostic is the JSON rendering of a source.Diagnostic (§6: "each
// diagnostic has a severity, a code, a primary source span... and a human
// message"), the one diagnostic-*formatting* concern this repository owns
// per SPEC_FULL.md.
type wireDiagnostic struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

// printDiagnostics renders diags in the requested format and reports
// whether any error-severity diagnostic was present.
func printDiagnostics(file *source.File, diags []source.Diagnostic, format config.Format) bool {
	hasErrors := false

	for _, d := range diags {
		if d.Severity == source.Error {
			hasErrors = true
		}
	}

	switch format {
	case config.FormatJSON:
		wire := make([]wireDiagnostic, 0, len(diags))

		for _, d := range diags {
			line, col := file.Position(d.Primary.Start())
			wire = append(wire, wireDiagnostic{
				Severity: d.Severity.String(), Code: string(d.Code),
				File: file.Filename(), Line: line, Column: col, Message: d.Message,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(wire)
	default:
		for _, line := range compiler.FormatDiagnostics(file, diags) {
			fmt.Println(line)
		}
	}

	return hasErrors
}
