// Command waveling is the command-line driver for the Waveling compiler
// front end: lexing, parsing, graph construction, type/rate inference,
// validation and constant folding through to the serialized IR contract.
package main

import "github.com/synthizer/waveling/pkg/cmd"

func main() {
	cmd.Execute()
}
