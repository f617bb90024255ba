// Command retime finds the minimal clock period of a timing-annotated
// netlist and the register placement that reaches it.
//
// Usage:
//
//	go run ./cmd/retime [flags] <netlist.{json,yaml,bench}>
//
// Flags:
//
//	-config    Gate delay configuration JSON for .bench netlists
//	-period    Check a target period instead of minimizing
//	-parallel  Number of probes to run at once (default 1)
//	-o         Write the retimed netlist to this file (.json or .yaml)
//	-json      Print the report as JSON
//	-v         Verbose output
//
// The exit code is 0 on success, 1 on errors and 2 when no retiming meets
// the requested or any candidate period.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
