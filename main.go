// Package main provides the entry point for retime.
// retime relocates the registers of a timing-annotated circuit to minimize
// its clock period.
//
// For the full CLI, use: go run ./cmd/retime
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("retime - register retiming for timing-annotated circuits")
	fmt.Println("")
	fmt.Println("Usage: retime [options] <netlist.{json,yaml,bench}>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to gate delay configuration JSON file")
	fmt.Println("  -period    Check a target period instead of minimizing")
	fmt.Println("  -parallel  Number of probes to run at once")
	fmt.Println("  -o         Write the retimed netlist to this file")
	fmt.Println("  -json      Print the report as JSON")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/retime' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/retime' instead.")
	}
}
