// Command benchmark runs the retiming benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv       Output results in CSV format (default: human-readable)
//	-json      Output results as a JSON report
//	-core      Run only the benchmarks with a known optimum
//	-parallel  Number of probes to run at once
//	-v         Verbose output
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/retime/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as a JSON report")
	coreOnly := flag.Bool("core", false, "Run only benchmarks with a known optimum")
	parallel := flag.Int("parallel", 1, "Number of probes to run at once")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.ParallelProbes = *parallel
	config.Output = os.Stdout
	config.Verbose = *verbose
	if *verbose {
		config.Logger = funcr.New(func(prefix, args string) {
			fmt.Fprintln(os.Stderr, prefix, args)
		}, funcr.Options{Verbosity: 1})
	}

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetBenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("Retiming Benchmark Harness")
		fmt.Println("==========================")
		fmt.Printf("Parallel probes: %d\n", config.ParallelProbes)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON report: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		passed := 0
		for _, r := range results {
			if r.Ok() {
				passed++
			}
		}
		fmt.Println("=== Summary ===")
		fmt.Printf("%d of %d benchmarks passed\n", passed, len(results))
		if passed != len(results) {
			os.Exit(1)
		}
	}
}
