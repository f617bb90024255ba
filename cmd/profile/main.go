// Package main profiles the retiming minimizer on generated circuits to
// identify performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/retime/benchmarks"
	"github.com/sarchlab/retime/timing/circuit"
	"github.com/sarchlab/retime/timing/retime"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	size       = flag.Int("n", 256, "number of elements in the generated circuit")
	seed       = flag.Uint64("seed", 1, "seed of the generated circuit")
	repeat     = flag.Int("repeat", 1, "number of times to run the minimizer")
	parallel   = flag.Int("parallel", 1, "number of probes to run at once")
	duration   = flag.Duration("duration", 5*time.Minute, "max duration to run (for profiling)")
)

func main() {
	flag.Parse()

	if *size < 1 || *repeat < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	g, err := benchmarks.Generated(*seed, *size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating circuit: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated: %d vertices, %d wires, %d registers\n",
		g.NumVertices(), g.NumWires(), g.TotalRegisters())

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping\n", *duration)
		os.Exit(2)
	}()

	start := time.Now()
	res, probes := runProfile(g)
	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Outcome: %s\n", res.Outcome)
	fmt.Printf("Original period: %.3f\n", res.Original)
	fmt.Printf("Minimal period: %.3f\n", res.Period)
	fmt.Printf("Candidates: %d\n", len(res.Candidates))
	fmt.Printf("Probes: %d\n", probes)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if probes > 0 {
		fmt.Printf("Time/probe: %v\n", elapsed/time.Duration(probes))
	}
}

// runProfile minimizes g repeatedly and returns the last result and the
// total number of probes.
func runProfile(g *circuit.Graph) (*retime.Result, int) {
	m := retime.NewMinimizer(retime.WithParallelProbes(*parallel))

	var res *retime.Result
	probes := 0
	for i := 0; i < *repeat; i++ {
		var err error
		res, err = m.Minimize(g)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error minimizing: %v\n", err)
			os.Exit(1)
		}
		probes += res.Probes
	}
	return res, probes
}
