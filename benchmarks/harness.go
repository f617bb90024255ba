package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/retime/timing/circuit"
	"github.com/sarchlab/retime/timing/retime"
)

// Version is reported in JSON benchmark reports.
const Version = "1.0.0"

// periodTolerance absorbs float round-off when comparing periods.
const periodTolerance = 1e-9

// Benchmark defines a single retiming benchmark.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the circuit is
	Description string

	// Build constructs a fresh copy of the circuit
	Build func() (*circuit.Graph, error)

	// ExpectedPeriod is the known optimum, or 0 when it is not known
	ExpectedPeriod float64
}

// BenchmarkResult holds the outcome of minimizing one benchmark circuit.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`

	Vertices  int `json:"vertices"`
	Wires     int `json:"wires"`
	Registers int `json:"registers"`

	Outcome string `json:"outcome"`

	// OriginalPeriod is the clock period before retiming
	OriginalPeriod float64 `json:"original_period"`

	// Period is the minimal period found by the search
	Period float64 `json:"period"`

	// AchievedPeriod is the period measured on the retimed circuit
	AchievedPeriod float64 `json:"achieved_period"`

	// ExpectedPeriod is the known optimum, 0 if unknown
	ExpectedPeriod float64 `json:"expected_period,omitempty"`

	// MaxFrequencyMHz is the clock frequency Period allows, assuming
	// delays in nanoseconds
	MaxFrequencyMHz float64 `json:"max_frequency_mhz"`

	Candidates int `json:"candidates"`
	Probes     int `json:"probes"`

	// Error is set when the benchmark could not be run
	Error string `json:"error,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// Speedup returns OriginalPeriod / Period.
func (r BenchmarkResult) Speedup() float64 {
	if r.Period <= 0 {
		return 0
	}
	return r.OriginalPeriod / r.Period
}

// Ok reports whether the benchmark ran, the retimed circuit meets the found
// period and a known optimum was matched.
func (r BenchmarkResult) Ok() bool {
	if r.Error != "" || r.Outcome != retime.Found.String() {
		return false
	}
	if r.AchievedPeriod > r.Period+periodTolerance {
		return false
	}
	if r.ExpectedPeriod > 0 && !closeTo(r.Period, r.ExpectedPeriod) {
		return false
	}
	return true
}

func closeTo(a, b float64) bool {
	d := a - b
	return d <= periodTolerance && d >= -periodTolerance
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// ParallelProbes is the number of probes the minimizer may run at once
	ParallelProbes int

	// Logger receives minimizer diagnostics
	Logger logr.Logger

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		ParallelProbes: 1,
		Logger:         logr.Discard(),
		Output:         os.Stdout,
		Verbose:        false,
	}
}

// Harness runs retiming benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	m := retime.NewMinimizer(
		retime.WithParallelProbes(h.config.ParallelProbes),
		retime.WithLogger(h.config.Logger),
	)

	results := make([]BenchmarkResult, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(m, bench))
	}
	return results
}

func (h *Harness) runBenchmark(m *retime.Minimizer, bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:           bench.Name,
		Description:    bench.Description,
		ExpectedPeriod: bench.ExpectedPeriod,
	}

	g, err := bench.Build()
	if err != nil {
		result.Error = fmt.Sprintf("failed to build circuit: %v", err)
		return result
	}
	result.Vertices = g.NumVertices()
	result.Wires = g.NumWires()
	result.Registers = g.TotalRegisters()

	start := time.Now()
	res, err := m.Minimize(g)
	result.WallTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.RequestID = res.RequestID.String()
	result.Outcome = res.Outcome.String()
	result.OriginalPeriod = res.Original
	result.Candidates = len(res.Candidates)
	result.Probes = res.Probes
	if res.Outcome != retime.Found {
		return result
	}

	result.Period = res.Period
	result.MaxFrequencyMHz = retime.MHz(retime.Frequency(res.Period))

	retimed, err := g.Apply(res.Retiming)
	if err != nil {
		result.Error = fmt.Sprintf("failed to apply retiming: %v", err)
		return result
	}
	result.AchievedPeriod, err = retimed.Period()
	if err != nil {
		result.Error = fmt.Sprintf("failed to measure retimed circuit: %v", err)
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Retiming Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
			_, _ = fmt.Fprintln(h.config.Output, "")
			continue
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Outcome: %s\n", r.Outcome)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Circuit ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Vertices:  %d\n", r.Vertices)
		_, _ = fmt.Fprintf(h.config.Output, "  Wires:     %d\n", r.Wires)
		_, _ = fmt.Fprintf(h.config.Output, "  Registers: %d\n", r.Registers)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Period ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Original:  %.3f\n", r.OriginalPeriod)
		_, _ = fmt.Fprintf(h.config.Output, "  Minimal:   %.3f\n", r.Period)
		_, _ = fmt.Fprintf(h.config.Output, "  Achieved:  %.3f\n", r.AchievedPeriod)
		if r.ExpectedPeriod > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Expected:  %.3f\n", r.ExpectedPeriod)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Speedup:   %.2fx\n", r.Speedup())
		_, _ = fmt.Fprintf(h.config.Output, "  Max Freq:  %.1f MHz\n", r.MaxFrequencyMHz)
		if h.config.Verbose {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Search ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Candidates: %d\n", r.Candidates)
			_, _ = fmt.Fprintf(h.config.Output, "  Probes:     %d\n", r.Probes)
			_, _ = fmt.Fprintf(h.config.Output, "  Request:    %s\n", r.RequestID)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,vertices,wires,registers,outcome,original_period,period,achieved_period,expected_period,max_freq_mhz,candidates,probes,wall_time_ns")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%s,%.3f,%.3f,%.3f,%.3f,%.1f,%d,%d,%d\n",
			r.Name,
			r.Vertices,
			r.Wires,
			r.Registers,
			r.Outcome,
			r.OriginalPeriod,
			r.Period,
			r.AchievedPeriod,
			r.ExpectedPeriod,
			r.MaxFrequencyMHz,
			r.Candidates,
			r.Probes,
			r.WallTime.Nanoseconds(),
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp      string `json:"timestamp"`
	Version        string `json:"version"`
	ParallelProbes int    `json:"parallel_probes"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks int           `json:"total_benchmarks"`
	Passed          int           `json:"passed"`
	TotalProbes     int           `json:"total_probes"`
	MeanSpeedup     float64       `json:"mean_speedup"`
	TotalWallTime   time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	speedups := 0
	for _, r := range results {
		if r.Ok() {
			summary.Passed++
		}
		if s := r.Speedup(); s > 0 {
			summary.MeanSpeedup += s
			speedups++
		}
		summary.TotalProbes += r.Probes
		summary.TotalWallTime += r.WallTime
	}
	if speedups > 0 {
		summary.MeanSpeedup /= float64(speedups)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			Version:        Version,
			ParallelProbes: h.config.ParallelProbes,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
