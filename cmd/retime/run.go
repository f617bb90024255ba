package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/pkg/errors"

	"github.com/sarchlab/retime/netlist"
	"github.com/sarchlab/retime/timing/circuit"
	"github.com/sarchlab/retime/timing/latency"
	"github.com/sarchlab/retime/timing/retime"
)

const (
	exitOK         = 0
	exitError      = 1
	exitInfeasible = 2
)

type options struct {
	configPath string
	period     float64
	parallel   int
	outPath    string
	jsonOutput bool
	verbose    bool
}

// report is the JSON form of the command's result.
type report struct {
	RequestID        string         `json:"request_id,omitempty"`
	Circuit          string         `json:"circuit"`
	Unit             string         `json:"unit,omitempty"`
	Mode             string         `json:"mode"`
	Outcome          string         `json:"outcome"`
	OriginalPeriod   float64        `json:"original_period"`
	Period           float64        `json:"period,omitempty"`
	MaxFrequencyMHz  float64        `json:"max_frequency_mhz,omitempty"`
	Retiming         map[string]int `json:"retiming,omitempty"`
	RegistersAdded   int            `json:"registers_added"`
	RegistersRemoved int            `json:"registers_removed"`
	Probes           int            `json:"probes,omitempty"`
	Cause            string         `json:"cause,omitempty"`
}

func parseFlags(args []string, stderr io.Writer) (*options, string, error) {
	fs := flag.NewFlagSet("retime", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to gate delay configuration JSON file")
	fs.Float64Var(&opts.period, "period", 0, "Check this target period instead of minimizing")
	fs.IntVar(&opts.parallel, "parallel", 1, "Number of probes to run at once")
	fs.StringVar(&opts.outPath, "o", "", "Write the retimed netlist to this file")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: retime [options] <netlist>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, "", errors.Errorf("expected one netlist, got %d arguments", fs.NArg())
	}
	return opts, fs.Arg(0), nil
}

func newLogger(stderr io.Writer, verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: verbosity}).WithName("retime")
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, path, err := parseFlags(args, stderr)
	if err != nil {
		return exitError
	}

	timingConfig := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		timingConfig, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error loading timing config: %v\n", err)
			return exitError
		}
	}

	c, err := netlist.Load(path, latency.NewTableWithConfig(timingConfig))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading netlist: %v\n", err)
		return exitError
	}

	lowered, err := netlist.Lower(c)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error building circuit graph: %v\n", err)
		return exitError
	}

	m := retime.NewMinimizer(
		retime.WithParallelProbes(opts.parallel),
		retime.WithLogger(newLogger(stderr, opts.verbose)),
	)

	rep := &report{Circuit: c.Name, Unit: c.Unit, Mode: "minimize"}
	if opts.period > 0 {
		rep.Mode = "check"
	}
	if rep.Circuit == "" {
		rep.Circuit = path
	}

	rep.OriginalPeriod, err = lowered.Graph.Period()
	if err != nil {
		rep.Outcome = retime.Exhausted.String()
		rep.Cause = err.Error()
		return finish(stdout, stderr, opts, rep, exitInfeasible)
	}

	var r circuit.Retiming
	if opts.period > 0 {
		var ok bool
		r, ok, err = m.Feasible(lowered.Graph, opts.period)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error checking period: %v\n", err)
			return exitError
		}
		if !ok {
			rep.Outcome = "infeasible"
			return finish(stdout, stderr, opts, rep, exitInfeasible)
		}
		rep.Outcome = "feasible"
		rep.Period = opts.period
	} else {
		res, err := m.Minimize(lowered.Graph)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error minimizing period: %v\n", err)
			return exitError
		}
		rep.RequestID = res.RequestID.String()
		rep.Outcome = res.Outcome.String()
		rep.Probes = res.Probes
		if res.Outcome != retime.Found {
			if res.Cause != nil {
				rep.Cause = res.Cause.Error()
			}
			return finish(stdout, stderr, opts, rep, exitInfeasible)
		}
		r = res.Retiming
		rep.Period = res.Period
	}

	rep.MaxFrequencyMHz = retime.MHz(retime.Frequency(rep.Period))
	rep.Retiming = lowered.Named(r)

	retimed, delta, err := lowered.Apply(r)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error applying retiming: %v\n", err)
		return exitError
	}
	rep.RegistersAdded = delta.Added
	rep.RegistersRemoved = delta.Removed

	if opts.outPath != "" {
		if err := netlist.Save(opts.outPath, retimed); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing netlist: %v\n", err)
			return exitError
		}
	}

	code := finish(stdout, stderr, opts, rep, exitOK)
	if code == exitOK && opts.verbose && !opts.jsonOutput {
		printDelta(stdout, delta)
	}
	return code
}

func finish(stdout, stderr io.Writer, opts *options, rep *report, code int) int {
	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing report: %v\n", err)
			return exitError
		}
		return code
	}

	printReport(stdout, rep, opts.verbose)
	return code
}

func printReport(w io.Writer, rep *report, verbose bool) {
	unit := rep.Unit
	if unit == "" {
		unit = "ns"
	}

	_, _ = fmt.Fprintf(w, "Circuit: %s\n", rep.Circuit)
	_, _ = fmt.Fprintf(w, "Mode: %s\n", rep.Mode)
	_, _ = fmt.Fprintf(w, "Outcome: %s\n", rep.Outcome)
	_, _ = fmt.Fprintf(w, "Original period: %.3f %s\n", rep.OriginalPeriod, unit)
	if rep.Cause != "" {
		_, _ = fmt.Fprintf(w, "Cause: %s\n", rep.Cause)
	}
	if rep.Period > 0 {
		_, _ = fmt.Fprintf(w, "Period: %.3f %s\n", rep.Period, unit)
		if unit == "ns" {
			_, _ = fmt.Fprintf(w, "Max frequency: %.1f MHz\n", rep.MaxFrequencyMHz)
		}
	}
	if rep.Retiming == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Registers added: %d, removed: %d\n", rep.RegistersAdded, rep.RegistersRemoved)

	names := make([]string, 0, len(rep.Retiming))
	for name, lag := range rep.Retiming {
		if lag != 0 || verbose {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if len(names) > 0 {
		_, _ = fmt.Fprintln(w, "Retiming:")
	}
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-16s %+d\n", name, rep.Retiming[name])
	}
}

func printDelta(w io.Writer, d netlist.Delta) {
	if len(d.Changes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Wire changes:")
	for _, ch := range d.Changes {
		_, _ = fmt.Fprintf(w, "  %s -> %s: %d -> %d\n", ch.Wire.From, ch.Wire.To, ch.Before, ch.After)
	}
}
