// Package retime finds the smallest clock period a circuit can reach by
// relocating its registers, and the retiming that reaches it.
package retime

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/retime/timing/circuit"
	"github.com/sarchlab/retime/timing/diffcons"
)

// Outcome is the final state of a minimization request.
type Outcome int

const (
	// Searching is the state while probes are still running.
	Searching Outcome = iota
	// Found means a feasible period was located.
	Found
	// Exhausted means no candidate period admits a retiming.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Searching:
		return "searching"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the answer to one minimization request.
type Result struct {
	RequestID xid.ID
	Outcome   Outcome

	// Period is the minimal period. Only meaningful when Outcome is Found.
	Period float64
	// Original is the period of the circuit before retiming.
	Original float64
	// Retiming reaches Period. Boundary vertices are 0.
	Retiming circuit.Retiming

	Candidates []float64
	Probes     int

	// Cause explains an Exhausted outcome when one is known.
	Cause error
}

// Option configures a Minimizer.
type Option func(*Minimizer)

// WithLogger sets the logger used for probe diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(m *Minimizer) {
		m.log = log
	}
}

// WithParallelProbes lets up to n probes run at once. The search narrows the
// candidate range n+1 ways per round instead of halving it.
func WithParallelProbes(n int) Option {
	return func(m *Minimizer) {
		if n < 1 {
			n = 1
		}
		m.parallel = n
	}
}

// WithSolver replaces the constraint solver.
func WithSolver(s *diffcons.Solver) Option {
	return func(m *Minimizer) {
		m.solver = s
	}
}

// Minimizer searches the candidate periods of a circuit for the smallest
// feasible one.
type Minimizer struct {
	log      logr.Logger
	parallel int
	solver   *diffcons.Solver
}

// NewMinimizer creates a minimizer with the given options.
func NewMinimizer(opts ...Option) *Minimizer {
	m := &Minimizer{
		log:      logr.Discard(),
		parallel: 1,
		solver:   diffcons.NewSolver(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Parallelism returns the number of probes allowed to run at once.
func (m *Minimizer) Parallelism() int {
	return m.parallel
}

// Feasible reports whether g can be retimed to run at period, and returns a
// retiming that does so. An infeasible period is not an error.
func (m *Minimizer) Feasible(g *circuit.Graph, period float64) (circuit.Retiming, bool, error) {
	if period < g.MaxDelay()-m.solver.Epsilon() {
		return nil, false, nil
	}

	s, err := g.Constraints(period)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to build constraints")
	}

	sol, ok := m.solver.Solve(s)
	if !ok {
		return nil, false, nil
	}
	return g.RetimingFrom(sol), true, nil
}

// Minimize finds the smallest candidate period of g that admits a retiming.
// A circuit with a register-free cycle yields an Exhausted result, not an
// error.
func (m *Minimizer) Minimize(g *circuit.Graph) (*Result, error) {
	res := &Result{RequestID: xid.New(), Outcome: Searching}
	log := m.log.WithValues("request", res.RequestID.String())

	cands, err := g.Candidates()
	if errors.Is(err, circuit.ErrCombinationalCycle) {
		log.Info("no retiming possible", "reason", err.Error())
		res.Outcome = Exhausted
		res.Cause = err
		return res, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute candidate periods")
	}
	res.Candidates = cands

	res.Original, err = g.Period()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute current period")
	}

	log.V(1).Info("searching",
		"vertices", g.NumVertices(),
		"wires", g.NumWires(),
		"candidates", len(cands),
		"parallel", m.parallel)

	idx, r, err := m.search(log, g, cands, res)
	if err != nil {
		return nil, err
	}

	if idx == len(cands) {
		res.Outcome = Exhausted
		log.Info("search exhausted", "probes", res.Probes)
		return res, nil
	}

	res.Outcome = Found
	res.Period = cands[idx]
	res.Retiming = r
	log.Info("minimized",
		"period", res.Period,
		"original", res.Original,
		"probes", res.Probes)
	return res, nil
}

type probe struct {
	r  circuit.Retiming
	ok bool
}

// search returns the index of the first feasible candidate, or len(cands)
// when there is none. The retiming for cands[hi] is kept while hi shrinks.
func (m *Minimizer) search(
	log logr.Logger,
	g *circuit.Graph,
	cands []float64,
	res *Result,
) (int, circuit.Retiming, error) {
	lo, hi := 0, len(cands)
	var best circuit.Retiming

	for lo < hi {
		idxs := probePoints(lo, hi, m.parallel)
		probes := make([]probe, len(idxs))

		if err := m.runProbes(log, g, cands, idxs, probes); err != nil {
			return 0, nil, err
		}
		res.Probes += len(idxs)

		newLo, newHi := lo, hi
		for i, k := range idxs {
			if probes[i].ok {
				newHi = k
				best = probes[i].r
				break
			}
			newLo = k + 1
		}
		lo, hi = newLo, newHi
	}

	return hi, best, nil
}

func (m *Minimizer) runProbes(
	log logr.Logger,
	g *circuit.Graph,
	cands []float64,
	idxs []int,
	out []probe,
) error {
	run := func(i int) error {
		c := cands[idxs[i]]
		r, ok, err := m.Feasible(g, probePeriod(c))
		if err != nil {
			return errors.Wrapf(err, "failed to probe period %g", c)
		}
		log.V(1).Info("probe", "period", c, "feasible", ok)
		out[i] = probe{r: r, ok: ok}
		return nil
	}

	if len(idxs) == 1 {
		return run(0)
	}

	var eg errgroup.Group
	eg.SetLimit(m.parallel)
	for i := range idxs {
		i := i
		eg.Go(func() error { return run(i) })
	}
	return eg.Wait()
}

// probePoints spreads up to n strictly increasing indices over [lo, hi).
// With n == 1 it is the midpoint of a binary search.
func probePoints(lo, hi, n int) []int {
	width := hi - lo
	count := n
	if count > width {
		count = width
	}

	idxs := make([]int, count)
	for i := range idxs {
		idxs[i] = lo + (i+1)*width/(count+1)
	}
	return idxs
}

// probePeriod maps a zero candidate, which only a delay-free circuit
// produces, to a positive period the constraint builder accepts.
func probePeriod(c float64) float64 {
	if c <= 0 {
		return 1
	}
	return c
}
