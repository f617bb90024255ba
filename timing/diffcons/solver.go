package diffcons

import (
	"container/heap"
	"math"
)

// DefaultEpsilon is the tolerance used when comparing constraint weights.
const DefaultEpsilon = 1e-9

// Solution is a satisfying assignment of a System.
type Solution struct {
	Values []float64
}

// Value returns the value of variable v.
func (s Solution) Value(v int) float64 {
	return s.Values[v]
}

// Int returns the value of variable v rounded to the nearest integer. It is
// exact for integer variables.
func (s Solution) Int(v int) int {
	return int(math.Round(s.Values[v]))
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithEpsilon sets the numeric tolerance of the solver.
func WithEpsilon(eps float64) SolverOption {
	return func(s *Solver) {
		s.eps = eps
	}
}

// Solver finds assignments for mixed integer/real difference constraint
// systems. A Solver holds no per-solve state and may be shared between
// goroutines.
type Solver struct {
	eps float64
}

// NewSolver creates a solver with the given options.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{eps: DefaultEpsilon}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Epsilon returns the numeric tolerance of the solver.
func (sv *Solver) Epsilon() float64 {
	return sv.eps
}

// reducedEdge is an edge with its weight rewritten against the potentials
// computed by the reweighting phase.
type reducedEdge struct {
	from, to int
	weight   float64
}

// Solve returns an assignment satisfying every constraint of s, or false if
// the system is infeasible. Infeasibility is a normal result.
//
// The solver first computes potentials r with Bellman-Ford over the real
// edges only, which makes every real edge weight non-negative once reduced.
// It then runs k rounds of floor-relaxation over the integer edges, each
// followed by Dijkstra over the real edges, and validates the result.
func (sv *Solver) Solve(s *System) (Solution, bool) {
	n, k := s.numVars, s.numInts

	r, ok := sv.potentials(s)
	if !ok {
		return Solution{}, false
	}

	var intEdges []reducedEdge
	realOut := make([][]reducedEdge, n)
	for _, e := range s.edges {
		b := e.Weight + r[e.From] - r[e.To]
		re := reducedEdge{from: e.From, to: e.To, weight: b}
		if s.IsRealEdge(e) {
			if re.weight < 0 {
				re.weight = 0
			}
			realOut[e.From] = append(realOut[e.From], re)
		} else {
			intEdges = append(intEdges, re)
		}
	}

	y := make([]float64, n)
	for round := 0; round < k; round++ {
		changed := sv.relaxIntegers(y, intEdges)
		if sv.relaxReals(y, realOut) {
			changed = true
		}
		if !changed {
			break
		}
	}

	for _, e := range intEdges {
		if y[e.to] > y[e.from]+e.weight+sv.eps {
			return Solution{}, false
		}
	}
	for _, out := range realOut {
		for _, e := range out {
			if y[e.to] > y[e.from]+e.weight+sv.eps {
				return Solution{}, false
			}
		}
	}

	x := make([]float64, n)
	for v := range x {
		x[v] = y[v] + r[v]
	}
	for v := 0; v < k; v++ {
		x[v] = math.Round(x[v])
	}

	return Solution{Values: x}, true
}

// potentials runs n-k rounds of Bellman-Ford restricted to real edges. A real
// edge that can still be relaxed afterwards closes a negative cycle among
// real variables.
func (sv *Solver) potentials(s *System) ([]float64, bool) {
	n, k := s.numVars, s.numInts
	r := make([]float64, n)

	var realEdges []Edge
	for _, e := range s.edges {
		if s.IsRealEdge(e) {
			realEdges = append(realEdges, e)
		}
	}

	for round := 0; round < n-k; round++ {
		changed := false
		for _, e := range realEdges {
			if d := r[e.From] + e.Weight; d < r[e.To] {
				r[e.To] = d
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, e := range realEdges {
		if r[e.From]+e.Weight < r[e.To]-sv.eps {
			return nil, false
		}
	}

	return r, true
}

// relaxIntegers applies y[j] = min(y[j], floor(y[i] + b)) to every integer
// edge once.
func (sv *Solver) relaxIntegers(y []float64, edges []reducedEdge) bool {
	changed := false
	for _, e := range edges {
		if d := math.Floor(y[e.from] + e.weight + sv.eps); d < y[e.to] {
			y[e.to] = d
			changed = true
		}
	}
	return changed
}

// relaxReals runs Dijkstra over the real edges from every vertex at once,
// using the current y as initial distances.
func (sv *Solver) relaxReals(y []float64, out [][]reducedEdge) bool {
	h := make(distHeap, 0, len(y))
	for v, edges := range out {
		if len(edges) > 0 {
			h = append(h, heapItem{v: v, dist: y[v]})
		}
	}
	heap.Init(&h)

	changed := false
	for h.Len() > 0 {
		item := h.pop()
		if item.dist > y[item.v] {
			continue
		}
		for _, e := range out[item.v] {
			if d := item.dist + e.weight; d < y[e.to] {
				y[e.to] = d
				changed = true
				h.push(e.to, d)
			}
		}
	}

	return changed
}
