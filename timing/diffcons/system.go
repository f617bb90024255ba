// Package diffcons solves systems of difference constraints x_j - x_i <= a
// over a mix of integer and real unknowns.
//
// Integer variables occupy the indices [0, k) and real variables the indices
// [k, n). An edge whose target is a real variable is a real edge; an edge
// whose target is an integer variable is an integer edge. The partition is
// fixed by the variable layout.
package diffcons

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Kind tells whether a variable is integer or real valued.
type Kind int

const (
	// Integer variables take integral values.
	Integer Kind = iota
	// Real variables take arbitrary real values.
	Real
)

func (k Kind) String() string {
	if k == Integer {
		return "integer"
	}
	return "real"
}

// Edge encodes the constraint x[To] - x[From] <= Weight.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// System is a set of difference constraints. Parallel edges between the same
// ordered pair are independent constraints and are kept as is.
type System struct {
	numVars int
	numInts int
	edges   []Edge
}

// NewSystem creates an empty system with numIntegers integer variables
// followed by numReals real variables.
func NewSystem(numIntegers, numReals int) *System {
	if numIntegers < 0 || numReals < 0 {
		panic(fmt.Sprintf("diffcons: negative variable count (%d, %d)",
			numIntegers, numReals))
	}

	return &System{
		numVars: numIntegers + numReals,
		numInts: numIntegers,
	}
}

// AddConstraint adds x_j - x_i <= a. It panics if i or j is out of range.
func (s *System) AddConstraint(i, j int, a float64) {
	s.mustBeVar(i)
	s.mustBeVar(j)
	if math.IsNaN(a) {
		panic(fmt.Sprintf("diffcons: NaN weight on edge %d -> %d", i, j))
	}

	s.edges = append(s.edges, Edge{From: i, To: j, Weight: a})
}

func (s *System) mustBeVar(v int) {
	if v < 0 || v >= s.numVars {
		panic(fmt.Sprintf("diffcons: variable %d out of range [0, %d)", v, s.numVars))
	}
}

// NumVars returns the total number of variables.
func (s *System) NumVars() int {
	return s.numVars
}

// NumIntegers returns the number of integer variables.
func (s *System) NumIntegers() int {
	return s.numInts
}

// Kind returns the kind of variable v.
func (s *System) Kind(v int) Kind {
	s.mustBeVar(v)
	if v < s.numInts {
		return Integer
	}
	return Real
}

// Edges returns the constraints in insertion order. The slice must not be
// modified.
func (s *System) Edges() []Edge {
	return s.edges
}

// IsRealEdge reports whether e targets a real variable.
func (s *System) IsRealEdge(e Edge) bool {
	return e.To >= s.numInts
}

// Check returns an error describing the first constraint violated by x by
// more than eps, or an integer variable whose value is not integral.
func (s *System) Check(x []float64, eps float64) error {
	if len(x) != s.numVars {
		return errors.Errorf("assignment has %d values, system has %d variables",
			len(x), s.numVars)
	}

	for v := 0; v < s.numInts; v++ {
		if math.Abs(x[v]-math.Round(x[v])) > eps {
			return errors.Errorf("integer variable %d has value %g", v, x[v])
		}
	}

	for _, e := range s.edges {
		if x[e.To]-x[e.From] > e.Weight+eps {
			return errors.Errorf("x[%d] - x[%d] = %g exceeds %g",
				e.To, e.From, x[e.To]-x[e.From], e.Weight)
		}
	}

	return nil
}
