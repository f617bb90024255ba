package circuit

import (
	"math"

	"github.com/pkg/errors"

	"github.com/sarchlab/retime/timing/diffcons"
)

// Retiming assigns an integer lag to every vertex, indexed by VertexID.
type Retiming []int

// IsZero reports whether r moves no register.
func (r Retiming) IsZero() bool {
	for _, v := range r {
		if v != 0 {
			return false
		}
	}
	return true
}

// IntegerVar returns the constraint variable r(v) of vertex v.
func (g *Graph) IntegerVar(v VertexID) int {
	return int(v)
}

// RealVar returns the constraint variable R(e) of wire e.
func (g *Graph) RealVar(e WireID) int {
	return len(g.vertices) + int(e)
}

// Constraints builds the difference-constraint system whose feasible
// solutions are retimings meeting the clock period c. Variables r(v) are
// integers, one per vertex; variables R(e) are reals, one per wire, and hold
// the phase at which the signal on e becomes valid, in clock periods.
func (g *Graph) Constraints(c float64) (*diffcons.System, error) {
	if !(c > 0) || math.IsInf(c, 0) {
		return nil, errors.Errorf("clock period must be > 0, got %g", c)
	}

	s := diffcons.NewSystem(len(g.vertices), len(g.wires))

	// r(v) - R(e) <= -d/c for every output e of an internal edge of v.
	for _, vert := range g.vertices {
		for _, ie := range g.InternalEdges(vert.ID) {
			for _, eb := range ie.Outputs {
				s.AddConstraint(g.RealVar(eb), g.IntegerVar(vert.ID), -ie.Delay/c)
			}
		}
	}

	// R(e) - r(u) <= 1 for every wire e leaving u.
	for _, w := range g.wires {
		s.AddConstraint(g.IntegerVar(w.Tail), g.RealVar(w.ID), 1)
	}

	// r(u) - r(v) <= min w over the wires u -> v.
	type pairKey struct{ tail, head VertexID }
	order := []pairKey{}
	minW := map[pairKey]int{}
	for _, w := range g.wires {
		k := pairKey{w.Tail, w.Head}
		cur, ok := minW[k]
		if !ok {
			order = append(order, k)
			minW[k] = w.Registers
		} else if w.Registers < cur {
			minW[k] = w.Registers
		}
	}
	for _, k := range order {
		s.AddConstraint(g.IntegerVar(k.head), g.IntegerVar(k.tail), float64(minW[k]))
	}

	// R(ea) - R(eb) <= w(ea) - d/c for every input/output pair of an
	// internal edge, unless ea leaves a boundary vertex.
	for _, vert := range g.vertices {
		for _, ie := range g.InternalEdges(vert.ID) {
			for _, ea := range ie.Inputs {
				if !g.couples(ea) {
					continue
				}
				a := float64(g.wires[ea].Registers) - ie.Delay/c
				for _, eb := range ie.Outputs {
					s.AddConstraint(g.RealVar(eb), g.RealVar(ea), a)
				}
			}
		}
	}

	// Boundary vertices share one retiming value.
	pin := g.boundaries[0]
	for _, b := range g.boundaries[1:] {
		s.AddConstraint(g.IntegerVar(pin), g.IntegerVar(b), 0)
		s.AddConstraint(g.IntegerVar(b), g.IntegerVar(pin), 0)
	}

	return s, nil
}

// RetimingFrom extracts the retiming from a solution of the system built by
// Constraints, shifted so that the boundary vertices get 0.
func (g *Graph) RetimingFrom(sol diffcons.Solution) Retiming {
	base := sol.Int(g.IntegerVar(g.boundaries[0]))
	r := make(Retiming, len(g.vertices))
	for v := range r {
		r[v] = sol.Int(g.IntegerVar(VertexID(v))) - base
	}
	return r
}
