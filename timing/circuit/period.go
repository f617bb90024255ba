package circuit

import (
	"github.com/pkg/errors"
)

// Apply returns a copy of g with every wire's register count moved by the
// retiming: w'(e) = w(e) + r(head(e)) - r(tail(e)). Register totals around
// every cycle are unchanged because the r terms telescope.
func (g *Graph) Apply(r Retiming) (*Graph, error) {
	if len(r) != len(g.vertices) {
		return nil, errors.Errorf("retiming has %d entries, graph has %d vertices",
			len(r), len(g.vertices))
	}

	clone := g.Clone()
	for i, w := range clone.wires {
		nw := w.Registers + r[w.Head] - r[w.Tail]
		if nw < 0 {
			return nil, errors.Wrapf(ErrNegativeRegisters,
				"wire %d (%s -> %s) would carry %d", w.ID,
				g.vertices[w.Tail].Name, g.vertices[w.Head].Name, nw)
		}
		clone.wires[i].Registers = nw
	}
	return clone, nil
}

const (
	unvisited = iota
	visiting
	visited
)

// Period returns the clock period of g as it stands: the longest delay of a
// register-free path, and at least the largest element delay. Paths do not
// continue through boundary vertices.
func (g *Graph) Period() (float64, error) {
	arrival := make([]float64, len(g.wires))
	state := make([]uint8, len(g.wires))

	var visit func(e WireID) error
	visit = func(e WireID) error {
		switch state[e] {
		case visited:
			return nil
		case visiting:
			return errors.Wrapf(ErrCombinationalCycle, "through wire %d", e)
		}
		state[e] = visiting

		t := 0.0
		for _, ie := range g.InternalEdges(g.wires[e].Tail) {
			if !containsWire(ie.Outputs, e) {
				continue
			}
			in := 0.0
			for _, ea := range ie.Inputs {
				if !g.couples(ea) || g.wires[ea].Registers > 0 {
					continue
				}
				if err := visit(ea); err != nil {
					return err
				}
				if arrival[ea] > in {
					in = arrival[ea]
				}
			}
			if in+ie.Delay > t {
				t = in + ie.Delay
			}
		}

		arrival[e] = t
		state[e] = visited
		return nil
	}

	period := g.MaxDelay()
	for e := range g.wires {
		if err := visit(WireID(e)); err != nil {
			return 0, err
		}
		if arrival[e] > period {
			period = arrival[e]
		}
	}
	return period, nil
}

func containsWire(wires []WireID, e WireID) bool {
	for _, w := range wires {
		if w == e {
			return true
		}
	}
	return false
}
