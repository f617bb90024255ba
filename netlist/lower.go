package netlist

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/retime/timing/circuit"
)

// Lowered ties a Circuit to the circuit graph built from it.
type Lowered struct {
	Graph *circuit.Graph

	source   *Circuit
	vertexOf map[string]circuit.VertexID
	names    []string
	wireOf   []circuit.WireID
}

// Lower builds the circuit graph of c. All ports map to the host boundary
// vertex, every component to one vertex and every netlist wire to one graph
// wire. Each output pin of a component becomes an internal edge fed by the
// input pins that have an arc to it, with the largest of those arc delays.
func Lower(c *Circuit) (*Lowered, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	l := &Lowered{
		Graph:    circuit.NewGraph(),
		source:   c.Clone(),
		vertexOf: make(map[string]circuit.VertexID, len(c.Components)),
		names:    []string{"host"},
		wireOf:   make([]circuit.WireID, len(c.Wires)),
	}

	for _, comp := range c.Components {
		delay := 0.0
		for _, arc := range comp.Arcs {
			if arc.Delay > delay {
				delay = arc.Delay
			}
		}
		v, err := l.Graph.AddVertex(comp.Name, delay)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add component %q", comp.Name)
		}
		l.vertexOf[comp.Name] = v
		l.names = append(l.names, comp.Name)
	}

	pinWires := map[PinRef][]circuit.WireID{}
	for i, w := range c.Wires {
		e, err := l.Graph.AddWire(l.endpoint(w.From), l.endpoint(w.To), w.Registers)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add wire %s -> %s", w.From, w.To)
		}
		l.wireOf[i] = e
		pinWires[w.From] = append(pinWires[w.From], e)
		pinWires[w.To] = append(pinWires[w.To], e)
	}

	for _, comp := range c.Components {
		if len(comp.Outputs) == 0 {
			continue
		}
		v := l.vertexOf[comp.Name]
		for _, out := range comp.Outputs {
			var inputs []circuit.WireID
			delay := 0.0
			for _, arc := range comp.Arcs {
				if arc.To != out {
					continue
				}
				inputs = append(inputs, pinWires[PinRef{Component: comp.Name, Pin: arc.From}]...)
				if arc.Delay > delay {
					delay = arc.Delay
				}
			}
			outputs := pinWires[PinRef{Component: comp.Name, Pin: out}]
			if err := l.Graph.AddInternalEdge(v, delay, inputs, outputs); err != nil {
				return nil, errors.Wrapf(err, "failed to add timing arcs of %s.%s", comp.Name, out)
			}
		}
	}

	return l, nil
}

func (l *Lowered) endpoint(p PinRef) circuit.VertexID {
	if p.IsPort() {
		return circuit.HostVertex
	}
	return l.vertexOf[p.Component]
}

// Vertex returns the vertex of the named component.
func (l *Lowered) Vertex(component string) (circuit.VertexID, bool) {
	v, ok := l.vertexOf[component]
	return v, ok
}

// Name returns the component name of vertex v, or "host" for the boundary.
func (l *Lowered) Name(v circuit.VertexID) string {
	return l.names[v]
}

// Named maps a retiming onto component names. The host is left out.
func (l *Lowered) Named(r circuit.Retiming) map[string]int {
	out := make(map[string]int, len(l.vertexOf))
	for name, v := range l.vertexOf {
		out[name] = r[v]
	}
	return out
}

// WireChange records how a retiming moved the registers of one wire.
type WireChange struct {
	Index  int
	Wire   Wire
	Before int
	After  int
}

// Delta summarizes the structural work a retiming asks for.
type Delta struct {
	Changes []WireChange
	Added   int
	Removed int
}

// Apply returns the circuit with r applied to its register counts, and the
// per-wire changes. The receiver is not modified.
func (l *Lowered) Apply(r circuit.Retiming) (*Circuit, Delta, error) {
	retimed, err := l.Graph.Apply(r)
	if err != nil {
		return nil, Delta{}, errors.Wrap(err, "failed to apply retiming")
	}

	c := l.source.Clone()
	var d Delta
	for i := range c.Wires {
		before := c.Wires[i].Registers
		after := retimed.Wire(l.wireOf[i]).Registers
		if before == after {
			continue
		}

		c.Wires[i].Registers = after
		d.Changes = append(d.Changes, WireChange{
			Index:  i,
			Wire:   c.Wires[i],
			Before: before,
			After:  after,
		})
		if after > before {
			d.Added += after - before
		} else {
			d.Removed += before - after
		}
	}
	return c, d, nil
}
