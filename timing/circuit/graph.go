// Package circuit provides the extended circuit model used for retiming.
//
// A Graph is a bipartite structure of vertices (functional elements, each
// owning delay-annotated internal edges) and wires (external edges carrying a
// register count). Vertex 0 is reserved for the circuit boundary.
package circuit

import (
	"math"

	"github.com/pkg/errors"
)

// VertexID identifies a vertex of a Graph.
type VertexID int

// WireID identifies a wire of a Graph.
type WireID int

// HostVertex is the boundary vertex every Graph is created with.
const HostVertex VertexID = 0

var (
	// ErrUnknownVertex is returned when a vertex id does not exist.
	ErrUnknownVertex = errors.New("unknown vertex")
	// ErrUnknownWire is returned when a wire id does not exist.
	ErrUnknownWire = errors.New("unknown wire")
	// ErrNegativeRegisters is returned for wires with fewer than zero registers.
	ErrNegativeRegisters = errors.New("negative register count")
	// ErrNegativeDelay is returned for negative or NaN delays.
	ErrNegativeDelay = errors.New("negative delay")
	// ErrMisconnectedEdge is returned when an internal edge refers to wires
	// that do not end or start at its vertex.
	ErrMisconnectedEdge = errors.New("internal edge wire not incident to vertex")
	// ErrCombinationalCycle is returned for cycles without registers.
	ErrCombinationalCycle = errors.New("combinational cycle")
)

// Vertex is a functional element or a boundary vertex.
type Vertex struct {
	ID       VertexID
	Name     string
	Boundary bool

	// Delay is the vertex delay. With explicit internal edges it is the
	// largest of their delays.
	Delay float64

	// In and Out list the wires ending and starting at the vertex.
	In  []WireID
	Out []WireID

	edges []InternalEdge
}

// Wire is an external edge from Tail to Head carrying Registers registers.
type Wire struct {
	ID        WireID
	Tail      VertexID
	Head      VertexID
	Registers int
}

// InternalEdge states that Vertex, with combinational delay Delay, is fed by
// Inputs and drives Outputs.
type InternalEdge struct {
	Vertex  VertexID
	Delay   float64
	Inputs  []WireID
	Outputs []WireID
}

// Graph is the extended circuit model. A Graph is not safe for concurrent
// mutation; read-only use from several goroutines is fine.
type Graph struct {
	vertices   []*Vertex
	wires      []Wire
	boundaries []VertexID
}

// NewGraph creates a graph holding only the boundary vertex HostVertex.
func NewGraph() *Graph {
	g := &Graph{}
	g.vertices = append(g.vertices, &Vertex{
		ID:       HostVertex,
		Name:     "host",
		Boundary: true,
	})
	g.boundaries = append(g.boundaries, HostVertex)
	return g
}

// AddVertex adds a functional element with the given delay. Until explicit
// internal edges are added, the vertex behaves as a single internal edge from
// all of its input wires to all of its output wires.
func (g *Graph) AddVertex(name string, delay float64) (VertexID, error) {
	if err := checkDelay(delay); err != nil {
		return 0, errors.Wrapf(err, "vertex %s", name)
	}

	id := VertexID(len(g.vertices))
	g.vertices = append(g.vertices, &Vertex{ID: id, Name: name, Delay: delay})
	return id, nil
}

// AddBoundaryVertex adds another vertex representing circuit ports. All
// boundary vertices are pinned to the same retiming value.
func (g *Graph) AddBoundaryVertex(name string) VertexID {
	id := VertexID(len(g.vertices))
	g.vertices = append(g.vertices, &Vertex{ID: id, Name: name, Boundary: true})
	g.boundaries = append(g.boundaries, id)
	return id
}

// IsBoundary reports whether v represents circuit ports.
func (g *Graph) IsBoundary(v VertexID) bool {
	return g.hasVertex(v) && g.vertices[v].Boundary
}

// Boundaries returns the boundary vertices, HostVertex first.
func (g *Graph) Boundaries() []VertexID {
	return g.boundaries
}

// AddWire adds a wire from tail to head carrying registers registers.
func (g *Graph) AddWire(tail, head VertexID, registers int) (WireID, error) {
	if !g.hasVertex(tail) {
		return 0, errors.Wrapf(ErrUnknownVertex, "wire tail %d", tail)
	}
	if !g.hasVertex(head) {
		return 0, errors.Wrapf(ErrUnknownVertex, "wire head %d", head)
	}
	if registers < 0 {
		return 0, errors.Wrapf(ErrNegativeRegisters, "wire %d -> %d has %d",
			tail, head, registers)
	}

	id := WireID(len(g.wires))
	g.wires = append(g.wires, Wire{ID: id, Tail: tail, Head: head, Registers: registers})
	g.vertices[tail].Out = append(g.vertices[tail].Out, id)
	g.vertices[head].In = append(g.vertices[head].In, id)
	return id, nil
}

// AddInternalEdge adds an explicit delay relation to v. Every input must end
// at v and every output must start at v.
func (g *Graph) AddInternalEdge(v VertexID, delay float64, inputs, outputs []WireID) error {
	if !g.hasVertex(v) {
		return errors.Wrapf(ErrUnknownVertex, "internal edge vertex %d", v)
	}
	if err := checkDelay(delay); err != nil {
		return errors.Wrapf(err, "internal edge of %s", g.vertices[v].Name)
	}
	for _, e := range inputs {
		if !g.hasWire(e) {
			return errors.Wrapf(ErrUnknownWire, "input %d", e)
		}
		if g.wires[e].Head != v {
			return errors.Wrapf(ErrMisconnectedEdge, "input wire %d of %s", e, g.vertices[v].Name)
		}
	}
	for _, e := range outputs {
		if !g.hasWire(e) {
			return errors.Wrapf(ErrUnknownWire, "output %d", e)
		}
		if g.wires[e].Tail != v {
			return errors.Wrapf(ErrMisconnectedEdge, "output wire %d of %s", e, g.vertices[v].Name)
		}
	}

	vert := g.vertices[v]
	if len(vert.edges) == 0 || delay > vert.Delay {
		vert.Delay = delay
	}
	vert.edges = append(vert.edges, InternalEdge{
		Vertex:  v,
		Delay:   delay,
		Inputs:  append([]WireID(nil), inputs...),
		Outputs: append([]WireID(nil), outputs...),
	})
	return nil
}

// InternalEdges returns the internal edges of v, or the single implicit edge
// covering all incident wires when none were added explicitly.
func (g *Graph) InternalEdges(v VertexID) []InternalEdge {
	vert := g.vertices[v]
	if len(vert.edges) > 0 {
		return vert.edges
	}
	return []InternalEdge{{
		Vertex:  v,
		Delay:   vert.Delay,
		Inputs:  vert.In,
		Outputs: vert.Out,
	}}
}

// Vertex returns vertex v. The result must not be modified.
func (g *Graph) Vertex(v VertexID) *Vertex {
	return g.vertices[v]
}

// Wire returns wire e.
func (g *Graph) Wire(e WireID) Wire {
	return g.wires[e]
}

// Wires returns all wires. The slice must not be modified.
func (g *Graph) Wires() []Wire {
	return g.wires
}

// NumVertices returns the number of vertices, boundary vertices included.
func (g *Graph) NumVertices() int {
	return len(g.vertices)
}

// NumWires returns the number of wires.
func (g *Graph) NumWires() int {
	return len(g.wires)
}

// MaxDelay returns the largest single-element delay. No retiming can reach
// a clock period below it.
func (g *Graph) MaxDelay() float64 {
	max := 0.0
	for _, v := range g.vertices {
		if v.Delay > max {
			max = v.Delay
		}
	}
	return max
}

// TotalRegisters returns the number of registers on all wires.
func (g *Graph) TotalRegisters() int {
	total := 0
	for _, w := range g.wires {
		total += w.Registers
	}
	return total
}

// CycleRegisters returns the number of registers along the given wires.
func (g *Graph) CycleRegisters(cycle []WireID) int {
	total := 0
	for _, e := range cycle {
		total += g.wires[e].Registers
	}
	return total
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		vertices:   make([]*Vertex, len(g.vertices)),
		wires:      append([]Wire(nil), g.wires...),
		boundaries: append([]VertexID(nil), g.boundaries...),
	}
	for i, v := range g.vertices {
		cv := *v
		cv.In = append([]WireID(nil), v.In...)
		cv.Out = append([]WireID(nil), v.Out...)
		cv.edges = nil
		for _, ie := range v.edges {
			cv.edges = append(cv.edges, InternalEdge{
				Vertex:  ie.Vertex,
				Delay:   ie.Delay,
				Inputs:  append([]WireID(nil), ie.Inputs...),
				Outputs: append([]WireID(nil), ie.Outputs...),
			})
		}
		clone.vertices[i] = &cv
	}
	return clone
}

// couples reports whether arrival information flows from wire e into the
// element it feeds. Wires leaving a boundary vertex do not couple, so the
// circuit's outputs never feed back into its own inputs through the
// boundary.
func (g *Graph) couples(e WireID) bool {
	return !g.IsBoundary(g.wires[e].Tail)
}

func (g *Graph) hasVertex(v VertexID) bool {
	return v >= 0 && int(v) < len(g.vertices)
}

func (g *Graph) hasWire(e WireID) bool {
	return e >= 0 && int(e) < len(g.wires)
}

func checkDelay(d float64) error {
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return errors.Wrapf(ErrNegativeDelay, "%g", d)
	}
	return nil
}
