package circuit

import (
	"container/heap"
	"math"
	"sort"

	"github.com/pkg/errors"
)

type vertexPair struct {
	u, v VertexID
}

// WD holds, for every ordered pair of vertices (u, v) connected by a path,
// the minimum register count W(u, v) over all such paths and the maximum
// delay D(u, v) among the paths attaining it.
type WD struct {
	pairs map[vertexPair]Pair
}

// Lookup returns (W(u, v), D(u, v)) as a Pair.
func (wd *WD) Lookup(u, v VertexID) (Pair, bool) {
	p, ok := wd.pairs[vertexPair{u, v}]
	return p, ok
}

// Len returns the number of connected vertex pairs.
func (wd *WD) Len() int {
	return len(wd.pairs)
}

// Delays returns all D values in no particular order.
func (wd *WD) Delays() []float64 {
	out := make([]float64, 0, len(wd.pairs))
	for _, p := range wd.pairs {
		out = append(out, p.Delay)
	}
	return out
}

func (wd *WD) offer(u, v VertexID, p Pair) {
	k := vertexPair{u, v}
	if cur, ok := wd.pairs[k]; !ok || p.Less(cur) {
		wd.pairs[k] = p
	}
}

// hEdge is an edge of the wire graph H: from an input wire of an element to
// one of its output wires, weighted by the input's registers and the
// element's delay.
type hEdge struct {
	to     WireID
	weight Pair
}

func (g *Graph) wireGraph() [][]hEdge {
	out := make([][]hEdge, len(g.wires))
	for _, vert := range g.vertices {
		for _, ie := range g.InternalEdges(vert.ID) {
			for _, ea := range ie.Inputs {
				if !g.couples(ea) {
					continue
				}
				w := Pair{Registers: g.wires[ea].Registers, Delay: ie.Delay}
				for _, eb := range ie.Outputs {
					out[ea] = append(out[ea], hEdge{to: eb, weight: w})
				}
			}
		}
	}
	return out
}

// WD computes W and D for every connected vertex pair. D(u, u) is the
// largest internal delay of u. A cycle without registers yields
// ErrCombinationalCycle.
func (g *Graph) WD() (*WD, error) {
	hOut := g.wireGraph()

	outDelay := make([]float64, len(g.wires))
	inDelay := make([]float64, len(g.wires))
	for _, vert := range g.vertices {
		for _, ie := range g.InternalEdges(vert.ID) {
			for _, e := range ie.Outputs {
				outDelay[e] = math.Max(outDelay[e], ie.Delay)
			}
			for _, e := range ie.Inputs {
				inDelay[e] = math.Max(inDelay[e], ie.Delay)
			}
		}
	}

	wd := &WD{pairs: make(map[vertexPair]Pair)}
	for _, vert := range g.vertices {
		wd.pairs[vertexPair{vert.ID, vert.ID}] = Pair{Delay: vert.Delay}
	}

	ps := newPathSearch(len(g.wires))
	for a := range g.wires {
		src := WireID(a)
		if err := ps.run(src, hOut); err != nil {
			return nil, err
		}

		u := g.wires[src].Tail
		for _, b := range ps.order {
			v := g.wires[b].Head
			if u == v {
				continue
			}
			wd.offer(u, v, Pair{
				Registers: ps.regs[b] + g.wires[b].Registers,
				Delay:     outDelay[src] + ps.delay[b] + inDelay[b],
			})
		}
	}

	return wd, nil
}

// Candidates returns the sorted, de-duplicated clock periods worth probing:
// every D(u, v) not below the largest element delay, and that delay itself.
func (g *Graph) Candidates() ([]float64, error) {
	wd, err := g.WD()
	if err != nil {
		return nil, err
	}

	floor := g.MaxDelay()
	values := append(wd.Delays(), floor)
	sort.Float64s(values)

	out := make([]float64, 0, len(values))
	for _, d := range values {
		if d < floor {
			continue
		}
		if n := len(out); n > 0 && d-out[n-1] <= 1e-9*math.Max(1, math.Abs(d)) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// pathSearch finds, from one source wire of H, the minimum register count
// to every reachable wire and the maximum delay among minimum-register
// paths. Buffers are reused across sources.
type pathSearch struct {
	regs    []int
	delay   []float64
	reached []bool
	settled []bool
	indeg   []int
	order   []WireID
	queue   []WireID
}

func newPathSearch(n int) *pathSearch {
	return &pathSearch{
		regs:    make([]int, n),
		delay:   make([]float64, n),
		reached: make([]bool, n),
		settled: make([]bool, n),
		indeg:   make([]int, n),
	}
}

func (ps *pathSearch) reset() {
	for _, e := range ps.order {
		ps.reached[e] = false
		ps.settled[e] = false
		ps.indeg[e] = 0
	}
	ps.order = ps.order[:0]
	ps.queue = ps.queue[:0]
}

func (ps *pathSearch) run(src WireID, hOut [][]hEdge) error {
	ps.reset()

	// Dijkstra over register counts.
	h := &wireHeap{}
	ps.regs[src] = 0
	ps.reached[src] = true
	h.push(src, 0)
	for h.Len() > 0 {
		item := h.pop()
		if ps.settled[item.e] || item.regs > ps.regs[item.e] {
			continue
		}
		ps.settled[item.e] = true
		ps.order = append(ps.order, item.e)
		for _, he := range hOut[item.e] {
			d := item.regs + he.weight.Registers
			if !ps.reached[he.to] || d < ps.regs[he.to] {
				ps.regs[he.to] = d
				ps.reached[he.to] = true
				h.push(he.to, d)
			}
		}
	}

	// Longest delay over the tight edges, which form a DAG unless some
	// cycle carries no register.
	for _, e := range ps.order {
		ps.delay[e] = math.Inf(-1)
		for _, he := range hOut[e] {
			if ps.regs[e]+he.weight.Registers == ps.regs[he.to] {
				ps.indeg[he.to]++
			}
		}
	}
	for _, e := range ps.order {
		if ps.indeg[e] == 0 {
			ps.queue = append(ps.queue, e)
		}
	}
	ps.delay[src] = 0

	processed := 0
	for len(ps.queue) > 0 {
		e := ps.queue[0]
		ps.queue = ps.queue[1:]
		processed++
		for _, he := range hOut[e] {
			if ps.regs[e]+he.weight.Registers != ps.regs[he.to] {
				continue
			}
			if d := ps.delay[e] + he.weight.Delay; d > ps.delay[he.to] {
				ps.delay[he.to] = d
			}
			ps.indeg[he.to]--
			if ps.indeg[he.to] == 0 {
				ps.queue = append(ps.queue, he.to)
			}
		}
	}

	if processed < len(ps.order) {
		return errors.Wrapf(ErrCombinationalCycle, "reachable from wire %d", src)
	}
	return nil
}

type wireItem struct {
	e    WireID
	regs int
}

type wireHeap []wireItem

func (h wireHeap) Len() int           { return len(h) }
func (h wireHeap) Less(i, j int) bool { return h[i].regs < h[j].regs }
func (h wireHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *wireHeap) Push(x any) {
	*h = append(*h, x.(wireItem))
}

func (h *wireHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *wireHeap) push(e WireID, regs int) {
	heap.Push(h, wireItem{e: e, regs: regs})
}

func (h *wireHeap) pop() wireItem {
	return heap.Pop(h).(wireItem)
}
