// Package benchmarks provides retiming benchmark circuits and a harness that
// runs the minimizer over them.
package benchmarks

import (
	"fmt"
	"math/rand/v2"

	"github.com/sarchlab/retime/timing/circuit"
)

// GetBenchmarks returns the standard set of retiming benchmarks.
func GetBenchmarks() []Benchmark {
	return []Benchmark{
		correlatorBenchmark(),
		ringBenchmark(8, 2),
		ringBenchmark(15, 4),
		pipelineBenchmark(6),
		firBenchmark(8),
		generatedBenchmark(1, 64),
	}
}

// GetCoreBenchmarks returns the benchmarks whose optimum is known.
func GetCoreBenchmarks() []Benchmark {
	var core []Benchmark
	for _, b := range GetBenchmarks() {
		if b.ExpectedPeriod > 0 {
			core = append(core, b)
		}
	}
	return core
}

// graphBuilder keeps the first construction error so that circuit
// descriptions stay linear.
type graphBuilder struct {
	g   *circuit.Graph
	err error
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{g: circuit.NewGraph()}
}

func (b *graphBuilder) vertex(name string, delay float64) circuit.VertexID {
	if b.err != nil {
		return 0
	}
	v, err := b.g.AddVertex(name, delay)
	b.err = err
	return v
}

func (b *graphBuilder) wire(tail, head circuit.VertexID, regs int) {
	if b.err != nil {
		return
	}
	_, b.err = b.g.AddWire(tail, head, regs)
}

func (b *graphBuilder) build() (*circuit.Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.g, nil
}

// Correlator is the digital correlator from Leiserson and Saxe's retiming
// paper. Comparators take 3 time units, adders 7, and the host element is a
// zero-delay vertex of its own.
func Correlator() (*circuit.Graph, error) {
	b := newGraphBuilder()
	vh := b.vertex("vh", 0)

	var v [8]circuit.VertexID
	for i := 1; i <= 4; i++ {
		v[i] = b.vertex(fmt.Sprintf("cmp%d", i), 3)
	}
	for i := 5; i <= 7; i++ {
		v[i] = b.vertex(fmt.Sprintf("add%d", i), 7)
	}

	b.wire(vh, v[1], 1)
	b.wire(v[1], v[2], 1)
	b.wire(v[2], v[3], 1)
	b.wire(v[3], v[4], 1)
	b.wire(v[4], v[5], 0)
	b.wire(v[5], v[6], 0)
	b.wire(v[6], v[7], 0)
	b.wire(v[7], vh, 0)
	b.wire(v[3], v[5], 0)
	b.wire(v[2], v[6], 0)
	b.wire(v[1], v[7], 0)

	return b.build()
}

func correlatorBenchmark() Benchmark {
	return Benchmark{
		Name:           "correlator",
		Description:    "Leiserson-Saxe digital correlator",
		Build:          Correlator,
		ExpectedPeriod: 13,
	}
}

// Ring is n unit-delay elements in a cycle, with all regs registers on one
// wire.
func Ring(n, regs int) (*circuit.Graph, error) {
	b := newGraphBuilder()
	vs := make([]circuit.VertexID, n)
	for i := range vs {
		vs[i] = b.vertex(fmt.Sprintf("r%d", i), 1)
	}
	for i := 0; i < n-1; i++ {
		b.wire(vs[i], vs[i+1], 0)
	}
	b.wire(vs[n-1], vs[0], regs)
	return b.build()
}

func ringBenchmark(n, regs int) Benchmark {
	return Benchmark{
		Name:        fmt.Sprintf("ring_%d_%d", n, regs),
		Description: fmt.Sprintf("%d unit elements in a loop with %d registers", n, regs),
		Build: func() (*circuit.Graph, error) {
			return Ring(n, regs)
		},
		ExpectedPeriod: float64((n + regs - 1) / regs),
	}
}

// Pipeline is a chain of n unit-delay stages between the circuit ports,
// with n-1 registers waiting at the output.
func Pipeline(n int) (*circuit.Graph, error) {
	b := newGraphBuilder()
	prev := circuit.HostVertex
	for i := 0; i < n; i++ {
		v := b.vertex(fmt.Sprintf("s%d", i), 1)
		b.wire(prev, v, 0)
		prev = v
	}
	b.wire(prev, circuit.HostVertex, n-1)
	return b.build()
}

func pipelineBenchmark(n int) Benchmark {
	return Benchmark{
		Name:        fmt.Sprintf("pipeline_%d", n),
		Description: fmt.Sprintf("%d stages with all registers at the output", n),
		Build: func() (*circuit.Graph, error) {
			return Pipeline(n)
		},
		ExpectedPeriod: 1,
	}
}

// FIR is a direct-form filter with the given number of taps. The delay line
// feeding tap i is i registers on the wire from the input port to its
// multiplier. Multipliers take 4 time units, adders 2.
func FIR(taps int) (*circuit.Graph, error) {
	b := newGraphBuilder()

	mults := make([]circuit.VertexID, taps)
	for i := range mults {
		mults[i] = b.vertex(fmt.Sprintf("mul%d", i), 4)
		b.wire(circuit.HostVertex, mults[i], i)
	}

	acc := mults[0]
	for i := 1; i < taps; i++ {
		add := b.vertex(fmt.Sprintf("add%d", i), 2)
		b.wire(acc, add, 0)
		b.wire(mults[i], add, 0)
		acc = add
	}
	b.wire(acc, circuit.HostVertex, 0)

	return b.build()
}

func firBenchmark(taps int) Benchmark {
	return Benchmark{
		Name:        fmt.Sprintf("fir_%d", taps),
		Description: fmt.Sprintf("%d-tap direct-form FIR filter", taps),
		Build: func() (*circuit.Graph, error) {
			return FIR(taps)
		},
	}
}

// Generated builds a pseudo-random circuit of n elements from seed. Wires
// that go forward in element order may have no registers; wires that go
// backward always have at least one, so the circuit has no register-free
// cycle.
func Generated(seed uint64, n int) (*circuit.Graph, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := newGraphBuilder()

	vs := make([]circuit.VertexID, n)
	for i := range vs {
		vs[i] = b.vertex(fmt.Sprintf("g%d", i), float64(1+rng.IntN(9)))
	}

	b.wire(circuit.HostVertex, vs[0], 0)
	for i := 0; i < n-1; i++ {
		b.wire(vs[i], vs[i+1], rng.IntN(2))
	}
	b.wire(vs[n-1], circuit.HostVertex, 1)

	for i := 0; i < n; i++ {
		j := rng.IntN(n)
		switch {
		case j > i:
			b.wire(vs[i], vs[j], rng.IntN(2))
		case j < i:
			b.wire(vs[i], vs[j], 1+rng.IntN(3))
		}
	}

	return b.build()
}

func generatedBenchmark(seed uint64, n int) Benchmark {
	return Benchmark{
		Name:        fmt.Sprintf("generated_%d_%d", seed, n),
		Description: fmt.Sprintf("pseudo-random circuit with %d elements", n),
		Build: func() (*circuit.Graph, error) {
			return Generated(seed, n)
		},
	}
}
