package netlist_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/retime/netlist"
	"github.com/sarchlab/retime/timing/circuit"
	"github.com/sarchlab/retime/timing/latency"
	"github.com/sarchlab/retime/timing/retime"
)

func stage(name string, delay float64) netlist.Component {
	return netlist.Component{
		Name:    name,
		Type:    "ALU",
		Inputs:  []string{"i"},
		Outputs: []string{"o"},
		Arcs:    []netlist.Arc{{From: "i", To: "o", Delay: delay}},
	}
}

func pin(comp, p string) netlist.PinRef {
	return netlist.PinRef{Component: comp, Pin: p}
}

// pipeline is in -> a -> b -> c -> out with both registers before out.
func pipeline() *netlist.Circuit {
	return &netlist.Circuit{
		Version:    "1.0.0",
		Name:       "pipeline",
		Unit:       "ns",
		Inputs:     []string{"in"},
		Outputs:    []string{"out"},
		Components: []netlist.Component{stage("a", 1), stage("b", 1), stage("c", 1)},
		Wires: []netlist.Wire{
			{Name: "w0", From: netlist.PinRef{Pin: "in"}, To: pin("a", "i")},
			{Name: "w1", From: pin("a", "o"), To: pin("b", "i")},
			{Name: "w2", From: pin("b", "o"), To: pin("c", "i")},
			{Name: "w3", From: pin("c", "o"), To: netlist.PinRef{Pin: "out"}, Registers: 2},
		},
	}
}

const pipelineYAML = `
version: 1.0.0
name: pipeline
unit: ns
inputs: [in]
outputs: [out]
components:
  - {name: a, type: ALU, inputs: [i], outputs: [o], arcs: [{from: i, to: o, delay: 1}]}
  - {name: b, type: ALU, inputs: [i], outputs: [o], arcs: [{from: i, to: o, delay: 1}]}
  - {name: c, type: ALU, inputs: [i], outputs: [o], arcs: [{from: i, to: o, delay: 1}]}
wires:
  - {name: w0, from: {pin: in}, to: {component: a, pin: i}, registers: 0}
  - {name: w1, from: {component: a, pin: o}, to: {component: b, pin: i}, registers: 0}
  - {name: w2, from: {component: b, pin: o}, to: {component: c, pin: i}, registers: 0}
  - {name: w3, from: {component: c, pin: o}, to: {pin: out}, registers: 2}
`

const tinyBench = `
# two-gate loop with a flip-flop
INPUT(A)
OUTPUT(Z)

N1 = NAND(A, Q)
Q = DFF(N2)
N2 = NOT(N1)
Z = BUFF(N2)
`

var _ = Describe("Circuit", func() {
	Describe("Validate", func() {
		It("should accept a well-formed circuit", func() {
			Expect(pipeline().Validate()).To(Succeed())
		})

		DescribeTable("should reject malformed circuits",
			func(mutate func(c *netlist.Circuit)) {
				c := pipeline()
				mutate(c)
				Expect(c.Validate()).To(MatchError(netlist.ErrMalformed))
			},
			Entry("duplicate component", func(c *netlist.Circuit) {
				c.Components = append(c.Components, stage("a", 1))
			}),
			Entry("arc on an undeclared pin", func(c *netlist.Circuit) {
				c.Components[0].Arcs[0].From = "x"
			}),
			Entry("negative delay", func(c *netlist.Circuit) {
				c.Components[1].Arcs[0].Delay = -1
			}),
			Entry("NaN delay", func(c *netlist.Circuit) {
				c.Components[1].Arcs[0].Delay = math.NaN()
			}),
			Entry("unresolvable source", func(c *netlist.Circuit) {
				c.Wires[1].From = pin("nope", "o")
			}),
			Entry("source on an input pin", func(c *netlist.Circuit) {
				c.Wires[1].From = pin("a", "i")
			}),
			Entry("unknown output port", func(c *netlist.Circuit) {
				c.Wires[3].To = netlist.PinRef{Pin: "missing"}
			}),
			Entry("negative registers", func(c *netlist.Circuit) {
				c.Wires[2].Registers = -1
			}),
			Entry("pin with two drivers", func(c *netlist.Circuit) {
				c.Wires = append(c.Wires, netlist.Wire{From: pin("c", "o"), To: pin("b", "i")})
			}),
			Entry("duplicate wire name", func(c *netlist.Circuit) {
				c.Wires[1].Name = "w0"
			}),
			Entry("unparsable version", func(c *netlist.Circuit) {
				c.Version = "one"
			}),
		)

		It("should gate on the format version", func() {
			c := pipeline()
			c.Version = "1.4.2"
			Expect(c.Validate()).To(Succeed())

			c.Version = ""
			Expect(c.Validate()).To(Succeed())

			c.Version = "2.0.0"
			Expect(c.Validate()).To(MatchError(netlist.ErrUnsupportedVersion))
		})
	})

	It("should deep-copy on Clone", func() {
		c := pipeline()
		clone := c.Clone()
		clone.Wires[0].Registers = 5
		clone.Components[0].Arcs[0].Delay = 9
		Expect(c.Wires[0].Registers).To(Equal(0))
		Expect(c.Components[0].Arcs[0].Delay).To(Equal(1.0))
	})

	It("should count registers", func() {
		Expect(pipeline().TotalRegisters()).To(Equal(2))
	})
})

var _ = Describe("Formats", func() {
	It("should read YAML", func() {
		c, err := netlist.ReadYAML(strings.NewReader(pipelineYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Diff(pipeline(), c)).To(BeEmpty())
	})

	It("should write JSON that reads back the same", func() {
		var buf bytes.Buffer
		Expect(netlist.WriteJSON(&buf, pipeline())).To(Succeed())

		c, err := netlist.ReadJSON(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Diff(pipeline(), c)).To(BeEmpty())
	})

	It("should reject unknown JSON fields", func() {
		_, err := netlist.ReadJSON(strings.NewReader(`{"components": [], "wires": [], "clock": 3}`))
		Expect(err).To(HaveOccurred())
	})

	It("should validate what it reads", func() {
		_, err := netlist.ReadYAML(strings.NewReader(strings.Replace(pipelineYAML,
			"registers: 2", "registers: -2", 1)))
		Expect(err).To(MatchError(netlist.ErrMalformed))
	})

	It("should pick the format from the file extension", func() {
		dir := GinkgoT().TempDir()
		for _, name := range []string{"p.json", "p.yaml", "p.yml"} {
			path := filepath.Join(dir, name)
			Expect(netlist.Save(path, pipeline())).To(Succeed())

			c, err := netlist.Load(path, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Diff(pipeline(), c)).To(BeEmpty(), name)
		}

		Expect(netlist.Save(filepath.Join(dir, "p.txt"), pipeline())).NotTo(Succeed())
	})

	It("should load .bench files", func() {
		path := filepath.Join(GinkgoT().TempDir(), "tiny.bench")
		Expect(os.WriteFile(path, []byte(tinyBench), 0o644)).To(Succeed())

		c, err := netlist.Load(path, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name).To(Equal("tiny"))
	})
})

var _ = Describe("ReadBench", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	read := func(text string) (*netlist.Circuit, error) {
		return netlist.ReadBench(strings.NewReader(text), "t", table)
	}

	It("should turn gates into components and flip-flops into registers", func() {
		c, err := read(tinyBench)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Inputs).To(Equal([]string{"A"}))
		Expect(c.Outputs).To(Equal([]string{"Z"}))
		Expect(c.Components).To(HaveLen(3))
		Expect(c.TotalRegisters()).To(Equal(1))

		nand, ok := c.Component("N1")
		Expect(ok).To(BeTrue())
		Expect(nand.Inputs).To(Equal([]string{"in0", "in1"}))
		Expect(nand.Arcs).To(ConsistOf(
			netlist.Arc{From: "in0", To: "out", Delay: 0.8},
			netlist.Arc{From: "in1", To: "out", Delay: 0.8},
		))

		var feedback netlist.Wire
		for _, w := range c.Wires {
			if w.To == pin("N1", "in1") {
				feedback = w
			}
		}
		Expect(feedback.From).To(Equal(pin("N2", "out")))
		Expect(feedback.Registers).To(Equal(1))
	})

	It("should charge the fan-in penalty", func() {
		c, err := read("INPUT(A)\nINPUT(B)\nINPUT(C)\nOUTPUT(Y)\nY = AND(A, B, C)\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Components[0].Arcs[0].Delay).To(Equal(1.25))
	})

	It("should chain flip-flops into register counts", func() {
		c, err := read("INPUT(A)\nOUTPUT(Y)\nQ1 = DFF(A)\nQ2 = DFF(Q1)\nY = NOT(Q2)\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Wires[0].From).To(Equal(netlist.PinRef{Pin: "A"}))
		Expect(c.Wires[0].Registers).To(Equal(2))
	})

	It("should reject unknown gates", func() {
		_, err := read("INPUT(A)\nOUTPUT(Y)\nY = FOO(A)\n")
		Expect(err).To(MatchError(latency.ErrUnknownGate))
	})

	It("should reject undriven signals", func() {
		_, err := read("INPUT(A)\nOUTPUT(Y)\nY = AND(A, B)\n")
		Expect(err).To(MatchError(netlist.ErrMalformed))
	})

	It("should reject loops of flip-flops only", func() {
		_, err := read("OUTPUT(Y)\nQ = DFF(R)\nR = DFF(Q)\nY = NOT(Q)\n")
		Expect(err).To(MatchError(netlist.ErrMalformed))
	})

	It("should reject signals driven twice", func() {
		_, err := read("INPUT(A)\nOUTPUT(Y)\nY = NOT(A)\nY = BUFF(A)\n")
		Expect(err).To(MatchError(netlist.ErrMalformed))
	})

	It("should reject lines it cannot parse", func() {
		_, err := read("INPUT(A)\nwhat is this\n")
		Expect(err).To(MatchError(netlist.ErrMalformed))
	})
})

var _ = Describe("Lower", func() {
	It("should map ports to the host and components to vertices", func() {
		l, err := netlist.Lower(pipeline())
		Expect(err).NotTo(HaveOccurred())

		Expect(l.Graph.NumVertices()).To(Equal(4))
		Expect(l.Graph.NumWires()).To(Equal(4))
		Expect(l.Name(circuit.HostVertex)).To(Equal("host"))

		b, ok := l.Vertex("b")
		Expect(ok).To(BeTrue())
		Expect(l.Name(b)).To(Equal("b"))

		period, err := l.Graph.Period()
		Expect(err).NotTo(HaveOccurred())
		Expect(period).To(Equal(3.0))
	})

	It("should give every output pin its own timing arcs", func() {
		c := &netlist.Circuit{
			Inputs:  []string{"x"},
			Outputs: []string{"fast", "slow"},
			Components: []netlist.Component{{
				Name:    "u",
				Inputs:  []string{"i"},
				Outputs: []string{"f", "s"},
				Arcs: []netlist.Arc{
					{From: "i", To: "f", Delay: 2},
					{From: "i", To: "s", Delay: 5},
				},
			}},
			Wires: []netlist.Wire{
				{From: netlist.PinRef{Pin: "x"}, To: pin("u", "i")},
				{From: pin("u", "f"), To: netlist.PinRef{Pin: "fast"}},
				{From: pin("u", "s"), To: netlist.PinRef{Pin: "slow"}},
			},
		}

		l, err := netlist.Lower(c)
		Expect(err).NotTo(HaveOccurred())

		u, _ := l.Vertex("u")
		edges := l.Graph.InternalEdges(u)
		Expect(edges).To(HaveLen(2))
		Expect(edges[0].Delay).To(Equal(2.0))
		Expect(edges[0].Outputs).To(Equal([]circuit.WireID{1}))
		Expect(edges[1].Delay).To(Equal(5.0))
		Expect(edges[1].Outputs).To(Equal([]circuit.WireID{2}))
		Expect(l.Graph.Vertex(u).Delay).To(Equal(5.0))
	})

	It("should refuse malformed circuits", func() {
		c := pipeline()
		c.Wires[0].Registers = -1
		_, err := netlist.Lower(c)
		Expect(err).To(MatchError(netlist.ErrMalformed))
	})

	Describe("Apply", func() {
		It("should write the retiming back onto the wires", func() {
			l, err := netlist.Lower(pipeline())
			Expect(err).NotTo(HaveOccurred())

			res, err := retime.NewMinimizer().Minimize(l.Graph)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Period).To(Equal(1.0))
			Expect(l.Named(res.Retiming)).To(Equal(map[string]int{"a": 0, "b": 1, "c": 2}))

			retimed, delta, err := l.Apply(res.Retiming)
			Expect(err).NotTo(HaveOccurred())

			var regs []int
			for _, w := range retimed.Wires {
				regs = append(regs, w.Registers)
			}
			Expect(regs).To(Equal([]int{0, 1, 1, 0}))
			Expect(delta.Added).To(Equal(2))
			Expect(delta.Removed).To(Equal(2))
			Expect(delta.Changes).To(HaveLen(3))
			Expect(delta.Changes[2].Wire.Name).To(Equal("w3"))
			Expect(delta.Changes[2].Before).To(Equal(2))
			Expect(delta.Changes[2].After).To(Equal(0))
		})

		It("should leave the source circuit alone", func() {
			c := pipeline()
			l, err := netlist.Lower(c)
			Expect(err).NotTo(HaveOccurred())

			_, delta, err := l.Apply(circuit.Retiming{0, 0, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.Changes).To(BeEmpty())

			_, _, err = l.Apply(circuit.Retiming{0, 0, 1, 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Wires[3].Registers).To(Equal(2))
		})

		It("should reject retimings that leave negative registers", func() {
			l, err := netlist.Lower(pipeline())
			Expect(err).NotTo(HaveOccurred())
			_, _, err = l.Apply(circuit.Retiming{0, 1, 0, 0})
			Expect(err).To(MatchError(circuit.ErrNegativeRegisters))
		})
	})
})
