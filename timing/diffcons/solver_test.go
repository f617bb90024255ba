package diffcons_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/retime/timing/diffcons"
)

var _ = Describe("System", func() {
	It("should lay out integer variables before real variables", func() {
		s := diffcons.NewSystem(2, 3)
		Expect(s.NumVars()).To(Equal(5))
		Expect(s.NumIntegers()).To(Equal(2))
		Expect(s.Kind(1)).To(Equal(diffcons.Integer))
		Expect(s.Kind(2)).To(Equal(diffcons.Real))
	})

	It("should classify edges by their target", func() {
		s := diffcons.NewSystem(1, 1)
		s.AddConstraint(0, 1, 1)
		s.AddConstraint(1, 0, 1)
		edges := s.Edges()
		Expect(s.IsRealEdge(edges[0])).To(BeTrue())
		Expect(s.IsRealEdge(edges[1])).To(BeFalse())
	})

	It("should keep parallel edges", func() {
		s := diffcons.NewSystem(0, 2)
		s.AddConstraint(0, 1, 3)
		s.AddConstraint(0, 1, 1)
		Expect(s.Edges()).To(HaveLen(2))
	})

	It("should panic on out-of-range variables", func() {
		s := diffcons.NewSystem(1, 1)
		Expect(func() { s.AddConstraint(0, 2, 1) }).To(Panic())
		Expect(func() { s.AddConstraint(-1, 0, 1) }).To(Panic())
	})

	It("should report violated constraints", func() {
		s := diffcons.NewSystem(0, 2)
		s.AddConstraint(0, 1, 1)
		Expect(s.Check([]float64{0, 1}, 1e-9)).To(Succeed())
		Expect(s.Check([]float64{0, 2}, 1e-9)).To(HaveOccurred())
	})

	It("should report non-integral integer variables", func() {
		s := diffcons.NewSystem(1, 0)
		Expect(s.Check([]float64{0.5}, 1e-9)).To(HaveOccurred())
	})
})

var _ = Describe("Solver", func() {
	var solver *diffcons.Solver

	BeforeEach(func() {
		solver = diffcons.NewSolver()
	})

	triangle := func(numInts int, last float64) *diffcons.System {
		s := diffcons.NewSystem(numInts, 3-numInts)
		s.AddConstraint(0, 1, 2)
		s.AddConstraint(1, 2, 3)
		s.AddConstraint(2, 0, last)
		return s
	}

	Describe("Negative cycle detection", func() {
		It("should report a negative real cycle as infeasible", func() {
			_, ok := solver.Solve(triangle(0, -6))
			Expect(ok).To(BeFalse())
		})

		It("should report a negative integer cycle as infeasible", func() {
			_, ok := solver.Solve(triangle(3, -6))
			Expect(ok).To(BeFalse())
		})

		It("should report a negative mixed cycle as infeasible", func() {
			_, ok := solver.Solve(triangle(1, -6))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Feasible systems", func() {
		for _, numInts := range []int{0, 1, 2, 3} {
			numInts := numInts
			It(fmt.Sprintf("should satisfy a non-negative cycle with %d integer variables", numInts), func() {
				s := triangle(numInts, -4)
				sol, ok := solver.Solve(s)
				Expect(ok).To(BeTrue())
				Expect(s.Check(sol.Values, 1e-9)).To(Succeed())

				x := sol.Values
				Expect(x[1] - x[0]).To(BeNumerically("<=", 2+1e-9))
				Expect(x[2] - x[1]).To(BeNumerically("<=", 3+1e-9))
				Expect(x[2] - x[0]).To(BeNumerically(">=", 4-1e-9))
			})
		}

		It("should solve a system without constraints", func() {
			s := diffcons.NewSystem(2, 2)
			sol, ok := solver.Solve(s)
			Expect(ok).To(BeTrue())
			Expect(sol.Values).To(HaveLen(4))
		})

		It("should keep fractional slack for real variables", func() {
			// x0 <= x1 - 0.2 and x1 <= x0 + 0.5 with x0 integer.
			s := diffcons.NewSystem(1, 1)
			s.AddConstraint(0, 1, 0.5)
			s.AddConstraint(1, 0, -0.2)

			sol, ok := solver.Solve(s)
			Expect(ok).To(BeTrue())
			Expect(s.Check(sol.Values, 1e-9)).To(Succeed())
			Expect(float64(sol.Int(0))).To(Equal(sol.Value(0)))
		})

		It("should tolerate round-off at an exact threshold", func() {
			// 0.6 + 0.4 - 1 sums to zero only up to round-off.
			s := diffcons.NewSystem(0, 3)
			s.AddConstraint(0, 1, -3.0/5)
			s.AddConstraint(1, 2, -2.0/5)
			s.AddConstraint(2, 0, 1)

			sol, ok := solver.Solve(s)
			Expect(ok).To(BeTrue())
			Expect(s.Check(sol.Values, 1e-9)).To(Succeed())
		})
	})

	Describe("Integrality", func() {
		It("should detect systems that only real values could satisfy", func() {
			// x1 <= x2 + 0.4 <= x0 + 0.9 forces x1 <= x0 for integers, while
			// x0 <= x1 - 0.5 forces x1 >= x0 + 1.
			s := diffcons.NewSystem(2, 1)
			s.AddConstraint(0, 2, 0.5)
			s.AddConstraint(2, 1, 0.4)
			s.AddConstraint(1, 0, -0.5)

			_, ok := solver.Solve(s)
			Expect(ok).To(BeFalse())
		})

		It("should return integral values for integer variables", func() {
			s := diffcons.NewSystem(2, 1)
			s.AddConstraint(0, 2, 0.5)
			s.AddConstraint(2, 1, 0.4)
			s.AddConstraint(1, 0, 0.5)

			sol, ok := solver.Solve(s)
			Expect(ok).To(BeTrue())
			Expect(s.Check(sol.Values, 1e-9)).To(Succeed())
			for v := 0; v < 2; v++ {
				Expect(sol.Value(v)).To(Equal(float64(sol.Int(v))))
			}
		})
	})

	Describe("Options", func() {
		It("should use the default epsilon", func() {
			Expect(solver.Epsilon()).To(Equal(diffcons.DefaultEpsilon))
		})

		It("should accept a custom epsilon", func() {
			Expect(diffcons.NewSolver(diffcons.WithEpsilon(1e-6)).Epsilon()).
				To(Equal(1e-6))
		})
	})
})
