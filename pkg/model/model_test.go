package model

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-lpdecl/internal/logging"
	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

const tol = 1e-6

func constBound(v float64) declare.BoundFunc {
	return func(declare.Binding) (float64, error) { return v, nil }
}

func mustVar(m *Model, name string, lower, upper float64) *Variable {
	v, err := m.AddVariable(name, lower, upper)
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("Model", func() {
	var (
		ctx context.Context
		m   *Model
	)

	BeforeEach(func() {
		ctx = logr.NewContext(context.Background(), logging.Log)
		m = New("test")
	})

	Context("with scalar variables", func() {
		It("should solve a small maximization", func() {
			x := mustVar(m, "x", 0, math.Inf(1))
			y := mustVar(m, "y", 0, math.Inf(1))
			_, err := m.AddConstraint("c1", NewExpr().Add(-1, x).Add(2, y), LessEq, 4)
			Expect(err).NotTo(HaveOccurred())
			_, err = m.AddConstraint("c2", NewExpr().Add(3, x).Add(1, y), LessEq, 9)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.SetObjective(Maximize, NewExpr().Add(1, x).Add(2, y))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Objective).To(BeNumerically("~", 8, tol))
			Expect(sol.Value(x)).To(BeNumerically("~", 2, tol))
			Expect(sol.Value(y)).To(BeNumerically("~", 3, tol))
			Expect(sol.Eval(NewExpr().Add(3, x).Add(1, y))).To(BeNumerically("~", 9, tol))
		})

		It("should solve equality rows", func() {
			x := mustVar(m, "x", 0, math.Inf(1))
			y := mustVar(m, "y", 0, math.Inf(1))
			_, err := m.AddConstraint("sum", NewExpr().Add(1, x).Add(1, y), EqualTo, 3)
			Expect(err).NotTo(HaveOccurred())
			_, err = m.AddConstraint("diff", NewExpr().Add(1, x).Add(-1, y), EqualTo, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.SetObjective(Minimize, NewExpr().Add(1, x).Add(1, y))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Objective).To(BeNumerically("~", 3, tol))
			Expect(sol.Value(x)).To(BeNumerically("~", 2, tol))
			Expect(sol.Value(y)).To(BeNumerically("~", 1, tol))
		})

		It("should shift variables with a finite lower bound", func() {
			x := mustVar(m, "x", 3, 10)
			Expect(m.SetObjective(Minimize, NewExpr().Add(1, x).AddConstant(1))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Value(x)).To(BeNumerically("~", 3, tol))
			Expect(sol.Objective).To(BeNumerically("~", 4, tol))
		})

		It("should respect the upper bound of a shifted variable", func() {
			x := mustVar(m, "x", 3, 10)
			Expect(m.SetObjective(Maximize, NewExpr().Add(2, x))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Value(x)).To(BeNumerically("~", 10, tol))
			Expect(sol.Objective).To(BeNumerically("~", 20, tol))
		})

		It("should mirror variables bounded only above", func() {
			x := mustVar(m, "x", math.Inf(-1), 4)
			Expect(m.SetObjective(Maximize, NewExpr().Add(1, x))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Value(x)).To(BeNumerically("~", 4, tol))
		})

		It("should split free variables", func() {
			x := mustVar(m, "x", math.Inf(-1), math.Inf(1))
			_, err := m.AddConstraint("floor", NewExpr().Add(1, x), GreaterEq, -5)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.SetObjective(Minimize, NewExpr().Add(1, x))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Value(x)).To(BeNumerically("~", -5, tol))
			Expect(sol.Objective).To(BeNumerically("~", -5, tol))
		})

		It("should find a feasible point without an objective", func() {
			x := mustVar(m, "x", 0, math.Inf(1))
			_, err := m.AddConstraint("min", NewExpr().Add(1, x), GreaterEq, 2)
			Expect(err).NotTo(HaveOccurred())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.IsOptimal()).To(BeTrue())
			Expect(sol.Value(x)).To(BeNumerically(">=", 2-tol))
		})
	})

	Context("with infeasible or unbounded models", func() {
		It("should report unbounded objectives", func() {
			x := mustVar(m, "x", 0, math.Inf(1))
			Expect(m.SetObjective(Maximize, NewExpr().Add(1, x))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Unbounded))
			Expect(math.IsNaN(sol.Objective)).To(BeTrue())
			Expect(math.IsNaN(sol.Value(x))).To(BeTrue())
		})

		It("should report unbounded objectives through the simplex", func() {
			x := mustVar(m, "x", 0, math.Inf(1))
			y := mustVar(m, "y", 0, math.Inf(1))
			_, err := m.AddConstraint("gap", NewExpr().Add(1, x).Add(-1, y), LessEq, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.SetObjective(Maximize, NewExpr().Add(1, x))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Unbounded))
		})

		It("should report rows that contradict the bounds", func() {
			x := mustVar(m, "x", 0, 1)
			_, err := m.AddConstraint("high", NewExpr().Add(1, x), GreaterEq, 2)
			Expect(err).NotTo(HaveOccurred())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Infeasible))
		})

		It("should report constant rows that do not hold", func() {
			_, err := m.AddConstraint("never", NewExpr().AddConstant(1), LessEq, 0)
			Expect(err).NotTo(HaveOccurred())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Infeasible))
		})

		It("should skip constant rows that hold", func() {
			x := mustVar(m, "x", 1, 2)
			_, err := m.AddConstraint("always", NewExpr().Add(1, x).Add(-1, x), LessEq, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.SetObjective(Minimize, NewExpr().Add(1, x))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Value(x)).To(BeNumerically("~", 1, tol))
		})
	})

	Context("with dependent equality rows", func() {
		It("should drop redundant rows", func() {
			x := mustVar(m, "x", 0, math.Inf(1))
			y := mustVar(m, "y", 0, math.Inf(1))
			sum := NewExpr().Add(1, x).Add(1, y)
			_, err := m.AddConstraint("once", sum, EqualTo, 1)
			Expect(err).NotTo(HaveOccurred())
			row := sum.Scale(2).EqualTo(2)
			Expect(row.Relation.String()).To(Equal("=="))
			_, err = m.AddConstraint("twice", row.Expr, row.Relation, row.RHS)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.SetObjective(Minimize, NewExpr().Add(1, x).Add(3, y))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Objective).To(BeNumerically("~", 1, tol))
			Expect(sol.Value(x)).To(BeNumerically("~", 1, tol))
			Expect(sol.Value(y)).To(BeNumerically("~", 0, tol))
		})

		It("should report contradicting rows on one variable as infeasible", func() {
			z := mustVar(m, "z", 0, math.Inf(1))
			_, err := m.AddConstraint("three", NewExpr().Add(1, z), EqualTo, 3)
			Expect(err).NotTo(HaveOccurred())
			_, err = m.AddConstraint("four", NewExpr().Add(1, z), EqualTo, 4)
			Expect(err).NotTo(HaveOccurred())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Infeasible))
		})

		It("should solve more equality rows than variables when they agree", func() {
			z := mustVar(m, "z", 0, math.Inf(1))
			for i, k := range []float64{1, 2, 3} {
				_, err := m.AddConstraint(fmt.Sprintf("row%d", i), NewExpr().Add(k, z), EqualTo, 2*k)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(m.SetObjective(Maximize, NewExpr().Add(1, z))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Value(z)).To(BeNumerically("~", 2, tol))
		})
	})

	Context("with indexed declarations", func() {
		It("should solve the transportation problem", func() {
			plants := []string{"seattle", "san-diego"}
			markets := []string{"new-york", "chicago", "topeka"}
			supply := map[string]float64{"seattle": 350, "san-diego": 600}
			demand := map[string]float64{"new-york": 325, "chicago": 300, "topeka": 275}
			distance := map[string]map[string]float64{
				"seattle":   {"new-york": 2.5, "chicago": 1.7, "topeka": 1.8},
				"san-diego": {"new-york": 2.5, "chicago": 1.8, "topeka": 1.4},
			}

			x, err := m.AddVariables(declare.Declaration{
				Name: "x",
				Axes: []declare.Axis{
					{Name: "i", Domain: declare.Strings(plants...)},
					{Name: "j", Domain: declare.Strings(markets...)},
				},
				Lower: constBound(0),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(x.Kind()).To(Equal(declare.AxisArray))
			Expect(x.Len()).To(Equal(6))

			on := func(axis, want string) func(declare.Binding) float64 {
				return func(b declare.Binding) float64 {
					if v, _ := b.String(axis); v == want {
						return 1
					}
					return 0
				}
			}

			_, err = m.AddConstraints(declare.Declaration{
				Name: "supply",
				Axes: []declare.Axis{{Name: "i", Domain: declare.Strings(plants...)}},
			}, func(b declare.Binding) (Row, error) {
				i, err := b.String("i")
				if err != nil {
					return Row{}, err
				}
				return Sum(x, on("i", i)).LessEq(supply[i]), nil
			})
			Expect(err).NotTo(HaveOccurred())

			dem, err := m.AddConstraints(declare.Declaration{
				Name: "demand",
				Axes: []declare.Axis{{Name: "j", Domain: declare.Strings(markets...)}},
			}, func(b declare.Binding) (Row, error) {
				j, err := b.String("j")
				if err != nil {
					return Row{}, err
				}
				return Sum(x, on("j", j)).GreaterEq(demand[j]), nil
			})
			Expect(err).NotTo(HaveOccurred())
			c, err := dem.Get("chicago")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal("demand[chicago]"))

			cost := func(b declare.Binding) float64 {
				i, _ := b.String("i")
				j, _ := b.String("j")
				return 90 * distance[i][j] / 1000
			}
			Expect(m.SetObjective(Minimize, Sum(x, cost))).To(Succeed())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Optimal))
			Expect(sol.Objective).To(BeNumerically("~", 153.675, tol))

			values, err := sol.Values(x)
			Expect(err).NotTo(HaveOccurred())
			Expect(values.Kind()).To(Equal(declare.AxisArray))
			for _, j := range markets {
				var shipped float64
				for _, i := range plants {
					v, err := values.Get(i, j)
					Expect(err).NotTo(HaveOccurred())
					Expect(v).To(BeNumerically(">=", -tol))
					shipped += v
				}
				Expect(shipped).To(BeNumerically(">=", demand[j]-tol))
			}
		})

		It("should keep the sparse shape of triangular variables", func() {
			y, err := m.AddVariables(declare.Declaration{
				Name: "y",
				Axes: []declare.Axis{
					{Name: "i", Domain: declare.OneTo(3)},
					{Name: "j", Domain: declare.DependentRange(declare.Index("i"), declare.Const(3))},
				},
				Lower: constBound(0),
				Upper: func(b declare.Binding) (float64, error) {
					i, _ := b.Int("i")
					j, _ := b.Int("j")
					return float64(i + j), nil
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(y.Kind()).To(Equal(declare.SparseMapping))
			Expect(y.Len()).To(Equal(6))

			v, err := y.Get(2, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Name()).To(Equal("y[2,3]"))
			Expect(v.Index()).To(Equal(declare.Tuple{2, 3}))
			Expect(v.Upper()).To(Equal(5.0))

			_, err = y.Get(3, 1)
			Expect(err).To(MatchError(declare.ErrKeyNotPresent))

			Expect(m.SetObjective(Maximize, Sum(y, nil))).To(Succeed())
			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Objective).To(BeNumerically("~", 24, tol))

			values, err := sol.Values(y)
			Expect(err).NotTo(HaveOccurred())
			Expect(values.Kind()).To(Equal(declare.SparseMapping))
			got, err := values.Get(2, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNumerically("~", 5, tol))
		})

		It("should register constraints only for filtered tuples", func() {
			x, err := m.AddVariables(declare.Declaration{
				Name:  "x",
				Axes:  []declare.Axis{{Name: "i", Domain: declare.OneTo(3)}},
				Lower: constBound(0),
				Upper: constBound(10),
			})
			Expect(err).NotTo(HaveOccurred())

			caps, err := m.AddConstraints(declare.Declaration{
				Name: "cap",
				Axes: []declare.Axis{{Name: "i", Domain: declare.OneTo(3)}},
				Filter: func(b declare.Binding) (bool, error) {
					i, err := b.Int("i")
					return i != 2, err
				},
			}, func(b declare.Binding) (Row, error) {
				i, _ := b.Int("i")
				v, err := x.Get(i)
				if err != nil {
					return Row{}, err
				}
				return NewExpr().Add(1, v).LessEq(float64(i)), nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(caps.Kind()).To(Equal(declare.SparseMapping))
			Expect(caps.Len()).To(Equal(2))
			Expect(caps.Has(2)).To(BeFalse())

			Expect(m.SetObjective(Maximize, Sum(x, nil))).To(Succeed())
			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Objective).To(BeNumerically("~", 1+10+3, tol))
		})

		It("should reject constraint declarations with bounds", func() {
			_, err := m.AddConstraints(declare.Declaration{
				Name:  "c",
				Axes:  []declare.Axis{{Name: "i", Domain: declare.OneTo(2)}},
				Lower: constBound(0),
			}, func(declare.Binding) (Row, error) { return Row{}, nil })
			Expect(err).To(MatchError(declare.ErrInvalidDeclaration))
		})

		It("should pass resolver errors through", func() {
			_, err := m.AddVariables(declare.Declaration{
				Name: "x",
				Axes: []declare.Axis{{Name: "i", Domain: declare.OneTo(2)}},
				Lower: func(b declare.Binding) (float64, error) {
					k, err := b.Float("k")
					return k, err
				},
			})
			Expect(err).To(MatchError(declare.ErrUnboundIndexReference))
		})

		It("should use the configured resolver", func() {
			m = New("strict", WithResolver(declare.NewResolver(
				declare.WithEmptyDomainPolicy(declare.EmptyDomainFail))))
			_, err := m.AddVariables(declare.Declaration{
				Name: "x",
				Axes: []declare.Axis{{Name: "i", Domain: declare.OneTo(0)}},
			})
			Expect(err).To(MatchError(declare.ErrEmptyDomain))
		})
	})

	Context("with invalid input", func() {
		It("should reject variables of another model", func() {
			other := New("other")
			x := mustVar(other, "x", 0, 1)

			_, err := m.AddConstraint("c", NewExpr().Add(1, x), LessEq, 1)
			Expect(err).To(MatchError(ErrForeignVariable))
			Expect(m.SetObjective(Minimize, NewExpr().Add(1, x))).To(MatchError(ErrForeignVariable))
		})

		It("should reject foreign containers when reading values", func() {
			other := New("other")
			xs, err := other.AddVariables(declare.Declaration{
				Name:  "x",
				Axes:  []declare.Axis{{Name: "i", Domain: declare.OneTo(2)}},
				Lower: constBound(0),
			})
			Expect(err).NotTo(HaveOccurred())

			sol, err := m.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = sol.Values(xs)
			Expect(err).To(MatchError(ErrForeignVariable))
			Expect(math.IsNaN(sol.Value(xs.Values()[0]))).To(BeTrue())
		})

		It("should reject duplicate names", func() {
			mustVar(m, "x", 0, 1)
			_, err := m.AddVariable("x", 0, 1)
			Expect(err).To(MatchError(ErrDuplicateName))

			_, err = m.AddConstraint("x", NewExpr(), LessEq, 1)
			Expect(err).To(MatchError(ErrDuplicateName))
		})

		DescribeTable("should reject invalid bounds",
			func(lower, upper float64) {
				_, err := m.AddVariable("x", lower, upper)
				Expect(err).To(MatchError(ErrInvalidBound))
			},
			Entry("crossing", 2.0, 1.0),
			Entry("NaN lower", math.NaN(), 1.0),
			Entry("NaN upper", 0.0, math.NaN()),
			Entry("infinite lower", math.Inf(1), math.Inf(1)),
			Entry("infinite upper", math.Inf(-1), math.Inf(-1)),
		)

		It("should reject invalid rows", func() {
			x := mustVar(m, "x", 0, 1)
			_, err := m.AddConstraint("inf", NewExpr().Add(1, x), LessEq, math.Inf(1))
			Expect(err).To(MatchError(ErrInvalidBound))
			_, err = m.AddConstraint("nan", NewExpr().Add(math.NaN(), x), LessEq, 1)
			Expect(err).To(MatchError(ErrInvalidBound))
			_, err = m.AddConstraint("rel", NewExpr().Add(1, x), Relation(7), 1)
			Expect(err).To(MatchError(ErrInvalidRelation))
			Expect(m.Constraints()).To(BeEmpty())
		})

		It("should stop on a cancelled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := m.Solve(cctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})

var _ = Describe("Expr", func() {
	It("should format terms and constants", func() {
		m := New("fmt")
		x := mustVar(m, "x", 0, 1)
		y := mustVar(m, "y", 0, 1)

		e := NewExpr().Add(2, x).Add(-1, y).AddConstant(3)
		Expect(e.String()).To(Equal("2*x - y + 3"))
		Expect(NewExpr().Add(-1, x).String()).To(Equal("-x"))
		Expect(NewExpr().AddConstant(-2).String()).To(Equal("-2"))
	})

	It("should build new expressions with Plus and Scale", func() {
		m := New("ops")
		x := mustVar(m, "x", 0, 1)
		y := mustVar(m, "y", 0, 1)

		a := NewExpr().Add(1, x).AddConstant(1)
		b := NewExpr().Add(2, y)
		sum := a.Plus(b).Scale(2)
		Expect(sum.Terms()).To(Equal([]Term{{Coef: 2, Var: x}, {Coef: 4, Var: y}}))
		Expect(sum.Constant()).To(Equal(2.0))
		Expect(a.Terms()).To(HaveLen(1))
		Expect(a.Constant()).To(Equal(1.0))
	})

	It("should skip zero coefficients in Sum", func() {
		m := New("sum")
		x, err := m.AddVariables(declare.Declaration{
			Name: "x",
			Axes: []declare.Axis{{Name: "i", Domain: declare.OneTo(4)}},
		})
		Expect(err).NotTo(HaveOccurred())

		e := Sum(x, func(b declare.Binding) float64 {
			i, _ := b.Int("i")
			return float64(i % 2)
		})
		Expect(e.String()).To(Equal("x[1] + x[3]"))
	})
})
