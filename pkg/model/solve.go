/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/llm-d/llm-d-lpdecl/internal/logging"
)

const (
	// feasTol is the tolerance for rows that lose every variable coefficient.
	feasTol = 1e-9
	// rankTol is the relative singular value cutoff for dependent rows.
	rankTol = 1e-10
)

// column maps a model variable onto standard-form columns:
// x = offset + sum(sign[k] * y[cols[k]]).
type column struct {
	offset float64
	cols   []int
	signs  []float64
}

type stdRow struct {
	coefs map[int]float64
	rel   Relation
	rhs   float64
}

// standardForm is min c.y subject to A.y = b, y >= 0.
type standardForm struct {
	vars     []column
	rows     []stdRow
	ncols    int
	cost     []float64
	constant float64
}

func (s *standardForm) newColumn() int {
	s.ncols++
	return s.ncols - 1
}

// Solve converts the model to standard form and runs the simplex method.
// Infeasible and unbounded models are reported through Solution.Status; the
// error is reserved for cancellation and backend failures. The logger is taken
// from ctx when present.
func (m *Model) Solve(ctx context.Context) (*Solution, error) {
	logger, err := logr.FromContext(ctx)
	if err != nil {
		logger = logging.Log
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sf := m.standardForm()
	sol := &Solution{model: m}

	status, y, opt, err := sf.solve()
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.name, err)
	}
	sol.Status = status
	logger.V(logging.DEBUG).Info("Solved model",
		"model", m.name,
		"variables", len(m.vars),
		"constraints", len(m.constraints),
		"rows", len(sf.rows),
		"columns", sf.ncols,
		"status", status.String())
	if status != Optimal {
		sol.Objective = math.NaN()
		return sol, nil
	}

	sol.values = make([]float64, len(m.vars))
	for i, c := range sf.vars {
		x := c.offset
		for k, col := range c.cols {
			x += c.signs[k] * y[col]
		}
		sol.values[i] = x
	}
	if m.sense == Maximize {
		opt = -opt
	}
	sol.Objective = opt + sf.constant
	return sol, nil
}

func (m *Model) standardForm() *standardForm {
	sf := &standardForm{vars: make([]column, len(m.vars))}
	var boundRows []stdRow
	for i, v := range m.vars {
		lo, hi := !math.IsInf(v.lower, -1), !math.IsInf(v.upper, 1)
		switch {
		case lo:
			col := sf.newColumn()
			sf.vars[i] = column{offset: v.lower, cols: []int{col}, signs: []float64{1}}
			if hi {
				boundRows = append(boundRows, stdRow{
					coefs: map[int]float64{col: 1},
					rel:   LessEq,
					rhs:   v.upper - v.lower,
				})
			}
		case hi:
			sf.vars[i] = column{offset: v.upper, cols: []int{sf.newColumn()}, signs: []float64{-1}}
		default:
			sf.vars[i] = column{cols: []int{sf.newColumn(), sf.newColumn()}, signs: []float64{1, -1}}
		}
	}

	for _, c := range m.constraints {
		row := stdRow{coefs: make(map[int]float64), rel: c.row.Relation}
		row.rhs = c.row.RHS - c.row.Expr.constant - sf.project(c.row.Expr, row.coefs)
		sf.rows = append(sf.rows, row)
	}
	sf.rows = append(sf.rows, boundRows...)

	dir := 1.0
	if m.sense == Maximize {
		dir = -1
	}
	obj := make(map[int]float64)
	sf.constant = m.objective.constant + sf.project(m.objective, obj)
	sf.cost = make([]float64, sf.ncols)
	for col, k := range obj {
		sf.cost[col] = dir * k
	}
	return sf
}

// project adds the terms of e onto coefs in column space and returns the
// contribution of the variable offsets.
func (s *standardForm) project(e *Expr, coefs map[int]float64) float64 {
	var offset float64
	for _, t := range e.terms {
		c := s.vars[t.Var.id]
		offset += t.Coef * c.offset
		for k, col := range c.cols {
			coefs[col] += t.Coef * c.signs[k]
		}
	}
	return offset
}

// solve appends slack columns, drops empty rows, empty columns and dependent
// rows and calls lp.Simplex. y is indexed by column.
func (s *standardForm) solve() (Status, []float64, float64, error) {
	type dense struct {
		coefs map[int]float64
		rhs   float64
	}
	rows := make([]dense, 0, len(s.rows))
	for _, r := range s.rows {
		empty := true
		for _, k := range r.coefs {
			if k != 0 {
				empty = false
				break
			}
		}
		if empty {
			if !trivially(r.rel, r.rhs) {
				return Infeasible, nil, 0, nil
			}
			continue
		}
		switch r.rel {
		case LessEq:
			r.coefs[s.newColumn()] = 1
		case GreaterEq:
			r.coefs[s.newColumn()] = -1
		}
		if r.rhs < 0 {
			for col := range r.coefs {
				r.coefs[col] = -r.coefs[col]
			}
			r.rhs = -r.rhs
		}
		rows = append(rows, dense{coefs: r.coefs, rhs: r.rhs})
	}
	cost := make([]float64, s.ncols)
	copy(cost, s.cost)

	// Columns absent from every row sit at zero unless they improve the
	// objective without limit.
	used := make([]bool, s.ncols)
	for _, r := range rows {
		for col, k := range r.coefs {
			if k != 0 {
				used[col] = true
			}
		}
	}
	keep := make([]int, 0, s.ncols)
	for col := range s.ncols {
		switch {
		case used[col]:
			keep = append(keep, col)
		case cost[col] < 0:
			return Unbounded, nil, 0, nil
		}
	}

	y := make([]float64, s.ncols)
	if len(rows) == 0 {
		return Optimal, y, 0, nil
	}
	a := mat.NewDense(len(rows), len(keep), nil)
	b := make([]float64, len(rows))
	c := make([]float64, len(keep))
	for j, col := range keep {
		c[j] = cost[col]
	}
	pos := make(map[int]int, len(keep))
	for j, col := range keep {
		pos[col] = j
	}
	for i, r := range rows {
		b[i] = r.rhs
		for col, k := range r.coefs {
			if k != 0 {
				a.Set(i, pos[col], k)
			}
		}
	}

	a, b, consistent, err := independentRows(a, b)
	if err != nil {
		return 0, nil, 0, err
	}
	if !consistent {
		return Infeasible, nil, 0, nil
	}

	opt, x, err := lp.Simplex(c, a, b, 0, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return Infeasible, nil, 0, nil
	case errors.Is(err, lp.ErrUnbounded):
		return Unbounded, nil, 0, nil
	case err != nil:
		return 0, nil, 0, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	for j, col := range keep {
		y[col] = x[j]
	}
	return Optimal, y, opt, nil
}

// independentRows keeps the rows of a that raise its rank, in order. A dropped
// row whose right-hand side raises the rank of [a|b] contradicts the kept rows
// and makes the system inconsistent.
func independentRows(a *mat.Dense, b []float64) (*mat.Dense, []float64, bool, error) {
	m, n := a.Dims()
	aug := mat.NewDense(m, n+1, nil)
	aug.Slice(0, m, 0, n).(*mat.Dense).Copy(a)
	aug.SetCol(n, b)

	kept := make([]int, 0, m)
	for i := range m {
		cand := append(kept[:len(kept):len(kept)], i)
		r, err := rank(selectRows(a, cand))
		if err != nil {
			return nil, nil, false, err
		}
		if r == len(cand) {
			kept = cand
			continue
		}
		r, err = rank(selectRows(aug, cand))
		if err != nil {
			return nil, nil, false, err
		}
		if r > len(kept) {
			return nil, nil, false, nil
		}
	}
	if len(kept) == m {
		return a, b, true, nil
	}
	kb := make([]float64, len(kept))
	for k, i := range kept {
		kb[k] = b[i]
	}
	return selectRows(a, kept), kb, true, nil
}

func selectRows(a *mat.Dense, rows []int) *mat.Dense {
	_, n := a.Dims()
	out := mat.NewDense(len(rows), n, nil)
	for k, i := range rows {
		out.SetRow(k, a.RawRowView(i))
	}
	return out
}

func rank(a mat.Matrix) (int, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return 0, fmt.Errorf("%w: singular value decomposition did not converge", ErrSolver)
	}
	return svd.Rank(rankTol), nil
}

func trivially(rel Relation, rhs float64) bool {
	switch rel {
	case LessEq:
		return 0 <= rhs+feasTol
	case GreaterEq:
		return 0 >= rhs-feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}
