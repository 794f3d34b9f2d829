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
	"fmt"
	"math"

	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

// Status is the outcome of a solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solution holds the result of Model.Solve. Values are only available when
// Status is Optimal.
type Solution struct {
	Status Status
	// Objective is the objective value at the solution, NaN unless Optimal.
	Objective float64

	model  *Model
	values []float64
}

// IsOptimal reports whether the solve found an optimal point.
func (s *Solution) IsOptimal() bool { return s.Status == Optimal }

// Value returns the value of v. It returns NaN when the solution is not
// optimal or v belongs to another model.
func (s *Solution) Value(v *Variable) float64 {
	if s.Status != Optimal || v == nil || v.model != s.model {
		return math.NaN()
	}
	return s.values[v.id]
}

// Values returns the values of a variable container in a container of the
// same kind and shape.
func (s *Solution) Values(vars *declare.Container[*Variable]) (*declare.Container[float64], error) {
	return declare.Map(vars, func(_ declare.Tuple, v *Variable) (float64, error) {
		if v == nil || v.model != s.model {
			return 0, foreign(s.model.name, v)
		}
		return s.Value(v), nil
	})
}

// Eval returns the value of e at the solution, NaN when not optimal.
func (s *Solution) Eval(e *Expr) float64 {
	x := e.constant
	for _, t := range e.terms {
		x += t.Coef * s.Value(t.Var)
	}
	return x
}
