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
	"strconv"
	"strings"

	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

// Variable is one decision variable of a model.
type Variable struct {
	model *Model
	id    int
	name  string
	index declare.Tuple
	lower float64
	upper float64
}

// Name returns the variable name, "x[1,2]" for indexed variables.
func (v *Variable) Name() string { return v.name }

// Index returns the tuple the variable was registered for, nil for scalar variables.
func (v *Variable) Index() declare.Tuple { return v.index }

// Lower returns the lower bound, -Inf when unbounded below.
func (v *Variable) Lower() float64 { return v.lower }

// Upper returns the upper bound, +Inf when unbounded above.
func (v *Variable) Upper() float64 { return v.upper }

func (v *Variable) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.name
}

// Term is a coefficient applied to a variable.
type Term struct {
	Coef float64
	Var  *Variable
}

// Expr is a linear expression: a sum of terms plus a constant. Terms on the
// same variable are kept separately and merged when the model is solved.
type Expr struct {
	terms    []Term
	constant float64
}

// NewExpr returns an expression holding the given terms.
func NewExpr(terms ...Term) *Expr {
	return &Expr{terms: append([]Term(nil), terms...)}
}

// Add appends coef*v to e and returns e.
func (e *Expr) Add(coef float64, v *Variable) *Expr {
	e.terms = append(e.terms, Term{Coef: coef, Var: v})
	return e
}

// AddConstant adds c to the constant of e and returns e.
func (e *Expr) AddConstant(c float64) *Expr {
	e.constant += c
	return e
}

// Plus returns a new expression e + other.
func (e *Expr) Plus(other *Expr) *Expr {
	out := &Expr{
		terms:    make([]Term, 0, len(e.terms)+len(other.terms)),
		constant: e.constant + other.constant,
	}
	out.terms = append(out.terms, e.terms...)
	out.terms = append(out.terms, other.terms...)
	return out
}

// Scale returns a new expression k*e.
func (e *Expr) Scale(k float64) *Expr {
	out := &Expr{terms: make([]Term, len(e.terms)), constant: k * e.constant}
	for i, t := range e.terms {
		out.terms[i] = Term{Coef: k * t.Coef, Var: t.Var}
	}
	return out
}

// Terms returns a copy of the terms of e.
func (e *Expr) Terms() []Term {
	return append([]Term(nil), e.terms...)
}

// Constant returns the constant of e.
func (e *Expr) Constant() float64 { return e.constant }

// LessEq builds the row e <= rhs.
func (e *Expr) LessEq(rhs float64) Row { return Row{Expr: e, Relation: LessEq, RHS: rhs} }

// GreaterEq builds the row e >= rhs.
func (e *Expr) GreaterEq(rhs float64) Row { return Row{Expr: e, Relation: GreaterEq, RHS: rhs} }

// EqualTo builds the row e == rhs.
func (e *Expr) EqualTo(rhs float64) Row { return Row{Expr: e, Relation: EqualTo, RHS: rhs} }

func (e *Expr) String() string {
	var sb strings.Builder
	for i, t := range e.terms {
		coef := t.Coef
		switch {
		case i == 0 && coef < 0:
			sb.WriteString("-")
			coef = -coef
		case i > 0 && coef < 0:
			sb.WriteString(" - ")
			coef = -coef
		case i > 0:
			sb.WriteString(" + ")
		}
		if coef != 1 {
			sb.WriteString(strconv.FormatFloat(coef, 'g', -1, 64))
			sb.WriteString("*")
		}
		sb.WriteString(t.Var.String())
	}
	switch {
	case len(e.terms) == 0:
		sb.WriteString(strconv.FormatFloat(e.constant, 'g', -1, 64))
	case e.constant > 0:
		fmt.Fprintf(&sb, " + %g", e.constant)
	case e.constant < 0:
		fmt.Fprintf(&sb, " - %g", -e.constant)
	}
	return sb.String()
}

// Sum returns the sum of coef(b)*v over the variables of vars, where b is the
// binding of each variable's tuple. A nil coef sums with coefficient 1. Zero
// coefficients are skipped, so coef can select a slice of the container.
func Sum(vars *declare.Container[*Variable], coef func(b declare.Binding) float64) *Expr {
	e := &Expr{terms: make([]Term, 0, vars.Len())}
	for t, v := range vars.All() {
		k := 1.0
		if coef != nil {
			k = coef(vars.Binding(t))
		}
		if k == 0 {
			continue
		}
		e.terms = append(e.terms, Term{Coef: k, Var: v})
	}
	return e
}
