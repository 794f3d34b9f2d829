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

// Relation is the comparison of a constraint row.
type Relation int

const (
	LessEq Relation = iota
	GreaterEq
	EqualTo
)

func (r Relation) String() string {
	switch r {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case EqualTo:
		return "=="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Sense is the optimization direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "Maximize"
	}
	return "Minimize"
}

// Row is a constraint body: Expr Relation RHS.
type Row struct {
	Expr     *Expr
	Relation Relation
	RHS      float64
}

// Constraint is one registered row of a model.
type Constraint struct {
	name  string
	index declare.Tuple
	row   Row
}

// Name returns the constraint name, "cap[2]" for indexed constraints.
func (c *Constraint) Name() string { return c.name }

// Index returns the tuple the constraint was registered for, nil for scalar constraints.
func (c *Constraint) Index() declare.Tuple { return c.index }

// Row returns the constraint body.
func (c *Constraint) Row() Row { return c.row }

func (c *Constraint) String() string {
	return fmt.Sprintf("%s: %s %s %g", c.name, c.row.Expr, c.row.Relation, c.row.RHS)
}

// Option configures a Model.
type Option func(*Model)

// WithResolver sets the resolver used by AddVariables and AddConstraints.
func WithResolver(r *declare.Resolver) Option {
	return func(m *Model) {
		m.resolver = r
	}
}

// Model is a linear program under construction. It is not safe for
// concurrent use.
type Model struct {
	name        string
	resolver    *declare.Resolver
	vars        []*Variable
	constraints []*Constraint
	names       map[string]struct{}
	sense       Sense
	objective   *Expr
}

// New returns an empty model. Without an objective, Solve looks for any
// feasible point.
func New(name string, opts ...Option) *Model {
	m := &Model{
		name:      name,
		names:     make(map[string]struct{}),
		objective: NewExpr(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.resolver == nil {
		m.resolver = declare.NewResolver()
	}
	return m
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Variables returns the registered variables in registration order.
func (m *Model) Variables() []*Variable {
	return append([]*Variable(nil), m.vars...)
}

// Constraints returns the registered constraints in registration order.
func (m *Model) Constraints() []*Constraint {
	return append([]*Constraint(nil), m.constraints...)
}

// Objective returns the objective sense and expression.
func (m *Model) Objective() (Sense, *Expr) { return m.sense, m.objective }

// AddVariable registers a scalar variable. Use math.Inf for missing bounds.
func (m *Model) AddVariable(name string, lower, upper float64) (*Variable, error) {
	return m.addVariable(name, nil, lower, upper)
}

// AddVariables resolves decl and registers one variable per stored tuple with
// the tuple's bounds. The returned container has the kind and shape of the
// resolved one. Variables registered before a failing tuple stay in the model.
func (m *Model) AddVariables(decl declare.Declaration) (*declare.Container[*Variable], error) {
	c, err := m.resolver.Resolve(decl)
	if err != nil {
		return nil, err
	}
	return declare.Map(c, func(t declare.Tuple, e declare.Entry) (*Variable, error) {
		return m.addVariable(decl.Name+t.String(), t, e.Lower, e.Upper)
	})
}

func (m *Model) addVariable(name string, index declare.Tuple, lower, upper float64) (*Variable, error) {
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper ||
		math.IsInf(lower, 1) || math.IsInf(upper, -1) {
		return nil, fmt.Errorf("%w: variable %s has bounds [%g, %g]", ErrInvalidBound, name, lower, upper)
	}
	if err := m.claim(name); err != nil {
		return nil, err
	}
	v := &Variable{model: m, id: len(m.vars), name: name, index: index, lower: lower, upper: upper}
	m.vars = append(m.vars, v)
	return v, nil
}

// AddConstraint registers the row expr rel rhs.
func (m *Model) AddConstraint(name string, expr *Expr, rel Relation, rhs float64) (*Constraint, error) {
	return m.addConstraint(name, nil, Row{Expr: expr, Relation: rel, RHS: rhs})
}

// AddConstraints resolves decl and registers the row returned by build for
// every stored tuple. decl must not carry bounds; filters and dependent axes
// select the tuples that receive a row.
func (m *Model) AddConstraints(
	decl declare.Declaration,
	build func(b declare.Binding) (Row, error),
) (*declare.Container[*Constraint], error) {
	if decl.Lower != nil || decl.Upper != nil {
		return nil, fmt.Errorf("%w: constraint declaration %q has bounds", declare.ErrInvalidDeclaration, decl.Name)
	}
	c, err := m.resolver.Resolve(decl)
	if err != nil {
		return nil, err
	}
	return declare.Map(c, func(t declare.Tuple, _ declare.Entry) (*Constraint, error) {
		row, err := build(c.Binding(t))
		if err != nil {
			return nil, fmt.Errorf("constraint %s%s: %w", decl.Name, t, err)
		}
		return m.addConstraint(decl.Name+t.String(), t, row)
	})
}

func (m *Model) addConstraint(name string, index declare.Tuple, row Row) (*Constraint, error) {
	if row.Expr == nil {
		row.Expr = NewExpr()
	}
	switch row.Relation {
	case LessEq, GreaterEq, EqualTo:
	default:
		return nil, fmt.Errorf("%w: constraint %s uses %s", ErrInvalidRelation, name, row.Relation)
	}
	if math.IsNaN(row.RHS) || math.IsInf(row.RHS, 0) {
		return nil, fmt.Errorf("%w: constraint %s has right-hand side %g", ErrInvalidBound, name, row.RHS)
	}
	if err := m.check(row.Expr); err != nil {
		return nil, fmt.Errorf("constraint %s: %w", name, err)
	}
	if err := m.claim(name); err != nil {
		return nil, err
	}
	c := &Constraint{name: name, index: index, row: row}
	m.constraints = append(m.constraints, c)
	return c, nil
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(sense Sense, expr *Expr) error {
	if expr == nil {
		expr = NewExpr()
	}
	if err := m.check(expr); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	m.sense = sense
	m.objective = expr
	return nil
}

func (m *Model) check(e *Expr) error {
	for _, t := range e.terms {
		if t.Var == nil || t.Var.model != m {
			return foreign(m.name, t.Var)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("%w: coefficient %g on %s", ErrInvalidBound, t.Coef, t.Var)
		}
	}
	if math.IsNaN(e.constant) || math.IsInf(e.constant, 0) {
		return fmt.Errorf("%w: constant %g", ErrInvalidBound, e.constant)
	}
	return nil
}

func (m *Model) claim(name string) error {
	if _, ok := m.names[name]; ok {
		return fmt.Errorf("%w: %q in model %q", ErrDuplicateName, name, m.name)
	}
	m.names[name] = struct{}{}
	return nil
}
