/*
Package model registers resolved declarations with a linear program and solves
it with gonum's simplex implementation.

A Model owns variables, constraints and one objective. Indexed variables and
constraints are declared with declare.Declaration values: the model resolves
them and registers one variable or constraint per stored tuple, handing back a
container of the same kind and shape so that callers look entries up by index
values exactly as they would on the resolved container.

	m := model.New("transport")
	x, err := m.AddVariables(declare.Declaration{
		Name:  "x",
		Axes:  []declare.Axis{{Name: "i", Domain: plants}, {Name: "j", Domain: markets}},
		Lower: func(declare.Binding) (float64, error) { return 0, nil },
	})
	...
	m.SetObjective(model.Minimize, model.Sum(x, cost))
	sol, err := m.Solve(ctx)

Solve converts the model to the equality standard form gonum expects:

  - a variable with a finite lower bound l is shifted to x = l + x', and a
    finite upper bound u becomes the row x' + s = u - l
  - a variable with only an upper bound is mirrored to x = u - x'
  - a free variable is split into x = x+ - x-
  - LessEq rows receive a slack column, GreaterEq rows a surplus column
  - maximization negates the objective

Integrality is not supported.
*/
package model
