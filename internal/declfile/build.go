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

package declfile

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/llm-d/llm-d-lpdecl/internal/exprs"
	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

// Plan is a compiled declaration together with its per-declaration overrides.
type Plan struct {
	Declaration declare.Declaration
	AllowEmpty  *bool
}

// Build compiles every declaration of f. Problems in one declaration do not
// stop the others from being checked; all are reported together.
func (f *File) Build() ([]Plan, error) {
	plans := make([]Plan, 0, len(f.Declarations))
	var errs []error
	for _, spec := range f.Declarations {
		decl, err := spec.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("declaration %q: %w", spec.Name, err))
			continue
		}
		plans = append(plans, Plan{Declaration: decl, AllowEmpty: spec.AllowEmpty})
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		return nil, err
	}
	return plans, nil
}

// Build compiles one declaration. Axis endpoints may reference axes to their
// left; filter and bounds may reference every axis.
func (d DeclarationSpec) Build() (declare.Declaration, error) {
	decl := declare.Declaration{Name: d.Name, Axes: make([]declare.Axis, 0, len(d.Axes))}
	scope := make([]string, 0, len(d.Axes))
	for k, a := range d.Axes {
		dom, err := a.domain(scope)
		if err != nil {
			return decl, fmt.Errorf("axis %d (%q): %w", k, a.Name, err)
		}
		decl.Axes = append(decl.Axes, declare.Axis{Name: a.Name, Domain: dom})
		scope = append(scope, a.Name)
	}

	var err error
	if !d.Filter.IsZero() {
		if decl.Filter, err = exprs.Filter(string(d.Filter), scope); err != nil {
			return decl, fmt.Errorf("filter: %w", err)
		}
	}
	if !d.Lower.IsZero() {
		if decl.Lower, err = exprs.Bound(string(d.Lower), scope); err != nil {
			return decl, fmt.Errorf("lower bound: %w", err)
		}
	}
	if !d.Upper.IsZero() {
		if decl.Upper, err = exprs.Bound(string(d.Upper), scope); err != nil {
			return decl, fmt.Errorf("upper bound: %w", err)
		}
	}
	return decl, nil
}

// domain builds a static range when both endpoints are constant, a dependent
// range otherwise.
func (a AxisSpec) domain(outer []string) (declare.Domain, error) {
	if len(a.Values) > 0 {
		return declare.Values(a.Values...), nil
	}
	from := a.From
	if from.IsZero() {
		from = "1"
	}

	lo, loConst, err := endpoint(from, outer)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	hi, hiConst, err := endpoint(a.To, outer)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if loConst && hiConst {
		l, _ := lo(declare.Binding{})
		h, _ := hi(declare.Binding{})
		return declare.Range(l, h), nil
	}
	return declare.DependentRange(lo, hi), nil
}

func endpoint(src Expr, outer []string) (declare.IntFunc, bool, error) {
	if v, ok := exprs.Constant(string(src)); ok {
		n, ok := exprs.ToInt(v)
		if !ok {
			return nil, false, fmt.Errorf("%q is not an integer", src)
		}
		return declare.Const(n), true, nil
	}
	fn, err := exprs.Int(string(src), outer)
	if err != nil {
		return nil, false, err
	}
	return fn, false, nil
}
