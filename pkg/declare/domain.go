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

package declare

import "fmt"

// Shape classifies a Domain for container-kind selection.
type Shape int

const (
	// ShapeOneBased is a contiguous integer range starting at 1.
	ShapeOneBased Shape = iota
	// ShapeRange is a contiguous integer range with an arbitrary start.
	ShapeRange
	// ShapeSequence is an explicit ordered sequence of comparable values.
	ShapeSequence
	// ShapeDependent is computed from the values of earlier axes.
	ShapeDependent
)

func (s Shape) String() string {
	switch s {
	case ShapeOneBased:
		return "OneBased"
	case ShapeRange:
		return "Range"
	case ShapeSequence:
		return "Sequence"
	case ShapeDependent:
		return "Dependent"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Domain describes the values one axis ranges over.
type Domain interface {
	// Shape reports the domain's shape without enumerating it.
	Shape() Shape
	// Elements enumerates the domain in order. outer binds the axes to the left
	// of the one being enumerated; static domains ignore it.
	Elements(outer Binding) ([]any, error)
}

// IntFunc computes an integer from the values of earlier axes.
type IntFunc func(Binding) (int, error)

// Const returns an IntFunc that always yields n.
func Const(n int) IntFunc {
	return func(Binding) (int, error) { return n, nil }
}

// Index returns an IntFunc yielding the integer bound to name.
func Index(name string) IntFunc {
	return func(b Binding) (int, error) { return b.Int(name) }
}

type rangeDomain struct {
	from, to int
}

// OneTo is the range 1..n. A non-positive n is an empty range.
func OneTo(n int) Domain {
	return rangeDomain{from: 1, to: n}
}

// Range is the contiguous integer range from..to, both inclusive.
func Range(from, to int) Domain {
	return rangeDomain{from: from, to: to}
}

func (d rangeDomain) Shape() Shape {
	if d.from == 1 {
		return ShapeOneBased
	}
	return ShapeRange
}

func (d rangeDomain) Elements(Binding) ([]any, error) {
	if d.to < d.from {
		return []any{}, nil
	}
	out := make([]any, 0, d.to-d.from+1)
	for v := d.from; v <= d.to; v++ {
		out = append(out, v)
	}
	return out, nil
}

type valuesDomain struct {
	values []any
	err    error
}

// Values is an explicit ordered sequence. Values must be comparable and
// distinct; integer kinds are normalized to int.
func Values(values ...any) Domain {
	d := valuesDomain{values: make([]any, 0, len(values))}
	seen := make(map[any]struct{}, len(values))
	for _, v := range values {
		if !isComparable(v) {
			d.err = fmt.Errorf("%w: value %v (%T) is not comparable", ErrInvalidDeclaration, v, v)
			return d
		}
		v = normalize(v)
		if _, dup := seen[v]; dup {
			d.err = fmt.Errorf("%w: duplicate value %v", ErrInvalidDeclaration, v)
			return d
		}
		seen[v] = struct{}{}
		d.values = append(d.values, v)
	}
	return d
}

// Strings is Values for string labels.
func Strings(values ...string) Domain {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Values(vals...)
}

func (d valuesDomain) Shape() Shape { return ShapeSequence }

func (d valuesDomain) Elements(Binding) ([]any, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]any, len(d.values))
	copy(out, d.values)
	return out, nil
}

type dependentDomain struct {
	fn func(Binding) (Domain, error)
}

// Dependent is a domain computed per tuple of the axes to its left.
func Dependent(fn func(outer Binding) (Domain, error)) Domain {
	return dependentDomain{fn: fn}
}

// DependentRange is the integer range from(outer)..to(outer), e.g. j in i..5:
//
//	DependentRange(Index("i"), Const(5))
func DependentRange(from, to IntFunc) Domain {
	return Dependent(func(outer Binding) (Domain, error) {
		lo, err := from(outer)
		if err != nil {
			return nil, err
		}
		hi, err := to(outer)
		if err != nil {
			return nil, err
		}
		return Range(lo, hi), nil
	})
}

func (d dependentDomain) Shape() Shape { return ShapeDependent }

func (d dependentDomain) Elements(outer Binding) ([]any, error) {
	if d.fn == nil {
		return nil, fmt.Errorf("%w: dependent domain without function", ErrInvalidDeclaration)
	}
	inner, err := d.fn(outer)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, fmt.Errorf("%w: dependent domain returned nil", ErrInvalidDeclaration)
	}
	return inner.Elements(outer)
}
