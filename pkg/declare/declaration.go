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

import (
	"fmt"
	"strings"
)

// FilterFunc decides whether a candidate tuple survives. It sees every axis.
type FilterFunc func(Binding) (bool, error)

// BoundFunc computes a lower or upper bound for one tuple. It must be a pure
// function of the bound index values.
type BoundFunc func(Binding) (float64, error)

// Axis is one dimension of a declaration. An empty Name declares an anonymous
// axis that cannot be referenced by bounds, filters or dependent domains.
type Axis struct {
	Name   string
	Domain Domain
}

// Declaration is a named collection to be resolved into a container.
type Declaration struct {
	Name   string
	Axes   []Axis
	Filter FilterFunc
	Lower  BoundFunc
	Upper  BoundFunc
}

// IndexNames returns the axis names in order.
func (d Declaration) IndexNames() []string {
	names := make([]string, len(d.Axes))
	for i, a := range d.Axes {
		names[i] = a.Name
	}
	return names
}

// String renders the declaration header, e.g. "x[i in OneBased, j in Dependent]".
func (d Declaration) String() string {
	parts := make([]string, len(d.Axes))
	for i, a := range d.Axes {
		shape := "<nil>"
		if a.Domain != nil {
			shape = a.Domain.Shape().String()
		}
		name := a.Name
		if name == "" {
			name = "_"
		}
		parts[i] = fmt.Sprintf("%s in %s", name, shape)
	}
	return d.Name + "[" + strings.Join(parts, ", ") + "]"
}

// Validate checks the declaration's structure without enumerating it.
func (d Declaration) Validate() error {
	if len(d.Axes) == 0 {
		return fmt.Errorf("%w: %q has no axes", ErrInvalidDeclaration, d.Name)
	}
	seen := make(map[string]int, len(d.Axes))
	for i, a := range d.Axes {
		if a.Domain == nil {
			return fmt.Errorf("%w: %q axis %d has no domain", ErrInvalidDeclaration, d.Name, i)
		}
		if a.Name == "" {
			continue
		}
		if j, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: %q declares index %q at axes %d and %d", ErrInvalidDeclaration, d.Name, a.Name, j, i)
		}
		seen[a.Name] = i
	}
	return nil
}

// Classify selects the container kind from the declaration's shape alone:
// DenseArray when every axis is one-based and there is no filter, AxisArray
// when every axis is static and there is no filter, SparseMapping otherwise.
func Classify(d Declaration) Kind {
	if d.Filter != nil {
		return SparseMapping
	}
	kind := DenseArray
	for _, a := range d.Axes {
		if a.Domain == nil {
			continue
		}
		switch a.Domain.Shape() {
		case ShapeDependent:
			return SparseMapping
		case ShapeOneBased:
		default:
			kind = AxisArray
		}
	}
	return kind
}
