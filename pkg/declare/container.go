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
	"iter"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Kind is the container variant chosen for a declaration.
type Kind int

const (
	// DenseArray has contiguous one-based integer axes and no filter.
	DenseArray Kind = iota
	// AxisArray has static, arbitrary ordered axes and no filter.
	AxisArray
	// SparseMapping holds only the tuples that survived a filter or a dependent axis.
	SparseMapping
)

func (k Kind) String() string {
	switch k {
	case DenseArray:
		return "DenseArray"
	case AxisArray:
		return "AxisArray"
	case SparseMapping:
		return "SparseMapping"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is what the resolver stores at every surviving tuple: the index and
// the evaluated bounds. Absent bounds are -Inf and +Inf.
type Entry struct {
	Index Tuple
	Lower float64
	Upper float64
}

// HasLower reports whether the entry has a finite lower bound.
func (e Entry) HasLower() bool { return !math.IsInf(e.Lower, -1) }

// HasUpper reports whether the entry has a finite upper bound.
func (e Entry) HasUpper() bool { return !math.IsInf(e.Upper, 1) }

// Container is a resolved declaration. Its shape is fixed at resolution;
// only the stored values may be replaced.
//
// Dense and axis containers store values at row-major offsets of their axis
// positions. Sparse containers map tuple keys to offsets and contain nothing
// for discarded tuples.
type Container[T any] struct {
	name      string
	kind      Kind
	names     []string
	axes      [][]any
	dims      []int
	positions []map[any]int
	tuples    []Tuple
	values    []T
	index     map[any]int
	warnings  []error
}

// Name returns the declaration name.
func (c *Container[T]) Name() string { return c.name }

// Kind returns the container variant.
func (c *Container[T]) Kind() Kind { return c.kind }

// IndexNames returns the axis names in order.
func (c *Container[T]) IndexNames() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of stored entries.
func (c *Container[T]) Len() int { return len(c.values) }

// Dims returns the axis lengths of a dense or axis container, nil for sparse.
func (c *Container[T]) Dims() []int {
	if c.kind == SparseMapping {
		return nil
	}
	out := make([]int, len(c.dims))
	copy(out, c.dims)
	return out
}

// Axes returns the ordered axis domains of a dense or axis container, nil for sparse.
func (c *Container[T]) Axes() [][]any {
	if c.kind == SparseMapping {
		return nil
	}
	out := make([][]any, len(c.axes))
	for i, a := range c.axes {
		out[i] = append([]any(nil), a...)
	}
	return out
}

// Warnings returns advisory problems found during resolution, e.g. empty domains.
func (c *Container[T]) Warnings() []error {
	return append([]error(nil), c.warnings...)
}

// Get returns the value stored at the index tuple key.
func (c *Container[T]) Get(key ...any) (T, error) {
	var zero T
	off, ok := c.offset(key)
	if !ok {
		return zero, &KeyNotPresentError{Container: c.name, Key: normalizeTuple(key)}
	}
	return c.values[off], nil
}

// Has reports whether the container holds key.
func (c *Container[T]) Has(key ...any) bool {
	_, ok := c.offset(key)
	return ok
}

// At returns the value at zero-based axis positions. Only dense and axis
// containers support positional access.
func (c *Container[T]) At(pos ...int) (T, error) {
	var zero T
	if c.kind == SparseMapping {
		return zero, ErrNotPositional
	}
	if len(pos) != len(c.dims) {
		return zero, fmt.Errorf("%w: %s has %d axes, got %d positions", ErrKeyNotPresent, c.name, len(c.dims), len(pos))
	}
	for i, p := range pos {
		if p < 0 || p >= c.dims[i] {
			return zero, fmt.Errorf("%w: %s position %v outside %v", ErrKeyNotPresent, c.name, pos, c.dims)
		}
	}
	return c.values[combin.IdxFor(pos, c.dims)], nil
}

// Set replaces the value stored at key. It never adds tuples.
func (c *Container[T]) Set(value T, key ...any) error {
	off, ok := c.offset(key)
	if !ok {
		return &KeyNotPresentError{Container: c.name, Key: normalizeTuple(key)}
	}
	c.values[off] = value
	return nil
}

// Tuples returns the stored index tuples in enumeration order.
func (c *Container[T]) Tuples() []Tuple {
	out := make([]Tuple, len(c.tuples))
	for i, t := range c.tuples {
		out[i] = t.clone()
	}
	return out
}

// Values returns the stored values in enumeration order.
func (c *Container[T]) Values() []T {
	return append([]T(nil), c.values...)
}

// All iterates tuples and values in enumeration order.
func (c *Container[T]) All() iter.Seq2[Tuple, T] {
	return func(yield func(Tuple, T) bool) {
		for i, t := range c.tuples {
			if !yield(t.clone(), c.values[i]) {
				return
			}
		}
	}
}

// Binding binds the container's index names to t. A tuple of the wrong length
// yields a binding with an empty scope.
func (c *Container[T]) Binding(t Tuple) Binding {
	return NewBinding(c.names, t)
}

func (c *Container[T]) offset(key []any) (int, bool) {
	if len(key) != len(c.names) || len(c.values) == 0 {
		return 0, false
	}
	switch c.kind {
	case DenseArray:
		pos := make([]int, len(key))
		for i, k := range key {
			v, ok := normalize(k).(int)
			if !ok || v < 1 || v > c.dims[i] {
				return 0, false
			}
			pos[i] = v - 1
		}
		return combin.IdxFor(pos, c.dims), true
	case AxisArray:
		pos := make([]int, len(key))
		for i, k := range key {
			if !isComparable(k) {
				return 0, false
			}
			p, ok := c.positions[i][normalize(k)]
			if !ok {
				return 0, false
			}
			pos[i] = p
		}
		return combin.IdxFor(pos, c.dims), true
	default:
		for _, k := range key {
			if !isComparable(k) {
				return 0, false
			}
		}
		off, ok := c.index[normalizeTuple(key).mapKey()]
		return off, ok
	}
}

// Map builds a container of the same kind and shape whose values are fn applied
// to every stored tuple and value. It stops at the first error.
func Map[T, U any](c *Container[T], fn func(Tuple, T) (U, error)) (*Container[U], error) {
	out := &Container[U]{
		name:      c.name,
		kind:      c.kind,
		names:     c.names,
		axes:      c.axes,
		dims:      c.dims,
		positions: c.positions,
		tuples:    c.tuples,
		values:    make([]U, len(c.values)),
		index:     c.index,
		warnings:  c.warnings,
	}
	for i, t := range c.tuples {
		v, err := fn(t.clone(), c.values[i])
		if err != nil {
			return nil, err
		}
		out.values[i] = v
	}
	return out, nil
}
