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
	"math"
	"strings"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/stat/combin"
)

// EmptyDomainPolicy decides what happens when an axis enumerates to nothing.
type EmptyDomainPolicy int

const (
	// EmptyDomainWarn returns the container and records the problem as a warning.
	EmptyDomainWarn EmptyDomainPolicy = iota
	// EmptyDomainFail fails the resolution.
	EmptyDomainFail
	// EmptyDomainIgnore returns the container silently.
	EmptyDomainIgnore
)

func (p EmptyDomainPolicy) String() string {
	switch p {
	case EmptyDomainWarn:
		return "warn"
	case EmptyDomainFail:
		return "error"
	case EmptyDomainIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("EmptyDomainPolicy(%d)", int(p))
	}
}

// ParseEmptyDomainPolicy parses "warn", "error" or "ignore".
func ParseEmptyDomainPolicy(s string) (EmptyDomainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return EmptyDomainWarn, nil
	case "error":
		return EmptyDomainFail, nil
	case "ignore":
		return EmptyDomainIgnore, nil
	default:
		return EmptyDomainWarn, fmt.Errorf("unsupported empty domain policy: %q", s)
	}
}

// Observer is notified after every resolution, successful or not.
type Observer interface {
	ObserveResolution(declaration string, kind Kind, entries, discarded int, err error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for warnings and summaries.
func WithLogger(logger logr.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithEmptyDomainPolicy sets the empty domain policy. The default is EmptyDomainWarn.
func WithEmptyDomainPolicy(p EmptyDomainPolicy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// Resolver turns declarations into containers. It holds no per-declaration
// state and may be shared.
type Resolver struct {
	logger   logr.Logger
	policy   EmptyDomainPolicy
	observer Observer
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		logger: logr.Discard(),
		policy: EmptyDomainWarn,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the resolver's empty domain policy.
func (r *Resolver) Policy() EmptyDomainPolicy { return r.policy }

// Resolve resolves decl with a default Resolver.
func Resolve(decl Declaration) (*Container[Entry], error) {
	return NewResolver().Resolve(decl)
}

// Resolve classifies decl, enumerates its index tuples in lexicographic order,
// applies the filter, evaluates bounds and materializes the container. A
// failing declaration yields no container.
func (r *Resolver) Resolve(decl Declaration) (*Container[Entry], error) {
	kind := Classify(decl)
	res := &resolution{
		resolver: r,
		decl:     decl,
		names:    decl.IndexNames(),
	}

	var err error
	if err = decl.Validate(); err == nil {
		if kind == SparseMapping {
			err = res.sparse()
		} else {
			err = res.static(kind)
		}
	}

	if r.observer != nil {
		r.observer.ObserveResolution(decl.Name, kind, len(res.values), res.discarded, err)
	}
	if err != nil {
		return nil, err
	}

	r.logger.V(1).Info("Resolved declaration",
		"declaration", decl.Name,
		"kind", kind.String(),
		"entries", len(res.values),
		"discarded", res.discarded)

	return &Container[Entry]{
		name:      decl.Name,
		kind:      kind,
		names:     res.names,
		axes:      res.axes,
		dims:      res.dims,
		positions: res.positions,
		tuples:    res.tuples,
		values:    res.values,
		index:     res.index,
		warnings:  res.warnings,
	}, nil
}

// resolution is the state of one Resolve call.
type resolution struct {
	resolver *Resolver
	decl     Declaration
	names    []string

	axes      [][]any
	dims      []int
	positions []map[any]int
	tuples    []Tuple
	values    []Entry
	index     map[any]int
	warnings  []error
	discarded int
}

// static handles dense and axis containers: every axis is enumerated once and
// the tuples are the Cartesian product of the axis positions.
func (s *resolution) static(kind Kind) error {
	n := len(s.decl.Axes)
	s.axes = make([][]any, n)
	s.dims = make([]int, n)
	for k, a := range s.decl.Axes {
		elems, err := a.Domain.Elements(Binding{})
		if err != nil {
			return fmt.Errorf("declaration %q axis %q: %w", s.decl.Name, a.Name, err)
		}
		s.axes[k] = elems
		s.dims[k] = len(elems)
		if len(elems) == 0 {
			if err := s.emptyDomain(k); err != nil {
				return err
			}
		}
	}

	if kind == AxisArray {
		s.positions = make([]map[any]int, n)
		for k, elems := range s.axes {
			s.positions[k] = make(map[any]int, len(elems))
			for p, v := range elems {
				s.positions[k][v] = p
			}
		}
	}

	total := combin.Card(s.dims)
	s.tuples = make([]Tuple, 0, total)
	s.values = make([]Entry, 0, total)
	if total == 0 {
		return nil
	}
	for _, pos := range combin.Cartesian(s.dims) {
		t := make(Tuple, n)
		for k, p := range pos {
			t[k] = s.axes[k][p]
		}
		entry, err := s.entry(t)
		if err != nil {
			return err
		}
		s.tuples = append(s.tuples, t)
		s.values = append(s.values, entry)
	}
	return nil
}

// sparse handles filtered and triangular declarations with a recursive
// enumerator; inner domains are computed from the outer binding.
func (s *resolution) sparse() error {
	n := len(s.decl.Axes)
	s.index = make(map[any]int)
	reached := make([]bool, n)
	nonEmpty := make([]bool, n)

	var walk func(k int, prefix Tuple) error
	walk = func(k int, prefix Tuple) error {
		if k == n {
			return s.visit(prefix)
		}
		a := s.decl.Axes[k]
		elems, err := a.Domain.Elements(NewBinding(s.names[:k], prefix))
		if err != nil {
			return fmt.Errorf("declaration %q axis %q at %s: %w", s.decl.Name, a.Name, prefix, err)
		}
		reached[k] = true
		if len(elems) > 0 {
			nonEmpty[k] = true
		}
		for _, v := range elems {
			if !isComparable(v) {
				return fmt.Errorf("%w: %q axis %q value %v (%T) is not comparable", ErrInvalidDeclaration, s.decl.Name, a.Name, v, v)
			}
			if err := walk(k+1, append(prefix[:k:k], normalize(v))); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, Tuple{}); err != nil {
		return err
	}

	for k := range s.decl.Axes {
		if reached[k] && !nonEmpty[k] {
			if err := s.emptyDomain(k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *resolution) visit(t Tuple) error {
	if s.decl.Filter != nil {
		keep, err := s.decl.Filter(NewBinding(s.names, t))
		if err != nil {
			return fmt.Errorf("declaration %q filter at %s: %w", s.decl.Name, t, err)
		}
		if !keep {
			s.discarded++
			return nil
		}
	}
	key := t.mapKey()
	if _, dup := s.index[key]; dup {
		return fmt.Errorf("%w: %q enumerates %s twice", ErrInvalidDeclaration, s.decl.Name, t)
	}
	entry, err := s.entry(t)
	if err != nil {
		return err
	}
	s.index[key] = len(s.values)
	s.tuples = append(s.tuples, t)
	s.values = append(s.values, entry)
	return nil
}

// entry evaluates the bounds of one surviving tuple.
func (s *resolution) entry(t Tuple) (Entry, error) {
	e := Entry{Index: t.clone(), Lower: math.Inf(-1), Upper: math.Inf(1)}
	b := NewBinding(s.names, t)
	if s.decl.Lower != nil {
		v, err := s.bound("lower", s.decl.Lower, b)
		if err != nil {
			return e, err
		}
		e.Lower = v
	}
	if s.decl.Upper != nil {
		v, err := s.bound("upper", s.decl.Upper, b)
		if err != nil {
			return e, err
		}
		e.Upper = v
	}
	if e.Lower > e.Upper {
		return e, &InconsistentBoundDirectionError{
			Declaration: s.decl.Name,
			Index:       t.clone(),
			Lower:       e.Lower,
			Upper:       e.Upper,
		}
	}
	return e, nil
}

func (s *resolution) bound(which string, fn BoundFunc, b Binding) (float64, error) {
	v, err := fn(b)
	if err != nil {
		return 0, fmt.Errorf("declaration %q %s bound at %s: %w", s.decl.Name, which, b.Tuple(), err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: declaration %q %s bound at %s is NaN", ErrInvalidBound, s.decl.Name, which, b.Tuple())
	}
	return v, nil
}

func (s *resolution) emptyDomain(k int) error {
	err := &EmptyDomainError{Declaration: s.decl.Name, Axis: s.decl.Axes[k].Name, Position: k}
	switch s.resolver.policy {
	case EmptyDomainFail:
		return err
	case EmptyDomainIgnore:
		return nil
	default:
		s.resolver.logger.Info("Declaration axis has an empty domain",
			"declaration", s.decl.Name,
			"axis", s.decl.Axes[k].Name,
			"position", k)
		s.warnings = append(s.warnings, err)
		return nil
	}
}
