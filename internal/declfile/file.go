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

// Package declfile reads declaration files and turns them into declare
// declarations with CEL-backed bounds, filters and dependent ranges.
//
// File format:
//
//	declarations:
//	  - name: x
//	    axes:
//	      - {name: i, from: 1, to: 3}
//	      - {name: j, from: i, to: 5}
//	      - {name: c, values: [a, b]}
//	    filter: "i != j"
//	    lower: "2*i + j"
//	    upper: "100"
//	    allowEmpty: true
//
// An axis either lists values or gives a range; "from" defaults to 1. Range
// endpoints that reference earlier axes make the axis dependent.
package declfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Expr is an expression written as a YAML scalar. Numbers are kept as text.
type Expr string

// UnmarshalYAML accepts any scalar.
func (e *Expr) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expression must be a scalar", value.Line)
	}
	*e = Expr(strings.TrimSpace(value.Value))
	return nil
}

// IsZero reports whether the expression is absent.
func (e Expr) IsZero() bool { return e == "" }

// File is a parsed declaration file.
type File struct {
	Declarations []DeclarationSpec `yaml:"declarations"`
}

// DeclarationSpec is one declaration in a file.
type DeclarationSpec struct {
	Name   string     `yaml:"name"`
	Axes   []AxisSpec `yaml:"axes"`
	Filter Expr       `yaml:"filter,omitempty"`
	Lower  Expr       `yaml:"lower,omitempty"`
	Upper  Expr       `yaml:"upper,omitempty"`

	// AllowEmpty overrides the global empty domain policy for this declaration.
	AllowEmpty *bool `yaml:"allowEmpty,omitempty"`
}

// AxisSpec is one axis. Exactly one of Values or To must be set.
type AxisSpec struct {
	Name   string `yaml:"name,omitempty"`
	From   Expr   `yaml:"from,omitempty"`
	To     Expr   `yaml:"to,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// ReadFile parses and validates the declaration file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open declaration file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Parse(f)
}

// Parse decodes and validates a declaration file. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("declaration file is empty")
		}
		return nil, fmt.Errorf("failed to parse declaration file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the structure of every declaration and reports all problems.
func (f *File) Validate() error {
	var errs []error
	if len(f.Declarations) == 0 {
		errs = append(errs, errors.New("no declarations"))
	}
	names := sets.New[string]()
	for i, d := range f.Declarations {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("declaration %d: name is required", i))
		} else if names.Has(d.Name) {
			errs = append(errs, fmt.Errorf("declaration %q: duplicate name", d.Name))
		}
		names.Insert(d.Name)
		errs = append(errs, d.validate()...)
	}
	return utilerrors.NewAggregate(errs)
}

func (d DeclarationSpec) validate() []error {
	var errs []error
	if len(d.Axes) == 0 {
		errs = append(errs, fmt.Errorf("declaration %q: at least one axis is required", d.Name))
	}
	indices := sets.New[string]()
	for k, a := range d.Axes {
		switch {
		case len(a.Values) > 0 && (!a.To.IsZero() || !a.From.IsZero()):
			errs = append(errs, fmt.Errorf("declaration %q axis %d: values and from/to are exclusive", d.Name, k))
		case len(a.Values) == 0 && a.To.IsZero():
			errs = append(errs, fmt.Errorf("declaration %q axis %d: either values or to is required", d.Name, k))
		}
		if a.Name == "" {
			continue
		}
		if indices.Has(a.Name) {
			errs = append(errs, fmt.Errorf("declaration %q: duplicate index %q", d.Name, a.Name))
		}
		indices.Insert(a.Name)
	}
	return errs
}
