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

// Binding holds the index names in scope at one point of the enumeration and
// the values bound to them. Dependent domains see only the axes to their left;
// filters and bounds see every axis of the declaration.
type Binding struct {
	names  []string
	values []any
}

// NewBinding pairs names with values. When the lengths differ the binding has
// an empty scope and every lookup fails with an UnboundIndexReferenceError.
func NewBinding(names []string, values Tuple) Binding {
	if len(names) != len(values) {
		return Binding{}
	}
	return Binding{names: names, values: values}
}

// Names returns the index names in scope, anonymous axes included as "".
func (b Binding) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Tuple returns the bound values in axis order.
func (b Binding) Tuple() Tuple {
	return Tuple(b.values).clone()
}

// Len returns the number of bound axes.
func (b Binding) Len() int { return len(b.values) }

// Value returns the value bound to name.
func (b Binding) Value(name string) (any, error) {
	if name != "" {
		for i, n := range b.names {
			if n == name {
				return b.values[i], nil
			}
		}
	}
	return nil, &UnboundIndexReferenceError{Name: name, InScope: b.scope()}
}

// Int returns the integer bound to name.
func (b Binding) Int(name string) (int, error) {
	v, err := b.Value(name)
	if err != nil {
		return 0, err
	}
	i, ok := normalize(v).(int)
	if !ok {
		return 0, fmt.Errorf("%w: index %q is %T, not an integer", ErrIndexType, name, v)
	}
	return i, nil
}

// Float returns the number bound to name as a float64.
func (b Binding) Float(name string) (float64, error) {
	v, err := b.Value(name)
	if err != nil {
		return 0, err
	}
	switch x := normalize(v).(type) {
	case int:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("%w: index %q is %T, not a number", ErrIndexType, name, v)
}

// String returns the string bound to name.
func (b Binding) String(name string) (string, error) {
	v, err := b.Value(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: index %q is %T, not a string", ErrIndexType, name, v)
	}
	return s, nil
}

// Map returns the named bindings; anonymous axes are omitted.
func (b Binding) Map() map[string]any {
	out := make(map[string]any, len(b.names))
	for i, n := range b.names {
		if n != "" {
			out[n] = b.values[i]
		}
	}
	return out
}

func (b Binding) scope() []string {
	out := make([]string, 0, len(b.names))
	for _, n := range b.names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
