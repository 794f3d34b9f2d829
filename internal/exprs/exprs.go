// Package exprs compiles the textual filter, bound and axis-endpoint
// expressions of declaration files into declare functions using CEL.
//
// Every index name in scope is declared as a dynamically typed CEL variable,
// so "2*i + j", "i != j" and "c == 'north'" all type-check. Integer index
// values are bound as CEL ints; mixing ints and doubles needs an explicit
// double(i) conversion.
package exprs

import (
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/google/cel-go/cel"

	"github.com/llm-d/llm-d-lpdecl/pkg/declare"
)

var (
	// ErrCompile indicates an expression that does not parse or type-check.
	ErrCompile = errors.New("exprs: compile failed")
	// ErrEval indicates a runtime evaluation failure.
	ErrEval = errors.New("exprs: evaluation failed")
	// ErrResultType indicates an expression evaluating to the wrong type.
	ErrResultType = errors.New("exprs: unexpected result type")
)

var undeclaredRef = regexp.MustCompile(`undeclared reference to '([^']+)'`)

// Program is a compiled expression bound to a fixed scope of index names.
type Program struct {
	src   string
	scope []string
	prg   cel.Program
}

// Compile compiles src with the given index names in scope. A reference to a
// name outside scope fails with a *declare.UnboundIndexReferenceError.
func Compile(src string, scope []string) (*Program, error) {
	named := make([]string, 0, len(scope))
	opts := make([]cel.EnvOption, 0, len(scope))
	for _, name := range scope {
		if name == "" {
			continue
		}
		named = append(named, name)
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, src, err)
	}

	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		if m := undeclaredRef.FindStringSubmatch(iss.Err().Error()); m != nil {
			return nil, &declare.UnboundIndexReferenceError{Name: m[1], InScope: named}
		}
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, src, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, src, err)
	}
	return &Program{src: src, scope: named, prg: prg}, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.src }

// Eval evaluates the program against b and returns the native Go result.
func (p *Program) Eval(b declare.Binding) (any, error) {
	vars := make(map[string]any, len(p.scope))
	for _, name := range p.scope {
		v, err := b.Value(name)
		if err != nil {
			return nil, err
		}
		if i, ok := v.(int); ok {
			v = int64(i)
		}
		vars[name] = v
	}
	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %q at %s: %v", ErrEval, p.src, b.Tuple(), err)
	}
	return out.Value(), nil
}

// Constant reports whether src compiles without any index in scope and, if so,
// returns its value.
func Constant(src string) (any, bool) {
	p, err := Compile(src, nil)
	if err != nil {
		return nil, false
	}
	v, err := p.Eval(declare.Binding{})
	if err != nil {
		return nil, false
	}
	return v, true
}

// Filter compiles src as a boolean predicate.
func Filter(src string, scope []string) (declare.FilterFunc, error) {
	p, err := Compile(src, scope)
	if err != nil {
		return nil, err
	}
	return func(b declare.Binding) (bool, error) {
		v, err := p.Eval(b)
		if err != nil {
			return false, err
		}
		keep, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("%w: filter %q returned %T, want bool", ErrResultType, src, v)
		}
		return keep, nil
	}, nil
}

// Bound compiles src as a numeric bound.
func Bound(src string, scope []string) (declare.BoundFunc, error) {
	p, err := Compile(src, scope)
	if err != nil {
		return nil, err
	}
	return func(b declare.Binding) (float64, error) {
		v, err := p.Eval(b)
		if err != nil {
			return 0, err
		}
		f, ok := toFloat(v)
		if !ok {
			return 0, fmt.Errorf("%w: bound %q returned %T, want a number", ErrResultType, src, v)
		}
		return f, nil
	}, nil
}

// Int compiles src as an integer-valued function, used for dependent range endpoints.
func Int(src string, scope []string) (declare.IntFunc, error) {
	p, err := Compile(src, scope)
	if err != nil {
		return nil, err
	}
	return func(b declare.Binding) (int, error) {
		v, err := p.Eval(b)
		if err != nil {
			return 0, err
		}
		i, ok := ToInt(v)
		if !ok {
			return 0, fmt.Errorf("%w: %q returned %v (%T), want an integer", ErrResultType, src, v, v)
		}
		return i, nil
	}, nil
}

// ToInt converts a CEL result to int. Doubles are accepted when integral.
func ToInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	case int:
		return x, true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int(x), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
