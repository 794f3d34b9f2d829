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
	"errors"
	"fmt"
)

var (
	// ErrForeignVariable indicates a variable registered with another model.
	ErrForeignVariable = errors.New("model: variable belongs to another model")
	// ErrDuplicateName indicates a variable or constraint name already in use.
	ErrDuplicateName = errors.New("model: duplicate name")
	// ErrInvalidBound indicates NaN bounds, crossing bounds or a non-finite right-hand side.
	ErrInvalidBound = errors.New("model: invalid bound")
	// ErrInvalidRelation indicates an unknown constraint relation.
	ErrInvalidRelation = errors.New("model: invalid relation")
	// ErrSolver wraps failures reported by the simplex backend other than
	// infeasibility and unboundedness.
	ErrSolver = errors.New("model: solver failed")
)

func foreign(model string, v *Variable) error {
	return fmt.Errorf("%w: %s is not part of model %q", ErrForeignVariable, v, model)
}
