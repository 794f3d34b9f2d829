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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned (usually wrapped) by the resolver and by container lookups.
var (
	// ErrUnboundIndexReference indicates that a bound, filter or dependent domain
	// referenced an index name that is not in scope.
	ErrUnboundIndexReference = errors.New("declare: unbound index reference")

	// ErrEmptyDomain indicates that an axis enumerated to zero elements.
	// It is advisory unless the resolver runs with EmptyDomainFail.
	ErrEmptyDomain = errors.New("declare: empty domain")

	// ErrInconsistentBoundDirection indicates a lower bound greater than its upper bound.
	ErrInconsistentBoundDirection = errors.New("declare: lower bound exceeds upper bound")

	// ErrKeyNotPresent indicates a lookup for an index tuple the container does not hold.
	ErrKeyNotPresent = errors.New("declare: key not present")

	// ErrInvalidDeclaration indicates a malformed declaration (no axes, duplicate names, bad domain).
	ErrInvalidDeclaration = errors.New("declare: invalid declaration")

	// ErrIndexType indicates an index value of an unexpected type.
	ErrIndexType = errors.New("declare: index type mismatch")

	// ErrInvalidBound indicates a bound function returned NaN.
	ErrInvalidBound = errors.New("declare: invalid bound")

	// ErrNotPositional indicates positional access on a sparse container.
	ErrNotPositional = errors.New("declare: positional access on sparse container")
)

// UnboundIndexReferenceError reports the offending name and the names that were in scope.
type UnboundIndexReferenceError struct {
	Name    string
	InScope []string
}

func (e *UnboundIndexReferenceError) Error() string {
	return fmt.Sprintf("%s: %q (in scope: [%s])", ErrUnboundIndexReference, e.Name, strings.Join(e.InScope, ", "))
}

func (e *UnboundIndexReferenceError) Unwrap() error { return ErrUnboundIndexReference }

// EmptyDomainError reports which axis of which declaration enumerated to nothing.
type EmptyDomainError struct {
	Declaration string
	Axis        string
	Position    int
}

func (e *EmptyDomainError) Error() string {
	return fmt.Sprintf("%s: declaration %q axis %d (%q) has no elements", ErrEmptyDomain, e.Declaration, e.Position, e.Axis)
}

func (e *EmptyDomainError) Unwrap() error { return ErrEmptyDomain }

// InconsistentBoundDirectionError reports the tuple whose bounds cross.
type InconsistentBoundDirectionError struct {
	Declaration string
	Index       Tuple
	Lower       float64
	Upper       float64
}

func (e *InconsistentBoundDirectionError) Error() string {
	return fmt.Sprintf("%s: %s%s lower=%g upper=%g", ErrInconsistentBoundDirection, e.Declaration, e.Index, e.Lower, e.Upper)
}

func (e *InconsistentBoundDirectionError) Unwrap() error { return ErrInconsistentBoundDirection }

// KeyNotPresentError reports a lookup miss.
type KeyNotPresentError struct {
	Container string
	Key       Tuple
}

func (e *KeyNotPresentError) Error() string {
	return fmt.Sprintf("%s: %s%s", ErrKeyNotPresent, e.Container, e.Key)
}

func (e *KeyNotPresentError) Unwrap() error { return ErrKeyNotPresent }
