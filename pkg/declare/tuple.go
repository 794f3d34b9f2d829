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
	"reflect"
	"strconv"
	"strings"
)

var anyType = reflect.TypeFor[any]()

// Tuple is one concrete index of a declaration, one value per axis.
type Tuple []any

// String renders the tuple the way it appears in variable names, e.g. "[1,a]".
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Key converts the tuple to a deterministic string key. Every part carries its
// type and Go-syntax value and is prefixed by its length, so separators inside
// values cannot shift part boundaries.
func (t Tuple) Key() string {
	var sb strings.Builder
	for i, v := range t {
		if i > 0 {
			sb.WriteByte(',')
		}
		part := fmt.Sprintf("%T(%#v)", v, v)
		sb.WriteString(strconv.Itoa(len(part)))
		sb.WriteByte(':')
		sb.WriteString(part)
	}
	return sb.String()
}

// mapKey returns a [len(t)]any array holding the values of t. Two keys are ==
// exactly when the tuples hold == values, so it indexes maps without going
// through a textual rendering. Every value must be comparable.
func (t Tuple) mapKey() any {
	arr := reflect.New(reflect.ArrayOf(len(t), anyType)).Elem()
	for i := range t {
		arr.Index(i).Set(reflect.ValueOf(&t[i]).Elem())
	}
	return arr.Interface()
}

// Equal reports whether both tuples hold the same values in the same order.
func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if normalize(t[i]) != normalize(other[i]) {
			return false
		}
	}
	return true
}

func (t Tuple) clone() Tuple {
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

// normalize folds every Go integer kind into int so that Values(1, 2) and a
// lookup with int64(1) address the same element. Unsigned values above
// math.MaxInt stay uint64 so they cannot alias negative ints. Negative zero
// folds into zero.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		if uint64(x) > math.MaxInt {
			return uint64(x)
		}
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		if x > math.MaxInt {
			return x
		}
		return int(x)
	case float64:
		if x == 0 {
			return 0.0
		}
	case float32:
		if x == 0 {
			return float32(0)
		}
	}
	return v
}

func normalizeTuple(key []any) Tuple {
	out := make(Tuple, len(key))
	for i, v := range key {
		out[i] = normalize(v)
	}
	return out
}

func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}
