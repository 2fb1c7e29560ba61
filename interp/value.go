// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package interp

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/ajroetker/go-spirv/ir"
)

// Val is a runtime value. Scalars (integers and pointers) live in Bits,
// vectors in Lanes and structs in Fields; exactly one is meaningful for a
// given type. Integer payloads are kept truncated to their width.
type Val struct {
	Bits   uint64
	Lanes  []uint64
	Fields []Val
}

// Int returns a scalar value.
func Int(bits uint64) Val { return Val{Bits: bits} }

// Bool returns the i1 value of b.
func Bool(b bool) Val {
	if b {
		return Val{Bits: 1}
	}
	return Val{}
}

// Vec returns a vector value.
func Vec(lanes ...uint64) Val { return Val{Lanes: lanes} }

// Agg returns a struct value.
func Agg(fields ...Val) Val { return Val{Fields: fields} }

// Lane returns lane i of a vector, or Bits for a scalar.
func (v Val) Lane(i int) uint64 {
	if v.Lanes == nil {
		return v.Bits
	}
	return v.Lanes[i]
}

// Equal reports whether v and w hold the same payload.
func (v Val) Equal(w Val) bool {
	if v.Bits != w.Bits || len(v.Lanes) != len(w.Lanes) || len(v.Fields) != len(w.Fields) {
		return false
	}
	for i := range v.Lanes {
		if v.Lanes[i] != w.Lanes[i] {
			return false
		}
	}
	for i := range v.Fields {
		if !v.Fields[i].Equal(w.Fields[i]) {
			return false
		}
	}
	return true
}

func (v Val) String() string {
	switch {
	case v.Fields != nil:
		return "{ " + strings.Join(lo.Map(v.Fields, func(f Val, _ int) string { return f.String() }), ", ") + " }"
	case v.Lanes != nil:
		return "<" + strings.Join(lo.Map(v.Lanes, func(l uint64, _ int) string { return fmt.Sprintf("%#x", l) }), ", ") + ">"
	default:
		return fmt.Sprintf("%#x", v.Bits)
	}
}

// zero returns the all-zero value of t. Undef evaluates to it.
func zero(t *ir.Type) Val {
	switch t.Kind {
	case ir.VectorKind:
		return Val{Lanes: make([]uint64, t.Len)}
	case ir.StructKind:
		return Val{Fields: lo.Map(t.Fields, func(f *ir.Type, _ int) Val { return zero(f) })}
	}
	return Val{}
}

// splat returns bits as a value of t, broadcast across lanes for vectors.
func splat(t *ir.Type, bits uint64) Val {
	if t.Kind != ir.VectorKind {
		return Val{Bits: bits}
	}
	lanes := make([]uint64, t.Len)
	for i := range lanes {
		lanes[i] = bits
	}
	return Val{Lanes: lanes}
}

// lanewise builds a value of t by evaluating fn on every lane, or once for
// a scalar t.
func lanewise(t *ir.Type, fn func(lane int) (uint64, error)) (Val, error) {
	if t.Kind != ir.VectorKind {
		bits, err := fn(0)
		return Val{Bits: bits}, err
	}
	lanes := make([]uint64, t.Len)
	for i := range lanes {
		var err error
		if lanes[i], err = fn(i); err != nil {
			return Val{}, err
		}
	}
	return Val{Lanes: lanes}, nil
}
