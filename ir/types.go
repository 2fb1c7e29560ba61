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

// Package ir provides an SSA program graph modeled on LLVM IR: interned
// types, an arena of values addressed by stable handles, functions made of
// basic blocks, and per-value use lists that are kept consistent across
// rewrites. It is the representation consumed and produced by the SPIR-V
// regularizer.
package ir

import (
	"fmt"
	"strings"
)

// TypeKind categorizes types.
type TypeKind int

const (
	// VoidKind is the type of instructions that produce no value.
	VoidKind TypeKind = iota

	// IntegerKind is an arbitrary-width integer (1 to 64 bits).
	IntegerKind

	// PointerKind is a typed pointer in an address space.
	PointerKind

	// VectorKind is a fixed-length vector of integers.
	VectorKind

	// StructKind is a literal struct with ordered fields.
	StructKind

	// FunctionKind is a function signature.
	FunctionKind
)

// String returns a human-readable name for the TypeKind.
func (k TypeKind) String() string {
	switch k {
	case VoidKind:
		return "Void"
	case IntegerKind:
		return "Integer"
	case PointerKind:
		return "Pointer"
	case VectorKind:
		return "Vector"
	case StructKind:
		return "Struct"
	case FunctionKind:
		return "Function"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// Type is an interned IR type. Two structurally equal types obtained from
// the same TypeContext are the same pointer, so types compare with ==.
type Type struct {
	Kind TypeKind

	// Bits is the width of an integer type.
	Bits int

	// Elem is the pointee of a pointer or the element of a vector.
	Elem *Type

	// Len is the number of vector elements.
	Len int

	// AddrSpace is the address space of a pointer.
	AddrSpace int

	// Fields are the members of a struct type.
	Fields []*Type

	// Ret and Params describe a function type.
	Ret    *Type
	Params []*Type

	str string
}

// String returns the LLVM spelling of the type.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.str
}

func (t *Type) format() string {
	switch t.Kind {
	case VoidKind:
		return "void"
	case IntegerKind:
		return fmt.Sprintf("i%d", t.Bits)
	case PointerKind:
		if t.AddrSpace != 0 {
			return fmt.Sprintf("%s addrspace(%d)*", t.Elem, t.AddrSpace)
		}
		return t.Elem.String() + "*"
	case VectorKind:
		return fmt.Sprintf("<%d x %s>", t.Len, t.Elem)
	case StructKind:
		if len(t.Fields) == 0 {
			return "{}"
		}
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case FunctionKind:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("%s (%s)", t.Ret, strings.Join(parts, ", "))
	}
	return t.Kind.String()
}

// Mangle returns the overload suffix used in intrinsic names,
// e.g. "i32", "v4i16", "p0i8".
func (t *Type) Mangle() string {
	switch t.Kind {
	case VoidKind:
		return "isVoid"
	case IntegerKind:
		return fmt.Sprintf("i%d", t.Bits)
	case PointerKind:
		return fmt.Sprintf("p%d%s", t.AddrSpace, t.Elem.Mangle())
	case VectorKind:
		return fmt.Sprintf("v%d%s", t.Len, t.Elem.Mangle())
	case StructKind:
		var sb strings.Builder
		sb.WriteString("sl_")
		for _, f := range t.Fields {
			sb.WriteString(f.Mangle())
		}
		sb.WriteString("s")
		return sb.String()
	case FunctionKind:
		var sb strings.Builder
		sb.WriteString("f_")
		sb.WriteString(t.Ret.Mangle())
		for _, p := range t.Params {
			sb.WriteString(p.Mangle())
		}
		sb.WriteString("f")
		return sb.String()
	}
	return t.Kind.String()
}

// IsInteger reports whether t is a scalar integer.
func (t *Type) IsInteger() bool { return t.Kind == IntegerKind }

// IsVector reports whether t is a vector.
func (t *Type) IsVector() bool { return t.Kind == VectorKind }

// IsPointer reports whether t is a pointer.
func (t *Type) IsPointer() bool { return t.Kind == PointerKind }

// IsVoid reports whether t is void.
func (t *Type) IsVoid() bool { return t.Kind == VoidKind }

// IsFunctionPointer reports whether t is a pointer to a function type.
func (t *Type) IsFunctionPointer() bool {
	return t.Kind == PointerKind && t.Elem.Kind == FunctionKind
}

// ScalarType returns the element type of a vector, or t itself.
func (t *Type) ScalarType() *Type {
	if t.Kind == VectorKind {
		return t.Elem
	}
	return t
}

// ScalarBits returns the bit width of t's scalar type, or 0 if it is not
// an integer or integer vector.
func (t *Type) ScalarBits() int {
	s := t.ScalarType()
	if s.Kind != IntegerKind {
		return 0
	}
	return s.Bits
}

// StoreSize returns the number of bytes t occupies in memory. Integers
// round up to whole bytes; struct fields are packed without padding.
func (t *Type) StoreSize() int {
	switch t.Kind {
	case IntegerKind:
		return (t.Bits + 7) / 8
	case PointerKind:
		return 8
	case VectorKind:
		return t.Len * t.Elem.StoreSize()
	case StructKind:
		n := 0
		for _, f := range t.Fields {
			n += f.StoreSize()
		}
		return n
	}
	return 0
}

// TypeContext interns types.
type TypeContext struct {
	types map[string]*Type
}

// NewTypeContext creates an empty type interner.
func NewTypeContext() *TypeContext {
	return &TypeContext{types: make(map[string]*Type)}
}

func (c *TypeContext) intern(t *Type) *Type {
	t.str = t.format()
	if existing, ok := c.types[t.str]; ok {
		return existing
	}
	c.types[t.str] = t
	return t
}

// Void returns the void type.
func (c *TypeContext) Void() *Type {
	return c.intern(&Type{Kind: VoidKind})
}

// Int returns the integer type of the given width.
func (c *TypeContext) Int(bits int) *Type {
	return c.intern(&Type{Kind: IntegerKind, Bits: bits})
}

// Pointer returns a pointer to elem in the given address space.
func (c *TypeContext) Pointer(elem *Type, addrSpace int) *Type {
	return c.intern(&Type{Kind: PointerKind, Elem: elem, AddrSpace: addrSpace})
}

// Vector returns the vector type <n x elem>.
func (c *TypeContext) Vector(elem *Type, n int) *Type {
	return c.intern(&Type{Kind: VectorKind, Elem: elem, Len: n})
}

// Struct returns the literal struct type with the given fields.
func (c *TypeContext) Struct(fields ...*Type) *Type {
	return c.intern(&Type{Kind: StructKind, Fields: fields})
}

// Func returns the function type ret (params...).
func (c *TypeContext) Func(ret *Type, params ...*Type) *Type {
	return c.intern(&Type{Kind: FunctionKind, Ret: ret, Params: params})
}

// BoolLike returns i1, or <n x i1> when t is an n-element vector. It is the
// result type of an icmp on operands of type t.
func (c *TypeContext) BoolLike(t *Type) *Type {
	if t.Kind == VectorKind {
		return c.Vector(c.Int(1), t.Len)
	}
	return c.Int(1)
}
