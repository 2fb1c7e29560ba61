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
	"math/bits"

	"github.com/cockroachdb/errors"

	"github.com/ajroetker/go-spirv/internal/spirv"
	"github.com/ajroetker/go-spirv/ir"
)

// defaultBuiltins are matched by name prefix, so every overload of a
// family shares one implementation.
var defaultBuiltins = []struct {
	prefix string
	fn     Builtin
}{
	{"llvm.memset.", builtinMemSet},
	{"llvm.fshl.", builtinFshl},
	{"llvm.umul.with.overflow.", builtinUMulWithOverflow},
	{spirv.BuiltinName(spirv.OpAtomicCompareExchange) + ".", builtinAtomicCompareExchange},
}

// builtinMemSet: (dest, val, len, isvolatile).
func builtinMemSet(m *Machine, _ *ir.Function, args []Val) (Val, error) {
	return Val{}, m.Fill(args[0].Bits, byte(args[1].Bits), args[2].Bits)
}

// FunnelShiftLeft is the reference result of llvm.fshl on one lane of
// width w: the high w bits of the 2w-bit concatenation a:b shifted left
// by r mod w.
func FunnelShiftLeft(w int, a, b, r uint64) uint64 {
	s := r % uint64(w)
	if s == 0 {
		return a & ir.Mask(w)
	}
	return ((a << s) | (b >> (uint64(w) - s))) & ir.Mask(w)
}

func builtinFshl(_ *Machine, f *ir.Function, args []Val) (Val, error) {
	t := f.ReturnType()
	w := t.ScalarBits()
	if w == 0 {
		return Val{}, errors.Wrapf(ErrUnsupported, "%s on %s", f.Name(), t)
	}
	return lanewise(t, func(i int) (uint64, error) {
		return FunnelShiftLeft(w, args[0].Lane(i), args[1].Lane(i), args[2].Lane(i)), nil
	})
}

// MulOverflow is the reference result of llvm.umul.with.overflow on one
// lane of width w.
func MulOverflow(w int, a, b uint64) (product uint64, overflow bool) {
	hi, lo := bits.Mul64(a, b)
	mask := ir.Mask(w)
	return lo & mask, hi != 0 || lo&^mask != 0
}

func builtinUMulWithOverflow(_ *Machine, f *ir.Function, args []Val) (Val, error) {
	rt := f.ReturnType()
	if rt.Kind != ir.StructKind || len(rt.Fields) != 2 {
		return Val{}, errors.Wrapf(ErrUnsupported, "%s returning %s", f.Name(), rt)
	}
	t := rt.Fields[0]
	w := t.ScalarBits()
	product, err := lanewise(t, func(i int) (uint64, error) {
		p, _ := MulOverflow(w, args[0].Lane(i), args[1].Lane(i))
		return p, nil
	})
	if err != nil {
		return Val{}, err
	}
	overflow, err := lanewise(rt.Fields[1], func(i int) (uint64, error) {
		_, o := MulOverflow(w, args[0].Lane(i), args[1].Lane(i))
		return Bool(o).Bits, nil
	})
	return Agg(product, overflow), err
}

// builtinAtomicCompareExchange: (ptr, scope, eqsem, neqsem, new, cmp),
// returning the value read.
func builtinAtomicCompareExchange(m *Machine, f *ir.Function, args []Val) (Val, error) {
	if len(args) != 6 {
		return Val{}, errors.Newf("%s: %d arguments, want 6", f.Name(), len(args))
	}
	t := f.ReturnType()
	ptr, newVal, cmp := args[0].Bits, args[4], args[5]
	old, err := m.loadTyped(t, ptr)
	if err != nil {
		return Val{}, err
	}
	if old.Equal(cmp) {
		if err := m.storeTyped(t, ptr, newVal); err != nil {
			return Val{}, err
		}
	}
	return old, nil
}
