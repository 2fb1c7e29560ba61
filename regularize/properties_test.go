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

package regularize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ajroetker/go-spirv/interp"
	"github.com/ajroetker/go-spirv/ir"
)

var widths = []int{8, 16, 32, 64}

// fshlWidths adds the one-bit and a non-power-of-two width, where the split
// right shift of the general body does not apply or is unusual.
var fshlWidths = []int{1, 8, 16, 24, 32, 64}

func TestFunnelShiftLeftReference(t *testing.T) {
	if got := interp.FunnelShiftLeft(8, 0xB0, 0x0F, 4); got != 0x00 {
		t.Errorf("FunnelShiftLeft(8, 0xB0, 0x0F, 4) = %#x, want 0", got)
	}
	if got := interp.FunnelShiftLeft(8, 0xB0, 0x0F, 8); got != 0xB0 {
		t.Errorf("FunnelShiftLeft(8, 0xB0, 0x0F, 8) = %#x, want 0xb0", got)
	}
}

func TestFunnelShiftLeftLowering(t *testing.T) {
	for _, w := range fshlWidths {
		t.Run(fmt.Sprintf("i%d", w), func(t *testing.T) {
			build := func() (*ir.Program, *ir.Function) {
				p := ir.NewProgram()
				it := p.Types.Int(w)
				f, _ := buildIntrinsicCaller(t, p, "rot", fmt.Sprintf("llvm.fshl.i%d", w), p.Types.Func(it, it, it, it))
				return p, f
			}
			orig, origFn := build()
			lowered, loweredFn := build()
			require.NoError(t, Run(lowered))
			require.Nil(t, lowered.Function(fmt.Sprintf("llvm.fshl.i%d", w)))

			before, after := interp.New(orig), interp.New(lowered)
			mask := ir.Mask(w)
			check := func(t require.TestingT, a, b, r uint64) {
				want := interp.FunnelShiftLeft(w, a, b, r)
				args := []interp.Val{interp.Int(a), interp.Int(b), interp.Int(r)}
				got, err := after.Call(loweredFn, args...)
				require.NoError(t, err)
				require.Equal(t, want, got.Bits, "fshl(%#x, %#x, %d)", a, b, r)
				got, err = before.Call(origFn, args...)
				require.NoError(t, err)
				require.Equal(t, want, got.Bits, "unlowered fshl(%#x, %#x, %d)", a, b, r)
			}
			switch w {
			case 1:
				helper := lowered.Function("spirv.llvm_fshl_i1")
				require.NotNil(t, helper)
				require.Len(t, helper.Instructions(), 1, "fshl.i1 returns its first operand")
				for a := uint64(0); a < 2; a++ {
					for b := uint64(0); b < 2; b++ {
						for r := uint64(0); r < 2; r++ {
							check(t, a, b, r)
						}
					}
				}
			case 8:
				check(t, 0xB0, 0x0F, 4)
			case 24:
				check(t, 0xABCDEF, 0x123456, 28)
			}
			for r := uint64(0); r < uint64(4*w); r++ {
				check(t, mask, mask>>1, r)
			}
			rapid.Check(t, func(rt *rapid.T) {
				a := rapid.Uint64().Draw(rt, "a") & mask
				b := rapid.Uint64().Draw(rt, "b") & mask
				r := rapid.Uint64Range(0, uint64(4*w-1)).Draw(rt, "r")
				check(rt, a, b, r)
			})
		})
	}
}

func TestFunnelShiftLeftVector(t *testing.T) {
	p := ir.NewProgram()
	v4 := p.Types.Vector(p.Types.Int(16), 4)
	f, _ := buildIntrinsicCaller(t, p, "rot", "llvm.fshl.v4i16", p.Types.Func(v4, v4, v4, v4))
	require.NoError(t, Run(p))
	require.NotNil(t, p.Function("spirv.llvm_fshl_v4i16"))

	m := interp.New(p)
	rapid.Check(t, func(rt *rapid.T) {
		lanes := func(label string, hi uint64) []uint64 {
			return rapid.SliceOfN(rapid.Uint64Range(0, hi), 4, 4).Draw(rt, label)
		}
		a, b, r := lanes("a", 0xffff), lanes("b", 0xffff), lanes("r", 63)
		got, err := m.Call(f, interp.Vec(a...), interp.Vec(b...), interp.Vec(r...))
		require.NoError(rt, err)
		for i := 0; i < 4; i++ {
			require.Equal(rt, interp.FunnelShiftLeft(16, a[i], b[i], r[i]), got.Lanes[i], "lane %d", i)
		}
	})
}

func TestUMulWithOverflowLowering(t *testing.T) {
	for _, w := range widths {
		t.Run(fmt.Sprintf("i%d", w), func(t *testing.T) {
			p := ir.NewProgram()
			it := p.Types.Int(w)
			sig := p.Types.Func(p.Types.Struct(it, p.Types.Int(1)), it, it)
			f, _ := buildIntrinsicCaller(t, p, "mul", fmt.Sprintf("llvm.umul.with.overflow.i%d", w), sig)
			require.NoError(t, Run(p))

			m := interp.New(p)
			mask := ir.Mask(w)
			check := func(t require.TestingT, a, b uint64) {
				product, overflow := interp.MulOverflow(w, a, b)
				got, err := m.Call(f, interp.Int(a), interp.Int(b))
				require.NoError(t, err)
				require.Len(t, got.Fields, 2)
				require.Equal(t, product, got.Fields[0].Bits, "%#x * %#x", a, b)
				require.Equal(t, overflow, got.Fields[1].Bits == 1, "overflow of %#x * %#x", a, b)
			}
			check(t, 0, mask)
			check(t, mask, 0)
			check(t, 1, mask)
			check(t, mask, mask)
			check(t, 2, mask>>1+1)

			got, err := m.Call(f, interp.Int(0), interp.Int(7))
			require.NoError(t, err)
			require.True(t, got.Equal(interp.Agg(interp.Int(0), interp.Bool(false))), "0 * 7 = %v", got)

			rapid.Check(t, func(rt *rapid.T) {
				a := rapid.Uint64().Draw(rt, "a") & mask
				b := rapid.Uint64().Draw(rt, "b") & mask
				check(rt, a, b)
			})
		})
	}
}

func TestMemSetLowering(t *testing.T) {
	const size = 96
	for _, volatile := range []bool{false, true} {
		t.Run(fmt.Sprintf("volatile=%v", volatile), func(t *testing.T) {
			p := ir.NewProgram()
			f, _ := buildFill(t, p, "fill", volatile, 4)
			require.NoError(t, Run(p))

			m := interp.New(p)
			buf := m.Alloc(size)
			rapid.Check(t, func(rt *rapid.T) {
				val := byte(rapid.IntRange(0, 255).Draw(rt, "val"))
				off := uint64(rapid.IntRange(0, 16).Draw(rt, "off"))
				n := rapid.Uint64Range(0, 64).Draw(rt, "len")
				require.NoError(rt, m.Fill(buf, ^val, size))

				_, err := m.Call(f, interp.Int(buf+off), interp.Int(uint64(val)), interp.Int(n))
				require.NoError(rt, err)

				bs, err := m.Bytes(buf, size)
				require.NoError(rt, err)
				for i, got := range bs {
					want := ^val
					if uint64(i) >= off && uint64(i) < off+n {
						want = val
					}
					require.Equal(rt, want, got, "byte %d of fill(buf+%d, %#x, %d)", i, off, val, n)
				}
			})
		})
	}
}
