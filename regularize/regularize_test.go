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
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-spirv/ir"
)

func testLogger(t *testing.T) logr.Logger {
	return testr.NewWithOptions(t, testr.Options{Verbosity: 2})
}

// buildIntrinsicCaller defines caller(args...) = intrinsic(args...) with a
// tail, nounwind call. sig is the signature of both functions.
func buildIntrinsicCaller(t *testing.T, p *ir.Program, caller, intrinsic string, sig *ir.Type, argNames ...string) (*ir.Function, *ir.Instruction) {
	t.Helper()
	decl, _, err := p.GetOrInsertFunction(intrinsic, sig)
	require.NoError(t, err)
	f := p.MustNewFunction(caller, sig)
	for i, name := range argNames {
		p.SetNameOf(f.Arg(i), name)
	}
	b := ir.NewBuilder(p)
	b.SetInsertPoint(f.NewBlock("entry"))
	call := b.Call(decl, f.Args(), "")
	call.SetFlag(ir.FlagTail, true)
	call.Attrs = call.Attrs.With(ir.AttrNoUnwind)
	if sig.Ret.IsVoid() {
		b.RetVoid()
	} else {
		call.SetName("r")
		b.Ret(call.ID())
	}
	return f, call
}

// buildFill defines fill(p, v, n) = memset(p, v, n) with the given
// volatility and destination alignment.
func buildFill(t *testing.T, p *ir.Program, name string, volatile bool, align uint32) (*ir.Function, *ir.Instruction) {
	t.Helper()
	i8, i64 := p.Types.Int(8), p.Types.Int(64)
	f := p.MustNewFunction(name, p.Types.Func(p.Types.Void(), p.Types.Pointer(i8, 0), i8, i64))
	for i, n := range []string{"p", "v", "n"} {
		p.SetNameOf(f.Arg(i), n)
	}
	b := ir.NewBuilder(p)
	b.SetInsertPoint(f.NewBlock("entry"))
	call, err := b.MemSet(f.Arg(0), f.Arg(1), f.Arg(2), align, volatile)
	require.NoError(t, err)
	b.RetVoid()
	return f, call
}

func functionNames(p *ir.Program) []string {
	return lo.Map(p.Functions(), func(f *ir.Function, _ int) string { return f.Name() })
}

func TestLoweredIntrinsicName(t *testing.T) {
	tests := []struct {
		intrinsic string
		volatile  bool
		want      string
	}{
		{"llvm.fshl.i32", false, "spirv.llvm_fshl_i32"},
		{"llvm.fshl.v4i16", false, "spirv.llvm_fshl_v4i16"},
		{"llvm.umul.with.overflow.i64", false, "spirv.llvm_umul_with_overflow_i64"},
		{"llvm.memset.p1i8.i32", true, "spirv.llvm_memset_p1i8_i32.volatile"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := LoweredIntrinsicName(tt.intrinsic)
			if tt.volatile {
				got += VolatileSuffix
			}
			if got != tt.want {
				t.Errorf("LoweredIntrinsicName(%q) = %q, want %q", tt.intrinsic, got, tt.want)
			}
			intrinsic, volatile, ok := IntrinsicFromLoweredName(got)
			if !ok || intrinsic != tt.intrinsic || volatile != tt.volatile {
				t.Errorf("IntrinsicFromLoweredName(%q) = %q, %v, %v", got, intrinsic, volatile, ok)
			}
		})
	}
	for _, name := range []string{"llvm.fshl.i32", "spirv.foo", "__spirv_AtomicLoad"} {
		if _, _, ok := IntrinsicFromLoweredName(name); ok {
			t.Errorf("IntrinsicFromLoweredName(%q) succeeded", name)
		}
	}
}

func TestLoweredProgramGolden(t *testing.T) {
	p := ir.NewProgram()
	i8 := p.Types.Int(8)
	buildIntrinsicCaller(t, p, "rot", "llvm.fshl.i8", p.Types.Func(i8, i8, i8, i8), "a", "b", "s")
	buildIntrinsicCaller(t, p, "mul", "llvm.umul.with.overflow.i8",
		p.Types.Func(p.Types.Struct(i8, p.Types.Int(1)), i8, i8), "x", "y")
	buildFill(t, p, "fill", false, 4)

	require.NoError(t, Run(p, WithLogger(testLogger(t))))

	g := goldie.New(t)
	g.Assert(t, "lowered", []byte(p.String()))
}

func TestHelpersAreShared(t *testing.T) {
	p := ir.NewProgram()
	i16, i32 := p.Types.Int(16), p.Types.Int(32)
	sig32 := p.Types.Func(i32, i32, i32, i32)
	_, c1 := buildIntrinsicCaller(t, p, "f1", "llvm.fshl.i32", sig32)
	_, c2 := buildIntrinsicCaller(t, p, "f2", "llvm.fshl.i32", sig32)
	_, c3 := buildIntrinsicCaller(t, p, "f3", "llvm.fshl.i16", p.Types.Func(i16, i16, i16, i16))
	_, m1 := buildFill(t, p, "fill1", false, 8)
	_, m2 := buildFill(t, p, "fill2", false, 2)

	r := New(WithLogger(testLogger(t)))
	require.NoError(t, r.Run(p))

	want := []string{"spirv.llvm_fshl_i16", "spirv.llvm_fshl_i32", "spirv.llvm_memset_p0i8_i64"}
	if diff := cmp.Diff(want, r.Helpers()); diff != "" {
		t.Errorf("Helpers() mismatch (-want +got):\n%s", diff)
	}
	fshl32 := p.Function("spirv.llvm_fshl_i32")
	require.NotNil(t, fshl32)
	assert.Same(t, fshl32, c1.CalledFunction())
	assert.Same(t, fshl32, c2.CalledFunction())
	assert.Equal(t, "spirv.llvm_fshl_i16", c3.CalledFunction().Name())
	assert.Same(t, m1.CalledFunction(), m2.CalledFunction())
	assert.Len(t, fshl32.Blocks(), 1)

	// The helper's dest keeps the weakest alignment among its callers.
	assert.Equal(t, uint32(2), m1.CalledFunction().ParamAlign[0])

	for _, name := range functionNames(p) {
		assert.False(t, strings.HasPrefix(name, ir.IntrinsicPrefix), "intrinsic %q survived", name)
	}

	// A second run finds nothing to do.
	before := p.String()
	require.NoError(t, Run(p))
	if diff := cmp.Diff(before, p.String()); diff != "" {
		t.Errorf("second run changed the program (-before +after):\n%s", diff)
	}
}

func TestMemSetWithConstantsIsKept(t *testing.T) {
	p := ir.NewProgram()
	i8, i64 := p.Types.Int(8), p.Types.Int(64)
	f := p.MustNewFunction("clear", p.Types.Func(p.Types.Void(), p.Types.Pointer(i8, 0)))
	b := ir.NewBuilder(p)
	b.SetInsertPoint(f.NewBlock("entry"))
	call, err := b.MemSet(f.Arg(0), p.ConstInt(i8, 0), p.ConstInt(i64, 16), 8, false)
	require.NoError(t, err)
	b.RetVoid()

	r := New()
	require.NoError(t, r.Run(p))
	assert.Equal(t, "llvm.memset.p0i8.i64", call.CalledFunction().Name())
	assert.Empty(t, r.Helpers())
	assert.Equal(t, []string{"clear", "llvm.memset.p0i8.i64"}, functionNames(p))
}

func TestVolatileMemSet(t *testing.T) {
	p := ir.NewProgram()
	_, call := buildFill(t, p, "fill", true, 2)
	require.NoError(t, Run(p, WithLogger(testLogger(t))))

	helper := call.CalledFunction()
	require.Equal(t, "spirv.llvm_memset_p0i8_i64.volatile", helper.Name())
	assert.Equal(t, []string{"entry", "loadstoreloop", "split"},
		lo.Map(helper.Blocks(), func(b *ir.Block, _ int) string { return b.Name() }))
	assert.Equal(t, []string{"dest", "val", "len", "isvolatile"},
		lo.Map(helper.Args(), func(v ir.Value, _ int) string { return p.NameOf(v) }))
	assert.True(t, helper.ParamAttrs[3].Has(ir.AttrImmArg))
	assert.Equal(t, uint32(2), helper.ParamAlign[0])

	stores := lo.Filter(helper.Instructions(), func(inst *ir.Instruction, _ int) bool { return inst.Op == ir.OpStore })
	require.Len(t, stores, 1)
	assert.True(t, stores[0].IsVolatile())
	assert.Equal(t, uint32(1), stores[0].Align)
	calls := lo.Filter(helper.Instructions(), func(inst *ir.Instruction, _ int) bool { return inst.Op == ir.OpCall })
	assert.Empty(t, calls)
}

func TestSanitize(t *testing.T) {
	p := ir.NewProgram()
	i32 := p.Types.Int(32)
	ptrT := p.Types.Pointer(i32, 0)
	ext := p.MustNewFunction("ext", p.Types.Func(i32, i32))
	ctpop := p.MustNewFunction("llvm.ctpop.i32", p.Types.Func(i32, i32))
	f := p.MustNewFunction("f", p.Types.Func(i32, i32, i32, ptrT))
	b := ir.NewBuilder(p)
	b.SetInsertPoint(f.NewBlock("entry"))

	q := b.Binary(ir.OpUDiv, f.Arg(0), f.Arg(1), "q")
	q.SetFlag(ir.FlagExact, true)
	q.SetMetadata("tbaa", "!1")
	q.SetMetadata("range", "!2")
	q.SetMetadata("dbg", "!3")
	s := b.Binary(ir.OpLShr, q.ID(), p.ConstInt(i32, 1), "s")
	s.SetFlag(ir.FlagExact, true)
	s.SetMetadata("fpmath", "!4")
	x := b.Binary(ir.OpAdd, s.ID(), p.ConstInt(i32, 1), "x")
	x.SetFlag(ir.FlagNUW|ir.FlagNSW, true)
	c := b.Call(ext, []ir.Value{x.ID()}, "c")
	c.SetFlag(ir.FlagTail, true)
	c.Attrs = c.Attrs.With(ir.AttrNoUnwind)
	d := b.Call(ctpop, []ir.Value{c.ID()}, "d")
	d.SetFlag(ir.FlagTail, true)
	d.Attrs = d.Attrs.With(ir.AttrNoUnwind)
	st := b.Store(d.ID(), f.Arg(2), 4, true)
	st.SetMetadata("tbaa", "!1")
	b.Ret(d.ID())

	require.NoError(t, Run(p))

	assert.False(t, q.IsExact())
	assert.False(t, s.IsExact())
	assert.Equal(t, []ir.MDAttachment{{Kind: "dbg", Node: "!3"}}, q.Metadata)
	assert.Empty(t, s.Metadata)
	assert.Empty(t, st.Metadata)
	assert.True(t, x.HasFlag(ir.FlagNUW))
	assert.True(t, x.HasFlag(ir.FlagNSW))
	assert.True(t, st.IsVolatile())

	assert.False(t, c.IsTailCall())
	assert.True(t, c.Attrs.Has(ir.AttrNoUnwind), "nounwind is only dropped from intrinsic calls")
	assert.False(t, d.IsTailCall())
	assert.False(t, d.Attrs.Has(ir.AttrNoUnwind))
	assert.Same(t, ctpop, d.CalledFunction(), "unknown intrinsics are not lowered")
}

func TestEraseUselessFunctions(t *testing.T) {
	p := ir.NewProgram()
	void := p.Types.Void()
	sig := p.Types.Func(void)
	p.MustNewFunction("unused_decl", sig)
	used := p.MustNewFunction("used_decl", sig)
	onlyInternal := p.MustNewFunction("only_from_internal", sig)

	internal := p.MustNewFunction("internal_def", sig)
	internal.Linkage = ir.InternalLinkage
	b := ir.NewBuilder(p)
	b.SetInsertPoint(internal.NewBlock("entry"))
	b.Call(onlyInternal, nil, "")
	b.RetVoid()

	external := p.MustNewFunction("external_def", sig)
	b.SetInsertPoint(external.NewBlock("entry"))
	b.Call(used, nil, "")
	b.RetVoid()

	require.NoError(t, Run(p, WithLogger(testLogger(t))))
	assert.Equal(t, []string{"used_decl", "external_def"}, functionNames(p))
}

func TestErrors(t *testing.T) {
	p := ir.NewProgram()
	i32 := p.Types.Int(32)
	f := p.MustNewFunction("f", p.Types.Func(i32, i32))
	b := ir.NewBuilder(p)
	b.SetInsertPoint(f.NewBlock("entry"))
	sum := b.Binary(ir.OpAdd, f.Arg(0), f.Arg(0), "sum")
	ret := b.Ret(sum.ID())

	t.Run("DanglingUse", func(t *testing.T) {
		var s eraseSet
		s.add(sum)
		s.add(sum)
		err := s.flush(p)
		require.True(t, errors.Is(err, ErrDanglingUse), "got %v", err)
		assert.NotNil(t, sum.Block())
	})

	t.Run("MissingCallee", func(t *testing.T) {
		g := p.MustNewFunction("g", p.Types.Func(i32, i32))
		b.SetInsertPointBefore(ret)
		call := b.Call(g, []ir.Value{f.Arg(0)}, "")
		call.SetOperand(0, f.Arg(0))
		_, err := calledFunction(call)
		require.True(t, errors.Is(err, ErrMissingCallee), "got %v", err)
	})
}
