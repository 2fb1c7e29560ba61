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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-spirv/ir"
)

// buildEnqueue defines a kernel k(i8*) and launch(n) = builtin(cast k, n),
// where builtin is declared as i32(void()*, i32). It returns launch and the
// builtin call.
func buildEnqueue(p *ir.Program, builtin string) (*ir.Function, *ir.Instruction) {
	i32 := p.Types.Int(32)
	void := p.Types.Void()
	k := p.MustNewFunction("k", p.Types.Func(void, p.Types.Pointer(p.Types.Int(8), 0)))
	b := ir.NewBuilder(p)
	b.SetInsertPoint(k.NewBlock("entry"))
	b.RetVoid()

	invoke := p.Types.Pointer(p.Types.Func(void), 0)
	decl := p.MustNewFunction(builtin, p.Types.Func(i32, invoke, i32))
	decl.Attrs = decl.Attrs.With(ir.AttrNoUnwind)
	decl.ParamAttrs[0] = decl.ParamAttrs[0].With(ir.AttrNoCapture)

	launch := p.MustNewFunction("launch", p.Types.Func(i32, i32))
	b.SetInsertPoint(launch.NewBlock("entry"))
	generic := b.Cast(ir.OpAddrSpaceCast, k.Value(), p.Types.Pointer(k.Signature(), 4), "k.generic")
	cast := b.Cast(ir.OpBitcast, generic, invoke, "k.cast")
	call := b.Call(decl, []ir.Value{cast, launch.Arg(0)}, "r")
	b.Ret(call.ID())
	return launch, call
}

func TestLowerFuncPtr(t *testing.T) {
	for _, builtin := range []string{
		"__spirv_EnqueueKernel",
		"_Z21__spirv_EnqueueKernelPFvvEi",
		"__spirv_EnqueueKernel__",
	} {
		t.Run(builtin, func(t *testing.T) {
			p := ir.NewProgram()
			launch, call := buildEnqueue(p, builtin)
			r := New(WithLogger(testLogger(t)))
			require.NoError(t, r.Run(p))

			k := p.Function("k")
			target := call.CalledFunction()
			require.NotNil(t, target)
			assert.Equal(t, "__spirv_EnqueueKernel__", target.Name())
			assert.Equal(t, p.Types.Func(p.Types.Int(32), p.TypeOf(k.Value()), p.Types.Int(32)), target.Signature())
			assert.True(t, target.Attrs.Has(ir.AttrNoUnwind))
			assert.True(t, target.ParamAttrs[0].Has(ir.AttrNoCapture))
			assert.Equal(t, k.Value(), call.Arg(0))

			insts := launch.Instructions()
			require.Len(t, insts, 2, "casts are erased")
			assert.Equal(t, []string{"k", "launch", "__spirv_EnqueueKernel__"}, functionNames(p))
			assert.Equal(t, []string{"__spirv_EnqueueKernel__"}, r.Helpers())
		})
	}
}

func TestLowerFuncPtrKeepsOtherBuiltins(t *testing.T) {
	p := ir.NewProgram()
	_, call := buildEnqueue(p, "__spirv_AtomicLoad")
	require.NoError(t, Run(p))
	assert.Equal(t, "__spirv_AtomicLoad", call.CalledFunction().Name())
	assert.Equal(t, ir.OpBitcast, p.InstOf(call.Arg(0)).Op)
}

// Only builtins whose first parameter is the function pointer qualify. A
// declaration with the invoke argument further down, as in the OpenCL
// enqueue_kernel lowering, is left as it is.
func TestLowerFuncPtrInvokeNotFirst(t *testing.T) {
	p := ir.NewProgram()
	i8p := p.Types.Pointer(p.Types.Int(8), 0)
	i32 := p.Types.Int(32)
	void := p.Types.Void()
	k := p.MustNewFunction("k", p.Types.Func(void, i8p))
	b := ir.NewBuilder(p)
	b.SetInsertPoint(k.NewBlock("entry"))
	b.RetVoid()

	invoke := p.Types.Pointer(p.Types.Func(void), 0)
	decl := p.MustNewFunction("__spirv_EnqueueKernel", p.Types.Func(i32, i8p, i32, invoke, i8p))
	launch := p.MustNewFunction("launch", p.Types.Func(i32, i8p, i32, i8p))
	b.SetInsertPoint(launch.NewBlock("entry"))
	cast := b.Cast(ir.OpBitcast, k.Value(), invoke, "k.cast")
	call := b.Call(decl, []ir.Value{launch.Arg(0), launch.Arg(1), cast, launch.Arg(2)}, "r")
	b.Ret(call.ID())

	r := New(WithLogger(testLogger(t)))
	require.NoError(t, r.Run(p))
	assert.Same(t, decl, call.CalledFunction())
	assert.Equal(t, cast, call.Arg(2))
	assert.Empty(t, r.Helpers())
	assert.Equal(t, []string{"k", "__spirv_EnqueueKernel", "launch"}, functionNames(p))
}

func TestUnusedName(t *testing.T) {
	p := ir.NewProgram()
	sig := p.Types.Func(p.Types.Void())
	assert.Equal(t, "f.old", unusedName(p, "f.old"))
	p.MustNewFunction("f.old", sig)
	assert.Equal(t, "f.old.1", unusedName(p, "f.old"))
	p.MustNewFunction("f.old.1", sig)
	assert.Equal(t, "f.old.2", unusedName(p, "f.old"))
}
