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

package spirv

import (
	"testing"

	"github.com/ajroetker/go-spirv/ir"
)

func TestFuncOpcode(t *testing.T) {
	tests := []struct {
		name string
		want Op
	}{
		{"__spirv_EnqueueKernel", OpEnqueueKernel},
		{"__spirv_EnqueueKernel__", OpEnqueueKernel},
		{"_Z21__spirv_EnqueueKernelPU3AS1vi", OpEnqueueKernel},
		{"_Z30__spirv_GetKernelWorkGroupSizePvS_ii", OpGetKernelWorkGroupSize},
		{"__spirv_AtomicCompareExchange.i64", OpAtomicCompareExchange},
		{"__spirv_NotAnOpcode", OpNop},
		{"__spirv_", OpNop},
		{"_Z99__spirv_EnqueueKernel", OpNop},
		{"EnqueueKernel", OpNop},
		{"get_global_id", OpNop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FuncOpcode(tt.name); got != tt.want {
				t.Errorf("FuncOpcode(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDecorate(t *testing.T) {
	if got := Decorate(OpEnqueueKernel.Name()); got != "__spirv_EnqueueKernel__" {
		t.Errorf("Decorate = %q", got)
	}
	if got := BuiltinName(OpAtomicCompareExchange); got != "__spirv_AtomicCompareExchange" {
		t.Errorf("BuiltinName = %q", got)
	}
	if got := OpGetKernelWorkGroupSize.String(); got != "OpGetKernelWorkGroupSize" {
		t.Errorf("String = %q", got)
	}
	for op := range opNames {
		name, ok := Undecorate(Decorate(op.Name()))
		if !ok || LookupOp(name) != op {
			t.Errorf("round trip of %v gave %q, %v", op, name, ok)
		}
	}
}

func TestTakesFunctionPointer(t *testing.T) {
	for _, op := range []Op{OpEnqueueKernel, OpGetKernelNDrangeSubGroupCount,
		OpGetKernelNDrangeMaxSubGroupSize, OpGetKernelWorkGroupSize,
		OpGetKernelPreferredWorkGroupSizeMultiple} {
		if !op.TakesFunctionPointer() {
			t.Errorf("%v.TakesFunctionPointer() = false", op)
		}
	}
	if OpAtomicCompareExchange.TakesFunctionPointer() {
		t.Error("OpAtomicCompareExchange.TakesFunctionPointer() = true")
	}
}

func TestSemanticsFor(t *testing.T) {
	tests := []struct {
		order ir.AtomicOrdering
		want  MemorySemantics
	}{
		{ir.NotAtomic, MemorySemanticsNone},
		{ir.Unordered, MemorySemanticsNone},
		{ir.Monotonic, MemorySemanticsNone},
		{ir.Acquire, MemorySemanticsAcquire},
		{ir.Release, MemorySemanticsRelease},
		{ir.AcquireRelease, MemorySemanticsAcquireRelease},
		{ir.SequentiallyConsistent, MemorySemanticsSequentiallyConsistent},
	}
	for _, tt := range tests {
		if got := SemanticsFor(tt.order); got != tt.want {
			t.Errorf("SemanticsFor(%v) = %#x, want %#x", tt.order, got, tt.want)
		}
	}
	if got := OrderConsume.Semantics(); got != MemorySemanticsAcquire {
		t.Errorf("consume semantics = %#x", got)
	}
}
