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

import "github.com/ajroetker/go-spirv/ir"

// Scope is a SPIR-V memory or execution scope.
type Scope uint32

const (
	ScopeCrossDevice Scope = 0
	ScopeDevice      Scope = 1
	ScopeWorkgroup   Scope = 2
	ScopeSubgroup    Scope = 3
	ScopeInvocation  Scope = 4
)

// MemorySemantics is a SPIR-V memory semantics mask.
type MemorySemantics uint32

const (
	MemorySemanticsNone                   MemorySemantics = 0x0
	MemorySemanticsAcquire                MemorySemantics = 0x2
	MemorySemanticsRelease                MemorySemantics = 0x4
	MemorySemanticsAcquireRelease         MemorySemantics = 0x8
	MemorySemanticsSequentiallyConsistent MemorySemantics = 0x10
)

// MemoryOrder is a C11/OpenCL memory_order value.
type MemoryOrder uint32

const (
	OrderRelaxed MemoryOrder = iota
	OrderConsume
	OrderAcquire
	OrderRelease
	OrderAcqRel
	OrderSeqCst
)

// CABIOrder maps an IR atomic ordering to its C ABI memory_order.
// Orderings weaker than monotonic are relaxed.
func CABIOrder(o ir.AtomicOrdering) MemoryOrder {
	switch o {
	case ir.Acquire:
		return OrderAcquire
	case ir.Release:
		return OrderRelease
	case ir.AcquireRelease:
		return OrderAcqRel
	case ir.SequentiallyConsistent:
		return OrderSeqCst
	default:
		return OrderRelaxed
	}
}

// Semantics maps a memory_order to SPIR-V memory semantics. Consume is
// strengthened to acquire.
func (o MemoryOrder) Semantics() MemorySemantics {
	switch o {
	case OrderConsume, OrderAcquire:
		return MemorySemanticsAcquire
	case OrderRelease:
		return MemorySemanticsRelease
	case OrderAcqRel:
		return MemorySemanticsAcquireRelease
	case OrderSeqCst:
		return MemorySemanticsSequentiallyConsistent
	default:
		return MemorySemanticsNone
	}
}

// SemanticsFor maps an IR atomic ordering straight to memory semantics.
func SemanticsFor(o ir.AtomicOrdering) MemorySemantics {
	return CABIOrder(o).Semantics()
}
