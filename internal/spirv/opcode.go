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

// Package spirv holds the SPIR-V vocabulary the regularizer targets:
// opcode numbers and names, builtin function name decoration, memory
// scopes and memory semantics.
package spirv

import "fmt"

// Op is a SPIR-V opcode.
type Op uint16

// Opcodes the regularizer can emit or recognize as builtin calls.
const (
	OpNop                                     Op = 0
	OpAtomicLoad                              Op = 227
	OpAtomicStore                             Op = 228
	OpAtomicExchange                          Op = 229
	OpAtomicCompareExchange                   Op = 230
	OpAtomicCompareExchangeWeak               Op = 231
	OpAtomicIIncrement                        Op = 232
	OpAtomicIDecrement                        Op = 233
	OpAtomicIAdd                              Op = 234
	OpAtomicISub                              Op = 235
	OpEnqueueMarker                           Op = 291
	OpEnqueueKernel                           Op = 292
	OpGetKernelNDrangeSubGroupCount           Op = 293
	OpGetKernelNDrangeMaxSubGroupSize         Op = 294
	OpGetKernelWorkGroupSize                  Op = 295
	OpGetKernelPreferredWorkGroupSizeMultiple Op = 296
)

// opNames maps opcodes to their names without the "Op" prefix, which is
// how builtin functions spell them.
var opNames = map[Op]string{
	OpNop:                                     "Nop",
	OpAtomicLoad:                              "AtomicLoad",
	OpAtomicStore:                             "AtomicStore",
	OpAtomicExchange:                          "AtomicExchange",
	OpAtomicCompareExchange:                   "AtomicCompareExchange",
	OpAtomicCompareExchangeWeak:               "AtomicCompareExchangeWeak",
	OpAtomicIIncrement:                        "AtomicIIncrement",
	OpAtomicIDecrement:                        "AtomicIDecrement",
	OpAtomicIAdd:                              "AtomicIAdd",
	OpAtomicISub:                              "AtomicISub",
	OpEnqueueMarker:                           "EnqueueMarker",
	OpEnqueueKernel:                           "EnqueueKernel",
	OpGetKernelNDrangeSubGroupCount:           "GetKernelNDrangeSubGroupCount",
	OpGetKernelNDrangeMaxSubGroupSize:         "GetKernelNDrangeMaxSubGroupSize",
	OpGetKernelWorkGroupSize:                  "GetKernelWorkGroupSize",
	OpGetKernelPreferredWorkGroupSizeMultiple: "GetKernelPreferredWorkGroupSizeMultiple",
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

// Name returns the opcode name without the "Op" prefix.
func (op Op) Name() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op%d", uint16(op))
}

// String returns the full opcode name, e.g. "OpEnqueueKernel".
func (op Op) String() string {
	return "Op" + op.Name()
}

// LookupOp returns the opcode with the given name (without "Op"), or
// OpNop.
func LookupOp(name string) Op {
	return opsByName[name]
}

// TakesFunctionPointer reports whether the instruction has an Invoke
// operand, i.e. its builtin form receives a function pointer.
func (op Op) TakesFunctionPointer() bool {
	switch op {
	case OpEnqueueKernel,
		OpGetKernelNDrangeSubGroupCount,
		OpGetKernelNDrangeMaxSubGroupSize,
		OpGetKernelWorkGroupSize,
		OpGetKernelPreferredWorkGroupSizeMultiple:
		return true
	}
	return false
}
