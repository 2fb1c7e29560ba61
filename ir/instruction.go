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

package ir

import (
	"fmt"
	"slices"
)

// Opcode identifies the operation an Instruction performs. The set is
// closed: passes switch over it exhaustively.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Binary operators. Operands: x, y.
	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	// OpICmp compares x and y with Pred.
	OpICmp

	// OpSelect picks t or f by cond. Operands: cond, t, f.
	OpSelect

	// OpPhi merges one operand per predecessor; Targets holds the
	// incoming blocks in operand order.
	OpPhi

	// OpBr jumps to Targets[0]. No operands.
	OpBr

	// OpCondBr jumps to Targets[0] when cond is true, else Targets[1].
	OpCondBr

	// OpRet returns its single operand, or nothing.
	OpRet

	// OpCall calls operand 0 with the remaining operands.
	OpCall

	// OpLoad reads from ptr. Operands: ptr.
	OpLoad

	// OpStore writes val to ptr. Operands: val, ptr.
	OpStore

	// OpGEP offsets ptr by index elements of ElemType.
	OpGEP

	// Casts. Operands: v.
	OpBitcast
	OpAddrSpaceCast

	// OpExtractValue reads field Indices[0] of an aggregate.
	OpExtractValue

	// OpInsertValue replaces field Indices[0]. Operands: agg, elt.
	OpInsertValue

	// OpCmpXchg is an atomic compare-and-swap producing { T, i1 }.
	// Operands: ptr, cmp, new.
	OpCmpXchg

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpInvalid:       "invalid",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpUDiv:          "udiv",
	OpSDiv:          "sdiv",
	OpURem:          "urem",
	OpSRem:          "srem",
	OpShl:           "shl",
	OpLShr:          "lshr",
	OpAShr:          "ashr",
	OpAnd:           "and",
	OpOr:            "or",
	OpXor:           "xor",
	OpICmp:          "icmp",
	OpSelect:        "select",
	OpPhi:           "phi",
	OpBr:            "br",
	OpCondBr:        "br",
	OpRet:           "ret",
	OpCall:          "call",
	OpLoad:          "load",
	OpStore:         "store",
	OpGEP:           "getelementptr",
	OpBitcast:       "bitcast",
	OpAddrSpaceCast: "addrspacecast",
	OpExtractValue:  "extractvalue",
	OpInsertValue:   "insertvalue",
	OpCmpXchg:       "cmpxchg",
}

// String returns the LLVM mnemonic of the opcode.
func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// IsBinary reports whether op is a two-operand arithmetic, bitwise or
// shift operator.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpXor
}

// IsTerminator reports whether op ends a block.
func (op Opcode) IsTerminator() bool {
	return op == OpBr || op == OpCondBr || op == OpRet
}

// IsCast reports whether op is a value-preserving cast.
func (op Opcode) IsCast() bool {
	return op == OpBitcast || op == OpAddrSpaceCast
}

// PossiblyExact reports whether op accepts the exact flag.
func (op Opcode) PossiblyExact() bool {
	switch op {
	case OpUDiv, OpSDiv, OpLShr, OpAShr:
		return true
	}
	return false
}

// Predicate is an integer comparison predicate.
type Predicate uint8

const (
	PredEQ Predicate = iota
	PredNE
	PredUGT
	PredUGE
	PredULT
	PredULE
	PredSGT
	PredSGE
	PredSLT
	PredSLE
)

var predicateNames = [...]string{"eq", "ne", "ugt", "uge", "ult", "ule", "sgt", "sge", "slt", "sle"}

func (p Predicate) String() string {
	if int(p) < len(predicateNames) {
		return predicateNames[p]
	}
	return fmt.Sprintf("Predicate(%d)", p)
}

// AtomicOrdering is the memory ordering of an atomic instruction.
type AtomicOrdering uint8

const (
	NotAtomic AtomicOrdering = iota
	Unordered
	Monotonic
	Acquire
	Release
	AcquireRelease
	SequentiallyConsistent
)

var orderingNames = [...]string{"", "unordered", "monotonic", "acquire", "release", "acq_rel", "seq_cst"}

func (o AtomicOrdering) String() string {
	if int(o) < len(orderingNames) {
		return orderingNames[o]
	}
	return fmt.Sprintf("AtomicOrdering(%d)", o)
}

// InstFlags are per-instruction optimization and access flags.
type InstFlags uint8

const (
	// FlagExact asserts a division or right shift discards no set bits.
	FlagExact InstFlags = 1 << iota

	// FlagNUW asserts no unsigned wrap.
	FlagNUW

	// FlagNSW asserts no signed wrap.
	FlagNSW

	// FlagTail marks a call as a tail call.
	FlagTail

	// FlagVolatile marks a memory access as volatile.
	FlagVolatile
)

// Attr is a function, parameter or call-site attribute.
type Attr uint16

const (
	AttrNoUnwind Attr = 1 << iota
	AttrImmArg
	AttrNoCapture
	AttrWriteOnly
	AttrReadOnly
	AttrReadNone
	AttrNoInline
	AttrAlwaysInline
)

var attrNames = []struct {
	attr Attr
	name string
}{
	{AttrNoUnwind, "nounwind"},
	{AttrImmArg, "immarg"},
	{AttrNoCapture, "nocapture"},
	{AttrWriteOnly, "writeonly"},
	{AttrReadOnly, "readonly"},
	{AttrReadNone, "readnone"},
	{AttrNoInline, "noinline"},
	{AttrAlwaysInline, "alwaysinline"},
}

// AttrSet is a set of attributes.
type AttrSet Attr

// Has reports whether a is in the set.
func (s AttrSet) Has(a Attr) bool { return Attr(s)&a != 0 }

// With returns the set plus a.
func (s AttrSet) With(a Attr) AttrSet { return s | AttrSet(a) }

// Without returns the set minus a.
func (s AttrSet) Without(a Attr) AttrSet { return s &^ AttrSet(a) }

// Names returns the attribute spellings in canonical order.
func (s AttrSet) Names() []string {
	var names []string
	for _, an := range attrNames {
		if s.Has(an.attr) {
			names = append(names, an.name)
		}
	}
	return names
}

// MDAttachment is a named metadata node attached to an instruction. Node
// is an opaque rendering of the metadata payload.
type MDAttachment struct {
	Kind string
	Node string
}

// Instruction is a single operation inside a Block. The fields that are
// exported form the opcode-specific payload and may be set directly;
// operands and placement go through methods so use lists stay consistent.
type Instruction struct {
	// Op is the operation.
	Op Opcode

	// Pred is the comparison predicate of an OpICmp.
	Pred Predicate

	// Flags holds exact/nuw/nsw/tail/volatile.
	Flags InstFlags

	// Attrs holds call-site function attributes.
	Attrs AttrSet

	// Align is the access alignment in bytes for loads and stores, and the
	// destination alignment of memory intrinsic calls. 0 means unknown.
	Align uint32

	// Indices addresses the aggregate field of extractvalue/insertvalue.
	Indices []int

	// SuccessOrdering and FailureOrdering belong to OpCmpXchg.
	SuccessOrdering AtomicOrdering
	FailureOrdering AtomicOrdering

	// Targets are the successor blocks of a branch, or the incoming
	// blocks of a phi (parallel to the operands).
	Targets []*Block

	// ElemType is the source element type of an OpGEP.
	ElemType *Type

	// Metadata attachments in insertion order.
	Metadata []MDAttachment

	prog     *Program
	id       Value
	typ      *Type
	block    *Block
	operands []Value
}

// ID returns the instruction's value handle.
func (inst *Instruction) ID() Value { return inst.id }

// Type returns the result type; void for instructions without a result.
func (inst *Instruction) Type() *Type { return inst.typ }

// Block returns the containing block, or nil once erased.
func (inst *Instruction) Block() *Block { return inst.block }

// Name returns the result name, possibly empty.
func (inst *Instruction) Name() string { return inst.prog.slot(inst.id).name }

// SetName renames the result.
func (inst *Instruction) SetName(name string) { inst.prog.slot(inst.id).name = name }

// NumOperands returns the number of operands.
func (inst *Instruction) NumOperands() int { return len(inst.operands) }

// Operand returns operand i.
func (inst *Instruction) Operand(i int) Value { return inst.operands[i] }

// Operands returns a copy of the operand list.
func (inst *Instruction) Operands() []Value { return slices.Clone(inst.operands) }

// SetOperand replaces operand i, moving the use from the old value to v.
func (inst *Instruction) SetOperand(i int, v Value) {
	old := inst.operands[i]
	if old == v {
		return
	}
	inst.prog.removeUse(old, inst)
	inst.operands[i] = v
	inst.prog.addUse(v, inst)
}

func (inst *Instruction) appendOperand(v Value) {
	inst.operands = append(inst.operands, v)
	inst.prog.addUse(v, inst)
}

// HasFlag reports whether f is set.
func (inst *Instruction) HasFlag(f InstFlags) bool { return inst.Flags&f != 0 }

// SetFlag sets or clears f.
func (inst *Instruction) SetFlag(f InstFlags, on bool) {
	if on {
		inst.Flags |= f
	} else {
		inst.Flags &^= f
	}
}

// IsExact reports whether the exact flag is set.
func (inst *Instruction) IsExact() bool { return inst.HasFlag(FlagExact) }

// IsVolatile reports whether the volatile flag is set.
func (inst *Instruction) IsVolatile() bool { return inst.HasFlag(FlagVolatile) }

// IsTailCall reports whether the tail marker is set.
func (inst *Instruction) IsTailCall() bool { return inst.HasFlag(FlagTail) }

// GetMetadata returns the node attached under kind.
func (inst *Instruction) GetMetadata(kind string) (string, bool) {
	for _, md := range inst.Metadata {
		if md.Kind == kind {
			return md.Node, true
		}
	}
	return "", false
}

// SetMetadata attaches node under kind, replacing any previous node.
func (inst *Instruction) SetMetadata(kind, node string) {
	for i := range inst.Metadata {
		if inst.Metadata[i].Kind == kind {
			inst.Metadata[i].Node = node
			return
		}
	}
	inst.Metadata = append(inst.Metadata, MDAttachment{Kind: kind, Node: node})
}

// DropMetadata removes the node attached under kind and reports whether
// one was present.
func (inst *Instruction) DropMetadata(kind string) bool {
	n := len(inst.Metadata)
	inst.Metadata = slices.DeleteFunc(inst.Metadata, func(md MDAttachment) bool {
		return md.Kind == kind
	})
	return len(inst.Metadata) != n
}

// Callee returns operand 0 of a call.
func (inst *Instruction) Callee() Value { return inst.operands[0] }

// CalledFunction returns the directly called function, or nil for an
// indirect call.
func (inst *Instruction) CalledFunction() *Function {
	if inst.Op != OpCall {
		return nil
	}
	return inst.prog.FuncOf(inst.operands[0])
}

// SetCalledFunction redirects a call to f.
func (inst *Instruction) SetCalledFunction(f *Function) {
	inst.SetOperand(0, f.Value())
}

// Args returns the call arguments.
func (inst *Instruction) Args() []Value { return slices.Clone(inst.operands[1:]) }

// Arg returns call argument i.
func (inst *Instruction) Arg(i int) Value { return inst.operands[i+1] }

// AddIncoming appends a phi edge.
func (inst *Instruction) AddIncoming(v Value, from *Block) {
	inst.appendOperand(v)
	inst.Targets = append(inst.Targets, from)
}

// Prev returns the instruction before inst in its block, or nil.
func (inst *Instruction) Prev() *Instruction {
	if inst.block == nil {
		return nil
	}
	i := inst.block.indexOf(inst)
	if i <= 0 {
		return nil
	}
	return inst.block.insts[i-1]
}

// Next returns the instruction after inst in its block, or nil.
func (inst *Instruction) Next() *Instruction {
	if inst.block == nil {
		return nil
	}
	i := inst.block.indexOf(inst)
	if i < 0 || i+1 >= len(inst.block.insts) {
		return nil
	}
	return inst.block.insts[i+1]
}

// String renders the instruction as one line of LLVM-like text.
func (inst *Instruction) String() string {
	var n namer
	if inst.block != nil && inst.block.fn != nil {
		n = newNamer(inst.block.fn)
	} else {
		n = namer{prog: inst.prog}
	}
	return n.inst(inst)
}
