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

import "fmt"

// Builder creates instructions at an insertion point: either the end of a
// block or immediately before an existing instruction.
type Builder struct {
	prog   *Program
	block  *Block
	before *Instruction
}

// NewBuilder creates a Builder with no insertion point.
func NewBuilder(p *Program) *Builder {
	return &Builder{prog: p}
}

// Program returns the program instructions are created in.
func (b *Builder) Program() *Program { return b.prog }

// SetInsertPoint appends subsequent instructions to the end of blk.
func (b *Builder) SetInsertPoint(blk *Block) {
	b.block = blk
	b.before = nil
}

// SetInsertPointBefore inserts subsequent instructions right before inst.
func (b *Builder) SetInsertPointBefore(inst *Instruction) {
	b.block = inst.block
	b.before = inst
}

// Block returns the current insertion block.
func (b *Builder) Block() *Block { return b.block }

func (b *Builder) insert(inst *Instruction) *Instruction {
	if b.block == nil {
		panic("ir: Builder has no insertion point")
	}
	if b.before != nil {
		b.block.insertAt(b.block.indexOf(b.before), inst)
	} else {
		b.block.insertAt(len(b.block.insts), inst)
	}
	return inst
}

func (b *Builder) create(op Opcode, typ *Type, name string, operands ...Value) *Instruction {
	return b.insert(b.prog.newInstruction(op, typ, name, operands...))
}

// Binary emits a binary operator; the result has x's type.
func (b *Builder) Binary(op Opcode, x, y Value, name string) *Instruction {
	if !op.IsBinary() {
		panic(fmt.Sprintf("ir: %s is not a binary operator", op))
	}
	return b.create(op, b.prog.TypeOf(x), name, x, y)
}

// Add emits x + y.
func (b *Builder) Add(x, y Value, name string) Value { return b.Binary(OpAdd, x, y, name).id }

// Sub emits x - y.
func (b *Builder) Sub(x, y Value, name string) Value { return b.Binary(OpSub, x, y, name).id }

// Mul emits x * y.
func (b *Builder) Mul(x, y Value, name string) Value { return b.Binary(OpMul, x, y, name).id }

// UDiv emits x / y, unsigned.
func (b *Builder) UDiv(x, y Value, name string) Value { return b.Binary(OpUDiv, x, y, name).id }

// URem emits x % y, unsigned.
func (b *Builder) URem(x, y Value, name string) Value { return b.Binary(OpURem, x, y, name).id }

// Shl emits x << y.
func (b *Builder) Shl(x, y Value, name string) Value { return b.Binary(OpShl, x, y, name).id }

// LShr emits x >> y, zero-filling.
func (b *Builder) LShr(x, y Value, name string) Value { return b.Binary(OpLShr, x, y, name).id }

// And emits x & y.
func (b *Builder) And(x, y Value, name string) Value { return b.Binary(OpAnd, x, y, name).id }

// Or emits x | y.
func (b *Builder) Or(x, y Value, name string) Value { return b.Binary(OpOr, x, y, name).id }

// ICmp emits a comparison; the result is i1 or a vector of i1.
func (b *Builder) ICmp(pred Predicate, x, y Value, name string) Value {
	typ := b.prog.Types.BoolLike(b.prog.TypeOf(x))
	inst := b.create(OpICmp, typ, name, x, y)
	inst.Pred = pred
	return inst.id
}

// Select emits cond ? t : f.
func (b *Builder) Select(cond, t, f Value, name string) Value {
	return b.create(OpSelect, b.prog.TypeOf(t), name, cond, t, f).id
}

// Phi emits an empty phi of type typ; add edges with AddIncoming.
func (b *Builder) Phi(typ *Type, name string) *Instruction {
	return b.create(OpPhi, typ, name)
}

// Br emits an unconditional branch.
func (b *Builder) Br(dest *Block) *Instruction {
	inst := b.create(OpBr, b.prog.Types.Void(), "")
	inst.Targets = []*Block{dest}
	return inst
}

// CondBr emits a two-way branch.
func (b *Builder) CondBr(cond Value, then, els *Block) *Instruction {
	inst := b.create(OpCondBr, b.prog.Types.Void(), "", cond)
	inst.Targets = []*Block{then, els}
	return inst
}

// Ret emits a return of v.
func (b *Builder) Ret(v Value) *Instruction {
	return b.create(OpRet, b.prog.Types.Void(), "", v)
}

// RetVoid emits a return without a value.
func (b *Builder) RetVoid() *Instruction {
	return b.create(OpRet, b.prog.Types.Void(), "")
}

// Call emits a direct call to f.
func (b *Builder) Call(f *Function, args []Value, name string) *Instruction {
	operands := append([]Value{f.id}, args...)
	return b.create(OpCall, f.sig.Ret, name, operands...)
}

// Load emits a load of typ from ptr.
func (b *Builder) Load(typ *Type, ptr Value, align uint32, name string) *Instruction {
	inst := b.create(OpLoad, typ, name, ptr)
	inst.Align = align
	return inst
}

// Store emits a store of val to ptr.
func (b *Builder) Store(val, ptr Value, align uint32, volatile bool) *Instruction {
	inst := b.create(OpStore, b.prog.Types.Void(), "", val, ptr)
	inst.Align = align
	inst.SetFlag(FlagVolatile, volatile)
	return inst
}

// GEP emits ptr + index*sizeof(elem). The result has ptr's type.
func (b *Builder) GEP(elem *Type, ptr, index Value, name string) Value {
	inst := b.create(OpGEP, b.prog.TypeOf(ptr), name, ptr, index)
	inst.ElemType = elem
	return inst.id
}

// Cast emits a bitcast or addrspacecast of v to typ.
func (b *Builder) Cast(op Opcode, v Value, typ *Type, name string) Value {
	if !op.IsCast() {
		panic(fmt.Sprintf("ir: %s is not a cast", op))
	}
	return b.create(op, typ, name, v).id
}

// ExtractValue emits agg.index.
func (b *Builder) ExtractValue(agg Value, index int, name string) Value {
	at := b.prog.TypeOf(agg)
	inst := b.create(OpExtractValue, at.Fields[index], name, agg)
	inst.Indices = []int{index}
	return inst.id
}

// InsertValue emits agg with field index replaced by v.
func (b *Builder) InsertValue(agg, v Value, index int, name string) Value {
	inst := b.create(OpInsertValue, b.prog.TypeOf(agg), name, agg, v)
	inst.Indices = []int{index}
	return inst.id
}

// CmpXchg emits an atomic compare-and-swap returning { T, i1 }.
func (b *Builder) CmpXchg(ptr, cmp, newVal Value, success, failure AtomicOrdering, name string) *Instruction {
	t := b.prog.TypeOf(cmp)
	inst := b.create(OpCmpXchg, b.prog.Types.Struct(t, b.prog.Types.Int(1)), name, ptr, cmp, newVal)
	inst.SuccessOrdering = success
	inst.FailureOrdering = failure
	return inst
}

// MemSetName returns the overloaded llvm.memset name for a destination
// pointer type and length type, e.g. "llvm.memset.p0i8.i64".
func MemSetName(ptr, length *Type) string {
	return fmt.Sprintf("llvm.memset.%s.%s", ptr.Mangle(), length.Mangle())
}

// MemSet emits a call to the llvm.memset intrinsic matching dest and
// length, declaring it if needed.
func (b *Builder) MemSet(dest, val, length Value, align uint32, volatile bool) (*Instruction, error) {
	types := b.prog.Types
	ptrT, lenT := b.prog.TypeOf(dest), b.prog.TypeOf(length)
	sig := types.Func(types.Void(), ptrT, types.Int(8), lenT, types.Int(1))
	f, created, err := b.prog.GetOrInsertFunction(MemSetName(ptrT, lenT), sig)
	if err != nil {
		return nil, err
	}
	if created {
		f.ParamAttrs[3] = f.ParamAttrs[3].With(AttrImmArg)
	}
	var vol uint64
	if volatile {
		vol = 1
	}
	call := b.Call(f, []Value{dest, val, length, b.prog.ConstInt(types.Int(1), vol)}, "")
	call.Align = align
	return call, nil
}
