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
	"strings"
)

// Linkage controls whether a function is visible outside the program.
type Linkage uint8

const (
	ExternalLinkage Linkage = iota
	InternalLinkage
)

// IntrinsicID identifies the LLVM intrinsics the regularizer knows about.
type IntrinsicID int

const (
	NotIntrinsic IntrinsicID = iota
	UnknownIntrinsic
	IntrinsicMemSet
	IntrinsicFshl
	IntrinsicUMulWithOverflow
)

// IntrinsicPrefix starts the name of every intrinsic function.
const IntrinsicPrefix = "llvm."

var intrinsicBases = []struct {
	base string
	id   IntrinsicID
}{
	{"llvm.memset", IntrinsicMemSet},
	{"llvm.fshl", IntrinsicFshl},
	{"llvm.umul.with.overflow", IntrinsicUMulWithOverflow},
}

// LookupIntrinsic classifies a function name. Overload suffixes
// (".p0i8.i64", ".i32") are ignored.
func LookupIntrinsic(name string) IntrinsicID {
	if !strings.HasPrefix(name, IntrinsicPrefix) {
		return NotIntrinsic
	}
	for _, ib := range intrinsicBases {
		if name == ib.base || strings.HasPrefix(name, ib.base+".") {
			return ib.id
		}
	}
	return UnknownIntrinsic
}

// Function is a named function. A function without blocks is a declaration.
type Function struct {
	// Linkage is external unless set otherwise.
	Linkage Linkage

	// Attrs are the function attributes.
	Attrs AttrSet

	// ParamAttrs holds one attribute set per parameter.
	ParamAttrs []AttrSet

	// ParamAlign holds the align attribute of each pointer parameter;
	// 0 means none.
	ParamAlign []uint32

	prog   *Program
	id     Value
	sig    *Type
	args   []Value
	blocks []*Block
}

// Name returns the function name.
func (f *Function) Name() string { return f.prog.slot(f.id).name }

// Value returns the handle used to reference f as an operand.
func (f *Function) Value() Value { return f.id }

// Program returns the owning program.
func (f *Function) Program() *Program { return f.prog }

// Signature returns the function type.
func (f *Function) Signature() *Type { return f.sig }

// ReturnType returns the result type.
func (f *Function) ReturnType() *Type { return f.sig.Ret }

// Args returns the parameter values.
func (f *Function) Args() []Value { return slices.Clone(f.args) }

// Arg returns parameter i.
func (f *Function) Arg(i int) Value { return f.args[i] }

// Blocks returns the blocks in layout order.
func (f *Function) Blocks() []*Block { return slices.Clone(f.blocks) }

// Entry returns the first block, or nil for a declaration.
func (f *Function) Entry() *Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// IsDeclaration reports whether f has no body.
func (f *Function) IsDeclaration() bool { return len(f.blocks) == 0 }

// IsIntrinsic reports whether f is an LLVM intrinsic.
func (f *Function) IsIntrinsic() bool { return strings.HasPrefix(f.Name(), IntrinsicPrefix) }

// IntrinsicID classifies f.
func (f *Function) IntrinsicID() IntrinsicID { return LookupIntrinsic(f.Name()) }

// Users returns the instructions referencing f.
func (f *Function) Users() []*Instruction { return f.prog.Users(f.id) }

// HasUses reports whether anything references f.
func (f *Function) HasUses() bool { return f.prog.HasUsers(f.id) }

// NewBlock appends an empty block.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{name: name, fn: f}
	f.blocks = append(f.blocks, b)
	return b
}

// NewBlockBefore inserts an empty block right before next in layout order.
func (f *Function) NewBlockBefore(name string, next *Block) *Block {
	b := &Block{name: name, fn: f}
	i := slices.Index(f.blocks, next)
	if i < 0 {
		i = len(f.blocks)
	}
	f.blocks = slices.Insert(f.blocks, i, b)
	return b
}

// Instructions returns every instruction in layout order.
func (f *Function) Instructions() []*Instruction {
	var out []*Instruction
	for _, b := range f.blocks {
		out = append(out, b.insts...)
	}
	return out
}

func (f *Function) String() string {
	return fmt.Sprintf("Function{Name:%s Type:%s Blocks:%d}", f.Name(), f.sig, len(f.blocks))
}

// Block is a straight-line sequence of instructions ending in a
// terminator.
type Block struct {
	name  string
	fn    *Function
	insts []*Instruction
}

// Name returns the block label.
func (b *Block) Name() string { return b.name }

// Parent returns the containing function.
func (b *Block) Parent() *Function { return b.fn }

// Instructions returns a snapshot of the instruction list.
func (b *Block) Instructions() []*Instruction { return slices.Clone(b.insts) }

// Len returns the number of instructions.
func (b *Block) Len() int { return len(b.insts) }

// Terminator returns the last instruction if it is a terminator.
func (b *Block) Terminator() *Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	last := b.insts[len(b.insts)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

// Successors returns the blocks the terminator may branch to.
func (b *Block) Successors() []*Block {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	return slices.Clone(term.Targets)
}

func (b *Block) indexOf(inst *Instruction) int { return slices.Index(b.insts, inst) }

func (b *Block) insertAt(i int, inst *Instruction) {
	b.insts = slices.Insert(b.insts, i, inst)
	inst.block = b
}

func (b *Block) remove(inst *Instruction) {
	if i := b.indexOf(inst); i >= 0 {
		b.insts = slices.Delete(b.insts, i, i+1)
	}
	inst.block = nil
}

// SplitBlock moves at and every instruction after it into a new block
// named name, placed right after b, and ends b with a branch to it. Phis in
// the moved terminator's successors are updated to come from the new
// block.
func SplitBlock(b *Block, at *Instruction, name string) *Block {
	i := b.indexOf(at)
	if i < 0 {
		return nil
	}
	f := b.fn
	nb := &Block{name: name, fn: f}
	pos := slices.Index(f.blocks, b)
	f.blocks = slices.Insert(f.blocks, pos+1, nb)

	moved := b.insts[i:]
	b.insts = slices.Clone(b.insts[:i])
	for _, inst := range moved {
		nb.insts = append(nb.insts, inst)
		inst.block = nb
	}
	for _, succ := range nb.Successors() {
		for _, inst := range succ.insts {
			if inst.Op != OpPhi {
				continue
			}
			for k, from := range inst.Targets {
				if from == b {
					inst.Targets[k] = nb
				}
			}
		}
	}

	br := f.prog.newInstruction(OpBr, f.prog.Types.Void(), "")
	br.Targets = []*Block{nb}
	b.insertAt(len(b.insts), br)
	return nb
}
