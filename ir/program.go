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

	"github.com/cockroachdb/errors"
)

// ErrHasUsers is returned when erasing a value that is still referenced.
var ErrHasUsers = errors.New("value still has users")

// Value is a stable handle to a node in a Program's value arena: a
// constant, undef, function argument, instruction result or function.
// Handles are never reused, so a handle to an erased node stays invalid.
type Value int32

// NoValue is the zero handle.
const NoValue Value = 0

// ValueKind classifies arena nodes.
type ValueKind uint8

const (
	InvalidValue ValueKind = iota
	ConstValue
	UndefValue
	ArgValue
	InstValue
	FuncValue
)

// String returns a human-readable name for the ValueKind.
func (k ValueKind) String() string {
	switch k {
	case InvalidValue:
		return "Invalid"
	case ConstValue:
		return "Const"
	case UndefValue:
		return "Undef"
	case ArgValue:
		return "Arg"
	case InstValue:
		return "Inst"
	case FuncValue:
		return "Func"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

type valueSlot struct {
	kind ValueKind
	typ  *Type
	name string

	// bits is the constant payload; vector constants are splats.
	bits uint64

	inst  *Instruction
	fn    *Function
	index int

	// users has one entry per operand slot that references this value.
	users []*Instruction
}

type constKey struct {
	typ  *Type
	bits uint64
}

// Program is a set of functions plus the type interner and value arena
// they share. It is not safe for concurrent mutation.
type Program struct {
	// Types interns every type used by the program.
	Types *TypeContext

	slots  []valueSlot
	funcs  []*Function
	byName map[string]*Function
	consts map[constKey]Value
	undefs map[*Type]Value
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		Types:  NewTypeContext(),
		slots:  make([]valueSlot, 1), // slot 0 backs NoValue
		byName: make(map[string]*Function),
		consts: make(map[constKey]Value),
		undefs: make(map[*Type]Value),
	}
}

func (p *Program) newSlot(s valueSlot) Value {
	p.slots = append(p.slots, s)
	return Value(len(p.slots) - 1)
}

func (p *Program) slot(v Value) *valueSlot {
	if v <= NoValue || int(v) >= len(p.slots) {
		return &p.slots[0]
	}
	return &p.slots[v]
}

func (p *Program) addUse(v Value, user *Instruction) {
	if v == NoValue {
		return
	}
	s := p.slot(v)
	s.users = append(s.users, user)
}

func (p *Program) removeUse(v Value, user *Instruction) {
	if v == NoValue {
		return
	}
	s := p.slot(v)
	if i := slices.Index(s.users, user); i >= 0 {
		s.users = slices.Delete(s.users, i, i+1)
	}
}

// Kind returns the kind of v.
func (p *Program) Kind(v Value) ValueKind { return p.slot(v).kind }

// TypeOf returns the type of v.
func (p *Program) TypeOf(v Value) *Type { return p.slot(v).typ }

// NameOf returns the name of v, possibly empty.
func (p *Program) NameOf(v Value) string { return p.slot(v).name }

// SetNameOf renames v.
func (p *Program) SetNameOf(v Value, name string) { p.slot(v).name = name }

// IsConstant reports whether v is a compile-time constant: an integer
// constant, undef, or a function address.
func (p *Program) IsConstant(v Value) bool {
	switch p.Kind(v) {
	case ConstValue, UndefValue, FuncValue:
		return true
	}
	return false
}

// ConstBits returns the payload of an integer constant.
func (p *Program) ConstBits(v Value) (uint64, bool) {
	s := p.slot(v)
	if s.kind != ConstValue {
		return 0, false
	}
	return s.bits, true
}

// InstOf returns the instruction producing v, or nil.
func (p *Program) InstOf(v Value) *Instruction {
	s := p.slot(v)
	if s.kind != InstValue {
		return nil
	}
	return s.inst
}

// FuncOf returns the function v refers to, or nil.
func (p *Program) FuncOf(v Value) *Function {
	s := p.slot(v)
	if s.kind != FuncValue {
		return nil
	}
	return s.fn
}

// ArgOf returns the function and parameter index of an argument value.
func (p *Program) ArgOf(v Value) (*Function, int, bool) {
	s := p.slot(v)
	if s.kind != ArgValue {
		return nil, 0, false
	}
	return s.fn, s.index, true
}

// Users returns the instructions referencing v, one entry per operand
// slot, in the order the uses were created.
func (p *Program) Users(v Value) []*Instruction { return slices.Clone(p.slot(v).users) }

// NumUses returns the number of operand slots referencing v.
func (p *Program) NumUses(v Value) int { return len(p.slot(v).users) }

// HasUsers reports whether any instruction references v.
func (p *Program) HasUsers(v Value) bool { return len(p.slot(v).users) > 0 }

// ReplaceAllUsesWith points every use of old at repl.
func (p *Program) ReplaceAllUsesWith(old, repl Value) {
	if old == repl {
		return
	}
	for _, user := range p.Users(old) {
		for i, op := range user.operands {
			if op == old {
				user.SetOperand(i, repl)
			}
		}
	}
}

// ConstInt returns the integer constant of type t with the given bits,
// truncated to t's scalar width. A vector t yields a splat.
func (p *Program) ConstInt(t *Type, bits uint64) Value {
	bits &= Mask(t.ScalarBits())
	key := constKey{typ: t, bits: bits}
	if v, ok := p.consts[key]; ok {
		return v
	}
	v := p.newSlot(valueSlot{kind: ConstValue, typ: t, bits: bits})
	p.consts[key] = v
	return v
}

// Undef returns the undef value of type t.
func (p *Program) Undef(t *Type) Value {
	if v, ok := p.undefs[t]; ok {
		return v
	}
	v := p.newSlot(valueSlot{kind: UndefValue, typ: t})
	p.undefs[t] = v
	return v
}

// Mask returns the low-bits mask of an integer of the given width.
func Mask(bits int) uint64 {
	if bits <= 0 || bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// Functions returns the functions in program order.
func (p *Program) Functions() []*Function { return slices.Clone(p.funcs) }

// Function returns the function with the given name, or nil.
func (p *Program) Function(name string) *Function { return p.byName[name] }

// NewFunction adds a declaration with the given name and function type.
// It fails if the name is taken or sig is not a function type.
func (p *Program) NewFunction(name string, sig *Type) (*Function, error) {
	if sig == nil || sig.Kind != FunctionKind {
		return nil, errors.AssertionFailedf("function %q: signature %s is not a function type", name, sig)
	}
	if _, ok := p.byName[name]; ok {
		return nil, errors.Newf("function %q already exists", name)
	}
	f := &Function{
		prog:       p,
		sig:        sig,
		ParamAttrs: make([]AttrSet, len(sig.Params)),
		ParamAlign: make([]uint32, len(sig.Params)),
	}
	f.id = p.newSlot(valueSlot{kind: FuncValue, typ: p.Types.Pointer(sig, 0), name: name, fn: f})
	for i, pt := range sig.Params {
		f.args = append(f.args, p.newSlot(valueSlot{kind: ArgValue, typ: pt, fn: f, index: i}))
	}
	p.funcs = append(p.funcs, f)
	p.byName[name] = f
	return f, nil
}

// MustNewFunction is like NewFunction but panics on error. It is meant for
// building fixtures.
func (p *Program) MustNewFunction(name string, sig *Type) *Function {
	f, err := p.NewFunction(name, sig)
	if err != nil {
		panic(err)
	}
	return f
}

// GetOrInsertFunction returns the function named name, creating a
// declaration with signature sig if absent. created reports whether the
// function is new. An existing function with a different signature is an
// error.
func (p *Program) GetOrInsertFunction(name string, sig *Type) (f *Function, created bool, err error) {
	if f = p.byName[name]; f != nil {
		if f.sig != sig {
			return nil, false, errors.Newf("function %q has type %s, requested %s", name, f.sig, sig)
		}
		return f, false, nil
	}
	f, err = p.NewFunction(name, sig)
	return f, err == nil, err
}

// RenameFunction changes f's name.
func (p *Program) RenameFunction(f *Function, name string) error {
	if f.Name() == name {
		return nil
	}
	if _, ok := p.byName[name]; ok {
		return errors.Newf("function %q already exists", name)
	}
	delete(p.byName, f.Name())
	p.slot(f.id).name = name
	p.byName[name] = f
	return nil
}

// EraseFunction removes f and its body. f must have no remaining uses.
func (p *Program) EraseFunction(f *Function) error {
	if p.HasUsers(f.id) {
		return errors.Wrapf(ErrHasUsers, "erase function %q (%d uses)", f.Name(), p.NumUses(f.id))
	}
	// Drop every operand first so intra-body references disappear.
	for _, b := range f.blocks {
		for _, inst := range b.insts {
			for _, op := range inst.operands {
				p.removeUse(op, inst)
			}
			inst.operands = nil
		}
	}
	for _, b := range f.blocks {
		for _, inst := range b.insts {
			inst.block = nil
			*p.slot(inst.id) = valueSlot{}
		}
		b.insts = nil
		b.fn = nil
	}
	f.blocks = nil
	for _, a := range f.args {
		*p.slot(a) = valueSlot{}
	}
	delete(p.byName, f.Name())
	p.funcs = slices.DeleteFunc(p.funcs, func(g *Function) bool { return g == f })
	*p.slot(f.id) = valueSlot{}
	return nil
}

// EraseInstruction removes inst from its block. inst must have no users.
func (p *Program) EraseInstruction(inst *Instruction) error {
	if p.HasUsers(inst.id) {
		return errors.Wrapf(ErrHasUsers, "erase %s (%d uses)", inst.Op, p.NumUses(inst.id))
	}
	if inst.block != nil {
		inst.block.remove(inst)
	}
	for _, op := range inst.operands {
		p.removeUse(op, inst)
	}
	inst.operands = nil
	*p.slot(inst.id) = valueSlot{}
	return nil
}

func (p *Program) newInstruction(op Opcode, typ *Type, name string, operands ...Value) *Instruction {
	inst := &Instruction{Op: op, prog: p, typ: typ}
	inst.id = p.newSlot(valueSlot{kind: InstValue, typ: typ, name: name, inst: inst})
	for _, v := range operands {
		inst.appendOperand(v)
	}
	return inst
}
