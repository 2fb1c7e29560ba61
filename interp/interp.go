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

// Package interp executes ir programs over a flat byte memory. It is used
// to check that a regularized program computes what the original did:
// the unlowered intrinsics and the SPIR-V atomic builtins have reference
// implementations, so the same entry point can be run before and after
// the rewrite.
//
// Operations whose result would be poison or undefined (over-wide shifts,
// division by zero, signed division overflow) fail with
// ErrUndefinedBehavior instead of producing a value.
package interp

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ajroetker/go-spirv/ir"
)

var (
	// ErrUndefinedBehavior reports an operation with no defined result.
	ErrUndefinedBehavior = errors.New("undefined behavior")

	// ErrOutOfBounds reports a memory access outside any allocation.
	ErrOutOfBounds = errors.New("memory access out of bounds")

	// ErrStepLimit reports that execution ran for too many instructions.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrUnsupported reports an instruction or call the machine cannot
	// execute, such as a declaration with no builtin.
	ErrUnsupported = errors.New("unsupported")
)

// DefaultStepLimit bounds the number of instructions a Call may execute.
const DefaultStepLimit = 1 << 20

// Builtin implements a declared function. args are already evaluated.
type Builtin func(m *Machine, f *ir.Function, args []Val) (Val, error)

// Machine executes functions of one program.
type Machine struct {
	// Builtins maps declaration names to implementations. Entries take
	// precedence over the default builtins.
	Builtins map[string]Builtin

	// StepLimit bounds the instructions executed per top-level Call.
	StepLimit int

	prog  *ir.Program
	mem   []byte
	steps int
}

// New creates a machine for p with an empty memory.
func New(p *ir.Program) *Machine {
	return &Machine{
		Builtins:  make(map[string]Builtin),
		StepLimit: DefaultStepLimit,
		prog:      p,
		mem:       make([]byte, nullGuard),
	}
}

// Program returns the program the machine executes.
func (m *Machine) Program() *ir.Program { return m.prog }

// Call runs f on args and returns its result; a void function returns the
// zero Val.
func (m *Machine) Call(f *ir.Function, args ...Val) (Val, error) {
	m.steps = 0
	return m.call(f, args)
}

func (m *Machine) call(f *ir.Function, args []Val) (Val, error) {
	if len(args) != len(f.Args()) {
		return Val{}, errors.Newf("call of %q with %d arguments, want %d", f.Name(), len(args), len(f.Args()))
	}
	if f.IsDeclaration() {
		b := m.builtin(f.Name())
		if b == nil {
			return Val{}, errors.Wrapf(ErrUnsupported, "call of declaration %q", f.Name())
		}
		return b(m, f, args)
	}
	fr := &frame{m: m, vals: make(map[ir.Value]Val)}
	for i, a := range f.Args() {
		fr.vals[a] = args[i]
	}
	v, err := fr.run(f)
	return v, errors.Wrapf(err, "in %q", f.Name())
}

func (m *Machine) builtin(name string) Builtin {
	if b, ok := m.Builtins[name]; ok {
		return b
	}
	for _, d := range defaultBuiltins {
		if strings.HasPrefix(name, d.prefix) {
			return d.fn
		}
	}
	return nil
}

type frame struct {
	m    *Machine
	vals map[ir.Value]Val
}

func (fr *frame) get(v ir.Value) (Val, error) {
	p := fr.m.prog
	switch p.Kind(v) {
	case ir.ConstValue:
		bits, _ := p.ConstBits(v)
		return splat(p.TypeOf(v), bits), nil
	case ir.UndefValue:
		return zero(p.TypeOf(v)), nil
	case ir.FuncValue:
		return Int(uint64(v)), nil
	}
	val, ok := fr.vals[v]
	if !ok {
		return Val{}, errors.AssertionFailedf("value %d (%s) used before definition", v, p.NameOf(v))
	}
	return val, nil
}

func (fr *frame) run(f *ir.Function) (Val, error) {
	var prev *ir.Block
	cur := f.Entry()
	for {
		next, ret, done, err := fr.runBlock(cur, prev)
		if err != nil || done {
			return ret, err
		}
		prev, cur = cur, next
	}
}

// runBlock executes b, entered from prev. It returns the successor, or the
// return value with done set.
func (fr *frame) runBlock(b, prev *ir.Block) (next *ir.Block, ret Val, done bool, err error) {
	insts := b.Instructions()

	// Phis read their inputs simultaneously.
	phis := map[ir.Value]Val{}
	i := 0
	for ; i < len(insts) && insts[i].Op == ir.OpPhi; i++ {
		phi := insts[i]
		found := false
		for k, from := range phi.Targets {
			if from == prev {
				v, err := fr.get(phi.Operand(k))
				if err != nil {
					return nil, Val{}, false, err
				}
				phis[phi.ID()] = v
				found = true
				break
			}
		}
		if !found {
			return nil, Val{}, false, errors.AssertionFailedf("phi in %q has no edge from %v", b.Name(), blockName(prev))
		}
	}
	for v, val := range phis {
		fr.vals[v] = val
	}

	for ; i < len(insts); i++ {
		inst := insts[i]
		fr.m.steps++
		if fr.m.StepLimit > 0 && fr.m.steps > fr.m.StepLimit {
			return nil, Val{}, false, errors.Wrapf(ErrStepLimit, "after %d steps", fr.m.StepLimit)
		}
		switch inst.Op {
		case ir.OpBr:
			return inst.Targets[0], Val{}, false, nil
		case ir.OpCondBr:
			c, err := fr.get(inst.Operand(0))
			if err != nil {
				return nil, Val{}, false, err
			}
			if c.Bits&1 != 0 {
				return inst.Targets[0], Val{}, false, nil
			}
			return inst.Targets[1], Val{}, false, nil
		case ir.OpRet:
			if inst.NumOperands() == 0 {
				return nil, Val{}, true, nil
			}
			v, err := fr.get(inst.Operand(0))
			return nil, v, true, err
		}
		v, err := fr.exec(inst)
		if err != nil {
			return nil, Val{}, false, errors.Wrapf(err, "executing %s", inst)
		}
		fr.vals[inst.ID()] = v
	}
	return nil, Val{}, false, errors.AssertionFailedf("block %q falls off its end", b.Name())
}

func blockName(b *ir.Block) string {
	if b == nil {
		return "<entry>"
	}
	return b.Name()
}

func (fr *frame) operands(inst *ir.Instruction) ([]Val, error) {
	out := make([]Val, inst.NumOperands())
	for i := range out {
		v, err := fr.get(inst.Operand(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fr *frame) exec(inst *ir.Instruction) (Val, error) {
	ops, err := fr.operands(inst)
	if err != nil {
		return Val{}, err
	}
	p := fr.m.prog
	switch {
	case inst.Op.IsBinary():
		width := inst.Type().ScalarBits()
		return lanewise(inst.Type(), func(i int) (uint64, error) {
			return binary(inst.Op, width, ops[0].Lane(i), ops[1].Lane(i))
		})
	case inst.Op.IsCast():
		return ops[0], nil
	}
	switch inst.Op {
	case ir.OpICmp:
		width := p.TypeOf(inst.Operand(0)).ScalarBits()
		if width == 0 {
			width = 64 // pointers
		}
		return lanewise(inst.Type(), func(i int) (uint64, error) {
			return compare(inst.Pred, width, ops[0].Lane(i), ops[1].Lane(i)), nil
		})
	case ir.OpSelect:
		if ops[0].Lanes == nil {
			if ops[0].Bits&1 != 0 {
				return ops[1], nil
			}
			return ops[2], nil
		}
		return lanewise(inst.Type(), func(i int) (uint64, error) {
			if ops[0].Lanes[i]&1 != 0 {
				return ops[1].Lane(i), nil
			}
			return ops[2].Lane(i), nil
		})
	case ir.OpCall:
		callee := p.FuncOf(ir.Value(ops[0].Bits))
		if f := inst.CalledFunction(); f != nil {
			callee = f
		}
		if callee == nil {
			return Val{}, errors.Wrapf(ErrUnsupported, "indirect call through %#x", ops[0].Bits)
		}
		return fr.m.call(callee, ops[1:])
	case ir.OpLoad:
		return fr.m.loadTyped(inst.Type(), ops[0].Bits)
	case ir.OpStore:
		return Val{}, fr.m.storeTyped(p.TypeOf(inst.Operand(0)), ops[1].Bits, ops[0])
	case ir.OpGEP:
		idxT := p.TypeOf(inst.Operand(1))
		off := ir.SignExtend(ops[1].Bits, idxT.ScalarBits()) * int64(inst.ElemType.StoreSize())
		return Int(ops[0].Bits + uint64(off)), nil
	case ir.OpExtractValue:
		return ops[0].Fields[inst.Indices[0]], nil
	case ir.OpInsertValue:
		fields := append([]Val(nil), ops[0].Fields...)
		fields[inst.Indices[0]] = ops[1]
		return Agg(fields...), nil
	case ir.OpCmpXchg:
		t := p.TypeOf(inst.Operand(1))
		old, err := fr.m.loadTyped(t, ops[0].Bits)
		if err != nil {
			return Val{}, err
		}
		eq := old.Equal(ops[1])
		if eq {
			if err := fr.m.storeTyped(t, ops[0].Bits, ops[2]); err != nil {
				return Val{}, err
			}
		}
		return Agg(old, Bool(eq)), nil
	}
	return Val{}, errors.Wrapf(ErrUnsupported, "opcode %s", inst.Op)
}

func binary(op ir.Opcode, width int, x, y uint64) (uint64, error) {
	mask := ir.Mask(width)
	sx, sy := ir.SignExtend(x, width), ir.SignExtend(y, width)
	switch op {
	case ir.OpAdd:
		return (x + y) & mask, nil
	case ir.OpSub:
		return (x - y) & mask, nil
	case ir.OpMul:
		return (x * y) & mask, nil
	case ir.OpAnd:
		return x & y, nil
	case ir.OpOr:
		return x | y, nil
	case ir.OpXor:
		return x ^ y, nil
	case ir.OpUDiv, ir.OpURem, ir.OpSDiv, ir.OpSRem:
		if y == 0 {
			return 0, errors.Wrapf(ErrUndefinedBehavior, "%s by zero", op)
		}
		minInt := ir.SignExtend(uint64(1)<<(width-1), width)
		if (op == ir.OpSDiv || op == ir.OpSRem) && sx == minInt && sy == -1 {
			return 0, errors.Wrapf(ErrUndefinedBehavior, "%s overflow", op)
		}
		switch op {
		case ir.OpUDiv:
			return x / y, nil
		case ir.OpURem:
			return x % y, nil
		case ir.OpSDiv:
			return uint64(sx/sy) & mask, nil
		default:
			return uint64(sx%sy) & mask, nil
		}
	case ir.OpShl, ir.OpLShr, ir.OpAShr:
		if y >= uint64(width) {
			return 0, errors.Wrapf(ErrUndefinedBehavior, "%s of i%d by %d", op, width, y)
		}
		switch op {
		case ir.OpShl:
			return (x << y) & mask, nil
		case ir.OpLShr:
			return x >> y, nil
		default:
			return uint64(sx>>y) & mask, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupported, "binary opcode %s", op)
}

func compare(pred ir.Predicate, width int, x, y uint64) uint64 {
	sx, sy := ir.SignExtend(x, width), ir.SignExtend(y, width)
	var r bool
	switch pred {
	case ir.PredEQ:
		r = x == y
	case ir.PredNE:
		r = x != y
	case ir.PredUGT:
		r = x > y
	case ir.PredUGE:
		r = x >= y
	case ir.PredULT:
		r = x < y
	case ir.PredULE:
		r = x <= y
	case ir.PredSGT:
		r = sx > sy
	case ir.PredSGE:
		r = sx >= sy
	case ir.PredSLT:
		r = sx < sy
	case ir.PredSLE:
		r = sx <= sy
	}
	return Bool(r).Bits
}
