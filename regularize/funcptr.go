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
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/ajroetker/go-spirv/internal/spirv"
	"github.com/ajroetker/go-spirv/ir"
)

// funcPtrBuiltin is a builtin declaration whose first parameter is a
// function pointer, with the opcode its name refers to.
type funcPtrBuiltin struct {
	fn *ir.Function
	op spirv.Op
}

// funcPtrBuiltins finds the builtins to rewrite, in program order.
func funcPtrBuiltins(p *ir.Program) []funcPtrBuiltin {
	var work []funcPtrBuiltin
	for _, f := range p.Functions() {
		params := f.Signature().Params
		if len(params) == 0 || !params[0].IsFunctionPointer() {
			continue
		}
		op := spirv.FuncOpcode(f.Name())
		if op == spirv.OpNop || !op.TakesFunctionPointer() {
			continue
		}
		work = append(work, funcPtrBuiltin{fn: f, op: op})
	}
	return work
}

// lowerFuncPtrs rewrites every call to a function-pointer builtin so that
// the function pointers are passed uncast, calling the decorated builtin
// name of the opcode instead.
func (r *Regularizer) lowerFuncPtrs() error {
	for _, w := range funcPtrBuiltins(r.prog) {
		if err := r.lowerFuncPtr(w.fn, w.op); err != nil {
			return errors.Wrapf(err, "lowering function pointers of %q", w.fn.Name())
		}
	}
	return nil
}

func (r *Regularizer) lowerFuncPtr(f *ir.Function, op spirv.Op) error {
	p := r.prog
	name := spirv.Decorate(op.Name())
	var casts []*ir.Instruction

	for _, call := range lo.Uniq(f.Users()) {
		if call.Op != ir.OpCall || call.Callee() != f.Value() {
			return errors.Wrapf(ErrUnexpectedPattern, "%q used by %s", f.Name(), call)
		}
		for i, arg := range call.Args() {
			if !p.TypeOf(arg).IsFunctionPointer() {
				continue
			}
			stripped, chain := stripCasts(p, arg)
			casts = append(casts, chain...)
			call.SetOperand(i+1, stripped)
		}
		argTypes := lo.Map(call.Args(), func(v ir.Value, _ int) *ir.Type { return p.TypeOf(v) })
		target, err := r.declareLike(f, name, p.Types.Func(f.ReturnType(), argTypes...))
		if err != nil {
			return err
		}
		call.SetCalledFunction(target)
	}

	// Erasing an outer cast can free an inner one shared with a later
	// chain, so repeat until nothing changes.
	casts = lo.Uniq(casts)
	for changed := true; changed; {
		changed = false
		for _, c := range casts {
			if c.Block() == nil || p.HasUsers(c.ID()) {
				continue
			}
			if err := p.EraseInstruction(c); err != nil {
				return err
			}
			changed = true
		}
	}
	if !f.HasUses() && p.Function(f.Name()) == f {
		r.log.V(1).Info("lowered function pointer builtin", "builtin", f.Name(), "target", name)
		return p.EraseFunction(f)
	}
	return nil
}

// stripCasts follows bitcasts and addrspacecasts from v to the value they
// cast, returning it together with the casts passed, outermost first.
func stripCasts(p *ir.Program, v ir.Value) (ir.Value, []*ir.Instruction) {
	var chain []*ir.Instruction
	for {
		inst := p.InstOf(v)
		if inst == nil || !inst.Op.IsCast() {
			return v, chain
		}
		chain = append(chain, inst)
		v = inst.Operand(0)
	}
}

// declareLike returns the declaration of name with signature sig, creating
// it with the function and parameter attributes of orig. When orig itself
// holds the name with another signature, orig is renamed out of the way.
func (r *Regularizer) declareLike(orig *ir.Function, name string, sig *ir.Type) (*ir.Function, error) {
	p := r.prog
	if existing := p.Function(name); existing == orig && orig.Signature() != sig {
		if err := p.RenameFunction(orig, unusedName(p, name+".old")); err != nil {
			return nil, err
		}
	}
	f, created, err := r.helpers.getOrInsert(name, sig)
	if err != nil {
		return nil, err
	}
	if created {
		f.Attrs = orig.Attrs
		copy(f.ParamAttrs, orig.ParamAttrs)
		copy(f.ParamAlign, orig.ParamAlign)
	}
	return f, nil
}

// unusedName returns base, or base with the smallest numeric suffix that
// names no function.
func unusedName(p *ir.Program, base string) string {
	name := base
	for i := 1; p.Function(name) != nil; i++ {
		name = fmt.Sprintf("%s.%d", base, i)
	}
	return name
}
