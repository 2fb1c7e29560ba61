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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/ajroetker/go-spirv/internal/spirv"
	"github.com/ajroetker/go-spirv/ir"
)

// CmpXchgScope is the memory scope given to every rewritten cmpxchg. The
// source IR carries no OpenCL scope, so the OpenCL default for atomics
// without a memory_scope argument applies.
const CmpXchgScope = spirv.ScopeDevice

// AtomicCompareExchangeName returns the builtin called in place of a
// cmpxchg on values of type t, e.g. "__spirv_AtomicCompareExchange.i32".
func AtomicCompareExchangeName(t *ir.Type) string {
	return spirv.BuiltinName(spirv.OpAtomicCompareExchange) + "." + t.Mangle()
}

// lowerCmpXchg replaces cx by a call to the exchange builtin, which yields
// only the value read, and rebuilds the success flag as an equality test:
//
//	extractvalue cx, 0   -> the call
//	extractvalue cx, 1   -> icmp eq call, cmp
//	store cx, ptr        -> store { call, icmp eq call, cmp }, ptr
//
// Any other use of cx is ErrUnexpectedPattern; cx is then left untouched.
func (r *Regularizer) lowerCmpXchg(cx *ir.Instruction) error {
	p := r.prog
	users := lo.Uniq(p.Users(cx.ID()))
	for _, u := range users {
		if err := checkCmpXchgUser(cx, u); err != nil {
			return err
		}
	}

	ptr, cmp, newVal := cx.Operand(0), cx.Operand(1), cx.Operand(2)
	t := p.TypeOf(cmp)
	i32 := p.Types.Int(32)
	sig := p.Types.Func(t, p.TypeOf(ptr), i32, i32, i32, t, t)
	builtin, _, err := r.helpers.getOrInsert(AtomicCompareExchangeName(t), sig)
	if err != nil {
		return err
	}

	r.b.SetInsertPointBefore(cx)
	res := r.b.Call(builtin, []ir.Value{
		ptr,
		p.ConstInt(i32, uint64(CmpXchgScope)),
		p.ConstInt(i32, uint64(spirv.SemanticsFor(cx.SuccessOrdering))),
		p.ConstInt(i32, uint64(spirv.SemanticsFor(cx.FailureOrdering))),
		newVal,
		cmp,
	}, "cmpxchg.res").ID()

	for _, u := range users {
		switch u.Op {
		case ir.OpExtractValue:
			if u.Indices[0] == 0 {
				p.ReplaceAllUsesWith(u.ID(), res)
			} else {
				r.b.SetInsertPointBefore(u)
				p.ReplaceAllUsesWith(u.ID(), r.b.ICmp(ir.PredEQ, res, cmp, "cmpxchg.success"))
			}
			r.pending.add(u)
		case ir.OpStore:
			r.b.SetInsertPointBefore(u)
			success := r.b.ICmp(ir.PredEQ, res, cmp, "cmpxchg.success")
			agg := r.b.InsertValue(p.Undef(cx.Type()), res, 0, "agg0")
			agg = r.b.InsertValue(agg, success, 1, "agg1")
			u.SetOperand(0, agg)
		}
	}
	r.pending.add(cx)
	r.log.V(1).Info("lowered cmpxchg", "builtin", builtin.Name(), "users", len(users))
	return nil
}

func checkCmpXchgUser(cx, u *ir.Instruction) error {
	switch u.Op {
	case ir.OpExtractValue:
		if len(u.Indices) == 1 && (u.Indices[0] == 0 || u.Indices[0] == 1) {
			return nil
		}
		return errors.Wrapf(ErrUnexpectedPattern, "cmpxchg result used by %s", u)
	case ir.OpStore:
		if u.Operand(0) == cx.ID() && u.Operand(1) != cx.ID() {
			return nil
		}
	}
	return errors.Wrapf(ErrUnexpectedPattern, "cmpxchg result used by %s", u)
}
