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

	"github.com/ajroetker/go-spirv/ir"
)

// Parameter names of a memset helper.
var memSetParamNames = [...]string{"dest", "val", "len", "isvolatile"}

// lowerMemSet redirects a memset whose value or length is only known at
// run time to a helper implementing it as a byte loop. Memsets with a
// constant value and length are left for the encoder.
func (r *Regularizer) lowerMemSet(call *ir.Instruction) error {
	p := r.prog
	if call.NumOperands() != 5 {
		return errors.Wrapf(ErrUnexpectedPattern, "%s: memset with %d arguments", call, call.NumOperands()-1)
	}
	val, length := call.Arg(1), call.Arg(2)
	if p.IsConstant(val) && p.Kind(length) == ir.ConstValue {
		return nil
	}

	volatile := isVolatileMemSet(p, call)
	suffix := ""
	if volatile {
		suffix = VolatileSuffix
	}
	align := call.Align
	err := r.lowerHelperCall(call, suffix, func(helper *ir.Function) error {
		return r.buildMemSet(helper, align, volatile)
	})
	if err != nil {
		return err
	}
	// A shared helper may only promise the weakest alignment of its callers.
	helper := call.CalledFunction()
	helper.ParamAlign[0] = min(helper.ParamAlign[0], align)
	return nil
}

func isVolatileMemSet(p *ir.Program, call *ir.Instruction) bool {
	bits, ok := p.ConstBits(call.Arg(3))
	return ok && bits&1 != 0
}

// buildMemSet gives helper an entry block holding a single memset of its
// parameters, then expands that memset into a loop.
func (r *Regularizer) buildMemSet(helper *ir.Function, align uint32, volatile bool) error {
	p := r.prog
	for i, name := range memSetParamNames {
		p.SetNameOf(helper.Arg(i), name)
	}
	helper.ParamAttrs[3] = helper.ParamAttrs[3].With(ir.AttrImmArg)
	helper.ParamAlign[0] = align

	r.b.SetInsertPoint(helper.NewBlock("entry"))
	ms, err := r.b.MemSet(helper.Arg(0), helper.Arg(1), helper.Arg(2), align, volatile)
	if err != nil {
		return err
	}
	r.b.RetVoid()
	return expandMemSetAsLoop(r.b, ms)
}

// expandMemSetAsLoop replaces the memset call ms by
//
//	      br (len == 0), split, loadstoreloop
//	loadstoreloop:
//	      index = phi [0, pred], [next, loadstoreloop]
//	      store val, gep(dest, index)
//	      next = index + 1
//	      br (next <u len), loadstoreloop, split
//	split:
//	      <instructions that followed ms>
//
// The store keeps the memset's volatility. At a one-byte stride only
// align 1 holds for every index, whatever dest's alignment.
func expandMemSetAsLoop(b *ir.Builder, ms *ir.Instruction) error {
	p := b.Program()
	pred := ms.Block()
	if pred == nil {
		return errors.AssertionFailedf("memset is not in a block")
	}
	dest, val, length := ms.Arg(0), ms.Arg(1), ms.Arg(2)
	volatile := isVolatileMemSet(p, ms)
	lenT := p.TypeOf(length)

	split := ir.SplitBlock(pred, ms, "split")
	if err := p.EraseInstruction(pred.Terminator()); err != nil {
		return err
	}
	loop := pred.Parent().NewBlockBefore("loadstoreloop", split)

	zero := p.ConstInt(lenT, 0)
	b.SetInsertPoint(pred)
	b.CondBr(b.ICmp(ir.PredEQ, length, zero, ""), split, loop)

	b.SetInsertPoint(loop)
	index := b.Phi(lenT, "")
	index.AddIncoming(zero, pred)
	addr := b.GEP(p.Types.Int(8), dest, index.ID(), "")
	b.Store(val, addr, 1, volatile)
	next := b.Add(index.ID(), p.ConstInt(lenT, 1), "")
	index.AddIncoming(next, loop)
	b.CondBr(b.ICmp(ir.PredULT, next, length, ""), loop, split)

	return p.EraseInstruction(ms)
}
