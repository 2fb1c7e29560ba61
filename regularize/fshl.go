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

// lowerHelperCall redirects an intrinsic call to the helper named after
// the intrinsic (plus suffix), building the helper body with build on
// first use.
func (r *Regularizer) lowerHelperCall(call *ir.Instruction, suffix string, build func(*ir.Function) error) error {
	intrinsic, err := calledFunction(call)
	if err != nil {
		return err
	}
	name := LoweredIntrinsicName(intrinsic.Name()) + suffix
	helper, created, err := r.helpers.getOrInsert(name, intrinsic.Signature())
	if err != nil {
		return err
	}
	if helper.IsDeclaration() {
		if err := build(helper); err != nil {
			return errors.Wrapf(err, "building %q", name)
		}
	}
	call.SetCalledFunction(helper)
	r.log.V(1).Info("lowered intrinsic", "intrinsic", intrinsic.Name(), "helper", name, "reused", !created)
	return nil
}

func (r *Regularizer) lowerFshl(call *ir.Instruction) error {
	return r.lowerHelperCall(call, "", r.buildFshl)
}

// buildFshl emits fshl(a, b, s) for integers (or integer vectors) of
// width W:
//
//	r = s urem W
//	ret (a shl r) or ((b lshr 1) lshr (W-1 - r))
//
// Splitting the right shift keeps every shift amount below W, so r = 0
// yields a, with no shift by W. For W = 1 the body is just "ret a".
func (r *Regularizer) buildFshl(helper *ir.Function) error {
	p := r.prog
	t := helper.ReturnType()
	w := t.ScalarBits()
	if w == 0 || len(helper.Args()) != 3 {
		return errors.Wrapf(ErrUnexpectedPattern, "fshl with signature %s", helper.Signature())
	}
	a, b, s := helper.Arg(0), helper.Arg(1), helper.Arg(2)

	r.b.SetInsertPoint(helper.NewBlock("rotate"))
	if w == 1 {
		// s urem 1 is always 0.
		r.b.Ret(a)
		return nil
	}
	rot := r.b.URem(s, p.ConstInt(t, uint64(w)), "")
	left := r.b.Shl(a, rot, "")
	high := r.b.LShr(b, p.ConstInt(t, 1), "")
	amount := r.b.Sub(p.ConstInt(t, uint64(w-1)), rot, "")
	right := r.b.LShr(high, amount, "")
	r.b.Ret(r.b.Or(left, right, ""))
	return nil
}
