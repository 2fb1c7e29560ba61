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

func (r *Regularizer) lowerUMulWithOverflow(call *ir.Instruction) error {
	return r.lowerHelperCall(call, "", r.buildUMulWithOverflow)
}

// buildUMulWithOverflow emits umul.with.overflow(a, b):
//
//	mul = a * b
//	nz = a != 0
//	q = mul udiv select(nz, a, 1)
//	ret { mul, nz and q != b }
//
// A wrapped product divided by a is always below b, so q != b exactly
// when the product overflowed. The select keeps the divisor non-zero.
func (r *Regularizer) buildUMulWithOverflow(helper *ir.Function) error {
	p := r.prog
	rt := helper.ReturnType()
	if rt.Kind != ir.StructKind || len(rt.Fields) != 2 || len(helper.Args()) != 2 {
		return errors.Wrapf(ErrUnexpectedPattern, "umul.with.overflow with signature %s", helper.Signature())
	}
	t := rt.Fields[0]
	a, b := helper.Arg(0), helper.Arg(1)

	r.b.SetInsertPoint(helper.NewBlock("entry"))
	mul := r.b.Mul(a, b, "")
	nonZero := r.b.ICmp(ir.PredNE, a, p.ConstInt(t, 0), "")
	divisor := r.b.Select(nonZero, a, p.ConstInt(t, 1), "")
	quot := r.b.UDiv(mul, divisor, "")
	differs := r.b.ICmp(ir.PredNE, quot, b, "")
	overflow := r.b.And(nonZero, differs, "")
	agg := r.b.InsertValue(p.Undef(rt), mul, 0, "")
	r.b.Ret(r.b.InsertValue(agg, overflow, 1, ""))
	return nil
}
