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

// Package regularize rewrites an ir.Program so that it only uses
// constructs SPIR-V can represent.
//
// A run, in order:
//
//   - erases functions nobody references (declarations and internal
//     definitions);
//   - redirects calls to SPIR-V builtins that take a function pointer,
//     stripping pointer casts from the function-pointer arguments;
//   - sweeps every defined function, clearing tail markers, nounwind on
//     intrinsic calls, exact flags and fpmath/tbaa/range metadata, replacing
//     llvm.memset (with a runtime value or length), llvm.fshl and
//     llvm.umul.with.overflow by calls to synthesized helpers named
//     "spirv.<intrinsic with dots as underscores>", and replacing cmpxchg
//     by __spirv_AtomicCompareExchange plus an equality test;
//   - erases the declarations the rewrites left without users.
//
// Instructions made dead by a rewrite are erased only after the sweep over
// their function, and only if nothing references them by then.
package regularize

import (
	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/ajroetker/go-spirv/ir"
)

// Regularizer runs the rewrite. A Regularizer may be reused for several
// programs but not concurrently.
type Regularizer struct {
	opts Options
	log  logr.Logger

	prog    *ir.Program
	b       *ir.Builder
	helpers *helperCache
	pending eraseSet
}

// New creates a Regularizer.
func New(opts ...Option) *Regularizer {
	r := &Regularizer{log: logr.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run regularizes p with a new Regularizer.
func Run(p *ir.Program, opts ...Option) error {
	return New(opts...).Run(p)
}

// Options returns the effective options.
func (r *Regularizer) Options() Options { return r.opts }

// Helpers returns the names of the helper functions and builtins the last
// run created or reused, sorted.
func (r *Regularizer) Helpers() []string {
	if r.helpers == nil {
		return nil
	}
	return r.helpers.names()
}

// Run regularizes p in place. It stops at the first error, leaving p
// partially rewritten.
func (r *Regularizer) Run(p *ir.Program) error {
	r.prog = p
	r.b = ir.NewBuilder(p)
	r.helpers = newHelperCache(p)
	r.pending.reset()

	if err := r.eraseUselessFunctions(); err != nil {
		return err
	}
	if err := r.lowerFuncPtrs(); err != nil {
		return err
	}

	for _, f := range p.Functions() {
		if p.Function(f.Name()) != f {
			continue
		}
		if f.IsDeclaration() {
			if !f.HasUses() {
				if err := p.EraseFunction(f); err != nil {
					return err
				}
			}
			continue
		}
		if err := r.regularizeFunction(f); err != nil {
			return errors.Wrapf(err, "regularizing %q", f.Name())
		}
	}

	if err := r.eraseUnusedDeclarations(); err != nil {
		return err
	}
	if r.opts.SaveRegularized {
		if err := r.save(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Regularizer) regularizeFunction(f *ir.Function) error {
	r.log.V(2).Info("regularizing function", "function", f.Name(), "blocks", len(f.Blocks()))
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if err := r.regularizeInstruction(inst); err != nil {
				return err
			}
		}
	}
	return r.pending.flush(r.prog)
}

func (r *Regularizer) regularizeInstruction(inst *ir.Instruction) error {
	sanitize(inst)
	switch inst.Op {
	case ir.OpCall:
		callee := inst.CalledFunction()
		if callee == nil || !callee.IsIntrinsic() {
			return nil
		}
		switch callee.IntrinsicID() {
		case ir.IntrinsicMemSet:
			return r.lowerMemSet(inst)
		case ir.IntrinsicFshl:
			return r.lowerFshl(inst)
		case ir.IntrinsicUMulWithOverflow:
			return r.lowerUMulWithOverflow(inst)
		}
	case ir.OpCmpXchg:
		return r.lowerCmpXchg(inst)
	}
	return nil
}

// eraseUselessFunctions erases unreferenced declarations and internal
// definitions, repeating until erasing one exposes no more.
func (r *Regularizer) eraseUselessFunctions() error {
	for changed := true; changed; {
		changed = false
		for _, f := range r.prog.Functions() {
			if f.HasUses() || !(f.IsDeclaration() || f.Linkage == ir.InternalLinkage) {
				continue
			}
			r.log.V(2).Info("erasing useless function", "function", f.Name())
			if err := r.prog.EraseFunction(f); err != nil {
				return err
			}
			changed = true
		}
	}
	return nil
}

// eraseUnusedDeclarations removes declarations whose last call was
// redirected during the sweep, e.g. the lowered intrinsics.
func (r *Regularizer) eraseUnusedDeclarations() error {
	for _, f := range r.prog.Functions() {
		if !f.IsDeclaration() || f.HasUses() {
			continue
		}
		if err := r.prog.EraseFunction(f); err != nil {
			return err
		}
	}
	return nil
}

// calledFunction returns the callee of an intrinsic call being lowered.
func calledFunction(call *ir.Instruction) (*ir.Function, error) {
	f := call.CalledFunction()
	if f == nil {
		return nil, errors.Wrapf(ErrMissingCallee, "%s", call)
	}
	return f, nil
}
