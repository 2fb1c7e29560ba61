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
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/ajroetker/go-spirv/ir"
)

// helperCache hands out at most one function per canonical name. The
// program's name index is the source of truth, so helpers left by an
// earlier run (or linked in by the caller) are reused too.
type helperCache struct {
	prog *ir.Program

	// used records every name requested during this run.
	used map[string]*ir.Function
}

func newHelperCache(p *ir.Program) *helperCache {
	return &helperCache{prog: p, used: make(map[string]*ir.Function)}
}

// getOrInsert returns the function named name, declaring it with sig if
// absent. The caller populates the body when the result is still a
// declaration.
func (c *helperCache) getOrInsert(name string, sig *ir.Type) (f *ir.Function, created bool, err error) {
	f, created, err = c.prog.GetOrInsertFunction(name, sig)
	if err != nil {
		return nil, false, errors.Wrapf(err, "helper %q", name)
	}
	c.used[name] = f
	return f, created, nil
}

// names returns the requested helper names, sorted.
func (c *helperCache) names() []string {
	names := lo.Keys(c.used)
	slices.Sort(names)
	return names
}

// eraseSet collects instructions proven dead during a function's rewrite.
// They are erased together once the sweep over the function is done.
type eraseSet struct {
	insts []*ir.Instruction
	seen  map[*ir.Instruction]bool
}

func (s *eraseSet) add(inst *ir.Instruction) {
	if s.seen == nil {
		s.seen = make(map[*ir.Instruction]bool)
	}
	if s.seen[inst] {
		return
	}
	s.seen[inst] = true
	s.insts = append(s.insts, inst)
}

// flush erases the set in insertion order. An instruction that still has
// users when its turn comes is an ErrDanglingUse.
func (s *eraseSet) flush(p *ir.Program) error {
	defer s.reset()
	for _, inst := range s.insts {
		if n := p.NumUses(inst.ID()); n > 0 {
			return errors.Wrapf(ErrDanglingUse, "%s has %d users", inst, n)
		}
		if err := p.EraseInstruction(inst); err != nil {
			return err
		}
	}
	return nil
}

func (s *eraseSet) reset() {
	s.insts = nil
	s.seen = nil
}
