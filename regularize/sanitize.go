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

import "github.com/ajroetker/go-spirv/ir"

// UnsupportedMetadata lists the metadata kinds SPIR-V has no place for.
var UnsupportedMetadata = []string{"fpmath", "tbaa", "range"}

// sanitize removes the optimizer hints SPIR-V cannot carry: the tail
// marker of every call, nounwind on intrinsic calls, exact on divisions and
// right shifts, and UnsupportedMetadata. Everything else is left alone.
func sanitize(inst *ir.Instruction) {
	if inst.Op == ir.OpCall {
		inst.SetFlag(ir.FlagTail, false)
		if f := inst.CalledFunction(); f != nil && f.IsIntrinsic() {
			inst.Attrs = inst.Attrs.Without(ir.AttrNoUnwind)
		}
	}
	if inst.Op.PossiblyExact() {
		inst.SetFlag(ir.FlagExact, false)
	}
	for _, kind := range UnsupportedMetadata {
		inst.DropMetadata(kind)
	}
}
