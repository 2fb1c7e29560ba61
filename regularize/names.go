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
	"strings"

	"github.com/ajroetker/go-spirv/ir"
)

const (
	// LoweredPrefix starts the name of every helper that replaces an
	// intrinsic.
	LoweredPrefix = "spirv."

	// VolatileSuffix is appended to the helper of a volatile memset.
	VolatileSuffix = ".volatile"
)

// LoweredIntrinsicName returns the helper name for an intrinsic, e.g.
// "llvm.fshl.i32" -> "spirv.llvm_fshl_i32".
func LoweredIntrinsicName(intrinsic string) string {
	return LoweredPrefix + strings.ReplaceAll(intrinsic, ".", "_")
}

// IntrinsicFromLoweredName inverts LoweredIntrinsicName, reporting whether
// the helper is the volatile memset variant. The inversion is exact for
// the helpers this package creates, because the memset, fshl and
// umul.with.overflow intrinsic names and their overload suffixes contain no
// underscores; it is not meant for arbitrary intrinsic names.
func IntrinsicFromLoweredName(name string) (intrinsic string, volatile bool, ok bool) {
	rest, found := strings.CutPrefix(name, LoweredPrefix)
	if !found {
		return "", false, false
	}
	rest, volatile = strings.CutSuffix(rest, VolatileSuffix)
	intrinsic = strings.ReplaceAll(rest, "_", ".")
	if !strings.HasPrefix(intrinsic, ir.IntrinsicPrefix) {
		return "", false, false
	}
	return intrinsic, volatile, true
}
