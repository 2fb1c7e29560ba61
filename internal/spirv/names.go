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

package spirv

import (
	"strconv"
	"strings"
)

const (
	// BuiltinPrefix starts every SPIR-V builtin function name.
	BuiltinPrefix = "__spirv_"

	// BuiltinPostfix ends a decorated builtin function name.
	BuiltinPostfix = "__"
)

// Decorate returns the builtin function name for an opcode name,
// e.g. "EnqueueKernel" -> "__spirv_EnqueueKernel__".
func Decorate(name string) string {
	return BuiltinPrefix + name + BuiltinPostfix
}

// BuiltinName returns the undecorated builtin name of op,
// e.g. "__spirv_AtomicCompareExchange".
func BuiltinName(op Op) string {
	return BuiltinPrefix + op.Name()
}

// Undecorate extracts the opcode name from a builtin function name. It
// accepts plain ("__spirv_EnqueueKernel"), decorated
// ("__spirv_EnqueueKernel__"), overloaded ("__spirv_AtomicLoad.i32") and
// Itanium-mangled ("_Z21__spirv_EnqueueKernelPv...") spellings.
func Undecorate(name string) (string, bool) {
	name = demangleIdentifier(name)
	if !strings.HasPrefix(name, BuiltinPrefix) {
		return "", false
	}
	inner := strings.TrimPrefix(name, BuiltinPrefix)
	if i := strings.IndexByte(inner, '.'); i >= 0 {
		inner = inner[:i]
	}
	inner = strings.TrimSuffix(inner, BuiltinPostfix)
	if inner == "" {
		return "", false
	}
	return inner, true
}

// FuncOpcode returns the opcode a builtin function name refers to, or
// OpNop if the name is not a known builtin.
func FuncOpcode(name string) Op {
	inner, ok := Undecorate(name)
	if !ok {
		return OpNop
	}
	return LookupOp(inner)
}

// demangleIdentifier returns the source identifier of an Itanium-mangled
// free function name ("_Z<len><identifier><params>"), or name unchanged.
func demangleIdentifier(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}
	rest := name[2:]
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return name
	}
	n, err := strconv.Atoi(rest[:digits])
	if err != nil || digits+n > len(rest) {
		return name
	}
	return rest[digits : digits+n]
}
