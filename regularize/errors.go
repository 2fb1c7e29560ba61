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

import "github.com/cockroachdb/errors"

var (
	// ErrUnexpectedPattern reports a construct the rewriters do not know
	// how to consume, e.g. a cmpxchg result used by something other than
	// an extractvalue or a store.
	ErrUnexpectedPattern = errors.New("unexpected pattern")

	// ErrMissingCallee reports a lowering applied to a call with no
	// resolvable callee function.
	ErrMissingCallee = errors.New("call has no callee function")

	// ErrDanglingUse reports an instruction scheduled for deletion that
	// still has users at deletion time.
	ErrDanglingUse = errors.New("instruction scheduled for deletion still has users")
)
