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
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/txtar"

	"github.com/ajroetker/go-spirv/ir"
)

// Archive renders p as a txtar archive with one "<function>.ll" file per
// function, in program order.
func Archive(p *ir.Program) (*txtar.Archive, error) {
	ar := &txtar.Archive{Comment: []byte("regularized program\n")}
	for _, f := range p.Functions() {
		var buf bytes.Buffer
		if err := ir.FprintFunction(&buf, f); err != nil {
			return nil, errors.Wrapf(err, "printing %q", f.Name())
		}
		ar.Files = append(ar.Files, txtar.File{Name: f.Name() + ".ll", Data: buf.Bytes()})
	}
	return ar, nil
}

// save writes the debug dump of the regularized program.
func (r *Regularizer) save() error {
	ar, err := Archive(r.prog)
	if err != nil {
		return err
	}
	path := r.opts.savePath()
	if err := os.WriteFile(path, txtar.Format(ar), 0o644); err != nil {
		return errors.Wrapf(err, "saving regularized program")
	}
	r.log.V(1).Info("saved regularized program", "path", path, "functions", len(ar.Files))
	return nil
}
