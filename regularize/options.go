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
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

// DefaultSaveFile is the file name of the debug dump when no path is set.
// It is placed in the OS temporary directory.
const DefaultSaveFile = "regularized.txtar"

// Options are the user-tunable settings of a Regularizer.
type Options struct {
	// SaveRegularized writes the regularized program to SavePath after a
	// successful run.
	SaveRegularized bool `yaml:"save_regularized"`

	// SavePath is the dump location; empty means DefaultSaveFile in the
	// OS temporary directory.
	SavePath string `yaml:"save_path"`
}

// savePath returns the effective dump location.
func (o Options) savePath() string {
	if o.SavePath != "" {
		return o.SavePath
	}
	return filepath.Join(os.TempDir(), DefaultSaveFile)
}

// LoadOptions decodes Options from a YAML document. Unknown keys are an
// error; an empty document yields the zero Options.
func LoadOptions(r io.Reader) (Options, error) {
	var o Options
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, errors.Wrap(err, "decoding regularizer options")
	}
	return o, nil
}

// Option configures a Regularizer.
type Option func(*Regularizer)

// WithOptions replaces all Options at once, e.g. with the result of
// LoadOptions.
func WithOptions(o Options) Option {
	return func(r *Regularizer) {
		r.opts = o
	}
}

// WithSaveRegularized turns the debug dump on or off.
func WithSaveRegularized(on bool) Option {
	return func(r *Regularizer) {
		r.opts.SaveRegularized = on
	}
}

// WithSavePath sets the debug dump location.
func WithSavePath(path string) Option {
	return func(r *Regularizer) {
		r.opts.SavePath = path
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(r *Regularizer) {
		r.log = log
	}
}
