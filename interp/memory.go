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

package interp

import (
	"github.com/cockroachdb/errors"

	"github.com/ajroetker/go-spirv/ir"
)

// nullGuard is the number of bytes reserved at address 0, so that no
// allocation ever starts at the null address.
const nullGuard = 16

// allocAlign is the alignment of every allocation.
const allocAlign = 16

// Alloc reserves n zeroed bytes and returns their address.
func (m *Machine) Alloc(n int) uint64 {
	addr := (len(m.mem) + allocAlign - 1) &^ (allocAlign - 1)
	grown := make([]byte, addr+n)
	copy(grown, m.mem)
	m.mem = grown
	return uint64(addr)
}

func (m *Machine) check(addr uint64, n int) error {
	if addr < nullGuard {
		return errors.Wrapf(ErrOutOfBounds, "access of %d bytes at null page address %#x", n, addr)
	}
	if n < 0 || addr+uint64(n) > uint64(len(m.mem)) {
		return errors.Wrapf(ErrOutOfBounds, "access of %d bytes at %#x, memory size %#x", n, addr, len(m.mem))
	}
	return nil
}

// Load reads a little-endian integer of size bytes (at most 8).
func (m *Machine) Load(addr uint64, size int) (uint64, error) {
	if err := m.check(addr, size); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < size && i < 8; i++ {
		v |= uint64(m.mem[addr+uint64(i)]) << (8 * i)
	}
	return v, nil
}

// Store writes the low size bytes of v, little-endian.
func (m *Machine) Store(addr uint64, size int, v uint64) error {
	if err := m.check(addr, size); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		var b byte
		if i < 8 {
			b = byte(v >> (8 * i))
		}
		m.mem[addr+uint64(i)] = b
	}
	return nil
}

// Bytes returns a copy of n bytes at addr.
func (m *Machine) Bytes(addr uint64, n int) ([]byte, error) {
	if err := m.check(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.mem[addr:])
	return out, nil
}

// Fill sets n bytes at addr to b.
func (m *Machine) Fill(addr uint64, b byte, n uint64) error {
	if n == 0 {
		return nil
	}
	if err := m.check(addr, int(n)); err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		m.mem[addr+i] = b
	}
	return nil
}

// loadTyped reads a value of type t.
func (m *Machine) loadTyped(t *ir.Type, addr uint64) (Val, error) {
	switch t.Kind {
	case ir.IntegerKind, ir.PointerKind:
		bits, err := m.Load(addr, t.StoreSize())
		if err != nil {
			return Val{}, err
		}
		if t.Kind == ir.IntegerKind {
			bits &= ir.Mask(t.Bits)
		}
		return Int(bits), nil
	case ir.VectorKind:
		size := t.Elem.StoreSize()
		return lanewise(t, func(i int) (uint64, error) {
			bits, err := m.Load(addr+uint64(i*size), size)
			return bits & ir.Mask(t.Elem.Bits), err
		})
	case ir.StructKind:
		fields := make([]Val, len(t.Fields))
		off := uint64(0)
		for i, ft := range t.Fields {
			f, err := m.loadTyped(ft, addr+off)
			if err != nil {
				return Val{}, err
			}
			fields[i] = f
			off += uint64(ft.StoreSize())
		}
		return Agg(fields...), nil
	}
	return Val{}, errors.Wrapf(ErrUnsupported, "load of %s", t)
}

// storeTyped writes v as a value of type t.
func (m *Machine) storeTyped(t *ir.Type, addr uint64, v Val) error {
	switch t.Kind {
	case ir.IntegerKind, ir.PointerKind:
		return m.Store(addr, t.StoreSize(), v.Bits)
	case ir.VectorKind:
		size := t.Elem.StoreSize()
		for i := 0; i < t.Len; i++ {
			if err := m.Store(addr+uint64(i*size), size, v.Lane(i)); err != nil {
				return err
			}
		}
		return nil
	case ir.StructKind:
		off := uint64(0)
		for i, ft := range t.Fields {
			if err := m.storeTyped(ft, addr+off, v.Fields[i]); err != nil {
				return err
			}
			off += uint64(ft.StoreSize())
		}
		return nil
	}
	return errors.Wrapf(ErrUnsupported, "store of %s", t)
}
