// Copyright 2026 The htinit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hw defines the register access contract the bring-up engine is
// built on, and small helpers for bit-field access, capability list walks
// and bounded polling.
package hw

import (
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// NoDevice is what a read of an absent device returns.
const NoDevice uint32 = 0xFFFFFFFF

// Access reads and writes 32-bit configuration registers.
type Access interface {
	Read(a Address) uint32
	Write(a Address, v uint32)
}

func mask(hi, lo uint) uint32 {
	if hi < lo || hi > 31 {
		panic(serrors.New("invalid bit range", "hi", hi, "lo", lo))
	}
	return uint32((uint64(1)<<(hi-lo+1) - 1) << lo)
}

// ReadBits returns bits [hi:lo] of the register at a, right aligned.
func ReadBits(acc Access, a Address, hi, lo uint) uint32 {
	return (acc.Read(a) & mask(hi, lo)) >> lo
}

// WriteBits replaces bits [hi:lo] of the register at a with v. Bits of v
// above the field width are dropped.
func WriteBits(acc Access, a Address, hi, lo uint, v uint32) {
	m := mask(hi, lo)
	old := acc.Read(a)
	acc.Write(a, old&^m|(v<<lo)&m)
}

// Field extracts bits [hi:lo] from an already read value.
func Field(v uint32, hi, lo uint) uint32 {
	return (v & mask(hi, lo)) >> lo
}

// SetField returns v with bits [hi:lo] replaced by f.
func SetField(v uint32, hi, lo uint, f uint32) uint32 {
	m := mask(hi, lo)
	return v&^m | (f<<lo)&m
}

// Present reports whether a device answers at a.
func Present(acc Access, a Address) bool {
	return acc.Read(a.Base()) != NoDevice
}
