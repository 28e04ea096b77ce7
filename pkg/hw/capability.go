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

package hw

import (
	"github.com/htfabric/htinit/pkg/private/serrors"
)

const (
	// RegCommandStatus holds the status word in [31:16].
	RegCommandStatus = 0x04
	// RegCapPointer holds the first capability offset in [7:0].
	RegCapPointer = 0x34

	statusCapList = 20

	// CapHyperTransport is the PCI capability id of HyperTransport blocks.
	CapHyperTransport = 0x08

	// A 256 byte header holds at most 48 dword aligned capabilities after
	// the standard 64 byte header.
	maxCapabilities = 48
)

// NextCapability walks the capability list of the device at cursor. Passing an
// address with a zero offset returns the first capability; passing the
// address of a capability returns the one following it. The second return
// value is false at the end of the list or if no device answers.
//
// A list that does not terminate within the architectural bound is treated
// like a hardware hang and panics.
func NextCapability(acc Access, cursor Address) (Address, bool) {
	base := cursor.Base()
	var next uint32
	if cursor.Offset() == 0 {
		if acc.Read(base) == NoDevice {
			return Illegal, false
		}
		if ReadBits(acc, base.Add(RegCommandStatus), statusCapList, statusCapList) == 0 {
			return Illegal, false
		}
		next = ReadBits(acc, base.Add(RegCapPointer), 7, 0)
	} else {
		next = ReadBits(acc, cursor, 15, 8)
	}
	next &^= 3
	if next == 0 {
		return Illegal, false
	}
	return base.Add(next), true
}

// FindCapability returns the first capability of the device at a for which
// match returns true, given the capability's first register.
func FindCapability(acc Access, a Address, match func(header uint32) bool) (Address, bool) {
	cur := a.Base()
	for i := 0; i < maxCapabilities; i++ {
		var ok bool
		if cur, ok = NextCapability(acc, cur); !ok {
			return Illegal, false
		}
		if match(acc.Read(cur)) {
			return cur, true
		}
	}
	panic(serrors.New("capability list does not terminate", "device", a.Base()))
}

// IsHTSlaveCapability reports whether a capability header is a HyperTransport
// slave/primary interface block.
func IsHTSlaveCapability(header uint32) bool {
	return header&0xE00000FF == CapHyperTransport
}

// IsHTHostCapability reports whether a capability header is a HyperTransport
// host/secondary interface block.
func IsHTHostCapability(header uint32) bool {
	return header&0xE00000FF == 0x20000000|CapHyperTransport
}
