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
	"fmt"

	"github.com/htfabric/htinit/pkg/private/serrors"
)

// Address is a configuration space address packed as
//
//	[31:28] segment, [27:20] bus, [19:15] device, [14:12] function, [11:0] offset
type Address uint32

// Illegal is returned where no address exists.
const Illegal Address = 0xFFFFFFFF

// MakeAddress packs a configuration space address. Out of range components
// are a programming error and panic.
func MakeAddress(seg, bus, dev, fn, off uint32) Address {
	if seg > 0xF || bus > 0xFF || dev > 0x1F || fn > 0x7 || off > 0xFFF {
		panic(serrors.New("malformed config address",
			"seg", seg, "bus", bus, "dev", dev, "fn", fn, "off", off))
	}
	return Address(seg<<28 | bus<<20 | dev<<15 | fn<<12 | off)
}

func (a Address) Segment() uint32  { return uint32(a) >> 28 }
func (a Address) Bus() uint32      { return (uint32(a) >> 20) & 0xFF }
func (a Address) Device() uint32   { return (uint32(a) >> 15) & 0x1F }
func (a Address) Function() uint32 { return (uint32(a) >> 12) & 0x7 }
func (a Address) Offset() uint32   { return uint32(a) & 0xFFF }

// Base returns the address with the register offset cleared.
func (a Address) Base() Address { return a &^ 0xFFF }

// Add returns a with off added to the register offset.
func (a Address) Add(off uint32) Address {
	if a.Offset()+off > 0xFFF {
		panic(serrors.New("config offset overflow", "addr", a, "add", off))
	}
	return a + Address(off)
}

// WithDevice returns a with the device number replaced.
func (a Address) WithDevice(dev uint32) Address {
	return MakeAddress(a.Segment(), a.Bus(), dev, a.Function(), a.Offset())
}

func (a Address) String() string {
	if a == Illegal {
		return "illegal"
	}
	return fmt.Sprintf("%x:%02x:%02x.%x+%03x",
		a.Segment(), a.Bus(), a.Device(), a.Function(), a.Offset())
}
