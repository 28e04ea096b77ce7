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

// Package northbridge implements the per family register contract of the
// fabric bring-up. New selects the implementation matching the boot node.
package northbridge

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// ErrUnsupported is returned by New if no implementation matches the boot
// node.
var ErrUnsupported = serrors.New("unsupported cpu family")

// ID is the identification key of a node.
type ID struct {
	Family    uint32
	Model     uint32
	Stepping  uint32
	MultiNode bool
}

// ReadID reads the identification key of node.
func ReadID(acc hw.Access, node int) ID {
	cpuid := acc.Read(htreg.NodeAddress(uint32(node), htreg.FnMisc, htreg.RegCPUID))
	caps := acc.Read(htreg.NodeAddress(uint32(node), htreg.FnMisc, htreg.RegNBCaps))
	base := hw.Field(cpuid, htreg.BaseFamilyHi, htreg.BaseFamilyLo)
	model := hw.Field(cpuid, htreg.ModelHi, htreg.ModelLo)
	id := ID{
		Family:    base,
		Model:     model,
		Stepping:  hw.Field(cpuid, htreg.SteppingHi, htreg.SteppingLo),
		MultiNode: hw.Field(caps, htreg.MultiNodeCpuBit, htreg.MultiNodeCpuBit) == 1,
	}
	if base == 0xF {
		id.Family += hw.Field(cpuid, htreg.ExtFamilyHi, htreg.ExtFamilyLo)
		id.Model |= hw.Field(cpuid, htreg.ExtModelHi, htreg.ExtModelLo) << 4
	}
	return id
}

type entry struct {
	name  string
	match func(ID) bool
	build func(hw.Access, ID) ht.Northbridge
}

// Most specific first.
var registry = []entry{
	{
		name:  "fam10-mcm",
		match: func(id ID) bool { return id.Family == 0x10 && id.MultiNode },
		build: func(acc hw.Access, id ID) ht.Northbridge { return newFam10MCM(acc, id) },
	},
	{
		name:  "fam10",
		match: func(id ID) bool { return id.Family == 0x10 },
		build: func(acc hw.Access, id ID) ht.Northbridge { return newFam10(acc, id) },
	},
	{
		name:  "fam0f",
		match: func(id ID) bool { return id.Family == 0x0F },
		build: func(acc hw.Access, id ID) ht.Northbridge { return newFam0F(acc, id) },
	},
}

// New selects the implementation for the boot node. A family without an
// implementation is a porting error and returned as ErrUnsupported.
func New(acc hw.Access) (ht.Northbridge, error) {
	id := ReadID(acc, 0)
	for _, e := range registry {
		if e.match(id) {
			return e.build(acc, id), nil
		}
	}
	return nil, serrors.JoinNoStack(ErrUnsupported, nil, "family", id.Family,
		"model", id.Model, "stepping", id.Stepping)
}

var (
	_ ht.Northbridge = (*fam0F)(nil)
	_ ht.Northbridge = (*fam10)(nil)
	_ ht.Northbridge = (*fam10MCM)(nil)
)
