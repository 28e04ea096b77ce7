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

package northbridge

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

// fam10RevC is the first model able to run the full HT3 frequency range.
const fam10RevC = 4

var fam10Buffers = [2][2]bufferSet{
	// single node
	{{freeList: 0x11113A44, sri: 0x00002A11}, {freeList: 0x11113A24, sri: 0x00002A31}},
	// multi node
	{{freeList: 0x0E113A44, sri: 0x04002A11}, {freeList: 0x0E113A24, sri: 0x04002A31}},
}

var fam10Family = family{
	name:        "fam10",
	maxNodes:    ht.MaxNodes,
	maxLinks:    ht.MaxLinks,
	route:       htreg.RouteLayout9,
	defLinkSub:  true,
	coreCountHi: htreg.CoreCntHi,
	sbLinkHi:    htreg.SbLinkHi,
	mpCap:       [4]int{1, 2, 4, 8},
	ceiling: func(id ID) ht.Frequency {
		if id.Model < fam10RevC {
			return ht.Freq2000
		}
		return ht.Freq2600
	},
	isochronous: true,
	ht3:         true,
	canStop:     true,
	traffic:     true,
	buffers:     &fam10Buffers,
}

// fam10 is the four link family whose links split into two sublinks.
type fam10 struct {
	base
}

func newFam10(acc hw.Access, id ID) *fam10 {
	return &fam10{base: base{acc: acc, id: id, fam: &fam10Family}}
}

var fam10MCMFamily = func() family {
	f := fam10Family
	f.name = "fam10-mcm"
	return f
}()

// fam10MCM is a package of two fam10 dies joined by an internal link. The
// internal link must be discovered first so both dies get adjacent node ids.
type fam10MCM struct {
	fam10
}

func newFam10MCM(acc hw.Access, id ID) *fam10MCM {
	return &fam10MCM{fam10: fam10{base: base{acc: acc, id: id, fam: &fam10MCMFamily}}}
}

func (m *fam10MCM) internalLink(node int) int {
	return int(hw.ReadBits(m.acc, m.nodeReg(node, htreg.FnMisc, htreg.RegNBCaps),
		htreg.InternalLinkHi, htreg.InternalLinkLo))
}

func (m *fam10MCM) LinkScanOrder(node int) []int {
	internal := m.internalLink(node)
	order := []int{internal}
	for l := 0; l < m.fam.maxLinks; l++ {
		if l != internal {
			order = append(order, l)
		}
	}
	return order
}

// HandleSpecialLink consumes sublink 1 of the internal link while the
// hardware runs it ganged; it carries no separate traffic.
func (m *fam10MCM) HandleSpecialLink(node, link int, _ *ht.State) bool {
	internal := m.internalLink(node)
	if link != internal+4 {
		return false
	}
	return hw.ReadBits(m.acc, m.linkReg(node, internal, htreg.LinkExtCtl),
		htreg.ExtGangedBit, htreg.ExtGangedBit) == 1
}
