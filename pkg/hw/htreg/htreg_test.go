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

package htreg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htfabric/htinit/pkg/hw/htreg"
)

var linkOffsets = []uint32{htreg.LinkCtl, htreg.LinkFreq, htreg.LinkFeature, htreg.LinkExtCtl,
	htreg.LinkBusNum, htreg.LinkType, htreg.LinkBuffers}

func TestLinkBlocksDisjoint(t *testing.T) {
	owner := map[uint32]string{
		htreg.RegNodeID:     "node id",
		htreg.RegUnitID:     "unit id",
		htreg.RegLinkTxCtl:  "link tx control",
		htreg.RegLinkInitCt: "link init control",
		htreg.RegTrafficDis: "traffic distribution",
	}
	for target := uint32(0); target < 8; target++ {
		owner[htreg.RegRouteBase+4*target] = "route"
	}
	for link := uint32(0); link < 8; link++ {
		for _, off := range linkOffsets {
			addr := htreg.LinkBlock(link) + off
			prev, taken := owner[addr]
			require.Falsef(t, taken, "link %d offset %#x at %#x overlaps %s", link, off, addr,
				prev)
			owner[addr] = "link"
		}
	}
}

func TestLinkRegister(t *testing.T) {
	for link := uint32(0); link < 8; link++ {
		for _, off := range linkOffsets {
			l, reg, ok := htreg.LinkRegister(htreg.LinkBlock(link) + off)
			require.True(t, ok)
			assert.Equal(t, link, l)
			assert.Equal(t, off, reg)
		}
	}
	for _, off := range []uint32{htreg.RegNodeID, htreg.RegTrafficDis, 0x170} {
		_, _, ok := htreg.LinkRegister(off)
		assert.Falsef(t, ok, "offset %#x", off)
	}
}

func TestLinkAddress(t *testing.T) {
	a := htreg.LinkAddress(1, 7, htreg.LinkCtl)
	assert.Equal(t, htreg.NodeAddress(1, htreg.FnHT, 0x1E4), a)
	assert.NotEqual(t, htreg.NodeAddress(1, htreg.FnHT, htreg.RegTrafficDis), a)
}
