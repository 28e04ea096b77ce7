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

package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/coherent"
	"github.com/htfabric/htinit/pkg/ht/noncoherent"
	"github.com/htfabric/htinit/pkg/ht/northbridge"
	"github.com/htfabric/htinit/pkg/ht/optimize"
	"github.com/htfabric/htinit/pkg/hw/htreg"
	"github.com/htfabric/htinit/pkg/hw/sim"
	"github.com/htfabric/htinit/pkg/log/testlog"
)

func optimized(t *testing.T, f sim.Fabric, board *ht.Board) (*ht.State, *sim.Sim) {
	s := sim.MustNew(f)
	nb, err := northbridge.New(s)
	require.NoError(t, err)
	st := ht.NewState(s, nb, board, testlog.NewLogger(t))
	coherent.Init(st)
	noncoherent.Enumerate(st)
	optimize.Run(st)
	return st, s
}

// splitLink joins nodes 0 and 1 through both sublinks of link 0.
func splitLink() sim.Fabric {
	return sim.Fabric{
		Nodes: []sim.Node{{}, {}},
		Links: []sim.Link{
			{A: sim.Endpoint{Node: 0, Link: 0}, B: sim.Endpoint{Node: 1, Link: 0}},
			{A: sim.Endpoint{Node: 0, Link: 4}, B: sim.Endpoint{Node: 1, Link: 4}},
		},
	}
}

// ioChain hangs one device off link 1 of a single node.
func ioChain(dev sim.Device) sim.Fabric {
	return sim.Fabric{
		Nodes: []sim.Node{{}},
		Chains: []sim.Chain{{
			Endpoint: sim.Endpoint{Node: 0, Link: 1},
			Devices:  []sim.Device{dev},
		}},
	}
}

func TestRegang(t *testing.T) {
	st, s := optimized(t, splitLink(), nil)

	require.Equal(t, 1, st.Ports.Len())
	lp := st.Ports.Pairs[0]
	for _, p := range []ht.Port{lp.Source, lp.Dest} {
		assert.Equal(t, 0, p.Link)
		assert.True(t, p.SelRegang)
		assert.Equal(t, ht.Width16, p.WidthInCap)
		assert.Equal(t, ht.Width16, p.SelWidthIn)
		assert.Equal(t, ht.Width16, p.SelWidthOut)
	}
	for node := 0; node < 2; node++ {
		l := s.Link(node, 0)
		assert.True(t, l.Ganged)
		assert.Equal(t, ht.Width16, l.WidthIn)
		assert.Equal(t, ht.Width16, l.WidthOut)
		assert.Equal(t, ht.Freq2000, l.Freq)
		assert.True(t, l.Retry, "gen3 frequency")
	}
	assert.Zero(t, s.Reg(0, htreg.FnHT, htreg.RegTrafficDis), "a single link")
}

func TestRegangVeto(t *testing.T) {
	var asked [][4]int
	board := &ht.Board{
		SkipRegang: func(nodeA, linkA, nodeB, linkB int) bool {
			asked = append(asked, [4]int{nodeA, linkA, nodeB, linkB})
			return true
		},
	}
	st, s := optimized(t, splitLink(), board)

	assert.Equal(t, [][4]int{{0, 0, 1, 0}}, asked)
	require.Equal(t, 2, st.Ports.Len())
	for _, lp := range st.Ports.Pairs {
		assert.False(t, lp.Source.SelRegang)
		assert.Equal(t, ht.Width8, lp.Source.SelWidthOut)
	}
	assert.False(t, s.Link(0, 0).Ganged)
	// Two parallel links between two nodes share the traffic.
	assert.EqualValues(t, 0x00110107, s.Reg(0, htreg.FnHT, htreg.RegTrafficDis))
	assert.EqualValues(t, 0x00110007, s.Reg(1, htreg.FnHT, htreg.RegTrafficDis))
}

func TestRegangCrossed(t *testing.T) {
	f := sim.Fabric{
		Nodes: []sim.Node{{}, {}},
		Links: []sim.Link{
			{A: sim.Endpoint{Node: 0, Link: 0}, B: sim.Endpoint{Node: 1, Link: 4}},
			{A: sim.Endpoint{Node: 0, Link: 4}, B: sim.Endpoint{Node: 1, Link: 0}},
		},
	}
	st, s := optimized(t, f, nil)

	require.Equal(t, 2, st.Ports.Len())
	for _, lp := range st.Ports.Pairs {
		assert.False(t, lp.Source.SelRegang)
		assert.False(t, lp.Dest.SelRegang)
		assert.NotEqual(t, ht.IsSublink1(lp.Source.Link), ht.IsSublink1(lp.Dest.Link))
	}
	for node := 0; node < 2; node++ {
		assert.False(t, s.Link(node, 0).Ganged)
	}
}

func TestTrafficDistributionOptOut(t *testing.T) {
	board := &ht.Board{
		SkipRegang:                   func(int, int, int, int) bool { return true },
		CustomizeTrafficDistribution: func() bool { return true },
	}
	_, s := optimized(t, splitLink(), board)
	assert.Zero(t, s.Reg(0, htreg.FnHT, htreg.RegTrafficDis))
}

func TestSublinkRatio(t *testing.T) {
	board := &ht.Board{
		SkipRegang: func(int, int, int, int) bool { return true },
		CPUPairLimits: func(nodeA, linkA, nodeB, linkB int, l *ht.PairLimits) {
			if linkA == 4 {
				l.Freq = ht.FreqMaskUpToMHz(800)
			}
		},
	}
	st, s := optimized(t, splitLink(), board)

	assert.Equal(t, ht.Freq1600, s.Link(0, 0).Freq)
	assert.Equal(t, ht.Freq1600, s.Link(1, 0).Freq)
	assert.Equal(t, ht.Freq800, s.Link(0, 4).Freq)
	for _, lp := range st.Ports.Pairs {
		assert.Equal(t, lp.Source.SelFreq, lp.Dest.SelFreq)
	}
}

func TestLegalRatio(t *testing.T) {
	testCases := []struct {
		a, b  ht.Frequency
		legal bool
	}{
		{ht.Freq2400, ht.Freq1200, true},
		{ht.Freq600, ht.Freq2400, true},
		{ht.Freq2000, ht.Freq1000, true},
		{ht.Freq1600, ht.Freq200, true},
		{ht.Freq1200, ht.Freq200, true},
		{ht.Freq800, ht.Freq400, true},
		{ht.Freq400, ht.Freq200, true},
		{ht.Freq1000, ht.Freq1000, true},
		{ht.Freq2000, ht.Freq800, false},
		{ht.Freq2600, ht.Freq1200, false},
		{ht.Freq1800, ht.Freq200, false},
		{ht.Freq1000, ht.Freq200, false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.legal, optimize.LegalRatio(tc.a, tc.b), "%s/%s", tc.a, tc.b)
	}
}

func TestSelectionLimits(t *testing.T) {
	board := &ht.Board{
		LinkSpeedCeiling: 1000,
		CPUPairLimits: func(nodeA, linkA, nodeB, linkB int, l *ht.PairLimits) {
			l.Down = ht.Width8
		},
	}
	f := sim.Wire(2, [][2]int{{0, 1}})
	st, s := optimized(t, f, board)

	lp := st.Ports.Pairs[0]
	assert.Equal(t, ht.Width8, lp.Source.SelWidthOut)
	assert.Equal(t, ht.Width8, lp.Dest.SelWidthIn)
	assert.Equal(t, ht.Width16, lp.Source.SelWidthIn)
	assert.Equal(t, ht.Width16, lp.Dest.SelWidthOut)
	assert.Equal(t, ht.Freq1000, lp.Source.SelFreq)
	l := s.Link(0, 0)
	assert.Equal(t, ht.Width8, l.WidthOut)
	assert.Equal(t, ht.Width16, l.WidthIn)
	assert.Equal(t, ht.Width8, s.Link(1, 0).WidthIn)
	assert.False(t, l.Retry)
}

func TestNoCommonFrequency(t *testing.T) {
	board := &ht.Board{
		IOChainLimits: func(hostNode, hostLink, depth int, l *ht.PairLimits) {
			l.Freq = 0
		},
	}
	st, s := optimized(t, ioChain(sim.Device{}), board)
	require.Len(t, st.EventsWith(ht.OptNoCommonFrequency), 1)
	assert.Equal(t, ht.ClassWarning, st.EventsWith(ht.OptNoCommonFrequency)[0].Class)
	assert.Equal(t, ht.Freq200, s.Link(0, 1).Freq)
	assert.Equal(t, ht.Freq200, s.Device(0, 1, 0).Freq)
}

func TestIOLink(t *testing.T) {
	var seen []ht.DeviceInfo
	board := &ht.Board{
		DeviceCapOverride: func(dev ht.DeviceInfo, caps *ht.LinkCaps) {
			seen = append(seen, dev)
			caps.WidthIn = ht.Width4
		},
		OverrideCPUPort: func(node, link int, set *ht.PortSetting) {
			set.Freq = ht.Freq800
		},
	}
	st, s := optimized(t, ioChain(sim.Device{WidthIn: 16, WidthOut: 16}), board)

	require.Len(t, seen, 1)
	assert.Equal(t, ht.DeviceInfo{
		HostNode:  0,
		HostLink:  1,
		Depth:     0,
		Address:   htreg.DeviceAddress(0x20, 1),
		VendorDev: 0x74501022,
		Link:      0,
	}, seen[0])

	dev := s.Device(0, 1, 0)
	assert.Equal(t, ht.Width4, dev.WidthIn)
	assert.Equal(t, ht.Width16, dev.WidthOut)
	assert.Equal(t, ht.Freq1000, dev.Freq)
	cpu := s.Link(0, 1)
	assert.Equal(t, ht.Width4, cpu.WidthOut)
	assert.Equal(t, ht.Freq800, cpu.Freq, "board override")
	assert.Empty(t, st.EventsWith(ht.OptRequiredCapRetry))
}

func TestGen3Capabilities(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		st, s := optimized(t, ioChain(sim.Device{MaxFreqMHz: 2600}), nil)
		assert.Equal(t, ht.Freq2000, s.Device(0, 1, 0).Freq)
		assert.Len(t, st.EventsWith(ht.OptRequiredCapRetry), 1)
		assert.Len(t, st.EventsWith(ht.OptRequiredCapGen3), 1)
	})
	t.Run("present", func(t *testing.T) {
		st, s := optimized(t, ioChain(sim.Device{MaxFreqMHz: 2600, Retry: true, Gen3: true}),
			nil)
		assert.True(t, s.Device(0, 1, 0).Retry)
		assert.Empty(t, st.EventsWith(ht.OptRequiredCapRetry))
		assert.Empty(t, st.EventsWith(ht.OptRequiredCapGen3))
	})
}

func TestIsochronous(t *testing.T) {
	fabric := func() sim.Fabric {
		f := sim.Wire(2, [][2]int{{0, 1}})
		f.Nodes[0].Ports = []sim.PortCaps{{Link: 1, Isochronous: true}}
		f.Chains = []sim.Chain{{
			Endpoint: sim.Endpoint{Node: 0, Link: 1},
			Devices:  []sim.Device{{Isochronous: true}},
		}}
		return f
	}
	_, s := optimized(t, fabric(), nil)
	assert.True(t, s.Link(0, 1).Isoc)
	assert.False(t, s.Link(0, 0).Isoc)

	_, s = optimized(t, fabric(), &ht.Board{IOMMU: true})
	assert.True(t, s.Link(0, 1).Isoc)
	assert.True(t, s.Link(0, 0).Isoc, "IOMMU forces every link")
	assert.True(t, s.Link(1, 0).Isoc)
}

func TestBuffers(t *testing.T) {
	board := &ht.Board{CustomizeBuffers: func(node int) bool { return node == 0 }}
	_, s := optimized(t, sim.Wire(2, [][2]int{{0, 1}}), board)
	assert.Zero(t, s.Reg(0, htreg.FnMisc, htreg.RegFreeListBuf))
	assert.NotZero(t, s.Reg(1, htreg.FnMisc, htreg.RegFreeListBuf))
	assert.NotZero(t, s.Reg(1, htreg.FnMisc, htreg.RegSRIBuf))
}
