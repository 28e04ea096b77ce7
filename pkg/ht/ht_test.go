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

package ht_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/northbridge"
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/hw/sim"
	"github.com/htfabric/htinit/pkg/log/testlog"
)

func cpuPair(src, srcLink, dst, dstLink int) ht.LinkPair {
	return ht.LinkPair{
		Source: ht.Port{Type: ht.PortCPU, NodeID: src, Link: srcLink},
		Dest:   ht.Port{Type: ht.PortCPU, NodeID: dst, Link: dstLink},
	}
}

func TestPortList(t *testing.T) {
	l := ht.NewPortList(3)
	assert.True(t, l.Append(cpuPair(0, 0, 1, 2)))
	assert.True(t, l.Append(cpuPair(0, 4, 1, 6)))
	assert.True(t, l.Append(ht.LinkPair{
		Source: ht.Port{Type: ht.PortCPU, NodeID: 1, Link: 1},
		Dest:   ht.Port{Type: ht.PortIO, NodeID: 1, HostLink: 1},
	}))
	assert.True(t, l.Full())
	assert.False(t, l.Append(cpuPair(1, 3, 2, 0)))
	assert.Equal(t, 3, l.Len())

	assert.True(t, l.Explored(1, 2))
	assert.False(t, l.Explored(0, 0), "sources are not explored ends")
	assert.False(t, l.Explored(1, 0), "io destinations do not count")

	assert.Equal(t, 0, l.LinkTo(0, 1))
	assert.Equal(t, 2, l.LinkTo(1, 0))
	assert.Panics(t, func() { l.LinkTo(1, 2) })

	l.Remove(0)
	require.Equal(t, 2, l.Len())
	assert.Equal(t, 4, l.Pairs[0].Source.Link)
	assert.Equal(t, 6, l.LinkTo(1, 0))
	assert.False(t, l.Pairs[1].IsCoherent())
	assert.Panics(t, func() { l.Remove(2) })

	l.Reset()
	assert.Zero(t, l.Len())
	assert.Equal(t, 3, l.Capacity)
}

func TestSublinks(t *testing.T) {
	assert.Equal(t, 2, ht.BaseLink(6))
	assert.Equal(t, 3, ht.BaseLink(3))
	assert.True(t, ht.IsSublink1(4))
	assert.False(t, ht.IsSublink1(3))
	p := ht.Port{Type: ht.PortIO, NodeID: 1, HostLink: 2, HostDepth: 3, Link: 1}
	assert.Equal(t, "node1/link2/depth3/side1", p.String())
}

func TestFrequency(t *testing.T) {
	assert.Equal(t, 1600, ht.Freq1600.MHz())
	assert.Equal(t, "2600MHz", ht.Freq2600.String())
	assert.True(t, ht.Freq1200.Gen3())
	assert.False(t, ht.Freq1000.Gen3())
	f, ok := ht.FrequencyFromMHz(1800)
	assert.True(t, ok)
	assert.Equal(t, ht.Freq1800, f)
	_, ok = ht.FrequencyFromMHz(700)
	assert.False(t, ok)
}

func TestFreqMask(t *testing.T) {
	m := ht.FreqMaskUpToMHz(1000)
	assert.Equal(t, ht.FreqMaskUpTo(ht.Freq1000), m)
	assert.Equal(t, ht.FreqMaskAll, ht.FreqMaskUpToMHz(0))
	assert.Equal(t, ht.FreqMaskUpTo(ht.Freq800), ht.FreqMaskUpToMHz(900))

	top, ok := m.Highest()
	assert.True(t, ok)
	assert.Equal(t, ht.Freq1000, top)
	m = m.Without(ht.Freq1000).Without(ht.Freq300)
	top, _ = m.Highest()
	assert.Equal(t, ht.Freq800, top)
	assert.False(t, m.Has(ht.Freq300))
	assert.Equal(t, "{200MHz,400MHz,500MHz,600MHz,800MHz}", m.String())

	_, ok = ht.FreqMask(0).Highest()
	assert.False(t, ok)
}

func TestWidth(t *testing.T) {
	assert.Equal(t, ht.Width4, ht.MinWidth(ht.Width16, ht.Width8, ht.Width4, ht.Width32))
	assert.Equal(t, ht.Width16, ht.MinWidth(ht.Width16))
	assert.True(t, ht.Width2.Valid())
	assert.False(t, ht.Width(12).Valid())
}

func TestBoardDefaults(t *testing.T) {
	var nilBoard *ht.Board
	b := nilBoard.WithDefaults()
	assert.Equal(t, ht.DefaultMaxLinkPairs, b.MaxLinkPairs)
	assert.Equal(t, ht.DefaultAutoBusMax, b.AutoBusMax)
	assert.Equal(t, ht.DefaultAutoBusIncrement, b.AutoBusIncrement)
	assert.Equal(t, len(topology.Default()), len(b.Topologies))
	assert.False(t, b.Ignored(0, 0))

	custom := &ht.Board{
		MaxLinkPairs: 4,
		Topologies:   []topology.Reference{topology.MustBuild("single", 1, nil)},
		IgnoreLink:   func(node, link int) bool { return node == 1 && link == 2 },
	}
	b = custom.WithDefaults()
	assert.Equal(t, 4, b.MaxLinkPairs)
	assert.Len(t, b.Topologies, 1)
	assert.True(t, b.Ignored(1, 2))
	assert.False(t, b.Ignored(2, 1))
	assert.Zero(t, custom.AutoBusMax, "the input board is not modified")
}

func TestStateRaise(t *testing.T) {
	s := sim.MustNew(sim.Fabric{Nodes: []sim.Node{{}}})
	nb, err := northbridge.New(s)
	require.NoError(t, err)

	var hooked, observed []ht.Event
	board := &ht.Board{Event: func(e ht.Event) { hooked = append(hooked, e) }}
	st := ht.NewState(s, nb, board, testlog.NewLogger(t))
	st.OnEvent = func(e ht.Event) { observed = append(observed, e) }

	assert.Equal(t, 1, st.NodeCount())
	assert.Equal(t, ht.MaxNodes, st.SysMPCap)
	assert.Equal(t, 1, st.Graph.Size)

	st.Raise(ht.ClassError, ht.NcohBUIDExceed, "node", 0, "link", 2, "buid", 30)
	st.Raise(ht.ClassInfo, ht.NcohAutoDepth, "depth", 1)

	require.Len(t, st.Events, 2)
	assert.Equal(t, st.Events, hooked)
	assert.Equal(t, st.Events, observed)
	e := st.EventsWith(ht.NcohBUIDExceed)
	require.Len(t, e, 1)
	v, ok := e[0].Value("buid")
	assert.True(t, ok)
	assert.Equal(t, 30, v)
	_, ok = e[0].Value("depth")
	assert.False(t, ok)
	assert.Equal(t, "error ncoh_buid_exceed node=0 link=2 buid=30", e[0].String())
	assert.Empty(t, st.EventsWith(ht.CohNoTopology))
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "hw_fault", ht.ClassHWFault.String())
	assert.Equal(t, "EventClass(9)", ht.EventClass(9).String())
	assert.Equal(t, "opt_no_common_frequency", ht.OptNoCommonFrequency.String())
	assert.Equal(t, "EventCode(0)", ht.EventCode(0).String())
}
