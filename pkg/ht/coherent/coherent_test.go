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

package coherent_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/coherent"
	"github.com/htfabric/htinit/pkg/ht/northbridge"
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
	"github.com/htfabric/htinit/pkg/hw/sim"
	"github.com/htfabric/htinit/pkg/log/testlog"
)

type fixture struct {
	sim *sim.Sim
	rec *sim.Recorder
	st  *ht.State
}

func newFixture(t *testing.T, f sim.Fabric, board *ht.Board) fixture {
	s := sim.MustNew(f)
	rec := &sim.Recorder{Access: s}
	nb, err := northbridge.New(rec)
	require.NoError(t, err)
	return fixture{sim: s, rec: rec, st: ht.NewState(rec, nb, board, testlog.NewLogger(t))}
}

func isRouteReg(a hw.Address) bool {
	return a.Device() >= htreg.NodeDevBase && a.Function() == htreg.FnHT &&
		a.Offset() >= htreg.RegRouteBase && a.Offset() < htreg.RegRouteBase+4*ht.MaxNodes
}

var selfEntry = sim.RouteEntry{Req: ht.Self, Rsp: ht.Self, Broadcast: []int{ht.Self}}

func assertSelfRouted(t *testing.T, s *sim.Sim) {
	t.Helper()
	for p := 0; p < s.Nodes(); p++ {
		for target := 0; target < ht.MaxNodes; target++ {
			assert.Equal(t, selfEntry, s.Route(p, target), "node %d target %d", p, target)
		}
	}
}

// assertRouted checks that requests, responses and broadcasts between all
// nodes arrive.
func assertRouted(t *testing.T, s *sim.Sim, nodes int) {
	t.Helper()
	for p := 0; p < s.Nodes(); p++ {
		id := s.NodeID(p)
		assert.True(t, s.RoutingEnabled(p))
		assert.Equal(t, ht.Self, s.Route(p, id).Req, "self route of %d", id)
		assert.Equal(t, ht.Self, s.Route(p, id).Rsp, "self route of %d", id)
		for target := 0; target < nodes; target++ {
			path, ok := s.Trace(p, target, false)
			assert.True(t, ok, "request %d->%d: %v", id, target, path)
			path, ok = s.Trace(p, target, true)
			assert.True(t, ok, "response %d->%d: %v", id, target, path)
		}
		reach := s.BroadcastReach(p)
		for q, n := range reach {
			assert.Equal(t, 1, n, "broadcast from %d delivered %d times at %d", id, n, q)
		}
	}
}

func TestScenarioTwoSockets(t *testing.T) {
	f := sim.Fabric{
		Nodes: []sim.Node{{Cores: 2}, {Cores: 2}},
		Links: []sim.Link{{A: sim.Endpoint{Node: 0, Link: 0}, B: sim.Endpoint{Node: 1, Link: 1}}},
	}
	fx := newFixture(t, f, nil)
	coherent.Init(fx.st)

	st := fx.st
	assert.Equal(t, 2, st.NodeCount())
	assert.Equal(t, [][2]int{{0, 1}}, st.Graph.Edges())
	require.NotNil(t, st.Topology)
	assert.Equal(t, "dual", st.Topology.Name)
	require.Equal(t, 1, st.Ports.Len())
	assert.Equal(t, ht.Port{Type: ht.PortCPU, NodeID: 1, Link: 1}, st.Ports.Pairs[0].Dest)

	s := fx.sim
	assert.Equal(t, sim.RouteEntry{Req: 0, Rsp: 0, Broadcast: []int{ht.Self}}, s.Route(0, 1))
	assert.Equal(t, sim.RouteEntry{Req: 1, Rsp: 1, Broadcast: []int{ht.Self}}, s.Route(1, 0))
	assert.Equal(t, sim.RouteEntry{Req: ht.Self, Rsp: ht.Self, Broadcast: []int{ht.Self, 0}},
		s.Route(0, 0))
	assert.Equal(t, sim.RouteEntry{Req: ht.Self, Rsp: ht.Self}, s.Route(0, 2),
		"first unused slot is cleared")
	assert.Equal(t, selfEntry, s.Route(0, 3), "slots past it keep the reset value")
	assertRouted(t, s, 2)

	for p := 0; p < 2; p++ {
		nodes, cores := s.Totals(p)
		assert.Equal(t, 2, nodes)
		assert.Equal(t, 4, cores)
		assert.True(t, s.ConfigLimited(p))
	}
	assert.Len(t, st.EventsWith(ht.CohNodeDiscovered), 1)
}

// TestLibrary discovers a fabric wired like every reference topology, with
// the physical nodes shuffled, and checks the result routes.
func TestLibrary(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, ref := range topology.Default() {
		ref := ref
		t.Run(ref.Name, func(t *testing.T) {
			g := ref.Decode()
			// Keep the boot node, shuffle the rest.
			phys := rnd.Perm(ref.Nodes)
			for i, p := range phys {
				if p == 0 {
					phys[0], phys[i] = phys[i], phys[0]
				}
			}
			var edges [][2]int
			for _, e := range g.Edges() {
				edges = append(edges, [2]int{phys[e[0]], phys[e[1]]})
			}
			fx := newFixture(t, sim.Wire(ref.Nodes, edges), nil)
			coherent.Init(fx.st)

			st := fx.st
			require.Equal(t, ref.Nodes, st.NodeCount())
			require.NotNil(t, st.Topology)
			assert.Empty(t, st.EventsWith(ht.CohNoTopology))

			match := st.Topology.Decode()
			for j := 0; j < ref.Nodes; j++ {
				assert.Equal(t, j, st.ReversePerm[st.Perm[j]])
				for k := 0; k < ref.Nodes; k++ {
					assert.Equal(t, st.Graph.Matrix[j][k],
						match.Matrix[st.Perm[j]][st.Perm[k]], "edge %d-%d", j, k)
				}
			}
			assertRouted(t, fx.sim, ref.Nodes)
		})
	}
}

func TestParallelLinks(t *testing.T) {
	f := sim.Fabric{
		Nodes: []sim.Node{{}, {}},
		Links: []sim.Link{
			{A: sim.Endpoint{Node: 0, Link: 0}, B: sim.Endpoint{Node: 1, Link: 0}},
			{A: sim.Endpoint{Node: 0, Link: 4}, B: sim.Endpoint{Node: 1, Link: 4}},
		},
	}
	fx := newFixture(t, f, nil)
	coherent.Init(fx.st)
	assert.Equal(t, 2, fx.st.Ports.Len())
	assert.Equal(t, 1, fx.st.Graph.Degree[0])
	assert.Equal(t, "dual", fx.st.Topology.Name)
	assert.Equal(t, 0, fx.sim.Route(0, 1).Req)
	assert.Len(t, fx.st.EventsWith(ht.CohNodeDiscovered), 1)
}

func TestNoTopology(t *testing.T) {
	board := &ht.Board{Topologies: []topology.Reference{
		topology.MustBuild("single", 1, nil),
		topology.MustBuild("dual", 2, [][2]int{{0, 1}}),
	}}
	fx := newFixture(t, sim.Wire(3, [][2]int{{0, 1}, {1, 2}, {2, 0}}), board)
	st := fx.st

	coherent.Discover(st)
	require.Equal(t, 3, st.NodeCount())
	assert.False(t, coherent.Match(st))

	fx.rec.Reset()
	coherent.Route(st)
	for _, w := range fx.rec.Matching(isRouteReg) {
		req, rsp, _ := htreg.RouteLayout9.Decode(w.Value)
		assert.Equal(t, uint32(1), req, "non-self route written to %s", w.Addr)
		assert.Equal(t, uint32(1), rsp, "non-self route written to %s", w.Addr)
	}
	assert.Len(t, st.EventsWith(ht.CohNoTopology), 1)
	assert.Zero(t, st.NodesDiscovered)
	assert.Zero(t, st.Ports.Len())
	assert.Nil(t, st.Topology)
	assertSelfRouted(t, fx.sim)
	assert.True(t, fx.sim.RoutingEnabled(0))
}

func TestRouteIdempotent(t *testing.T) {
	fx := newFixture(t, sim.Wire(4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}), nil)
	coherent.Init(fx.st)
	require.Equal(t, "square", fx.st.Topology.Name)

	fx.rec.Reset()
	coherent.Route(fx.st)
	first := fx.rec.Matching(isRouteReg)
	require.NotEmpty(t, first)
	fx.rec.Reset()
	coherent.Route(fx.st)
	assert.Empty(t, cmp.Diff(first, fx.rec.Matching(isRouteReg)))
}

func TestLinkExceed(t *testing.T) {
	// A fully connected fabric of four has six links.
	edges := [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	fx := newFixture(t, sim.Wire(4, edges), &ht.Board{MaxLinkPairs: 4})
	st := fx.st

	coherent.Discover(st)
	require.Len(t, st.EventsWith(ht.CohLinkExceed), 1)
	e := st.EventsWith(ht.CohLinkExceed)[0]
	assert.Equal(t, ht.ClassError, e.Class)
	v, _ := e.Value("max_links")
	assert.Equal(t, 4, v)
	assert.Zero(t, st.NodesDiscovered)
	assert.Zero(t, st.Ports.Len())
	assertSelfRouted(t, fx.sim)

	coherent.Match(st)
	coherent.Route(st)
	coherent.Finalize(st)
	assert.Equal(t, "single", st.Topology.Name)
	nodes, _ := fx.sim.Totals(0)
	assert.Equal(t, 1, nodes)
}

func TestFamilyFeud(t *testing.T) {
	f := sim.Wire(3, [][2]int{{0, 1}, {1, 2}})
	f.Nodes[2].Family = 0x0F
	fx := newFixture(t, f, nil)
	st := fx.st

	coherent.Discover(st)
	require.Len(t, st.EventsWith(ht.CohFamilyFeud), 1)
	assert.Zero(t, st.NodesDiscovered)
	assert.Zero(t, st.Ports.Len())
	assert.True(t, fx.sim.Link(0, 0).Stopped)
	assertSelfRouted(t, fx.sim)
}

func TestMPCapMismatch(t *testing.T) {
	f := sim.Wire(3, [][2]int{{0, 1}, {1, 2}})
	f.Nodes[1].MPCap = 2
	fx := newFixture(t, f, nil)
	st := fx.st

	coherent.Discover(st)
	events := st.EventsWith(ht.CohMPCapMismatch)
	require.Len(t, events, 1)
	v, _ := events[0].Value("sys_mp_cap")
	assert.Equal(t, 2, v)
	assert.Zero(t, st.NodesDiscovered)
	assert.False(t, fx.sim.Link(0, 0).Stopped)
	assertSelfRouted(t, fx.sim)
}

func TestIgnoredAndFailedLinks(t *testing.T) {
	f := sim.Wire(3, [][2]int{{0, 1}, {0, 2}})
	f.Nodes[0].Ports = []sim.PortCaps{{Link: 1, Fault: sim.FaultCRC}}
	fx := newFixture(t, f, &ht.Board{
		IgnoreLink: func(node, link int) bool { return node == 0 && link == 0 },
	})
	coherent.Discover(fx.st)
	assert.Zero(t, fx.st.NodesDiscovered)
	require.Len(t, fx.st.EventsWith(ht.HWHTCRC), 1)
	assert.Equal(t, ht.ClassHWFault, fx.st.EventsWith(ht.HWHTCRC)[0].Class)
}

func TestInternalLinkFirst(t *testing.T) {
	// Two dual die packages: dies 0/1 and 2/3 share internal link 3, the
	// packages are joined by link 0.
	f := sim.Fabric{
		Nodes: make([]sim.Node, 4),
		Links: []sim.Link{
			{A: sim.Endpoint{Node: 0, Link: 0}, B: sim.Endpoint{Node: 2, Link: 0}},
			{A: sim.Endpoint{Node: 0, Link: 3}, B: sim.Endpoint{Node: 1, Link: 3}},
			{A: sim.Endpoint{Node: 2, Link: 3}, B: sim.Endpoint{Node: 3, Link: 3}},
			{A: sim.Endpoint{Node: 1, Link: 0}, B: sim.Endpoint{Node: 3, Link: 0}},
		},
	}
	for i := range f.Nodes {
		f.Nodes[i].MultiNode = true
		f.Nodes[i].InternalLink = 3
	}
	fx := newFixture(t, f, nil)
	require.Equal(t, "fam10-mcm", fx.st.NB.Name())
	coherent.Init(fx.st)
	assert.Equal(t, 1, fx.sim.NodeID(1), "sibling die numbered first")
	assert.Equal(t, "square", fx.st.Topology.Name)
	assertRouted(t, fx.sim, 4)
}

func TestIsomorphism(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for _, ref := range topology.Default() {
		g := ref.Decode()
		for round := 0; round < 5; round++ {
			relabel := rnd.Perm(ref.Nodes)
			var sys topology.Graph
			sys.Reset(ref.Nodes)
			for _, e := range g.Edges() {
				sys.Connect(relabel[e[0]], relabel[e[1]])
			}
			perm, ok := coherent.Isomorphism(&sys, &g)
			require.True(t, ok, ref.Name)
			for j := 0; j < ref.Nodes; j++ {
				for k := 0; k < ref.Nodes; k++ {
					require.Equal(t, sys.Matrix[j][k], g.Matrix[perm[j]][perm[k]], ref.Name)
				}
			}
		}
	}

	decode := func(name string, nodes int, edges [][2]int) topology.Graph {
		r := topology.MustBuild(name, nodes, edges)
		return r.Decode()
	}
	line := decode("line4", 4, [][2]int{{0, 1}, {1, 2}, {2, 3}})
	star := decode("star4", 4, [][2]int{{0, 1}, {0, 2}, {0, 3}})
	_, ok := coherent.Isomorphism(&line, &star)
	assert.False(t, ok)

	dual := decode("dual", 2, [][2]int{{0, 1}})
	assert.Panics(t, func() { coherent.Isomorphism(&line, &dual) })
}

func TestMatchInconsistentGraph(t *testing.T) {
	fx := newFixture(t, sim.Wire(1, nil), nil)
	fx.st.Graph.Size = 3
	assert.Panics(t, func() { coherent.Match(fx.st) })
}
