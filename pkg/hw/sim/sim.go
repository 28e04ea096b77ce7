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

// Package sim is an in-memory multi-socket fabric implementing hw.Access.
//
// Config requests start at node 0 and travel node to node through the
// routing tables programmed so far, exactly as on hardware: a node whose
// routing is still disabled, or whose table points at itself, answers the
// request. Requests for other buses go through node 0's config map to the
// chain owning the bus. Unconfigured chain devices answer at device 0, one
// at a time from the host outwards.
package sim

import (
	"math/bits"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// A request that bounces around more often than this is dropped.
const maxHops = 2 * ht.MaxNodes

var widthCodes = map[int]uint32{8: 0, 16: 1, 32: 3, 2: 4, 4: 5}

// Sim is a simulated fabric. It is not safe for concurrent use.
type Sim struct {
	nodes []*node
}

var _ hw.Access = (*Sim)(nil)

// New builds the reset state of a fabric. Defaults must have been applied.
func New(f *Fabric) (*Sim, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s := &Sim{}
	for i, n := range f.Nodes {
		s.nodes = append(s.nodes, newNode(i, n))
	}
	for _, l := range f.Links {
		a, b := s.nodes[l.A.Node], s.nodes[l.B.Node]
		a.peers[l.A.Link] = &l.B
		b.peers[l.B.Link] = &l.A
	}
	for _, c := range f.Chains {
		s.nodes[c.Node].chains[c.Link] = newChain(c.Devices)
	}
	for _, n := range s.nodes {
		n.reset()
	}
	return s, nil
}

// MustNew is New for test fixtures.
func MustNew(f Fabric) *Sim {
	f.InitDefaults()
	s, err := New(&f)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sim) Read(a hw.Address) uint32 {
	if n, ok := s.nodeTarget(a); ok {
		if n == nil {
			return hw.NoDevice
		}
		return n.read(a.Function(), a.Offset())
	}
	d := s.device(a)
	if d == nil || a.Function() != 0 {
		return hw.NoDevice
	}
	return d.read(a.Offset())
}

func (s *Sim) Write(a hw.Address, v uint32) {
	if n, ok := s.nodeTarget(a); ok {
		if n != nil {
			n.write(a.Function(), a.Offset(), v)
		}
		return
	}
	if d := s.device(a); d != nil && a.Function() == 0 {
		d.write(a.Offset(), v)
	}
}

// nodeTarget resolves requests for northbridge config space. The second
// return value is false for addresses outside of it.
func (s *Sim) nodeTarget(a hw.Address) (*node, bool) {
	if a.Segment() != 0 || a.Bus() != 0 || a.Device() < htreg.NodeDevBase {
		return nil, false
	}
	return s.reach(int(a.Device() - htreg.NodeDevBase)), true
}

// reach walks a request for target node from node 0 through the routing
// tables. It returns nil if the request is lost.
func (s *Sim) reach(target int) *node {
	cur, in := s.nodes[0], -1
	for hop := 0; hop < maxHops; hop++ {
		if in >= 0 {
			cur.lastIn = in
		}
		if cur.routingDisabled() || cur.nodeID() == target {
			return cur
		}
		req, _, _ := cur.layout.Decode(cur.regs[regKey(htreg.FnHT, htreg.RegRouteBase+4*uint32(target))])
		if req == 0 {
			return nil
		}
		if req&1 != 0 {
			return cur
		}
		link := bits.TrailingZeros32(req) - 1
		peer := cur.peers[link]
		if peer == nil || cur.faults[link] == FaultDead {
			return nil
		}
		cur, in = s.nodes[peer.Node], peer.Link
	}
	return nil
}

// device resolves an I/O config address to a chain device.
func (s *Sim) device(a hw.Address) *device {
	bus := a.Bus()
	boot := s.nodes[0]
	for slot := uint32(0); slot < htreg.CfgMapSlots; slot++ {
		v := boot.regs[regKey(htreg.FnAddrMap, htreg.RegCfgMapBase+4*slot)]
		if hw.Field(v, htreg.CfgMapREBit, htreg.CfgMapREBit) == 0 {
			continue
		}
		base := hw.Field(v, htreg.CfgMapBusBaseHi, htreg.CfgMapBusBaseLo)
		limit := hw.Field(v, htreg.CfgMapBusLimitHi, htreg.CfgMapBusLimitLo)
		if bus < base || bus > limit {
			continue
		}
		if bus != base {
			// Only the secondary bus of a chain is populated.
			return nil
		}
		target := int(hw.Field(v, htreg.CfgMapNodeHi, htreg.CfgMapNodeLo))
		link := int(hw.Field(v, htreg.CfgMapLinkHi, htreg.CfgMapLinkLo))
		n := s.reach(target)
		if n == nil {
			return nil
		}
		return n.chainDevice(link, a.Device())
	}
	if bus == 0 {
		// Compatibility decode: bus 0 reaches the southbridge chain.
		return boot.chainDevice(boot.desc.SouthbridgeLink, a.Device())
	}
	return nil
}

func (s *Sim) node(phys int) *node {
	if phys < 0 || phys >= len(s.nodes) {
		panic(serrors.New("no such node", "node", phys))
	}
	return s.nodes[phys]
}
