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

package sim

import (
	"math/bits"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

// The accessors below look at register state directly, bypassing routing.
// Nodes are addressed by their position in the description.

// Nodes returns the number of simulated nodes.
func (s *Sim) Nodes() int { return len(s.nodes) }

// Reg returns a raw northbridge register.
func (s *Sim) Reg(phys int, fn, off uint32) uint32 {
	return s.node(phys).read(fn, off)
}

// NodeID returns the node id programmed into a node.
func (s *Sim) NodeID(phys int) int { return s.node(phys).nodeID() }

// RoutingEnabled reports whether a node routes by its tables.
func (s *Sim) RoutingEnabled(phys int) bool { return !s.node(phys).routingDisabled() }

// RouteEntry is a decoded routing table entry. Links are ht.Self for local
// delivery; Broadcast lists ht.Self and links.
type RouteEntry struct {
	Req       int
	Rsp       int
	Broadcast []int
}

func decodeHops(v uint32) []int {
	var r []int
	for v != 0 {
		b := bits.TrailingZeros32(v)
		v &^= 1 << b
		if b == 0 {
			r = append(r, ht.Self)
		} else {
			r = append(r, b-1)
		}
	}
	return r
}

func firstHop(v uint32) int {
	h := decodeHops(v)
	if len(h) == 0 {
		return ht.Self
	}
	return h[0]
}

// Route returns the routing entry of a node for target.
func (s *Sim) Route(phys, target int) RouteEntry {
	n := s.node(phys)
	req, rsp, bc := n.layout.Decode(n.regs[regKey(htreg.FnHT, htreg.RegRouteBase+4*uint32(target))])
	return RouteEntry{Req: firstHop(req), Rsp: firstHop(rsp), Broadcast: decodeHops(bc)}
}

// Totals returns the node and core counts programmed into a node.
func (s *Sim) Totals(phys int) (nodes, cores int) {
	v := s.node(phys).regs[regKey(htreg.FnHT, htreg.RegNodeID)]
	return int(hw.Field(v, htreg.NodeCntHi, htreg.NodeCntLo)) + 1,
		int(hw.Field(v, htreg.CpuCntHi, htreg.CpuCntLo)) + 1
}

// ConfigLimited reports whether a node only accepts local config requests.
func (s *Sim) ConfigLimited(phys int) bool {
	v := s.node(phys).regs[regKey(htreg.FnHT, htreg.RegLinkTxCtl)]
	return hw.Field(v, htreg.LimitCldtCfgBit, htreg.LimitCldtCfgBit) == 1
}

// LinkSetting is the programmed state of a CPU link.
type LinkSetting struct {
	WidthIn  ht.Width
	WidthOut ht.Width
	Freq     ht.Frequency
	Ganged   bool
	Isoc     bool
	Retry    bool
	Stopped  bool
}

var widthOf = map[uint32]ht.Width{0: ht.Width8, 1: ht.Width16, 3: ht.Width32,
	4: ht.Width2, 5: ht.Width4}

// Link returns the programmed state of a CPU link.
func (s *Sim) Link(phys, link int) LinkSetting {
	n := s.node(phys)
	base := htreg.LinkBlock(uint32(link))
	ctl := n.regs[regKey(htreg.FnHT, base+htreg.LinkCtl)]
	ext := n.regs[regKey(htreg.FnHT, base+htreg.LinkExtCtl)]
	freq := n.regs[regKey(htreg.FnHT, base+htreg.LinkFreq)]
	return LinkSetting{
		WidthIn:  widthOf[hw.Field(ctl, htreg.WidthInHi, htreg.WidthInLo)],
		WidthOut: widthOf[hw.Field(ctl, htreg.WidthOutHi, htreg.WidthOutLo)],
		Freq:     ht.Frequency(hw.Field(freq, htreg.FreqSelHi, htreg.FreqSelLo)),
		Ganged:   hw.Field(ext, htreg.ExtGangedBit, htreg.ExtGangedBit) == 1,
		Isoc:     hw.Field(ext, htreg.ExtIsocEnBit, htreg.ExtIsocEnBit) == 1,
		Retry:    hw.Field(ext, htreg.ExtRetryEnBit, htreg.ExtRetryEnBit) == 1,
		Stopped:  hw.Field(ctl, htreg.TransOffBit, htreg.TransOffBit) == 1,
	}
}

// CfgMap returns the raw config map slots of a node.
func (s *Sim) CfgMap(phys int) [htreg.CfgMapSlots]uint32 {
	var r [htreg.CfgMapSlots]uint32
	n := s.node(phys)
	for i := range r {
		r[i] = n.regs[regKey(htreg.FnAddrMap, htreg.RegCfgMapBase+4*uint32(i))]
	}
	return r
}

// DeviceState is the programmed state of a chain device.
type DeviceState struct {
	BUID     int
	WidthIn  ht.Width
	WidthOut ht.Width
	Freq     ht.Frequency
	Retry    bool
}

// Device returns the state of device idx on the chain at node/link.
func (s *Sim) Device(phys, link, idx int) DeviceState {
	d := s.node(phys).chains[link].devices[idx]
	up := uint32(d.desc.UpstreamLink)
	ctl := d.regs[slaveCapOff+htreg.SlaveLink0Ctl+4*up]
	freq := d.regs[slaveCapOff+htreg.SlaveLink0Freq+4*up]
	retry := d.regs[retryCapOff+htreg.RetryControl]
	return DeviceState{
		BUID:     int(d.buid),
		WidthIn:  widthOf[hw.Field(ctl, htreg.WidthInHi, htreg.WidthInLo)],
		WidthOut: widthOf[hw.Field(ctl, htreg.WidthOutHi, htreg.WidthOutLo)],
		Freq:     ht.Frequency(hw.Field(freq, htreg.FreqSelHi, htreg.FreqSelLo)),
		Retry:    hw.Field(retry, 7+8*uint(up), 7+8*uint(up)) == 1,
	}
}

// Trace follows the request routes, or the response routes with rsp, from
// phys towards the node numbered target. It returns the nodes visited and
// whether the node finally accepting the packet is the target.
func (s *Sim) Trace(phys, target int, rsp bool) ([]int, bool) {
	cur := s.node(phys)
	path := []int{cur.phys}
	for hop := 0; hop < maxHops; hop++ {
		if cur.nodeID() == target {
			return path, true
		}
		req, resp, _ := cur.layout.Decode(cur.regs[regKey(htreg.FnHT, htreg.RegRouteBase+4*uint32(target))])
		field := req
		if rsp {
			field = resp
		}
		if field == 0 || field&1 != 0 {
			return path, false
		}
		link := bits.TrailingZeros32(field) - 1
		peer := cur.peers[link]
		if peer == nil || cur.faults[link] == FaultDead {
			return path, false
		}
		cur = s.nodes[peer.Node]
		path = append(path, cur.phys)
	}
	return path, false
}

// BroadcastReach counts how often each node delivers a broadcast sourced at
// phys locally.
func (s *Sim) BroadcastReach(phys int) []int {
	counts := make([]int, len(s.nodes))
	src := uint32(s.node(phys).nodeID())
	queue := []int{phys}
	for steps := 0; len(queue) > 0 && steps < maxHops*len(s.nodes); steps++ {
		n := s.nodes[queue[0]]
		queue = queue[1:]
		_, _, bc := n.layout.Decode(n.regs[regKey(htreg.FnHT, htreg.RegRouteBase+4*src)])
		for _, hop := range decodeHops(bc) {
			if hop == ht.Self {
				counts[n.phys]++
				continue
			}
			if peer := n.peers[hop]; peer != nil {
				queue = append(queue, peer.Node)
			}
		}
	}
	return counts
}
