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
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

func regKey(fn, off uint32) uint32 { return fn<<12 | off }

type node struct {
	phys   int
	desc   Node
	layout htreg.RouteLayout
	links  int
	regs   map[uint32]uint32
	lastIn int
	peers  [ht.MaxLinks]*Endpoint
	chains [ht.MaxLinks]*chain
	faults [ht.MaxLinks]Fault
}

func newNode(phys int, desc Node) *node {
	n := &node{
		phys:   phys,
		desc:   desc,
		layout: htreg.RouteLayout9,
		links:  linksOf(desc),
		regs:   map[uint32]uint32{},
	}
	if desc.Family == 0x0F {
		n.layout = htreg.RouteLayout4
	}
	return n
}

func (n *node) caps(link int) PortCaps {
	for _, p := range n.desc.Ports {
		if p.Link == link {
			return p
		}
	}
	return PortCaps{Link: link}
}

func (n *node) wired(link int) bool {
	return n.peers[link] != nil || n.chains[link] != nil
}

func (n *node) reset() {
	set := func(fn, off, v uint32) { n.regs[regKey(fn, off)] = v }

	set(htreg.FnHT, 0, 0x12001022)
	for t := uint32(0); t < ht.MaxNodes; t++ {
		set(htreg.FnHT, htreg.RegRouteBase+4*t, n.layout.SelfRoute())
	}
	set(htreg.FnHT, htreg.RegUnitID,
		hw.SetField(0, htreg.SbLinkHi, htreg.SbLinkLo, uint32(n.desc.SouthbridgeLink)))
	set(htreg.FnHT, htreg.RegLinkInitCt, 1<<htreg.RouteTblDisBit)

	for l := 0; l < n.links; l++ {
		c := n.caps(l)
		n.faults[l] = c.Fault
		def := 16
		if l < 4 && n.links > 4 && n.wired(l) && n.wired(l+4) || l >= 4 {
			def = 8
		}
		win, wout := def, def
		if c.WidthIn != 0 {
			win = c.WidthIn
		}
		if c.WidthOut != 0 {
			wout = c.WidthOut
		}
		ctl := hw.SetField(0, htreg.MaxWidthInHi, htreg.MaxWidthInLo, widthCodes[win])
		ctl = hw.SetField(ctl, htreg.MaxWidthOutHi, htreg.MaxWidthOutLo, widthCodes[wout])
		switch c.Fault {
		case FaultCRC:
			ctl = hw.SetField(ctl, htreg.CrcErrHi, htreg.CrcErrLo, 1)
			ctl = hw.SetField(ctl, htreg.LinkFailBit, htreg.LinkFailBit, 1)
		case FaultSyncFlood, FaultDead:
			ctl = hw.SetField(ctl, htreg.LinkFailBit, htreg.LinkFailBit, 1)
		}
		base := htreg.LinkBlock(uint32(l))
		set(htreg.FnHT, base+htreg.LinkCtl, ctl)
		set(htreg.FnHT, base+htreg.LinkFreq, hw.SetField(0, htreg.FreqCapHi, htreg.FreqCapLo,
			uint32(ht.FreqMaskUpToMHz(c.MaxFreqMHz))))
		var feat uint32
		if c.Isochronous {
			feat |= 1 << htreg.FeatIsocBit
		}
		if c.Retry {
			feat |= 1 << htreg.FeatRetryBit
		}
		if c.Scrambling {
			feat |= 1 << htreg.FeatScramblingBit
		}
		set(htreg.FnHT, base+htreg.LinkFeature, feat)
		if c.Ganged {
			set(htreg.FnHT, base+htreg.LinkExtCtl, 1<<htreg.ExtGangedBit)
		}
	}

	caps := hw.SetField(0, htreg.CoreCntHi, htreg.CoreCntLo, uint32(n.desc.Cores-1))
	caps = hw.SetField(caps, htreg.MpCapHi, htreg.MpCapLo, mpCapCodes[n.desc.MPCap])
	if n.desc.MultiNode {
		caps = hw.SetField(caps, htreg.MultiNodeCpuBit, htreg.MultiNodeCpuBit, 1)
	}
	caps = hw.SetField(caps, htreg.InternalLinkHi, htreg.InternalLinkLo,
		uint32(n.desc.InternalLink))
	set(htreg.FnMisc, htreg.RegNBCaps, caps)
	if n.desc.FreqLimitMHz != 0 {
		code := ht.Freq200
		for f := ht.Freq200; f <= ht.Freq2600; f++ {
			if f.MHz() <= n.desc.FreqLimitMHz {
				code = f
			}
		}
		set(htreg.FnMisc, htreg.RegHTCaps, uint32(code))
	}

	var cpuid uint32
	fam := n.desc.Family
	if fam >= 0xF {
		cpuid = hw.SetField(cpuid, htreg.BaseFamilyHi, htreg.BaseFamilyLo, 0xF)
		cpuid = hw.SetField(cpuid, htreg.ExtFamilyHi, htreg.ExtFamilyLo, fam-0xF)
	} else {
		cpuid = hw.SetField(cpuid, htreg.BaseFamilyHi, htreg.BaseFamilyLo, fam)
	}
	cpuid = hw.SetField(cpuid, htreg.ModelHi, htreg.ModelLo, n.desc.Model&0xF)
	cpuid = hw.SetField(cpuid, htreg.ExtModelHi, htreg.ExtModelLo, n.desc.Model>>4)
	cpuid = hw.SetField(cpuid, htreg.SteppingHi, htreg.SteppingLo, n.desc.Stepping)
	set(htreg.FnMisc, htreg.RegCPUID, cpuid)
}

func (n *node) routingDisabled() bool {
	return n.regs[regKey(htreg.FnHT, htreg.RegLinkInitCt)]&(1<<htreg.RouteTblDisBit) != 0
}

func (n *node) nodeID() int {
	return int(hw.Field(n.regs[regKey(htreg.FnHT, htreg.RegNodeID)], htreg.NodeIDHi,
		htreg.NodeIDLo))
}

// linkReg decodes a link block register offset.
func (n *node) linkReg(fn, off uint32) (link int, reg uint32, ok bool) {
	if fn != htreg.FnHT {
		return 0, 0, false
	}
	l, reg, ok := htreg.LinkRegister(off)
	if !ok || int(l) >= n.links {
		return 0, 0, false
	}
	return int(l), reg, true
}

func (n *node) read(fn, off uint32) uint32 {
	v := n.regs[regKey(fn, off)]
	if fn == htreg.FnHT && off == htreg.RegLinkInitCt {
		in := uint32(n.lastIn)
		v = hw.SetField(v, htreg.DefLnkHi, htreg.DefLnkLo, in&3)
		v = hw.SetField(v, htreg.DefSubLinkBit, htreg.DefSubLinkBit, in>>2)
	}
	if link, reg, ok := n.linkReg(fn, off); ok && reg == htreg.LinkType {
		switch {
		case n.peers[link] != nil:
			v = htreg.LinkTypeCoherent
		case n.chains[link] != nil:
			v = htreg.LinkTypeNonCoherent
		default:
			v = 0
		}
	}
	return v
}

func (n *node) write(fn, off, v uint32) {
	key := regKey(fn, off)
	old := n.regs[key]
	if fn == htreg.FnHT && off == htreg.RegLinkInitCt {
		v = hw.SetField(v, htreg.DefLnkHi, htreg.DefLnkLo, 0)
		v = hw.SetField(v, htreg.DefSubLinkBit, htreg.DefSubLinkBit, 0)
	}
	if link, reg, ok := n.linkReg(fn, off); ok {
		switch reg {
		case htreg.LinkType:
			return
		case htreg.LinkCtl:
			w1c := hw.SetField(0, htreg.CrcErrHi, htreg.CrcErrLo, 3) |
				1<<htreg.LinkFailBit
			latched := old & w1c &^ v
			if n.faults[link] == FaultDead {
				latched |= 1 << htreg.LinkFailBit
			}
			v = v&^w1c | latched
		}
	}
	n.regs[key] = v
}

func (n *node) chainDevice(link int, dev uint32) *device {
	if link < 0 || link >= n.links || n.chains[link] == nil {
		return nil
	}
	if n.faults[link] == FaultDead {
		return nil
	}
	return n.chains[link].lookup(dev)
}
