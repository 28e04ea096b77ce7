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

// Package noncoherent numbers the I/O chains hanging off the CPU nodes.
//
// Every chain gets a bus range and a config map slot. Its devices are then
// given unit ids, either from the board's manual description or by walking
// the chain: an unconfigured device answers at device 0 of the chain's bus,
// and moves out of the way once it has a unit id, exposing the next one.
//
// Problems abandon the chain at hand, never the whole pass.
package noncoherent

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

// Enumerate numbers the southbridge chain of the boot node first, then
// every other non-coherent link of the fabric.
func Enumerate(st *ht.State) {
	nb := st.NB
	sb := nb.ReadSouthbridgeLink()
	processLink(st, 0, sb)
	for node := 0; node <= st.NodesDiscovered; node++ {
		for link := 0; link < nb.MaxLinks(); link++ {
			// Coherent links had their failure status read during
			// discovery.
			switch {
			case st.Board.Ignored(node, link),
				node == 0 && link == sb,
				!nb.IsLinkNonCoherent(node, link),
				nb.ReadTrueLinkFailStatus(node, link, st):
				continue
			}
			processLink(st, node, link)
		}
	}
	st.Logger.Info("I/O chains enumerated", "chains", st.UsedCfgMapEntries,
		"links", st.Ports.Len())
}

func processLink(st *ht.State, node, link int) {
	b := st.Board
	sec, sub, ok := 0, 0, false
	if b.OverrideBusNumbers != nil {
		sec, sub, ok = b.OverrideBusNumbers(node, link)
	}
	if ok {
		if sec < 0 || sec > sub || sub > ht.DefaultAutoBusMax {
			st.Raise(ht.ClassError, ht.NcohBusMaxExceed, "node", node, "link", link,
				"sec", sec, "sub", sub)
			return
		}
	} else {
		sec = st.AutoBusCurrent
		sub = sec + b.AutoBusIncrement - 1
		if sub > b.AutoBusMax {
			st.Raise(ht.ClassError, ht.NcohBusMaxExceed, "node", node, "link", link,
				"sec", sec, "sub", sub)
			return
		}
		st.AutoBusCurrent += b.AutoBusIncrement
	}

	if st.UsedCfgMapEntries >= htreg.CfgMapSlots {
		st.Raise(ht.ClassError, ht.NcohCfgMapExceed, "node", node, "link", link)
		return
	}
	st.NB.SetConfigAddrMap(st, st.UsedCfgMapEntries, sec, sub, node, link)
	st.UsedCfgMapEntries++
	st.Logger.Debug("Chain bus range assigned", "node", node, "link", link,
		"sec", sec, "sub", sub)

	w := walker{st: st, node: node, link: link, bus: uint32(sec)}
	if b.ManualChain != nil {
		if m, ok := b.ManualChain(node, link); ok && m != nil {
			w.manual(m)
			return
		}
	}
	w.auto()
}

// walker builds the port pairs of one chain, host outwards.
type walker struct {
	st   *ht.State
	node int
	link int
	bus  uint32
	// Upstream end of the next pair below depth 0.
	lastLink int
	lastPtr  hw.Address
}

func (w *walker) acc() hw.Access { return w.st.Access }

// slaveCap finds the slave capability of the device answering at dev.
func (w *walker) slaveCap(dev uint32) (hw.Address, bool) {
	a := htreg.DeviceAddress(w.bus, dev)
	if !hw.Present(w.acc(), a) {
		return hw.Illegal, false
	}
	return hw.FindCapability(w.acc(), a, hw.IsHTSlaveCapability)
}

// add appends the pair above the device at depth whose slave capability is
// at ptr and whose upstream link is upLink.
func (w *walker) add(depth int, ptr hw.Address, upLink int) {
	src := ht.Port{Type: ht.PortCPU, NodeID: w.node, Link: w.link}
	if depth > 0 {
		src = ht.Port{
			Type:      ht.PortIO,
			NodeID:    w.node,
			Link:      1 - w.lastLink,
			HostLink:  w.link,
			HostDepth: depth - 1,
			Pointer:   w.lastPtr,
		}
	}
	dst := ht.Port{
		Type:      ht.PortIO,
		NodeID:    w.node,
		Link:      upLink,
		HostLink:  w.link,
		HostDepth: depth,
		Pointer:   ptr,
	}
	w.st.Ports.Append(ht.LinkPair{Source: src, Dest: dst})
	w.lastLink, w.lastPtr = upLink, ptr
}

func (w *walker) linkExceeded(depth int) bool {
	if !w.st.Ports.Full() {
		return false
	}
	w.st.Raise(ht.ClassError, ht.NcohLinkExceed, "node", w.node, "link", w.link,
		"depth", depth, "max_links", w.st.Ports.Capacity)
	return true
}

func (w *walker) deviceFailed(depth int, ctx ...any) {
	w.st.Raise(ht.ClassError, ht.NcohDeviceFailed,
		append([]any{"node", w.node, "link", w.link, "depth", depth}, ctx...)...)
}

// manual applies a board supplied chain description.
func (w *walker) manual(m *ht.ManualChain) {
	for _, a := range m.Assignments {
		ptr, ok := w.slaveCap(uint32(a.Device))
		if !ok {
			w.deviceFailed(0, "device", a.Device)
			return
		}
		hw.WriteBits(w.acc(), ptr, htreg.SlaveBUIDHi, htreg.SlaveBUIDLo, uint32(a.BUID))
	}
	for depth, hop := range m.Hops {
		if w.linkExceeded(depth) {
			return
		}
		ptr, ok := w.slaveCap(uint32(hop.Device))
		if !ok {
			w.deviceFailed(depth, "device", hop.Device)
			return
		}
		up := hop.UpstreamLink
		if !hop.OverrideOrientation {
			up = int(hw.ReadBits(w.acc(), ptr, htreg.SlaveMasterHostBit,
				htreg.SlaveMasterHostBit))
		}
		w.add(depth, ptr, up)
	}
	w.st.Logger.Debug("Manual chain applied", "node", w.node, "link", w.link,
		"depth", len(m.Hops))
}

// auto numbers the devices of the chain one by one until nothing answers.
func (w *walker) auto() {
	ceiling := uint32(htreg.MaxBUID)
	if w.bus == 0 {
		ceiling = htreg.MaxBUIDBus0
	}
	buid := uint32(1)
	depth := 0
	for {
		if !hw.Present(w.acc(), htreg.DeviceAddress(w.bus, 0)) {
			break
		}
		if w.linkExceeded(depth) {
			break
		}
		ptr, ok := w.slaveCap(0)
		if !ok {
			w.deviceFailed(depth, "device", 0)
			break
		}
		units := hw.ReadBits(w.acc(), ptr, htreg.SlaveUnitsHi, htreg.SlaveUnitsLo)
		if buid+units > ceiling {
			w.st.Raise(ht.ClassError, ht.NcohBUIDExceed, "node", w.node, "link", w.link,
				"depth", depth, "buid", buid, "units", units)
			break
		}
		hw.WriteBits(w.acc(), ptr, htreg.SlaveBUIDHi, htreg.SlaveBUIDLo, buid)
		ptr = ptr.WithDevice(buid)
		if got := hw.ReadBits(w.acc(), ptr, htreg.SlaveBUIDHi, htreg.SlaveBUIDLo); got != buid {
			w.deviceFailed(depth, "buid", buid, "read", got)
			break
		}
		up := int(hw.ReadBits(w.acc(), ptr, htreg.SlaveMasterHostBit,
			htreg.SlaveMasterHostBit))
		w.add(depth, ptr, up)
		depth++
		buid += units
	}
	w.st.Raise(ht.ClassInfo, ht.NcohAutoDepth, "node", w.node, "link", w.link,
		"depth", depth)
}
