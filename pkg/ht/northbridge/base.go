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
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// bufferSet is the free list and SRI buffer programming of one fabric shape.
type bufferSet struct {
	freeList uint32
	sri      uint32
}

// family is the numeric data distinguishing the families.
type family struct {
	name     string
	maxNodes int
	maxLinks int
	route    htreg.RouteLayout
	// defLinkSub tells whether F0x6C reports a sublink in bit 8.
	defLinkSub bool
	// coreCountHi bounds the core count field of F3xE8.
	coreCountHi uint
	// sbLinkHi bounds the southbridge link field of F0x64.
	sbLinkHi uint
	// mpCap decodes F3xE8[17:16] into a node count.
	mpCap [4]int
	// ceiling is the fastest frequency of a revision.
	ceiling     func(ID) ht.Frequency
	isochronous bool
	ht3         bool
	canStop     bool
	traffic     bool
	// buffers indexed by [multi-node][isochronous]. Nil disables tuning.
	buffers *[2][2]bufferSet
}

// base implements the operations all families share, driven by family.
type base struct {
	acc hw.Access
	id  ID
	fam *family
}

func (b *base) Name() string      { return b.fam.name }
func (b *base) MaxNodes() int     { return b.fam.maxNodes }
func (b *base) MaxLinks() int     { return b.fam.maxLinks }
func (b *base) Isochronous() bool { return b.fam.isochronous }

func (b *base) LinkScanOrder(int) []int {
	order := make([]int, b.fam.maxLinks)
	for i := range order {
		order[i] = i
	}
	return order
}

func (b *base) checkNode(node int) uint32 {
	if node < 0 || node >= b.fam.maxNodes {
		panic(serrors.New("node out of range", "node", node, "family", b.fam.name))
	}
	return uint32(node)
}

func (b *base) checkLink(link int) uint32 {
	if link < 0 || link >= b.fam.maxLinks {
		panic(serrors.New("link out of range", "link", link, "family", b.fam.name))
	}
	return uint32(link)
}

func (b *base) nodeReg(node int, fn, off uint32) hw.Address {
	return htreg.NodeAddress(b.checkNode(node), fn, off)
}

func (b *base) linkReg(node, link int, off uint32) hw.Address {
	return htreg.LinkAddress(b.checkNode(node), b.checkLink(link), off)
}

// routeBit encodes a route target link as a routing field bit.
func (b *base) routeBit(link int) uint32 {
	if link == ht.Self {
		return 1
	}
	return 1 << (b.checkLink(link) + 1)
}

func (b *base) WriteRouting(node, target, link int) {
	bit := b.routeBit(link)
	b.acc.Write(htreg.RouteAddress(b.checkNode(node), b.checkNode(target)),
		b.fam.route.Encode(bit, bit, bit))
}

func (b *base) WriteFullRouting(node, target, req, rsp int, bcMask uint32) {
	if bcMask>>(b.fam.maxLinks+1) != 0 {
		panic(serrors.New("broadcast mask names unknown link", "mask", bcMask,
			"family", b.fam.name))
	}
	b.acc.Write(htreg.RouteAddress(b.checkNode(node), b.checkNode(target)),
		b.fam.route.Encode(b.routeBit(req), b.routeBit(rsp), bcMask))
}

func (b *base) WriteNodeID(node, id int) {
	hw.WriteBits(b.acc, b.nodeReg(node, htreg.FnHT, htreg.RegNodeID),
		htreg.NodeIDHi, htreg.NodeIDLo, b.checkNode(id))
}

func (b *base) ReadDefaultLink(node int) int {
	v := b.acc.Read(b.nodeReg(node, htreg.FnHT, htreg.RegLinkInitCt))
	link := int(hw.Field(v, htreg.DefLnkHi, htreg.DefLnkLo))
	if b.fam.defLinkSub && hw.Field(v, htreg.DefSubLinkBit, htreg.DefSubLinkBit) == 1 {
		link += 4
	}
	return link
}

func (b *base) EnableRouting(node int) {
	hw.WriteBits(b.acc, b.nodeReg(node, htreg.FnHT, htreg.RegLinkInitCt),
		htreg.RouteTblDisBit, htreg.RouteTblDisBit, 0)
}

func (b *base) ReadToken(node int) int {
	return int(hw.ReadBits(b.acc, b.nodeReg(node, htreg.FnHT, htreg.RegLinkInitCt),
		htreg.TokenHi, htreg.TokenLo))
}

func (b *base) WriteToken(node, value int) {
	hw.WriteBits(b.acc, b.nodeReg(node, htreg.FnHT, htreg.RegLinkInitCt),
		htreg.TokenHi, htreg.TokenLo, uint32(value))
}

func (b *base) linkType(node, link int) uint32 {
	return b.acc.Read(b.linkReg(node, link, htreg.LinkType)) & htreg.LinkTypeMask
}

func (b *base) IsLinkCoherent(node, link int) bool {
	return b.linkType(node, link) == htreg.LinkTypeCoherent
}

func (b *base) IsLinkNonCoherent(node, link int) bool {
	return b.linkType(node, link) == htreg.LinkTypeNonCoherent
}

// writeLinkControl updates a field of a link control register without
// touching its write-one-to-clear latches.
func (b *base) writeLinkControl(a hw.Address, hi, lo uint, v uint32) {
	w1c := hw.SetField(0, htreg.CrcErrHi, htreg.CrcErrLo, 3) |
		hw.SetField(0, htreg.LinkFailBit, htreg.LinkFailBit, 1)
	old := b.acc.Read(a) &^ w1c
	b.acc.Write(a, hw.SetField(old, hi, lo, v))
}

func (b *base) ReadTrueLinkFailStatus(node, link int, st *ht.State) bool {
	a := b.linkReg(node, link, htreg.LinkCtl)
	before := b.acc.Read(a)
	crc := hw.Field(before, htreg.CrcErrHi, htreg.CrcErrLo)
	failed := hw.Field(before, htreg.LinkFailBit, htreg.LinkFailBit)
	// Clear the latches, then see whether the failure sticks.
	b.acc.Write(a, before)
	after := hw.ReadBits(b.acc, a, htreg.LinkFailBit, htreg.LinkFailBit)
	if failed == 0 {
		return after != 0
	}
	if crc != 0 {
		st.Raise(ht.ClassHWFault, ht.HWHTCRC, "node", node, "link", link, "lanes", crc)
	} else {
		st.Raise(ht.ClassHWFault, ht.HWSyncFlood, "node", node, "link", link)
	}
	return true
}

func (b *base) StopLink(node, link int) {
	if !b.fam.canStop {
		return
	}
	a := b.linkReg(node, link, htreg.LinkCtl)
	b.writeLinkControl(a, htreg.TransOffBit, htreg.EndOfChainBit, 3)
}

func (b *base) HandleSpecialLink(int, int, *ht.State) bool { return false }

func (b *base) IsCompatible(node int) bool {
	id := ReadID(b.acc, node)
	return id.Family == b.id.Family && id.MultiNode == b.id.MultiNode
}

func (b *base) IsCapable(node int, st *ht.State) bool {
	code := hw.ReadBits(b.acc, b.nodeReg(node, htreg.FnMisc, htreg.RegNBCaps),
		htreg.MpCapHi, htreg.MpCapLo)
	if maxNodes := b.fam.mpCap[code]; st.SysMPCap > maxNodes {
		st.SysMPCap = maxNodes
	}
	// SysMPCap counts nodes, NodesDiscovered is the highest id.
	return st.SysMPCap > st.NodesDiscovered
}

func (b *base) CoreCount(node int) int {
	return int(hw.ReadBits(b.acc, b.nodeReg(node, htreg.FnMisc, htreg.RegNBCaps),
		b.fam.coreCountHi, htreg.CoreCntLo)) + 1
}

func (b *base) SetTotalNodesAndCores(node, totalNodes, totalCores int) {
	a := b.nodeReg(node, htreg.FnHT, htreg.RegNodeID)
	v := b.acc.Read(a)
	v = hw.SetField(v, htreg.NodeCntHi, htreg.NodeCntLo, uint32(totalNodes-1))
	v = hw.SetField(v, htreg.CpuCntHi, htreg.CpuCntLo, uint32(totalCores-1))
	b.acc.Write(a, v)
}

func (b *base) LimitConfigAccess(node int) {
	hw.WriteBits(b.acc, b.nodeReg(node, htreg.FnHT, htreg.RegLinkTxCtl),
		htreg.LimitCldtCfgBit, htreg.LimitCldtCfgBit, 1)
}

func (b *base) ReadSouthbridgeLink() int {
	return int(hw.ReadBits(b.acc, b.nodeReg(0, htreg.FnHT, htreg.RegUnitID),
		b.fam.sbLinkHi, htreg.SbLinkLo))
}

func (b *base) SetConfigAddrMap(st *ht.State, index, sec, sub, node, link int) {
	if index < 0 || index >= htreg.CfgMapSlots || sec > sub || sub > 0xFF {
		panic(serrors.New("invalid config map entry", "index", index, "sec", sec, "sub", sub))
	}
	hw.WriteBits(b.acc, b.linkReg(node, link, htreg.LinkBusNum),
		htreg.LinkSecBusHi, htreg.LinkSecBusLo, uint32(sec))

	var v uint32
	v = hw.SetField(v, htreg.CfgMapWEBit, htreg.CfgMapREBit, 3)
	v = hw.SetField(v, htreg.CfgMapNodeHi, htreg.CfgMapNodeLo, b.checkNode(node))
	v = hw.SetField(v, htreg.CfgMapLinkHi, htreg.CfgMapLinkLo, b.checkLink(link))
	v = hw.SetField(v, htreg.CfgMapBusBaseHi, htreg.CfgMapBusBaseLo, uint32(sec))
	v = hw.SetField(v, htreg.CfgMapBusLimitHi, htreg.CfgMapBusLimitLo, uint32(sub))
	for n := 0; n <= st.NodesDiscovered; n++ {
		b.acc.Write(htreg.CfgMapAddress(uint32(n), uint32(index)), v)
	}
}

var widthBits = map[uint32]ht.Width{0: ht.Width8, 1: ht.Width16, 3: ht.Width32,
	4: ht.Width2, 5: ht.Width4}

// BitsToWidth decodes a width field. Encodings without a width, such as the
// "not connected" value devices may report, read as 8 bits.
func (b *base) BitsToWidth(bits uint32) ht.Width {
	if w, ok := widthBits[bits]; ok {
		return w
	}
	return ht.Width8
}

func (b *base) WidthToBits(w ht.Width) uint32 {
	for bits, v := range widthBits {
		if v == w {
			return bits
		}
	}
	panic(serrors.New("invalid link width", "width", w))
}

func (b *base) FreqMask(node int) ht.FreqMask {
	mask := ht.FreqMaskUpTo(b.fam.ceiling(ReadID(b.acc, node)))
	limit := hw.ReadBits(b.acc, b.nodeReg(node, htreg.FnMisc, htreg.RegHTCaps),
		htreg.HTFreqLimitHi, htreg.HTFreqLimitLo)
	if limit != 0 {
		mask &= ht.FreqMaskUpTo(ht.Frequency(limit))
	}
	return mask
}

func (b *base) WriteTrafficDistribution(links01, links10 uint32) {
	if !b.fam.traffic {
		return
	}
	// [23:16] destination links, [8] destination node, [2:0] probe, response
	// and request distribution enables.
	b.acc.Write(b.nodeReg(0, htreg.FnHT, htreg.RegTrafficDis), (links01&0xFF)<<16|0x0107)
	b.acc.Write(b.nodeReg(1, htreg.FnHT, htreg.RegTrafficDis), (links10&0xFF)<<16|0x0007)
}

func (b *base) TuneBuffers(node int, st *ht.State) {
	if b.fam.buffers == nil {
		return
	}
	multi, isoc := 0, 0
	if st.NodesDiscovered > 0 {
		multi = 1
	}
	for i := range st.Ports.Pairs {
		if st.Ports.Pairs[i].Source.Isochronous {
			isoc = 1
			break
		}
	}
	set := b.fam.buffers[multi][isoc]
	b.acc.Write(b.nodeReg(node, htreg.FnMisc, htreg.RegFreeListBuf), set.freeList)
	b.acc.Write(b.nodeReg(node, htreg.FnMisc, htreg.RegSRIBuf), set.sri)
}
