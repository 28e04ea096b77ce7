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

// Package htreg holds the northbridge and HyperTransport capability register
// layout shared by the family adapters and the simulator.
package htreg

import "github.com/htfabric/htinit/pkg/hw"

// Node configuration space lives on bus 0, device 0x18+node.
const (
	NodeDevBase = 0x18

	FnHT      = 0
	FnAddrMap = 1
	FnDRAM    = 2
	FnMisc    = 3
)

// Function 0 registers.
const (
	RegRouteBase  = 0x40 // + 4*target
	RegNodeID     = 0x60
	RegUnitID     = 0x64
	RegLinkTxCtl  = 0x68
	RegLinkInitCt = 0x6C
	RegLinkBase   = 0x80 // + LinkStride*link, links 0 to 3
	LinkStride    = 0x20
	RegTrafficDis = 0x164
	RegSub1Base   = 0x180 // + LinkStride*(link-4), links 4 to 7
	SublinkLinks  = 4
)

// F0x60 fields.
const (
	NodeIDHi, NodeIDLo   = 2, 0
	NodeCntHi, NodeCntLo = 6, 4
	CpuCntHi, CpuCntLo   = 20, 16
)

// F0x64 southbridge link.
const SbLinkHi, SbLinkLo = 10, 8

// F0x68[15] limits config requests to the local node.
const LimitCldtCfgBit = 15

// F0x6C fields.
const (
	RouteTblDisBit     = 0
	DefLnkHi, DefLnkLo = 3, 2
	DefSubLinkBit      = 8
	TokenHi, TokenLo   = 22, 20
	InitCompleteBit    = 17
	ReqDisBit          = 1
)

// Offsets inside a link register block.
const (
	LinkCtl     = 0x04
	LinkFreq    = 0x08
	LinkFeature = 0x0C
	LinkExtCtl  = 0x10
	LinkBusNum  = 0x14
	LinkType    = 0x18
	LinkBuffers = 0x1C
)

// Link control fields.
const (
	LinkFailBit                  = 4
	EndOfChainBit                = 6
	TransOffBit                  = 7
	CrcErrHi, CrcErrLo           = 9, 8
	MaxWidthInHi, MaxWidthInLo   = 18, 16
	MaxWidthOutHi, MaxWidthOutLo = 22, 20
	WidthInHi, WidthInLo         = 26, 24
	WidthOutHi, WidthOutLo       = 30, 28
)

// LinkBusNum holds the secondary bus of a non-coherent link in [15:8].
const LinkSecBusHi, LinkSecBusLo = 15, 8

// Link frequency fields.
const (
	FreqSelHi, FreqSelLo = 11, 8
	FreqCapHi, FreqCapLo = 31, 16
)

// Feature and extended control bits.
const (
	FeatIsocBit       = 0
	FeatRetryBit      = 8
	FeatScramblingBit = 9

	ExtIsocEnBit  = 0
	ExtGangedBit  = 1
	ExtRetryEnBit = 8
	ExtScrEnBit   = 9
)

// Link type values in bits [4:0].
const (
	LinkTypeMask        = 0x1F
	LinkTypeCoherent    = 0x03
	LinkTypeNonCoherent = 0x07
)

// Function 1 config map, one register per slot.
const (
	RegCfgMapBase = 0xE0
	CfgMapSlots   = 4
)

// Config map fields.
const (
	CfgMapREBit                        = 0
	CfgMapWEBit                        = 1
	CfgMapDevCmpEnBit                  = 2
	CfgMapNodeHi, CfgMapNodeLo         = 6, 4
	CfgMapLinkHi, CfgMapLinkLo         = 10, 8 // [10] selects sublink 1
	CfgMapBusBaseHi, CfgMapBusBaseLo   = 23, 16
	CfgMapBusLimitHi, CfgMapBusLimitLo = 31, 24
)

// Function 3 registers.
const (
	RegMCACfg    = 0x44
	SyncFloodBit = 30

	RegFreeListBuf = 0x6C
	RegSRIBuf      = 0x7C

	RegNBCaps = 0xE8
	RegHTCaps = 0xE4
	RegCPUID  = 0xFC
)

// F3xE8 fields.
const (
	CoreCntHi, CoreCntLo           = 15, 12
	MpCapHi, MpCapLo               = 17, 16
	MultiNodeCpuBit                = 29
	InternalLinkHi, InternalLinkLo = 31, 30
)

// F3xE4 holds the fused HT frequency limit code in [3:0]; zero means none.
const HTFreqLimitHi, HTFreqLimitLo = 3, 0

// F3xFC CPUID fields.
const (
	SteppingHi, SteppingLo     = 3, 0
	ModelHi, ModelLo           = 7, 4
	BaseFamilyHi, BaseFamilyLo = 11, 8
	ExtModelHi, ExtModelLo     = 19, 16
	ExtFamilyHi, ExtFamilyLo   = 27, 20
)

// HyperTransport slave capability block offsets and fields.
const (
	SlaveCmd       = 0x00
	SlaveLink0Ctl  = 0x04
	SlaveLink1Ctl  = 0x08
	SlaveLink0Freq = 0x0C
	SlaveLink1Freq = 0x10
	SlaveFeature   = 0x14
	SlaveEnables   = 0x18

	SlaveBUIDHi, SlaveBUIDLo   = 20, 16
	SlaveUnitsHi, SlaveUnitsLo = 25, 21
	SlaveMasterHostBit         = 26

	MaxBUID     = 31
	MaxBUIDBus0 = 24
)

// Capability headers of the optional HT3 blocks, compared under
// CapTypeMask.
const (
	CapTypeMask    = 0xF80000FF
	CapRetry       = 0xC0000008
	CapGen3        = 0xD0000008
	RetryControl   = 0x04 // bit 7+8*link enables retry on that link
	Gen3Training0  = 0x10 // + Gen3LinkStride*link, bit 3 enables scrambling
	Gen3LinkStride = 0x20
	Gen3ScrBit     = 3
)

// RouteLayout describes where the request, response and broadcast fields of
// a routing table register sit. Each field carries bit 0 for the node itself
// and bit k+1 for link k.
type RouteLayout struct {
	Width uint
	ReqLo uint
	RspLo uint
	BcLo  uint
}

var (
	// RouteLayout4 is the nibble wide layout of three link parts.
	RouteLayout4 = RouteLayout{Width: 4, ReqLo: 0, RspLo: 8, BcLo: 16}
	// RouteLayout9 is the layout of parts with four links of two sublinks.
	RouteLayout9 = RouteLayout{Width: 9, ReqLo: 0, RspLo: 9, BcLo: 18}
)

// Encode packs the three fields into a register value.
func (l RouteLayout) Encode(req, rsp, bc uint32) uint32 {
	m := uint32(1)<<l.Width - 1
	return (req&m)<<l.ReqLo | (rsp&m)<<l.RspLo | (bc&m)<<l.BcLo
}

// Decode unpacks a register value.
func (l RouteLayout) Decode(v uint32) (req, rsp, bc uint32) {
	m := uint32(1)<<l.Width - 1
	return (v >> l.ReqLo) & m, (v >> l.RspLo) & m, (v >> l.BcLo) & m
}

// SelfRoute is the reset value of every routing table entry.
func (l RouteLayout) SelfRoute() uint32 {
	return l.Encode(1, 1, 1)
}

// NodeAddress returns the configuration address of register off in function
// fn of the given node.
func NodeAddress(node, fn, off uint32) hw.Address {
	return hw.MakeAddress(0, 0, NodeDevBase+node, fn, off)
}

// LinkAddress returns the address of register off inside the link block of
// link on node.
func LinkAddress(node, link, off uint32) hw.Address {
	return NodeAddress(node, FnHT, LinkBlock(link)+off)
}

// LinkBlock returns the function 0 offset of the register block of link.
// Sublink 1 blocks sit above the traffic distribution register.
func LinkBlock(link uint32) uint32 {
	if link < SublinkLinks {
		return RegLinkBase + LinkStride*link
	}
	return RegSub1Base + LinkStride*(link-SublinkLinks)
}

// LinkRegister decodes a function 0 offset into a link and the offset inside
// its block. It reports false for offsets outside every link block.
func LinkRegister(off uint32) (link, reg uint32, ok bool) {
	switch {
	case off >= RegLinkBase && off < RegLinkBase+LinkStride*SublinkLinks:
		rel := off - RegLinkBase
		return rel / LinkStride, rel % LinkStride, true
	case off >= RegSub1Base && off < RegSub1Base+LinkStride*SublinkLinks:
		rel := off - RegSub1Base
		return SublinkLinks + rel/LinkStride, rel % LinkStride, true
	}
	return 0, 0, false
}

// RouteAddress returns the routing table register of node for target.
func RouteAddress(node, target uint32) hw.Address {
	return NodeAddress(node, FnHT, RegRouteBase+4*target)
}

// CfgMapAddress returns the config map slot register on node.
func CfgMapAddress(node, slot uint32) hw.Address {
	return NodeAddress(node, FnAddrMap, RegCfgMapBase+4*slot)
}

// DeviceAddress returns the base address of an I/O device.
func DeviceAddress(bus, dev uint32) hw.Address {
	return hw.MakeAddress(0, bus, dev, 0, 0)
}
