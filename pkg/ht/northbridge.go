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

package ht

// Northbridge is the per family register contract. Everything that depends
// on the CPU family is behind it; callers never look at the family.
//
// Node and link arguments are indexes into the fabric as discovered. Link
// values for routing are link ids or Self.
type Northbridge interface {
	// Name identifies the implementation in logs.
	Name() string
	MaxNodes() int
	MaxLinks() int
	// LinkScanOrder is the order discovery probes the links of node in.
	LinkScanOrder(node int) []int
	// Isochronous reports whether the family supports isochronous links.
	Isochronous() bool

	// WriteRouting points the request, response and broadcast route of
	// node for target at link.
	WriteRouting(node, target, link int)
	// WriteFullRouting writes all three fields of one routing entry.
	// bcMask carries bit 0 for the node itself and bit k+1 for link k.
	WriteFullRouting(node, target, req, rsp int, bcMask uint32)
	WriteNodeID(node, id int)
	// ReadDefaultLink returns the link node received the current request on.
	ReadDefaultLink(node int) int
	EnableRouting(node int)
	ReadToken(node int) int
	WriteToken(node, value int)

	IsLinkCoherent(node, link int) bool
	IsLinkNonCoherent(node, link int) bool
	// ReadTrueLinkFailStatus clears the failure latches of a link and
	// reports whether the link must be treated as failed. Observed faults
	// are raised on st.
	ReadTrueLinkFailStatus(node, link int, st *State) bool
	StopLink(node, link int)
	// HandleSpecialLink consumes links that must not be discovered, such as
	// the second half of a hardware ganged internal link.
	HandleSpecialLink(node, link int, st *State) bool

	// IsCompatible reports whether node belongs to the family class of the
	// boot node.
	IsCompatible(node int) bool
	// IsCapable folds the node count node supports into st.SysMPCap and
	// reports whether the fabric discovered so far still fits.
	IsCapable(node int, st *State) bool
	CoreCount(node int) int
	SetTotalNodesAndCores(node, totalNodes, totalCores int)
	LimitConfigAccess(node int)

	ReadSouthbridgeLink() int
	// SetConfigAddrMap routes config requests for buses [sec, sub] to link
	// on node, using map slot index on every discovered node.
	SetConfigAddrMap(st *State, index, sec, sub, node, link int)

	BitsToWidth(bits uint32) Width
	WidthToBits(w Width) uint32
	// FreqMask is the set of link frequencies node can run.
	FreqMask(node int) FreqMask
	GatherLinkData(st *State)
	ApplyLinkData(st *State)
	WriteTrafficDistribution(links01, links10 uint32)
	TuneBuffers(node int, st *State)
}
