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

// Package ht holds the data model shared by the fabric bring-up stages: the
// port list describing every physical link found, the discovered graph, the
// board policy hooks and the northbridge family contract.
package ht

import (
	"fmt"

	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

const (
	// MaxNodes is the largest coherent fabric supported.
	MaxNodes = topology.MaxNodes
	// MaxLinks is the number of link ids on a node. Ids 4-7 are sublink 1 of
	// links 0-3.
	MaxLinks = 8
	// DefaultMaxLinkPairs bounds the port list unless the board says
	// otherwise.
	DefaultMaxLinkPairs = 64
	// Self is the link value meaning "route to this node".
	Self = -1
)

// PortType tells CPU ports from I/O device ports.
type PortType uint8

const (
	PortCPU PortType = iota
	PortIO
)

func (t PortType) String() string {
	switch t {
	case PortCPU:
		return "cpu"
	case PortIO:
		return "io"
	}
	return fmt.Sprintf("PortType(%d)", uint8(t))
}

// BaseLink returns the sublink 0 id of a link id.
func BaseLink(link int) int { return link & 3 }

// IsSublink1 reports whether link is the second half of a base link.
func IsSublink1(link int) bool { return link >= 4 }

// Port is one end of a physical link.
type Port struct {
	Type PortType
	// Link is the link id on the owning node for CPU ports, and the device
	// side link (0 or 1) for I/O ports.
	Link int
	// NodeID is the owning node, or the host node of an I/O device.
	NodeID int
	// HostLink and HostDepth locate an I/O port on its chain.
	HostLink  int
	HostDepth int
	// Pointer is the link register block of a CPU port or the HT capability
	// of an I/O device.
	Pointer hw.Address

	WidthInCap       Width
	WidthOutCap      Width
	FreqCap          FreqMask
	FeatureCap       Feature
	CompositeFreqCap FreqMask

	SelWidthIn  Width
	SelWidthOut Width
	SelFreq     Frequency
	SelRegang   bool
	Isochronous bool
}

func (p Port) String() string {
	if p.Type == PortCPU {
		return fmt.Sprintf("node%d/link%d", p.NodeID, p.Link)
	}
	return fmt.Sprintf("node%d/link%d/depth%d/side%d", p.NodeID, p.HostLink, p.HostDepth,
		p.Link)
}

// LinkPair is one physical link. Source is the end closer to the boot node.
type LinkPair struct {
	Source Port
	Dest   Port
}

// IsCoherent reports whether both ends are CPU ports.
func (lp *LinkPair) IsCoherent() bool {
	return lp.Source.Type == PortCPU && lp.Dest.Type == PortCPU
}

// Side returns the source (0) or destination (1) port.
func (lp *LinkPair) Side(i int) *Port {
	if i == 0 {
		return &lp.Source
	}
	return &lp.Dest
}

// PortList is the bounded, ordered set of discovered links. It only grows
// during discovery and enumeration; reganging is the only removal.
type PortList struct {
	Pairs    []LinkPair
	Capacity int
}

// NewPortList returns an empty list holding up to capacity pairs.
func NewPortList(capacity int) PortList {
	return PortList{Pairs: make([]LinkPair, 0, capacity), Capacity: capacity}
}

func (l *PortList) Len() int { return len(l.Pairs) }

// Full reports whether another pair would exceed the capacity.
func (l *PortList) Full() bool { return len(l.Pairs) >= l.Capacity }

// Append adds a pair and reports whether there was room for it.
func (l *PortList) Append(p LinkPair) bool {
	if l.Full() {
		return false
	}
	l.Pairs = append(l.Pairs, p)
	return true
}

// Remove deletes pair i and compacts the list, keeping order.
func (l *PortList) Remove(i int) {
	if i < 0 || i >= len(l.Pairs) {
		panic(serrors.New("port list index out of range", "index", i, "len", len(l.Pairs)))
	}
	l.Pairs = append(l.Pairs[:i], l.Pairs[i+1:]...)
}

// Reset drops every pair.
func (l *PortList) Reset() { l.Pairs = l.Pairs[:0] }

// Explored reports whether link on node is already the destination end of
// a recorded pair.
func (l *PortList) Explored(node, link int) bool {
	for i := range l.Pairs {
		d := &l.Pairs[i].Dest
		if d.Type == PortCPU && d.NodeID == node && d.Link == link {
			return true
		}
	}
	return false
}

// LinkTo returns the link on node src that the first recorded coherent pair
// between src and dst uses. A missing pair is an invariant violation.
func (l *PortList) LinkTo(src, dst int) int {
	for i := range l.Pairs {
		p := &l.Pairs[i]
		if !p.IsCoherent() {
			continue
		}
		if p.Source.NodeID == src && p.Dest.NodeID == dst {
			return p.Source.Link
		}
		if p.Dest.NodeID == src && p.Source.NodeID == dst {
			return p.Dest.Link
		}
	}
	panic(serrors.New("no link between nodes", "src", src, "dst", dst))
}

// Adjacency is the adjacency and degree data of a graph of up to MaxNodes
// nodes.
type Adjacency = topology.Graph
