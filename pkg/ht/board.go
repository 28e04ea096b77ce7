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

import (
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/hw"
)

// Default bus allocation for automatically numbered chains.
const (
	DefaultAutoBusStart     = 0x00
	DefaultAutoBusMax       = 0xFF
	DefaultAutoBusIncrement = 0x20
	// DefaultWidthLimit is the width cap applied when no limit hook narrows
	// it.
	DefaultWidthLimit = Width16
)

// BUIDAssignment gives the device answering at Device the unit id BUID.
type BUIDAssignment struct {
	Device int
	BUID   int
}

// ChainHop is one device of a manually described chain, ordered from the
// host outwards. If OverrideOrientation is set, UpstreamLink names the device
// link facing the host instead of what the device reports.
type ChainHop struct {
	Device              int
	OverrideOrientation bool
	UpstreamLink        int
}

// ManualChain replaces automatic enumeration of one chain.
type ManualChain struct {
	Assignments []BUIDAssignment
	Hops        []ChainHop
}

// DeviceInfo identifies an I/O device to board hooks.
type DeviceInfo struct {
	HostNode  int
	HostLink  int
	Depth     int
	Address   hw.Address
	VendorDev uint32
	// Link is the device side link (0 or 1).
	Link int
}

// LinkCaps is the capability part of a link parameter record.
type LinkCaps struct {
	WidthIn  Width
	WidthOut Width
	Freq     FreqMask
	Features Feature
}

// PairLimits narrows a CPU to CPU link. Down is the A to B direction.
type PairLimits struct {
	Down Width
	Up   Width
	Freq FreqMask
}

// PortSetting is the final width and frequency of one port.
type PortSetting struct {
	WidthIn  Width
	WidthOut Width
	Freq     Frequency
}

// Board carries the platform policy. Every hook is optional; a nil hook
// selects the default behaviour documented on it.
type Board struct {
	// Topologies replaces the built-in reference library.
	Topologies []topology.Reference
	// LinkSpeedCeiling caps every link, in MHz. Zero means none.
	LinkSpeedCeiling int
	// Bus numbers handed out to automatically numbered chains. Each chain
	// consumes AutoBusIncrement buses starting at AutoBusStart; no chain may
	// reach past AutoBusMax.
	AutoBusStart     int
	AutoBusMax       int
	AutoBusIncrement int
	// IOMMU forces isochronous mode on every link once any I/O link can do
	// it.
	IOMMU bool
	// MaxLinkPairs bounds the port list. Zero selects DefaultMaxLinkPairs.
	MaxLinkPairs int

	// IgnoreLink hides a link from discovery and enumeration. A coherent
	// link must be hidden at both ends. Default: no link is ignored.
	IgnoreLink func(node, link int) bool
	// OverrideBusNumbers fixes the bus range of a chain. Default: the auto
	// cursor.
	OverrideBusNumbers func(node, link int) (sec, sub int, ok bool)
	// ManualChain describes a chain explicitly. Default: automatic
	// enumeration.
	ManualChain func(node, link int) (*ManualChain, bool)
	// DeviceCapOverride edits what an I/O device reports. Default: use the
	// hardware values.
	DeviceCapOverride func(dev DeviceInfo, caps *LinkCaps)
	// CPUPairLimits narrows a CPU to CPU link. Default: 16 bits, no
	// frequency limit.
	CPUPairLimits func(nodeA, linkA, nodeB, linkB int, l *PairLimits)
	// IOChainLimits narrows the link above the device at depth of a chain.
	// Default: 16 bits, no frequency limit.
	IOChainLimits func(hostNode, hostLink, depth int, l *PairLimits)
	// SkipRegang vetoes merging the sublinks between two nodes. Default:
	// merge.
	SkipRegang func(nodeA, linkA, nodeB, linkB int) bool
	// CustomizeTrafficDistribution returns true if the board programmed
	// traffic distribution itself.
	CustomizeTrafficDistribution func() bool
	// CustomizeBuffers returns true if the board tuned the buffers of node
	// itself.
	CustomizeBuffers func(node int) bool
	// OverrideCPUPort and OverrideDevicePort get the last word on a port
	// before it is written.
	OverrideCPUPort    func(node, link int, s *PortSetting)
	OverrideDevicePort func(hostNode, hostLink, depth, link int, s *PortSetting)
	// Event is told about every event raised.
	Event func(Event)
}

// WithDefaults returns a copy of b with unset static fields defaulted. A nil
// board yields the default board.
func (b *Board) WithDefaults() *Board {
	var r Board
	if b != nil {
		r = *b
	}
	if r.MaxLinkPairs == 0 {
		r.MaxLinkPairs = DefaultMaxLinkPairs
	}
	if r.AutoBusMax == 0 {
		r.AutoBusMax = DefaultAutoBusMax
	}
	if r.AutoBusIncrement == 0 {
		r.AutoBusIncrement = DefaultAutoBusIncrement
	}
	if len(r.Topologies) == 0 {
		r.Topologies = topology.Default()
	}
	return &r
}

// Ignored applies IgnoreLink.
func (b *Board) Ignored(node, link int) bool {
	return b.IgnoreLink != nil && b.IgnoreLink(node, link)
}
