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

// Package optimize negotiates the width and frequency of every link found by
// discovery and enumeration, and programs the result.
package optimize

import (
	"github.com/htfabric/htinit/pkg/ht"
)

// Run optimizes every link in st.Ports and tunes the nodes for the result.
func Run(st *ht.State) {
	gather(st)
	regang(st)
	isochronous(st)
	selectLinks(st)
	fixSublinks(st)
	apply(st)
	distributeTraffic(st)
	tuneBuffers(st)
	st.Logger.Info("Links optimized", "links", st.Ports.Len())
}

// gather reads the capabilities of both ends of every link and lets the
// board correct what I/O devices report.
func gather(st *ht.State) {
	st.NB.GatherLinkData(st)
	hook := st.Board.DeviceCapOverride
	if hook == nil {
		return
	}
	for i := range st.Ports.Pairs {
		for s := 0; s < 2; s++ {
			p := st.Ports.Pairs[i].Side(s)
			if p.Type != ht.PortIO {
				continue
			}
			dev := p.Pointer.Base()
			caps := ht.LinkCaps{
				WidthIn:  p.WidthInCap,
				WidthOut: p.WidthOutCap,
				Freq:     p.FreqCap,
				Features: p.FeatureCap,
			}
			hook(ht.DeviceInfo{
				HostNode:  p.NodeID,
				HostLink:  p.HostLink,
				Depth:     p.HostDepth,
				Address:   dev,
				VendorDev: st.Access.Read(dev),
				Link:      p.Link,
			}, &caps)
			p.WidthInCap, p.WidthOutCap = caps.WidthIn, caps.WidthOut
			p.FreqCap, p.FeatureCap = caps.Freq, caps.Features
		}
	}
}

// regang merges the two sublinks joining the same pair of nodes through the
// same base links into one link of twice the width.
func regang(st *ht.State) {
	pairs := &st.Ports
	for i := 0; i < pairs.Len(); i++ {
		a := &pairs.Pairs[i]
		a.Source.SelRegang, a.Dest.SelRegang = false, false
		if !a.IsCoherent() || !sameSublink(a) {
			continue
		}
		for j := i + 1; j < pairs.Len(); j++ {
			b := &pairs.Pairs[j]
			if !b.IsCoherent() || !sameSublink(b) ||
				a.Source.NodeID != b.Source.NodeID || a.Dest.NodeID != b.Dest.NodeID ||
				ht.BaseLink(a.Source.Link) != ht.BaseLink(b.Source.Link) ||
				ht.BaseLink(a.Dest.Link) != ht.BaseLink(b.Dest.Link) {
				continue
			}
			srcLink, dstLink := ht.BaseLink(a.Source.Link), ht.BaseLink(a.Dest.Link)
			if veto := st.Board.SkipRegang; veto != nil &&
				veto(a.Source.NodeID, srcLink, a.Dest.NodeID, dstLink) {
				continue
			}
			for _, p := range []*ht.Port{&a.Source, &a.Dest} {
				p.SelRegang = true
				p.WidthInCap, p.WidthOutCap = ht.Width16, ht.Width16
			}
			a.Source.Link, a.Dest.Link = srcLink, dstLink
			st.Logger.Debug("Sublinks reganged", "node", a.Source.NodeID, "link", srcLink,
				"peer", a.Dest.NodeID, "peer_link", dstLink)
			pairs.Remove(j)
			break
		}
	}
}

// sameSublink reports whether both ends of a pair use the same sublink.
// Crossed wiring, sublink 0 to sublink 1, cannot be ganged.
func sameSublink(lp *ht.LinkPair) bool {
	return ht.IsSublink1(lp.Source.Link) == ht.IsSublink1(lp.Dest.Link)
}

// isochronous marks the links that carry isochronous traffic. With an IOMMU
// every link does as soon as one I/O link can.
func isochronous(st *ht.State) {
	if !st.NB.Isochronous() {
		return
	}
	capable := false
	for i := range st.Ports.Pairs {
		lp := &st.Ports.Pairs[i]
		if lp.IsCoherent() {
			continue
		}
		if lp.Source.FeatureCap&ht.FeatureIsochronous != 0 &&
			lp.Dest.FeatureCap&ht.FeatureIsochronous != 0 {
			lp.Source.Isochronous, lp.Dest.Isochronous = true, true
			capable = true
		}
	}
	if !capable || !st.Board.IOMMU {
		return
	}
	for i := range st.Ports.Pairs {
		lp := &st.Ports.Pairs[i]
		lp.Source.Isochronous, lp.Dest.Isochronous = true, true
	}
}

// distributeTraffic spreads the traffic of a two node fabric over all links
// between the nodes.
func distributeTraffic(st *ht.State) {
	if hook := st.Board.CustomizeTrafficDistribution; hook != nil && hook() {
		return
	}
	if st.NodeCount() != 2 {
		return
	}
	var links01, links10 uint32
	n := 0
	for i := range st.Ports.Pairs {
		lp := &st.Ports.Pairs[i]
		if !lp.IsCoherent() {
			continue
		}
		links01 |= 1 << lp.Source.Link
		links10 |= 1 << lp.Dest.Link
		n++
	}
	if n <= 1 {
		return
	}
	st.NB.WriteTrafficDistribution(links01, links10)
	st.Logger.Debug("Traffic distribution programmed", "links", n)
}

func tuneBuffers(st *ht.State) {
	for node := 0; node <= st.NodesDiscovered; node++ {
		if hook := st.Board.CustomizeBuffers; hook != nil && hook(node) {
			continue
		}
		st.NB.TuneBuffers(node, st)
	}
}
