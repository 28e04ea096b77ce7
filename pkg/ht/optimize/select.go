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

package optimize

import (
	"github.com/htfabric/htinit/pkg/ht"
)

// selectLinks picks width and frequency of every link within the limits of
// both ends and the board.
func selectLinks(st *ht.State) {
	b := st.Board
	ceiling := ht.FreqMaskUpToMHz(b.LinkSpeedCeiling)
	for i := range st.Ports.Pairs {
		lp := &st.Ports.Pairs[i]
		src, dst := &lp.Source, &lp.Dest
		lim := ht.PairLimits{Down: ht.DefaultWidthLimit, Up: ht.DefaultWidthLimit,
			Freq: ht.FreqMaskAll}
		switch {
		case lp.IsCoherent():
			if b.CPUPairLimits != nil {
				b.CPUPairLimits(src.NodeID, src.Link, dst.NodeID, dst.Link, &lim)
			}
		case b.IOChainLimits != nil:
			b.IOChainLimits(dst.NodeID, dst.HostLink, dst.HostDepth, &lim)
		}

		mask := src.FreqCap & dst.FreqCap & lim.Freq & ceiling
		freq, ok := mask.Highest()
		if !ok {
			st.Raise(ht.ClassWarning, ht.OptNoCommonFrequency, "node", src.NodeID,
				"link", src.Link, "peer", dst.NodeID, "depth", dst.HostDepth)
			freq, mask = ht.Freq200, ht.FreqMask(1)<<ht.Freq200
		}
		src.CompositeFreqCap, dst.CompositeFreqCap = mask, mask
		src.SelFreq, dst.SelFreq = freq, freq

		down := ht.MinWidth(src.WidthOutCap, dst.WidthInCap, lim.Down)
		src.SelWidthOut, dst.SelWidthIn = down, down
		up := ht.MinWidth(src.WidthInCap, dst.WidthOutCap, lim.Up)
		src.SelWidthIn, dst.SelWidthOut = up, up
	}
}

// legalRatios lists, for the faster of two sublinks of one link, the
// frequencies the slower one may run at.
var legalRatios = map[ht.Frequency][]ht.Frequency{
	ht.Freq2400: {ht.Freq1200, ht.Freq600, ht.Freq400},
	ht.Freq2000: {ht.Freq1000},
	ht.Freq1600: {ht.Freq800, ht.Freq400, ht.Freq200},
	ht.Freq1200: {ht.Freq600, ht.Freq200},
	ht.Freq800:  {ht.Freq400, ht.Freq200},
	ht.Freq400:  {ht.Freq200},
}

// LegalRatio reports whether the two sublinks of a link may run at a and b.
func LegalRatio(a, b ht.Frequency) bool {
	if a == b {
		return true
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	for _, f := range legalRatios[hi] {
		if f == lo {
			return true
		}
	}
	return false
}

// fixSublinks slows down the faster sublink of a split link until both
// sublinks run at a legal ratio. Every round removes a frequency from a
// mask, so it ends.
func fixSublinks(st *ht.State) {
	pairs := st.Ports.Pairs
	for changed := true; changed; {
		changed = false
		for i := range pairs {
			for s := 0; s < 2; s++ {
				p := pairs[i].Side(s)
				if p.Type != ht.PortCPU || !ht.IsSublink1(p.Link) {
					continue
				}
				j, q := sibling(pairs, p)
				if q == nil || LegalRatio(p.SelFreq, q.SelFreq) {
					continue
				}
				if p.SelFreq > q.SelFreq {
					downgrade(st, &pairs[i])
				} else {
					downgrade(st, &pairs[j])
				}
				changed = true
			}
		}
	}
}

// sibling finds the sublink 0 port on the node and base link of p.
func sibling(pairs []ht.LinkPair, p *ht.Port) (int, *ht.Port) {
	for i := range pairs {
		for s := 0; s < 2; s++ {
			q := pairs[i].Side(s)
			if q.Type == ht.PortCPU && q.NodeID == p.NodeID && q.Link == ht.BaseLink(p.Link) {
				return i, q
			}
		}
	}
	return -1, nil
}

// downgrade moves a link to the next lower frequency both ends can run.
func downgrade(st *ht.State, lp *ht.LinkPair) {
	from := lp.Source.SelFreq
	mask := lp.Source.CompositeFreqCap.Without(from)
	freq, ok := mask.Highest()
	if !ok {
		freq, mask = ht.Freq200, ht.FreqMask(1)<<ht.Freq200
	}
	lp.Source.CompositeFreqCap, lp.Dest.CompositeFreqCap = mask, mask
	lp.Source.SelFreq, lp.Dest.SelFreq = freq, freq
	st.Logger.Debug("Sublink frequency lowered", "node", lp.Source.NodeID,
		"link", lp.Source.Link, "from", from, "to", freq)
}

// apply gives the board the last word and programs every port.
func apply(st *ht.State) {
	b := st.Board
	for i := range st.Ports.Pairs {
		for s := 0; s < 2; s++ {
			p := st.Ports.Pairs[i].Side(s)
			set := ht.PortSetting{WidthIn: p.SelWidthIn, WidthOut: p.SelWidthOut, Freq: p.SelFreq}
			switch {
			case p.Type == ht.PortCPU && b.OverrideCPUPort != nil:
				b.OverrideCPUPort(p.NodeID, p.Link, &set)
			case p.Type == ht.PortIO && b.OverrideDevicePort != nil:
				b.OverrideDevicePort(p.NodeID, p.HostLink, p.HostDepth, p.Link, &set)
			}
			p.SelWidthIn, p.SelWidthOut, p.SelFreq = set.WidthIn, set.WidthOut, set.Freq
		}
	}
	st.NB.ApplyLinkData(st)
}
