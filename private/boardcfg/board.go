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

package boardcfg

import (
	"github.com/spf13/afero"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

type linkKey struct{ node, link int }

type chainKey struct{ node, link, depth int }

type pairKey struct{ nodeA, linkA, nodeB, linkB int }

type devicePortKey struct{ node, link, depth, side int }

// Board converts the description into board hooks. Only hooks the
// description has entries for are set. The topology library, if any, is
// read from fs.
func (cfg *Config) Board(fs afero.Fs) (*ht.Board, error) {
	b := &ht.Board{
		LinkSpeedCeiling: cfg.Links.SpeedCeilingMHz,
		AutoBusStart:     cfg.Bus.Start,
		AutoBusMax:       cfg.Bus.Max,
		AutoBusIncrement: cfg.Bus.Increment,
		IOMMU:            cfg.Links.IOMMU,
		MaxLinkPairs:     cfg.Links.MaxPairs,
	}
	refs, err := cfg.LoadTopologies(fs)
	if err != nil {
		return nil, serrors.Wrap("building board", err)
	}
	b.Topologies = refs

	if len(cfg.Ignore) != 0 {
		ignored := map[linkKey]bool{}
		for _, l := range cfg.Ignore {
			ignored[linkKey{l.Node, l.Link}] = true
		}
		b.IgnoreLink = func(node, link int) bool { return ignored[linkKey{node, link}] }
	}
	if len(cfg.BusOverrides) != 0 {
		overrides := map[linkKey]BusOverride{}
		for _, o := range cfg.BusOverrides {
			overrides[linkKey{o.Node, o.Link}] = o
		}
		b.OverrideBusNumbers = func(node, link int) (int, int, bool) {
			o, ok := overrides[linkKey{node, link}]
			return o.Secondary, o.Subordinate, ok
		}
	}
	if len(cfg.ManualChains) != 0 {
		chains := map[linkKey]*ht.ManualChain{}
		for _, m := range cfg.ManualChains {
			chains[linkKey{m.Node, m.Link}] = m.chain()
		}
		b.ManualChain = func(node, link int) (*ht.ManualChain, bool) {
			m, ok := chains[linkKey{node, link}]
			return m, ok
		}
	}
	if len(cfg.DeviceOverrides) != 0 {
		overrides := map[chainKey]DeviceOverride{}
		for _, o := range cfg.DeviceOverrides {
			overrides[chainKey{o.Node, o.Link, o.Depth}] = o
		}
		b.DeviceCapOverride = func(dev ht.DeviceInfo, caps *ht.LinkCaps) {
			o, ok := overrides[chainKey{dev.HostNode, dev.HostLink, dev.Depth}]
			if !ok {
				return
			}
			if o.WidthIn != 0 {
				caps.WidthIn = ht.Width(o.WidthIn)
			}
			if o.WidthOut != 0 {
				caps.WidthOut = ht.Width(o.WidthOut)
			}
			if o.MaxFreqMHz != 0 {
				caps.Freq &= ht.FreqMaskUpToMHz(o.MaxFreqMHz)
			}
		}
	}
	if len(cfg.CPULimits) != 0 {
		limits := map[pairKey]Limits{}
		for _, l := range cfg.CPULimits {
			limits[pairKey{l.NodeA, l.LinkA, l.NodeB, l.LinkB}] = l.Limits
		}
		b.CPUPairLimits = func(nodeA, linkA, nodeB, linkB int, dst *ht.PairLimits) {
			if l, ok := limits[pairKey{nodeA, linkA, nodeB, linkB}]; ok {
				l.apply(dst)
			}
		}
	}
	if len(cfg.ChainLimits) != 0 {
		limits := map[chainKey]Limits{}
		for _, l := range cfg.ChainLimits {
			limits[chainKey{l.Node, l.Link, l.Depth}] = l.Limits
		}
		b.IOChainLimits = func(node, link, depth int, dst *ht.PairLimits) {
			if l, ok := limits[chainKey{node, link, depth}]; ok {
				l.apply(dst)
			}
		}
	}
	if len(cfg.RegangVetoes) != 0 {
		vetoes := map[pairKey]bool{}
		for _, v := range cfg.RegangVetoes {
			vetoes[pairKey{v.NodeA, v.LinkA, v.NodeB, v.LinkB}] = true
			vetoes[pairKey{v.NodeB, v.LinkB, v.NodeA, v.LinkA}] = true
		}
		b.SkipRegang = func(nodeA, linkA, nodeB, linkB int) bool {
			return vetoes[pairKey{nodeA, linkA, nodeB, linkB}]
		}
	}
	if cfg.Links.CustomTrafficDistribution {
		b.CustomizeTrafficDistribution = func() bool { return true }
	}
	if len(cfg.Links.CustomBuffers) != 0 {
		custom := map[int]bool{}
		for _, n := range cfg.Links.CustomBuffers {
			custom[n] = true
		}
		b.CustomizeBuffers = func(node int) bool { return custom[node] }
	}
	if len(cfg.CPUPorts) != 0 {
		ports := map[linkKey]PortSetting{}
		for _, p := range cfg.CPUPorts {
			ports[linkKey{p.Node, p.Link}] = p.PortSetting
		}
		b.OverrideCPUPort = func(node, link int, s *ht.PortSetting) {
			if p, ok := ports[linkKey{node, link}]; ok {
				p.apply(s)
			}
		}
	}
	if len(cfg.DevicePorts) != 0 {
		ports := map[devicePortKey]PortSetting{}
		for _, p := range cfg.DevicePorts {
			ports[devicePortKey{p.Node, p.Link, p.Depth, p.Side}] = p.PortSetting
		}
		b.OverrideDevicePort = func(node, link, depth, side int, s *ht.PortSetting) {
			if p, ok := ports[devicePortKey{node, link, depth, side}]; ok {
				p.apply(s)
			}
		}
	}
	return b, nil
}

func (m ManualChain) chain() *ht.ManualChain {
	c := &ht.ManualChain{}
	for _, a := range m.Assign {
		c.Assignments = append(c.Assignments, ht.BUIDAssignment{Device: a.Device, BUID: a.BUID})
	}
	for _, h := range m.Hops {
		hop := ht.ChainHop{Device: h.Device}
		if h.UpstreamLink != nil {
			hop.OverrideOrientation = true
			hop.UpstreamLink = *h.UpstreamLink
		}
		c.Hops = append(c.Hops, hop)
	}
	return c
}
