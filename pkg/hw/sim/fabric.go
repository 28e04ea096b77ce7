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
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// Fault is an injected link fault.
type Fault string

const (
	FaultNone Fault = ""
	// FaultCRC latches a CRC error and a link failure once.
	FaultCRC Fault = "crc"
	// FaultSyncFlood latches a link failure without CRC errors once.
	FaultSyncFlood Fault = "sync_flood"
	// FaultDead keeps the link failed; it carries no traffic.
	FaultDead Fault = "dead"
)

// Fabric describes a simulated system. Node 0 is the boot node.
type Fabric struct {
	Nodes  []Node  `yaml:"nodes"`
	Links  []Link  `yaml:"links,omitempty"`
	Chains []Chain `yaml:"chains,omitempty"`
}

// Node is one CPU die.
type Node struct {
	// Family is the CPU family, 0x0F or 0x10. Defaults to 0x10.
	Family   uint32 `yaml:"family,omitempty"`
	Model    uint32 `yaml:"model,omitempty"`
	Stepping uint32 `yaml:"stepping,omitempty"`
	// Cores defaults to 1.
	Cores int `yaml:"cores,omitempty"`
	// MPCap is the largest fabric the part supports: 1, 2, 4 or 8
	// (default).
	MPCap           int  `yaml:"mp_cap,omitempty"`
	MultiNode       bool `yaml:"multi_node,omitempty"`
	InternalLink    int  `yaml:"internal_link,omitempty"`
	SouthbridgeLink int  `yaml:"southbridge_link,omitempty"`
	// FreqLimitMHz is a fused link frequency limit. Zero means none.
	FreqLimitMHz int        `yaml:"freq_limit_mhz,omitempty"`
	Ports        []PortCaps `yaml:"ports,omitempty"`
}

// PortCaps overrides the reset values of one CPU link.
type PortCaps struct {
	Link int `yaml:"link"`
	// Widths in bits. Default 16, or 8 if both sublinks are wired.
	WidthIn  int `yaml:"width_in,omitempty"`
	WidthOut int `yaml:"width_out,omitempty"`
	// MaxFreqMHz bounds the advertised frequencies. Default: all.
	MaxFreqMHz  int   `yaml:"max_freq_mhz,omitempty"`
	Isochronous bool  `yaml:"isochronous,omitempty"`
	Retry       bool  `yaml:"retry,omitempty"`
	Scrambling  bool  `yaml:"scrambling,omitempty"`
	Ganged      bool  `yaml:"ganged,omitempty"`
	Fault       Fault `yaml:"fault,omitempty"`
}

// Endpoint is a link of a node.
type Endpoint struct {
	Node int `yaml:"node"`
	Link int `yaml:"link"`
}

// Link is a coherent link between two nodes.
type Link struct {
	A Endpoint `yaml:"a"`
	B Endpoint `yaml:"b"`
}

// Chain is a non-coherent chain hanging off a node link.
type Chain struct {
	Endpoint `yaml:",inline"`
	Devices  []Device `yaml:"devices"`
}

// Device is one HT tunnel or cave on a chain.
type Device struct {
	Name string `yaml:"name,omitempty"`
	// VendorDevice is the PCI vendor/device id register.
	VendorDevice uint32 `yaml:"id,omitempty"`
	// Units is the unit id count the device claims. Default 1.
	Units int `yaml:"units,omitempty"`
	// UpstreamLink is the device link facing the host, 0 or 1.
	UpstreamLink int `yaml:"upstream_link,omitempty"`
	// Widths in bits, default 8.
	WidthIn  int `yaml:"width_in,omitempty"`
	WidthOut int `yaml:"width_out,omitempty"`
	// MaxFreqMHz defaults to 1000.
	MaxFreqMHz  int  `yaml:"max_freq_mhz,omitempty"`
	Isochronous bool `yaml:"isochronous,omitempty"`
	Retry       bool `yaml:"retry,omitempty"`
	Gen3        bool `yaml:"gen3,omitempty"`
	// RefuseBUID makes the device ignore unit id assignments.
	RefuseBUID bool `yaml:"refuse_buid,omitempty"`
}

// InitDefaults fills in unset values.
func (f *Fabric) InitDefaults() {
	for i := range f.Nodes {
		n := &f.Nodes[i]
		if n.Family == 0 {
			n.Family = 0x10
		}
		if n.Cores == 0 {
			n.Cores = 1
		}
		if n.MPCap == 0 {
			n.MPCap = 8
		}
	}
	for i := range f.Chains {
		for j := range f.Chains[i].Devices {
			d := &f.Chains[i].Devices[j]
			if d.Units == 0 {
				d.Units = 1
			}
			if d.WidthIn == 0 {
				d.WidthIn = 8
			}
			if d.WidthOut == 0 {
				d.WidthOut = 8
			}
			if d.MaxFreqMHz == 0 {
				d.MaxFreqMHz = 1000
			}
		}
	}
}

func linksOf(n Node) int {
	if n.Family == 0x0F {
		return 3
	}
	return ht.MaxLinks
}

var mpCapCodes = map[int]uint32{1: 0, 2: 1, 4: 2, 8: 3}

// Validate checks the description for consistency. Defaults must have been
// applied.
func (f *Fabric) Validate() error {
	if len(f.Nodes) == 0 || len(f.Nodes) > ht.MaxNodes {
		return serrors.New("invalid node count", "nodes", len(f.Nodes))
	}
	for i, n := range f.Nodes {
		if _, ok := mpCapCodes[n.MPCap]; !ok {
			return serrors.New("invalid mp_cap", "node", i, "mp_cap", n.MPCap)
		}
		if n.Cores < 1 || n.Cores > 16 {
			return serrors.New("invalid core count", "node", i, "cores", n.Cores)
		}
		for _, p := range n.Ports {
			if p.Link < 0 || p.Link >= linksOf(n) {
				return serrors.New("invalid port link", "node", i, "link", p.Link)
			}
			for _, w := range []int{p.WidthIn, p.WidthOut} {
				if _, ok := widthCodes[w]; w != 0 && !ok {
					return serrors.New("invalid width", "node", i, "link", p.Link, "width", w)
				}
			}
		}
	}
	used := map[Endpoint]bool{}
	claim := func(e Endpoint) error {
		if e.Node < 0 || e.Node >= len(f.Nodes) {
			return serrors.New("unknown node", "node", e.Node)
		}
		if e.Link < 0 || e.Link >= linksOf(f.Nodes[e.Node]) {
			return serrors.New("invalid link", "node", e.Node, "link", e.Link)
		}
		if used[e] {
			return serrors.New("link wired twice", "node", e.Node, "link", e.Link)
		}
		used[e] = true
		return nil
	}
	for _, l := range f.Links {
		if l.A.Node == l.B.Node {
			return serrors.New("link loops back", "node", l.A.Node)
		}
		if err := claim(l.A); err != nil {
			return err
		}
		if err := claim(l.B); err != nil {
			return err
		}
	}
	for _, c := range f.Chains {
		if err := claim(c.Endpoint); err != nil {
			return err
		}
		for i, d := range c.Devices {
			if d.Units < 1 || d.Units > 31 {
				return serrors.New("invalid unit count", "node", c.Node, "link", c.Link,
					"device", i, "units", d.Units)
			}
			if d.UpstreamLink != 0 && d.UpstreamLink != 1 {
				return serrors.New("invalid upstream link", "node", c.Node, "link", c.Link,
					"device", i)
			}
			for _, w := range []int{d.WidthIn, d.WidthOut} {
				if _, ok := widthCodes[w]; !ok {
					return serrors.New("invalid width", "node", c.Node, "link", c.Link,
						"device", i, "width", w)
				}
			}
		}
	}
	return nil
}

// Parse decodes a fabric description from YAML, applies defaults and
// validates it.
func Parse(raw []byte) (*Fabric, error) {
	var f Fabric
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, serrors.Wrap("parsing fabric description", err)
	}
	f.InitDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads a fabric description file.
func Load(fs afero.Fs, path string) (*Fabric, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, serrors.Wrap("reading fabric description", err, "file", path)
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, serrors.Wrap("loading fabric description", err, "file", path)
	}
	return f, nil
}

// Wire builds a fabric of identical nodes joined by edges. Each node uses
// its links in ascending order as its edges are listed.
func Wire(nodes int, edges [][2]int) Fabric {
	f := Fabric{Nodes: make([]Node, nodes)}
	next := make([]int, nodes)
	for _, e := range edges {
		a := Endpoint{Node: e[0], Link: next[e[0]]}
		b := Endpoint{Node: e[1], Link: next[e[1]]}
		next[e[0]]++
		next[e[1]]++
		f.Links = append(f.Links, Link{A: a, B: b})
	}
	return f
}
