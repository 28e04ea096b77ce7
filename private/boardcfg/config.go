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

// Package boardcfg describes a board in TOML and turns the description into
// the hooks of an ht.Board.
//
// Every table is optional. An empty file yields the default policy.
package boardcfg

import (
	"io"

	"github.com/spf13/afero"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/private/serrors"
	"github.com/htfabric/htinit/private/config"
)

var _ config.Config = (*Config)(nil)

// Config is a board description.
type Config struct {
	// TopologyLibrary is a YAML reference topology library replacing the
	// built-in one. Relative paths are resolved by the file system passed
	// to Board.
	TopologyLibrary string `toml:"topology_library,omitempty"`
	Bus             Bus    `toml:"bus,omitempty"`
	Links           Links  `toml:"links,omitempty"`

	Ignore          []LinkRef        `toml:"ignore,omitempty"`
	BusOverrides    []BusOverride    `toml:"bus_override,omitempty"`
	ManualChains    []ManualChain    `toml:"manual_chain,omitempty"`
	DeviceOverrides []DeviceOverride `toml:"device_override,omitempty"`
	CPULimits       []CPULimit       `toml:"cpu_limit,omitempty"`
	ChainLimits     []ChainLimit     `toml:"chain_limit,omitempty"`
	RegangVetoes    []CPULink        `toml:"regang_veto,omitempty"`
	CPUPorts        []CPUPort        `toml:"cpu_port,omitempty"`
	DevicePorts     []DevicePort     `toml:"device_port,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(&cfg.Bus, &cfg.Links)
}

func (cfg *Config) Validate() error {
	if err := config.ValidateAll(&cfg.Bus, &cfg.Links); err != nil {
		return err
	}
	var errs serrors.List
	for i, l := range cfg.Ignore {
		if err := l.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid ignore entry", err, "index", i))
		}
	}
	for i, o := range cfg.BusOverrides {
		if err := o.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid bus override", err, "index", i))
		}
	}
	for i, m := range cfg.ManualChains {
		if err := m.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid manual chain", err, "index", i))
		}
	}
	for i, o := range cfg.DeviceOverrides {
		if err := o.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid device override", err, "index", i))
		}
	}
	for i, l := range cfg.CPULimits {
		if err := l.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid cpu limit", err, "index", i))
		}
	}
	for i, l := range cfg.ChainLimits {
		if err := l.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid chain limit", err, "index", i))
		}
	}
	for i, v := range cfg.RegangVetoes {
		if err := v.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid regang veto", err, "index", i))
		}
	}
	for i, p := range cfg.CPUPorts {
		if err := p.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid cpu port", err, "index", i))
		}
	}
	for i, p := range cfg.DevicePorts {
		if err := p.validate(); err != nil {
			errs = append(errs, serrors.Wrap("invalid device port", err, "index", i))
		}
	}
	return errs.ToError()
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, boardSample)
	config.WriteSample(dst, path, ctx, &cfg.Bus, &cfg.Links)
	config.WriteString(dst, listsSample)
}

// Load reads, defaults and validates the board description in file.
func Load(fs afero.Fs, file string) (*Config, error) {
	var cfg Config
	if err := config.Load(fs, file, &cfg); err != nil {
		return nil, serrors.Wrap("loading board description", err)
	}
	return &cfg, nil
}

// Bus is the bus number allocation of automatically numbered chains.
type Bus struct {
	Start     int `toml:"start,omitempty"`
	Max       int `toml:"max,omitempty"`
	Increment int `toml:"increment,omitempty"`
}

func (cfg *Bus) InitDefaults() {
	if cfg.Max == 0 {
		cfg.Max = ht.DefaultAutoBusMax
	}
	if cfg.Increment == 0 {
		cfg.Increment = ht.DefaultAutoBusIncrement
	}
}

func (cfg *Bus) Validate() error {
	if cfg.Start < 0 || cfg.Start > cfg.Max || cfg.Max > 0xFF {
		return serrors.New("invalid bus range", "start", cfg.Start, "max", cfg.Max)
	}
	if cfg.Increment < 1 || cfg.Increment > 0x100 {
		return serrors.New("invalid bus increment", "increment", cfg.Increment)
	}
	return nil
}

func (cfg *Bus) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, busSample)
}

func (cfg *Bus) ConfigName() string {
	return "bus"
}

// Links holds the fabric wide link policy.
type Links struct {
	// MaxPairs bounds the port list. Zero selects the default.
	MaxPairs int `toml:"max_pairs,omitempty"`
	// SpeedCeilingMHz caps every link. Zero means no cap.
	SpeedCeilingMHz int  `toml:"speed_ceiling_mhz,omitempty"`
	IOMMU           bool `toml:"iommu,omitempty"`
	// CustomTrafficDistribution tells that the board firmware distributes
	// traffic itself.
	CustomTrafficDistribution bool `toml:"custom_traffic_distribution,omitempty"`
	// CustomBuffers lists the nodes whose buffers the firmware tunes itself.
	CustomBuffers []int `toml:"custom_buffers,omitempty"`
}

func (cfg *Links) InitDefaults() {
	if cfg.MaxPairs == 0 {
		cfg.MaxPairs = ht.DefaultMaxLinkPairs
	}
}

func (cfg *Links) Validate() error {
	if cfg.MaxPairs < 1 {
		return serrors.New("invalid port list capacity", "max_pairs", cfg.MaxPairs)
	}
	if cfg.SpeedCeilingMHz < 0 {
		return serrors.New("invalid speed ceiling", "speed_ceiling_mhz", cfg.SpeedCeilingMHz)
	}
	if cfg.SpeedCeilingMHz != 0 && ht.FreqMaskUpToMHz(cfg.SpeedCeilingMHz) == 0 {
		return serrors.New("speed ceiling below the slowest link clock",
			"speed_ceiling_mhz", cfg.SpeedCeilingMHz)
	}
	for _, n := range cfg.CustomBuffers {
		if err := checkNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Links) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, linksSample)
}

func (cfg *Links) ConfigName() string {
	return "links"
}

// LinkRef names a link of a node.
type LinkRef struct {
	Node int `toml:"node"`
	Link int `toml:"link"`
}

func (l LinkRef) validate() error {
	if err := checkNode(l.Node); err != nil {
		return err
	}
	return checkLink(l.Link)
}

// CPULink names both ends of a CPU to CPU link.
type CPULink struct {
	NodeA int `toml:"node_a"`
	LinkA int `toml:"link_a"`
	NodeB int `toml:"node_b"`
	LinkB int `toml:"link_b"`
}

func (l CPULink) validate() error {
	if err := (LinkRef{Node: l.NodeA, Link: l.LinkA}).validate(); err != nil {
		return err
	}
	return LinkRef{Node: l.NodeB, Link: l.LinkB}.validate()
}

// BusOverride fixes the bus range of the chain on a link.
type BusOverride struct {
	LinkRef
	Secondary   int `toml:"secondary"`
	Subordinate int `toml:"subordinate"`
}

func (o BusOverride) validate() error {
	if err := o.LinkRef.validate(); err != nil {
		return err
	}
	if o.Secondary < 0 || o.Secondary > o.Subordinate || o.Subordinate > 0xFF {
		return serrors.New("invalid bus range", "secondary", o.Secondary,
			"subordinate", o.Subordinate)
	}
	return nil
}

// ManualChain describes the chain on a link instead of walking it.
type ManualChain struct {
	LinkRef
	Assign []Assignment `toml:"assign,omitempty"`
	Hops   []Hop        `toml:"hop"`
}

// Assignment gives the device answering at Device the unit id BUID.
type Assignment struct {
	Device int `toml:"device"`
	BUID   int `toml:"buid"`
}

// Hop is one device of a manual chain, host outwards. UpstreamLink, if set,
// overrides the orientation the device reports.
type Hop struct {
	Device       int  `toml:"device"`
	UpstreamLink *int `toml:"upstream_link,omitempty"`
}

func (m ManualChain) validate() error {
	if err := m.LinkRef.validate(); err != nil {
		return err
	}
	if len(m.Hops) == 0 {
		return serrors.New("manual chain without hops")
	}
	for _, a := range m.Assign {
		if err := checkDevice(a.Device); err != nil {
			return err
		}
		if a.BUID < 1 || a.BUID > 31 {
			return serrors.New("invalid unit id", "buid", a.BUID)
		}
	}
	for _, h := range m.Hops {
		if err := checkDevice(h.Device); err != nil {
			return err
		}
		if h.UpstreamLink != nil && *h.UpstreamLink != 0 && *h.UpstreamLink != 1 {
			return serrors.New("invalid upstream link", "upstream_link", *h.UpstreamLink)
		}
	}
	return nil
}

// DeviceOverride corrects what the device at depth of a chain reports.
// Zero values keep the hardware value.
type DeviceOverride struct {
	LinkRef
	Depth      int `toml:"depth"`
	WidthIn    int `toml:"width_in,omitempty"`
	WidthOut   int `toml:"width_out,omitempty"`
	MaxFreqMHz int `toml:"max_freq_mhz,omitempty"`
}

func (o DeviceOverride) validate() error {
	if err := o.LinkRef.validate(); err != nil {
		return err
	}
	if o.Depth < 0 {
		return serrors.New("invalid depth", "depth", o.Depth)
	}
	return checkWidths(o.WidthIn, o.WidthOut)
}

// Limits narrows a link. Down is the direction away from the boot node.
// Zero values keep the default.
type Limits struct {
	Down       int `toml:"down,omitempty"`
	Up         int `toml:"up,omitempty"`
	MaxFreqMHz int `toml:"max_freq_mhz,omitempty"`
}

func (l Limits) apply(dst *ht.PairLimits) {
	if l.Down != 0 {
		dst.Down = ht.Width(l.Down)
	}
	if l.Up != 0 {
		dst.Up = ht.Width(l.Up)
	}
	if l.MaxFreqMHz != 0 {
		dst.Freq &= ht.FreqMaskUpToMHz(l.MaxFreqMHz)
	}
}

// CPULimit narrows a CPU to CPU link.
type CPULimit struct {
	CPULink
	Limits
}

func (l CPULimit) validate() error {
	if err := l.CPULink.validate(); err != nil {
		return err
	}
	return checkWidths(l.Down, l.Up)
}

// ChainLimit narrows the link above the device at depth of a chain.
type ChainLimit struct {
	LinkRef
	Depth int `toml:"depth"`
	Limits
}

func (l ChainLimit) validate() error {
	if err := l.LinkRef.validate(); err != nil {
		return err
	}
	return checkWidths(l.Down, l.Up)
}

// PortSetting replaces the selected width and frequency of a port. Zero
// values keep the selection.
type PortSetting struct {
	WidthIn  int `toml:"width_in,omitempty"`
	WidthOut int `toml:"width_out,omitempty"`
	FreqMHz  int `toml:"freq_mhz,omitempty"`
}

func (p PortSetting) validate() error {
	if err := checkWidths(p.WidthIn, p.WidthOut); err != nil {
		return err
	}
	if _, ok := ht.FrequencyFromMHz(p.FreqMHz); p.FreqMHz != 0 && !ok {
		return serrors.New("invalid link clock", "freq_mhz", p.FreqMHz)
	}
	return nil
}

func (p PortSetting) apply(dst *ht.PortSetting) {
	if p.WidthIn != 0 {
		dst.WidthIn = ht.Width(p.WidthIn)
	}
	if p.WidthOut != 0 {
		dst.WidthOut = ht.Width(p.WidthOut)
	}
	if f, ok := ht.FrequencyFromMHz(p.FreqMHz); ok {
		dst.Freq = f
	}
}

// CPUPort overrides the final setting of a CPU port.
type CPUPort struct {
	LinkRef
	PortSetting
}

func (p CPUPort) validate() error {
	if err := p.LinkRef.validate(); err != nil {
		return err
	}
	return p.PortSetting.validate()
}

// DevicePort overrides the final setting of side Side of the device at
// depth of a chain.
type DevicePort struct {
	LinkRef
	Depth int `toml:"depth"`
	Side  int `toml:"side"`
	PortSetting
}

func (p DevicePort) validate() error {
	if err := p.LinkRef.validate(); err != nil {
		return err
	}
	if p.Side != 0 && p.Side != 1 {
		return serrors.New("invalid device side", "side", p.Side)
	}
	return p.PortSetting.validate()
}

func checkNode(n int) error {
	if n < 0 || n >= ht.MaxNodes {
		return serrors.New("node out of range", "node", n)
	}
	return nil
}

func checkLink(l int) error {
	if l < 0 || l >= ht.MaxLinks {
		return serrors.New("link out of range", "link", l)
	}
	return nil
}

func checkDevice(d int) error {
	if d < 0 || d > 31 {
		return serrors.New("device out of range", "device", d)
	}
	return nil
}

func checkWidths(ws ...int) error {
	for _, w := range ws {
		if w != 0 && !ht.Width(w).Valid() {
			return serrors.New("invalid link width", "width", w)
		}
	}
	return nil
}

// LoadTopologies returns the reference library named by the description,
// or nil for the built-in one.
func (cfg *Config) LoadTopologies(fs afero.Fs) ([]topology.Reference, error) {
	if cfg.TopologyLibrary == "" {
		return nil, nil
	}
	return topology.Load(fs, cfg.TopologyLibrary)
}
