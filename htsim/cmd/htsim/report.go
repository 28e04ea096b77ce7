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

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw/sim"
)

// Report is what the bring-up left behind in the simulated hardware.
type Report struct {
	Family   string         `json:"family" yaml:"family"`
	Nodes    int            `json:"nodes" yaml:"nodes"`
	Topology string         `json:"topology,omitempty" yaml:"topology,omitempty"`
	Links    []LinkReport   `json:"links" yaml:"links"`
	Routes   []RouteReport  `json:"routes" yaml:"routes"`
	Devices  []DeviceReport `json:"devices,omitempty" yaml:"devices,omitempty"`
	Events   []EventReport  `json:"events,omitempty" yaml:"events,omitempty"`
}

// LinkReport is one optimized link pair.
type LinkReport struct {
	Source   string `json:"source" yaml:"source"`
	Dest     string `json:"dest" yaml:"dest"`
	Coherent bool   `json:"coherent" yaml:"coherent"`
	WidthIn  int    `json:"width_in" yaml:"width_in"`
	WidthOut int    `json:"width_out" yaml:"width_out"`
	FreqMHz  int    `json:"freq_mhz" yaml:"freq_mhz"`
	Ganged   bool   `json:"ganged,omitempty" yaml:"ganged,omitempty"`
}

// RouteReport is the routing entry a node holds for a target. Link -1 is
// the node itself.
type RouteReport struct {
	Node      int   `json:"node" yaml:"node"`
	Target    int   `json:"target" yaml:"target"`
	Request   int   `json:"request" yaml:"request"`
	Response  int   `json:"response" yaml:"response"`
	Broadcast []int `json:"broadcast" yaml:"broadcast,flow"`
}

// DeviceReport is one I/O device as the simulator sees it.
type DeviceReport struct {
	Node     int    `json:"node" yaml:"node"`
	Link     int    `json:"link" yaml:"link"`
	Depth    int    `json:"depth" yaml:"depth"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	BUID     int    `json:"buid" yaml:"buid"`
	WidthIn  int    `json:"width_in" yaml:"width_in"`
	WidthOut int    `json:"width_out" yaml:"width_out"`
	FreqMHz  int    `json:"freq_mhz" yaml:"freq_mhz"`
}

// EventReport is a raised event with its context rendered as text.
type EventReport struct {
	Class   string            `json:"class" yaml:"class"`
	Code    string            `json:"code" yaml:"code"`
	Context map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
}

func newReport(st *ht.State, s *sim.Sim, f *sim.Fabric) Report {
	r := Report{
		Family: st.NB.Name(),
		Nodes:  st.NodeCount(),
		Links:  []LinkReport{},
		Routes: []RouteReport{},
	}
	if st.Topology != nil {
		r.Topology = st.Topology.Name
	}
	for _, p := range st.Ports.Pairs {
		r.Links = append(r.Links, LinkReport{
			Source:   p.Source.String(),
			Dest:     p.Dest.String(),
			Coherent: p.IsCoherent(),
			WidthIn:  int(p.Source.SelWidthIn),
			WidthOut: int(p.Source.SelWidthOut),
			FreqMHz:  p.Source.SelFreq.MHz(),
			Ganged:   p.Source.SelRegang,
		})
	}
	for phys := 0; phys < s.Nodes(); phys++ {
		if !s.RoutingEnabled(phys) {
			continue
		}
		for target := 0; target < st.NodeCount(); target++ {
			e := s.Route(phys, target)
			r.Routes = append(r.Routes, RouteReport{
				Node:      s.NodeID(phys),
				Target:    target,
				Request:   e.Req,
				Response:  e.Rsp,
				Broadcast: e.Broadcast,
			})
		}
	}
	for _, c := range f.Chains {
		for i, d := range c.Devices {
			ds := s.Device(c.Node, c.Link, i)
			r.Devices = append(r.Devices, DeviceReport{
				Node:     s.NodeID(c.Node),
				Link:     c.Link,
				Depth:    i,
				Name:     d.Name,
				BUID:     ds.BUID,
				WidthIn:  int(ds.WidthIn),
				WidthOut: int(ds.WidthOut),
				FreqMHz:  ds.Freq.MHz(),
			})
		}
	}
	for _, e := range st.Events {
		er := EventReport{Class: e.Class.String(), Code: e.Code.String()}
		for i := 0; i+1 < len(e.Ctx); i += 2 {
			if er.Context == nil {
				er.Context = make(map[string]string)
			}
			er.Context[fmt.Sprint(e.Ctx[i])] = fmt.Sprint(e.Ctx[i+1])
		}
		r.Events = append(r.Events, er)
	}
	return r
}

// Human writes human readable output to the writer.
func (r Report) Human(w io.Writer, colored bool) {
	noColor := color.New()
	header := noColor
	statusGood := noColor
	statusWarn := noColor
	statusBad := noColor
	if colored {
		header = color.New(color.FgHiBlack)
		statusGood = color.New(color.FgGreen)
		statusWarn = color.New(color.FgYellow)
		statusBad = color.New(color.FgRed)
	}

	topo := r.Topology
	if topo == "" {
		topo = "unmatched"
	}
	header.Fprintf(w, "%s fabric, %d nodes, topology %s\n", r.Family, r.Nodes, topo)

	header.Fprintf(w, "\nLinks:\n")
	table := newTable(w)
	table.SetHeader([]string{"SOURCE", "DEST", "TYPE", "WIDTH", "FREQ"})
	for _, l := range r.Links {
		kind := "io"
		if l.Coherent {
			kind = "coherent"
		}
		width := fmt.Sprintf("%d/%d", l.WidthIn, l.WidthOut)
		if l.Ganged {
			width += " ganged"
		}
		table.Append([]string{l.Source, l.Dest, kind, width, fmt.Sprintf("%dMHz", l.FreqMHz)})
	}
	table.Render()

	header.Fprintf(w, "\nRoutes:\n")
	table = newTable(w)
	table.SetHeader([]string{"NODE", "TARGET", "REQUEST", "RESPONSE", "BROADCAST"})
	for _, e := range r.Routes {
		bc := make([]string, 0, len(e.Broadcast))
		for _, l := range e.Broadcast {
			bc = append(bc, hop(l))
		}
		table.Append([]string{strconv.Itoa(e.Node), strconv.Itoa(e.Target), hop(e.Request),
			hop(e.Response), strings.Join(bc, ",")})
	}
	table.Render()

	if len(r.Devices) != 0 {
		header.Fprintf(w, "\nDevices:\n")
		table = newTable(w)
		table.SetHeader([]string{"NODE", "LINK", "DEPTH", "NAME", "BUID", "WIDTH", "FREQ"})
		for _, d := range r.Devices {
			table.Append([]string{strconv.Itoa(d.Node), strconv.Itoa(d.Link),
				strconv.Itoa(d.Depth), d.Name, strconv.Itoa(d.BUID),
				fmt.Sprintf("%d/%d", d.WidthIn, d.WidthOut), fmt.Sprintf("%dMHz", d.FreqMHz)})
		}
		table.Render()
	}

	if len(r.Events) != 0 {
		header.Fprintf(w, "\nEvents:\n")
	}
	for _, e := range r.Events {
		status := statusBad
		switch e.Class {
		case ht.ClassInfo.String():
			status = statusGood
		case ht.ClassWarning.String():
			status = statusWarn
		}
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctx := make([]string, 0, len(keys))
		for _, k := range keys {
			ctx = append(ctx, k+"="+e.Context[k])
		}
		fmt.Fprintf(w, "  %s %s %s\n", status.Sprint(e.Class), e.Code, strings.Join(ctx, " "))
	}
}

func hop(link int) string {
	if link == ht.Self {
		return "self"
	}
	return strconv.Itoa(link)
}
