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

package bringup

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/metrics"
)

// Metrics describes the outcome of a bring-up pass. A nil *Metrics and nil
// fields are ignored.
type Metrics struct {
	// Events returns the counter for events of the given class and code.
	Events    func(class, code string) metrics.Counter
	Nodes     metrics.Gauge
	LinkPairs metrics.Gauge
	Chains    metrics.Gauge
}

// NewMetrics creates the bring-up collectors and registers them through the
// metrics factory configured by opts.
func NewMetrics(opts ...metrics.Option) *Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	events := auto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htinit_events_total",
			Help: "Total number of events raised during fabric bring-up.",
		},
		[]string{"class", "code"},
	)
	return &Metrics{
		Events: func(class, code string) metrics.Counter {
			return events.WithLabelValues(class, code)
		},
		Nodes: auto.NewGauge(prometheus.GaugeOpts{
			Name: "htinit_nodes",
			Help: "Number of coherent nodes in the fabric.",
		}),
		LinkPairs: auto.NewGauge(prometheus.GaugeOpts{
			Name: "htinit_link_pairs",
			Help: "Number of links in the port list after optimization.",
		}),
		Chains: auto.NewGauge(prometheus.GaugeOpts{
			Name: "htinit_chains",
			Help: "Number of I/O chains given a bus range.",
		}),
	}
}

func (m *Metrics) observe(e ht.Event) {
	if m == nil || m.Events == nil {
		return
	}
	metrics.CounterInc(m.Events(e.Class.String(), e.Code.String()))
}

func (m *Metrics) report(st *ht.State) {
	if m == nil {
		return
	}
	metrics.GaugeSet(m.Nodes, float64(st.NodeCount()))
	metrics.GaugeSet(m.LinkPairs, float64(st.Ports.Len()))
	metrics.GaugeSet(m.Chains, float64(st.UsedCfgMapEntries))
}
