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

// Package metrics registers prometheus collectors through a Factory so that
// callers can choose the registry, and provides simple test doubles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counter is the subset of prometheus.Counter used by this module.
type Counter interface {
	Add(delta float64)
}

// Gauge is the subset of prometheus.Gauge used by this module.
type Gauge interface {
	Set(v float64)
	Add(delta float64)
}

// CounterInc increases c by one. Nil counters are ignored.
func CounterInc(c Counter) {
	if c != nil {
		c.Add(1)
	}
}

// GaugeSet sets g. Nil gauges are ignored.
func GaugeSet(g Gauge, v float64) {
	if g != nil {
		g.Set(v)
	}
}

type Option func(*Options)

// Options configures the metrics Factory, construct it using the ApplyOptions
// function.
type Options struct {
	registry prometheus.Registerer
}

func (o Options) registerer() prometheus.Registerer {
	if o.registry != nil {
		return o.registry
	}
	return prometheus.DefaultRegisterer
}

// WithRegistry sets the registry collectors are registered with.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(o *Options) {
		o.registry = registry
	}
}

func ApplyOptions(options ...Option) Options {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// Auto creates a Factory that uses the provided Options as registry. If no
// explicit registry is set the default registry is used.
func (o Options) Auto() Factory {
	return Factory{opts: o}
}

// Factory registers collectors with the configured registry.
type Factory struct {
	opts Options
}

func (f Factory) register(c prometheus.Collector) {
	f.opts.registerer().MustRegister(c)
}

func (f Factory) NewCounterVec(
	opts prometheus.CounterOpts,
	labelNames []string,
) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labelNames)
	f.register(c)
	return c
}

func (f Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	f.register(g)
	return g
}
