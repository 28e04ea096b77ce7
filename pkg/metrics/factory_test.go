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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/htfabric/htinit/pkg/metrics"
)

func TestFactoryRegistersWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := metrics.ApplyOptions(metrics.WithRegistry(reg)).Auto()
	cv := f.NewCounterVec(prometheus.CounterOpts{Name: "events_total"}, []string{"code"})
	g := f.NewGauge(prometheus.GaugeOpts{Name: "nodes"})

	metrics.CounterInc(cv.WithLabelValues("x"))
	metrics.GaugeSet(g, 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(cv.WithLabelValues("x")))
	assert.Equal(t, 4.0, testutil.ToFloat64(g))
	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilSafe(t *testing.T) {
	metrics.CounterInc(nil)
	metrics.GaugeSet(nil, 1)
}

func TestFakes(t *testing.T) {
	c := metrics.NewTestCounter()
	metrics.CounterInc(c)
	metrics.CounterInc(c)
	assert.Equal(t, 2.0, metrics.CounterValue(c))
	assert.Panics(t, func() { c.Add(-1) })

	g := metrics.NewTestGauge()
	metrics.GaugeSet(g, 3)
	g.Add(-1)
	assert.Equal(t, 2.0, metrics.GaugeValue(g))
}
