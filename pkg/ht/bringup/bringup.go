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

// Package bringup runs a complete fabric bring-up pass: coherent discovery,
// topology matching and routing, I/O chain enumeration and link
// optimization, in that order.
//
// A pass is single threaded and leaves the hardware in its final state.
// Problems the pass can degrade around are reported as events on the
// returned state, not as errors.
package bringup

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/coherent"
	"github.com/htfabric/htinit/pkg/ht/noncoherent"
	"github.com/htfabric/htinit/pkg/ht/northbridge"
	"github.com/htfabric/htinit/pkg/ht/optimize"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/log"
	"github.com/htfabric/htinit/pkg/private/serrors"
	"github.com/htfabric/htinit/pkg/private/tracing"
)

// Option configures Run.
type Option func(*options)

type options struct {
	metrics *Metrics
	tracer  opentracing.Tracer
}

// WithMetrics reports the events and the resulting fabric to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer records the pass and each of its phases as spans of tracer.
// The global tracer is used otherwise.
func WithTracer(t opentracing.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// Run brings up the fabric reachable through acc. A nil board selects the
// default policy. The logger is taken from ctx.
//
// An error is only returned if the pass could not start, for example
// because no family adapter matches the boot node. The returned state
// carries the port list, the routing decision and all raised events.
func Run(ctx context.Context, acc hw.Access, board *ht.Board,
	opts ...Option) (*ht.State, error) {

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span, ctx := tracing.StartSpan(ctx, o.tracer, "htinit.bringup")
	defer span.Finish()
	tracing.Component(span, "htinit")
	logger := log.Span{Logger: log.FromCtx(ctx), Span: span}

	nb, err := northbridge.New(acc)
	if err != nil {
		tracing.Error(span, err)
		return nil, serrors.Wrap("selecting northbridge adapter", err)
	}
	span.SetTag("family", nb.Name())
	st := ht.NewState(acc, nb, board, logger)
	st.OnEvent = o.metrics.observe
	logger.Info("Starting fabric bring-up", "family", nb.Name())

	nb.EnableRouting(0)
	phase := func(name string, fn func(*ht.State)) {
		span, _ := tracing.StartSpan(ctx, o.tracer, name)
		defer span.Finish()
		st.Logger = log.Span{Logger: logger.Logger, Span: span}
		first := len(st.Events)
		fn(st)
		span.SetTag("events", len(st.Events)-first)
		st.Logger = logger
	}
	phase("htinit.coherent", coherent.Init)
	phase("htinit.noncoherent", noncoherent.Enumerate)
	phase("htinit.optimize", optimize.Run)

	o.metrics.report(st)
	span.SetTag("nodes", st.NodeCount())
	tracing.ResultLabel(span, result(st))
	logger.Info("Fabric bring-up done", "nodes", st.NodeCount(), "links", st.Ports.Len(),
		"events", len(st.Events))
	return st, nil
}

// result summarizes a pass: ok when only informational events were raised.
func result(st *ht.State) string {
	for _, e := range st.Events {
		if e.Class != ht.ClassInfo {
			return "degraded"
		}
	}
	return "ok"
}
