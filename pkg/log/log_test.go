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

package log_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/htfabric/htinit/pkg/log"
)

func TestSetup(t *testing.T) {
	defer zap.ReplaceGlobals(zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, log.Setup(log.Config{Level: "info", Format: "json", Output: &buf}))
	log.Debug("hidden")
	log.Info("visible", "node", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"node":1`)

	assert.Error(t, log.Setup(log.Config{Level: "loud"}))
	assert.Error(t, log.Setup(log.Config{Format: "xml"}))
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		"empty":   {in: "", want: log.ErrorLevel},
		"debug":   {in: "DEBUG", want: log.DebugLevel},
		"info":    {in: "info", want: log.InfoLevel},
		"unknown": {in: "trace", wantErr: true},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			lvl, err := log.ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, lvl)
		})
	}
}

func TestCtx(t *testing.T) {
	l := log.Discard()
	ctx := log.CtxWith(context.Background(), l)
	assert.Equal(t, l, log.FromCtx(ctx))
	assert.NotNil(t, log.FromCtx(context.Background()))

	_, labelled := log.WithLabels(ctx, "node", 0)
	assert.NotNil(t, labelled)
	assert.False(t, labelled.Enabled(log.DebugLevel))
}

func TestSpan(t *testing.T) {
	tracer := mocktracer.New()
	span := tracer.StartSpan("bringup")
	l := log.Span{Logger: log.Discard(), Span: span}
	l.New("node", 1).Info("Link found", "link", 2)
	l.Debug("Quiet")
	assert.False(t, l.Enabled(log.DebugLevel))
	span.Finish()

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	logs := spans[0].Logs()
	require.Len(t, logs, 2)
	var kv []string
	for _, f := range logs[0].Fields {
		kv = append(kv, f.Key+"="+f.ValueString)
	}
	assert.Equal(t, []string{"level=info", "event=Link found", "link=2"}, kv)

	// A span-less logger only logs.
	log.Span{Logger: log.Discard()}.Error("Dropped")
}
