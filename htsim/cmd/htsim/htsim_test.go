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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/private/xtest"
	"github.com/htfabric/htinit/private/boardcfg"
	"github.com/htfabric/htinit/private/config"
)

func testFs(t *testing.T) afero.Fs {
	return xtest.TestdataFs(t, "dual.yaml", "board.toml", "broken.yaml")
}

func execute(t *testing.T, fs afero.Fs, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRoot("htsim", fs)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunJSON(t *testing.T) {
	out, _, err := execute(t, testFs(t), "run", "--fabric", "/dual.yaml", "--format", "json")
	require.NoError(t, err)

	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "fam10", r.Family)
	assert.Equal(t, 2, r.Nodes)
	assert.Equal(t, "dual", r.Topology)
	require.Len(t, r.Links, 3)
	assert.Equal(t, LinkReport{
		Source:   "node0/link0",
		Dest:     "node1/link0",
		Coherent: true,
		WidthIn:  16,
		WidthOut: 16,
		FreqMHz:  2000,
	}, r.Links[0])
	for _, l := range r.Links[1:] {
		assert.False(t, l.Coherent)
		assert.Equal(t, 1000, l.FreqMHz)
	}

	require.Len(t, r.Routes, 4)
	assert.Equal(t, RouteReport{
		Node:      0,
		Target:    0,
		Request:   ht.Self,
		Response:  ht.Self,
		Broadcast: []int{ht.Self, 0},
	}, r.Routes[0])
	assert.Equal(t, 0, r.Routes[1].Request)

	require.Len(t, r.Devices, 2)
	assert.Equal(t, "tunnel", r.Devices[0].Name)
	assert.Equal(t, "cave", r.Devices[1].Name)
	assert.Equal(t, r.Devices[0].BUID+2, r.Devices[1].BUID)

	var discovered int
	for _, e := range r.Events {
		if e.Code == ht.CohNodeDiscovered.String() {
			discovered++
			assert.Equal(t, "info", e.Class)
			assert.Equal(t, "1", e.Context["new_node"])
		}
	}
	assert.Equal(t, 1, discovered)
}

func TestRunBoard(t *testing.T) {
	out, _, err := execute(t, testFs(t), "run", "--fabric", "/dual.yaml",
		"--board", "/board.toml", "--format", "yaml")
	require.NoError(t, err)

	var r Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	require.NotEmpty(t, r.Links)
	assert.Equal(t, 1200, r.Links[0].FreqMHz)
}

func TestRunHuman(t *testing.T) {
	out, stderr, err := execute(t, testFs(t), "run", "--fabric", "/dual.yaml",
		"--metrics", "--no-color")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	assert.Contains(t, out, "fam10 fabric, 2 nodes, topology dual")
	assert.Contains(t, out, "node0/link0")
	assert.Contains(t, out, "self")
	assert.Contains(t, out, "tunnel")
	assert.Contains(t, out, "coh_node_discovered")
	assert.Contains(t, out, "htinit_nodes 2")
	assert.Contains(t, out, `htinit_events_total{class="info",code="coh_node_discovered"} 1`)
}

func TestRunErrors(t *testing.T) {
	testCases := map[string][]string{
		"missing fabric flag": {"run"},
		"missing file":        {"run", "--fabric", "/none.yaml"},
		"broken fabric":       {"run", "--fabric", "/broken.yaml"},
		"missing board":       {"run", "--fabric", "/dual.yaml", "--board", "/none.toml"},
		"bad format":          {"run", "--fabric", "/dual.yaml", "--format", "xml"},
		"bad log level":       {"run", "--fabric", "/dual.yaml", "--log.level", "loud"},
	}
	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, testFs(t), args...)
			assert.Error(t, err)
		})
	}
}

func TestTopologies(t *testing.T) {
	out, _, err := execute(t, testFs(t), "topologies")
	require.NoError(t, err)
	for _, r := range topology.Default() {
		assert.Contains(t, out, r.Name)
	}

	out, _, err = execute(t, testFs(t), "topologies", "--format", "yaml")
	require.NoError(t, err)
	refs, err := topology.Parse([]byte(out))
	require.NoError(t, err)
	require.Len(t, refs, len(topology.Default()))
	for i, r := range topology.Default() {
		assert.Equal(t, r.Name, refs[i].Name)
		assert.Equal(t, r.Nodes, refs[i].Nodes)
	}

	fs := testFs(t)
	require.NoError(t, afero.WriteFile(fs, "/lib.yaml", []byte(out), 0o644))
	out, _, err = execute(t, fs, "topologies", "--library", "/lib.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "hypercube8")

	_, _, err = execute(t, fs, "topologies", "--library", "/none.yaml")
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	out, _, err := execute(t, testFs(t), "sample")
	require.NoError(t, err)

	var cfg boardcfg.Config
	require.NoError(t, config.Decode([]byte(out), &cfg))
	cfg.InitDefaults()
	assert.NoError(t, cfg.Validate())
}

func TestRunExpect(t *testing.T) {
	fs := testFs(t)
	out, _, err := execute(t, fs, "run", "--fabric", "/dual.yaml", "--format", "yaml")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/expected.yaml", []byte(out), 0o644))

	_, stderr, err := execute(t, fs, "run", "--fabric", "/dual.yaml", "--format", "json",
		"--expect", "/expected.yaml")
	require.NoError(t, err)
	assert.Contains(t, stderr, "PASS")

	changed := strings.Replace(out, "freq_mhz: 2000", "freq_mhz: 1600", 1)
	require.NotEqual(t, out, changed)
	require.NoError(t, afero.WriteFile(fs, "/changed.yaml", []byte(changed), 0o644))
	out, _, err = execute(t, fs, "run", "--fabric", "/dual.yaml", "--no-color",
		"--expect", "/changed.yaml")
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "-  freq_mhz: 1600\n")
	assert.Contains(t, out, "+  freq_mhz: 2000\n")

	_, _, err = execute(t, fs, "run", "--fabric", "/dual.yaml", "--expect", "/none.yaml")
	assert.Error(t, err)
}

func TestRunEnv(t *testing.T) {
	t.Setenv("HTSIM_FABRIC", "/dual.yaml")
	t.Setenv("HTSIM_FORMAT", "json")
	t.Setenv("HTSIM_LOG_LEVEL", "error")
	out, _, err := execute(t, testFs(t), "run")
	require.NoError(t, err)

	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 2, r.Nodes)

	// Flags win over the environment.
	out, _, err = execute(t, testFs(t), "run", "--format", "yaml")
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	assert.Equal(t, "dual", r.Topology)
}
