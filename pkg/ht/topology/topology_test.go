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

package topology_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/private/xtest"
)

func TestBuildDual(t *testing.T) {
	r, err := topology.Build("dual", 2, [][2]int{{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x03, 0xFF, 0x01, 0x11,
		0x02, 0x00, 0x03, 0xFF,
	}, r.Data)
	assert.True(t, r.Adjacent(0, 1))
	assert.False(t, r.Adjacent(0, 0))
	assert.Equal(t, 1, r.Req(0, 1))
	assert.Equal(t, 0, r.Rsp(1, 0))
}

func TestBuildLine(t *testing.T) {
	r := topology.MustBuild("line3", 3, [][2]int{{0, 1}, {1, 2}})
	assert.Equal(t, 1, r.Req(0, 2))
	assert.Equal(t, 1, r.Rsp(2, 0))
	assert.False(t, r.Adjacent(0, 2))
	// A broadcast from 0 is forwarded by 1 to 2, and by 2 to no one.
	assert.EqualValues(t, 0b110, r.Broadcast(1, 0))
	assert.EqualValues(t, 0b100, r.Broadcast(2, 0))
	assert.EqualValues(t, 0b011, r.Broadcast(0, 0))
}

func TestBuildErrors(t *testing.T) {
	testCases := map[string]struct {
		nodes int
		edges [][2]int
	}{
		"too many nodes": {nodes: 9},
		"no nodes":       {nodes: 0},
		"self loop":      {nodes: 2, edges: [][2]int{{0, 0}, {0, 1}}},
		"out of range":   {nodes: 2, edges: [][2]int{{0, 2}}},
		"disconnected":   {nodes: 3, edges: [][2]int{{0, 1}}},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := topology.Build(name, tc.nodes, tc.edges)
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	lib := topology.Default()
	require.NotEmpty(t, lib)
	names := map[string]bool{}
	for _, r := range lib {
		t.Run(r.Name, func(t *testing.T) {
			assert.NoError(t, r.Validate())
			assert.False(t, names[r.Name], "duplicate name")
			names[r.Name] = true
			g := r.Decode()
			assert.Equal(t, r.Nodes, g.Size)
			for i := 0; i < r.Nodes; i++ {
				n := 0
				for j := 0; j < r.Nodes; j++ {
					assert.Equal(t, g.Matrix[i][j], g.Matrix[j][i])
					if g.Matrix[i][j] {
						n++
					}
				}
				assert.Equal(t, n, g.Degree[i])
			}
		})
	}
	for n := 1; n <= topology.MaxNodes; n++ {
		found := false
		for _, r := range lib {
			found = found || r.Nodes == n
		}
		assert.True(t, found, "no reference with %d nodes", n)
	}
}

func TestDecodeSquare(t *testing.T) {
	r := topology.MustBuild("square", 4, [][2]int{{0, 1}, {1, 3}, {3, 2}, {2, 0}})
	g := r.Decode()
	assert.Equal(t, [topology.MaxNodes]int{2, 2, 2, 2}, g.Degree)
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}}, g.Edges())
}

func TestValidate(t *testing.T) {
	r := topology.MustBuild("dual", 2, [][2]int{{0, 1}})
	bad := topology.Reference{Name: "bad", Nodes: 2, Data: append([]byte(nil), r.Data...)}
	bad.Data[3] = 0x00 // 0 no longer routes to 1 directly
	assert.Error(t, bad.Validate())

	short := topology.Reference{Name: "short", Nodes: 2, Data: r.Data[:6]}
	assert.Error(t, short.Validate())

	wide := topology.Reference{Name: "wide", Nodes: 2, Data: append([]byte(nil), r.Data...)}
	wide.Data[0] = 0x07
	assert.Error(t, wide.Validate())
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := `
topologies:
  - name: pair
    nodes: 2
    edges: [[0, 1]]
  - name: pair-raw
    nodes: 2
    compressed: 03ff011102000 3ff
`
	require.NoError(t, afero.WriteFile(fs, "/lib.yaml", []byte(raw), 0o644))
	_, err := topology.Load(fs, "/lib.yaml")
	assert.Error(t, err, "malformed hex")

	raw = `
topologies:
  - name: pair
    nodes: 2
    edges: [[0, 1]]
  - name: pair-raw
    nodes: 2
    compressed: 03ff0111020003ff
`
	require.NoError(t, afero.WriteFile(fs, "/lib.yaml", []byte(raw), 0o644))
	refs, err := topology.Load(fs, "/lib.yaml")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, refs[0].Data, refs[1].Data)
	assert.Equal(t, xtest.MustParseHexString("03ff 0111 0200 03ff"), refs[1].Data)
	assert.Equal(t, "pair-raw", refs[1].Name)

	_, err = topology.Load(fs, "/missing.yaml")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/unknown.yaml",
		[]byte("topologies:\n  - name: x\n    nodes: 1\n    color: red\n"), 0o644))
	_, err = topology.Load(fs, "/unknown.yaml")
	assert.Error(t, err, "unknown field")
}

func TestMarshalRoundTrip(t *testing.T) {
	raw, err := topology.Marshal(topology.Default())
	require.NoError(t, err)
	refs, err := topology.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, topology.Default(), refs)
}
