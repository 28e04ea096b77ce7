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

// Package topology holds the reference topologies a discovered coherent
// fabric is matched against.
//
// A reference is stored compressed: for every ordered node pair (i, j) two
// bytes, the first holding the set of nodes that i forwards a broadcast
// originated by j to (bit i meaning local delivery), the second holding the
// response next hop in the high nibble and the request next hop in the low
// nibble. Two nodes are adjacent iff the request next hop from one to the
// other is the other itself. Diagonal entries carry 0xF next hops.
package topology

import (
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// MaxNodes is the largest graph a reference can describe.
const MaxNodes = 8

const noHop = 0xF

// Reference is an immutable reference topology.
type Reference struct {
	Name  string
	Nodes int
	Data  []byte
}

func (r *Reference) idx(i, j int) int {
	if i < 0 || i >= r.Nodes || j < 0 || j >= r.Nodes {
		panic(serrors.New("topology index out of range", "topology", r.Name,
			"i", i, "j", j, "nodes", r.Nodes))
	}
	return 2 * (i*r.Nodes + j)
}

// Broadcast returns the broadcast set of node i for broadcasts from j.
func (r *Reference) Broadcast(i, j int) uint8 { return r.Data[r.idx(i, j)] }

// Req returns the request next hop from i towards j.
func (r *Reference) Req(i, j int) int { return int(r.Data[r.idx(i, j)+1] & 0xF) }

// Rsp returns the response next hop from i towards j.
func (r *Reference) Rsp(i, j int) int { return int(r.Data[r.idx(i, j)+1] >> 4) }

// Adjacent reports whether i and j share a link.
func (r *Reference) Adjacent(i, j int) bool {
	return i != j && r.Req(i, j) == j
}

// Decode expands the reference into adjacency and degree data.
func (r *Reference) Decode() Graph {
	var g Graph
	g.Reset(r.Nodes)
	for i := 0; i < r.Nodes; i++ {
		for j := 0; j < r.Nodes; j++ {
			if r.Adjacent(i, j) {
				g.Matrix[i][j] = true
				g.Degree[i]++
			}
		}
	}
	return g
}

// Validate checks that r is well formed: every next hop is a neighbour, the
// adjacency is symmetric and broadcast sets only name existing nodes.
func (r *Reference) Validate() error {
	if r.Nodes < 1 || r.Nodes > MaxNodes {
		return serrors.New("invalid node count", "topology", r.Name, "nodes", r.Nodes)
	}
	if len(r.Data) != 2*r.Nodes*r.Nodes {
		return serrors.New("invalid data length", "topology", r.Name,
			"expected", 2*r.Nodes*r.Nodes, "actual", len(r.Data))
	}
	valid := uint8(1<<r.Nodes - 1)
	for i := 0; i < r.Nodes; i++ {
		for j := 0; j < r.Nodes; j++ {
			if r.Broadcast(i, j)&^valid != 0 {
				return serrors.New("broadcast names unknown node", "topology", r.Name,
					"i", i, "j", j)
			}
			if i == j {
				continue
			}
			if r.Adjacent(i, j) != r.Adjacent(j, i) {
				return serrors.New("asymmetric adjacency", "topology", r.Name, "i", i, "j", j)
			}
			for _, hop := range []int{r.Req(i, j), r.Rsp(i, j)} {
				if hop >= r.Nodes || !r.Adjacent(i, hop) {
					return serrors.New("next hop is not a neighbour", "topology", r.Name,
						"i", i, "j", j, "hop", hop)
				}
			}
		}
	}
	return nil
}

// Graph is adjacency and degree data for up to MaxNodes nodes.
type Graph struct {
	Size   int
	Matrix [MaxNodes][MaxNodes]bool
	Degree [MaxNodes]int
}

// Connect adds the undirected edge a-b. Parallel links count once.
func (g *Graph) Connect(a, b int) {
	checkNode(a)
	checkNode(b)
	if g.Matrix[a][b] {
		return
	}
	g.Matrix[a][b] = true
	g.Matrix[b][a] = true
	g.Degree[a]++
	g.Degree[b]++
}

// Reset clears every edge and sets the node count.
func (g *Graph) Reset(size int) {
	*g = Graph{Size: size}
}

// Edges lists every edge once, lower node first.
func (g *Graph) Edges() [][2]int {
	var r [][2]int
	for i := 0; i < g.Size; i++ {
		for j := i + 1; j < g.Size; j++ {
			if g.Matrix[i][j] {
				r = append(r, [2]int{i, j})
			}
		}
	}
	return r
}

func checkNode(n int) {
	if n < 0 || n >= MaxNodes {
		panic(serrors.New("node index out of range", "node", n))
	}
}
