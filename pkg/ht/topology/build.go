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

package topology

import (
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// Build derives the compressed form of a connected graph given as an edge
// list. Requests take the shortest path through the lowest numbered
// neighbour, responses through the highest numbered one, and broadcasts
// follow the request tree rooted at their origin.
func Build(name string, nodes int, edges [][2]int) (Reference, error) {
	if nodes < 1 || nodes > MaxNodes {
		return Reference{}, serrors.New("invalid node count", "topology", name, "nodes", nodes)
	}
	var g Graph
	g.Reset(nodes)
	for _, e := range edges {
		a, b := e[0], e[1]
		if a < 0 || a >= nodes || b < 0 || b >= nodes || a == b {
			return Reference{}, serrors.New("invalid edge", "topology", name,
				"a", a, "b", b)
		}
		g.Connect(a, b)
	}
	dist := distances(&g)
	for i := 0; i < nodes; i++ {
		for j := 0; j < nodes; j++ {
			if dist[i][j] < 0 {
				return Reference{}, serrors.New("graph is not connected", "topology", name,
					"from", i, "to", j)
			}
		}
	}

	hop := func(i, j int, highest bool) int {
		best := -1
		for k := 0; k < nodes; k++ {
			if !g.Matrix[i][k] || dist[k][j] != dist[i][j]-1 {
				continue
			}
			if best < 0 || highest {
				best = k
			}
		}
		return best
	}

	r := Reference{Name: name, Nodes: nodes, Data: make([]byte, 2*nodes*nodes)}
	for i := 0; i < nodes; i++ {
		for j := 0; j < nodes; j++ {
			bc := uint8(1 << i)
			for k := 0; k < nodes; k++ {
				// k hangs below i in the tree rooted at j.
				if g.Matrix[i][k] && k != j && hop(k, j, false) == i {
					bc |= 1 << k
				}
			}
			off := 2 * (i*nodes + j)
			r.Data[off] = bc
			if i == j {
				r.Data[off+1] = noHop<<4 | noHop
				continue
			}
			r.Data[off+1] = byte(hop(i, j, true)<<4 | hop(i, j, false))
		}
	}
	return r, nil
}

// MustBuild is Build for static data.
func MustBuild(name string, nodes int, edges [][2]int) Reference {
	r, err := Build(name, nodes, edges)
	if err != nil {
		panic(err)
	}
	return r
}

func distances(g *Graph) [MaxNodes][MaxNodes]int {
	var d [MaxNodes][MaxNodes]int
	for s := 0; s < g.Size; s++ {
		for i := range d[s] {
			d[s][i] = -1
		}
		d[s][s] = 0
		queue := []int{s}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for k := 0; k < g.Size; k++ {
				if g.Matrix[n][k] && d[s][k] < 0 {
					d[s][k] = d[s][n] + 1
					queue = append(queue, k)
				}
			}
		}
	}
	return d
}
