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

package coherent

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// Match looks for the first reference topology the discovered graph is
// isomorphic to. On success it sets st.Topology, st.Perm and
// st.ReversePerm.
func Match(st *ht.State) bool {
	n := st.NodeCount()
	if n < 1 || n > ht.MaxNodes || st.Graph.Size != n {
		panic(serrors.New("matching with inconsistent sizes", "nodes", n,
			"graph", st.Graph.Size))
	}
	for i := range st.Board.Topologies {
		ref := &st.Board.Topologies[i]
		if ref.Nodes != n {
			continue
		}
		g := ref.Decode()
		perm, ok := Isomorphism(&st.Graph, &g)
		if !ok {
			continue
		}
		st.Perm = perm
		for d := 0; d < n; d++ {
			st.ReversePerm[perm[d]] = d
		}
		st.Topology = ref
		st.Logger.Debug("Topology matched", "topology", ref.Name, "perm", perm[:n])
		return true
	}
	st.Topology = nil
	return false
}

// Isomorphism searches a mapping perm from nodes of sys to nodes of ref
// such that sys has an edge (j, k) exactly when ref has (perm[j], perm[k]).
func Isomorphism(sys, ref *topology.Graph) ([ht.MaxNodes]int, bool) {
	if sys.Size != ref.Size || sys.Size < 1 || sys.Size > ht.MaxNodes {
		panic(serrors.New("isomorphism search with inconsistent sizes",
			"sys", sys.Size, "ref", ref.Size))
	}
	m := matcher{sys: sys, ref: ref}
	ok := m.search(0)
	return m.perm, ok
}

type matcher struct {
	sys, ref *topology.Graph
	perm     [ht.MaxNodes]int
	used     [ht.MaxNodes]bool
}

func (m *matcher) search(node int) bool {
	n := m.sys.Size
	if node == n {
		return m.adjacent()
	}
	for r := 0; r < n; r++ {
		if m.used[r] || m.sys.Degree[node] != m.ref.Degree[r] {
			continue
		}
		m.used[r] = true
		m.perm[node] = r
		if m.search(node + 1) {
			return true
		}
		m.used[r] = false
	}
	return false
}

func (m *matcher) adjacent() bool {
	n := m.sys.Size
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			if m.sys.Matrix[j][k] != m.ref.Matrix[m.perm[j]][m.perm[k]] {
				return false
			}
		}
	}
	return true
}
