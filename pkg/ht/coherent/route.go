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
)

// Route programs the final routing tables from the matched reference
// topology. Without a match the fabric is reduced to the boot node and a
// no-topology event is raised.
//
// The writes are a function of the permutation, the port list and the
// reference only.
func Route(st *ht.State) {
	nb := st.NB
	n := st.NodeCount()
	ref := st.Topology
	if ref == nil {
		st.Raise(ht.ClassError, ht.CohNoTopology, "total_nodes", n)
		resetToUniprocessor(st, st.NodesDiscovered, false)
		return
	}
	for i := n - 1; i >= 0; i-- {
		pi := st.Perm[i]
		for j := 0; j < n; j++ {
			pj := st.Perm[j]
			var bc uint32
			abstract := ref.Broadcast(pi, pj)
			for k := 0; k < n; k++ {
				if abstract&(1<<k) == 0 {
					continue
				}
				if d := st.ReversePerm[k]; d == i {
					bc |= 1
				} else {
					bc |= 1 << (st.Ports.LinkTo(i, d) + 1)
				}
			}
			req, rsp := ht.Self, ht.Self
			if i != j {
				req = st.Ports.LinkTo(i, st.ReversePerm[ref.Req(pi, pj)])
				rsp = st.Ports.LinkTo(i, st.ReversePerm[ref.Rsp(pi, pj)])
			}
			nb.WriteFullRouting(i, j, req, rsp, bc)
		}
		// Discovery may have left a provisional route in the first unused
		// slot. No node answers to that id, so it takes no broadcasts.
		if n < nb.MaxNodes() {
			nb.WriteFullRouting(i, n, ht.Self, ht.Self, 0)
		}
	}
	st.Logger.Info("Routing tables programmed", "topology", ref.Name, "nodes", n)
}

// Finalize tells every node the size of the fabric and confines config
// access to the local node.
func Finalize(st *ht.State) {
	nb := st.NB
	n := st.NodeCount()
	cores := 0
	for node := 0; node < n; node++ {
		cores += nb.CoreCount(node)
	}
	for node := 0; node < n; node++ {
		nb.SetTotalNodesAndCores(node, n, cores)
	}
	for node := 0; node < n; node++ {
		nb.LimitConfigAccess(node)
	}
	st.Logger.Debug("Coherent fabric finalized", "nodes", n, "cores", cores)
}

// Init runs the whole coherent bring-up.
func Init(st *ht.State) {
	Discover(st)
	Match(st)
	Route(st)
	Finalize(st)
}
