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

// Package coherent brings up the coherent part of the fabric: it discovers
// the CPU nodes by flood fill from the boot node, matches the discovered
// graph against the reference topologies and programs the final routing
// tables.
//
// Discovery numbers nodes in the order they are found. A node is reached by
// pointing the routing entries along the path from the boot node at it; a
// node whose routing tables are still disabled answers any request it
// receives, which is how unnumbered neighbours are probed.
package coherent

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// Discover explores the coherent fabric starting at the boot node. It fills
// st.Ports, st.Graph and st.NodesDiscovered. On a fabric it cannot support
// it degrades to a single node and raises an event.
func Discover(st *ht.State) {
	nb := st.NB
	st.NodesDiscovered = 0
	st.Ports.Reset()
	st.Graph.Reset(1)
	// The boot node's own limit counts too.
	nb.IsCapable(0, st)

	for cur := 0; cur <= st.NodesDiscovered; cur++ {
		if cur > 0 {
			routeFromBoot(st, cur, cur, 0)
			nb.WriteRouting(cur, 0, nb.ReadDefaultLink(cur))
			if cur+1 < nb.MaxNodes() {
				routeFromBoot(st, cur, cur+1, 0)
			}
		}
		nb.WriteNodeID(cur, cur)
		nb.EnableRouting(cur)
		if !exploreNode(st, cur) {
			break
		}
	}
	st.Graph.Size = st.NodeCount()
	st.Logger.Debug("Coherent discovery done", "nodes", st.NodeCount(),
		"links", st.Ports.Len())
}

// routeFromBoot points the routing entries for slot on the path from the
// boot node to target, walking back through the predecessors recorded in the
// port list.
func routeFromBoot(st *ht.State, target, slot, depth int) {
	if target == 0 {
		return
	}
	if depth >= ht.MaxNodes {
		panic(serrors.New("predecessor walk does not reach the boot node",
			"target", target, "slot", slot))
	}
	for i := range st.Ports.Pairs {
		p := &st.Ports.Pairs[i]
		if p.Dest.NodeID != target {
			continue
		}
		routeFromBoot(st, p.Source.NodeID, slot, depth+1)
		st.NB.WriteRouting(p.Source.NodeID, slot, p.Source.Link)
		return
	}
	panic(serrors.New("node has no predecessor", "target", target))
}

// exploreNode probes the links of cur. It returns false if discovery had to
// be abandoned.
func exploreNode(st *ht.State, cur int) bool {
	nb := st.NB
	for _, link := range nb.LinkScanOrder(cur) {
		switch {
		case st.Board.Ignored(cur, link),
			nb.ReadTrueLinkFailStatus(cur, link, st),
			!nb.IsLinkCoherent(cur, link),
			st.Ports.Explored(cur, link),
			nb.HandleSpecialLink(cur, link, st):
			continue
		}
		next := cur + 1
		if next >= nb.MaxNodes() {
			// An unexplored link on the last node slot leads to one node
			// more than the family can number.
			st.Raise(ht.ClassError, ht.CohMPCapMismatch, "node", cur, "link", link,
				"sys_mp_cap", st.SysMPCap, "total_nodes", st.NodesDiscovered+1)
			resetToUniprocessor(st, cur, false)
			return false
		}
		nb.WriteRouting(cur, next, link)

		if !nb.IsCompatible(next) {
			st.Raise(ht.ClassError, ht.CohFamilyFeud, "node", cur, "link", link,
				"total_nodes", st.NodesDiscovered)
			resetToUniprocessor(st, cur, true)
			return false
		}

		token := nb.ReadToken(next)
		if token == 0 {
			st.NodesDiscovered++
			if !nb.IsCapable(next, st) {
				st.Raise(ht.ClassError, ht.CohMPCapMismatch, "node", cur, "link", link,
					"sys_mp_cap", st.SysMPCap, "total_nodes", st.NodesDiscovered)
				resetToUniprocessor(st, cur, false)
				return false
			}
			token = st.NodesDiscovered
			nb.WriteToken(next, token)
			st.Raise(ht.ClassInfo, ht.CohNodeDiscovered, "node", cur, "link", link,
				"new_node", token)
		}

		pair := ht.LinkPair{
			Source: ht.Port{Type: ht.PortCPU, NodeID: cur, Link: link},
			Dest:   ht.Port{Type: ht.PortCPU, NodeID: token, Link: nb.ReadDefaultLink(next)},
		}
		if !st.Ports.Append(pair) {
			st.Raise(ht.ClassError, ht.CohLinkExceed, "node", cur, "link", link,
				"target_node", token, "total_nodes", st.NodesDiscovered,
				"max_links", st.Ports.Capacity)
			resetToUniprocessor(st, cur, false)
			return false
		}
		st.Graph.Connect(cur, token)
		st.Logger.Debug("Coherent link found", "pair", pair.Source.String()+" - "+
			pair.Dest.String())
	}
	return true
}

// resetToUniprocessor drops the discovered fabric and leaves every node
// routed so far answering for itself only. Nodes up to touched are reachable
// through the routes set up by discovery; they are reset farthest first so
// the path to each node is intact when it is written. With stopLinks the
// coherent links of the boot node are shut down as well.
func resetToUniprocessor(st *ht.State, touched int, stopLinks bool) {
	nb := st.NB
	for n := touched; n >= 0; n-- {
		if n == 0 && stopLinks {
			for link := 0; link < nb.MaxLinks(); link++ {
				if nb.IsLinkCoherent(0, link) {
					nb.StopLink(0, link)
				}
			}
		}
		selfRoute(nb, n)
	}
	nb.EnableRouting(0)
	st.NodesDiscovered = 0
	st.Ports.Reset()
	st.Graph.Reset(1)
	st.Topology = nil
	st.Logger.Info("Fabric reset to a single node")
}

// selfRoute writes every routing slot of node to local delivery. Slot 0 goes
// last since it carries the way back to the boot node.
func selfRoute(nb ht.Northbridge, node int) {
	for t := nb.MaxNodes() - 1; t >= 0; t-- {
		nb.WriteFullRouting(node, t, ht.Self, ht.Self, 1)
	}
}
