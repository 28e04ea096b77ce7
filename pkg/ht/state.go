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

package ht

import (
	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/log"
)

// State is the working set of one bring-up pass. It is owned by the pipeline
// and handed to each stage in turn.
type State struct {
	// NodesDiscovered is the highest node id found, so a fabric of n nodes
	// has NodesDiscovered == n-1.
	NodesDiscovered int
	Ports           PortList
	Graph           Adjacency
	// SysMPCap is the smallest node count any discovered node supports.
	SysMPCap int

	AutoBusCurrent    int
	UsedCfgMapEntries int

	// Perm maps discovered nodes to reference nodes, ReversePerm the other
	// way. Only meaningful after a successful match.
	Perm        [MaxNodes]int
	ReversePerm [MaxNodes]int
	// Topology is the matched reference, nil until matched.
	Topology *topology.Reference

	// Access reaches devices behind the non-coherent chains directly.
	Access hw.Access
	NB     Northbridge
	Board  *Board
	Logger log.Logger
	// Events lists everything raised, in order.
	Events []Event
	// OnEvent is called for every raised event after the board hook.
	OnEvent func(Event)
}

// NewState creates the state of a pass. The board is defaulted.
func NewState(acc hw.Access, nb Northbridge, board *Board,
	logger log.Logger) *State {
	b := board.WithDefaults()
	if logger == nil {
		logger = log.Discard()
	}
	st := &State{
		Ports:          NewPortList(b.MaxLinkPairs),
		SysMPCap:       nb.MaxNodes(),
		AutoBusCurrent: b.AutoBusStart,
		Access:         acc,
		NB:             nb,
		Board:          b,
		Logger:         logger,
	}
	st.Graph.Reset(1)
	return st
}

// NodeCount is the number of nodes in the fabric.
func (st *State) NodeCount() int { return st.NodesDiscovered + 1 }

// Raise records an event, logs it and notifies the board.
func (st *State) Raise(class EventClass, code EventCode, ctx ...any) {
	e := Event{Class: class, Code: code, Ctx: ctx}
	st.Events = append(st.Events, e)
	logCtx := append([]any{"class", class, "code", code}, ctx...)
	if class == ClassInfo {
		st.Logger.Info("Fabric event", logCtx...)
	} else {
		st.Logger.Error("Fabric event", logCtx...)
	}
	if st.Board.Event != nil {
		st.Board.Event(e)
	}
	if st.OnEvent != nil {
		st.OnEvent(e)
	}
}

// EventsWith returns the raised events carrying code.
func (st *State) EventsWith(code EventCode) []Event {
	var r []Event
	for _, e := range st.Events {
		if e.Code == code {
			r = append(r, e)
		}
	}
	return r
}
