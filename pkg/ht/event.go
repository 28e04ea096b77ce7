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
	"fmt"
	"strings"
)

// EventClass is the severity of an event.
type EventClass uint8

const (
	ClassInfo EventClass = iota
	ClassWarning
	ClassError
	ClassHWFault
	ClassCritical
)

var classNames = map[EventClass]string{
	ClassInfo:     "info",
	ClassWarning:  "warning",
	ClassError:    "error",
	ClassHWFault:  "hw_fault",
	ClassCritical: "critical",
}

func (c EventClass) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("EventClass(%d)", uint8(c))
}

// EventCode identifies what happened.
type EventCode uint8

const (
	// Coherent fabric.
	CohNoTopology EventCode = iota + 1
	CohLinkExceed
	CohFamilyFeud
	CohNodeDiscovered
	CohMPCapMismatch

	// Non-coherent chains.
	NcohBusMaxExceed
	NcohCfgMapExceed
	NcohBUIDExceed
	NcohDeviceFailed
	NcohAutoDepth
	NcohLinkExceed

	// Hardware.
	HWSyncFlood
	HWHTCRC

	// Link optimization.
	OptRequiredCapRetry
	OptRequiredCapGen3
	OptNoCommonFrequency
)

var codeNames = map[EventCode]string{
	CohNoTopology:        "coh_no_topology",
	CohLinkExceed:        "coh_link_exceed",
	CohFamilyFeud:        "coh_family_feud",
	CohNodeDiscovered:    "coh_node_discovered",
	CohMPCapMismatch:     "coh_mpcap_mismatch",
	NcohBusMaxExceed:     "ncoh_bus_max_exceed",
	NcohCfgMapExceed:     "ncoh_cfg_map_exceed",
	NcohBUIDExceed:       "ncoh_buid_exceed",
	NcohDeviceFailed:     "ncoh_device_failed",
	NcohAutoDepth:        "ncoh_auto_depth",
	NcohLinkExceed:       "ncoh_link_exceed",
	HWSyncFlood:          "hw_sync_flood",
	HWHTCRC:              "hw_ht_crc",
	OptRequiredCapRetry:  "opt_required_cap_retry",
	OptRequiredCapGen3:   "opt_required_cap_gen3",
	OptNoCommonFrequency: "opt_no_common_frequency",
}

func (c EventCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("EventCode(%d)", uint8(c))
}

// Event describes an anomaly or milestone of the bring-up. Ctx holds
// key/value pairs naming the nodes, links and counts involved.
type Event struct {
	Class EventClass
	Code  EventCode
	Ctx   []any
}

// Value returns the context value stored under key.
func (e Event) Value(key string) (any, bool) {
	for i := 0; i+1 < len(e.Ctx); i += 2 {
		if k, ok := e.Ctx[i].(string); ok && k == key {
			return e.Ctx[i+1], true
		}
	}
	return nil, false
}

func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Class, e.Code)
	for i := 0; i+1 < len(e.Ctx); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Ctx[i], e.Ctx[i+1])
	}
	return b.String()
}
