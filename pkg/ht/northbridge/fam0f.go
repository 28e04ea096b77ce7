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

package northbridge

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

// fam0FRevE is the first model of the revision E and later parts.
const fam0FRevE = 0x20

var fam0FFamily = family{
	name:        "fam0f",
	maxNodes:    ht.MaxNodes,
	maxLinks:    3,
	route:       htreg.RouteLayout4,
	coreCountHi: 13,
	sbLinkHi:    9,
	mpCap:       [4]int{1, 2, 4, 8},
	ceiling: func(id ID) ht.Frequency {
		if id.Model < fam0FRevE {
			return ht.Freq800
		}
		return ht.Freq1000
	},
	// No stop-link, isochronous, retry or distribution support, and the
	// reset buffer allocation is already right.
}

// fam0F is the three link, single die family.
type fam0F struct {
	base
}

func newFam0F(acc hw.Access, id ID) *fam0F {
	return &fam0F{base: base{acc: acc, id: id, fam: &fam0FFamily}}
}
