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

package sim

import (
	"github.com/htfabric/htinit/pkg/hw"
)

// Write is one recorded register write.
type Write struct {
	Addr  hw.Address
	Value uint32
}

// Recorder passes accesses through and logs every write.
type Recorder struct {
	hw.Access
	Writes []Write
}

func (r *Recorder) Write(a hw.Address, v uint32) {
	r.Writes = append(r.Writes, Write{Addr: a, Value: v})
	r.Access.Write(a, v)
}

// Reset drops the recorded writes.
func (r *Recorder) Reset() { r.Writes = nil }

// Matching returns the recorded writes accepted by keep.
func (r *Recorder) Matching(keep func(hw.Address) bool) []Write {
	var m []Write
	for _, w := range r.Writes {
		if keep(w.Addr) {
			m = append(m, w)
		}
	}
	return m
}
