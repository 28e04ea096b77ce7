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

package hw

import (
	"github.com/htfabric/htinit/pkg/private/serrors"
)

// DefaultPollBound is the iteration bound used for hardware handshakes.
const DefaultPollBound = 10000

// Poll calls done until it returns true, at most bound times. There is no
// clock this early, so an exhausted bound stands in for a hardware timeout
// and panics.
func Poll(bound int, what string, done func() bool) {
	for i := 0; i < bound; i++ {
		if done() {
			return
		}
	}
	panic(serrors.New("hardware handshake timed out", "what", what, "iterations", bound))
}
