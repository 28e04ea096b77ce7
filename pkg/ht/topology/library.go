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

import "sync"

var (
	defaultOnce sync.Once
	defaultLib  []Reference
)

// Default returns the built-in reference library, smallest fabrics first.
// The returned slice must not be modified.
func Default() []Reference {
	defaultOnce.Do(func() {
		defaultLib = []Reference{
			MustBuild("single", 1, nil),
			MustBuild("dual", 2, [][2]int{{0, 1}}),
			MustBuild("line3", 3, line(3)),
			MustBuild("triangle", 3, full(3)),
			MustBuild("line4", 4, line(4)),
			MustBuild("star4", 4, [][2]int{{0, 1}, {0, 2}, {0, 3}}),
			MustBuild("square", 4, ladder(4)),
			MustBuild("kite", 4, [][2]int{{0, 1}, {0, 2}, {1, 2}, {2, 3}}),
			MustBuild("square-diagonal", 4, append(ladder(4), [2]int{0, 3})),
			MustBuild("full4", 4, full(4)),
			MustBuild("full5", 5, full(5)),
			MustBuild("ladder6", 6, ladder(6)),
			MustBuild("twisted-ladder6", 6, twistedLadder(6)),
			MustBuild("full6", 6, full(6)),
			MustBuild("twisted-ladder7", 7, append(twistedLadder(6), [2]int{4, 6}, [2]int{5, 6})),
			MustBuild("full7", 7, full(7)),
			MustBuild("ladder8", 8, ladder(8)),
			MustBuild("twisted-ladder8", 8, twistedLadder(8)),
			MustBuild("hypercube8", 8, hypercube()),
			MustBuild("full8", 8, full(8)),
		}
	})
	return defaultLib
}

func line(n int) [][2]int {
	var e [][2]int
	for i := 0; i+1 < n; i++ {
		e = append(e, [2]int{i, i + 1})
	}
	return e
}

func full(n int) [][2]int {
	var e [][2]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			e = append(e, [2]int{i, j})
		}
	}
	return e
}

// ladder connects rungs (2i, 2i+1) by two rails.
func ladder(n int) [][2]int {
	var e [][2]int
	for i := 0; i+1 < n; i += 2 {
		e = append(e, [2]int{i, i + 1})
		if i+3 < n {
			e = append(e, [2]int{i, i + 2}, [2]int{i + 1, i + 3})
		}
	}
	return e
}

// twistedLadder closes a ladder by crossing its end rungs.
func twistedLadder(n int) [][2]int {
	return append(ladder(n), [2]int{0, n - 1}, [2]int{1, n - 2})
}

func hypercube() [][2]int {
	var e [][2]int
	for i := 0; i < 8; i++ {
		for b := 1; b < 8; b <<= 1 {
			if j := i ^ b; j > i {
				e = append(e, [2]int{i, j})
			}
		}
	}
	return e
}
