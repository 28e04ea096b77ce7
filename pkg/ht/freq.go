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
	"math/bits"
	"strings"
)

// Frequency is a HyperTransport link frequency code.
type Frequency uint8

const (
	Freq200 Frequency = iota
	Freq300
	Freq400
	Freq500
	Freq600
	Freq800
	Freq1000
	Freq1200
	Freq1400
	Freq1600
	Freq1800
	Freq2000
	Freq2200
	Freq2400
	Freq2600
)

var freqMHz = [...]int{200, 300, 400, 500, 600, 800, 1000, 1200, 1400, 1600, 1800, 2000,
	2200, 2400, 2600}

// MHz returns the link clock of f.
func (f Frequency) MHz() int {
	if int(f) >= len(freqMHz) {
		return 0
	}
	return freqMHz[f]
}

// Gen3 reports whether f is only reachable with HT3 signalling.
func (f Frequency) Gen3() bool {
	return f > Freq1000
}

func (f Frequency) String() string {
	if int(f) >= len(freqMHz) {
		return fmt.Sprintf("Frequency(%d)", uint8(f))
	}
	return fmt.Sprintf("%dMHz", freqMHz[f])
}

// FrequencyFromMHz returns the code of an exact link clock.
func FrequencyFromMHz(mhz int) (Frequency, bool) {
	for i, v := range freqMHz {
		if v == mhz {
			return Frequency(i), true
		}
	}
	return 0, false
}

// FreqMask is a set of frequency codes, bit n standing for code n.
type FreqMask uint16

// FreqMaskAll contains every defined frequency code.
const FreqMaskAll FreqMask = 1<<(Freq2600+1) - 1

// FreqMaskUpTo returns the set of codes not faster than f.
func FreqMaskUpTo(f Frequency) FreqMask {
	return FreqMask(1)<<(f+1) - 1
}

// FreqMaskUpToMHz returns the set of codes whose clock does not exceed mhz.
// A zero mhz means no limit.
func FreqMaskUpToMHz(mhz int) FreqMask {
	if mhz == 0 {
		return FreqMaskAll
	}
	var m FreqMask
	for i, v := range freqMHz {
		if v <= mhz {
			m |= 1 << i
		}
	}
	return m
}

func (m FreqMask) Has(f Frequency) bool { return m&(1<<f) != 0 }

// Without returns m with f removed.
func (m FreqMask) Without(f Frequency) FreqMask { return m &^ (1 << f) }

// Highest returns the fastest code in m.
func (m FreqMask) Highest() (Frequency, bool) {
	if m == 0 {
		return 0, false
	}
	return Frequency(bits.Len16(uint16(m)) - 1), true
}

func (m FreqMask) String() string {
	var s []string
	for f := Freq200; f <= Freq2600; f++ {
		if m.Has(f) {
			s = append(s, f.String())
		}
	}
	return "{" + strings.Join(s, ",") + "}"
}

// Width is a link width in bits.
type Width uint8

const (
	Width2  Width = 2
	Width4  Width = 4
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
)

// Valid reports whether w is a width a link can run at.
func (w Width) Valid() bool {
	switch w {
	case Width2, Width4, Width8, Width16, Width32:
		return true
	}
	return false
}

// MinWidth returns the narrowest of the given widths.
func MinWidth(w Width, ws ...Width) Width {
	for _, o := range ws {
		if o < w {
			w = o
		}
	}
	return w
}

// Feature holds link feature capability bits as the hardware reports them.
type Feature uint16

const (
	FeatureIsochronous Feature = 1 << 0
	FeatureRetry       Feature = 1 << 8
	FeatureScrambling  Feature = 1 << 9
)
