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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v2"

	"github.com/htfabric/htinit/pkg/private/serrors"
)

// compare checks res against an expected yaml report and writes the
// differing lines to w. Both sides are normalized through Report, so
// comments and key order in the expected file do not matter.
func compare(w io.Writer, res Report, expected []byte, colored bool) error {
	var want Report
	if err := yaml.Unmarshal(expected, &want); err != nil {
		return serrors.Wrap("parsing expected report", err)
	}
	act, err := yaml.Marshal(res)
	if err != nil {
		return err
	}
	exp, err := yaml.Marshal(want)
	if err != nil {
		return err
	}
	if string(act) == string(exp) {
		fmt.Fprintln(w, pass(colored))
		return nil
	}
	fmt.Fprintln(w, fail(colored))
	fmt.Fprint(w, lineDiff(string(act), string(exp), colored))
	return serrors.New("report differs from expectation")
}

// lineDiff renders the lines only in exp with a '-' and the lines only in
// act with a '+'. Unchanged lines are dropped.
func lineDiff(act, exp string, colored bool) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(exp, act)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	noColor := color.New()
	del, ins := noColor, noColor
	if colored {
		del = color.New(color.FgRed)
		ins = color.New(color.FgGreen)
	}
	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		c := noColor
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, c = "-", del
		case diffmatchpatch.DiffInsert:
			prefix, c = "+", ins
		default:
			continue
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			sb.WriteString(c.Sprint(prefix + strings.TrimSuffix(l, "\n")))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func pass(colored bool) string {
	if colored {
		return color.GreenString("✔ PASS")
	}
	return "PASS"
}

func fail(colored bool) string {
	if colored {
		return color.RedString("✕ FAIL")
	}
	return "FAIL"
}
