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

// Package xtest holds helpers shared by tests.
package xtest

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

// MustWriteToFile writes b to file testdata/baseName. If the file exists, it
// is truncated; if it doesn't exist, it is created. On errors, t.Fatal() is
// called.
func MustWriteToFile(t testing.TB, b []byte, baseName string) {
	t.Helper()

	if err := os.WriteFile(ExpandPath(baseName), b, 0644); err != nil {
		t.Fatal(err)
	}
}

// MustReadFromFile reads testdata/baseName and returns the raw content. On
// errors, t.Fatal() is called.
func MustReadFromFile(t testing.TB, baseName string) []byte {
	t.Helper()

	b, err := os.ReadFile(ExpandPath(baseName))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// ExpandPath returns testdata/file.
func ExpandPath(file string) string {
	return filepath.Join("testdata", file)
}

// TestdataFs returns an in-memory file system holding the named testdata
// files at its root, so testdata/fabric.yaml is available as /fabric.yaml.
func TestdataFs(t testing.TB, baseNames ...string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for _, name := range baseNames {
		raw := MustReadFromFile(t, name)
		if err := afero.WriteFile(fs, "/"+name, raw, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

var whitespace = regexp.MustCompile(`\s+`)

// MustParseHexString parses s and returns the corresponding byte slice.
// Whitespace is ignored. It panics if the decoding fails.
func MustParseHexString(s string) []byte {
	decoded, err := hex.DecodeString(whitespace.ReplaceAllString(s, ""))
	if err != nil {
		panic(err)
	}
	return decoded
}

// AssertError checks that err is not nil if expectError is true and that is it nil otherwise
func AssertError(t *testing.T, err error, expectError bool) {
	t.Helper()

	if expectError {
		assert.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}
