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

package config_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htfabric/htinit/pkg/private/serrors"
	"github.com/htfabric/htinit/private/config"
)

type poll struct {
	Tries int `toml:"tries,omitempty"`
}

func (p *poll) InitDefaults() {
	if p.Tries == 0 {
		p.Tries = 100
	}
}

func (p *poll) Validate() error {
	if p.Tries < 0 {
		return serrors.New("negative tries", "tries", p.Tries)
	}
	return nil
}

func (p *poll) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, "# Poll iterations before giving up. (default 100)\ntries = 100\n")
}

func (p *poll) ConfigName() string { return "poll" }

type testConfig struct {
	Name string `toml:"name,omitempty"`
	Poll poll   `toml:"poll,omitempty"`
}

func (c *testConfig) InitDefaults() { config.InitAll(&c.Poll) }

func (c *testConfig) Validate() error { return config.ValidateAll(&c.Poll) }

func (c *testConfig) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, "# Board name.\nname = \"sample\"\n")
	config.WriteSample(dst, path, ctx, &c.Poll)
}

func TestSample(t *testing.T) {
	var buf bytes.Buffer
	var cfg testConfig
	cfg.Sample(&buf, nil, nil)
	assert.Contains(t, buf.String(), "\n[poll]\n    # Poll iterations")

	var decoded testConfig
	require.NoError(t, config.Decode(buf.Bytes(), &decoded))
	assert.Equal(t, testConfig{Name: "sample", Poll: poll{Tries: 100}}, decoded)

	buf.Reset()
	config.WriteSample(&buf, config.Path{"board"}, nil, &cfg.Poll)
	assert.Contains(t, buf.String(), "[board.poll]")
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ok.toml", []byte("name = \"a\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/unknown.toml", []byte("nmae = \"a\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/invalid.toml",
		[]byte("[poll]\ntries = -1\n"), 0o644))

	var cfg testConfig
	require.NoError(t, config.Load(fs, "/ok.toml", &cfg))
	assert.Equal(t, testConfig{Name: "a", Poll: poll{Tries: 100}}, cfg)

	testCases := map[string]string{
		"unknown key": "/unknown.toml",
		"invalid":     "/invalid.toml",
		"missing":     "/missing.toml",
	}
	for name, file := range testCases {
		t.Run(name, func(t *testing.T) {
			var cfg testConfig
			assert.Error(t, config.Load(fs, file, &cfg))
		})
	}
}

func TestPath(t *testing.T) {
	p := config.Path{"a"}
	q := p.Extend("b")
	r := p.Extend("c")
	assert.Equal(t, config.Path{"a", "b"}, q)
	assert.Equal(t, config.Path{"a", "c"}, r)
	assert.Equal(t, config.Path{"a"}, p)
}
