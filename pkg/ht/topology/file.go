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

import (
	"encoding/hex"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/htfabric/htinit/pkg/private/serrors"
)

// Entry is the file form of a reference. Either Edges or Compressed (hex)
// must be given.
type Entry struct {
	Name       string   `yaml:"name"`
	Nodes      int      `yaml:"nodes"`
	Edges      [][2]int `yaml:"edges,omitempty"`
	Compressed string   `yaml:"compressed,omitempty"`
}

// File is a reference library file.
type File struct {
	Topologies []Entry `yaml:"topologies"`
}

// Reference converts the entry.
func (e Entry) Reference() (Reference, error) {
	if e.Compressed == "" {
		return Build(e.Name, e.Nodes, e.Edges)
	}
	if len(e.Edges) != 0 {
		return Reference{}, serrors.New("edges and compressed data are exclusive",
			"topology", e.Name)
	}
	data, err := hex.DecodeString(e.Compressed)
	if err != nil {
		return Reference{}, serrors.Wrap("decoding compressed data", err, "topology", e.Name)
	}
	r := Reference{Name: e.Name, Nodes: e.Nodes, Data: data}
	if err := r.Validate(); err != nil {
		return Reference{}, err
	}
	return r, nil
}

// EntryOf returns r with both its edge list and compressed data filled in,
// for display. Drop one of the two before parsing it back.
func EntryOf(r Reference) Entry {
	g := r.Decode()
	return Entry{
		Name:       r.Name,
		Nodes:      r.Nodes,
		Compressed: hex.EncodeToString(r.Data),
		Edges:      g.Edges(),
	}
}

// Parse decodes a library from YAML.
func Parse(raw []byte) ([]Reference, error) {
	var f File
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, serrors.Wrap("parsing topology library", err)
	}
	if len(f.Topologies) == 0 {
		return nil, serrors.New("topology library is empty")
	}
	refs := make([]Reference, 0, len(f.Topologies))
	for i, e := range f.Topologies {
		r, err := e.Reference()
		if err != nil {
			return nil, serrors.Wrap("invalid topology", err, "index", i)
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// Load reads a library file.
func Load(fs afero.Fs, path string) ([]Reference, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, serrors.Wrap("reading topology library", err, "file", path)
	}
	refs, err := Parse(raw)
	if err != nil {
		return nil, serrors.Wrap("loading topology library", err, "file", path)
	}
	return refs, nil
}

// Marshal encodes a library as YAML. Edge lists are omitted for entries
// that also carry compressed data, since the data is authoritative.
func Marshal(refs []Reference) ([]byte, error) {
	f := File{Topologies: make([]Entry, 0, len(refs))}
	for _, r := range refs {
		e := EntryOf(r)
		e.Edges = nil
		f.Topologies = append(f.Topologies, e)
	}
	return yaml.Marshal(f)
}
