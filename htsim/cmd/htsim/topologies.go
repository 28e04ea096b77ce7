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
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/htfabric/htinit/pkg/ht/topology"
	"github.com/htfabric/htinit/pkg/private/serrors"
)

func newTopologies(pather *cobra.Command, fs afero.Fs) *cobra.Command {
	var flags struct {
		library string
		format  string
	}

	cmd := &cobra.Command{
		Use:     "topologies",
		Short:   "List the reference topologies",
		Aliases: []string{"topo"},
		Example: fmt.Sprintf(`  %[1]s topologies
  %[1]s topologies --library board-topologies.yaml --format yaml`, pather.CommandPath()),
		Long: `'topologies' lists the reference topologies discovered fabrics are
matched against. Without --library the built-in library is listed. The yaml
format can be edited and fed back to a board configuration as its topology
library.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := topology.Default()
			if flags.library != "" {
				var err error
				if refs, err = topology.Load(fs, flags.library); err != nil {
					return err
				}
			}
			cmd.SilenceUsage = true

			switch flags.format {
			case "human":
				table := newTable(cmd.OutOrStdout())
				table.SetHeader([]string{"NAME", "NODES", "EDGES"})
				for _, r := range refs {
					e := topology.EntryOf(r)
					table.Append([]string{r.Name, strconv.Itoa(r.Nodes), fmt.Sprint(e.Edges)})
				}
				table.Render()
			case "yaml":
				raw, err := topology.Marshal(refs)
				if err != nil {
					return serrors.Wrap("encoding topology library", err)
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			default:
				return serrors.New("output format not supported", "format", flags.format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.library, "library", "", "Topology library file")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|yaml)")
	return cmd
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
