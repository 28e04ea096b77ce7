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

// htsim runs the fabric bring-up against a simulated system and prints what
// it programmed.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRoot(filepath.Base(os.Args[0]), afero.NewOsFs())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRoot(executable string, fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   executable,
		Short: "HyperTransport fabric bring-up simulator",
		Args:  cobra.NoArgs,
		// Errors are printed in main.
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newRun(cmd, fs),
		newTopologies(cmd, fs),
		newSample(cmd),
	)
	return cmd
}
