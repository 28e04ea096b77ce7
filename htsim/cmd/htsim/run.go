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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/ht/bringup"
	"github.com/htfabric/htinit/pkg/hw/sim"
	"github.com/htfabric/htinit/pkg/log"
	"github.com/htfabric/htinit/pkg/metrics"
	"github.com/htfabric/htinit/pkg/private/serrors"
	"github.com/htfabric/htinit/private/boardcfg"
)

func newRun(pather *cobra.Command, fs afero.Fs) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("htsim")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bring up a simulated fabric",
		Example: fmt.Sprintf(`  %[1]s run --fabric fabric.yaml
  %[1]s run --fabric fabric.yaml --board board.toml --format json
  %[1]s run --fabric fabric.yaml --metrics --log.level debug
  %[1]s run --fabric fabric.yaml --format yaml > expected.yaml
  HTSIM_FABRIC=fabric.yaml %[1]s run --expect expected.yaml`, pather.CommandPath()),
		Long: `'run' resets the simulated fabric described by --fabric, runs the complete
bring-up against it and prints the links, routing tables and devices as
they are programmed afterwards, followed by the raised events.

The fabric description is YAML. The optional board configuration is TOML,
see the 'sample' command.

With --expect the result is compared against a report previously written
with --format yaml. A mismatch prints the difference and fails the command.

Every flag can also be set through the environment, prefixed with HTSIM_
and with dots and dashes replaced by underscores, e.g. HTSIM_LOG_LEVEL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString("format")
			if err := log.Setup(log.Config{
				Level:  v.GetString("log.level"),
				Output: cmd.ErrOrStderr(),
			}); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			printf, err := getPrintf(format, cmd.OutOrStdout())
			if err != nil {
				return serrors.Wrap("get formatting", err)
			}
			if v.GetString("fabric") == "" {
				return serrors.New("no fabric description given")
			}
			fabric, err := sim.Load(fs, v.GetString("fabric"))
			if err != nil {
				return err
			}
			var board *ht.Board
			if file := v.GetString("board"); file != "" {
				cfg, err := boardcfg.Load(fs, file)
				if err != nil {
					return err
				}
				if board, err = cfg.Board(fs); err != nil {
					return err
				}
			}
			var expected []byte
			if file := v.GetString("expect"); file != "" {
				if expected, err = afero.ReadFile(fs, file); err != nil {
					return serrors.Wrap("reading expected report", err, "file", file)
				}
			}
			s, err := sim.New(fabric)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("timeout"))
			defer cancel()
			reg := prometheus.NewRegistry()
			st, err := bringup.Run(ctx, s, board,
				bringup.WithMetrics(bringup.NewMetrics(metrics.WithRegistry(reg))))
			if err != nil {
				return err
			}
			res := newReport(st, s, fabric)
			colored := !v.GetBool("no-color") && isTerminal(cmd.OutOrStdout())

			switch format {
			case "human":
				res.Human(cmd.OutOrStdout(), colored)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				if err := enc.Encode(res); err != nil {
					return err
				}
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			if v.GetBool("metrics") {
				// Machine readable output keeps stdout parseable.
				out := cmd.ErrOrStderr()
				if format == "human" {
					printf("\nMetrics:\n")
					out = cmd.OutOrStdout()
				}
				if err := writeMetrics(out, reg); err != nil {
					return err
				}
			}
			if expected == nil {
				return nil
			}
			out := cmd.ErrOrStderr()
			if format == "human" {
				out = cmd.OutOrStdout()
			}
			return compare(out, res, expected, colored)
		},
	}

	registerRunFlags(cmd.Flags())
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func registerRunFlags(flags *pflag.FlagSet) {
	flags.String("fabric", "", "Fabric description file")
	flags.String("board", "", "Board configuration file")
	flags.String("expect", "", "Expected report file (yaml)")
	flags.String("format", "human", "Specify the output format (human|json|yaml)")
	flags.Bool("metrics", false, "Dump the bring-up metrics in Prometheus text format")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log.level", "", "Console logging level (debug|info|error)")
	flags.Duration("timeout", 5*time.Second, "Timeout")
}

// getPrintf returns a printf function for the "human" formatting flag and an
// empty one for machine readable format flags.
func getPrintf(output string, writer io.Writer) (func(format string, ctx ...any), error) {
	switch output {
	case "human":
		return func(format string, ctx ...any) {
			fmt.Fprintf(writer, format, ctx...)
		}, nil
	case "yaml", "json":
		return func(format string, ctx ...any) {}, nil
	default:
		return nil, serrors.New("format not supported", "format", output)
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return serrors.Wrap("gathering metrics", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return serrors.Wrap("writing metrics", err)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
