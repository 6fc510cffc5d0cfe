// Copyright 2026 The Achlys Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/achlys-project/achlys/internal/achlys"
	"github.com/achlys-project/achlys/internal/irio"
	"github.com/achlys-project/achlys/internal/logsink"
	"github.com/achlys-project/achlys/internal/sarifreport"
)

var (
	verbosity      int
	faultInjection bool
	sarifPath      string
	outPath        string
	entryPoint     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <module.yaml>",
	Short: "Analyze a YAML-described IR module for attacker-controlled NaN hazards",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&verbosity, "verbose", "v", 0, "diagnostic verbosity, 0 (silent) through 4 (live trace)")
	analyzeCmd.Flags().BoolVar(&faultInjection, "fault-injection", false, "rewrite the module with fault-injection probes at every surviving hazard")
	analyzeCmd.Flags().StringVar(&sarifPath, "sarif", "", "write findings as a SARIF 2.1.0 log to this path")
	analyzeCmd.Flags().StringVar(&outPath, "out", "", "write a human-readable report to this path instead of stdout")
	analyzeCmd.Flags().StringVar(&entryPoint, "entry", "main", "name of the function to start collapsing the call graph from")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("analyze: reading %q: %w", args[0], err)
	}
	module, err := irio.Decode(data)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	log := logsink.New(cmd.OutOrStderr(), logsink.Level(verbosity))
	driver := achlys.NewDriver(log)

	report, err := driver.Analyze(module, achlys.Options{
		FaultInjection: faultInjection,
		EntryPoint:     entryPoint,
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("analyze: creating %q: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}
	printReport(out, report)

	if sarifPath != "" {
		f, err := os.Create(sarifPath)
		if err != nil {
			return fmt.Errorf("analyze: creating %q: %w", sarifPath, err)
		}
		defer f.Close()
		if err := sarifreport.Write(f, report.Hazards); err != nil {
			return fmt.Errorf("analyze: writing sarif: %w", err)
		}
	}

	return nil
}

func printReport(w interface{ Write([]byte) (int, error) }, report *achlys.Report) {
	if len(report.Hazards) == 0 {
		fmt.Fprintln(w, color.GreenString("no attacker-controlled NaN hazards found"))
		return
	}
	for _, h := range report.Hazards {
		fmt.Fprintf(w, "%s %s: NaN-source #%d (line %d) reaches comparison at line %d, branch outcome always false\n",
			color.RedString("hazard"), h.Func.Name, h.NaNID, h.NaNValue.Line(), h.Cmp.Line())
	}
	if len(report.InjectedCalls) > 0 {
		fmt.Fprintf(w, "%s %d fault-injection probe(s) inserted\n", color.YellowString("fault-injection:"), len(report.InjectedCalls))
	}
}
