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

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "achlys",
	Short: "Achlys finds attacker-controlled NaN values that slip past comparison-based guards",
	Long: `Achlys is an inter-procedural, context-sensitive static analysis
that tracks attacker-controlled input to the points where it can produce
an IEEE-754 NaN, then reports every such NaN that reaches a comparison
feeding a conditional branch -- the case where the guard the program
author wrote can never actually catch it, since every NaN comparison is
false.`,
}

// Execute runs the root command, returning any error after printing it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
