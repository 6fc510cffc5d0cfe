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

// Package sarifreport renders filtered hazards (component H's output) as
// a SARIF 2.1.0 log, for consumption by CI/CD tooling and code-review
// UIs that understand the format.
package sarifreport

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/achlys-project/achlys/internal/filter"
)

const ruleID = "ACHLYS-ATTACKER-NAN"

// Write renders hazards as a SARIF log to w.
func Write(w io.Writer, hazards []filter.Hazard) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("sarifreport: %w", err)
	}

	run := sarif.NewRunWithInformationURI("achlys", "https://github.com/achlys-project/achlys")
	run.AddRule(ruleID).
		WithDescription("A value reachable from attacker-controlled input can become NaN and is compared before a branch that depends on it, where IEEE-754 semantics make every such comparison false.").
		WithName("AttackerControlledNaN").
		WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel("warning"))

	for _, h := range hazards {
		line := h.NaNValue.Line()
		msg := fmt.Sprintf("NaN-source #%d in %s reaches a comparison at line %d whose branch outcome is always false for NaN operands", h.NaNID, h.Func.Name, h.Cmp.Line())

		result := run.CreateResultForRule(ruleID).WithMessage(sarif.NewTextMessage(msg))

		region := sarif.NewRegion().WithStartLine(line)
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(h.Func.Name)).
				WithRegion(region),
		)
		result.AddLocation(location)

		props := map[string]interface{}{"naNID": strconv.Itoa(h.NaNID)}
		if len(h.CallPath) > 0 {
			props["callPath"] = h.CallPath
		}
		result.WithProperties(props)
	}

	report.AddRun(run)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
