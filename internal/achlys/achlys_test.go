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

package achlys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achlys-project/achlys/internal/achlys"
	"github.com/achlys-project/achlys/internal/irio"
)

const guardedDivisionModule = `
name: m
functions:
  - name: main
    params:
      - name: argc
        type: double
      - name: denom
        type: double
    rettype: double
    blocks:
      - name: entry
        succs: [safe, unsafe]
        instrs:
          - op: binop
            name: d
            type: double
            binop: fdiv
            x: argc
            y: denom
          - op: cmp
            name: c
            cmpop: lt
            x: d
            y: argc
          - op: branch
            cond: c
            then: safe
            else: unsafe
      - name: safe
        instrs:
          - op: return
            result: argc
      - name: unsafe
        instrs:
          - op: return
            result: argc
`

func TestAnalyzeFindsAndFiltersGuardedDivisionHazard(t *testing.T) {
	mod, err := irio.Decode([]byte(guardedDivisionModule))
	require.NoError(t, err)

	d := achlys.NewDriver(nil)
	report, err := d.Analyze(mod, achlys.Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, report.Confirmed)
	if assert.Len(t, report.Hazards, 1) {
		assert.Equal(t, "main", report.Hazards[0].Func.Name)
	}
	assert.Len(t, report.RewriteRequests, 1)
	assert.Empty(t, report.InjectedCalls)
}

func TestAnalyzeWithFaultInjectionRewritesModule(t *testing.T) {
	mod, err := irio.Decode([]byte(guardedDivisionModule))
	require.NoError(t, err)

	d := achlys.NewDriver(nil)
	report, err := d.Analyze(mod, achlys.Options{FaultInjection: true})
	require.NoError(t, err)

	require.Len(t, report.InjectedCalls, 1)
	assert.Equal(t, "injectNANFaultDouble", report.InjectedCalls[0].CalleeName)

	fn := mod.FunctionNamed("main")
	require.NotNil(t, fn)
	var sawThunkDecl bool
	for _, f := range mod.Functions {
		if f.Name == "injectNANFaultDouble" {
			sawThunkDecl = true
			assert.True(t, f.Declaration)
		}
	}
	assert.True(t, sawThunkDecl)
}

func TestAnalyzeMissingEntryPointIsAnError(t *testing.T) {
	mod, err := irio.Decode([]byte(guardedDivisionModule))
	require.NoError(t, err)

	d := achlys.NewDriver(nil)
	_, err = d.Analyze(mod, achlys.Options{EntryPoint: "doesNotExist"})
	assert.Error(t, err)
}
