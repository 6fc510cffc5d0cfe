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

package collapse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/achlys-project/achlys/internal/collapse"
	"github.com/achlys-project/achlys/internal/interproc"
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/nanid"
	"github.com/achlys-project/achlys/internal/oracle"
	"github.com/achlys-project/achlys/internal/oracle/refimpl"
	"github.com/achlys-project/achlys/internal/transfer"
)

func factory(f *ir.Function) (oracle.Dominance, oracle.LoopInfo, oracle.MemoryDependence) {
	dom := refimpl.NewSimpleDominance(f)
	return dom, refimpl.NewCFGLoopInfo(f, dom), refimpl.LocalMemDep{}
}

func newCache() *interproc.Cache {
	return interproc.NewCache(&interproc.Builder{
		Classifier: transfer.DefaultClassifier(),
		Oracles:    factory,
		NaNIDs:     nanid.New(),
	})
}

func TestCollapseRootConfirmsDivisionWithAllParamsTainted(t *testing.T) {
	f := ir.NewFunction("divide", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	a, b := f.Params[0], f.Params[1]
	div := ir.Emit(entry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, a, b, 0))
	ir.Emit(entry, ir.NewReturn(div, 0))

	solver := collapse.NewSolver(newCache())
	confirmed := solver.CollapseRoot(f)

	assert.Len(t, confirmed, 1)
	assert.Equal(t, f, confirmed[0].Func)
}

func TestCollapseRejectsDivisionWhenArgumentUntainted(t *testing.T) {
	f := ir.NewFunction("divide", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	a, b := f.Params[0], f.Params[1]
	div := ir.Emit(entry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, a, b, 0))
	ir.Emit(entry, ir.NewReturn(div, 0))

	solver := collapse.NewSolver(newCache())
	// Only the first parameter is tainted at this (non-root) call site;
	// the AND-rule requires both, so nothing should be confirmed.
	confirmed := solver.Collapse(f, map[int]bool{1: true})

	assert.Empty(t, confirmed)
}

func TestCollapseDescendsIntoCalleeAndConfirmsWithRealArgumentTaint(t *testing.T) {
	callee := ir.NewFunction("callee", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.DoubleType)
	cEntry := callee.NewBlock("entry")
	div := ir.Emit(cEntry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, callee.Params[0], callee.Params[1], 0))
	ir.Emit(cEntry, ir.NewReturn(div, 0))

	caller := ir.NewFunction("caller", []*ir.Type{ir.DoubleType}, ir.VoidType)
	callerEntry := caller.NewBlock("entry")
	untainted := ir.NewConst("1", ir.DoubleType, false)
	// Only the caller's own tainted parameter reaches the callee's first
	// argument; the second argument is a local constant.
	ir.Emit(callerEntry, ir.NewCall("r", callee, "callee", []ir.Value{caller.Params[0], untainted}, ir.DoubleType, 0))
	ir.Emit(callerEntry, ir.NewReturn(nil, 0))

	solver := collapse.NewSolver(newCache())
	confirmed := solver.CollapseRoot(caller)

	// The callee's division needs both parameters tainted; the call site
	// only taints the first, so nothing is confirmed through this path.
	assert.Empty(t, confirmed)
}

func TestCollapseConfirmsThroughCallSiteWhenBothArgsTainted(t *testing.T) {
	callee := ir.NewFunction("callee", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.DoubleType)
	cEntry := callee.NewBlock("entry")
	div := ir.Emit(cEntry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, callee.Params[0], callee.Params[1], 0))
	ir.Emit(cEntry, ir.NewReturn(div, 0))

	caller := ir.NewFunction("caller", []*ir.Type{ir.DoubleType}, ir.VoidType)
	callerEntry := caller.NewBlock("entry")
	ir.Emit(callerEntry, ir.NewCall("r", callee, "callee", []ir.Value{caller.Params[0], caller.Params[0]}, ir.DoubleType, 0))
	ir.Emit(callerEntry, ir.NewReturn(nil, 0))

	solver := collapse.NewSolver(newCache())
	confirmed := solver.CollapseRoot(caller)

	if assert.Len(t, confirmed, 1) {
		assert.Equal(t, callee, confirmed[0].Func)
		assert.Equal(t, []string{"callee"}, confirmed[0].CallPath)
	}
}

func TestCollapseDoesNotDivergeOnRecursiveCallCycle(t *testing.T) {
	f := ir.NewFunction("fact", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	call := ir.Emit(entry, ir.NewCall("r", f, "fact", []ir.Value{f.Params[0]}, ir.DoubleType, 0))
	ir.Emit(entry, ir.NewReturn(call, 0))

	solver := collapse.NewSolver(newCache())

	assert.NotPanics(t, func() {
		solver.CollapseRoot(f)
	})
}

func TestCollapseDoesNotLeakTaintPastFirstArgWhenOnlyOneCallerParamTainted(t *testing.T) {
	callee := ir.NewFunction("callee", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.DoubleType)
	cEntry := callee.NewBlock("entry")
	div := ir.Emit(cEntry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, callee.Params[0], callee.Params[1], 0))
	ir.Emit(cEntry, ir.NewReturn(div, 0))

	// caller has two real parameters; only the first is passed to callee,
	// and the call's own second argument is caller's *second* parameter
	// too (not a local constant), so a per-context-blind snapshot of
	// "is this value tainted in the caller's own all-tainted summary"
	// would wrongly say it is tainted even when, at this call site, only
	// the first caller parameter is actually tainted.
	caller := ir.NewFunction("caller", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.VoidType)
	callerEntry := caller.NewBlock("entry")
	ir.Emit(callerEntry, ir.NewCall("r", callee, "callee", []ir.Value{caller.Params[0], caller.Params[1]}, ir.DoubleType, 0))
	ir.Emit(callerEntry, ir.NewReturn(nil, 0))

	solver := collapse.NewSolver(newCache())
	// Only the caller's first parameter is tainted in this context.
	confirmed := solver.Collapse(caller, map[int]bool{1: true})

	// callee's division needs both of its own parameters tainted; only
	// the first call argument is actually tainted here, so nothing
	// should be confirmed.
	assert.Empty(t, confirmed)
}

func TestCollapseUnconditionalNaNConfirmsRegardlessOfArgs(t *testing.T) {
	f := ir.NewFunction("f", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	call := ir.Emit(entry, ir.NewCall("r", nil, "atof", nil, ir.DoubleType, 0))
	ir.Emit(entry, ir.NewReturn(call, 0))

	solver := collapse.NewSolver(newCache())
	confirmed := solver.Collapse(f, map[int]bool{})

	assert.Len(t, confirmed, 1)
}
