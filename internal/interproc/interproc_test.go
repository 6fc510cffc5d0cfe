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

package interproc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

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

func newBuilder() *interproc.Builder {
	return &interproc.Builder{
		Classifier: transfer.DefaultClassifier(),
		Oracles:    factory,
		NaNIDs:     nanid.New(),
	}
}

func TestBuildDeclarationReturnsTrivialSummary(t *testing.T) {
	f := ir.NewFunction("atof", []*ir.Type{ir.PointerTo(ir.IntType)}, ir.DoubleType)
	f.Declaration = true

	sum := newBuilder().Build(f)

	assert.Empty(t, sum.NaNParams)
	assert.Empty(t, sum.ReturnParams)
	assert.False(t, sum.ReturnsTainted)
}

func TestBuildDivisionSummaryRecordsRequiredParams(t *testing.T) {
	f := ir.NewFunction("divide", []*ir.Type{ir.DoubleType, ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	a, b := f.Params[0], f.Params[1]

	div := ir.Emit(entry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, a, b, 0))
	ir.Emit(entry, ir.NewReturn(div, 0))

	sum := newBuilder().Build(f)

	assert.Len(t, sum.NaNParams, 1)
	for _, params := range sum.NaNParams {
		assert.ElementsMatch(t, []int{1, 2}, params)
	}
	assert.True(t, sum.ReturnsTainted)
	assert.ElementsMatch(t, []int{1, 2}, sum.ReturnParams)
	assert.Len(t, sum.ReturnNaNIDs, 1)
}

func TestBuildNonDivisionFunctionHasNoNaNButTaintedReturn(t *testing.T) {
	f := ir.NewFunction("identity", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	p := f.Params[0]
	ir.Emit(entry, ir.NewReturn(p, 0))

	sum := newBuilder().Build(f)

	assert.Empty(t, sum.NaNParams)
	assert.Empty(t, sum.ReturnNaNIDs)
	assert.True(t, sum.ReturnsTainted)
	assert.Equal(t, []int{1}, sum.ReturnParams)
}

func TestBuildConstantReturnIsNeverTaintedRegardlessOfParams(t *testing.T) {
	f := ir.NewFunction("always5", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	five := ir.NewConst("5", ir.DoubleType, false)
	ir.Emit(entry, ir.NewReturn(five, 0))

	sum := newBuilder().Build(f)

	// ReturnParams is empty here too, but for the opposite reason as the
	// unconditional-taint case: ReturnsTainted disambiguates the two.
	assert.False(t, sum.ReturnsTainted)
	assert.Empty(t, sum.ReturnParams)
}

func TestCacheMemoizesSummaries(t *testing.T) {
	f := ir.NewFunction("f", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	ir.Emit(entry, ir.NewReturn(f.Params[0], 0))

	cache := interproc.NewCache(newBuilder())
	first := cache.SummaryFor(f)
	second := cache.SummaryFor(f)

	assert.Same(t, first, second)
}

func TestCacheHandlesDirectRecursionWithoutHanging(t *testing.T) {
	// fact(n) calls itself directly; Build must not recurse forever when
	// resolving the self-call's summary through the cache.
	f := ir.NewFunction("fact", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	entry := f.NewBlock("entry")
	call := ir.Emit(entry, ir.NewCall("r", f, "fact", []ir.Value{f.Params[0]}, ir.DoubleType, 0))
	ir.Emit(entry, ir.NewReturn(call, 0))

	cache := interproc.NewCache(newBuilder())

	assert.NotPanics(t, func() {
		sum := cache.SummaryFor(f)
		assert.NotNil(t, sum)
	})
}

func TestCallResultFromUserDefinedCalleeCrossesTheTaintBoundary(t *testing.T) {
	// helper(x) unconditionally taints its return from its own parameter;
	// caller(y) divides by helper(y)'s result. The division must show up
	// in caller's own summary, requiring y's taint (parameter 1).
	helper := ir.NewFunction("helper", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	hEntry := helper.NewBlock("entry")
	ir.Emit(hEntry, ir.NewReturn(helper.Params[0], 0))

	caller := ir.NewFunction("caller", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	cEntry := caller.NewBlock("entry")
	one := ir.NewConst("1", ir.DoubleType, false)
	callRes := ir.Emit(cEntry, ir.NewCall("r", helper, "helper", []ir.Value{caller.Params[0]}, ir.DoubleType, 0))
	div := ir.Emit(cEntry, ir.NewBinOp("d", ir.FDiv, ir.DoubleType, one, callRes, 0))
	ir.Emit(cEntry, ir.NewReturn(div, 0))

	cache := interproc.NewCache(newBuilder())
	sum := cache.SummaryFor(caller)

	assert.Len(t, sum.NaNParams, 1)
	for _, params := range sum.NaNParams {
		assert.Equal(t, []int{1}, params)
	}
}

func TestBuildAllPopulatesEveryFunction(t *testing.T) {
	f1 := ir.NewFunction("f1", []*ir.Type{ir.DoubleType}, ir.DoubleType)
	ir.Emit(f1.NewBlock("entry"), ir.NewReturn(f1.Params[0], 0))

	f2 := ir.NewFunction("f2", nil, ir.VoidType)
	f2.Declaration = true

	mod := &ir.Module{Name: "m", Functions: []*ir.Function{f1, f2}}

	cache := interproc.NewCache(newBuilder())
	cache.BuildAll(mod)

	sum1 := cache.SummaryFor(f1)
	sum2 := cache.SummaryFor(f2)
	assert.True(t, sum1.ReturnsTainted)
	assert.False(t, sum2.ReturnsTainted)
}
