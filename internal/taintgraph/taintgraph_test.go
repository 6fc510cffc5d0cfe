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

package taintgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/taintgraph"
)

func val(name string) ir.Value { return ir.NewConst(name, ir.IntType, false) }

func TestAddTaintSourceIsIdempotent(t *testing.T) {
	g := taintgraph.New()
	v := val("v")

	n1 := g.AddTaintSource(v)
	n2 := g.AddTaintSource(v)

	assert.Same(t, n1, n2)
	assert.Equal(t, taintgraph.Source, n1.Kind)
}

func TestCheckAndPropagateTaintRequiresTaintedParent(t *testing.T) {
	g := taintgraph.New()
	parent, derived := val("p"), val("d")

	assert.False(t, g.CheckAndPropagateTaint(derived, parent))
	assert.False(t, g.IsTainted(derived))

	g.AddTaintSource(parent)
	assert.True(t, g.CheckAndPropagateTaint(derived, parent))
	assert.True(t, g.IsTainted(derived))

	dn := g.NodeFor(derived)
	if assert.NotNil(t, dn) {
		assert.Equal(t, taintgraph.Derived, dn.Kind)
		assert.Len(t, dn.Parents, 1)
	}
}

func TestMarkValueAsNaNSourceAndLookup(t *testing.T) {
	g := taintgraph.New()
	v := val("v")
	g.AddTaintSource(v)
	g.MarkValueAsNaNSource(v, 7)

	id, ok := g.NaNSourceID(v)
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = g.NaNSourceID(val("other"))
	assert.False(t, ok)
}

func TestReturnValueNaNSourcesWalksAncestry(t *testing.T) {
	g := taintgraph.New()
	src := val("src")
	nanVal := val("nan")
	ret := val("ret")

	g.AddTaintSource(src)
	g.CheckAndPropagateTaint(nanVal, src)
	g.MarkValueAsNaNSource(nanVal, 3)
	g.CheckAndPropagateTaint(ret, nanVal)
	g.MarkReturnValue(ret)

	ids := g.ReturnValueNaNSources()
	assert.Equal(t, []int{3}, ids)
}

func TestRemoveTaintDetachesNode(t *testing.T) {
	g := taintgraph.New()
	parent, derived := val("p"), val("d")
	g.AddTaintSource(parent)
	g.CheckAndPropagateTaint(derived, parent)

	g.RemoveTaint(derived)

	assert.False(t, g.IsTainted(derived))
	pn := g.NodeFor(parent)
	if assert.NotNil(t, pn) {
		assert.Empty(t, pn.Children)
	}
}

func TestNaNNodesAndReturnNodes(t *testing.T) {
	g := taintgraph.New()
	a, b, c := val("a"), val("b"), val("c")
	g.AddTaintSource(a)
	g.MarkValueAsNaNSource(a, 1)
	g.AddTaintSource(b)
	g.MarkReturnValue(b)
	g.AddTaintSource(c)

	assert.Len(t, g.NaNNodes(), 1)
	assert.Len(t, g.ReturnNodes(), 1)
}

func TestCallStackBookkeeping(t *testing.T) {
	g := taintgraph.New()

	assert.False(t, g.OnCallStack("f"))
	g.PushCall("f")
	assert.True(t, g.OnCallStack("f"))
	g.PushCall("g")
	assert.True(t, g.OnCallStack("g"))
	g.PopCall()
	assert.False(t, g.OnCallStack("g"))
	assert.True(t, g.OnCallStack("f"))

	g.ResetCurrentCallStack()
	assert.False(t, g.OnCallStack("f"))
}

func TestCheckAndPropagateTaintCarriesNaNPedigreeForward(t *testing.T) {
	g := taintgraph.New()
	src := val("src")
	nanVal := val("nan")
	oneHop := val("oneHop")
	twoHops := val("twoHops")

	g.AddTaintSource(src)
	g.CheckAndPropagateTaint(nanVal, src)
	g.MarkValueAsNaNSource(nanVal, 9)

	g.CheckAndPropagateTaint(oneHop, nanVal)
	assert.Equal(t, []int{9}, g.NodeFor(oneHop).NaNIDs())

	g.CheckAndPropagateTaint(twoHops, oneHop)
	assert.Equal(t, []int{9}, g.NodeFor(twoHops).NaNIDs())

	// The origination node itself still reports its own id via NaNIDs.
	assert.Equal(t, []int{9}, g.NodeFor(nanVal).NaNIDs())
}

func TestCheckAndPropagateTaintUnionsMultipleNaNOrigins(t *testing.T) {
	g := taintgraph.New()
	a, b, merged := val("a"), val("b"), val("merged")

	g.AddTaintSource(a)
	g.MarkValueAsNaNSource(a, 1)
	g.AddTaintSource(b)
	g.MarkValueAsNaNSource(b, 2)

	g.CheckAndPropagateTaint(merged, a)
	g.CheckAndPropagateTaint(merged, b)

	assert.ElementsMatch(t, []int{1, 2}, g.NodeFor(merged).NaNIDs())
}

func TestMergeMemDepGraphFoldsInNewNodes(t *testing.T) {
	g1 := taintgraph.New()
	other := taintgraph.New()

	src := val("src")
	derived := val("derived")
	other.AddTaintSource(src)
	other.CheckAndPropagateTaint(derived, src)

	g1.MergeMemDepGraph(other)

	assert.True(t, g1.IsTainted(src))
	assert.True(t, g1.IsTainted(derived))
	dn := g1.NodeFor(derived)
	if assert.NotNil(t, dn) {
		assert.Len(t, dn.Parents, 1)
	}
}
