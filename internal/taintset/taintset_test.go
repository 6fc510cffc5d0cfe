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

package taintset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/taintgraph"
	"github.com/achlys-project/achlys/internal/taintset"
)

func val(name string) ir.Value { return ir.NewConst(name, ir.IntType, false) }

func TestAddTaintSourceAndIsTainted(t *testing.T) {
	s := taintset.New(taintgraph.New())
	v := val("v")

	assert.False(t, s.IsTainted(v))
	s.AddTaintSource(v)
	assert.True(t, s.IsTainted(v))
}

func TestCheckAndPropagateTaintNoOpUntilParentTainted(t *testing.T) {
	s := taintset.New(taintgraph.New())
	parent, derived := val("p"), val("d")

	assert.False(t, s.CheckAndPropagateTaint(derived, parent))
	assert.False(t, s.IsTainted(derived))

	s.AddTaintSource(parent)
	assert.True(t, s.CheckAndPropagateTaint(derived, parent))
	assert.True(t, s.IsTainted(derived))
}

func TestAddNaNSourceMarksTaintedAndNaN(t *testing.T) {
	s := taintset.New(taintgraph.New())
	v := val("v")

	s.AddNaNSource(v, 5)

	assert.True(t, s.IsTainted(v))
	id, ok := s.IsNaNValue(v)
	assert.True(t, ok)
	assert.Equal(t, 5, id)
}

func TestRemoveTaintClearsAllState(t *testing.T) {
	s := taintset.New(taintgraph.New())
	v := val("v")
	s.AddNaNSource(v, 1)

	s.RemoveTaint(v)

	assert.False(t, s.IsTainted(v))
	_, ok := s.IsNaNValue(v)
	assert.False(t, ok)
}

func TestUnconditionalTaintTracking(t *testing.T) {
	s := taintset.New(taintgraph.New())
	v := val("v")

	assert.False(t, s.IsUnconditionalTainted(v))
	s.MarkUnconditional(v)
	assert.True(t, s.IsUnconditionalTainted(v))
}

func TestMarkThisValueAsReturnValueRequiresTaint(t *testing.T) {
	g := taintgraph.New()
	s := taintset.New(g)
	v := val("v")

	s.MarkThisValueAsReturnValue(v)
	assert.Empty(t, g.ReturnNodes())

	s.AddTaintSource(v)
	s.MarkThisValueAsReturnValue(v)
	assert.Len(t, g.ReturnNodes(), 1)
}

func TestLoopChangeTrackingLifecycle(t *testing.T) {
	s := taintset.New(taintgraph.New())
	v := val("v")

	s.TrackNewLoop()
	assert.False(t, s.GetCurrentLoopTaintsChanged())

	s.AddTaintSource(v)
	assert.True(t, s.GetCurrentLoopTaintsChanged())

	s.ResetCurrentLoopTaintsChanged()
	assert.False(t, s.GetCurrentLoopTaintsChanged())

	s.FinishTrackingLoop()
}

func TestNestedLoopFramesAreIndependent(t *testing.T) {
	s := taintset.New(taintgraph.New())
	outer, inner := val("outer"), val("inner")

	s.TrackNewLoop()
	s.AddTaintSource(outer)
	s.ResetCurrentLoopTaintsChanged()

	s.TrackNewLoop()
	assert.False(t, s.GetCurrentLoopTaintsChanged())
	s.AddTaintSource(inner)
	assert.True(t, s.GetCurrentLoopTaintsChanged())
	s.FinishTrackingLoop()

	// Outer frame's flag was unaffected by the taint added while the
	// inner frame was on top.
	assert.False(t, s.GetCurrentLoopTaintsChanged())
	s.FinishTrackingLoop()
}

func TestGraphExposesUnderlyingGraph(t *testing.T) {
	g := taintgraph.New()
	s := taintset.New(g)
	assert.Same(t, g, s.Graph())
}
