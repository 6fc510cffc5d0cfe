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

// Package taintset implements component C: the flow-sensitive
// per-function "may be tainted at this program point" set, layered on
// top of a component B taintgraph.Graph. It also carries the bookkeeping
// the nested-loop fixpoint driver (component E) needs to know when a
// loop body has stopped changing. Grounded on the original
// implementation's FunctionTaintSet (original_source/TaintChecker/TaintChecker.h).
package taintset

import (
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/taintgraph"
)

// loopFrame tracks whether any taint fact changed during the current
// pass over one loop's body; the driver pops it once the loop reaches a
// fixpoint.
type loopFrame struct {
	changed bool
}

// Set is the live taint state at one program point within a function:
// which values are currently (may-)tainted, which of those are
// unconditionally tainted (every path reaching this point taints them,
// vs. only some), and which carry a NaN-source id.
type Set struct {
	graph *taintgraph.Graph

	tainted       map[ir.Value]bool
	unconditional map[ir.Value]bool
	nanValues     map[ir.Value]int

	loopStack []*loopFrame
}

func New(g *taintgraph.Graph) *Set {
	return &Set{
		graph:         g,
		tainted:       map[ir.Value]bool{},
		unconditional: map[ir.Value]bool{},
		nanValues:     map[ir.Value]int{},
	}
}

// CheckAndPropagateTaint marks derived tainted if parent is tainted,
// recording the dependency edge in the underlying graph. Returns true
// if derived is tainted as a result (including if it already was).
func (s *Set) CheckAndPropagateTaint(derived, parent ir.Value) bool {
	if !s.tainted[parent] {
		return s.tainted[derived]
	}
	s.graph.CheckAndPropagateTaint(derived, parent)
	if !s.tainted[derived] {
		s.tainted[derived] = true
		s.markLoopChanged()
	}
	return true
}

// AddTaintSource marks v as a fresh top-level taint origin (a tainted
// parameter, or the address a tainted global resolves to).
func (s *Set) AddTaintSource(v ir.Value) {
	if s.tainted[v] {
		return
	}
	s.graph.AddTaintSource(v)
	s.tainted[v] = true
	s.markLoopChanged()
}

// AddNaNSource marks v as both tainted and a NaN-origination point with
// the given allocator-issued id (§4.C, §9).
func (s *Set) AddNaNSource(v ir.Value, id int) {
	s.graph.MarkValueAsNaNSource(v, id)
	if !s.tainted[v] {
		s.tainted[v] = true
		s.markLoopChanged()
	}
	if s.nanValues[v] != id {
		s.nanValues[v] = id
		s.markLoopChanged()
	}
}

// RemoveTaint kills v's taint fact at this program point (e.g. a Store
// of an untainted value overwrites a previously tainted memory
// location).
func (s *Set) RemoveTaint(v ir.Value) {
	if !s.tainted[v] {
		return
	}
	delete(s.tainted, v)
	delete(s.unconditional, v)
	delete(s.nanValues, v)
	s.graph.RemoveTaint(v)
	s.markLoopChanged()
}

// IsTainted reports whether v may be tainted at this program point.
func (s *Set) IsTainted(v ir.Value) bool { return s.tainted[v] }

// MarkUnconditional records that every path reaching this point taints
// v. No engine component calls it; IsUnconditionalTainted reports only
// what was recorded here.
func (s *Set) MarkUnconditional(v ir.Value) { s.unconditional[v] = true }

// IsUnconditionalTainted reports whether v is unconditionally tainted.
func (s *Set) IsUnconditionalTainted(v ir.Value) bool { return s.unconditional[v] }

// IsNaNValue reports whether v is a tracked NaN source and its id.
func (s *Set) IsNaNValue(v ir.Value) (int, bool) {
	id, ok := s.nanValues[v]
	return id, ok
}

// MarkThisValueAsReturnValue flags v as flowing out of the function via
// a Return instruction currently being processed.
func (s *Set) MarkThisValueAsReturnValue(v ir.Value) {
	if !s.tainted[v] {
		return
	}
	s.graph.MarkReturnValue(v)
}

// Graph exposes the underlying dependency graph for callers (component
// G's collapse solver) that need to walk parent/child edges directly.
func (s *Set) Graph() *taintgraph.Graph { return s.graph }

// TrackNewLoop pushes a fresh change-tracking frame, called when the
// intra-procedural driver (component E) enters a loop header for the
// first time.
func (s *Set) TrackNewLoop() { s.loopStack = append(s.loopStack, &loopFrame{}) }

// ResetCurrentLoopTaintsChanged clears the innermost loop's changed flag
// at the start of a new iteration over its body.
func (s *Set) ResetCurrentLoopTaintsChanged() {
	if len(s.loopStack) > 0 {
		s.loopStack[len(s.loopStack)-1].changed = false
	}
}

// GetCurrentLoopTaintsChanged reports whether any taint fact changed
// during the iteration just completed over the innermost loop.
func (s *Set) GetCurrentLoopTaintsChanged() bool {
	if len(s.loopStack) == 0 {
		return false
	}
	return s.loopStack[len(s.loopStack)-1].changed
}

// FinishTrackingLoop pops the innermost loop's frame once its fixpoint
// is reached.
func (s *Set) FinishTrackingLoop() {
	if len(s.loopStack) > 0 {
		s.loopStack = s.loopStack[:len(s.loopStack)-1]
	}
}

func (s *Set) markLoopChanged() {
	if len(s.loopStack) > 0 {
		s.loopStack[len(s.loopStack)-1].changed = true
	}
}
