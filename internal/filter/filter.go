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

// Package filter implements component H: it takes confirmed
// attacker-controlled NaN findings (component G's output) and narrows
// them to the ones that are actually reachable through a comparison
// feeding a conditional branch — the scenario spec.md's Non-goals and
// §4.H call out as the interesting case, since IEEE-754 NaN comparisons
// are always false, so a guard written as `if (x < limit)` silently
// never catches a NaN x. Surviving findings are optionally turned into
// fault-injection rewrite requests. Grounded on
// filterAttackerControlledNANSources/insertFICall in
// original_source/TaintChecker/TaintChecker.cpp.
package filter

import (
	"github.com/achlys-project/achlys/internal/collapse"
	"github.com/achlys-project/achlys/internal/interproc"
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/taintgraph"
)

// Hazard is one confirmed NaN finding that survives the
// branch-reachability filter.
type Hazard struct {
	Func     *ir.Function
	NaNValue ir.Value
	NaNID    int
	Cmp      *ir.Cmp
	Branch   *ir.Branch
	CallPath []string
}

// Filter narrows a set of confirmed findings to those reachable through
// a Cmp that feeds a Branch.
type Filter struct {
	Cache *interproc.Cache
}

// Apply returns the subset of confirmed findings reachable through a
// comparison-to-branch sink.
func (flt *Filter) Apply(confirmed []collapse.Confirmed) []Hazard {
	var hazards []Hazard
	for _, c := range confirmed {
		summary := flt.Cache.SummaryFor(c.Func)
		var nanVal ir.Value
		for _, n := range summary.Graph.NaNNodes() {
			if n.NaNID == c.NaNID {
				nanVal = n.Val
				break
			}
		}
		if nanVal == nil {
			continue
		}
		for _, cmp := range cmpsCarryingNaNID(c.Func, summary.Graph, c.NaNID) {
			branch := branchUser(c.Func, cmp)
			if branch == nil {
				continue
			}
			hazards = append(hazards, Hazard{
				Func:     c.Func,
				NaNValue: nanVal,
				NaNID:    c.NaNID,
				Cmp:      cmp,
				Branch:   branch,
				CallPath: c.CallPath,
			})
		}
	}
	return hazards
}

// cmpsCarryingNaNID returns every Cmp in f whose operand carries naNID
// in its taint-graph pedigree, directly or inherited transitively
// through one or more intermediate instructions (§4.H: "a comparison
// instruction ... whose derivedNaNSourceIds contains the node's id").
// This is deliberately broader than "is a direct IR user of the
// origination value" — a NaN can flow through a Cast, a BinOp, a Phi,
// etc. before reaching the compare that gates a branch on it.
func cmpsCarryingNaNID(f *ir.Function, g *taintgraph.Graph, naNID int) []*ir.Cmp {
	var out []*ir.Cmp
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			cmp, ok := instr.(*ir.Cmp)
			if !ok {
				continue
			}
			if carriesNaNID(g, cmp.X, naNID) || carriesNaNID(g, cmp.Y, naNID) {
				out = append(out, cmp)
			}
		}
	}
	return out
}

func carriesNaNID(g *taintgraph.Graph, v ir.Value, naNID int) bool {
	n := g.NodeFor(v)
	if n == nil {
		return false
	}
	for _, id := range n.NaNIDs() {
		if id == naNID {
			return true
		}
	}
	return false
}

func branchUser(f *ir.Function, cmp *ir.Cmp) *ir.Branch {
	for _, user := range f.Users(cmp) {
		if br, ok := user.(*ir.Branch); ok {
			return br
		}
	}
	return nil
}

// RewriteRequest asks internal/rewrite to splice a fault-injection probe
// immediately after the instruction that produced the hazardous NaN
// value, so a later run can force the branch both ways and observe
// which path attacker-controlled data actually takes.
type RewriteRequest struct {
	Func     *ir.Function
	Hazard   Hazard
	Producer ir.Instruction
}

// RewriteRequests turns each hazard into a RewriteRequest, resolving the
// NaN value back to the instruction that produced it (always an
// Instruction since Parameters/Globals/Consts can never be marked as
// NaN sources, only instruction results can, per component D).
func RewriteRequests(hazards []Hazard) []RewriteRequest {
	var out []RewriteRequest
	for _, h := range hazards {
		if instr, ok := h.NaNValue.(ir.Instruction); ok {
			out = append(out, RewriteRequest{Func: h.Func, Hazard: h, Producer: instr})
		}
	}
	return out
}
