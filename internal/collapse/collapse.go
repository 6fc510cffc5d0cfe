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

// Package collapse implements component G: the context-sensitive
// recursive solver that instantiates component F's context-free
// summaries down the call graph with each call site's actual argument
// taint, confirming which NaN-origination points are genuinely
// attacker-controlled in a given calling context. Grounded on
// collapseConstraints in original_source/TaintChecker/TaintChecker.cpp.
//
// Confirmation here is deliberately stricter than origination: component
// D records a NaN-origination fact as soon as either operand of a
// division is tainted (spec.md §4.D is explicit about this), but
// collapseConstraints in the original only confirms a NaN as
// attacker-controlled once every parameter the summary says is
// necessary is actually tainted in the calling context — an
// all-ancestors-tainted check, not an either-ancestor one. Both rules
// are applied here exactly where the original applies them: OR at
// origination (component D, already done), AND at confirmation (this
// package).
package collapse

import (
	"github.com/achlys-project/achlys/internal/interproc"
	"github.com/achlys-project/achlys/internal/ir"
)

// Confirmed is one attacker-controlled NaN finding: the NaN-source id
// (unique across the whole analysis, per internal/nanid), the function
// whose body the BinOp producing it lives in, and the chain of call
// sites that led there, innermost last, for diagnostics.
type Confirmed struct {
	Func     *ir.Function
	NaNID    int
	CallPath []string
}

// Solver walks the call graph starting from a root function, confirming
// NaN findings as it goes. FunctionCallStack (the stack field) is the
// recursion guard: a call cycle is collapsed at most once per id, the
// second re-entry onto an already-active frame is skipped rather than
// diverging.
type Solver struct {
	cache *interproc.Cache
	stack []*ir.Function
	path  []string
}

func NewSolver(cache *interproc.Cache) *Solver {
	return &Solver{cache: cache}
}

// CollapseRoot collapses fn as an analysis entry point: every parameter
// is assumed tainted (the root is conventionally "main", whose
// arguments are argv — attacker input by definition, §4.F) and the
// recursion guard/call path are reset first.
func (s *Solver) CollapseRoot(fn *ir.Function) []Confirmed {
	s.stack = nil
	s.path = nil
	argTainted := map[int]bool{}
	for _, p := range fn.Params {
		argTainted[p.Index] = true
	}
	return s.collapse(fn, argTainted)
}

// Collapse collapses fn under the given per-parameter (1-based index)
// actual taint at the call site that reached it. Exported for tests and
// for callers that want to seed a non-root entry point with specific
// argument taint.
func (s *Solver) Collapse(fn *ir.Function, argTainted map[int]bool) []Confirmed {
	s.stack = nil
	s.path = nil
	return s.collapse(fn, argTainted)
}

func (s *Solver) collapse(fn *ir.Function, argTainted map[int]bool) []Confirmed {
	if s.onStack(fn) {
		return nil
	}
	s.push(fn)
	defer s.pop()

	summary := s.cache.SummaryFor(fn)
	var out []Confirmed
	for nanID, params := range summary.NaNParams {
		if allTainted(params, argTainted) {
			out = append(out, Confirmed{Func: fn, NaNID: nanID, CallPath: append([]string(nil), s.path...)})
		}
	}

	if fn.Declaration {
		return out
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			call, ok := instr.(*ir.Call)
			if !ok || call.Callee == nil || call.Callee.Declaration {
				continue
			}
			// summary.Set reflects the all-params-tainted snapshot Build
			// ran under; a call argument must instead be judged against
			// this invocation's real argTainted, or a caller with only
			// some parameters tainted would leak false-positive taint
			// into every argument past the first.
			calleeArgTaint := map[int]bool{}
			for i, arg := range call.Args {
				calleeArgTaint[i+1] = summary.ArgTaintedInContext(arg, argTainted)
			}
			s.path = append(s.path, call.Callee.Name)
			out = append(out, s.collapse(call.Callee, calleeArgTaint)...)
			s.path = s.path[:len(s.path)-1]
		}
	}
	return out
}

// allTainted reports whether every parameter index in params is tainted
// according to argTainted. An empty params list means the NaN
// origination did not actually depend on any parameter being tainted
// (e.g. it came from a taint source call or tainted global reachable
// regardless of arguments), so it is unconditionally confirmed.
func allTainted(params []int, argTainted map[int]bool) bool {
	for _, idx := range params {
		if !argTainted[idx] {
			return false
		}
	}
	return true
}

func (s *Solver) onStack(fn *ir.Function) bool {
	for _, f := range s.stack {
		if f == fn {
			return true
		}
	}
	return false
}

func (s *Solver) push(fn *ir.Function) { s.stack = append(s.stack, fn) }
func (s *Solver) pop()                 { s.stack = s.stack[:len(s.stack)-1] }
