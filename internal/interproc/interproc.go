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

// Package interproc implements component F: the worklist-based
// inter-procedural driver. Each function's context-free summary
// (which parameters, if tainted, can make the function originate a NaN
// or return tainted data) is computed exactly once per function and
// cached; component G instantiates these summaries down the call graph
// with the real, context-specific argument taint at each call site.
// Grounded on runOnModule/analyzeFunction in
// original_source/TaintChecker/TaintChecker.cpp, and on the teacher's
// map-keyed function-summary tables (internal/pkg/propagation/summaries.go).
package interproc

import (
	"github.com/achlys-project/achlys/internal/intraproc"
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/nanid"
	"github.com/achlys-project/achlys/internal/oracle"
	"github.com/achlys-project/achlys/internal/ptrmap"
	"github.com/achlys-project/achlys/internal/taintgraph"
	"github.com/achlys-project/achlys/internal/taintset"
	"github.com/achlys-project/achlys/internal/transfer"
)

// Summary is the context-free, once-per-function result: for every
// NaN-origination point found when every parameter is assumed tainted,
// the subset of parameter indices whose taint is actually necessary to
// reach it, plus the subset of parameter indices whose taint can reach
// the function's return value.
type Summary struct {
	Func *ir.Function

	// NaNParams maps a NaN-source id to the parameter indices (1-based)
	// whose taint can reach it.
	NaNParams map[int][]int
	// ReturnParams lists the parameter indices whose taint can reach the
	// function's return value.
	ReturnParams []int
	// ReturnNaNIDs lists the NaN-source ids reachable from the return
	// value under the all-params-tainted assumption.
	ReturnNaNIDs []int
	// ReturnsTainted reports whether Func's Return ever carried tainted
	// data at all under the all-params-tainted assumption. An empty
	// ReturnParams is ambiguous on its own (it could mean "never tainted"
	// or "unconditionally tainted"); this field disambiguates it so a
	// caller consulting this summary for a call-site return (§4.D's
	// user-defined-call handling) doesn't mistake "this function never
	// returns tainted data" for "this function's return is unconditionally
	// tainted".
	ReturnsTainted bool

	// Graph, Set and Ptr retain the full all-params-tainted analysis
	// result so component G can re-walk dependency chains directly
	// instead of recomputing them.
	Graph *taintgraph.Graph
	Set   *taintset.Set
	Ptr   *ptrmap.Map
}

// OracleFactory builds the per-function black-box collaborators a
// single function's intra-procedural analysis needs. Dominance and loop
// structure are per-function by nature (they describe one CFG), unlike
// the classifier and NaN-id allocator, which are shared analysis-wide.
type OracleFactory func(f *ir.Function) (oracle.Dominance, oracle.LoopInfo, oracle.MemoryDependence)

// Builder constructs summaries, holding the shared oracle backends and
// NaN-id allocator every function's analysis run draws from.
type Builder struct {
	Classifier *transfer.Classifier
	Oracles    OracleFactory
	NaNIDs     *nanid.Allocator

	// cache, when set by NewCache, lets Build resolve a call to another
	// user-defined function's already-built (or being-built) summary, so
	// taint can cross the call boundary within this function's own
	// analysis instead of stopping dead at every call instruction.
	cache *Cache
}

// Build runs the intra-procedural driver over f with every parameter
// assumed tainted, then distills the result into a Summary. Declarations
// (no body) get a trivial, empty summary: calls to them are handled by
// transfer's name-based call classification, and component G does not
// descend into them.
func (b *Builder) Build(f *ir.Function) *Summary {
	g := taintgraph.New()
	set := taintset.New(g)
	ptr := ptrmap.New(f)

	sum := &Summary{Func: f, NaNParams: map[int][]int{}, Graph: g, Set: set, Ptr: ptr}
	if f.Declaration {
		return sum
	}

	for _, p := range f.Params {
		set.AddTaintSource(p)
	}

	dom, loop, memdep := b.Oracles(f)
	env := &transfer.Env{Set: set, Ptr: ptr, NaNIDs: b.NaNIDs, Classifier: b.Classifier, MemDep: memdep}
	if b.cache != nil {
		env.UserCallReturnTainted = func(callee *ir.Function, argTainted func(i int) bool) (bool, []int) {
			if callee == nil {
				return false, nil
			}
			calleeSum := b.cache.SummaryFor(callee)
			if !calleeSum.ReturnsTainted {
				return false, nil
			}
			if !allParamsTainted(calleeSum.ReturnParams, argTainted) {
				return false, nil
			}
			dependsOnArgs := make([]int, len(calleeSum.ReturnParams))
			for i, idx := range calleeSum.ReturnParams {
				dependsOnArgs[i] = idx - 1
			}
			return true, dependsOnArgs
		}
	}
	drv := &intraproc.Driver{Transfer: env, Loop: loop, Dom: dom}
	drv.Run(f)

	for _, n := range g.NaNNodes() {
		sum.NaNParams[n.NaNID] = paramIndices(ancestorSources(n))
	}
	var returnAncestors []*taintgraph.Node
	for _, n := range g.ReturnNodes() {
		returnAncestors = append(returnAncestors, ancestorSources(n)...)
	}
	sum.ReturnParams = paramIndices(returnAncestors)
	sum.ReturnNaNIDs = returnNaNIDs(g)
	sum.ReturnsTainted = len(g.ReturnNodes()) > 0

	return sum
}

// ArgTaintedInContext reports whether v — a value read inside Func, as
// seen by this summary's all-params-tainted analysis — is actually
// tainted under one specific calling context's real per-parameter
// taint. Build runs with every parameter assumed tainted, so Graph
// alone cannot say whether v is tainted for a context where only some
// of Func's parameters are; this walks v's real ancestry back to the
// parameter indices it depends on and ANDs those against argTainted,
// the same confirmation rule collapse.allTainted applies. A v with no
// graph node at all is untainted in every context; a v whose ancestry
// includes no parameter dependency (e.g. an unconditional taint source)
// is tainted in every context, matching the empty-params convention
// used throughout this package.
func (s *Summary) ArgTaintedInContext(v ir.Value, argTainted map[int]bool) bool {
	n := s.Graph.NodeFor(v)
	if n == nil {
		return false
	}
	for _, idx := range paramIndices(ancestorSources(n)) {
		if !argTainted[idx] {
			return false
		}
	}
	return true
}

// allParamsTainted reports whether every 1-based parameter index in
// params is tainted under argTainted (which takes a 0-based argument
// position). An empty params list is vacuously true: it means the
// callee's summary recorded no parameter dependency at all for this
// fact, i.e. it holds unconditionally.
func allParamsTainted(params []int, argTainted func(i int) bool) bool {
	for _, idx := range params {
		if !argTainted(idx - 1) {
			return false
		}
	}
	return true
}

// ancestorSources walks n's ancestry to the set of top-level Source
// nodes it ultimately depends on.
func ancestorSources(n *taintgraph.Node) []*taintgraph.Node {
	seen := map[*taintgraph.Node]bool{}
	var sources []*taintgraph.Node
	var visit func(cur *taintgraph.Node)
	visit = func(cur *taintgraph.Node) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		if cur.Kind == taintgraph.Source {
			sources = append(sources, cur)
		}
		for _, p := range cur.Parents {
			visit(p)
		}
	}
	visit(n)
	return sources
}

func paramIndices(nodes []*taintgraph.Node) []int {
	seen := map[int]bool{}
	var out []int
	for _, n := range nodes {
		p, ok := n.Val.(*ir.Parameter)
		if !ok || seen[p.Index] {
			continue
		}
		seen[p.Index] = true
		out = append(out, p.Index)
	}
	return out
}

func returnNaNIDs(g *taintgraph.Graph) []int {
	seen := map[int]bool{}
	var ids []int
	for _, n := range g.ReturnNodes() {
		for _, anc := range allAncestors(n) {
			if anc.IsNaNSource && !seen[anc.NaNID] {
				seen[anc.NaNID] = true
				ids = append(ids, anc.NaNID)
			}
		}
	}
	return ids
}

func allAncestors(n *taintgraph.Node) []*taintgraph.Node {
	seen := map[*taintgraph.Node]bool{n: true}
	out := []*taintgraph.Node{n}
	var visit func(cur *taintgraph.Node)
	visit = func(cur *taintgraph.Node) {
		for _, p := range cur.Parents {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
				visit(p)
			}
		}
	}
	visit(n)
	return out
}

// Cache is the worklist driver: it computes and memoizes one Summary per
// function, in call-graph post-order where that is determinable from
// straight-line Call resolution, falling back to build-on-first-use for
// recursive or out-of-order requests (component G's recursion guard
// keeps this safe for genuine cycles).
type Cache struct {
	builder   *Builder
	summaries map[*ir.Function]*Summary
	building  map[*ir.Function]bool
}

func NewCache(b *Builder) *Cache {
	c := &Cache{builder: b, summaries: map[*ir.Function]*Summary{}, building: map[*ir.Function]bool{}}
	b.cache = c
	return c
}

// SummaryFor returns f's cached summary, building it on first request.
// A function whose summary is already mid-construction (a recursive
// call reached it again) gets a placeholder empty summary instead of
// recursing forever; component G's call-stack guard is the real
// recursion defense and treats this case explicitly.
func (c *Cache) SummaryFor(f *ir.Function) *Summary {
	if s, ok := c.summaries[f]; ok {
		return s
	}
	if c.building[f] {
		return &Summary{Func: f, NaNParams: map[int][]int{}}
	}
	c.building[f] = true
	s := c.builder.Build(f)
	delete(c.building, f)
	c.summaries[f] = s
	return s
}

// BuildAll eagerly computes summaries for every function in m, in
// declaration order, so later requests are pure cache hits. The root
// function (conventionally "main") is still analyzed through the same
// path as every other function: its parameters (argc/argv-equivalent)
// are assumed tainted like any other function's, since §4.F treats
// argv as attacker input regardless of entry-point arity.
func (c *Cache) BuildAll(m *ir.Module) {
	for _, f := range m.Functions {
		c.SummaryFor(f)
	}
}
