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

// Package refimpl provides minimal, conservative reference
// implementations of the internal/oracle interfaces — enough to drive
// Achlys end-to-end in tests and in the CLI's YAML-ingestion path,
// without claiming to be a production alias/memory-dependence/loop
// analysis. Swap these out for real backends in a production deployment.
package refimpl

import (
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/oracle"
)

// NoAlias never reports a must-alias relationship. The engine never
// queries Alias (its "constant instruction" rule uses operand identity,
// §4.F, §9), so this choice changes no result.
type NoAlias struct{}

func (NoAlias) MustAlias(ir.Value, ir.Value) bool { return false }

// PassthroughDemangler returns the symbol unchanged.
type PassthroughDemangler struct{}

func (PassthroughDemangler) Demangle(symbol string) string { return symbol }

// LocalMemDep answers Load dependency queries by scanning backward
// through the load's own basic block, then through every predecessor
// block transitively, for the most recent Store to an address-identical
// location. It does not reason about aliasing beyond pointer identity —
// callers relying on aliased-pointer store/load propagation should rely
// on internal/ptrmap's pointer-dependency closure instead (§4.B's
// mergeMemDepGraph), which internal/transfer applies independently of
// this oracle.
type LocalMemDep struct{}

func (LocalMemDep) NonLocalDependencies(load *ir.Load) []oracle.MemDep {
	var deps []oracle.MemDep
	seen := map[*ir.BasicBlock]bool{}
	var walk func(b *ir.BasicBlock, fromIdx int)
	walk = func(b *ir.BasicBlock, fromIdx int) {
		if seen[b] {
			return
		}
		seen[b] = true
		for i := fromIdx; i >= 0; i-- {
			if st, ok := b.Instrs[i].(*ir.Store); ok && st.Addr == load.Addr {
				deps = append(deps, oracle.MemDep{Kind: oracle.Def, Instr: st})
				return
			}
		}
		for _, pred := range b.Preds {
			walk(pred, len(pred.Instrs)-1)
		}
	}
	idx, ok := load.Block().IndexOf(load)
	if !ok {
		return nil
	}
	walk(load.Block(), idx-1)
	return deps
}

// CFGLoopInfo computes loop depth and headers from natural loops
// identified by back edges (a successor that dominates its predecessor),
// using a precomputed Dominance oracle. This mirrors the standard
// "back edge a->b where b dominates a" loop-detection algorithm.
type CFGLoopInfo struct {
	dom     oracle.Dominance
	headers map[*ir.BasicBlock]bool
	depth   map[*ir.BasicBlock]int
	// body maps each loop header to the set of blocks in its natural
	// loop (including nested loops' blocks and the header itself).
	body map[*ir.BasicBlock]map[*ir.BasicBlock]bool
}

func NewCFGLoopInfo(f *ir.Function, dom oracle.Dominance) *CFGLoopInfo {
	li := &CFGLoopInfo{
		dom:     dom,
		headers: map[*ir.BasicBlock]bool{},
		depth:   map[*ir.BasicBlock]int{},
		body:    map[*ir.BasicBlock]map[*ir.BasicBlock]bool{},
	}
	li.compute(f)
	return li
}

func (li *CFGLoopInfo) compute(f *ir.Function) {
	type backEdge struct{ from, header *ir.BasicBlock }
	var edges []backEdge
	for _, b := range f.Blocks {
		for _, succ := range b.Succs {
			if li.dom.Dominates(succ, b) {
				edges = append(edges, backEdge{from: b, header: succ})
			}
		}
	}
	for _, e := range edges {
		li.headers[e.header] = true
		body := li.naturalLoopBody(e.header, e.from)
		if existing := li.body[e.header]; existing != nil {
			for b := range body {
				existing[b] = true
			}
		} else {
			li.body[e.header] = body
		}
	}
	for _, body := range li.body {
		for b := range body {
			li.depth[b]++
		}
	}
}

// naturalLoopBody computes the set of blocks in the natural loop with
// header h and back-edge tail t, via reverse-CFG walk bounded by h.
func (li *CFGLoopInfo) naturalLoopBody(h, t *ir.BasicBlock) map[*ir.BasicBlock]bool {
	body := map[*ir.BasicBlock]bool{h: true}
	if h == t {
		// Single-block self-loop: the header's own predecessors (e.g.
		// the block that enters the loop) must not be pulled in just
		// because the header is also the back-edge's tail.
		return body
	}
	body[t] = true
	stack := []*ir.BasicBlock{t}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range b.Preds {
			if !body[pred] {
				body[pred] = true
				stack = append(stack, pred)
			}
		}
	}
	return body
}

func (li *CFGLoopInfo) Depth(b *ir.BasicBlock) int     { return li.depth[b] }
func (li *CFGLoopInfo) IsHeader(b *ir.BasicBlock) bool { return li.headers[b] }
func (li *CFGLoopInfo) Contains(header, b *ir.BasicBlock) bool {
	return li.body[header][b]
}

// SimpleDominance computes a dominator tree with the classic iterative
// data-flow algorithm (Cooper, Harvey & Kennedy), sufficient for the
// small per-function CFGs Achlys analyzes.
type SimpleDominance struct {
	idom map[*ir.BasicBlock]*ir.BasicBlock
	rpo  []*ir.BasicBlock
	idx  map[*ir.BasicBlock]int
}

func NewSimpleDominance(f *ir.Function) *SimpleDominance {
	d := &SimpleDominance{idom: map[*ir.BasicBlock]*ir.BasicBlock{}, idx: map[*ir.BasicBlock]int{}}
	if len(f.Blocks) == 0 {
		return d
	}
	d.rpo = reversePostOrder(f.Blocks[0])
	for i, b := range d.rpo {
		d.idx[b] = i
	}
	entry := d.rpo[0]
	d.idom[entry] = entry
	changed := true
	for changed {
		changed = false
		for _, b := range d.rpo[1:] {
			var newIdom *ir.BasicBlock
			for _, pred := range b.Preds {
				if d.idom[pred] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = pred
					continue
				}
				newIdom = d.intersect(newIdom, pred)
			}
			if newIdom != nil && d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}
	return d
}

func (d *SimpleDominance) intersect(a, b *ir.BasicBlock) *ir.BasicBlock {
	for a != b {
		for d.idx[a] > d.idx[b] {
			a = d.idom[a]
		}
		for d.idx[b] > d.idx[a] {
			b = d.idom[b]
		}
	}
	return a
}

func (d *SimpleDominance) Dominates(a, b *ir.BasicBlock) bool {
	if a == b {
		return true
	}
	cur := d.idom[b]
	for cur != nil {
		if cur == a {
			return true
		}
		if cur == d.idom[cur] {
			break
		}
		cur = d.idom[cur]
	}
	return false
}

func (d *SimpleDominance) NearestCommonDominator(a, b *ir.BasicBlock) *ir.BasicBlock {
	if _, ok := d.idx[a]; !ok {
		return b
	}
	if _, ok := d.idx[b]; !ok {
		return a
	}
	return d.intersect(a, b)
}

func reversePostOrder(entry *ir.BasicBlock) []*ir.BasicBlock {
	var post []*ir.BasicBlock
	visited := map[*ir.BasicBlock]bool{}
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	// reverse
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
