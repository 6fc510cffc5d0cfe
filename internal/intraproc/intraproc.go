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

// Package intraproc implements component E: the reverse-post-order,
// loop-fixpoint intra-procedural driver that walks one function's
// basic blocks, applying component D's transfer functions at each
// instruction and component E's own control-flow tainting rule at each
// conditional branch. Grounded on analyzeFunction in
// original_source/TaintChecker/TaintChecker.cpp.
package intraproc

import (
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/oracle"
	"github.com/achlys-project/achlys/internal/transfer"
)

// Driver runs the intra-procedural analysis for a single function,
// context-free (it does not know who called this function or with what
// arguments beyond what component F has already seeded into Env.Set for
// tainted parameters).
type Driver struct {
	Transfer *transfer.Env
	Loop     oracle.LoopInfo
	Dom      oracle.Dominance
}

// Run walks f to a loop fixpoint and returns once every block's
// instructions have been processed with no further taint changes inside
// any loop.
func (d *Driver) Run(f *ir.Function) {
	order := reversePostOrder(f)
	d.walk(order)
	d.Transfer.Ptr.ConstructTree()
}

// walk processes blocks in reverse-post-order. Loop headers push a new
// change-tracking frame (§4.C's trackNewLoop) and re-walk their natural
// loop body until component C reports no change, mirroring the nested
// fixpoint structure of the original driver.
func (d *Driver) walk(order []*ir.BasicBlock) {
	visited := map[*ir.BasicBlock]bool{}
	for _, b := range order {
		if visited[b] {
			continue
		}
		if d.Loop != nil && d.Loop.IsHeader(b) {
			d.runLoop(b, order, visited)
			continue
		}
		d.processBlock(b)
		visited[b] = true
	}
}

// runLoop iterates the natural loop body rooted at header until a
// fixpoint, then marks every block in the body visited.
func (d *Driver) runLoop(header *ir.BasicBlock, order []*ir.BasicBlock, visited map[*ir.BasicBlock]bool) {
	body := loopBody(header, order, d.Loop)
	d.Transfer.Set.TrackNewLoop()
	for {
		d.Transfer.Set.ResetCurrentLoopTaintsChanged()
		for _, b := range body {
			d.processBlock(b)
		}
		if !d.Transfer.Set.GetCurrentLoopTaintsChanged() {
			break
		}
	}
	d.Transfer.Set.FinishTrackingLoop()
	for _, b := range body {
		visited[b] = true
	}
}

func loopBody(header *ir.BasicBlock, order []*ir.BasicBlock, li oracle.LoopInfo) []*ir.BasicBlock {
	var body []*ir.BasicBlock
	for _, b := range order {
		if li.Contains(header, b) {
			body = append(body, b)
		}
	}
	return body
}

// processBlock applies the transfer function to every instruction in b,
// then runs the control-flow tainting rule if b ends in a tainted
// Branch.
func (d *Driver) processBlock(b *ir.BasicBlock) {
	for _, instr := range b.Instrs {
		d.Transfer.Apply(instr)
		if br, ok := instr.(*ir.Branch); ok {
			d.taintControlDependents(br)
		}
	}
}

// taintControlDependents implements the control-flow tainting rule
// (§4.E): when a Branch's condition is tainted, any Store within the
// region exclusively dominated by one of its targets (up to but not
// including the nearest common dominator of Then and Else) assigns to a
// variable whose value implicitly depends on attacker-controlled data,
// so the written location's base pointer is tainted from the branch
// condition even though the stored value itself may not be.
func (d *Driver) taintControlDependents(br *ir.Branch) {
	if !d.Transfer.Set.IsTainted(br.Cond) || d.Dom == nil {
		return
	}
	ncd := d.Dom.NearestCommonDominator(br.Then, br.Else)
	for _, target := range []*ir.BasicBlock{br.Then, br.Else} {
		if target == nil || target == ncd {
			continue
		}
		d.taintStoresInRegion(target, target, ncd, br.Cond, map[*ir.BasicBlock]bool{})
	}
}

func (d *Driver) taintStoresInRegion(head, b, stop *ir.BasicBlock, cond ir.Value, seen map[*ir.BasicBlock]bool) {
	if b == nil || b == stop || seen[b] || !d.Dom.Dominates(head, b) {
		return
	}
	seen[b] = true
	for _, instr := range b.Instrs {
		if st, ok := instr.(*ir.Store); ok {
			for _, base := range d.Transfer.Ptr.Bases(st.Addr) {
				d.Transfer.Set.CheckAndPropagateTaint(base, cond)
			}
			if d.Transfer.Ptr.IsBase(st.Addr) {
				d.Transfer.Set.CheckAndPropagateTaint(st.Addr, cond)
			}
		}
	}
	for _, succ := range b.Succs {
		d.taintStoresInRegion(head, succ, stop, cond, seen)
	}
}

// reversePostOrder computes a reverse-post-order block order from f's
// entry block.
func reversePostOrder(f *ir.Function) []*ir.BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	var post []*ir.BasicBlock
	visited := map[*ir.BasicBlock]bool{}
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] || b == f.Recover {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(f.Blocks[0])
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
