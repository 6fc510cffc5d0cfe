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

// Package taintgraph implements component B: the per-function,
// two-level taint dependency graph. Top-level nodes are taint sources
// (tainted parameters, tainted globals) and call-site return values;
// every other tainted value hangs off one or more top-level nodes as a
// derived node. See spec.md §4.B. Grounded on the original
// implementation's TaintDepGraphNode/TaintDepGraph/FunctionContext
// (original_source/TaintChecker/TaintChecker.h).
package taintgraph

import "github.com/achlys-project/achlys/internal/ir"

// Kind classifies a Node as a top-level taint origin or a value derived
// from one or more origins.
type Kind int

const (
	Source Kind = iota
	Derived
)

// Node is one tracked tainted value. Parents/Children are kept symmetric
// (an edge is always recorded on both ends) so callers can walk the
// graph in either direction without a second index.
type Node struct {
	Val      ir.Value
	Kind     Kind
	Parents  []*Node
	Children []*Node

	// IsNaNSource and NaNID record that this value originates a NaN
	// (§4.B, §9's NaN-id allocation); NaNID is only meaningful when
	// IsNaNSource is true.
	IsNaNSource bool
	NaNID       int

	// DerivedNaNIDs holds the NaN-source ids this node inherited from a
	// NaN-source or already-NaN-tainted parent via CheckAndPropagateTaint
	// (§4.B: "union the originating ids"). A node one or more hops
	// downstream of a NaN origination still carries its pedigree here,
	// even though IsNaNSource/NaNID only ever describe the origination
	// point itself.
	DerivedNaNIDs []int

	// IsReturnValue marks that this value flows out of the function via
	// a Return instruction (consumed by the inter-procedural summary
	// builder, component F).
	IsReturnValue bool
}

// Graph is the per-function taint dependency graph plus a call-stack
// record (PushCall/PopCall/OnCallStack/ResetCurrentCallStack) for
// detecting re-entrant collapse of the same callee. Component G keeps its
// own call stack in collapse.Solver and does not call these methods.
type Graph struct {
	nodes    map[ir.Value]*Node
	topLevel []*Node

	callStack []string
}

func New() *Graph {
	return &Graph{nodes: map[ir.Value]*Node{}}
}

// NodeFor returns the existing node for v, or nil.
func (g *Graph) NodeFor(v ir.Value) *Node { return g.nodes[v] }

// AddTaintSource registers v as a new top-level taint origin (e.g. a
// tainted parameter or tainted global read). Idempotent.
func (g *Graph) AddTaintSource(v ir.Value) *Node {
	if n, ok := g.nodes[v]; ok {
		return n
	}
	n := &Node{Val: v, Kind: Source}
	g.nodes[v] = n
	g.topLevel = append(g.topLevel, n)
	return n
}

// AddCallSiteReturn registers the return value of a call to a
// taint-source or user-defined function as a new top-level node (§4.B:
// call-site returns are top-level, not derived, since they have no
// single traceable parent value within this function). Idempotent.
func (g *Graph) AddCallSiteReturn(v ir.Value) *Node {
	return g.AddTaintSource(v)
}

// CheckAndPropagateTaint records that derived depends on parent: if
// parent is tainted, derived becomes tainted too (creating a Derived
// node linked to parent's node, or extending an existing derived node's
// parent set if derived was already tainted via another path). If
// parent is itself a NaN source or carries inherited NaN pedigree, those
// ids are unioned onto derived's own pedigree (§4.B), so NaN lineage
// keeps flowing forward even across intermediate, non-dividing
// instructions. Returns true when parent is tainted and the dependency
// was recorded; returns false, leaving derived as it was, when parent has
// no node.
func (g *Graph) CheckAndPropagateTaint(derived, parent ir.Value) bool {
	pn, ok := g.nodes[parent]
	if !ok {
		return false
	}
	dn, exists := g.nodes[derived]
	if !exists {
		dn = &Node{Val: derived, Kind: Derived}
		g.nodes[derived] = dn
	}
	if !hasNode(dn.Parents, pn) {
		dn.Parents = append(dn.Parents, pn)
		pn.Children = append(pn.Children, dn)
	}
	dn.unionNaNIDs(pn.NaNIDs())
	return true
}

// NaNIDs returns every NaN-source id n's taint pedigree includes: its
// own id if it is itself an origination point, plus any ids it has
// inherited from a tainted ancestor via CheckAndPropagateTaint.
func (n *Node) NaNIDs() []int {
	if !n.IsNaNSource {
		return n.DerivedNaNIDs
	}
	out := make([]int, 0, 1+len(n.DerivedNaNIDs))
	out = append(out, n.NaNID)
	for _, id := range n.DerivedNaNIDs {
		if id != n.NaNID {
			out = append(out, id)
		}
	}
	return out
}

func (n *Node) unionNaNIDs(ids []int) {
	for _, id := range ids {
		dup := false
		for _, existing := range n.DerivedNaNIDs {
			if existing == id {
				dup = true
				break
			}
		}
		if !dup {
			n.DerivedNaNIDs = append(n.DerivedNaNIDs, id)
		}
	}
}

func hasNode(list []*Node, n *Node) bool {
	for _, e := range list {
		if e == n {
			return true
		}
	}
	return false
}

// IsTainted reports whether v has any taint node at all.
func (g *Graph) IsTainted(v ir.Value) bool {
	_, ok := g.nodes[v]
	return ok
}

// MarkValueAsNaNSource flags v (which must already be tainted, or is
// inserted as a fresh top-level node if not) as a NaN-origination point
// with the given allocator-issued id.
func (g *Graph) MarkValueAsNaNSource(v ir.Value, id int) {
	n, ok := g.nodes[v]
	if !ok {
		n = g.AddTaintSource(v)
	}
	n.IsNaNSource = true
	n.NaNID = id
}

// NaNSourceID returns the NaN-source id for v and whether v is a NaN source.
func (g *Graph) NaNSourceID(v ir.Value) (int, bool) {
	n, ok := g.nodes[v]
	if !ok || !n.IsNaNSource {
		return 0, false
	}
	return n.NaNID, true
}

// MarkReturnValue flags v as flowing out of the function via Return.
func (g *Graph) MarkReturnValue(v ir.Value) {
	n, ok := g.nodes[v]
	if !ok {
		n = g.AddTaintSource(v)
	}
	n.IsReturnValue = true
}

// ReturnValueNaNSources returns every NaN-source id reachable from any
// value marked as a return value, found by walking parent edges from each
// return-value node. Component F collects its summaries' return NaN ids
// with its own walk and does not call this method.
func (g *Graph) ReturnValueNaNSources() []int {
	var ids []int
	seen := map[int]bool{}
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.IsNaNSource && !seen[n.NaNID] {
			seen[n.NaNID] = true
			ids = append(ids, n.NaNID)
		}
		for _, p := range n.Parents {
			visit(p)
		}
	}
	for _, n := range g.nodes {
		if n.IsReturnValue {
			visit(n)
		}
	}
	return ids
}

// RemoveTaint deletes v's node and detaches it from its parents and
// children (children keep their own nodes and stay tainted even when v
// was their only parent; only their edge to v is dropped — callers
// doing flow-sensitive kill/regen, component C, are responsible for
// re-deriving children if needed).
func (g *Graph) RemoveTaint(v ir.Value) {
	n, ok := g.nodes[v]
	if !ok {
		return
	}
	for _, p := range n.Parents {
		p.Children = removeNode(p.Children, n)
	}
	for _, c := range n.Children {
		c.Parents = removeNode(c.Parents, n)
	}
	delete(g.nodes, v)
	g.topLevel = removeNode(g.topLevel, n)
}

func removeNode(list []*Node, n *Node) []*Node {
	for i, e := range list {
		if e == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// MergeMemDepGraph folds another graph's nodes into g (§4.B, §6). No
// engine component calls it: transfer's Load case takes taint from Stores
// found via the memory-dependence oracle with CheckAndPropagateTaint
// instead. Nodes already present in g by value identity are left
// alone; new ones are copied over with fresh Node objects whose
// Parents/Children are rebuilt from the source graph's topology.
func (g *Graph) MergeMemDepGraph(other *Graph) {
	if other == nil {
		return
	}
	copyOf := map[*Node]*Node{}
	for v, n := range other.nodes {
		if existing, ok := g.nodes[v]; ok {
			copyOf[n] = existing
			continue
		}
		cp := &Node{
			Val: n.Val, Kind: n.Kind,
			IsNaNSource: n.IsNaNSource, NaNID: n.NaNID,
			DerivedNaNIDs: append([]int(nil), n.DerivedNaNIDs...),
			IsReturnValue: n.IsReturnValue,
		}
		g.nodes[v] = cp
		copyOf[n] = cp
		if n.Kind == Source {
			g.topLevel = append(g.topLevel, cp)
		}
	}
	for _, n := range other.nodes {
		cp := copyOf[n]
		for _, p := range n.Parents {
			pc := copyOf[p]
			if pc != nil && !hasNode(cp.Parents, pc) {
				cp.Parents = append(cp.Parents, pc)
				pc.Children = append(pc.Children, cp)
			}
		}
	}
}

// NaNNodes returns every node flagged as a NaN source.
func (g *Graph) NaNNodes() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.IsNaNSource {
			out = append(out, n)
		}
	}
	return out
}

// ReturnNodes returns every node flagged as a return value.
func (g *Graph) ReturnNodes() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.IsReturnValue {
			out = append(out, n)
		}
	}
	return out
}

// PushCall records entry into callee on this graph's call stack.
func (g *Graph) PushCall(callee string) { g.callStack = append(g.callStack, callee) }

// PopCall undoes the most recent PushCall.
func (g *Graph) PopCall() {
	if len(g.callStack) > 0 {
		g.callStack = g.callStack[:len(g.callStack)-1]
	}
}

// OnCallStack reports whether callee is already being collapsed
// somewhere on the current stack (a recursion cycle).
func (g *Graph) OnCallStack(callee string) bool {
	for _, c := range g.callStack {
		if c == callee {
			return true
		}
	}
	return false
}

// ResetCurrentCallStack clears the call stack (§4.G).
func (g *Graph) ResetCurrentCallStack() { g.callStack = nil }
