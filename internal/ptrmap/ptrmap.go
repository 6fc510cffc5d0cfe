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

// Package ptrmap implements component A: the per-function
// pointer-dependency tree that collapses chains of derived pointers
// (GEP/Load/Cast results) onto the base allocation(s) they ultimately
// refer to. See spec.md §4.A. Grounded directly on the original
// implementation's PtrMap/PtrDepTree (original_source/TaintChecker/DataStruct.h) —
// the insertion and tree-construction algorithms below are a line-by-line
// port of that logic's control flow, renamed into Go idiom.
package ptrmap

import "github.com/achlys-project/achlys/internal/ir"

// Node is a two-level pointer-dependency tree node: either a base
// (top-level, empty Parents) or a derived pointer with one or more base
// parents.
type Node struct {
	Val      ir.Value
	Parents  []*Node
	Children []*Node
}

// Tree is the materialized two-level (base -> [derived...]) view
// produced by ConstructTree, for downstream readers that want to avoid
// chasing the raw Map chains (§4.A rationale).
type Tree struct {
	Roots []*Node
}

func (t *Tree) isRoot(v ir.Value) bool {
	return t.nodeByValue(v) != nil
}

func (t *Tree) nodeByValue(v ir.Value) *Node {
	for _, n := range t.Roots {
		if n.Val == v {
			return n
		}
	}
	return nil
}

func (t *Tree) addToTop(v ir.Value) *Node {
	n := &Node{Val: v}
	t.Roots = append(t.Roots, n)
	return n
}

func (t *Tree) removeFromRoot(v ir.Value) {
	for i, n := range t.Roots {
		if n.Val == v {
			t.Roots = append(t.Roots[:i], t.Roots[i+1:]...)
			return
		}
	}
}

// Map is the per-function derived-pointer -> base-set mapping described
// in spec.md §3 ("Pointer map per function"). Only values whose type is
// pointer/array/struct are admitted; everything else is silently
// ignored, matching DataStruct.h's PtrMap::insert guard.
type Map struct {
	Func *ir.Function

	// baseSets maps a derived (or base) value to the list of true base
	// values it ultimately refers to. A present-but-empty entry means
	// the value is itself a base (registered via Insert(key, nil)).
	baseSets map[ir.Value][]ir.Value
	tree     *Tree
}

func New(f *ir.Function) *Map {
	return &Map{Func: f, baseSets: map[ir.Value][]ir.Value{}, tree: &Tree{}}
}

// Insert records that key derives from val. val == nil means key is
// itself a new base allocation (§4.A: "If val is nil, key becomes a
// base"). Both key and val must be pointer/array/struct typed or the
// call is a silent no-op.
func (m *Map) Insert(key, val ir.Value) {
	if key == nil || !key.Type().IsPointerLike() {
		return
	}
	if val != nil && !val.Type().IsPointerLike() {
		return
	}

	if val == nil {
		if _, ok := m.baseSets[key]; !ok {
			m.baseSets[key] = nil
		}
		if !m.tree.isRoot(key) {
			m.tree.addToTop(key)
		}
		return
	}

	if m.tree.isRoot(val) {
		existing := m.baseSets[key]
		if !containsVal(existing, val) {
			m.baseSets[key] = append(existing, val)
		} else if _, ok := m.baseSets[key]; !ok {
			m.baseSets[key] = existing
		}
	} else if baseOfVal, ok := m.baseSets[val]; ok {
		existingKey, hasKey := m.baseSets[key]
		if hasKey {
			for _, b := range baseOfVal {
				if !containsVal(existingKey, b) {
					existingKey = append(existingKey, b)
				}
			}
			m.baseSets[key] = existingKey
		} else {
			cp := make([]ir.Value, len(baseOfVal))
			copy(cp, baseOfVal)
			m.baseSets[key] = cp
		}
	} else {
		existingKey, hasKey := m.baseSets[key]
		if hasKey {
			if !containsVal(existingKey, val) {
				m.baseSets[key] = append(existingKey, val)
			}
		} else {
			m.baseSets[key] = []ir.Value{val}
		}
	}

	// Demotion (invariant iii): key loses implicit root status only if
	// val itself is a tracked (non-nil-derived) value in the map.
	if m.tree.isRoot(key) {
		if _, ok := m.baseSets[val]; ok {
			m.tree.removeFromRoot(key)
		}
	}
}

func containsVal(list []ir.Value, v ir.Value) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

// IsBase reports whether v is a base (root) value.
func (m *Map) IsBase(v ir.Value) bool { return m.tree.isRoot(v) }

// Bases returns the base-set of v: empty if v is itself a base, nil if v
// was never inserted.
func (m *Map) Bases(v ir.Value) []ir.Value { return m.baseSets[v] }

// Siblings returns every tracked value other than v itself whose base
// set also contains base — i.e. every other pointer derived from the
// same base as v, found via aliasing through a shared allocation rather
// than a direct operand relationship. Used by component D's GEP rule to
// propagate taint across pointers that alias through a common base
// (§4.D).
func (m *Map) Siblings(v, base ir.Value) []ir.Value {
	var out []ir.Value
	for key, bases := range m.baseSets {
		if key == v || key == base {
			continue
		}
		if containsVal(bases, base) {
			out = append(out, key)
		}
	}
	return out
}

// ConstructTree materializes the two-level (base -> [derived...]) tree
// at the end of function analysis (§4.A). Only values whose base-set
// resolves to a tracked base node become second-level nodes.
func (m *Map) ConstructTree() *Tree {
	for key, bases := range m.baseSets {
		if m.tree.isRoot(key) {
			continue
		}
		node := &Node{Val: key}
		for _, b := range bases {
			if _, ok := m.baseSets[b]; !ok {
				continue
			}
			root := m.tree.nodeByValue(b)
			if root == nil {
				continue
			}
			root.Children = append(root.Children, node)
			node.Parents = append(node.Parents, root)
		}
	}
	return m.tree
}

// Tree returns the tree built so far (call ConstructTree first to
// populate second-level nodes).
func (m *Map) Tree() *Tree { return m.tree }
