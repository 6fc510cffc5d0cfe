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

// Package nanid allocates process-wide-unique NaN-source identities.
// spec.md §9 flags the original implementation's global counter as a
// design smell ("should be owned by the pass driver ... so that two
// concurrent analyses do not interfere") — Allocator is that owned
// counter, one instance per analysis session (see internal/achlys.Driver).
package nanid

// Allocator hands out a monotonically increasing sequence of NaN-source
// ids starting at 1, satisfying spec.md §8's "NaN id monotonicity"
// invariant: the set of assigned ids is always {1..k} for some k.
type Allocator struct {
	next int
}

// New returns an Allocator with no ids yet assigned.
func New() *Allocator {
	return &Allocator{next: 1}
}

// Next returns the next unused id.
func (a *Allocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Count returns how many ids have been handed out so far.
func (a *Allocator) Count() int { return a.next - 1 }
