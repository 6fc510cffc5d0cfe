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

// Package oracle declares the narrow interfaces Achlys treats as
// black-box collaborators per spec.md §6: alias analysis,
// memory-dependence analysis, loop detection, and dominance. Achlys never
// implements these itself beyond a reference implementation
// (internal/oracle/refimpl) good enough to drive the engine end-to-end in
// tests; a real deployment supplies its own, backed by whatever compiler
// infrastructure produced the IR.
package oracle

import "github.com/achlys-project/achlys/internal/ir"

// Alias answers must-alias queries. No engine component consults it:
// the "constant instruction" check (§4.F, §9) uses operand identity, not
// alias-based folding, so a conservative Alias that always returns false
// changes no result.
type Alias interface {
	MustAlias(a, b ir.Value) bool
}

// MemDepKind classifies a memory dependency as a must-clobber (the
// dependency may overwrite the queried location) or a must-def (the
// dependency is guaranteed to define it).
type MemDepKind int

const (
	Clobber MemDepKind = iota
	Def
)

// MemDep is a single non-local memory dependency result.
type MemDep struct {
	Kind MemDepKind
	Instr ir.Instruction
}

// MemoryDependence answers "what Store instructions might this Load be
// reading from?" (§4.D, §6). An oracle that returns no results at all is
// a valid (if maximally conservative) answer; §7 requires the transfer
// function to degrade to pointer-only taint propagation in that case.
type MemoryDependence interface {
	NonLocalDependencies(load *ir.Load) []MemDep
}

// LoopInfo answers loop-structure queries (§4.E, §6).
type LoopInfo interface {
	Depth(b *ir.BasicBlock) int
	IsHeader(b *ir.BasicBlock) bool
	Contains(header, b *ir.BasicBlock) bool
}

// Dominance answers dominator-tree queries (§4.E's control-flow tainting
// rule, §6).
type Dominance interface {
	Dominates(a, b *ir.BasicBlock) bool
	NearestCommonDominator(a, b *ir.BasicBlock) *ir.BasicBlock
}

// Demangler recovers a human-readable symbol name, used only for
// logging and for the taxonomy of call classifications in internal/transfer.
type Demangler interface {
	Demangle(symbol string) string
}
