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

package ir

// Value is anything that can be used as an operand: an instruction
// result, a function parameter, a constant, or a global. It corresponds
// to spec.md §3's "IR value".
type Value interface {
	// Name is a human-readable identifier, used only for logging.
	Name() string
	Type() *Type
	// Line is the source line from debug metadata, or 0 if unknown.
	Line() int
}

// Node is the common supertype of every IR entity the engine reasons
// about: a Value that may also be an Instruction. Mirrors the
// ssa.Node pattern the teacher corpus dispatches on.
type Node interface {
	Value
}

type valueBase struct {
	name string
	typ  *Type
	line int
}

func (v *valueBase) Name() string { return v.name }
func (v *valueBase) Type() *Type  { return v.typ }
func (v *valueBase) Line() int    { return v.line }

// Const is a compile-time constant. Constants never become base pointers
// and are never tainted.
type Const struct {
	valueBase
	IsZero bool
}

func NewConst(name string, typ *Type, isZero bool) *Const {
	return &Const{valueBase: valueBase{name: name, typ: typ}, IsZero: isZero}
}

// Parameter is a function argument. Index is 1-based, matching
// spec.md §4.F's argument-index convention.
type Parameter struct {
	valueBase
	Index int
}

// Global is a module-level value, e.g. a global variable. It behaves like
// a base pointer for the purposes of §4.A if its type is pointer-like.
type Global struct {
	valueBase
}

func NewGlobal(name string, typ *Type) *Global {
	return &Global{valueBase: valueBase{name: name, typ: typ}}
}
