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

// Package ir defines the low-level, typed, SSA-form intermediate
// representation that Achlys analyzes. The shape of the Value/Instruction
// interfaces and the one-struct-per-opcode pattern follow
// golang.org/x/tools/go/ssa's conventions, since that is how this corpus
// models "a typed IR value with an opcode class, operands, and a parent
// block/function" — but this is not Go source: Achlys analyzes compiled,
// LLVM-style IR with explicit Alloca/GEP/Load/Store.
//
// Parsing a real compiler's IR into this model and pretty-printing it back
// out are both out of scope for this package; see internal/irio for the
// simple textual format used by the CLI and by tests.
package ir

// Kind classifies the shape of a Type.
type Kind int

const (
	Invalid Kind = iota
	Int
	Float
	Double
	Pointer
	Array
	Struct
	Void
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	case Pointer:
		return "pointer"
	case Array:
		return "array"
	case Struct:
		return "struct"
	case Void:
		return "void"
	default:
		return "invalid"
	}
}

// Type is a minimal type representation, just rich enough for the taint
// and NaN-propagation rules: whether a value is pointer-like (admitted to
// the pointer-dependency tree, §4.A), float-like (a candidate NaN
// source/sink), or neither.
type Type struct {
	Kind Kind
	// Elem is the pointee/element type for Pointer and Array kinds.
	Elem *Type
}

var (
	IntType    = &Type{Kind: Int}
	FloatType  = &Type{Kind: Float}
	DoubleType = &Type{Kind: Double}
	VoidType   = &Type{Kind: Void}
)

func PointerTo(elem *Type) *Type { return &Type{Kind: Pointer, Elem: elem} }
func ArrayOf(elem *Type) *Type   { return &Type{Kind: Array, Elem: elem} }

// IsPointerLike reports whether a value of this type is admitted to the
// pointer-dependency tree (§4.A): pointer, array, or struct.
func (t *Type) IsPointerLike() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Pointer, Array, Struct:
		return true
	default:
		return false
	}
}

// IsFloatLike reports whether a value of this type can hold a NaN.
func (t *Type) IsFloatLike() bool {
	return t != nil && (t.Kind == Float || t.Kind == Double)
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Elem != nil {
		return t.Kind.String() + "<" + t.Elem.String() + ">"
	}
	return t.Kind.String()
}
