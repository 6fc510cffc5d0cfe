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

// Instruction is a Value that also lives at a position in a basic block
// within a function, and that may reference other Values as operands.
// Opcode classes (Store, Load, GEP, Phi, BinaryOp, Cast, UnaryOp, Cmp,
// Call, Return, Alloca, Branch) are represented as distinct concrete
// types implementing Instruction, per spec.md §9's "prefer a tagged
// variant over inheritance" note (the tag here is the Go type itself,
// switched on with a type switch, as the teacher corpus does for
// ssa.Node).
type Instruction interface {
	Node
	Block() *BasicBlock
	Parent() *Function
	// Operands returns this instruction's operand values in
	// opcode-defined order. Nil slots (e.g. a void Return) are omitted.
	Operands() []Value
	setBlock(b *BasicBlock)
}

type instrBase struct {
	valueBase
	block *BasicBlock
}

func (i *instrBase) Block() *BasicBlock  { return i.block }
func (i *instrBase) setBlock(b *BasicBlock) { i.block = b }
func (i *instrBase) Parent() *Function {
	if i.block == nil {
		return nil
	}
	return i.block.Parent
}

// Alloca allocates storage for a local variable. Every Alloca registers
// a new base pointer (§4.A, §4.D), whatever its Elem type.
type Alloca struct {
	instrBase
	Elem *Type
}

func (a *Alloca) Operands() []Value { return nil }

// Store writes Val to the memory addressed by Addr.
type Store struct {
	instrBase
	Addr, Val Value
}

func (s *Store) Operands() []Value { return []Value{s.Val, s.Addr} }

// Load reads the memory addressed by Addr.
type Load struct {
	instrBase
	Addr Value
}

func (l *Load) Operands() []Value { return []Value{l.Addr} }

// GEP (GetElementPtr) derives a pointer from Base via a chain of
// (constant or variable) indices. Only Base matters for taint and
// pointer-base purposes; Indices are not taint sinks/sources.
type GEP struct {
	instrBase
	Base    Value
	Indices []Value
}

func (g *GEP) Operands() []Value {
	ops := make([]Value, 0, 1+len(g.Indices))
	ops = append(ops, g.Base)
	return append(ops, g.Indices...)
}

// Phi merges values from multiple predecessor blocks.
type Phi struct {
	instrBase
	Edges   []Value
	Incoming []*BasicBlock
}

func (p *Phi) Operands() []Value { return p.Edges }

// BinOpcode enumerates the binary arithmetic/logic operators relevant to
// taint and NaN-origination rules.
type BinOpcode int

const (
	Add BinOpcode = iota
	Sub
	FSub
	Mul
	FMul
	SDiv
	FDiv
	Xor
	Other
)

func (op BinOpcode) String() string {
	switch op {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case FSub:
		return "fsub"
	case Mul:
		return "mul"
	case FMul:
		return "fmul"
	case SDiv:
		return "sdiv"
	case FDiv:
		return "fdiv"
	case Xor:
		return "xor"
	default:
		return "other"
	}
}

// IsDiv reports whether op is an (integer or float) division, the
// opcode class spec.md §4.D flags as a potential NaN origination site.
func (op BinOpcode) IsDiv() bool { return op == SDiv || op == FDiv }

// BinOp is a binary arithmetic instruction.
type BinOp struct {
	instrBase
	Op   BinOpcode
	X, Y Value
}

func (b *BinOp) Operands() []Value { return []Value{b.X, b.Y} }

// Cast converts X from one type to another (e.g. int-to-float).
type Cast struct {
	instrBase
	X Value
}

func (c *Cast) Operands() []Value { return []Value{c.X} }

// UnaryOp is a unary operator (negation, logical not, ...).
type UnaryOp struct {
	instrBase
	X Value
}

func (u *UnaryOp) Operands() []Value { return []Value{u.X} }

// CmpOpcode enumerates comparison predicates.
type CmpOpcode int

const (
	Eq CmpOpcode = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Cmp compares X and Y, producing a boolean result. Per spec.md §4.H, a
// Cmp consumed by a Branch is the gatekeeping sink for NaN hazards.
type Cmp struct {
	instrBase
	Op   CmpOpcode
	X, Y Value
}

func (c *Cmp) Operands() []Value { return []Value{c.X, c.Y} }

// Call invokes Callee (nil if the callee could not be statically
// resolved — an indirect/virtual call, skipped per spec.md §4.F/§7).
type Call struct {
	instrBase
	Callee *Function
	// CalleeName is set even for unresolved callees, e.g. std-library
	// names recognized by internal/transfer's classification tables.
	CalleeName string
	Args       []Value
}

func (c *Call) Operands() []Value { return c.Args }

// Return exits the function, optionally with a Result (nil for void
// functions).
type Return struct {
	instrBase
	Result Value
}

func (r *Return) Operands() []Value {
	if r.Result == nil {
		return nil
	}
	return []Value{r.Result}
}

// Branch is a conditional two-way control transfer. Cmp results consumed
// by a Branch are the sinks the filter stage (§4.H) looks for.
type Branch struct {
	instrBase
	Cond        Value
	Then, Else  *BasicBlock
}

func (b *Branch) Operands() []Value { return []Value{b.Cond} }

// Jump is an unconditional control transfer.
type Jump struct {
	instrBase
	Target *BasicBlock
}

func (j *Jump) Operands() []Value { return nil }
