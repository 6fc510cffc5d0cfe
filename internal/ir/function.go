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

import "strconv"

// BasicBlock is a straight-line sequence of instructions with a single
// entry and (via the terminator) one or more successors.
type BasicBlock struct {
	Name    string
	Instrs  []Instruction
	Preds   []*BasicBlock
	Succs   []*BasicBlock
	Parent  *Function
	// LoopDepth and IsLoopHeader are not set by any code in this module
	// and stay zero/false unless a caller sets them; the engine queries
	// loop structure through oracle.LoopInfo instead (§4.E, §6).
	LoopDepth    int
	IsLoopHeader bool
}

// IndexOf returns this instruction's index within the block, mirroring
// the teacher's IndexInBlock helper (internal/pkg/levee/propagation.go)
// used to detect "is this use in the past" during traversal.
func (b *BasicBlock) IndexOf(instr Instruction) (int, bool) {
	for i, in := range b.Instrs {
		if in == instr {
			return i, true
		}
	}
	return 0, false
}

func (b *BasicBlock) addInstr(i Instruction) {
	i.setBlock(b)
	b.Instrs = append(b.Instrs, i)
}

// InsertAfter splices newInstr immediately after target, used by
// internal/rewrite to implement the fault-injection contract (§4.H).
func (b *BasicBlock) InsertAfter(target, newInstr Instruction) bool {
	for i, in := range b.Instrs {
		if in == target {
			newInstr.setBlock(b)
			b.Instrs = append(b.Instrs, nil)
			copy(b.Instrs[i+2:], b.Instrs[i+1:])
			b.Instrs[i+1] = newInstr
			return true
		}
	}
	return false
}

// Function is a single procedure: a name, a (possibly empty, for
// declarations) list of basic blocks in layout order, and a return type.
type Function struct {
	Name          string
	Params        []*Parameter
	RetType       *Type
	Blocks        []*BasicBlock
	Declaration   bool
	// Recover, when non-nil, is a block with no instructions reached
	// only via panic unwinding; the intra-procedural driver skips it
	// (mirrors the teacher's handling of ssa.Function.Recover).
	Recover *BasicBlock

	usersOnce map[Value][]Instruction
}

// NewFunction creates an empty function with the given name, parameter
// types (1-based Index is assigned in order), and return type.
func NewFunction(name string, paramTypes []*Type, retType *Type) *Function {
	f := &Function{Name: name, RetType: retType}
	for idx, t := range paramTypes {
		f.Params = append(f.Params, &Parameter{
			valueBase: valueBase{name: name + ".arg" + strconv.Itoa(idx+1), typ: t},
			Index:     idx + 1,
		})
	}
	return f
}

// NewBlock appends a new, empty basic block to f.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Emit appends instr to the end of b and returns it, for fluent
// construction in tests and in internal/irio.
func Emit[T Instruction](b *BasicBlock, instr T) T {
	b.addInstr(instr)
	return instr
}

// Users returns every instruction in f that references v as an operand.
// Computed on demand (the IR model does not maintain live referrer
// lists, unlike go/ssa) and cached per function; InsertAfter and
// ReplaceOperand do not refresh the cache, so a caller that mutates the
// function calls InvalidateUsers afterwards.
func (f *Function) Users(v Value) []Instruction {
	if f.usersOnce == nil {
		f.rebuildUsers()
	}
	return f.usersOnce[v]
}

// InvalidateUsers drops the cached user index; callers that mutate the
// function (internal/rewrite) must call this afterward.
func (f *Function) InvalidateUsers() { f.usersOnce = nil }

func (f *Function) rebuildUsers() {
	f.usersOnce = make(map[Value][]Instruction)
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands() {
				if op == nil {
					continue
				}
				f.usersOnce[op] = append(f.usersOnce[op], instr)
			}
		}
	}
}

// ReplaceOperand rewrites every operand slot in instr equal to old to
// new. Used by internal/rewrite to splice in fault-injection thunk
// results.
func ReplaceOperand(instr Instruction, old, new Value) {
	switch t := instr.(type) {
	case *Store:
		if t.Val == old {
			t.Val = new
		}
		if t.Addr == old {
			t.Addr = new
		}
	case *Load:
		if t.Addr == old {
			t.Addr = new
		}
	case *GEP:
		if t.Base == old {
			t.Base = new
		}
		for i, idx := range t.Indices {
			if idx == old {
				t.Indices[i] = new
			}
		}
	case *Phi:
		for i, e := range t.Edges {
			if e == old {
				t.Edges[i] = new
			}
		}
	case *BinOp:
		if t.X == old {
			t.X = new
		}
		if t.Y == old {
			t.Y = new
		}
	case *Cast:
		if t.X == old {
			t.X = new
		}
	case *UnaryOp:
		if t.X == old {
			t.X = new
		}
	case *Cmp:
		if t.X == old {
			t.X = new
		}
		if t.Y == old {
			t.Y = new
		}
	case *Call:
		for i, a := range t.Args {
			if a == old {
				t.Args[i] = new
			}
		}
	case *Return:
		if t.Result == old {
			t.Result = new
		}
	case *Branch:
		if t.Cond == old {
			t.Cond = new
		}
	}
}

// Module is a complete program: a set of functions, some of which may be
// declarations (no Blocks) representing external/std-library functions.
type Module struct {
	Name      string
	Functions []*Function
}

// FunctionNamed returns the function with the given name, or nil.
func (m *Module) FunctionNamed(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

