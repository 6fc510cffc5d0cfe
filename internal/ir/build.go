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

// Constructors below build unattached instructions; use BasicBlock.addInstr
// (via the package-level Emit helper) to place them into a block.

func newBase(name string, typ *Type, line int) valueBase {
	return valueBase{name: name, typ: typ, line: line}
}

func NewAlloca(name string, elem *Type, line int) *Alloca {
	return &Alloca{instrBase: instrBase{valueBase: newBase(name, PointerTo(elem), line)}, Elem: elem}
}

func NewStore(addr, val Value, line int) *Store {
	return &Store{instrBase: instrBase{valueBase: newBase("", VoidType, line)}, Addr: addr, Val: val}
}

func NewLoad(name string, addr Value, line int) *Load {
	var t *Type
	if at := addr.Type(); at != nil {
		t = at.Elem
	}
	return &Load{instrBase: instrBase{valueBase: newBase(name, t, line)}, Addr: addr}
}

func NewGEP(name string, base Value, indices []Value, line int) *GEP {
	return &GEP{instrBase: instrBase{valueBase: newBase(name, base.Type(), line)}, Base: base, Indices: indices}
}

func NewPhi(name string, typ *Type, edges []Value, incoming []*BasicBlock, line int) *Phi {
	return &Phi{instrBase: instrBase{valueBase: newBase(name, typ, line)}, Edges: edges, Incoming: incoming}
}

func NewBinOp(name string, op BinOpcode, typ *Type, x, y Value, line int) *BinOp {
	return &BinOp{instrBase: instrBase{valueBase: newBase(name, typ, line)}, Op: op, X: x, Y: y}
}

func NewCast(name string, typ *Type, x Value, line int) *Cast {
	return &Cast{instrBase: instrBase{valueBase: newBase(name, typ, line)}, X: x}
}

func NewUnaryOp(name string, typ *Type, x Value, line int) *UnaryOp {
	return &UnaryOp{instrBase: instrBase{valueBase: newBase(name, typ, line)}, X: x}
}

func NewCmp(name string, op CmpOpcode, x, y Value, line int) *Cmp {
	return &Cmp{instrBase: instrBase{valueBase: newBase(name, IntType, line)}, Op: op, X: x, Y: y}
}

// NewCall constructs a Call. callee may be nil for an unresolved
// (indirect) call; calleeName should still be set when known (e.g. from
// a vtable-less function pointer with a recovered symbol name).
func NewCall(name string, callee *Function, calleeName string, args []Value, retType *Type, line int) *Call {
	return &Call{instrBase: instrBase{valueBase: newBase(name, retType, line)}, Callee: callee, CalleeName: calleeName, Args: args}
}

func NewReturn(result Value, line int) *Return {
	return &Return{instrBase: instrBase{valueBase: newBase("", VoidType, line)}, Result: result}
}

func NewBranch(cond Value, then, els *BasicBlock, line int) *Branch {
	return &Branch{instrBase: instrBase{valueBase: newBase("", VoidType, line)}, Cond: cond, Then: then, Else: els}
}

func NewJump(target *BasicBlock, line int) *Jump {
	return &Jump{instrBase: instrBase{valueBase: newBase("", VoidType, line)}, Target: target}
}
