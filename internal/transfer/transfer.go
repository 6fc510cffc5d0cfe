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

// Package transfer implements component D: the per-opcode instruction
// transfer functions that drive taint and NaN-origination facts forward
// one instruction at a time. Grounded on analyzeInstruction in
// original_source/TaintChecker/TaintChecker.cpp.
package transfer

import (
	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/nanid"
	"github.com/achlys-project/achlys/internal/oracle"
	"github.com/achlys-project/achlys/internal/ptrmap"
	"github.com/achlys-project/achlys/internal/taintset"
)

// CallClass classifies a Call's callee for the purpose of deciding how
// its result and arguments should be tainted.
type CallClass int

const (
	// ClassOther is an unmodeled external call: conservatively, its
	// result is never tainted and its pointer arguments are not assumed
	// to be written through.
	ClassOther CallClass = iota
	// ClassTaintSource is a recognized attacker-influenced data source
	// (argv parsing, environment, network/file read) whose return value
	// is always tainted.
	ClassTaintSource
	// ClassNaNSource is a recognized call that can itself produce NaN
	// (e.g. a string-to-float conversion on malformed input).
	ClassNaNSource
	// ClassHeapAllocator is a recognized allocator (malloc/calloc/...)
	// whose return value is a fresh, untainted base pointer.
	ClassHeapAllocator
	// ClassUserDefined is a call to a function with a body in this
	// module; component F's inter-procedural summary owns its effects.
	ClassUserDefined
)

// Classifier holds the recognized-function tables (§4.D, §6: "function
// classification is table-driven, not hard-coded per call site" mirrors
// the teacher's funcSummaries map-keyed approach).
type Classifier struct {
	TaintSources   map[string]bool
	NaNSources     map[string]bool
	HeapAllocators map[string]bool
}

// DefaultClassifier returns the recognized-function tables used by the
// CLI and by tests: common libc-style argv/env/IO taint sources,
// string-to-float NaN sources, and heap allocators.
func DefaultClassifier() *Classifier {
	return &Classifier{
		TaintSources: map[string]bool{
			"atoi": true, "atol": true, "atoll": true,
			"getenv": true, "scanf": true, "fscanf": true, "sscanf": true,
			"fgets": true, "gets": true, "read": true, "recv": true, "recvfrom": true,
		},
		NaNSources: map[string]bool{
			"atof": true, "strtod": true, "strtof": true,
		},
		HeapAllocators: map[string]bool{
			"malloc": true, "calloc": true, "realloc": true, "operator new": true,
		},
	}
}

// Classify determines a Call's class. A resolved callee with a body
// always classifies as ClassUserDefined, regardless of name, since
// component F's summary mechanism supersedes name-based tables once the
// body is available.
func (c *Classifier) Classify(call *ir.Call, callee *ir.Function) CallClass {
	if callee != nil && !callee.Declaration {
		return ClassUserDefined
	}
	name := call.CalleeName
	switch {
	case c.NaNSources[name]:
		return ClassNaNSource
	case c.TaintSources[name]:
		return ClassTaintSource
	case c.HeapAllocators[name]:
		return ClassHeapAllocator
	default:
		return ClassOther
	}
}

// Env bundles the per-function collaborators a transfer function needs:
// the flow-sensitive taint set (component C), the pointer-dependency map
// (component A), the NaN-id allocator (owned by the driver, §9), the
// call classifier, and the oracle backends consulted for Load dependency
// resolution.
type Env struct {
	Set        *taintset.Set
	Ptr        *ptrmap.Map
	NaNIDs     *nanid.Allocator
	Classifier *Classifier
	MemDep     oracle.MemoryDependence

	// UserCallReturnTainted, when set, lets a call to a resolved
	// user-defined function consult that function's already-built
	// component F summary to decide whether its return value is tainted.
	// argTainted reports whether the call's i'th (0-based) argument is
	// currently tainted. The second return value lists the (0-based)
	// argument positions the callee's return actually depends on, so
	// applyCall can link real parent edges back to them instead of
	// minting an untraceable fresh source; an empty slice alongside
	// tainted=true means the callee's return is tainted unconditionally
	// (e.g. from a tainted global), in which case the call's result
	// becomes a fresh top-level source instead, same as a recognized
	// taint-source call. nil means no inter-procedural information is
	// available, and the call's result is left untainted.
	UserCallReturnTainted func(callee *ir.Function, argTainted func(i int) bool) (tainted bool, dependsOnArgs []int)
}

// Apply runs the transfer function for one instruction, mutating Env's
// taint set and pointer map in place. Control-flow instructions
// (Branch, Jump) are no-ops here; the control-flow tainting rule lives
// in component E, which has the dominance information this package does
// not.
func (e *Env) Apply(instr ir.Instruction) {
	switch in := instr.(type) {
	case *ir.Alloca:
		e.Ptr.Insert(in, nil)

	case *ir.Store:
		if e.Set.IsTainted(in.Val) {
			for _, base := range e.Ptr.Bases(in.Addr) {
				e.Set.CheckAndPropagateTaint(base, in.Val)
			}
			if e.Ptr.IsBase(in.Addr) {
				e.Set.CheckAndPropagateTaint(in.Addr, in.Val)
			}
		}

	case *ir.Load:
		e.Ptr.Insert(in, in.Addr)
		if e.MemDep != nil {
			for _, dep := range e.MemDep.NonLocalDependencies(in) {
				if dep.Kind != oracle.Def {
					continue
				}
				if st, ok := dep.Instr.(*ir.Store); ok {
					e.Set.CheckAndPropagateTaint(in, st.Val)
				}
			}
		}
		for _, base := range e.Ptr.Bases(in.Addr) {
			e.Set.CheckAndPropagateTaint(in, base)
		}
		if e.Ptr.IsBase(in.Addr) {
			e.Set.CheckAndPropagateTaint(in, in.Addr)
		}

	case *ir.GEP:
		e.Ptr.Insert(in, in.Base)
		e.Set.CheckAndPropagateTaint(in, in.Base)
		for _, base := range e.Ptr.Bases(in.Base) {
			for _, sibling := range e.Ptr.Siblings(in, base) {
				e.Set.CheckAndPropagateTaint(in, sibling)
			}
		}
		if e.Ptr.IsBase(in.Base) {
			for _, sibling := range e.Ptr.Siblings(in, in.Base) {
				e.Set.CheckAndPropagateTaint(in, sibling)
			}
		}

	case *ir.Phi:
		for _, edge := range in.Edges {
			if edge == nil {
				continue
			}
			if edge.Type().IsPointerLike() {
				e.Ptr.Insert(in, edge)
			}
			e.Set.CheckAndPropagateTaint(in, edge)
		}

	case *ir.BinOp:
		e.applyBinOp(in)

	case *ir.Cast:
		e.Ptr.Insert(in, in.X)
		e.Set.CheckAndPropagateTaint(in, in.X)

	case *ir.UnaryOp:
		e.Set.CheckAndPropagateTaint(in, in.X)

	case *ir.Cmp:
		e.Set.CheckAndPropagateTaint(in, in.X)
		e.Set.CheckAndPropagateTaint(in, in.Y)

	case *ir.Call:
		e.applyCall(in)

	case *ir.Return:
		if in.Result != nil {
			e.Set.MarkThisValueAsReturnValue(in.Result)
		}
	}
}

// isConstantInstruction implements §4.D's "constant instruction"
// short-circuit table: a - a, a xor a, a / a, and a * 0 all produce a
// compile-time-knowable result regardless of any taint on their
// operands, so taint never propagates across them. Operand identity
// (Go value equality between the two Value handles), not may-alias, is
// what qualifies — see DESIGN.md's "Constant-instruction folding" entry
// for why.
func isConstantInstruction(in *ir.BinOp) bool {
	switch in.Op {
	case ir.Sub, ir.FSub, ir.Xor, ir.SDiv, ir.FDiv:
		return in.X == in.Y
	case ir.Mul, ir.FMul:
		return isZeroConst(in.X) || isZeroConst(in.Y)
	default:
		return false
	}
}

func isZeroConst(v ir.Value) bool {
	c, ok := v.(*ir.Const)
	return ok && c.IsZero
}

// applyBinOp implements §4.D's NaN-origination rule: a division whose
// dividend or divisor is tainted originates a fresh NaN fact on the
// result, rather than merely propagating the operands' existing taint.
// Every other tainted-operand case is ordinary taint propagation. This
// is the "either operand" (OR) reading of the rule as spec.md states it
// explicitly; see DESIGN.md for why that takes precedence over the
// stricter all-parents-tainted check the original collapse step applies
// later, at component G. A constant instruction (see isConstantInstruction)
// short-circuits both rules: its result is never tainted and never a NaN
// origination, no matter what its operands are.
func (e *Env) applyBinOp(in *ir.BinOp) {
	if isConstantInstruction(in) {
		return
	}
	xt, yt := e.Set.IsTainted(in.X), e.Set.IsTainted(in.Y)
	if !xt && !yt {
		return
	}
	if in.Op.IsDiv() {
		if xt {
			e.Set.CheckAndPropagateTaint(in, in.X)
		}
		if yt {
			e.Set.CheckAndPropagateTaint(in, in.Y)
		}
		id := e.NaNIDs.Next()
		e.Set.AddNaNSource(in, id)
		return
	}
	if xt {
		e.Set.CheckAndPropagateTaint(in, in.X)
	}
	if yt {
		e.Set.CheckAndPropagateTaint(in, in.Y)
	}
}

func (e *Env) applyCall(in *ir.Call) {
	switch e.Classifier.Classify(in, in.Callee) {
	case ClassHeapAllocator:
		if in.Type().IsPointerLike() {
			e.Ptr.Insert(in, nil)
		}
	case ClassTaintSource:
		e.Set.AddTaintSource(in)
		for _, arg := range in.Args {
			if arg.Type().IsPointerLike() {
				for _, base := range e.Ptr.Bases(arg) {
					e.Set.AddTaintSource(base)
				}
				if e.Ptr.IsBase(arg) {
					e.Set.AddTaintSource(arg)
				}
			}
		}
	case ClassNaNSource:
		for _, arg := range in.Args {
			if e.Set.IsTainted(arg) {
				e.Set.CheckAndPropagateTaint(in, arg)
			}
		}
		id := e.NaNIDs.Next()
		e.Set.AddNaNSource(in, id)
	case ClassUserDefined:
		if e.UserCallReturnTainted == nil {
			return
		}
		argTainted := func(i int) bool {
			if i < 0 || i >= len(in.Args) {
				return false
			}
			return e.Set.IsTainted(in.Args[i])
		}
		tainted, dependsOnArgs := e.UserCallReturnTainted(in.Callee, argTainted)
		if !tainted {
			return
		}
		linked := false
		for _, i := range dependsOnArgs {
			if i < 0 || i >= len(in.Args) || !e.Set.IsTainted(in.Args[i]) {
				continue
			}
			e.Set.CheckAndPropagateTaint(in, in.Args[i])
			linked = true
		}
		if !linked {
			e.Set.AddTaintSource(in)
		}
	case ClassOther:
		// Unmodeled external call: component G's recursive collapse has
		// no caller/callee context to consult here either.
	}
}
