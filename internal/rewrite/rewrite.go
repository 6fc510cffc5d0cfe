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

// Package rewrite implements the IR-mutation half of component H:
// given a RewriteRequest naming a hazardous NaN-producing instruction,
// it splices in a call to a fault-injection thunk immediately after the
// producer and redirects every other use of the original value to the
// thunk's result. Grounded on insertFICall/doFaultInjectionInstrumentation
// in original_source/TaintChecker/TaintChecker.cpp, which declares one
// injection thunk per scalar kind (float/double/int) plus a pointer
// variant for writes through a tainted base.
package rewrite

import (
	"fmt"

	"github.com/achlys-project/achlys/internal/filter"
	"github.com/achlys-project/achlys/internal/ir"
)

// Rewriter mutates a single Module in place, lazily declaring the
// fault-injection thunks it needs as external functions the linker (or,
// in a test harness, the interpreter driving the rewritten IR) supplies.
type Rewriter struct {
	Module *ir.Module
	thunks map[ir.Kind]*ir.Function
}

func NewRewriter(m *ir.Module) *Rewriter {
	return &Rewriter{Module: m, thunks: map[ir.Kind]*ir.Function{}}
}

func thunkName(k ir.Kind) string {
	switch k {
	case ir.Float:
		return "injectNANFaultFloat"
	case ir.Double:
		return "injectNANFaultDouble"
	case ir.Int:
		return "injectNANFaultInt"
	case ir.Pointer:
		return "injectNANFaultPtr"
	default:
		return "injectNANFaultValue"
	}
}

func (r *Rewriter) thunkFor(typ *ir.Type) *ir.Function {
	k := typ.Kind
	if fn, ok := r.thunks[k]; ok {
		return fn
	}
	name := thunkName(k)
	if fn := r.Module.FunctionNamed(name); fn != nil {
		r.thunks[k] = fn
		return fn
	}
	fn := ir.NewFunction(name, []*ir.Type{typ}, typ)
	fn.Declaration = true
	r.Module.Functions = append(r.Module.Functions, fn)
	r.thunks[k] = fn
	return fn
}

// Apply performs one rewrite request: insert a call to the
// kind-appropriate thunk right after the producing instruction, passing
// the original value through, and redirect every other use in the
// function to the thunk's result.
func (r *Rewriter) Apply(req filter.RewriteRequest) (*ir.Call, error) {
	producer := req.Producer
	block := producer.Block()
	if block == nil {
		return nil, fmt.Errorf("rewrite: producer %q has no containing block", producer.Name())
	}
	users := req.Func.Users(producer)

	thunkFn := r.thunkFor(producer.Type())
	call := ir.NewCall(producer.Name()+".fi", thunkFn, thunkFn.Name, []ir.Value{producer}, producer.Type(), producer.Line())
	if !block.InsertAfter(producer, call) {
		return nil, fmt.Errorf("rewrite: could not splice fault-injection call after %q", producer.Name())
	}
	for _, user := range users {
		ir.ReplaceOperand(user, producer, call)
	}
	req.Func.InvalidateUsers()
	return call, nil
}

// ApplyAll applies every request, stopping and returning the first
// error encountered (a partially rewritten module on error is not
// rolled back; callers that need atomicity should operate on a copy).
func (r *Rewriter) ApplyAll(reqs []filter.RewriteRequest) ([]*ir.Call, error) {
	var calls []*ir.Call
	for _, req := range reqs {
		call, err := r.Apply(req)
		if err != nil {
			return calls, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}
