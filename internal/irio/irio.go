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

// Package irio decodes the YAML module format the CLI and tests use to
// feed Achlys an IR module without needing a real compiler front end
// wired in. This is a test/demo harness format, not a parser for any
// particular compiler's real intermediate representation; a production
// deployment of Achlys's analysis packages is expected to build
// internal/ir values directly from its own IR. Decoding goes through
// sigs.k8s.io/yaml (YAML -> JSON -> struct), matching the teacher's
// config-loading idiom (internal/pkg/config/config.go, which uses a
// JSON struct tag'd config type).
package irio

import (
	"fmt"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/achlys-project/achlys/internal/ir"
)

type moduleDoc struct {
	Name      string        `json:"name"`
	Globals   []globalDoc   `json:"globals,omitempty"`
	Functions []functionDoc `json:"functions"`
}

type globalDoc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type functionDoc struct {
	Name        string      `json:"name"`
	Params      []paramDoc  `json:"params,omitempty"`
	RetType     string      `json:"rettype,omitempty"`
	Declaration bool        `json:"declaration,omitempty"`
	Blocks      []blockDoc  `json:"blocks,omitempty"`
}

type paramDoc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type blockDoc struct {
	Name   string      `json:"name"`
	Succs  []string    `json:"succs,omitempty"`
	Instrs []instrDoc  `json:"instrs,omitempty"`
}

type instrDoc struct {
	Op       string   `json:"op"`
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type,omitempty"`
	Elem     string   `json:"elem,omitempty"`
	Addr     string   `json:"addr,omitempty"`
	Val      string   `json:"val,omitempty"`
	Base     string   `json:"base,omitempty"`
	Indices  []string `json:"indices,omitempty"`
	Edges    []string `json:"edges,omitempty"`
	Incoming []string `json:"incoming,omitempty"`
	BinOp    string   `json:"binop,omitempty"`
	X        string   `json:"x,omitempty"`
	Y        string   `json:"y,omitempty"`
	CmpOp    string   `json:"cmpop,omitempty"`
	Callee   string   `json:"callee,omitempty"`
	Args     []string `json:"args,omitempty"`
	RetType  string   `json:"rettype,omitempty"`
	Result   string   `json:"result,omitempty"`
	Cond     string   `json:"cond,omitempty"`
	Then     string   `json:"then,omitempty"`
	Else     string   `json:"else,omitempty"`
	Target   string   `json:"target,omitempty"`
	Line     int      `json:"line,omitempty"`
}

// Decode parses a YAML module document into an internal/ir.Module.
func Decode(data []byte) (*ir.Module, error) {
	var doc moduleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("irio: decode: %w", err)
	}
	return build(&doc)
}

type builder struct {
	module    *ir.Module
	funcs     map[string]*ir.Function
	globals   map[string]*ir.Global
}

func build(doc *moduleDoc) (*ir.Module, error) {
	b := &builder{
		module:  &ir.Module{Name: doc.Name},
		funcs:   map[string]*ir.Function{},
		globals: map[string]*ir.Global{},
	}

	for _, g := range doc.Globals {
		t, err := parseType(g.Type)
		if err != nil {
			return nil, fmt.Errorf("irio: global %q: %w", g.Name, err)
		}
		b.globals[g.Name] = ir.NewGlobal(g.Name, t)
	}

	for _, fd := range doc.Functions {
		params := make([]*ir.Type, 0, len(fd.Params))
		for _, p := range fd.Params {
			t, err := parseType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("irio: function %q param %q: %w", fd.Name, p.Name, err)
			}
			params = append(params, t)
		}
		ret := ir.VoidType
		if fd.RetType != "" {
			t, err := parseType(fd.RetType)
			if err != nil {
				return nil, fmt.Errorf("irio: function %q rettype: %w", fd.Name, err)
			}
			ret = t
		}
		fn := ir.NewFunction(fd.Name, params, ret)
		fn.Declaration = fd.Declaration || len(fd.Blocks) == 0
		b.funcs[fd.Name] = fn
		b.module.Functions = append(b.module.Functions, fn)
	}

	for _, fd := range doc.Functions {
		if len(fd.Blocks) == 0 {
			continue
		}
		if err := b.buildBody(b.funcs[fd.Name], fd); err != nil {
			return nil, err
		}
	}

	return b.module, nil
}

func (b *builder) buildBody(fn *ir.Function, fd functionDoc) error {
	blocks := map[string]*ir.BasicBlock{}
	for _, bd := range fd.Blocks {
		blocks[bd.Name] = fn.NewBlock(bd.Name)
	}
	for _, bd := range fd.Blocks {
		blk := blocks[bd.Name]
		for _, succName := range bd.Succs {
			succ, ok := blocks[succName]
			if !ok {
				return fmt.Errorf("irio: function %q block %q: unknown successor %q", fd.Name, bd.Name, succName)
			}
			blk.Succs = append(blk.Succs, succ)
			succ.Preds = append(succ.Preds, blk)
		}
	}

	scope := map[string]ir.Value{}
	for _, p := range fn.Params {
		scope[p.Name()] = p
	}

	for _, bd := range fd.Blocks {
		blk := blocks[bd.Name]
		for _, id := range bd.Instrs {
			instr, err := b.buildInstr(fn, blk, blocks, scope, id)
			if err != nil {
				return fmt.Errorf("irio: function %q block %q: %w", fd.Name, bd.Name, err)
			}
			if instr != nil && id.Name != "" {
				scope[id.Name] = instr
			}
		}
	}
	return nil
}

func (b *builder) resolve(scope map[string]ir.Value, name string) (ir.Value, error) {
	if name == "" {
		return nil, nil
	}
	if v, ok := scope[name]; ok {
		return v, nil
	}
	if g, ok := b.globals[name]; ok {
		return g, nil
	}
	if n, err := strconv.ParseFloat(name, 64); err == nil {
		return ir.NewConst(name, ir.DoubleType, n == 0), nil
	}
	if n, err := strconv.Atoi(name); err == nil {
		return ir.NewConst(name, ir.IntType, n == 0), nil
	}
	return nil, fmt.Errorf("unresolved operand %q", name)
}

func (b *builder) resolveAll(scope map[string]ir.Value, names []string) ([]ir.Value, error) {
	out := make([]ir.Value, 0, len(names))
	for _, n := range names {
		v, err := b.resolve(scope, n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *builder) buildInstr(fn *ir.Function, blk *ir.BasicBlock, blocks map[string]*ir.BasicBlock, scope map[string]ir.Value, id instrDoc) (ir.Instruction, error) {
	switch strings.ToLower(id.Op) {
	case "alloca":
		elem, err := parseType(id.Elem)
		if err != nil {
			return nil, err
		}
		instr := ir.NewAlloca(id.Name, elem, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "store":
		addr, err := b.resolve(scope, id.Addr)
		if err != nil {
			return nil, err
		}
		val, err := b.resolve(scope, id.Val)
		if err != nil {
			return nil, err
		}
		instr := ir.NewStore(addr, val, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "load":
		addr, err := b.resolve(scope, id.Addr)
		if err != nil {
			return nil, err
		}
		instr := ir.NewLoad(id.Name, addr, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "gep":
		base, err := b.resolve(scope, id.Base)
		if err != nil {
			return nil, err
		}
		indices, err := b.resolveAll(scope, id.Indices)
		if err != nil {
			return nil, err
		}
		instr := ir.NewGEP(id.Name, base, indices, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "phi":
		edges, err := b.resolveAll(scope, id.Edges)
		if err != nil {
			return nil, err
		}
		var incoming []*ir.BasicBlock
		for _, name := range id.Incoming {
			ib, ok := blocks[name]
			if !ok {
				return nil, fmt.Errorf("phi: unknown incoming block %q", name)
			}
			incoming = append(incoming, ib)
		}
		typ, err := parseType(id.Type)
		if err != nil {
			return nil, err
		}
		instr := ir.NewPhi(id.Name, typ, edges, incoming, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "binop":
		x, err := b.resolve(scope, id.X)
		if err != nil {
			return nil, err
		}
		y, err := b.resolve(scope, id.Y)
		if err != nil {
			return nil, err
		}
		typ, err := parseType(id.Type)
		if err != nil {
			return nil, err
		}
		instr := ir.NewBinOp(id.Name, parseBinOp(id.BinOp), typ, x, y, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "cast":
		x, err := b.resolve(scope, id.X)
		if err != nil {
			return nil, err
		}
		typ, err := parseType(id.Type)
		if err != nil {
			return nil, err
		}
		instr := ir.NewCast(id.Name, typ, x, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "unaryop":
		x, err := b.resolve(scope, id.X)
		if err != nil {
			return nil, err
		}
		typ, err := parseType(id.Type)
		if err != nil {
			return nil, err
		}
		instr := ir.NewUnaryOp(id.Name, typ, x, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "cmp":
		x, err := b.resolve(scope, id.X)
		if err != nil {
			return nil, err
		}
		y, err := b.resolve(scope, id.Y)
		if err != nil {
			return nil, err
		}
		instr := ir.NewCmp(id.Name, parseCmpOp(id.CmpOp), x, y, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "call":
		args, err := b.resolveAll(scope, id.Args)
		if err != nil {
			return nil, err
		}
		ret := ir.VoidType
		if id.RetType != "" {
			ret, err = parseType(id.RetType)
			if err != nil {
				return nil, err
			}
		}
		callee := b.funcs[id.Callee]
		instr := ir.NewCall(id.Name, callee, id.Callee, args, ret, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "return":
		result, err := b.resolve(scope, id.Result)
		if err != nil {
			return nil, err
		}
		instr := ir.NewReturn(result, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "branch":
		cond, err := b.resolve(scope, id.Cond)
		if err != nil {
			return nil, err
		}
		then, ok := blocks[id.Then]
		if !ok {
			return nil, fmt.Errorf("branch: unknown then-block %q", id.Then)
		}
		els, ok := blocks[id.Else]
		if !ok {
			return nil, fmt.Errorf("branch: unknown else-block %q", id.Else)
		}
		instr := ir.NewBranch(cond, then, els, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	case "jump":
		target, ok := blocks[id.Target]
		if !ok {
			return nil, fmt.Errorf("jump: unknown target block %q", id.Target)
		}
		instr := ir.NewJump(target, id.Line)
		ir.Emit(blk, instr)
		return instr, nil

	default:
		return nil, fmt.Errorf("unknown opcode %q", id.Op)
	}
}

func parseBinOp(s string) ir.BinOpcode {
	switch strings.ToLower(s) {
	case "add":
		return ir.Add
	case "sub":
		return ir.Sub
	case "fsub":
		return ir.FSub
	case "mul":
		return ir.Mul
	case "fmul":
		return ir.FMul
	case "sdiv":
		return ir.SDiv
	case "fdiv":
		return ir.FDiv
	case "xor":
		return ir.Xor
	default:
		return ir.Other
	}
}

func parseCmpOp(s string) ir.CmpOpcode {
	switch strings.ToLower(s) {
	case "eq":
		return ir.Eq
	case "ne":
		return ir.Ne
	case "lt":
		return ir.Lt
	case "le":
		return ir.Le
	case "gt":
		return ir.Gt
	case "ge":
		return ir.Ge
	default:
		return ir.Eq
	}
}

// parseType parses a type expression like "int", "double",
// "pointer<double>", "array<pointer<int>>", or "struct".
func parseType(s string) (*ir.Type, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ir.VoidType, nil
	case s == "int":
		return ir.IntType, nil
	case s == "float":
		return ir.FloatType, nil
	case s == "double":
		return ir.DoubleType, nil
	case s == "void":
		return ir.VoidType, nil
	case s == "struct":
		return &ir.Type{Kind: ir.Struct}, nil
	case strings.HasPrefix(s, "pointer<") && strings.HasSuffix(s, ">"):
		elem, err := parseType(s[len("pointer<") : len(s)-1])
		if err != nil {
			return nil, err
		}
		return ir.PointerTo(elem), nil
	case strings.HasPrefix(s, "array<") && strings.HasSuffix(s, ">"):
		elem, err := parseType(s[len("array<") : len(s)-1])
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(elem), nil
	default:
		return nil, fmt.Errorf("unrecognized type %q", s)
	}
}
