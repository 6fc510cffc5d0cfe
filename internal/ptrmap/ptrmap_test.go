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

package ptrmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/achlys-project/achlys/internal/ir"
	"github.com/achlys-project/achlys/internal/ptrmap"
)

func TestInsertNilRegistersBase(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	base := ir.NewAlloca("base", ir.IntType, 0)
	m.Insert(base, nil)

	assert.True(t, m.IsBase(base))
	assert.Empty(t, m.Bases(base))
}

func TestInsertNonPointerIsNoOp(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	scalar := ir.NewConst("c", ir.IntType, false)
	m.Insert(scalar, nil)

	assert.False(t, m.IsBase(scalar))
	assert.Nil(t, m.Bases(scalar))
}

func TestInsertDerivedResolvesToBase(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	base := ir.NewAlloca("base", ir.IntType, 0)
	m.Insert(base, nil)

	derived := ir.NewGEP("d", base, nil, 0)
	m.Insert(derived, base)

	assert.False(t, m.IsBase(derived))
	assert.Equal(t, []ir.Value{base}, m.Bases(derived))
}

func TestInsertTransitiveDerivedResolvesToSameBase(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	base := ir.NewAlloca("base", ir.IntType, 0)
	m.Insert(base, nil)

	derived := ir.NewGEP("d1", base, nil, 0)
	m.Insert(derived, base)

	derived2 := ir.NewGEP("d2", derived, nil, 0)
	m.Insert(derived2, derived)

	assert.Equal(t, []ir.Value{base}, m.Bases(derived2))
}

func TestConstructTreeLinksChildrenToBase(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	base := ir.NewAlloca("base", ir.IntType, 0)
	m.Insert(base, nil)

	d1 := ir.NewGEP("d1", base, nil, 0)
	m.Insert(d1, base)
	d2 := ir.NewGEP("d2", base, nil, 0)
	m.Insert(d2, base)

	tree := m.ConstructTree()

	if assert.Len(t, tree.Roots, 1) {
		root := tree.Roots[0]
		assert.Equal(t, base, root.Val)
		assert.Len(t, root.Children, 2)
		for _, child := range root.Children {
			assert.Contains(t, child.Parents, root)
		}
	}
}

func TestSiblingsFindsOtherDerivedValuesSharingBase(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	base := ir.NewAlloca("base", ir.IntType, 0)
	m.Insert(base, nil)

	d1 := ir.NewGEP("d1", base, nil, 0)
	m.Insert(d1, base)
	d2 := ir.NewGEP("d2", base, nil, 0)
	m.Insert(d2, base)

	assert.Equal(t, []ir.Value{d1}, m.Siblings(d2, base))
	assert.Equal(t, []ir.Value{d2}, m.Siblings(d1, base))
}

func TestSiblingsExcludesBaseAndSelf(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	base := ir.NewAlloca("base", ir.IntType, 0)
	m.Insert(base, nil)

	d1 := ir.NewGEP("d1", base, nil, 0)
	m.Insert(d1, base)

	assert.Empty(t, m.Siblings(d1, base))
}

func TestBasesUnknownValueIsNil(t *testing.T) {
	f := ir.NewFunction("f", nil, ir.VoidType)
	m := ptrmap.New(f)

	unknown := ir.NewAlloca("x", ir.IntType, 0)
	assert.Nil(t, m.Bases(unknown))
	assert.False(t, m.IsBase(unknown))
}
