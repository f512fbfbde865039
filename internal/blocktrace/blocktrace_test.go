// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blocktrace

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/slicer"
)

func TestExpand_ProducesCartesianProduct(t *testing.T) {
	m := ir.NewModule()
	f1 := m.NewFunc("f1", types.Void)
	f2 := m.NewFunc("f2", types.Void)
	b1 := f1.NewBlock("b1")
	b2 := f1.NewBlock("b2")
	b3 := f2.NewBlock("b3")

	composite := []compositeFunctionBlockTraces{
		{Function: f1, Paths: [][]*ir.Block{{b1}, {b2}}},
		{Function: f2, Paths: [][]*ir.Block{{b3}}},
	}

	out := expand(composite)
	require.Len(t, out, 2)
	for _, trace := range out {
		require.Len(t, trace, 2)
		assert.Equal(t, f2, trace[1].Function)
	}
}

func TestExpand_SkipsEntriesWithNoPaths(t *testing.T) {
	m := ir.NewModule()
	f1 := m.NewFunc("f1", types.Void)
	f2 := m.NewFunc("f2", types.Void)
	b3 := f2.NewBlock("b3")

	composite := []compositeFunctionBlockTraces{
		{Function: f1, Paths: nil},
		{Function: f2, Paths: [][]*ir.Block{{b3}}},
	}

	out := expand(composite)
	require.Len(t, out, 1)
	require.Len(t, out[0], 1)
	assert.Equal(t, f2, out[0][0].Function)
}

func TestExpand_Empty(t *testing.T) {
	assert.Nil(t, expand(nil))
}

// buildDiamondFunc builds f: entry -condbr-> {a,b} -br-> merge -call(callee)-> ret.
func buildDiamondFunc(t *testing.T) (*ir.Func, *ir.Func, *ir.InstCall) {
	t.Helper()
	m := ir.NewModule()
	callee := m.NewFunc("callee", types.Void)
	callee.NewBlock("entry").NewRet(nil)

	f := m.NewFunc("f", types.Void)
	entry := f.NewBlock("entry")
	a := f.NewBlock("a")
	b := f.NewBlock("b")
	merge := f.NewBlock("merge")

	entry.NewCondBr(constant.NewInt(types.I1, 1), a, b)
	a.NewBr(merge)
	b.NewBr(merge)
	call := merge.NewCall(callee)
	merge.NewRet(nil)

	return f, callee, call
}

func TestFromCallGraphPath_FindsBothDiamondRoutes(t *testing.T) {
	f, callee, call := buildDiamondFunc(t)
	path := callgraph.CallGraphPath{Edges: []callgraph.CallEdge{{Caller: f, Callee: callee, Inst: call}}}

	traces := FromCallGraphPath(path, 5, true)
	require.Len(t, traces, 2)

	var sawA, sawB bool
	for _, tr := range traces {
		require.Len(t, tr, 1)
		blocks := tr[0].Blocks
		require.Len(t, blocks, 3)
		assert.Equal(t, "entry", blocks[0].Name())
		assert.Equal(t, "merge", blocks[2].Name())
		switch blocks[1].Name() {
		case "a":
			sawA = true
		case "b":
			sawB = true
		}
	}
	assert.True(t, sawA)
	assert.True(t, sawB)
}

func TestFromSlice_EmptyCallChainReturnsNil(t *testing.T) {
	assert.Nil(t, FromSlice(slicer.Slice{}, 5, true))
}

func TestIterator_VisitCallAdvancesOnMatch(t *testing.T) {
	f, _, call := buildDiamondFunc(t)
	_, _, otherCall := buildDiamondFunc(t)
	trace := BlockTrace{{Function: f, CallInstr: call}}
	it := NewIterator(trace, 5, true)

	assert.False(t, it.VisitCall(otherCall))
	assert.True(t, it.VisitCall(call))
	assert.Equal(t, 1, it.FunctionID)
	assert.Equal(t, 0, it.BlockID)
}

func TestIterator_VisitBlockAdvancesAlongPath(t *testing.T) {
	f, _, call := buildDiamondFunc(t)
	entry := f.Blocks[0]
	a := f.Blocks[1]
	merge := f.Blocks[3]
	trace := BlockTrace{{Function: f, Blocks: []*ir.Block{entry, a, merge}, CallInstr: call}}
	it := NewIterator(trace, 5, true)

	assert.True(t, it.VisitBlock(entry, a, true))
	assert.Equal(t, 1, it.BlockID)
	assert.True(t, it.VisitBlock(a, merge, true))
	assert.Equal(t, 2, it.BlockID)
	assert.False(t, it.VisitBlock(merge, entry, true))
}

func TestIterator_CorrectBlkPaths_NoOpNearEndOfHop(t *testing.T) {
	f, _, call := buildDiamondFunc(t)
	entry := f.Blocks[0]
	a := f.Blocks[1]
	merge := f.Blocks[3]
	trace := BlockTrace{{Function: f, Blocks: []*ir.Block{entry, a, merge}, CallInstr: call}}
	it := NewIterator(trace, 5, true)
	it.BlockID = 1

	assert.False(t, it.CorrectBlkPaths(merge, f))
}
