// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package callgraph

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond constructs a small module: main -> mid -> leaf, and
// main -> leaf directly, plus an intrinsic call that must be excluded.
func buildDiamond(t *testing.T) (*ir.Module, *ir.Func, *ir.Func, *ir.Func) {
	t.Helper()
	m := ir.NewModule()

	leaf := m.NewFunc("leaf", types.Void)
	leaf.NewBlock("entry").NewRet(nil)

	mid := m.NewFunc("mid", types.Void)
	midEntry := mid.NewBlock("entry")
	midEntry.NewCall(leaf)
	midEntry.NewRet(nil)

	main := m.NewFunc("main", types.Void)
	mainEntry := main.NewBlock("entry")
	mainEntry.NewCall(mid)
	mainEntry.NewCall(leaf)

	memcpy := m.NewFunc("llvm.memcpy.p0i8.p0i8.i64", types.Void)
	mainEntry.NewCall(memcpy)
	mainEntry.NewRet(nil)

	return m, main, mid, leaf
}

func TestBuild_SkipsIntrinsicCallsAndEdges(t *testing.T) {
	m, main, mid, leaf := buildDiamond(t)
	cg := Build(m)

	require.Len(t, cg.Edges, 3)
	assert.Len(t, cg.CalleesOf(main), 2)
	assert.Len(t, cg.CalleesOf(mid), 1)
	assert.Len(t, cg.CallersOf(leaf), 2)
	assert.Len(t, cg.CallersOf(mid), 1)
}

func TestCallGraphPath_String(t *testing.T) {
	_, main, mid, leaf := buildDiamond(t)

	path := CallGraphPath{Edges: []CallEdge{
		{Caller: main, Callee: mid},
		{Caller: mid, Callee: leaf},
	}}
	assert.Equal(t, "main -> mid -> leaf", path.String())
}

func TestCallGraphPath_StringEmpty(t *testing.T) {
	assert.Equal(t, "", CallGraphPath{}.String())
}

func TestPaths_FindsEveryRouteToTarget(t *testing.T) {
	m, main, mid, leaf := buildDiamond(t)
	cg := Build(m)

	paths := cg.Paths(leaf, 5)

	// main->leaf, mid->leaf, and main->mid->leaf.
	assert.Len(t, paths, 3)
	var sawDirect, sawViaMid bool
	for _, p := range paths {
		switch len(p.Edges) {
		case 1:
			if p.Edges[0].Caller == main {
				sawDirect = true
			}
		case 2:
			if p.Edges[0].Caller == main && p.Edges[1].Caller == mid {
				sawViaMid = true
			}
		}
	}
	assert.True(t, sawDirect, "expected a direct main->leaf path")
	assert.True(t, sawViaMid, "expected a main->mid->leaf path")
}

func TestPaths_RespectsMaxDepth(t *testing.T) {
	m, _, _, leaf := buildDiamond(t)
	cg := Build(m)

	paths := cg.Paths(leaf, 0)
	for _, p := range paths {
		assert.LessOrEqual(t, len(p.Edges), 1)
	}
}
