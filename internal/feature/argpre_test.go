// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/value"
)

func TestArgumentPrecondition_ClassifiesConstantAllocaGlobal(t *testing.T) {
	args := []*value.Value{value.NewInt(42), value.NewAlloc(1), value.NewGlob("g")}
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), args), Result: value.NewInt(0)},
		},
		Target: 0,
	}

	res := ArgumentPrecondition{}.Extract(0, nil, trace).(argPreResult)
	require.Len(t, res.Feature, 3)
	assert.True(t, res.Feature[0].IsConstant)
	assert.EqualValues(t, 42, res.Feature[0].ArgValue)
	assert.True(t, res.Feature[1].IsAlloca)
	assert.True(t, res.Feature[2].IsGlobal)
}

func TestArgumentPrecondition_DetectsConstComparisonAndBranchCond(t *testing.T) {
	arg := value.NewArg(0)
	icmpSym := value.NewSym(99)

	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "a.c:1", Sem: semantics.NewICmp(value.PredSLT, arg, value.NewInt(10)), Result: icmpSym},
			{Loc: "a.c:2", Sem: semantics.NewCondBr(icmpSym, semantics.BranchThen)},
			{Loc: "a.c:3", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{arg}), Result: value.NewInt(0)},
		},
		Target: 2,
	}

	res := ArgumentPrecondition{}.Extract(0, nil, trace).(argPreResult)
	require.Len(t, res.Feature, 1)
	assert.True(t, res.Feature[0].Check.Checked)
	assert.EqualValues(t, 10, res.Feature[0].Check.ComparedWithConst)
	assert.Equal(t, "lt", res.Feature[0].Check.CheckCond)
}

func TestArgumentPrecondition_DetectsSharedSubvalueRelation(t *testing.T) {
	base := value.NewAlloc(5)
	args := []*value.Value{base, value.NewGEP(base, nil)}
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), args), Result: value.NewInt(0)},
		},
		Target: 0,
	}

	res := ArgumentPrecondition{}.Extract(0, nil, trace).(argPreResult)
	assert.True(t, res.HasRelation)
	assert.Equal(t, [][]int{{0, 1}}, res.Relations)
}

func TestArgumentPrecondition_NameAndFilter(t *testing.T) {
	p := ArgumentPrecondition{}
	assert.Equal(t, "arg.pre", p.Name())
	assert.True(t, p.Filter(true))
	assert.True(t, p.Filter(false))
}
