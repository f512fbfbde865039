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

	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/value"
)

func TestReturnValue_NilResultReturnsEmptyMap(t *testing.T) {
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), nil), Result: nil},
		},
		Target: 0,
	}

	out := ReturnValue{}.Extract(0, nil, trace)
	assert.Equal(t, map[string]any{}, out)
}

func TestReturnValue_DetectsCheckedCompareAndBranchCond(t *testing.T) {
	retval := value.NewSym(1)
	icmpVal := value.NewICmp(value.PredSGT, retval, value.NewInt(0))

	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), nil), Result: retval},
			{Loc: "t.c:2", Sem: semantics.NewICmp(value.PredSGT, retval, value.NewInt(0)), Result: icmpVal},
			{Loc: "t.c:3", Sem: semantics.NewCondBr(icmpVal, semantics.BranchThen)},
		},
		Target: 0,
	}

	res := ReturnValue{}.Extract(0, nil, trace).(retvalResult)
	assert.True(t, res.Check.Checked)
	assert.EqualValues(t, 0, res.Check.ComparedWithConst)
	assert.Equal(t, "gt", res.Check.CheckCond)
}

func TestReturnValue_DetectsUsedInCallAndUsedInBin(t *testing.T) {
	retval := value.NewSym(2)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), nil), Result: retval},
			{Loc: "t.c:2", Sem: semantics.NewCall(value.NewFunc("sink"), []*value.Value{retval})},
			{Loc: "t.c:3", Sem: semantics.NewBin(value.BinAdd, retval, value.NewInt(1)), Result: value.NewSym(3)},
		},
		Target: 0,
	}

	res := ReturnValue{}.Extract(0, nil, trace).(retvalResult)
	assert.True(t, res.Ctx.UsedInCall)
	assert.True(t, res.Ctx.UsedInBin)
}

func TestReturnValue_DetectsDerefReadWriteAndReturned(t *testing.T) {
	retval := value.NewSym(4)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), nil), Result: retval},
			{Loc: "t.c:2", Sem: semantics.NewLoad(retval)},
			{Loc: "t.c:3", Sem: semantics.NewStore(retval, value.NewInt(9))},
			{Loc: "t.c:4", Sem: semantics.NewRet(retval)},
		},
		Target: 0,
	}

	res := ReturnValue{}.Extract(0, nil, trace).(retvalResult)
	assert.True(t, res.Ctx.DerefedRead)
	assert.True(t, res.Ctx.DerefedWrite)
	assert.True(t, res.Ctx.Returned)
}

func TestReturnValue_NameAndFilter(t *testing.T) {
	p := ReturnValue{}
	assert.Equal(t, "retval", p.Name())
	assert.True(t, p.Filter(true))
	assert.False(t, p.Filter(false))
}

func TestGetBrCond_FlipsSenseOnElseArm(t *testing.T) {
	assert.Equal(t, "gt", getBrCond(value.PredSGT, semantics.BranchThen))
	assert.Equal(t, "le", getBrCond(value.PredSGT, semantics.BranchElse))
	assert.Equal(t, "", getBrCond(value.ICmpPred(99), semantics.BranchThen))
}
