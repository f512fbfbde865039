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

func TestArgumentPostcondition_DetectsDerefWriteAndRead(t *testing.T) {
	arg0 := value.NewArg(0)
	arg1 := value.NewArg(1)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{arg0, arg1}), Result: nil},
			{Loc: "t.c:2", Sem: semantics.NewStore(arg0, value.NewInt(1))},
			{Loc: "t.c:3", Sem: semantics.NewLoad(arg1)},
		},
		Target: 0,
	}

	res := ArgumentPostcondition{}.Extract(0, nil, trace).(argPostResult)
	require.Len(t, res.Feature, 2)
	assert.True(t, res.Feature[0].DerefedWrite)
	assert.True(t, res.Feature[1].DerefedRead)
}

func TestArgumentPostcondition_DetectsReturnedAndIndirReturned(t *testing.T) {
	arg0 := value.NewArg(0)
	arg1 := value.NewArg(1)
	gep := value.NewGEP(arg1, []*value.Value{value.NewInt(0)})

	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{arg0, arg1}), Result: nil},
			{Loc: "t.c:2", Sem: semantics.NewRet(arg0)},
		},
		Target: 0,
	}
	res := ArgumentPostcondition{}.Extract(0, nil, trace).(argPostResult)
	require.Len(t, res.Feature, 2)
	assert.True(t, res.Feature[0].Returned)
	assert.False(t, res.Feature[1].Returned)

	trace2 := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{arg0, arg1}), Result: nil},
			{Loc: "t.c:2", Sem: semantics.NewRet(gep)},
		},
		Target: 0,
	}
	res2 := ArgumentPostcondition{}.Extract(0, nil, trace2).(argPostResult)
	assert.True(t, res2.Feature[1].IndirReturned)
}

func TestArgumentPostcondition_DetectsUsedInCheck(t *testing.T) {
	arg := value.NewArg(0)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{arg}), Result: nil},
			{Loc: "t.c:2", Sem: semantics.NewICmp(value.PredEQ, arg, value.NewNull())},
		},
		Target: 0,
	}

	res := ArgumentPostcondition{}.Extract(0, nil, trace).(argPostResult)
	require.Len(t, res.Feature, 1)
	assert.True(t, res.Feature[0].UsedInCheck)
}

func TestArgumentPostcondition_NameAndFilter(t *testing.T) {
	p := ArgumentPostcondition{}
	assert.Equal(t, "arg.post", p.Name())
	assert.True(t, p.Filter(true))
	assert.True(t, p.Filter(false))
}
