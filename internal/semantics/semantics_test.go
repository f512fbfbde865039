// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package semantics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/bcminer/internal/value"
)

func buildTrace() Trace {
	arg0 := value.NewArg(0)
	targetCall := NewCall(value.NewFunc("target"), []*value.Value{arg0})
	return Trace{
		Target: 1,
		Instrs: []TraceNode{
			{Loc: "a.c:1", Sem: NewLoad(value.NewAlloc(0)), Result: value.NewSym(0)},
			{Loc: "a.c:2", Sem: targetCall, Result: value.NewSym(1)},
			{Loc: "a.c:3", Sem: NewRet(value.NewSym(1))},
		},
	}
}

func TestTrace_TargetAccessors(t *testing.T) {
	tr := buildTrace()
	assert.Equal(t, EventCall, tr.TargetNode().Sem.Kind)
	require.Len(t, tr.TargetArgs(), 1)
	assert.True(t, value.Equal(tr.TargetArgs()[0], value.NewArg(0)))
	assert.True(t, value.Equal(tr.TargetResult(), value.NewSym(1)))
}

func TestCallArgs_PanicsOnNonCallEvent(t *testing.T) {
	assert.Panics(t, func() {
		NewRet(nil).CallArgs()
	})
}

func TestIterFromTarget_ForwardAndBackward(t *testing.T) {
	tr := buildTrace()

	var forward []int
	tr.IterFromTarget(Forward, func(i int, _ TraceNode) bool {
		forward = append(forward, i)
		return true
	})
	assert.Equal(t, []int{2}, forward)

	var backward []int
	tr.IterFromTarget(Backward, func(i int, _ TraceNode) bool {
		backward = append(backward, i)
		return true
	})
	assert.Equal(t, []int{0}, backward)
}

func TestIterFrom_StopsWhenVisitReturnsFalse(t *testing.T) {
	tr := Trace{Instrs: []TraceNode{{}, {}, {}, {}}}
	var seen []int
	tr.IterFrom(Forward, -1, func(i int, _ TraceNode) bool {
		seen = append(seen, i)
		return i < 1
	})
	assert.Equal(t, []int{0, 1}, seen)
}

func TestBranch_String(t *testing.T) {
	assert.Equal(t, "then", BranchThen.String())
	assert.Equal(t, "else", BranchElse.String())
}

func TestTraceJSON_RoundTrip(t *testing.T) {
	want := buildTrace()

	data, err := json.Marshal(want)
	require.NoError(t, err)

	var got Trace
	require.NoError(t, json.Unmarshal(data, &got))

	require.Equal(t, want.Target, got.Target)
	require.Len(t, got.Instrs, len(want.Instrs))
	for i := range want.Instrs {
		assert.Equal(t, want.Instrs[i].Loc, got.Instrs[i].Loc)
		assert.Equal(t, want.Instrs[i].Sem.Kind, got.Instrs[i].Sem.Kind)
		assert.True(t, value.Equal(want.Instrs[i].Result, got.Instrs[i].Result))
	}
}

func TestSemanticsJSON_EveryEventKindRoundTrips(t *testing.T) {
	events := []Semantics{
		NewCall(value.NewFunc("f"), []*value.Value{value.NewArg(0)}),
		NewICmp(value.PredSLT, value.NewSym(0), value.NewInt(1)),
		NewCondBr(value.NewSym(0), BranchElse),
		NewSwitch(value.NewSym(1)),
		NewRet(value.NewInt(0)),
		NewRet(nil),
		NewStore(value.NewAlloc(0), value.NewInt(3)),
		NewLoad(value.NewAlloc(0)),
		NewGEP(value.NewAlloc(0), []*value.Value{value.NewInt(0)}),
		NewUna(value.UnaSExt, value.NewSym(2)),
		NewBin(value.BinXor, value.NewSym(0), value.NewSym(1)),
	}

	for _, want := range events {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got Semantics
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, want.Kind, got.Kind)
	}
}
