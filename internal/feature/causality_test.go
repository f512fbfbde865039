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
	"github.com/aleutian-oss/bcminer/internal/slicer"
	"github.com/aleutian-oss/bcminer/internal/value"
)

func TestCausality_Extract_SharesArgumentBeforeTarget(t *testing.T) {
	commonArg := value.NewArg(0)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "h.c:1", Sem: semantics.NewCall(value.NewFunc("helper"), []*value.Value{commonArg})},
			{Loc: "t.c:2", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{commonArg}), Result: value.NewInt(0)},
		},
		Target: 1,
	}

	out := Causality{}.Extract(0, &slicer.Slice{}, trace).(map[string]any)
	pre := out["pre.call"].(map[string]causalityEntry)
	require.Contains(t, pre, "helper")
	assert.True(t, pre["helper"].ShareArgument)

	post := out["post.call"].(map[string]causalityEntry)
	assert.Empty(t, post)
}

func TestCausality_Extract_UsedAsArgAfterTarget(t *testing.T) {
	targetResult := value.NewSym(7)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "t.c:1", Sem: semantics.NewCall(value.NewFunc("target"), nil), Result: targetResult},
			{Loc: "s.c:2", Sem: semantics.NewCall(value.NewFunc("sink"), []*value.Value{targetResult})},
		},
		Target: 0,
	}

	out := Causality{}.Extract(0, &slicer.Slice{}, trace).(map[string]any)
	post := out["post.call"].(map[string]causalityEntry)
	require.Contains(t, post, "sink")
	assert.True(t, post["sink"].UsedAsArg)
}

func TestCausality_Extract_FiltersSanitizerAndPrintNames(t *testing.T) {
	commonArg := value.NewArg(0)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "a.c:1", Sem: semantics.NewCall(value.NewFunc("__asan_check"), []*value.Value{commonArg})},
			{Loc: "a.c:2", Sem: semantics.NewCall(value.NewFunc("myprintf"), []*value.Value{commonArg})},
			{Loc: "t.c:3", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{commonArg}), Result: value.NewInt(0)},
		},
		Target: 2,
	}

	out := Causality{}.Extract(0, &slicer.Slice{}, trace).(map[string]any)
	pre := out["pre.call"].(map[string]causalityEntry)
	assert.Empty(t, pre)
}

func TestCausality_Extract_RecordsEachCalleeOnce(t *testing.T) {
	commonArg := value.NewArg(0)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "h.c:1", Sem: semantics.NewCall(value.NewFunc("helper"), []*value.Value{commonArg})},
			{Loc: "h.c:2", Sem: semantics.NewCall(value.NewFunc("helper"), nil)},
			{Loc: "t.c:3", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{commonArg}), Result: value.NewInt(0)},
		},
		Target: 2,
	}

	out := Causality{}.Extract(0, &slicer.Slice{}, trace).(map[string]any)
	pre := out["pre.call"].(map[string]causalityEntry)
	assert.Len(t, pre, 1)
}

func TestCausality_NameAndFilter(t *testing.T) {
	c := Causality{}
	assert.Equal(t, "causality", c.Name())
	assert.True(t, c.Filter(true))
	assert.True(t, c.Filter(false))
}
