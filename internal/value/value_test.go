// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual_StructuralNotPointer(t *testing.T) {
	a := NewInt(5)
	b := NewInt(5)
	assert.NotSame(t, a, b)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, NewInt(6)))
}

func TestEqual_NilHandling(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(NewInt(0), nil))
	assert.False(t, Equal(nil, NewInt(0)))
}

func TestEqual_GEPRecursesOverIndices(t *testing.T) {
	a := NewGEP(NewAlloc(1), []*Value{NewInt(0), NewInt(1)})
	b := NewGEP(NewAlloc(1), []*Value{NewInt(0), NewInt(1)})
	c := NewGEP(NewAlloc(1), []*Value{NewInt(0), NewInt(2)})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestKey_MatchesEqualClasses(t *testing.T) {
	a := NewSym(3)
	b := NewSym(3)
	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(NewSym(4)))
	assert.Equal(t, "<nil>", Key(nil))
}

func TestContains_FollowsGEPBaseChain(t *testing.T) {
	base := NewAlloc(1)
	gep := NewGEP(base, []*Value{NewInt(0)})
	nested := NewGEP(gep, []*Value{NewInt(1)})

	assert.True(t, Contains(nested, base))
	assert.True(t, Contains(nested, gep))
	assert.False(t, Contains(nested, NewAlloc(2)))
	assert.False(t, Contains(NewSym(1), base))
}

func TestEvalConstantValue_FoldsArithmetic(t *testing.T) {
	sum := NewBin(BinAdd, NewInt(2), NewInt(3))
	got, ok := EvalConstantValue(sum)
	require.True(t, ok)
	assert.Equal(t, int64(5), got)

	divByZero := NewBin(BinSDiv, NewInt(1), NewInt(0))
	_, ok = EvalConstantValue(divByZero)
	assert.False(t, ok)

	_, ok = EvalConstantValue(NewSym(0))
	assert.False(t, ok)
}

func TestValueJSON_RoundTrip(t *testing.T) {
	cases := []*Value{
		NewArg(2),
		NewInt(-7),
		NewNull(),
		NewGlob("g_counter"),
		NewGEP(NewAlloc(1), []*Value{NewInt(0), NewSym(2)}),
		NewBin(BinMul, NewInt(3), NewSym(1)),
		NewICmp(PredSGT, NewSym(1), NewInt(0)),
		NewCall(4, NewFunc("helper"), []*Value{NewArg(0), NewInt(1)}),
	}

	for _, want := range cases {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got Value
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Truef(t, Equal(want, &got), "round-trip mismatch for %s: got %s", Key(want), Key(&got))
	}
}

func TestValueJSON_NilMarshalsToNull(t *testing.T) {
	var v *Value
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
