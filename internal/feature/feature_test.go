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

func TestAll_ReturnsFourExtractorsInOrder(t *testing.T) {
	all := All()
	require.Len(t, all, 4)
	assert.Equal(t, "arg.pre", all[0].Name())
	assert.Equal(t, "arg.post", all[1].Name())
	assert.Equal(t, "causality", all[2].Name())
	assert.Equal(t, "retval", all[3].Name())
}

func TestForTarget_FiltersReturnValueByHasReturnType(t *testing.T) {
	withRet := ForTarget(true)
	assert.Len(t, withRet, 4)

	withoutRet := ForTarget(false)
	assert.Len(t, withoutRet, 3)
	for _, e := range withoutRet {
		assert.NotEqual(t, "retval", e.Name())
	}
}

func TestAggregator_ExtractFeaturesIncludesLocAndEveryExtractorKey(t *testing.T) {
	arg := value.NewArg(0)
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "a.c:10", Sem: semantics.NewCall(value.NewFunc("target"), []*value.Value{arg}), Result: value.NewInt(1)},
		},
		Target: 0,
	}

	agg := NewAggregator(true)
	out := agg.ExtractFeatures(5, nil, trace)

	assert.Equal(t, "a.c:10", out["loc"])
	assert.Contains(t, out, "arg.pre")
	assert.Contains(t, out, "arg.post")
	assert.Contains(t, out, "causality")
	assert.Contains(t, out, "retval")
}

func TestAggregator_OmitsRetvalWhenCalleeHasNoReturnType(t *testing.T) {
	trace := &semantics.Trace{
		Instrs: []semantics.TraceNode{
			{Loc: "a.c:10", Sem: semantics.NewCall(value.NewFunc("target"), nil), Result: nil},
		},
		Target: 0,
	}

	agg := NewAggregator(false)
	out := agg.ExtractFeatures(0, nil, trace)

	assert.NotContains(t, out, "retval")
}
