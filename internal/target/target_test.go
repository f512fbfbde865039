// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_EmptyMatchesEverything(t *testing.T) {
	f := &Filter{}
	require.NoError(t, f.Compile())
	assert.True(t, f.Matches("anything"))
}

func TestFilter_IncludeRestrictsSelection(t *testing.T) {
	f := &Filter{Include: []string{"foo", "bar"}}
	require.NoError(t, f.Compile())
	assert.True(t, f.Matches("foo"))
	assert.False(t, f.Matches("baz"))
}

func TestFilter_ExcludeWinsOverInclude(t *testing.T) {
	f := &Filter{Include: []string{"foo"}, Exclude: []string{"foo"}}
	require.NoError(t, f.Compile())
	assert.False(t, f.Matches("foo"))
}

func TestFilter_ExcludeWinsEvenWhenIncludeEmpty(t *testing.T) {
	f := &Filter{Exclude: []string{"foo"}}
	require.NoError(t, f.Compile())
	assert.False(t, f.Matches("foo"))
	assert.True(t, f.Matches("bar"))
}

func TestFilter_RegexSelection(t *testing.T) {
	f := &Filter{Regex: "^handle_.*"}
	require.NoError(t, f.Compile())
	assert.True(t, f.Matches("handle_request"))
	assert.False(t, f.Matches("other"))
}

func TestFilter_InvalidRegexFailsToCompile(t *testing.T) {
	f := &Filter{Regex: "(unclosed"}
	err := f.Compile()
	require.Error(t, err)
}

func TestSimplifiedNames_EmptyForNoTargets(t *testing.T) {
	got := SimplifiedNames(nil)
	assert.Equal(t, "", got)
}
