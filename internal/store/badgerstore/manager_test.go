// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := OpenDB(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewManager(db, nil)
}

func TestManager_SaveAndLoadRoundTrip(t *testing.T) {
	m := openTestManager(t)
	data := RunData{
		TargetSlices: map[string]TargetSliceCount{"foo": {HasReturnType: true, SliceCount: 3}},
		Occurrences:  map[string]int{"int foo(int)": 2},
	}

	saved, err := m.Save("/mod.ll", "hash1", "opts1", "run-label", data)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.RunID)
	assert.Equal(t, 3, saved.SliceCount)
	assert.Equal(t, 1, saved.TargetCount)

	meta, got, err := m.Load(saved.RunID)
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, meta.RunID)
	assert.Equal(t, data, got)
}

func TestManager_LoadLatestReturnsMostRecentSaveForModule(t *testing.T) {
	m := openTestManager(t)
	first := RunData{TargetSlices: map[string]TargetSliceCount{"a": {SliceCount: 1}}}
	second := RunData{TargetSlices: map[string]TargetSliceCount{"a": {SliceCount: 2}}}

	_, err := m.Save("/mod.ll", "hash1", "opts1", "first", first)
	require.NoError(t, err)
	secondMeta, err := m.Save("/mod.ll", "hash1", "opts1", "second", second)
	require.NoError(t, err)

	meta, got, err := m.LoadLatest("hash1")
	require.NoError(t, err)
	assert.Equal(t, secondMeta.RunID, meta.RunID)
	assert.Equal(t, second, got)
}

func TestManager_ListOrdersByRunID(t *testing.T) {
	m := openTestManager(t)
	for i := 0; i < 3; i++ {
		_, err := m.Save("/mod.ll", "hash1", "opts1", "l", RunData{})
		require.NoError(t, err)
	}

	metas, err := m.List()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	for i := 1; i < len(metas); i++ {
		assert.LessOrEqual(t, metas[i-1].RunID, metas[i].RunID)
	}
}

func TestManager_DeleteRemovesRun(t *testing.T) {
	m := openTestManager(t)
	saved, err := m.Save("/mod.ll", "hash1", "opts1", "l", RunData{})
	require.NoError(t, err)

	require.NoError(t, m.Delete(saved.RunID))

	_, _, err = m.Load(saved.RunID)
	assert.Error(t, err)
}

func TestModuleHash_DeterministicForSameBytes(t *testing.T) {
	a := ModuleHash([]byte("same content"))
	b := ModuleHash([]byte("same content"))
	c := ModuleHash([]byte("different"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
