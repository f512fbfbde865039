// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_EmptyPathIsZeroValue(t *testing.T) {
	f, err := LoadFile("")
	require.NoError(t, err)
	assert.Nil(t, f.SliceDepth)
}

func TestLoadFile_MissingFileIsNotAnError(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Nil(t, f.SliceDepth)
}

func TestLoadFile_MalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slice_depth: [this is not an int"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_ParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bcminer.yaml")
	contents := "slice_depth: 3\nworker_count: 8\ntarget_inclusion_filter:\n  - foo\n  - bar\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, f.SliceDepth)
	assert.Equal(t, 3, *f.SliceDepth)
	require.NotNil(t, f.WorkerCount)
	assert.Equal(t, 8, *f.WorkerCount)
	require.NotNil(t, f.TargetInclusionFilter)
	assert.Equal(t, []string{"foo", "bar"}, *f.TargetInclusionFilter)
	assert.Nil(t, f.MaxNumBlocks)
}

func TestFileOverrides_ApplyOnlyTouchesNonNilFields(t *testing.T) {
	o := Default()
	o.SliceDepth = 1
	o.WorkerCount = 2

	depth := 9
	f := FileOverrides{SliceDepth: &depth}
	f.Apply(&o)

	assert.Equal(t, 9, o.SliceDepth)
	assert.Equal(t, 2, o.WorkerCount)
}
