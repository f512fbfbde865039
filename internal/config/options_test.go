// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_MatchesDocumentedConstants(t *testing.T) {
	d := Default()
	assert.Equal(t, DefaultBatchSize, d.BatchSize)
	assert.Equal(t, DefaultSliceDepth, d.SliceDepth)
	assert.Equal(t, DefaultMaxNumBlocks, d.MaxNumBlocks)
	assert.Equal(t, DefaultMaxTimeoutSeconds, d.MaxTimeoutSeconds)
	assert.Equal(t, DefaultMaxNodePerTrace, d.MaxNodePerTrace)
	assert.Equal(t, DefaultMaxExploredTracePerSlice, d.MaxExploredTracePerSlice)
	assert.Equal(t, DefaultMaxTracePerSlice, d.MaxTracePerSlice)
}

func TestNew_AppliesOptionsInOrder(t *testing.T) {
	o := New(
		WithInput("a.ll"),
		WithOutput("out"),
		WithSliceDepth(3),
		WithSliceDepth(5),
	)
	assert.Equal(t, "a.ll", o.Input)
	assert.Equal(t, "out", o.Output)
	assert.Equal(t, 5, o.SliceDepth)
}

func TestNew_ClampsNonPositiveWorkerCountToNumCPU(t *testing.T) {
	o := New(WithWorkerCount(0))
	assert.Equal(t, runtime.NumCPU(), o.WorkerCount)

	o = New(WithWorkerCount(-3))
	assert.Equal(t, runtime.NumCPU(), o.WorkerCount)

	o = New(WithWorkerCount(4))
	assert.Equal(t, 4, o.WorkerCount)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "call-graph", PhaseCallGraph.String())
	assert.Equal(t, "slicing", PhaseSlicing.String())
	assert.Equal(t, "executing", PhaseExecuting.String())
	assert.Equal(t, "features", PhaseFeatures.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestWithProgressCallback_IsInvokable(t *testing.T) {
	var got Progress
	o := New(WithProgressCallback(func(p Progress) { got = p }))
	o.ProgressCallback(Progress{Phase: PhaseSlicing, SlicesTotal: 2})
	assert.Equal(t, PhaseSlicing, got.Phase)
	assert.Equal(t, 2, got.SlicesTotal)
}
