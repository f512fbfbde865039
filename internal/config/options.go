// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config collects every tunable bcminer's analyze command exposes
// into one functional-options struct, plus an optional YAML
// override file layered underneath the CLI flags.
package config

import "runtime"

// DefaultBatchSize is the number of slices grouped into one batch when
// --use-batch is set.
const DefaultBatchSize = 50

// DefaultSliceDepth is the number of call-graph hops the slicer walks
// outward from a target call before stopping.
const DefaultSliceDepth = 1

// DefaultMaxNumBlocks caps the number of blocks a slice may touch before
// it is dropped.
const DefaultMaxNumBlocks = 1000

// DefaultMaxTimeoutSeconds bounds how long a single Work may run before
// it is abandoned.
const DefaultMaxTimeoutSeconds = 5

// DefaultMaxNodePerTrace caps the number of nodes a single trace may grow
// to before its Work is abandoned.
const DefaultMaxNodePerTrace = 5000

// DefaultMaxExploredTracePerSlice caps the number of candidate traces the
// executor explores per slice, including ones later discarded.
const DefaultMaxExploredTracePerSlice = 1000

// DefaultMaxTracePerSlice caps the number of traces kept per slice.
const DefaultMaxTracePerSlice = 50

// DefaultWorkerCount is the default number of parallel workers. Zero means
// "use runtime.NumCPU()", resolved at Options construction time.
const DefaultWorkerCount = 0

// Options configures a full analyze run: target selection, slicing,
// symbolic execution and scheduling, plus the ambient concerns (telemetry,
// persisted layout) layered on top by this port.
type Options struct {
	// Input is the path to the parsed LLVM IR module to analyze.
	Input string

	// Output is the root directory slices/traces/features/occurrences are
	// persisted under.
	Output string

	// Subfolder, if set, is joined under each per-target output directory
	// --subfolder), letting multiple bitcode files from one
	// project share an output tree without collisions.
	Subfolder string

	// PrintCallGraph dumps the constructed call graph to stdout.
	PrintCallGraph bool

	// UseSerial disables parallel slice execution.
	UseSerial bool

	// UseBatch groups slices into batches of BatchSize before executing,
	// bounding peak memory for large modules.
	UseBatch bool

	// BatchSize is the number of slices per batch when UseBatch is set.
	BatchSize int

	// MetadataFile, if set, is the path (relative to Output) execution
	// metadata is dumped to after the run.
	MetadataFile string

	// TargetNumSlicesMapFile, if set, is the path (relative to Output) the
	// per-target (has-return-type, slice-count) map is dumped to.
	TargetNumSlicesMapFile string

	// NoFeature skips feature extraction entirely.
	NoFeature bool

	// FeatureOnly skips slicing and symbolic execution, loading slice
	// counts from a prior run's on-disk layout instead.
	FeatureOnly bool

	// SliceDepth is the number of call-graph hops outward from a target
	// call the slicer walks before stopping.
	SliceDepth int

	// MaxNumBlocks caps the number of blocks a slice may touch.
	MaxNumBlocks int

	// UseRegexFilter makes the first element of TargetInclusionFilter a
	// regular expression; its other elements are then ignored.
	// TargetExclusionFilter is matched as literal names either way.
	UseRegexFilter bool

	// TargetInclusionFilter, if non-empty, restricts mining to these
	// simplified function names (or the single regex, if UseRegexFilter).
	TargetInclusionFilter []string

	// TargetExclusionFilter removes these simplified function names from
	// whatever TargetInclusionFilter already selected.
	TargetExclusionFilter []string

	// MaxTimeoutSeconds bounds how long a single Work may run.
	MaxTimeoutSeconds int

	// MaxNodePerTrace caps the number of nodes a single trace may grow to.
	MaxNodePerTrace int

	// MaxExploredTracePerSlice caps the number of candidate traces explored
	// per slice.
	MaxExploredTracePerSlice int

	// MaxTracePerSlice caps the number of traces kept per slice.
	MaxTracePerSlice int

	// StepInAnytime steps into calls even once SliceDepth is exhausted.
	StepInAnytime bool

	// RoughMode explores without checking satisfiability of path
	// constraints.
	RoughMode bool

	// NotRandomScheduling disables the scheduler's random work ordering,
	// for deterministic reproduction of a run.
	NotRandomScheduling bool

	// WorkerCount is the number of parallel workers. Zero resolves to
	// runtime.NumCPU() in New.
	WorkerCount int

	// ConfigFile, if set, is an optional YAML file (see LoadFile) whose
	// values are layered under whatever the CLI flags already set.
	ConfigFile string

	// SnapshotDir, if set, is the directory the BadgerDB run cache
	// (internal/store/badgerstore) is opened under. The analyze command only
	// opens it: no run is saved to it or loaded from it.
	SnapshotDir string

	// ProgressCallback is invoked periodically with run progress. May be
	// nil.
	ProgressCallback ProgressFunc
}

// Default returns an Options populated with the same defaults the original
// analyzer's CLI flags default to.
func Default() Options {
	return Options{
		BatchSize:                DefaultBatchSize,
		SliceDepth:               DefaultSliceDepth,
		MaxNumBlocks:             DefaultMaxNumBlocks,
		MaxTimeoutSeconds:        DefaultMaxTimeoutSeconds,
		MaxNodePerTrace:          DefaultMaxNodePerTrace,
		MaxExploredTracePerSlice: DefaultMaxExploredTracePerSlice,
		MaxTracePerSlice:         DefaultMaxTracePerSlice,
		WorkerCount:              DefaultWorkerCount,
	}
}

// Option is a functional option for configuring Options, following the
// same pattern as the rest of this port's ambient stack.
type Option func(*Options)

func WithInput(path string) Option { return func(o *Options) { o.Input = path } }

func WithOutput(path string) Option { return func(o *Options) { o.Output = path } }

func WithSubfolder(name string) Option { return func(o *Options) { o.Subfolder = name } }

func WithPrintCallGraph(v bool) Option { return func(o *Options) { o.PrintCallGraph = v } }

func WithUseSerial(v bool) Option { return func(o *Options) { o.UseSerial = v } }

func WithUseBatch(v bool) Option { return func(o *Options) { o.UseBatch = v } }

func WithBatchSize(n int) Option { return func(o *Options) { o.BatchSize = n } }

func WithMetadataFile(name string) Option { return func(o *Options) { o.MetadataFile = name } }

func WithTargetNumSlicesMapFile(name string) Option {
	return func(o *Options) { o.TargetNumSlicesMapFile = name }
}

func WithNoFeature(v bool) Option { return func(o *Options) { o.NoFeature = v } }

func WithFeatureOnly(v bool) Option { return func(o *Options) { o.FeatureOnly = v } }

func WithSliceDepth(n int) Option { return func(o *Options) { o.SliceDepth = n } }

func WithMaxNumBlocks(n int) Option { return func(o *Options) { o.MaxNumBlocks = n } }

func WithUseRegexFilter(v bool) Option { return func(o *Options) { o.UseRegexFilter = v } }

func WithTargetInclusionFilter(names []string) Option {
	return func(o *Options) { o.TargetInclusionFilter = names }
}

func WithTargetExclusionFilter(names []string) Option {
	return func(o *Options) { o.TargetExclusionFilter = names }
}

func WithMaxTimeoutSeconds(n int) Option { return func(o *Options) { o.MaxTimeoutSeconds = n } }

func WithMaxNodePerTrace(n int) Option { return func(o *Options) { o.MaxNodePerTrace = n } }

func WithMaxExploredTracePerSlice(n int) Option {
	return func(o *Options) { o.MaxExploredTracePerSlice = n }
}

func WithMaxTracePerSlice(n int) Option { return func(o *Options) { o.MaxTracePerSlice = n } }

func WithStepInAnytime(v bool) Option { return func(o *Options) { o.StepInAnytime = v } }

func WithRoughMode(v bool) Option { return func(o *Options) { o.RoughMode = v } }

func WithNotRandomScheduling(v bool) Option {
	return func(o *Options) { o.NotRandomScheduling = v }
}

func WithWorkerCount(n int) Option { return func(o *Options) { o.WorkerCount = n } }

func WithConfigFile(path string) Option { return func(o *Options) { o.ConfigFile = path } }

func WithSnapshotDir(path string) Option { return func(o *Options) { o.SnapshotDir = path } }

// ProgressFunc is a callback invoked with run progress, mirroring the
// ambient progress-reporting style used elsewhere in this stack.
type ProgressFunc func(Progress)

// Progress describes how far an analyze run has gotten.
type Progress struct {
	Phase        Phase
	TargetsTotal int
	TargetsDone  int
	SlicesTotal  int
	SlicesDone   int
}

// Phase names one stage of an analyze run, for progress reporting.
type Phase int

const (
	PhaseCallGraph Phase = iota
	PhaseSlicing
	PhaseExecuting
	PhaseFeatures
)

func (p Phase) String() string {
	switch p {
	case PhaseCallGraph:
		return "call-graph"
	case PhaseSlicing:
		return "slicing"
	case PhaseExecuting:
		return "executing"
	case PhaseFeatures:
		return "features"
	default:
		return "unknown"
	}
}

func WithProgressCallback(fn ProgressFunc) Option {
	return func(o *Options) { o.ProgressCallback = fn }
}

// New builds an Options from Default plus every opt applied in order,
// re-clamping WorkerCount to runtime.NumCPU() if it ended up non-positive.
func New(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		opt(&o)
	}
	if o.WorkerCount <= 0 {
		o.WorkerCount = runtime.NumCPU()
	}
	return o
}
