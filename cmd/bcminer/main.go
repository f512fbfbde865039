// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command bcminer mines call-site occurrences of a target function from an
// LLVM bitcode module: it slices the call graph around each selected
// target, symbolically executes every slice, and extracts a feature
// record per trace.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aleutian-oss/bcminer/internal/bcerr"
	"github.com/aleutian-oss/bcminer/internal/blocktrace"
	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/config"
	"github.com/aleutian-oss/bcminer/internal/exec"
	"github.com/aleutian-oss/bcminer/internal/feature"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/progressui"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
	"github.com/aleutian-oss/bcminer/internal/store"
	"github.com/aleutian-oss/bcminer/internal/store/badgerstore"
	"github.com/aleutian-oss/bcminer/internal/target"
	"github.com/aleutian-oss/bcminer/internal/telemetry"
)

// flags mirrors config.Options field-for-field, bound directly to cobra
// flags so cmd.Flags().Changed can tell a user-supplied value apart from a
// default one when layering --config on top.
type flags struct {
	subfolder                string
	printCallGraph           bool
	useSerial                bool
	useBatch                 bool
	batchSize                int
	metadataFile             string
	targetNumSlicesMapFile   string
	noFeature                bool
	featureOnly              bool
	sliceDepth               int
	maxNumBlocks             int
	useRegexFilter           bool
	targetInclusionFilter    []string
	targetExclusionFilter    []string
	maxTimeout               int
	maxNodePerTrace          int
	maxExploredTracePerSlice int
	maxTracePerSlice         int
	stepInAnytime            bool
	roughMode                bool
	notRandomScheduling      bool
	workerCount              int
	configFile               string
	snapshotDir              string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "bcminer INPUT OUTPUT",
		Short:         "mine call-site occurrences of target functions from an LLVM bitcode module",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := buildOptions(cmd, f, args[0], args[1])
			return run(cmd.Context(), opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.subfolder, "subfolder", "", "joined under each per-target output directory")
	fs.BoolVar(&f.printCallGraph, "print-call-graph", false, "print the constructed call graph")
	fs.BoolVarP(&f.useSerial, "use-serial", "s", false, "disable parallel slice execution")
	fs.BoolVar(&f.useBatch, "use-batch", false, "group slices into batches before executing")
	fs.IntVar(&f.batchSize, "batch-size", config.DefaultBatchSize, "number of slices per batch")
	fs.StringVar(&f.metadataFile, "metadata-file", "", "path (relative to OUTPUT) execution metadata is dumped to")
	fs.StringVar(&f.targetNumSlicesMapFile, "target-num-slices-map-file", "", "path (relative to OUTPUT) the per-target slice-count map is dumped to")
	fs.BoolVar(&f.noFeature, "no-feature", false, "skip feature extraction")
	fs.BoolVar(&f.featureOnly, "feature-only", false, "skip slicing and execution, re-extracting features from a prior run's output")
	fs.IntVarP(&f.sliceDepth, "slice-depth", "d", config.DefaultSliceDepth, "call-graph hops the slicer walks outward from a target call")
	fs.IntVar(&f.maxNumBlocks, "max-num-blocks", config.DefaultMaxNumBlocks, "maximum number of blocks a slice may touch")
	fs.BoolVar(&f.useRegexFilter, "use-regex-filter", false, "interpret target-inclusion-filter's first element as a regular expression")
	fs.StringSliceVar(&f.targetInclusionFilter, "target-inclusion-filter", nil, "restrict mining to these simplified function names")
	fs.StringSliceVar(&f.targetExclusionFilter, "target-exclusion-filter", nil, "remove these simplified function names from the selection")
	fs.IntVar(&f.maxTimeout, "max-timeout", config.DefaultMaxTimeoutSeconds, "seconds a single Work may run before it is abandoned")
	fs.IntVar(&f.maxNodePerTrace, "max-node-per-trace", config.DefaultMaxNodePerTrace, "nodes a single trace may grow to before its Work is abandoned")
	fs.IntVar(&f.maxExploredTracePerSlice, "max-explored-trace-per-slice", config.DefaultMaxExploredTracePerSlice, "candidate traces explored per slice")
	fs.IntVar(&f.maxTracePerSlice, "max-trace-per-slice", config.DefaultMaxTracePerSlice, "traces kept per slice")
	fs.BoolVar(&f.stepInAnytime, "step-in-anytime", false, "step into calls even once slice-depth is exhausted")
	fs.BoolVar(&f.roughMode, "rough-mode", false, "explore without checking satisfiability of path constraints")
	fs.BoolVar(&f.notRandomScheduling, "not-random-scheduling", false, "disable the scheduler's random work ordering")
	fs.IntVar(&f.workerCount, "worker-count", config.DefaultWorkerCount, "number of parallel workers (0 = runtime.NumCPU())")
	fs.StringVar(&f.configFile, "config", "", "optional YAML file of overrides layered under unset flags")
	fs.StringVar(&f.snapshotDir, "snapshot-dir", "", "open a BadgerDB run cache under this directory (no run is saved to or loaded from it)")

	return cmd
}

// buildOptions assembles a config.Options from the parsed flags, then
// layers a --config YAML file's overrides onto whichever flags the user
// did not explicitly set.
func buildOptions(cmd *cobra.Command, f flags, input, output string) config.Options {
	opts := config.New(
		config.WithInput(input),
		config.WithOutput(output),
		config.WithSubfolder(f.subfolder),
		config.WithPrintCallGraph(f.printCallGraph),
		config.WithUseSerial(f.useSerial),
		config.WithUseBatch(f.useBatch),
		config.WithBatchSize(f.batchSize),
		config.WithMetadataFile(f.metadataFile),
		config.WithTargetNumSlicesMapFile(f.targetNumSlicesMapFile),
		config.WithNoFeature(f.noFeature),
		config.WithFeatureOnly(f.featureOnly),
		config.WithSliceDepth(f.sliceDepth),
		config.WithMaxNumBlocks(f.maxNumBlocks),
		config.WithUseRegexFilter(f.useRegexFilter),
		config.WithTargetInclusionFilter(f.targetInclusionFilter),
		config.WithTargetExclusionFilter(f.targetExclusionFilter),
		config.WithMaxTimeoutSeconds(f.maxTimeout),
		config.WithMaxNodePerTrace(f.maxNodePerTrace),
		config.WithMaxExploredTracePerSlice(f.maxExploredTracePerSlice),
		config.WithMaxTracePerSlice(f.maxTracePerSlice),
		config.WithStepInAnytime(f.stepInAnytime),
		config.WithRoughMode(f.roughMode),
		config.WithNotRandomScheduling(f.notRandomScheduling),
		config.WithWorkerCount(f.workerCount),
		config.WithConfigFile(f.configFile),
		config.WithSnapshotDir(f.snapshotDir),
	)

	overrides, err := config.LoadFile(opts.ConfigFile)
	if err == nil {
		unset := unsetOverrides(cmd, overrides)
		unset.Apply(&opts)
	}
	return opts
}

// unsetOverrides keeps only the fields of overrides whose corresponding
// flag the user did not explicitly pass, so a --config file can only ever
// fill in gaps, never clobber an explicit flag.
func unsetOverrides(cmd *cobra.Command, overrides config.FileOverrides) config.FileOverrides {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("slice-depth") {
		overrides.SliceDepth = nil
	}
	if changed("max-num-blocks") {
		overrides.MaxNumBlocks = nil
	}
	if changed("max-timeout") {
		overrides.MaxTimeoutSeconds = nil
	}
	if changed("max-node-per-trace") {
		overrides.MaxNodePerTrace = nil
	}
	if changed("max-explored-trace-per-slice") {
		overrides.MaxExploredTracePerSlice = nil
	}
	if changed("max-trace-per-slice") {
		overrides.MaxTracePerSlice = nil
	}
	if changed("batch-size") {
		overrides.BatchSize = nil
	}
	if changed("worker-count") {
		overrides.WorkerCount = nil
	}
	if changed("target-inclusion-filter") {
		overrides.TargetInclusionFilter = nil
	}
	if changed("target-exclusion-filter") {
		overrides.TargetExclusionFilter = nil
	}
	return overrides
}

// sliceWork is one (target, slice-index, slice) triple pending execution.
type sliceWork struct {
	target string
	index  int
	slice  slicer.Slice
}

func run(ctx context.Context, opts config.Options) error {
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w: %v", bcerr.IOFailure, err)
	}
	logFile, err := os.OpenFile(filepath.Join(opts.Output, "analyze_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating log file: %w: %v", bcerr.IOFailure, err)
	}
	defer logFile.Close()
	logger := telemetry.NewLogger(logFile)

	shutdownTracing := telemetry.InitTracing()
	defer shutdownTracing(context.Background())

	bar := progressui.New(os.Stderr)
	opts.ProgressCallback = bar.Reporter()
	defer bar.Finish()

	layout := store.Layout{Output: opts.Output, Subfolder: opts.Subfolder}

	if opts.SnapshotDir != "" {
		dbCfg := badgerstore.DefaultConfig()
		dbCfg.Path = opts.SnapshotDir
		db, err := badgerstore.OpenDB(dbCfg)
		if err != nil {
			logger.Warn("snapshot cache unavailable", slog.String("error", err.Error()))
		} else {
			defer db.Close()
		}
	}

	logger.Info("loading byte code file and creating context", slog.String("input", opts.Input))
	loadStart := time.Now()
	mod, err := irmodel.LoadModule(opts.Input)
	telemetry.RecordPhase("call_graph", loadStart, err)
	if err != nil {
		return err
	}

	logger.Info("generating call graph")
	cg := callgraph.Build(mod)
	if opts.PrintCallGraph {
		for _, e := range cg.Edges {
			fmt.Printf("%s -> %s\n", irmodel.SimplifiedName(e.Caller.Name()), irmodel.SimplifiedName(e.Callee.Name()))
		}
	}

	logger.Info("finding call edges")
	filter := &target.Filter{
		Exclude: opts.TargetExclusionFilter,
	}
	if opts.UseRegexFilter && len(opts.TargetInclusionFilter) > 0 {
		filter.Regex = opts.TargetInclusionFilter[0]
	} else {
		filter.Include = opts.TargetInclusionFilter
	}
	if err := filter.Compile(); err != nil {
		return err
	}
	targets := target.Select(mod, cg, filter)
	logger.Info("selected targets", slog.String("targets", target.SimplifiedNames(targets)))

	occurrences := make(map[string]badgerstore.TargetSliceCount, len(targets))

	if !opts.FeatureOnly {
		sliceStart := time.Now()
		var work []sliceWork
		for _, t := range targets {
			simp := irmodel.SimplifiedName(t.Func.Name())
			slices, err := slicer.SlicesOfCallEdges(ctx, cg, t.Edges, slicer.Options{
				SliceDepth:   opts.SliceDepth,
				UseSerial:    opts.UseSerial,
				MaxNumBlocks: opts.MaxNumBlocks,
			})
			if err != nil {
				return fmt.Errorf("slicing %s: %w", simp, err)
			}
			for i, s := range slices {
				if err := store.WriteJSON(layout.SliceTargetFilePath(simp, i), s); err != nil {
					return err
				}
				work = append(work, sliceWork{target: simp, index: i, slice: s})
			}
			occurrences[simp] = badgerstore.TargetSliceCount{
				HasReturnType: irmodel.HasReturnType(t.Func),
				SliceCount:    len(slices),
			}
			telemetry.RecordSlices(simp, len(slices))
		}
		telemetry.RecordPhase("slicing", sliceStart, nil)
		logger.Info("generated slices", slog.Int("count", len(work)))

		if opts.TargetNumSlicesMapFile != "" {
			if err := store.WriteJSON(filepath.Join(opts.Output, opts.TargetNumSlicesMapFile), occurrences); err != nil {
				return err
			}
		}

		globalMeta, err := executeBatches(ctx, opts, layout, work, bar.Reporter())
		if err != nil {
			return err
		}
		logger.Info("finished execution",
			slog.Int("proper", globalMeta.Proper),
			slog.Int("duplicate", globalMeta.Duplicate),
			slog.Int("timeout", globalMeta.Timeout))
		if opts.MetadataFile != "" {
			if err := store.WriteJSON(filepath.Join(opts.Output, opts.MetadataFile), globalMeta); err != nil {
				return err
			}
		}
	} else {
		logger.Info("feature-only: loading target slice counts from a prior run")
		for _, t := range targets {
			simp := irmodel.SimplifiedName(t.Func.Name())
			occurrences[simp] = badgerstore.TargetSliceCount{
				HasReturnType: irmodel.HasReturnType(t.Func),
				SliceCount:    layout.NumSlices(simp),
			}
		}
		if opts.TargetNumSlicesMapFile != "" {
			if err := store.WriteJSON(filepath.Join(opts.Output, opts.TargetNumSlicesMapFile), occurrences); err != nil {
				return err
			}
		}
		if !opts.NoFeature {
			if err := extractFeaturesFromDisk(ctx, opts, layout, cg, targets, occurrences, logger); err != nil {
				return err
			}
		}
	}

	logger.Info("analyze run complete")
	return nil
}

// executeBatches divides work into groups of opts.BatchSize (or a single
// batch when UseBatch is false) and, within each batch, runs every slice's
// symbolic execution concurrently across opts.WorkerCount goroutines
// (serially when UseSerial is set), persisting every trace and, unless
// NoFeature, its extracted features.
func executeBatches(ctx context.Context, opts config.Options, layout store.Layout, work []sliceWork, progress config.ProgressFunc) (exec.MetaData, error) {
	batchSize := len(work)
	if opts.UseBatch && opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	var (
		mu     sync.Mutex
		global exec.MetaData
		done   int
	)
	report := func(meta exec.MetaData) {
		mu.Lock()
		defer mu.Unlock()
		global = global.Add(meta)
		done++
		if progress != nil {
			progress(config.Progress{Phase: config.PhaseExecuting, SlicesTotal: len(work), SlicesDone: done})
		}
	}

	for start := 0; start < len(work); start += batchSize {
		end := start + batchSize
		if end > len(work) {
			end = len(work)
		}
		batch := work[start:end]

		if opts.UseSerial {
			for _, w := range batch {
				report(executeSlice(opts, layout, w))
			}
			if err := ctx.Err(); err != nil {
				return global, err
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.WorkerCount)
		for _, w := range batch {
			w := w
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				report(executeSlice(opts, layout, w))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return global, err
		}
	}
	return global, nil
}

// executeSlice runs the symbolic executor over one slice's candidate block
// traces, persisting every finished trace (and, unless NoFeature, its
// feature record) as it is produced.
func executeSlice(opts config.Options, layout store.Layout, w sliceWork) exec.MetaData {
	hasReturnType := irmodel.HasReturnType(w.slice.Callee)
	aggregator := feature.NewAggregator(hasReturnType)

	blockTraces := blocktrace.FromSlice(w.slice, opts.MaxTracePerSlice, opts.NotRandomScheduling)

	traceID := 0
	persist := func(tr semantics.Trace) {
		id := traceID
		traceID++
		telemetry.RecordTrace("proper")
		_ = store.WriteJSON(layout.TraceTargetSliceFilePath(w.target, w.index, id), tr)
		if !opts.NoFeature {
			record := aggregator.ExtractFeatures(w.index, &w.slice, &tr)
			_ = store.WriteJSON(layout.FeatureTargetSliceFilePath(w.target, w.index, id), record)
		}
	}

	env := exec.NewEnvironment(w.slice, blockTraces, exec.Options{
		SliceDepth:               opts.SliceDepth,
		MaxNodePerTrace:          opts.MaxNodePerTrace,
		MaxExploredTracePerSlice: opts.MaxExploredTracePerSlice,
		MaxTracePerSlice:         opts.MaxTracePerSlice,
		MaxTimeoutSeconds:        opts.MaxTimeoutSeconds,
		MaxTracesNum:             opts.MaxTracePerSlice,
		StepInAnytime:            opts.StepInAnytime,
		NotRandom:                opts.NotRandomScheduling,
	}, persist)
	env.RoughMode = opts.RoughMode

	return exec.Run(env)
}

// extractFeaturesFromDisk implements --feature-only: slices are
// regenerated from the module (deterministic and far cheaper than
// re-deserializing a lighter on-disk slice shape), but traces are loaded
// from a prior run's persisted JSON instead of being re-executed.
func extractFeaturesFromDisk(ctx context.Context, opts config.Options, layout store.Layout, cg *callgraph.CallGraph, targets []target.Target, occurrences map[string]badgerstore.TargetSliceCount, logger *slog.Logger) error {
	for _, t := range targets {
		simp := irmodel.SimplifiedName(t.Func.Name())
		count, ok := occurrences[simp]
		if !ok || count.SliceCount == 0 {
			continue
		}
		slices, err := slicer.SlicesOfCallEdges(ctx, cg, t.Edges, slicer.Options{
			SliceDepth:   opts.SliceDepth,
			UseSerial:    opts.UseSerial,
			MaxNumBlocks: opts.MaxNumBlocks,
		})
		if err != nil {
			return fmt.Errorf("regenerating slices for %s: %w", simp, err)
		}

		aggregator := feature.NewAggregator(count.HasReturnType)
		for i, s := range slices {
			traceIDs, err := traceIDsOnDisk(layout.TraceTargetSliceDir(simp, i))
			if err != nil {
				continue
			}
			for _, id := range traceIDs {
				data, err := os.ReadFile(layout.TraceTargetSliceFilePath(simp, i, id))
				if err != nil {
					continue
				}
				var tr semantics.Trace
				if err := json.Unmarshal(data, &tr); err != nil {
					logger.Warn("skipping malformed trace", slog.String("target", simp), slog.Int("slice", i), slog.Int("trace", id))
					continue
				}
				record := aggregator.ExtractFeatures(i, &s, &tr)
				if err := store.WriteJSON(layout.FeatureTargetSliceFilePath(simp, i, id), record); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// traceIDsOnDisk lists the integer trace IDs already persisted under dir,
// parsed from each "<id>.json" file's stem, in ascending order.
func traceIDsOnDisk(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == e.Name() {
			continue
		}
		id, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
