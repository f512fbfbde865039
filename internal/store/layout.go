// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store implements bcminer's persisted on-disk layout :
// the slices/traces/features/occurrences directory tree rooted at a run's
// output directory, and the JSON files written under it.
package store

import (
	"fmt"
	"path/filepath"
)

// Layout computes every path a run writes to, rooted at Output.
// Output/Subfolder give the output-path/basename-of-bc-file pair, and
// every other method is a pure function of those two plus a
// target/package/slice/trace id.
type Layout struct {
	// Output is the run's output root directory.
	Output string

	// Subfolder, if non-empty, is joined under each per-target directory
	// (not the package-scoped variants — see withNameOfBcFile).
	Subfolder string
}

// withNameOfBcFile joins path with Subfolder if set, else returns path
// unchanged. Only some of the methods below call it: the "package" path
// variants deliberately skip it, an intentional asymmetry.
func (l Layout) withNameOfBcFile(path string) string {
	if l.Subfolder == "" {
		return path
	}
	return filepath.Join(path, l.Subfolder)
}

// SliceDir is Output/slices.
func (l Layout) SliceDir() string {
	return filepath.Join(l.Output, "slices")
}

// SliceTargetDir is SliceDir/<target>, with Subfolder joined in.
func (l Layout) SliceTargetDir(target string) string {
	return l.withNameOfBcFile(filepath.Join(l.SliceDir(), target))
}

// SliceTargetFilePath is SliceTargetDir/<sliceID>.json.
func (l Layout) SliceTargetFilePath(target string, sliceID int) string {
	return filepath.Join(l.SliceTargetDir(target), fmt.Sprintf("%d.json", sliceID))
}

// SliceTargetPackageDir is SliceDir/<target>/<package>. Unlike
// SliceTargetDir, it does not join Subfolder in: a package-scoped layout
// is already disambiguated by the package name.
func (l Layout) SliceTargetPackageDir(target, pkg string) string {
	return filepath.Join(l.SliceDir(), target, pkg)
}

// SliceTargetPackageFilePath is SliceTargetPackageDir/<sliceID>.json.
func (l Layout) SliceTargetPackageFilePath(target, pkg string, sliceID int) string {
	return filepath.Join(l.SliceTargetPackageDir(target, pkg), fmt.Sprintf("%d.json", sliceID))
}

// TraceDir is Output/traces.
func (l Layout) TraceDir() string {
	return filepath.Join(l.Output, "traces")
}

// TraceTargetDir is TraceDir/<target>, with Subfolder joined in.
func (l Layout) TraceTargetDir(target string) string {
	return l.withNameOfBcFile(filepath.Join(l.TraceDir(), target))
}

// TraceTargetSliceDir is TraceTargetDir/<sliceID>.
func (l Layout) TraceTargetSliceDir(target string, sliceID int) string {
	return filepath.Join(l.TraceTargetDir(target), fmt.Sprintf("%d", sliceID))
}

// TraceTargetSliceFilePath is TraceTargetSliceDir/<traceID>.json.
func (l Layout) TraceTargetSliceFilePath(target string, sliceID, traceID int) string {
	return filepath.Join(l.TraceTargetSliceDir(target, sliceID), fmt.Sprintf("%d.json", traceID))
}

// TraceTargetPackageSliceDir is TraceDir/<target>/<package>/<sliceID>,
// again skipping Subfolder like the other package-scoped variants.
func (l Layout) TraceTargetPackageSliceDir(target, pkg string, sliceID int) string {
	return filepath.Join(l.TraceDir(), target, pkg, fmt.Sprintf("%d", sliceID))
}

// TraceTargetPackageSliceFilePath is TraceTargetPackageSliceDir/<traceID>.json.
func (l Layout) TraceTargetPackageSliceFilePath(target, pkg string, sliceID, traceID int) string {
	return filepath.Join(l.TraceTargetPackageSliceDir(target, pkg, sliceID), fmt.Sprintf("%d.json", traceID))
}

// FeatureDir is Output/features.
func (l Layout) FeatureDir() string {
	return filepath.Join(l.Output, "features")
}

// FeatureTargetDir is FeatureDir/<target>, with Subfolder joined in.
func (l Layout) FeatureTargetDir(target string) string {
	return l.withNameOfBcFile(filepath.Join(l.FeatureDir(), target))
}

// FeatureTargetSliceDir is FeatureTargetDir/<sliceID>.
func (l Layout) FeatureTargetSliceDir(target string, sliceID int) string {
	return filepath.Join(l.FeatureTargetDir(target), fmt.Sprintf("%d", sliceID))
}

// FeatureTargetSliceFilePath is FeatureTargetSliceDir/<traceID>.fea.json —
// note the .fea.json suffix, distinct from the plain .json slice/trace
// files.
func (l Layout) FeatureTargetSliceFilePath(target string, sliceID, traceID int) string {
	return filepath.Join(l.FeatureTargetSliceDir(target, sliceID), fmt.Sprintf("%d.fea.json", traceID))
}

// FeatureTargetPackageSliceDir is FeatureDir/<target>/<package>/<sliceID>,
// skipping Subfolder like the other package-scoped variants.
func (l Layout) FeatureTargetPackageSliceDir(target, pkg string, sliceID int) string {
	return filepath.Join(l.FeatureDir(), target, pkg, fmt.Sprintf("%d", sliceID))
}

// FeatureTargetPackageSliceFilePath is
// FeatureTargetPackageSliceDir/<traceID>.fea.json.
func (l Layout) FeatureTargetPackageSliceFilePath(target, pkg string, sliceID, traceID int) string {
	return filepath.Join(l.FeatureTargetPackageSliceDir(target, pkg, sliceID), fmt.Sprintf("%d.fea.json", traceID))
}

// NumSlices counts the number of slice files already persisted for target,
// used by --feature-only to recover a prior run's per-target slice count
// without re-running the slicer.
func (l Layout) NumSlices(target string) int {
	entries, err := readDirNames(l.SliceTargetDir(target))
	if err != nil {
		return 0
	}
	return len(entries)
}
