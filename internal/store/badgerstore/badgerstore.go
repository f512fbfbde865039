// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badgerstore is a BadgerDB-backed cache of completed analyze runs
// (per-target slice counts and occurrence counts), saved and loaded through
// Manager. The analyze command opens the store when --snapshot-dir is set
// but neither saves runs to it nor loads them from it; --feature-only takes
// its slice counts from the slice files under the output directory.
package badgerstore

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Config configures OpenDB.
type Config struct {
	// Path is the directory BadgerDB stores its files under.
	Path string

	// InMemory runs BadgerDB without touching disk, for tests and
	// short-lived tooling.
	InMemory bool
}

// DefaultConfig returns sensible defaults: an on-disk store under
// ".bcminer/cache" relative to the current working directory.
func DefaultConfig() Config {
	return Config{Path: ".bcminer/cache"}
}

// OpenDB opens (creating if needed) the BadgerDB store at cfg.Path, with
// BadgerDB's own logging silenced in favor of this package's callers
// reporting errors through their own slog logger.
func OpenDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store at %s: %w", cfg.Path, err)
	}
	return db, nil
}

const (
	keyPrefixRun      = "bcminer:run:"
	keyPrefixRunIndex = "bcminer:run:index:"
	keySuffixData     = ":data"
	keySuffixMeta     = ":meta"
	keySuffixLatest   = ":latest"
)

// RunMetadata describes one cached analyze run, mirroring the shape of a
// cached code-graph snapshot's metadata in this stack's snapshot store.
type RunMetadata struct {
	RunID          string    `json:"run_id"`
	ModulePath     string    `json:"module_path"`
	ModuleHash     string    `json:"module_hash"`
	OptionsHash    string    `json:"options_hash"`
	Label          string    `json:"label"`
	CreatedAtMilli int64     `json:"created_at_milli"`
	TargetCount    int       `json:"target_count"`
	SliceCount     int       `json:"slice_count"`
	SchemaVersion  int       `json:"schema_version"`
	CompressedSize int       `json:"compressed_size"`
	ContentHash    string    `json:"content_hash"`
	created        time.Time // not persisted; Save leaves it unset
}

// RunData is the cached payload: the per-target (has-return-type,
// slice-count) map analyze binary dumps to
// --target-num-slices-map-file, plus the occurrence counts.
type RunData struct {
	TargetSlices map[string]TargetSliceCount `json:"target_slices"`
	Occurrences  map[string]int              `json:"occurrences"`
}

// TargetSliceCount is one target function's (has-return-type, slice-count)
// pair, as tracked per occurrence in the occurrences map.
type TargetSliceCount struct {
	HasReturnType bool `json:"has_return_type"`
	SliceCount    int  `json:"slice_count"`
}

const schemaVersion = 1
