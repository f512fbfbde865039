// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Manager saves and loads RunData/RunMetadata pairs to a BadgerDB store,
// gzip-compressing the payload and recording a content hash so Load can
// detect corruption, the same scheme this stack's code-graph snapshot
// cache uses.
type Manager struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewManager wraps an already-open BadgerDB handle. logger may be nil, in
// which case slog.Default() is used.
func NewManager(db *badger.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger}
}

// Save compresses and stores data under a fresh run ID, keyed for lookup
// by ModuleHash, and records it as that module's latest run. It returns
// the metadata actually persisted (RunID, ContentHash and CompressedSize
// filled in).
func (m *Manager) Save(modulePath, moduleHash, optionsHash, label string, data RunData) (RunMetadata, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return RunMetadata{}, fmt.Errorf("marshaling run data: %w", err)
	}

	var compressed bytes.Buffer
	gz, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return RunMetadata{}, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gz.Write(payload); err != nil {
		return RunMetadata{}, fmt.Errorf("compressing run data: %w", err)
	}
	if err := gz.Close(); err != nil {
		return RunMetadata{}, fmt.Errorf("closing gzip writer: %w", err)
	}

	meta := RunMetadata{
		RunID:          uuid.New().String(),
		ModulePath:     modulePath,
		ModuleHash:     moduleHash,
		OptionsHash:    optionsHash,
		Label:          label,
		TargetCount:    len(data.TargetSlices),
		SchemaVersion:  schemaVersion,
		CompressedSize: compressed.Len(),
		ContentHash:    hashBytes(payload),
	}
	for _, t := range data.TargetSlices {
		meta.SliceCount += t.SliceCount
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return RunMetadata{}, fmt.Errorf("marshaling run metadata: %w", err)
	}

	dataKey := keyPrefixRun + meta.RunID + keySuffixData
	metaKey := keyPrefixRun + meta.RunID + keySuffixMeta
	latestKey := keyPrefixRunIndex + moduleHash + keySuffixLatest

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKey), compressed.Bytes()); err != nil {
			return err
		}
		if err := txn.Set([]byte(metaKey), metaBytes); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey), []byte(meta.RunID))
	})
	if err != nil {
		return RunMetadata{}, fmt.Errorf("persisting run %s: %w", meta.RunID, err)
	}

	m.logger.Info("cached analyze run",
		slog.String("run_id", meta.RunID),
		slog.String("module_hash", moduleHash),
		slog.Int("target_count", meta.TargetCount),
		slog.Int("slice_count", meta.SliceCount))

	return meta, nil
}

// Load fetches one run by ID.
func (m *Manager) Load(runID string) (RunMetadata, RunData, error) {
	return m.loadByKeys(keyPrefixRun+runID+keySuffixMeta, keyPrefixRun+runID+keySuffixData)
}

// LoadLatest fetches the most recently saved run for moduleHash.
func (m *Manager) LoadLatest(moduleHash string) (RunMetadata, RunData, error) {
	runID, err := m.latestRunID(moduleHash)
	if err != nil {
		return RunMetadata{}, RunData{}, err
	}
	return m.Load(runID)
}

func (m *Manager) latestRunID(moduleHash string) (string, error) {
	var runID string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefixRunIndex + moduleHash + keySuffixLatest))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			runID = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("looking up latest run for module %s: %w", moduleHash, err)
	}
	return runID, nil
}

func (m *Manager) loadByKeys(metaKey, dataKey string) (RunMetadata, RunData, error) {
	var meta RunMetadata
	var compressed []byte

	err := m.db.View(func(txn *badger.Txn) error {
		metaItem, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		if err := metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		dataItem, err := txn.Get([]byte(dataKey))
		if err != nil {
			return err
		}
		return dataItem.Value(func(val []byte) error {
			compressed = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return RunMetadata{}, RunData{}, fmt.Errorf("loading run: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return RunMetadata{}, RunData{}, fmt.Errorf("decompressing run data: %w", err)
	}
	defer gz.Close()
	payload, err := io.ReadAll(gz)
	if err != nil {
		return RunMetadata{}, RunData{}, fmt.Errorf("reading decompressed run data: %w", err)
	}
	if hashBytes(payload) != meta.ContentHash {
		return RunMetadata{}, RunData{}, fmt.Errorf("content hash mismatch for run %s", meta.RunID)
	}

	var data RunData
	if err := json.Unmarshal(payload, &data); err != nil {
		return RunMetadata{}, RunData{}, fmt.Errorf("unmarshaling run data: %w", err)
	}
	return meta, data, nil
}

// List returns every run's metadata, ordered by RunID for deterministic
// output.
func (m *Manager) List() ([]RunMetadata, error) {
	var metas []RunMetadata
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixRun)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			key := string(it.Item().Key())
			if len(key) < len(keySuffixMeta) || key[len(key)-len(keySuffixMeta):] != keySuffixMeta {
				continue
			}
			var meta RunMetadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].RunID < metas[j].RunID })
	return metas, nil
}

// Delete removes a run's data and metadata keys. It does not clear any
// "latest" pointer that referenced it.
func (m *Manager) Delete(runID string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(keyPrefixRun + runID + keySuffixData)); err != nil {
			return err
		}
		return txn.Delete([]byte(keyPrefixRun + runID + keySuffixMeta))
	})
}

// ModuleHash returns the content hash bcminer uses to key cached runs for
// a given module path's on-disk bytes.
func ModuleHash(data []byte) string {
	return hashBytes(data)
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
