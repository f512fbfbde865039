// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileOverrides is the subset of Options that can be set from an optional
// bcminer.yaml file, layered under whatever the CLI flags already set
// (an explicitly passed flag wins over the file; the file fills in only
// options whose flags were left at their defaults).
type FileOverrides struct {
	SliceDepth               *int      `yaml:"slice_depth"`
	MaxNumBlocks             *int      `yaml:"max_num_blocks"`
	MaxTimeoutSeconds        *int      `yaml:"max_timeout_seconds"`
	MaxNodePerTrace          *int      `yaml:"max_node_per_trace"`
	MaxExploredTracePerSlice *int      `yaml:"max_explored_trace_per_slice"`
	MaxTracePerSlice         *int      `yaml:"max_trace_per_slice"`
	BatchSize                *int      `yaml:"batch_size"`
	WorkerCount              *int      `yaml:"worker_count"`
	TargetInclusionFilter    *[]string `yaml:"target_inclusion_filter"`
	TargetExclusionFilter    *[]string `yaml:"target_exclusion_filter"`
}

// LoadFile reads path as a FileOverrides document. A missing file is not an
// error — it returns a zero-value FileOverrides — only a malformed one is,
// treating "not configured" and "not present" identically.
func LoadFile(path string) (FileOverrides, error) {
	if path == "" {
		return FileOverrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileOverrides{}, nil
		}
		return FileOverrides{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var f FileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return FileOverrides{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Apply copies every non-nil field of f onto o, overwriting whatever o
// already holds. Callers pass only the options whose flags were not
// explicitly set by the user.
func (f FileOverrides) Apply(o *Options) {
	if f.SliceDepth != nil {
		o.SliceDepth = *f.SliceDepth
	}
	if f.MaxNumBlocks != nil {
		o.MaxNumBlocks = *f.MaxNumBlocks
	}
	if f.MaxTimeoutSeconds != nil {
		o.MaxTimeoutSeconds = *f.MaxTimeoutSeconds
	}
	if f.MaxNodePerTrace != nil {
		o.MaxNodePerTrace = *f.MaxNodePerTrace
	}
	if f.MaxExploredTracePerSlice != nil {
		o.MaxExploredTracePerSlice = *f.MaxExploredTracePerSlice
	}
	if f.MaxTracePerSlice != nil {
		o.MaxTracePerSlice = *f.MaxTracePerSlice
	}
	if f.BatchSize != nil {
		o.BatchSize = *f.BatchSize
	}
	if f.WorkerCount != nil {
		o.WorkerCount = *f.WorkerCount
	}
	if f.TargetInclusionFilter != nil {
		o.TargetInclusionFilter = *f.TargetInclusionFilter
	}
	if f.TargetExclusionFilter != nil {
		o.TargetExclusionFilter = *f.TargetExclusionFilter
	}
}
