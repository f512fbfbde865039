// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package feature implements the four call-site feature extractors of
// (argument precondition, argument postcondition, return
// value, causality) plus the Aggregator that combines their output into
// one per-trace feature record "<n>.fea.json".
package feature

import (
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
)

// Extractor is the common shape every feature extractor implements.
type Extractor interface {
	// Name is the key this extractor's output is filed under in the
	// aggregated feature record.
	Name() string

	// Filter reports whether this extractor applies to a target function
	// with the given return-type presence. The return-value extractor is
	// the only one that is gated (it is meaningless without a return
	// value); the other three always apply.
	Filter(hasReturnType bool) bool

	// Extract computes this extractor's contribution for one (slice,
	// trace) pair.
	Extract(sliceID int, slice *slicer.Slice, trace *semantics.Trace) any
}

// All returns every feature extractor, in fixed registration order.
func All() []Extractor {
	return []Extractor{
		ArgumentPrecondition{},
		ArgumentPostcondition{},
		Causality{},
		ReturnValue{},
	}
}

// ForTarget returns the subset of All() applicable to a target function
// with the given return-type presence.
func ForTarget(hasReturnType bool) []Extractor {
	var out []Extractor
	for _, e := range All() {
		if e.Filter(hasReturnType) {
			out = append(out, e)
		}
	}
	return out
}

// Aggregator drives every enabled extractor over one (slice, trace) pair
// and assembles the single {loc, <name>: ...} record describes.
type Aggregator struct {
	extractors []Extractor
}

// NewAggregator builds an Aggregator enabled for a target function with
// the given return-type presence.
func NewAggregator(hasReturnType bool) *Aggregator {
	return &Aggregator{extractors: ForTarget(hasReturnType)}
}

// ExtractFeatures runs every enabled extractor and returns the combined
// record, keyed by each extractor's Name(), plus the target instruction's
// debug location under "loc".
func (a *Aggregator) ExtractFeatures(sliceID int, slice *slicer.Slice, trace *semantics.Trace) map[string]any {
	m := map[string]any{"loc": trace.TargetNode().Loc}
	for _, e := range a.extractors {
		m[e.Name()] = e.Extract(sliceID, slice, trace)
	}
	return m
}
