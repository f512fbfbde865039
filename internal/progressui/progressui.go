// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package progressui renders an analyze run's progress to the terminal, a
// thin driver over schollz/progressbar/v3 that reacts to the same
// config.Progress callback the rest of the analyze pipeline reports
// through.
package progressui

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/aleutian-oss/bcminer/internal/config"
)

// Bar wraps one progressbar.ProgressBar, re-targeted to a new phase's total
// each time the reported phase changes.
type Bar struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	phase config.Phase
	has   bool
}

// New returns a Bar that writes to out.
func New(out io.Writer) *Bar {
	return &Bar{out: out}
}

// Reporter returns a config.ProgressFunc that drives b.
func (b *Bar) Reporter() config.ProgressFunc {
	return b.Report
}

// Report updates the bar for one progress event, starting a fresh bar
// whenever the phase changes so each phase gets its own 0..total range.
func (b *Bar) Report(p config.Progress) {
	total, done := phaseTotals(p)
	if !b.has || b.phase != p.Phase {
		b.phase = p.Phase
		b.has = true
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(b.out),
			progressbar.OptionSetDescription(fmt.Sprintf("[%s]", p.Phase)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	b.bar.Set(done)
}

// Finish clears the active bar, if any.
func (b *Bar) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// phaseTotals picks the (total, done) pair relevant to a progress event's
// phase: target counts during call-graph/slicing, slice counts once
// execution starts.
func phaseTotals(p config.Progress) (total, done int) {
	switch p.Phase {
	case config.PhaseCallGraph, config.PhaseSlicing:
		return p.TargetsTotal, p.TargetsDone
	default:
		return p.SlicesTotal, p.SlicesDone
	}
}
