// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bcminer",
		Subsystem: "analyze",
		Name:      "phase_duration_seconds",
		Help:      "Wall-clock time spent in one analyze phase (call_graph, slicing, executing, features).",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"phase", "status"})

	phaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bcminer",
		Subsystem: "analyze",
		Name:      "phase_total",
		Help:      "Number of analyze phases completed, by outcome.",
	}, []string{"phase", "status"})

	tracesExplored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bcminer",
		Subsystem: "exec",
		Name:      "traces_total",
		Help:      "Number of traces produced by the symbolic executor, by finish state.",
	}, []string{"finish_state"})

	slicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bcminer",
		Subsystem: "slicer",
		Name:      "slices_total",
		Help:      "Number of slices generated, by target function.",
	}, []string{"target"})
)

// classifyPhaseError maps a phase error to a status label: "ok" for nil,
// "error" for anything else.
func classifyPhaseError(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// RecordPhase records one analyze phase's duration and outcome.
func RecordPhase(phase string, start time.Time, err error) {
	status := classifyPhaseError(err)
	phaseDuration.WithLabelValues(phase, status).Observe(time.Since(start).Seconds())
	phaseTotal.WithLabelValues(phase, status).Inc()
}

// RecordTrace records one trace's finish state.
func RecordTrace(finishState string) {
	tracesExplored.WithLabelValues(finishState).Inc()
}

// RecordSlices records how many slices a target function produced.
func RecordSlices(target string, count int) {
	slicesTotal.WithLabelValues(target).Add(float64(count))
}
