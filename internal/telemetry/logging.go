// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry wires up bcminer's structured logging, tracing and
// metrics: log/slog for the analyze_log.txt trail, an OpenTelemetry tracer
// provider with a StartSpan helper, and Prometheus counters and histograms
// for analyze phases, traces and slices. The analyze command installs the
// tracer provider but opens no spans, and records phase metrics only for
// module loading ("call_graph") and slicing.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// NewLogger builds a slog.Logger that writes JSON records to w (typically
// an analyze_log.txt file handle) as well as a human-readable stream to
// stderr, the same "structured attrs, one line per event" shape the rest
// of this stack's slog.Info/Warn/Error(msg, slog.String(...), ...) calls
// use.
func NewLogger(w io.Writer) *slog.Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	if w != nil {
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(&fanoutHandler{handlers: handlers})
}

// fanoutHandler dispatches every record to each wrapped handler in turn, so
// a run's log trail lands both on stderr for a human operator and in
// analyze_log.txt for later inspection.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
