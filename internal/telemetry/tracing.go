// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "bcminer"

// InitTracing installs a process-wide TracerProvider so every
// telemetry.StartSpan call in this package (and anywhere else in bcminer)
// produces real spans instead of the otel no-op default. No exporter is
// registered: bcminer has no telemetry backend dependency in its module
// graph, so spans are recorded and discarded by the SDK rather than shipped
// anywhere. Callers that want to inspect spans (tests, future backends)
// can register their own processor on the returned provider.
//
// Shutdown must be called before process exit to flush any registered
// span processors.
func InitTracing() (shutdown func(context.Context) error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// StartSpan starts a span named "bcminer.<name>" with the given attributes,
// mirroring the tracer.Start(ctx, name, trace.WithAttributes(...)) pattern
// used throughout this stack's own instrumented call sites.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return otel.Tracer(tracerName).Start(ctx, tracerName+"."+name, oteltrace.WithAttributes(attrs...))
}
