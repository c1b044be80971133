// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profile

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for analysis operations.
var (
	tracer = otel.Tracer("renderscope.profile")
	meter  = otel.Meter("renderscope.profile")
)

// Metrics for analysis operations.
var (
	analyzeLatency  metric.Float64Histogram
	analyzeTotal    metric.Int64Counter
	commitsReplayed metric.Int64Histogram
	warningsFound   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analyzeLatency, err = meter.Float64Histogram(
			"profile_analyze_duration_seconds",
			metric.WithDescription("Duration of export analysis operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analyzeTotal, err = meter.Int64Counter(
			"profile_analyze_total",
			metric.WithDescription("Total number of export analysis operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commitsReplayed, err = meter.Int64Histogram(
			"profile_commits_replayed",
			metric.WithDescription("Render passes replayed per analysis"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		warningsFound, err = meter.Int64Counter(
			"profile_warnings_total",
			metric.WithDescription("Recoverable anomalies found during analysis"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startAnalyzeSpan creates a span for an export analysis.
func startAnalyzeSpan(ctx context.Context, label string, roots int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Service.Analyze",
		trace.WithAttributes(
			attribute.String("profile.label", label),
			attribute.Int("profile.roots", roots),
		),
	)
}

// recordAnalyze records the metrics for one finished analysis.
func recordAnalyze(ctx context.Context, seconds float64, commits, warnings int, success bool) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	analyzeTotal.Add(ctx, 1, attrs)
	analyzeLatency.Record(ctx, seconds, attrs)
	commitsReplayed.Record(ctx, int64(commits))
	if warnings > 0 {
		warningsFound.Add(ctx, int64(warnings))
	}
}
