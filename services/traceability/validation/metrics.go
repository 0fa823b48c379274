// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("reqgraph.validation")
	meter  = otel.Meter("reqgraph.validation")
)

var (
	validateLatency metric.Float64Histogram
	issuesTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		validateLatency, err = meter.Float64Histogram(
			"reqgraph_validate_duration_seconds",
			metric.WithDescription("Duration of validation runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		issuesTotal, err = meter.Int64Counter(
			"reqgraph_validation_issues_total",
			metric.WithDescription("Validation issues reported, by severity"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordValidateMetrics(ctx context.Context, phase string, r *Report) {
	if err := initMetrics(); err != nil {
		return
	}
	validateLatency.Record(ctx, r.Duration.Seconds(),
		metric.WithAttributes(attribute.String("phase", phase)))
	issuesTotal.Add(ctx, int64(r.ErrorCount()),
		metric.WithAttributes(attribute.String("severity", SeverityError.String())))
	issuesTotal.Add(ctx, int64(r.WarningCount()),
		metric.WithAttributes(attribute.String("severity", SeverityWarning.String())))
}

func startValidateSpan(ctx context.Context, name string, itemCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attribute.Int("validation.item_count", itemCount)))
}

func setValidateSpanResult(span trace.Span, r *Report) {
	span.SetAttributes(
		attribute.String("validation.run_id", r.RunID),
		attribute.Int("validation.errors", r.ErrorCount()),
		attribute.Int("validation.warnings", r.WarningCount()),
	)
}
