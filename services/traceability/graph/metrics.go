// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("reqgraph.graph")
	meter  = otel.Meter("reqgraph.graph")
)

// Metrics for graph building and traversal.
var (
	buildLatency    metric.Float64Histogram
	buildTotal      metric.Int64Counter
	nodesCreated    metric.Int64Histogram
	edgesCreated    metric.Int64Histogram
	traverseLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"reqgraph_build_duration_seconds",
			metric.WithDescription("Duration of knowledge graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"reqgraph_build_total",
			metric.WithDescription("Total number of knowledge graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesCreated, err = meter.Int64Histogram(
			"reqgraph_build_nodes",
			metric.WithDescription("Number of artifacts per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesCreated, err = meter.Int64Histogram(
			"reqgraph_build_edges",
			metric.WithDescription("Number of edges per build, inverses included"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		traverseLatency, err = meter.Float64Histogram(
			"reqgraph_traverse_duration_seconds",
			metric.WithDescription("Duration of traversal queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a build operation.
func recordBuildMetrics(ctx context.Context, duration time.Duration, nodeCount, edgeCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))

	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if success {
		nodesCreated.Record(ctx, int64(nodeCount))
		edgesCreated.Record(ctx, int64(edgeCount))
	}
}

// recordTraverseMetrics records metrics for a traversal.
func recordTraverseMetrics(ctx context.Context, direction Direction, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}

	traverseLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("direction", direction.String())),
	)
}

// startBuildSpan creates a span for a build operation.
func startBuildSpan(ctx context.Context, artifactCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(
			attribute.Int("graph.artifact_count", artifactCount),
		),
	)
}

// setBuildSpanResult sets the result attributes on a build span.
func setBuildSpanResult(span trace.Span, stats BuildStats) {
	span.SetAttributes(
		attribute.Int("graph.node_count", stats.NodesCreated),
		attribute.Int("graph.edge_count", stats.EdgesCreated),
		attribute.Int("graph.edges_skipped", stats.EdgesSkipped),
		attribute.Int("graph.nodes_replaced", stats.NodesReplaced),
	)
}

// startTraverseSpan creates a span for a traversal.
func startTraverseSpan(ctx context.Context, direction Direction, origin string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "KnowledgeGraph.Traverse",
		trace.WithAttributes(
			attribute.String("graph.direction", direction.String()),
			attribute.String("graph.origin", origin),
		),
	)
}

// setTraverseSpanResult sets the result attributes on a traversal span.
func setTraverseSpanResult(span trace.Span, itemCount, maxDepth int) {
	span.SetAttributes(
		attribute.Int("graph.result_count", itemCount),
		attribute.Int("graph.max_depth", maxDepth),
	)
}
