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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// MaxNodes is the maximum number of nodes (passed to KnowledgeGraph).
	MaxNodes int

	// MaxEdges is the maximum number of edges (passed to KnowledgeGraph).
	MaxEdges int
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithBuilderMaxNodes sets the maximum number of nodes.
func WithBuilderMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithBuilderMaxEdges sets the maximum number of edges.
func WithBuilderMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// BuildStats describes a single build.
type BuildStats struct {
	// NodesCreated is the number of distinct artifacts in the graph.
	NodesCreated int

	// NodesReplaced counts artifacts that overwrote an earlier one with the
	// same id.
	NodesReplaced int

	// EdgesCreated counts materialized edges, inverses included.
	EdgesCreated int

	// EdgesSkipped counts edges dropped because an endpoint was absent.
	EdgesSkipped int

	// DurationMilli is the build time in milliseconds.
	DurationMilli int64
}

// BuildResult is the outcome of Builder.Build.
type BuildResult struct {
	// Graph is the frozen knowledge graph.
	Graph *KnowledgeGraph

	// Stats describes the build.
	Stats BuildStats
}

// Builder turns a flat artifact list into a frozen KnowledgeGraph.
//
// The builder is stateless and can be reused across multiple builds.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build() call operates on its
//	own graph.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// Build constructs a graph from artifacts.
//
// Description:
//
//	Two passes over the input:
//
//	 1. NODES: every artifact becomes a node. A repeated id replaces the
//	    earlier artifact in place (last write wins).
//	 2. EDGES: for every node, each declared relationship from -kind-> to is
//	    added, followed unconditionally by to -inverse(kind)-> from. Peer
//	    attributes (depends_on, supersedes) are added the same way. An edge
//	    whose endpoint is missing is skipped; broken references are reported
//	    by validation, not here.
//
//	The result is frozen before it is returned. Input order does not change
//	which edges exist.
//
// Inputs:
//
//	ctx - Context for tracing.
//	artifacts - Parsed artifacts. Nil entries are skipped.
//
// Outputs:
//
//	*BuildResult - The frozen graph and build statistics.
//	error - Non-nil only if a configured capacity limit is exceeded.
func (b *Builder) Build(ctx context.Context, artifacts []*model.Artifact) (*BuildResult, error) {
	ctx, span := startBuildSpan(ctx, len(artifacts))
	defer span.End()

	start := time.Now()
	g := NewKnowledgeGraph(
		WithMaxNodes(b.options.MaxNodes),
		WithMaxEdges(b.options.MaxEdges),
	)
	result := &BuildResult{Graph: g}

	for _, a := range artifacts {
		if a == nil {
			continue
		}
		existed := g.Contains(a.ID)
		if _, err := g.AddNode(a); err != nil {
			recordBuildMetrics(ctx, time.Since(start), g.Len(), g.EdgeCount(), false)
			err = fmt.Errorf("adding artifact %s: %w", a.ID, err)
			telemetry.RecordError(span, err, attribute.String("artifact.id", a.ID.String()))
			return nil, err
		}
		if existed {
			result.Stats.NodesReplaced++
			slog.Debug("artifact id repeated, keeping last",
				slog.String("id", a.ID.String()),
				slog.String("file", a.Source.FilePath),
			)
		}
	}

	for _, node := range g.nodes {
		a := node.Artifact
		for _, rel := range a.AllReferences() {
			if err := b.addPair(g, a.ID, rel, &result.Stats); err != nil {
				recordBuildMetrics(ctx, time.Since(start), g.Len(), g.EdgeCount(), false)
				telemetry.RecordError(span, err, attribute.String("artifact.id", a.ID.String()))
				return nil, err
			}
		}
	}

	g.Freeze()
	duration := time.Since(start)
	result.Stats.NodesCreated = g.Len()
	result.Stats.EdgesCreated = g.EdgeCount()
	result.Stats.DurationMilli = duration.Milliseconds()

	setBuildSpanResult(span, result.Stats)
	recordBuildMetrics(ctx, duration, g.Len(), g.EdgeCount(), true)

	slog.Debug("knowledge graph built",
		slog.Int("nodes", result.Stats.NodesCreated),
		slog.Int("edges", result.Stats.EdgesCreated),
		slog.Int("edges_skipped", result.Stats.EdgesSkipped),
		slog.Int64("duration_ms", result.Stats.DurationMilli),
	)

	return result, nil
}

// addPair adds from -kind-> to and its inverse. Missing endpoints are not
// an error.
func (b *Builder) addPair(g *KnowledgeGraph, from model.ArtifactID, rel model.Relationship, stats *BuildStats) error {
	for _, e := range [2]Edge{
		{FromID: from, ToID: rel.Target, Kind: rel.Kind},
		{FromID: rel.Target, ToID: from, Kind: rel.Kind.Inverse()},
	} {
		err := g.AddEdge(e.FromID, e.ToID, e.Kind)
		switch {
		case err == nil:
		case errors.Is(err, ErrNodeNotFound):
			stats.EdgesSkipped++
		default:
			return fmt.Errorf("adding edge %s: %w", e.String(), err)
		}
	}
	return nil
}

// Build is a convenience wrapper around NewBuilder(opts...).Build that
// returns only the graph.
func Build(ctx context.Context, artifacts []*model.Artifact, opts ...BuilderOption) (*KnowledgeGraph, error) {
	result, err := NewBuilder(opts...).Build(ctx, artifacts)
	if err != nil {
		return nil, err
	}
	return result.Graph, nil
}
