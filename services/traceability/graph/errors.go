// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the traceability knowledge graph and its builder.
//
// Nodes are artifacts addressed by dense integer index, with a map from
// artifact id to index. Edges are typed by model.RelationshipKind and kept
// on per-node Outgoing/Incoming lists. Every declared relationship is
// stored together with its inverse, so a graph can be walked in both
// directions without consulting the artifacts.
//
// # Ownership Model
//
// The graph stores pointers to artifacts but does NOT own them:
//   - Artifacts MUST NOT be mutated after being added via AddNode()
//   - The graph does NOT copy artifacts
//
// # Thread Safety
//
// KnowledgeGraph is NOT safe for concurrent use during building. It is
// designed for:
//   - Single-writer access during build phase (AddNode, AddEdge calls)
//   - Read-only access after Freeze() is called
//
// After Freeze(), the graph can be safely read from multiple goroutines.
//
// # Lifecycle
//
// A typical graph lifecycle:
//  1. Build with Build(ctx, artifacts) or NewBuilder(...).Build(ctx, artifacts)
//  2. The builder freezes the graph before returning it
//  3. Query with Get(), Parents(), Traverse(), etc.
//
// A new artifact set requires a new graph.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNodeNotFound is returned when an edge references a non-existent node.
	// The builder treats it as "do not materialize this edge".
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNode is returned when a nil artifact or one with an empty
	// id is added.
	ErrInvalidNode = errors.New("invalid node")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")
)
