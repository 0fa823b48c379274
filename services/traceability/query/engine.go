// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// Engine is a read-only facade over one knowledge graph.
//
// Thread Safety:
//
//	Safe for concurrent use. The graph must be frozen.
type Engine struct {
	graph *graph.KnowledgeGraph
}

// NewEngine creates an Engine over g.
func NewEngine(g *graph.KnowledgeGraph) *Engine {
	return &Engine{graph: g}
}

// Graph returns the underlying graph.
func (e *Engine) Graph() *graph.KnowledgeGraph {
	return e.graph
}

// Lookup resolves id. See Lookup.
func (e *Engine) Lookup(id string) LookupResult {
	return Lookup(e.graph, id)
}

// Get returns the artifact for id.
func (e *Engine) Get(id model.ArtifactID) (*model.Artifact, bool) {
	return e.graph.Get(id)
}

// TraceUpstream walks from id toward the root.
func (e *Engine) TraceUpstream(ctx context.Context, id model.ArtifactID, opts ...graph.TraversalOption) (*graph.TraversalResult, bool) {
	return e.graph.TraverseUpstream(ctx, id, opts...)
}

// TraceDownstream walks from id away from the root.
func (e *Engine) TraceDownstream(ctx context.Context, id model.ArtifactID, opts ...graph.TraversalOption) (*graph.TraversalResult, bool) {
	return e.graph.TraverseDownstream(ctx, id, opts...)
}

// Parents returns the direct upstream artifacts of id.
func (e *Engine) Parents(id model.ArtifactID) []*model.Artifact {
	return e.graph.Parents(id)
}

// Children returns the direct downstream artifacts of id.
func (e *Engine) Children(id model.ArtifactID) []*model.Artifact {
	return e.graph.Children(id)
}

// ArtifactsByType returns every artifact of type t in insertion order.
func (e *Engine) ArtifactsByType(t model.ArtifactType) []*model.Artifact {
	return e.graph.ArtifactsByType(t)
}

// CheckParentExists returns a *MissingParentError if t needs a parent type
// and the graph holds no artifact of that type. Root types always pass.
func CheckParentExists(g *graph.KnowledgeGraph, t model.ArtifactType) error {
	parent, ok := t.RequiredParentType()
	if !ok || g == nil {
		return nil
	}
	if len(g.ArtifactsByType(parent)) > 0 {
		return nil
	}
	return &MissingParentError{Type: t, ParentType: parent}
}

// CheckParentExists checks t against the engine's graph.
func (e *Engine) CheckParentExists(t model.ArtifactType) error {
	return CheckParentExists(e.graph, t)
}

// SuggestNextID proposes the next free id for t as PREFIX-NNN, one past the
// highest numeric suffix among existing ids of that prefix. A nil graph
// yields PREFIX-001.
func SuggestNextID(g *graph.KnowledgeGraph, t model.ArtifactType) model.ArtifactID {
	prefix := t.Prefix() + "-"
	highest := 0
	if g != nil {
		for id := range g.Nodes() {
			suffix, ok := strings.CutPrefix(id.String(), prefix)
			if !ok {
				continue
			}
			if n, err := strconv.Atoi(suffix); err == nil && n > highest {
				highest = n
			}
		}
	}
	return model.ArtifactID(fmt.Sprintf("%s%03d", prefix, highest+1))
}
