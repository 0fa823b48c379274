// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff compares two knowledge graph snapshots.
//
// A diff reports artifacts added, removed and modified between an old and a
// new graph, plus the relationship triples present in only one of them.
// Inverse edges are part of each graph's relationship set, so one declared
// relationship that changes shows up as two triples.
//
// Ordering is deterministic: added items and relationships follow the new
// graph's insertion order, removed and modified ones the old graph's.
package diff

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

var tracer = otel.Tracer("reqgraph.diff")

// Compared field names.
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldSpecification = "specification"
	FieldFilePath      = "file_path"
	FieldUpstream      = "upstream"
	FieldDownstream    = "downstream"
)

// ItemDiff summarizes an added or removed artifact.
type ItemDiff struct {
	ID       model.ArtifactID `json:"id"`
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	FilePath string           `json:"file_path"`
}

// FieldChange is one differing field of a modified artifact.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ItemModification is an artifact present in both graphs with at least one
// differing field.
type ItemModification struct {
	ID      model.ArtifactID `json:"id"`
	Name    string           `json:"name"`
	Type    string           `json:"type"`
	Changes []FieldChange    `json:"changes"`
}

// RelationshipDiff is an edge triple present in only one graph.
type RelationshipDiff struct {
	From model.ArtifactID       `json:"from_id"`
	To   model.ArtifactID       `json:"to_id"`
	Kind model.RelationshipKind `json:"relationship_type"`
}

// Stats counts each category of a GraphDiff.
type Stats struct {
	ItemsAdded           int `json:"items_added"`
	ItemsRemoved         int `json:"items_removed"`
	ItemsModified        int `json:"items_modified"`
	RelationshipsAdded   int `json:"relationships_added"`
	RelationshipsRemoved int `json:"relationships_removed"`
}

// Total returns the number of changes of any kind.
func (s Stats) Total() int {
	return s.ItemsAdded + s.ItemsRemoved + s.ItemsModified + s.RelationshipsAdded + s.RelationshipsRemoved
}

// GraphDiff is the structural difference between two graphs.
type GraphDiff struct {
	AddedItems           []ItemDiff         `json:"added_items"`
	RemovedItems         []ItemDiff         `json:"removed_items"`
	ModifiedItems        []ItemModification `json:"modified_items"`
	AddedRelationships   []RelationshipDiff `json:"added_relationships"`
	RemovedRelationships []RelationshipDiff `json:"removed_relationships"`
	Stats                Stats              `json:"stats"`
}

// IsEmpty reports whether the graphs have no differences.
func (d *GraphDiff) IsEmpty() bool {
	return d.Stats.Total() == 0
}

// Compute diffs oldGraph against newGraph.
//
// Description:
//
//	Items are matched by id. A matched item is modified when any of name,
//	description, specification, file path, or the comma-joined upstream or
//	downstream target lists differ. Relationships are compared as
//	(from, to, kind) sets over every edge, inverses included.
//
// Inputs:
//
//	ctx - Used for tracing only.
//	oldGraph, newGraph - Built graphs. Neither is modified.
//
// Outputs:
//
//	*GraphDiff - Never nil. Slices are empty, not nil, when nothing changed.
//
// Complexity: O(V + E) over both graphs.
func Compute(ctx context.Context, oldGraph, newGraph *graph.KnowledgeGraph) *GraphDiff {
	_, span := tracer.Start(ctx, "diff.Compute", trace.WithAttributes(
		attribute.Int("diff.old_items", oldGraph.Len()),
		attribute.Int("diff.new_items", newGraph.Len()),
	))
	defer span.End()

	d := &GraphDiff{
		AddedItems:           []ItemDiff{},
		RemovedItems:         []ItemDiff{},
		ModifiedItems:        []ItemModification{},
		AddedRelationships:   []RelationshipDiff{},
		RemovedRelationships: []RelationshipDiff{},
	}

	for id, node := range newGraph.Nodes() {
		if !oldGraph.Contains(id) {
			d.AddedItems = append(d.AddedItems, newItemDiff(node.Artifact))
		}
	}
	for id, node := range oldGraph.Nodes() {
		current, ok := newGraph.Get(id)
		if !ok {
			d.RemovedItems = append(d.RemovedItems, newItemDiff(node.Artifact))
			continue
		}
		if changes := ItemChanges(node.Artifact, current); len(changes) > 0 {
			d.ModifiedItems = append(d.ModifiedItems, ItemModification{
				ID:      id,
				Name:    current.Name,
				Type:    current.Type.DisplayName(),
				Changes: changes,
			})
		}
	}

	d.AddedRelationships = relationshipDifference(newGraph, oldGraph)
	d.RemovedRelationships = relationshipDifference(oldGraph, newGraph)

	d.Stats = Stats{
		ItemsAdded:           len(d.AddedItems),
		ItemsRemoved:         len(d.RemovedItems),
		ItemsModified:        len(d.ModifiedItems),
		RelationshipsAdded:   len(d.AddedRelationships),
		RelationshipsRemoved: len(d.RemovedRelationships),
	}
	span.SetAttributes(attribute.Int("diff.changes", d.Stats.Total()))
	return d
}

// ItemChanges returns the differing fields of two versions of an artifact,
// in a fixed field order.
func ItemChanges(oldItem, newItem *model.Artifact) []FieldChange {
	var changes []FieldChange
	compare := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}

	compare(FieldName, oldItem.Name, newItem.Name)
	compare(FieldDescription, oldItem.Description, newItem.Description)
	compare(FieldSpecification, oldItem.Attributes.Specification, newItem.Attributes.Specification)
	compare(FieldFilePath, oldItem.Source.FilePath, newItem.Source.FilePath)
	compare(FieldUpstream, joinTargets(oldItem.Upstream()), joinTargets(newItem.Upstream()))
	compare(FieldDownstream, joinTargets(oldItem.Downstream()), joinTargets(newItem.Downstream()))
	return changes
}

func joinTargets(rels []model.Relationship) string {
	ids := make([]string, len(rels))
	for i, r := range rels {
		ids[i] = r.Target.String()
	}
	return strings.Join(ids, ", ")
}

func newItemDiff(a *model.Artifact) ItemDiff {
	return ItemDiff{
		ID:       a.ID,
		Name:     a.Name,
		Type:     a.Type.DisplayName(),
		FilePath: a.Source.FilePath,
	}
}

// relationshipDifference returns the triples of a that are not in b.
func relationshipDifference(a, b *graph.KnowledgeGraph) []RelationshipDiff {
	present := make(map[graph.RelationshipTriple]struct{}, b.EdgeCount())
	for _, t := range b.Relationships() {
		present[t] = struct{}{}
	}
	out := []RelationshipDiff{}
	for _, t := range a.Relationships() {
		if _, ok := present[t]; !ok {
			out = append(out, RelationshipDiff{From: t.From, To: t.To, Kind: t.Kind})
		}
	}
	return out
}
