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
	"cmp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

const (
	// MaxSuggestions is the number of suggestions a lookup miss carries.
	MaxSuggestions = 5

	// minSuggestionDistance is the distance cutoff floor for short queries.
	minSuggestionDistance = 3
)

// LookupResult is the outcome of Lookup. Exactly one of Artifact or
// Suggestions is meaningful, selected by Found.
type LookupResult struct {
	// Found is true when the id matched exactly.
	Found bool

	// Artifact is the matched artifact when Found.
	Artifact *model.Artifact

	// Suggestions are similar ids when not Found, closest first. May be
	// empty.
	Suggestions []model.ArtifactID
}

// Lookup resolves id exactly, or ranks similar ids on a miss.
//
// Description:
//
//	On a miss every graph id is scored by the Levenshtein distance between
//	the lowercased query and the lowercased id. Ids within
//	max(len(query), 3) are kept and the closest MaxSuggestions returned.
//	Ties keep graph insertion order.
//
// Complexity: O(1) on a hit, O(V * len(id)^2) on a miss.
func Lookup(g *graph.KnowledgeGraph, id string) LookupResult {
	if a, ok := g.Get(model.ArtifactID(id)); ok {
		return LookupResult{Found: true, Artifact: a}
	}
	return LookupResult{Suggestions: SimilarIDs(g, id, MaxSuggestions)}
}

// LookupOrSuggest returns the artifact for id or a *NotFoundError carrying
// up to three suggestions.
func LookupOrSuggest(g *graph.KnowledgeGraph, id string) (*model.Artifact, error) {
	if a, ok := g.Get(model.ArtifactID(id)); ok {
		return a, nil
	}
	return nil, &NotFoundError{ID: id, Suggestions: SimilarIDs(g, id, 3)}
}

type scoredID struct {
	id       model.ArtifactID
	distance int
}

// SimilarIDs returns up to limit graph ids close to query, closest first.
func SimilarIDs(g *graph.KnowledgeGraph, query string, limit int) []model.ArtifactID {
	if limit <= 0 {
		return nil
	}
	q := strings.ToLower(query)
	cutoff := max(len(query), minSuggestionDistance)

	scored := make([]scoredID, 0, g.Len())
	for id := range g.Nodes() {
		d := levenshtein.ComputeDistance(q, strings.ToLower(id.String()))
		if d <= cutoff {
			scored = append(scored, scoredID{id: id, distance: d})
		}
	}
	slices.SortStableFunc(scored, func(a, b scoredID) int {
		return cmp.Compare(a.distance, b.distance)
	})

	n := min(limit, len(scored))
	out := make([]model.ArtifactID, n)
	for i := range n {
		out[i] = scored[i].id
	}
	return out
}
