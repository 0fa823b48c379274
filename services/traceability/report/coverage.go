// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report derives coverage and traceability-matrix reports from a
// built knowledge graph.
package report

import (
	"fmt"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// TypeCoverage is the coverage of one artifact type.
type TypeCoverage struct {
	Type            model.ArtifactType `json:"type"`
	TypeName        string             `json:"type_name"`
	Total           int                `json:"total"`
	Complete        int                `json:"complete"`
	Incomplete      int                `json:"incomplete"`
	CoveragePercent float64            `json:"coverage_percent"`
}

// IncompleteItem is an artifact that is not fully traced, with the reason.
type IncompleteItem struct {
	ID     model.ArtifactID `json:"id"`
	Name   string           `json:"name"`
	Type   string           `json:"type"`
	Reason string           `json:"reason"`
}

// CoverageReport summarizes how much of the graph is traced.
type CoverageReport struct {
	OverallCoverage float64          `json:"overall_coverage"`
	ByType          []TypeCoverage   `json:"by_type"`
	IncompleteItems []IncompleteItem `json:"incomplete_items"`
	TotalItems      int              `json:"total_items"`
	CompleteItems   int              `json:"complete_items"`
}

// Coverage computes a coverage report.
//
// A root artifact is complete when something traces to it. Any other
// artifact is complete when it has at least one resolved parent. Types with
// no artifacts are left out. An empty graph has 100% coverage.
func Coverage(g *graph.KnowledgeGraph) *CoverageReport {
	r := &CoverageReport{
		ByType:          []TypeCoverage{},
		IncompleteItems: []IncompleteItem{},
	}

	for _, t := range model.AllArtifactTypes() {
		artifacts := g.ArtifactsByType(t)
		if len(artifacts) == 0 {
			continue
		}
		tc := TypeCoverage{Type: t, TypeName: t.DisplayName(), Total: len(artifacts)}
		for _, a := range artifacts {
			if reason, ok := incompleteReason(g, a); ok {
				tc.Incomplete++
				r.IncompleteItems = append(r.IncompleteItems, IncompleteItem{
					ID:     a.ID,
					Name:   a.Name,
					Type:   t.DisplayName(),
					Reason: reason,
				})
				continue
			}
			tc.Complete++
		}
		tc.CoveragePercent = percent(tc.Complete, tc.Total)
		r.ByType = append(r.ByType, tc)
		r.TotalItems += tc.Total
		r.CompleteItems += tc.Complete
	}
	r.OverallCoverage = percent(r.CompleteItems, r.TotalItems)
	return r
}

func incompleteReason(g *graph.KnowledgeGraph, a *model.Artifact) (string, bool) {
	if a.Type.IsRoot() {
		if len(g.Children(a.ID)) == 0 {
			return "no downstream items defined", true
		}
		return "", false
	}
	if len(g.Parents(a.ID)) > 0 {
		return "", false
	}
	if a.HasUpstream() {
		return "upstream reference does not resolve", true
	}
	if parent, ok := a.Type.RequiredParentType(); ok {
		return fmt.Sprintf("missing parent %s", parent.DisplayName()), true
	}
	return "no justified item", true
}

func percent(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(part) / float64(total) * 100
}
