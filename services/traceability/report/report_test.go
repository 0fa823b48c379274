// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

func testArtifact(id string, typ model.ArtifactType, rels ...model.Relationship) *model.Artifact {
	return &model.Artifact{
		ID:            model.ArtifactID(id),
		Type:          typ,
		Name:          id + " name",
		Source:        model.SourceLocation{Repository: "/repo", FilePath: id + ".md"},
		Relationships: rels,
	}
}

func rel(kind model.RelationshipKind, target string) model.Relationship {
	return model.Relationship{Target: model.ArtifactID(target), Kind: kind}
}

func testGraph(t *testing.T, artifacts ...*model.Artifact) *graph.KnowledgeGraph {
	t.Helper()
	g, err := graph.Build(context.Background(), artifacts)
	require.NoError(t, err)
	return g
}

func TestCoverage(t *testing.T) {
	g := testGraph(t,
		testArtifact("SOL-001", model.TypeSolution),
		testArtifact("SOL-002", model.TypeSolution),
		testArtifact("UC-001", model.TypeUseCase, rel(model.KindRefines, "SOL-001")),
		testArtifact("UC-002", model.TypeUseCase),
		testArtifact("UC-003", model.TypeUseCase, rel(model.KindRefines, "SOL-404")),
		testArtifact("ADR-001", model.TypeADR),
	)

	r := Coverage(g)

	assert.Equal(t, 6, r.TotalItems)
	assert.Equal(t, 2, r.CompleteItems)
	assert.InDelta(t, 33.33, r.OverallCoverage, 0.01)

	require.Len(t, r.ByType, 3)
	assert.Equal(t, TypeCoverage{
		Type: model.TypeSolution, TypeName: "Solution", Total: 2, Complete: 1, Incomplete: 1, CoveragePercent: 50,
	}, r.ByType[0])
	assert.Equal(t, model.TypeUseCase, r.ByType[1].Type)
	assert.Equal(t, 1, r.ByType[1].Complete)
	assert.Equal(t, model.TypeADR, r.ByType[2].Type)

	reasons := map[model.ArtifactID]string{}
	for _, item := range r.IncompleteItems {
		reasons[item.ID] = item.Reason
	}
	assert.Equal(t, map[model.ArtifactID]string{
		"SOL-002": "no downstream items defined",
		"UC-002":  "missing parent Solution",
		"UC-003":  "upstream reference does not resolve",
		"ADR-001": "no justified item",
	}, reasons)
}

func TestCoverage_Empty(t *testing.T) {
	r := Coverage(testGraph(t))

	assert.Equal(t, float64(100), r.OverallCoverage)
	assert.Empty(t, r.ByType)
	assert.Empty(t, r.IncompleteItems)
}

func TestCoverage_DownstreamDeclarationCompletesBothEnds(t *testing.T) {
	g := testGraph(t,
		testArtifact("SOL-001", model.TypeSolution, rel(model.KindIsRefinedBy, "UC-001")),
		testArtifact("UC-001", model.TypeUseCase),
	)

	r := Coverage(g)

	assert.Equal(t, float64(100), r.OverallCoverage)
}

func TestMatrix(t *testing.T) {
	g := testGraph(t,
		testArtifact("UC-002", model.TypeUseCase, rel(model.KindRefines, "SOL-001")),
		testArtifact("UC-001", model.TypeUseCase, rel(model.KindRefines, "SOL-001"), rel(model.KindRefines, "SOL-404")),
		testArtifact("SOL-001", model.TypeSolution, rel(model.KindIsRefinedBy, "UC-001")),
		testArtifact("ADR-001", model.TypeADR),
	)

	m := Matrix(g)

	var order []model.ArtifactID
	for _, row := range m.Rows {
		order = append(order, row.SourceID)
	}
	assert.Equal(t, []model.ArtifactID{"SOL-001", "UC-001", "UC-002", "ADR-001"}, order)
	assert.Equal(t, 3, m.TotalRelationships)
	assert.Len(t, m.Columns, 10)

	assert.Equal(t, []MatrixTarget{
		{ID: "UC-001", Name: "UC-001 name", Type: "Use Case", Relationship: model.KindIsRefinedBy},
	}, m.Rows[0].Targets)
	assert.Len(t, m.Rows[1].Targets, 1, "unresolved target is left out")
	assert.Empty(t, m.Rows[3].Targets)
}

func TestMatrix_CSV(t *testing.T) {
	sol := testArtifact("SOL-001", model.TypeSolution)
	sol.Name = `Fast, "safe" payments`
	g := testGraph(t,
		sol,
		testArtifact("UC-001", model.TypeUseCase, rel(model.KindRefines, "SOL-001")),
	)

	data, err := Matrix(g).CSV()
	require.NoError(t, err)

	assert.Contains(t, string(data), `SOL-001,"Fast, ""safe"" payments",Solution,,,,`)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"UC-001", "UC-001 name", "Use Case", "SOL-001", `Fast, "safe" payments`, "Solution", "refines"}, records[2])
}
