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
	"cmp"
	"encoding/csv"
	"slices"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// MatrixTarget is one traced relationship of a matrix row.
type MatrixTarget struct {
	ID           model.ArtifactID       `json:"id"`
	Name         string                 `json:"name"`
	Type         string                 `json:"type"`
	Relationship model.RelationshipKind `json:"relationship"`
}

// MatrixRow lists the resolved upstream and downstream declarations of one
// artifact.
type MatrixRow struct {
	SourceID   model.ArtifactID `json:"source_id"`
	SourceName string           `json:"source_name"`
	SourceType string           `json:"source_type"`
	Targets    []MatrixTarget   `json:"targets"`

	order model.ArtifactType
}

// TraceabilityMatrix is the full set of declared, resolved relationships.
type TraceabilityMatrix struct {
	Rows               []MatrixRow `json:"rows"`
	Columns            []string    `json:"columns"`
	TotalRelationships int         `json:"total_relationships"`
}

// csvHeader is the first record of Matrix.CSV.
var csvHeader = []string{"Source ID", "Source Name", "Source Type", "Target ID", "Target Name", "Target Type", "Relationship"}

// Matrix builds the traceability matrix. Rows are ordered by hierarchy
// level, then by id. References to absent artifacts are left out.
func Matrix(g *graph.KnowledgeGraph) *TraceabilityMatrix {
	m := &TraceabilityMatrix{Rows: make([]MatrixRow, 0, g.Len())}
	for _, a := range g.Artifacts() {
		row := MatrixRow{
			SourceID:   a.ID,
			SourceName: a.Name,
			SourceType: a.Type.DisplayName(),
			Targets:    []MatrixTarget{},
			order:      a.Type,
		}
		declared := append(a.Upstream(), a.Downstream()...)
		for _, rel := range declared {
			target, ok := g.Get(rel.Target)
			if !ok {
				continue
			}
			row.Targets = append(row.Targets, MatrixTarget{
				ID:           target.ID,
				Name:         target.Name,
				Type:         target.Type.DisplayName(),
				Relationship: rel.Kind,
			})
		}
		m.TotalRelationships += len(row.Targets)
		m.Rows = append(m.Rows, row)
	}

	slices.SortStableFunc(m.Rows, func(a, b MatrixRow) int {
		if c := cmp.Compare(a.order, b.order); c != 0 {
			return c
		}
		return cmp.Compare(a.SourceID, b.SourceID)
	})

	for _, t := range model.AllArtifactTypes() {
		m.Columns = append(m.Columns, t.DisplayName())
	}
	return m
}

// CSV renders the matrix with one record per relationship. Artifacts
// without relationships get one record with empty target columns. Values
// are quoted per RFC 4180.
func (m *TraceabilityMatrix) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range m.Rows {
		source := []string{row.SourceID.String(), row.SourceName, row.SourceType}
		if len(row.Targets) == 0 {
			if err := w.Write(append(source, "", "", "", "")); err != nil {
				return nil, err
			}
			continue
		}
		for _, t := range row.Targets {
			record := append(slices.Clone(source), t.ID.String(), t.Name, t.Type, t.Relationship.String())
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
