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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

func artifact(id string, typ model.ArtifactType, rels ...model.Relationship) *model.Artifact {
	return &model.Artifact{
		ID:            model.ArtifactID(id),
		Type:          typ,
		Name:          id,
		Source:        model.SourceLocation{Repository: "/repo", FilePath: id + ".md", Line: 1},
		Relationships: rels,
	}
}

func requirement(id string, spec string, rels ...model.Relationship) *model.Artifact {
	a := artifact(id, model.TypeSystemRequirement, rels...)
	a.Attributes.Specification = spec
	return a
}

func ref(kind model.RelationshipKind, target string) model.Relationship {
	return model.Relationship{Target: model.ArtifactID(target), Kind: kind}
}

func build(t *testing.T, artifacts ...*model.Artifact) *graph.KnowledgeGraph {
	t.Helper()
	g, err := graph.Build(context.Background(), artifacts)
	require.NoError(t, err)
	return g
}

func TestValidate_CleanHierarchy(t *testing.T) {
	g := build(t,
		artifact("SOL-001", model.TypeSolution),
		artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SOL-001")),
		artifact("SCEN-001", model.TypeScenario, ref(model.KindRefines, "UC-001")),
		requirement("SYSREQ-001", "The system SHALL log every request", ref(model.KindDerivesFrom, "SCEN-001")),
	)

	report := Validate(context.Background(), g, false)

	assert.True(t, report.IsValid())
	assert.Empty(t, report.Issues)
	assert.Equal(t, 4, report.ItemsChecked)
	assert.Equal(t, 6, report.RelationshipsChecked)
	assert.NotEmpty(t, report.RunID)
}

func TestValidate_OrphanSeverity(t *testing.T) {
	g := build(t,
		artifact("SOL-001", model.TypeSolution),
		artifact("UC-001", model.TypeUseCase),
	)

	t.Run("warning by default", func(t *testing.T) {
		report := Validate(context.Background(), g, false)
		orphans := report.ByCode(CodeOrphanItem)
		require.Len(t, orphans, 1)
		assert.Equal(t, model.ArtifactID("UC-001"), orphans[0].ArtifactID)
		assert.Equal(t, SeverityWarning, orphans[0].Severity)
		assert.True(t, report.IsValid())
	})

	t.Run("error in strict mode", func(t *testing.T) {
		report := Validate(context.Background(), g, true)
		orphans := report.ByCode(CodeOrphanItem)
		require.Len(t, orphans, 1)
		assert.Equal(t, SeverityError, orphans[0].Severity)
		assert.False(t, report.IsValid())
	})
}

func TestValidate_DownstreamDeclarationIsNotOrphan(t *testing.T) {
	g := build(t,
		artifact("SOL-001", model.TypeSolution, ref(model.KindIsRefinedBy, "UC-001")),
		artifact("UC-001", model.TypeUseCase),
	)

	report := Validate(context.Background(), g, true)

	assert.Empty(t, report.ByCode(CodeOrphanItem))
	assert.True(t, report.IsValid())
}

func TestValidate_BrokenReference(t *testing.T) {
	g := build(t,
		artifact("SOL-001", model.TypeSolution),
		artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SOL-999")),
	)

	report := Validate(context.Background(), g, false)

	broken := report.ByCode(CodeBrokenReference)
	require.Len(t, broken, 1)
	assert.Equal(t, model.ArtifactID("UC-001"), broken[0].ArtifactID)
	assert.Equal(t, model.ArtifactID("SOL-999"), broken[0].Target)
	assert.Equal(t, SeverityError, broken[0].Severity)
	assert.Contains(t, broken[0].Message, "SOL-999")
	assert.Empty(t, report.ByCode(CodeOrphanItem), "a declared upstream reference is not an orphan")
}

func TestValidate_Cycles(t *testing.T) {
	t.Run("three requirement ring", func(t *testing.T) {
		ring := make([]*model.Artifact, 3)
		for i := range ring {
			ring[i] = requirement(fmt.Sprintf("SYSREQ-%03d", i+1), "The system MUST work")
			ring[i].Attributes.DependsOn = []model.ArtifactID{model.ArtifactID(fmt.Sprintf("SYSREQ-%03d", (i+1)%3+1))}
		}
		g := build(t, ring...)

		report := Validate(context.Background(), g, false)

		cycles := report.ByCode(CodeCircularReference)
		require.Len(t, cycles, 1)
		assert.Len(t, cycles[0].Members, 3)
		assert.Contains(t, cycles[0].Message, "circular reference detected")
	})

	t.Run("refines both ways", func(t *testing.T) {
		g := build(t,
			artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "UC-002")),
			artifact("UC-002", model.TypeUseCase, ref(model.KindRefines, "UC-001")),
		)

		report := Validate(context.Background(), g, false)

		require.Len(t, report.ByCode(CodeCircularReference), 1)
		// use case refines use case is also outside the hierarchy rules
		assert.Len(t, report.ByCode(CodeInvalidRelationship), 2)
	})

	t.Run("inverse edges alone do not form cycles", func(t *testing.T) {
		g := build(t,
			artifact("SOL-001", model.TypeSolution),
			artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SOL-001")),
		)

		report := Validate(context.Background(), g, false)

		assert.Empty(t, report.ByCode(CodeCircularReference))
	})
}

func TestValidate_InvalidRelationship(t *testing.T) {
	tests := []struct {
		name      string
		artifacts []*model.Artifact
		from      string
		kind      model.RelationshipKind
	}{
		{
			name: "use case refines scenario",
			artifacts: []*model.Artifact{
				artifact("SCEN-001", model.TypeScenario),
				artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SCEN-001")),
			},
			from: "UC-001",
			kind: model.KindRefines,
		},
		{
			name: "scenario uses the wrong upstream kind",
			artifacts: []*model.Artifact{
				artifact("UC-001", model.TypeUseCase),
				artifact("SCEN-001", model.TypeScenario, ref(model.KindSatisfies, "UC-001")),
			},
			from: "SCEN-001",
			kind: model.KindSatisfies,
		},
		{
			name: "solution refined by scenario",
			artifacts: []*model.Artifact{
				artifact("SOL-001", model.TypeSolution, ref(model.KindIsRefinedBy, "SCEN-001")),
				artifact("SCEN-001", model.TypeScenario),
			},
			from: "SOL-001",
			kind: model.KindIsRefinedBy,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := Validate(context.Background(), build(t, tc.artifacts...), false)

			invalid := report.ByCode(CodeInvalidRelationship)
			require.Len(t, invalid, 1)
			assert.Equal(t, model.ArtifactID(tc.from), invalid[0].ArtifactID)
			assert.Equal(t, tc.kind, invalid[0].Kind)
		})
	}
}

func TestValidate_RedundantRelationship(t *testing.T) {
	g := build(t,
		artifact("SOL-001", model.TypeSolution, ref(model.KindIsRefinedBy, "UC-001")),
		artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SOL-001")),
	)

	report := Validate(context.Background(), g, false)

	redundant := report.ByCode(CodeRedundantRelationship)
	require.Len(t, redundant, 1)
	assert.Equal(t, SeverityWarning, redundant[0].Severity)
	assert.Equal(t, model.ArtifactID("SOL-001"), redundant[0].ArtifactID)
	assert.Equal(t, model.ArtifactID("UC-001"), redundant[0].Target)
	assert.Len(t, redundant[0].Locations, 2)
	assert.Equal(t, 2, report.RelationshipsChecked)
	assert.True(t, report.IsValid())
}

func TestValidate_Metadata(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected []Severity
	}{
		{"empty specification", "   ", []Severity{SeverityError}},
		{"no normative keyword", "The system logs requests", []Severity{SeverityWarning}},
		{"keyword inside another word", "Maybe the system logs", []Severity{SeverityWarning}},
		{"lowercase keyword", "the system must log", nil},
		{"keyword with punctuation", "Logging is REQUIRED.", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := build(t,
				artifact("SCEN-001", model.TypeScenario),
				requirement("SYSREQ-001", tc.spec, ref(model.KindDerivesFrom, "SCEN-001")),
			)

			report := Validate(context.Background(), g, false)

			var got []Severity
			for _, i := range report.ByCode(CodeInvalidMetadata) {
				assert.Equal(t, "specification", i.Field)
				got = append(got, i.Severity)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestValidate_UnrecognizedFields(t *testing.T) {
	sol := artifact("SOL-001", model.TypeSolution)
	sol.CustomFields = []string{"owner", "priority", "refines"}
	g := build(t, sol)

	t.Run("default options", func(t *testing.T) {
		report := NewValidator().Validate(context.Background(), g)
		fields := report.ByCode(CodeUnrecognizedField)
		require.Len(t, fields, 2)
		assert.Equal(t, "owner", fields[0].Field)
		assert.Equal(t, "priority", fields[1].Field)
		assert.Equal(t, SeverityWarning, fields[0].Severity)
	})

	t.Run("allow-listed field", func(t *testing.T) {
		report := NewValidator(WithAllowedCustomFields("owner")).Validate(context.Background(), g)
		fields := report.ByCode(CodeUnrecognizedField)
		require.Len(t, fields, 1)
		assert.Equal(t, "priority", fields[0].Field)
	})
}

func TestValidate_RuleOrder(t *testing.T) {
	g := build(t,
		artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SOL-404")),
		artifact("UC-002", model.TypeUseCase),
	)

	report := Validate(context.Background(), g, false)

	require.Len(t, report.Issues, 2)
	assert.Equal(t, CodeBrokenReference, report.Issues[0].Code)
	assert.Equal(t, CodeOrphanItem, report.Issues[1].Code)
	assert.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, 1, report.WarningCount())
}

func TestPreValidate_Duplicates(t *testing.T) {
	first := artifact("SOL-001", model.TypeSolution)
	second := artifact("SOL-001", model.TypeSolution)
	second.Source = model.SourceLocation{Repository: "/other", FilePath: "dup.md", Line: 1}

	report := PreValidate(context.Background(), []*model.Artifact{
		first,
		artifact("UC-001", model.TypeUseCase),
		second,
	})

	dups := report.ByCode(CodeDuplicateIdentifier)
	require.Len(t, dups, 1)
	assert.Equal(t, model.ArtifactID("SOL-001"), dups[0].ArtifactID)
	assert.Equal(t, []model.SourceLocation{first.Source, second.Source}, dups[0].Locations)
	assert.Contains(t, dups[0].Message, "SOL-001.md")
	assert.Contains(t, dups[0].Message, "dup.md")
	assert.Equal(t, 3, report.ItemsChecked)
}

func TestPreValidate_InvalidIdentifier(t *testing.T) {
	report := PreValidate(context.Background(), []*model.Artifact{
		artifact("SOL 001", model.TypeSolution),
		nil,
	})

	ids := report.ByCode(CodeInvalidID)
	require.Len(t, ids, 1)
	assert.Equal(t, 1, report.ItemsChecked)
}

func TestValidator_Run(t *testing.T) {
	first := artifact("SOL-001", model.TypeSolution)
	dup := artifact("SOL-001", model.TypeSolution)
	dup.Source.FilePath = "copy.md"

	g, report, err := NewValidator().Run(context.Background(), []*model.Artifact{
		first,
		dup,
		artifact("UC-001", model.TypeUseCase, ref(model.KindRefines, "SOL-001")),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	require.Len(t, report.ByCode(CodeDuplicateIdentifier), 1)
	assert.Equal(t, CodeDuplicateIdentifier, report.Issues[0].Code)
	assert.False(t, report.IsValid())
}

func TestValidator_RunBuildFailure(t *testing.T) {
	_, report, err := NewValidator().Run(context.Background(), []*model.Artifact{
		artifact("SOL-001", model.TypeSolution),
		artifact("SOL-002", model.TypeSolution),
	}, graph.WithBuilderMaxNodes(1))

	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrMaxNodesExceeded)
	assert.NotNil(t, report)
}

func TestValidator_RunLogsTraceID(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prevProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prevProvider) })

	var buf bytes.Buffer
	prevLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	_, _, err := NewValidator().Run(context.Background(), []*model.Artifact{
		artifact("SOL-001", model.TypeSolution),
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "validation complete", entry["msg"])
	assert.NotEmpty(t, entry["trace_id"])
	assert.NotEmpty(t, entry["span_id"])

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "Validator.Run")
}

func TestIssue_MarshalJSON(t *testing.T) {
	orphan := newOrphan(artifact("UC-001", model.TypeUseCase), SeverityWarning)

	data, err := json.Marshal(orphan)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "warning", decoded["severity"])
	assert.Equal(t, "orphan_item", decoded["code"])
	assert.NotContains(t, decoded, "kind")
	assert.NotContains(t, decoded, "from_type")
}
