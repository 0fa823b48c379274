// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArtifactID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"simple", "SOL-001", false},
		{"underscore", "sys_req_2", false},
		{"empty", "", true},
		{"space", "SOL 001", true},
		{"dot", "SOL.001", true},
		{"unicode", "SOLé", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewArtifactID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, id.String())
		})
	}
}

func TestParseArtifactType(t *testing.T) {
	for _, typ := range AllArtifactTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			got, err := ParseArtifactType(typ.String())
			require.NoError(t, err)
			assert.Equal(t, typ, got)
		})
	}

	t.Run("adr short form", func(t *testing.T) {
		got, err := ParseArtifactType("ADR")
		require.NoError(t, err)
		assert.Equal(t, TypeADR, got)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseArtifactType("epic")
		assert.ErrorIs(t, err, ErrUnknownArtifactType)
	})
}

func TestArtifactType_Hierarchy(t *testing.T) {
	_, ok := TypeSolution.RequiredParentType()
	assert.False(t, ok, "solution is the root")

	_, ok = TypeADR.RequiredParentType()
	assert.False(t, ok, "ADR is outside the linear hierarchy")

	parent, ok := TypeSoftwareDetailedDesign.RequiredParentType()
	require.True(t, ok)
	assert.Equal(t, TypeSoftwareRequirement, parent)

	field, ok := TypeSystemRequirement.TraceabilityField()
	require.True(t, ok)
	assert.Equal(t, FieldDerivesFrom, field)

	assert.Equal(t, "SYSARCH", TypeSystemArchitecture.Prefix())
	assert.Equal(t, "Hardware Detailed Design", TypeHardwareDetailedDesign.DisplayName())
	assert.True(t, TypeSoftwareRequirement.RequiresSpecification())
	assert.False(t, TypeScenario.RequiresSpecification())
}

func TestRelationshipKind_InversePairs(t *testing.T) {
	for _, k := range AllRelationshipKinds() {
		t.Run(k.String(), func(t *testing.T) {
			inv := k.Inverse()
			assert.NotEqual(t, k, inv)
			assert.Equal(t, k, inv.Inverse())
			assert.NotEqual(t, k.IsPrimary(), inv.IsPrimary(), "exactly one side of a pair is primary")
			assert.Equal(t, k.IsPeer(), inv.IsPeer())
			if k.IsUpstream() {
				assert.True(t, inv.IsDownstream())
			}
		})
	}
}

func TestParseRelationshipKind(t *testing.T) {
	k, err := ParseRelationshipKind("justified_by")
	require.NoError(t, err)
	assert.Equal(t, KindIsJustifiedBy, k)

	_, err = ParseRelationshipKind("blocks")
	assert.ErrorIs(t, err, ErrUnknownRelationship)
}

func TestIsValidRelationship(t *testing.T) {
	tests := []struct {
		name string
		from ArtifactType
		to   ArtifactType
		kind RelationshipKind
		want bool
	}{
		{"use case refines solution", TypeUseCase, TypeSolution, KindRefines, true},
		{"scenario refines solution", TypeScenario, TypeSolution, KindRefines, false},
		{"sysreq derives from scenario", TypeSystemRequirement, TypeScenario, KindDerivesFrom, true},
		{"sysreq refines scenario", TypeSystemRequirement, TypeScenario, KindRefines, false},
		{"solution refined by use case", TypeSolution, TypeUseCase, KindIsRefinedBy, true},
		{"architecture derives swreq", TypeSystemArchitecture, TypeSoftwareRequirement, KindDerives, true},
		{"architecture derives hwreq", TypeSystemArchitecture, TypeHardwareRequirement, KindDerives, true},
		{"adr justifies architecture", TypeADR, TypeSystemArchitecture, KindJustifies, true},
		{"adr justifies requirement", TypeADR, TypeSystemRequirement, KindJustifies, false},
		{"architecture justified by adr", TypeSystemArchitecture, TypeADR, KindIsJustifiedBy, true},
		{"swdd justified by adr", TypeSoftwareDetailedDesign, TypeADR, KindIsJustifiedBy, true},
		{"scenario justified by adr", TypeScenario, TypeADR, KindIsJustifiedBy, false},
		{"sysreq depends on sysreq", TypeSystemRequirement, TypeSystemRequirement, KindDependsOn, true},
		{"sysreq depends on swreq", TypeSystemRequirement, TypeSoftwareRequirement, KindDependsOn, false},
		{"adr supersedes adr", TypeADR, TypeADR, KindSupersedes, true},
		{"scenario depends on scenario", TypeScenario, TypeScenario, KindDependsOn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidRelationship(tt.from, tt.to, tt.kind))
		})
	}
}

func TestArtifact_References(t *testing.T) {
	a := &Artifact{
		ID:   "SYSREQ-001",
		Type: TypeSystemRequirement,
		Relationships: []Relationship{
			{Target: "SCEN-001", Kind: KindDerivesFrom},
			{Target: "SYSARCH-001", Kind: KindIsSatisfiedBy},
		},
		Attributes: Attributes{
			Specification: "The system SHALL boot.",
			DependsOn:     []ArtifactID{"SYSREQ-002"},
		},
	}

	assert.True(t, a.HasUpstream())
	assert.Equal(t, []Relationship{{Target: "SCEN-001", Kind: KindDerivesFrom}}, a.Upstream())
	assert.Equal(t, []Relationship{{Target: "SYSARCH-001", Kind: KindIsSatisfiedBy}}, a.Downstream())
	assert.Len(t, a.AllReferences(), 3)
	assert.Equal(t, KindDependsOn, a.AllReferences()[2].Kind)
	assert.True(t, a.Declares(KindDerivesFrom, "SCEN-001"))
	assert.False(t, a.Declares(KindRefines, "SCEN-001"))
}

func TestSourceLocation_String(t *testing.T) {
	loc := SourceLocation{Repository: "/repo", FilePath: "docs/sol.md", Line: 1, GitRef: "main"}
	assert.Equal(t, "/repo/docs/sol.md:1@main", loc.String())
	assert.Equal(t, "docs/sol.md", SourceLocation{FilePath: "docs/sol.md"}.String())
}

func TestParseAdrStatus(t *testing.T) {
	st, err := ParseAdrStatus("Accepted")
	require.NoError(t, err)
	assert.Equal(t, AdrAccepted, st)

	_, err = ParseAdrStatus("rejected")
	assert.ErrorIs(t, err, ErrUnknownAdrStatus)
}
