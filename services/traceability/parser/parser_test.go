// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

const solutionDoc = `---
id: "SOL-001"
type: solution
name: "Test Solution"
description: "A test solution"
is_refined_by:
  - "UC-001"
owner: "platform team"
---
# Test Solution

This is the body content.
`

const requirementDoc = `---
id: "SYSREQ-001"
type: system_requirement
name: "Performance Requirement"
specification: "The system SHALL respond within 100ms."
derives_from: "SCEN-001"
is_satisfied_by:
  - "SYSARCH-001"
depends_on:
  - "SYSREQ-002"
---
# Requirement
`

const adrDoc = `---
id: "ADR-001"
type: adr
name: "Use PostgreSQL"
status: Accepted
deciders: ["alice", "bob"]
justifies:
  - "SYSARCH-001"
supersedes: "ADR-000"
---
`

func TestExtractFrontmatter(t *testing.T) {
	fm, err := ExtractFrontmatter(solutionDoc, "SOL-001.md")
	require.NoError(t, err)

	assert.Contains(t, fm.YAML, `id: "SOL-001"`)
	assert.NotContains(t, fm.YAML, "---")
	assert.Equal(t, 1, fm.StartLine)
	assert.Equal(t, 9, fm.EndLine)
	assert.Equal(t, "# Test Solution\n\nThis is the body content.", fm.Body)
}

func TestExtractFrontmatter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    error
	}{
		{"empty", "", ErrMissingFrontmatter},
		{"no delimiter", "# Just markdown\n", ErrMissingFrontmatter},
		{"unterminated", "---\nid: SOL-001\n", ErrInvalidFrontmatter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractFrontmatter(tc.content, "doc.md")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestExtractFrontmatter_CRLF(t *testing.T) {
	fm, err := ExtractFrontmatter("---\r\nid: SOL-001\r\n---\r\nbody\r\n", "doc.md")
	require.NoError(t, err)
	assert.Equal(t, "id: SOL-001", fm.YAML)
	assert.Equal(t, "body", fm.Body)
}

func TestHasFrontmatterAndBody(t *testing.T) {
	assert.True(t, HasFrontmatter("\n\n---\nid: x\n---\n"))
	assert.False(t, HasFrontmatter("# Title\n"))

	assert.Equal(t, "# Title", ExtractBody("---\nid: x\n---\n# Title\n"))
	assert.Equal(t, "no frontmatter", ExtractBody("no frontmatter"))

	name, ok := ExtractName("intro\n# Main Title \n## Sub")
	assert.True(t, ok)
	assert.Equal(t, "Main Title", name)
	_, ok = ExtractName("## only level two")
	assert.False(t, ok)
}

func TestParseMarkdown_Solution(t *testing.T) {
	a, err := ParseMarkdown(solutionDoc, "docs/SOL-001.md", "/repo")
	require.NoError(t, err)

	assert.Equal(t, model.ArtifactID("SOL-001"), a.ID)
	assert.Equal(t, model.TypeSolution, a.Type)
	assert.Equal(t, "Test Solution", a.Name)
	assert.Equal(t, "A test solution", a.Description)
	assert.Equal(t, []model.Relationship{{Target: "UC-001", Kind: model.KindIsRefinedBy}}, a.Relationships)
	assert.Equal(t, model.SourceLocation{Repository: "/repo", FilePath: "docs/SOL-001.md", Line: 1}, a.Source)
	assert.Equal(t, []string{"owner"}, a.CustomFields)
}

func TestParseMarkdown_Requirement(t *testing.T) {
	a, err := ParseMarkdown(requirementDoc, "SYSREQ-001.md", "/repo")
	require.NoError(t, err)

	assert.Equal(t, model.TypeSystemRequirement, a.Type)
	assert.Equal(t, "The system SHALL respond within 100ms.", a.Attributes.Specification)
	assert.Equal(t, []model.ArtifactID{"SYSREQ-002"}, a.Attributes.DependsOn)
	assert.Equal(t, []model.ArtifactID{"SCEN-001"}, a.TargetsOf(model.KindDerivesFrom))
	assert.Equal(t, []model.ArtifactID{"SYSARCH-001"}, a.TargetsOf(model.KindIsSatisfiedBy))
	assert.Empty(t, a.CustomFields)
}

func TestParseMarkdown_ADR(t *testing.T) {
	a, err := ParseMarkdown(adrDoc, "ADR-001.md", "/repo")
	require.NoError(t, err)

	assert.Equal(t, model.TypeADR, a.Type)
	assert.Equal(t, model.AdrAccepted, a.Attributes.Status)
	assert.Equal(t, []string{"alice", "bob"}, a.Attributes.Deciders)
	assert.Equal(t, []model.ArtifactID{"ADR-000"}, a.Attributes.Supersedes)
	assert.Equal(t, []model.ArtifactID{"SYSARCH-001"}, a.TargetsOf(model.KindJustifies))
}

func TestParseMarkdown_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    error
		field   string
	}{
		{
			name:    "missing id",
			content: "---\ntype: solution\nname: x\n---\n",
			kind:    ErrMissingField,
			field:   "id",
		},
		{
			name:    "missing name",
			content: "---\nid: SOL-001\ntype: solution\n---\n",
			kind:    ErrMissingField,
			field:   "name",
		},
		{
			name:    "unknown type",
			content: "---\nid: SOL-001\ntype: epic\nname: x\n---\n",
			kind:    ErrInvalidFrontmatter,
			field:   "type",
		},
		{
			name:    "invalid id",
			content: "---\nid: SOL 001\ntype: solution\nname: x\n---\n",
			kind:    ErrInvalidFrontmatter,
			field:   "id",
		},
		{
			name:    "requirement without specification",
			content: "---\nid: SWREQ-001\ntype: software_requirement\nname: x\n---\n",
			kind:    ErrMissingField,
			field:   "specification",
		},
		{
			name:    "adr without deciders",
			content: "---\nid: ADR-001\ntype: adr\nname: x\nstatus: proposed\n---\n",
			kind:    ErrMissingField,
			field:   "deciders",
		},
		{
			name:    "adr with bad status",
			content: "---\nid: ADR-001\ntype: adr\nname: x\nstatus: maybe\ndeciders: [a]\n---\n",
			kind:    ErrInvalidFrontmatter,
			field:   "status",
		},
		{
			name:    "malformed yaml",
			content: "---\nid: [unclosed\n---\n",
			kind:    ErrInvalidFrontmatter,
		},
		{
			name:    "not a mapping",
			content: "---\n- a\n- b\n---\n",
			kind:    ErrInvalidFrontmatter,
		},
		{
			name:    "relationship as mapping",
			content: "---\nid: UC-001\ntype: use_case\nname: x\nrefines:\n  a: b\n---\n",
			kind:    ErrInvalidFrontmatter,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMarkdown(tc.content, "doc.md", "/repo")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "doc.md", pe.File)
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestParseMarkdown_BlankSpecificationIsAccepted(t *testing.T) {
	a, err := ParseMarkdown("---\nid: SYSREQ-001\ntype: system_requirement\nname: x\nspecification: \"\"\n---\n", "doc.md", "/repo")
	require.NoError(t, err)
	assert.Empty(t, a.Attributes.Specification)
}

func TestParseDocument_KeepsBody(t *testing.T) {
	doc, err := ParseDocument(solutionDoc, "SOL-001.md", "/repo")
	require.NoError(t, err)
	assert.Contains(t, doc.Body, "This is the body content.")
	assert.Equal(t, model.ArtifactID("SOL-001"), doc.Artifact.ID)
}

func TestParseFile(t *testing.T) {
	repo := t.TempDir()
	dir := filepath.Join(repo, "docs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "req.md")
	require.NoError(t, os.WriteFile(path, []byte(requirementDoc), 0o644))

	a, err := ParseFile(path, repo)
	require.NoError(t, err)
	assert.Equal(t, "docs/req.md", a.Source.FilePath)
	assert.Equal(t, repo, a.Source.Repository)

	_, err = ParseFile(filepath.Join(repo, "missing.md"), repo)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Kind: ErrMissingField, File: "a.md", Line: 1, Field: "id"}
	assert.Equal(t, "a.md:1: missing required field 'id'", err.Error())
}
