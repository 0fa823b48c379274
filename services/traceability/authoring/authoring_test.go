// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package authoring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/parser"
	"github.com/AleutianAI/reqgraph/services/traceability/query"
	"github.com/AleutianAI/reqgraph/services/traceability/repository"
)

const solutionDoc = "---\nid: SOL-001\ntype: solution\nname: Solution\nowner: alice\n---\n# Solution\n\nBody text.\n"

const useCaseDoc = "---\nid: UC-001\ntype: use_case\nname: Login\nrefines:\n  - SOL-001\n---\n# Login\n"

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func loadGraph(t *testing.T, dir string) *graph.KnowledgeGraph {
	t.Helper()
	res, err := repository.NewScanner().Scan(context.Background(), []string{dir})
	require.NoError(t, err)
	g, err := graph.Build(context.Background(), res.Artifacts)
	require.NoError(t, err)
	return g
}

func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "docs/sol.md", solutionDoc)
	return dir
}

func TestFrontmatter_KeyOrder(t *testing.T) {
	a := &model.Artifact{
		ID:            "SYSREQ-002",
		Type:          model.TypeSystemRequirement,
		Name:          "Latency",
		Description:   "Response time",
		Relationships: []model.Relationship{{Target: "SCEN-001", Kind: model.KindDerivesFrom}},
		Attributes: model.Attributes{
			Specification: "The system SHALL respond within 100 ms.",
			DependsOn:     []model.ArtifactID{"SYSREQ-001"},
		},
	}

	out, err := Frontmatter(a)
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "id: SYSREQ-002\ntype: system_requirement\nname: Latency\ndescription: Response time\n"), text)
	keys := []string{"derives_from:", "specification:", "depends_on:"}
	last := 0
	for _, k := range keys {
		i := strings.Index(text, k)
		require.Greater(t, i, last, "%s out of order in:\n%s", k, text)
		last = i
	}

	doc, err := parser.ParseDocument(Compose(out, ""), "req.md", "")
	require.NoError(t, err)
	assert.Equal(t, []model.ArtifactID{"SCEN-001"}, doc.Artifact.TargetsOf(model.KindDerivesFrom))
	assert.Equal(t, []model.ArtifactID{"SYSREQ-001"}, doc.Artifact.Attributes.DependsOn)
	assert.Equal(t, a.Attributes.Specification, doc.Artifact.Attributes.Specification)
}

func TestFrontmatter_QuotesAmbiguousScalars(t *testing.T) {
	for _, name := range []string{"null", "true", "42", "Solution: with colon", "- dash"} {
		t.Run(name, func(t *testing.T) {
			out, err := Frontmatter(&model.Artifact{ID: "SOL-001", Type: model.TypeSolution, Name: name})
			require.NoError(t, err)

			doc, err := parser.ParseDocument(Compose(out, "body\n"), "sol.md", "")
			require.NoError(t, err)
			assert.Equal(t, name, doc.Artifact.Name)
			assert.Equal(t, "body", doc.Body)
		})
	}
}

func TestCompose(t *testing.T) {
	assert.Equal(t, "---\nid: X\n---\n", Compose([]byte("id: X\n"), ""))
	assert.Equal(t, "---\nid: X\n---\n# T\n", Compose([]byte("id: X"), "# T"))
}

func TestInit_NewFile(t *testing.T) {
	dir := newRepo(t)
	g := loadGraph(t, dir)
	path := filepath.Join(dir, "docs", "use-cases", "login.md")

	res, err := Init(context.Background(), g, path, InitOptions{
		Type:  model.TypeUseCase,
		Name:  "Login",
		Links: []model.Relationship{{Target: "SOL-001", Kind: model.KindRefines}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ArtifactID("UC-001"), res.ID)
	assert.Equal(t, "Login", res.Name)
	assert.False(t, res.UpdatedExisting)
	assert.False(t, res.NeedsSpecification)
	assert.Equal(t, []model.ArtifactID{"SOL-001"}, res.Artifact.TargetsOf(model.KindRefines))

	content := readFile(t, path)
	assert.Contains(t, content, "# Use Case: Login\n")
	assert.Contains(t, content, "## Main Flow\n")

	g = loadGraph(t, dir)
	uc, ok := g.Get("UC-001")
	require.True(t, ok)
	assert.Equal(t, "Login", uc.Name)
}

func TestInit_RequirementPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "req.md")

	res, err := Init(context.Background(), loadGraph(t, dir), path, InitOptions{Type: model.TypeSoftwareRequirement, Name: "Boot"})
	require.NoError(t, err)

	assert.True(t, res.NeedsSpecification)
	assert.Equal(t, model.ArtifactID("SWREQ-001"), res.ID)
	assert.Equal(t, PlaceholderSpecification, res.Artifact.Attributes.Specification)
}

func TestInit_ADRDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adr.md")

	res, err := Init(context.Background(), loadGraph(t, dir), path, InitOptions{Type: model.TypeADR, Name: "Use gRPC"})
	require.NoError(t, err)

	attrs := res.Artifact.Attributes
	assert.Equal(t, model.AdrProposed, attrs.Status)
	assert.Equal(t, []string{DefaultDecider}, attrs.Deciders)
	content := readFile(t, path)
	assert.Contains(t, content, "# Architecture Decision: Use gRPC\n")
	assert.Contains(t, content, "## Decision Outcome\n")
}

func TestInit_ExistingFileWithoutFrontmatter(t *testing.T) {
	dir := newRepo(t)
	path := writeFile(t, dir, "docs/checkout.md", "# Checkout flow\n\nPay and confirm.\n")

	res, err := Init(context.Background(), loadGraph(t, dir), path, InitOptions{
		Type:  model.TypeUseCase,
		Links: []model.Relationship{{Target: "SOL-001", Kind: model.KindRefines}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Checkout flow", res.Name)
	assert.True(t, res.UpdatedExisting)
	assert.False(t, res.ReplacedFrontmatter)

	content := readFile(t, path)
	assert.True(t, strings.HasPrefix(content, "---\nid: UC-001\n"), content)
	assert.True(t, strings.HasSuffix(content, "---\n# Checkout flow\n\nPay and confirm.\n"), content)
}

func TestInit_NameFromFileStem(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "no heading here\n")

	res, err := Init(context.Background(), loadGraph(t, dir), path, InitOptions{Type: model.TypeSolution})
	require.NoError(t, err)
	assert.Equal(t, "notes", res.Name)
}

func TestInit_ExistingFrontmatter(t *testing.T) {
	dir := newRepo(t)
	g := loadGraph(t, dir)
	path := filepath.Join(dir, "docs", "sol.md")

	_, err := Init(context.Background(), g, path, InitOptions{Type: model.TypeSolution, Name: "Other"})
	require.ErrorIs(t, err, ErrFrontmatterExists)
	assert.Equal(t, solutionDoc, readFile(t, path))

	res, err := Init(context.Background(), g, path, InitOptions{Type: model.TypeSolution, ID: "SOL-001", Name: "Replaced", Force: true})
	require.NoError(t, err)
	assert.True(t, res.ReplacedFrontmatter)

	content := readFile(t, path)
	assert.Contains(t, content, "name: Replaced\n")
	assert.NotContains(t, content, "owner: alice")
	assert.True(t, strings.HasSuffix(content, "---\n# Solution\n\nBody text.\n"), content)
}

func TestInit_Rejects(t *testing.T) {
	dir := newRepo(t)
	writeFile(t, dir, "docs/uc.md", useCaseDoc)
	g := loadGraph(t, dir)

	tests := []struct {
		name string
		opts InitOptions
		want error
	}{
		{"specification on solution", InitOptions{Type: model.TypeSolution, Specification: "x"}, ErrInvalidOption},
		{"platform on use case", InitOptions{Type: model.TypeUseCase, Platform: "linux"}, ErrInvalidOption},
		{"status on scenario", InitOptions{Type: model.TypeScenario, Status: model.AdrAccepted}, ErrInvalidOption},
		{"unknown type", InitOptions{}, ErrInvalidOption},
		{"bad id", InitOptions{Type: model.TypeSolution, ID: "SOL 1"}, ErrInvalidOption},
		{"id in use", InitOptions{Type: model.TypeSolution, ID: "SOL-001"}, ErrIDInUse},
		{"wrong target type", InitOptions{
			Type:  model.TypeScenario,
			Links: []model.Relationship{{Target: "SOL-001", Kind: model.KindRefines}},
		}, ErrInvalidLink},
		{"downstream kind", InitOptions{
			Type:  model.TypeSolution,
			Links: []model.Relationship{{Target: "UC-001", Kind: model.KindIsRefinedBy}},
		}, ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "new.md")
			_, err := Init(context.Background(), g, path, tt.opts)
			require.ErrorIs(t, err, tt.want)
			assert.NoFileExists(t, path)
		})
	}
}

func TestInit_UnknownTargetSuggests(t *testing.T) {
	dir := newRepo(t)
	path := filepath.Join(dir, "uc.md")

	_, err := Init(context.Background(), loadGraph(t, dir), path, InitOptions{
		Type:  model.TypeUseCase,
		Links: []model.Relationship{{Target: "SOL-002", Kind: model.KindRefines}},
	})

	var nf *query.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Contains(t, nf.Suggestions, model.ArtifactID("SOL-001"))
	assert.NoFileExists(t, path)
}

func TestEdit_RewritesFrontmatterKeepsBody(t *testing.T) {
	dir := newRepo(t)
	path := filepath.Join(dir, "docs", "sol.md")
	name := "Renamed"

	res, err := Edit(context.Background(), loadGraph(t, dir), "SOL-001", EditOptions{Name: &name})
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "name", res.Changes[0].Field)
	assert.Equal(t, "Solution", res.Changes[0].OldValue)
	assert.Equal(t, "Renamed", res.Changes[0].NewValue)
	assert.Equal(t, path, res.File)

	assert.Equal(t,
		"---\nid: SOL-001\ntype: solution\nname: Renamed\nowner: alice\n---\n# Solution\n\nBody text.\n",
		readFile(t, path))
}

func TestEdit_ReplacesLinks(t *testing.T) {
	dir := newRepo(t)
	writeFile(t, dir, "docs/sol2.md", "---\nid: SOL-002\ntype: solution\nname: Second\n---\n")
	path := writeFile(t, dir, "docs/uc.md", useCaseDoc)

	res, err := Edit(context.Background(), loadGraph(t, dir), "UC-001", EditOptions{
		Links: map[model.RelationshipKind][]model.ArtifactID{model.KindRefines: {"SOL-002"}},
	})
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "upstream", res.Changes[0].Field)
	assert.Equal(t, []model.ArtifactID{"SOL-002"}, res.Artifact.TargetsOf(model.KindRefines))
	assert.True(t, strings.HasSuffix(readFile(t, path), "---\n# Login\n"))
}

func TestEdit_RemovesOptionalField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sol.md", "---\nid: SOL-001\ntype: solution\nname: S\ndescription: old\n---\n")
	empty := ""

	res, err := Edit(context.Background(), loadGraph(t, dir), "SOL-001", EditOptions{Description: &empty})
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "description", res.Changes[0].Field)
	assert.NotContains(t, readFile(t, path), "description")
}

func TestEdit_NoChangeLeavesFile(t *testing.T) {
	dir := t.TempDir()
	original := "---\nid: SOL-001\ntype: solution\nname: 'Solution'\n---\n"
	path := writeFile(t, dir, "sol.md", original)
	name := "Solution"

	res, err := Edit(context.Background(), loadGraph(t, dir), "SOL-001", EditOptions{Name: &name})
	require.NoError(t, err)

	assert.Empty(t, res.Changes)
	assert.Equal(t, original, readFile(t, path))
}

func TestEdit_Rejects(t *testing.T) {
	dir := newRepo(t)
	writeFile(t, dir, "docs/uc.md", useCaseDoc)
	g := loadGraph(t, dir)
	spec := "The system SHALL work."
	blank := "  "
	platform := "linux"

	tests := []struct {
		name string
		id   string
		opts EditOptions
		want error
	}{
		{"nothing to edit", "SOL-001", EditOptions{}, ErrNothingToEdit},
		{"specification on solution", "SOL-001", EditOptions{Specification: &spec}, ErrInvalidOption},
		{"platform on use case", "UC-001", EditOptions{Platform: &platform}, ErrInvalidOption},
		{"empty name", "SOL-001", EditOptions{Name: &blank}, ErrInvalidOption},
		{"self refine", "UC-001", EditOptions{
			Links: map[model.RelationshipKind][]model.ArtifactID{model.KindRefines: {"UC-001"}},
		}, ErrInvalidLink},
		{"unknown item", "SOL-009", EditOptions{Name: &spec}, query.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Edit(context.Background(), g, tt.id, tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, solutionDoc, readFile(t, filepath.Join(dir, "docs", "sol.md")))
	assert.Equal(t, useCaseDoc, readFile(t, filepath.Join(dir, "docs", "uc.md")))
}

func TestEdit_GitSnapshotIsReadOnly(t *testing.T) {
	g, err := graph.Build(context.Background(), []*model.Artifact{{
		ID:     "SOL-001",
		Type:   model.TypeSolution,
		Name:   "Solution",
		Source: model.SourceLocation{FilePath: "sol.md", GitRef: "HEAD~1"},
	}})
	require.NoError(t, err)
	name := "New"

	_, err = Edit(context.Background(), g, "SOL-001", EditOptions{Name: &name})
	require.ErrorIs(t, err, ErrReadOnlySource)
}
