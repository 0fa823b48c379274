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
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reqgraph/services/traceability/diff"
	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/parser"
	"github.com/AleutianAI/reqgraph/services/traceability/query"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

// EditOptions lists the fields to change. Nil fields are left alone.
type EditOptions struct {
	Name *string

	// Description and Platform are removed when set to "".
	Description *string
	Platform    *string

	Specification *string

	// Links replaces every target of each listed kind. An empty slice
	// removes the field.
	Links map[model.RelationshipKind][]model.ArtifactID
}

func (o EditOptions) empty() bool {
	return o.Name == nil && o.Description == nil && o.Platform == nil &&
		o.Specification == nil && len(o.Links) == 0
}

// EditResult reports what Edit changed.
type EditResult struct {
	ID      model.ArtifactID   `json:"id"`
	File    string             `json:"file"`
	Changes []diff.FieldChange `json:"changes"`

	// Artifact is the item as parsed back from the rewritten document.
	Artifact *model.Artifact `json:"-"`
}

// Edit rewrites frontmatter fields of the item id.
//
// Description:
//
//	The frontmatter is decoded to a yaml.Node tree, the requested keys
//	are replaced, added or removed, and the tree is encoded back above
//	the unchanged body. Other keys keep their order. The result is parsed
//	again and compared with the old version; the file is only written
//	when a compared field changed.
//
// Inputs:
//
//	ctx - Carries the trace span.
//	g - The current graph. Must not be nil.
//	id - Item to edit.
//	opts - Fields to change.
//
// Outputs:
//
//	*EditResult - The changes, empty when the values were already set.
//	error - *query.NotFoundError, ErrNothingToEdit, ErrReadOnlySource,
//	        ErrInvalidOption or ErrInvalidLink, wrapped.
func Edit(ctx context.Context, g *graph.KnowledgeGraph, id string, opts EditOptions) (*EditResult, error) {
	_, span := tracer.Start(ctx, "authoring.Edit", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()

	res, err := editDocument(g, id, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("edit.changes", len(res.Changes)))
	slog.Info("document edited",
		slog.String("id", res.ID.String()),
		slog.String("file", res.File),
		slog.Int("changes", len(res.Changes)),
	)
	return res, nil
}

func editDocument(g *graph.KnowledgeGraph, id string, opts EditOptions) (*EditResult, error) {
	if opts.empty() {
		return nil, ErrNothingToEdit
	}
	current, err := query.LookupOrSuggest(g, id)
	if err != nil {
		return nil, err
	}
	if current.Source.GitRef != "" {
		return nil, fmt.Errorf("%w: %s was read from %s", ErrReadOnlySource, current.ID, current.Source.GitRef)
	}
	if err := checkEditOptions(g, current.Type, opts); err != nil {
		return nil, err
	}

	src := current.Source
	path := src.FullPath()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	before, err := parser.ParseDocument(string(data), src.FilePath, src.Repository)
	if err != nil {
		return nil, err
	}
	fm, err := parser.ExtractFrontmatter(string(data), src.FilePath)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(fm.YAML), &root); err != nil {
		return nil, fmt.Errorf("decoding frontmatter of %s: %w", path, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decoding frontmatter of %s: not a mapping", path)
	}
	mapping := root.Content[0]
	applyEdit(mapping, opts)

	out, err := encode(mapping)
	if err != nil {
		return nil, err
	}
	content := Compose(out, fm.Body)
	after, err := parser.ParseDocument(content, src.FilePath, src.Repository)
	if err != nil {
		return nil, fmt.Errorf("edited document does not parse: %w", err)
	}

	changes := diff.ItemChanges(before.Artifact, after.Artifact)
	if oldP, newP := before.Artifact.Attributes.Platform, after.Artifact.Attributes.Platform; oldP != newP {
		changes = append(changes, diff.FieldChange{Field: model.FieldPlatform.String(), OldValue: oldP, NewValue: newP})
	}
	res := &EditResult{ID: current.ID, File: path, Changes: changes, Artifact: after.Artifact}
	if len(changes) == 0 {
		return res, nil
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return res, nil
}

func checkEditOptions(g *graph.KnowledgeGraph, t model.ArtifactType, opts EditOptions) error {
	notFor := func(field model.FieldName) error {
		return fmt.Errorf("%w: %s does not apply to %s", ErrInvalidOption, field, t.DisplayName())
	}
	if opts.Name != nil && strings.TrimSpace(*opts.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidOption)
	}
	if opts.Specification != nil && !t.RequiresSpecification() {
		return notFor(model.FieldSpecification)
	}
	if opts.Platform != nil && !t.AcceptsPlatform() {
		return notFor(model.FieldPlatform)
	}
	for _, kind := range sortedKinds(opts.Links) {
		for _, target := range opts.Links[kind] {
			if err := checkLink(g, t, model.Relationship{Target: target, Kind: kind}); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyEdit(m *yaml.Node, opts EditOptions) {
	if opts.Name != nil {
		setKey(m, model.FieldArtifactName, scalar(*opts.Name))
	}
	setOptional(m, model.FieldDescription, opts.Description)
	setOptional(m, model.FieldPlatform, opts.Platform)
	if opts.Specification != nil {
		setKey(m, model.FieldSpecification, scalar(*opts.Specification))
	}
	for _, kind := range sortedKinds(opts.Links) {
		targets := opts.Links[kind]
		if len(targets) == 0 {
			deleteKey(m, kind.Field())
			continue
		}
		setKey(m, kind.Field(), sequence(model.IDsToStrings(targets)))
	}
}

func setOptional(m *yaml.Node, key model.FieldName, v *string) {
	switch {
	case v == nil:
	case *v == "":
		deleteKey(m, key)
	default:
		setKey(m, key, scalar(*v))
	}
}

// sortedKinds returns the kinds of links in declaration order.
func sortedKinds(links map[model.RelationshipKind][]model.ArtifactID) []model.RelationshipKind {
	kinds := make([]model.RelationshipKind, 0, len(links))
	for k := range links {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
