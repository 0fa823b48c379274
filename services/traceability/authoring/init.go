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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/parser"
	"github.com/AleutianAI/reqgraph/services/traceability/query"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

var tracer = otel.Tracer("reqgraph.authoring")

// PlaceholderSpecification is written for requirement types when no
// specification is given.
const PlaceholderSpecification = "The system SHALL <describe the requirement>."

// DefaultDecider is written for ADRs when no deciders are given.
const DefaultDecider = "TBD"

// InitOptions describes the item Init writes.
type InitOptions struct {
	Type model.ArtifactType

	// ID is the identifier to use. Empty means the next free one.
	ID string

	// Name is the item name. Empty means the first "# " heading of an
	// existing file, then the file name without extension.
	Name        string
	Description string

	// Links are upstream relationships. Every target must exist.
	Links []model.Relationship

	// Specification and DependsOn apply to requirement types only.
	Specification string
	DependsOn     []model.ArtifactID

	// Platform applies to system architectures only.
	Platform string

	// Status, Deciders and Supersedes apply to ADRs only.
	Status     model.AdrStatus
	Deciders   []string
	Supersedes []model.ArtifactID

	// Force replaces an existing frontmatter block.
	Force bool
}

// InitResult reports what Init wrote.
type InitResult struct {
	ID   model.ArtifactID   `json:"id"`
	Name string             `json:"name"`
	Type model.ArtifactType `json:"type"`
	File string             `json:"file"`

	// UpdatedExisting is set when path already existed.
	UpdatedExisting bool `json:"updated_existing"`

	// ReplacedFrontmatter is set when an existing block was overwritten.
	ReplacedFrontmatter bool `json:"replaced_frontmatter"`

	// NeedsSpecification is set when PlaceholderSpecification was used.
	NeedsSpecification bool `json:"needs_specification"`

	// Artifact is the item as parsed back from the written document.
	Artifact *model.Artifact `json:"-"`
}

// Init writes a frontmatter block for a new item to path.
//
// Description:
//
//	A missing file is created together with its directories and gets a
//	heading and section skeleton for the type. An existing file without
//	frontmatter gets the block prepended. An existing block is replaced
//	only with Force, keeping the body. The written document is parsed
//	back before Init returns.
//
// Inputs:
//
//	ctx - Carries the trace span.
//	g - The current graph. Must not be nil.
//	path - Target document.
//	opts - The item to write.
//
// Outputs:
//
//	*InitResult - What was written.
//	error - ErrFrontmatterExists, ErrIDInUse, ErrInvalidOption,
//	        ErrInvalidLink or *query.NotFoundError, wrapped.
func Init(ctx context.Context, g *graph.KnowledgeGraph, path string, opts InitOptions) (*InitResult, error) {
	_, span := tracer.Start(ctx, "authoring.Init",
		trace.WithAttributes(attribute.String("file", path), attribute.String("item.type", opts.Type.String())))
	defer span.End()

	res, err := initDocument(g, path, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("item.id", res.ID.String()))
	slog.Info("document initialized",
		slog.String("id", res.ID.String()),
		slog.String("file", res.File),
		slog.Bool("updated_existing", res.UpdatedExisting),
	)
	return res, nil
}

func initDocument(g *graph.KnowledgeGraph, path string, opts InitOptions) (*InitResult, error) {
	if err := checkInitOptions(opts); err != nil {
		return nil, err
	}

	var existing string
	exists := false
	switch data, err := os.ReadFile(path); {
	case err == nil:
		existing, exists = string(data), true
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	hasFrontmatter := exists && parser.HasFrontmatter(existing)
	if hasFrontmatter && !opts.Force {
		return nil, fmt.Errorf("%w: %s (use force to replace it)", ErrFrontmatterExists, path)
	}

	id, err := resolveID(g, path, opts)
	if err != nil {
		return nil, err
	}
	for _, link := range opts.Links {
		if err := checkLink(g, opts.Type, link); err != nil {
			return nil, err
		}
	}

	body := existing
	if hasFrontmatter {
		body = parser.ExtractBody(existing)
	}
	name := opts.Name
	if name == "" {
		name = defaultName(path, body)
	}

	a := &model.Artifact{
		ID:            id,
		Type:          opts.Type,
		Name:          name,
		Description:   opts.Description,
		Relationships: opts.Links,
	}
	res := &InitResult{ID: id, Name: name, Type: opts.Type, File: path,
		UpdatedExisting: exists, ReplacedFrontmatter: hasFrontmatter}

	switch {
	case opts.Type.RequiresSpecification():
		a.Attributes.Specification = opts.Specification
		if strings.TrimSpace(a.Attributes.Specification) == "" {
			a.Attributes.Specification = PlaceholderSpecification
			res.NeedsSpecification = true
		}
		a.Attributes.DependsOn = opts.DependsOn
	case opts.Type.AcceptsPlatform():
		a.Attributes.Platform = opts.Platform
	case opts.Type.IsADR():
		a.Attributes.Status = opts.Status
		if a.Attributes.Status == "" {
			a.Attributes.Status = model.AdrProposed
		}
		a.Attributes.Deciders = opts.Deciders
		if len(a.Attributes.Deciders) == 0 {
			a.Attributes.Deciders = []string{DefaultDecider}
		}
		a.Attributes.Supersedes = opts.Supersedes
	}

	fm, err := Frontmatter(a)
	if err != nil {
		return nil, err
	}
	if !exists {
		body = skeleton(a)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	content := Compose(fm, body)

	doc, err := parser.ParseDocument(content, filepath.ToSlash(path), "")
	if err != nil {
		return nil, fmt.Errorf("generated document does not parse: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	res.Artifact = doc.Artifact
	return res, nil
}

// checkInitOptions rejects attributes that do not apply to the type.
func checkInitOptions(opts InitOptions) error {
	t := opts.Type
	if !t.Valid() {
		return fmt.Errorf("%w: unknown item type", ErrInvalidOption)
	}
	notFor := func(field model.FieldName) error {
		return fmt.Errorf("%w: %s does not apply to %s", ErrInvalidOption, field, t.DisplayName())
	}
	if !t.RequiresSpecification() {
		if opts.Specification != "" {
			return notFor(model.FieldSpecification)
		}
		if len(opts.DependsOn) > 0 {
			return notFor(model.FieldDependsOn)
		}
	}
	if !t.AcceptsPlatform() && opts.Platform != "" {
		return notFor(model.FieldPlatform)
	}
	if !t.IsADR() {
		switch {
		case opts.Status != "":
			return notFor(model.FieldStatus)
		case len(opts.Deciders) > 0:
			return notFor(model.FieldDeciders)
		case len(opts.Supersedes) > 0:
			return notFor(model.FieldSupersedes)
		}
	}
	return nil
}

// resolveID validates opts.ID or picks the next free one. An id already
// held by the document being replaced is allowed.
func resolveID(g *graph.KnowledgeGraph, path string, opts InitOptions) (model.ArtifactID, error) {
	if opts.ID == "" {
		return query.SuggestNextID(g, opts.Type), nil
	}
	id, err := model.NewArtifactID(opts.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if other, ok := g.Get(id); ok && !(opts.Force && samePath(other.Source.FullPath(), path)) {
		return "", fmt.Errorf("%w: %s is defined in %s", ErrIDInUse, id, other.Source)
	}
	return id, nil
}

// checkLink requires the target to exist and the kind to be allowed
// between the two types.
func checkLink(g *graph.KnowledgeGraph, from model.ArtifactType, link model.Relationship) error {
	if !slices.Contains(linkKinds, link.Kind) {
		return fmt.Errorf("%w: %s cannot be set directly", ErrInvalidOption, link.Kind)
	}
	target, err := query.LookupOrSuggest(g, link.Target.String())
	if err != nil {
		return err
	}
	if !model.IsValidRelationship(from, target.Type, link.Kind) {
		return fmt.Errorf("%w: %s may not use %s toward %s (%s)", ErrInvalidLink,
			from.DisplayName(), link.Kind, target.ID, target.Type.DisplayName())
	}
	return nil
}

func defaultName(path, body string) string {
	if name, ok := parser.ExtractName(body); ok {
		return name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// sections are the body headings written for a new document.
var sections = map[model.ArtifactType][]string{
	model.TypeSolution:               {"Overview", "Goals & KPIs"},
	model.TypeUseCase:                {"Actors", "Main Flow"},
	model.TypeScenario:               {"Preconditions", "Steps", "Expected Outcome"},
	model.TypeSystemRequirement:      {"Rationale", "Acceptance Criteria"},
	model.TypeHardwareRequirement:    {"Rationale", "Acceptance Criteria"},
	model.TypeSoftwareRequirement:    {"Rationale", "Acceptance Criteria"},
	model.TypeSystemArchitecture:     {"Overview", "Components", "Interfaces"},
	model.TypeHardwareDetailedDesign: {"Overview", "Design"},
	model.TypeSoftwareDetailedDesign: {"Overview", "Design"},
	model.TypeADR:                    {"Context and problem statement", "Considered Options", "Decision Outcome"},
}

func skeleton(a *model.Artifact) string {
	title := a.Type.DisplayName()
	if a.Type.IsADR() {
		title = "Architecture Decision"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n", title, a.Name)
	for _, s := range sections[a.Type] {
		fmt.Fprintf(&b, "\n## %s\n", s)
	}
	return b.String()
}
