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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" {
			*l = nil
			return nil
		}
		*l = stringList{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make(stringList, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a string, got %s", item.Line, nodeKind(item))
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings, got %s", value.Line, nodeKind(value))
	}
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "a scalar"
	}
}

// rawFrontmatter mirrors the recognized frontmatter keys. Pointers
// distinguish an absent key from an empty value.
type rawFrontmatter struct {
	ID          *string `yaml:"id"`
	Type        *string `yaml:"type"`
	Name        *string `yaml:"name"`
	Description string  `yaml:"description"`

	Refines     stringList `yaml:"refines"`
	DerivesFrom stringList `yaml:"derives_from"`
	Satisfies   stringList `yaml:"satisfies"`
	Justifies   stringList `yaml:"justifies"`

	IsRefinedBy   stringList `yaml:"is_refined_by"`
	Derives       stringList `yaml:"derives"`
	IsSatisfiedBy stringList `yaml:"is_satisfied_by"`
	JustifiedBy   stringList `yaml:"justified_by"`

	IsRequiredBy stringList `yaml:"is_required_by"`
	SupersededBy stringList `yaml:"superseded_by"`

	Specification *string    `yaml:"specification"`
	DependsOn     stringList `yaml:"depends_on"`
	Platform      string     `yaml:"platform"`
	Status        *string    `yaml:"status"`
	Deciders      stringList `yaml:"deciders"`
	Supersedes    stringList `yaml:"supersedes"`
}

// relationshipFields lists the declared relationship keys in the order they
// are added to the artifact.
func (r *rawFrontmatter) relationshipFields() []struct {
	kind    model.RelationshipKind
	targets stringList
} {
	return []struct {
		kind    model.RelationshipKind
		targets stringList
	}{
		{model.KindRefines, r.Refines},
		{model.KindDerivesFrom, r.DerivesFrom},
		{model.KindSatisfies, r.Satisfies},
		{model.KindJustifies, r.Justifies},
		{model.KindIsRefinedBy, r.IsRefinedBy},
		{model.KindDerives, r.Derives},
		{model.KindIsSatisfiedBy, r.IsSatisfiedBy},
		{model.KindIsJustifiedBy, r.JustifiedBy},
		{model.KindIsRequiredBy, r.IsRequiredBy},
		{model.KindIsSupersededBy, r.SupersededBy},
	}
}

// Document is a parsed artifact together with its Markdown body.
type Document struct {
	Artifact *model.Artifact
	Body     string
}

// ParseMarkdown parses a document into an artifact.
//
// Description:
//
//	id, type and name are required. Requirement types also require
//	specification; ADRs require status and deciders. Relationship keys
//	accept a single id or a list. Keys outside the recognized set are
//	recorded on Artifact.CustomFields in document order.
//
// Inputs:
//
//	content - Full document text.
//	relPath - Path relative to the repository root, used for locations.
//	repository - Repository root.
//
// Outputs:
//
//	*model.Artifact - The parsed artifact.
//	error - A *ParseError wrapping one of the package sentinels.
func ParseMarkdown(content, relPath, repository string) (*model.Artifact, error) {
	doc, err := ParseDocument(content, relPath, repository)
	if err != nil {
		return nil, err
	}
	return doc.Artifact, nil
}

// ParseDocument parses a document and keeps its body.
func ParseDocument(content, relPath, repository string) (*Document, error) {
	fm, err := ExtractFrontmatter(content, relPath)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(fm.YAML), &root); err != nil {
		return nil, &ParseError{Kind: ErrInvalidFrontmatter, File: relPath, Line: 1, Reason: err.Error()}
	}
	mapping := documentMapping(&root)
	if mapping == nil {
		return nil, &ParseError{Kind: ErrInvalidFrontmatter, File: relPath, Line: 1, Reason: "frontmatter is not a mapping"}
	}

	var raw rawFrontmatter
	if err := mapping.Decode(&raw); err != nil {
		return nil, &ParseError{Kind: ErrInvalidFrontmatter, File: relPath, Line: 1, Reason: err.Error()}
	}

	a, err := raw.toArtifact(relPath)
	if err != nil {
		return nil, err
	}
	a.Source = model.SourceLocation{Repository: repository, FilePath: relPath, Line: fm.StartLine}
	a.CustomFields = customFields(mapping)

	return &Document{Artifact: a, Body: fm.Body}, nil
}

// ParseFile reads path and parses it. path must lie under repository.
func ParseFile(path, repository string) (*model.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rel, err := filepath.Rel(repository, path)
	if err != nil {
		rel = path
	}
	return ParseMarkdown(string(data), filepath.ToSlash(rel), repository)
}

// documentMapping returns the top-level mapping of a decoded document, or
// nil if the document is empty or not a mapping.
func documentMapping(root *yaml.Node) *yaml.Node {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	if m := root.Content[0]; m.Kind == yaml.MappingNode {
		return m
	}
	return nil
}

func customFields(mapping *yaml.Node) []string {
	var out []string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		if !model.IsRecognizedField(key) {
			out = append(out, key)
		}
	}
	return out
}

func (r *rawFrontmatter) toArtifact(file string) (*model.Artifact, error) {
	if r.ID == nil {
		return nil, missingField(file, model.FieldID.String())
	}
	if r.Type == nil {
		return nil, missingField(file, model.FieldType.String())
	}
	if r.Name == nil {
		return nil, missingField(file, model.FieldArtifactName.String())
	}

	id, err := model.NewArtifactID(strings.TrimSpace(*r.ID))
	if err != nil {
		return nil, invalidField(file, model.FieldID.String(), err)
	}
	typ, err := model.ParseArtifactType(strings.TrimSpace(*r.Type))
	if err != nil {
		return nil, invalidField(file, model.FieldType.String(), err)
	}

	a := &model.Artifact{
		ID:          id,
		Type:        typ,
		Name:        *r.Name,
		Description: r.Description,
	}

	for _, f := range r.relationshipFields() {
		for _, target := range f.targets {
			a.Relationships = append(a.Relationships, model.Relationship{
				Target: model.ArtifactID(strings.TrimSpace(target)),
				Kind:   f.kind,
			})
		}
	}

	switch {
	case typ.RequiresSpecification():
		if r.Specification == nil {
			return nil, missingField(file, model.FieldSpecification.String())
		}
		a.Attributes.Specification = *r.Specification
		a.Attributes.DependsOn = toIDs(r.DependsOn)
	case typ.AcceptsPlatform():
		a.Attributes.Platform = r.Platform
	case typ.IsADR():
		if r.Status == nil {
			return nil, missingField(file, model.FieldStatus.String())
		}
		status, err := model.ParseAdrStatus(*r.Status)
		if err != nil {
			return nil, invalidField(file, model.FieldStatus.String(), err)
		}
		if len(r.Deciders) == 0 {
			return nil, missingField(file, model.FieldDeciders.String())
		}
		a.Attributes.Status = status
		a.Attributes.Deciders = []string(r.Deciders)
		a.Attributes.Supersedes = toIDs(r.Supersedes)
	}

	return a, nil
}

func toIDs(values stringList) []model.ArtifactID {
	if len(values) == 0 {
		return nil
	}
	out := make([]model.ArtifactID, len(values))
	for i, v := range values {
		out[i] = model.ArtifactID(strings.TrimSpace(v))
	}
	return out
}
