// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks a knowledge graph for structural and
// referential integrity.
//
// Validation findings are data, not errors. Every rule runs on every
// validation and contributes its full set of issues, so one run reports the
// complete defect picture. A report is valid iff it contains no issue of
// SeverityError.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// Severity classifies an issue.
type Severity int

const (
	// SeverityError makes a report invalid.
	SeverityError Severity = iota

	// SeverityWarning is reported but does not make a report invalid.
	SeverityWarning
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity as its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Code is the stable machine-readable identifier of an issue kind.
type Code string

// Issue codes.
const (
	CodeInvalidID             Code = "invalid_id"
	CodeBrokenReference       Code = "broken_reference"
	CodeOrphanItem            Code = "orphan_item"
	CodeDuplicateIdentifier   Code = "duplicate_identifier"
	CodeCircularReference     Code = "circular_reference"
	CodeInvalidRelationship   Code = "invalid_relationship"
	CodeInvalidMetadata       Code = "invalid_metadata"
	CodeUnrecognizedField     Code = "unrecognized_field"
	CodeRedundantRelationship Code = "redundant_relationship"
)

// Issue is one validation finding.
//
// Only the fields meaningful for the issue's Code are set.
type Issue struct {
	// Severity is Error or Warning.
	Severity Severity `json:"severity"`

	// Code identifies the kind of finding.
	Code Code `json:"code"`

	// Message is a rendered, human readable description.
	Message string `json:"message"`

	// ArtifactID is the artifact the finding is about.
	ArtifactID model.ArtifactID `json:"artifact_id,omitempty"`

	// Target is the referenced artifact for reference and relationship issues.
	Target model.ArtifactID `json:"target,omitempty"`

	// Members lists the artifacts of a cycle in component order.
	Members []model.ArtifactID `json:"members,omitempty"`

	// Locations lists every source location involved. Duplicate
	// identifiers carry one location per definition.
	Locations []model.SourceLocation `json:"locations,omitempty"`

	// Kind is the relationship kind for relationship issues.
	Kind model.RelationshipKind `json:"kind,omitempty"`

	// FromType and ToType are the endpoint types of an invalid relationship.
	FromType model.ArtifactType `json:"from_type,omitempty"`
	ToType   model.ArtifactType `json:"to_type,omitempty"`

	// Field is the frontmatter field for metadata issues.
	Field string `json:"field,omitempty"`
}

// String renders the issue as "severity[code]: message".
func (i Issue) String() string {
	return fmt.Sprintf("%s[%s]: %s", i.Severity, i.Code, i.Message)
}

// IsError reports whether the issue has SeverityError.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// MarshalJSON omits zero-valued enums that would otherwise render as
// "unknown".
func (i Issue) MarshalJSON() ([]byte, error) {
	type plain Issue
	out := struct {
		plain
		Kind     string `json:"kind,omitempty"`
		FromType string `json:"from_type,omitempty"`
		ToType   string `json:"to_type,omitempty"`
	}{plain: plain(i)}
	if i.Kind != model.KindUnknown {
		out.Kind = i.Kind.String()
	}
	if i.FromType.Valid() {
		out.FromType = i.FromType.String()
	}
	if i.ToType.Valid() {
		out.ToType = i.ToType.String()
	}
	return json.Marshal(out)
}

func newBrokenReference(from *model.Artifact, ref model.Relationship) Issue {
	return Issue{
		Severity:   SeverityError,
		Code:       CodeBrokenReference,
		Message:    fmt.Sprintf("broken reference: %s references non-existent item %s (%s)", from.ID, ref.Target, ref.Kind),
		ArtifactID: from.ID,
		Target:     ref.Target,
		Kind:       ref.Kind,
		Locations:  []model.SourceLocation{from.Source},
	}
}

func newOrphan(a *model.Artifact, severity Severity) Issue {
	return Issue{
		Severity:   severity,
		Code:       CodeOrphanItem,
		Message:    fmt.Sprintf("orphan item: %s (%s) has no upstream parent", a.ID, a.Type.DisplayName()),
		ArtifactID: a.ID,
		Locations:  []model.SourceLocation{a.Source},
	}
}

func newDuplicate(id model.ArtifactID, locations []model.SourceLocation) Issue {
	paths := make([]string, len(locations))
	for i, l := range locations {
		paths[i] = l.String()
	}
	return Issue{
		Severity:   SeverityError,
		Code:       CodeDuplicateIdentifier,
		Message:    fmt.Sprintf("duplicate identifier: %s defined in multiple files: %s", id, strings.Join(paths, ", ")),
		ArtifactID: id,
		Locations:  locations,
	}
}

func newCircular(members []model.ArtifactID, locations []model.SourceLocation) Issue {
	names := model.IDsToStrings(members)
	chain := strings.Join(names, " -> ")
	if len(names) > 0 {
		chain += " -> " + names[0]
	}
	return Issue{
		Severity:   SeverityError,
		Code:       CodeCircularReference,
		Message:    "circular reference detected: " + chain,
		ArtifactID: members[0],
		Members:    members,
		Locations:  locations,
	}
}

func newInvalidRelationship(from *model.Artifact, to *model.Artifact, kind model.RelationshipKind) Issue {
	return Issue{
		Severity:   SeverityError,
		Code:       CodeInvalidRelationship,
		Message:    fmt.Sprintf("invalid relationship: %s (%s) cannot %s %s (%s)", from.ID, from.Type.DisplayName(), kind, to.ID, to.Type.DisplayName()),
		ArtifactID: from.ID,
		Target:     to.ID,
		Kind:       kind,
		FromType:   from.Type,
		ToType:     to.Type,
		Locations:  []model.SourceLocation{from.Source},
	}
}

func newRedundant(a, b *model.Artifact, kind model.RelationshipKind) Issue {
	return Issue{
		Severity: SeverityWarning,
		Code:     CodeRedundantRelationship,
		Message: fmt.Sprintf("redundant relationship: %s declares %s %s and %s declares %s %s; keep only the upstream declaration",
			a.ID, kind, b.ID, b.ID, kind.Inverse(), a.ID),
		ArtifactID: a.ID,
		Target:     b.ID,
		Kind:       kind,
		Locations:  []model.SourceLocation{a.Source, b.Source},
	}
}

func newInvalidMetadata(a *model.Artifact, severity Severity, field model.FieldName, reason string) Issue {
	return Issue{
		Severity:   severity,
		Code:       CodeInvalidMetadata,
		Message:    fmt.Sprintf("invalid metadata in %s: %s", a.Source.FilePath, reason),
		ArtifactID: a.ID,
		Field:      string(field),
		Locations:  []model.SourceLocation{a.Source},
	}
}

func newUnrecognizedField(a *model.Artifact, field string) Issue {
	return Issue{
		Severity:   SeverityWarning,
		Code:       CodeUnrecognizedField,
		Message:    fmt.Sprintf("unrecognized field '%s' in %s", field, a.Source.FilePath),
		ArtifactID: a.ID,
		Field:      field,
		Locations:  []model.SourceLocation{a.Source},
	}
}

func newInvalidID(a *model.Artifact, err error) Issue {
	return Issue{
		Severity:   SeverityError,
		Code:       CodeInvalidID,
		Message:    fmt.Sprintf("invalid item id in %s: %v", a.Source.FilePath, err),
		ArtifactID: a.ID,
		Locations:  []model.SourceLocation{a.Source},
	}
}
