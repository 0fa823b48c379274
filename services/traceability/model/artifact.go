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
	"fmt"
	"path/filepath"
	"strings"
)

// AdrStatus is the lifecycle state of an architecture decision record.
type AdrStatus string

// ADR statuses.
const (
	AdrProposed   AdrStatus = "proposed"
	AdrAccepted   AdrStatus = "accepted"
	AdrDeprecated AdrStatus = "deprecated"
	AdrSuperseded AdrStatus = "superseded"
)

// ParseAdrStatus validates s as an ADR status (case-insensitive).
func ParseAdrStatus(s string) (AdrStatus, error) {
	switch st := AdrStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AdrProposed, AdrAccepted, AdrDeprecated, AdrSuperseded:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q (expected proposed, accepted, deprecated or superseded)",
			ErrUnknownAdrStatus, s)
	}
}

// SourceLocation is where an artifact was read from.
type SourceLocation struct {
	// Repository is the root path of the repository containing the file.
	Repository string `json:"repository"`

	// FilePath is relative to Repository.
	FilePath string `json:"file_path"`

	// Line is the 1-based line of the frontmatter start, 0 if unknown.
	Line int `json:"line,omitempty"`

	// GitRef is set when the artifact was read from a historical snapshot.
	GitRef string `json:"git_ref,omitempty"`
}

// FullPath joins the repository root and the relative file path.
func (l SourceLocation) FullPath() string {
	if l.Repository == "" {
		return l.FilePath
	}
	return filepath.Join(l.Repository, l.FilePath)
}

// String renders the location as "path[:line][@ref]".
func (l SourceLocation) String() string {
	var b strings.Builder
	b.WriteString(l.FullPath())
	if l.Line > 0 {
		fmt.Fprintf(&b, ":%d", l.Line)
	}
	if l.GitRef != "" {
		b.WriteString("@")
		b.WriteString(l.GitRef)
	}
	return b.String()
}

// Attributes holds type-specific artifact data. Fields that do not apply
// to the artifact's type are left zero.
type Attributes struct {
	// Specification is the normative text of a requirement.
	Specification string `json:"specification,omitempty"`

	// DependsOn lists peer requirements this requirement depends on.
	DependsOn []ArtifactID `json:"depends_on,omitempty"`

	// Platform is the target platform of a system architecture.
	Platform string `json:"platform,omitempty"`

	// Status is the ADR lifecycle state.
	Status AdrStatus `json:"status,omitempty"`

	// Deciders lists the people who made the decision.
	Deciders []string `json:"deciders,omitempty"`

	// Supersedes lists older ADRs replaced by this one.
	Supersedes []ArtifactID `json:"supersedes,omitempty"`
}

// Artifact is one engineering document and a node of the knowledge graph.
//
// Artifacts are values produced by the parser. The graph stores them by
// pointer and they MUST NOT be mutated once handed to a builder.
type Artifact struct {
	// ID is unique across all repositories.
	ID ArtifactID `json:"id"`

	// Type is the artifact kind.
	Type ArtifactType `json:"type"`

	// Name is the human readable title.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// Source is where the artifact was declared.
	Source SourceLocation `json:"source"`

	// Relationships are upstream and downstream references as declared,
	// in declaration order.
	Relationships []Relationship `json:"relationships,omitempty"`

	// Attributes holds type-specific data.
	Attributes Attributes `json:"attributes"`

	// CustomFields are frontmatter keys that have no defined meaning,
	// in document order.
	CustomFields []string `json:"custom_fields,omitempty"`
}

// Upstream returns the declared relationships pointing toward the root.
func (a *Artifact) Upstream() []Relationship {
	return a.filter(RelationshipKind.IsUpstream)
}

// Downstream returns the declared relationships pointing away from the root.
func (a *Artifact) Downstream() []Relationship {
	return a.filter(RelationshipKind.IsDownstream)
}

// HasUpstream reports whether the artifact declares at least one upstream
// reference.
func (a *Artifact) HasUpstream() bool {
	for _, r := range a.Relationships {
		if r.Kind.IsUpstream() {
			return true
		}
	}
	return false
}

// PeerRelationships returns depends_on and supersedes attributes expressed
// as relationships.
func (a *Artifact) PeerRelationships() []Relationship {
	out := make([]Relationship, 0, len(a.Attributes.DependsOn)+len(a.Attributes.Supersedes))
	for _, id := range a.Attributes.DependsOn {
		out = append(out, Relationship{Target: id, Kind: KindDependsOn})
	}
	for _, id := range a.Attributes.Supersedes {
		out = append(out, Relationship{Target: id, Kind: KindSupersedes})
	}
	return out
}

// AllReferences returns declared relationships followed by peer references.
func (a *Artifact) AllReferences() []Relationship {
	refs := make([]Relationship, 0, len(a.Relationships)+len(a.Attributes.DependsOn)+len(a.Attributes.Supersedes))
	refs = append(refs, a.Relationships...)
	return append(refs, a.PeerRelationships()...)
}

// TargetsOf returns the targets of declared relationships of kind.
func (a *Artifact) TargetsOf(kind RelationshipKind) []ArtifactID {
	var ids []ArtifactID
	for _, r := range a.Relationships {
		if r.Kind == kind {
			ids = append(ids, r.Target)
		}
	}
	return ids
}

// Declares reports whether the artifact declares kind toward target.
func (a *Artifact) Declares(kind RelationshipKind, target ArtifactID) bool {
	for _, r := range a.Relationships {
		if r.Kind == kind && r.Target == target {
			return true
		}
	}
	return false
}

func (a *Artifact) filter(keep func(RelationshipKind) bool) []Relationship {
	var out []Relationship
	for _, r := range a.Relationships {
		if keep(r.Kind) {
			out = append(out, r)
		}
	}
	return out
}
