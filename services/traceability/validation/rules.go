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
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// Rule is one independent check over a built graph.
type Rule struct {
	// Name identifies the rule in logs and spans.
	Name string

	// Check returns the rule's findings. It must not mutate the graph.
	Check func(g *graph.KnowledgeGraph, opts Options) []Issue
}

// Rules returns the fixed validation pipeline in execution order.
// Duplicate detection is not part of it: it runs on the artifact list
// before the graph exists (see CheckDuplicateItems).
func Rules() []Rule {
	return []Rule{
		{Name: "broken_references", Check: checkBrokenReferences},
		{Name: "orphans", Check: checkOrphans},
		{Name: "cycles", Check: checkCycles},
		{Name: "relationships", Check: checkRelationships},
		{Name: "redundant_relationships", Check: checkRedundant},
		{Name: "metadata", Check: checkMetadata},
	}
}

// checkBrokenReferences reports every declared or peer reference whose
// target is not in the graph.
func checkBrokenReferences(g *graph.KnowledgeGraph, _ Options) []Issue {
	var issues []Issue
	for _, node := range g.Nodes() {
		a := node.Artifact
		for _, ref := range a.AllReferences() {
			if !g.Contains(ref.Target) {
				issues = append(issues, newBrokenReference(a, ref))
			}
		}
	}
	return issues
}

// checkOrphans reports non-root artifacts with no upstream relationship.
// An upstream relationship may come from the artifact's own declaration or
// from a parent's downstream declaration; both leave an outgoing upstream
// edge on the artifact.
func checkOrphans(g *graph.KnowledgeGraph, opts Options) []Issue {
	severity := SeverityWarning
	if opts.Strict {
		severity = SeverityError
	}
	var issues []Issue
	for _, a := range g.Orphans() {
		issues = append(issues, newOrphan(a, severity))
	}
	return issues
}

// checkCycles reports each strongly connected component of primary edges.
func checkCycles(g *graph.KnowledgeGraph, _ Options) []Issue {
	var issues []Issue
	for _, c := range g.PrimaryCycles() {
		locations := make([]model.SourceLocation, 0, len(c.Members))
		for _, id := range c.Members {
			if a, ok := g.Get(id); ok {
				locations = append(locations, a.Source)
			}
		}
		issues = append(issues, newCircular(c.Members, locations))
	}
	return issues
}

// checkRelationships checks every declared relationship, downstream and
// peer forms included, against the allowed (kind, target types) rule of the
// declaring type. References to absent targets are left to
// checkBrokenReferences.
func checkRelationships(g *graph.KnowledgeGraph, _ Options) []Issue {
	var issues []Issue
	for _, node := range g.Nodes() {
		a := node.Artifact
		for _, ref := range a.AllReferences() {
			target, ok := g.Get(ref.Target)
			if !ok {
				continue
			}
			if !model.IsValidRelationship(a.Type, target.Type, ref.Kind) {
				issues = append(issues, newInvalidRelationship(a, target, ref.Kind))
			}
		}
	}
	return issues
}

type pairKey struct {
	lo, hi model.ArtifactID
}

func canonicalPair(a, b model.ArtifactID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// checkRedundant reports a relationship declared from both ends: A declares
// a downstream kind toward B and B declares the matching upstream kind
// toward A. One warning per unordered pair.
func checkRedundant(g *graph.KnowledgeGraph, _ Options) []Issue {
	var issues []Issue
	seen := make(map[pairKey]struct{})
	for _, node := range g.Nodes() {
		a := node.Artifact
		for _, ref := range a.Downstream() {
			target, ok := g.Get(ref.Target)
			if !ok || !target.Declares(ref.Kind.Inverse(), a.ID) {
				continue
			}
			key := canonicalPair(a.ID, target.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			issues = append(issues, newRedundant(a, target, ref.Kind))
		}
	}
	return issues
}

// rfc2119Keywords are the normative keywords. Multi-word forms are covered
// by their first word.
var rfc2119Keywords = []string{"MUST", "REQUIRED", "SHALL", "SHOULD", "RECOMMENDED", "MAY", "OPTIONAL"}

func containsRFC2119Keyword(text string) bool {
	words := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if slices.Contains(rfc2119Keywords, w) {
			return true
		}
	}
	return false
}

// checkMetadata reports missing specifications, specifications without a
// normative keyword, and frontmatter fields outside the recognized set.
func checkMetadata(g *graph.KnowledgeGraph, opts Options) []Issue {
	var issues []Issue
	for _, node := range g.Nodes() {
		issues = append(issues, artifactMetadataIssues(node.Artifact, opts)...)
	}
	return issues
}

func artifactMetadataIssues(a *model.Artifact, opts Options) []Issue {
	var issues []Issue
	if a.Type.RequiresSpecification() {
		spec := strings.TrimSpace(a.Attributes.Specification)
		switch {
		case spec == "":
			issues = append(issues, newInvalidMetadata(a, SeverityError, model.FieldSpecification,
				fmt.Sprintf("%s requires a non-empty 'specification' field", a.Type.DisplayName())))
		case !containsRFC2119Keyword(spec):
			issues = append(issues, newInvalidMetadata(a, SeverityWarning, model.FieldSpecification,
				fmt.Sprintf("%s specification should contain at least one RFC 2119 keyword (MUST, SHALL, SHOULD, ...)", a.Type.DisplayName())))
		}
	}
	for _, field := range a.CustomFields {
		if model.IsRecognizedField(field) || slices.Contains(opts.AllowedCustomFields, field) {
			continue
		}
		issues = append(issues, newUnrecognizedField(a, field))
	}
	return issues
}

// CheckDuplicateItems groups artifacts by id and reports every id defined
// at two or more source locations, in order of first appearance.
//
// It runs on the flat artifact list so that duplicates are reported before
// the graph builder silently keeps only the last definition.
func CheckDuplicateItems(artifacts []*model.Artifact) []Issue {
	order := make([]model.ArtifactID, 0, len(artifacts))
	locations := make(map[model.ArtifactID][]model.SourceLocation, len(artifacts))
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		if _, seen := locations[a.ID]; !seen {
			order = append(order, a.ID)
		}
		locations[a.ID] = append(locations[a.ID], a.Source)
	}

	var issues []Issue
	for _, id := range order {
		if locs := locations[id]; len(locs) >= 2 {
			issues = append(issues, newDuplicate(id, locs))
		}
	}
	return issues
}

// checkIdentifiers reports artifacts whose id does not satisfy the format
// rules. Parsed artifacts are already checked; this guards artifacts built
// by other callers.
func checkIdentifiers(artifacts []*model.Artifact) []Issue {
	var issues []Issue
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		if _, err := model.NewArtifactID(string(a.ID)); err != nil {
			issues = append(issues, newInvalidID(a, err))
		}
	}
	return issues
}
