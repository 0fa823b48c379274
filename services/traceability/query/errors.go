// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query answers lookups and traceability questions over a built
// knowledge graph.
//
// # Lookup
//
// Lookup resolves an id exactly. A miss is not an error: it yields a
// NotFound result carrying up to five ids ranked by case-insensitive
// Levenshtein distance to the query.
//
// # Thread Safety
//
// Every function in this package is read-only against a frozen graph and is
// safe for concurrent use.
package query

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

var (
	// ErrNotFound indicates an id has no artifact in the graph.
	ErrNotFound = errors.New("artifact not found")

	// ErrMissingParent indicates no artifact of the required parent type
	// exists.
	ErrMissingParent = errors.New("required parent type missing")
)

// NotFoundError reports a failed lookup with suggestions.
type NotFoundError struct {
	// ID is the id that was looked up.
	ID string

	// Suggestions are similar ids, closest first.
	Suggestions []model.ArtifactID
}

// Error implements error.
func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("artifact %s not found", e.ID)
	}
	return fmt.Sprintf("artifact %s not found, did you mean: %v", e.ID, model.IDsToStrings(e.Suggestions))
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// MissingParentError reports that an artifact type cannot be created
// because no artifact of its required parent type exists yet.
type MissingParentError struct {
	Type       model.ArtifactType
	ParentType model.ArtifactType
}

// Error implements error.
func (e *MissingParentError) Error() string {
	return fmt.Sprintf("cannot create %s: no %s items exist, create a %s first",
		e.Type.DisplayName(), e.ParentType.DisplayName(), e.ParentType.DisplayName())
}

// Unwrap returns ErrMissingParent.
func (e *MissingParentError) Unwrap() error {
	return ErrMissingParent
}
