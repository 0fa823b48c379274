// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package authoring creates and edits requirement documents.
//
// Init writes a new frontmatter block, either into a new file or on top of
// an existing Markdown file. Edit rewrites selected frontmatter fields of an
// existing item in place and keeps its body. Both check their input against
// the current knowledge graph, so link targets must already exist.
//
// Frontmatter is encoded through gopkg.in/yaml.v3 nodes. Edit modifies the
// decoded node tree rather than a struct, so unrecognized keys, key order
// and comments survive a rewrite.
package authoring

import "errors"

var (
	// ErrFrontmatterExists indicates Init found a frontmatter block and
	// Force was not set.
	ErrFrontmatterExists = errors.New("file already has frontmatter")

	// ErrIDInUse indicates the requested identifier belongs to another item.
	ErrIDInUse = errors.New("identifier already in use")

	// ErrInvalidOption indicates an option that does not apply to the
	// item type or has an unusable value.
	ErrInvalidOption = errors.New("invalid option")

	// ErrInvalidLink indicates a link whose target type is not allowed for
	// the relationship kind.
	ErrInvalidLink = errors.New("invalid relationship")

	// ErrReadOnlySource indicates the item was read from a git snapshot.
	ErrReadOnlySource = errors.New("item is not in the working tree")

	// ErrNothingToEdit indicates Edit was called without any change.
	ErrNothingToEdit = errors.New("no fields to edit")
)
