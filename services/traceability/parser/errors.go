// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser turns Markdown documents with YAML frontmatter into
// artifacts.
//
// A document starts with a "---" line, carries YAML up to the next "---"
// line, and continues with a free Markdown body:
//
//	---
//	id: "SYSREQ-001"
//	type: system_requirement
//	name: "Response time"
//	specification: "The system SHALL respond within 100ms."
//	derives_from:
//	  - "SCEN-001"
//	---
//	# Response time
//
// Frontmatter keys with no defined meaning are kept on
// model.Artifact.CustomFields for the validation layer to report.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. A *ParseError wraps exactly one of them.
var (
	// ErrMissingFrontmatter indicates the document does not start with "---".
	ErrMissingFrontmatter = errors.New("missing frontmatter")

	// ErrInvalidFrontmatter indicates unterminated or malformed YAML, or a
	// field with an invalid value.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")

	// ErrMissingField indicates a required field is absent.
	ErrMissingField = errors.New("missing required field")
)

// ParseError describes why a document could not be parsed.
type ParseError struct {
	// Kind is one of the package sentinel errors.
	Kind error

	// File is the document path relative to its repository.
	File string

	// Line is the 1-based line the problem was found on, 0 if unknown.
	Line int

	// Field is the offending frontmatter key, if any.
	Field string

	// Reason is a human readable detail.
	Reason string
}

// Error implements error.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.File)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " '%s'", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Unwrap returns the sentinel kind.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

func missingField(file, field string) *ParseError {
	return &ParseError{Kind: ErrMissingField, File: file, Line: 1, Field: field}
}

func invalidField(file, field string, err error) *ParseError {
	return &ParseError{Kind: ErrInvalidFrontmatter, File: file, Line: 1, Field: field, Reason: err.Error()}
}
