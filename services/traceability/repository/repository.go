// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repository loads artifacts from document repositories.
//
// Three sources are supported:
//
//   - Scanner walks working-tree directories and parses Markdown files in
//     parallel.
//   - GitSnapshot reads the same file set at a historical git ref.
//   - Watcher reports debounced changes to watched directories.
//
// # Concurrency
//
// Scanner parses each file on its own goroutine with no shared mutable
// state. Results are merged into one artifact list, in path order, only
// after every worker has finished.
package repository

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNoArtifacts indicates that files were found but none parsed.
	ErrNoArtifacts = errors.New("no artifacts parsed")

	// ErrNotARepository indicates a path is not a git repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrUnknownRef indicates a git ref could not be resolved.
	ErrUnknownRef = errors.New("unknown git ref")
)

// FileError is a parse failure for one file.
type FileError struct {
	Repository string
	Path       string
	Err        error
}

// Error implements error.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", path.Join(e.Repository, e.Path), e.Err)
}

// Unwrap returns the underlying parse error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// PathFilter selects repository-relative paths with doublestar globs.
// An empty Include matches everything; any Exclude match wins.
type PathFilter struct {
	Include []string
	Exclude []string
}

// Validate checks every pattern for syntax errors.
func (f PathFilter) Validate() error {
	for _, p := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Match reports whether relPath (slash separated) is selected.
func (f PathFilter) Match(relPath string) bool {
	for _, p := range f.Exclude {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	return false
}

// IsMarkdown reports whether name has a Markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}

// isHidden reports whether any element of a slash separated relative path
// starts with a dot.
func isHidden(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
