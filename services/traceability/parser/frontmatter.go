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
	"strings"
)

const delimiter = "---"

// Frontmatter is the YAML block of a document and the body that follows.
type Frontmatter struct {
	// YAML is the text between the delimiters.
	YAML string

	// StartLine and EndLine are the 1-based lines of the opening and
	// closing delimiters.
	StartLine int
	EndLine   int

	// Body is everything after the closing delimiter.
	Body string
}

// ExtractFrontmatter splits content into its YAML block and body.
//
// Errors:
//
//	ErrMissingFrontmatter - The first line is not "---".
//	ErrInvalidFrontmatter - No closing "---" line.
func ExtractFrontmatter(content, file string) (*Frontmatter, error) {
	lines := splitLines(content)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return nil, &ParseError{Kind: ErrMissingFrontmatter, File: file}
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, &ParseError{
			Kind:   ErrInvalidFrontmatter,
			File:   file,
			Line:   1,
			Reason: "missing closing '---' delimiter",
		}
	}

	return &Frontmatter{
		YAML:      strings.Join(lines[1:end], "\n"),
		StartLine: 1,
		EndLine:   end + 1,
		Body:      strings.Join(lines[end+1:], "\n"),
	}, nil
}

// HasFrontmatter reports whether content looks like it starts with a
// frontmatter block. Leading blank space is ignored.
func HasFrontmatter(content string) bool {
	return strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), delimiter)
}

// ExtractBody returns the content after the frontmatter block, or content
// unchanged when there is no complete block.
func ExtractBody(content string) string {
	fm, err := ExtractFrontmatter(content, "")
	if err != nil {
		return content
	}
	return fm.Body
}

// ExtractName returns the text of the first level-one Markdown heading.
func ExtractName(body string) (string, bool) {
	for _, line := range splitLines(body) {
		if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(heading), true
		}
	}
	return "", false
}

// splitLines splits on "\n", drops a trailing "\r" from each line, and
// drops the empty element after a final newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
