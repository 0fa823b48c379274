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

import "fmt"

// ArtifactID identifies an artifact across every scanned repository.
type ArtifactID string

// NewArtifactID validates raw and returns it as an ArtifactID.
//
// Outputs:
//
//	ArtifactID - The validated identifier.
//	error - Wraps ErrInvalidID if raw is empty or has a disallowed character.
func NewArtifactID(raw string) (ArtifactID, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: identifier cannot be empty", ErrInvalidID)
	}
	for i := 0; i < len(raw); i++ {
		if !isIDByte(raw[i]) {
			return "", fmt.Errorf("%w: %q contains %q (allowed: letters, digits, '-', '_')",
				ErrInvalidID, raw, raw[i])
		}
	}
	return ArtifactID(raw), nil
}

// String returns the identifier text.
func (id ArtifactID) String() string {
	return string(id)
}

// Valid reports whether the identifier satisfies the format rules.
func (id ArtifactID) Valid() bool {
	_, err := NewArtifactID(string(id))
	return err == nil
}

func isIDByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}

// IDsToStrings converts ids to plain strings, preserving order.
func IDsToStrings(ids []ArtifactID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
