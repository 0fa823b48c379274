// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the artifact and relationship types of the
// traceability knowledge graph.
//
// The traceability hierarchy runs from Solution (root) down to the detailed
// designs:
//
//	Solution
//	  └─ UseCase               (refines)
//	      └─ Scenario          (refines)
//	          └─ SystemRequirement     (derives_from)
//	              └─ SystemArchitecture    (satisfies)
//	                  ├─ HardwareRequirement   (derives_from)
//	                  │   └─ HardwareDetailedDesign (satisfies)
//	                  └─ SoftwareRequirement   (derives_from)
//	                      └─ SoftwareDetailedDesign (satisfies)
//
// Architecture decision records sit beside the hierarchy and justify
// architectures and detailed designs.
//
// # Thread Safety
//
// All types in this package are plain values. Artifacts MUST NOT be mutated
// after they are handed to a graph builder.
package model

import "errors"

// Sentinel errors for model construction.
var (
	// ErrInvalidID is returned when an artifact identifier is empty or
	// contains characters other than ASCII letters, digits, '-' and '_'.
	ErrInvalidID = errors.New("invalid artifact id")

	// ErrUnknownArtifactType is returned when a type name does not match any
	// of the ten artifact types.
	ErrUnknownArtifactType = errors.New("unknown artifact type")

	// ErrUnknownRelationship is returned when a relationship field name is
	// not recognized.
	ErrUnknownRelationship = errors.New("unknown relationship kind")

	// ErrUnknownAdrStatus is returned for an ADR status outside
	// proposed/accepted/deprecated/superseded.
	ErrUnknownAdrStatus = errors.New("unknown ADR status")
)
