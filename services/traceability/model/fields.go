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

// FieldName is a frontmatter key understood by the parser.
type FieldName string

// Frontmatter keys.
const (
	FieldID            FieldName = "id"
	FieldType          FieldName = "type"
	FieldArtifactName  FieldName = "name"
	FieldDescription   FieldName = "description"
	FieldRefines       FieldName = "refines"
	FieldIsRefinedBy   FieldName = "is_refined_by"
	FieldDerives       FieldName = "derives"
	FieldDerivesFrom   FieldName = "derives_from"
	FieldSatisfies     FieldName = "satisfies"
	FieldIsSatisfiedBy FieldName = "is_satisfied_by"
	FieldDependsOn     FieldName = "depends_on"
	FieldIsRequiredBy  FieldName = "is_required_by"
	FieldJustifies     FieldName = "justifies"
	FieldJustifiedBy   FieldName = "justified_by"
	FieldSupersedes    FieldName = "supersedes"
	FieldSupersededBy  FieldName = "superseded_by"
	FieldSpecification FieldName = "specification"
	FieldPlatform      FieldName = "platform"
	FieldStatus        FieldName = "status"
	FieldDeciders      FieldName = "deciders"
)

var recognizedFields = map[FieldName]struct{}{
	FieldID: {}, FieldType: {}, FieldArtifactName: {}, FieldDescription: {},
	FieldRefines: {}, FieldIsRefinedBy: {}, FieldDerives: {}, FieldDerivesFrom: {},
	FieldSatisfies: {}, FieldIsSatisfiedBy: {}, FieldDependsOn: {}, FieldIsRequiredBy: {},
	FieldJustifies: {}, FieldJustifiedBy: {}, FieldSupersedes: {}, FieldSupersededBy: {},
	FieldSpecification: {}, FieldPlatform: {}, FieldStatus: {}, FieldDeciders: {},
}

// IsRecognizedField reports whether key is a frontmatter field with a
// defined meaning.
func IsRecognizedField(key string) bool {
	_, ok := recognizedFields[FieldName(key)]
	return ok
}

// String returns the frontmatter key.
func (f FieldName) String() string {
	return string(f)
}
