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
	"strings"
)

// ArtifactType is the kind of engineering document an artifact represents.
type ArtifactType int

const (
	// TypeUnknown is the zero value and never appears on a parsed artifact.
	TypeUnknown ArtifactType = iota

	// TypeSolution is the root of the traceability hierarchy.
	TypeSolution

	// TypeUseCase refines a Solution.
	TypeUseCase

	// TypeScenario refines a UseCase.
	TypeScenario

	// TypeSystemRequirement derives from a Scenario.
	TypeSystemRequirement

	// TypeSystemArchitecture satisfies a SystemRequirement.
	TypeSystemArchitecture

	// TypeHardwareRequirement derives from a SystemArchitecture.
	TypeHardwareRequirement

	// TypeSoftwareRequirement derives from a SystemArchitecture.
	TypeSoftwareRequirement

	// TypeHardwareDetailedDesign satisfies a HardwareRequirement.
	TypeHardwareDetailedDesign

	// TypeSoftwareDetailedDesign satisfies a SoftwareRequirement.
	TypeSoftwareDetailedDesign

	// TypeADR is an architecture decision record. It is not part of the
	// linear hierarchy.
	TypeADR

	// NumArtifactTypes is the number of artifact types including TypeUnknown.
	NumArtifactTypes
)

type typeInfo struct {
	key         string
	displayName string
	prefix      string
	parent      ArtifactType
	field       FieldName
}

var typeTable = [NumArtifactTypes]typeInfo{
	TypeUnknown:                {key: "unknown", displayName: "Unknown"},
	TypeSolution:               {key: "solution", displayName: "Solution", prefix: "SOL"},
	TypeUseCase:                {key: "use_case", displayName: "Use Case", prefix: "UC", parent: TypeSolution, field: FieldRefines},
	TypeScenario:               {key: "scenario", displayName: "Scenario", prefix: "SCEN", parent: TypeUseCase, field: FieldRefines},
	TypeSystemRequirement:      {key: "system_requirement", displayName: "System Requirement", prefix: "SYSREQ", parent: TypeScenario, field: FieldDerivesFrom},
	TypeSystemArchitecture:     {key: "system_architecture", displayName: "System Architecture", prefix: "SYSARCH", parent: TypeSystemRequirement, field: FieldSatisfies},
	TypeHardwareRequirement:    {key: "hardware_requirement", displayName: "Hardware Requirement", prefix: "HWREQ", parent: TypeSystemArchitecture, field: FieldDerivesFrom},
	TypeSoftwareRequirement:    {key: "software_requirement", displayName: "Software Requirement", prefix: "SWREQ", parent: TypeSystemArchitecture, field: FieldDerivesFrom},
	TypeHardwareDetailedDesign: {key: "hardware_detailed_design", displayName: "Hardware Detailed Design", prefix: "HWDD", parent: TypeHardwareRequirement, field: FieldSatisfies},
	TypeSoftwareDetailedDesign: {key: "software_detailed_design", displayName: "Software Detailed Design", prefix: "SWDD", parent: TypeSoftwareRequirement, field: FieldSatisfies},
	TypeADR:                    {key: "architecture_decision_record", displayName: "Architecture Decision Record", prefix: "ADR", field: FieldJustifies},
}

// AllArtifactTypes lists the artifact types in hierarchy order.
func AllArtifactTypes() []ArtifactType {
	return []ArtifactType{
		TypeSolution,
		TypeUseCase,
		TypeScenario,
		TypeSystemRequirement,
		TypeSystemArchitecture,
		TypeHardwareRequirement,
		TypeSoftwareRequirement,
		TypeHardwareDetailedDesign,
		TypeSoftwareDetailedDesign,
		TypeADR,
	}
}

// ParseArtifactType resolves the snake_case key used in frontmatter
// ("system_requirement") or the short form "adr".
func ParseArtifactType(s string) (ArtifactType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "adr" {
		return TypeADR, nil
	}
	for _, t := range AllArtifactTypes() {
		if typeTable[t].key == key {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: %q", ErrUnknownArtifactType, s)
}

func (t ArtifactType) info() typeInfo {
	if t < 0 || t >= NumArtifactTypes {
		return typeTable[TypeUnknown]
	}
	return typeTable[t]
}

// String returns the snake_case key of the type.
func (t ArtifactType) String() string {
	return t.info().key
}

// DisplayName returns the human readable name, e.g. "System Requirement".
func (t ArtifactType) DisplayName() string {
	return t.info().displayName
}

// Prefix returns the conventional ID prefix, e.g. "SYSREQ".
func (t ArtifactType) Prefix() string {
	return t.info().prefix
}

// Valid reports whether t is one of the ten artifact types.
func (t ArtifactType) Valid() bool {
	return t > TypeUnknown && t < NumArtifactTypes
}

// IsRoot reports whether t is the root of the hierarchy.
func (t ArtifactType) IsRoot() bool {
	return t == TypeSolution
}

// RequiredParentType returns the type this artifact type must trace to.
// The second result is false for Solution and ADR.
func (t ArtifactType) RequiredParentType() (ArtifactType, bool) {
	p := t.info().parent
	return p, p != TypeUnknown
}

// TraceabilityField returns the frontmatter field used to reference the
// parent. The second result is false for Solution.
func (t ArtifactType) TraceabilityField() (FieldName, bool) {
	f := t.info().field
	return f, f != ""
}

// RequiresSpecification reports whether artifacts of this type must carry
// specification text.
func (t ArtifactType) RequiresSpecification() bool {
	switch t {
	case TypeSystemRequirement, TypeHardwareRequirement, TypeSoftwareRequirement:
		return true
	default:
		return false
	}
}

// SupportsDependsOn reports whether the type may declare peer dependencies.
func (t ArtifactType) SupportsDependsOn() bool {
	return t.RequiresSpecification()
}

// AcceptsPlatform reports whether the type carries a platform attribute.
func (t ArtifactType) AcceptsPlatform() bool {
	return t == TypeSystemArchitecture
}

// IsADR reports whether the type is an architecture decision record.
func (t ArtifactType) IsADR() bool {
	return t == TypeADR
}

// SupportsSupersedes reports whether the type may supersede peers.
func (t ArtifactType) SupportsSupersedes() bool {
	return t == TypeADR
}

// MarshalText encodes the type as its snake_case key.
func (t ArtifactType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a snake_case key.
func (t *ArtifactType) UnmarshalText(b []byte) error {
	parsed, err := ParseArtifactType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
