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
	"slices"
)

// RelationshipKind is the type of a directed edge between two artifacts.
//
// The twelve kinds form six inverse pairs. The first kind of each pair is
// the primary, declared direction; the second is inferred by the graph
// builder.
type RelationshipKind int

const (
	// KindUnknown is the zero value.
	KindUnknown RelationshipKind = iota

	// KindRefines points from a use case or scenario to its parent.
	KindRefines

	// KindIsRefinedBy is the inverse of KindRefines.
	KindIsRefinedBy

	// KindDerivesFrom points from a requirement to its source.
	KindDerivesFrom

	// KindDerives is the inverse of KindDerivesFrom.
	KindDerives

	// KindSatisfies points from a design to the requirement it satisfies.
	KindSatisfies

	// KindIsSatisfiedBy is the inverse of KindSatisfies.
	KindIsSatisfiedBy

	// KindDependsOn is a peer dependency between requirements of one type.
	KindDependsOn

	// KindIsRequiredBy is the inverse of KindDependsOn.
	KindIsRequiredBy

	// KindJustifies points from an ADR to the design it justifies.
	KindJustifies

	// KindIsJustifiedBy is the inverse of KindJustifies.
	KindIsJustifiedBy

	// KindSupersedes points from an ADR to the ADR it replaces.
	KindSupersedes

	// KindIsSupersededBy is the inverse of KindSupersedes.
	KindIsSupersededBy

	// NumRelationshipKinds is the number of kinds including KindUnknown.
	NumRelationshipKinds
)

var kindFields = [NumRelationshipKinds]FieldName{
	KindUnknown:        "unknown",
	KindRefines:        FieldRefines,
	KindIsRefinedBy:    FieldIsRefinedBy,
	KindDerivesFrom:    FieldDerivesFrom,
	KindDerives:        FieldDerives,
	KindSatisfies:      FieldSatisfies,
	KindIsSatisfiedBy:  FieldIsSatisfiedBy,
	KindDependsOn:      FieldDependsOn,
	KindIsRequiredBy:   FieldIsRequiredBy,
	KindJustifies:      FieldJustifies,
	KindIsJustifiedBy:  FieldJustifiedBy,
	KindSupersedes:     FieldSupersedes,
	KindIsSupersededBy: FieldSupersededBy,
}

var kindInverse = [NumRelationshipKinds]RelationshipKind{
	KindRefines:        KindIsRefinedBy,
	KindIsRefinedBy:    KindRefines,
	KindDerivesFrom:    KindDerives,
	KindDerives:        KindDerivesFrom,
	KindSatisfies:      KindIsSatisfiedBy,
	KindIsSatisfiedBy:  KindSatisfies,
	KindDependsOn:      KindIsRequiredBy,
	KindIsRequiredBy:   KindDependsOn,
	KindJustifies:      KindIsJustifiedBy,
	KindIsJustifiedBy:  KindJustifies,
	KindSupersedes:     KindIsSupersededBy,
	KindIsSupersededBy: KindSupersedes,
}

// AllRelationshipKinds lists every kind in declaration order.
func AllRelationshipKinds() []RelationshipKind {
	kinds := make([]RelationshipKind, 0, NumRelationshipKinds-1)
	for k := KindRefines; k < NumRelationshipKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseRelationshipKind resolves a frontmatter field name to its kind.
func ParseRelationshipKind(field string) (RelationshipKind, error) {
	for k := KindRefines; k < NumRelationshipKinds; k++ {
		if string(kindFields[k]) == field {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownRelationship, field)
}

// String returns the frontmatter field name of the kind.
func (k RelationshipKind) String() string {
	if k < 0 || k >= NumRelationshipKinds {
		return "unknown"
	}
	return string(kindFields[k])
}

// Field returns the frontmatter field that declares the kind.
func (k RelationshipKind) Field() FieldName {
	return FieldName(k.String())
}

// Inverse returns the paired kind. KindUnknown maps to itself.
func (k RelationshipKind) Inverse() RelationshipKind {
	if k <= KindUnknown || k >= NumRelationshipKinds {
		return KindUnknown
	}
	return kindInverse[k]
}

// IsUpstream reports whether the kind points toward the root. Justifies
// counts as upstream: an ADR traces to the designs it justifies.
func (k RelationshipKind) IsUpstream() bool {
	switch k {
	case KindRefines, KindDerivesFrom, KindSatisfies, KindJustifies:
		return true
	default:
		return false
	}
}

// IsDownstream reports whether the kind points away from the root.
func (k RelationshipKind) IsDownstream() bool {
	switch k {
	case KindIsRefinedBy, KindDerives, KindIsSatisfiedBy, KindIsJustifiedBy:
		return true
	default:
		return false
	}
}

// IsPeer reports whether the kind links artifacts of the same type.
func (k RelationshipKind) IsPeer() bool {
	switch k {
	case KindDependsOn, KindIsRequiredBy, KindSupersedes, KindIsSupersededBy:
		return true
	default:
		return false
	}
}

// IsHierarchical reports whether the kind belongs to one of the three
// hierarchy pairs (refines, derives, satisfies).
func (k RelationshipKind) IsHierarchical() bool {
	switch k {
	case KindRefines, KindIsRefinedBy, KindDerives, KindDerivesFrom, KindSatisfies, KindIsSatisfiedBy:
		return true
	default:
		return false
	}
}

// IsPrimary reports whether the kind is the declared direction of its pair.
// Only primary edges take part in cycle detection.
func (k RelationshipKind) IsPrimary() bool {
	switch k {
	case KindRefines, KindDerivesFrom, KindSatisfies, KindJustifies, KindDependsOn, KindSupersedes:
		return true
	default:
		return false
	}
}

// MarshalText encodes the kind as its field name.
func (k RelationshipKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a field name.
func (k *RelationshipKind) UnmarshalText(b []byte) error {
	parsed, err := ParseRelationshipKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Relationship is a relationship declared by an artifact.
type Relationship struct {
	// Target is the referenced artifact.
	Target ArtifactID `json:"target"`

	// Kind is the declared relationship kind.
	Kind RelationshipKind `json:"kind"`
}

// String renders the relationship as "kind -> target".
func (r Relationship) String() string {
	return fmt.Sprintf("%s -> %s", r.Kind, r.Target)
}

// RelationshipRule is the single (kind, target types) pair a type may use
// in one direction.
type RelationshipRule struct {
	Kind    RelationshipKind
	Targets []ArtifactType
}

// Allows reports whether kind to target matches the rule.
func (r RelationshipRule) Allows(kind RelationshipKind, target ArtifactType) bool {
	return r.Kind == kind && slices.Contains(r.Targets, target)
}

var upstreamRules = map[ArtifactType]RelationshipRule{
	TypeUseCase:                {KindRefines, []ArtifactType{TypeSolution}},
	TypeScenario:               {KindRefines, []ArtifactType{TypeUseCase}},
	TypeSystemRequirement:      {KindDerivesFrom, []ArtifactType{TypeScenario}},
	TypeSystemArchitecture:     {KindSatisfies, []ArtifactType{TypeSystemRequirement}},
	TypeHardwareRequirement:    {KindDerivesFrom, []ArtifactType{TypeSystemArchitecture}},
	TypeSoftwareRequirement:    {KindDerivesFrom, []ArtifactType{TypeSystemArchitecture}},
	TypeHardwareDetailedDesign: {KindSatisfies, []ArtifactType{TypeHardwareRequirement}},
	TypeSoftwareDetailedDesign: {KindSatisfies, []ArtifactType{TypeSoftwareRequirement}},
	TypeADR:                    {KindJustifies, JustificationTargets()},
}

var downstreamRules = map[ArtifactType]RelationshipRule{
	TypeSolution:               {KindIsRefinedBy, []ArtifactType{TypeUseCase}},
	TypeUseCase:                {KindIsRefinedBy, []ArtifactType{TypeScenario}},
	TypeScenario:               {KindDerives, []ArtifactType{TypeSystemRequirement}},
	TypeSystemRequirement:      {KindIsSatisfiedBy, []ArtifactType{TypeSystemArchitecture}},
	TypeSystemArchitecture:     {KindDerives, []ArtifactType{TypeHardwareRequirement, TypeSoftwareRequirement}},
	TypeHardwareRequirement:    {KindIsSatisfiedBy, []ArtifactType{TypeHardwareDetailedDesign}},
	TypeSoftwareRequirement:    {KindIsSatisfiedBy, []ArtifactType{TypeSoftwareDetailedDesign}},
	TypeHardwareDetailedDesign: {KindIsJustifiedBy, []ArtifactType{TypeADR}},
	TypeSoftwareDetailedDesign: {KindIsJustifiedBy, []ArtifactType{TypeADR}},
}

// UpstreamRule returns the upstream rule for t. Solution has none.
func UpstreamRule(t ArtifactType) (RelationshipRule, bool) {
	r, ok := upstreamRules[t]
	return r, ok
}

// DownstreamRule returns the downstream rule for t. ADR has none.
func DownstreamRule(t ArtifactType) (RelationshipRule, bool) {
	r, ok := downstreamRules[t]
	return r, ok
}

// PeerType returns the type t may link to with depends_on or supersedes.
func PeerType(t ArtifactType) (ArtifactType, bool) {
	switch t {
	case TypeSystemRequirement, TypeHardwareRequirement, TypeSoftwareRequirement, TypeADR:
		return t, true
	default:
		return TypeUnknown, false
	}
}

// JustificationTargets returns the types an ADR may justify.
func JustificationTargets() []ArtifactType {
	return []ArtifactType{TypeSystemArchitecture, TypeSoftwareDetailedDesign, TypeHardwareDetailedDesign}
}

// IsValidRelationship reports whether an artifact of type from may declare
// kind toward an artifact of type to.
//
// Upstream and downstream kinds must match the declaring type's rule.
// is_justified_by is accepted from any justification target toward an ADR,
// since architectures carry derives as their downstream rule. Peer kinds
// require both ends to share a peer-capable type.
func IsValidRelationship(from, to ArtifactType, kind RelationshipKind) bool {
	switch {
	case kind == KindIsJustifiedBy:
		return to == TypeADR && slices.Contains(JustificationTargets(), from)
	case kind.IsUpstream():
		r, ok := UpstreamRule(from)
		return ok && r.Allows(kind, to)
	case kind.IsDownstream():
		r, ok := DownstreamRule(from)
		return ok && r.Allows(kind, to)
	case kind.IsPeer():
		peer, ok := PeerType(from)
		return ok && peer == to
	default:
		return false
	}
}
