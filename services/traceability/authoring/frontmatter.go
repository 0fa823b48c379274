// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package authoring

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

const delimiter = "---"

// linkKinds are the relationship kinds authoring can declare, in the order
// they are written.
var linkKinds = []model.RelationshipKind{
	model.KindRefines,
	model.KindDerivesFrom,
	model.KindSatisfies,
	model.KindJustifies,
}

// Frontmatter encodes the frontmatter block of a, without delimiters.
//
// Description:
//
//	Keys are written in a fixed order: id, type, name, description, the
//	declared relationships grouped by field, then the type attributes.
//	Empty optional fields are omitted. Relationship fields are always
//	written as lists.
//
// Outputs:
//
//	[]byte - YAML text ending in a newline.
//	error - Non-nil if encoding fails.
func Frontmatter(a *model.Artifact) ([]byte, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	setKey(m, model.FieldID, scalar(a.ID.String()))
	setKey(m, model.FieldType, scalar(a.Type.String()))
	setKey(m, model.FieldArtifactName, scalar(a.Name))
	if a.Description != "" {
		setKey(m, model.FieldDescription, scalar(a.Description))
	}

	for _, kind := range model.AllRelationshipKinds() {
		if kind.IsPeer() {
			continue
		}
		if targets := a.TargetsOf(kind); len(targets) > 0 {
			setKey(m, kind.Field(), sequence(model.IDsToStrings(targets)))
		}
	}

	attrs := a.Attributes
	if a.Type.RequiresSpecification() {
		setKey(m, model.FieldSpecification, scalar(attrs.Specification))
		if len(attrs.DependsOn) > 0 {
			setKey(m, model.FieldDependsOn, sequence(model.IDsToStrings(attrs.DependsOn)))
		}
	}
	if a.Type.AcceptsPlatform() && attrs.Platform != "" {
		setKey(m, model.FieldPlatform, scalar(attrs.Platform))
	}
	if a.Type.IsADR() {
		setKey(m, model.FieldStatus, scalar(string(attrs.Status)))
		setKey(m, model.FieldDeciders, sequence(attrs.Deciders))
		if len(attrs.Supersedes) > 0 {
			setKey(m, model.FieldSupersedes, sequence(model.IDsToStrings(attrs.Supersedes)))
		}
	}
	return encode(m)
}

// Compose joins a frontmatter block and a body into a document.
func Compose(frontmatter []byte, body string) string {
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.Write(frontmatter)
	if len(frontmatter) > 0 && frontmatter[len(frontmatter)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(delimiter + "\n")
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

func encode(m *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	return buf.Bytes(), nil
}

// scalar returns a string node. The !!str tag makes the encoder quote
// values that would otherwise decode as another type.
func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func sequence(values []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		n.Content = append(n.Content, scalar(v))
	}
	return n
}

// keyIndex returns the index of key in mapping's content, or -1.
func keyIndex(m *yaml.Node, key model.FieldName) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key.String() {
			return i
		}
	}
	return -1
}

// setKey replaces the value of key, or appends key when absent.
func setKey(m *yaml.Node, key model.FieldName, value *yaml.Node) {
	if i := keyIndex(m, key); i >= 0 {
		m.Content[i+1] = value
		return
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key.String()}, value)
}

func deleteKey(m *yaml.Node, key model.FieldName) {
	if i := keyIndex(m, key); i >= 0 {
		m.Content = append(m.Content[:i], m.Content[i+2:]...)
	}
}
