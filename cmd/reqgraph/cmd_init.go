// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/reqgraph/pkg/ux"
	"github.com/AleutianAI/reqgraph/services/traceability/authoring"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/query"
)

// linkKinds are the relationship kinds init and edit accept as flags.
var linkKinds = []model.RelationshipKind{
	model.KindRefines,
	model.KindDerivesFrom,
	model.KindSatisfies,
	model.KindJustifies,
}

// linkFlags holds one repeatable flag per linkKinds entry.
type linkFlags map[model.RelationshipKind]*[]string

func linkFlagName(k model.RelationshipKind) string {
	return strings.ReplaceAll(k.String(), "_", "-")
}

func bindLinkFlags(cmd *cobra.Command) linkFlags {
	l := make(linkFlags, len(linkKinds))
	for _, k := range linkKinds {
		l[k] = cmd.Flags().StringSlice(linkFlagName(k), nil, fmt.Sprintf("add a %s link (repeatable)", k))
	}
	return l
}

func (l linkFlags) relationships() []model.Relationship {
	var rels []model.Relationship
	for _, k := range linkKinds {
		for _, id := range *l[k] {
			rels = append(rels, model.Relationship{Target: model.ArtifactID(id), Kind: k})
		}
	}
	return rels
}

func toIDs(values []string) []model.ArtifactID {
	if len(values) == 0 {
		return nil
	}
	out := make([]model.ArtifactID, len(values))
	for i, v := range values {
		out[i] = model.ArtifactID(v)
	}
	return out
}

type initOptions struct {
	id            string
	name          string
	description   string
	specification string
	dependsOn     []string
	platform      string
	status        string
	deciders      []string
	supersedes    []string
	force         bool
	format        string
	links         linkFlags
}

func (o *initOptions) authoring(t model.ArtifactType) (authoring.InitOptions, error) {
	ao := authoring.InitOptions{
		Type:          t,
		ID:            o.id,
		Name:          o.name,
		Description:   o.description,
		Links:         o.links.relationships(),
		Specification: o.specification,
		DependsOn:     toIDs(o.dependsOn),
		Platform:      o.platform,
		Deciders:      o.deciders,
		Supersedes:    toIDs(o.supersedes),
		Force:         o.force,
	}
	if o.status != "" {
		status, err := model.ParseAdrStatus(o.status)
		if err != nil {
			return ao, err
		}
		ao.Status = status
	}
	return ao, nil
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions
	cmd := &cobra.Command{
		Use:   "init TYPE FILE",
		Short: "Write frontmatter for a new item",
		Long: `Creates FILE with frontmatter and a section skeleton for TYPE, or adds
frontmatter to an existing Markdown file. An existing frontmatter block is only
replaced with --force, and the body is kept.

Without --id the next free identifier is used. Without --name the first
heading of FILE is used, then the file name. Link targets must exist.
Requirement types without --specification get a placeholder.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			t, err := model.ParseArtifactType(args[0])
			if err != nil {
				return err
			}
			ao, err := opts.authoring(t)
			if err != nil {
				return err
			}
			g, err := a.loadGraph(cmd.Context(), "")
			if err != nil {
				return err
			}

			res, err := authoring.Init(cmd.Context(), g, args[1], ao)
			if err != nil {
				return a.authoringExit(err)
			}
			if opts.format == "json" {
				return writeJSON(a.out.Writer(), res)
			}
			renderInit(a.out, res)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "identifier (default: next free one)")
	f.StringVar(&opts.name, "name", "", "item name")
	f.StringVar(&opts.description, "description", "", "item description")
	f.StringVar(&opts.specification, "specification", "", "requirement text (requirement types)")
	f.StringSliceVar(&opts.dependsOn, "depends-on", nil, "peer requirements (requirement types)")
	f.StringVar(&opts.platform, "platform", "", "target platform (system architecture)")
	f.StringVar(&opts.status, "status", "", "proposed, accepted, deprecated or superseded (ADR)")
	f.StringSliceVar(&opts.deciders, "deciders", nil, "decision makers (ADR)")
	f.StringSliceVar(&opts.supersedes, "supersedes", nil, "older ADRs replaced by this one (ADR)")
	f.BoolVar(&opts.force, "force", false, "replace an existing frontmatter block")
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	opts.links = bindLinkFlags(cmd)
	return cmd
}

func renderInit(p *ux.Printer, res *authoring.InitResult) {
	verb := "Created"
	switch {
	case res.ReplacedFrontmatter:
		verb = "Replaced frontmatter in"
	case res.UpdatedExisting:
		verb = "Added frontmatter to"
	}
	p.Success(fmt.Sprintf("%s %s", verb, res.File))
	p.Box(res.ID.String(), fmt.Sprintf("%s (%s)", res.Name, res.Type.DisplayName()))

	if res.NeedsSpecification {
		p.Warning("The specification is a placeholder; replace it before validating")
	}
	if field, ok := res.Type.TraceabilityField(); ok && !res.Type.IsADR() && !res.Artifact.HasUpstream() {
		p.Warning(fmt.Sprintf("No %s link given; the item will be reported as an orphan", field))
	}
}

// authoringExit turns an authoring failure the user can fix into exit
// status 1. Anything else stays a status 2 error.
func (a *app) authoringExit(err error) error {
	var nf *query.NotFoundError
	if errors.As(err, &nf) {
		renderNotFound(a.out, nf.ID, nf.Suggestions)
		return exitWith(1)
	}
	for _, target := range []error{
		authoring.ErrFrontmatterExists,
		authoring.ErrIDInUse,
		authoring.ErrInvalidOption,
		authoring.ErrInvalidLink,
		authoring.ErrReadOnlySource,
		authoring.ErrNothingToEdit,
	} {
		if errors.Is(err, target) {
			return &exitError{code: 1, msg: err.Error()}
		}
	}
	return err
}
