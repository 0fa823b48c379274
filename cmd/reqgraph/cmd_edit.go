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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/reqgraph/pkg/ux"
	"github.com/AleutianAI/reqgraph/services/traceability/authoring"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

type editOptions struct {
	name          string
	description   string
	specification string
	platform      string
	format        string
	links         linkFlags
}

// authoring returns the fields whose flags were set on cmd.
func (o *editOptions) authoring(cmd *cobra.Command) authoring.EditOptions {
	f := cmd.Flags()
	var eo authoring.EditOptions
	if f.Changed("name") {
		eo.Name = &o.name
	}
	if f.Changed("description") {
		eo.Description = &o.description
	}
	if f.Changed("specification") {
		eo.Specification = &o.specification
	}
	if f.Changed("platform") {
		eo.Platform = &o.platform
	}
	for _, k := range linkKinds {
		if !f.Changed(linkFlagName(k)) {
			continue
		}
		if eo.Links == nil {
			eo.Links = make(map[model.RelationshipKind][]model.ArtifactID)
		}
		eo.Links[k] = toIDs(*o.links[k])
	}
	return eo
}

func newEditCmd(a *app) *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change frontmatter fields of an existing item",
		Long: `Rewrites the frontmatter of the document declaring ID and keeps its body.
Only the fields given as flags change. A link flag replaces every link of that
kind; an empty value removes them, as does an empty --description or
--platform. Other frontmatter keys are kept in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			g, err := a.loadGraph(cmd.Context(), "")
			if err != nil {
				return err
			}

			res, err := authoring.Edit(cmd.Context(), g, args[0], opts.authoring(cmd))
			if err != nil {
				return a.authoringExit(err)
			}
			if opts.format == "json" {
				return writeJSON(a.out.Writer(), res)
			}
			renderEdit(a.out, res)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "new item name")
	f.StringVar(&opts.description, "description", "", "new description")
	f.StringVar(&opts.specification, "specification", "", "new requirement text (requirement types)")
	f.StringVar(&opts.platform, "platform", "", "new target platform (system architecture)")
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	opts.links = bindLinkFlags(cmd)
	return cmd
}

func renderEdit(p *ux.Printer, res *authoring.EditResult) {
	if len(res.Changes) == 0 {
		p.Muted(fmt.Sprintf("%s already has these values; %s not modified", res.ID, res.File))
		return
	}
	p.Success(fmt.Sprintf("Updated %s in %s", res.ID, res.File))
	for _, c := range res.Changes {
		p.Printf("  %s: %q %s %q\n", c.Field, c.OldValue, ux.IconArrow, c.NewValue)
	}
}
