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
	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/repository"
)

type parseOptions struct {
	at     string
	format string
}

type parsedItem struct {
	ID       model.ArtifactID   `json:"id"`
	Type     model.ArtifactType `json:"type"`
	Name     string             `json:"name"`
	Location string             `json:"location"`
}

type parseOutput struct {
	Items       []parsedItem     `json:"items"`
	Stats       graph.GraphStats `json:"stats"`
	ParseErrors []string         `json:"parse_errors,omitempty"`
}

func newParseCmd(a *app) *cobra.Command {
	var opts parseOptions
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "List every item found in the configured repositories",
		Long: `Scans the repositories, builds the graph and lists each item with its
location, followed by graph statistics and any files that failed to parse.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			l, err := a.loadArtifacts(cmd.Context(), opts.at)
			if err != nil {
				return err
			}
			g, err := a.buildGraph(cmd.Context(), l)
			if err != nil {
				return err
			}

			out := parseOutput{Items: make([]parsedItem, 0, g.Len()), Stats: g.Stats()}
			for _, art := range g.Artifacts() {
				out.Items = append(out.Items, parsedItem{
					ID:       art.ID,
					Type:     art.Type,
					Name:     art.Name,
					Location: art.Source.String(),
				})
			}
			for _, fe := range l.fileErrors {
				out.ParseErrors = append(out.ParseErrors, fe.Error())
			}

			if opts.format == "json" {
				return writeJSON(a.out.Writer(), out)
			}
			renderParse(a.out, out, l.fileErrors)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.at, "at", "", "read the repositories at a git ref instead of the working tree")
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	return cmd
}

func renderParse(p *ux.Printer, out parseOutput, fileErrs []*repository.FileError) {
	p.Title("Parsed Items")
	p.Println()
	for _, it := range out.Items {
		p.Printf("  %s %s %s\n", p.Accent(it.ID.String()), it.Name, p.Dim("("+it.Type.DisplayName()+")"))
		p.Muted("      " + it.Location)
	}

	p.Println()
	for _, t := range model.AllArtifactTypes() {
		if n := out.Stats.ItemsByType[t]; n > 0 {
			p.Printf("  %-26s %d\n", t.DisplayName(), n)
		}
	}
	p.Printf("  %-26s %d\n", p.Bold("Items"), out.Stats.ItemCount)
	p.Printf("  %-26s %d\n", p.Bold("Relationships"), out.Stats.RelationshipCount)

	if len(fileErrs) == 0 {
		return
	}
	p.Println()
	for _, fe := range fileErrs {
		p.Printf("%s %s\n", p.Icon(ux.IconError), fe.Error())
	}
	p.Warning(fmt.Sprintf("%d file(s) could not be parsed", len(fileErrs)))
}
