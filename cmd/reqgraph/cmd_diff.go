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
	"github.com/AleutianAI/reqgraph/services/traceability/diff"
)

type diffOptions struct {
	format string
	stat   bool
}

func newDiffCmd(a *app) *cobra.Command {
	var opts diffOptions
	cmd := &cobra.Command{
		Use:   "diff REF1 [REF2]",
		Short: "Compare the knowledge graph between two git refs",
		Long: `Builds the graph at REF1 and at REF2 and reports added, removed and modified
items and relationships. Without REF2 the working tree is compared.

Refs may be HEAD, a branch, a tag, a full reference name or a commit hash.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			ctx := cmd.Context()

			oldGraph, err := a.loadGraph(ctx, args[0])
			if err != nil {
				return err
			}
			newRef := ""
			if len(args) == 2 {
				newRef = args[1]
			}
			newGraph, err := a.loadGraph(ctx, newRef)
			if err != nil {
				return err
			}

			d := diff.Compute(ctx, oldGraph, newGraph)
			if opts.format == "json" {
				return writeJSON(a.out.Writer(), d)
			}
			label := newRef
			if label == "" {
				label = "working tree"
			}
			renderDiff(a.out, d, args[0], label, opts.stat)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	f.BoolVar(&opts.stat, "stat", false, "show summary statistics only")
	return cmd
}

func renderDiff(p *ux.Printer, d *diff.GraphDiff, oldLabel, newLabel string, statOnly bool) {
	p.Title(fmt.Sprintf("Changes from %s to %s", oldLabel, newLabel))

	if !statOnly {
		if len(d.AddedItems) > 0 {
			p.Println()
			p.Println(p.Bold("Added items:"))
			for _, it := range d.AddedItems {
				p.Printf("  + %s %s %s\n", p.Accent(it.ID.String()), it.Name, p.Dim("("+it.Type+")"))
			}
		}
		if len(d.RemovedItems) > 0 {
			p.Println()
			p.Println(p.Bold("Removed items:"))
			for _, it := range d.RemovedItems {
				p.Printf("  - %s %s %s\n", p.Accent(it.ID.String()), it.Name, p.Dim("("+it.Type+")"))
			}
		}
		if len(d.ModifiedItems) > 0 {
			p.Println()
			p.Println(p.Bold("Modified items:"))
			for _, m := range d.ModifiedItems {
				p.Printf("  ~ %s %s\n", p.Accent(m.ID.String()), m.Name)
				for _, c := range m.Changes {
					p.Printf("      %s: %q %s %q\n", c.Field, c.OldValue, ux.IconArrow, c.NewValue)
				}
			}
		}
		if len(d.AddedRelationships) > 0 {
			p.Println()
			p.Println(p.Bold("Added relationships:"))
			for _, r := range d.AddedRelationships {
				p.Printf("  + %s %s %s\n", r.From, p.Dim(r.Kind.String()), r.To)
			}
		}
		if len(d.RemovedRelationships) > 0 {
			p.Println()
			p.Println(p.Bold("Removed relationships:"))
			for _, r := range d.RemovedRelationships {
				p.Printf("  - %s %s %s\n", r.From, p.Dim(r.Kind.String()), r.To)
			}
		}
	}

	p.Println()
	if d.IsEmpty() {
		p.Success("No changes detected")
		return
	}
	s := d.Stats
	p.Printf("%d added, %d removed, %d modified items; %d added, %d removed relationships\n",
		s.ItemsAdded, s.ItemsRemoved, s.ItemsModified, s.RelationshipsAdded, s.RelationshipsRemoved)
}
