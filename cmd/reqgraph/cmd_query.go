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
	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/query"
)

type queryOptions struct {
	upstream   bool
	downstream bool
	depth      int
	types      []string
	format     string
}

func newQueryCmd(a *app) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "query ID",
		Short: "Show an item and its traceability chain",
		Long: `Looks up an item by identifier. Without --upstream or --downstream the
item's direct parents and children are listed. An unknown identifier exits
with status 1 and lists similar identifiers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "tree", "json"); err != nil {
				return err
			}
			traversal, err := opts.traversalOptions()
			if err != nil {
				return err
			}

			g, err := a.loadGraph(cmd.Context(), "")
			if err != nil {
				return err
			}
			engine := query.NewEngine(g)

			res := engine.Lookup(args[0])
			if !res.Found {
				renderNotFound(a.out, args[0], res.Suggestions)
				return exitWith(1)
			}

			out := queryOutput{Item: res.Artifact}
			if opts.upstream {
				if r, ok := engine.TraceUpstream(cmd.Context(), res.Artifact.ID, traversal...); ok {
					out.Upstream = r.Tree()
				}
			}
			if opts.downstream {
				if r, ok := engine.TraceDownstream(cmd.Context(), res.Artifact.ID, traversal...); ok {
					out.Downstream = r.Tree()
				}
			}
			if !opts.upstream && !opts.downstream {
				out.Parents = summarize(engine.Parents(res.Artifact.ID))
				out.Children = summarize(engine.Children(res.Artifact.ID))
			}

			if opts.format == "json" {
				return writeJSON(a.out.Writer(), out)
			}
			renderQuery(a.out, g, out, opts)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&opts.upstream, "upstream", "u", false, "show the chain toward the solution")
	f.BoolVarP(&opts.downstream, "downstream", "d", false, "show the chain toward the detailed designs")
	f.IntVar(&opts.depth, "depth", -1, "limit traversal depth (negative for unlimited)")
	f.StringArrayVarP(&opts.types, "type", "t", nil, "only show items of this type, repeatable (e.g. system_requirement)")
	f.StringVar(&opts.format, "format", "tree", "output format: tree or json")
	return cmd
}

func (o queryOptions) traversalOptions() ([]graph.TraversalOption, error) {
	opts := []graph.TraversalOption{graph.WithMaxDepth(o.depth)}
	for _, raw := range o.types {
		t, err := model.ParseArtifactType(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, graph.WithTypes(t))
	}
	return opts, nil
}

// itemSummary is a related item in query output.
type itemSummary struct {
	ID   model.ArtifactID   `json:"id"`
	Name string             `json:"name"`
	Type model.ArtifactType `json:"type"`
}

type queryOutput struct {
	Item       *model.Artifact `json:"item"`
	Parents    []itemSummary   `json:"parents,omitempty"`
	Children   []itemSummary   `json:"children,omitempty"`
	Upstream   *graph.Tree     `json:"upstream,omitempty"`
	Downstream *graph.Tree     `json:"downstream,omitempty"`
}

func summarize(artifacts []*model.Artifact) []itemSummary {
	out := make([]itemSummary, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, itemSummary{ID: a.ID, Name: a.Name, Type: a.Type})
	}
	return out
}

func renderNotFound(p *ux.Printer, id string, suggestions []model.ArtifactID) {
	p.Error("Item not found: " + id)
	if len(suggestions) == 0 {
		return
	}
	p.Println()
	p.Println("Did you mean?")
	for _, s := range suggestions {
		p.Printf("  %s %s\n", ux.IconBullet, s)
	}
}

func renderQuery(p *ux.Printer, g *graph.KnowledgeGraph, out queryOutput, opts queryOptions) {
	item := out.Item
	p.Title(fmt.Sprintf("%s  %s", item.ID, item.Name))
	p.Printf("  %s %s\n", p.Dim("Type:"), item.Type.DisplayName())
	p.Printf("  %s %s\n", p.Dim("File:"), item.Source)
	if item.Description != "" {
		p.Printf("  %s %s\n", p.Dim("Description:"), item.Description)
	}
	if item.Attributes.Specification != "" {
		p.Printf("  %s %s\n", p.Dim("Specification:"), item.Attributes.Specification)
	}
	if item.Attributes.Status != "" {
		p.Printf("  %s %s\n", p.Dim("Status:"), item.Attributes.Status)
	}

	if !opts.upstream && !opts.downstream {
		renderRelated(p, "Parents", out.Parents)
		renderRelated(p, "Children", out.Children)
		return
	}
	if opts.upstream {
		p.Println()
		p.Title("Upstream traceability for " + item.ID.String())
		renderTree(p, g, out.Upstream)
	}
	if opts.downstream {
		p.Println()
		p.Title("Downstream from " + item.ID.String())
		renderTree(p, g, out.Downstream)
	}
}

func renderRelated(p *ux.Printer, title string, items []itemSummary) {
	p.Println()
	p.Println(p.Bold(title + ":"))
	if len(items) == 0 {
		p.Muted("  (none)")
		return
	}
	for _, it := range items {
		p.Printf("  %s %s %s %s\n", ux.IconArrow, p.Accent(it.ID.String()), it.Name, p.Dim("("+it.Type.DisplayName()+")"))
	}
}

func renderTree(p *ux.Printer, g *graph.KnowledgeGraph, tree *graph.Tree) {
	if tree == nil {
		p.Muted("  (no matching items)")
		return
	}
	p.Println(treeLabel(p, g, tree.Root, model.KindUnknown))
	renderTreeNodes(p, g, tree.Children, "")
}

func renderTreeNodes(p *ux.Printer, g *graph.KnowledgeGraph, nodes []*graph.TreeNode, indent string) {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		p.Println(indent + branch + treeLabel(p, g, n.ID, n.Relationship))
		renderTreeNodes(p, g, n.Children, indent+next)
	}
}

func treeLabel(p *ux.Printer, g *graph.KnowledgeGraph, id model.ArtifactID, kind model.RelationshipKind) string {
	var b strings.Builder
	b.WriteString(p.Accent(id.String()))
	if a, ok := g.Get(id); ok && a.Name != "" {
		b.WriteString(" " + a.Name)
	}
	if kind != model.KindUnknown {
		b.WriteString(" " + p.Dim("("+kind.String()+")"))
	}
	return b.String()
}

func newNextIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "next-id TYPE",
		Short: "Suggest the next free identifier for an item type",
		Long: `Prints PREFIX-NNN one past the highest existing identifier of the type.
Fails with status 1 when the type's required parent type has no items yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseArtifactType(args[0])
			if err != nil {
				return err
			}
			g, err := a.loadGraph(cmd.Context(), "")
			if err != nil {
				return err
			}
			if err := query.CheckParentExists(g, t); err != nil {
				var missing *query.MissingParentError
				if errors.As(err, &missing) {
					return &exitError{code: 1, msg: err.Error()}
				}
				return err
			}
			a.out.Println(query.SuggestNextID(g, t))
			return nil
		},
	}
}
