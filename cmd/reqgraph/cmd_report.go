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
	"github.com/AleutianAI/reqgraph/services/traceability/report"
)

type reportOptions struct {
	format string
	output string
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate coverage and traceability reports",
	}
	cmd.AddCommand(newCoverageCmd(a), newMatrixCmd(a))
	return cmd
}

func (o *reportOptions) bind(cmd *cobra.Command, formats string) {
	cmd.Flags().StringVar(&o.format, "format", "text", "output format: "+formats)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write the report to a file instead of stdout")
}

func newCoverageCmd(a *app) *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report how many items of each type are fully traced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			g, err := a.loadGraph(cmd.Context(), "")
			if err != nil {
				return err
			}
			cov := report.Coverage(g)

			return a.withOutput(opts.output, func(p *ux.Printer) error {
				if opts.format == "json" {
					return writeJSON(p.Writer(), cov)
				}
				renderCoverage(p, cov)
				return nil
			})
		},
	}
	opts.bind(cmd, "text or json")
	return cmd
}

func newMatrixCmd(a *app) *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "List every item with its upstream and downstream targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.format, "text", "json", "csv"); err != nil {
				return err
			}
			g, err := a.loadGraph(cmd.Context(), "")
			if err != nil {
				return err
			}
			m := report.Matrix(g)

			return a.withOutput(opts.output, func(p *ux.Printer) error {
				switch opts.format {
				case "json":
					return writeJSON(p.Writer(), m)
				case "csv":
					data, err := m.CSV()
					if err != nil {
						return err
					}
					_, err = p.Writer().Write(data)
					return err
				default:
					renderMatrix(p, m)
					return nil
				}
			})
		},
	}
	opts.bind(cmd, "text, json or csv")
	return cmd
}

func renderCoverage(p *ux.Printer, cov *report.CoverageReport) {
	p.Title("Traceability Coverage")
	p.Println()
	for _, tc := range cov.ByType {
		p.Printf("  %-26s %s  %d/%d\n", tc.TypeName, p.ProgressBar(tc.CoveragePercent, 20), tc.Complete, tc.Total)
	}
	p.Println()
	p.Printf("  %-26s %s  %d/%d\n", p.Bold("Overall"), p.ProgressBar(cov.OverallCoverage, 20), cov.CompleteItems, cov.TotalItems)

	if len(cov.IncompleteItems) == 0 {
		return
	}
	p.Println()
	p.Println(p.Bold("Incomplete items:"))
	for _, it := range cov.IncompleteItems {
		p.Printf("  %s %s %s %s\n", p.Icon(ux.IconWarning), p.Accent(it.ID.String()), it.Name, p.Dim("("+it.Reason+")"))
	}
}

func renderMatrix(p *ux.Printer, m *report.TraceabilityMatrix) {
	p.Title("Traceability Matrix")
	p.Println()
	for _, row := range m.Rows {
		p.Printf("%s %s %s\n", p.Accent(row.SourceID.String()), row.SourceName, p.Dim("("+row.SourceType+")"))
		if len(row.Targets) == 0 {
			p.Muted("    (no relationships)")
			continue
		}
		for _, t := range row.Targets {
			p.Printf("    %s %s %s\n", p.Dim(t.Relationship.String()), ux.IconArrow, t.ID)
		}
	}
	p.Println()
	p.Muted(fmt.Sprintf("%d items, %d relationships", len(m.Rows), m.TotalRelationships))
}
