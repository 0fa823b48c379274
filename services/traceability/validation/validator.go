// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

// Options configures a validation run.
type Options struct {
	// Strict promotes orphan findings from Warning to Error.
	Strict bool

	// AllowedCustomFields are frontmatter keys accepted without an
	// unrecognized_field warning.
	AllowedCustomFields []string
}

// Option is a functional option for configuring a Validator.
type Option func(*Options)

// WithStrict sets strict mode.
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

// WithAllowedCustomFields allow-lists extra frontmatter keys.
func WithAllowedCustomFields(fields ...string) Option {
	return func(o *Options) {
		o.AllowedCustomFields = append(o.AllowedCustomFields, fields...)
	}
}

// Validator runs the fixed rule pipeline.
//
// Thread Safety:
//
//	Validator is safe for concurrent use. Graphs passed to Validate must be
//	frozen.
type Validator struct {
	options Options
	rules   []Rule
}

// NewValidator creates a Validator with the given options.
//
// Example:
//
//	v := NewValidator(WithStrict(true), WithAllowedCustomFields("owner"))
//	report := v.Validate(ctx, g)
func NewValidator(opts ...Option) *Validator {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return &Validator{options: options, rules: Rules()}
}

// Options returns the validator's configuration.
func (v *Validator) Options() Options {
	return v.options
}

// PreValidate checks the flat artifact list before the graph is built.
//
// Description:
//
//	Reports duplicate identifiers (one Error per id listing every location)
//	and malformed identifiers. The graph builder keeps only the last
//	artifact for a repeated id, so duplicates must be caught here.
//
// Outputs:
//
//	*Report - Findings with ItemsChecked set. Never nil.
func (v *Validator) PreValidate(ctx context.Context, artifacts []*model.Artifact) *Report {
	ctx, span := startValidateSpan(ctx, "Validator.PreValidate", len(artifacts))
	defer span.End()
	start := time.Now()

	report := &Report{
		RunID:        uuid.NewString(),
		ItemsChecked: countNonNil(artifacts),
		ItemsByType:  countByType(artifacts),
	}
	report.Issues = append(report.Issues, CheckDuplicateItems(artifacts)...)
	report.Issues = append(report.Issues, checkIdentifiers(artifacts)...)
	report.Duration = time.Since(start)

	setValidateSpanResult(span, report)
	recordValidateMetrics(ctx, "pre_validate", report)
	return report
}

// Validate runs every rule over a built graph and concatenates the
// findings in rule order.
//
// Description:
//
//	No rule can stop the run: each contributes its full set of issues
//	regardless of earlier findings.
//
// Outputs:
//
//	*Report - All findings with ItemsChecked and RelationshipsChecked set.
//	          Never nil.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen graphs.
func (v *Validator) Validate(ctx context.Context, g *graph.KnowledgeGraph) *Report {
	ctx, span := startValidateSpan(ctx, "Validator.Validate", g.Len())
	defer span.End()
	start := time.Now()

	stats := g.Stats()
	report := &Report{
		RunID:                uuid.NewString(),
		ItemsChecked:         stats.ItemCount,
		RelationshipsChecked: stats.RelationshipCount,
		ItemsByType:          stats.ItemsByType,
	}

	for _, rule := range v.rules {
		issues := rule.Check(g, v.options)
		if len(issues) > 0 {
			slog.Debug("validation rule reported issues",
				slog.String("run_id", report.RunID),
				slog.String("rule", rule.Name),
				slog.Int("count", len(issues)),
			)
		}
		report.Issues = append(report.Issues, issues...)
	}
	report.Duration = time.Since(start)

	setValidateSpanResult(span, report)
	recordValidateMetrics(ctx, "validate", report)
	return report
}

// Run pre-validates artifacts, builds the graph and validates it.
//
// Outputs:
//
//	*graph.KnowledgeGraph - The built graph.
//	*Report - Pre-validation and graph findings merged, under one run id.
//	error - Non-nil only if the graph could not be built.
func (v *Validator) Run(ctx context.Context, artifacts []*model.Artifact, opts ...graph.BuilderOption) (*graph.KnowledgeGraph, *Report, error) {
	ctx, span := startValidateSpan(ctx, "Validator.Run", len(artifacts))
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, slog.Default())

	report := v.PreValidate(ctx, artifacts)

	result, err := graph.NewBuilder(opts...).Build(ctx, artifacts)
	if err != nil {
		err = fmt.Errorf("building graph: %w", err)
		telemetry.RecordError(span, err)
		return nil, report, err
	}

	report.Merge(v.Validate(ctx, result.Graph))
	setValidateSpanResult(span, report)

	logger.Info("validation complete",
		slog.String("run_id", report.RunID),
		slog.Int("items", report.ItemsChecked),
		slog.Int("relationships", report.RelationshipsChecked),
		slog.Int("errors", report.ErrorCount()),
		slog.Int("warnings", report.WarningCount()),
	)
	return result.Graph, report, nil
}

// Validate runs the default pipeline with the given strictness.
func Validate(ctx context.Context, g *graph.KnowledgeGraph, strict bool) *Report {
	return NewValidator(WithStrict(strict)).Validate(ctx, g)
}

// PreValidate runs the pre-build checks with default options.
func PreValidate(ctx context.Context, artifacts []*model.Artifact) *Report {
	return NewValidator().PreValidate(ctx, artifacts)
}

func countNonNil(artifacts []*model.Artifact) int {
	n := 0
	for _, a := range artifacts {
		if a != nil {
			n++
		}
	}
	return n
}

func countByType(artifacts []*model.Artifact) map[model.ArtifactType]int {
	out := make(map[model.ArtifactType]int)
	for _, a := range artifacts {
		if a != nil {
			out[a.Type]++
		}
	}
	return out
}
