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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/reqgraph/pkg/ux"
	"github.com/AleutianAI/reqgraph/services/traceability/repository"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
	"github.com/AleutianAI/reqgraph/services/traceability/validation"
)

type validateOptions struct {
	strict bool
	watch  bool
	format string
	output string
	at     string
}

func newValidateCmd(a *app) *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the knowledge graph for integrity problems",
		Long: `Parses every repository, checks for duplicate identifiers, builds the graph
and runs the validation rules: broken references, orphans, cycles, invalid
relationships, redundant relationships and metadata.

Exits with status 1 when any error is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				a.cfg.Validation.StrictOrphans = opts.strict
			}
			if opts.watch {
				if opts.at != "" {
					return errors.New("--watch cannot be combined with --at")
				}
				return a.watchValidate(cmd.Context(), opts)
			}
			valid, err := a.validateOnce(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !valid {
				return exitWith(1)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.strict, "strict", false, "treat orphan items as errors")
	f.BoolVarP(&opts.watch, "watch", "w", false, "re-validate whenever a document changes")
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	f.StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")
	f.StringVar(&opts.at, "at", "", "validate the documents at a git ref instead of the working tree")
	return cmd
}

// validationOutput is the JSON shape of a validate run.
type validationOutput struct {
	*validation.Report
	ParseErrors []string `json:"parse_errors,omitempty"`
	Valid       bool     `json:"valid"`
}

// validateOnce runs the full pipeline once and writes the report. The
// result is false when the report has errors or a file failed to parse.
func (a *app) validateOnce(ctx context.Context, opts validateOptions) (bool, error) {
	l, err := a.loadArtifacts(ctx, opts.at)
	if err != nil {
		return false, err
	}
	if len(l.artifacts) == 0 && len(l.fileErrors) == 0 {
		a.out.Warning("No items found in repositories")
		return true, nil
	}

	v := validation.NewValidator(a.cfg.ValidatorOptions()...)
	_, report, err := v.Run(ctx, l.artifacts, a.cfg.BuilderOptions()...)
	if err != nil {
		return false, err
	}
	valid := report.IsValid() && len(l.fileErrors) == 0

	err = a.withOutput(opts.output, func(p *ux.Printer) error {
		if opts.format == "json" {
			out := validationOutput{Report: report, Valid: valid}
			for _, fe := range l.fileErrors {
				out.ParseErrors = append(out.ParseErrors, fe.Error())
			}
			return writeJSON(p.Writer(), out)
		}
		renderValidation(p, report, l.fileErrors)
		return nil
	})
	return valid, err
}

func renderValidation(p *ux.Printer, report *validation.Report, fileErrs []*repository.FileError) {
	p.Title("Validation Report")
	p.Println()

	for _, fe := range fileErrs {
		p.Printf("%s %s %s\n", p.Icon(ux.IconError), p.Bold("[parse_error]"), fe.Error())
	}
	for _, issue := range report.Issues {
		renderIssue(p, issue)
	}
	if len(fileErrs) > 0 || len(report.Issues) > 0 {
		p.Println()
	}

	p.Muted(fmt.Sprintf("Checked %d items and %d relationships in %s",
		report.ItemsChecked, report.RelationshipsChecked, report.Duration.Round(time.Millisecond)))

	errCount := report.ErrorCount() + len(fileErrs)
	switch {
	case errCount > 0:
		p.Error(fmt.Sprintf("Validation failed: %d error(s), %d warning(s)", errCount, report.WarningCount()))
	case report.WarningCount() > 0:
		p.Warning(fmt.Sprintf("Validation passed with %d warning(s)", report.WarningCount()))
	default:
		p.Success("Validation passed")
	}
}

func renderIssue(p *ux.Printer, issue validation.Issue) {
	icon := ux.IconWarning
	if issue.IsError() {
		icon = ux.IconError
	}
	p.Printf("%s %s %s\n", p.Icon(icon), p.Bold("["+string(issue.Code)+"]"), issue.Message)
	for _, loc := range issue.Locations {
		p.Printf("    %s %s\n", p.Dim("at"), loc)
	}
}

// watchValidate validates once, then again after every debounced batch of
// document changes, until ctx is cancelled.
func (a *app) watchValidate(ctx context.Context, opts validateOptions) error {
	stopMetrics := a.serveMetrics()
	defer stopMetrics()

	if _, err := a.validateOnce(ctx, opts); err != nil {
		a.out.Error(err.Error())
	}

	// One pending run is enough: each run rescans every repository.
	pending := make(chan int, 1)
	w, err := repository.NewWatcher(a.cfg.Repositories.Paths, func(changes []repository.FileChange) {
		select {
		case pending <- len(changes):
		default:
		}
	}, nil)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()

	a.out.Muted("Watching for changes. Press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pending:
			slog.Info("documents changed, re-validating", slog.Int("files", n))
			a.out.Println()
			if _, err := a.validateOnce(ctx, opts); err != nil {
				a.out.Error(err.Error())
			}
		}
	}
}

// serveMetrics exposes /metrics when the prometheus exporter is active
// and telemetry.metrics_addr is set. The returned function stops the
// server.
func (a *app) serveMetrics() func() {
	handler := telemetry.MetricsHandler()
	addr := a.cfg.Telemetry.MetricsAddr
	if handler == nil || addr == "" {
		return func() {}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("reqgraph-metrics"))
	router.GET("/metrics", gin.WrapH(handler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", slog.String("addr", addr), slog.String("error", err.Error()))
		}
	}()
	slog.Info("serving metrics", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
