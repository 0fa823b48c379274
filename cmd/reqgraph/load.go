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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AleutianAI/reqgraph/pkg/ux"
	"github.com/AleutianAI/reqgraph/services/traceability/graph"
	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/repository"
	"github.com/AleutianAI/reqgraph/services/traceability/validation"
)

// loaded is the artifact set of one snapshot.
type loaded struct {
	artifacts  []*model.Artifact
	fileErrors []*repository.FileError
}

// loadArtifacts reads the configured repositories from the working tree,
// or from the git ref when ref is non-empty.
func (a *app) loadArtifacts(ctx context.Context, ref string) (*loaded, error) {
	if ref != "" {
		artifacts, fileErrs, err := repository.SnapshotArtifacts(ctx, a.cfg.Repositories.Paths, ref, a.cfg.PathFilter())
		if err != nil {
			return nil, err
		}
		logFileErrors(fileErrs)
		return &loaded{artifacts: artifacts, fileErrors: fileErrs}, nil
	}

	res, err := repository.NewScanner(a.cfg.ScannerOptions()...).Scan(ctx, a.cfg.Repositories.Paths)
	if res != nil {
		logFileErrors(res.Errors)
	}
	if err != nil {
		return nil, err
	}
	return &loaded{artifacts: res.Artifacts, fileErrors: res.Errors}, nil
}

// loadGraph reads a snapshot and builds its graph without validating it.
func (a *app) loadGraph(ctx context.Context, ref string) (*graph.KnowledgeGraph, error) {
	l, err := a.loadArtifacts(ctx, ref)
	if err != nil {
		return nil, err
	}
	return a.buildGraph(ctx, l)
}

// buildGraph builds the graph of l. Duplicate identifiers are printed on
// stderr and fail the command with status 1, since the graph would
// otherwise keep only the last declaration.
func (a *app) buildGraph(ctx context.Context, l *loaded) (*graph.KnowledgeGraph, error) {
	report := validation.PreValidate(ctx, l.artifacts)
	if dups := report.ByCode(validation.CodeDuplicateIdentifier); len(dups) > 0 {
		for _, issue := range dups {
			renderIssue(a.errOut, issue)
		}
		a.errOut.Error(fmt.Sprintf("Found %d duplicate identifier(s)", len(dups)))
		return nil, exitWith(1)
	}

	g, err := graph.Build(ctx, l.artifacts, a.cfg.BuilderOptions()...)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}
	return g, nil
}

func logFileErrors(errs []*repository.FileError) {
	for _, fe := range errs {
		slog.Warn("skipping unparseable file",
			slog.String("repository", fe.Repository),
			slog.String("file", fe.Path),
			slog.String("error", fe.Err.Error()),
		)
	}
}

// openOutput returns the printer for command output: stdout, or an
// uncolored printer over path when path is set. The returned close
// function must be called.
func (a *app) openOutput(path string) (*ux.Printer, func() error, error) {
	if path == "" {
		return a.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return ux.NewPrinter(f, ux.ColorNever), f.Close, nil
}

// withOutput runs write against the printer for path and closes it.
func (a *app) withOutput(path string, write func(p *ux.Printer) error) error {
	p, closeOut, err := a.openOutput(path)
	if err != nil {
		return err
	}
	return writeAndClose(p, closeOut, write)
}

// writeAndClose runs write, then closeOut. A close failure is returned
// when write itself succeeded.
func writeAndClose(p *ux.Printer, closeOut func() error, write func(p *ux.Printer) error) (err error) {
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
	}()
	return write(p)
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
