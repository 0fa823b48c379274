// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/parser"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

var tracer = otel.Tracer("reqgraph.repository")

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	// WorkerCount bounds concurrent file parses. Default: runtime.NumCPU().
	WorkerCount int

	// Filter selects files by repository-relative path.
	Filter PathFilter
}

// ScannerOption is a functional option for configuring a Scanner.
type ScannerOption func(*ScannerOptions)

// WithWorkerCount sets the number of parse workers.
func WithWorkerCount(n int) ScannerOption {
	return func(o *ScannerOptions) {
		o.WorkerCount = n
	}
}

// WithFilter sets include and exclude globs.
func WithFilter(f PathFilter) ScannerOption {
	return func(o *ScannerOptions) {
		o.Filter = f
	}
}

// ScanResult is the merged outcome of a scan.
type ScanResult struct {
	// Artifacts are ordered by repository, then by relative path.
	Artifacts []*model.Artifact

	// Errors are per-file parse failures, in the same order.
	Errors []*FileError

	// FilesScanned counts Markdown files that were read.
	FilesScanned int

	// FilesSkipped counts Markdown files without frontmatter.
	FilesSkipped int

	// Duration is the wall time of the scan.
	Duration time.Duration
}

// Scanner parses every Markdown document under a set of repositories.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Scan call is independent.
type Scanner struct {
	options ScannerOptions
}

// NewScanner creates a Scanner.
func NewScanner(opts ...ScannerOption) *Scanner {
	options := ScannerOptions{WorkerCount: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount < 1 {
		options.WorkerCount = 1
	}
	return &Scanner{options: options}
}

type scanJob struct {
	repo string
	rel  string
}

type scanOutcome struct {
	artifact *model.Artifact
	err      *FileError
	skipped  bool
}

// Scan walks each repository and parses its Markdown files.
//
// Description:
//
//	Hidden directories are skipped. Files are parsed on up to WorkerCount
//	goroutines; each writes only its own result slot. The slots are merged
//	in job order after all workers finish. Files without frontmatter are
//	skipped silently.
//
// Outputs:
//
//	*ScanResult - Parsed artifacts and per-file errors.
//	error - Non-nil if a repository cannot be walked, ctx is cancelled, or
//	        files were found but every one failed to parse (ErrNoArtifacts).
func (s *Scanner) Scan(ctx context.Context, repoPaths []string) (*ScanResult, error) {
	ctx, span := tracer.Start(ctx, "Scanner.Scan",
		trace.WithAttributes(attribute.Int("repository.count", len(repoPaths))))
	defer span.End()

	result, err := s.scan(ctx, repoPaths)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}
	span.SetAttributes(
		attribute.Int("scan.files", result.FilesScanned),
		attribute.Int("scan.artifacts", len(result.Artifacts)),
		attribute.Int("scan.errors", len(result.Errors)),
	)
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, repoPaths []string) (*ScanResult, error) {
	start := time.Now()

	var jobs []scanJob
	for _, repo := range repoPaths {
		files, err := s.listFiles(repo)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			jobs = append(jobs, scanJob{repo: repo, rel: rel})
		}
	}

	outcomes := make([]scanOutcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.WorkerCount)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = parseJob(job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanning repositories: %w", err)
	}

	result := &ScanResult{FilesScanned: len(jobs)}
	for _, o := range outcomes {
		switch {
		case o.skipped:
			result.FilesSkipped++
		case o.err != nil:
			result.Errors = append(result.Errors, o.err)
		default:
			result.Artifacts = append(result.Artifacts, o.artifact)
		}
	}
	result.Duration = time.Since(start)

	slog.Debug("repositories scanned",
		slog.Int("repositories", len(repoPaths)),
		slog.Int("files", result.FilesScanned),
		slog.Int("artifacts", len(result.Artifacts)),
		slog.Int("errors", len(result.Errors)),
		slog.Int("skipped", result.FilesSkipped),
	)

	if len(result.Artifacts) == 0 && len(result.Errors) > 0 {
		errs := make([]error, len(result.Errors))
		for i, e := range result.Errors {
			errs[i] = e
		}
		return result, fmt.Errorf("%w: %w", ErrNoArtifacts, errors.Join(errs...))
	}
	return result, nil
}

func parseJob(job scanJob) scanOutcome {
	data, err := os.ReadFile(filepath.Join(job.repo, filepath.FromSlash(job.rel)))
	if err != nil {
		return scanOutcome{err: &FileError{Repository: job.repo, Path: job.rel, Err: err}}
	}
	content := string(data)
	if !parser.HasFrontmatter(content) {
		return scanOutcome{skipped: true}
	}
	a, err := parser.ParseMarkdown(content, job.rel, job.repo)
	if err != nil {
		return scanOutcome{err: &FileError{Repository: job.repo, Path: job.rel, Err: err}}
	}
	return scanOutcome{artifact: a}
}

// listFiles returns the selected Markdown files of repo as sorted,
// slash separated relative paths.
func (s *Scanner) listFiles(repo string) ([]string, error) {
	info, err := os.Stat(repo)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", repo, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository %s is not a directory", repo)
	}

	var files []string
	err = filepath.WalkDir(repo, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(repo, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && isHidden(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsMarkdown(rel) && !isHidden(rel) && s.options.Filter.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking repository %s: %w", repo, err)
	}
	slices.Sort(files)
	return files, nil
}
