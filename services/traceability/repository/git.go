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
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/parser"
	"github.com/AleutianAI/reqgraph/services/traceability/telemetry"
)

// GitSnapshot reads artifacts from a git repository at a given ref.
type GitSnapshot struct {
	repo   *git.Repository
	path   string
	filter PathFilter
}

// OpenGitSnapshot opens the git repository at repoPath.
func OpenGitSnapshot(repoPath string, filter PathFilter) (*GitSnapshot, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotARepository, repoPath)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &GitSnapshot{repo: repo, path: repoPath, filter: filter}, nil
}

// Path returns the repository root.
func (s *GitSnapshot) Path() string {
	return s.path
}

// ResolveRef resolves HEAD, a branch, a tag, a full reference name, or a
// revision expression such as a commit hash or "HEAD~1" to a commit.
func (s *GitSnapshot) ResolveRef(refName string) (*object.Commit, error) {
	if refName == "" || refName == plumbing.HEAD.String() {
		head, err := s.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("%w: HEAD: %w", ErrUnknownRef, err)
		}
		return s.commitAt(head.Hash())
	}

	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(refName),
		plumbing.NewTagReferenceName(refName),
		plumbing.ReferenceName(refName),
	} {
		if ref, err := s.repo.Reference(name, true); err == nil {
			return s.commitAt(ref.Hash())
		}
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(refName))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a branch, tag, or commit", ErrUnknownRef, refName)
	}
	return s.commitAt(*hash)
}

// commitAt returns the commit for hash, peeling annotated tags.
func (s *GitSnapshot) commitAt(hash plumbing.Hash) (*object.Commit, error) {
	if tag, err := s.repo.TagObject(hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return nil, fmt.Errorf("peeling tag %s: %w", tag.Name, err)
		}
		return commit, nil
	}
	commit, err := s.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("getting commit: %w", err)
	}
	return commit, nil
}

// Artifacts parses every selected Markdown file in the tree at ref.
//
// Description:
//
//	Each artifact's SourceLocation carries the repository path and GitRef
//	set to ref. Files without frontmatter are skipped. Parse failures are
//	collected and returned alongside the artifacts.
//
// Outputs:
//
//	[]*model.Artifact - Artifacts in tree order.
//	[]*FileError - Per-file parse failures.
//	error - Non-nil if the ref or tree cannot be read, or ctx is done.
func (s *GitSnapshot) Artifacts(ctx context.Context, ref string) ([]*model.Artifact, []*FileError, error) {
	commit, err := s.ResolveRef(ref)
	if err != nil {
		return nil, nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("getting tree: %w", err)
	}

	var artifacts []*model.Artifact
	var fileErrs []*FileError
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !IsMarkdown(f.Name) || isHidden(f.Name) || !s.filter.Match(f.Name) {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading file %s: %w", f.Name, err)
		}
		if !parser.HasFrontmatter(content) {
			return nil
		}
		a, err := parser.ParseMarkdown(content, f.Name, s.path)
		if err != nil {
			fileErrs = append(fileErrs, &FileError{Repository: s.path, Path: f.Name, Err: err})
			return nil
		}
		a.Source.GitRef = ref
		artifacts = append(artifacts, a)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Debug("git snapshot read",
		slog.String("repository", s.path),
		slog.String("ref", ref),
		slog.String("commit", commit.Hash.String()),
		slog.Int("artifacts", len(artifacts)),
		slog.Int("errors", len(fileErrs)),
	)
	return artifacts, fileErrs, nil
}

// SnapshotArtifacts reads ref from every repository and concatenates the
// results in repository order.
func SnapshotArtifacts(ctx context.Context, repoPaths []string, ref string, filter PathFilter) ([]*model.Artifact, []*FileError, error) {
	ctx, span := tracer.Start(ctx, "SnapshotArtifacts", trace.WithAttributes(
		attribute.String("git.ref", ref),
		attribute.Int("repository.count", len(repoPaths)),
	))
	defer span.End()

	var artifacts []*model.Artifact
	var fileErrs []*FileError
	for _, p := range repoPaths {
		snap, err := OpenGitSnapshot(p, filter)
		if err != nil {
			telemetry.RecordError(span, err, attribute.String("repository", p))
			return nil, nil, err
		}
		a, e, err := snap.Artifacts(ctx, ref)
		if err != nil {
			err = fmt.Errorf("%s@%s: %w", p, ref, err)
			telemetry.RecordError(span, err, attribute.String("repository", p))
			return nil, nil, err
		}
		artifacts = append(artifacts, a...)
		fileErrs = append(fileErrs, e...)
	}
	return artifacts, fileErrs, nil
}
