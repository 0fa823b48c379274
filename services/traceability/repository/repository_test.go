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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
	"github.com/AleutianAI/reqgraph/services/traceability/parser"
)

const solutionDoc = "---\nid: SOL-001\ntype: solution\nname: Solution\n---\n# Solution\n"

const useCaseDoc = "---\nid: UC-001\ntype: use_case\nname: Use case\nrefines: SOL-001\n---\n"

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func ids(artifacts []*model.Artifact) []model.ArtifactID {
	out := make([]model.ArtifactID, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.ID
	}
	return out
}

func TestPathFilter_Match(t *testing.T) {
	tests := []struct {
		name     string
		filter   PathFilter
		path     string
		expected bool
	}{
		{"empty filter", PathFilter{}, "docs/a.md", true},
		{"include match", PathFilter{Include: []string{"docs/**/*.md"}}, "docs/x/a.md", true},
		{"include miss", PathFilter{Include: []string{"docs/**/*.md"}}, "other/a.md", false},
		{"exclude wins", PathFilter{Include: []string{"**/*.md"}, Exclude: []string{"drafts/**"}}, "drafts/a.md", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.filter.Match(tc.path))
		})
	}

	assert.NoError(t, PathFilter{Include: []string{"**/*.md"}}.Validate())
	assert.Error(t, PathFilter{Exclude: []string{"[unclosed"}}.Validate())
}

func TestIsMarkdownAndHidden(t *testing.T) {
	assert.True(t, IsMarkdown("a.md"))
	assert.True(t, IsMarkdown("A.MARKDOWN"))
	assert.False(t, IsMarkdown("a.txt"))

	assert.True(t, isHidden(".git/config"))
	assert.True(t, isHidden("docs/.drafts/a.md"))
	assert.False(t, isHidden("docs/a.md"))
}

func TestScanner_Scan(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "docs/uc.md", useCaseDoc)
	writeFile(t, repo, "docs/sol.md", solutionDoc)
	writeFile(t, repo, "README.md", "# Plain readme\n")
	writeFile(t, repo, "notes.txt", solutionDoc)
	writeFile(t, repo, ".hidden/sol.md", solutionDoc)
	writeFile(t, repo, "drafts/sol.md", solutionDoc)
	writeFile(t, repo, "docs/broken.md", "---\nid: X-1\n---\n")

	scanner := NewScanner(WithWorkerCount(2), WithFilter(PathFilter{Exclude: []string{"drafts/**"}}))
	result, err := scanner.Scan(context.Background(), []string{repo})
	require.NoError(t, err)

	assert.Equal(t, []model.ArtifactID{"SOL-001", "UC-001"}, ids(result.Artifacts))
	assert.Equal(t, 4, result.FilesScanned)
	assert.Equal(t, 1, result.FilesSkipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "docs/broken.md", result.Errors[0].Path)
	assert.ErrorIs(t, result.Errors[0], parser.ErrMissingField)

	assert.Equal(t, repo, result.Artifacts[0].Source.Repository)
	assert.Equal(t, "docs/sol.md", result.Artifacts[0].Source.FilePath)
}

func TestScanner_DeterministicAcrossRepositories(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	for i, name := range []string{"c.md", "a.md", "b.md"} {
		writeFile(t, first, name, "---\nid: UC-00"+string(rune('1'+i))+"\ntype: use_case\nname: n\n---\n")
	}
	writeFile(t, second, "z.md", solutionDoc)

	for range 5 {
		result, err := NewScanner(WithWorkerCount(8)).Scan(context.Background(), []string{second, first})
		require.NoError(t, err)
		assert.Equal(t, []model.ArtifactID{"SOL-001", "UC-002", "UC-003", "UC-001"}, ids(result.Artifacts))
	}
}

func TestScanner_AllFilesFail(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "bad.md", "---\nname: nothing\n---\n")

	result, err := NewScanner().Scan(context.Background(), []string{repo})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoArtifacts)
	assert.ErrorIs(t, err, parser.ErrMissingField)
	require.NotNil(t, result)
	assert.Len(t, result.Errors, 1)
}

func TestScanner_FailureMarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	repo := t.TempDir()
	writeFile(t, repo, "bad.md", "---\nname: nothing\n---\n")

	_, err := NewScanner().Scan(context.Background(), []string{repo})
	require.ErrorIs(t, err, ErrNoArtifacts)

	var found bool
	for _, s := range recorder.Ended() {
		if s.Name() != "Scanner.Scan" {
			continue
		}
		found = true
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.NotEmpty(t, s.Events())
	}
	assert.True(t, found, "Scanner.Scan span not recorded")
}

func TestScanner_MissingRepository(t *testing.T) {
	_, err := NewScanner().Scan(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanner_Cancelled(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "sol.md", solutionDoc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner().Scan(ctx, []string{repo})
	assert.ErrorIs(t, err, context.Canceled)
}

func commitAll(t *testing.T, repo *git.Repository, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestGitSnapshot_Artifacts(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "docs/sol.md", solutionDoc)
	first := commitAll(t, repo, "add solution")
	_, err = repo.CreateTag("v1", first, nil)
	require.NoError(t, err)

	writeFile(t, dir, "docs/uc.md", useCaseDoc)
	writeFile(t, dir, "docs/bad.md", "---\nid: UC-009\n---\n")
	commitAll(t, repo, "add use case")

	head, err := repo.Head()
	require.NoError(t, err)

	snap, err := OpenGitSnapshot(dir, PathFilter{})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		ref      string
		expected []model.ArtifactID
		errors   int
	}{
		{"v1", []model.ArtifactID{"SOL-001"}, 0},
		{first.String(), []model.ArtifactID{"SOL-001"}, 0},
		{"HEAD", []model.ArtifactID{"SOL-001", "UC-001"}, 1},
		{head.Name().Short(), []model.ArtifactID{"SOL-001", "UC-001"}, 1},
		{"HEAD~1", []model.ArtifactID{"SOL-001"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.ref, func(t *testing.T) {
			artifacts, fileErrs, err := snap.Artifacts(ctx, tc.ref)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.expected, ids(artifacts))
			assert.Len(t, fileErrs, tc.errors)
			for _, a := range artifacts {
				assert.Equal(t, tc.ref, a.Source.GitRef)
				assert.Equal(t, dir, a.Source.Repository)
			}
		})
	}

	_, _, err = snap.Artifacts(ctx, "no-such-branch")
	assert.ErrorIs(t, err, ErrUnknownRef)
}

func TestOpenGitSnapshot_NotARepository(t *testing.T) {
	_, err := OpenGitSnapshot(t.TempDir(), PathFilter{})
	assert.True(t, errors.Is(err, ErrNotARepository))
}

func TestDeduplicateChanges(t *testing.T) {
	now := time.Now()
	changes := []FileChange{
		{Path: "/r/a.md", Op: FileOpCreate, Time: now},
		{Path: "/r/b.md", Op: FileOpWrite, Time: now},
		{Path: "/r/a.md", Op: FileOpWrite, Time: now.Add(time.Millisecond)},
	}

	got := deduplicateChanges(changes)

	require.Len(t, got, 2)
	assert.Equal(t, "/r/a.md", got[0].Path)
	assert.Equal(t, FileOpWrite, got[0].Op)
	assert.Equal(t, "/r/b.md", got[1].Path)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant("/repo/docs/a.md"))
	assert.False(t, relevant("/repo/docs/a.md.swp"))
	assert.False(t, relevant("/repo/docs/.a.md"))
}

func TestWatcher_ReportsMarkdownChanges(t *testing.T) {
	root := t.TempDir()

	var mu sync.Mutex
	var got []FileChange
	w, err := NewWatcher([]string{root}, func(changes []FileChange) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, changes...)
	}, &WatcherOptions{DebounceWindow: 20 * time.Millisecond, BufferSize: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, w.IsWatching())

	writeFile(t, root, "ignored.txt", "x")
	writeFile(t, root, "sol.md", solutionDoc)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range got {
			if filepath.Base(c.Path) == "sol.md" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, c := range got {
		assert.NotEqual(t, "ignored.txt", filepath.Base(c.Path))
	}
}
