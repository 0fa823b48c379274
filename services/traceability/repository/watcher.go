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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileOp is the kind of a file change.
type FileOp int

const (
	// FileOpCreate indicates a file was created.
	FileOpCreate FileOp = iota

	// FileOpWrite indicates a file was modified.
	FileOpWrite

	// FileOpRemove indicates a file was deleted.
	FileOpRemove

	// FileOpRename indicates a file was renamed away.
	FileOpRename
)

// String returns the string representation of the operation.
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "create"
	case FileOpWrite:
		return "write"
	case FileOpRemove:
		return "remove"
	case FileOpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// FileChange is one change to a Markdown document.
type FileChange struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is the type of change.
	Op FileOp

	// Time is when the change was observed.
	Time time.Time
}

// ChangeHandler receives a debounced batch of changes, at most one entry
// per path.
type ChangeHandler func(changes []FileChange)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for further changes before the
	// handler runs. Default: 200ms.
	DebounceWindow time.Duration

	// BufferSize is the capacity of the pending change channel. Changes
	// beyond it are dropped. Default: 1000.
	BufferSize int
}

// DefaultWatcherOptions returns the default watcher options.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 200 * time.Millisecond,
		BufferSize:     1000,
	}
}

// Watcher reports Markdown changes under a set of repositories.
//
// # Description
//
// Every non-hidden directory under each root is watched. New directories
// are added as they appear. Changes to non-Markdown files are ignored.
// Changes are batched until the debounce window passes without another
// change, then handed to the handler in one call.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	roots    []string
	watcher  *fsnotify.Watcher
	handler  ChangeHandler
	debounce time.Duration

	changes  chan FileChange
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a Watcher over roots. opts may be nil.
func NewWatcher(roots []string, handler ChangeHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:    roots,
		watcher:  fw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		changes:  make(chan FileChange, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once every root is registered; events
// are processed in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop ends watching. Pending changes are flushed to the handler.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && isHidden(filepath.Base(p)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if !isHidden(filepath.Base(event.Name)) {
					if err := w.addRecursive(event.Name); err != nil {
						slog.Warn("watching new directory failed",
							slog.String("path", event.Name),
							slog.String("error", err.Error()),
						)
					}
				}
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			change := FileChange{Path: event.Name, Op: convertOp(event.Op), Time: time.Now()}
			select {
			case w.changes <- change:
			default:
				slog.Warn("change buffer full, dropping event", slog.String("path", event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []FileChange
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 && w.handler != nil {
			w.handler(deduplicateChanges(batch))
		}
		batch = batch[:0]
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// relevant reports whether a changed path is a visible Markdown file.
func relevant(p string) bool {
	return IsMarkdown(p) && !isHidden(filepath.ToSlash(filepath.Base(p)))
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func convertOp(op fsnotify.Op) FileOp {
	switch {
	case op.Has(fsnotify.Create):
		return FileOpCreate
	case op.Has(fsnotify.Write):
		return FileOpWrite
	case op.Has(fsnotify.Remove):
		return FileOpRemove
	case op.Has(fsnotify.Rename):
		return FileOpRename
	default:
		return FileOpWrite
	}
}

// deduplicateChanges keeps the latest change per path, in order of first
// appearance.
func deduplicateChanges(changes []FileChange) []FileChange {
	seen := make(map[string]int, len(changes))
	result := make([]FileChange, 0, len(changes))
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			result[idx] = c
			continue
		}
		seen[c.Path] = len(result)
		result = append(result, c)
	}
	return result
}
