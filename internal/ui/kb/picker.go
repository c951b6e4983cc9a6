// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the knowledge base management panel.
package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LOCAL FILE PICKER
// =============================================================================

// allowedExtensions are the document types the backend ingests.
var allowedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// LocalFile is a candidate document in the upload directory.
type LocalFile struct {
	Name string // base name, also the server-side identity
	Path string // absolute path for reading
	Size int64
}

// SizeLabel returns a human-readable file size.
func (f LocalFile) SizeLabel() string {
	return sizeLabel(f.Size)
}

// sizeLabel formats a byte count for list rows.
func sizeLabel(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// ScanDir lists uploadable documents in dir, sorted by name.
// Subdirectories are not descended; the picker is intentionally flat.
func ScanDir(dir string) ([]LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var files []LocalFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, LocalFile{
			Name: name,
			Path: filepath.Join(dir, name),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

// watchDebounce coalesces editor save bursts into one notification.
const watchDebounce = 300 * time.Millisecond

// DirWatcher watches the upload directory and signals coalesced changes
// on its Changes channel. One signal may cover many filesystem events.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	dirty   bool
	lastHit time.Time

	closeOnce sync.Once
}

// NewDirWatcher starts watching dir. Callers must Close the watcher.
func NewDirWatcher(dir string) (*DirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	dw := &DirWatcher{
		watcher: watcher,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	go dw.processEvents()
	go dw.processPending()

	return dw, nil
}

// Changes returns the coalesced change notification channel.
// The channel is closed after Close.
func (dw *DirWatcher) Changes() <-chan struct{} {
	return dw.changes
}

// processEvents marks the directory dirty on relevant events.
func (dw *DirWatcher) processEvents() {
	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !allowedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			dw.mu.Lock()
			dw.dirty = true
			dw.lastHit = time.Now()
			dw.mu.Unlock()

		case _, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the panel still has manual refresh.
		}
	}
}

// processPending emits one change signal once the event burst settles.
// It is the sole sender on the changes channel and closes it on shutdown.
func (dw *DirWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			close(dw.changes)
			return

		case <-ticker.C:
			dw.mu.Lock()
			ready := dw.dirty && time.Since(dw.lastHit) >= watchDebounce
			if ready {
				dw.dirty = false
			}
			dw.mu.Unlock()

			if ready {
				select {
				case dw.changes <- struct{}{}:
				default: // a signal is already pending
				}
			}
		}
	}
}

// Close stops the watcher goroutines and releases the fsnotify handle.
func (dw *DirWatcher) Close() error {
	var err error
	dw.closeOnce.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
	})
	return err
}
