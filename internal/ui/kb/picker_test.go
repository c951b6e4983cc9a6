// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kb

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DIRECTORY SCANNING
// =============================================================================

func TestScanDir_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}

	write("zebra.md", "docs")
	write("alpha.txt", "notes")
	write("NOTES.MD", "upper extension")
	write("image.png", "binary")
	write(".hidden.md", "dotfile")
	if err := os.Mkdir(filepath.Join(dir, "nested.md"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}

	wantNames := []string{"NOTES.MD", "alpha.txt", "zebra.md"}
	if len(files) != len(wantNames) {
		t.Fatalf("got %d files, want %d: %+v", len(files), len(wantNames), files)
	}
	for i, want := range wantNames {
		if files[i].Name != want {
			t.Errorf("files[%d].Name = %q, want %q", i, files[i].Name, want)
		}
	}
	if files[1].Size != int64(len("notes")) {
		t.Errorf("Size = %d, want %d", files[1].Size, len("notes"))
	}
}

func TestScanDir_MissingDirectory(t *testing.T) {
	if _, err := ScanDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLocalFile_SizeLabel(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}

	for _, tc := range tests {
		f := LocalFile{Size: tc.size}
		if got := f.SizeLabel(); got != tc.want {
			t.Errorf("SizeLabel(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

func TestDirWatcher_SignalsOnChange(t *testing.T) {
	dir := t.TempDir()
	dw, err := NewDirWatcher(dir)
	if err != nil {
		t.Fatalf("NewDirWatcher: %v", err)
	}
	defer dw.Close()

	if err := os.WriteFile(filepath.Join(dir, "new.md"), []byte("doc"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-dw.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after creating a document")
	}
}

func TestDirWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	dw, err := NewDirWatcher(dir)
	if err != nil {
		t.Fatalf("NewDirWatcher: %v", err)
	}
	defer dw.Close()

	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte{0}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-dw.Changes():
		t.Error("non-document change produced a signal")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestDirWatcher_CloseClosesChannel(t *testing.T) {
	dw, err := NewDirWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirWatcher: %v", err)
	}

	dw.Close()

	select {
	case _, ok := <-dw.Changes():
		if ok {
			t.Error("expected closed channel, got a signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Changes channel not closed after Close")
	}
}
