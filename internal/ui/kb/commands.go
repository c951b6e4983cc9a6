// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the knowledge base management panel.
//
// This file defines the Bubble Tea message types and async commands the
// panel uses to talk to the backend and the local upload directory.
package kb

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/kbchat-tui/internal/api"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// StatusLoadedMsg delivers the knowledge base status.
type StatusLoadedMsg struct {
	Status *api.KBStatus
	Error  error
}

// ServerFilesMsg delivers the per-file directory listing of the
// knowledge base.
type ServerFilesMsg struct {
	Files []api.KBFile
	Error error
}

// LocalFilesMsg delivers the scanned upload directory contents.
type LocalFilesMsg struct {
	Files []LocalFile
	Error error
}

// DirChangedMsg signals the upload directory changed on disk.
type DirChangedMsg struct{}

// UploadDoneMsg reports the outcome of an upload.
type UploadDoneMsg struct {
	FileName string
	Result   api.UploadResult
	Error    error
}

// DeleteDoneMsg reports the outcome of a single-file delete.
type DeleteDoneMsg struct {
	FileName string
	Error    error
}

// ClearDoneMsg reports the outcome of a delete-all.
type ClearDoneMsg struct {
	Error error
}

// =============================================================================
// COMMANDS
// =============================================================================

// loadStatusCmd fetches the knowledge base status from the backend.
func loadStatusCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.KBStatus(context.Background())
		return StatusLoadedMsg{Status: status, Error: err}
	}
}

// loadFilesCmd fetches the knowledge base file listing.
func loadFilesCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		files, err := client.KBListFiles(context.Background())
		return ServerFilesMsg{Files: files, Error: err}
	}
}

// scanLocalCmd lists uploadable files in the upload directory.
func scanLocalCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		files, err := ScanDir(dir)
		return LocalFilesMsg{Files: files, Error: err}
	}
}

// uploadCmd sends one local file to the backend ingest endpoint.
func uploadCmd(client *api.Client, file LocalFile) tea.Cmd {
	return func() tea.Msg {
		result, err := client.KBUpload(context.Background(), []string{file.Path})
		return UploadDoneMsg{FileName: file.Name, Result: result, Error: err}
	}
}

// deleteFileCmd removes one document from the knowledge base.
func deleteFileCmd(client *api.Client, name string) tea.Cmd {
	return func() tea.Msg {
		err := client.KBDeleteFile(context.Background(), name)
		return DeleteDoneMsg{FileName: name, Error: err}
	}
}

// clearAllCmd removes every document from the knowledge base.
func clearAllCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		err := client.KBDeleteAll(context.Background())
		return ClearDoneMsg{Error: err}
	}
}

// watchDirCmd blocks until the next coalesced directory change signal.
// The command re-arms itself from Update after each DirChangedMsg.
func watchDirCmd(watcher *DirWatcher) tea.Cmd {
	if watcher == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-watcher.Changes(); !ok {
			return nil
		}
		return DirChangedMsg{}
	}
}
