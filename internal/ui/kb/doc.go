// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the knowledge base management panel.
//
// The panel shows the backend's ingest status (chunk and document counts,
// indexed file names) next to a picker over a local upload directory.
// Only .txt and .md files are offered. An fsnotify watcher keeps the
// picker current while the panel is open; changes are debounced so an
// editor save burst produces one rescan.
//
// Destructive actions (delete one document, delete all) require a y/n
// confirmation before any request is sent.
package kb
