// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversations to portable formats.
//
// # Supported Formats
//
//   - Markdown: human-readable transcript with sources and confidence
//   - JSON: the raw conversation document
//
// # Usage
//
// Render a conversation:
//
//	data, err := export.Render(&conv, export.FormatMarkdown)
package export
