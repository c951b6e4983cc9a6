// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// The view is a Bubble Tea model composed of:
//   - a conversation sidebar with inline title editing and deletion
//   - a message viewport rendering role-styled bubbles with sources
//   - a single-line composer with a message budget counter
//   - a status bar showing session identity and sync state
//   - the knowledge base panel as a full-screen overlay (Ctrl+K)
//
// All conversation state lives in the store; the view reads snapshots
// and never mutates conversations directly. Turns run through the turn
// controller in background commands, so the interface stays responsive
// while a reply is pending. The submitted text is echoed immediately
// and the store catches up when the turn completes.
package chat
