// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI components for the kbchat TUI.
//
// Components:
//   - Spinner: loading indicator with elapsed timer
//   - StatusBar: session identity, message budget, shortcut help
//   - MessageRenderer: role-styled chat bubbles with sources and confidence
//
// Components hold no application state; the chat and kb views own state
// and feed it in per render.
package components
