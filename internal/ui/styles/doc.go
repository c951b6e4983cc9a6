// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the kbchat TUI.
//
// The theme system:
//   - Detects terminal color capability via termenv
//   - Uses lipgloss AdaptiveColor pairs for light/dark terminals
//   - Exposes one Theme struct holding every style the views use
//   - Supports a narrow layout mode that hides the sidebar
//
// Views never construct their own lipgloss styles; everything visual
// lives here so the look can change in one place.
package styles
