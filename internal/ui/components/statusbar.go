// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the kbchat TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/kbchat-tui/internal/ui/styles"
	"github.com/morganforge/kbchat-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusSending
	StatusSyncing
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusSending:
		return "Sending..."
	case StatusSyncing:
		return "Syncing..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a shape indicator for the status, distinct beyond color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusSending, StatusSyncing:
		return styles.StatusIndicators.Pending
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// StatusBar is the bottom status bar: session identity, sync state,
// message budget, and keyboard shortcuts.
type StatusBar struct {
	SessionID     string // backend session bound to the active conversation
	MessageCount  int
	MaxMessages   int
	Status        Status
	Notice        string // transient message, replaces shortcuts when set
	NoticeIsError bool
	Width         int
	ShowShortcuts bool

	theme *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status:        StatusReady,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetNotice sets a transient notice shown instead of the shortcut help.
func (sb *StatusBar) SetNotice(text string, isError bool) {
	sb.Notice = text
	sb.NoticeIsError = isError
}

// ClearNotice removes the transient notice.
func (sb *StatusBar) ClearNotice() {
	sb.Notice = ""
	sb.NoticeIsError = false
}

// View renders the status bar.
func (sb *StatusBar) View() string {
	if sb.Width <= 0 {
		return ""
	}

	left := sb.renderSession()
	middle := sb.renderCounter()
	right := sb.renderRight()

	// Distribute the remaining width between the segments.
	used := lipgloss.Width(left) + lipgloss.Width(middle) + lipgloss.Width(right)
	gap := sb.Width - used - 2
	if gap < 2 {
		// Narrow terminal: drop the shortcut help first.
		right = ""
		gap = sb.Width - lipgloss.Width(left) - lipgloss.Width(middle) - 2
	}
	if gap < 0 {
		gap = 0
	}

	half := gap / 2
	line := left + strings.Repeat(" ", half) + middle + strings.Repeat(" ", gap-half) + right

	return sb.theme.StatusBar.Width(sb.Width).Render(line)
}

// renderSession renders the session identity segment.
func (sb *StatusBar) renderSession() string {
	if sb.SessionID == "" {
		return sb.theme.LocalBadge.Render("local only")
	}
	id := util.TruncateRunes(sb.SessionID, 14)
	return sb.theme.SyncedBadge.Render("synced") + " " + sb.theme.SessionID.Render(id)
}

// renderCounter renders the n/cap message counter with warning colors
// as the conversation approaches the limit.
func (sb *StatusBar) renderCounter() string {
	if sb.MaxMessages <= 0 {
		return ""
	}
	text := fmt.Sprintf("%d/%d msgs", sb.MessageCount, sb.MaxMessages)
	switch {
	case sb.MessageCount >= sb.MaxMessages:
		return sb.theme.MsgCountDanger.Render(text)
	case sb.MaxMessages-sb.MessageCount <= 3:
		return sb.theme.MsgCountWarning.Render(text)
	default:
		return sb.theme.MsgCount.Render(text)
	}
}

// renderRight renders the notice, or status plus shortcut help.
func (sb *StatusBar) renderRight() string {
	if sb.Notice != "" {
		if sb.NoticeIsError {
			return sb.theme.ErrorText.Render(sb.Notice)
		}
		return sb.theme.SuccessText.Render(sb.Notice)
	}

	status := sb.Status.Icon() + " " + sb.Status.String()
	if !sb.ShowShortcuts {
		return status
	}

	var sc strings.Builder
	for i, pair := range [][2]string{
		{"^N", "new"},
		{"^K", "knowledge"},
		{"^L", "clear"},
		{"^C", "quit"},
	} {
		if i > 0 {
			sc.WriteString("  ")
		}
		sc.WriteString(sb.theme.ShortcutKey.Render(pair[0]))
		sc.WriteString(" ")
		sc.WriteString(sb.theme.ShortcutDesc.Render(pair[1]))
	}

	return status + "  " + sc.String()
}
