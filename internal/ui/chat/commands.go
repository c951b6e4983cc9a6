// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// This file defines the async commands that bridge the view to the
// conversation store, the turn controller, and the sync reconciler.
package chat

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/export"
	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/reconcile"
	"github.com/morganforge/kbchat-tui/internal/store"
	"github.com/morganforge/kbchat-tui/internal/turn"
)

// =============================================================================
// TURN COMMANDS
// =============================================================================

// sendTurnCmd runs one chat turn against the backend.
func sendTurnCmd(controller *turn.Controller, conversationID, input string) tea.Cmd {
	return func() tea.Msg {
		result, err := controller.Send(context.Background(), conversationID, input)
		return TurnDoneMsg{Result: result, Err: err}
	}
}

// clearCmd clears the active conversation's history and session binding.
func clearCmd(controller *turn.Controller, conversationID string) tea.Cmd {
	return func() tea.Msg {
		err := controller.Clear(conversationID)
		return ClearedMsg{ConversationID: conversationID, Err: err}
	}
}

// =============================================================================
// SYNC COMMANDS
// =============================================================================

// syncCmd runs a full reconciliation pass against the backend.
func syncCmd(client *api.Client, st *store.Store) tea.Cmd {
	return func() tea.Msg {
		result, err := reconcile.Reconcile(context.Background(), client, st)
		return SyncDoneMsg{Result: result, Err: err}
	}
}

// =============================================================================
// EXPORT COMMANDS
// =============================================================================

// exportCmd writes the conversation transcript to the current directory.
func exportCmd(conv *model.Conversation, format export.Format) tea.Cmd {
	return func() tea.Msg {
		data, err := export.Render(conv, format)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		path := filepath.Join(".", export.DefaultFileName(conv, format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return ExportDoneMsg{Err: err}
		}
		return ExportDoneMsg{Path: path}
	}
}

// =============================================================================
// NOTICE COMMANDS
// =============================================================================

// expireNoticeCmd schedules clearing of the status bar notice.
func expireNoticeCmd(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{Seq: seq}
	})
}
