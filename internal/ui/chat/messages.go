// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// This file defines the Bubble Tea message types used by the chat view:
//   - Turn: outcome of one send/receive exchange
//   - Sync: startup and manual reconciliation against the backend
//   - Export: transcript export outcome
//   - Notices: transient status bar text with expiry
package chat

import (
	"time"

	"github.com/morganforge/kbchat-tui/internal/reconcile"
	"github.com/morganforge/kbchat-tui/internal/turn"
)

// =============================================================================
// TURN MESSAGES
// =============================================================================

// TurnDoneMsg reports the outcome of a chat turn. Guard rejections arrive
// in Err; backend failures do not (the controller converts those into an
// error reply inside the conversation and sets Result.Failed).
type TurnDoneMsg struct {
	Result turn.Result
	Err    error
}

// ClearedMsg reports the outcome of clearing the active conversation.
type ClearedMsg struct {
	ConversationID string
	Err            error
}

// =============================================================================
// SYNC MESSAGES
// =============================================================================

// SyncDoneMsg reports the outcome of a full reconciliation pass.
type SyncDoneMsg struct {
	Result reconcile.Result
	Err    error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports the outcome of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// NOTICE MESSAGES
// =============================================================================

// noticeTTL is how long transient status bar notices stay visible.
const noticeTTL = 4 * time.Second

// NoticeExpiredMsg clears a transient notice once its TTL elapses.
// Seq guards against clearing a newer notice.
type NoticeExpiredMsg struct {
	Seq int
}
