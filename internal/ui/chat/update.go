// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// This file implements the Bubble Tea update loop.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/kbchat-tui/internal/export"
	"github.com/morganforge/kbchat-tui/internal/turn"
	"github.com/morganforge/kbchat-tui/internal/ui/components"
)

// Update handles all messages for the chat view.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case SyncDoneMsg:
		return m.handleSyncDone(msg)

	case ClearedMsg:
		if msg.Err != nil {
			return m, m.setNotice(clearErrorText(msg.Err), true)
		}
		m.refreshViewport()
		m.updateStatusBar()
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			return m, m.setNotice("Export failed: "+msg.Err.Error(), true)
		}
		return m, m.setNotice("Exported to "+msg.Path, false)

	case NoticeExpiredMsg:
		if msg.Seq == m.noticeSeq {
			m.statusBar.ClearNotice()
		}
		return m, nil
	}

	// Everything else (spinner ticks, kb panel results) flows to the
	// widgets that asked for it.
	var cmds []tea.Cmd

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)
	if spinnerCmd != nil {
		cmds = append(cmds, spinnerCmd)
	}
	if m.sending {
		m.refreshViewport()
	}

	if m.showKB {
		var kbCmd tea.Cmd
		m.kbPanel, kbCmd = m.kbPanel.Update(msg)
		if kbCmd != nil {
			cmds = append(cmds, kbCmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

// handleResize recomputes the layout for a new terminal size.
func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	chatWidth := m.chatWidth()
	viewportHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = newViewport(chatWidth, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = viewportHeight
	}

	m.renderer.SetWidth(chatWidth)
	m.statusBar.Width = msg.Width
	m.input.Width = msg.Width - 6
	m.kbPanel.SetSize(msg.Width, msg.Height)

	m.refreshViewport()
	m.updateStatusBar()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey routes keyboard input by the current mode.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// Knowledge base overlay owns the keyboard while open.
	if m.showKB {
		if key.Matches(msg, m.keys.Cancel) && !m.kbPanel.Busy() {
			m.showKB = false
			return m, nil
		}
		var cmd tea.Cmd
		m.kbPanel, cmd = m.kbPanel.Update(msg)
		return m, cmd
	}

	// Inline title editing.
	if m.editing {
		return m.handleEditKey(msg)
	}

	// Pending delete confirmation.
	if m.confirmDelete {
		return m.handleDeleteConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleKB):
		m.showKB = true
		return m, m.kbPanel.Init()

	case key.Matches(msg, m.keys.NewConv):
		conv := m.store.Create()
		m.store.SetActive(conv.ID)
		m.syncSidebarCursor()
		m.refreshViewport()
		m.updateStatusBar()
		return m, nil

	case key.Matches(msg, m.keys.ClearConv):
		if m.sending {
			return m, m.setNotice("Wait for the current reply", true)
		}
		return m, clearCmd(m.controller, m.store.ActiveID())

	case key.Matches(msg, m.keys.DeleteConv):
		m.confirmDelete = true
		return m, nil

	case key.Matches(msg, m.keys.RenameConv):
		return m.startTitleEdit()

	case key.Matches(msg, m.keys.ToggleSidebar):
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
			m.syncSidebarCursor()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSources):
		m.renderer.ShowSources = !m.renderer.ShowSources
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		conv := m.store.Active()
		if conv.IsEmpty() {
			return m, m.setNotice("Nothing to export", true)
		}
		return m, exportCmd(&conv, export.FormatMarkdown)

	case key.Matches(msg, m.keys.Sync):
		m.statusBar.Status = components.StatusSyncing
		return m, syncCmd(m.client, m.store)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

// handleSidebarKey navigates and activates conversations.
func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.sidebarCursor > 0 {
			m.sidebarCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.sidebarCursor < m.store.Len()-1 {
			m.sidebarCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		snapshot := m.store.Snapshot()
		if m.sidebarCursor < len(snapshot) {
			m.store.SetActive(snapshot[m.sidebarCursor].ID)
			m.focus = focusInput
			m.input.Focus()
			m.refreshViewport()
			m.updateStatusBar()
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.focus = focusInput
		m.input.Focus()
		return m, nil
	}
	return m, nil
}

// handleInputKey feeds the composer and submits on enter.
func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	if key.Matches(msg, m.keys.Up) || key.Matches(msg, m.keys.Down) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEditKey commits or cancels an inline title edit.
func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		title := strings.TrimSpace(m.editInput.Value())
		snapshot := m.store.Snapshot()
		if title != "" && m.sidebarCursor < len(snapshot) {
			m.store.SetTitle(snapshot[m.sidebarCursor].ID, title)
		}
		m.stopTitleEdit()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.stopTitleEdit()
		return m, nil
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

// handleDeleteConfirmKey resolves the delete confirmation.
func (m *Model) handleDeleteConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirmDelete = false
		snapshot := m.store.Snapshot()
		if m.sidebarCursor < len(snapshot) {
			m.store.Delete(snapshot[m.sidebarCursor].ID)
		}
		m.syncSidebarCursor()
		m.refreshViewport()
		m.updateStatusBar()
		return m, nil

	case "n", "N", "esc":
		m.confirmDelete = false
		return m, nil
	}
	return m, nil
}

// startTitleEdit begins editing the selected conversation's title.
func (m *Model) startTitleEdit() (tea.Model, tea.Cmd) {
	snapshot := m.store.Snapshot()
	if m.focus != focusSidebar {
		m.syncSidebarCursor()
	}
	if m.sidebarCursor >= len(snapshot) {
		return m, nil
	}

	m.editing = true
	m.editInput.SetValue(snapshot[m.sidebarCursor].Title)
	m.editInput.CursorEnd()
	m.input.Blur()
	return m, m.editInput.Focus()
}

// stopTitleEdit ends the inline edit and restores composer focus.
func (m *Model) stopTitleEdit() {
	m.editing = false
	m.editInput.Blur()
	m.editInput.SetValue("")
	m.focus = focusInput
	m.input.Focus()
}

// =============================================================================
// TURN FLOW
// =============================================================================

// submit validates and dispatches the composer content as a chat turn.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.sending {
		return m, m.setNotice("Still waiting for a reply", true)
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	conv := m.store.Active()
	if conv.MessageCount() >= m.controller.MaxMessages() {
		return m, m.setNotice(
			fmt.Sprintf("Message limit reached (%d). Clear or start a new conversation.", m.controller.MaxMessages()),
			true)
	}

	m.sending = true
	m.pendingInput = text
	m.input.Reset()
	m.statusBar.Status = components.StatusSending
	m.refreshViewport()
	m.updateStatusBar()

	return m, tea.Batch(
		m.spinner.Start(),
		sendTurnCmd(m.controller, conv.ID, text),
	)
}

// handleTurnDone applies the outcome of a chat turn.
func (m *Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	m.pendingInput = ""
	m.spinner.Stop()
	m.statusBar.Status = components.StatusReady
	m.refreshViewport()
	m.updateStatusBar()

	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, turn.ErrEmptyInput):
			return m, nil
		case errors.Is(msg.Err, turn.ErrMessageLimit):
			return m, m.setNotice("Message limit reached", true)
		case errors.Is(msg.Err, turn.ErrBusy):
			return m, m.setNotice("A turn is already in flight", true)
		default:
			return m, m.setNotice(msg.Err.Error(), true)
		}
	}

	if msg.Result.Failed {
		return m, m.setNotice("Request failed; see the reply", true)
	}
	return m, nil
}

// handleSyncDone applies the outcome of a reconciliation pass.
func (m *Model) handleSyncDone(msg SyncDoneMsg) (tea.Model, tea.Cmd) {
	m.statusBar.Status = components.StatusReady
	m.syncSidebarCursor()
	m.clampSidebarCursor()
	m.refreshViewport()
	m.updateStatusBar()

	if msg.Err != nil {
		// The local cache stays authoritative while the backend is away.
		return m, m.setNotice("Offline: using local history", true)
	}
	if msg.Result.Created > 0 || msg.Result.Updated > 0 {
		return m, m.setNotice(
			fmt.Sprintf("Synced %d conversations (%d new)", msg.Result.Fetched, msg.Result.Created),
			false)
	}
	return m, nil
}

// clearErrorText maps clear failures to user-facing text.
func clearErrorText(err error) string {
	if errors.Is(err, turn.ErrBusy) {
		return "Wait for the current reply before clearing"
	}
	return "Clear failed: " + err.Error()
}
