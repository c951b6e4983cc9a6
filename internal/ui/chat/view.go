// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// This file implements rendering: layout, the sidebar, the message
// viewport, the composer, and the status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/ui/styles"
	"github.com/morganforge/kbchat-tui/internal/util"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	headerHeight = 1
	inputHeight  = 3
	statusHeight = 1

	sidebarWidth = 28
)

// newViewport builds the message viewport with mouse wheel enabled.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// chatWidth returns the width available to the message viewport.
func (m *Model) chatWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// sidebarVisible reports whether the layout has room for the sidebar.
func (m *Model) sidebarVisible() bool {
	return m.theme.GetLayoutMode() == styles.LayoutWide
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the complete chat interface.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showKB {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.kbPanel.View(),
			m.statusBar.View(),
		)
	}

	main := m.viewport.View()
	if m.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		main,
		m.renderInput(),
		m.statusBar.View(),
	)
}

// renderHeader renders the top application bar.
func (m *Model) renderHeader() string {
	return m.theme.Header.Width(m.width).Render(m.cfg.Title())
}

// =============================================================================
// SIDEBAR
// =============================================================================

// renderSidebar renders the conversation list.
func (m *Model) renderSidebar() string {
	var sb strings.Builder

	header := "Conversations"
	if m.focus == focusSidebar {
		header = "> " + header
	}
	sb.WriteString(m.theme.SidebarHeader.Render(header))
	sb.WriteString("\n")

	snapshot := m.store.Snapshot()
	activeID := m.store.ActiveID()
	labelWidth := sidebarWidth - 4

	for i, conv := range snapshot {
		if m.editing && i == m.sidebarCursor {
			sb.WriteString(m.theme.SidebarEditInput.Render(m.editInput.View()))
			sb.WriteString("\n")
			continue
		}

		label := util.TruncateRunes(conv.Title, labelWidth)
		switch {
		case m.focus == focusSidebar && i == m.sidebarCursor:
			sb.WriteString(m.theme.SidebarItemSelected.Render(label))
		case conv.ID == activeID:
			sb.WriteString(m.theme.SidebarItemActive.Render("* " + label))
		default:
			sb.WriteString(m.theme.SidebarItem.Render(label))
		}
		sb.WriteString("\n")
		sb.WriteString(m.theme.SidebarMeta.Render(fmt.Sprintf("%d msgs", conv.MessageCount())))
		sb.WriteString("\n")
	}

	if m.confirmDelete {
		sb.WriteString("\n")
		sb.WriteString(m.theme.ErrorText.Render("Delete? y/n"))
	}

	height := m.height - headerHeight - inputHeight - statusHeight
	return m.theme.Sidebar.Width(sidebarWidth - 1).Height(height).Render(sb.String())
}

// =============================================================================
// MESSAGE AREA
// =============================================================================

// refreshViewport rebuilds the viewport content from the active
// conversation and pins the view to the newest message.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	conv := m.store.Active()

	var blocks []string
	for _, msg := range conv.Messages {
		blocks = append(blocks, m.renderer.Render(msg))
	}

	// The just-submitted message renders immediately while the turn is
	// in flight; the store catches up when the turn finishes.
	if m.sending && m.pendingInput != "" {
		blocks = append(blocks, m.renderer.Render(model.NewUserMessage(m.pendingInput)))
		blocks = append(blocks, m.spinner.View())
	}

	if len(blocks) == 0 {
		blocks = append(blocks, m.theme.NoticeText.Render(
			"Ask a question about your documents. Ctrl+K manages the knowledge base."))
	}

	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInput renders the composer with the message budget counter.
func (m *Model) renderInput() string {
	var field string
	if m.sending {
		field = m.theme.InputPlaceholder.Render("Waiting for reply...")
	} else {
		field = m.input.View()
	}

	counter := m.renderCounter()
	pad := m.width - lipgloss.Width(field) - lipgloss.Width(counter) - 4
	if pad < 1 {
		pad = 1
	}

	line := field + strings.Repeat(" ", pad) + counter
	return m.theme.InputContainer.Width(m.width - 2).Render(line)
}

// renderCounter renders the n/cap counter for the active conversation.
func (m *Model) renderCounter() string {
	conv := m.store.Active()
	max := m.controller.MaxMessages()
	count := conv.MessageCount()

	text := fmt.Sprintf("%d/%d", count, max)
	switch {
	case count >= max:
		return m.theme.MsgCountDanger.Render(text)
	case max-count <= 3:
		return m.theme.MsgCountWarning.Render(text)
	default:
		return m.theme.MsgCount.Render(text)
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

// updateStatusBar refreshes the status bar from the active conversation.
func (m *Model) updateStatusBar() {
	conv := m.store.Active()
	m.statusBar.SessionID = conv.SessionID
	m.statusBar.MessageCount = conv.MessageCount()
}
