// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/config"
	"github.com/morganforge/kbchat-tui/internal/store"
	"github.com/morganforge/kbchat-tui/internal/turn"
	"github.com/morganforge/kbchat-tui/internal/ui/components"
	"github.com/morganforge/kbchat-tui/internal/ui/kb"
	"github.com/morganforge/kbchat-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS STATES
// =============================================================================

// focusArea identifies which surface owns keyboard input.
type focusArea int

const (
	focusInput   focusArea = iota // message composer
	focusSidebar                  // conversation list
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the root Bubble Tea model: the conversation sidebar, the
// message viewport, the composer, and the knowledge base overlay.
type Model struct {
	// Collaborators
	store      *store.Store
	controller *turn.Controller
	client     *api.Client
	cfg        *config.Config

	// Presentation
	theme     *styles.Theme
	keys      KeyMap
	renderer  *components.MessageRenderer
	statusBar *components.StatusBar
	spinner   components.Spinner

	// Widgets
	input    textinput.Model
	viewport viewport.Model

	// Sidebar state
	focus         focusArea
	sidebarCursor int
	editing       bool
	editInput     textinput.Model
	confirmDelete bool

	// Knowledge base overlay
	kbPanel *kb.Model
	showKB  bool

	// Turn state. pendingInput holds the submitted text so the user
	// message renders immediately while the turn runs in the background.
	sending      bool
	pendingInput string

	// Transient notice bookkeeping
	noticeSeq int

	// Layout
	width  int
	height int
	ready  bool
}

// New creates the chat model wired to its collaborators.
func New(st *store.Store, controller *turn.Controller, client *api.Client, cfg *config.Config) *Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.CharLimit = 4000
	input.Prompt = "> "
	input.Focus()

	editInput := textinput.New()
	editInput.CharLimit = 120
	editInput.Prompt = ""

	renderer := components.NewMessageRenderer(theme)
	renderer.UserLabel = cfg.UserLabel()
	renderer.AssistantLabel = cfg.AssistantLabel()

	statusBar := components.NewStatusBar(theme)
	statusBar.MaxMessages = controller.MaxMessages()

	m := &Model{
		store:      st,
		controller: controller,
		client:     client,
		cfg:        cfg,
		theme:      theme,
		keys:       DefaultKeyMap(),
		renderer:   renderer,
		statusBar:  statusBar,
		spinner:    components.NewThinkingSpinner(),
		input:      input,
		editInput:  editInput,
		kbPanel:    kb.New(client, theme, cfg.UploadDirOrDefault()),
	}

	m.syncSidebarCursor()
	return m
}

// Init starts cursor blinking and kicks off the startup reconciliation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		syncCmd(m.client, m.store),
	)
}

// Close releases resources owned by the view.
func (m *Model) Close() {
	if m.kbPanel != nil {
		m.kbPanel.Close()
	}
}

// =============================================================================
// SIDEBAR HELPERS
// =============================================================================

// syncSidebarCursor moves the sidebar cursor to the active conversation.
func (m *Model) syncSidebarCursor() {
	active := m.store.ActiveID()
	for i, conv := range m.store.Snapshot() {
		if conv.ID == active {
			m.sidebarCursor = i
			return
		}
	}
	m.sidebarCursor = 0
}

// clampSidebarCursor keeps the cursor inside the conversation list.
func (m *Model) clampSidebarCursor() {
	if n := m.store.Len(); m.sidebarCursor >= n {
		m.sidebarCursor = n - 1
	}
	if m.sidebarCursor < 0 {
		m.sidebarCursor = 0
	}
}

// =============================================================================
// NOTICES
// =============================================================================

// setNotice shows a transient message in the status bar.
func (m *Model) setNotice(text string, isError bool) tea.Cmd {
	m.noticeSeq++
	m.statusBar.SetNotice(text, isError)
	return expireNoticeCmd(m.noticeSeq)
}
