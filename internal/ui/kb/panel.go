// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kb provides the knowledge base management panel.
package kb

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/ui/components"
	"github.com/morganforge/kbchat-tui/internal/ui/styles"
	"github.com/morganforge/kbchat-tui/internal/util"
)

// =============================================================================
// PANEL MODEL
// =============================================================================

// focusArea identifies which list has keyboard focus.
type focusArea int

const (
	focusLocal  focusArea = iota // upload directory picker
	focusServer                  // documents already in the knowledge base
)

// confirmKind identifies a pending destructive action.
type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDelete
	confirmClear
)

// Model is the knowledge base panel: backend status, the remote document
// list, and a picker over the local upload directory.
type Model struct {
	client    *api.Client
	theme     *styles.Theme
	uploadDir string
	watcher   *DirWatcher

	status      *api.KBStatus
	serverFiles []api.KBFile
	localFiles  []LocalFile

	focus   focusArea
	cursor  int
	confirm confirmKind
	target  string // file pending delete confirmation

	spinner components.Spinner
	busy    bool
	notice  string
	failed  bool

	width  int
	height int
}

// New creates the panel. The watcher may be nil when the upload directory
// cannot be watched; manual refresh still works.
func New(client *api.Client, theme *styles.Theme, uploadDir string) *Model {
	m := &Model{
		client:    client,
		theme:     theme,
		uploadDir: uploadDir,
		spinner:   components.NewSpinner(),
		width:     80,
		height:    24,
	}

	if watcher, err := NewDirWatcher(uploadDir); err == nil {
		m.watcher = watcher
	}

	return m
}

// Close releases the directory watcher.
func (m *Model) Close() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Busy reports whether a backend operation is in flight.
func (m *Model) Busy() bool {
	return m.busy
}

// Init loads the status, scans the upload directory, and arms the watcher.
func (m *Model) Init() tea.Cmd {
	m.busy = true
	return tea.Batch(
		m.spinner.Start(),
		loadStatusCmd(m.client),
		loadFilesCmd(m.client),
		scanLocalCmd(m.uploadDir),
		watchDirCmd(m.watcher),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles panel messages.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case StatusLoadedMsg:
		m.busy = false
		m.spinner.Stop()
		if msg.Error != nil {
			m.setNotice("Failed to load status: "+msg.Error.Error(), true)
			return m, nil
		}
		m.status = msg.Status
		m.clampCursor()
		return m, nil

	case ServerFilesMsg:
		if msg.Error != nil {
			// The stats row already reports backend trouble; the file
			// listing failing alone is not worth a second notice.
			return m, nil
		}
		m.serverFiles = msg.Files
		m.clampCursor()
		return m, nil

	case LocalFilesMsg:
		if msg.Error != nil {
			m.setNotice(msg.Error.Error(), true)
			return m, nil
		}
		m.localFiles = msg.Files
		m.clampCursor()
		return m, nil

	case DirChangedMsg:
		// Rescan and immediately re-arm the watcher.
		return m, tea.Batch(scanLocalCmd(m.uploadDir), watchDirCmd(m.watcher))

	case UploadDoneMsg:
		m.busy = false
		m.spinner.Stop()
		if msg.Error != nil {
			m.setNotice("Upload failed: "+msg.Error.Error(), true)
			return m, nil
		}
		ok, failed := msg.Result.Counts()
		if failed > 0 {
			m.setNotice(fmt.Sprintf("%s: %d processed, %d failed", msg.FileName, ok, failed), true)
		} else {
			m.setNotice(msg.FileName+" added to knowledge base", false)
		}
		return m, tea.Batch(loadStatusCmd(m.client), loadFilesCmd(m.client))

	case DeleteDoneMsg:
		m.busy = false
		m.spinner.Stop()
		if msg.Error != nil {
			m.setNotice("Delete failed: "+msg.Error.Error(), true)
			return m, nil
		}
		m.setNotice(msg.FileName+" removed", false)
		return m, tea.Batch(loadStatusCmd(m.client), loadFilesCmd(m.client))

	case ClearDoneMsg:
		m.busy = false
		m.spinner.Stop()
		if msg.Error != nil {
			m.setNotice("Clear failed: "+msg.Error.Error(), true)
			return m, nil
		}
		m.setNotice("Knowledge base cleared", false)
		return m, tea.Batch(loadStatusCmd(m.client), loadFilesCmd(m.client))

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

// handleKey processes keyboard input for the panel.
func (m *Model) handleKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	// A pending confirmation swallows everything except its answer.
	if m.confirm != confirmNone {
		return m.handleConfirmKey(msg)
	}

	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "tab":
		if m.focus == focusLocal {
			m.focus = focusServer
		} else {
			m.focus = focusLocal
		}
		m.cursor = 0
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if m.focus == focusLocal && m.cursor < len(m.localFiles) {
			file := m.localFiles[m.cursor]
			m.busy = true
			m.notice = ""
			return m, tea.Batch(m.spinner.Start(), uploadCmd(m.client, file))
		}
		return m, nil

	case "d", "delete":
		if m.focus == focusServer {
			if name, ok := m.serverFileAt(m.cursor); ok {
				m.confirm = confirmDelete
				m.target = name
			}
		}
		return m, nil

	case "D":
		if m.status != nil && m.status.TotalChunks > 0 {
			m.confirm = confirmClear
		}
		return m, nil

	case "r":
		m.notice = ""
		m.busy = true
		return m, tea.Batch(m.spinner.Start(), loadStatusCmd(m.client), loadFilesCmd(m.client), scanLocalCmd(m.uploadDir))
	}

	return m, nil
}

// handleConfirmKey resolves a pending confirmation dialog.
func (m *Model) handleConfirmKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		kind, target := m.confirm, m.target
		m.confirm = confirmNone
		m.target = ""
		m.busy = true
		m.notice = ""
		if kind == confirmClear {
			return m, tea.Batch(m.spinner.Start(), clearAllCmd(m.client))
		}
		return m, tea.Batch(m.spinner.Start(), deleteFileCmd(m.client, target))

	case "n", "N", "esc":
		m.confirm = confirmNone
		m.target = ""
		return m, nil
	}
	return m, nil
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) setNotice(text string, isError bool) {
	m.notice = text
	m.failed = isError
}

// listLen returns the length of the focused list.
func (m *Model) listLen() int {
	if m.focus == focusLocal {
		return len(m.localFiles)
	}
	return len(m.serverFiles)
}

// serverFileAt returns the server document name at index i.
func (m *Model) serverFileAt(i int) (string, bool) {
	if i < 0 || i >= len(m.serverFiles) {
		return "", false
	}
	return m.serverFiles[i].Filename, true
}

// clampCursor keeps the cursor inside the focused list after a refresh.
func (m *Model) clampCursor() {
	if n := m.listLen(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the panel.
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.theme.KBHeader.Render("Knowledge Base"))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderStats())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderServerList())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderLocalList())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderFooter())

	panelWidth := m.width - 4
	if panelWidth < 40 {
		panelWidth = 40
	}
	return m.theme.KBPanel.Width(panelWidth).Render(sb.String())
}

// renderStats renders the chunk and file counters.
func (m *Model) renderStats() string {
	if m.status == nil {
		return m.theme.KBHint.Render("status unavailable")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.KBStatLabel.Render("chunks "),
		m.theme.KBStatValue.Render(fmt.Sprintf("%d", m.status.TotalChunks)),
		m.theme.KBStatLabel.Render("   documents "),
		m.theme.KBStatValue.Render(fmt.Sprintf("%d", m.status.UniqueFiles)),
	)
}

// renderServerList renders the documents already in the knowledge base.
func (m *Model) renderServerList() string {
	var sb strings.Builder
	sb.WriteString(m.sectionHeader("Indexed documents", focusServer))
	sb.WriteString("\n")

	if len(m.serverFiles) == 0 {
		sb.WriteString(m.theme.KBHint.Render("  (empty)"))
		return sb.String()
	}

	for i, file := range m.serverFiles {
		label := util.TruncateRunes(file.Filename, m.itemWidth()-10) + "  " + sizeLabel(file.Size)
		sb.WriteString(m.renderItem(label, i, focusServer))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderLocalList renders the upload directory picker.
func (m *Model) renderLocalList() string {
	var sb strings.Builder
	sb.WriteString(m.sectionHeader("Upload from "+m.uploadDir, focusLocal))
	sb.WriteString("\n")

	if len(m.localFiles) == 0 {
		sb.WriteString(m.theme.KBHint.Render("  no .txt or .md files found"))
		return sb.String()
	}

	for i, file := range m.localFiles {
		label := util.TruncateRunes(file.Name, m.itemWidth()-10) + "  " + file.SizeLabel()
		sb.WriteString(m.renderItem(label, i, focusLocal))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sectionHeader renders a list heading, highlighted when focused.
func (m *Model) sectionHeader(title string, area focusArea) string {
	if m.focus == area {
		return m.theme.KBHeader.Render("> " + title)
	}
	return m.theme.KBStatLabel.Render("  " + title)
}

// renderItem renders one list row with selection highlight.
func (m *Model) renderItem(label string, i int, area focusArea) string {
	if m.focus == area && i == m.cursor {
		return m.theme.KBFileSelected.Render(label)
	}
	return m.theme.KBFileItem.Render(label)
}

// renderFooter renders the confirmation dialog, spinner, notice, or hints.
func (m *Model) renderFooter() string {
	switch m.confirm {
	case confirmDelete:
		return m.theme.DialogBox.Render(
			m.theme.DialogTitle.Render("Delete "+m.target+"?") + "\n" +
				m.theme.DialogButtonActive.Render("y yes") + m.theme.DialogButton.Render("n no"))
	case confirmClear:
		return m.theme.DialogBox.Render(
			m.theme.DialogTitle.Render("Delete ALL documents?") + "\n" +
				m.theme.DialogButtonActive.Render("y yes") + m.theme.DialogButton.Render("n no"))
	}

	if m.busy {
		return m.spinner.View()
	}

	if m.notice != "" {
		return styles.RenderStatus(!m.failed, m.notice)
	}

	return m.theme.KBHint.Render("tab switch  enter upload  d delete  D delete all  r refresh  esc close")
}

// itemWidth returns the usable width for list labels.
func (m *Model) itemWidth() int {
	w := m.width - 12
	if w < 20 {
		w = 20
	}
	return w
}
