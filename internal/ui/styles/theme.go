// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the kbchat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// SIDEBAR (CONVERSATION LIST) STYLES
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarHeader       lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemActive   lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarMeta         lipgloss.Style
	SidebarEditInput    lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	MessageSender   lipgloss.Style
	MessageTime     lipgloss.Style
	SourcesHeader   lipgloss.Style
	SourcesItem     lipgloss.Style
	Confidence      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	MsgCount         lipgloss.Style
	MsgCountWarning  lipgloss.Style
	MsgCountDanger   lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	SessionID    lipgloss.Style
	SyncedBadge  lipgloss.Style
	LocalBadge   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// KNOWLEDGE PANEL STYLES
	// ==========================================================================

	KBPanel        lipgloss.Style
	KBHeader       lipgloss.Style
	KBStatLabel    lipgloss.Style
	KBStatValue    lipgloss.Style
	KBFileItem     lipgloss.Style
	KBFileSelected lipgloss.Style
	KBHint         lipgloss.Style

	// ==========================================================================
	// DIALOG STYLES
	// ==========================================================================

	DialogBox          lipgloss.Style
	DialogTitle        lipgloss.Style
	DialogButton       lipgloss.Style
	DialogButtonActive lipgloss.Style

	// ==========================================================================
	// ERROR AND NOTICE STYLES
	// ==========================================================================

	ErrorText   lipgloss.Style
	SuccessText lipgloss.Style
	NoticeText  lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	hasTrueColor := colorProfile == termenv.TrueColor
	isDark := termenv.HasDarkBackground()

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: hasTrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// App container
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo).
		Background(SurfaceDim).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.SidebarHeader = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true).
		Padding(0, 1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.SidebarItemActive = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true).
		Padding(0, 1)

	t.SidebarItemSelected = lipgloss.NewStyle().
		Background(Indigo).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)

	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Padding(0, 1)

	t.SidebarEditInput = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceDim).
		Padding(0, 1)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.MessageSender = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.MessageTime = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.SourcesHeader = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.SourcesItem = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(2)

	t.Confidence = lipgloss.NewStyle().
		Foreground(Emerald)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.MsgCount = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Right)

	t.MsgCountWarning = lipgloss.NewStyle().
		Foreground(Amber).
		Align(lipgloss.Right)

	t.MsgCountDanger = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true).
		Align(lipgloss.Right)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.SessionID = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.SyncedBadge = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.LocalBadge = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Spinner and loading
	t.Spinner = lipgloss.NewStyle().
		Foreground(Indigo)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Knowledge panel
	t.KBPanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(1, 2)

	t.KBHeader = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)

	t.KBStatLabel = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.KBStatValue = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.KBFileItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.KBFileSelected = lipgloss.NewStyle().
		Background(Indigo).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)

	t.KBHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Dialogs
	t.DialogBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Rose).
		Padding(1, 2)

	t.DialogTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.DialogButton = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Overlay).
		Padding(0, 2).
		MarginRight(1)

	t.DialogButtonActive = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Rose).
		Bold(true).
		Padding(0, 2).
		MarginRight(1)

	// Errors and notices
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.SuccessText = lipgloss.NewStyle().
		Foreground(Emerald)

	t.NoticeText = lipgloss.NewStyle().
		Foreground(TextSecondary)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 70 {
		return LayoutNarrow
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // sidebar hidden
	LayoutWide                     // sidebar visible
)
