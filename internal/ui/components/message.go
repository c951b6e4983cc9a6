// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the kbchat TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer renders chat messages into styled terminal blocks.
type MessageRenderer struct {
	theme *styles.Theme

	// Display names for the two roles. Empty means generic labels.
	UserLabel      string
	AssistantLabel string

	// ShowSources toggles the source list under assistant replies.
	ShowSources bool

	width int
}

// NewMessageRenderer creates a renderer bound to a theme.
func NewMessageRenderer(theme *styles.Theme) *MessageRenderer {
	return &MessageRenderer{
		theme:       theme,
		ShowSources: true,
		width:       80,
	}
}

// SetWidth updates the available rendering width.
func (r *MessageRenderer) SetWidth(width int) {
	r.width = width
}

// Render renders one message, preserving the newlines in its content.
func (r *MessageRenderer) Render(msg model.Message) string {
	var sb strings.Builder

	sb.WriteString(r.renderHeader(msg))
	sb.WriteString("\n")
	sb.WriteString(r.renderBody(msg))

	if msg.Role == model.RoleAssistant {
		if extra := r.renderAttribution(msg); extra != "" {
			sb.WriteString("\n")
			sb.WriteString(extra)
		}
	}

	return sb.String()
}

// renderHeader renders the sender name and timestamp line.
func (r *MessageRenderer) renderHeader(msg model.Message) string {
	name := r.labelFor(msg.Role)
	header := r.theme.MessageSender.Render(name)
	if !msg.Timestamp.IsZero() {
		header += " " + r.theme.MessageTime.Render(msg.Timestamp.Format("15:04"))
	}
	return header
}

// renderBody renders the message content inside the role's bubble style.
// Content passes through verbatim; blank lines and internal newlines
// survive exactly as the backend produced them.
func (r *MessageRenderer) renderBody(msg model.Message) string {
	bubbleWidth := r.width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	style := r.theme.AssistantBubble
	if msg.Role == model.RoleUser {
		style = r.theme.UserBubble
	}

	return style.MaxWidth(bubbleWidth).Render(msg.Content)
}

// renderAttribution renders the sources list and confidence score.
func (r *MessageRenderer) renderAttribution(msg model.Message) string {
	var parts []string

	if r.ShowSources && msg.HasSources() {
		var sb strings.Builder
		sb.WriteString(r.theme.SourcesHeader.Render(fmt.Sprintf("Sources (%d)", len(msg.Sources))))
		for _, src := range msg.Sources {
			sb.WriteString("\n")
			sb.WriteString(r.theme.SourcesItem.Render("- " + src))
		}
		parts = append(parts, sb.String())
	} else if msg.HasSources() {
		parts = append(parts, r.theme.KBHint.Render(fmt.Sprintf("%d sources (ctrl+s to show)", len(msg.Sources))))
	}

	if msg.HasConfidence() {
		parts = append(parts, r.theme.Confidence.Render(fmt.Sprintf("confidence %.0f%%", *msg.ConfidenceScore)))
	}

	return strings.Join(parts, "\n")
}

// labelFor resolves the display name for a role.
func (r *MessageRenderer) labelFor(role model.Role) string {
	switch role {
	case model.RoleUser:
		if r.UserLabel != "" {
			return r.UserLabel
		}
	case model.RoleAssistant:
		if r.AssistantLabel != "" {
			return r.AssistantLabel
		}
	}
	return role.DisplayName()
}
