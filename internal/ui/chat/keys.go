// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// This file defines keyboard bindings for the chat interface.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Submit   key.Binding
	Cancel   key.Binding

	NewConv       key.Binding
	ClearConv     key.Binding
	DeleteConv    key.Binding
	RenameConv    key.Binding
	ToggleSidebar key.Binding
	ToggleKB      key.Binding
	ToggleSources key.Binding
	Export        key.Binding
	Sync          key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll / previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll / next"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
		NewConv: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		ClearConv: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear conversation"),
		),
		DeleteConv: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "delete conversation"),
		),
		RenameConv: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "rename conversation"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "focus sidebar"),
		),
		ToggleKB: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "knowledge base"),
		),
		ToggleSources: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "toggle sources"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export"),
		),
		Sync: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "sync now"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the most commonly used shortcuts.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewConv, k.ToggleKB, k.Quit}
}

// FullHelp returns all bindings grouped for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Submit, k.NewConv, k.ClearConv, k.DeleteConv, k.RenameConv},
		{k.ToggleSidebar, k.ToggleKB, k.ToggleSources, k.Export, k.Sync},
		{k.Cancel, k.Quit},
	}
}
