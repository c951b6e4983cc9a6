// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the kbchat TUI.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/kbchat-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a loading spinner with an optional message and elapsed timer.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time

	isActive  bool
	showTimer bool
}

// NewSpinner creates a new spinner with ASCII-compatible frames.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	return Spinner{
		spinner:   s,
		message:   "Loading",
		showTimer: true,
	}
}

// NewThinkingSpinner creates a spinner for the awaiting-reply state.
func NewThinkingSpinner() Spinner {
	s := NewSpinner()
	s.message = "Thinking"
	return s
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// SetShowTimer enables or disables the elapsed time display.
func (s *Spinner) SetShowTimer(show bool) {
	s.showTimer = show
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// Start activates the spinner and records the start time.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is currently running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// Elapsed returns the duration since the spinner started.
func (s *Spinner) Elapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles messages for the spinner.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}

	spinnerView := lipgloss.NewStyle().
		Foreground(styles.Indigo).
		Render(s.spinner.View())

	messageView := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render(s.message)

	dotsView := lipgloss.NewStyle().
		Foreground(styles.Indigo).
		Render("...")

	result := spinnerView + " " + messageView + dotsView

	if s.showTimer && !s.startTime.IsZero() {
		timerView := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" (" + formatElapsed(time.Since(s.startTime)) + ")")
		result += timerView
	}

	return result
}

// formatElapsed formats a duration for display.
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
