// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/ui/styles"
)

func testTheme() *styles.Theme {
	theme := styles.NewTheme()
	theme.SetSize(80, 24)
	return theme
}

// =============================================================================
// STATUS BAR TESTS
// =============================================================================

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusReady, "Ready"},
		{StatusSending, "Sending..."},
		{StatusSyncing, "Syncing..."},
		{StatusError, "Error"},
		{Status(99), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestStatusBar_SessionSegment(t *testing.T) {
	sb := NewStatusBar(testTheme())
	sb.MaxMessages = 20

	if view := sb.View(); !strings.Contains(view, "local only") {
		t.Error("unsynced status bar should show the local-only badge")
	}

	sb.SessionID = "sess-1234567890abcdef"
	view := sb.View()
	if !strings.Contains(view, "synced") {
		t.Error("synced status bar should show the synced badge")
	}
	if strings.Contains(view, "sess-1234567890abcdef") {
		t.Error("long session ids should be truncated")
	}
}

func TestStatusBar_Counter(t *testing.T) {
	sb := NewStatusBar(testTheme())
	sb.MaxMessages = 20
	sb.MessageCount = 4

	if view := sb.View(); !strings.Contains(view, "4/20 msgs") {
		t.Errorf("counter missing from view:\n%s", view)
	}
}

func TestStatusBar_NoticeReplacesShortcuts(t *testing.T) {
	sb := NewStatusBar(testTheme())
	sb.Width = 120
	sb.MaxMessages = 20

	if view := sb.View(); !strings.Contains(view, "new") {
		t.Error("shortcut help missing from default view")
	}

	sb.SetNotice("Exported to chat.md", false)
	view := sb.View()
	if !strings.Contains(view, "Exported to chat.md") {
		t.Error("notice missing from view")
	}
	if strings.Contains(view, "knowledge") {
		t.Error("shortcut help should be hidden while a notice is shown")
	}

	sb.ClearNotice()
	if view := sb.View(); strings.Contains(view, "Exported to chat.md") {
		t.Error("notice survived ClearNotice")
	}
}

// =============================================================================
// MESSAGE RENDERER TESTS
// =============================================================================

func TestMessageRenderer_PreservesNewlines(t *testing.T) {
	r := NewMessageRenderer(testTheme())
	msg := model.NewAssistantMessage("first paragraph\n\nsecond paragraph", nil, nil)

	out := r.Render(msg)
	if !strings.Contains(out, "first paragraph") || !strings.Contains(out, "second paragraph") {
		t.Errorf("content lost:\n%s", out)
	}
}

func TestMessageRenderer_Labels(t *testing.T) {
	r := NewMessageRenderer(testTheme())

	if out := r.Render(model.NewUserMessage("q")); !strings.Contains(out, "You") {
		t.Error("generic user label missing")
	}

	r.UserLabel = "Dana"
	r.AssistantLabel = "Scout"
	if out := r.Render(model.NewUserMessage("q")); !strings.Contains(out, "Dana") {
		t.Error("configured user label missing")
	}
	if out := r.Render(model.NewAssistantMessage("a", nil, nil)); !strings.Contains(out, "Scout") {
		t.Error("configured assistant label missing")
	}
}

func TestMessageRenderer_Attribution(t *testing.T) {
	r := NewMessageRenderer(testTheme())
	score := 85.0
	msg := model.NewAssistantMessage("a", []string{"install.md", "readme.md"}, &score)

	out := r.Render(msg)
	if !strings.Contains(out, "Sources (2)") || !strings.Contains(out, "install.md") {
		t.Errorf("sources missing:\n%s", out)
	}
	if !strings.Contains(out, "confidence 85%") {
		t.Errorf("confidence missing:\n%s", out)
	}

	r.ShowSources = false
	out = r.Render(msg)
	if strings.Contains(out, "install.md") {
		t.Error("source list shown while collapsed")
	}
	if !strings.Contains(out, "2 sources") {
		t.Error("collapsed hint missing")
	}
}

func TestMessageRenderer_UserMessagesSkipAttribution(t *testing.T) {
	r := NewMessageRenderer(testTheme())
	msg := model.NewUserMessage("just a question")
	msg.Sources = []string{"stray.md"}

	if out := r.Render(msg); strings.Contains(out, "Sources") {
		t.Error("user messages must not render attribution")
	}
}

// =============================================================================
// SPINNER TESTS
// =============================================================================

func TestSpinner_Lifecycle(t *testing.T) {
	s := NewThinkingSpinner()

	if s.IsActive() {
		t.Error("spinner should start inactive")
	}

	cmd := s.Start()
	if cmd == nil {
		t.Error("Start() should return a tick command")
	}
	if !s.IsActive() {
		t.Error("spinner should be active after Start")
	}

	s.Stop()
	if s.IsActive() {
		t.Error("spinner should be inactive after Stop")
	}
	if s.View() != "" {
		t.Error("inactive spinner should render nothing")
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3 * time.Second, "3s"},
		{65 * time.Second, "1m 5s"},
	}

	for _, tc := range tests {
		if got := formatElapsed(tc.d); got != tc.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
