// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/morganforge/kbchat-tui/internal/model"
)

func sampleConversation() *model.Conversation {
	score := 85.0
	conv := model.NewConversation()
	conv.SetTitle("Research notes")
	conv.SessionID = "sess-1"
	conv.AddMessage(model.NewUserMessage("What is in the docs?"))
	conv.AddMessage(model.NewAssistantMessage("The docs cover setup.\n\nSee the install guide.", []string{"install.md", "readme.md"}, &score))
	return conv
}

// =============================================================================
// FORMAT PARSING
// =============================================================================

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{" json ", FormatJSON, false},
		{"yaml", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestFormat_Extension(t *testing.T) {
	if FormatMarkdown.Extension() != "md" || FormatJSON.Extension() != "json" {
		t.Errorf("extensions = %q, %q", FormatMarkdown.Extension(), FormatJSON.Extension())
	}
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

func TestRender_Markdown(t *testing.T) {
	out, err := Render(sampleConversation(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(out)

	wantFragments := []string{
		"# Research notes",
		"- Session: `sess-1`",
		"## You",
		"What is in the docs?",
		"## Assistant",
		"See the install guide.",
		"- install.md",
		"- readme.md",
		"Confidence: 85%",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(text, frag) {
			t.Errorf("markdown output missing %q", frag)
		}
	}
}

func TestRender_MarkdownOmitsEmptyAttribution(t *testing.T) {
	conv := model.NewConversation()
	conv.AddMessage(model.NewAssistantMessage("plain answer", nil, nil))

	out, err := Render(conv, FormatMarkdown)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(out)

	if strings.Contains(text, "Sources:") || strings.Contains(text, "Confidence:") {
		t.Error("attribution sections should be omitted when absent")
	}
	if strings.Contains(text, "Session:") {
		t.Error("session line should be omitted for unsynced conversations")
	}
}

// =============================================================================
// JSON RENDERING
// =============================================================================

func TestRender_JSONRoundTrip(t *testing.T) {
	conv := sampleConversation()
	out, err := Render(conv, FormatJSON)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var got model.Conversation
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != conv.ID || got.Title != conv.Title || got.SessionID != conv.SessionID {
		t.Errorf("identity fields lost: %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(got.Messages))
	}
	if got.Messages[1].Content != conv.Messages[1].Content {
		t.Error("multi-line content lost in JSON export")
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if _, err := Render(sampleConversation(), Format("yaml")); err == nil {
		t.Error("expected error for unknown format")
	}
}

// =============================================================================
// FILE NAMES
// =============================================================================

func TestDefaultFileName(t *testing.T) {
	conv := sampleConversation()
	name := DefaultFileName(conv, FormatMarkdown)

	if !strings.HasPrefix(name, "kbchat-") || !strings.HasSuffix(name, ".md") {
		t.Errorf("DefaultFileName = %q", name)
	}
}
