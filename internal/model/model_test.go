// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// ID TESTS
// =============================================================================

func TestGenerateID_RoundTrip(t *testing.T) {
	stamp := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	id := GenerateID(stamp)

	if !strings.HasPrefix(id, "conv_") {
		t.Errorf("GenerateID() = %q, want conv_ prefix", id)
	}
	if got := CreationTime(id); !got.Equal(stamp) {
		t.Errorf("CreationTime(%q) = %v, want %v", id, got, stamp)
	}
}

func TestCreationTime_Malformed(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"no prefix", "1704189600000"},
		{"wrong prefix", "sess_1704189600000"},
		{"non numeric", "conv_abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CreationTime(tc.id); !got.IsZero() {
				t.Errorf("CreationTime(%q) = %v, want zero time", tc.id, got)
			}
		})
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversationAt(t *testing.T) {
	stamp := time.Date(2024, 3, 15, 9, 30, 45, 0, time.Local)
	conv := NewConversationAt(stamp)

	if conv.Title != "03/15/2024, 09:30:45" {
		t.Errorf("Title = %q, want timestamp format", conv.Title)
	}
	if !conv.CreatedAt().Equal(stamp) {
		t.Errorf("CreatedAt() = %v, want %v", conv.CreatedAt(), stamp)
	}
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}
	if conv.IsSynced() {
		t.Error("new conversation should not be synced")
	}
}

func TestConversation_FreezeTitle(t *testing.T) {
	conv := NewConversation()
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	conv.FreezeTitle(stamp)
	if conv.Title != stamp.Format(TitleTimeFormat) {
		t.Errorf("Title = %q, want frozen timestamp", conv.Title)
	}

	// Once a message exists the title is immutable via FreezeTitle.
	conv.AddMessage(NewUserMessage("hello"))
	conv.FreezeTitle(stamp.Add(time.Hour))
	if conv.Title != stamp.Format(TitleTimeFormat) {
		t.Errorf("Title changed after first message: %q", conv.Title)
	}

	// Explicit renames always work.
	conv.SetTitle("My research")
	if conv.Title != "My research" {
		t.Errorf("SetTitle did not apply, got %q", conv.Title)
	}
}

func TestConversation_ClearHistory(t *testing.T) {
	conv := NewConversation()
	conv.SessionID = "sess-1"
	conv.AddMessage(NewUserMessage("q"))
	conv.AddMessage(NewAssistantMessage("a", nil, nil))

	conv.ClearHistory()

	if !conv.IsEmpty() {
		t.Error("ClearHistory should remove all messages")
	}
	if conv.SessionID != "" {
		t.Error("ClearHistory should unbind the session")
	}
}

func TestConversation_Clone_Independent(t *testing.T) {
	score := 90.0
	conv := NewConversation()
	conv.AddMessage(NewAssistantMessage("answer", []string{"a.txt"}, &score))

	clone := conv.Clone()
	clone.Messages[0].Sources[0] = "b.txt"
	*clone.Messages[0].ConfidenceScore = 10.0
	clone.AddMessage(NewUserMessage("extra"))

	if conv.Messages[0].Sources[0] != "a.txt" {
		t.Error("clone shares Sources with original")
	}
	if *conv.Messages[0].ConfidenceScore != 90.0 {
		t.Error("clone shares ConfidenceScore with original")
	}
	if conv.MessageCount() != 1 {
		t.Error("clone shares message slice with original")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{Role("system"), "system"},
	}

	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"short", "hello", 10, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"first line only", "line one\nline two", 80, "line one"},
		{"unicode", "héllo wörld", 8, "héllo..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := Message{Content: tc.content}
			if got := msg.Preview(tc.maxLen); got != tc.want {
				t.Errorf("Preview(%d) = %q, want %q", tc.maxLen, got, tc.want)
			}
		})
	}
}

func TestMessage_NewlinesSurviveJSON(t *testing.T) {
	msg := NewAssistantMessage("first\n\nsecond\nthird", nil, nil)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Content != msg.Content {
		t.Errorf("Content = %q, want %q", got.Content, msg.Content)
	}
}

func TestNewAssistantMessage_Attribution(t *testing.T) {
	score := 0.72
	msg := NewAssistantMessage("answer", []string{"doc.md"}, &score)

	if !msg.HasSources() || !msg.HasConfidence() {
		t.Error("assistant message should carry sources and confidence")
	}

	bare := NewAssistantMessage("answer", nil, nil)
	if bare.HasSources() || bare.HasConfidence() {
		t.Error("bare assistant message should have no attribution")
	}
}
