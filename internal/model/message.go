// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Content may contain embedded newlines; they are preserved through
// persistence and rendering. Sources and ConfidenceScore are server-derived
// fields carried on assistant messages only.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Citations backing the answer. Empty or absent means nothing to show.
	Sources []string `json:"sources,omitempty"`

	// Retrieval confidence on a 0..100 percentage scale. Nil means not
	// computed.
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message with optional
// sources and confidence score.
func NewAssistantMessage(content string, sources []string, confidence *float64) Message {
	msg := NewMessage(RoleAssistant, content)
	msg.Sources = sources
	msg.ConfidenceScore = confidence
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// HasSources reports whether the message carries any citations.
func (m Message) HasSources() bool {
	return len(m.Sources) > 0
}

// HasConfidence reports whether a confidence score was computed.
func (m Message) HasConfidence() bool {
	return m.ConfidenceScore != nil
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := m.Content
	for i, r := range content {
		if r == '\n' || r == '\r' {
			content = content[:i]
			break
		}
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	clone := m
	if m.Sources != nil {
		clone.Sources = make([]string, len(m.Sources))
		copy(clone.Sources, m.Sources)
	}
	if m.ConfidenceScore != nil {
		score := *m.ConfidenceScore
		clone.ConfidenceScore = &score
	}
	return clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	return "msg_" + uuid.NewString()
}
