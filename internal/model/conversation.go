// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strconv"
	"strings"
	"time"
)

// TitleTimeFormat is the layout used for timestamp-derived titles.
// Matches "01/02/2024, 15:04:05" for a conversation started then.
const TitleTimeFormat = "01/02/2006, 15:04:05"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one locally tracked chat thread, optionally bound to a
// server-side session.
type Conversation struct {
	// Identity. The ID embeds the creation time in unix milliseconds
	// ("conv_1704189600000") and is stable for the record's lifetime.
	ID    string `json:"id"`
	Title string `json:"title"`

	// SessionID binds this conversation to server-side stored history.
	// Empty until the first successful chat round trip. At most one
	// conversation holds a given non-empty session id at a time.
	SessionID string `json:"session_id,omitempty"`

	// Messages, ordered. Append-only from the turn controller's
	// perspective; only wholesale replacement during reconciliation may
	// shrink or reorder it.
	Messages []Message `json:"messages"`
}

// NewConversation creates a new conversation with a timestamp-derived ID and
// title, no messages, and no session binding.
func NewConversation() *Conversation {
	return NewConversationAt(time.Now())
}

// NewConversationAt creates a conversation stamped with the given time.
// Used by the reconciler to synthesize records from server timestamps so
// that creation-order sorting reflects server recency.
func NewConversationAt(t time.Time) *Conversation {
	return &Conversation{
		ID:       GenerateID(t),
		Title:    t.Format(TitleTimeFormat),
		Messages: make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// ReplaceMessages swaps in a server-canonical message list. Reconciliation
// only; everything else appends.
func (c *Conversation) ReplaceMessages(msgs []Message) {
	c.Messages = make([]Message, len(msgs))
	copy(c.Messages, msgs)
}

// ClearHistory removes all messages and unbinds the server session.
// The conversation itself survives and server-side data is untouched.
func (c *Conversation) ClearHistory() {
	c.Messages = make([]Message, 0)
	c.SessionID = ""
}

// LastMessage returns the most recent message, or a zero Message and false
// if the conversation is empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// IsSynced reports whether the conversation is bound to a server session.
func (c *Conversation) IsSynced() bool {
	return c.SessionID != ""
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// SetTitle overwrites the conversation title. Free text, no validation.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
}

// FreezeTitle stamps the title with the given time if the conversation has no
// messages yet. Called before the first message is sent so the title reflects
// conversation-start time; subsequent messages never change it.
func (c *Conversation) FreezeTitle(t time.Time) {
	if len(c.Messages) == 0 {
		c.Title = t.Format(TitleTimeFormat)
	}
}

// =============================================================================
// CREATION TIME
// =============================================================================

// CreatedAt derives the creation time from the conversation ID. Falls back to
// the zero time for IDs that do not carry a timestamp.
func (c *Conversation) CreatedAt() time.Time {
	return CreationTime(c.ID)
}

// Preview returns a short preview of the conversation for listing.
func (c *Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(80)
		}
	}
	return ""
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		SessionID: c.SessionID,
		Messages:  make([]Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return clone
}

// =============================================================================
// ID HELPERS
// =============================================================================

// GenerateID creates a conversation ID embedding the given time.
func GenerateID(t time.Time) string {
	return "conv_" + strconv.FormatInt(t.UnixMilli(), 10)
}

// CreationTime extracts the embedded timestamp from a conversation ID.
// Returns the zero time if the ID is not in the expected form.
func CreationTime(id string) time.Time {
	rest, ok := strings.CutPrefix(id, "conv_")
	if !ok {
		return time.Time{}
	}
	millis, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
