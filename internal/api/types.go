// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the JSON-over-HTTP client for the chat backend.
package api

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morganforge/kbchat-tui/internal/model"
)

// =============================================================================
// TIMESTAMP TYPE
// =============================================================================

// Timestamp unmarshals the backend's ISO-8601 timestamps, which may or may
// not carry a timezone offset or fractional seconds.
type Timestamp struct {
	time.Time
}

// timestampLayouts are tried in order when parsing.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat. SessionID is null on the first
// turn of a conversation; the server creates a session and returns its id.
type ChatRequest struct {
	Query     string  `json:"query"`
	SessionID *string `json:"session_id"`
}

// ChatResponse is the reply to a chat turn.
type ChatResponse struct {
	Answer          string   `json:"answer"`
	Sources         []string `json:"sources"`
	SessionID       string   `json:"session_id"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

// =============================================================================
// CONVERSATION TYPES
// =============================================================================

// ConversationSummary is one entry of GET /api/conversations, used only for
// sorting and selecting which full conversations to fetch.
type ConversationSummary struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// conversationListResponse wraps the summary list.
type conversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// ServerConversation is the full record from
// GET /api/conversations/{session_id}.
type ServerConversation struct {
	SessionID string          `json:"session_id"`
	CreatedAt Timestamp       `json:"created_at"`
	UpdatedAt Timestamp       `json:"updated_at"`
	Messages  []ServerMessage `json:"messages"`
}

// ServerMessage is one stored message in a server conversation record.
type ServerMessage struct {
	ID              string    `json:"id"`
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	Sources         []string  `json:"sources"`
	Timestamp       Timestamp `json:"timestamp"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
}

// ToModel converts a server message to the local message type.
func (m ServerMessage) ToModel() model.Message {
	id := m.ID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}

	role := model.Role(m.Role)
	if !role.IsValid() {
		role = model.RoleAssistant
	}

	msg := model.Message{
		ID:        id,
		Role:      role,
		Content:   m.Content,
		Timestamp: m.Timestamp.Time,
	}
	if len(m.Sources) > 0 {
		msg.Sources = append([]string(nil), m.Sources...)
	}
	if m.ConfidenceScore != nil {
		score := *m.ConfidenceScore
		msg.ConfidenceScore = &score
	}
	return msg
}

// ToModelMessages converts all messages of a server record.
func (c ServerConversation) ToModelMessages() []model.Message {
	msgs := make([]model.Message, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = m.ToModel()
	}
	return msgs
}

// =============================================================================
// KNOWLEDGE BASE TYPES
// =============================================================================

// KBStatus is the reply to GET /api/kb/status.
type KBStatus struct {
	TotalChunks int      `json:"total_chunks"`
	UniqueFiles int      `json:"unique_files"`
	Files       []string `json:"files"`
}

// FileStatus is the per-file outcome of an upload.
type FileStatus struct {
	Status  string `json:"status"` // "success" or "error"
	Message string `json:"message,omitempty"`
}

// IsSuccess reports whether the file was indexed.
func (f FileStatus) IsSuccess() bool {
	return f.Status == "success"
}

// UploadResult maps filename to upload outcome.
type UploadResult map[string]FileStatus

// Counts returns the number of successful and failed files.
func (r UploadResult) Counts() (succeeded, failed int) {
	for _, st := range r {
		if st.IsSuccess() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// KBFile describes one file in the knowledge base directory listing.
type KBFile struct {
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
}

// kbListResponse wraps GET /api/kb/list.
type kbListResponse struct {
	Files []KBFile `json:"files"`
}

// statusResponse is the generic {status, message} reply shape.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorResponse is FastAPI's error shape; Detail carries the reason.
type errorResponse struct {
	Detail string `json:"detail"`
}
