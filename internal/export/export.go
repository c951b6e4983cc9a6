// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/morganforge/kbchat-tui/internal/model"
)

// Format identifies an export output format.
type Format string

const (
	// FormatMarkdown renders a human-readable transcript.
	FormatMarkdown Format = "markdown"

	// FormatJSON renders the raw conversation document.
	FormatJSON Format = "json"
)

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format: %q (want markdown or json)", s)
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatJSON {
		return "json"
	}
	return "md"
}

// Render serializes a conversation in the given format.
func Render(conv *model.Conversation, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(conv), nil
	case FormatJSON:
		return renderJSON(conv)
	default:
		return nil, fmt.Errorf("unknown export format: %q", format)
	}
}

// DefaultFileName returns a timestamped file name for an export.
func DefaultFileName(conv *model.Conversation, format Format) string {
	stamp := conv.CreatedAt().Format("20060102-150405")
	return fmt.Sprintf("kbchat-%s.%s", stamp, format.Extension())
}

func renderMarkdown(conv *model.Conversation) []byte {
	var sb strings.Builder

	sb.WriteString("# " + conv.Title + "\n\n")
	sb.WriteString("- Conversation: `" + conv.ID + "`\n")
	if conv.SessionID != "" {
		sb.WriteString("- Session: `" + conv.SessionID + "`\n")
	}
	sb.WriteString("- Exported: " + time.Now().Format(time.RFC3339) + "\n\n")

	for i, msg := range conv.Messages {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString("## " + msg.Role.DisplayName())
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (" + msg.Timestamp.Format("2006-01-02 15:04:05") + ")")
		}
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if msg.HasSources() {
			sb.WriteString("\nSources:\n")
			for _, src := range msg.Sources {
				sb.WriteString("- " + src + "\n")
			}
		}
		if msg.HasConfidence() {
			sb.WriteString(fmt.Sprintf("\nConfidence: %.0f%%\n", *msg.ConfidenceScore))
		}
	}

	return []byte(sb.String())
}

func renderJSON(conv *model.Conversation) ([]byte, error) {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation: %w", err)
	}
	return append(data, '\n'), nil
}
