// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn orchestrates one chat request/response cycle.
package turn

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/reconcile"
	"github.com/morganforge/kbchat-tui/internal/store"
)

// DefaultMaxMessages is the default cap on messages per conversation.
const DefaultMaxMessages = 20

// ErrorReplyText is the fixed assistant message appended when a chat turn
// fails. No automatic retry is attempted; the user resubmits.
const ErrorReplyText = "Sorry, an error occurred. Please try again."

// Guard rejection errors. No network call is made when these are returned;
// the caller warns the user synchronously.
var (
	// ErrEmptyInput rejects empty or whitespace-only input.
	ErrEmptyInput = errors.New("message is empty")

	// ErrNoConversation rejects a submission with no target conversation.
	ErrNoConversation = errors.New("no active conversation")

	// ErrMessageLimit rejects a submission when the conversation already
	// holds the configured maximum number of messages.
	ErrMessageLimit = errors.New("message limit reached")

	// ErrBusy rejects a second submission while one is already in flight
	// for the same conversation.
	ErrBusy = errors.New("a message is already being sent")
)

// Backend is the slice of the API client the controller needs: the chat
// endpoint plus the record fetch used for the post-turn canonical sync.
type Backend interface {
	Chat(ctx context.Context, query, sessionID string) (*api.ChatResponse, error)
	reconcile.RecordFetcher
}

// Result reports what one submission did.
type Result struct {
	// ConversationID is the conversation the turn ran against.
	ConversationID string
	// SessionID is the session id after the turn (newly adopted on turn one).
	SessionID string
	// Failed is true when the chat call failed and the fixed error reply
	// was appended instead of an answer.
	Failed bool
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs the per-submission state machine:
//
//	Idle -> Sending -> (Success | Failed) -> Idle
//
// Only one submission may be in flight per conversation; a second attempt is
// rejected by the Busy guard rather than queued or locked.
type Controller struct {
	store       *store.Store
	backend     Backend
	maxMessages int

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewController creates a controller over the given store and backend.
// maxMessages <= 0 selects DefaultMaxMessages.
func NewController(st *store.Store, backend Backend, maxMessages int) *Controller {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Controller{
		store:       st,
		backend:     backend,
		maxMessages: maxMessages,
		inFlight:    make(map[string]bool),
	}
}

// MaxMessages returns the configured per-conversation message cap.
func (c *Controller) MaxMessages() int {
	return c.maxMessages
}

// Busy reports whether a submission is in flight for the conversation.
func (c *Controller) Busy(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[conversationID]
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Send runs one chat turn against the given conversation.
//
// Guard rejections (empty input, unknown conversation, message cap, already
// sending) return an error before any state changes or network traffic.
//
// Past the guards, the user message is appended optimistically and survives
// regardless of the network outcome. On success the assistant reply is
// appended, the returned session id adopted, and a best-effort secondary
// sync overwrites the message list with the server's canonical version; that
// sync failing is silent. On failure the fixed error reply is appended and
// Result.Failed is set; the chat error itself does not propagate.
func (c *Controller) Send(ctx context.Context, conversationID, input string) (Result, error) {
	input = strings.TrimRight(input, "\n")
	if strings.TrimSpace(input) == "" {
		return Result{}, ErrEmptyInput
	}

	conv, ok := c.store.Get(conversationID)
	if !ok {
		return Result{}, ErrNoConversation
	}
	if conv.MessageCount() >= c.maxMessages {
		return Result{}, ErrMessageLimit
	}

	if !c.acquire(conversationID) {
		return Result{}, ErrBusy
	}
	defer c.release(conversationID)

	// First message freezes the title to the conversation-start time.
	// Second and later messages never change it.
	if conv.IsEmpty() {
		c.store.FreezeTitle(conversationID)
	}

	// Optimistic append: visible immediately, independent of the network.
	c.store.Append(conversationID, model.NewUserMessage(input))

	resp, err := c.backend.Chat(ctx, input, conv.SessionID)
	if err != nil {
		log.Printf("turn: chat failed for %s: %v", conversationID, err)
		c.store.Append(conversationID, model.NewAssistantMessage(ErrorReplyText, nil, nil))
		return Result{ConversationID: conversationID, SessionID: conv.SessionID, Failed: true}, nil
	}

	c.store.Append(conversationID, model.NewAssistantMessage(resp.Answer, resp.Sources, resp.ConfidenceScore))
	c.store.AdoptSession(conversationID, resp.SessionID)

	// Best-effort canonical sync: the stored record may carry derived
	// fields (per-message confidence) the immediate response lacks.
	// Failure leaves the optimistic state intact.
	reconcile.ReconcileOne(ctx, c.backend, c.store, resp.SessionID)

	return Result{ConversationID: conversationID, SessionID: resp.SessionID}, nil
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear empties the conversation's messages and resets its session id. The
// conversation itself and all server-side data survive. Rejected while a
// submission is in flight.
func (c *Controller) Clear(conversationID string) error {
	if c.Busy(conversationID) {
		return ErrBusy
	}
	return c.store.Clear(conversationID)
}

// =============================================================================
// IN-FLIGHT TRACKING
// =============================================================================

// acquire marks a conversation as sending. Returns false if already marked.
func (c *Controller) acquire(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[conversationID] {
		return false
	}
	c.inFlight[conversationID] = true
	return true
}

// release clears the sending mark.
func (c *Controller) release(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, conversationID)
}
