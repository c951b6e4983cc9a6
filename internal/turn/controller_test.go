// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/store"
)

// fakeBackend answers chat turns from a canned response and serves optional
// canonical records for the post-turn sync.
type fakeBackend struct {
	resp    *api.ChatResponse
	chatErr error
	record  *api.ServerConversation

	chatCalls  int
	gotQuery   string
	gotSession string
	blockChat  chan struct{} // when set, Chat waits until closed
}

func (f *fakeBackend) Chat(ctx context.Context, query, sessionID string) (*api.ChatResponse, error) {
	f.chatCalls++
	f.gotQuery = query
	f.gotSession = sessionID
	if f.blockChat != nil {
		<-f.blockChat
	}
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return f.resp, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, sessionID string) (*api.ServerConversation, error) {
	if f.record == nil {
		return nil, api.ErrSessionNotFound
	}
	return f.record, nil
}

// =============================================================================
// GUARDS
// =============================================================================

func TestSend_GuardRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(st *store.Store) (convID, input string)
		want  error
	}{
		{
			name: "empty input",
			setup: func(st *store.Store) (string, string) {
				return st.ActiveID(), "   \n"
			},
			want: ErrEmptyInput,
		},
		{
			name: "unknown conversation",
			setup: func(st *store.Store) (string, string) {
				return "conv_0", "hello"
			},
			want: ErrNoConversation,
		},
		{
			name: "message limit",
			setup: func(st *store.Store) (string, string) {
				id := st.ActiveID()
				for i := 0; i < DefaultMaxMessages; i++ {
					st.Append(id, model.NewUserMessage("filler"))
				}
				return id, "one more"
			},
			want: ErrMessageLimit,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewInMemory()
			backend := &fakeBackend{}
			ctrl := NewController(st, backend, 0)

			convID, input := tc.setup(st)
			_, err := ctrl.Send(context.Background(), convID, input)

			if !errors.Is(err, tc.want) {
				t.Errorf("Send() error = %v, want %v", err, tc.want)
			}
			if backend.chatCalls != 0 {
				t.Error("guard rejection must not reach the network")
			}
		})
	}
}

func TestSend_BusyGuard(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	backend := &fakeBackend{
		resp:      &api.ChatResponse{Answer: "hi", SessionID: "sess-1"},
		blockChat: make(chan struct{}),
	}
	ctrl := NewController(st, backend, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := ctrl.Send(context.Background(), id, "first"); err != nil {
			t.Errorf("first Send: %v", err)
		}
	}()

	// Wait for the first submission to be marked in flight.
	for !ctrl.Busy(id) {
		time.Sleep(time.Millisecond)
	}

	if _, err := ctrl.Send(context.Background(), id, "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Send() error = %v, want ErrBusy", err)
	}

	close(backend.blockChat)
	<-done

	if ctrl.Busy(id) {
		t.Error("conversation still marked busy after completion")
	}
}

// =============================================================================
// SUCCESSFUL TURN
// =============================================================================

func TestSend_AppendsTurnAndAdoptsSession(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	score := 85.0
	backend := &fakeBackend{
		resp: &api.ChatResponse{
			Answer:          "the answer",
			Sources:         []string{"doc.md"},
			SessionID:       "sess-1",
			ConfidenceScore: &score,
		},
	}
	ctrl := NewController(st, backend, 0)

	res, err := ctrl.Send(context.Background(), id, "the question\n")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.SessionID != "sess-1" || res.Failed {
		t.Errorf("Result = %+v", res)
	}
	if backend.gotQuery != "the question" {
		t.Errorf("query = %q, trailing newline should be trimmed", backend.gotQuery)
	}
	if backend.gotSession != "" {
		t.Errorf("first turn carried session %q, want none", backend.gotSession)
	}

	conv, _ := st.Get(id)
	if conv.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want adopted sess-1", conv.SessionID)
	}
	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want 2", conv.MessageCount())
	}
	reply := conv.Messages[1]
	if reply.Role != model.RoleAssistant || reply.Content != "the answer" {
		t.Errorf("reply = %+v", reply)
	}
	if len(reply.Sources) != 1 || reply.ConfidenceScore == nil || *reply.ConfidenceScore != 85.0 {
		t.Errorf("attribution lost: %+v", reply)
	}
}

func TestSend_FreezesTitleOnFirstMessageOnly(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	backend := &fakeBackend{resp: &api.ChatResponse{Answer: "a", SessionID: "sess-1"}}
	ctrl := NewController(st, backend, 0)

	if _, err := ctrl.Send(context.Background(), id, "first"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	conv, _ := st.Get(id)
	frozen := conv.Title

	if _, err := ctrl.Send(context.Background(), id, "second"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	conv, _ = st.Get(id)
	if conv.Title != frozen {
		t.Errorf("title changed on second message: %q -> %q", frozen, conv.Title)
	}
}

func TestSend_PostTurnSyncAppliesCanonicalRecord(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	score := 60.0
	backend := &fakeBackend{
		resp: &api.ChatResponse{Answer: "immediate", SessionID: "sess-1"},
		record: &api.ServerConversation{
			SessionID: "sess-1",
			Messages: []api.ServerMessage{
				{ID: "m1", Role: "user", Content: "q"},
				{ID: "m2", Role: "assistant", Content: "immediate", ConfidenceScore: &score},
			},
		},
	}
	ctrl := NewController(st, backend, 0)

	if _, err := ctrl.Send(context.Background(), id, "q"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conv, _ := st.Get(id)
	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want canonical 2", conv.MessageCount())
	}
	reply := conv.Messages[1]
	if reply.ConfidenceScore == nil || *reply.ConfidenceScore != 60.0 {
		t.Error("canonical record's derived fields not applied")
	}
}

// =============================================================================
// FAILED TURN
// =============================================================================

func TestSend_FailureAppendsErrorReply(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	backend := &fakeBackend{chatErr: errors.New("connection refused")}
	ctrl := NewController(st, backend, 0)

	res, err := ctrl.Send(context.Background(), id, "hello")
	if err != nil {
		t.Fatalf("Send() propagated the chat error: %v", err)
	}
	if !res.Failed {
		t.Error("Result.Failed should be set")
	}

	conv, _ := st.Get(id)
	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want optimistic user message plus error reply", conv.MessageCount())
	}
	if conv.Messages[0].Content != "hello" {
		t.Error("optimistic user message missing after failure")
	}
	if conv.Messages[1].Content != ErrorReplyText || conv.Messages[1].Role != model.RoleAssistant {
		t.Errorf("error reply = %+v", conv.Messages[1])
	}
	if conv.SessionID != "" {
		t.Errorf("failed turn adopted session %q", conv.SessionID)
	}
}

// =============================================================================
// CLEAR
// =============================================================================

func TestClear_ResetsConversation(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	backend := &fakeBackend{resp: &api.ChatResponse{Answer: "a", SessionID: "sess-1"}}
	ctrl := NewController(st, backend, 0)

	if _, err := ctrl.Send(context.Background(), id, "q"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := ctrl.Clear(id); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	conv, _ := st.Get(id)
	if !conv.IsEmpty() || conv.SessionID != "" {
		t.Errorf("after Clear: count=%d session=%q", conv.MessageCount(), conv.SessionID)
	}
}

func TestClear_RejectedWhileSending(t *testing.T) {
	st := store.NewInMemory()
	id := st.ActiveID()
	backend := &fakeBackend{
		resp:      &api.ChatResponse{Answer: "a", SessionID: "sess-1"},
		blockChat: make(chan struct{}),
	}
	ctrl := NewController(st, backend, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Send(context.Background(), id, "q")
	}()
	for !ctrl.Busy(id) {
		time.Sleep(time.Millisecond)
	}

	if err := ctrl.Clear(id); !errors.Is(err, ErrBusy) {
		t.Errorf("Clear() error = %v, want ErrBusy", err)
	}

	close(backend.blockChat)
	<-done
}
