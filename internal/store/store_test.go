// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/morganforge/kbchat-tui/internal/model"
)

// =============================================================================
// NON-EMPTY INVARIANT
// =============================================================================

func TestOpen_FreshDirHasOneConversation(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if s.ActiveID() == "" {
		t.Error("fresh store has no active conversation")
	}
	active := s.Active()
	if !active.IsEmpty() {
		t.Error("fresh conversation should have no messages")
	}
}

func TestDelete_LastConversationRecreates(t *testing.T) {
	s := NewInMemory()
	id := s.ActiveID()

	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after deleting last", s.Len())
	}
	if s.ActiveID() == id {
		t.Error("replacement conversation should have a new ID")
	}
}

func TestDelete_ActiveFallsToFirst(t *testing.T) {
	s := NewInMemory()
	first := s.ActiveID()
	second := s.Create()

	if err := s.Delete(second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.ActiveID() != first {
		t.Errorf("ActiveID() = %q, want %q", s.ActiveID(), first)
	}
}

func TestDelete_Unknown(t *testing.T) {
	s := NewInMemory()
	if err := s.Delete("conv_0"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Delete(unknown) = %v, want ErrConversationNotFound", err)
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	conv := s.Create()
	if err := s.Append(conv.ID, model.NewUserMessage("hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	score := 90.0
	if err := s.Append(conv.ID, model.NewAssistantMessage("hi", []string{"a.md"}, &score)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.AdoptSession(conv.ID, "sess-1"); err != nil {
		t.Fatalf("AdoptSession: %v", err)
	}
	if err := s.SetTitle(conv.ID, "Round trip"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get(conv.ID)
	if !ok {
		t.Fatal("conversation lost across reopen")
	}
	if got.Title != "Round trip" || got.SessionID != "sess-1" {
		t.Errorf("got title=%q session=%q", got.Title, got.SessionID)
	}
	if got.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", got.MessageCount())
	}
	reply := got.Messages[1]
	if len(reply.Sources) != 1 || reply.ConfidenceScore == nil || *reply.ConfidenceScore != 90.0 {
		t.Errorf("attribution lost: sources=%v score=%v", reply.Sources, reply.ConfidenceScore)
	}
	if reopened.ActiveID() != conv.ID {
		t.Errorf("ActiveID() = %q, want %q", reopened.ActiveID(), conv.ID)
	}
}

func TestOpen_MalformedCacheStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CacheFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 fresh conversation", s.Len())
	}
}

// =============================================================================
// SESSION UNIQUENESS
// =============================================================================

func TestAdoptSession_Uniqueness(t *testing.T) {
	s := NewInMemory()
	a := s.ActiveID()
	b := s.Create().ID

	if err := s.AdoptSession(a, "sess-1"); err != nil {
		t.Fatalf("AdoptSession: %v", err)
	}
	if err := s.AdoptSession(b, "sess-1"); err != nil {
		t.Fatalf("AdoptSession: %v", err)
	}

	convA, _ := s.Get(a)
	convB, _ := s.Get(b)
	if convA.SessionID != "" {
		t.Errorf("first holder kept session %q, want unbound", convA.SessionID)
	}
	if convB.SessionID != "sess-1" {
		t.Errorf("adopter session = %q, want sess-1", convB.SessionID)
	}
}

func TestReplaceFromServer_StealsSession(t *testing.T) {
	s := NewInMemory()
	a := s.ActiveID()
	b := s.Create().ID
	if err := s.AdoptSession(a, "sess-1"); err != nil {
		t.Fatalf("AdoptSession: %v", err)
	}

	msgs := []model.Message{model.NewUserMessage("q"), model.NewAssistantMessage("a", nil, nil)}
	if err := s.ReplaceFromServer(b, "sess-1", msgs); err != nil {
		t.Fatalf("ReplaceFromServer: %v", err)
	}

	convA, _ := s.Get(a)
	convB, _ := s.Get(b)
	if convA.SessionID != "" {
		t.Error("previous holder should be unbound")
	}
	if convB.SessionID != "sess-1" || convB.MessageCount() != 2 {
		t.Errorf("got session=%q count=%d", convB.SessionID, convB.MessageCount())
	}
}

func TestFindBySession(t *testing.T) {
	s := NewInMemory()
	id := s.ActiveID()
	if err := s.AdoptSession(id, "sess-9"); err != nil {
		t.Fatalf("AdoptSession: %v", err)
	}

	if got, ok := s.FindBySession("sess-9"); !ok || got != id {
		t.Errorf("FindBySession(sess-9) = %q, %v", got, ok)
	}
	if _, ok := s.FindBySession(""); ok {
		t.Error("empty session id must never match")
	}
}

// =============================================================================
// COPY SEMANTICS
// =============================================================================

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewInMemory()
	id := s.ActiveID()
	if err := s.Append(id, model.NewUserMessage("original")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	conv, _ := s.Get(id)
	conv.Messages[0].Content = "mutated"
	conv.Title = "mutated"

	fresh, _ := s.Get(id)
	if fresh.Messages[0].Content != "original" {
		t.Error("mutating a returned conversation leaked into the store")
	}
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	s := NewInMemory()
	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot len = %d, want 1", len(snap))
	}
	snap[0].Title = "mutated"

	if s.Active().Title == "mutated" {
		t.Error("mutating a snapshot leaked into the store")
	}
}

// =============================================================================
// REPLACE ALL
// =============================================================================

func TestReplaceAll_KeepsSurvivingActive(t *testing.T) {
	s := NewInMemory()
	active := s.Active()

	merged := []*model.Conversation{model.NewConversation(), active.Clone()}
	s.ReplaceAll(merged)

	if s.ActiveID() != active.ID {
		t.Errorf("ActiveID() = %q, want surviving %q", s.ActiveID(), active.ID)
	}
}

func TestReplaceAll_ActivationFallsToFirst(t *testing.T) {
	s := NewInMemory()
	a := model.NewConversation()
	b := model.NewConversation()
	b.ID = model.GenerateID(model.CreationTime(a.ID).Add(-1_000_000_000))

	s.ReplaceAll([]*model.Conversation{a, b})
	if s.ActiveID() != a.ID {
		t.Errorf("ActiveID() = %q, want first %q", s.ActiveID(), a.ID)
	}
}

func TestReplaceAll_EmptyListRecreates(t *testing.T) {
	s := NewInMemory()
	s.ReplaceAll(nil)

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after empty replace", s.Len())
	}
	if s.ActiveID() == "" {
		t.Error("active conversation missing after empty replace")
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

func TestClear_ResetsMessagesAndSession(t *testing.T) {
	s := NewInMemory()
	id := s.ActiveID()
	if err := s.Append(id, model.NewUserMessage("q")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.AdoptSession(id, "sess-1"); err != nil {
		t.Fatalf("AdoptSession: %v", err)
	}

	if err := s.Clear(id); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	conv, _ := s.Get(id)
	if !conv.IsEmpty() || conv.SessionID != "" {
		t.Errorf("after Clear: count=%d session=%q", conv.MessageCount(), conv.SessionID)
	}
}

func TestFreezeTitle_OnlyWhenEmpty(t *testing.T) {
	s := NewInMemory()
	id := s.ActiveID()
	if err := s.Append(id, model.NewUserMessage("q")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	before, _ := s.Get(id)

	if err := s.FreezeTitle(id); err != nil {
		t.Fatalf("FreezeTitle: %v", err)
	}
	after, _ := s.Get(id)
	if after.Title != before.Title {
		t.Errorf("title changed on non-empty conversation: %q -> %q", before.Title, after.Title)
	}
}
