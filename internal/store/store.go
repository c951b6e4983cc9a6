// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the ordered conversation list and its durable cache.
package store

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/util"
)

// CacheFileName is the fixed name of the durable cache inside the data dir.
const CacheFileName = "conversations.json"

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = errors.New("conversation not found")

// =============================================================================
// CACHE DOCUMENT
// =============================================================================

// cacheDocument is the serialized form of the store: the full conversation
// list plus the active pointer, written as one JSON document after every
// mutation.
type cacheDocument struct {
	Conversations []*model.Conversation `json:"conversations"`
	ActiveID      string                `json:"active_id,omitempty"`
}

// =============================================================================
// STORE
// =============================================================================

// Store is the single authoritative owner of conversation state. All writes
// go through it; readers get immutable snapshots. The list is never empty:
// deleting the last conversation immediately creates a fresh one.
type Store struct {
	mu sync.Mutex

	// path is the cache file location. Empty disables persistence.
	path string

	conversations []*model.Conversation
	activeID      string
}

// Open loads the store from the cache file under dir, creating a fresh
// conversation when the cache is missing or malformed. A cache that fails to
// parse is treated the same as no cache; startup never fails on bad data.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Store{path: filepath.Join(dir, CacheFileName)}
	s.load()
	s.ensureNonEmptyLocked()
	return s, nil
}

// NewInMemory creates a store with no durable cache. Used by tests.
func NewInMemory() *Store {
	s := &Store{}
	s.ensureNonEmptyLocked()
	return s
}

// load reads the cache file into memory. Missing or malformed content leaves
// the store empty; ensureNonEmptyLocked supplies the fresh conversation.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: reading cache: %v", err)
		}
		return
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("store: malformed cache, starting fresh: %v", err)
		return
	}

	s.conversations = doc.Conversations
	s.activeID = doc.ActiveID

	// The active pointer must reference a conversation that exists.
	if s.indexOfLocked(s.activeID) < 0 && len(s.conversations) > 0 {
		s.activeID = s.conversations[0].ID
	}
}

// save serializes the full list to the cache file. Called after every
// mutation while holding the lock. Write failures are logged, not
// propagated: local mutations never fail.
func (s *Store) save() {
	if s.path == "" {
		return
	}

	doc := cacheDocument{
		Conversations: s.conversations,
		ActiveID:      s.activeID,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Printf("store: marshaling cache: %v", err)
		return
	}
	if err := util.AtomicWriteFile(s.path, data, 0644); err != nil {
		log.Printf("store: writing cache: %v", err)
	}
}

// =============================================================================
// CREATE / DELETE
// =============================================================================

// Create inserts a new empty conversation at the front of the list and makes
// it active. Never fails.
func (s *Store) Create() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.createLocked()
	s.save()
	return *conv.Clone()
}

// createLocked inserts a fresh conversation without persisting.
func (s *Store) createLocked() *model.Conversation {
	conv := model.NewConversation()

	// IDs embed a millisecond timestamp; rapid creation can collide.
	for s.indexOfLocked(conv.ID) >= 0 {
		t := model.CreationTime(conv.ID)
		conv.ID = model.GenerateID(t.Add(1_000_000)) // +1ms
	}

	s.conversations = append([]*model.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	return conv
}

// Delete removes a conversation. If it was active, activation falls to the
// new first conversation; deleting the last conversation immediately creates
// a fresh empty one so the list is never empty.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrConversationNotFound
	}

	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)

	if s.activeID == id {
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		} else {
			s.activeID = ""
		}
	}

	s.ensureNonEmptyLocked()
	s.save()
	return nil
}

// ensureNonEmptyLocked creates a fresh conversation when the list is empty.
func (s *Store) ensureNonEmptyLocked() {
	if len(s.conversations) == 0 {
		s.createLocked()
	}
	if s.activeID == "" {
		s.activeID = s.conversations[0].ID
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

// Get returns a deep copy of a conversation by ID.
func (s *Store) Get(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return *s.conversations[idx].Clone(), true
}

// FindBySession returns the ID of the conversation bound to the given
// session id, if any. Empty session ids never match.
func (s *Store) FindBySession(sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.conversations {
		if conv.SessionID == sessionID {
			return conv.ID, true
		}
	}
	return "", false
}

// Active returns a deep copy of the active conversation.
func (s *Store) Active() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(s.activeID)
	if idx < 0 {
		// Restored below by the non-empty invariant; should not happen.
		s.ensureNonEmptyLocked()
		idx = s.indexOfLocked(s.activeID)
	}
	return *s.conversations[idx].Clone()
}

// ActiveID returns the ID of the active conversation.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetActive switches the active conversation.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(id) < 0 {
		return ErrConversationNotFound
	}
	s.activeID = id
	s.save()
	return nil
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Snapshot returns deep copies of all conversations in list order. Handed to
// the rendering layer; mutating the result does not affect the store.
func (s *Store) Snapshot() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		out[i] = *conv.Clone()
	}
	return out
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetTitle unconditionally overwrites a conversation's title.
func (s *Store) SetTitle(id, title string) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.SetTitle(title)
	})
}

// FreezeTitle stamps the title with the current time if the conversation has
// no messages yet. Called right before the first message is sent, so the
// title reflects when the conversation actually started.
func (s *Store) FreezeTitle(id string) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.FreezeTitle(time.Now())
	})
}

// Append adds a message to a conversation.
func (s *Store) Append(id string, msg model.Message) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.AddMessage(msg)
	})
}

// AdoptSession binds a conversation to a server session id. Any other
// conversation holding the same session id is unbound first, preserving the
// at-most-one invariant.
func (s *Store) AdoptSession(id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrConversationNotFound
	}

	if sessionID != "" {
		for _, conv := range s.conversations {
			if conv.ID != id && conv.SessionID == sessionID {
				conv.SessionID = ""
			}
		}
	}

	s.conversations[idx].SessionID = sessionID
	s.save()
	return nil
}

// ReplaceFromServer swaps in the server-canonical session id and message
// list, preserving the local id and title. Reconciliation only.
func (s *Store) ReplaceFromServer(id, sessionID string, msgs []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrConversationNotFound
	}

	if sessionID != "" {
		for _, conv := range s.conversations {
			if conv.ID != id && conv.SessionID == sessionID {
				conv.SessionID = ""
			}
		}
	}

	s.conversations[idx].SessionID = sessionID
	s.conversations[idx].ReplaceMessages(msgs)
	s.save()
	return nil
}

// Clear empties a conversation's message list and unbinds its session.
// The conversation itself survives; server-side data is untouched.
func (s *Store) Clear(id string) error {
	return s.update(id, func(conv *model.Conversation) {
		conv.ClearHistory()
	})
}

// ReplaceAll swaps in a fully merged conversation list, used by the
// reconciler to commit its result. The active conversation is kept when it
// survives the merge; otherwise activation falls to the first entry. An
// empty list gets a fresh conversation per the non-empty invariant.
func (s *Store) ReplaceAll(conversations []*model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = conversations
	if s.indexOfLocked(s.activeID) < 0 {
		s.activeID = ""
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		}
	}

	s.ensureNonEmptyLocked()
	s.save()
}

// update applies a mutation to one conversation and persists.
func (s *Store) update(id string, fn func(*model.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrConversationNotFound
	}

	fn(s.conversations[idx])
	s.save()
	return nil
}

// indexOfLocked returns the list index for an ID, or -1.
func (s *Store) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, conv := range s.conversations {
		if conv.ID == id {
			return i
		}
	}
	return -1
}
