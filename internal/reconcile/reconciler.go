// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges locally cached and server-side conversation state.
package reconcile

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/model"
	"github.com/morganforge/kbchat-tui/internal/store"
)

// maxConcurrentFetches bounds the per-conversation record fetches that run
// at once during a reconciliation pass.
const maxConcurrentFetches = 4

// RecordFetcher retrieves one full conversation record. ReconcileOne needs
// nothing more.
type RecordFetcher interface {
	GetConversation(ctx context.Context, sessionID string) (*api.ServerConversation, error)
}

// Backend is the slice of the API client a full reconciliation pass needs.
type Backend interface {
	RecordFetcher
	ListConversations(ctx context.Context) ([]api.ConversationSummary, error)
}

// Result summarizes one reconciliation pass.
type Result struct {
	// Fetched is the number of server records retrieved.
	Fetched int
	// Updated is the number of local conversations refreshed from the server.
	Updated int
	// Created is the number of conversations synthesized for unmatched
	// server records.
	Created int
	// Skipped is the number of summaries dropped because their record
	// fetch failed or 404ed.
	Skipped int
}

// =============================================================================
// FULL RECONCILIATION
// =============================================================================

// Reconcile merges the server's conversation set into the store, producing
// one deduplicated, freshness-ordered list.
//
// Server records matched to a local conversation by session id replace that
// conversation's messages and session id but keep its local id and title
// (the server has no title concept). Unmatched server records become new
// conversations stamped from the server's updated_at. Local conversations
// with no session id, or whose session id no server record claimed, are
// carried over untouched: unsynced work is never dropped.
//
// The returned error is non-nil only when the summary list itself could not
// be fetched; the store is left untouched in that case so the client keeps
// working from local state.
func Reconcile(ctx context.Context, backend Backend, st *store.Store) (Result, error) {
	var res Result

	summaries, err := backend.ListConversations(ctx)
	if err != nil {
		log.Printf("reconcile: listing conversations: %v", err)
		return res, err
	}

	// Most recently updated first. Applied before fetching so the merge
	// order is defined by server freshness, not fetch completion order.
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt.Time)
	})

	records := fetchRecords(ctx, backend, summaries)

	// Commit phase: merge against a snapshot taken after all fetches, so a
	// conversation created or mutated while fetching still lands in the
	// merged list.
	local := st.Snapshot()
	merged := make([]*model.Conversation, 0, len(records)+len(local))
	claimed := make(map[string]bool, len(records))
	usedIDs := make(map[string]bool, len(records)+len(local))

	for _, conv := range local {
		usedIDs[conv.ID] = true
	}

	for i, record := range records {
		if record == nil {
			res.Skipped++
			continue
		}
		res.Fetched++

		if localConv, ok := findBySession(local, record.SessionID); ok {
			updated := localConv.Clone()
			updated.SessionID = record.SessionID
			updated.ReplaceMessages(record.ToModelMessages())
			merged = append(merged, updated)
			res.Updated++
		} else {
			created := synthesize(record, summaries[i].UpdatedAt.Time, usedIDs)
			merged = append(merged, created)
			res.Created++
		}
		claimed[record.SessionID] = true
	}

	// Purely local or unclaimed conversations survive every pass.
	for _, conv := range local {
		if conv.SessionID == "" || !claimed[conv.SessionID] {
			merged = append(merged, conv.Clone())
		}
	}

	// Final order: descending creation time, derived from conversation ids.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt().After(merged[j].CreatedAt())
	})

	// The store restores the non-empty invariant if the merge is empty.
	st.ReplaceAll(merged)

	log.Printf("reconcile: fetched=%d updated=%d created=%d skipped=%d",
		res.Fetched, res.Updated, res.Created, res.Skipped)
	return res, nil
}

// fetchRecords retrieves the full record for each summary, a bounded number
// at a time. The result slice is indexed by summary position, so ordering is
// unaffected by completion order. Failed or 404ing fetches leave a nil entry;
// no local data is deleted because of them.
func fetchRecords(ctx context.Context, backend Backend, summaries []api.ConversationSummary) []*api.ServerConversation {
	records := make([]*api.ServerConversation, len(summaries))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentFetches)

	for i, summary := range summaries {
		wg.Add(1)
		go func(i int, sessionID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			record, err := backend.GetConversation(ctx, sessionID)
			if err != nil {
				log.Printf("reconcile: fetching %s: %v", sessionID, err)
				return
			}
			records[i] = record
		}(i, summary.SessionID)
	}

	wg.Wait()
	return records
}

// findBySession locates a snapshot conversation bound to the session id.
func findBySession(local []model.Conversation, sessionID string) (model.Conversation, bool) {
	if sessionID == "" {
		return model.Conversation{}, false
	}
	for _, conv := range local {
		if conv.SessionID == sessionID {
			return conv, true
		}
	}
	return model.Conversation{}, false
}

// synthesize builds a local conversation for a server record with no local
// counterpart. The id and title are stamped from the server's updated_at so
// creation-order sorting reflects server recency. Millisecond collisions are
// resolved by bumping the timestamp.
func synthesize(record *api.ServerConversation, updatedAt time.Time, usedIDs map[string]bool) *model.Conversation {
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	for usedIDs[model.GenerateID(updatedAt)] {
		updatedAt = updatedAt.Add(time.Millisecond)
	}

	conv := model.NewConversationAt(updatedAt)
	conv.SessionID = record.SessionID
	conv.ReplaceMessages(record.ToModelMessages())
	usedIDs[conv.ID] = true
	return conv
}

// =============================================================================
// SINGLE-CONVERSATION SYNC
// =============================================================================

// ReconcileOne refreshes one conversation from its server record, overwriting
// the local message list with the server's canonical version. Used as the
// best-effort secondary sync after a chat turn: the server may carry derived
// fields (per-message confidence scores) absent from the immediate response.
//
// Failures are swallowed; the optimistic local state stands.
func ReconcileOne(ctx context.Context, backend RecordFetcher, st *store.Store, sessionID string) {
	if sessionID == "" {
		return
	}

	record, err := backend.GetConversation(ctx, sessionID)
	if err != nil {
		log.Printf("reconcile: post-turn sync for %s: %v", sessionID, err)
		return
	}

	id, ok := st.FindBySession(sessionID)
	if !ok {
		return
	}
	if err := st.ReplaceFromServer(id, record.SessionID, record.ToModelMessages()); err != nil {
		log.Printf("reconcile: applying post-turn sync for %s: %v", sessionID, err)
	}
}
