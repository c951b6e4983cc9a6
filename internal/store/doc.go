// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the ordered conversation list and its durable cache.
//
// The Store is the single authoritative owner of local conversation state:
// the ordered list, the active-conversation pointer, and persistence. Every
// mutation rewrites the full list as one JSON document under a fixed file
// name using an atomic write, so a crash leaves either the old or the new
// cache intact. On startup the cache is the fast path and the fallback when
// the server is unreachable; malformed cache content is treated as no cache.
//
// # Invariants
//
//   - The list is never empty: deleting the last conversation immediately
//     creates a fresh empty one.
//   - At most one conversation holds a given non-empty session id.
//   - Readers receive deep copies; all writes flow through the Store.
package store
