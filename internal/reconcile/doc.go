// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges locally cached and server-side conversation state.
//
// The reconciler fetches the authoritative conversation set from the backend
// and merges it with the store's local list into a single deduplicated,
// freshness-ordered list. The merge is non-destructive to unsynced work:
// conversations the server does not know about always survive. Any network
// failure degrades to local-only state; errors never propagate past this
// package except for the initial summary fetch, which callers doing a
// user-triggered refresh may want to surface.
package reconcile
