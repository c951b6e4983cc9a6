// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn orchestrates one chat request/response cycle.
//
// A submission moves through Idle -> Sending -> (Success | Failed) -> Idle.
// The user message is appended optimistically before the network call; the
// assistant reply (or a fixed error message) is appended after it. A
// successful turn adopts the server's session id and triggers a best-effort
// secondary sync that picks up server-computed fields. Guard rejections
// (empty input, message cap, no conversation, already sending) happen before
// any state change and never touch the network.
package turn
