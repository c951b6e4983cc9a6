// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the JSON-over-HTTP client for the chat backend.
//
// The backend is an opaque collaborator reachable only through this contract:
// one chat endpoint, two conversation read endpoints, and the knowledge-base
// management endpoints. The client uses a shared pooled HTTP transport,
// per-call timeouts, bounded response reads, and exponential-backoff retries
// for idempotent requests. Chat turns and uploads are never retried
// automatically; a duplicate POST would duplicate server-side state.
//
// # Error Mapping
//
//   - 404 on a conversation fetch -> ErrSessionNotFound (non-fatal skip)
//   - 5xx -> wrapped ErrServerError (retried for idempotent requests)
//   - other non-2xx -> *APIError carrying the backend's detail message
//
// Request and response bodies are never logged; only method, path, status,
// and duration reach the log.
package api
