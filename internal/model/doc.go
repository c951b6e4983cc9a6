// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations and their messages.
//
// # Key Types
//
//   - Conversation: One locally tracked chat thread, optionally bound to a
//     server session via its session id
//   - Message: Single message with role, content, timestamp, and the
//     server-derived sources and confidence score fields
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Create a new conversation and append a message:
//
//	conv := model.NewConversation()
//	conv.AddMessage(model.NewUserMessage("Hello!"))
//
// Conversation IDs embed the creation time, which drives list ordering:
//
//	created := model.CreationTime(conv.ID)
package model
