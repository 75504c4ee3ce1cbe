// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides tutor transcript persistence for studyhall.
//
// Completed tutor exchanges are saved to a local SQLite database so past
// conversations can be listed, replayed, and searched from the history
// command.
//
// # Key Types
//
//   - Store: transcript database handle
//   - Transcript: one conversation with its turns
//   - TranscriptMeta: lightweight metadata for listing
//
// # Usage
//
// Open a store and record a turn:
//
//	store, err := storage.Open(path)
//	err = store.SaveTurn(ctx, conversationID, question, answer)
//
// List and load transcripts:
//
//	metas, err := store.ListTranscripts(ctx)
//	tr, err := store.LoadTranscript(ctx, metas[0].ID)
//
// # Storage Location
//
// The database lives at ~/.studyhall/history.db by default.
package storage
