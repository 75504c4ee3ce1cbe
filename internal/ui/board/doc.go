// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package board implements the course browsing pages of the studyhall TUI:
// the enrolled-course list, the per-course assignment checklist, and the
// per-course Q&A board.
//
// Each page is a self-contained Bubble Tea model. Pages fetch through
// campus.Service inside commands, so reads come from the cache when warm
// and mutations go through the optimistic coordinator. A page reflects a
// mutation on screen immediately and re-reads the cache once the server
// round-trip finishes, which makes rollback after a rejected mutation
// automatic.
//
// Cross-page coordination (course selection, error toasts, plan upsell)
// happens in the application model, driven by the messages in messages.go.
package board
