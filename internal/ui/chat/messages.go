// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the tutor chat view for the TUI.
//
// This file defines the Bubble Tea message types used by the chat view.
// Every streaming message carries the ID of the turn it belongs to so
// that late messages from a cancelled turn can be dropped.
package chat

import (
	"time"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that a tutor turn has started streaming.
type StreamStartMsg struct {
	TurnID string
	Time   time.Time
}

// StreamDoneMsg signals that a tutor turn finished successfully.
type StreamDoneMsg struct {
	TurnID    string
	FollowUps []string
}

// StreamErrorMsg signals an error during a tutor turn.
type StreamErrorMsg struct {
	TurnID string
	Err    error
}

// StreamTickMsg is sent at 30fps during streaming to batch render tokens.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// ACCOUNT MESSAGES
// =============================================================================

// SessionExpiredMsg is sent when the server rejects the session cookie.
// The chat view stops streaming and the app shows a sign-in prompt.
type SessionExpiredMsg struct{}

// UpsellMsg is sent when the server gates a feature behind a higher plan.
type UpsellMsg struct {
	Reason string
	Plan   string
}
