// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package campus

import (
	"context"
	"log"
	"strings"

	"github.com/jeranaias/studyhall-tui/internal/api"
)

// =============================================================================
// TUTOR
// =============================================================================

// TurnRecorder persists completed tutor exchanges. Recording failures are
// logged, never surfaced: losing a history row must not break a live answer.
type TurnRecorder interface {
	SaveTurn(ctx context.Context, conversationID, question, answer string) error
}

// Tutor answers questions through the AI tutor endpoints, optionally
// recording each completed exchange.
type Tutor struct {
	client   *api.Client
	recorder TurnRecorder
}

// NewTutor creates a tutor. recorder may be nil to skip history.
func NewTutor(client *api.Client, recorder TurnRecorder) *Tutor {
	return &Tutor{client: client, recorder: recorder}
}

// Ask sends one question and waits for the complete answer.
func (t *Tutor) Ask(ctx context.Context, conversationID, message string) (*api.TutorResponse, error) {
	resp, err := t.client.TutorAsk(ctx, api.TutorRequest{
		ConversationID: conversationID,
		Message:        message,
	})
	if err != nil {
		return nil, err
	}
	t.record(ctx, conversationID, message, resp.Response)
	return resp, nil
}

// AskStream sends one question and delivers the answer incrementally
// through fn. If the streaming endpoint cannot be opened the full answer is
// fetched instead and replayed through fn as a single chunk. The completed
// answer is recorded either way.
func (t *Tutor) AskStream(ctx context.Context, conversationID, message string, fn api.StreamFunc) error {
	var answer strings.Builder
	err := t.client.TutorStreamWithFallback(ctx, api.TutorRequest{
		ConversationID: conversationID,
		Message:        message,
	}, func(ev api.StreamEvent) {
		if ev.Chunk != nil {
			answer.WriteString(ev.Chunk.Content)
		}
		fn(ev)
	})
	if err != nil {
		return err
	}
	t.record(ctx, conversationID, message, answer.String())
	return nil
}

func (t *Tutor) record(ctx context.Context, conversationID, question, answer string) {
	if t.recorder == nil || answer == "" {
		return
	}
	if err := t.recorder.SaveTurn(ctx, conversationID, question, answer); err != nil {
		log.Printf("Tutor: failed to record turn: %v", err)
	}
}
