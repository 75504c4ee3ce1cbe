// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// StreamEvent is one decoded tutor stream event: exactly one of Chunk and
// Done is non-nil. Chunks carry text deltas in arrival order; a Done
// terminates the sequence.
type StreamEvent struct {
	Chunk *ChunkEvent
	Done  *DoneEvent
}

// ChunkEvent is an incremental piece of the tutor's reply.
type ChunkEvent struct {
	Content string
}

// DoneEvent terminates a successful stream.
type DoneEvent struct {
	FollowUps []string
}

// frame is the wire shape of one "data:" line.
type frame struct {
	Type      string   `json:"type"`
	Content   string   `json:"content"`
	FollowUps []string `json:"follow_ups"`
}

// dataPrefix marks an actionable stream line. Anything else (blank lines,
// comments, unrelated SSE fields) is ignored.
const dataPrefix = "data: "

// =============================================================================
// DECODER
// =============================================================================

// Decoder reassembles newline-delimited tutor stream frames from a byte
// stream, tolerating frames split arbitrarily across reads. It yields text
// deltas only; accumulation belongs to the caller.
type Decoder struct {
	r       io.Reader
	carry   string   // trailing incomplete line held for the next read
	pending []string // complete lines not yet handed out
	readBuf []byte
	done    bool // a done frame was seen
	eof     bool // underlying stream ended
}

// NewDecoder creates a decoder over an open stream body.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:       r,
		readBuf: make([]byte, 4096),
	}
}

// Next returns the next stream event. It returns io.EOF after a done frame,
// or when the underlying stream ends without one (a normal, if early,
// termination). Malformed data frames are dropped without aborting the
// stream.
func (d *Decoder) Next() (StreamEvent, error) {
	for {
		for len(d.pending) > 0 {
			line := d.pending[0]
			d.pending = d.pending[1:]

			ev, ok := decodeLine(line)
			if !ok {
				continue
			}
			if ev.Done != nil {
				d.done = true
			}
			return ev, nil
		}

		if d.done || d.eof {
			return StreamEvent{}, io.EOF
		}

		n, err := d.r.Read(d.readBuf)
		if n > 0 {
			d.carry += string(d.readBuf[:n])
			parts := strings.Split(d.carry, "\n")
			// The last segment may be incomplete; keep it for the
			// next read.
			d.carry = parts[len(parts)-1]
			d.pending = append(d.pending, parts[:len(parts)-1]...)
		}
		if err != nil {
			if err == io.EOF {
				// A trailing fragment without its newline is an
				// unterminated frame; drop it.
				d.eof = true
				continue
			}
			return StreamEvent{}, &APIError{Kind: KindStream, Message: err.Error()}
		}
	}
}

// decodeLine parses one complete line into an event. Non-data lines and
// unparseable or unknown frames report ok=false.
func decodeLine(line string) (StreamEvent, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return StreamEvent{}, false
	}

	var f frame
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &f); err != nil {
		return StreamEvent{}, false
	}

	switch f.Type {
	case "chunk":
		return StreamEvent{Chunk: &ChunkEvent{Content: f.Content}}, true
	case "done":
		return StreamEvent{Done: &DoneEvent{FollowUps: f.FollowUps}}, true
	}
	return StreamEvent{}, false
}

// =============================================================================
// TUTOR ENDPOINTS
// =============================================================================

// TutorRequest is one user turn sent to the tutor.
type TutorRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// TutorResponse is the non-streaming fallback response shape.
type TutorResponse struct {
	Success   bool     `json:"success"`
	Response  string   `json:"response"`
	FollowUps []string `json:"follow_ups,omitempty"`
}

// StreamFunc receives decoded events in arrival order.
type StreamFunc func(StreamEvent)

// TutorAsk sends one tutor turn over the non-streaming endpoint.
func (c *Client) TutorAsk(ctx context.Context, req TutorRequest) (*TutorResponse, error) {
	var resp TutorResponse
	err := c.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/tutor/ask",
		JSON:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// TutorStream opens the streaming tutor endpoint and calls fn for each
// decoded event until a done frame, end of stream, or context cancellation.
// Errors opening the stream come back classified; use
// TutorStreamWithFallback for the degraded path.
func (c *Client) TutorStream(ctx context.Context, req TutorRequest, fn StreamFunc) error {
	resp, err := c.openStream(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeLoop(ctx, resp.Body, fn)
}

// TutorStreamWithFallback streams when possible and degrades to the
// non-streaming endpoint when the stream cannot be opened. On the fallback
// path the full reply is synthesized as a single chunk followed by a done
// event, so consumers cannot tell the two apart except by latency.
func (c *Client) TutorStreamWithFallback(ctx context.Context, req TutorRequest, fn StreamFunc) error {
	resp, openErr := c.openStream(ctx, req)
	if openErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		full, err := c.TutorAsk(ctx, req)
		if err != nil {
			return err
		}
		fn(StreamEvent{Chunk: &ChunkEvent{Content: full.Response}})
		fn(StreamEvent{Done: &DoneEvent{FollowUps: full.FollowUps}})
		return nil
	}
	defer resp.Body.Close()
	return decodeLoop(ctx, resp.Body, fn)
}

// decodeLoop feeds decoded events to fn until a done frame, end of stream,
// or context cancellation.
func decodeLoop(ctx context.Context, body io.Reader, fn StreamFunc) error {
	dec := NewDecoder(body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := dec.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		fn(ev)
		if ev.Done != nil {
			return nil
		}
	}
}

// openStream negotiates the event-stream media type on the no-timeout client.
func (c *Client) openStream(ctx context.Context, req TutorRequest) (*http.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tutor/stream", strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if err := c.attachHeaders(httpReq); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{Kind: KindUnreachable, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		resp.Body.Close()
		return nil, c.classify(resp.StatusCode, body)
	}
	if resp.Body == nil {
		return nil, &APIError{Kind: KindStream, Message: "stream opened with no body"}
	}
	return resp, nil
}
