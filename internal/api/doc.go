// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the single choke-point for every call to the StudyHall
// backend.
//
// All requests pass through one Client, which attaches the ambient session
// cookie and the anti-forgery header, and classifies every non-2xx response
// into a small error taxonomy (*APIError). Cross-cutting failure classes
// (session expired, payment or plan required) additionally fire callbacks
// injected at construction time, so page code never inspects raw status codes.
//
// # Key Types
//
//   - Client: HTTP client with credential attachment and error classification
//   - Request: descriptor for one outgoing call (JSON, multipart, or no body)
//   - APIError: classified failure produced once, at the transport boundary
//   - Decoder: reassembles tutor stream frames into typed StreamEvents
//
// # Usage
//
// Create a client with injected callbacks and send a request:
//
//	client := api.NewClient(cfg, jar, api.Callbacks{
//	    OnUnauthenticated: func() { ... },
//	    OnUpgradeRequired: func(reason, plan string) { ... },
//	})
//	var courses []campus.Course
//	err := client.Send(ctx, api.Request{Method: http.MethodGet, Path: "/api/courses"}, &courses)
//
// Streaming callers use the tutor entry points, which fall back to the
// non-streaming endpoint when the stream cannot be opened.
package api
