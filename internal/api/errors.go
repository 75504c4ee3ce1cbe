// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ErrorKind classifies a failed call. Every non-2xx response is mapped to
// exactly one kind at the transport boundary; callers match on the kind (or
// the sentinel errors below) instead of inspecting status codes.
type ErrorKind int

const (
	// KindHTTP is any non-2xx status with no more specific classification.
	KindHTTP ErrorKind = iota
	// KindUnauthorized is a 401: the session has expired or was never valid.
	KindUnauthorized
	// KindPaymentRequired is a 402: the account is out of credits.
	KindPaymentRequired
	// KindUpgradeRequired is a 403 whose body names a required_plan.
	KindUpgradeRequired
	// KindForbidden is a 403 with no required_plan in the body.
	KindForbidden
	// KindStream means the tutor stream could not be opened at all.
	KindStream
	// KindUnreachable is a network failure before any response was received.
	KindUnreachable
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindPaymentRequired:
		return "payment required"
	case KindUpgradeRequired:
		return "upgrade required"
	case KindForbidden:
		return "forbidden"
	case KindStream:
		return "stream failed"
	case KindUnreachable:
		return "unreachable"
	default:
		return "http error"
	}
}

// Sentinel errors for errors.Is matching. These are never returned directly;
// the transport always returns an *APIError whose Is method maps to them.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPaymentRequired = errors.New("payment required")
	ErrUpgradeRequired = errors.New("upgrade required")
	ErrForbidden       = errors.New("forbidden")
	ErrStreamFailed    = errors.New("stream failed")
	ErrUnreachable     = errors.New("server unreachable")
)

// =============================================================================
// CLASSIFIED ERROR
// =============================================================================

// APIError is a classified failure from the StudyHall backend. It is created
// exclusively by the Client at the moment a non-2xx response (or transport
// failure) is observed; callers never construct one.
type APIError struct {
	Kind    ErrorKind
	Status  int    // HTTP status, 0 for KindUnreachable
	Message string // server-provided message, or a generic fallback
	Plan    string // required plan, set only for KindUpgradeRequired
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch e.Kind {
	case KindUpgradeRequired:
		return fmt.Sprintf("studyhall: upgrade required (plan %q)", e.Plan)
	case KindUnreachable:
		return fmt.Sprintf("studyhall: server unreachable: %s", e.Message)
	default:
		if e.Message != "" {
			return fmt.Sprintf("studyhall: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
		}
		return fmt.Sprintf("studyhall: %s (HTTP %d)", e.Kind, e.Status)
	}
}

// Is allows APIError values to be matched against the package sentinels
// with errors.Is.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindUnauthorized:
		return target == ErrUnauthorized
	case KindPaymentRequired:
		return target == ErrPaymentRequired
	case KindUpgradeRequired:
		return target == ErrUpgradeRequired
	case KindForbidden:
		return target == ErrForbidden
	case KindStream:
		return target == ErrStreamFailed
	case KindUnreachable:
		return target == ErrUnreachable
	}
	return false
}

// Retryable reports whether the failure is worth retrying as-is. Auth and
// billing failures are not; a fresh attempt will classify identically until
// the user acts.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindUnreachable, KindStream:
		return true
	case KindHTTP:
		return e.Status >= 500
	}
	return false
}

// errorBody is the error response shape consumed for classification.
// Any of the fields may be absent; a body that is not valid JSON is
// tolerated (classification never fails on a bad body).
type errorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	RequiredPlan string `json:"required_plan"`
}
