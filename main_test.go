// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/config"
	"github.com/jeranaias/studyhall-tui/internal/store"
	"github.com/jeranaias/studyhall-tui/internal/ui/board"
	"github.com/jeranaias/studyhall-tui/internal/ui/components"
	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

func newTestApp(t *testing.T) *appModel {
	t.Helper()
	svc := campus.NewService(nil, store.New())
	tutor := campus.NewTutor(nil, nil)
	m := newAppModel(styles.NewTheme(), config.Default(), svc, tutor)
	m.width = 100
	m.height = 40
	return m
}

// retriedMsg marks that a toast's retry action ran.
type retriedMsg struct{}

// =============================================================================
// ERROR TOAST ROUTING
// =============================================================================

func TestUnreachableToggleShowsRetryToast(t *testing.T) {
	m := newTestApp(t)

	retry := func() tea.Msg { return retriedMsg{} }
	m.Update(board.ToggleResultMsg{
		CourseID:     "cs101",
		AssignmentID: "hw1",
		Err:          &api.APIError{Kind: api.KindUnreachable, Message: "dial tcp"},
		Retry:        retry,
	})

	toasts := m.toasts.GetToasts()
	if len(toasts) != 1 {
		t.Fatalf("expected 1 toast, got %d", len(toasts))
	}
	if !toasts[0].ShowRetry {
		t.Error("expected the toast to offer a retry")
	}
	if toasts[0].RetryAction == nil {
		t.Fatal("expected the toast to carry the retry action")
	}
	if _, ok := toasts[0].RetryAction().(retriedMsg); !ok {
		t.Error("retry action does not re-run the mutation")
	}
}

func TestRetryKeyRerunsFailedMutation(t *testing.T) {
	m := newTestApp(t)

	m.Update(board.VoteResultMsg{
		CourseID:   "cs101",
		QuestionID: "q1",
		Err:        &api.APIError{Kind: api.KindHTTP, Status: 503},
		Retry:      func() tea.Msg { return retriedMsg{} },
	})
	if !m.toasts.HasToasts() {
		t.Fatal("expected a toast after the failed vote")
	}

	_, cmd := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("expected r to target the toast")
	}
	retryReq, ok := cmd().(components.ToastRetryMsg)
	if !ok {
		t.Fatalf("expected ToastRetryMsg, got %T", cmd())
	}

	_, cmd = m.Update(retryReq)
	if cmd == nil {
		t.Fatal("expected the retry command to run")
	}
	if _, ok := cmd().(retriedMsg); !ok {
		t.Error("retry did not re-run the mutation")
	}
	if m.toasts.HasToasts() {
		t.Error("expected the toast to be dismissed on retry")
	}
}

func TestDismissKeyRemovesToast(t *testing.T) {
	m := newTestApp(t)

	m.Update(board.QuestionsLoadedMsg{
		CourseID: "cs101",
		Err:      &api.APIError{Kind: api.KindHTTP, Status: 404, Message: "no such course"},
	})
	if !m.toasts.HasToasts() {
		t.Fatal("expected a toast after the failed load")
	}

	_, cmd := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd == nil {
		t.Fatal("expected x to target the toast")
	}
	dismiss, ok := cmd().(components.ToastDismissMsg)
	if !ok {
		t.Fatalf("expected ToastDismissMsg, got %T", cmd())
	}
	m.Update(dismiss)
	if m.toasts.HasToasts() {
		t.Error("expected the toast to be gone")
	}
}

func TestClientErrorToastHasNoRetry(t *testing.T) {
	m := newTestApp(t)

	m.Update(board.ToggleResultMsg{
		CourseID:     "cs101",
		AssignmentID: "hw1",
		Err:          &api.APIError{Kind: api.KindForbidden, Status: 403},
		Retry:        func() tea.Msg { return retriedMsg{} },
	})

	toasts := m.toasts.GetToasts()
	if len(toasts) != 1 {
		t.Fatalf("expected 1 toast, got %d", len(toasts))
	}
	if toasts[0].ShowRetry {
		t.Error("a non-transient failure must not offer a retry")
	}
}

func TestExpiredSessionSkipsErrorToast(t *testing.T) {
	m := newTestApp(t)

	m.Update(board.CoursesLoadedMsg{
		Err: &api.APIError{Kind: api.KindUnauthorized, Status: 401},
	})
	if m.toasts.HasToasts() {
		t.Error("401s surface through SessionExpiredMsg, not a load toast")
	}
}
