// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package campus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/store"
)

func newService(t *testing.T, handler http.Handler) (*Service, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(api.Config{BaseURL: srv.URL}, nil, api.Callbacks{})
	cache := store.New()
	return NewService(client, cache), cache
}

func TestCourses_CachesAndForces(t *testing.T) {
	var calls int32
	svc, _ := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/courses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(coursesResponse{Courses: CourseList{
			{ID: "c1", Code: "CS101", Title: "Intro to Programming", Term: "Fall 2026"},
		}})
	}))

	ctx := context.Background()
	first, err := svc.Courses(ctx, false)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if len(first) != 1 || first[0].Code != "CS101" {
		t.Fatalf("unexpected courses: %+v", first)
	}

	if _, err := svc.Courses(ctx, false); err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("cached read hit the server: %d calls", n)
	}

	if _, err := svc.Courses(ctx, true); err != nil {
		t.Fatalf("forced fetch: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("force did not refetch: %d calls", n)
	}
}

func TestToggleAssignment_OptimisticThenConfirmed(t *testing.T) {
	// The server's copy differs from the local guess so the test can tell
	// which one ends up cached.
	confirmed := AssignmentList{
		{ID: "a1", Title: "Problem set 1 (regraded)", Done: true},
		{ID: "a2", Title: "Problem set 2", Done: true},
	}
	svc, cache := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle"):
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/assignments"):
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(assignmentsResponse{Assignments: confirmed})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	cache.Write(keyAssignments("c1"), AssignmentList{
		{ID: "a1", Title: "Problem set 1", Done: false},
		{ID: "a2", Title: "Problem set 2", Done: true},
	})

	if err := svc.ToggleAssignment(context.Background(), "c1", "a1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	v, _ := cache.Read(keyAssignments("c1"))
	if !reflect.DeepEqual(v.(AssignmentList), confirmed) {
		t.Errorf("cache should hold the server-confirmed list, got %+v", v)
	}
}

func TestToggleAssignment_KeepsOptimisticWhenRefetchFails(t *testing.T) {
	svc, cache := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	cache.Write(keyAssignments("c1"), AssignmentList{
		{ID: "a1", Title: "Problem set 1", Done: false},
	})

	// The toggle itself succeeded, so no error surfaces.
	if err := svc.ToggleAssignment(context.Background(), "c1", "a1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	v, _ := cache.Read(keyAssignments("c1"))
	if !v.(AssignmentList)[0].Done {
		t.Error("optimistic flip should survive a failed refetch")
	}
}

func TestToggleAssignment_RollsBackOnServerError(t *testing.T) {
	svc, cache := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "toggle failed"})
	}))

	before := AssignmentList{
		{ID: "a1", Title: "Problem set 1", Done: false},
	}
	cache.Write(keyAssignments("c1"), before.CloneValue())

	err := svc.ToggleAssignment(context.Background(), "c1", "a1")
	if err == nil {
		t.Fatal("expected server error")
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := cache.Read(keyAssignments("c1"))
	if !ok {
		t.Fatal("cache entry missing after rollback")
	}
	if !reflect.DeepEqual(v.(AssignmentList), before) {
		t.Errorf("rollback mismatch: got %+v, want %+v", v, before)
	}
}

func TestVote_AppliesDeltaAndRollsBack(t *testing.T) {
	var fail atomic.Bool
	svc, cache := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	key := keyQuestions("c1")
	cache.Write(key, QuestionList{
		{ID: "q1", Title: "Why is my pointer nil?", Votes: 4, UserVote: 0},
	})

	ctx := context.Background()

	// Upvote from neutral.
	if err := svc.Vote(ctx, "c1", "q1", 1); err != nil {
		t.Fatalf("upvote: %v", err)
	}
	v, _ := cache.Read(key)
	q := v.(QuestionList)[0]
	if q.Votes != 5 || q.UserVote != 1 {
		t.Fatalf("after upvote: votes=%d userVote=%d", q.Votes, q.UserVote)
	}

	// Flip to downvote, total moves by two.
	if err := svc.Vote(ctx, "c1", "q1", -1); err != nil {
		t.Fatalf("flip: %v", err)
	}
	v, _ = cache.Read(key)
	q = v.(QuestionList)[0]
	if q.Votes != 3 || q.UserVote != -1 {
		t.Fatalf("after flip: votes=%d userVote=%d", q.Votes, q.UserVote)
	}

	// Retract on second press of the same direction.
	if err := svc.Vote(ctx, "c1", "q1", -1); err != nil {
		t.Fatalf("retract: %v", err)
	}
	v, _ = cache.Read(key)
	q = v.(QuestionList)[0]
	if q.Votes != 4 || q.UserVote != 0 {
		t.Fatalf("after retract: votes=%d userVote=%d", q.Votes, q.UserVote)
	}

	// Failed vote leaves the list exactly as it was.
	fail.Store(true)
	if err := svc.Vote(ctx, "c1", "q1", 1); err == nil {
		t.Fatal("expected vote failure")
	}
	v, _ = cache.Read(key)
	q = v.(QuestionList)[0]
	if q.Votes != 4 || q.UserVote != 0 {
		t.Fatalf("rollback after failed vote: votes=%d userVote=%d", q.Votes, q.UserVote)
	}
}

func TestVote_RejectsInvalidDirection(t *testing.T) {
	svc, _ := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	}))
	if err := svc.Vote(context.Background(), "c1", "q1", 0); err == nil {
		t.Error("expected error for direction 0")
	}
	if err := svc.Vote(context.Background(), "c1", "q1", 2); err == nil {
		t.Error("expected error for direction 2")
	}
}

func TestCreateQuestion_ReplacesPlaceholderWithServerRecord(t *testing.T) {
	svc, cache := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createQuestionRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(createQuestionResponse{Question: Question{
			ID:    "q-real",
			Title: req.Title,
			Body:  req.Body,
			Votes: 0,
		}})
	}))

	key := keyQuestions("c1")
	cache.Write(key, QuestionList{{ID: "q1", Title: "Existing"}})

	err := svc.CreateQuestion(context.Background(), "c1", "New question", "Body text")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	v, _ := cache.Read(key)
	list := v.(QuestionList)
	if len(list) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(list))
	}
	if list[1].ID != "q-real" {
		t.Errorf("placeholder not replaced: %+v", list[1])
	}
	if list[1].Title != "New question" {
		t.Errorf("unexpected title: %s", list[1].Title)
	}
}

func TestCreateQuestion_RollsBackPlaceholder(t *testing.T) {
	svc, cache := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	key := keyQuestions("c1")
	before := QuestionList{{ID: "q1", Title: "Existing"}}
	cache.Write(key, before.CloneValue())

	if err := svc.CreateQuestion(context.Background(), "c1", "Doomed", "x"); err == nil {
		t.Fatal("expected failure")
	}

	v, _ := cache.Read(key)
	if !reflect.DeepEqual(v.(QuestionList), before) {
		t.Errorf("placeholder survived rollback: %+v", v)
	}
}

func TestSubmitWork_SendsMultipart(t *testing.T) {
	svc, _ := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		if got := r.FormValue("assignment_id"); got != "a1" {
			t.Errorf("assignment_id = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part missing: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "essay.txt" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := svc.SubmitWork(context.Background(), "c1", "a1", "essay.txt", []byte("my essay"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
}
