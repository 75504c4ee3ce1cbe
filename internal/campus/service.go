// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package campus

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/optimistic"
	"github.com/jeranaias/studyhall-tui/internal/store"
)

// =============================================================================
// CACHE KEYS
// =============================================================================

const keyCourses = "courses"

func keyAssignments(courseID string) string { return "assignments:" + courseID }
func keyQuestions(courseID string) string   { return "questions:" + courseID }

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the course, assignment, and question operations. Reads go
// through the cache; mutations use the optimistic coordinator so the UI
// updates before the server confirms.
type Service struct {
	client *api.Client
	cache  *store.Store
	coord  *optimistic.Coordinator
}

// NewService wires a service over the given client and cache.
func NewService(client *api.Client, cache *store.Store) *Service {
	return &Service{
		client: client,
		cache:  cache,
		coord:  optimistic.NewCoordinator(cache),
	}
}

// =============================================================================
// WIRE SHAPES
// =============================================================================

type coursesResponse struct {
	Courses CourseList `json:"courses"`
}

type assignmentsResponse struct {
	Assignments AssignmentList `json:"assignments"`
}

type questionsResponse struct {
	Questions QuestionList `json:"questions"`
}

type voteRequest struct {
	Direction int `json:"direction"`
}

type createQuestionRequest struct {
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

type createQuestionResponse struct {
	Question Question `json:"question"`
}

// =============================================================================
// COURSES
// =============================================================================

// Courses returns the caller's enrolled courses, from cache when available.
// Pass force to bypass the cache and refetch.
func (s *Service) Courses(ctx context.Context, force bool) (CourseList, error) {
	if !force {
		if v, ok := s.cache.Read(keyCourses); ok {
			return v.(CourseList), nil
		}
	}

	var resp coursesResponse
	req := api.Request{Method: http.MethodGet, Path: "/api/courses"}
	if err := s.client.Send(ctx, req, &resp); err != nil {
		return nil, err
	}
	s.cache.Write(keyCourses, resp.Courses)
	return resp.Courses, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// Assignments returns the assignments for a course, from cache when
// available.
func (s *Service) Assignments(ctx context.Context, courseID string, force bool) (AssignmentList, error) {
	key := keyAssignments(courseID)
	if !force {
		if v, ok := s.cache.Read(key); ok {
			return v.(AssignmentList), nil
		}
	}

	var resp assignmentsResponse
	req := api.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/courses/%s/assignments", courseID),
	}
	if err := s.client.Send(ctx, req, &resp); err != nil {
		return nil, err
	}
	s.cache.Write(key, resp.Assignments)
	return resp.Assignments, nil
}

// ToggleAssignment flips an assignment's completion state. The cached list
// is updated immediately; if the server rejects the toggle the previous
// state is restored and the error returned. On success the list is refetched
// so the cache holds the server-confirmed state, not the local guess.
func (s *Service) ToggleAssignment(ctx context.Context, courseID, assignmentID string) error {
	key := keyAssignments(courseID)
	return s.coord.Mutate(ctx, key,
		func(old any) any {
			list, ok := old.(AssignmentList)
			if !ok {
				return old
			}
			next := list.CloneValue().(AssignmentList)
			for i := range next {
				if next[i].ID == assignmentID {
					next[i].Done = !next[i].Done
					break
				}
			}
			return next
		},
		func(ctx context.Context) error {
			req := api.Request{
				Method: http.MethodPost,
				Path:   fmt.Sprintf("/api/courses/%s/assignments/%s/toggle", courseID, assignmentID),
			}
			if err := s.client.Send(ctx, req, nil); err != nil {
				return err
			}
			// Still holding the key's mutation slot, so the confirmed list
			// cannot race another mutation. The toggle itself succeeded; a
			// failed refetch just leaves the optimistic value in place.
			var resp assignmentsResponse
			get := api.Request{
				Method: http.MethodGet,
				Path:   fmt.Sprintf("/api/courses/%s/assignments", courseID),
			}
			if err := s.client.Send(ctx, get, &resp); err == nil {
				s.cache.Write(key, resp.Assignments)
			}
			return nil
		},
	)
}

// =============================================================================
// QUESTIONS
// =============================================================================

// Questions returns the Q&A board for a course, from cache when available.
func (s *Service) Questions(ctx context.Context, courseID string, force bool) (QuestionList, error) {
	key := keyQuestions(courseID)
	if !force {
		if v, ok := s.cache.Read(key); ok {
			return v.(QuestionList), nil
		}
	}

	var resp questionsResponse
	req := api.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/courses/%s/questions", courseID),
	}
	if err := s.client.Send(ctx, req, &resp); err != nil {
		return nil, err
	}
	s.cache.Write(key, resp.Questions)
	return resp.Questions, nil
}

// Vote casts, retracts, or flips the caller's vote on a question. direction
// is +1 or -1; pressing the held direction again retracts the vote. The
// cached totals update immediately and roll back on server failure.
func (s *Service) Vote(ctx context.Context, courseID, questionID string, direction int) error {
	if direction != 1 && direction != -1 {
		return fmt.Errorf("invalid vote direction %d", direction)
	}
	key := keyQuestions(courseID)
	return s.coord.Mutate(ctx, key,
		func(old any) any {
			list, ok := old.(QuestionList)
			if !ok {
				return old
			}
			next := list.CloneValue().(QuestionList)
			for i := range next {
				if next[i].ID == questionID {
					newVote, delta := optimistic.VoteDelta(next[i].UserVote, direction)
					next[i].UserVote = newVote
					next[i].Votes += delta
					break
				}
			}
			return next
		},
		func(ctx context.Context) error {
			req := api.Request{
				Method: http.MethodPost,
				Path:   fmt.Sprintf("/api/questions/%s/vote", questionID),
				JSON:   voteRequest{Direction: direction},
			}
			return s.client.Send(ctx, req, nil)
		},
	)
}

// CreateQuestion posts a new question. A placeholder with a temporary ID
// appears in the cached list immediately; once the server responds the
// placeholder is replaced with the authoritative record. On failure the
// placeholder is rolled back with the rest of the snapshot.
func (s *Service) CreateQuestion(ctx context.Context, courseID, title, body string) error {
	key := keyQuestions(courseID)
	tempID := "pending-" + uuid.NewString()

	return s.coord.Mutate(ctx, key,
		func(old any) any {
			list, _ := old.(QuestionList)
			next := list.CloneValue().(QuestionList)
			next = append(next, Question{ID: tempID, Title: title, Body: body})
			return next
		},
		func(ctx context.Context) error {
			var resp createQuestionResponse
			req := api.Request{
				Method: http.MethodPost,
				Path:   "/api/questions",
				JSON:   createQuestionRequest{CourseID: courseID, Title: title, Body: body},
			}
			if err := s.client.Send(ctx, req, &resp); err != nil {
				return err
			}
			// Still holding the key's mutation slot, so this write cannot
			// race another mutation on the same list.
			if v, ok := s.cache.Read(key); ok {
				list := v.(QuestionList).CloneValue().(QuestionList)
				for i := range list {
					if list[i].ID == tempID {
						list[i] = resp.Question
						break
					}
				}
				s.cache.Write(key, list)
			}
			return nil
		},
	)
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

// SubmitWork uploads an assignment submission as a multipart form.
func (s *Service) SubmitWork(ctx context.Context, courseID, assignmentID, filename string, content []byte) error {
	req := api.Request{
		Method: http.MethodPost,
		Path:   "/api/submissions",
		Multipart: &api.Multipart{
			Fields: map[string]string{
				"course_id":     courseID,
				"assignment_id": assignmentID,
			},
			Files: []api.File{{Field: "file", Name: filename, Content: content}},
		},
	}
	return s.client.Send(ctx, req, nil)
}
