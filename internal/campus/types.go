// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package campus holds the course, assignment, and question surfaces of the
// client. A Service wraps the API client, the cache, and the optimistic
// mutation coordinator behind methods the UI calls directly.
package campus

import "time"

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// Course is one enrolled course.
type Course struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
	Term  string `json:"term"`
}

// Assignment is one assignment within a course.
type Assignment struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Done    bool       `json:"done"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// Question is one Q&A board entry. UserVote is the caller's own vote on the
// question: -1, 0, or +1.
type Question struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Votes     int       `json:"votes"`
	UserVote  int       `json:"user_vote"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// CACHED COLLECTIONS
// =============================================================================

// The list types below are what the cache stores. Each supports structural
// copying so the coordinator can snapshot it before an optimistic write.

// CourseList is a cached slice of courses.
type CourseList []Course

// CloneValue returns a structural copy of the list.
func (l CourseList) CloneValue() any {
	out := make(CourseList, len(l))
	copy(out, l)
	return out
}

// AssignmentList is a cached slice of assignments for one course.
type AssignmentList []Assignment

// CloneValue returns a structural copy of the list.
func (l AssignmentList) CloneValue() any {
	out := make(AssignmentList, len(l))
	copy(out, l)
	return out
}

// QuestionList is a cached slice of questions for one course.
type QuestionList []Question

// CloneValue returns a structural copy of the list.
func (l QuestionList) CloneValue() any {
	out := make(QuestionList, len(l))
	copy(out, l)
	return out
}
