// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea messages exchanged between the board pages and
// the application model.
package board

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall-tui/internal/campus"
)

// =============================================================================
// LOAD RESULTS
// =============================================================================

// CoursesLoadedMsg carries the result of a course list fetch.
type CoursesLoadedMsg struct {
	Courses campus.CourseList
	Err     error
}

// AssignmentsLoadedMsg carries the result of an assignment list fetch.
type AssignmentsLoadedMsg struct {
	CourseID    string
	Assignments campus.AssignmentList
	Err         error
}

// QuestionsLoadedMsg carries the result of a question board fetch.
type QuestionsLoadedMsg struct {
	CourseID  string
	Questions campus.QuestionList
	Err       error
}

// =============================================================================
// MUTATION RESULTS
// =============================================================================

// ToggleResultMsg is sent when an assignment toggle round-trip finishes.
// On error the cache has already been rolled back; the page reloads from it.
// Retry re-runs the same mutation and yields another ToggleResultMsg.
type ToggleResultMsg struct {
	CourseID     string
	AssignmentID string
	Err          error
	Retry        tea.Cmd
}

// VoteResultMsg is sent when a vote round-trip finishes.
type VoteResultMsg struct {
	CourseID   string
	QuestionID string
	Err        error
	Retry      tea.Cmd
}

// QuestionCreatedMsg is sent when a new question post finishes.
type QuestionCreatedMsg struct {
	CourseID string
	Err      error
	Retry    tea.Cmd
}

// =============================================================================
// NAVIGATION
// =============================================================================

// CourseSelectedMsg is emitted when the user picks a course. The application
// model responds by loading that course's assignments and questions.
type CourseSelectedMsg struct {
	Course campus.Course
}
