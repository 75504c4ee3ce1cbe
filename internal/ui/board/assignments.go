// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// assignments.go - The per-course assignment checklist page.
package board

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

// Assignments is the assignment checklist for the selected course. Toggles
// apply to the visible list immediately; the cache is the source of truth
// and the list is re-read from it once the server round-trip finishes, so a
// rejected toggle snaps back on its own.
type Assignments struct {
	theme *styles.Theme
	svc   *campus.Service

	course      campus.Course
	assignments campus.AssignmentList
	cursor      int
	loading     bool
	err         error

	width  int
	height int
}

// NewAssignments creates the assignment page over the given service.
func NewAssignments(theme *styles.Theme, svc *campus.Service) Assignments {
	return Assignments{theme: theme, svc: svc}
}

// SetCourse switches the page to a course and returns the load command.
func (a *Assignments) SetCourse(course campus.Course) tea.Cmd {
	a.course = course
	a.assignments = nil
	a.cursor = 0
	a.err = nil
	return a.Load(false)
}

// Course returns the course the page is showing.
func (a Assignments) Course() campus.Course {
	return a.course
}

// Load returns a command that fetches the assignment list.
func (a *Assignments) Load(force bool) tea.Cmd {
	if a.course.ID == "" {
		return nil
	}
	a.loading = true
	return a.Refetch(force)
}

// Refetch returns the fetch command without touching page state. Error
// toasts hold one as their retry action.
func (a Assignments) Refetch(force bool) tea.Cmd {
	if a.course.ID == "" {
		return nil
	}
	svc := a.svc
	courseID := a.course.ID
	return func() tea.Msg {
		list, err := svc.Assignments(context.Background(), courseID, force)
		return AssignmentsLoadedMsg{CourseID: courseID, Assignments: list, Err: err}
	}
}

// SetSize updates the page dimensions.
func (a *Assignments) SetSize(width, height int) {
	a.width = width
	a.height = height
}

// toggle flips the assignment under the cursor locally and returns the
// command that performs the server round-trip.
func (a *Assignments) toggle() tea.Cmd {
	if a.cursor < 0 || a.cursor >= len(a.assignments) {
		return nil
	}
	a.assignments = a.assignments.CloneValue().(campus.AssignmentList)
	a.assignments[a.cursor].Done = !a.assignments[a.cursor].Done

	return toggleCmd(a.svc, a.course.ID, a.assignments[a.cursor].ID)
}

// toggleCmd builds the toggle round-trip command. The result carries the
// command itself as its Retry so a failed toggle can be re-run from a toast.
func toggleCmd(svc *campus.Service, courseID, assignmentID string) tea.Cmd {
	var cmd tea.Cmd
	cmd = func() tea.Msg {
		err := svc.ToggleAssignment(context.Background(), courseID, assignmentID)
		return ToggleResultMsg{CourseID: courseID, AssignmentID: assignmentID, Err: err, Retry: cmd}
	}
	return cmd
}

// Update handles messages for the assignment page.
func (a Assignments) Update(msg tea.Msg) (Assignments, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if a.cursor > 0 {
				a.cursor--
			}
		case "down", "j":
			if a.cursor < len(a.assignments)-1 {
				a.cursor++
			}
		case "home", "g":
			a.cursor = 0
		case "end", "G":
			if len(a.assignments) > 0 {
				a.cursor = len(a.assignments) - 1
			}
		case " ", "enter", "x":
			return a, a.toggle()
		case "r":
			return a, a.Load(true)
		}

	case AssignmentsLoadedMsg:
		if msg.CourseID != a.course.ID {
			return a, nil
		}
		a.loading = false
		a.err = msg.Err
		if msg.Err == nil {
			a.assignments = msg.Assignments
			if a.cursor >= len(a.assignments) {
				a.cursor = len(a.assignments) - 1
			}
			if a.cursor < 0 {
				a.cursor = 0
			}
		}

	case ToggleResultMsg:
		if msg.CourseID != a.course.ID {
			return a, nil
		}
		// The coordinator already committed or rolled back the cache.
		return a, a.Load(false)
	}

	return a, nil
}

// View renders the checklist.
func (a Assignments) View() string {
	t := a.theme

	if a.course.ID == "" {
		return t.Container.Render(t.ListMeta.Render("Pick a course first (Courses tab, enter)."))
	}
	if a.loading && len(a.assignments) == 0 {
		return t.Container.Render(t.ThinkingText.Render("Loading assignments..."))
	}
	if a.err != nil && len(a.assignments) == 0 {
		return t.Container.Render(t.ErrorMessage.Render("Could not load assignments. Press r to retry."))
	}
	if len(a.assignments) == 0 {
		return t.Container.Render(t.ListMeta.Render("No assignments in " + a.course.Code + "."))
	}

	var out string
	for i, asg := range a.assignments {
		var mark, title string
		if asg.Done {
			mark = t.ListDone.Render(styles.StatusIndicators.Success)
			title = t.ListDone.Render(asg.Title)
		} else {
			mark = t.ListPending.Render(styles.StatusIndicators.Pending)
			title = asg.Title
		}
		line := mark + " " + title
		if asg.DueDate != nil && !asg.Done {
			line += "  " + a.renderDue(*asg.DueDate)
		}
		if i == a.cursor {
			out += t.ListItemSelected.Render(line) + "\n"
		} else {
			out += t.ListItem.Render(line) + "\n"
		}
	}
	return t.Container.Render(out)
}

// renderDue formats a due date, flagging anything already past.
func (a Assignments) renderDue(due time.Time) string {
	t := a.theme
	label := "due " + due.Format("Jan 2")
	if time.Now().After(due) {
		return t.WarningStyle.Render("overdue " + due.Format("Jan 2"))
	}
	return t.ListMeta.Render(label)
}
