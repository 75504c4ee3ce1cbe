// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// courses.go - The enrolled-courses page.
package board

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

// Courses is the course list page. Selecting a course emits
// CourseSelectedMsg for the application model to act on.
type Courses struct {
	theme *styles.Theme
	svc   *campus.Service

	courses campus.CourseList
	cursor  int
	loading bool
	err     error

	width  int
	height int
}

// NewCourses creates the course page over the given service.
func NewCourses(theme *styles.Theme, svc *campus.Service) Courses {
	return Courses{theme: theme, svc: svc, loading: true}
}

// Load returns a command that fetches the course list. Pass force to bypass
// the cache.
func (c *Courses) Load(force bool) tea.Cmd {
	c.loading = true
	return c.Refetch(force)
}

// Refetch returns the fetch command without touching page state. Error
// toasts hold one as their retry action.
func (c Courses) Refetch(force bool) tea.Cmd {
	svc := c.svc
	return func() tea.Msg {
		list, err := svc.Courses(context.Background(), force)
		return CoursesLoadedMsg{Courses: list, Err: err}
	}
}

// Selected returns the course under the cursor, if any.
func (c Courses) Selected() (campus.Course, bool) {
	if c.cursor < 0 || c.cursor >= len(c.courses) {
		return campus.Course{}, false
	}
	return c.courses[c.cursor], true
}

// SetSize updates the page dimensions.
func (c *Courses) SetSize(width, height int) {
	c.width = width
	c.height = height
}

// Update handles messages for the course page.
func (c Courses) Update(msg tea.Msg) (Courses, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if c.cursor > 0 {
				c.cursor--
			}
		case "down", "j":
			if c.cursor < len(c.courses)-1 {
				c.cursor++
			}
		case "home", "g":
			c.cursor = 0
		case "end", "G":
			if len(c.courses) > 0 {
				c.cursor = len(c.courses) - 1
			}
		case "enter":
			if course, ok := c.Selected(); ok {
				return c, func() tea.Msg { return CourseSelectedMsg{Course: course} }
			}
		case "r":
			return c, c.Load(true)
		}

	case CoursesLoadedMsg:
		c.loading = false
		c.err = msg.Err
		if msg.Err == nil {
			c.courses = msg.Courses
			if c.cursor >= len(c.courses) {
				c.cursor = len(c.courses) - 1
			}
			if c.cursor < 0 {
				c.cursor = 0
			}
		}
	}

	return c, nil
}

// View renders the course list.
func (c Courses) View() string {
	t := c.theme

	if c.loading {
		return t.Container.Render(t.ThinkingText.Render("Loading courses..."))
	}
	if c.err != nil {
		return t.Container.Render(t.ErrorMessage.Render("Could not load courses. Press r to retry."))
	}
	if len(c.courses) == 0 {
		return t.Container.Render(t.ListMeta.Render("No enrolled courses."))
	}

	var out string
	for i, course := range c.courses {
		line := fmt.Sprintf("%s  %s", t.ListTitle.Render(course.Code), course.Title)
		if course.Term != "" {
			line += "  " + t.ListMeta.Render(course.Term)
		}
		if i == c.cursor {
			out += t.ListItemSelected.Render(line) + "\n"
		} else {
			out += t.ListItem.Render(line) + "\n"
		}
	}
	return t.Container.Render(out)
}
