// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// questions.go - The per-course Q&A board page.
package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/optimistic"
	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

// Questions is the Q&A board for the selected course. Votes apply to the
// visible list immediately using the same delta arithmetic the cache uses,
// then the list is re-read from the cache after the server round-trip.
type Questions struct {
	theme *styles.Theme
	svc   *campus.Service

	course    campus.Course
	questions campus.QuestionList
	cursor    int
	loading   bool
	err       error

	// Compose form state
	composing  bool
	titleInput textinput.Model
	bodyInput  textinput.Model

	width  int
	height int
}

// NewQuestions creates the Q&A page over the given service.
func NewQuestions(theme *styles.Theme, svc *campus.Service) Questions {
	title := textinput.New()
	title.Placeholder = "Question title"
	title.CharLimit = 200
	title.Prompt = "Title: "

	body := textinput.New()
	body.Placeholder = "Details (optional)"
	body.CharLimit = 2000
	body.Prompt = "Body:  "

	return Questions{
		theme:      theme,
		svc:        svc,
		titleInput: title,
		bodyInput:  body,
	}
}

// SetCourse switches the page to a course and returns the load command.
func (q *Questions) SetCourse(course campus.Course) tea.Cmd {
	q.course = course
	q.questions = nil
	q.cursor = 0
	q.err = nil
	q.cancelCompose()
	return q.Load(false)
}

// Load returns a command that fetches the question board.
func (q *Questions) Load(force bool) tea.Cmd {
	if q.course.ID == "" {
		return nil
	}
	q.loading = true
	return q.Refetch(force)
}

// Refetch returns the fetch command without touching page state. Error
// toasts hold one as their retry action.
func (q Questions) Refetch(force bool) tea.Cmd {
	if q.course.ID == "" {
		return nil
	}
	svc := q.svc
	courseID := q.course.ID
	return func() tea.Msg {
		list, err := svc.Questions(context.Background(), courseID, force)
		return QuestionsLoadedMsg{CourseID: courseID, Questions: list, Err: err}
	}
}

// Composing reports whether the new-question form is open. The application
// model uses this to keep tab-switch keys away from the form.
func (q Questions) Composing() bool {
	return q.composing
}

// SetSize updates the page dimensions.
func (q *Questions) SetSize(width, height int) {
	q.width = width
	q.height = height
	inputWidth := width - 12
	if inputWidth > 20 {
		q.titleInput.Width = inputWidth
		q.bodyInput.Width = inputWidth
	}
}

// vote applies the direction to the question under the cursor locally and
// returns the command that performs the server round-trip.
func (q *Questions) vote(direction int) tea.Cmd {
	if q.cursor < 0 || q.cursor >= len(q.questions) {
		return nil
	}
	q.questions = q.questions.CloneValue().(campus.QuestionList)
	cur := &q.questions[q.cursor]
	newVote, delta := optimistic.VoteDelta(cur.UserVote, direction)
	cur.UserVote = newVote
	cur.Votes += delta

	return voteCmd(q.svc, q.course.ID, cur.ID, direction)
}

// voteCmd builds the vote round-trip command. The result carries the command
// itself as its Retry so a failed vote can be re-run from a toast.
func voteCmd(svc *campus.Service, courseID, questionID string, direction int) tea.Cmd {
	var cmd tea.Cmd
	cmd = func() tea.Msg {
		err := svc.Vote(context.Background(), courseID, questionID, direction)
		return VoteResultMsg{CourseID: courseID, QuestionID: questionID, Err: err, Retry: cmd}
	}
	return cmd
}

// submitCompose posts the form contents as a new question.
func (q *Questions) submitCompose() tea.Cmd {
	title := strings.TrimSpace(q.titleInput.Value())
	if title == "" {
		return nil
	}
	body := strings.TrimSpace(q.bodyInput.Value())
	q.cancelCompose()

	return createQuestionCmd(q.svc, q.course.ID, title, body)
}

// createQuestionCmd builds the post round-trip command, carrying itself as
// the result's Retry.
func createQuestionCmd(svc *campus.Service, courseID, title, body string) tea.Cmd {
	var cmd tea.Cmd
	cmd = func() tea.Msg {
		err := svc.CreateQuestion(context.Background(), courseID, title, body)
		return QuestionCreatedMsg{CourseID: courseID, Err: err, Retry: cmd}
	}
	return cmd
}

func (q *Questions) startCompose() tea.Cmd {
	q.composing = true
	q.titleInput.SetValue("")
	q.bodyInput.SetValue("")
	q.bodyInput.Blur()
	return q.titleInput.Focus()
}

func (q *Questions) cancelCompose() {
	q.composing = false
	q.titleInput.Blur()
	q.bodyInput.Blur()
}

// Update handles messages for the Q&A page.
func (q Questions) Update(msg tea.Msg) (Questions, tea.Cmd) {
	if q.composing {
		return q.updateCompose(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if q.cursor > 0 {
				q.cursor--
			}
		case "down", "j":
			if q.cursor < len(q.questions)-1 {
				q.cursor++
			}
		case "home", "g":
			q.cursor = 0
		case "end", "G":
			if len(q.questions) > 0 {
				q.cursor = len(q.questions) - 1
			}
		case "+", "=":
			return q, q.vote(1)
		case "-", "_":
			return q, q.vote(-1)
		case "n":
			return q, q.startCompose()
		case "r":
			return q, q.Load(true)
		}

	case QuestionsLoadedMsg:
		if msg.CourseID != q.course.ID {
			return q, nil
		}
		q.loading = false
		q.err = msg.Err
		if msg.Err == nil {
			q.questions = msg.Questions
			if q.cursor >= len(q.questions) {
				q.cursor = len(q.questions) - 1
			}
			if q.cursor < 0 {
				q.cursor = 0
			}
		}

	case VoteResultMsg, QuestionCreatedMsg:
		// The cache already holds the committed or rolled-back list.
		return q, q.Load(false)
	}

	return q, nil
}

// updateCompose handles messages while the new-question form is open.
func (q Questions) updateCompose(msg tea.Msg) (Questions, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			q.cancelCompose()
			return q, nil
		case "tab", "shift+tab":
			if q.titleInput.Focused() {
				q.titleInput.Blur()
				return q, q.bodyInput.Focus()
			}
			q.bodyInput.Blur()
			return q, q.titleInput.Focus()
		case "enter":
			if q.titleInput.Focused() {
				q.titleInput.Blur()
				return q, q.bodyInput.Focus()
			}
			return q, q.submitCompose()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	q.titleInput, cmd = q.titleInput.Update(msg)
	cmds = append(cmds, cmd)
	q.bodyInput, cmd = q.bodyInput.Update(msg)
	cmds = append(cmds, cmd)
	return q, tea.Batch(cmds...)
}

// View renders the board or the compose form.
func (q Questions) View() string {
	t := q.theme

	if q.course.ID == "" {
		return t.Container.Render(t.ListMeta.Render("Pick a course first (Courses tab, enter)."))
	}
	if q.composing {
		return q.viewCompose()
	}
	if q.loading && len(q.questions) == 0 {
		return t.Container.Render(t.ThinkingText.Render("Loading questions..."))
	}
	if q.err != nil && len(q.questions) == 0 {
		return t.Container.Render(t.ErrorMessage.Render("Could not load questions. Press r to retry."))
	}
	if len(q.questions) == 0 {
		return t.Container.Render(t.ListMeta.Render("No questions yet. Press n to ask one."))
	}

	var out string
	for i, question := range q.questions {
		out += q.renderQuestion(question, i == q.cursor) + "\n"
	}
	return t.Container.Render(out)
}

// renderQuestion renders one board row, expanding the body under the
// selected row.
func (q Questions) renderQuestion(question campus.Question, selected bool) string {
	t := q.theme

	votes := fmt.Sprintf("%+d", question.Votes)
	if question.Votes == 0 {
		votes = "0"
	}
	var voteCol string
	switch question.UserVote {
	case 1:
		voteCol = t.VoteUpActive.Render(votes)
	case -1:
		voteCol = t.VoteDnActive.Render(votes)
	default:
		voteCol = t.VoteCount.Render(votes)
	}

	meta := question.Author
	if !question.CreatedAt.IsZero() {
		meta += ", " + relativeAge(question.CreatedAt)
	}
	if strings.HasPrefix(question.ID, "pending-") {
		meta = "posting..."
	}

	line := voteCol + " " + question.Title + "  " + t.ListMeta.Render(meta)
	if !selected {
		return t.ListItem.Render(line)
	}

	out := t.ListItemSelected.Render(line)
	if body := strings.TrimSpace(question.Body); body != "" {
		out += "\n" + t.ListItem.Render(t.ListMeta.Render(truncateBody(body, q.width-6)))
	}
	return out
}

// viewCompose renders the new-question form.
func (q Questions) viewCompose() string {
	t := q.theme
	var b strings.Builder
	b.WriteString(t.ListTitle.Render("Ask "+q.course.Code) + "\n\n")
	b.WriteString(q.titleInput.View() + "\n")
	b.WriteString(q.bodyInput.View() + "\n\n")
	b.WriteString(t.ShortcutKey.Render("enter") + t.ShortcutDesc.Render(" post  "))
	b.WriteString(t.ShortcutKey.Render("tab") + t.ShortcutDesc.Render(" next field  "))
	b.WriteString(t.ShortcutKey.Render("esc") + t.ShortcutDesc.Render(" cancel"))
	return t.Container.Render(b.String())
}

// relativeAge formats a timestamp as a rough age like "3h ago".
func relativeAge(at time.Time) string {
	d := time.Since(at)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// truncateBody clips a question body to one display line.
func truncateBody(body string, width int) string {
	body = strings.ReplaceAll(body, "\n", " ")
	if width < 10 {
		width = 10
	}
	if len(body) <= width {
		return body
	}
	return body[:width-3] + "..."
}
