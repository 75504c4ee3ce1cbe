// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

// =============================================================================
// ROLES AND MESSAGES
// =============================================================================

// Role identifies who wrote a message in the transcript.
type Role int

const (
	RoleUser Role = iota
	RoleTutor
)

// Message is one entry in the on-screen transcript.
type Message struct {
	Role    Role
	Content string
	Time    time.Time
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the tutor chat view. One conversation per model; ClearConversation
// starts a fresh one with a new conversation ID.
type Model struct {
	theme *styles.Theme
	tutor *campus.Tutor

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	buffer    *StreamingBuffer
	cancelMgr *cancelManager

	messages       []Message
	conversationID string
	activeTurnID   string
	streaming      bool
	followUps      []string
	streamErr      error

	width  int
	height int
	ready  bool
}

// New creates a chat model bound to the given tutor.
func New(theme *styles.Theme, tutor *campus.Tutor) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask the tutor anything..."
	ta.Prompt = "> "
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		theme:          theme,
		tutor:          tutor,
		input:          ta,
		spinner:        sp,
		buffer:         NewStreamingBuffer(),
		cancelMgr:      newCancelManager(),
		conversationID: uuid.NewString(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Streaming reports whether a tutor answer is currently in flight.
func (m Model) Streaming() bool {
	return m.streaming
}

// ConversationID returns the ID of the active conversation.
func (m Model) ConversationID() string {
	return m.conversationID
}

// Messages returns the on-screen transcript.
func (m Model) Messages() []Message {
	return m.messages
}

// ClearConversation drops the transcript and starts a new conversation.
func (m *Model) ClearConversation() {
	m.cancel()
	m.buffer.Reset()
	m.messages = nil
	m.followUps = nil
	m.streamErr = nil
	m.streaming = false
	m.activeTurnID = ""
	m.conversationID = uuid.NewString()
	m.updateViewport()
}

// =============================================================================
// STREAMING
// =============================================================================

// submit starts a new tutor turn for the given question.
func (m *Model) submit(question string) tea.Cmd {
	if question == "" || m.streaming {
		return nil
	}

	turnID := uuid.NewString()
	m.activeTurnID = turnID
	m.streaming = true
	m.streamErr = nil
	m.followUps = nil
	m.buffer.Reset()

	now := time.Now()
	m.messages = append(m.messages,
		Message{Role: RoleUser, Content: question, Time: now},
		Message{Role: RoleTutor, Content: "", Time: now},
	)
	m.updateViewport()

	return tea.Batch(
		m.startTurnCmd(turnID, question),
		streamTickCmd(),
		m.spinner.Tick,
	)
}

// startTurnCmd runs the streaming request. Tokens land in the shared buffer
// from the request goroutine; the command itself blocks until the turn ends
// and returns the terminal message.
func (m *Model) startTurnCmd(turnID, question string) tea.Cmd {
	m.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	m.setCancelFunc(cancel)

	tutor := m.tutor
	buffer := m.buffer
	conversationID := m.conversationID

	return func() tea.Msg {
		var followUps []string
		err := tutor.AskStream(ctx, conversationID, question, func(ev api.StreamEvent) {
			if ev.Chunk != nil {
				buffer.Write(ev.Chunk.Content)
			}
			if ev.Done != nil {
				followUps = ev.Done.FollowUps
			}
		})
		if err != nil {
			return StreamErrorMsg{TurnID: turnID, Err: err}
		}
		return StreamDoneMsg{TurnID: turnID, FollowUps: followUps}
	}
}

// appendToActiveTurn adds flushed content to the tutor message being written.
func (m *Model) appendToActiveTurn(content string) {
	if len(m.messages) == 0 {
		return
	}
	last := &m.messages[len(m.messages)-1]
	if last.Role != RoleTutor {
		return
	}
	last.Content += content
}

// =============================================================================
// VIEWPORT
// =============================================================================

func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// SetSize resizes the view. Called by the parent on WindowSizeMsg.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	inputHeight := m.input.Height() + 2
	statusHeight := 1
	viewportHeight := height - inputHeight - statusHeight
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(width - 4)
	m.updateViewport()
}
