// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall-tui/internal/api"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			question := strings.TrimSpace(m.input.Value())
			if question != "" && !m.streaming {
				m.input.Reset()
				if cmd := m.submit(question); cmd != nil {
					cmds = append(cmds, cmd)
				}
				return m, tea.Batch(cmds...)
			}
		case "esc":
			if m.streaming {
				m.cancel()
				return m, nil
			}
		case "ctrl+l":
			m.ClearConversation()
			return m, nil
		case "tab":
			// Tab pulls the first follow-up suggestion into the input
			if len(m.followUps) > 0 && !m.streaming {
				m.input.SetValue(m.followUps[0])
				m.followUps = m.followUps[1:]
				return m, nil
			}
		}

	case StreamTickMsg:
		if !m.streaming {
			return m, nil
		}
		if content, ok := m.buffer.Flush(); ok {
			m.appendToActiveTurn(content)
			m.updateViewport()
		}
		cmds = append(cmds, streamTickCmd())
		return m, tea.Batch(cmds...)

	case StreamDoneMsg:
		// Late messages from a cancelled or superseded turn are dropped
		if msg.TurnID != m.activeTurnID {
			return m, nil
		}
		if content, ok := m.buffer.ForceFlush(); ok {
			m.appendToActiveTurn(content)
		}
		m.streaming = false
		m.followUps = msg.FollowUps
		m.clearCancelFunc()
		m.updateViewport()
		return m, nil

	case StreamErrorMsg:
		if msg.TurnID != m.activeTurnID {
			return m, nil
		}
		if content, ok := m.buffer.ForceFlush(); ok {
			m.appendToActiveTurn(content)
		}
		m.streaming = false
		m.streamErr = msg.Err
		m.clearCancelFunc()
		m.dropEmptyActiveTurn()
		m.updateViewport()
		return m, accountMsgFor(msg.Err)

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// dropEmptyActiveTurn removes the trailing tutor placeholder when a turn
// fails before producing any content.
func (m *Model) dropEmptyActiveTurn() {
	if len(m.messages) == 0 {
		return
	}
	last := m.messages[len(m.messages)-1]
	if last.Role == RoleTutor && last.Content == "" {
		m.messages = m.messages[:len(m.messages)-1]
	}
}

// accountMsgFor translates session and plan errors into account messages
// for the parent model. Other errors stay local to the chat view.
func accountMsgFor(err error) tea.Cmd {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	switch apiErr.Kind {
	case api.KindUnauthorized:
		return func() tea.Msg { return SessionExpiredMsg{} }
	case api.KindUpgradeRequired, api.KindPaymentRequired:
		return func() tea.Msg {
			return UpsellMsg{Reason: apiErr.Message, Plan: apiErr.Plan}
		}
	}
	return nil
}
