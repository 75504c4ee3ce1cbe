// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/studyhall-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// renderMessages renders the transcript for the viewport.
func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return m.theme.ThinkingText.Render("Ask the tutor a question to get started.")
	}

	bubbleWidth := m.width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var parts []string
	for i, msg := range m.messages {
		switch msg.Role {
		case RoleUser:
			bubble := m.theme.UserBubble.MaxWidth(bubbleWidth).Render(msg.Content)
			parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble))
		case RoleTutor:
			isActive := m.streaming && i == len(m.messages)-1
			if msg.Content == "" && isActive {
				thinking := m.spinner.View() + " " + m.theme.ThinkingText.Render("Thinking...")
				parts = append(parts, thinking)
				continue
			}
			content := components.ParseCodeBlocks(msg.Content, bubbleWidth)
			content = components.ParseInlineCode(content)
			parts = append(parts, m.theme.TutorBubble.MaxWidth(bubbleWidth).Render(content))
		}
	}

	if m.streamErr != nil {
		parts = append(parts, m.theme.ErrorMessage.Render(m.streamErr.Error()))
	}

	if !m.streaming && len(m.followUps) > 0 {
		parts = append(parts, m.renderFollowUps())
	}

	return strings.Join(parts, "\n\n")
}

// renderFollowUps lists suggested next questions below the last answer.
func (m Model) renderFollowUps() string {
	var b strings.Builder
	b.WriteString(m.theme.ThinkingText.Render("Suggested follow-ups:"))
	for i, followUp := range m.followUps {
		b.WriteString("\n")
		b.WriteString(m.theme.FollowUp.Render("  " + strconv.Itoa(i+1) + ". " + followUp))
	}
	return b.String()
}

func (m Model) renderStatusLine() string {
	key := m.theme.ShortcutKey
	desc := m.theme.ShortcutDesc

	var hints []string
	if m.streaming {
		hints = append(hints, key.Render("esc")+desc.Render(" cancel"))
	} else {
		hints = append(hints, key.Render("enter")+desc.Render(" send"))
		if len(m.followUps) > 0 {
			hints = append(hints, key.Render("tab")+desc.Render(" follow-up"))
		}
	}
	hints = append(hints, key.Render("ctrl+l")+desc.Render(" new chat"))

	return m.theme.StatusBar.Render(strings.Join(hints, "  "))
}
