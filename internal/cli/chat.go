// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive tutor chat for the studyhall CLI.
//
// A readline-style REPL for terminals where the full TUI is unwanted
// (SSH sessions, tmux panes, scripts driving a pty). One conversation per
// session; /new rotates the conversation ID.
//
// Slash commands:
//
//	/new      Start a new conversation
//	/quit     Exit (also ctrl+d)
//	/help     Show commands
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation on the arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	cfg := config.Global()
	rt, err := NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	input := NewChatCLI()
	defer input.Close()

	conversationID := uuid.NewString()

	if !args.Quiet {
		fmt.Println(TitleStyle.Render("studyhall tutor"))
		fmt.Println(DimStyle.Render("Type a question, /new for a fresh conversation, /quit to exit."))
		fmt.Println()
	}

	for {
		line, err := input.ReadInput("you> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := handleChatSlash(line, &conversationID); done {
				return nil
			}
			continue
		}

		if err := chatTurn(rt, cfg, conversationID, line, args); err != nil {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		}
	}
}

// handleChatSlash runs a slash command. Returns true when the REPL should exit.
func handleChatSlash(cmd string, conversationID *string) bool {
	switch strings.Fields(cmd)[0] {
	case "/quit", "/q", "/exit":
		return true
	case "/new", "/clear":
		*conversationID = uuid.NewString()
		fmt.Println(DimStyle.Render("Started a new conversation."))
	case "/help", "/h":
		fmt.Println(DimStyle.Render("/new   start a new conversation"))
		fmt.Println(DimStyle.Render("/quit  exit chat"))
	default:
		fmt.Println(DimStyle.Render("Unknown command. Try /help."))
	}
	return false
}

// chatTurn sends one question and prints the answer.
func chatTurn(rt *Runtime, cfg *config.Config, conversationID, question string, args Args) error {
	ctx := context.Background()

	if !cfg.Tutor.Streaming || args.NoStream {
		resp, err := rt.Tutor.Ask(ctx, conversationID, question)
		if err != nil {
			return err
		}
		fmt.Print(renderMarkdown(resp.Response))
		chatPrintFollowUps(resp.FollowUps, cfg)
		return nil
	}

	var followUps []string
	var wrote bool
	err := rt.Tutor.AskStream(ctx, conversationID, question, func(ev api.StreamEvent) {
		if ev.Chunk != nil && ev.Chunk.Content != "" {
			fmt.Print(ev.Chunk.Content)
			wrote = true
		}
		if ev.Done != nil {
			followUps = ev.Done.FollowUps
		}
	})
	if wrote {
		fmt.Println()
	}
	if err != nil {
		return err
	}
	chatPrintFollowUps(followUps, cfg)
	return nil
}

func chatPrintFollowUps(followUps []string, cfg *config.Config) {
	if !cfg.Tutor.ShowFollowUps || len(followUps) == 0 {
		return
	}
	for _, f := range followUps {
		fmt.Println(DimStyle.Render("  ? " + f))
	}
	fmt.Println()
}
