// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler for the studyhall CLI.
//
// Handles "studyhall ask" which sends one question to the AI tutor and
// streams the answer to stdout.
//
// Examples:
//
//	studyhall ask "What is the chain rule?"
//	studyhall ask --no-stream "Summarize chapter 3" > notes.md
//	echo "Explain this error" | studyhall ask
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/config"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the glamour renderer for tutor answers.
var markdownRenderer *glamour.TermRenderer

func init() {
	wrap := GetTerminalWidth()
	if wrap > 100 {
		wrap = 100
	}
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		// Plain text fallback when the renderer cannot initialize
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayAnswer renders markdown only when stdout is a terminal, so piped
// output stays clean.
func displayAnswer(answer string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(answer))
		return
	}
	fmt.Print(answer)
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	question := strings.TrimSpace(args.Query)

	// Piped input becomes the question when none was given on the command line
	if question == "" && !IsTTY() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		question = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if question == "" {
		return fmt.Errorf("no question given; try: studyhall ask \"What is a pointer?\"")
	}

	cfg := config.Global()
	rt, err := NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	conversationID := uuid.NewString()
	ctx := context.Background()

	// Streaming renders tokens as they arrive but skips markdown formatting;
	// the buffered path renders the finished answer through glamour.
	streaming := cfg.Tutor.Streaming && !args.NoStream && IsStdoutTTY()
	if !streaming {
		return askBuffered(ctx, rt, conversationID, question, args)
	}
	return askStreaming(ctx, rt, conversationID, question, args)
}

func askBuffered(ctx context.Context, rt *Runtime, conversationID, question string, args Args) error {
	resp, err := rt.Tutor.Ask(ctx, conversationID, question)
	if err != nil {
		return err
	}

	displayAnswer(resp.Response)
	if !strings.HasSuffix(resp.Response, "\n") {
		fmt.Println()
	}

	printFollowUps(resp.FollowUps, args)
	return nil
}

func askStreaming(ctx context.Context, rt *Runtime, conversationID, question string, args Args) error {
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

	printFollowUps(followUps, args)
	return nil
}

func printFollowUps(followUps []string, args Args) {
	if args.Quiet || len(followUps) == 0 || !IsStdoutTTY() {
		return
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Follow-up ideas:"))
	for _, f := range followUps {
		fmt.Println(RenderWrapped(DimStyle, "  - "+f))
	}
}
