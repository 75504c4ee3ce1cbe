// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Saved tutor transcript commands for the studyhall CLI.
//
// Subcommands: list, show, search, delete, prune.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/studyhall-tui/internal/config"
	"github.com/jeranaias/studyhall-tui/internal/storage"
)

// HandleHistory handles the "history" command and its subcommands.
func HandleHistory(args Args) error {
	cfg := config.Global()
	if !cfg.History.Enabled {
		return fmt.Errorf("transcript history is disabled; enable it with: studyhall config set history.enabled true")
	}

	path, err := cfg.HistoryPath()
	if err != nil {
		return fmt.Errorf("resolve history path: %w", err)
	}
	store, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	parser := NewArgParser(args.Raw)
	ctx := context.Background()

	switch parser.Subcommand() {
	case "", "list":
		return historyList(ctx, store, args)
	case "show":
		return historyShow(ctx, store, parser.Positional(1), args)
	case "search":
		return historySearch(ctx, store, JoinPositionalArgs(parser, 1), args)
	case "delete":
		return historyDelete(ctx, store, parser.Positional(1), parser.BoolFlag("confirm"))
	case "prune":
		return historyPrune(ctx, store, cfg.History.MaxTranscripts)
	default:
		return fmt.Errorf("unknown history subcommand %q; see: studyhall help", parser.Subcommand())
	}
}

func historyList(ctx context.Context, store *storage.Store, args Args) error {
	metas, err := store.ListTranscripts(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(metas)
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No saved transcripts yet. Ask the tutor something first."))
		return nil
	}

	for _, meta := range metas {
		fmt.Printf("%s  %s  %s\n",
			ValueStyle.Render(meta.ID),
			DimStyle.Render(meta.UpdatedAt.Format("2006-01-02 15:04")),
			meta.Title,
		)
	}
	return nil
}

func historyShow(ctx context.Context, store *storage.Store, id string, args Args) error {
	if id == "" {
		return fmt.Errorf("usage: studyhall history show <id>")
	}

	transcript, err := store.LoadTranscript(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no transcript with ID %q", id)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(transcript)
	}

	fmt.Println(TitleStyle.Render(transcript.Title))
	for i, turn := range transcript.Turns {
		if i > 0 {
			fmt.Println(RenderSeparator(GetTerminalWidth() - 4))
		}
		fmt.Println(SectionStyle.Render("you: ") + turn.Question)
		fmt.Println()
		fmt.Print(renderMarkdown(turn.Answer))
		if !strings.HasSuffix(turn.Answer, "\n") {
			fmt.Println()
		}
		fmt.Println()
	}
	return nil
}

func historySearch(ctx context.Context, store *storage.Store, query string, args Args) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("usage: studyhall history search <text>")
	}

	metas, err := store.SearchTranscripts(ctx, query)
	if err != nil {
		return err
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(metas)
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No transcripts match " + fmt.Sprintf("%q", query) + "."))
		return nil
	}
	for _, meta := range metas {
		fmt.Printf("%s  %s\n", ValueStyle.Render(meta.ID), meta.Title)
	}
	return nil
}

func historyDelete(ctx context.Context, store *storage.Store, id string, confirmed bool) error {
	if id == "" {
		return fmt.Errorf("usage: studyhall history delete <id> [--confirm]")
	}

	if !confirmed {
		if !IsTTY() {
			return fmt.Errorf("refusing to delete without --confirm on non-interactive input")
		}
		fmt.Printf("Delete transcript %s? [y/N] ", id)
		var answer string
		fmt.Scanln(&answer)
		if ok, err := ParseBoolString(answer); err != nil || !ok {
			fmt.Println(DimStyle.Render("Cancelled."))
			return nil
		}
	}

	err := store.DeleteTranscript(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no transcript with ID %q", id)
	}
	if err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Deleted."))
	return nil
}

func historyPrune(ctx context.Context, store *storage.Store, max int) error {
	if max <= 0 {
		fmt.Println(DimStyle.Render("No transcript cap configured; nothing to prune."))
		return nil
	}
	if err := store.Prune(ctx, max); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render(fmt.Sprintf("Pruned to the newest %d transcripts.", max)))
	return nil
}
