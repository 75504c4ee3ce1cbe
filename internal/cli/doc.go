// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for studyhall.
//
// This package implements the non-TUI commands of the studyhall client:
// one-shot tutor questions, an interactive terminal chat, transcript
// history management, and configuration editing.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - Runtime: Shared command wiring (API client, tutor, history store, session jar)
//   - ArgParser: Positional and flag parsing for subcommands
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdAsk:
//	    return cli.HandleAsk(args)
//	case cli.CmdChat:
//	    return cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - ask: Single tutor question, streamed to stdout when attached to a TTY
//   - chat: Interactive tutor REPL with line editing and input history
//   - history: List, show, search, delete, and prune saved transcripts
//   - config: Show and set configuration values
//   - version: Version information
//
// Commands that render markdown or prompt for confirmation detect TTY
// capability first and degrade to plain output on pipes.
package cli
