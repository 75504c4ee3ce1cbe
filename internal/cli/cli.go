// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for studyhall.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	JSON     bool
	NoStream bool // Force the non-streaming tutor endpoint

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `studyhall - terminal client for the StudyHall campus platform

Browse your courses, tick off assignments, vote on the question board,
and ask the AI tutor, all without leaving the terminal.

Usage:
  studyhall                     Start the TUI (default)
  studyhall ask "question"      Ask the tutor a single question
  studyhall chat                Interactive tutor chat in the terminal
  studyhall history [cmd]       Saved tutor transcripts
  studyhall config [show|set]   Configuration
  studyhall version             Show version information

History Commands:
  studyhall history list            List saved transcripts
  studyhall history show <id>       Print a transcript
  studyhall history search <text>   Search transcripts
  studyhall history delete <id>     Delete a transcript
    --confirm                       Skip the confirmation prompt
  studyhall history prune           Drop transcripts over the configured cap

Config Commands:
  studyhall config show             Print the active configuration
  studyhall config set <key> <val>  Set a value (e.g. server.base_url)
  studyhall config path             Print the config file location

Global Flags:
  -q, --quiet       Minimal output
  -v, --verbose     Verbose output
  --json            Machine-readable output where supported
  --no-stream       Wait for complete tutor answers instead of streaming

Environment:
  STUDYHALL_BASE_URL             Override the campus server URL
  STUDYHALL_SESSION_PASSPHRASE   Encrypt the saved session with a passphrase
  NO_COLOR                       Disable colored output

Examples:
  studyhall ask "Explain integration by parts"
  studyhall ask --no-stream "What is a monad?" > answer.md
  studyhall history search "linked list"
  studyhall config set server.base_url https://campus.example.edu
`

// Parse parses command-line arguments into a command and its arguments.
// The first positional argument selects the command; everything else is
// handed to the command-specific parser.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := remaining[0]
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "history", "transcripts":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdHistory, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command: treat the whole line as a question for ask.
		// "studyhall what is a closure" just works.
		all := append([]string{cmd}, remaining...)
		parseAskArgs(&parsedArgs, all)
		if parsedArgs.Query != "" {
			return CmdAsk, parsedArgs
		}
		return CmdTUI, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--no-stream":
			parsedArgs.NoStream = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// parseAskArgs collects the question from positional arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		query = append(query, arg)
	}
	args.Query = strings.Join(query, " ")
}

// parseConfigArgs parses config subcommand, key, and value.
func parseConfigArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Subcommand = parser.Subcommand()
	args.ConfigKey = parser.Positional(1)
	args.ConfigVal = parser.Positional(2)
}

// PrintUsage prints the full usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("studyhall %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
