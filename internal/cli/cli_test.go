// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution.
//
// This test file covers argument parsing and command dispatch for the
// user-facing commands: ask, chat, history, config.
package cli

import (
	"strings"
	"testing"

	"github.com/jeranaias/studyhall-tui/internal/config"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "--width", "100"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("width") != "100" {
					t.Errorf("Flag(width) = %q, want %q", p.Flag("width"), "100")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"list", "--since=2025-01-01"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("since") != "2025-01-01" {
					t.Errorf("Flag(since) = %q, want %q", p.Flag("since"), "2025-01-01")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"delete", "abc123", "--confirm"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("confirm") {
					t.Error("BoolFlag(confirm) should be true")
				}
				if p.Positional(1) != "abc123" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "abc123")
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"search", "binary", "search", "trees"},
			wantSub: "search",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 4 {
					t.Errorf("PositionalCount() = %d, want 4", p.PositionalCount())
				}
				joined := strings.Join(p.PositionalFrom(1), " ")
				if joined != "binary search trees" {
					t.Errorf("PositionalFrom(1) joined = %q, want %q", joined, "binary search trees")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"list", "--sort", "updated"})

	if got := parser.FlagOrDefault("sort", "created"); got != "updated" {
		t.Errorf("FlagOrDefault(sort) = %q, want %q", got, "updated")
	}
	if got := parser.FlagOrDefault("missing", "fallback"); got != "fallback" {
		t.Errorf("FlagOrDefault(missing) = %q, want %q", got, "fallback")
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		flagName   string
		defaultVal int
		want       int
	}{
		{
			name:       "flag present",
			args:       []string{"prune", "--keep", "25"},
			flagName:   "keep",
			defaultVal: 50,
			want:       25,
		},
		{
			name:       "flag absent",
			args:       []string{"prune"},
			flagName:   "keep",
			defaultVal: 50,
			want:       50,
		},
		{
			name:       "flag not an integer",
			args:       []string{"prune", "--keep", "lots"},
			flagName:   "keep",
			defaultVal: 50,
			want:       50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if got := parser.FlagIntOrDefault(tt.flagName, tt.defaultVal); got != tt.want {
				t.Errorf("FlagIntOrDefault(%s) = %d, want %d", tt.flagName, got, tt.want)
			}
		})
	}
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{"yes", true, false},
		{"on", true, false},
		{"1", true, false},
		{"false", false, false},
		{"no", false, false},
		{"off", false, false},
		{"0", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBoolString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBoolString(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBoolString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// =============================================================================
// COMMAND DISPATCH TESTS (cli.go)
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
	}{
		{"no args starts the TUI", nil, CmdTUI},
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"ask", []string{"ask", "what", "is", "recursion"}, CmdAsk},
		{"chat", []string{"chat"}, CmdChat},
		{"history", []string{"history", "list"}, CmdHistory},
		{"transcripts alias", []string{"transcripts", "list"}, CmdHistory},
		{"config", []string{"config", "show"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"version long flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := Parse(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%v) cmd = %d, want %d", tt.argv, cmd, tt.wantCmd)
			}
		})
	}
}

func TestParse_AskJoinsQuery(t *testing.T) {
	cmd, args := Parse([]string{"ask", "explain", "pointer", "receivers"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %d, want CmdAsk", cmd)
	}
	if args.Query != "explain pointer receivers" {
		t.Errorf("Query = %q, want %q", args.Query, "explain pointer receivers")
	}
}

func TestParse_UnknownCommandBecomesQuestion(t *testing.T) {
	cmd, args := Parse([]string{"what", "is", "a", "closure"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %d, want CmdAsk", cmd)
	}
	if args.Query != "what is a closure" {
		t.Errorf("Query = %q, want %q", args.Query, "what is a closure")
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	cmd, args := Parse([]string{"--no-stream", "--json", "ask", "hello"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %d, want CmdAsk", cmd)
	}
	if !args.NoStream {
		t.Error("NoStream should be true")
	}
	if !args.JSON {
		t.Error("JSON should be true")
	}
	if args.Query != "hello" {
		t.Errorf("Query = %q, want %q", args.Query, "hello")
	}
}

func TestParse_ConfigArgs(t *testing.T) {
	cmd, args := Parse([]string{"config", "set", "tutor.streaming", "false"})
	if cmd != CmdConfig {
		t.Fatalf("cmd = %d, want CmdConfig", cmd)
	}
	if args.Subcommand != "set" {
		t.Errorf("Subcommand = %q, want %q", args.Subcommand, "set")
	}
	if args.ConfigKey != "tutor.streaming" {
		t.Errorf("ConfigKey = %q, want %q", args.ConfigKey, "tutor.streaming")
	}
	if args.ConfigVal != "false" {
		t.Errorf("ConfigVal = %q, want %q", args.ConfigVal, "false")
	}
}

func TestParse_HistorySubcommand(t *testing.T) {
	cmd, args := Parse([]string{"history", "search", "heaps"})
	if cmd != CmdHistory {
		t.Fatalf("cmd = %d, want CmdHistory", cmd)
	}
	if args.Subcommand != "search" {
		t.Errorf("Subcommand = %q, want %q", args.Subcommand, "search")
	}
	if len(args.Raw) != 2 {
		t.Errorf("Raw = %v, want 2 entries", args.Raw)
	}
}

// =============================================================================
// CONFIG KEY TESTS (config_cmd.go)
// =============================================================================

func TestApplyConfigKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(*config.Config) bool
	}{
		{
			name:  "base url",
			key:   "server.base_url",
			value: "https://campus.example.edu",
			check: func(c *config.Config) bool { return c.Server.BaseURL == "https://campus.example.edu" },
		},
		{
			name:  "streaming off",
			key:   "tutor.streaming",
			value: "false",
			check: func(c *config.Config) bool { return !c.Tutor.Streaming },
		},
		{
			name:  "history cap",
			key:   "history.max_transcripts",
			value: "25",
			check: func(c *config.Config) bool { return c.History.MaxTranscripts == 25 },
		},
		{
			name:  "vim mode on",
			key:   "ui.vim_mode",
			value: "yes",
			check: func(c *config.Config) bool { return c.UI.VimMode },
		},
		{
			name:    "bad boolean",
			key:     "history.enabled",
			value:   "sometimes",
			wantErr: true,
		},
		{
			name:    "bad integer",
			key:     "server.timeout_secs",
			value:   "soon",
			wantErr: true,
		},
		{
			name:    "unknown key",
			key:     "server.port",
			value:   "8080",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			err := applyConfigKey(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyConfigKey(%s, %s) err = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			if err == nil && tt.check != nil && !tt.check(cfg) {
				t.Errorf("applyConfigKey(%s, %s) did not take effect", tt.key, tt.value)
			}
		})
	}
}

// =============================================================================
// TERMINAL HELPER TESTS
// =============================================================================

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		want     string
	}{
		{
			name:     "short line untouched",
			text:     "what is a pointer",
			maxWidth: 40,
			want:     "what is a pointer",
		},
		{
			name:     "wraps at word boundary",
			text:     "compare slices and arrays in detail",
			maxWidth: 20,
			want:     "compare slices and\narrays in detail",
		},
		{
			name:     "preserves existing newlines",
			text:     "line one\nline two",
			maxWidth: 40,
			want:     "line one\nline two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapText(tt.text, tt.maxWidth); got != tt.want {
				t.Errorf("WrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSeparatorWidth(t *testing.T) {
	got := RenderSeparator(12)
	if !strings.Contains(got, strings.Repeat("=", 12)) {
		t.Errorf("expected a 12-column separator, got %q", got)
	}
}
