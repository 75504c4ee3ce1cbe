// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration commands for the studyhall CLI.
//
// Subcommands: show, set, path.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jeranaias/studyhall-tui/internal/config"
)

// HandleConfig handles the "config" command and its subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "set":
		return configSet(args.ConfigKey, args.ConfigVal)
	case "path":
		return configPath()
	default:
		return fmt.Errorf("unknown config subcommand %q; see: studyhall help", args.Subcommand)
	}
}

func configShow(args Args) error {
	cfg := config.Global()

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	fmt.Println(TitleStyle.Render("studyhall configuration"))
	fmt.Println(RenderLabel("server.base_url") + ValueStyle.Render(cfg.Server.BaseURL))
	fmt.Println(RenderLabel("server.csrf_cookie") + ValueStyle.Render(cfg.Server.CSRFCookie))
	fmt.Println(RenderLabel("server.require_csrf") + ValueStyle.Render(strconv.FormatBool(cfg.Server.RequireCSRF)))
	fmt.Println(RenderLabel("server.timeout_secs") + ValueStyle.Render(strconv.Itoa(cfg.Server.TimeoutSecs)))
	fmt.Println(RenderLabel("tutor.streaming") + ValueStyle.Render(strconv.FormatBool(cfg.Tutor.Streaming)))
	fmt.Println(RenderLabel("tutor.show_follow_ups") + ValueStyle.Render(strconv.FormatBool(cfg.Tutor.ShowFollowUps)))
	fmt.Println(RenderLabel("history.enabled") + ValueStyle.Render(strconv.FormatBool(cfg.History.Enabled)))
	fmt.Println(RenderLabel("history.max_transcripts") + ValueStyle.Render(strconv.Itoa(cfg.History.MaxTranscripts)))
	fmt.Println(RenderLabel("ui.theme") + ValueStyle.Render(cfg.UI.Theme))
	fmt.Println(RenderLabel("ui.vim_mode") + ValueStyle.Render(strconv.FormatBool(cfg.UI.VimMode)))
	return nil
}

func configSet(key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("usage: studyhall config set <key> <value>")
	}

	cfg := config.Global()

	if err := applyConfigKey(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println(SuccessStyle.Render("Set " + key + " = " + value))
	return nil
}

// applyConfigKey mutates one dotted config key. Only the keys a user would
// plausibly script are settable here; edit the file directly for the rest.
func applyConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "server.base_url":
		cfg.Server.BaseURL = value
	case "server.csrf_cookie":
		cfg.Server.CSRFCookie = value
	case "server.require_csrf":
		b, err := ParseBoolString(value)
		if err != nil {
			return err
		}
		cfg.Server.RequireCSRF = b
	case "server.timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout_secs must be an integer: %w", err)
		}
		cfg.Server.TimeoutSecs = n
	case "tutor.streaming":
		b, err := ParseBoolString(value)
		if err != nil {
			return err
		}
		cfg.Tutor.Streaming = b
	case "tutor.show_follow_ups":
		b, err := ParseBoolString(value)
		if err != nil {
			return err
		}
		cfg.Tutor.ShowFollowUps = b
	case "history.enabled":
		b, err := ParseBoolString(value)
		if err != nil {
			return err
		}
		cfg.History.Enabled = b
	case "history.max_transcripts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_transcripts must be an integer: %w", err)
		}
		cfg.History.MaxTranscripts = n
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.vim_mode":
		b, err := ParseBoolString(value)
		if err != nil {
			return err
		}
		cfg.UI.VimMode = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func configPath() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
