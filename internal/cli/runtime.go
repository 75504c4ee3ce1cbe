// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - Shared construction of the API client, tutor, and history
// store for CLI command handlers.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/config"
	"github.com/jeranaias/studyhall-tui/internal/session"
	"github.com/jeranaias/studyhall-tui/internal/storage"
)

// Runtime bundles the pieces a CLI command needs to talk to the campus
// server. Close flushes the session jar and closes the history store.
type Runtime struct {
	Client  *api.Client
	Tutor   *campus.Tutor
	History *storage.Store
	Jar     *session.Jar
}

// NewRuntime builds a runtime from the global configuration. The history
// store is nil when transcript recording is disabled.
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	sessions, err := session.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	jar, err := sessions.Jar(cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("build cookie jar: %w", err)
	}

	client := api.NewClient(api.Config{
		BaseURL:           cfg.Server.BaseURL,
		CSRFCookie:        cfg.Server.CSRFCookie,
		RequireCSRF:       cfg.Server.RequireCSRF,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	}, jar, api.Callbacks{
		OnUnauthenticated: func() {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render("Session expired. Sign in again from the campus web app."))
		},
		OnUpgradeRequired: func(reason, plan string) {
			if plan != "" {
				fmt.Fprintln(os.Stderr, WarningStyle.Render("This feature requires the "+plan+" plan."))
				return
			}
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Out of credits for this feature."))
		},
	})

	var history *storage.Store
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err == nil {
			if history, err = storage.Open(path); err != nil {
				// History is best-effort from the CLI; answers still work
				fmt.Fprintf(os.Stderr, "warning: transcript history unavailable: %v\n", err)
				history = nil
			}
		}
	}

	var recorder campus.TurnRecorder
	if history != nil {
		recorder = history
	}

	return &Runtime{
		Client:  client,
		Tutor:   campus.NewTutor(client, recorder),
		History: history,
		Jar:     jar,
	}, nil
}

// Close persists the session cookie jar and releases the history store.
func (r *Runtime) Close() {
	if r.Jar != nil {
		if err := r.Jar.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save session: %v\n", err)
		}
	}
	if r.History != nil {
		r.History.Close()
	}
}
