// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// studyhall.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.studyhall/config.toml
//   - ~/.studyhall/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/studyhall-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete studyhall configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Server connection configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Tutor configuration
	Tutor TutorConfig `toml:"tutor" json:"tutor"`

	// History storage configuration
	History HistoryConfig `toml:"history" json:"history"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains the campus server connection settings.
type ServerConfig struct {
	// BaseURL is the root URL of the campus API, e.g. https://campus.example.edu
	BaseURL string `toml:"base_url" json:"base_url"`
	// CSRFCookie is the name of the cookie carrying the CSRF token.
	CSRFCookie string `toml:"csrf_cookie" json:"csrf_cookie"`
	// RequireCSRF makes mutating requests fail when no CSRF token is present,
	// instead of sending them without the header.
	RequireCSRF bool `toml:"require_csrf" json:"require_csrf"`
	// RequestsPerSecond limits outgoing request rate. 0 disables the limit.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// TimeoutSecs is the per-request timeout for non-streaming calls.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// TutorConfig contains AI tutor settings.
type TutorConfig struct {
	// Streaming enables incremental answer delivery. When false every
	// question uses the non-streaming endpoint.
	Streaming bool `toml:"streaming" json:"streaming"`
	// ShowFollowUps displays suggested follow-up questions after an answer.
	ShowFollowUps bool `toml:"show_follow_ups" json:"show_follow_ups"`
}

// HistoryConfig contains tutor transcript storage settings.
type HistoryConfig struct {
	// Enabled controls whether completed tutor exchanges are persisted.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the transcript database file (empty = ~/.studyhall/history.db).
	Path string `toml:"path" json:"path"`
	// MaxTranscripts caps stored conversations; oldest are pruned first.
	MaxTranscripts int `toml:"max_transcripts" json:"max_transcripts"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// VimMode enables vim-style modal editing
	VimMode bool `toml:"vim_mode" json:"vim_mode"`
	// ShowVoteCounts displays vote totals on the question board
	ShowVoteCounts bool `toml:"show_vote_counts" json:"show_vote_counts"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:           "https://campus.studyhall.app",
			CSRFCookie:        "csrf_token",
			RequireCSRF:       false,
			RequestsPerSecond: 0, // unlimited
			TimeoutSecs:       60,
		},

		Tutor: TutorConfig{
			Streaming:     true,
			ShowFollowUps: true,
		},

		History: HistoryConfig{
			Enabled:        true,
			MaxTranscripts: 200,
		},

		UI: UIConfig{
			Theme:          "dark",
			CompactMode:    false,
			VimMode:        false,
			ShowVoteCounts: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the studyhall configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".studyhall"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) since the
// config can name a private server.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err = finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies env overrides and validates a loaded config.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Server
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.CSRFCookie == "" {
		cfg.Server.CSRFCookie = defaults.Server.CSRFCookie
	}
	if cfg.Server.TimeoutSecs == 0 {
		cfg.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}

	// History
	if cfg.History.MaxTranscripts == 0 {
		cfg.History.MaxTranscripts = defaults.History.MaxTranscripts
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// HistoryPath resolves the transcript database path, defaulting into the
// config directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# studyhall configuration file")
	fmt.Fprintln(file, "# Generated by studyhall - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "server.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Server.BaseURL),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "server.base_url",
				Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
			})
		}
	}

	if c.Server.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.requests_per_second",
			Message: "cannot be negative",
		})
	}

	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: "cannot be negative",
		})
	}

	if c.History.MaxTranscripts < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.max_transcripts",
			Message: "cannot be negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if c.UI.Theme != "" && !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - STUDYHALL_BASE_URL: overrides server.base_url
//   - STUDYHALL_CSRF_COOKIE: overrides server.csrf_cookie
//   - STUDYHALL_REQUIRE_CSRF: set to "1" or "true" to require CSRF tokens
//   - STUDYHALL_NO_STREAM: set to "1" or "true" to disable tutor streaming
//   - STUDYHALL_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("STUDYHALL_BASE_URL"); base != "" {
		c.Server.BaseURL = base
	}

	if cookie := os.Getenv("STUDYHALL_CSRF_COOKIE"); cookie != "" {
		c.Server.CSRFCookie = cookie
	}

	if v := os.Getenv("STUDYHALL_REQUIRE_CSRF"); v != "" {
		c.Server.RequireCSRF = envTrue(v)
	}

	if v := os.Getenv("STUDYHALL_NO_STREAM"); v != "" {
		c.Tutor.Streaming = !envTrue(v)
	}

	if theme := os.Getenv("STUDYHALL_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

func envTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigMu   sync.RWMutex
	globalConfigOnce sync.Once
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
	return nil
}

// SetGlobal replaces the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
}

// ResetGlobalForTesting clears global config state so tests start fresh.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
	globalConfigMu.Unlock()
}
