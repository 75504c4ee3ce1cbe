// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// TYPES
// =============================================================================

// Transcript is one tutor conversation with all of its turns.
type Transcript struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// Turn is one question/answer exchange.
type Turn struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptMeta contains metadata for listing transcripts.
type TranscriptMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// ErrNotFound indicates the requested transcript does not exist.
var ErrNotFound = errors.New("transcript not found")

// titleLimit caps the auto-generated transcript title length.
const titleLimit = 80

// =============================================================================
// STORE
// =============================================================================

// Store is the transcript database handle. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the transcript database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite serializes writes internally; a single connection
	// avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id            TEXT PRIMARY KEY,
	transcript_id TEXT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
	question      TEXT NOT NULL,
	answer        TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_transcript ON turns(transcript_id, created_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

// SaveTurn appends one exchange to a transcript, creating the transcript on
// first use. The transcript's title is taken from its first question.
func (s *Store) SaveTurn(ctx context.Context, transcriptID, question, answer string) error {
	if transcriptID == "" {
		return errors.New("transcript ID required")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		transcriptID, makeTitle(question), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert transcript: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (id, transcript_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), transcriptID, question, answer, now)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return tx.Commit()
}

// DeleteTranscript removes a transcript and its turns.
func (s *Store) DeleteTranscript(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune deletes the oldest transcripts beyond max. max <= 0 disables
// pruning.
func (s *Store) Prune(ctx context.Context, max int) error {
	if max <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM transcripts WHERE id NOT IN (
			SELECT id FROM transcripts ORDER BY updated_at DESC LIMIT ?
		)`, max)
	if err != nil {
		return fmt.Errorf("failed to prune transcripts: %w", err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// ListTranscripts returns transcript metadata, most recently updated first.
func (s *Store) ListTranscripts(ctx context.Context) ([]TranscriptMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.created_at, t.updated_at, COUNT(u.id)
		FROM transcripts t
		LEFT JOIN turns u ON u.transcript_id = t.id
		GROUP BY t.id
		ORDER BY t.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMeta
	for rows.Next() {
		var m TranscriptMeta
		if err := rows.Scan(&m.ID, &m.Title, &m.CreatedAt, &m.UpdatedAt, &m.TurnCount); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadTranscript returns one transcript with its turns in order.
func (s *Store) LoadTranscript(ctx context.Context, id string) (*Transcript, error) {
	var t Transcript
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at FROM transcripts WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer, created_at
		FROM turns WHERE transcript_id = ?
		ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.ID, &turn.Question, &turn.Answer, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Turns = append(t.Turns, turn)
	}
	return &t, rows.Err()
}

// SearchTranscripts returns transcripts whose turns contain the query,
// case-insensitive, most recently updated first.
func (s *Store) SearchTranscripts(ctx context.Context, query string) ([]TranscriptMeta, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.created_at, t.updated_at, COUNT(u.id)
		FROM transcripts t
		JOIN turns u ON u.transcript_id = t.id
		WHERE t.id IN (
			SELECT DISTINCT transcript_id FROM turns
			WHERE lower(question) LIKE ? OR lower(answer) LIKE ?
		)
		GROUP BY t.id
		ORDER BY t.updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search transcripts: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMeta
	for rows.Next() {
		var m TranscriptMeta
		if err := rows.Scan(&m.ID, &m.Title, &m.CreatedAt, &m.UpdatedAt, &m.TurnCount); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// makeTitle derives a transcript title from its first question.
func makeTitle(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if len(title) > titleLimit {
		title = title[:titleLimit-3] + "..."
	}
	return title
}
