// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the client-side cache the UI reads from.
//
// The cache is the only mutable shared state in the client. It is written
// through two paths only: authoritative refetches, and the optimistic
// apply/rollback recipe in the optimistic package. Page code never mutates
// cached values in place.
package store

import (
	"sync"
)

// =============================================================================
// CACHE STORE
// =============================================================================

// Store is a string-keyed in-memory cache. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]any

	// Statistics
	hits   int
	misses int
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int
	Misses     int
	EntryCount int
	HitRate    float64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]any),
	}
}

// Read returns the cached value for key, if present. Callers must treat the
// returned value as immutable; replacement goes through Write.
func (s *Store) Read(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	return v, ok
}

// Write replaces the value for key.
func (s *Store) Write(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// Invalidate removes the value for key.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]any)
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hitRate := 0.0
	if total := s.hits + s.misses; total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}
	return Stats{
		Hits:       s.hits,
		Misses:     s.misses,
		EntryCount: len(s.entries),
		HitRate:    hitRate,
	}
}
