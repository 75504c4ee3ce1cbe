// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"sync"
	"testing"
)

func TestReadWriteInvalidate(t *testing.T) {
	s := New()

	if _, ok := s.Read("courses"); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Write("courses", []string{"cs101"})
	v, ok := s.Read("courses")
	if !ok {
		t.Fatal("expected hit after write")
	}
	if got := v.([]string); len(got) != 1 || got[0] != "cs101" {
		t.Errorf("unexpected value: %v", got)
	}

	s.Invalidate("courses")
	if _, ok := s.Read("courses"); ok {
		t.Error("expected miss after invalidate")
	}
}

func TestStats(t *testing.T) {
	s := New()

	s.Read("a") // miss
	s.Write("a", 1)
	s.Read("a") // hit
	s.Read("b") // miss

	stats := s.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("hits=%d misses=%d, want 1/2", stats.Hits, stats.Misses)
	}
	if stats.EntryCount != 1 {
		t.Errorf("entry count = %d, want 1", stats.EntryCount)
	}
	if stats.HitRate < 0.33 || stats.HitRate > 0.34 {
		t.Errorf("hit rate = %f, want ~0.333", stats.HitRate)
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Write("a", 1)
	s.Write("b", 2)
	s.Clear()
	if s.Stats().EntryCount != 0 {
		t.Error("expected empty store after clear")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			s.Write(key, i)
			s.Read(key)
			if i%10 == 0 {
				s.Invalidate(key)
			}
		}(i)
	}
	wg.Wait()
}
