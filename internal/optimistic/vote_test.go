// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package optimistic

import "testing"

func TestVoteDelta(t *testing.T) {
	tests := []struct {
		name      string
		previous  int
		requested int
		wantVote  int
		wantDelta int
	}{
		{"upvote from neutral", 0, 1, 1, 1},
		{"downvote from neutral", 0, -1, -1, -1},
		{"retract upvote", 1, 1, 0, -1},
		{"retract downvote", -1, -1, 0, 1},
		{"flip down to up", -1, 1, 1, 2},
		{"flip up to down", 1, -1, -1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vote, delta := VoteDelta(tt.previous, tt.requested)
			if vote != tt.wantVote || delta != tt.wantDelta {
				t.Errorf("VoteDelta(%d, %d) = (%d, %d), want (%d, %d)",
					tt.previous, tt.requested, vote, delta, tt.wantVote, tt.wantDelta)
			}
		})
	}
}

// Deltas always account exactly for the vote change, whatever sequence of
// presses led there.
func TestVoteDeltaConsistency(t *testing.T) {
	for _, start := range []int{-1, 0, 1} {
		for _, dir := range []int{-1, 1} {
			vote, delta := VoteDelta(start, dir)
			if delta != vote-start {
				t.Errorf("VoteDelta(%d, %d): delta %d does not match vote change %d",
					start, dir, delta, vote-start)
			}
			if vote < -1 || vote > 1 {
				t.Errorf("VoteDelta(%d, %d): vote %d out of range", start, dir, vote)
			}
		}
	}
}
