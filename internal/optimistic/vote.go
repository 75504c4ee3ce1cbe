// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package optimistic

// =============================================================================
// VOTE DERIVATION
// =============================================================================

// VoteDelta computes the outcome of a vote action. previous is the user's
// current vote on the item (-1, 0, or +1) and requested is the direction of
// the action (+1 or -1). It returns the user's new vote and the change to
// apply to the item's total.
//
// Requesting the direction already held retracts the vote. Requesting the
// opposite direction flips it, moving the total by two.
func VoteDelta(previous, requested int) (newVote, delta int) {
	if previous == requested {
		return 0, -previous
	}
	return requested, requested - previous
}
