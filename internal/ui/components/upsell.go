// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

// =============================================================================
// UPGRADE BANNER
// =============================================================================

// UpsellBanner is shown when the server gates a feature behind a higher
// plan. It names the blocked feature and the plan that unlocks it, and
// stays visible until the user dismisses it.
type UpsellBanner struct {
	Feature string // What the user tried to do (e.g. "AI tutor")
	Plan    string // Plan that unlocks it (e.g. "pro"), may be empty
	Visible bool
}

// NewUpsellBanner creates a banner for a gated feature.
func NewUpsellBanner(feature, plan string) UpsellBanner {
	return UpsellBanner{
		Feature: feature,
		Plan:    plan,
		Visible: true,
	}
}

// Dismiss hides the banner.
func (b *UpsellBanner) Dismiss() {
	b.Visible = false
}

// Render renders the banner at the given width. Returns an empty string
// when the banner is dismissed.
func (b UpsellBanner) Render(width int) string {
	if !b.Visible {
		return ""
	}

	maxWidth := 70
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)

	bodyStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	feature := b.Feature
	if feature == "" {
		feature = "This feature"
	}

	var body strings.Builder
	body.WriteString(titleStyle.Render(styles.StatusIndicators.Warning + " Upgrade required"))
	body.WriteString("\n")
	if b.Plan != "" {
		body.WriteString(bodyStyle.Render(feature + " is available on the " + b.Plan + " plan."))
	} else {
		body.WriteString(bodyStyle.Render(feature + " is not available on your current plan."))
	}
	body.WriteString("\n")
	body.WriteString(hintStyle.Render("Manage your plan from the account page.  [x] Dismiss"))

	return lipgloss.NewStyle().
		Background(styles.AmberDeep).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(body.String())
}
