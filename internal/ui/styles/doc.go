// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the studyhall TUI.

This package defines the color palette and themed lip gloss styles used
throughout the application. All colors use Lip Gloss AdaptiveColor for
automatic light/dark terminal detection.

# Color System (colors.go)

  - Purple - Primary accent for tutor messages and selections
  - Cyan - Brand color for info, commands, and user highlights
  - Emerald - Success states, completed assignments, upvotes
  - Amber - Warnings, due dates, plan upsell banners
  - Rose - Errors and downvotes

# Theme (theme.go)

Theme bundles every style the views need, detecting terminal capability
once at startup:

	theme := styles.NewTheme()
	header := theme.Header.Render("studyhall")

Layout helpers adapt rendering to the terminal width via SetSize and
GetLayoutMode.

# Accessibility

Status indicators pair shapes with color so states remain readable for
colorblind users: [OK], [X], [!], [i]. See RenderSuccess, RenderError,
RenderWarning, and RenderInfo.
*/
package styles
