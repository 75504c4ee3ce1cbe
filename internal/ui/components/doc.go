// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the studyhall TUI.

This package contains styled components built on top of the Bubble Tea and
Lip Gloss libraries, consistent with the studyhall design language in the
styles package.

# Core Components

Toast (toast.go) - Non-blocking corner notifications with auto-dismiss,
used to report rollbacks from failed votes and toggles without
interrupting the user.

UpsellBanner (upsell.go) - Banner shown when the server gates a feature
behind a higher plan.

CodeBlock (codeblock.go) - Syntax-highlighted code blocks using Chroma,
for code in tutor answers.

# Usage

Toasts are managed centrally and rendered over the main view:

	manager := components.NewToastManager()
	manager.AddError("Vote failed, restored previous state")
	overlay := components.RenderToastStack(manager.GetToasts(), width, height)

Code blocks are extracted from markdown-ish tutor output:

	rendered := components.ParseCodeBlocks(answer, maxWidth)
*/
package components
