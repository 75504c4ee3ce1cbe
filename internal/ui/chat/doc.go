// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the tutor chat view for the studyhall TUI.

The chat package implements an interactive conversation with the AI tutor
using the Bubble Tea framework. Answers stream in token by token and render
with syntax-highlighted code blocks.

# Key Components

Model (model.go) holds the transcript, the input textarea, the scrollback
viewport, and the streaming state for the turn in flight. Each turn gets a
unique ID; stream messages carry that ID so events from a cancelled turn
are dropped instead of corrupting the next answer.

Update (update.go) handles keyboard input, stream ticks, and turn
completion. Session and plan errors are translated into account messages
for the parent model to act on.

View (view.go) renders user and tutor bubbles, follow-up suggestions, and
the shortcut bar.

StreamingBuffer (streaming.go) batches tokens for flicker-free rendering
at a capped frame rate.

# Usage

	tutor := campus.NewTutor(client, recorder)
	view := chat.New(theme, tutor)
	view.SetSize(80, 24)
*/
package chat
