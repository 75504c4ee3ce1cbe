// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the application.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - AtomicWriteFileWithDir: Same, creating parent directories first
//
// # Usage
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
//
// Both the config file and the encrypted session file are written through
// this package, so a crash mid-write never leaves a truncated file behind.
package util
