// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the login session between runs.
//
// The campus server authenticates with cookies. This package wraps an
// http.CookieJar so the cookies survive process restarts, stored encrypted
// at rest with AES-256-GCM. The key comes from a passphrase when
// STUDYHALL_SESSION_PASSPHRASE is set (derived with PBKDF2-SHA-256), or
// from a random key file created on first use.
//
// # Key Types
//
//   - Store: owns the encrypted session file and key material
//   - Jar: an http.CookieJar that can save itself back to the store
//
// # Usage
//
// Open the store and build a jar for the configured server:
//
//	store, err := session.NewStore(configDir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	jar, err := store.Jar("https://campus.example.edu")
//
// Persist the cookies after a run:
//
//	if err := jar.Save(); err != nil {
//	    log.Printf("session not saved: %v", err)
//	}
package session
