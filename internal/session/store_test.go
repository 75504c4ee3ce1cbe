// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://campus.test.edu"

func mustJar(t *testing.T, dir string) *Jar {
	t.Helper()
	store, err := NewStore(dir)
	require.NoError(t, err)
	jar, err := store.Jar(testBase)
	require.NoError(t, err)
	return jar
}

func setCookie(t *testing.T, jar *Jar, name, value string) {
	t.Helper()
	u, err := url.Parse(testBase)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value}})
}

func getCookie(t *testing.T, jar *Jar, name string) string {
	t.Helper()
	u, err := url.Parse(testBase)
	require.NoError(t, err)
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestSaveAndRestoreCookies(t *testing.T) {
	dir := t.TempDir()

	jar := mustJar(t, dir)
	setCookie(t, jar, "session_id", "abc123")
	setCookie(t, jar, "csrf_token", "tok456")
	require.NoError(t, jar.Save())

	// A fresh store and jar see the saved session.
	restored := mustJar(t, dir)
	assert.Equal(t, "abc123", getCookie(t, restored, "session_id"))
	assert.Equal(t, "tok456", getCookie(t, restored, "csrf_token"))
}

func TestMissingSessionFileIsEmptySession(t *testing.T) {
	jar := mustJar(t, t.TempDir())
	u, _ := url.Parse(testBase)
	assert.Empty(t, jar.Cookies(u))
}

func TestSessionFileIsEncryptedAndPrivate(t *testing.T) {
	dir := t.TempDir()

	jar := mustJar(t, dir)
	setCookie(t, jar, "session_id", "supersecretvalue")
	require.NoError(t, jar.Save())

	raw, err := os.ReadFile(filepath.Join(dir, "session.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "supersecretvalue")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "session.enc"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestTamperedSessionFileFailsClosed(t *testing.T) {
	dir := t.TempDir()

	jar := mustJar(t, dir)
	setCookie(t, jar, "session_id", "abc")
	require.NoError(t, jar.Save())

	path := filepath.Join(dir, "session.enc")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0600))

	store, err := NewStore(dir)
	require.NoError(t, err)
	_, err = store.Jar(testBase)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestPassphraseDerivedKeyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "correct horse battery staple")

	jar := mustJar(t, dir)
	setCookie(t, jar, "session_id", "pass-protected")
	require.NoError(t, jar.Save())

	restored := mustJar(t, dir)
	assert.Equal(t, "pass-protected", getCookie(t, restored, "session_id"))

	// Salt file exists alongside the session, key file does not.
	_, err := os.Stat(filepath.Join(dir, "session.salt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "session.key"))
	assert.True(t, os.IsNotExist(err))
}

func TestWrongPassphraseRejected(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(PassphraseEnv, "right passphrase")
	jar := mustJar(t, dir)
	setCookie(t, jar, "session_id", "abc")
	require.NoError(t, jar.Save())

	t.Setenv(PassphraseEnv, "wrong passphrase")
	store, err := NewStore(dir)
	require.NoError(t, err)
	_, err = store.Jar(testBase)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestClearRemovesSession(t *testing.T) {
	dir := t.TempDir()

	jar := mustJar(t, dir)
	setCookie(t, jar, "session_id", "abc")
	require.NoError(t, jar.Save())

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear()) // idempotent

	restored := mustJar(t, dir)
	assert.Empty(t, getCookie(t, restored, "session_id"))
}
