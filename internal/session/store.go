// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/studyhall-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// NonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits)
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes)
const SaltSize = 32

// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation.
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256.
const PBKDF2Iterations = 600000

// PassphraseEnv names the environment variable holding the optional session
// passphrase.
const PassphraseEnv = "STUDYHALL_SESSION_PASSPHRASE"

const (
	sessionFile = "session.enc"
	keyFile     = "session.key"
	saltFile    = "session.salt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDecryptionFailed indicates decryption failed (wrong key or tampered data)
	ErrDecryptionFailed = errors.New("session decryption failed: wrong passphrase or corrupt file")
	// ErrCorruptSession indicates the session file format is invalid
	ErrCorruptSession = errors.New("session file corrupt")
)

// zeroBytes securely zeros sensitive byte slices.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the encrypted session file and the key used to seal it.
type Store struct {
	dir  string
	aead cipher.AEAD
}

// NewStore opens (or initializes) the session store in dir. Key material is
// created on first use: a random key file by default, or a PBKDF2-derived
// key when STUDYHALL_SESSION_PASSPHRASE is set.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	key, err := resolveKey(dir)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Store{dir: dir, aead: aead}, nil
}

// resolveKey loads or creates the encryption key for the session file.
func resolveKey(dir string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		salt, err := loadOrCreateSecret(filepath.Join(dir, saltFile), SaltSize)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare salt: %w", err)
		}
		return pbkdf2.Key([]byte(pass), salt, PBKDF2Iterations, KeySize, sha256.New), nil
	}
	key, err := loadOrCreateSecret(filepath.Join(dir, keyFile), KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare key file: %w", err)
	}
	return key, nil
}

// loadOrCreateSecret reads a secret file, generating it with secure random
// bytes and 0600 permissions when absent.
func loadOrCreateSecret(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != size {
			return nil, fmt.Errorf("%s has unexpected size %d", filepath.Base(path), len(data))
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	data = make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return nil, err
	}
	return data, nil
}

// =============================================================================
// COOKIE PERSISTENCE
// =============================================================================

// storedCookie is the serialized form of one cookie.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// sessionFileV1 is the plaintext layout of the session file.
type sessionFileV1 struct {
	Version int            `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	Cookies []storedCookie `json:"cookies"`
}

// Jar is an http.CookieJar bound to one origin that can persist itself back
// to its Store.
type Jar struct {
	inner *cookiejar.Jar
	store *Store
	base  *url.URL
}

// Jar builds a cookie jar for baseURL, pre-populated with any previously
// saved session.
func (s *Store) Jar(baseURL string) (*Jar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &Jar{inner: inner, store: s, base: base}

	saved, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(saved) > 0 {
		cookies := make([]*http.Cookie, 0, len(saved))
		now := time.Now()
		for _, c := range saved {
			if !c.Expires.IsZero() && c.Expires.Before(now) {
				continue
			}
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
		}
		inner.SetCookies(base, cookies)
	}
	return j, nil
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
}

// Save writes the jar's cookies for its origin to the encrypted session
// file.
func (j *Jar) Save() error {
	current := j.inner.Cookies(j.base)
	out := make([]storedCookie, 0, len(current))
	for _, c := range current {
		out = append(out, storedCookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	return j.store.save(out)
}

// Clear removes the persisted session file. The in-memory jar is untouched.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, sessionFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// =============================================================================
// ENCRYPTED FILE I/O
// =============================================================================

func (s *Store) sessionPath() string {
	return filepath.Join(s.dir, sessionFile)
}

// save seals the cookie list and writes it atomically with 0600 permissions.
func (s *Store) save(cookies []storedCookie) error {
	plain, err := json.Marshal(sessionFileV1{
		Version: 1,
		SavedAt: time.Now().UTC(),
		Cookies: cookies,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	defer zeroBytes(plain)

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, plain, nil)
	blob := append(nonce, sealed...)

	if err := util.AtomicWriteFile(s.sessionPath(), blob, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// load opens and decrypts the session file. A missing file is an empty
// session, not an error.
func (s *Store) load() ([]storedCookie, error) {
	blob, err := os.ReadFile(s.sessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(blob) < NonceSize {
		return nil, ErrCorruptSession
	}

	nonce, sealed := blob[:NonceSize], blob[NonceSize:]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer zeroBytes(plain)

	var f sessionFileV1
	if err := json.Unmarshal(plain, &f); err != nil {
		return nil, ErrCorruptSession
	}
	return f.Cookies, nil
}
