// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the StudyHall API.
const (
	// DefaultTimeout is the timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultCSRFCookie is the cookie the anti-forgery token is read from.
	DefaultCSRFCookie = "csrf_token"

	// CSRFHeader is the header the anti-forgery token is sent in.
	CSRFHeader = "X-CSRF-Token"

	// MaxErrorBodySize limits how much of an error body is read for
	// classification.
	MaxErrorBodySize = 1 * 1024 * 1024 // 1MB
)

// =============================================================================
// REQUEST DESCRIPTOR
// =============================================================================

// Request describes one outgoing call. At most one of JSON and Multipart may
// be set; a request with neither carries no body.
type Request struct {
	Method string
	Path   string

	// JSON, when non-nil, is marshaled as the request body with an
	// application/json content type.
	JSON any

	// Multipart, when non-nil, is encoded as a multipart/form-data body.
	// The transport never forces a JSON content type on it; the multipart
	// writer supplies its own boundary type.
	Multipart *Multipart
}

// Multipart describes a multipart/form-data body.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// File is one file part of a multipart body.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// validate enforces the body invariant.
func (r Request) validate() error {
	if r.JSON != nil && r.Multipart != nil {
		return errors.New("request has both JSON and multipart bodies")
	}
	if r.Method == "" || r.Path == "" {
		return errors.New("request needs a method and path")
	}
	return nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Callbacks are the externally supplied handlers for cross-cutting failure
// classes. The transport guarantees only when they fire, never what they do;
// implementations must be idempotent since several in-flight requests can
// observe the same failure class around the same time.
type Callbacks struct {
	// OnUnauthenticated fires once per call that classifies as 401.
	OnUnauthenticated func()

	// OnUpgradeRequired fires for 402 (reason "credits", empty plan) and
	// for 403 bodies naming a required_plan (reason "plan").
	OnUpgradeRequired func(reason, plan string)
}

// Config holds client construction options.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://app.studyhall.io".
	BaseURL string

	// CSRFCookie is the cookie name the anti-forgery token is read from.
	// Defaults to DefaultCSRFCookie.
	CSRFCookie string

	// RequireCSRF fails a request up front when no token can be found,
	// instead of sending without the header. Off by default: registration
	// and other unauthenticated flows predate the token's availability.
	RequireCSRF bool

	// RequestsPerSecond throttles outgoing calls. Zero means unlimited.
	RequestsPerSecond float64

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Client is the transport core for the StudyHall backend. All requests and
// streams go through it; it owns credential attachment and error
// classification. Safe for concurrent use.
type Client struct {
	baseURL     string
	csrfCookie  string
	requireCSRF bool
	userAgent   string

	// httpClient serves request/response calls with a timeout; streamClient
	// has none, streams are bounded by their context instead.
	httpClient   *http.Client
	streamClient *http.Client
	jar          http.CookieJar
	limiter      *rate.Limiter

	mu        sync.RWMutex
	callbacks Callbacks
}

// NewClient creates a client for the given backend. The jar carries the
// ambient session cookie and is shared by both underlying HTTP clients; pass
// the jar managed by the session package so credentials persist across runs.
func NewClient(cfg Config, jar http.CookieJar, cb Callbacks) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	csrfCookie := cfg.CSRFCookie
	if csrfCookie == "" {
		csrfCookie = DefaultCSRFCookie
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "studyhall-tui/0.3.0"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		csrfCookie:  csrfCookie,
		requireCSRF: cfg.RequireCSRF,
		userAgent:   userAgent,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   DefaultTimeout,
		},
		streamClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			// No timeout for streaming - controlled via context
		},
		jar:       jar,
		limiter:   rate.NewLimiter(limit, 1),
		callbacks: cb,
	}
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetCallbacks replaces the registered callback set. Replacement, not
// accumulation: the previous handlers stop firing as soon as this returns.
func (c *Client) SetCallbacks(cb Callbacks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = cb
}

func (c *Client) currentCallbacks() Callbacks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callbacks
}

// =============================================================================
// CREDENTIAL ATTACHMENT
// =============================================================================

// csrfToken reads the anti-forgery token from the cookie jar for the base
// URL. Returns "" when no token is available.
func (c *Client) csrfToken() string {
	if c.jar == nil {
		return ""
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}

// attachHeaders sets the common headers on an outgoing request. The session
// cookie rides ambiently via the jar. When no CSRF token is available the
// header is simply omitted; see Config.RequireCSRF for the strict mode.
func (c *Client) attachHeaders(req *http.Request) error {
	req.Header.Set("User-Agent", c.userAgent)

	if token := c.csrfToken(); token != "" {
		req.Header.Set(CSRFHeader, token)
	} else if c.requireCSRF {
		return fmt.Errorf("no %s cookie available and require_csrf is set", c.csrfCookie)
	}
	return nil
}

// =============================================================================
// SEND / DO
// =============================================================================

// Send issues the request and decodes a 2xx JSON response into out (which may
// be nil when the caller does not need the body). Non-2xx responses and
// transport failures return an *APIError; callers needing the raw response
// (e.g. streaming) use Do instead.
func (c *Client) Send(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if out == nil || !strings.HasPrefix(ct, "application/json") {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxErrorBodySize))
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Do issues the request and returns the raw 2xx response with its body open.
// The caller owns closing the body. Non-2xx responses are consumed,
// classified, and returned as an *APIError; network failures before any
// response classify as KindUnreachable.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	return c.do(ctx, req, c.httpClient)
}

func (c *Client) do(ctx context.Context, req Request, hc *http.Client) (*http.Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case req.Multipart != nil:
		var buf bytes.Buffer
		boundary, err := encodeMultipart(&buf, req.Multipart)
		if err != nil {
			return nil, err
		}
		body = &buf
		contentType = boundary
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if err := c.attachHeaders(httpReq); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		// Context errors pass through untouched; everything else is a
		// network failure before any response.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &APIError{Kind: KindUnreachable, Message: err.Error()}
	}

	// Don't log bodies or headers; cookies and CSRF tokens must never
	// reach the log.
	log.Printf("API %s %s: %d (%v)", req.Method, req.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
	resp.Body.Close()
	return nil, c.classify(resp.StatusCode, data)
}

// encodeMultipart writes a multipart/form-data body into buf and returns the
// content type carrying the boundary.
func encodeMultipart(buf *bytes.Buffer, mp *Multipart) (string, error) {
	w := multipart.NewWriter(buf)
	for field, value := range mp.Fields {
		if err := w.WriteField(field, value); err != nil {
			return "", fmt.Errorf("failed to encode form field %q: %w", field, err)
		}
	}
	for _, f := range mp.Files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return "", fmt.Errorf("failed to encode form file %q: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return "", fmt.Errorf("failed to encode form file %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return w.FormDataContentType(), nil
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// classify maps a non-2xx status and its (possibly empty or invalid) body to
// an *APIError, firing the registered callbacks for the auth/billing kinds.
// Classification never suppresses or debounces callback invocations; that
// responsibility sits with the callback implementations.
func (c *Client) classify(status int, body []byte) *APIError {
	cb := c.currentCallbacks()

	// Reading the body must not fail classification: ignore parse errors
	// and work with whatever fields came through.
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	message := eb.Message
	if message == "" {
		message = eb.Error
	}

	switch status {
	case http.StatusUnauthorized:
		if cb.OnUnauthenticated != nil {
			cb.OnUnauthenticated()
		}
		return &APIError{Kind: KindUnauthorized, Status: status, Message: message}

	case http.StatusPaymentRequired:
		if cb.OnUpgradeRequired != nil {
			cb.OnUpgradeRequired("credits", "")
		}
		return &APIError{Kind: KindPaymentRequired, Status: status, Message: message}

	case http.StatusForbidden:
		if eb.RequiredPlan != "" {
			if cb.OnUpgradeRequired != nil {
				cb.OnUpgradeRequired("plan", eb.RequiredPlan)
			}
			return &APIError{Kind: KindUpgradeRequired, Status: status, Message: message, Plan: eb.RequiredPlan}
		}
		return &APIError{Kind: KindForbidden, Status: status, Message: message}
	}

	if message == "" {
		message = fmt.Sprintf("Request failed: %d", status)
	}
	return &APIError{Kind: KindHTTP, Status: status, Message: message}
}
