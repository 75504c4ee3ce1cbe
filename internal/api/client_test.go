// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

// newTestClient builds a client against the test server with a fresh jar.
func newTestClient(t *testing.T, serverURL string, cb Callbacks) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return NewClient(Config{BaseURL: serverURL}, jar, cb)
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestSend_Unauthorized_InvokesCallbackOncePerCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var calls atomic.Int32
	client := newTestClient(t, server.URL, Callbacks{
		OnUnauthenticated: func() { calls.Add(1) },
	})

	for i := 0; i < 3; i++ {
		err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/api/courses"}, nil)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("expected callback once per call (3), got %d", got)
	}
}

func TestSend_PaymentRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	var gotReason, gotPlan string
	client := newTestClient(t, server.URL, Callbacks{
		OnUpgradeRequired: func(reason, plan string) { gotReason, gotPlan = reason, plan },
	})

	err := client.Send(context.Background(), Request{Method: http.MethodPost, Path: "/api/tutor/ask", JSON: map[string]string{}}, nil)
	if !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("expected ErrPaymentRequired, got %v", err)
	}
	if gotReason != "credits" || gotPlan != "" {
		t.Errorf("expected (credits, \"\"), got (%s, %s)", gotReason, gotPlan)
	}
}

func TestSend_Forbidden_WithRequiredPlan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"plan_required","required_plan":"pro"}`))
	}))
	defer server.Close()

	var gotReason, gotPlan string
	client := newTestClient(t, server.URL, Callbacks{
		OnUpgradeRequired: func(reason, plan string) { gotReason, gotPlan = reason, plan },
	})

	err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/api/courses"}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindUpgradeRequired {
		t.Fatalf("expected KindUpgradeRequired, got %v", err)
	}
	if apiErr.Plan != "pro" {
		t.Errorf("expected plan pro, got %q", apiErr.Plan)
	}
	if gotReason != "plan" || gotPlan != "pro" {
		t.Errorf("expected callback (plan, pro), got (%s, %s)", gotReason, gotPlan)
	}
}

func TestSend_Forbidden_WithoutRequiredPlan(t *testing.T) {
	bodies := []string{
		`{"error":"nope"}`,
		`not json at all`,
		``,
	}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(body))
		}))

		upgrades := 0
		client := newTestClient(t, server.URL, Callbacks{
			OnUpgradeRequired: func(reason, plan string) { upgrades++ },
		})

		err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("body %q: expected ErrForbidden, got %v", body, err)
		}
		if upgrades != 0 {
			t.Errorf("body %q: upgrade callback fired on plain 403", body)
		}
		server.Close()
	}
}

func TestSend_GenericHTTPError_MessageFromBody(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"message":"quiz is closed"}`, "quiz is closed"},
		{`{"error":"bad slug"}`, "bad slug"},
		{`<html>broken</html>`, "Request failed: 500"},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(tc.body))
		}))

		client := newTestClient(t, server.URL, Callbacks{})
		err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Kind != KindHTTP {
			t.Fatalf("body %q: expected KindHTTP, got %v", tc.body, err)
		}
		if apiErr.Message != tc.want {
			t.Errorf("body %q: expected message %q, got %q", tc.body, tc.want, apiErr.Message)
		}
		server.Close()
	}
}

func TestSend_Unreachable(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", Callbacks{})
	err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestSend_DecodesJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Intro to Go"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Callbacks{})
	var out struct {
		Name string `json:"name"`
	}
	if err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, &out); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.Name != "Intro to Go" {
		t.Errorf("expected decoded body, got %+v", out)
	}
}

// =============================================================================
// CREDENTIAL ATTACHMENT TESTS
// =============================================================================

func TestDo_AttachesCSRFHeaderFromJar(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(CSRFHeader)
	}))
	defer server.Close()

	jar, _ := cookiejar.New(nil)
	u, _ := url.Parse(server.URL)
	jar.SetCookies(u, []*http.Cookie{{Name: DefaultCSRFCookie, Value: "tok-123"}})

	client := NewClient(Config{BaseURL: server.URL}, jar, Callbacks{})
	if err := client.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x", JSON: map[string]int{}}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotToken != "tok-123" {
		t.Errorf("expected CSRF header tok-123, got %q", gotToken)
	}
}

func TestDo_OmitsCSRFHeaderWhenAbsent(t *testing.T) {
	var present bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[CSRFHeader]
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Callbacks{})
	if err := client.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x", JSON: map[string]int{}}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if present {
		t.Error("CSRF header sent without a token; fail-open should omit it")
	}
}

func TestDo_RequireCSRFFailsFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server despite require_csrf")
	}))
	defer server.Close()

	jar, _ := cookiejar.New(nil)
	client := NewClient(Config{BaseURL: server.URL, RequireCSRF: true}, jar, Callbacks{})
	err := client.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x", JSON: map[string]int{}}, nil)
	if err == nil {
		t.Fatal("expected error with require_csrf and no token")
	}
}

func TestDo_MultipartKeepsItsOwnContentType(t *testing.T) {
	var gotCT string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("server could not parse multipart body: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Callbacks{})
	req := Request{
		Method: http.MethodPost,
		Path:   "/api/submissions",
		Multipart: &Multipart{
			Fields: map[string]string{"assignment_id": "a-1"},
			Files:  []File{{Field: "file", Name: "essay.txt", Content: []byte("hello")}},
		},
	}
	if err := client.Send(context.Background(), req, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotCT == "application/json" || gotCT == "" {
		t.Errorf("multipart content type mangled: %q", gotCT)
	}
}

func TestRequest_BodyInvariant(t *testing.T) {
	client := newTestClient(t, "http://example.invalid", Callbacks{})
	_, err := client.Do(context.Background(), Request{
		Method:    http.MethodPost,
		Path:      "/x",
		JSON:      map[string]int{"a": 1},
		Multipart: &Multipart{},
	})
	if err == nil {
		t.Fatal("expected error for request with two bodies")
	}
}

// =============================================================================
// CONCURRENT CLASSIFICATION
// =============================================================================

func TestClassify_ConcurrentExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var calls atomic.Int32
	client := newTestClient(t, server.URL, Callbacks{
		OnUnauthenticated: func() { calls.Add(1) },
	})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != n {
		t.Errorf("expected %d callback invocations, got %d", n, got)
	}
}

// =============================================================================
// RETRY CLASSIFICATION
// =============================================================================

func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  APIError
		want bool
	}{
		{"unreachable", APIError{Kind: KindUnreachable}, true},
		{"stream failed", APIError{Kind: KindStream}, true},
		{"server error", APIError{Kind: KindHTTP, Status: 503}, true},
		{"client error", APIError{Kind: KindHTTP, Status: 404}, false},
		{"unauthorized", APIError{Kind: KindUnauthorized, Status: 401}, false},
		{"payment required", APIError{Kind: KindPaymentRequired, Status: 402}, false},
		{"upgrade required", APIError{Kind: KindUpgradeRequired, Status: 403}, false},
		{"forbidden", APIError{Kind: KindForbidden, Status: 403}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
