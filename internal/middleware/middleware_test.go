package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskpom/taskpom/internal/app/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	mgr := auth.NewManager("test-secret", nil, time.Hour)
	mw := NewAuthMiddleware(mgr, nil, []string{"/healthz"})
	handler := mw.Handler(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected skip path to pass, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	mgr := auth.NewManager("test-secret", []auth.User{
		{Username: "alice", Password: "s3cret", Role: "admin"},
	}, time.Hour)
	token, err := mgr.Login("alice", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var gotUser, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = Username(r.Context())
		gotRole = Role(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := NewAuthMiddleware(mgr, nil, nil).Handler(inner)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotUser != "alice" || gotRole != "admin" {
		t.Fatalf("identity not propagated: user=%q role=%q", gotUser, gotRole)
	}
}

func TestAuthMiddlewareRejectsBadHeader(t *testing.T) {
	mgr := auth.NewManager("test-secret", nil, time.Hour)
	handler := NewAuthMiddleware(mgr, nil, nil).Handler(okHandler())

	for _, header := range []string{"Basic abc", "Bearer", "Bearer bad.token.here"} {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	handler := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %v", codes)
	}

	// a different client has its own budget
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.RemoteAddr = "10.0.0.2:4000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected separate budget per client, got %d", resp.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://app.example.com"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for foreign origin, got %q", got)
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	handler := NewCORSMiddleware(nil).Handler(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example.com" {
		t.Fatalf("expected origin echoed for allow-all, got %q", got)
	}
}

func TestTracingMiddlewareAssignsTraceID(t *testing.T) {
	handler := NewTracingMiddleware(nil).Handler(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if resp.Header().Get("X-Trace-ID") == "" {
		t.Fatal("expected generated trace id header")
	}

	// supplied trace ids are preserved
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Fatalf("expected trace id preserved, got %q", got)
	}
}
