package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubFixedWindowStore struct {
	allowed bool
	count   int64
	scopes  []string
}

func (s *stubFixedWindowStore) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, s.count, nil
}

func TestRateLimitAllowsWithinWindow(t *testing.T) {
	store := &stubFixedWindowStore{allowed: true, count: 1}
	called := false
	handler := RateLimit(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler should run when under the limit")
	}
	if len(store.scopes) != 1 || store.scopes[0] != "api:user-1" {
		t.Errorf("scopes = %v, want [api:user-1]", store.scopes)
	}
}

func TestRateLimitBlocksWhenExceeded(t *testing.T) {
	store := &stubFixedWindowStore{allowed: false, count: 301}
	handler := RateLimit(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run over the limit")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	store := &stubFixedWindowStore{allowed: true}
	handler := RateLimit(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/params", nil)
	req.RemoteAddr = "203.0.113.9:4412"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(store.scopes) != 1 || store.scopes[0] != "api:203.0.113.9" {
		t.Errorf("scopes = %v, want [api:203.0.113.9]", store.scopes)
	}
}
