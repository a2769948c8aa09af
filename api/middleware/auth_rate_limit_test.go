package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type memoryRateStore struct {
	counts map[string]int64
}

func newMemoryRateStore() *memoryRateStore {
	return &memoryRateStore{counts: map[string]int64{}}
}

func (s *memoryRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func otpRequest(ip, mobile string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/request-otp", strings.NewReader(`{"mobile_number":"`+mobile+`"}`))
	req.RemoteAddr = ip + ":51000"
	return req
}

func TestAuthRateLimitBlocksIPAfterLimit(t *testing.T) {
	store := newMemoryRateStore()
	policy := NewAuthRateLimitPolicy("otp", time.Minute, 2, 0)
	var handled int
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled++
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, otpRequest("198.51.100.7", "9876500001"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, otpRequest("198.51.100.7", "9876500001"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if handled != 2 {
		t.Errorf("handled = %d, want 2", handled)
	}
}

func TestAuthRateLimitBlocksIdentityAcrossIPs(t *testing.T) {
	store := newMemoryRateStore()
	policy := NewAuthRateLimitPolicy("otp", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	ips := []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"}
	var last *httptest.ResponseRecorder
	for _, ip := range ips {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, otpRequest(ip, "9876500001"))
	}

	if last.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", last.Code, http.StatusTooManyRequests)
	}
}

func TestAuthRateLimitHashesIdentityKeys(t *testing.T) {
	store := newMemoryRateStore()
	policy := NewAuthRateLimitPolicy("otp", time.Minute, 0, 5)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, otpRequest("198.51.100.7", "9876500001"))

	for key := range store.counts {
		if strings.Contains(key, "9876500001") {
			t.Errorf("raw identity leaked into redis key %q", key)
		}
		if !strings.HasPrefix(key, "rl:identity:otp:") {
			t.Errorf("unexpected key shape %q", key)
		}
	}
}

func TestAuthRateLimitPreservesRequestBody(t *testing.T) {
	store := newMemoryRateStore()
	policy := NewAuthRateLimitPolicy("otp", time.Minute, 5, 5)
	var seen string
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		seen = string(body)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, otpRequest("198.51.100.7", "9876500001"))

	if !strings.Contains(seen, "9876500001") {
		t.Errorf("downstream handler lost the request body, got %q", seen)
	}
}
