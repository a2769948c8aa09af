package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func placeOrderRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without an idempotency key")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, placeOrderRequest(`{"shop_id":"x"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	called := false
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("GET routes must pass through without a key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"order-1"}}`))
	}))

	first := httptest.NewRecorder()
	req := placeOrderRequest(`{"shop_id":"a"}`)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req = placeOrderRequest(`{"shop_id":"a"}`)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(second, req)

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("replayed status = %d, want %d", second.Code, http.StatusCreated)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	req := placeOrderRequest(`{"shop_id":"a"}`)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req = placeOrderRequest(`{"shop_id":"b"}`)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(second, req)

	if second.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", second.Code, http.StatusConflict)
	}
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, user := range []string{"user-a", "user-b"} {
		req := placeOrderRequest(`{"shop_id":"a"}`)
		req.Header.Set("Idempotency-Key", "key-1")
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2; the same key from different users must not collide", calls)
	}
}
