package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttl  time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttl = ttl
	return true, nil
}

func (f *fakeStore) RequestKey(userID, key string) string {
	return fmt.Sprintf("fake:request:%s:%s", userID, key)
}

var idemActor = auth.Actor{UserID: uuid.MustParse("7f1d9f0e-6b7a-4c1e-9f55-2d4f0c1a7b10"), Role: enums.UserRoleInstructor}

func idemRequest(method, path, body, key string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req.WithContext(WithActor(req.Context(), idemActor))
}

func TestIdempotentRouteSelection(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/inventory-checks/", true},
		{http.MethodPost, "/api/v1/inventory-checks/by-schedule", true},
		{http.MethodPut, "/api/v1/inventory-checks/abc/confirm", true},
		{http.MethodPut, "/api/v1/inventory-checks/abc/supervisor-approve", true},
		{http.MethodPost, "/api/v1/inventory-check-items/batch", true},
		{http.MethodGet, "/api/v1/inventory-checks/", false},
		{http.MethodPost, "/api/v1/notifications/read-all", false},
	}
	for _, tt := range tests {
		if got := idempotentRoute(tt.method, tt.path); got != tt.want {
			t.Fatalf("%s %s: expected %v got %v", tt.method, tt.path, tt.want, got)
		}
	}
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "/api/v1/inventory-checks/", `{}`, ""))
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("nothing should be stored without a key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idemRequest(http.MethodPost, "/api/v1/inventory-checks/by-schedule", `{"a":1}`, "abc"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idemRequest(http.MethodPost, "/api/v1/inventory-checks/by-schedule", `{"a":1}`, "abc"))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if store.ttl != time.Hour {
		t.Fatalf("expected ttl 1h got %v", store.ttl)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPut, "/api/v1/inventory-checks/x/confirm", `{}`, "k"))
	}
	if calls != 2 {
		t.Fatalf("failed responses must not be replayed, handler ran %d times", calls)
	}
}

func TestIdempotencyDetectsReusedKey(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPut, "/api/v1/inventory-checks/x/confirm", `{"a":1}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, idemRequest(http.MethodPut, "/api/v1/inventory-checks/x/confirm", `{"a":2}`, "xyz"))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}
