package system

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"admin-console/internal/client"
	domain "admin-console/internal/domain/system"
	xerrors "admin-console/internal/pkg/errors"
)

func newTestService(t *testing.T, handler http.Handler, ttl time.Duration) *SystemService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	api, err := client.New("system", server.URL)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return NewSystemService(api, ttl, nil)
}

func TestState(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/system/state" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"state": "NOT_INITIALIZED"})
	}), 0)

	state, err := svc.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != domain.StateNotInitialized {
		t.Fatalf("state = %q", state)
	}
}

func TestStateRejectsUnknownValue(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"state": "BOOTING"})
	}), 0)
	if _, err := svc.State(context.Background()); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestHooksAreCached(t *testing.T) {
	var calls int32
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"authentication": "https://hooks.example/after-login", "registration": ""})
	}), time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		url, err := svc.AuthenticationHook(context.Background())
		if err != nil {
			t.Fatalf("AuthenticationHook: %v", err)
		}
		if url != "https://hooks.example/after-login" {
			t.Fatalf("url = %q", url)
		}
	}
	if calls != 1 {
		t.Fatalf("backend called %d times, want 1", calls)
	}

	now = now.Add(2 * time.Minute)
	hooks, err := svc.Hooks(context.Background())
	if err != nil {
		t.Fatalf("Hooks: %v", err)
	}
	if _, ok := hooks.URL(domain.HookRegistration); ok {
		t.Fatalf("empty hook must read as not configured")
	}
	if calls != 2 {
		t.Fatalf("cache did not expire, calls = %d", calls)
	}

	svc.InvalidateHooks()
	_, _ = svc.Hooks(context.Background())
	if calls != 3 {
		t.Fatalf("invalidate did not drop the cache, calls = %d", calls)
	}
}

func TestHooksFailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}), time.Minute)

	if _, err := svc.AuthenticationHook(context.Background()); !errors.Is(err, xerrors.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	fail.Store(false)
	url, err := svc.AuthenticationHook(context.Background())
	if err != nil || url != "" {
		t.Fatalf("url=%q err=%v", url, err)
	}
}
