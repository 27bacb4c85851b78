package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"admin-console/internal/obs"
	xerrors "admin-console/internal/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// protectedAPI answers 200 only to the given bearer token and 401 otherwise.
func protectedAPI(validToken string, calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})
}

type expiryRecorder struct{ calls int32 }

func (e *expiryRecorder) SessionExpired(context.Context) { atomic.AddInt32(&e.calls, 1) }

func TestRecoveryRefreshesOnceAndReplays(t *testing.T) {
	t.Parallel()

	var apiCalls, refreshCalls int32
	refresher := RefresherFunc(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return "fresh", nil
	})
	metrics := obs.NewMetrics()
	expiry := &expiryRecorder{}
	c, handle := testClient(t, protectedAPI("fresh", &apiCalls), WithRecovery(NewRecovery(refresher, expiry, nil, metrics)), WithMetrics(metrics))
	ctx := WithCredentials(context.Background(), handle)
	_ = handle.ReplaceToken(ctx, "stale")

	var out map[string]string
	if err := c.Get(ctx, "/users", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out["ok"] != "yes" {
		t.Fatalf("replay outcome not returned: %v", out)
	}
	if refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls)
	}
	if apiCalls != 2 {
		t.Fatalf("api calls = %d, want original + one replay", apiCalls)
	}
	if handle.Token(ctx) != "fresh" {
		t.Fatalf("refreshed token not stored")
	}
	if expiry.calls != 0 {
		t.Fatalf("expiry must not be signalled on successful refresh")
	}
	assertRecoveryOutcome(t, metrics, "done")
}

func TestRecoveryIgnoresNon401(t *testing.T) {
	t.Parallel()

	var refreshCalls int32
	refresher := RefresherFunc(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return "fresh", nil
	})
	c, handle := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "missing role.write"})
	}), WithRecovery(NewRecovery(refresher, nil, nil, nil)))
	ctx := WithCredentials(context.Background(), handle)

	err := c.Delete(ctx, "/roles/EDITOR")
	if !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	var apiErr *xerrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "missing role.write" {
		t.Fatalf("original error content lost: %v", err)
	}
	if refreshCalls != 0 {
		t.Fatalf("403 triggered %d refresh calls", refreshCalls)
	}
}

func TestRecoveryRefreshUnauthorizedExpiresSession(t *testing.T) {
	t.Parallel()

	var apiCalls int32
	refreshErr := xerrors.FromStatus(http.StatusUnauthorized, "refresh cookie expired")
	refresher := RefresherFunc(func(ctx context.Context) (string, error) { return "", refreshErr })
	metrics := obs.NewMetrics()
	expiry := &expiryRecorder{}
	c, handle := testClient(t, protectedAPI("never", &apiCalls), WithRecovery(NewRecovery(refresher, expiry, nil, metrics)))
	ctx := WithCredentials(context.Background(), handle)
	_ = handle.ReplaceToken(ctx, "stale")

	err := c.Get(ctx, "/users", nil)
	if !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected original 401, got %v", err)
	}
	var apiErr *xerrors.APIError
	if errors.As(err, &apiErr) && apiErr.Message == "refresh cookie expired" {
		t.Fatalf("refresh failure returned instead of the original 401")
	}
	if expiry.calls != 1 {
		t.Fatalf("expiry signalled %d times, want 1", expiry.calls)
	}
	if !handle.Expired(ctx) {
		t.Fatalf("session not marked expired")
	}
	if apiCalls != 1 {
		t.Fatalf("request replayed after failed refresh")
	}
	assertRecoveryOutcome(t, metrics, "expired")
}

func TestRecoveryRefreshTransportFailure(t *testing.T) {
	t.Parallel()

	var apiCalls int32
	refresher := RefresherFunc(func(ctx context.Context) (string, error) {
		return "", xerrors.FromStatus(http.StatusServiceUnavailable, "")
	})
	expiry := &expiryRecorder{}
	c, handle := testClient(t, protectedAPI("never", &apiCalls), WithRecovery(NewRecovery(refresher, expiry, nil, nil)))
	ctx := WithCredentials(context.Background(), handle)

	err := c.Get(ctx, "/users", nil)
	if !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected original 401, got %v", err)
	}
	if expiry.calls != 0 || handle.Expired(ctx) {
		t.Fatalf("non-401 refresh failure must not expire the session")
	}
}

func TestRecoveryReplayFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	var apiCalls, refreshCalls int32
	refresher := RefresherFunc(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshCalls, 1)
		return "still-rejected", nil
	})
	c, handle := testClient(t, protectedAPI("other", &apiCalls), WithRecovery(NewRecovery(refresher, nil, nil, nil)))
	ctx := WithCredentials(context.Background(), handle)

	err := c.Get(ctx, "/users", nil)
	if !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected replay 401, got %v", err)
	}
	if refreshCalls != 1 || apiCalls != 2 {
		t.Fatalf("refresh=%d api=%d, want 1 and 2", refreshCalls, apiCalls)
	}
}

func TestClientWithoutRecoveryNeverRefreshes(t *testing.T) {
	t.Parallel()

	var apiCalls int32
	c, handle := testClient(t, protectedAPI("never", &apiCalls))
	ctx := WithCredentials(context.Background(), handle)

	if err := c.Get(ctx, "/system/state", nil); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
	if apiCalls != 1 {
		t.Fatalf("unauthenticated client replayed the request")
	}
}

func TestRecoveryWithoutStoreDoesNotReplay(t *testing.T) {
	t.Parallel()

	original := xerrors.FromStatus(http.StatusUnauthorized, "")
	r := NewRecovery(RefresherFunc(func(ctx context.Context) (string, error) { return "fresh", nil }), nil, nil, nil)
	replayed := false
	err := r.Recover(context.Background(), "test", original, func(context.Context) error {
		replayed = true
		return nil
	})
	if !errors.Is(err, original) || replayed {
		t.Fatalf("replayed without a place to store the token")
	}
}

func assertRecoveryOutcome(t *testing.T, m *obs.Metrics, outcome string) {
	t.Helper()
	expected := `
# HELP console_unauthorized_recovery_total Outcomes of refresh-and-replay after a 401.
# TYPE console_unauthorized_recovery_total counter
console_unauthorized_recovery_total{client="test",outcome="` + outcome + `"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "console_unauthorized_recovery_total"); err != nil {
		t.Fatal(err)
	}
}
