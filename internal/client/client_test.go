package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "admin-console/internal/pkg/errors"
	"admin-console/internal/pkg/session"
)

// testClient starts an httptest server and returns a client pointed at it
// plus a bound credential store.
func testClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *session.Handle) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New("test", server.URL+"/api", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handle := session.NewManager(session.NewMemoryStore(), session.Options{CSRFCookie: "XSRF-TOKEN"}, nil).Bind("sid")
	return c, handle
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestDoAttachesCredentials(t *testing.T) {
	t.Parallel()

	var seen []*http.Request
	mux := http.NewServeMux()
	mux.HandleFunc("/api/roles", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Clone(context.Background()))
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "csrf-2"})
		writeJSON(w, http.StatusOK, map[string]string{"name": "EDITOR"})
	})
	c, handle := testClient(t, mux)
	ctx := WithCredentials(context.Background(), handle)

	_ = handle.MergeCookies(ctx, []*http.Cookie{{Name: "refresh", Value: "r1"}, {Name: "XSRF-TOKEN", Value: "csrf-1"}})
	_ = handle.ReplaceToken(ctx, "token-1")

	var out struct {
		Name string `json:"name"`
	}
	if err := c.Get(ctx, "/roles", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != "EDITOR" {
		t.Fatalf("unexpected body %+v", out)
	}
	if err := c.Post(ctx, "roles", map[string]string{"name": "X"}, nil); err != nil {
		t.Fatalf("Post: %v", err)
	}

	get, post := seen[0], seen[1]
	if got := get.Header.Get("Authorization"); got != "Bearer token-1" {
		t.Fatalf("Authorization = %q", got)
	}
	if get.Header.Get(DefaultCSRFHeader) != "" {
		t.Fatalf("CSRF header must not be sent on GET")
	}
	if cookie, err := get.Cookie("refresh"); err != nil || cookie.Value != "r1" {
		t.Fatalf("refresh cookie not forwarded: %v", err)
	}
	if get.Header.Get(requestIDHeader) == "" {
		t.Fatalf("missing request id")
	}
	// the GET response rotated the CSRF cookie
	if got := post.Header.Get(DefaultCSRFHeader); got != "csrf-2" {
		t.Fatalf("CSRF header on POST = %q, want csrf-2", got)
	}
	if post.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("missing content type on POST")
	}
}

func TestDoWithoutBearer(t *testing.T) {
	t.Parallel()

	var auth string
	c, handle := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := WithCredentials(context.Background(), handle)
	_ = handle.ReplaceToken(ctx, "stale")

	if err := c.Put(ctx, "/authentication/token", nil, nil, WithoutBearer()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if auth != "" {
		t.Fatalf("Authorization sent despite WithoutBearer: %q", auth)
	}
}

func TestDoMapsErrors(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "role already exists"})
	}))

	err := c.Post(context.Background(), "/roles", map[string]string{}, nil)
	if !errors.Is(err, xerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var apiErr *xerrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "role already exists" || apiErr.Kind != xerrors.KindConflict {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestDoInvalidBody(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	var out map[string]any
	if err := c.Get(context.Background(), "/system/state", &out); !errors.Is(err, xerrors.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New("x", raw); err == nil {
			t.Fatalf("New(%q) should fail", raw)
		}
	}
}
