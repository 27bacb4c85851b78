package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	xerrors "admin-console/internal/pkg/errors"
	"admin-console/internal/pkg/jwt"
	"admin-console/internal/pkg/jwt/jwttest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test"), mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestHandleReplaceTokenKeepsCookies(t *testing.T) {
	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := NewManager(store, Options{CSRFCookie: "csrf"}, zap.NewNop())
			h := m.Bind(NewSessionID())

			if _, err := h.Current(ctx); !errors.Is(err, xerrors.ErrNoSession) {
				t.Fatalf("expected ErrNoSession, got %v", err)
			}

			err := h.MergeCookies(ctx, []*http.Cookie{
				{Name: "refresh", Value: "r1"},
				{Name: "csrf", Value: "c1"},
			})
			if err != nil {
				t.Fatalf("MergeCookies: %v", err)
			}

			first := jwttest.Token(t, "u1", "USER", jwt.StateActive, "")
			if err := h.ReplaceToken(ctx, first); err != nil {
				t.Fatalf("ReplaceToken: %v", err)
			}
			second := jwttest.Admin(t)
			if err := h.ReplaceToken(ctx, second); err != nil {
				t.Fatalf("ReplaceToken: %v", err)
			}

			cred, err := h.Current(ctx)
			if err != nil {
				t.Fatalf("Current: %v", err)
			}
			if cred.Token != second {
				t.Fatalf("token was not superseded")
			}
			if cred.Cookies["refresh"] != "r1" || cred.CSRFToken != "c1" {
				t.Fatalf("transport cookies lost: %+v", cred)
			}
			if !h.Claims(ctx).IsAdmin() {
				t.Fatalf("expected admin claims")
			}
		})
	}
}

func TestHandleExpiredFlagResetByNewToken(t *testing.T) {
	ctx := context.Background()
	h := NewManager(NewMemoryStore(), Options{}, nil).Bind("sid-1")

	if err := h.ReplaceToken(ctx, jwttest.Admin(t)); err != nil {
		t.Fatalf("ReplaceToken: %v", err)
	}
	if err := h.MarkExpired(ctx); err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	if !h.Expired(ctx) {
		t.Fatalf("expected expired session")
	}
	if err := h.ReplaceToken(ctx, jwttest.Admin(t)); err != nil {
		t.Fatalf("ReplaceToken: %v", err)
	}
	if h.Expired(ctx) {
		t.Fatalf("new token must clear the expired flag")
	}
}

func TestHandleClear(t *testing.T) {
	ctx := context.Background()
	h := NewManager(NewMemoryStore(), Options{}, nil).Bind("sid-2")
	_ = h.ReplaceToken(ctx, jwttest.Admin(t))

	if err := h.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if h.Token(ctx) != "" || h.Claims(ctx) != nil {
		t.Fatalf("session survived Clear")
	}
}

func TestMergeCookiesDeletion(t *testing.T) {
	ctx := context.Background()
	h := NewManager(NewMemoryStore(), Options{CSRFCookie: "csrf"}, nil).Bind("sid-3")
	_ = h.MergeCookies(ctx, []*http.Cookie{{Name: "refresh", Value: "r"}, {Name: "csrf", Value: "c"}})
	_ = h.MergeCookies(ctx, []*http.Cookie{{Name: "refresh", MaxAge: -1}, {Name: "csrf", MaxAge: -1}})

	cred, err := h.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if _, ok := cred.Cookies["refresh"]; ok || cred.CSRFToken != "" {
		t.Fatalf("deleted cookies kept: %+v", cred)
	}
}

func TestConcurrentReplaceKeepsOneToken(t *testing.T) {
	ctx := context.Background()
	h := NewManager(NewMemoryStore(), Options{}, nil).Bind("sid-4")

	tokens := make([]string, 8)
	for i := range tokens {
		tokens[i] = jwttest.Admin(t)
	}
	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			_ = h.ReplaceToken(ctx, tok)
			_ = h.MergeCookies(ctx, []*http.Cookie{{Name: "refresh", Value: "r"}})
		}(tok)
	}
	wg.Wait()

	cred, err := h.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	found := false
	for _, tok := range tokens {
		if cred.Token == tok {
			found = true
		}
	}
	if !found || cred.Cookies["refresh"] != "r" {
		t.Fatalf("unexpected final credential: %+v", cred)
	}
}

func TestRedisStoreTTLFollowsToken(t *testing.T) {
	store, mr := newRedisStore(t)
	m := NewManager(store, Options{TTL: time.Minute}, nil)
	h := m.Bind("sid-5")

	if err := h.ReplaceToken(context.Background(), jwttest.Admin(t)); err != nil {
		t.Fatalf("ReplaceToken: %v", err)
	}
	ttl := mr.TTL("test:session:sid-5")
	// token expires in one hour, plus the one minute grace
	if ttl < 55*time.Minute || ttl > 62*time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	_ = store.Save(context.Background(), "sid", &Credential{Token: "t"}, time.Second)
	now = now.Add(2 * time.Second)
	if _, err := store.Load(context.Background(), "sid"); !errors.Is(err, xerrors.ErrNoSession) {
		t.Fatalf("expected expired entry to be gone, got %v", err)
	}
}

func TestRotateMovesCredential(t *testing.T) {
	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := NewManager(store, Options{}, nil)
			old := NewSessionID()
			h := m.Bind(old)
			if err := h.MergeCookies(ctx, []*http.Cookie{{Name: "refresh", Value: "r1"}}); err != nil {
				t.Fatalf("MergeCookies: %v", err)
			}

			sid, err := h.Rotate(ctx)
			if err != nil {
				t.Fatalf("Rotate: %v", err)
			}
			if sid == old || h.SessionID() != sid {
				t.Fatalf("handle not repointed: old=%s new=%s handle=%s", old, sid, h.SessionID())
			}
			if _, err := m.Bind(old).Current(ctx); !errors.Is(err, xerrors.ErrNoSession) {
				t.Fatalf("old session still readable: %v", err)
			}

			token := jwttest.Admin(t)
			if err := h.ReplaceToken(ctx, token); err != nil {
				t.Fatalf("ReplaceToken: %v", err)
			}
			cred, err := m.Bind(sid).Current(ctx)
			if err != nil || cred.Token != token || cred.Cookies["refresh"] != "r1" {
				t.Fatalf("rotated credential = %+v, %v", cred, err)
			}
			if m.Bind(old).Token(ctx) != "" {
				t.Fatalf("token reachable through the old id")
			}
		})
	}
}

func TestRotateEmptySession(t *testing.T) {
	m := NewManager(NewMemoryStore(), Options{}, nil)
	h := m.Bind("unused")
	sid, err := h.Rotate(context.Background())
	if err != nil || sid == "unused" || sid == "" {
		t.Fatalf("Rotate = %q, %v", sid, err)
	}
}

func TestMemoryStoreSweepsExpiredEntries(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	m := NewManager(store, Options{TTL: time.Minute}, nil)
	m.now = store.now

	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		h := m.Bind(NewSessionID())
		if err := h.MergeCookies(ctx, []*http.Cookie{{Name: "XSRF-TOKEN", Value: "x"}}); err != nil {
			t.Fatalf("MergeCookies: %v", err)
		}
	}
	if n := len(store.entries); n != 1000 {
		t.Fatalf("entries = %d", n)
	}

	now = now.Add(2 * time.Minute)
	if err := m.Bind(NewSessionID()).MergeCookies(ctx, []*http.Cookie{{Name: "XSRF-TOKEN", Value: "x"}}); err != nil {
		t.Fatalf("MergeCookies: %v", err)
	}
	if n := len(store.entries); n != 1 {
		t.Fatalf("expired entries kept: %d", n)
	}
}
