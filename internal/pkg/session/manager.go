// internal/pkg/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	xerrors "admin-console/internal/pkg/errors"
	"admin-console/internal/pkg/jwt"

	"go.uber.org/zap"
)

// Options configures a Manager.
type Options struct {
	// TTL applies to credentials whose token carries no expiry.
	TTL time.Duration
	// CSRFCookie is the backend cookie whose value is forwarded as the CSRF
	// header on mutating calls.
	CSRFCookie string
}

const lockStripes = 64

// Manager hands out per-session views over a Store. It is the only writer
// of credentials.
type Manager struct {
	store  Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	locks [lockStripes]sync.Mutex // striped by sid
}

func NewManager(store Store, opts Options, logger *zap.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.CSRFCookie == "" {
		opts.CSRFCookie = "XSRF-TOKEN"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, opts: opts, logger: logger, now: time.Now}
}

// Bind returns the credential store of one session.
func (m *Manager) Bind(sid string) *Handle {
	return &Handle{m: m, sid: sid}
}

// Rotate moves the credential of oldSid to a fresh session id and deletes
// the old one. A session with nothing stored still gets a new id.
func (m *Manager) Rotate(ctx context.Context, oldSid string) (string, error) {
	unlock := m.lock(oldSid)
	defer unlock()

	sid := NewSessionID()
	cur, err := m.store.Load(ctx, oldSid)
	switch {
	case errors.Is(err, xerrors.ErrNoSession):
		return sid, nil
	case err != nil:
		return "", fmt.Errorf("load credential: %w", err)
	}
	cur.UpdatedAt = m.now()
	if err := m.store.Save(ctx, sid, cur, m.ttlFor(cur)); err != nil {
		return "", fmt.Errorf("rotate credential: %w", err)
	}
	if err := m.store.Delete(ctx, oldSid); err != nil {
		return "", fmt.Errorf("rotate credential: %w", err)
	}
	return sid, nil
}

func (m *Manager) lock(sid string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	mu := &m.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (m *Manager) ttlFor(cred *Credential) time.Duration {
	claims := jwt.Resolve(cred.Token)
	if exp := claims.ExpiresAt(); !exp.IsZero() {
		// Keep the credential past token expiry so the refresh cookie
		// survives long enough to be used.
		if ttl := exp.Sub(m.now()) + m.opts.TTL; ttl > 0 {
			return ttl
		}
	}
	return m.opts.TTL
}

// Handle is the credential store of a single session. It belongs to one
// request; Rotate repoints it in place.
type Handle struct {
	m   *Manager
	sid string
}

func (h *Handle) SessionID() string { return h.sid }

// Rotate gives the session a new id, carrying the credential over. Callers
// that hold the handle see the new id.
func (h *Handle) Rotate(ctx context.Context) (string, error) {
	sid, err := h.m.Rotate(ctx, h.sid)
	if err != nil {
		return "", err
	}
	h.sid = sid
	return sid, nil
}

// Current returns the stored credential, or xerrors.ErrNoSession.
func (h *Handle) Current(ctx context.Context) (*Credential, error) {
	return h.m.store.Load(ctx, h.sid)
}

// Token returns the bearer token, or "" when there is none.
func (h *Handle) Token(ctx context.Context) string {
	cred, err := h.Current(ctx)
	if err != nil {
		if !errors.Is(err, xerrors.ErrNoSession) {
			h.m.logger.Warn("failed to load session", zap.String("sid", h.sid), zap.Error(err))
		}
		return ""
	}
	return cred.Token
}

// Claims decodes the current token once. Invalid and absent tokens both
// yield nil.
func (h *Handle) Claims(ctx context.Context) *jwt.Claims {
	return jwt.Resolve(h.Token(ctx))
}

func (h *Handle) replace(ctx context.Context, cred *Credential) error {
	cred = cred.Clone()
	cred.UpdatedAt = h.m.now()
	if err := h.m.store.Save(ctx, h.sid, cred, h.m.ttlFor(cred)); err != nil {
		return fmt.Errorf("replace credential: %w", err)
	}
	return nil
}

// ReplaceToken supersedes the session token. Backend cookies are transport
// state and are kept; the expired flag is reset.
func (h *Handle) ReplaceToken(ctx context.Context, token string) error {
	unlock := h.m.lock(h.sid)
	defer unlock()

	next := &Credential{Token: token}
	if cur, err := h.m.store.Load(ctx, h.sid); err == nil {
		next.CSRFToken = cur.CSRFToken
		next.Cookies = cur.Clone().Cookies
	} else if !errors.Is(err, xerrors.ErrNoSession) {
		return fmt.Errorf("load credential: %w", err)
	}
	return h.replace(ctx, next)
}

// MergeCookies records cookies set by the backend. Deletions (MaxAge < 0)
// remove the cookie.
func (h *Handle) MergeCookies(ctx context.Context, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	unlock := h.m.lock(h.sid)
	defer unlock()

	cur, err := h.m.store.Load(ctx, h.sid)
	if errors.Is(err, xerrors.ErrNoSession) {
		cur = &Credential{}
	} else if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	next := cur.Clone()
	if next.Cookies == nil {
		next.Cookies = make(map[string]string)
	}
	for _, c := range cookies {
		deleted := c.MaxAge < 0
		if c.Name == h.m.opts.CSRFCookie {
			if deleted {
				next.CSRFToken = ""
			} else {
				next.CSRFToken = c.Value
			}
		}
		if deleted {
			delete(next.Cookies, c.Name)
			continue
		}
		next.Cookies[c.Name] = c.Value
	}
	return h.replace(ctx, next)
}

// MarkExpired flags the session so the console asks the user to
// acknowledge the expiry before anything else.
func (h *Handle) MarkExpired(ctx context.Context) error {
	unlock := h.m.lock(h.sid)
	defer unlock()

	cur, err := h.m.store.Load(ctx, h.sid)
	if errors.Is(err, xerrors.ErrNoSession) {
		cur = &Credential{}
	} else if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	next := cur.Clone()
	next.Expired = true
	return h.replace(ctx, next)
}

// Expired reports whether MarkExpired was called since the last token.
func (h *Handle) Expired(ctx context.Context) bool {
	cred, err := h.Current(ctx)
	return err == nil && cred.Expired
}

// Clear removes the session entirely.
func (h *Handle) Clear(ctx context.Context) error {
	unlock := h.m.lock(h.sid)
	defer unlock()
	if err := h.m.store.Delete(ctx, h.sid); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
