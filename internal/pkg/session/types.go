// internal/pkg/session/types.go
package session

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Credential is everything the console holds for one browser session.
type Credential struct {
	Token     string            `json:"token,omitempty"`
	CSRFToken string            `json:"csrf_token,omitempty"`
	Cookies   map[string]string `json:"cookies,omitempty"` // backend cookies, forwarded on every call
	Expired   bool              `json:"expired,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a deep copy.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return &Credential{}
	}
	out := *c
	if c.Cookies != nil {
		out.Cookies = make(map[string]string, len(c.Cookies))
		for k, v := range c.Cookies {
			out.Cookies[k] = v
		}
	}
	return &out
}

// Store persists credentials by session id. Save is a full replace:
// implementations must never merge a new credential into an old one.
// Load returns xerrors.ErrNoSession when nothing is stored.
type Store interface {
	Load(ctx context.Context, sid string) (*Credential, error)
	Save(ctx context.Context, sid string, cred *Credential, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
}

// NewSessionID returns a fresh, sortable session id.
func NewSessionID() string {
	return ulid.Make().String()
}
