// internal/pkg/jwt/claims.go
package jwt

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role names reserved by the backend.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// State is the lifecycle state of the account behind a session.
type State string

const (
	StatePending State = "PENDING"
	StateActive  State = "ACTIVE"
	StateBlocked State = "BLOCKED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateActive, StateBlocked:
		return true
	}
	return false
}

// Claims represents the JWT claims issued by the authentication service
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	State  State  `json:"state"`
	// Hook is set only when a post-authentication hook is configured for
	// this session.
	Hook string `json:"hook,omitempty"`
	jwt.RegisteredClaims
}

// IsValid checks that user id, role and lifecycle state are all present
func (c *Claims) IsValid() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.UserID) != "" && strings.TrimSpace(c.Role) != "" && c.State.Valid()
}

// IsActive checks if the account is usable
func (c *Claims) IsActive() bool {
	return c != nil && c.State == StateActive
}

// IsPending checks if the account still awaits email confirmation
func (c *Claims) IsPending() bool {
	return c != nil && c.State == StatePending
}

// IsBlocked checks if the account has been denied
func (c *Claims) IsBlocked() bool {
	return c != nil && c.State == StateBlocked
}

// IsAdmin checks if the session belongs to the reserved admin role
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (c *Claims) ExpiresAt() time.Time {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}
