// internal/middleware/helpers.go
package middleware

import (
	"admin-console/internal/pkg/jwt"
	"admin-console/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

const (
	sessionKey   = "session"
	claimsKey    = "claims"
	requestIDKey = "request_id"
)

// GetSession returns the credential store bound by SessionMiddleware.
func GetSession(c *gin.Context) (*session.Handle, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	handle, ok := v.(*session.Handle)
	return handle, ok
}

// MustGetSession gets the session from context or panics
func MustGetSession(c *gin.Context) *session.Handle {
	handle, exists := GetSession(c)
	if !exists {
		panic("session not found in context")
	}
	return handle
}

// GetClaims returns the claims decoded by an AuthMiddleware guard.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// GetRequestID returns the id assigned by LoggingMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
