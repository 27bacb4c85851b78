// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"admin-console/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// ExpiredPath is where a session marked expired is sent until the user
// acknowledges it.
const ExpiredPath = "/session/expired"

type AuthMiddleware struct{}

func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{}
}

// Auth decodes the session token once and requires it to be valid. It
// MUST be used after SessionMiddleware.Bind.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, ok := GetSession(c)
		if !ok {
			response.Error(c, http.StatusInternalServerError, "session not bound", nil)
			return
		}

		claims := handle.Claims(c.Request.Context())
		if !claims.IsValid() {
			response.Unauthorized(c, "sign in required")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin requires an ACTIVE admin session. MUST be used after Auth().
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Unauthorized(c, "sign in required")
			return
		}
		if claims.IsPending() {
			response.Forbidden(c, "email confirmation pending")
			return
		}
		if !claims.IsAdmin() || !claims.IsActive() {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// AdminOnly returns middlewares for admin-only routes (Auth + RequireAdmin)
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RejectExpired(),
		m.Auth(),
		m.RequireAdmin(),
	}
}

// RejectExpired blocks every request of a session marked expired until the
// user acknowledges it. Page loads are redirected; API calls get a 401.
func (m *AuthMiddleware) RejectExpired() gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, ok := GetSession(c)
		if !ok || !handle.Expired(c.Request.Context()) {
			c.Next()
			return
		}
		if c.Request.Method == http.MethodGet && !wantsJSON(c) {
			c.Redirect(http.StatusFound, ExpiredPath)
			c.Abort()
			return
		}
		response.Error(c, http.StatusUnauthorized, "session expired", nil, gin.H{"target": ExpiredPath})
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
