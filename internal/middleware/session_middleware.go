// internal/middleware/session_middleware.go
package middleware

import (
	"net/http"
	"time"

	"admin-console/internal/client"
	"admin-console/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// CookieConfig describes the console's own session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type SessionMiddleware struct {
	manager *session.Manager
	cookie  CookieConfig
	logger  *zap.Logger
}

func NewSessionMiddleware(manager *session.Manager, cookie CookieConfig, logger *zap.Logger) *SessionMiddleware {
	if cookie.Name == "" {
		cookie.Name = "console_sid"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{manager: manager, cookie: cookie, logger: logger}
}

// Bind attaches the caller's credential store to the request, issuing a new
// session cookie on first contact or when the cookie is not an id the
// console could have issued. Downstream API clients find the store in the
// request context.
func (m *SessionMiddleware) Bind() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(m.cookie.Name)
		if err != nil || !validSessionID(sid) {
			sid = session.NewSessionID()
			m.Reissue(c, sid)
			m.logger.Debug("session issued", zap.String("sid", sid))
		}

		handle := m.manager.Bind(sid)
		c.Set(sessionKey, handle)
		c.Request = c.Request.WithContext(client.WithCredentials(c.Request.Context(), handle))
		c.Next()
	}
}

// Reissue sends the session cookie for sid, after a rotation or on first
// contact.
func (m *SessionMiddleware) Reissue(c *gin.Context, sid string) {
	m.setCookie(c, sid, int(m.cookie.MaxAge.Seconds()))
}

// Expire removes the session cookie from the browser.
func (m *SessionMiddleware) Expire(c *gin.Context) {
	m.setCookie(c, "", -1)
}

func (m *SessionMiddleware) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(m.cookie.Name, value, maxAge, "/", "", m.cookie.Secure, true)
}

func validSessionID(sid string) bool {
	_, err := ulid.ParseStrict(sid)
	return err == nil
}
