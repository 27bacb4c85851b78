// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"admin-console/internal/pkg/response"
	"admin-console/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxSigninBody = 16 << 10

type RateLimitMiddleware struct {
	limiter session.AttemptLimiter
	logger  *zap.Logger
}

func NewRateLimitMiddleware(limiter session.AttemptLimiter, logger *zap.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitMiddleware{limiter: limiter, logger: logger}
}

// Signin throttles sign-in attempts per client IP and email. A successful
// sign-in resets the counter. Limiter failures let the request through.
func (m *RateLimitMiddleware) Signin() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := peekEmail(c)
		if !ok {
			response.Error(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		ip := c.ClientIP()

		allowed, remaining, err := m.limiter.CheckSigninAttempt(c.Request.Context(), ip, email)
		if err != nil {
			m.logger.Error("signin rate limiter failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.TooManyRequests(c, "too many sign-in attempts, please try again in 15 minutes")
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := m.limiter.ResetSigninAttempts(c.Request.Context(), ip, email); err != nil {
				m.logger.Warn("failed to reset signin attempts", zap.Error(err))
			}
		}
	}
}

// TwoFactor throttles code attempts per two-factor id, read from the :id
// route parameter.
func (m *RateLimitMiddleware) TwoFactor() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := m.limiter.CheckTwoFactorAttempt(c.Request.Context(), c.Param("id"))
		if err != nil {
			m.logger.Error("two-factor rate limiter failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.TooManyRequests(c, "too many two-factor attempts")
			return
		}
		c.Next()
	}
}

// peekEmail reads the email field of a JSON body and restores the body for
// the handler. ok is false when the body exceeds maxSigninBody.
func peekEmail(c *gin.Context) (email string, ok bool) {
	if c.Request.Body == nil {
		return "", true
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSigninBody+1))
	_ = c.Request.Body.Close()
	if len(data) > maxSigninBody {
		return "", false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return "", true
	}
	var body struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(data, &body)
	return strings.ToLower(strings.TrimSpace(body.Email)), true
}
