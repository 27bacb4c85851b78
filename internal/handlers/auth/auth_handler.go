// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"admin-console/internal/domain/auth"
	"admin-console/internal/middleware"
	xerrors "admin-console/internal/pkg/errors"
	"admin-console/internal/pkg/response"
	authUsecase "admin-console/internal/service/auth"
	"admin-console/internal/service/navigation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TargetTwoFactor is the in-app step between sign-in and a session when
// the backend asks for a second factor.
const TargetTwoFactor navigation.Target = "two-factor"

// NavigationView is the body of every successful authentication step: where
// the browser goes next.
type NavigationView struct {
	Target   navigation.Target `json:"target"`
	Location string            `json:"location"`
	External bool              `json:"external,omitempty"`
}

func viewOf(d navigation.Decision) NavigationView {
	return NavigationView{Target: d.Target, Location: d.Location(), External: d.External()}
}

type AuthHandler struct {
	authService *authUsecase.AuthService
	resolver    *navigation.Resolver
	sessions    *middleware.SessionMiddleware
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, resolver *navigation.Resolver, sessions *middleware.SessionMiddleware, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		resolver:    resolver,
		sessions:    sessions,
		logger:      logger,
	}
}

// ========== Entry ==========

// Entry is the console's entry guard: it redirects to wherever the session
// belongs.
func (h *AuthHandler) Entry(c *gin.Context) {
	handle := middleware.MustGetSession(c)
	decision, err := h.resolver.Resolve(c.Request.Context(), handle.Token(c.Request.Context()))
	if err != nil {
		// The browser went away; nothing to navigate.
		c.Abort()
		return
	}
	c.Redirect(http.StatusFound, decision.Location())
}

// Navigation reports the decision as JSON, for clients that route
// themselves.
func (h *AuthHandler) Navigation(c *gin.Context) {
	h.respondNavigation(c, http.StatusOK, "navigation resolved")
}

// ========== Sign in ==========

// Signin handles email/password authentication
func (h *AuthHandler) Signin(c *gin.Context) {
	var req auth.SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if !h.renewSession(c) {
		return
	}
	result, err := h.authService.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("signin failed", zap.String("email", req.Email), zap.String("ip", c.ClientIP()), zap.Error(err))
		response.FromError(c, "signin failed", err)
		return
	}

	if result.RequiresTwoFactor() {
		response.Success(c, http.StatusOK, "two-factor confirmation required", NavigationView{
			Target:   TargetTwoFactor,
			Location: "/two-factor/" + result.TwoFactorAuthID,
		})
		return
	}
	h.respondNavigation(c, http.StatusOK, "signin successful")
}

// ConfirmTwoFactor completes a sign-in with the code for :id
func (h *AuthHandler) ConfirmTwoFactor(c *gin.Context) {
	var req auth.TwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if !h.renewSession(c) {
		return
	}
	if _, err := h.authService.ConfirmTwoFactor(c.Request.Context(), c.Param("id"), req.Code); err != nil {
		h.logger.Warn("two-factor confirmation failed", zap.String("two_factor_id", c.Param("id")), zap.Error(err))
		response.FromError(c, "two-factor confirmation failed", err)
		return
	}
	h.respondNavigation(c, http.StatusOK, "signin successful")
}

// ========== Registration ==========

// RegisterAdmin creates the first administrator
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var req auth.RegisterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if !h.renewSession(c) {
		return
	}
	claims, err := h.authService.RegisterAdmin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("admin registration failed", zap.String("email", req.Email), zap.Error(err))
		response.FromError(c, "registration failed", err)
		return
	}

	h.logger.Info("administrator registered", zap.String("user_id", claims.UserID))
	h.respondNavigation(c, http.StatusCreated, "registration successful")
}

// ConfirmInvitation activates an invited account
func (h *AuthHandler) ConfirmInvitation(c *gin.Context) {
	var req auth.InvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if !h.renewSession(c) {
		return
	}
	if _, err := h.authService.ConfirmInvitation(c.Request.Context(), req.Invitation, req.Password); err != nil {
		response.FromError(c, "invitation confirmation failed", err)
		return
	}
	h.respondNavigation(c, http.StatusOK, "invitation accepted")
}

// ConfirmEmail completes email confirmation of a pending account
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	var req auth.ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if !h.renewSession(c) {
		return
	}
	if _, err := h.authService.ConfirmEmail(c.Request.Context(), req.Code); err != nil {
		response.FromError(c, "email confirmation failed", err)
		return
	}
	h.respondNavigation(c, http.StatusOK, "email confirmed")
}

// ========== Logout ==========

// Logout ends the session. The console forgets it even if the backend
// call fails.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.logout(c)
	response.Success(c, http.StatusOK, "logout successful", NavigationView{
		Target:   navigation.TargetLogin,
		Location: navigation.Decision{Target: navigation.TargetLogin}.Location(),
	})
}

// SessionExpired tells the console whether the user has an expiry to
// acknowledge.
func (h *AuthHandler) SessionExpired(c *gin.Context) {
	handle := middleware.MustGetSession(c)
	expired := handle.Expired(c.Request.Context())
	message := "session active"
	if expired {
		message = "your session has expired, please sign in again"
	}
	response.Success(c, http.StatusOK, message, gin.H{"expired": expired})
}

// AcknowledgeExpired logs out after the user confirmed the expiry notice.
func (h *AuthHandler) AcknowledgeExpired(c *gin.Context) {
	h.logout(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) logout(c *gin.Context) {
	handle := middleware.MustGetSession(c)
	if err := h.authService.Logout(c.Request.Context()); err != nil && !errors.Is(err, xerrors.ErrNoSession) {
		h.logger.Warn("logout incomplete", zap.String("sid", handle.SessionID()), zap.Error(err))
	}
	h.sessions.Expire(c)
}

// renewSession moves the session to a fresh id before a credential exchange,
// so a token is never stored under an id that existed before it.
func (h *AuthHandler) renewSession(c *gin.Context) bool {
	handle := middleware.MustGetSession(c)
	sid, err := handle.Rotate(c.Request.Context())
	if err != nil {
		h.logger.Error("session rotation failed", zap.String("sid", handle.SessionID()), zap.Error(err))
		response.FromError(c, "session renewal failed", err)
		return false
	}
	h.sessions.Reissue(c, sid)
	return true
}

func (h *AuthHandler) respondNavigation(c *gin.Context, status int, message string) {
	handle := middleware.MustGetSession(c)
	decision, err := h.resolver.Resolve(c.Request.Context(), handle.Token(c.Request.Context()))
	if err != nil {
		c.Abort()
		return
	}
	response.Success(c, status, message, viewOf(decision))
}
