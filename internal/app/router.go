// internal/app/router.go
package app

import (
	authHandler "admin-console/internal/handlers/auth"
	roleHandler "admin-console/internal/handlers/role"
	"admin-console/internal/middleware"
	"admin-console/internal/obs"
	"admin-console/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	RoleHandler         *roleHandler.RoleHandler
	AuthMiddleware      *middleware.AuthMiddleware
	SessionMiddleware   *middleware.SessionMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	Metrics             *obs.Metrics
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Operations ====================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	console := r.Group("")
	console.Use(h.SessionMiddleware.Bind())

	// ==================== Entry Guard ====================
	console.GET("/", h.AuthMiddleware.RejectExpired(), h.AuthHandler.Entry)
	console.GET("/navigation", h.AuthMiddleware.RejectExpired(), h.AuthHandler.Navigation)

	// ==================== Authentication ====================
	{
		console.POST("/signin", h.RateLimitMiddleware.Signin(), h.AuthHandler.Signin)
		console.POST("/two-factor/:id", h.RateLimitMiddleware.TwoFactor(), h.AuthHandler.ConfirmTwoFactor)
		console.POST("/register-admin", h.AuthHandler.RegisterAdmin)
		console.POST("/invitation", h.AuthHandler.ConfirmInvitation)
		console.POST("/confirm-email", h.AuthMiddleware.RejectExpired(), h.AuthHandler.ConfirmEmail)
		console.POST("/logout", h.AuthHandler.Logout)
	}

	// ==================== Session Expiry ====================
	{
		console.GET("/session/expired", h.AuthHandler.SessionExpired)
		console.POST("/session/expired/ack", h.AuthHandler.AcknowledgeExpired)
	}

	// ==================== Administration ====================
	admin := console.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/scopes", h.RoleHandler.ListScopes)
		admin.GET("/roles", h.RoleHandler.ListRoles)
		admin.POST("/roles", h.RoleHandler.CreateRole)
		admin.PUT("/roles/:name/scopes", h.RoleHandler.UpdateRoleScopes)
		admin.DELETE("/roles/:name", h.RoleHandler.DeleteRole)
	}

	// Pages (/login, /admin, /welcome, ...) belong to the front end.
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "no such route")
	})
}
