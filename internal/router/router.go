// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ykravets/contacts-api/internal/auth"
	"github.com/ykravets/contacts-api/internal/handler"
	"github.com/ykravets/contacts-api/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication or
// dependencies: the root greeting and the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth lifecycle endpoints and the protected
// user routes. ratelimit guards the unauthenticated group against
// credential stuffing and may be nil when Redis is unavailable.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, a *auth.Authenticator, ratelimit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	if ratelimit != nil {
		g.Use(ratelimit)
	}
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/refresh_token", h.Refresh)
	g.GET("/confirmed_email/:token", h.ConfirmEmail)
	g.POST("/request_email", h.RequestEmail)

	// Protected endpoints resolve the bearer token into a Principal before
	// the handler runs.
	api := e.Group("/api")
	api.Use(middleware.Authenticate(a))
	api.GET("/users/me", h.Me)
}
