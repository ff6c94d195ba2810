// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/agrolink/farm-marketplace/internal/handler"
	"github.com/agrolink/farm-marketplace/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers to
// verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware. Unauthenticated flows live under /v1/auth;
// session-bound operations (switch-role, me) sit behind SessionAuth.
// The optional rate limiter wraps the whole auth group so login and OTP
// verification cannot be brute-forced.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/verify", a.Verify)
	g.POST("/resend", a.Resend)
	g.POST("/login", a.Login)
	// Refresh reads the refresh cookie (path-scoped to /v1/auth); it never
	// requires an access token since its whole point is replacing one.
	g.POST("/refresh", a.Refresh)
	// Logout works with whatever the client still has: a live access token
	// revokes every session, a refresh cookie revokes just that one.
	g.POST("/logout", a.Logout)
	g.POST("/password-reset/request", a.PasswordResetRequest)
	g.POST("/password-reset/confirm", a.PasswordResetConfirm)

	// Role switching is a capability change within an authenticated
	// session, so it demands a currently valid access token. An expired
	// one gets 401 here and the client must refresh first.
	g.POST("/switch-role", a.SwitchRole, middleware.SessionAuth(jwtSecret))

	auth := e.Group("/v1")
	auth.Use(middleware.SessionAuth(jwtSecret))
	auth.GET("/me", a.Me)
}
