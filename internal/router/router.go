// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/contacts-api/internal/config"
	"github.com/iliyamo/contacts-api/internal/handler"
	"github.com/iliyamo/contacts-api/internal/logging"
	"github.com/iliyamo/contacts-api/internal/middleware"
	"github.com/iliyamo/contacts-api/internal/service"
)

// Deps are the services and infrastructure the HTTP layer needs. Redis may
// be nil, which disables rate limiting.
type Deps struct {
	Auth      *service.AuthService
	Contacts  *service.ContactService
	Users     *service.UserService
	Redis     redis.Cmdable
	RateLimit config.RateLimitConfig
	HTTP      config.HTTPConfig
	Checks    map[string]handler.Pinger
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.HTTP.CORSOrigins,
		AllowCredentials: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
	}))

	RegisterRoutes(e, d.Checks)

	// Authenticated groups rate limit after JWTAuth so user-keyed strategies
	// see the caller; the auth routes run before any user is known.
	api := e.Group("/api")
	jwt := middleware.JWTAuth(d.Auth)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	anonLimit := middleware.NewTokenBucket(d.RateLimit.Anonymous(), d.Redis)

	RegisterAuth(api, handler.NewAuthHandler(d.Auth, d.HTTP.PublicURL()), jwt, anonLimit)
	RegisterContacts(api, handler.NewContactHandler(d.Contacts), jwt, limit)
	RegisterUsers(api, handler.NewUserHandler(d.Users), jwt, limit)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health(checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers /auth. Only logout needs an access token; refresh
// reads its own bearer credential.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler, jwt, limit echo.MiddlewareFunc) {
	auth := g.Group("/auth", limit)
	auth.POST("/signup", a.Signup)
	auth.POST("/login", a.Login)
	auth.GET("/refresh_token", a.RefreshToken)
	auth.POST("/logout", a.Logout, jwt)
	auth.POST("/reset_password", a.RequestPasswordReset)
	auth.GET("/reset_password/:token", a.CheckResetToken)
	auth.POST("/reset_password/:token", a.ResetPassword)
	auth.GET("/confirmed_email/:token", a.ConfirmEmail)
	auth.POST("/request_email", a.RequestEmail)
}

// RegisterContacts registers /contacts; all routes are owner-scoped.
func RegisterContacts(g *echo.Group, h *handler.ContactHandler, jwt, limit echo.MiddlewareFunc) {
	c := g.Group("/contacts", jwt, limit)
	c.GET("", h.List)
	c.POST("", h.Create)
	c.GET("/search", h.Search)
	c.GET("/birthdays", h.Birthdays)
	c.GET("/:id", h.Get)
	c.PUT("/:id", h.Update)
	c.PATCH("/:id", h.UpdateData)
	c.DELETE("/:id", h.Delete)
}

// RegisterUsers registers /users for the caller's own account.
func RegisterUsers(g *echo.Group, h *handler.UserHandler, jwt, limit echo.MiddlewareFunc) {
	u := g.Group("/users", jwt, limit)
	u.GET("/me", h.Me)
	u.PATCH("/avatar", h.UpdateAvatar)
	u.DELETE("/me", h.Delete)
}
