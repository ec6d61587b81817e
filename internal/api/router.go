package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/signatech/account-service/internal/api/handler"
	"github.com/signatech/account-service/internal/api/middleware"
	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

// Dependencies is everything the router needs, built by the application
// wiring.
type Dependencies struct {
	Log       zerolog.Logger
	Auth      *handler.AuthHandler
	OAuth     *handler.OAuthHandler // nil when Google sign-in is not configured
	CSRF      *handler.CSRFHandler
	Admin     *handler.AdminHandler
	Readiness *handler.ReadinessHandler

	Tokens       ports.TokenVerifier
	Limiter      middleware.Limiter
	CSRFVerifier middleware.CSRFVerifier
	CSRFOptions  middleware.CSRFOptions

	// Registerer receives the HTTP metrics. Nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "account",
		Subsystem:  "http",
		Skipper:    skipPaths("/metrics", "/health"),
		Registerer: d.Registerer,
	}))
	// Renders handler errors, so the metrics above observe the final status.
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(middleware.RateLimit(d.Limiter, domain.ClassGeneral))
	e.Use(middleware.CSRF(d.CSRFVerifier, d.CSRFOptions))

	authLimit := middleware.RateLimit(d.Limiter, domain.ClassAuth)
	resetLimit := middleware.RateLimit(d.Limiter, domain.ClassPasswordReset)
	bearer := middleware.Auth(d.Tokens)

	// --- Registration, login and recovery ---
	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register, authLimit)
	auth.POST("/resend-verification", d.Auth.ResendVerification, authLimit)
	auth.POST("/verify-email", d.Auth.VerifyEmail, authLimit)
	auth.POST("/login", d.Auth.Login, authLimit)
	auth.POST("/forgot-password", d.Auth.ForgotPassword, resetLimit)
	auth.POST("/verify-reset-code", d.Auth.VerifyResetCode, resetLimit)
	auth.POST("/reset-password", d.Auth.ResetPassword, resetLimit)

	// --- Signed-in account ---
	auth.GET("/me", d.Auth.Me, bearer)
	auth.PUT("/profile", d.Auth.UpdateProfile, bearer)
	auth.PUT("/password", d.Auth.ChangePassword, bearer, resetLimit)
	auth.DELETE("/account", d.Auth.DeleteAccount, bearer)

	// --- Federated sign-in ---
	if d.OAuth != nil {
		auth.GET("/google", d.OAuth.Start)
		auth.GET("/google/callback", d.OAuth.Callback)
	}

	// --- Operators ---
	admin := e.Group("/admin", bearer, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/accounts/:id", d.Admin.GetAccount)

	e.GET("/csrf-token", d.CSRF.Token)

	// --- Health probes (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness) // liveness  – is the process alive?
	e.GET("/health/ready", d.Readiness.Readiness)         // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func skipPaths(prefixes ...string) echomiddleware.Skipper {
	return func(c echo.Context) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(c.Request().URL.Path, p) {
				return true
			}
		}
		return false
	}
}
