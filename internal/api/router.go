package api

import (
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/Bhumit267/CodeXi/docs"
	"github.com/Bhumit267/CodeXi/internal/api/handler"
	"github.com/Bhumit267/CodeXi/internal/api/middleware"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/http/handlers"
)

// Rate limit scopes. Each scope keeps its own counter per client address.
const (
	ScopeLogin          = "login"
	ScopeUpdatePassword = "update-password"
)

// RouterConfig carries the dependencies NewRouter wires into routes.
type RouterConfig struct {
	Log zerolog.Logger

	AuthService ports.AuthService
	UserService ports.UserService
	Tokens      ports.AccessVerifier

	// Limiter guards login and password updates. Both scopes share the backend
	// but not the counters.
	Limiter         ports.RateLimiter
	RateLimitPolicy domain.RateLimitPolicy

	// Events receives audit events; nil discards them.
	Events handler.EventRecorder

	// ReadinessChecks are probed by GET /health/ready.
	ReadinessChecks map[string]handlers.Check

	// TrustedProxies are the reverse proxies allowed to report the client
	// address through X-Forwarded-For. With none, rate limits key on the
	// socket address and forwarding headers are ignored.
	TrustedProxies []*net.IPNet

	CORSOrigins []string

	// EnableMetrics registers the HTTP metrics middleware with the default
	// Prometheus registry and exposes GET /metrics.
	EnableMetrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)
	e.IPExtractor = clientIPExtractor(cfg.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(cfg.Log))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	if cfg.EnableMetrics {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace: "codexi",
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	policy := cfg.RateLimitPolicy.Normalize()
	authenticated := middleware.Auth(cfg.Tokens)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Events)
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login, middleware.RateLimit(cfg.Limiter, ScopeLogin, policy, cfg.Log))
	auth.POST("/google-signin", authHandler.GoogleSignIn)
	auth.POST("/new-access-token", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout, authenticated)

	// --- User routes (access token required) ---
	userHandler := handler.NewUserHandler(cfg.UserService, cfg.Events)
	user := e.Group("/user", authenticated)
	user.GET("/profile", userHandler.Profile)
	user.PATCH("/update-profile", userHandler.UpdateProfile)
	user.PATCH("/update-password", userHandler.UpdatePassword, middleware.RateLimit(cfg.Limiter, ScopeUpdatePassword, policy, cfg.Log))
	user.POST("/solve-problem", userHandler.SolveProblem)
	user.DELETE("/delete-profile", userHandler.DeleteProfile)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(cfg.ReadinessChecks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- API docs ---
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func clientIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
