package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/knowledgehub/workflow/internal/api/docs"
	"github.com/knowledgehub/workflow/internal/api/handler"
	"github.com/knowledgehub/workflow/internal/api/middleware"
	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// Dependencies is everything the HTTP surface needs from the process.
type Dependencies struct {
	Accounts    ports.AccountService
	Knowledge   ports.KnowledgeService
	Leaderboard ports.LeaderboardService
	Checks      map[string]ports.HealthChecker

	// JWTSecret switches caller resolution from trust mode to verified
	// bearer tokens.
	JWTSecret string
	Logger    zerolog.Logger
	// Registry receives the HTTP request metrics. Nil means the default
	// Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	promConfig := echoprometheus.MiddlewareConfig{Namespace: "knowledgehub", Subsystem: "http"}
	handlerConfig := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		promConfig.Registerer = deps.Registry
		handlerConfig.Gatherer = deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			middleware.HeaderUserRole,
			handler.HeaderIdempotencyKey,
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promConfig))

	// --- Handlers ---
	accounts := handler.NewAccountHandler(deps.Accounts)
	knowledge := handler.NewKnowledgeHandler(deps.Knowledge)
	leaderboard := handler.NewLeaderboardHandler(deps.Leaderboard)
	health := handler.NewHealthHandler(deps.Checks)

	// --- Workflow API ---
	api := e.Group("/api", middleware.Caller(deps.JWTSecret))

	api.POST("/signup", accounts.Signup)
	api.POST("/login", accounts.Login)

	admin := api.Group("/admin/requests")
	admin.GET("", accounts.ListPending, middleware.RBAC(domain.ActionListPendingAccounts))
	admin.PUT("/approve", accounts.Approve)
	admin.PUT("/reject", accounts.Reject)

	api.GET("/knowledge", knowledge.List)
	api.GET("/knowledge/:id", knowledge.Get)
	api.POST("/knowledge", knowledge.Submit)
	api.PUT("/validate/:id", knowledge.Decide)

	api.GET("/leaderboard", leaderboard.Get)

	// --- Operations (no caller resolution) ---
	e.GET("/health", health.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", health.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerConfig))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
