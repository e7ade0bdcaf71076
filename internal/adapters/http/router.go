package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// EventsPath is the server-sent events route. It has no request timeout
// and is not logged per request.
const EventsPath = "/api/v1/events"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	Logger      *slog.Logger
	ServiceName string

	// AuthConfig guards the routes that change state. Disabled or nil
	// leaves every route open.
	AuthConfig *config.AuthConfig

	// Timeout is the request deadline for /api/v1 routes.
	Timeout time.Duration

	HealthHandler     *handlers.HealthHandler
	QuoteHandler      *handlers.QuoteHandler
	PreferenceHandler *handlers.PreferenceHandler
	SyncHandler       *handlers.SyncHandler
	EventsHandler     *handlers.EventsHandler
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Context logger
//  2. Recovery
//  3. Request ID and correlation ID
//  4. OpenTelemetry tracing and metrics
//  5. Logging (skips health endpoints and the event stream)
//  6. Timeout (/api/v1 only)
//
// Route groups:
//   - /-/ (internal): probes, build info and metrics; no auth
//   - /api/v1/: quotes, categories, preference, sync and events
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.ContextLogger(cfg.Logger),
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(middleware.Logging(EventsPath))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout, EventsPath))
	}

	writer := middleware.RequireWriter(cfg.AuthConfig)

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterRoutes(apiV1, writer...)
	}

	if cfg.PreferenceHandler != nil {
		cfg.PreferenceHandler.RegisterRoutes(apiV1, writer...)
	}

	if cfg.SyncHandler != nil {
		cfg.SyncHandler.RegisterRoutes(apiV1, writer...)
	}

	if cfg.EventsHandler != nil {
		cfg.EventsHandler.RegisterRoutes(apiV1)
	}
}
