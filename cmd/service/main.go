// Package main is the entry point for the quotesync service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/exchange"
	"github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

const metricsNamespace = "quotesync"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Open the persistent store and load state
	store, closeStore, err := storage.Open(ctx, storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			logger.Error("store close error", slog.Any("error", closeErr))
		}
	}()

	state, err := app.LoadState(ctx, store, logger)
	if err != nil {
		return err
	}

	// 6. Remote feed behind the anti-corruption layer
	feed, err := acl.NewFeedFromConfig(cfg.Services.Feed, cfg.Client, logger)
	if err != nil {
		return fmt.Errorf("creating feed: %w", err)
	}

	// 7. Application services
	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Repository:  state.Repository,
		Preferences: state.Preferences,
		Codec:       exchange.JSONCodec{},
		Logger:      logger,
	})

	syncEngine, err := app.NewSyncEngine(app.SyncEngineConfig{
		Feed:        feed,
		Repository:  state.Repository,
		Interval:    cfg.Sync.Interval,
		ManualRate:  cfg.Sync.ManualRate,
		ManualBurst: cfg.Sync.ManualBurst,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating sync engine: %w", err)
	}

	// 8. Health checks and Prometheus registry
	healthRegistry := ports.NewHealthRegistry()
	if err := errors.Join(
		healthRegistry.Register(store),
		healthRegistry.Register(state.Repository),
		healthRegistry.Register(feed, ports.Optional()),
	); err != nil {
		return fmt.Errorf("registering health checks: %w", err)
	}

	gatherer, err := newMetricsRegistry(state.Repository, syncEngine)
	if err != nil {
		return err
	}

	// 9. HTTP server and routes
	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:            logger,
		ServiceName:       cfg.Telemetry.ServiceName,
		AuthConfig:        &cfg.Auth,
		Timeout:           cfg.Server.RequestTimeout,
		HealthHandler:     handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime), gatherer),
		QuoteHandler:      handlers.NewQuoteHandler(quoteService),
		PreferenceHandler: handlers.NewPreferenceHandler(quoteService),
		SyncHandler:       handlers.NewSyncHandler(syncEngine),
		EventsHandler:     handlers.NewEventsHandler(quoteService, handlers.DefaultHeartbeat),
	})

	serverErr, err := server.Start()
	if err != nil {
		return err
	}

	if cfg.Sync.Enabled {
		syncEngine.Start(ctx)
	}

	// 10. Run until a signal or a server error, then shut down
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err, ok := <-serverErr; ok {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("initiating graceful shutdown", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

		syncEngine.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	waitForSync(syncEngine, cfg.Server.ShutdownTimeout, logger)
	logger.Info("shutdown complete")

	return nil
}

func newMetricsRegistry(repo *app.QuoteRepository, engine *app.SyncEngine) (prometheus.Gatherer, error) {
	reg := prometheus.NewRegistry()

	status := telemetry.NewStatusCollector(metricsNamespace, telemetry.StatusSource{
		Quotes: repo.Len,
		Sync: func() (int64, int64, time.Time) {
			s := engine.Status()
			return s.Cycles, s.Failures, s.LastSuccess
		},
	})

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		status,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics collector: %w", err)
		}
	}

	return reg, nil
}

// waitForSync lets an in-flight cycle apply its merge before the store closes.
func waitForSync(engine *app.SyncEngine, timeout time.Duration, logger *slog.Logger) {
	select {
	case <-engine.Done():
	case <-time.After(timeout):
		logger.Warn("sync cycle still running at shutdown")
	}
}
