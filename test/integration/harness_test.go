//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/exchange"
	quotehttp "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// stubFeed is a remote feed whose response can be swapped between requests.
type stubFeed struct {
	server *httptest.Server

	mu      sync.Mutex
	status  int
	body    string
	headers http.Header
}

func newStubFeed() *stubFeed {
	f := &stubFeed{status: http.StatusOK, body: "[]"}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))

	return f
}

func (f *stubFeed) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status, body := f.status, f.body
	f.headers = r.Header.Clone()
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *stubFeed) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status, f.body = status, body
}

func (f *stubFeed) lastHeader(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.headers.Get(name)
}

// harness is a complete quotesync process bound to a random port with a
// sqlite store in a temporary directory.
type harness struct {
	baseURL string
	dir     string
	feed    *stubFeed
	store   storage.Store
	service *app.QuoteService
	engine  *app.SyncEngine

	server     *quotehttp.Server
	closeStore func() error
}

func testConfig(feedURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  5 * time.Second,
			MaxRequestSize:  config.DefaultMaxRequestSize,
		},
		Client: config.ClientConfig{
			Timeout:      2 * time.Second,
			MaxBodyBytes: config.DefaultClientMaxBodyBytes,
			Retry: config.RetryConfig{
				MaxAttempts:     2,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     50 * time.Millisecond,
				Multiplier:      2.0,
			},
			CircuitBreaker: config.CircuitBreakerConfig{
				MaxFailures:   3,
				Timeout:       time.Minute,
				HalfOpenLimit: 1,
			},
		},
		Services: config.ServicesConfig{
			Feed: config.FeedConfig{BaseURL: feedURL, Path: "/posts", Name: "quote-feed", Format: acl.FormatJSON},
		},
		Sync: config.SyncConfig{Interval: time.Hour, ManualRate: 100, ManualBurst: 100},
	}
}

// startHarness starts a process over the sqlite database in dir. An empty
// dir gets a fresh temporary one.
func startHarness(ctx context.Context, dir string, feed *stubFeed) (*harness, error) {
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", "quotesync-it-*"); err != nil {
			return nil, err
		}
	}

	if feed == nil {
		feed = newStubFeed()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(feed.server.URL)

	store, closeStore, err := storage.Open(ctx, storage.Config{Driver: storage.DriverSQLite, Path: filepath.Join(dir, "quotes.db")})
	if err != nil {
		return nil, err
	}

	h := &harness{dir: dir, feed: feed, store: store, closeStore: closeStore}

	state, err := app.LoadState(ctx, store, logger)
	if err != nil {
		return nil, errors.Join(err, h.close())
	}

	remote, err := acl.NewFeedFromConfig(cfg.Services.Feed, cfg.Client, logger)
	if err != nil {
		return nil, errors.Join(err, h.close())
	}

	h.service = app.NewQuoteService(app.QuoteServiceConfig{
		Repository:  state.Repository,
		Preferences: state.Preferences,
		Codec:       exchange.JSONCodec{},
		Logger:      logger,
	})

	h.engine, err = app.NewSyncEngine(app.SyncEngineConfig{
		Feed:        remote,
		Repository:  state.Repository,
		Interval:    cfg.Sync.Interval,
		ManualRate:  cfg.Sync.ManualRate,
		ManualBurst: cfg.Sync.ManualBurst,
		Logger:      logger,
	})
	if err != nil {
		return nil, errors.Join(err, h.close())
	}

	registry := ports.NewHealthRegistry()
	if err := errors.Join(
		registry.Register(store),
		registry.Register(state.Repository),
		registry.Register(remote, ports.Optional()),
	); err != nil {
		return nil, errors.Join(err, h.close())
	}

	h.server = quotehttp.New(&cfg.Server, logger)
	quotehttp.SetupRouter(h.server.Engine(), quotehttp.RouterConfig{
		Logger:            logger,
		ServiceName:       "quotesync-it",
		Timeout:           cfg.Server.RequestTimeout,
		HealthHandler:     handlers.NewHealthHandler(registry, handlers.NewBuildInfo("it", "none", "now"), nil),
		QuoteHandler:      handlers.NewQuoteHandler(h.service),
		PreferenceHandler: handlers.NewPreferenceHandler(h.service),
		SyncHandler:       handlers.NewSyncHandler(h.engine),
		EventsHandler:     handlers.NewEventsHandler(h.service, time.Second),
	})

	if _, err := h.server.Start(); err != nil {
		h.server = nil
		return nil, errors.Join(err, h.close())
	}

	h.baseURL = "http://" + h.server.Addr()

	return h, nil
}

// stop shuts the process down and keeps the database and the feed.
func (h *harness) stop() error {
	var errs []error

	if h.engine != nil {
		h.engine.Stop()
	}

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errs = append(errs, h.server.Shutdown(ctx))
		h.server = nil
	}

	if h.closeStore != nil {
		errs = append(errs, h.closeStore())
		h.closeStore = nil
	}

	return errors.Join(errs...)
}

// close stops the process and removes everything it created.
func (h *harness) close() error {
	err := h.stop()
	h.feed.server.Close()

	if rmErr := os.RemoveAll(h.dir); rmErr != nil {
		err = errors.Join(err, fmt.Errorf("removing %s: %w", h.dir, rmErr))
	}

	return err
}
