package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(context.Context) error { return s.err }

func newHealthRouter(t *testing.T, gatherer prometheus.Gatherer, checkers ...ports.HealthChecker) *gin.Engine {
	t.Helper()

	registry := ports.NewHealthRegistry()
	for _, c := range checkers {
		var opts []ports.CheckOption
		if c.Name() == "quote-feed" {
			opts = append(opts, ports.Optional())
		}

		require.NoError(t, registry.Register(c, opts...))
	}

	router := gin.New()
	NewHealthHandler(registry, NewBuildInfo("1.2.3", "abc123", "2026-01-15T10:00:00Z"), gatherer).
		RegisterHealthRoutesOnEngine(router)

	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestNewBuildInfo(t *testing.T) {
	bi := NewBuildInfo("1.0.0", "abc123", "2026-01-15T10:00:00Z")

	assert.Equal(t, "1.0.0", bi.Version)
	assert.Equal(t, "abc123", bi.Commit)
	assert.Equal(t, runtime.Version(), bi.GoVersion)
}

func TestHealthHandler_Liveness(t *testing.T) {
	w := get(newHealthRouter(t, nil, stubChecker{name: "memory-store", err: errors.New("down")}), "/-/live")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []ports.HealthChecker
		wantStatus int
		wantHealth ports.HealthStatus
	}{
		{
			name:       "all checks healthy",
			checkers:   []ports.HealthChecker{stubChecker{name: "sqlite-store"}, stubChecker{name: "quote-feed"}},
			wantStatus: http.StatusOK,
			wantHealth: ports.HealthStatusHealthy,
		},
		{
			name: "store failing",
			checkers: []ports.HealthChecker{
				stubChecker{name: "sqlite-store", err: errors.New("disk I/O error")},
				stubChecker{name: "quote-feed"},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: ports.HealthStatusUnhealthy,
		},
		{
			name: "feed failing degrades",
			checkers: []ports.HealthChecker{
				stubChecker{name: "sqlite-store"},
				stubChecker{name: "quote-feed", err: errors.New("circuit breaker open")},
			},
			wantStatus: http.StatusOK,
			wantHealth: ports.HealthStatusDegraded,
		},
		{
			name:       "nothing registered",
			wantStatus: http.StatusOK,
			wantHealth: ports.HealthStatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newHealthRouter(t, nil, tt.checkers...), "/-/ready")

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp readinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.wantHealth), resp.Status)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestHealthHandler_BuildInfo(t *testing.T) {
	w := get(newHealthRouter(t, nil), "/-/build")

	var bi BuildInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bi))
	assert.Equal(t, "1.2.3", bi.Version)
	assert.Equal(t, "abc123", bi.Commit)
}

func TestHealthHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "quotesync_collection_quotes",
		Help: "Number of quotes in the collection.",
	}, func() float64 { return 3 }))

	w := get(newHealthRouter(t, reg), "/-/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quotesync_collection_quotes 3")

	assert.Equal(t, http.StatusOK, get(newHealthRouter(t, nil), "/-/metrics").Code)
}
