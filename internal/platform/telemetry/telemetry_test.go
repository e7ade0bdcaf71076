package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Middleware("quotesync")...)
	router.GET("/api/v1/quotes", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil))

	// The global tracer provider is noop in tests, so no trace ID is echoed.
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get(HeaderTraceID))
}

func TestStatusCollector(t *testing.T) {
	last := time.Unix(1_700_000_000, 0)

	collector := NewStatusCollector("quotesync", StatusSource{
		Quotes: func() int { return 4 },
		Sync:   func() (int64, int64, time.Time) { return 3, 1, last },
	})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(collector))

	expected := `
# HELP quotesync_collection_quotes Number of quotes in the collection.
# TYPE quotesync_collection_quotes gauge
quotesync_collection_quotes 4
# HELP quotesync_sync_cycles_total Sync cycles run since start.
# TYPE quotesync_sync_cycles_total counter
quotesync_sync_cycles_total 3
# HELP quotesync_sync_failures_total Sync cycles that left the collection unchanged because of an error.
# TYPE quotesync_sync_failures_total counter
quotesync_sync_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"quotesync_collection_quotes", "quotesync_sync_cycles_total", "quotesync_sync_failures_total"))

	assert.Equal(t, 4, testutil.CollectAndCount(collector))
}

func TestStatusCollector_WithoutSync(t *testing.T) {
	collector := NewStatusCollector("quotesync", StatusSource{Quotes: func() int { return 3 }})

	assert.Equal(t, 1, testutil.CollectAndCount(collector))
	assert.InDelta(t, 3, testutil.ToFloat64(collector), 0)
}
