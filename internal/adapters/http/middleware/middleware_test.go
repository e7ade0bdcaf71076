package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestIDMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(context.Context) string
	}{
		{"request id", RequestID(), HeaderRequestID, GetRequestID, RequestIDFromContext},
		{"correlation id", CorrelationID(), HeaderCorrelationID, GetCorrelationID, CorrelationIDFromContext},
	}

	for _, tt := range tests {
		for _, incoming := range []string{"", "upstream-123", strings.Repeat("x", maxIDLength+1)} {
			t.Run(tt.name+"/"+incoming[:min(len(incoming), 12)], func(t *testing.T) {
				var fromGin, fromCtx string

				router := gin.New()
				router.Use(tt.middleware)
				router.GET("/test", func(c *gin.Context) {
					fromGin = tt.fromGin(c)
					fromCtx = tt.fromCtx(c.Request.Context())
					c.Status(http.StatusOK)
				})

				req := httptest.NewRequest(http.MethodGet, "/test", nil)
				if incoming != "" {
					req.Header.Set(tt.header, incoming)
				}

				w := serve(router, req)

				echoed := w.Header().Get(tt.header)
				require.NotEmpty(t, echoed)
				assert.Equal(t, echoed, fromGin)
				assert.Equal(t, echoed, fromCtx)

				if incoming == "upstream-123" {
					assert.Equal(t, incoming, echoed)
				} else {
					assert.Len(t, echoed, 36)
				}
			})
		}
	}
}

func TestIDsReachContextLogger(t *testing.T) {
	var buf bytes.Buffer

	router := gin.New()
	router.Use(ContextLogger(slog.New(slog.NewJSONHandler(&buf, nil))), RequestID(), CorrelationID())
	router.GET("/test", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("handled")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderCorrelationID, "corr-1")
	serve(router, req)

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithCorrelationID(ContextWithRequestID(context.Background(), "r"), "c")

	assert.Equal(t, "r", RequestIDFromContext(ctx))
	assert.Equal(t, "c", CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(nil)) //nolint:staticcheck // nil guard
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
		wantLog   bool
	}{
		{"success logs info", "/api/v1/quotes?category=all", http.StatusOK, "INFO", true},
		{"client error logs warn", "/api/v1/quotes/random", http.StatusNotFound, "WARN", true},
		{"server error logs error", "/api/v1/sync", http.StatusServiceUnavailable, "ERROR", true},
		{"health is skipped", "/-/live", http.StatusOK, "", false},
		{"configured path is skipped", "/api/v1/events", http.StatusOK, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			router := gin.New()
			router.Use(ContextLogger(slog.New(slog.NewJSONHandler(&buf, nil))), Logging("/api/v1/events"))
			router.NoRoute(func(c *gin.Context) { c.Status(tt.status) })

			serve(router, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "request completed", entry["msg"])
			path, query, _ := strings.Cut(tt.path, "?")
			assert.Equal(t, path, entry["path"])

			if query != "" {
				assert.Equal(t, query, entry["query"])
			}
			assert.InDelta(t, tt.status, entry["status"], 0)
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer

	router := gin.New()
	router.Use(ContextLogger(slog.New(slog.NewJSONHandler(&buf, nil))), Recovery())
	router.GET("/panic", func(*gin.Context) { panic("boom") })
	router.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "half")
		panic("late")
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrorCodeInternal, decodeError(t, w).Error.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "boom")

	w = serve(router, httptest.NewRequest(http.MethodGet, "/partial", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "half", w.Body.String())
}

func TestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(20*time.Millisecond, "/stream"))

	waitForDeadline := func(c *gin.Context) {
		<-c.Request.Context().Done()
	}
	router.GET("/slow", waitForDeadline)
	router.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/stream", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": hasDeadline})
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, dto.ErrorCodeTimeout, decodeError(t, w).Error.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.JSONEq(t, `{"deadline":false}`, w.Body.String())
}

func TestExtractClaims(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.AuthConfig
		headers map[string]string
		want    *Claims
	}{
		{
			name:    "default headers",
			headers: map[string]string{"X-User-ID": "alice", "X-User-Roles": "reader, writer,,"},
			want:    &Claims{Subject: "alice", Roles: []string{"reader", "writer"}},
		},
		{
			name:    "configured headers",
			cfg:     &config.AuthConfig{SubjectHeader: "X-Sub", RolesHeader: "X-Groups"},
			headers: map[string]string{"X-Sub": "bob", "X-Groups": "editor", "X-User-ID": "ignored"},
			want:    &Claims{Subject: "bob", Roles: []string{"editor"}},
		},
		{
			name: "nothing forwarded",
			want: &Claims{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ExtractClaims(c, tt.cfg))
		})
	}
}

func TestRequireWriter(t *testing.T) {
	enabled := &config.AuthConfig{Enabled: true, WriterRole: "writer"}

	tests := []struct {
		name       string
		cfg        *config.AuthConfig
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{name: "disabled lets everyone through", cfg: &config.AuthConfig{}, wantStatus: http.StatusCreated},
		{name: "nil config lets everyone through", wantStatus: http.StatusCreated},
		{name: "missing subject", cfg: enabled, wantStatus: http.StatusUnauthorized, wantCode: dto.ErrorCodeUnauthorized},
		{
			name:       "missing role",
			cfg:        enabled,
			headers:    map[string]string{"X-User-ID": "alice", "X-User-Roles": "reader"},
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrorCodeForbidden,
		},
		{
			name:       "writer",
			cfg:        enabled,
			headers:    map[string]string{"X-User-ID": "alice", "X-User-Roles": "reader,writer"},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			handlers := append(RequireWriter(tt.cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })
			router.POST("/api/v1/quotes", handlers...)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			w := serve(router, req)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
			}
		})
	}
}

func TestRequireAuthStoresClaims(t *testing.T) {
	cfg := &config.AuthConfig{Enabled: true, WriterRole: "writer"}

	var claims *Claims

	router := gin.New()
	router.GET("/me", RequireAuth(cfg), func(c *gin.Context) {
		claims = GetClaims(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "alice")
	serve(router, req)

	require.NotNil(t, claims)
	assert.Equal(t, "alice", claims.Subject)
	assert.False(t, claims.HasRole("writer"))
}
