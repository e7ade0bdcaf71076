package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// Logging writes one "request completed" line per request through the
// context logger, so request, correlation and trace IDs ride along.
// Health probes under /-/ and the exact paths in quiet are not logged; the
// event stream is usually one of them since it stays open for minutes.
func Logging(quiet ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isQuiet(c.Request.URL.Path, quiet) {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		r := c.Request
		status := c.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}

		if r.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", r.URL.RawQuery))
		}

		if r.ContentLength > 0 {
			attrs = append(attrs, slog.Int64("request_bytes", r.ContentLength))
		}

		logging.FromContext(r.Context()).LogAttrs(r.Context(), levelFor(status), "request completed", attrs...)
	}
}

func isQuiet(path string, quiet []string) bool {
	if strings.HasPrefix(path, "/-/") {
		return true
	}

	return slices.Contains(quiet, path)
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
