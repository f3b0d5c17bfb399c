package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/skycam/internal/observability"
)

// LoggingMiddleware logs each request and records its latency. The
// metric is labelled with the route template, not the raw path, so
// parameterised routes stay one series. Probe endpoints are recorded
// but not logged; they would drown the capture traffic.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())

		if route == "/healthz" || route == "/readyz" || route == "/metrics" {
			return
		}

		logFn := slog.Info
		if status >= 500 {
			logFn = slog.Error
		}
		logFn("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
		)
	}
}
