// Package middleware provides the HTTP middleware chain.
package middleware

import (
	"strconv"
	"time"

	"github.com/vidsum/orchestrator/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency for every route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
