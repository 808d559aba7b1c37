package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Metrics records request counts, latencies and error responses per route
// template, so ids in the path do not inflate label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		code := strconv.Itoa(status)
		method := c.Request.Method

		m.RequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
		m.RequestTotal.WithLabelValues(method, path, code).Inc()
		if status >= 400 {
			m.ErrorTotal.WithLabelValues(method, path, code[:1]+"xx").Inc()
		}
	}
}
