package middleware

import (
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		// Route template keeps the label cardinality bounded.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.RequestsTotal.WithLabelValues(endpoint, c.Request.Method).Inc()
		metrics.RequestDuration.WithLabelValues(endpoint).Observe(duration)
	}
}
