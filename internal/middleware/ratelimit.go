package middleware

import (
	"net/http"

	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/metrics"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware must run after AuthMiddleware: it reads the client
// from the context and consumes a token from that client's limiter.
func RateLimitMiddleware(cm *service.ClientManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Resolve the current client.
		client := ClientFrom(c)
		if client == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		// 2. Look up the limiter. A missing limiter means the manager is
		// inconsistent; let the request through rather than fail it.
		limiter := cm.LimiterFor(client.ID)
		if limiter == nil {
			c.Next()
			return
		}

		// 3. Take a token.
		if !limiter.Allow() {
			metrics.RequestRejects.WithLabelValues("rate_limit").Inc()
			appErr := apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil)
			c.JSON(appErr.HTTPStatus, appErr)
			c.Abort()
			return
		}

		c.Next()
	}
}
