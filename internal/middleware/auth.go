package middleware

import (
	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/metrics"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	HeaderAPIKey     = "X-API-Key"
	ContextClientKey = "client"
)

func AuthMiddleware(cfg *config.Config, cm *service.ClientManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				c.Set(ContextClientKey, cm.DefaultClient())
				c.Next()
				return
			}
			rejectAuth(c, "missing API key")
			return
		}

		client, ok := cm.GetByAPIKey(apiKey)
		if !ok {
			rejectAuth(c, "invalid API key")
			return
		}

		c.Set(ContextClientKey, client)
		c.Next()
	}
}

func rejectAuth(c *gin.Context, msg string) {
	metrics.RequestRejects.WithLabelValues("auth").Inc()
	appErr := apperrors.New(apperrors.ErrAuthFailed, msg, nil)
	c.JSON(appErr.HTTPStatus, appErr)
	c.Abort()
}

// ClientFrom returns the client resolved by AuthMiddleware.
func ClientFrom(c *gin.Context) *model.APIClient {
	val, exists := c.Get(ContextClientKey)
	if !exists {
		return nil
	}
	client, ok := val.(*model.APIClient)
	if !ok {
		return nil
	}
	return client
}
