package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/ollama"
	"github.com/QIRoss/ai-orchestrator/internal/search"
	"github.com/gin-gonic/gin"
)

type SystemHandler struct {
	ollama *ollama.Client
	store  *search.Store // nil when no index is configured
}

func NewSystemHandler(client *ollama.Client, store *search.Store) *SystemHandler {
	return &SystemHandler{ollama: client, store: store}
}

// Health always answers 200; the body says whether dependencies are up.
// Load balancers should read the status field, not the HTTP code.
func (h *SystemHandler) Health(c *gin.Context) {
	ollamaStatus := "unavailable"
	var ollamaURL string
	if h.ollama != nil && h.ollama.Available() {
		ollamaStatus = "healthy"
		ollamaURL = h.ollama.BaseURL()
	}

	searchStatus := "unavailable"
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err == nil {
			searchStatus = "connected"
		}
	}

	status := "healthy"
	if ollamaStatus != "healthy" {
		status = "degraded"
	}

	body := gin.H{
		"status":     status,
		"ollama":     ollamaStatus,
		"opensearch": searchStatus,
	}
	if ollamaURL != "" {
		body["ollama_url"] = ollamaURL
	}
	c.JSON(http.StatusOK, body)
}

func (h *SystemHandler) Root(c *gin.Context) {
	status := "ready"
	if h.ollama == nil || !h.ollama.Available() {
		status = "waiting for model server"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Orchestrator API",
		"status":  status,
		"endpoints": gin.H{
			"/v1/summarize":         "POST - Summarize text",
			"/v1/translate":         "POST - Translate text",
			"/v1/analyze_sentiment": "POST - Analyze sentiment",
			"/v1/models":            "GET - List models on the model server",
			"/v1/models/pull":       "POST - Pull a model (admin)",
			"/v1/logs":              "GET - Query request logs",
			"/v1/logs/stream":       "GET - Live record stream (websocket)",
			"/v1/stats":             "GET - Usage aggregations",
			"/health":               "GET - Health check",
		},
	})
}
