package handler

import (
	"net/http"

	"github.com/QIRoss/ai-orchestrator/internal/middleware"
	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/gin-gonic/gin"
)

type TextHandler struct {
	svc *service.Orchestrator
}

func NewTextHandler(svc *service.Orchestrator) *TextHandler {
	return &TextHandler{svc: svc}
}

func (h *TextHandler) Summarize(c *gin.Context) {
	h.handle(c, model.OpSummarize)
}

func (h *TextHandler) Translate(c *gin.Context) {
	h.handle(c, model.OpTranslate)
}

func (h *TextHandler) Sentiment(c *gin.Context) {
	h.handle(c, model.OpSentiment)
}

// All three text endpoints share one flow; only the operation (and with
// it the prompt and the response field) differs.
func (h *TextHandler) handle(c *gin.Context, op model.Operation) {
	// 1. Get client from context (set by AuthMiddleware)
	client := middleware.ClientFrom(c)
	if client == nil {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized: missing client context", nil))
		return
	}

	// 2. Bind request
	var req model.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	// 3. Call service
	requestID := middleware.RequestID(c)
	res, err := h.svc.Process(c.Request.Context(), op, client, req, requestID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		resultField(op): res.Text,
		"model":         res.Model,
		"cached":        res.Cached,
		"request_id":    requestID,
		"latency_ms":    res.LatencyMs,
	})
}

func resultField(op model.Operation) string {
	switch op {
	case model.OpTranslate:
		return "translation"
	case model.OpSentiment:
		return "sentiment"
	default:
		return "summary"
	}
}
