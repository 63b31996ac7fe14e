package handler

import (
	"net/http"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/ollama"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

type ModelsHandler struct {
	client *ollama.Client
}

func NewModelsHandler(client *ollama.Client) *ModelsHandler {
	return &ModelsHandler{client: client}
}

func (h *ModelsHandler) List(c *gin.Context) {
	models, err := h.client.ListModels(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"models": models,
		"count":  len(models),
	})
}

// Pull asks the model server to download a model. Slow for big models;
// the admin is expected to wait.
func (h *ModelsHandler) Pull(c *gin.Context) {
	var req model.PullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	status, err := h.client.Pull(c.Request.Context(), req.Name)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"model":  req.Name,
		"status": status,
	})
}
