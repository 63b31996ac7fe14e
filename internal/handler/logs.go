package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/QIRoss/ai-orchestrator/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LogsHandler struct {
	svc      *service.Indexer
	hub      *stream.Hub
	upgrader websocket.Upgrader
}

func NewLogsHandler(svc *service.Indexer, hub *stream.Hub) *LogsHandler {
	return &LogsHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API key already gates the route group.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *LogsHandler) List(c *gin.Context) {
	filter := model.LogFilter{
		Endpoint: c.Query("endpoint"),
		Model:    c.Query("model"),
		ClientID: c.Query("client_id"),
		Status:   c.Query("status"),
		Query:    c.Query("q"),
		Limit:    50,
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
		filter.To = &t
	}

	records, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

func (h *LogsHandler) Stats(c *gin.Context) {
	var fromPtr, toPtr *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
		fromPtr = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
		toPtr = &t
	}

	stats, err := h.svc.Stats(c.Request.Context(), fromPtr, toPtr)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Stream pushes every completed request record to the socket as JSON,
// one message per record, until the peer goes away.
func (h *LogsHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	// We never expect client frames; reading is how we notice the peer
	// closed the socket.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case rec, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
	}
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
