package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/middleware"
	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/QIRoss/ai-orchestrator/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type stubRecordStore struct {
	listOut  []*model.RequestLog
	listErr  error
	statsOut *model.UsageStats
	statsErr error
}

func (s *stubRecordStore) Insert(ctx context.Context, rec *model.RequestLog) error { return nil }

func (s *stubRecordStore) List(ctx context.Context, f model.LogFilter) ([]*model.RequestLog, error) {
	return s.listOut, s.listErr
}

func (s *stubRecordStore) Aggregate(ctx context.Context, from, to *time.Time) (*model.UsageStats, error) {
	return s.statsOut, s.statsErr
}

func (s *stubRecordStore) Ping(ctx context.Context) error { return nil }

func logsRouter(store service.RecordStore, hub *stream.Hub) (*gin.Engine, *service.Indexer) {
	gin.SetMode(gin.TestMode)
	idx := service.NewIndexer(store, nil, hub)
	handler := NewLogsHandler(idx, hub)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/v1/logs", handler.List)
	router.GET("/v1/stats", handler.Stats)
	router.GET("/v1/logs/stream", handler.Stream)
	return router, idx
}

func TestLogsEndpoint(t *testing.T) {
	store := &stubRecordStore{listOut: []*model.RequestLog{
		{ID: "rec-2", Endpoint: "summarize", Model: "llama3.1:8b", Status: "ok"},
		{ID: "rec-1", Endpoint: "translate", Model: "llama3.1:8b", Status: "ok"},
	}}
	router, idx := logsRouter(store, nil)
	defer idx.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/logs?limit=10&endpoint=summarize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Records []model.RequestLog `json:"records"`
		Count   int                `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected 2 records, got %d", resp.Count)
	}
	if resp.Records[0].ID != "rec-2" {
		t.Fatalf("expected newest record first, got %s", resp.Records[0].ID)
	}
}

func TestLogsEndpointRejectsBadTime(t *testing.T) {
	router, idx := logsRouter(&stubRecordStore{}, nil)
	defer idx.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/logs?from=yesterday-ish", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid time, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_REQUEST") {
		t.Fatalf("expected INVALID_REQUEST code, got %s", rec.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	store := &stubRecordStore{statsOut: &model.UsageStats{
		Total:  5,
		Source: "index",
		ByEndpoint: []model.EndpointStat{
			{Endpoint: "summarize", Count: 3, AvgLatencyMs: 812.4},
			{Endpoint: "translate", Count: 2, AvgLatencyMs: 400.0},
		},
	}}
	router, idx := logsRouter(store, nil)
	defer idx.Close()

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"total":5`) {
		t.Fatalf("expected total in stats, got %s", body)
	}
	if !strings.Contains(body, `"source":"index"`) {
		t.Fatalf("expected source in stats, got %s", body)
	}
}

func TestStreamDeliversRecords(t *testing.T) {
	hub := stream.NewHub()
	defer hub.Close()
	router, idx := logsRouter(&stubRecordStore{}, hub)
	defer idx.Close()

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/logs/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Wait until the server side registered its subscription.
	for i := 0; i < 100 && hub.Subscribers() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Subscribers() == 0 {
		t.Fatalf("stream handler never subscribed")
	}

	idx.Enqueue(&model.RequestLog{ID: "rec-1", Endpoint: "summarize", Status: "ok"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.RequestLog
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read record from stream: %v", err)
	}
	if got.ID != "rec-1" {
		t.Fatalf("expected rec-1, got %s", got.ID)
	}
}
