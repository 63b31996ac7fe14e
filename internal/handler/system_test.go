package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/ollama"
	"github.com/gin-gonic/gin"
)

func systemRouter(client *ollama.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewSystemHandler(client, nil)
	router := gin.New()
	router.GET("/", handler.Root)
	router.GET("/health", handler.Health)
	return router
}

func TestHealthDegradedWithoutModelServer(t *testing.T) {
	client := ollama.NewClient(config.OllamaConfig{
		URLs:         []string{"http://127.0.0.1:1"},
		ProbeTimeout: 100 * time.Millisecond,
	})
	router := systemRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Health always answers 200, degradation lives in the body.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if resp["status"] != "degraded" {
		t.Fatalf("expected degraded status, got %v", resp["status"])
	}
	if resp["ollama"] != "unavailable" {
		t.Fatalf("expected ollama unavailable, got %v", resp["ollama"])
	}
}

func TestHealthHealthyWithModelServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := ollama.NewClient(config.OllamaConfig{
		URLs:         []string{srv.URL},
		ProbeTimeout: time.Second,
	})
	if _, err := client.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	router := systemRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Fatalf("expected healthy status, got %v", resp["status"])
	}
	if resp["ollama_url"] != srv.URL {
		t.Fatalf("expected ollama_url %s, got %v", srv.URL, resp["ollama_url"])
	}
}

func TestRootListsEndpoints(t *testing.T) {
	client := ollama.NewClient(config.OllamaConfig{URLs: []string{"http://127.0.0.1:1"}})
	router := systemRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, path := range []string{"/v1/summarize", "/v1/translate", "/v1/analyze_sentiment", "/v1/logs", "/health"} {
		if !strings.Contains(body, path) {
			t.Fatalf("expected %s in endpoint list, got %s", path, body)
		}
	}
}
