package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/gin-gonic/gin"
)

func authRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cm := service.NewClientManager(cfg)
	router := gin.New()
	router.Use(AuthMiddleware(cfg, cm))
	router.GET("/ping", func(c *gin.Context) {
		client := ClientFrom(c)
		if client == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no client in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"client_id": client.ID})
	})
	return router
}

func TestAuthMiddlewareOpenMode(t *testing.T) {
	router := authRouter(&config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without key in open mode, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"client_id":"default"`) {
		t.Fatalf("expected default client, got %s", rec.Body.String())
	}
}

func TestAuthMiddlewareRequiredKey(t *testing.T) {
	cfg := &config.Config{
		Auth: config.AuthConfig{RequireAPIKey: true},
		Clients: []config.ClientConfig{
			{ID: "bot-1", Name: "Batch Bot", APIKey: "sk-good"},
		},
	}
	router := authRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AUTH_FAILED") {
		t.Fatalf("expected AUTH_FAILED code, got %s", rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req2.Header.Set(HeaderAPIKey, "sk-wrong")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad key, got %d", rec2.Code)
	}

	req3 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req3.Header.Set(HeaderAPIKey, "sk-good")
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid key, got %d", rec3.Code)
	}
	if !strings.Contains(rec3.Body.String(), `"client_id":"bot-1"`) {
		t.Fatalf("expected bot-1 client, got %s", rec3.Body.String())
	}
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

	// Not configured: admin operations are disabled outright.
	router := gin.New()
	router.POST("/pull", AdminMiddleware(&config.Config{}), ok)
	req := httptest.NewRequest(http.MethodPost, "/pull", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with no admin key configured, got %d", rec.Code)
	}

	cfg := &config.Config{Auth: config.AuthConfig{AdminKey: "admin"}}
	router2 := gin.New()
	router2.POST("/pull", AdminMiddleware(cfg), ok)

	req2 := httptest.NewRequest(http.MethodPost, "/pull", nil)
	req2.Header.Set(HeaderAdminKey, "nope")
	rec2 := httptest.NewRecorder()
	router2.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong admin key, got %d", rec2.Code)
	}

	req3 := httptest.NewRequest(http.MethodPost, "/pull", nil)
	req3.Header.Set(HeaderAdminKey, "admin")
	rec3 := httptest.NewRecorder()
	router2.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid admin key, got %d", rec3.Code)
	}
}
