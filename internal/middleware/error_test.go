package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

func TestErrorHandlerRendersAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/boom", func(c *gin.Context) {
		c.Error(apperrors.New(apperrors.ErrModelTimeout, "model took too long", nil))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "MODEL_TIMEOUT") {
		t.Fatalf("expected MODEL_TIMEOUT code, got %s", body)
	}
	if !strings.Contains(body, "suggestion") {
		t.Fatalf("expected a suggestion in the body, got %s", body)
	}
}

func TestErrorHandlerWrapsUnknownErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("something odd"))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown error, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("expected INTERNAL_ERROR code, got %s", rec.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		seen = RequestID(c)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	header := rec.Header().Get(HeaderRequestID)
	if header == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if seen != header {
		t.Fatalf("handler saw %q, header says %q", seen, header)
	}
}
