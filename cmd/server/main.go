package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/handler"
	"github.com/QIRoss/ai-orchestrator/internal/middleware"
	"github.com/QIRoss/ai-orchestrator/internal/ollama"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
	"github.com/QIRoss/ai-orchestrator/internal/repository"
	"github.com/QIRoss/ai-orchestrator/internal/search"
	"github.com/QIRoss/ai-orchestrator/internal/service"
	"github.com/QIRoss/ai-orchestrator/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 0. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Initialize Logger
	logger.Init(cfg.Logging.Level)

	// 2. Initialize Persistence
	// Usage counters, the response cache and the record spool all ride
	// on Redis when it is configured; otherwise everything stays in
	// process memory.
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		rc, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			redisClient = rc
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}

	var usageRepo service.UsageRepo
	var respCache service.ResponseCache
	var spool service.RecordSpool
	if redisClient != nil {
		usageRepo = redisClient
		spool = repository.NewRedisSpool(redisClient, cfg.Search.SpoolKey, cfg.Search.SpoolMax)
		if cfg.Cache.Enabled {
			respCache = repository.NewRedisResponseCache(redisClient, cfg.Cache.TTL)
		}
	} else {
		usageRepo = service.NewMemoryUsageStore()
		if cfg.Cache.Enabled {
			respCache = service.NewMemoryResponseCache(cfg.Cache.TTL, 0)
		}
	}

	// 3. Search index for request records
	var store *search.Store
	var recordStore service.RecordStore
	if cfg.Search.URL != "" {
		store = search.NewStore(search.NewClient(cfg.Search.URL, cfg.Search.Timeout), cfg.Search.Index)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureIndex(ctx); err != nil {
			logger.Warn("⚠️ search index not ready, records will be buffered", "error", err.Error())
		} else {
			logger.Info("✅ Search index ready", "index", cfg.Search.Index)
		}
		cancel()
		recordStore = store
	}

	// 4. Model server client + startup probe
	ollamaClient := ollama.NewClient(cfg.Ollama)
	if url, err := ollamaClient.Probe(context.Background()); err == nil {
		logger.Info("✅ Model server is ready", "url", url)
	} else {
		logger.Warn("⚠️ Model server not available, endpoints will fail until it comes up", "error", err.Error())
	}

	// 5. Core services
	hub := stream.NewHub()
	indexer := service.NewIndexer(recordStore, spool, hub)
	flushCtx, stopFlusher := context.WithCancel(context.Background())
	indexer.StartSpoolFlusher(flushCtx, cfg.Search.FlushInterval)

	clientManager := service.NewClientManager(cfg)
	orchestrator := service.NewOrchestrator(ollamaClient, respCache, usageRepo, indexer, cfg)

	// 6. Initialize Handlers
	textHandler := handler.NewTextHandler(orchestrator)
	modelsHandler := handler.NewModelsHandler(ollamaClient)
	logsHandler := handler.NewLogsHandler(indexer, hub)
	systemHandler := handler.NewSystemHandler(ollamaClient, store)

	// 7. Setup Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/", systemHandler.Root)
	r.GET("/health", systemHandler.Health)

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, clientManager))
	v1.Use(middleware.RateLimitMiddleware(clientManager))
	{
		v1.POST("/summarize", textHandler.Summarize)
		v1.POST("/translate", textHandler.Translate)
		v1.POST("/analyze_sentiment", textHandler.Sentiment)
		v1.GET("/models", modelsHandler.List)
		v1.POST("/models/pull", middleware.AdminMiddleware(cfg), modelsHandler.Pull)
		v1.GET("/logs", logsHandler.List)
		v1.GET("/logs/stream", logsHandler.Stream)
		v1.GET("/stats", logsHandler.Stats)
	}

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 AI Orchestrator started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	// Requests are drained; flush what they logged, then stop intake.
	stopFlusher()
	indexer.Close()
	hub.Close()

	logger.Info("Server exiting")
}
