package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requests_total",
		Help: "Total HTTP requests handled, by endpoint and method",
	}, []string{"endpoint", "method"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	OllamaErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ollama_errors_total",
		Help: "Model server call failures, by failure type",
	}, []string{"type"})

	RequestRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "request_rejects_total",
		Help: "Requests rejected before reaching the model server",
	}, []string{"reason"})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Response cache lookups, by result",
	}, []string{"result"})

	TokensGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokens_generated_total",
		Help: "Tokens generated by the model server, by model",
	}, []string{"model"})

	IndexFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_failures_total",
		Help: "Log records that could not be written to the search index",
	})

	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_dropped_total",
		Help: "Log records dropped because the indexing queue was full",
	})
)
