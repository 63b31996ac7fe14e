package model

import (
	"time"
)

// Operation names a text-processing endpoint exposed by the orchestrator.
type Operation string

const (
	OpSummarize Operation = "summarize"
	OpTranslate Operation = "translate"
	OpSentiment Operation = "analyze_sentiment"
)

// Record statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RequestLog captures one completed pass through the orchestrator: what came
// in, what went to the model, and what came back. One record per request,
// indexed into the search engine and mirrored into the in-memory ring.
type RequestLog struct {
	ID         string    `json:"id"`              // time-ordered document ID (ULID)
	RequestID  string    `json:"request_id"`      // HTTP request ID (UUID, echoed in X-Request-ID)
	ClientID   string    `json:"client_id"`       // API client that issued the request
	Endpoint   string    `json:"endpoint"`        // operation name (summarize, translate, ...)
	Model      string    `json:"model"`           // model the request was served with
	Status     string    `json:"status"`          // ok | error
	Error      string    `json:"error,omitempty"` // upstream error message when status=error
	CacheHit   bool      `json:"cache_hit"`
	InputText  string    `json:"input_text"` // truncated copy of the input
	OutputText string    `json:"output_text"`
	TokensIn   int       `json:"tokens_in"`  // prompt tokens reported by the model server
	TokensOut  int       `json:"tokens_out"` // generated tokens reported by the model server
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"@timestamp"` // request start, UTC
}

// LogFilter narrows a log listing. Zero values mean "no constraint".
type LogFilter struct {
	Endpoint string
	Model    string
	ClientID string
	Status   string
	Query    string // full-text match against input_text / output_text
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Matches reports whether a record satisfies the filter, ignoring Query:
// full-text matching belongs to the index, the ring fallback only filters
// on exact fields.
func (f LogFilter) Matches(r *RequestLog) bool {
	if f.Endpoint != "" && r.Endpoint != f.Endpoint {
		return false
	}
	if f.Model != "" && r.Model != f.Model {
		return false
	}
	if f.ClientID != "" && r.ClientID != f.ClientID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.From != nil && r.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// Bucket is one term aggregation entry.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// EndpointStat extends a bucket with the average latency of its records.
type EndpointStat struct {
	Endpoint     string  `json:"endpoint"`
	Count        int64   `json:"count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// UsageStats aggregates the indexed records over a time window.
type UsageStats struct {
	Total      int64          `json:"total"`
	ByEndpoint []EndpointStat `json:"by_endpoint"`
	ByModel    []Bucket       `json:"by_model"`
	ByStatus   []Bucket       `json:"by_status"`
	Source     string         `json:"source"` // index | buffer
}
