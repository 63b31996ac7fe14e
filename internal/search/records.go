package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
)

// recordMapping pins the field types so term filters and aggregations
// work without relying on dynamic mapping guesses.
const recordMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "request_id":  {"type": "keyword"},
      "client_id":   {"type": "keyword"},
      "endpoint":    {"type": "keyword"},
      "model":       {"type": "keyword"},
      "status":      {"type": "keyword"},
      "error":       {"type": "text"},
      "cache_hit":   {"type": "boolean"},
      "input_text":  {"type": "text"},
      "output_text": {"type": "text"},
      "tokens_in":   {"type": "integer"},
      "tokens_out":  {"type": "integer"},
      "latency_ms":  {"type": "long"},
      "@timestamp":  {"type": "date"}
    }
  }
}`

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Store persists request records in one index and answers the queries
// the log and stats endpoints need.
type Store struct {
	client *Client
	index  string
}

func NewStore(client *Client, index string) *Store {
	return &Store{client: client, index: index}
}

// Ping reports whether the engine is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// EnsureIndex creates the records index with its mapping when missing.
func (s *Store) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.IndexExists(ctx, s.index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.CreateIndex(ctx, s.index, json.RawMessage(recordMapping)); err != nil {
		return err
	}
	logger.Info("created search index", "index", s.index)
	return nil
}

// Insert writes one record, keyed by its ULID.
func (s *Store) Insert(ctx context.Context, rec *model.RequestLog) error {
	return s.client.IndexDoc(ctx, s.index, rec.ID, rec)
}

// List returns records matching the filter, newest first.
func (s *Store) List(ctx context.Context, f model.LogFilter) ([]*model.RequestLog, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	filters := termFilters(f)
	if r := timestampRange(f.From, f.To); r != nil {
		filters = append(filters, r)
	}
	must := []map[string]any{}
	if f.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  f.Query,
				"fields": []string{"input_text", "output_text"},
			},
		})
	}

	body := map[string]any{
		"size": limit,
		"sort": []map[string]any{
			{"@timestamp": map[string]any{"order": "desc"}},
		},
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filters,
			},
		},
	}

	resp, err := s.client.Search(ctx, s.index, body)
	if err != nil {
		return nil, err
	}

	records := make([]*model.RequestLog, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var rec model.RequestLog
		if err := json.Unmarshal(hit.Source, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Aggregate computes usage statistics over an optional time window.
func (s *Store) Aggregate(ctx context.Context, from, to *time.Time) (*model.UsageStats, error) {
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"by_endpoint": map[string]any{
				"terms": map[string]any{"field": "endpoint"},
				"aggs": map[string]any{
					"avg_latency": map[string]any{
						"avg": map[string]any{"field": "latency_ms"},
					},
				},
			},
			"by_model": map[string]any{
				"terms": map[string]any{"field": "model"},
			},
			"by_status": map[string]any{
				"terms": map[string]any{"field": "status"},
			},
		},
	}
	if r := timestampRange(from, to); r != nil {
		body["query"] = map[string]any{
			"bool": map[string]any{"filter": []map[string]any{r}},
		}
	}

	resp, err := s.client.Search(ctx, s.index, body)
	if err != nil {
		return nil, err
	}

	stats := &model.UsageStats{
		Total:  resp.Hits.Total.Value,
		Source: "index",
	}
	for _, b := range parseTermsAgg(resp.Aggregations, "by_endpoint") {
		stats.ByEndpoint = append(stats.ByEndpoint, model.EndpointStat{
			Endpoint:     b.Key,
			Count:        b.DocCount,
			AvgLatencyMs: b.AvgLatency.Value,
		})
	}
	for _, b := range parseTermsAgg(resp.Aggregations, "by_model") {
		stats.ByModel = append(stats.ByModel, model.Bucket{Key: b.Key, Count: b.DocCount})
	}
	for _, b := range parseTermsAgg(resp.Aggregations, "by_status") {
		stats.ByStatus = append(stats.ByStatus, model.Bucket{Key: b.Key, Count: b.DocCount})
	}
	return stats, nil
}

type termsBucket struct {
	Key        string `json:"key"`
	DocCount   int64  `json:"doc_count"`
	AvgLatency struct {
		Value float64 `json:"value"`
	} `json:"avg_latency"`
}

type termsAgg struct {
	Buckets []termsBucket `json:"buckets"`
}

func parseTermsAgg(aggs map[string]json.RawMessage, name string) []termsBucket {
	raw, ok := aggs[name]
	if !ok {
		return nil
	}
	var agg termsAgg
	if err := json.Unmarshal(raw, &agg); err != nil {
		return nil
	}
	return agg.Buckets
}

func termFilters(f model.LogFilter) []map[string]any {
	filters := []map[string]any{}
	add := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]any{
				"term": map[string]any{field: value},
			})
		}
	}
	add("endpoint", f.Endpoint)
	add("model", f.Model)
	add("client_id", f.ClientID)
	add("status", f.Status)
	return filters
}

func timestampRange(from, to *time.Time) map[string]any {
	if from == nil && to == nil {
		return nil
	}
	bounds := map[string]any{}
	if from != nil {
		bounds["gte"] = from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		bounds["lte"] = to.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"range": map[string]any{"@timestamp": bounds},
	}
}
