package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/metrics"
	"github.com/QIRoss/ai-orchestrator/internal/stream"
)

// RecordStore is the search index behind the indexer.
type RecordStore interface {
	Insert(ctx context.Context, rec *model.RequestLog) error
	List(ctx context.Context, f model.LogFilter) ([]*model.RequestLog, error)
	Aggregate(ctx context.Context, from, to *time.Time) (*model.UsageStats, error)
	Ping(ctx context.Context) error
}

// RecordSpool holds records that failed to index until the flusher can
// retry them.
type RecordSpool interface {
	Push(ctx context.Context, rec *model.RequestLog) error
	PopBatch(ctx context.Context, n int) ([]*model.RequestLog, error)
	Requeue(ctx context.Context, recs []*model.RequestLog) error
	Depth(ctx context.Context) (int64, error)
}

const (
	indexQueueSize = 1000
	ringSize       = 1000
	flushBatchSize = 100
)

// Indexer moves request records from the hot path into the search index
// without ever blocking a request. Records enter a buffered channel; a
// single consumer writes them out. Failed writes go to the spool, and
// the newest records are always available from an in-memory ring even
// when the index is down.
type Indexer struct {
	logChan chan *model.RequestLog
	buffer  *recordBuffer
	store   RecordStore
	spool   RecordSpool
	hub     *stream.Hub
	done    chan struct{}
}

func NewIndexer(store RecordStore, spool RecordSpool, hub *stream.Hub) *Indexer {
	idx := &Indexer{
		logChan: make(chan *model.RequestLog, indexQueueSize),
		buffer:  newRecordBuffer(ringSize),
		store:   store,
		spool:   spool,
		hub:     hub,
		done:    make(chan struct{}),
	}

	go idx.processRecords()

	return idx
}

// Enqueue hands a record to the pipeline. Never blocks: with a full
// queue the record is only kept in the ring and counted as dropped.
func (s *Indexer) Enqueue(rec *model.RequestLog) {
	if rec == nil {
		return
	}
	s.buffer.Add(rec)
	if s.hub != nil {
		s.hub.Publish(rec)
	}
	select {
	case s.logChan <- rec:
	default:
		metrics.RecordsDropped.Inc()
		logger.Warn("⚠️ index queue full, dropping record", "id", rec.ID)
	}
}

// List answers from the index, falling back to the ring when the index
// cannot be queried.
func (s *Indexer) List(ctx context.Context, f model.LogFilter) ([]*model.RequestLog, error) {
	if s.store != nil {
		records, err := s.store.List(ctx, f)
		if err == nil {
			return records, nil
		}
		logger.Warn("log listing fell back to ring buffer", "error", err.Error())
	}
	return s.buffer.List(f), nil
}

// Stats aggregates from the index, falling back to counting the ring.
func (s *Indexer) Stats(ctx context.Context, from, to *time.Time) (*model.UsageStats, error) {
	if s.store != nil {
		stats, err := s.store.Aggregate(ctx, from, to)
		if err == nil {
			return stats, nil
		}
		logger.Warn("stats fell back to ring buffer", "error", err.Error())
	}
	return s.buffer.Stats(from, to), nil
}

func (s *Indexer) processRecords() {
	defer close(s.done)
	for rec := range s.logChan {
		s.index(rec)
	}
}

func (s *Indexer) index(rec *model.RequestLog) {
	ctx := context.Background()
	if s.store == nil {
		s.spoolRecord(ctx, rec)
		return
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		metrics.IndexFailures.Inc()
		logger.LogError(ctx, err, "❌ failed to index record", "id", rec.ID)
		s.spoolRecord(ctx, rec)
	}
}

func (s *Indexer) spoolRecord(ctx context.Context, rec *model.RequestLog) {
	if s.spool == nil {
		return
	}
	if err := s.spool.Push(ctx, rec); err != nil {
		logger.LogError(ctx, err, "record lost: spool write failed", "id", rec.ID)
		return
	}
	logger.Debug("record spooled for retry", "id", rec.ID)
}

// StartSpoolFlusher periodically drains the spool back into the index.
// Runs until the context is cancelled.
func (s *Indexer) StartSpoolFlusher(ctx context.Context, interval time.Duration) {
	if s.spool == nil || s.store == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.flushSpool(ctx)
			}
		}
	}()
}

func (s *Indexer) flushSpool(ctx context.Context) {
	for {
		batch, err := s.spool.PopBatch(ctx, flushBatchSize)
		if err != nil {
			logger.LogError(ctx, err, "spool read failed")
			return
		}
		if len(batch) == 0 {
			return
		}
		for i, rec := range batch {
			if err := s.store.Insert(ctx, rec); err != nil {
				// Index still down; put the rest back and try next tick.
				if reqErr := s.spool.Requeue(ctx, batch[i:]); reqErr != nil {
					logger.LogError(ctx, reqErr, "spool requeue failed", "lost", len(batch)-i)
				}
				return
			}
		}
		logger.Info("flushed spooled records", "count", len(batch))
		if len(batch) < flushBatchSize {
			return
		}
	}
}

// Close drains the queue and stops the consumer. Enqueue must not be
// called afterwards.
func (s *Indexer) Close() {
	close(s.logChan)
	<-s.done
}

// recordBuffer keeps the newest records in a fixed-size ring.
type recordBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.RequestLog
	nextIndex int
}

func newRecordBuffer(maxSize int) *recordBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &recordBuffer{
		maxSize: maxSize,
		records: make([]*model.RequestLog, 0, maxSize),
	}
}

func (b *recordBuffer) Add(rec *model.RequestLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, rec)
		return
	}
	b.records[b.nextIndex] = rec
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List walks the ring newest-first, applying the exact-field filter.
func (b *recordBuffer) List(f model.LogFilter) []*model.RequestLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := f.Limit
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.RequestLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		rec := b.records[idx]
		if rec == nil {
			continue
		}
		if !f.Matches(rec) {
			continue
		}
		results = append(results, rec)
		if len(results) >= limit {
			break
		}
	}
	return results
}

// Stats counts ring records per endpoint/model/status. Good enough for
// the stats endpoint while the index is unreachable.
func (b *recordBuffer) Stats(from, to *time.Time) *model.UsageStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	byEndpoint := map[string]int64{}
	byModel := map[string]int64{}
	byStatus := map[string]int64{}
	latencySum := map[string]int64{}

	stats := &model.UsageStats{Source: "buffer"}
	for _, rec := range b.records {
		if rec == nil {
			continue
		}
		if from != nil && rec.Timestamp.Before(*from) {
			continue
		}
		if to != nil && rec.Timestamp.After(*to) {
			continue
		}
		stats.Total++
		byEndpoint[rec.Endpoint]++
		byModel[rec.Model]++
		byStatus[rec.Status]++
		latencySum[rec.Endpoint] += rec.LatencyMs
	}

	for endpoint, count := range byEndpoint {
		stats.ByEndpoint = append(stats.ByEndpoint, model.EndpointStat{
			Endpoint:     endpoint,
			Count:        count,
			AvgLatencyMs: float64(latencySum[endpoint]) / float64(count),
		})
	}
	sort.Slice(stats.ByEndpoint, func(i, j int) bool {
		return stats.ByEndpoint[i].Count > stats.ByEndpoint[j].Count
	})
	stats.ByModel = sortedBuckets(byModel)
	stats.ByStatus = sortedBuckets(byStatus)
	return stats
}

func sortedBuckets(counts map[string]int64) []model.Bucket {
	buckets := make([]model.Bucket, 0, len(counts))
	for key, count := range counts {
		buckets = append(buckets, model.Bucket{Key: key, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count == buckets[j].Count {
			return buckets[i].Key < buckets[j].Key
		}
		return buckets[i].Count > buckets[j].Count
	})
	return buckets
}
