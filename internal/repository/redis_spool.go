package repository

import (
	"context"
	"encoding/json"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisSpool is the holding pen for records that could not be written
// to the search index. Records wait in a capped list until the index
// flusher drains them.
type RedisSpool struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisSpool(client *RedisClient, listKey string, listMax int) *RedisSpool {
	if listKey == "" {
		listKey = "ai-requests:spool"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisSpool{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

// Push spools one record. When the list is at capacity the oldest
// spooled records fall off the far end.
func (s *RedisSpool) Push(ctx context.Context, rec *model.RequestLog) error {
	if rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Client.LPush(ctx, s.listKey, string(payload)).Err(); err != nil {
		return err
	}
	return s.client.Client.LTrim(ctx, s.listKey, 0, int64(s.listMax-1)).Err()
}

// PopBatch removes and returns up to n spooled records. Entries that no
// longer decode are skipped.
func (s *RedisSpool) PopBatch(ctx context.Context, n int) ([]*model.RequestLog, error) {
	if n <= 0 {
		n = 100
	}
	items, err := s.client.Client.LPopCount(ctx, s.listKey, n).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	records := make([]*model.RequestLog, 0, len(items))
	for _, item := range items {
		var rec model.RequestLog
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Requeue puts records back at the head of the spool after a failed
// flush attempt.
func (s *RedisSpool) Requeue(ctx context.Context, recs []*model.RequestLog) error {
	for i := len(recs) - 1; i >= 0; i-- {
		payload, err := json.Marshal(recs[i])
		if err != nil {
			continue
		}
		if err := s.client.Client.LPush(ctx, s.listKey, string(payload)).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns how many records are waiting in the spool.
func (s *RedisSpool) Depth(ctx context.Context) (int64, error) {
	return s.client.Client.LLen(ctx, s.listKey).Result()
}
