package service

import (
	"context"
	"sync"
	"time"
)

// UsageRepo tracks per-client daily consumption (request count and
// generated tokens). Backed by Redis in production, by memory when no
// Redis is configured.
type UsageRepo interface {
	GetDailyUsage(ctx context.Context, clientID string) (int, int64, error)
	AddDailyUsage(ctx context.Context, clientID string, requests int, tokens int64) error
}

// MemoryUsageStore keeps daily counters in process memory. Counters for
// past days are never read again; they just sit until restart.
type MemoryUsageStore struct {
	mu            sync.RWMutex
	dailyRequests map[string]int   // Key: ClientID:YYYY-MM-DD
	dailyTokens   map[string]int64 // Key: ClientID:YYYY-MM-DD
}

func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{
		dailyRequests: make(map[string]int),
		dailyTokens:   make(map[string]int64),
	}
}

func (s *MemoryUsageStore) GetDailyUsage(ctx context.Context, clientID string) (int, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := s.makeKey(clientID)
	return s.dailyRequests[key], s.dailyTokens[key], nil
}

func (s *MemoryUsageStore) AddDailyUsage(ctx context.Context, clientID string, requests int, tokens int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.makeKey(clientID)
	s.dailyRequests[key] += requests
	s.dailyTokens[key] += tokens
	return nil
}

func (s *MemoryUsageStore) makeKey(clientID string) string {
	// split by UTC date
	return clientID + ":" + time.Now().UTC().Format("2006-01-02")
}
