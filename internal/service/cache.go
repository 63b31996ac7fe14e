package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// ResponseCache memoizes generated responses. Generation runs with a
// near-zero temperature, so the same input through the same model and
// endpoint yields the same output for the cache TTL.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// CacheKey hashes everything that shapes the output: the operation, the
// model, the translation target and the full input text.
func CacheKey(endpoint, modelName, targetLang, text string) string {
	sum := sha256.Sum256([]byte(endpoint + "|" + modelName + "|" + targetLang + "|" + text))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryResponseCache is the in-process fallback when no Redis is
// configured. Expired entries are collected lazily; when the cache is
// full and nothing expired, new entries are simply not stored.
type MemoryResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]cacheEntry
}

func NewMemoryResponseCache(ttl time.Duration, maxSize int) *MemoryResponseCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryResponseCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]cacheEntry),
	}
}

func (c *MemoryResponseCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *MemoryResponseCache) Set(ctx context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.sweepExpiredLocked()
		if len(c.entries) >= c.maxSize {
			return
		}
	}
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *MemoryResponseCache) sweepExpiredLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
