package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyIsStable(t *testing.T) {
	a := CacheKey("summarize", "llama3.1:8b", "", "some text")
	b := CacheKey("summarize", "llama3.1:8b", "", "some text")
	assert.Equal(t, a, b)
	assert.Equal(t, 64, len(a)) // hex sha256
}

func TestCacheKeyVariesPerInput(t *testing.T) {
	base := CacheKey("summarize", "llama3.1:8b", "", "some text")
	assert.NotEqual(t, base, CacheKey("translate", "llama3.1:8b", "", "some text"))
	assert.NotEqual(t, base, CacheKey("summarize", "mistral:7b", "", "some text"))
	assert.NotEqual(t, base, CacheKey("summarize", "llama3.1:8b", "German", "some text"))
	assert.NotEqual(t, base, CacheKey("summarize", "llama3.1:8b", "", "other text"))
}

func TestMemoryCacheSetGet(t *testing.T) {
	cache := NewMemoryResponseCache(time.Minute, 10)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "missing")
	assert.False(t, ok)

	cache.Set(ctx, "k1", "v1")
	value, ok := cache.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", value)
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryResponseCache(10*time.Millisecond, 10)
	ctx := context.Background()

	cache.Set(ctx, "k1", "v1")
	time.Sleep(25 * time.Millisecond)

	_, ok := cache.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryCacheFullSkipsNewEntries(t *testing.T) {
	cache := NewMemoryResponseCache(time.Minute, 2)
	ctx := context.Background()

	cache.Set(ctx, "k1", "v1")
	cache.Set(ctx, "k2", "v2")
	cache.Set(ctx, "k3", "v3")

	_, ok := cache.Get(ctx, "k3")
	assert.False(t, ok)
	value, ok := cache.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", value)
}
