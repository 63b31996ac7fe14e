package service

import (
	"testing"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestClientManagerDefaultClient(t *testing.T) {
	cm := NewClientManager(&config.Config{})

	def := cm.DefaultClient()
	assert.NotNil(t, def)
	assert.Equal(t, "default", def.ID)
	assert.True(t, def.Default)

	// No API key configured, so no key opens the door.
	_, ok := cm.GetByAPIKey("")
	assert.False(t, ok)
}

func TestClientManagerDefaultKeyFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.APIKey = "sk-master"
	cm := NewClientManager(cfg)

	client, ok := cm.GetByAPIKey("sk-master")
	assert.True(t, ok)
	assert.Equal(t, "default", client.ID)
}

func TestClientManagerConfiguredClients(t *testing.T) {
	cfg := &config.Config{
		Clients: []config.ClientConfig{
			{ID: "bot-1", Name: "Batch Bot", APIKey: "sk-bot-1", QPS: 5, Burst: 10, DailyRequests: 100},
		},
	}
	cfg.Limits.QPS = 2
	cfg.Limits.Burst = 4
	cfg.Limits.DailyTokens = 50000
	cm := NewClientManager(cfg)

	client, ok := cm.GetByAPIKey("sk-bot-1")
	assert.True(t, ok)
	assert.Equal(t, "bot-1", client.ID)
	// Per-client values win, global limits fill the gaps.
	assert.Equal(t, 5.0, client.Rate.QPS)
	assert.Equal(t, 10, client.Rate.Burst)
	assert.Equal(t, 100, client.Quota.DailyRequests)
	assert.Equal(t, int64(50000), client.Quota.DailyTokens)

	limiter := cm.LimiterFor("bot-1")
	assert.NotNil(t, limiter)
	assert.True(t, limiter.Allow())
}

func TestClientManagerZeroQPSMeansUnlimited(t *testing.T) {
	cm := NewClientManager(&config.Config{})

	limiter := cm.LimiterFor("default")
	assert.NotNil(t, limiter)
	for i := 0; i < 1000; i++ {
		assert.True(t, limiter.Allow())
	}
}

func TestClientManagerUnknownLimiter(t *testing.T) {
	cm := NewClientManager(&config.Config{})
	assert.Nil(t, cm.LimiterFor("nobody"))
}
