package service

import (
	"sync"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/model"
	"golang.org/x/time/rate"
)

// ClientManager holds the API clients declared in configuration plus
// one rate limiter per client. When authentication is disabled every
// request runs as the default client.
type ClientManager struct {
	mu            sync.RWMutex
	clients       map[string]*model.APIClient // Key: APIKey
	limiters      map[string]*rate.Limiter    // Key: ClientID
	defaultClient *model.APIClient
}

func NewClientManager(cfg *config.Config) *ClientManager {
	cm := &ClientManager{
		clients:  make(map[string]*model.APIClient),
		limiters: make(map[string]*rate.Limiter),
	}

	for _, cc := range cfg.Clients {
		client := &model.APIClient{
			ID:     cc.ID,
			Name:   cc.Name,
			APIKey: cc.APIKey,
			Rate: model.RateLimitConfig{
				QPS:   chooseFloat(cfg.Limits.QPS, cc.QPS),
				Burst: chooseInt(cfg.Limits.Burst, cc.Burst),
			},
			Quota: model.QuotaConfig{
				DailyRequests: chooseInt(cfg.Limits.DailyRequests, cc.DailyRequests),
				DailyTokens:   chooseInt64(cfg.Limits.DailyTokens, cc.DailyTokens),
			},
		}
		cm.Register(client)
	}

	// The default client serves unauthenticated mode. Its key only opens
	// the door when it is set explicitly in configuration.
	defaultClient := &model.APIClient{
		ID:      "default",
		Name:    "Default Client",
		APIKey:  cfg.Auth.APIKey,
		Default: true,
		Rate: model.RateLimitConfig{
			QPS:   cfg.Limits.QPS,
			Burst: cfg.Limits.Burst,
		},
		Quota: model.QuotaConfig{
			DailyRequests: cfg.Limits.DailyRequests,
			DailyTokens:   cfg.Limits.DailyTokens,
		},
	}
	cm.Register(defaultClient)
	cm.defaultClient = defaultClient

	return cm
}

func (cm *ClientManager) Register(c *model.APIClient) {
	if c == nil {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if c.APIKey != "" {
		cm.clients[c.APIKey] = c
	}

	// QPS 0 means no rate limit for this client.
	limit := rate.Limit(c.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := c.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	cm.limiters[c.ID] = rate.NewLimiter(limit, burst)
}

func (cm *ClientManager) GetByAPIKey(apiKey string) (*model.APIClient, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.clients[apiKey]
	return c, ok
}

func (cm *ClientManager) DefaultClient() *model.APIClient {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.defaultClient
}

func (cm *ClientManager) List() []*model.APIClient {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	results := make([]*model.APIClient, 0, len(cm.clients)+1)
	seen := make(map[string]struct{})
	for _, c := range cm.clients {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		results = append(results, c)
	}
	if cm.defaultClient != nil {
		if _, ok := seen[cm.defaultClient.ID]; !ok {
			results = append(results, cm.defaultClient)
		}
	}
	return results
}

// LimiterFor returns the rate limiter of a client, or nil when the
// client is unknown.
func (cm *ClientManager) LimiterFor(clientID string) *rate.Limiter {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.limiters[clientID]
}

func chooseFloat(base, override float64) float64 {
	if override > 0 {
		return override
	}
	return base
}

func chooseInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}

func chooseInt64(base, override int64) int64 {
	if override > 0 {
		return override
	}
	return base
}
