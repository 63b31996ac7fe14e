package model

// RateLimitConfig is a client's request-rate policy.
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`   // sustained requests per second
	Burst int     `json:"burst"` // token bucket size
}

// QuotaConfig caps a client's daily consumption. Zero means unlimited.
type QuotaConfig struct {
	DailyRequests int   `json:"daily_requests"`
	DailyTokens   int64 `json:"daily_tokens"` // generated tokens per day
}

// APIClient represents one caller of the orchestrator (a bot, a frontend,
// a batch job). Clients are declared in configuration; when authentication
// is disabled every request maps to the default client.
type APIClient struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	APIKey  string          `json:"api_key"` // key presented in X-API-Key
	Rate    RateLimitConfig `json:"rate_limit"`
	Quota   QuotaConfig     `json:"quota"`
	Default bool            `json:"default,omitempty"`
}
