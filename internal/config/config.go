package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Auth    AuthConfig     `mapstructure:"auth"`
	Ollama  OllamaConfig   `mapstructure:"ollama"`
	Search  SearchConfig   `mapstructure:"search"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Limits  LimitsConfig   `mapstructure:"limits"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Clients []ClientConfig `mapstructure:"clients"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`   // key of the default client
	AdminKey      string `mapstructure:"admin_key"` // gates model pulls when set
}

type OllamaConfig struct {
	// Candidate base URLs, probed in order. Covers bare metal, the service
	// running inside a container next to a host Ollama, and full compose.
	URLs            []string      `mapstructure:"urls"`
	DefaultModel    string        `mapstructure:"default_model"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	PullTimeout     time.Duration `mapstructure:"pull_timeout"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"` // num_predict
}

type SearchConfig struct {
	URL           string        `mapstructure:"url"`
	Index         string        `mapstructure:"index"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SpoolKey      string        `mapstructure:"spool_key"` // redis list for records that failed to index
	SpoolMax      int           `mapstructure:"spool_max"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type LimitsConfig struct {
	QPS           float64 `mapstructure:"qps"`   // per client, 0 = unlimited
	Burst         int     `mapstructure:"burst"` // token bucket size
	MaxTextChars  int     `mapstructure:"max_text_chars"`
	DailyRequests int     `mapstructure:"daily_requests"`
	DailyTokens   int64   `mapstructure:"daily_tokens"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ClientConfig struct {
	ID            string  `mapstructure:"id"`
	Name          string  `mapstructure:"name"`
	APIKey        string  `mapstructure:"api_key"`
	QPS           float64 `mapstructure:"qps"`
	Burst         int     `mapstructure:"burst"`
	DailyRequests int     `mapstructure:"daily_requests"`
	DailyTokens   int64   `mapstructure:"daily_tokens"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. AIORCH_OLLAMA_DEFAULT_MODEL, AIORCH_SEARCH_URL
	viper.SetEnvPrefix("aiorch")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.api_key", "")
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("ollama.urls", []string{
		"http://localhost:11434",
		"http://host.docker.internal:11434",
		"http://ollama:11434",
	})
	viper.SetDefault("ollama.default_model", "llama3.1:8b")
	viper.SetDefault("ollama.probe_timeout", "5s")
	viper.SetDefault("ollama.generate_timeout", "120s")
	viper.SetDefault("ollama.pull_timeout", "10m")
	viper.SetDefault("ollama.temperature", 0.1)
	viper.SetDefault("ollama.max_tokens", 500)
	viper.SetDefault("search.url", "http://localhost:9200")
	viper.SetDefault("search.index", "ai-requests")
	viper.SetDefault("search.timeout", "10s")
	viper.SetDefault("search.spool_key", "ai-requests:spool")
	viper.SetDefault("search.spool_max", 10000)
	viper.SetDefault("search.flush_interval", "30s")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "15m")
	viper.SetDefault("limits.qps", 10)
	viper.SetDefault("limits.burst", 20)
	viper.SetDefault("limits.max_text_chars", 0)
	viper.SetDefault("limits.daily_requests", 0)
	viper.SetDefault("limits.daily_tokens", 0)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
