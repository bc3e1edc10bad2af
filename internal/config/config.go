package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Webhook     WebhookConfig             `json:"webhook"`
	RateLimit   RateLimitConfig           `json:"rate_limit"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Assistant   AssistantConfig           `json:"assistant"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	MinWorkers    int    `json:"min_workers"`
	MaxWorkers    int    `json:"max_workers"`
	QueueSize     int    `json:"queue_size"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type WebhookConfig struct {
	Secret string `json:"secret"`
}

// RateLimitConfig controls the fixed-window caller limiter. FailOpen decides
// what happens when the counter store is unreachable: admit the request
// (true) or reject it with an upstream error (false, the default).
type RateLimitConfig struct {
	Ceiling     int  `json:"ceiling"`
	WindowHours int  `json:"window_hours"`
	FailOpen    bool `json:"fail_open"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// AssistantConfig selects which configured provider answers health queries.
type AssistantConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

const (
	DefaultRateLimitCeiling = 1000
	DefaultRateWindowHours  = 24
)

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Webhook.Secret == "" {
		return nil, fmt.Errorf("webhook secret must be configured")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	// The deploy environment may rotate the webhook secret without touching
	// the config file.
	if env := os.Getenv("OURA_WEBHOOK_TOKEN"); env != "" {
		cfg.Webhook.Secret = env
	}
	if cfg.RateLimit.Ceiling <= 0 {
		cfg.RateLimit.Ceiling = DefaultRateLimitCeiling
	}
	if cfg.RateLimit.WindowHours <= 0 {
		cfg.RateLimit.WindowHours = DefaultRateWindowHours
	}
	if cfg.BasicConfig.MinWorkers <= 0 {
		cfg.BasicConfig.MinWorkers = 1
	}
	if cfg.BasicConfig.MaxWorkers < cfg.BasicConfig.MinWorkers {
		cfg.BasicConfig.MaxWorkers = cfg.BasicConfig.MinWorkers
	}
	if cfg.BasicConfig.QueueSize <= 0 {
		cfg.BasicConfig.QueueSize = 64
	}
}
