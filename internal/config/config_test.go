package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"basic_config": {"server_address": ":9000"},
		"webhook": {"secret": "s3cret"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9000" {
		t.Fatalf("server address = %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.RateLimit.Ceiling != DefaultRateLimitCeiling {
		t.Fatalf("ceiling = %d, want default %d", cfg.RateLimit.Ceiling, DefaultRateLimitCeiling)
	}
	if cfg.RateLimit.WindowHours != DefaultRateWindowHours {
		t.Fatalf("window hours = %d, want default %d", cfg.RateLimit.WindowHours, DefaultRateWindowHours)
	}
	if cfg.RateLimit.FailOpen {
		t.Fatalf("limiter must default to fail-closed")
	}
	if cfg.BasicConfig.MinWorkers <= 0 || cfg.BasicConfig.MaxWorkers < cfg.BasicConfig.MinWorkers {
		t.Fatalf("worker defaults not applied: %+v", cfg.BasicConfig)
	}
}

func TestLoadExplicitRateLimit(t *testing.T) {
	path := writeConfig(t, `{
		"webhook": {"secret": "s3cret"},
		"rate_limit": {"ceiling": 50, "window_hours": 1, "fail_open": true}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimit.Ceiling != 50 || cfg.RateLimit.WindowHours != 1 || !cfg.RateLimit.FailOpen {
		t.Fatalf("rate limit config not honored: %+v", cfg.RateLimit)
	}
}

func TestLoadSecretEnvOverride(t *testing.T) {
	path := writeConfig(t, `{"webhook": {"secret": "from-file"}}`)
	t.Setenv("OURA_WEBHOOK_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Fatalf("secret = %q, env must win", cfg.Webhook.Secret)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	path := writeConfig(t, `{"basic_config": {"server_address": ":9000"}}`)
	t.Setenv("OURA_WEBHOOK_TOKEN", "")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when no webhook secret is configured")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
