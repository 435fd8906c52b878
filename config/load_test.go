package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
env: prod
feed:
  wsEndpoint: wss://testnet.bitmex.com/realtime
  restURL: https://testnet.bitmex.com/api/v1
  maxConsecutiveErrors: 4
book:
  depthCap: 10
  publishIntervalMs: 250
trades:
  maxCount: 15
  highlightMs: 100
catalog:
  ratePerSec: 5
  burst: 10
  settlementCurrency: USD
  defaultRootSymbol: XBT
metricsAddr: ":9100"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Env != "prod" {
		t.Errorf("env = %s", cfg.Env)
	}
	if cfg.Feed.WSEndpoint != "wss://testnet.bitmex.com/realtime" {
		t.Errorf("wsEndpoint = %s", cfg.Feed.WSEndpoint)
	}
	if cfg.Feed.MaxConsecutiveErrors != 4 {
		t.Errorf("maxConsecutiveErrors = %d", cfg.Feed.MaxConsecutiveErrors)
	}
	if cfg.Book.DepthCap != 10 {
		t.Errorf("depthCap = %d", cfg.Book.DepthCap)
	}
	if cfg.Trades.MaxCount != 15 {
		t.Errorf("maxCount = %d", cfg.Trades.MaxCount)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("metricsAddr = %s", cfg.MetricsAddr)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	// 只给最小字段，其余取默认值
	cfg, err := Load(writeConfig(t, "env: dev\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Book.DepthCap != 20 {
		t.Errorf("default depthCap = %d, want 20", cfg.Book.DepthCap)
	}
	if cfg.Trades.MaxCount != 30 {
		t.Errorf("default maxCount = %d, want 30", cfg.Trades.MaxCount)
	}
	if cfg.Catalog.DefaultRootSymbol != "XBT" {
		t.Errorf("default root = %s, want XBT", cfg.Catalog.DefaultRootSymbol)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MIRROR_WS_ENDPOINT", "wss://override.example/realtime")
	t.Setenv("MIRROR_REST_URL", "https://override.example/api/v1")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides failed: %v", err)
	}
	if cfg.Feed.WSEndpoint != "wss://override.example/realtime" {
		t.Errorf("wsEndpoint = %s, want override", cfg.Feed.WSEndpoint)
	}
	if cfg.Feed.RestURL != "https://override.example/api/v1" {
		t.Errorf("restURL = %s, want override", cfg.Feed.RestURL)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing env", func(c *AppConfig) { c.Env = "" }},
		{"missing ws endpoint", func(c *AppConfig) { c.Feed.WSEndpoint = "" }},
		{"missing rest url", func(c *AppConfig) { c.Feed.RestURL = "" }},
		{"bad error threshold", func(c *AppConfig) { c.Feed.MaxConsecutiveErrors = 0 }},
		{"bad depth cap", func(c *AppConfig) { c.Book.DepthCap = 0 }},
		{"negative publish interval", func(c *AppConfig) { c.Book.PublishIntervalMs = -1 }},
		{"bad trade cap", func(c *AppConfig) { c.Trades.MaxCount = 0 }},
		{"negative highlight", func(c *AppConfig) { c.Trades.HighlightMs = -1 }},
		{"bad catalog rate", func(c *AppConfig) { c.Catalog.RatePerSec = 0 }},
		{"missing settlement", func(c *AppConfig) { c.Catalog.SettlementCurrency = "" }},
		{"missing default root", func(c *AppConfig) { c.Catalog.DefaultRootSymbol = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.Book.PublishInterval().Milliseconds() != 500 {
		t.Errorf("publish interval = %v", cfg.Book.PublishInterval())
	}
	if cfg.Trades.HighlightDelay().Milliseconds() != 200 {
		t.Errorf("highlight delay = %v", cfg.Trades.HighlightDelay())
	}
}
