package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"market-mirror-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string        `yaml:"env"`
	Feed        FeedConfig    `yaml:"feed"`
	Book        BookConfig    `yaml:"book"`
	Trades      TradesConfig  `yaml:"trades"`
	Catalog     CatalogConfig `yaml:"catalog"`
	Logger      logger.Config `yaml:"logger"`
	MetricsAddr string        `yaml:"metricsAddr"`
}

type FeedConfig struct {
	WSEndpoint           string `yaml:"wsEndpoint"`
	RestURL              string `yaml:"restURL"`
	MaxConsecutiveErrors int    `yaml:"maxConsecutiveErrors"`
}

type BookConfig struct {
	DepthCap          int `yaml:"depthCap"`
	PublishIntervalMs int `yaml:"publishIntervalMs"`
}

type TradesConfig struct {
	MaxCount    int `yaml:"maxCount"`
	HighlightMs int `yaml:"highlightMs"`
}

// CatalogConfig 控制 instrument 目录请求与默认交易对。
type CatalogConfig struct {
	RatePerSec         float64 `yaml:"ratePerSec"`
	Burst              int     `yaml:"burst"`
	SettlementCurrency string  `yaml:"settlementCurrency"`
	DefaultRootSymbol  string  `yaml:"defaultRootSymbol"`
}

// PublishInterval returns the book publish interval as a duration.
func (b BookConfig) PublishInterval() time.Duration {
	return time.Duration(b.PublishIntervalMs) * time.Millisecond
}

// HighlightDelay returns the trade highlight lifetime as a duration.
func (t TradesConfig) HighlightDelay() time.Duration {
	return time.Duration(t.HighlightMs) * time.Millisecond
}

// Default returns the configuration used when no file is supplied.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Feed: FeedConfig{
			WSEndpoint:           "wss://www.bitmex.com/realtime",
			RestURL:              "https://www.bitmex.com/api/v1",
			MaxConsecutiveErrors: 2,
		},
		Book: BookConfig{
			DepthCap:          20,
			PublishIntervalMs: 500,
		},
		Trades: TradesConfig{
			MaxCount:    30,
			HighlightMs: 200,
		},
		Catalog: CatalogConfig{
			RatePerSec:         2,
			Burst:              4,
			SettlementCurrency: "USD",
			DefaultRootSymbol:  "XBT",
		},
		Logger:      logger.DefaultConfig(),
		MetricsAddr: "",
	}
}

// Load reads YAML config from path, fills defaults and validates.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides endpoint fields from env
// vars if present, so deployments can point at a testnet without editing the
// file.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MIRROR_WS_ENDPOINT"); v != "" {
		cfg.Feed.WSEndpoint = v
	}
	if v := os.Getenv("MIRROR_REST_URL"); v != "" {
		cfg.Feed.RestURL = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Feed.WSEndpoint == "" {
		return errors.New("feed.wsEndpoint is required")
	}
	if cfg.Feed.RestURL == "" {
		return errors.New("feed.restURL is required")
	}
	if cfg.Feed.MaxConsecutiveErrors <= 0 {
		return errors.New("feed.maxConsecutiveErrors must be > 0")
	}
	if cfg.Book.DepthCap <= 0 {
		return errors.New("book.depthCap must be > 0")
	}
	if cfg.Book.PublishIntervalMs < 0 {
		return errors.New("book.publishIntervalMs must be >= 0")
	}
	if cfg.Trades.MaxCount <= 0 {
		return errors.New("trades.maxCount must be > 0")
	}
	if cfg.Trades.HighlightMs < 0 {
		return errors.New("trades.highlightMs must be >= 0")
	}
	if cfg.Catalog.RatePerSec <= 0 {
		return errors.New("catalog.ratePerSec must be > 0")
	}
	if cfg.Catalog.Burst <= 0 {
		return errors.New("catalog.burst must be > 0")
	}
	if cfg.Catalog.SettlementCurrency == "" {
		return errors.New("catalog.settlementCurrency is required")
	}
	if cfg.Catalog.DefaultRootSymbol == "" {
		return errors.New("catalog.defaultRootSymbol is required")
	}
	return nil
}
