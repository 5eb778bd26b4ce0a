package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
		// User 默认的 user_reference
		User string `toml:"user"`
	} `toml:"app"`

	Storage struct {
		Driver string `toml:"driver"` // sqlite | postgres
		SQLite struct {
			Path string `toml:"path"`
		} `toml:"sqlite"`
		Postgres struct {
			DSN string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`

	Redis struct {
		Enabled       bool   `toml:"enabled"`
		Addr          string `toml:"addr"`
		Password      string `toml:"password"`
		DB            int    `toml:"db"`
		Prefix        string `toml:"prefix"`
		TTLSeconds    int    `toml:"ttl_seconds"`
		SignalStream  string `toml:"signal_stream"`
		SignalChannel string `toml:"signal_channel"`
	} `toml:"redis"`

	OKX struct {
		RestURL         string  `toml:"rest_url"`
		WsPublicURL     string  `toml:"ws_public_url"`
		APIKey          string  `toml:"api_key"`
		APISecret       string  `toml:"api_secret"`
		Passphrase      string  `toml:"passphrase"`
		Simulated       bool    `toml:"simulated"`
		BillsRatePerSec float64 `toml:"bills_rate_per_sec"`
	} `toml:"okx"`

	Feeds struct {
		TimeoutSeconds int    `toml:"timeout_seconds"`
		UserAgent      string `toml:"user_agent"`
	} `toml:"feeds"`

	Risk struct {
		ReportingCurrency string  `toml:"reporting_currency"`
		RiskFreeRate      float64 `toml:"risk_free_rate"`
		// MaxDeltaMs 标记价格最大陈旧度，<=0 不限制
		MaxDeltaMs int64 `toml:"max_delta_ms"`
	} `toml:"risk"`

	Arbitrage struct {
		Base            string  `toml:"base"`
		Quote           string  `toml:"quote"`
		Side            string  `toml:"side"`
		MaxNotional     float64 `toml:"max_notional"`
		RetryIntervalMs int     `toml:"retry_interval_ms"`
		LockTTLSeconds  int     `toml:"lock_ttl_seconds"`
	} `toml:"arbitrage"`

	Bills struct {
		BuildDir  string `toml:"build_dir"`
		SinceDays int    `toml:"since_days"`
	} `toml:"bills"`
}

// Load 读取 TOML，再用 .env / 环境变量覆盖敏感字段
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.OKX.APIKey, "OKX_API_KEY")
	override(&cfg.OKX.APISecret, "OKX_API_SECRET")
	override(&cfg.OKX.Passphrase, "OKX_PASSPHRASE")
	override(&cfg.Storage.Postgres.DSN, "MDRISK_POSTGRES_DSN")
	override(&cfg.Redis.Password, "MDRISK_REDIS_PASSWORD")
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.User == "" {
		cfg.App.User = "default"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/mdrisk.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "mdrisk"
	}
	if cfg.Feeds.TimeoutSeconds <= 0 {
		cfg.Feeds.TimeoutSeconds = 120
	}
	if cfg.Risk.ReportingCurrency == "" {
		cfg.Risk.ReportingCurrency = "USD"
	}
	cfg.Risk.ReportingCurrency = strings.ToUpper(cfg.Risk.ReportingCurrency)
	if cfg.Arbitrage.Quote == "" {
		cfg.Arbitrage.Quote = "USDT"
	}
	cfg.Arbitrage.Base = strings.ToUpper(strings.TrimSpace(cfg.Arbitrage.Base))
	cfg.Arbitrage.Quote = strings.ToUpper(strings.TrimSpace(cfg.Arbitrage.Quote))
	if cfg.Arbitrage.Side == "" {
		cfg.Arbitrage.Side = "long"
	}
	if cfg.Arbitrage.RetryIntervalMs <= 0 {
		cfg.Arbitrage.RetryIntervalMs = 100
	}
	if cfg.Arbitrage.LockTTLSeconds <= 0 {
		cfg.Arbitrage.LockTTLSeconds = 3600
	}
	if cfg.Bills.BuildDir == "" {
		cfg.Bills.BuildDir = "build"
	}
	if cfg.Bills.SinceDays <= 0 {
		cfg.Bills.SinceDays = 90
	}
	if cfg.OKX.BillsRatePerSec <= 0 {
		// bills-archive 限速 5 次 / 2 秒
		cfg.OKX.BillsRatePerSec = 2.5
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn is empty but driver is postgres")
		}
	default:
		return fmt.Errorf("storage.driver %q unsupported", cfg.Storage.Driver)
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Arbitrage.MaxNotional < 0 {
		return errors.New("arbitrage.max_notional must not be negative")
	}
	return nil
}

// HasOKXCredentials 私有接口需要三项凭证
func (c *Config) HasOKXCredentials() bool {
	return c.OKX.APIKey != "" && c.OKX.APISecret != "" && c.OKX.Passphrase != ""
}
