// Package config loads service configuration from the environment, optionally
// seeded from a YAML file named by CONFIG_FILE.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

var defaultSources = []string{
	"./data/trending_products.json",
	"./data/new_products.json",
	"./data/best_selling_products.json",
}

// Config holds server configuration.
type Config struct {
	Port           string   `yaml:"port"`
	LogLevel       string   `yaml:"log_level"`
	StoreDriver    string   `yaml:"store_driver"`
	SQLitePath     string   `yaml:"sqlite_path"`
	RedisAddr      string   `yaml:"redis_addr"`
	RedisPassword  string   `yaml:"redis_password"`
	RedisDB        int      `yaml:"redis_db"`
	CatalogSources []string `yaml:"catalog_sources"`
	ShippingFee    int64    `yaml:"shipping_fee"`
	Locale         string   `yaml:"locale"`
	CurrencySuffix string   `yaml:"currency_suffix"`
	Workers        int      `yaml:"workers"`
	QueueSize      int      `yaml:"queue_size"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	// SessionIdleTTL evicts live sessions unused for this long.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
}

func Defaults() Config {
	return Config{
		Port:           "8080",
		LogLevel:       "info",
		StoreDriver:    DriverSQLite,
		SQLitePath:     "storefront.db",
		RedisAddr:      "localhost:6379",
		CatalogSources: append([]string(nil), defaultSources...),
		ShippingFee:    30000,
		Locale:         "uz",
		CurrencySuffix: "so'm",
		Workers:        4,
		QueueSize:      128,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		SessionIdleTTL: 30 * time.Minute,
	}
}

// Load builds the configuration: defaults, then CONFIG_FILE, then env vars.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	cfg.Port = getenv("PORT", cfg.Port)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", cfg.StoreDriver))
	cfg.SQLitePath = getenv("SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = atoi(os.Getenv("REDIS_DB"), cfg.RedisDB)
	if v := os.Getenv("CATALOG_SOURCES"); v != "" {
		cfg.CatalogSources = splitList(v)
	}
	cfg.ShippingFee = atoi64(os.Getenv("SHIPPING_FEE"), cfg.ShippingFee)
	cfg.Locale = getenv("LOCALE", cfg.Locale)
	cfg.CurrencySuffix = getenv("CURRENCY_SUFFIX", cfg.CurrencySuffix)
	cfg.Workers = atoi(os.Getenv("WORKERS"), cfg.Workers)
	cfg.QueueSize = atoi(os.Getenv("QUEUE_SIZE"), cfg.QueueSize)
	if n, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64); err == nil {
		cfg.RateLimitRPS = n
	}
	cfg.RateLimitBurst = atoi(os.Getenv("RATE_LIMIT_BURST"), cfg.RateLimitBurst)
	if d, err := time.ParseDuration(os.Getenv("SESSION_IDLE_TTL")); err == nil {
		cfg.SessionIdleTTL = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		return errors.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return errors.Errorf("queue size must not be negative, got %d", c.QueueSize)
	}
	if len(c.CatalogSources) == 0 {
		return errors.New("no catalog sources configured")
	}
	if c.SessionIdleTTL <= 0 {
		return errors.Errorf("session idle ttl must be positive, got %s", c.SessionIdleTTL)
	}
	if c.ShippingFee < 0 {
		return errors.Errorf("shipping fee must not be negative, got %d", c.ShippingFee)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func atoi64(s string, def int64) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
