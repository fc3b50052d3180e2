// Package config loads the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/db"
	"divly_backend/internal/platform/externalapi/twelvedata"
	"divly_backend/internal/platform/externalapi/yahoo"
	"divly_backend/internal/platform/redis"
)

const (
	ProviderYahoo      = "yahoo"
	ProviderTwelveData = "twelvedata"
)

// Config holds all configuration for the server and the refresh job.
type Config struct {
	HTTPAddr string
	LogLevel slog.Level

	DB           db.Config
	Redis        redis.Config
	RedisEnabled bool

	MarketProvider      string
	TwelveData          twelvedata.Config
	Yahoo               yahoo.Config
	MarketRateLimit     int // requests per MarketRateInterval, 0 disables limiting
	MarketRateInterval  time.Duration
	RefreshRateLimit    int // symbols per RefreshRateInterval in the batch refresh
	RefreshRateInterval time.Duration

	Stock usecase.Config
}

// NewViper loads .env when present and returns a viper instance with defaults
// and environment overrides. Commands may bind flags into it before Load.
func NewViper() *viper.Viper {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		HTTPAddr: v.GetString("HTTP_ADDR"),
		LogLevel: level,
		DB: db.Config{
			Driver:         strings.ToLower(v.GetString("DB_DRIVER")),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Name:           v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			SQLitePath:     v.GetString("DB_SQLITE_PATH"),
			RunMigrations:  v.GetBool("DB_MIGRATE"),
			ConnectTimeout: v.GetDuration("DB_CONNECT_TIMEOUT"),
		},
		Redis: redis.Config{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RedisEnabled:   v.GetBool("REDIS_ENABLED"),
		MarketProvider: strings.ToLower(v.GetString("MARKET_PROVIDER")),
		TwelveData: twelvedata.Config{
			TwelveDataAPIKey: v.GetString("TWELVE_DATA_API_KEY"),
			BaseURL:          v.GetString("TWELVE_DATA_BASE_URL"),
			Timeout:          v.GetDuration("TWELVE_DATA_TIMEOUT"),
		},
		Yahoo: yahoo.Config{
			BaseURL:   v.GetString("YAHOO_BASE_URL"),
			CookieURL: v.GetString("YAHOO_COOKIE_URL"),
			UserAgent: v.GetString("YAHOO_USER_AGENT"),
			Timeout:   v.GetDuration("YAHOO_TIMEOUT"),
		},
		MarketRateLimit:     v.GetInt("MARKET_RATE_LIMIT"),
		MarketRateInterval:  v.GetDuration("MARKET_RATE_INTERVAL"),
		RefreshRateLimit:    v.GetInt("REFRESH_RATE_LIMIT"),
		RefreshRateInterval: v.GetDuration("REFRESH_RATE_INTERVAL"),
		Stock: usecase.Config{
			ProviderTimeout: v.GetDuration("STOCK_PROVIDER_TIMEOUT"),
			RefreshTimeout:  v.GetDuration("STOCK_REFRESH_TIMEOUT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.MarketProvider {
	case ProviderYahoo:
	case ProviderTwelveData:
		if c.TwelveData.TwelveDataAPIKey == "" {
			return errors.New("TWELVE_DATA_API_KEY is required when MARKET_PROVIDER=twelvedata")
		}
	default:
		return fmt.Errorf("MARKET_PROVIDER: unknown provider %q", c.MarketProvider)
	}

	switch c.DB.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER: unknown driver %q", c.DB.Driver)
	}

	if c.Stock.ProviderTimeout <= 0 || c.Stock.RefreshTimeout <= 0 {
		return errors.New("STOCK_PROVIDER_TIMEOUT and STOCK_REFRESH_TIMEOUT must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	stock := usecase.DefaultConfig()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", db.DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "divly")
	v.SetDefault("DB_NAME", "divly")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "divly.db")
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("DB_CONNECT_TIMEOUT", "30s")

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MARKET_PROVIDER", ProviderYahoo)
	v.SetDefault("TWELVE_DATA_BASE_URL", twelvedata.DefaultBaseURL)
	v.SetDefault("TWELVE_DATA_TIMEOUT", "10s")
	v.SetDefault("YAHOO_BASE_URL", yahoo.DefaultBaseURL)
	v.SetDefault("YAHOO_COOKIE_URL", yahoo.DefaultCookieURL)
	v.SetDefault("YAHOO_USER_AGENT", yahoo.DefaultUserAgent)
	v.SetDefault("YAHOO_TIMEOUT", "10s")

	// Twelve Data free tier: 8 requests per minute
	v.SetDefault("MARKET_RATE_LIMIT", 8)
	v.SetDefault("MARKET_RATE_INTERVAL", "1m")
	v.SetDefault("REFRESH_RATE_LIMIT", 1)
	v.SetDefault("REFRESH_RATE_INTERVAL", "2s")

	v.SetDefault("STOCK_PROVIDER_TIMEOUT", stock.ProviderTimeout.String())
	v.SetDefault("STOCK_REFRESH_TIMEOUT", stock.RefreshTimeout.String())
}
