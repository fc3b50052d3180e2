package di

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"divly_backend/internal/app/config"
	"divly_backend/internal/platform/db"
	"divly_backend/internal/platform/http/handler"
	platformredis "divly_backend/internal/platform/redis"
)

// NewLogger installs a JSON slog handler on stdout as the default logger.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// NewRedis returns a connected client, or nil when Redis is disabled or unreachable.
// A nil client means the application runs without cache.
func NewRedis(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		slog.Info("Redis disabled. Running without cache.")
		return nil
	}
	rdb, err := platformredis.NewRedisClient(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		return nil
	}
	return rdb
}

// NewReadinessChecks returns the dependency checks served on /readyz.
func NewReadinessChecks(gdb *gorm.DB, rdb *redis.Client) map[string]handler.Check {
	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
