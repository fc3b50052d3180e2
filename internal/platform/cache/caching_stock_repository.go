// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/usecase"
)

const defaultTTL = 5 * time.Minute

// CachingStockRepository decorates a stock Repository with a Redis read-through
// cache for single-symbol lookups. Every write invalidates the symbol's entries,
// so freshness decisions made on updated_at never see a value older than the
// last write from this process.
type CachingStockRepository struct {
	inner     usecase.Repository
	rdb       *redis.Client
	ttl       func() time.Duration
	namespace string
}

var _ usecase.Repository = (*CachingStockRepository)(nil)

// NewCachingStockRepository decorates a Repository with Redis caching.
// ttl is evaluated on every cache write; if nil or non-positive it defaults to 5 minutes.
// If namespace is empty, it uses "stocks". A nil rdb disables caching.
func NewCachingStockRepository(rdb *redis.Client, ttl func() time.Duration, inner usecase.Repository, namespace string) *CachingStockRepository {
	if namespace == "" {
		namespace = "stocks"
	}
	return &CachingStockRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// FindBySymbol checks the cache first, then falls back to the inner repository.
// Not-found results are never cached.
func (c *CachingStockRepository) FindBySymbol(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
	if c.rdb == nil {
		return c.inner.FindBySymbol(ctx, symbol, includeRelations)
	}

	key := c.cacheKey(symbol, includeRelations)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Stock
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.FindBySymbol(ctx, symbol, includeRelations)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.currentTTL()).Err(); err != nil {
			slog.Warn("failed to write stock cache", "key", key, "error", err)
		}
	}
	return out, nil
}

func (c *CachingStockRepository) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Stock, error) {
	return c.inner.FindBySymbols(ctx, symbols)
}

func (c *CachingStockRepository) Search(ctx context.Context, query string, limit int) ([]entity.Stock, error) {
	return c.inner.Search(ctx, query, limit)
}

func (c *CachingStockRepository) ListSymbols(ctx context.Context) ([]string, error) {
	return c.inner.ListSymbols(ctx)
}

func (c *CachingStockRepository) FindDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
	return c.inner.FindDividendHistory(ctx, symbol, since)
}

// Create persists a new stock and invalidates its cache entries.
func (c *CachingStockRepository) Create(ctx context.Context, stock *entity.Stock) error {
	if err := c.inner.Create(ctx, stock); err != nil {
		return err
	}
	c.invalidate(ctx, stock.Symbol)
	return nil
}

// Save upserts a stock and invalidates its cache entries.
func (c *CachingStockRepository) Save(ctx context.Context, stock *entity.Stock) error {
	if err := c.inner.Save(ctx, stock); err != nil {
		return err
	}
	c.invalidate(ctx, stock.Symbol)
	return nil
}

// Touch advances updated_at and invalidates the symbol's cache entries.
func (c *CachingStockRepository) Touch(ctx context.Context, symbol string, at time.Time) error {
	if err := c.inner.Touch(ctx, symbol, at); err != nil {
		return err
	}
	c.invalidate(ctx, symbol)
	return nil
}

// Remove deletes a stock and invalidates its cache entries.
func (c *CachingStockRepository) Remove(ctx context.Context, symbol string) error {
	if err := c.inner.Remove(ctx, symbol); err != nil {
		return err
	}
	c.invalidate(ctx, symbol)
	return nil
}

// UpsertDividendHistory writes history rows and invalidates the relation-loaded entry.
func (c *CachingStockRepository) UpsertDividendHistory(ctx context.Context, symbol string, entries []entity.DividendHistory) error {
	if err := c.inner.UpsertDividendHistory(ctx, symbol, entries); err != nil {
		return err
	}
	if len(entries) > 0 {
		c.invalidate(ctx, symbol)
	}
	return nil
}

func (c *CachingStockRepository) UpdateLastDividendDate(ctx context.Context, symbol string, date time.Time) error {
	if err := c.inner.UpdateLastDividendDate(ctx, symbol, date); err != nil {
		return err
	}
	c.invalidate(ctx, symbol)
	return nil
}

// invalidate deletes both cache variants of a symbol. Best effort: a failure is logged only.
func (c *CachingStockRepository) invalidate(ctx context.Context, symbol string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.cacheKey(symbol, false), c.cacheKey(symbol, true)).Err(); err != nil {
		slog.Warn("failed to invalidate stock cache", "symbol", symbol, "error", err)
	}
}

func (c *CachingStockRepository) currentTTL() time.Duration {
	if c.ttl == nil {
		return defaultTTL
	}
	if ttl := c.ttl(); ttl > 0 {
		return ttl
	}
	return defaultTTL
}

// cacheKey generates a cache key for a symbol lookup, e.g. "stocks:AAPL:1".
func (c *CachingStockRepository) cacheKey(symbol string, includeRelations bool) string {
	rel := 0
	if includeRelations {
		rel = 1
	}
	return fmt.Sprintf("%s:%s:%d", c.namespace, safe(symbol), rel)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
