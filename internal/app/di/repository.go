package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	stockadapters "divly_backend/internal/feature/stock/adapters"
	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/cache"
)

// NewStockRepository creates the stock Repository implementation.
// If Redis is available, the gorm repository is wrapped with a read-through cache
// whose TTL follows the market-aware refresh interval.
// Otherwise, it returns the gorm repository directly.
func NewStockRepository(db *gorm.DB, rdb *redis.Client, ttl func() time.Duration) usecase.Repository {
	repo := stockadapters.NewStockRepository(db)
	if rdb == nil {
		return repo
	}
	return cache.NewCachingStockRepository(rdb, ttl, repo, "stocks")
}
