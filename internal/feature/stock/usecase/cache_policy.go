package usecase

import (
	"log/slog"
	"time"
	_ "time/tzdata" // America/New_York must resolve in minimal containers

	"divly_backend/internal/feature/stock/domain/entity"
)

const (
	// CacheTTL を過ぎるまでのレコードは fresh として扱います。
	CacheTTL = time.Hour
	// StaleLimit を過ぎたレコードは expired となり、フォールバックにも使用しません。
	StaleLimit = 24 * time.Hour

	marketOpenRefreshInterval   = 5 * time.Minute
	marketClosedRefreshInterval = time.Hour
)

// CachePolicy はレコードの鮮度判定と市場時間に応じた更新間隔を提供します。
// 時計は差し替え可能で、テストでは固定時刻を注入します。
type CachePolicy struct {
	now func() time.Time
	loc *time.Location
}

// NewCachePolicy は新しい CachePolicy を生成します。now が nil の場合は time.Now を使用します。
func NewCachePolicy(now func() time.Time) *CachePolicy {
	if now == nil {
		now = time.Now
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		slog.Warn("failed to load America/New_York, falling back to fixed EST offset", "error", err)
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &CachePolicy{now: now, loc: loc}
}

// Now は注入された時計の現在時刻を返します。
func (p *CachePolicy) Now() time.Time {
	return p.now()
}

// Classify は updated_at からの経過時間でレコードを fresh / stale / expired に分類します。
func (p *CachePolicy) Classify(stock *entity.Stock) entity.CacheStatus {
	elapsed := p.now().Sub(stock.UpdatedAt)
	switch {
	case elapsed < CacheTTL:
		return entity.CacheFresh
	case elapsed < StaleLimit:
		return entity.CacheStale
	default:
		return entity.CacheExpired
	}
}

// IsWithinStaleLimit はレコードがフォールバックに使用できる新しさかを判定します。
func (p *CachePolicy) IsWithinStaleLimit(stock *entity.Stock) bool {
	return p.now().Sub(stock.UpdatedAt) < StaleLimit
}

// MarketAwareRefreshInterval は米国市場の取引時間中は5分、それ以外は1時間を返します。
func (p *CachePolicy) MarketAwareRefreshInterval() time.Duration {
	if p.IsMarketOpen(p.now()) {
		return marketOpenRefreshInterval
	}
	return marketClosedRefreshInterval
}

// IsMarketOpen は t がNYSEの通常取引時間（平日 09:30–16:00 ET）内かを判定します。
// 祝日は考慮しません。
func (p *CachePolicy) IsMarketOpen(t time.Time) bool {
	et := t.In(p.loc)
	if wd := et.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
