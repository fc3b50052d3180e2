// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"

	"divly_backend/internal/app/config"
	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/externalapi/twelvedata"
	"divly_backend/internal/platform/externalapi/yahoo"
	platformhttp "divly_backend/internal/platform/http"
	"divly_backend/internal/shared/ratelimiter"
)

// NewMarket creates the market data provider selected by MARKET_PROVIDER,
// with its HTTP client and a rate limiter shared by every call it makes.
func NewMarket(cfg *config.Config) (usecase.MarketDataProvider, error) {
	limiter := ratelimiter.NewRateLimiter(cfg.MarketRateLimit, cfg.MarketRateInterval)

	switch cfg.MarketProvider {
	case config.ProviderTwelveData:
		client := platformhttp.NewHTTPClient(cfg.TwelveData.Timeout)
		return twelvedata.NewTwelveDataMarket(cfg.TwelveData, client, limiter), nil
	case config.ProviderYahoo:
		client := platformhttp.NewHTTPClient(cfg.Yahoo.Timeout,
			platformhttp.WithCookieJar(),
			platformhttp.WithUserAgent(cfg.Yahoo.UserAgent),
		)
		return yahoo.NewYahooMarket(cfg.Yahoo, client, limiter), nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.MarketProvider)
	}
}
