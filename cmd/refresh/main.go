// Command refresh re-synchronizes stored stocks with the market data provider.
//
// Usage:
//
//	refresh [--symbols KO,PEP] [--watch]
//
// Without --symbols every stored stock is refreshed. With --watch the job
// repeats on the market-aware interval (5m while NYSE is open, 1h otherwise)
// until interrupted.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"divly_backend/internal/app/config"
	"divly_backend/internal/app/di"
	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/db"
	"divly_backend/internal/shared/ratelimiter"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("refresh failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("refresh", pflag.ContinueOnError)
	flags.Bool("watch", false, "keep refreshing on the market-aware interval")
	flags.StringSlice("symbols", nil, "symbols to refresh (default: all stored stocks)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	v := config.NewViper()
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	di.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenDB(cfg.DB)
	if err != nil {
		return err
	}
	rdb := di.NewRedis(cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	policy := usecase.NewCachePolicy(time.Now)
	repo := di.NewStockRepository(gdb, rdb, policy.MarketAwareRefreshInterval)
	market, err := di.NewMarket(cfg)
	if err != nil {
		return err
	}

	stockUC := usecase.NewStockUsecase(repo, market, policy, cfg.Stock)
	uc := usecase.NewRefreshUsecase(stockUC, repo, ratelimiter.NewRateLimiter(cfg.RefreshRateLimit, cfg.RefreshRateInterval))

	symbols := v.GetStringSlice("symbols")
	for {
		if _, err := uc.RefreshAll(ctx, symbols); err != nil {
			if ctx.Err() != nil {
				slog.Info("refresh interrupted")
				return nil
			}
			return err
		}
		if !v.GetBool("watch") {
			return nil
		}

		next := policy.MarketAwareRefreshInterval()
		slog.Info("waiting for next refresh", "interval", next.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(next):
		}
	}
}
