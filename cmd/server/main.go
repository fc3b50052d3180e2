package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"divly_backend/internal/app/config"
	"divly_backend/internal/app/di"
	"divly_backend/internal/app/router"
	stockhandler "divly_backend/internal/feature/stock/transport/handler"
	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/db"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.NewViper())
	if err != nil {
		return err
	}
	di.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := db.OpenDB(cfg.DB)
	if err != nil {
		return err
	}

	// Redis（接続できない場合はキャッシュなしで起動）
	rdb := di.NewRedis(cfg)
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// Repository
	policy := usecase.NewCachePolicy(time.Now)
	repo := di.NewStockRepository(gdb, rdb, policy.MarketAwareRefreshInterval)

	// Market
	market, err := di.NewMarket(cfg)
	if err != nil {
		return err
	}

	// Usecase
	stockUC := usecase.NewStockUsecase(repo, market, policy, cfg.Stock)
	dividendUC := usecase.NewDividendUsecase(stockUC, repo, market, policy, cfg.Stock.ProviderTimeout)

	// Handler
	stockH := stockhandler.NewStockHandler(stockUC)
	dividendH := stockhandler.NewDividendHandler(dividendUC)

	// ルータ生成
	r := router.NewRouter(stockH, dividendH, di.NewReadinessChecks(gdb, rdb))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.HTTPAddr, "provider", cfg.MarketProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Stock.RefreshTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}

	// バックグラウンド更新の完了を待つ
	stockUC.Wait()
	return nil
}
