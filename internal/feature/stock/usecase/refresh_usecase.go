package usecase

import (
	"context"
	"log/slog"

	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/shared/ratelimiter"
)

// StockRefresher は1銘柄を外部APIから同期するインターフェースです。
type StockRefresher interface {
	FetchAndSaveStock(ctx context.Context, symbol string) (*entity.Stock, error)
}

// SymbolLister は保存済みのシンボル一覧を返すインターフェースです。
type SymbolLister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// RefreshReport は一括更新の結果です。
type RefreshReport struct {
	Total         int
	Refreshed     int
	Failed        int
	FailedSymbols []string
}

// RefreshUsecase は保存済みの全銘柄を外部APIから再同期するユースケースです。
type RefreshUsecase struct {
	stocks      StockRefresher
	symbols     SymbolLister
	rateLimiter ratelimiter.RateLimiterInterface
}

// NewRefreshUsecase は新しい RefreshUsecase を生成します。
func NewRefreshUsecase(stocks StockRefresher, symbols SymbolLister, rateLimiter ratelimiter.RateLimiterInterface) *RefreshUsecase {
	return &RefreshUsecase{stocks: stocks, symbols: symbols, rateLimiter: rateLimiter}
}

// RefreshAll は指定された銘柄（空の場合は保存済みの全銘柄）を順番に同期します。
// APIのレートリミットを考慮して、リクエスト間に適切な待機時間を設けます。
// 1銘柄の失敗では処理を止めず、ctx がキャンセルされた場合のみ中断します。
func (u *RefreshUsecase) RefreshAll(ctx context.Context, symbols []string) (RefreshReport, error) {
	var report RefreshReport

	if len(symbols) == 0 {
		listed, err := u.symbols.ListSymbols(ctx)
		if err != nil {
			return report, err
		}
		symbols = listed
	}
	report.Total = len(symbols)

	for _, s := range symbols {
		if err := u.rateLimiter.Wait(ctx); err != nil {
			return report, err
		}
		if _, err := u.stocks.FetchAndSaveStock(ctx, s); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			// 1つの銘柄でエラーが発生しても処理を止めずにログに出力し、次の銘柄へ
			slog.Error("failed to refresh stock", "symbol", s, "error", err)
			report.Failed++
			report.FailedSymbols = append(report.FailedSymbols, s)
			continue
		}
		report.Refreshed++
	}

	slog.Info("refresh completed", "total", report.Total, "refreshed", report.Refreshed, "failed", report.Failed)
	return report, nil
}
