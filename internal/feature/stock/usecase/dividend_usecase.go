package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"divly_backend/internal/feature/stock/domain/entity"
)

// DefaultDividendSince は配当履歴の取得開始日のデフォルトです。
var DefaultDividendSince = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// StockGetter は配当履歴の同期前に銘柄レコードを確保するためのインターフェースです。
type StockGetter interface {
	GetStock(ctx context.Context, symbol string, opts GetOptions) (*entity.Stock, error)
}

// DividendUsecase は配当履歴を外部APIから取得し、永続化するユースケースです。
type DividendUsecase struct {
	stocks          StockGetter
	repo            DividendRepository
	market          MarketDataProvider
	policy          *CachePolicy
	providerTimeout time.Duration
}

// NewDividendUsecase は新しい DividendUsecase を生成します。
func NewDividendUsecase(stocks StockGetter, repo DividendRepository, market MarketDataProvider, policy *CachePolicy, providerTimeout time.Duration) *DividendUsecase {
	if providerTimeout <= 0 {
		providerTimeout = DefaultConfig().ProviderTimeout
	}
	if policy == nil {
		policy = NewCachePolicy(nil)
	}
	return &DividendUsecase{
		stocks:          stocks,
		repo:            repo,
		market:          market,
		policy:          policy,
		providerTimeout: providerTimeout,
	}
}

// GetDividendHistory は since 以降の配当履歴を外部APIから同期し、保存済みの履歴を新しい順で返します。
// 外部APIが失敗した場合は保存済みの履歴を返し、履歴が1件もなければエラーを返します。
func (u *DividendUsecase) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		since = DefaultDividendSince
	}
	since = truncateToDay(since)

	// 外部キーと通貨のために銘柄レコードを先に確保する
	stock, err := u.stocks.GetStock(ctx, sym, GetOptions{})
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	records, fetchErr := u.market.GetDividendHistory(pctx, sym, since)
	cancel()
	if fetchErr != nil {
		stored, err := u.repo.FindDividendHistory(ctx, sym, since)
		if err != nil {
			return nil, err
		}
		if len(stored) == 0 {
			return nil, upstreamError("dividend history", sym, fetchErr)
		}
		slog.Warn("serving stored dividend history after provider failure", "symbol", sym, "error", fetchErr)
		return stored, nil
	}

	entries := u.toHistory(sym, stock.Currency, since, records)
	if len(entries) > 0 {
		if err := u.repo.UpsertDividendHistory(ctx, sym, entries); err != nil {
			return nil, err
		}
		latest := entries[0].PaymentDate
		if stock.LastDividendDate == nil || latest.After(*stock.LastDividendDate) {
			if err := u.repo.UpdateLastDividendDate(ctx, sym, latest); err != nil {
				slog.Warn("failed to update last dividend date", "symbol", sym, "error", err)
			}
		}
	}

	return u.repo.FindDividendHistory(ctx, sym, since)
}

// toHistory は外部APIの配当データを検証し、支払日の新しい順に並べた保存用データに変換します。
// 同じ支払日のデータは後のものを優先します。
func (u *DividendUsecase) toHistory(sym, currency string, since time.Time, records []entity.DividendRecord) []entity.DividendHistory {
	now := u.policy.Now()
	byDate := make(map[time.Time]entity.DividendHistory, len(records))
	for _, r := range records {
		if math.IsNaN(r.Amount) || r.Amount <= 0 {
			slog.Debug("skipping dividend with non-positive amount", "symbol", sym, "date", r.PaymentDate, "amount", r.Amount)
			continue
		}
		amount := roundTo(r.Amount, 2)
		if amount <= 0 {
			continue
		}
		date := truncateToDay(r.PaymentDate)
		if date.Before(since) {
			continue
		}
		cur := r.Currency
		if cur == "" {
			cur = currency
		}
		byDate[date] = entity.DividendHistory{
			ID:          uuid.NewString(),
			Symbol:      sym,
			PaymentDate: date,
			Amount:      amount,
			Currency:    normalizeCurrency(cur),
			CreatedAt:   now,
		}
	}

	out := make([]entity.DividendHistory, 0, len(byDate))
	for _, h := range byDate {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
