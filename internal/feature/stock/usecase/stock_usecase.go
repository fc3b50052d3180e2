package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"divly_backend/internal/feature/stock/domain"
	"divly_backend/internal/feature/stock/domain/entity"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxBatchSymbols    = 50
)

// Config は StockUsecase のタイムアウト設定です。
type Config struct {
	// ProviderTimeout は外部APIへの1回の同期呼び出しの上限時間です。
	ProviderTimeout time.Duration
	// RefreshTimeout はバックグラウンド更新1回（API呼び出しと保存）の上限時間です。
	RefreshTimeout time.Duration
}

// DefaultConfig はデフォルトのタイムアウト設定を返します。
func DefaultConfig() Config {
	return Config{
		ProviderTimeout: 10 * time.Second,
		RefreshTimeout:  30 * time.Second,
	}
}

// GetOptions は GetStock の動作を指定します。
type GetOptions struct {
	// ForceRefresh が true の場合はキャッシュ判定を行わず外部APIから取得します。
	ForceRefresh bool
	// IncludeRelations が true の場合は配当履歴と保有銘柄を含めて返します。
	IncludeRelations bool
}

// StockUsecase は銘柄データの取得・同期・管理を行うユースケースです。
type StockUsecase struct {
	repo    StockRepository
	market  MarketDataProvider
	policy  *CachePolicy
	cfg     Config
	flights singleflight.Group
	bg      sync.WaitGroup
}

// NewStockUsecase は新しい StockUsecase を生成します。
// cfg のゼロ値の項目にはデフォルト値を使用します。
func NewStockUsecase(repo StockRepository, market MarketDataProvider, policy *CachePolicy, cfg Config) *StockUsecase {
	def := DefaultConfig()
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = def.RefreshTimeout
	}
	if policy == nil {
		policy = NewCachePolicy(nil)
	}
	return &StockUsecase{repo: repo, market: market, policy: policy, cfg: cfg}
}

// GetStock は指定された銘柄について利用可能な最良のデータを返します。
//
//   - fresh: 保存済みレコードをそのまま返す
//   - stale: 保存済みレコードを返し、バックグラウンドで更新する
//   - expired / 未保存 / ForceRefresh: 外部APIから同期的に取得して保存する
//
// 同期取得に失敗した場合、StaleLimit 以内のレコードがあればそれを返し、
// なければ元のエラーを返します。
func (u *StockUsecase) GetStock(ctx context.Context, symbol string, opts GetOptions) (*entity.Stock, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if !opts.ForceRefresh {
		existing, err := u.repo.FindBySymbol(ctx, sym, opts.IncludeRelations)
		switch {
		case err == nil:
			switch u.policy.Classify(existing) {
			case entity.CacheFresh:
				return existing, nil
			case entity.CacheStale:
				u.refreshInBackground(sym)
				return existing, nil
			}
		case errors.Is(err, domain.ErrNotFound):
		default:
			return nil, err
		}
	}

	stock, err := u.FetchAndSaveStock(ctx, sym)
	if err != nil {
		return u.fallback(ctx, sym, opts.IncludeRelations, err)
	}

	if opts.IncludeRelations {
		withRelations, err := u.repo.FindBySymbol(ctx, sym, true)
		if err != nil {
			slog.Warn("failed to load stock relations after sync", "symbol", sym, "error", err)
			return stock, nil
		}
		return withRelations, nil
	}
	return stock, nil
}

// fallback は同期取得の失敗時に、StaleLimit 以内の保存済みレコードを返します。
func (u *StockUsecase) fallback(ctx context.Context, sym string, includeRelations bool, cause error) (*entity.Stock, error) {
	existing, err := u.repo.FindBySymbol(ctx, sym, includeRelations)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("fallback read failed", "symbol", sym, "error", err)
		}
		return nil, cause
	}
	if !u.policy.IsWithinStaleLimit(existing) {
		return nil, cause
	}
	slog.Warn("serving stale stock after sync failure",
		"symbol", sym,
		"updated_at", existing.UpdatedAt,
		"error", cause,
	)
	return existing, nil
}

// refreshInBackground はリクエストから切り離されたゴルーチンで銘柄を更新します。
// 失敗はログに出力するだけで呼び出し元には伝えません。
func (u *StockUsecase) refreshInBackground(sym string) {
	u.bg.Add(1)
	go func() {
		defer u.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), u.cfg.RefreshTimeout)
		defer cancel()
		if _, err := u.FetchAndSaveStock(ctx, sym); err != nil {
			slog.Warn("background refresh failed", "symbol", sym, "error", err)
			return
		}
		slog.Debug("background refresh completed", "symbol", sym)
	}()
}

// Wait は実行中のバックグラウンド更新がすべて終了するまで待機します。
func (u *StockUsecase) Wait() {
	u.bg.Wait()
}

// FetchAndSaveStock は外部APIから株価情報と企業概要を並行して取得し、検証した上で保存します。
// 同じ銘柄への同時呼び出しは1回の取得にまとめられます。
func (u *StockUsecase) FetchAndSaveStock(ctx context.Context, symbol string) (*entity.Stock, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	ch := u.flights.DoChan(sym, func() (any, error) {
		// 共有される処理は最初の呼び出し元のキャンセルに巻き込まれないようにする
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.RefreshTimeout)
		defer cancel()
		return u.fetchAndSave(sctx, sym)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*entity.Stock)
		return &out, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnavailable, sym, ctx.Err())
	}
}

func (u *StockUsecase) fetchAndSave(ctx context.Context, sym string) (*entity.Stock, error) {
	info, overview, err := u.fetchFromProvider(ctx, sym)
	if err != nil {
		return nil, err
	}
	if err := ValidateProviderData(info, sym); err != nil {
		return nil, err
	}
	incoming, err := PrepareStockData(info, overview)
	if err != nil {
		return nil, err
	}

	now := u.policy.Now()
	existing, err := u.repo.FindBySymbol(ctx, sym, false)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := u.repo.Create(ctx, incoming); err != nil {
			if !errors.Is(err, domain.ErrDuplicateSymbol) {
				return nil, err
			}
			// 他の書き込みと競合した場合は後勝ちで上書き
			if err := u.repo.Save(ctx, incoming); err != nil {
				return nil, err
			}
		}
		return incoming, nil
	case err != nil:
		return nil, err
	}

	if ShouldUpdate(existing, incoming) {
		merged := *existing
		merged.CompanyName = incoming.CompanyName
		merged.Sector = incoming.Sector
		merged.Industry = incoming.Industry
		merged.CurrentPrice = incoming.CurrentPrice
		merged.Currency = incoming.Currency
		merged.DividendRate = incoming.DividendRate
		merged.DividendYield = incoming.DividendYield
		merged.UpdatedAt = now
		if err := u.repo.Save(ctx, &merged); err != nil {
			return nil, err
		}
		return &merged, nil
	}

	// 変化が小さい場合もキャッシュの鮮度を更新する
	if err := u.repo.Touch(ctx, sym, now); err != nil {
		return nil, err
	}
	existing.UpdatedAt = now
	return existing, nil
}

// fetchFromProvider は株価情報と企業概要を並行して取得します。どちらかが失敗した時点で両方を中断します。
func (u *StockUsecase) fetchFromProvider(ctx context.Context, sym string) (*entity.StockInfo, *entity.CompanyOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.ProviderTimeout)
	defer cancel()

	var (
		info     *entity.StockInfo
		overview *entity.CompanyOverview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = u.market.GetStockInfo(gctx, sym)
		return upstreamError("stock info", sym, err)
	})
	g.Go(func() error {
		var err error
		overview, err = u.market.GetCompanyOverview(gctx, sym)
		return upstreamError("company overview", sym, err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return info, overview, nil
}

// upstreamError は外部APIのエラーを domain.ErrUpstreamUnavailable でラップします。
// 既に ErrDataIntegrity の場合はそのまま返します。
func upstreamError(what, sym string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrDataIntegrity) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrUpstreamUnavailable, what, sym, err)
}

// Create は管理者が銘柄を手動登録します。
func (u *StockUsecase) Create(ctx context.Context, in *entity.Stock) (*entity.Stock, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: stock is required", domain.ErrInvalidInput)
	}
	sym, err := NormalizeSymbol(in.Symbol)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.CompanyName)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", domain.ErrInvalidInput)
	}
	price, err := ValidateAndRoundPrice(in.CurrentPrice)
	if err != nil {
		return nil, err
	}

	_, err = u.repo.FindBySymbol(ctx, sym, false)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSymbol, sym)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := u.policy.Now()
	s := &entity.Stock{
		Symbol:           sym,
		CompanyName:      name,
		Sector:           strings.TrimSpace(in.Sector),
		Industry:         strings.TrimSpace(in.Industry),
		CurrentPrice:     price,
		Currency:         normalizeCurrency(in.Currency),
		DividendRate:     roundPtr(in.DividendRate, 2),
		DividendYield:    roundPtr(in.DividendYield, 4),
		LastDividendDate: in.LastDividendDate,
		NextDividendDate: in.NextDividendDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FindOne は保存済みの銘柄を返します。外部APIは呼びません。
func (u *StockUsecase) FindOne(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return u.repo.FindBySymbol(ctx, sym, includeRelations)
}

// FindMany は複数の保存済み銘柄をまとめて返します。重複したシンボルは1つにまとめます。
func (u *StockUsecase) FindMany(ctx context.Context, symbols []string) ([]entity.Stock, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(symbols))
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym, err := NormalizeSymbol(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		normalized = append(normalized, sym)
	}
	if len(normalized) > maxBatchSymbols {
		return nil, fmt.Errorf("%w: at most %d symbols per request", domain.ErrInvalidInput, maxBatchSymbols)
	}
	return u.repo.FindBySymbols(ctx, normalized)
}

// SearchStocks はシンボルまたは会社名で銘柄を検索します。
// limit が0以下の場合は20件、上限は100件です。
func (u *StockUsecase) SearchStocks(ctx context.Context, query string, limit int) ([]entity.Stock, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return u.repo.Search(ctx, q, limit)
}

// Remove は管理者が銘柄を削除します。
func (u *StockUsecase) Remove(ctx context.Context, symbol string) error {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	return u.repo.Remove(ctx, sym)
}
