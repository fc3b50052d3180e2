package usecase

import (
	"context"
	"time"

	"divly_backend/internal/feature/stock/domain/entity"
)

// StockRepository は銘柄データを永続化するリポジトリのインターフェイスです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type StockRepository interface {
	// FindBySymbol は銘柄を1件取得します。存在しない場合は domain.ErrNotFound を返します。
	// includeRelations が true の場合は配当履歴と保有銘柄も読み込みます。
	FindBySymbol(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error)
	// FindBySymbols は指定されたシンボルの銘柄をまとめて取得します。存在しないものは含まれません。
	FindBySymbols(ctx context.Context, symbols []string) ([]entity.Stock, error)
	// Search はシンボルまたは会社名に query を含む銘柄を返します（大文字小文字を区別しない）。
	Search(ctx context.Context, query string, limit int) ([]entity.Stock, error)
	// ListSymbols は保存済みの全シンボルを返します。
	ListSymbols(ctx context.Context) ([]string, error)
	// Create は新規銘柄を保存します。既存の場合は domain.ErrDuplicateSymbol を返します。
	Create(ctx context.Context, stock *entity.Stock) error
	// Save は銘柄をシンボルをキーにupsertします。
	Save(ctx context.Context, stock *entity.Stock) error
	// Touch は updated_at のみを更新します。
	Touch(ctx context.Context, symbol string, at time.Time) error
	// Remove は銘柄と配当履歴を削除します。存在しない場合は domain.ErrNotFound を返します。
	Remove(ctx context.Context, symbol string) error
}

// DividendRepository は配当履歴を永続化するリポジトリのインターフェイスです。
type DividendRepository interface {
	// FindDividendHistory は since 以降の配当履歴を支払日の新しい順で返します。
	FindDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error)
	// UpsertDividendHistory は (symbol, payment_date) をキーに配当履歴をupsertします。
	UpsertDividendHistory(ctx context.Context, symbol string, entries []entity.DividendHistory) error
	// UpdateLastDividendDate は最終配当日を更新します。updated_at は変更しません。
	UpdateLastDividendDate(ctx context.Context, symbol string, date time.Time) error
}

// Repository は銘柄と配当履歴の両方を扱うリポジトリです。
type Repository interface {
	StockRepository
	DividendRepository
}

// MarketDataProvider は外部の株価データ提供元を抽象化します。
type MarketDataProvider interface {
	GetStockInfo(ctx context.Context, symbol string) (*entity.StockInfo, error)
	GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendRecord, error)
	GetCompanyOverview(ctx context.Context, symbol string) (*entity.CompanyOverview, error)
}
