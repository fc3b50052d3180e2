package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"divly_backend/internal/feature/stock/domain"
	"divly_backend/internal/feature/stock/domain/entity"
)

var errProvider = errors.New("provider error")

// mockRepository is a mock implementation of the Repository interface.
// Calls are counted under a mutex because background refreshes hit it from other goroutines.
type mockRepository struct {
	mu sync.Mutex

	FindBySymbolFunc           func(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error)
	FindBySymbolsFunc          func(ctx context.Context, symbols []string) ([]entity.Stock, error)
	SearchFunc                 func(ctx context.Context, query string, limit int) ([]entity.Stock, error)
	ListSymbolsFunc            func(ctx context.Context) ([]string, error)
	CreateFunc                 func(ctx context.Context, stock *entity.Stock) error
	SaveFunc                   func(ctx context.Context, stock *entity.Stock) error
	TouchFunc                  func(ctx context.Context, symbol string, at time.Time) error
	RemoveFunc                 func(ctx context.Context, symbol string) error
	FindDividendHistoryFunc    func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error)
	UpsertDividendHistoryFunc  func(ctx context.Context, symbol string, entries []entity.DividendHistory) error
	UpdateLastDividendDateFunc func(ctx context.Context, symbol string, date time.Time) error

	FindBySymbolCalls int
	CreateCalls       int
	SaveCalls         int
	TouchCalls        int
	UpsertCalls       int
	UpdateLastCalls   int

	Saved   []*entity.Stock
	Created []*entity.Stock
}

var _ Repository = (*mockRepository)(nil)

func (m *mockRepository) FindBySymbol(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
	m.mu.Lock()
	m.FindBySymbolCalls++
	m.mu.Unlock()
	if m.FindBySymbolFunc != nil {
		return m.FindBySymbolFunc(ctx, symbol, includeRelations)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepository) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Stock, error) {
	if m.FindBySymbolsFunc != nil {
		return m.FindBySymbolsFunc(ctx, symbols)
	}
	return nil, nil
}

func (m *mockRepository) Search(ctx context.Context, query string, limit int) ([]entity.Stock, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockRepository) ListSymbols(ctx context.Context) ([]string, error) {
	if m.ListSymbolsFunc != nil {
		return m.ListSymbolsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepository) Create(ctx context.Context, stock *entity.Stock) error {
	m.mu.Lock()
	m.CreateCalls++
	m.Created = append(m.Created, stock)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, stock)
	}
	return nil
}

func (m *mockRepository) Save(ctx context.Context, stock *entity.Stock) error {
	m.mu.Lock()
	m.SaveCalls++
	m.Saved = append(m.Saved, stock)
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, stock)
	}
	return nil
}

func (m *mockRepository) Touch(ctx context.Context, symbol string, at time.Time) error {
	m.mu.Lock()
	m.TouchCalls++
	m.mu.Unlock()
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, symbol, at)
	}
	return nil
}

func (m *mockRepository) Remove(ctx context.Context, symbol string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, symbol)
	}
	return nil
}

func (m *mockRepository) FindDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
	if m.FindDividendHistoryFunc != nil {
		return m.FindDividendHistoryFunc(ctx, symbol, since)
	}
	return nil, nil
}

func (m *mockRepository) UpsertDividendHistory(ctx context.Context, symbol string, entries []entity.DividendHistory) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()
	if m.UpsertDividendHistoryFunc != nil {
		return m.UpsertDividendHistoryFunc(ctx, symbol, entries)
	}
	return nil
}

func (m *mockRepository) UpdateLastDividendDate(ctx context.Context, symbol string, date time.Time) error {
	m.mu.Lock()
	m.UpdateLastCalls++
	m.mu.Unlock()
	if m.UpdateLastDividendDateFunc != nil {
		return m.UpdateLastDividendDateFunc(ctx, symbol, date)
	}
	return nil
}

func (m *mockRepository) calls() (find, create, save, touch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FindBySymbolCalls, m.CreateCalls, m.SaveCalls, m.TouchCalls
}

// mockMarket is a mock implementation of the MarketDataProvider interface.
type mockMarket struct {
	mu sync.Mutex

	GetStockInfoFunc       func(ctx context.Context, symbol string) (*entity.StockInfo, error)
	GetDividendHistoryFunc func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendRecord, error)
	GetCompanyOverviewFunc func(ctx context.Context, symbol string) (*entity.CompanyOverview, error)

	GetStockInfoCalls       int
	GetDividendHistoryCalls int
	GetCompanyOverviewCalls int
}

var _ MarketDataProvider = (*mockMarket)(nil)

func (m *mockMarket) GetStockInfo(ctx context.Context, symbol string) (*entity.StockInfo, error) {
	m.mu.Lock()
	m.GetStockInfoCalls++
	m.mu.Unlock()
	if m.GetStockInfoFunc != nil {
		return m.GetStockInfoFunc(ctx, symbol)
	}
	return nil, errors.New("GetStockInfoFunc is not implemented")
}

func (m *mockMarket) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendRecord, error) {
	m.mu.Lock()
	m.GetDividendHistoryCalls++
	m.mu.Unlock()
	if m.GetDividendHistoryFunc != nil {
		return m.GetDividendHistoryFunc(ctx, symbol, since)
	}
	return nil, errors.New("GetDividendHistoryFunc is not implemented")
}

func (m *mockMarket) GetCompanyOverview(ctx context.Context, symbol string) (*entity.CompanyOverview, error) {
	m.mu.Lock()
	m.GetCompanyOverviewCalls++
	m.mu.Unlock()
	if m.GetCompanyOverviewFunc != nil {
		return m.GetCompanyOverviewFunc(ctx, symbol)
	}
	return &entity.CompanyOverview{Symbol: symbol}, nil
}

func (m *mockMarket) stockInfoCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetStockInfoCalls
}

// fixedClock returns a clock pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func quote(symbol string, price float64) func(ctx context.Context, s string) (*entity.StockInfo, error) {
	return func(ctx context.Context, s string) (*entity.StockInfo, error) {
		return &entity.StockInfo{Symbol: symbol, CompanyName: "Test Corp", CurrentPrice: price, Currency: "USD"}, nil
	}
}
