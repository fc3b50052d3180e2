package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divly_backend/internal/feature/stock/domain"
	"divly_backend/internal/feature/stock/domain/entity"
)

// mockRepository はテスト用のRepositoryモック実装です。
type mockRepository struct {
	findFn  func(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error)
	writeFn func() error

	findCalls int
}

func (m *mockRepository) FindBySymbol(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
	m.findCalls++
	if m.findFn != nil {
		return m.findFn(ctx, symbol, includeRelations)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepository) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Stock, error) {
	return nil, nil
}

func (m *mockRepository) Search(ctx context.Context, query string, limit int) ([]entity.Stock, error) {
	return nil, nil
}

func (m *mockRepository) ListSymbols(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockRepository) write() error {
	if m.writeFn != nil {
		return m.writeFn()
	}
	return nil
}

func (m *mockRepository) Create(ctx context.Context, stock *entity.Stock) error { return m.write() }
func (m *mockRepository) Save(ctx context.Context, stock *entity.Stock) error   { return m.write() }
func (m *mockRepository) Touch(ctx context.Context, symbol string, at time.Time) error {
	return m.write()
}
func (m *mockRepository) Remove(ctx context.Context, symbol string) error { return m.write() }

func (m *mockRepository) FindDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
	return nil, nil
}

func (m *mockRepository) UpsertDividendHistory(ctx context.Context, symbol string, entries []entity.DividendHistory) error {
	return m.write()
}

func (m *mockRepository) UpdateLastDividendDate(ctx context.Context, symbol string, date time.Time) error {
	return m.write()
}

func fixedTTL(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

var sampleStock = &entity.Stock{
	Symbol:       "AAPL",
	CompanyName:  "Apple Inc.",
	CurrentPrice: 190.12,
	Currency:     "USD",
	UpdatedAt:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
}

// TestNewCachingStockRepository_Defaults はデフォルト値（TTLとnamespace）が正しく設定されることを検証します。
func TestNewCachingStockRepository_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               func() time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{name: "nil ttl and empty namespace", ttl: nil, expectedTTL: 5 * time.Minute, expectedNamespace: "stocks"},
		{name: "non-positive ttl uses default", ttl: fixedTTL(-time.Minute), expectedTTL: 5 * time.Minute, expectedNamespace: "stocks"},
		{name: "custom values preserved", ttl: fixedTTL(time.Hour), namespace: "custom", expectedTTL: time.Hour, expectedNamespace: "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewCachingStockRepository(nil, tt.ttl, &mockRepository{}, tt.namespace)
			assert.Equal(t, tt.expectedTTL, repo.currentTTL())
			assert.Equal(t, tt.expectedNamespace, repo.namespace)
		})
	}
}

// TestCachingStockRepository_FindBySymbol_NilRedis はRedisがnilの場合にキャッシュをバイパスすることを検証します。
func TestCachingStockRepository_FindBySymbol_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockRepository{
		findFn: func(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
			return sampleStock, nil
		},
	}
	repo := NewCachingStockRepository(nil, fixedTTL(time.Minute), inner, "stocks")

	got, err := repo.FindBySymbol(context.Background(), "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, 1, inner.findCalls)

	// writes must not panic without Redis
	require.NoError(t, repo.Save(context.Background(), sampleStock))
}

// TestCachingStockRepository_FindBySymbol_CacheHit はキャッシュヒット時に内部リポジトリを呼ばないことを検証します。
func TestCachingStockRepository_FindBySymbol_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cachedJSON, _ := json.Marshal(sampleStock)
	mock.ExpectGet("stocks:AAPL:0").SetVal(string(cachedJSON))

	inner := &mockRepository{}
	repo := NewCachingStockRepository(rdb, fixedTTL(5*time.Minute), inner, "stocks")

	got, err := repo.FindBySymbol(context.Background(), "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, 0, inner.findCalls, "inner repository should not be called on cache hit")
	assert.Equal(t, 190.12, got.CurrentPrice)
	assert.True(t, got.UpdatedAt.Equal(sampleStock.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingStockRepository_FindBySymbol_CacheMiss はキャッシュミス時にDBから取得しキャッシュに保存することを検証します。
func TestCachingStockRepository_FindBySymbol_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(sampleStock)
	mock.ExpectGet("stocks:AAPL:1").RedisNil()
	mock.ExpectSet("stocks:AAPL:1", expectedJSON, 5*time.Minute).SetVal("OK")

	inner := &mockRepository{
		findFn: func(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
			assert.True(t, includeRelations)
			return sampleStock, nil
		},
	}
	repo := NewCachingStockRepository(rdb, fixedTTL(5*time.Minute), inner, "stocks")

	got, err := repo.FindBySymbol(context.Background(), "AAPL", true)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingStockRepository_FindBySymbol_NotFoundIsNotCached は存在しない銘柄をキャッシュしないことを検証します。
func TestCachingStockRepository_FindBySymbol_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("stocks:MSFT:0").RedisNil()

	repo := NewCachingStockRepository(rdb, fixedTTL(5*time.Minute), &mockRepository{}, "stocks")

	_, err := repo.FindBySymbol(context.Background(), "MSFT", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingStockRepository_FindBySymbol_CorruptedCache は破損したキャッシュを削除してDBにフォールバックすることを検証します。
func TestCachingStockRepository_FindBySymbol_CorruptedCache(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedJSON, _ := json.Marshal(sampleStock)
	mock.ExpectGet("stocks:AAPL:0").SetVal("invalid json")
	mock.ExpectDel("stocks:AAPL:0").SetVal(1)
	mock.ExpectSet("stocks:AAPL:0", expectedJSON, 5*time.Minute).SetVal("OK")

	inner := &mockRepository{
		findFn: func(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
			return sampleStock, nil
		},
	}
	repo := NewCachingStockRepository(rdb, fixedTTL(5*time.Minute), inner, "stocks")

	_, err := repo.FindBySymbol(context.Background(), "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.findCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingStockRepository_WritesInvalidate は全ての書き込み操作がキャッシュを無効化することを検証します。
func TestCachingStockRepository_WritesInvalidate(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	writes := []struct {
		name string
		call func(repo *CachingStockRepository) error
	}{
		{name: "Create", call: func(r *CachingStockRepository) error { return r.Create(context.Background(), sampleStock) }},
		{name: "Save", call: func(r *CachingStockRepository) error { return r.Save(context.Background(), sampleStock) }},
		{name: "Touch", call: func(r *CachingStockRepository) error { return r.Touch(context.Background(), "AAPL", at) }},
		{name: "Remove", call: func(r *CachingStockRepository) error { return r.Remove(context.Background(), "AAPL") }},
		{name: "UpsertDividendHistory", call: func(r *CachingStockRepository) error {
			return r.UpsertDividendHistory(context.Background(), "AAPL", []entity.DividendHistory{{Symbol: "AAPL", Amount: 0.25}})
		}},
		{name: "UpdateLastDividendDate", call: func(r *CachingStockRepository) error {
			return r.UpdateLastDividendDate(context.Background(), "AAPL", at)
		}},
	}
	for _, tt := range writes {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rdb, mock := redismock.NewClientMock()
			defer func() { _ = rdb.Close() }()
			mock.ExpectDel("stocks:AAPL:0", "stocks:AAPL:1").SetVal(2)

			repo := NewCachingStockRepository(rdb, fixedTTL(time.Minute), &mockRepository{}, "stocks")
			require.NoError(t, tt.call(repo))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// TestCachingStockRepository_WriteErrorSkipsInvalidation は書き込み失敗時にキャッシュを操作しないことを検証します。
func TestCachingStockRepository_WriteErrorSkipsInvalidation(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	writeErr := errors.New("database error")
	inner := &mockRepository{writeFn: func() error { return writeErr }}
	repo := NewCachingStockRepository(rdb, fixedTTL(time.Minute), inner, "stocks")

	err := repo.Save(context.Background(), sampleStock)
	assert.ErrorIs(t, err, writeErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCachingStockRepository_Miniredis は実際のRedisプロトコルでTTLと無効化を検証します。
func TestCachingStockRepository_Miniredis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	inner := &mockRepository{
		findFn: func(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
			return sampleStock, nil
		},
	}
	repo := NewCachingStockRepository(rdb, fixedTTL(time.Hour), inner, "")
	ctx := context.Background()

	_, err := repo.FindBySymbol(ctx, "AAPL", false)
	require.NoError(t, err)
	_, err = repo.FindBySymbol(ctx, "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.findCalls, "second lookup must be served from Redis")
	assert.True(t, mr.Exists("stocks:AAPL:0"))
	assert.Equal(t, time.Hour, mr.TTL("stocks:AAPL:0"))

	require.NoError(t, repo.Touch(ctx, "AAPL", time.Now()))
	assert.False(t, mr.Exists("stocks:AAPL:0"))

	_, err = repo.FindBySymbol(ctx, "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.findCalls)
}

func TestSafe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BRK_B_X", safe("BRK B:X"))
}
