// Package adapters はstockフィーチャーのgormによる永続化を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"divly_backend/internal/feature/stock/domain"
	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/usecase"
)

type stockGorm struct {
	db *gorm.DB
}

var _ usecase.Repository = (*stockGorm)(nil)

// NewStockRepository は gorm を使った銘柄リポジトリを生成します。
func NewStockRepository(db *gorm.DB) *stockGorm {
	return &stockGorm{db: db}
}

// stockUpdateColumns は upsert 時に上書きする列です。symbol と created_at は含みません。
var stockUpdateColumns = []string{
	"company_name", "sector", "industry", "current_price", "currency",
	"dividend_yield", "dividend_rate", "last_dividend_date", "next_dividend_date",
	"updated_at",
}

func storageErr(op, symbol string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domain.ErrStorageUnavailable, op, symbol, err)
}

func (r *stockGorm) FindBySymbol(ctx context.Context, symbol string, includeRelations bool) (*entity.Stock, error) {
	q := r.db.WithContext(ctx)
	if includeRelations {
		q = q.Preload("DividendHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date DESC")
		}).Preload("Holdings")
	}

	var m StockModel
	if err := q.Where("symbol = ?", symbol).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, symbol)
		}
		return nil, storageErr("find stock", symbol, err)
	}
	s := toEntity(m)
	return &s, nil
}

func (r *stockGorm) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Stock, error) {
	if len(symbols) == 0 {
		return []entity.Stock{}, nil
	}
	var rows []StockModel
	if err := r.db.WithContext(ctx).Where("symbol IN ?", symbols).Order("symbol").Find(&rows).Error; err != nil {
		return nil, storageErr("find stocks", strings.Join(symbols, ","), err)
	}
	return toEntities(rows), nil
}

func (r *stockGorm) Search(ctx context.Context, query string, limit int) ([]entity.Stock, error) {
	pattern := "%" + escapeLike(strings.ToUpper(strings.TrimSpace(query))) + "%"
	q := r.db.WithContext(ctx).
		Where(`UPPER(symbol) LIKE ? ESCAPE '\' OR UPPER(company_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("symbol")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []StockModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageErr("search stocks", query, err)
	}
	return toEntities(rows), nil
}

func (r *stockGorm) ListSymbols(ctx context.Context) ([]string, error) {
	var out []string
	if err := r.db.WithContext(ctx).Model(&StockModel{}).Order("symbol").Pluck("symbol", &out).Error; err != nil {
		return nil, storageErr("list symbols", "", err)
	}
	return out, nil
}

func (r *stockGorm) Create(ctx context.Context, stock *entity.Stock) error {
	m := toModel(stock)
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "symbol"}}, DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return storageErr("create stock", stock.Symbol, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSymbol, stock.Symbol)
	}
	return nil
}

func (r *stockGorm) Save(ctx context.Context, stock *entity.Stock) error {
	m := toModel(stock)
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns(stockUpdateColumns),
		}).
		Create(&m).Error
	if err != nil {
		return storageErr("save stock", stock.Symbol, err)
	}
	return nil
}

func (r *stockGorm) Touch(ctx context.Context, symbol string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&StockModel{}).Where("symbol = ?", symbol).UpdateColumn("updated_at", at)
	if res.Error != nil {
		return storageErr("touch stock", symbol, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, symbol)
	}
	return nil
}

func (r *stockGorm) Remove(ctx context.Context, symbol string) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stock_symbol = ?", symbol).Delete(&DividendHistoryModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("symbol = ?", symbol).Delete(&StockModel{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return storageErr("remove stock", symbol, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, symbol)
	}
	return nil
}

func (r *stockGorm) FindDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
	var rows []DividendHistoryModel
	err := r.db.WithContext(ctx).
		Where("stock_symbol = ? AND payment_date >= ?", symbol, since).
		Order("payment_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("find dividend history", symbol, err)
	}
	out := make([]entity.DividendHistory, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDividendEntity(m))
	}
	return out, nil
}

func (r *stockGorm) UpsertDividendHistory(ctx context.Context, symbol string, entries []entity.DividendHistory) error {
	if len(entries) == 0 {
		return nil
	}
	ms := make([]DividendHistoryModel, 0, len(entries))
	for _, e := range entries {
		ms = append(ms, toDividendModel(symbol, e))
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_symbol"}, {Name: "payment_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "currency"}),
	}).Create(&ms).Error
	if err != nil {
		return storageErr("upsert dividend history", symbol, err)
	}
	return nil
}

func (r *stockGorm) UpdateLastDividendDate(ctx context.Context, symbol string, date time.Time) error {
	err := r.db.WithContext(ctx).Model(&StockModel{}).
		Where("symbol = ?", symbol).
		UpdateColumn("last_dividend_date", date).Error
	if err != nil {
		return storageErr("update last dividend date", symbol, err)
	}
	return nil
}

func toEntities(rows []StockModel) []entity.Stock {
	out := make([]entity.Stock, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out
}

// escapeLike は LIKE のメタ文字をエスケープします。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
