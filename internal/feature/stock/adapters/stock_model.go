package adapters

import (
	"time"

	"github.com/shopspring/decimal"

	"divly_backend/internal/feature/stock/domain/entity"
)

// StockModel は stocks テーブルのgormモデルです。
// created_at / updated_at はユースケース側の時計で設定するため、gormの自動設定を無効にしています。
type StockModel struct {
	Symbol       string          `gorm:"primaryKey;size:16"`
	CompanyName  string          `gorm:"size:255;not null"`
	Sector       string          `gorm:"size:128;not null;default:''"`
	Industry     string          `gorm:"size:128;not null;default:''"`
	CurrentPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency     string          `gorm:"size:3;not null;default:'USD'"`

	DividendYield    decimal.NullDecimal `gorm:"type:decimal(6,4)"`
	DividendRate     decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	LastDividendDate *time.Time          `gorm:"type:date"`
	NextDividendDate *time.Time          `gorm:"type:date"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;index;autoUpdateTime:false"`

	DividendHistory []DividendHistoryModel  `gorm:"foreignKey:StockSymbol;references:Symbol;constraint:OnDelete:CASCADE"`
	Holdings        []PortfolioHoldingModel `gorm:"foreignKey:StockSymbol;references:Symbol"`
}

func (StockModel) TableName() string {
	return "stocks"
}

// DividendHistoryModel は dividend_history テーブルのgormモデルです。
type DividendHistoryModel struct {
	ID          string          `gorm:"primaryKey;size:36"`
	StockSymbol string          `gorm:"size:16;not null;uniqueIndex:dividend_sym_date,priority:1"`
	PaymentDate time.Time       `gorm:"type:date;not null;uniqueIndex:dividend_sym_date,priority:2"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency    string          `gorm:"size:3;not null"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime:false"`
}

func (DividendHistoryModel) TableName() string {
	return "dividend_history"
}

// PortfolioHoldingModel は portfolio_holdings テーブルのgormモデルです。
// このモジュールからは銘柄のリレーションとして読み込むだけです。
type PortfolioHoldingModel struct {
	ID           string          `gorm:"primaryKey;size:36"`
	PortfolioID  string          `gorm:"size:36;not null;index"`
	StockSymbol  string          `gorm:"size:16;not null;index"`
	Quantity     int             `gorm:"not null"`
	AveragePrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PortfolioHoldingModel) TableName() string {
	return "portfolio_holdings"
}

// Models はマイグレーション対象のモデルを返します。
func Models() []any {
	return []any{&StockModel{}, &DividendHistoryModel{}, &PortfolioHoldingModel{}}
}

func toModel(e *entity.Stock) StockModel {
	return StockModel{
		Symbol:           e.Symbol,
		CompanyName:      e.CompanyName,
		Sector:           e.Sector,
		Industry:         e.Industry,
		CurrentPrice:     decimal.NewFromFloat(e.CurrentPrice),
		Currency:         e.Currency,
		DividendYield:    toNullDecimal(e.DividendYield),
		DividendRate:     toNullDecimal(e.DividendRate),
		LastDividendDate: e.LastDividendDate,
		NextDividendDate: e.NextDividendDate,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toEntity(m StockModel) entity.Stock {
	s := entity.Stock{
		Symbol:           m.Symbol,
		CompanyName:      m.CompanyName,
		Sector:           m.Sector,
		Industry:         m.Industry,
		CurrentPrice:     m.CurrentPrice.InexactFloat64(),
		Currency:         m.Currency,
		DividendYield:    fromNullDecimal(m.DividendYield),
		DividendRate:     fromNullDecimal(m.DividendRate),
		LastDividendDate: m.LastDividendDate,
		NextDividendDate: m.NextDividendDate,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	for _, h := range m.DividendHistory {
		s.DividendHistory = append(s.DividendHistory, toDividendEntity(h))
	}
	for _, h := range m.Holdings {
		s.Holdings = append(s.Holdings, entity.PortfolioHolding{
			ID:           h.ID,
			PortfolioID:  h.PortfolioID,
			Symbol:       h.StockSymbol,
			Quantity:     h.Quantity,
			AveragePrice: h.AveragePrice.InexactFloat64(),
			CreatedAt:    h.CreatedAt,
			UpdatedAt:    h.UpdatedAt,
		})
	}
	return s
}

func toDividendModel(symbol string, e entity.DividendHistory) DividendHistoryModel {
	return DividendHistoryModel{
		ID:          e.ID,
		StockSymbol: symbol,
		PaymentDate: e.PaymentDate,
		Amount:      decimal.NewFromFloat(e.Amount),
		Currency:    e.Currency,
		CreatedAt:   e.CreatedAt,
	}
}

func toDividendEntity(m DividendHistoryModel) entity.DividendHistory {
	return entity.DividendHistory{
		ID:          m.ID,
		Symbol:      m.StockSymbol,
		PaymentDate: m.PaymentDate,
		Amount:      m.Amount.InexactFloat64(),
		Currency:    m.Currency,
		CreatedAt:   m.CreatedAt,
	}
}

func toNullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

func fromNullDecimal(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
