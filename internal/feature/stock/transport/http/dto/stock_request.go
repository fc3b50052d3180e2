package dto

import (
	"time"

	"divly_backend/internal/feature/stock/domain/entity"
)

// CreateStockRequest は POST /stocks のリクエストボディです。
// 価格の丸めと正値チェックはusecase側で行います。
type CreateStockRequest struct {
	Symbol           string   `json:"symbol" binding:"required,max=10"`
	CompanyName      string   `json:"companyName" binding:"required,max=255"`
	Sector           string   `json:"sector" binding:"max=100"`
	Industry         string   `json:"industry" binding:"max=100"`
	CurrentPrice     float64  `json:"currentPrice" binding:"required,gt=0"`
	Currency         string   `json:"currency" binding:"omitempty,len=3"`
	DividendYield    *float64 `json:"dividendYield" binding:"omitempty,gte=0"`
	DividendRate     *float64 `json:"dividendRate" binding:"omitempty,gte=0"`
	LastDividendDate string   `json:"lastDividendDate" binding:"omitempty,datetime=2006-01-02"`
	NextDividendDate string   `json:"nextDividendDate" binding:"omitempty,datetime=2006-01-02"`
}

// ToEntity はリクエストをエンティティに変換します。日付はバインド時に形式を検証済みです。
func (r CreateStockRequest) ToEntity() *entity.Stock {
	return &entity.Stock{
		Symbol:           r.Symbol,
		CompanyName:      r.CompanyName,
		Sector:           r.Sector,
		Industry:         r.Industry,
		CurrentPrice:     r.CurrentPrice,
		Currency:         r.Currency,
		DividendYield:    r.DividendYield,
		DividendRate:     r.DividendRate,
		LastDividendDate: parseDate(r.LastDividendDate),
		NextDividendDate: parseDate(r.NextDividendDate),
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// ErrorResponse はエラーレスポンスのDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}
