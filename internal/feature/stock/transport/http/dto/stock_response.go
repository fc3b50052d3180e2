// Package dto defines data transfer objects for the stock feature's HTTP transport layer.
package dto

import (
	"time"

	"divly_backend/internal/feature/stock/domain/entity"
)

const dateLayout = "2006-01-02"

// StockResponse は銘柄のレスポンスDTOです。
type StockResponse struct {
	Symbol           string                    `json:"symbol"`
	CompanyName      string                    `json:"companyName"`
	Sector           string                    `json:"sector,omitempty"`
	Industry         string                    `json:"industry,omitempty"`
	CurrentPrice     float64                   `json:"currentPrice"`
	Currency         string                    `json:"currency"`
	DividendYield    *float64                  `json:"dividendYield"`
	DividendRate     *float64                  `json:"dividendRate"`
	LastDividendDate *string                   `json:"lastDividendDate"` // YYYY-MM-DD
	NextDividendDate *string                   `json:"nextDividendDate"` // YYYY-MM-DD
	UpdatedAt        time.Time                 `json:"updatedAt"`
	DividendHistory  []DividendHistoryResponse `json:"dividendHistory,omitempty"`
	Holdings         []HoldingResponse         `json:"holdings,omitempty"`
}

// DividendHistoryResponse は配当履歴1件のレスポンスDTOです。
type DividendHistoryResponse struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	PaymentDate string  `json:"paymentDate"` // YYYY-MM-DD
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// HoldingResponse はこの銘柄を参照するポートフォリオ保有のレスポンスDTOです。
type HoldingResponse struct {
	ID           string  `json:"id"`
	PortfolioID  string  `json:"portfolioId"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"averagePrice"`
}

// NewStockResponse はエンティティをレスポンスDTOに変換します。
func NewStockResponse(s *entity.Stock) StockResponse {
	out := StockResponse{
		Symbol:           s.Symbol,
		CompanyName:      s.CompanyName,
		Sector:           s.Sector,
		Industry:         s.Industry,
		CurrentPrice:     s.CurrentPrice,
		Currency:         s.Currency,
		DividendYield:    s.DividendYield,
		DividendRate:     s.DividendRate,
		LastDividendDate: formatDate(s.LastDividendDate),
		NextDividendDate: formatDate(s.NextDividendDate),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
	if len(s.DividendHistory) > 0 {
		out.DividendHistory = NewDividendHistoryResponses(s.DividendHistory)
	}
	for _, h := range s.Holdings {
		out.Holdings = append(out.Holdings, HoldingResponse{
			ID:           h.ID,
			PortfolioID:  h.PortfolioID,
			Quantity:     h.Quantity,
			AveragePrice: h.AveragePrice,
		})
	}
	return out
}

// NewStockResponses は複数の銘柄を変換します。空の場合も空配列を返します。
func NewStockResponses(stocks []entity.Stock) []StockResponse {
	out := make([]StockResponse, 0, len(stocks))
	for i := range stocks {
		out = append(out, NewStockResponse(&stocks[i]))
	}
	return out
}

// NewDividendHistoryResponses は配当履歴を変換します。空の場合も空配列を返します。
func NewDividendHistoryResponses(history []entity.DividendHistory) []DividendHistoryResponse {
	out := make([]DividendHistoryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, DividendHistoryResponse{
			ID:          h.ID,
			Symbol:      h.Symbol,
			PaymentDate: h.PaymentDate.UTC().Format(dateLayout),
			Amount:      h.Amount,
			Currency:    h.Currency,
		})
	}
	return out
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}
