package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"divly_backend/internal/feature/stock/domain"
	"divly_backend/internal/feature/stock/domain/entity"
)

const (
	// maxProviderPrice は外部APIから受け付ける株価の上限です。
	maxProviderPrice = 1_000_000
	// defaultCurrency は通貨が不明な場合に使用する通貨コードです。
	defaultCurrency = "USD"
)

// priceChangeThreshold は保存済みレコードを上書きする価格変動率（1%）です。
var priceChangeThreshold = decimal.NewFromFloat(0.01)

// NormalizeSymbol は前後の空白を除去し大文字に変換します。
// 空文字になる場合は domain.ErrInvalidInput を返します。
func NormalizeSymbol(input string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return "", fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	return s, nil
}

// ValidateAndRoundPrice は価格が正の値であることを検証し、小数点以下2桁に丸めます（四捨五入）。
func ValidateAndRoundPrice(price float64) (float64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive, got %v", domain.ErrInvalidInput, price)
	}
	rounded := roundTo(price, 2)
	if rounded <= 0 {
		return 0, fmt.Errorf("%w: price %v rounds to zero", domain.ErrInvalidInput, price)
	}
	return rounded, nil
}

// ValidateProviderData は外部APIのレスポンスが要求したシンボルのものであり、
// 価格と会社名が妥当であることを検証します。違反は domain.ErrDataIntegrity です。
func ValidateProviderData(info *entity.StockInfo, requestedSymbol string) error {
	if info == nil {
		return fmt.Errorf("%w: empty response for %s", domain.ErrDataIntegrity, requestedSymbol)
	}
	got := strings.ToUpper(strings.TrimSpace(info.Symbol))
	want := strings.ToUpper(strings.TrimSpace(requestedSymbol))
	if got != want {
		return fmt.Errorf("%w: symbol mismatch: requested %s, got %s", domain.ErrDataIntegrity, want, got)
	}
	if math.IsNaN(info.CurrentPrice) || info.CurrentPrice <= 0 || info.CurrentPrice > maxProviderPrice {
		return fmt.Errorf("%w: price %v out of range for %s", domain.ErrDataIntegrity, info.CurrentPrice, want)
	}
	if strings.TrimSpace(info.CompanyName) == "" {
		return fmt.Errorf("%w: company name missing for %s", domain.ErrDataIntegrity, want)
	}
	return nil
}

// ShouldUpdate は新しいデータで保存済みレコードを上書きすべきかを判定します。
// 価格の変動率が1%以上、または会社名・セクター・業種のいずれかが異なる場合に true を返します。
// existing は変更しません。
func ShouldUpdate(existing, incoming *entity.Stock) bool {
	if existing == nil {
		return true
	}
	if incoming == nil {
		return false
	}
	if existing.CompanyName != incoming.CompanyName ||
		existing.Sector != incoming.Sector ||
		existing.Industry != incoming.Industry {
		return true
	}

	oldPrice := decimal.NewFromFloat(existing.CurrentPrice)
	if !oldPrice.IsPositive() {
		return true
	}
	delta := decimal.NewFromFloat(incoming.CurrentPrice).Sub(oldPrice).Abs().Div(oldPrice)
	return delta.GreaterThanOrEqual(priceChangeThreshold)
}

// PrepareStockData は株価情報と企業概要を保存用の形に整形します。overview は nil でも構いません。
// タイムスタンプは呼び出し側で設定します。
func PrepareStockData(info *entity.StockInfo, overview *entity.CompanyOverview) (*entity.Stock, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: stock info is required", domain.ErrDataIntegrity)
	}
	// 外部APIのデータ不備は入力エラーではないため ErrDataIntegrity のみでラップする
	symbol, err := NormalizeSymbol(info.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: symbol %q: %v", domain.ErrDataIntegrity, info.Symbol, err)
	}
	price, err := ValidateAndRoundPrice(info.CurrentPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: price %v: %v", domain.ErrDataIntegrity, info.CurrentPrice, err)
	}

	s := &entity.Stock{
		Symbol:        symbol,
		CompanyName:   strings.TrimSpace(info.CompanyName),
		CurrentPrice:  price,
		Currency:      normalizeCurrency(info.Currency),
		DividendRate:  roundPtr(info.DividendRate, 2),
		DividendYield: roundPtr(info.DividendYield, 4),
	}
	if overview != nil {
		s.Sector = strings.TrimSpace(overview.Sector)
		s.Industry = strings.TrimSpace(overview.Industry)
	}
	return s, nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency
	}
	return c
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	r := roundTo(*v, places)
	return &r
}
