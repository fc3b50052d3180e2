package entity

import "time"

// StockInfo is a quote payload returned by a market data provider.
// It is never persisted as-is.
type StockInfo struct {
	Symbol        string
	CompanyName   string
	CurrentPrice  float64
	Currency      string
	DividendRate  *float64
	DividendYield *float64
}

// DividendRecord is a single dividend payment reported by a provider.
type DividendRecord struct {
	Symbol      string
	PaymentDate time.Time
	Amount      float64
	Currency    string
}

// CompanyOverview is the company profile reported by a provider.
type CompanyOverview struct {
	Symbol      string
	Sector      string
	Industry    string
	Description string
	Website     string
}
