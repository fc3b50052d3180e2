// Package entity defines the domain models for the stock feature.
package entity

import "time"

// Stock is the cached representation of a tradable instrument.
// UpdatedAt is the clock every freshness decision is made against.
type Stock struct {
	Symbol       string  // Upper-cased ticker symbol (e.g., "AAPL", "KO")
	CompanyName  string  // Display name reported by the provider
	Sector       string  // Optional; empty when the provider has no profile
	Industry     string  // Optional; empty when the provider has no profile
	CurrentPrice float64 // Positive, rounded to 2 fraction digits
	Currency     string  // ISO 4217 code, "USD" when unknown

	DividendYield    *float64   // Fraction form (0.031 = 3.1%)
	DividendRate     *float64   // Annual dividend per share
	LastDividendDate *time.Time // Most recent payment seen in dividend history
	NextDividendDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations, populated only when requested.
	DividendHistory []DividendHistory
	Holdings        []PortfolioHolding
}

// DividendHistory is a single dividend payment of a stock.
type DividendHistory struct {
	ID          string // uuid
	Symbol      string
	PaymentDate time.Time
	Amount      float64
	Currency    string
	CreatedAt   time.Time
}

// PortfolioHolding is a position in a user's portfolio that references a stock.
type PortfolioHolding struct {
	ID           string // uuid
	PortfolioID  string
	Symbol       string
	Quantity     int
	AveragePrice float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
