// Package dto defines the Twelve Data response payloads.
package dto

// ErrorEnvelope is the body Twelve Data returns with HTTP 200 when a request fails.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QuoteResponse is the subset of /quote used by this service.
// Numeric fields arrive as strings.
type QuoteResponse struct {
	Symbol   string `json:"symbol" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	Close    string `json:"close" validate:"required,numeric"`
}

// ProfileResponse is the subset of /profile used by this service.
type ProfileResponse struct {
	Symbol      string `json:"symbol" validate:"required"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// DividendsResponse is the body of /dividends.
type DividendsResponse struct {
	Meta struct {
		Symbol   string `json:"symbol" validate:"required"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Dividends []Dividend `json:"dividends" validate:"dive"`
}

// Dividend is a single entry of /dividends.
type Dividend struct {
	ExDate string  `json:"ex_date" validate:"required,datetime=2006-01-02"`
	Amount float64 `json:"amount" validate:"gte=0"`
}
