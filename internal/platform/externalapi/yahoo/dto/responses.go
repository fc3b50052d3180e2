// Package dto defines the Yahoo Finance response payloads.
package dto

// Error is the error object embedded in every Yahoo Finance envelope.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// QuoteResponse is the body of /v7/finance/quote.
type QuoteResponse struct {
	QuoteResponse struct {
		Result []Quote `json:"result" validate:"dive"`
		Error  *Error  `json:"error"`
	} `json:"quoteResponse"`
}

// Quote is a single entry of /v7/finance/quote.
type Quote struct {
	Symbol                      string   `json:"symbol" validate:"required"`
	LongName                    string   `json:"longName"`
	ShortName                   string   `json:"shortName"`
	Currency                    string   `json:"currency"`
	RegularMarketPrice          float64  `json:"regularMarketPrice" validate:"gte=0"`
	DividendRate                *float64 `json:"dividendRate" validate:"omitempty,gte=0"`
	TrailingAnnualDividendRate  *float64 `json:"trailingAnnualDividendRate" validate:"omitempty,gte=0"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield" validate:"omitempty,gte=0"`
}

// QuoteSummaryResponse is the body of /v10/finance/quoteSummary with modules=assetProfile.
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile AssetProfile `json:"assetProfile"`
		} `json:"result"`
		Error *Error `json:"error"`
	} `json:"quoteSummary"`
}

// AssetProfile is the company profile module of quoteSummary.
type AssetProfile struct {
	Sector              string `json:"sector"`
	Industry            string `json:"industry"`
	LongBusinessSummary string `json:"longBusinessSummary"`
	Website             string `json:"website"`
}

// ChartResponse is the body of /v8/finance/chart with events=div.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result" validate:"dive"`
		Error  *Error        `json:"error"`
	} `json:"chart"`
}

// ChartResult holds the chart metadata and the dividend events keyed by unix timestamp.
type ChartResult struct {
	Meta struct {
		Symbol   string `json:"symbol" validate:"required"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Events struct {
		Dividends map[string]ChartDividend `json:"dividends" validate:"dive"`
	} `json:"events"`
}

// ChartDividend is a single dividend event; Date is a unix timestamp in seconds.
type ChartDividend struct {
	Amount float64 `json:"amount" validate:"gte=0"`
	Date   int64   `json:"date" validate:"gt=0"`
}
