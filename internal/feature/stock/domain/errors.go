// Package domain defines domain-level errors for the stock feature.
package domain

import "errors"

// Domain errors for stock data operations.
// Callers match them with errors.Is; adapters wrap them with context using %w.
var (
	// ErrInvalidInput indicates a malformed symbol, price, query, or request payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataIntegrity indicates that a provider payload failed validation
	// (symbol mismatch, price out of range, missing company name).
	ErrDataIntegrity = errors.New("provider data failed integrity check")

	// ErrUpstreamUnavailable indicates that the market data provider failed or timed out.
	ErrUpstreamUnavailable = errors.New("market data provider unavailable")

	// ErrDuplicateSymbol is returned when creating a stock whose symbol already exists.
	ErrDuplicateSymbol = errors.New("stock with this symbol already exists")

	// ErrNotFound indicates that no stock was found for the given symbol.
	ErrNotFound = errors.New("stock not found")

	// ErrStorageUnavailable indicates that the persistent store failed.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
