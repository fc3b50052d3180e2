// Package externalapi holds types shared by the market data provider clients.
package externalapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is returned when a provider answers with a non-2xx status
// or an error envelope in an otherwise successful response.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s http %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Message)
}

// NewAPIError builds an APIError from a failed response, keeping a short body excerpt.
func NewAPIError(provider string, res *http.Response) *APIError {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &APIError{
		Provider:   provider,
		StatusCode: res.StatusCode,
		Message:    strings.TrimSpace(string(b)),
	}
}
