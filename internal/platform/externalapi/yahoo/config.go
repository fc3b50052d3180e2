// Package yahoo provides a client for the unofficial Yahoo Finance JSON API.
package yahoo

import "time"

const (
	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	// DefaultCookieURL sets the session cookie that the crumb endpoint requires.
	DefaultCookieURL = "https://fc.yahoo.com"
	// DefaultUserAgent is sent when the caller does not configure one; Yahoo rejects empty agents.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Config holds configuration for the Yahoo Finance client.
type Config struct {
	BaseURL   string
	CookieURL string
	UserAgent string
	Timeout   time.Duration
}
