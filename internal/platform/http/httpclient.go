// Package http provides the outbound HTTP client used by market data adapters.
package http

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Option configures the client built by NewHTTPClient.
type Option func(*clientOptions)

type clientOptions struct {
	userAgent string
	cookieJar bool
}

// WithUserAgent sets the User-Agent header on every request that does not already carry one.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithCookieJar attaches an in-memory cookie jar (needed by providers with session cookies).
func WithCookieJar() Option {
	return func(o *clientOptions) { o.cookieJar = true }
}

// NewHTTPClient は外部API呼び出し用に設定されたHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - MaxIdleConns: 最大アイドル接続数（高負荷時の枯渇防止のため100）
//   - Client.Timeout: リクエスト全体のタイムアウト（呼び出し元から渡される）
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にカスタムクライアントを使用すること
func NewHTTPClient(timeout time.Duration, opts ...Option) *http.Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if o.userAgent != "" {
		rt = &userAgentTransport{base: rt, userAgent: o.userAgent}
	}

	client := &http.Client{Timeout: timeout, Transport: rt}
	if o.cookieJar {
		// cookiejar.New only fails with a non-nil PublicSuffixList
		jar, _ := cookiejar.New(nil)
		client.Jar = jar
	}
	return client
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
