package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/externalapi"
	"divly_backend/internal/platform/externalapi/yahoo/dto"
	"divly_backend/internal/shared/ratelimiter"
)

const (
	provider     = "yahoo"
	crumbTimeout = 15 * time.Second
)

var errInvalidCrumb = errors.New("yahoo: invalid crumb response")

// YahooMarket はYahoo Financeから株価・配当・企業概要を取得するMarketDataProvider実装です。
//
// Yahoo Finance の API は Cookie とそれに紐づく crumb を要求します。
// crumb は初回呼び出し時に取得してキャッシュし、401 が返った場合は一度だけ再取得します。
// Cookie を保持するため、client には CookieJar と User-Agent を設定しておく必要があります。
type YahooMarket struct {
	cfg      Config
	client   *http.Client
	limiter  ratelimiter.RateLimiterInterface
	validate *validator.Validate

	mu          sync.Mutex
	crumb       string
	crumbFlight singleflight.Group
}

var _ usecase.MarketDataProvider = (*YahooMarket)(nil)

// NewYahooMarket はYahooMarketの新しいインスタンスを生成します。
// limiter が nil の場合はリクエスト頻度を制限しません。
func NewYahooMarket(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *YahooMarket {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = DefaultCookieURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &YahooMarket{
		cfg:      cfg,
		client:   client,
		limiter:  limiter,
		validate: validator.New(),
	}
}

// GetStockInfo は /v7/finance/quote から現在値・銘柄名・配当情報を取得します。
func (y *YahooMarket) GetStockInfo(ctx context.Context, symbol string) (*entity.StockInfo, error) {
	q := url.Values{}
	q.Set("symbols", symbol)

	var body dto.QuoteResponse
	if err := y.get(ctx, "/v7/finance/quote", q, &body); err != nil {
		return nil, err
	}
	if err := envelopeError(body.QuoteResponse.Error); err != nil {
		return nil, err
	}
	if len(body.QuoteResponse.Result) == 0 {
		return nil, &externalapi.APIError{Provider: provider, StatusCode: http.StatusNotFound, Message: "no quote for " + symbol}
	}

	quote := body.QuoteResponse.Result[0]
	name := quote.LongName
	if name == "" {
		name = quote.ShortName
	}
	rate := quote.DividendRate
	if rate == nil {
		rate = quote.TrailingAnnualDividendRate
	}
	return &entity.StockInfo{
		Symbol:        quote.Symbol,
		CompanyName:   name,
		CurrentPrice:  quote.RegularMarketPrice,
		Currency:      quote.Currency,
		DividendRate:  rate,
		DividendYield: quote.TrailingAnnualDividendYield,
	}, nil
}

// GetCompanyOverview は quoteSummary の assetProfile モジュールから企業概要を取得します。
func (y *YahooMarket) GetCompanyOverview(ctx context.Context, symbol string) (*entity.CompanyOverview, error) {
	q := url.Values{}
	q.Set("modules", "assetProfile")

	var body dto.QuoteSummaryResponse
	if err := y.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q, &body); err != nil {
		return nil, err
	}
	if err := envelopeError(body.QuoteSummary.Error); err != nil {
		return nil, err
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, &externalapi.APIError{Provider: provider, StatusCode: http.StatusNotFound, Message: "no profile for " + symbol}
	}

	p := body.QuoteSummary.Result[0].AssetProfile
	return &entity.CompanyOverview{
		Symbol:      symbol,
		Sector:      p.Sector,
		Industry:    p.Industry,
		Description: p.LongBusinessSummary,
		Website:     p.Website,
	}, nil
}

// GetDividendHistory は chart API の配当イベントから since 以降の配当履歴を取得します。
// 結果は支払日の昇順です。
func (y *YahooMarket) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendRecord, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(since.Unix(), 10))
	q.Set("period2", strconv.FormatInt(time.Now().Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div")

	var body dto.ChartResponse
	if err := y.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &body); err != nil {
		return nil, err
	}
	if err := envelopeError(body.Chart.Error); err != nil {
		return nil, err
	}
	if len(body.Chart.Result) == 0 {
		return nil, nil
	}

	res := body.Chart.Result[0]
	out := make([]entity.DividendRecord, 0, len(res.Events.Dividends))
	for _, d := range res.Events.Dividends {
		out = append(out, entity.DividendRecord{
			Symbol:      res.Meta.Symbol,
			PaymentDate: time.Unix(d.Date, 0).UTC(),
			Amount:      d.Amount,
			Currency:    res.Meta.Currency,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.Before(out[j].PaymentDate) })
	return out, nil
}

// get は crumb を付与してエンドポイントを呼び出し、レスポンスを out にデコードして検証します。
// 401 の場合は crumb を破棄して一度だけ再試行します。
func (y *YahooMarket) get(ctx context.Context, path string, q url.Values, out any) error {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		crumb, err := y.getCrumb(ctx)
		if err != nil {
			return err
		}
		q.Set("crumb", crumb)

		res, err := y.do(ctx, y.cfg.BaseURL+path+"?"+q.Encode())
		if err != nil {
			return err
		}

		if res.StatusCode == http.StatusUnauthorized && attempt == 0 {
			closeBody(res)
			slog.Info("yahoo crumb rejected, refreshing", "path", path)
			y.resetCrumb(crumb)
			continue
		}
		return y.decode(res, path, out)
	}
}

func (y *YahooMarket) decode(res *http.Response, path string, out any) error {
	defer closeBody(res)

	if res.StatusCode >= 400 {
		return externalapi.NewAPIError(provider, res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("yahoo %s: decode: %w", path, err)
	}
	if err := y.validate.Struct(out); err != nil {
		return fmt.Errorf("yahoo %s: invalid response: %w", path, err)
	}
	return nil
}

// getCrumb はキャッシュ済みの crumb を返し、なければ Cookie と crumb を取得します。
// 取得は singleflight で1回にまとめ、待機中の呼び出し元は自身の ctx の終了で離脱します。
func (y *YahooMarket) getCrumb(ctx context.Context) (string, error) {
	y.mu.Lock()
	crumb := y.crumb
	y.mu.Unlock()
	if crumb != "" {
		return crumb, nil
	}

	ch := y.crumbFlight.DoChan("crumb", func() (any, error) {
		// 共有される取得処理は最初の呼び出し元のキャンセルに巻き込まれないようにする
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), crumbTimeout)
		defer cancel()

		crumb, err := y.fetchCrumb(fctx)
		if err != nil {
			return "", err
		}
		y.mu.Lock()
		y.crumb = crumb
		y.mu.Unlock()
		return crumb, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (y *YahooMarket) fetchCrumb(ctx context.Context) (string, error) {
	// fc.yahoo.com は 404 を返すが Set-Cookie は付与されるのでステータスは見ない
	res, err := y.do(ctx, y.cfg.CookieURL)
	if err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	closeBody(res)

	res, err = y.do(ctx, y.cfg.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	defer closeBody(res)

	if res.StatusCode != http.StatusOK {
		return "", externalapi.NewAPIError(provider, res)
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, 256))
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(b))
	if crumb == "" || strings.Contains(crumb, "<") {
		return "", errInvalidCrumb
	}
	return crumb, nil
}

// resetCrumb は stale と一致する場合のみ crumb を破棄します（並行リクエストが既に更新していれば何もしない）。
func (y *YahooMarket) resetCrumb(stale string) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb == stale {
		y.crumb = ""
	}
}

func (y *YahooMarket) do(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return y.client.Do(req)
}

func envelopeError(e *dto.Error) error {
	if e == nil {
		return nil
	}
	status := http.StatusBadGateway
	if e.Code == "Not Found" {
		status = http.StatusNotFound
	}
	return &externalapi.APIError{Provider: provider, StatusCode: status, Message: e.Description}
}

func closeBody(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	if err := res.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}
