package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/usecase"
	"divly_backend/internal/platform/externalapi"
	"divly_backend/internal/platform/externalapi/twelvedata/dto"
	"divly_backend/internal/shared/ratelimiter"
)

const provider = "twelvedata"

// TwelveDataMarket はTwelve Data外部APIから株価・配当・企業概要を取得するMarketDataProvider実装です。
type TwelveDataMarket struct {
	cfg      Config
	client   *http.Client
	limiter  ratelimiter.RateLimiterInterface
	validate *validator.Validate
}

// TwelveDataMarketがMarketDataProviderを実装していることをコンパイル時に検証します。
var _ usecase.MarketDataProvider = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
// limiter が nil の場合はリクエスト頻度を制限しません。
func NewTwelveDataMarket(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *TwelveDataMarket {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TwelveDataMarket{
		cfg:      cfg,
		client:   client,
		limiter:  limiter,
		validate: validator.New(),
	}
}

// GetStockInfo は /quote から現在値と銘柄名を取得します。
// Twelve Data の quote には配当情報が含まれないため、配当利回りと配当額は nil です。
func (t *TwelveDataMarket) GetStockInfo(ctx context.Context, symbol string) (*entity.StockInfo, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var body dto.QuoteResponse
	if err := t.get(ctx, "quote", q, &body); err != nil {
		return nil, err
	}

	price, err := strconv.ParseFloat(body.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parse close %q: %w", body.Close, err)
	}
	return &entity.StockInfo{
		Symbol:       body.Symbol,
		CompanyName:  body.Name,
		CurrentPrice: price,
		Currency:     body.Currency,
	}, nil
}

// GetCompanyOverview は /profile からセクター・業種などの企業概要を取得します。
func (t *TwelveDataMarket) GetCompanyOverview(ctx context.Context, symbol string) (*entity.CompanyOverview, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var body dto.ProfileResponse
	if err := t.get(ctx, "profile", q, &body); err != nil {
		return nil, err
	}
	return &entity.CompanyOverview{
		Symbol:      body.Symbol,
		Sector:      body.Sector,
		Industry:    body.Industry,
		Description: body.Description,
		Website:     body.Website,
	}, nil
}

// GetDividendHistory は /dividends から since 以降の配当履歴を取得します。
// Twelve Data は権利落ち日（ex_date）のみを返すため、それを支払日として扱います。
func (t *TwelveDataMarket) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendRecord, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start_date", since.Format("2006-01-02"))

	var body dto.DividendsResponse
	if err := t.get(ctx, "dividends", q, &body); err != nil {
		return nil, err
	}

	out := make([]entity.DividendRecord, 0, len(body.Dividends))
	for _, d := range body.Dividends {
		// ex_date は validate で形式を検証済み
		date, _ := time.Parse("2006-01-02", d.ExDate)
		out = append(out, entity.DividendRecord{
			Symbol:      body.Meta.Symbol,
			PaymentDate: date,
			Amount:      d.Amount,
			Currency:    body.Meta.Currency,
		})
	}
	return out, nil
}

// get はレートリミットを待ってからエンドポイントを呼び出し、レスポンスを out にデコードして検証します。
func (t *TwelveDataMarket) get(ctx context.Context, path string, q url.Values, out any) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	q.Set("apikey", t.cfg.TwelveDataAPIKey)

	// URLを生成
	u := fmt.Sprintf("%s/%s?%s", t.cfg.BaseURL, path, q.Encode())

	// リクエストオブジェクトを作成
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	// リクエストを実行
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return externalapi.NewAPIError(provider, res)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	// エラー時もHTTP 200で {"status":"error"} が返る
	var env dto.ErrorEnvelope
	if err := json.Unmarshal(b, &env); err == nil && env.Status == "error" {
		return &externalapi.APIError{Provider: provider, StatusCode: env.Code, Message: env.Message}
	}

	// JSONレスポンスをDTOにデコード
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("twelvedata %s: decode: %w", path, err)
	}
	if err := t.validate.Struct(out); err != nil {
		return fmt.Errorf("twelvedata %s: invalid response: %w", path, err)
	}
	return nil
}
