package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"divly_backend/internal/feature/stock/domain"
	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/transport/handler"
	"divly_backend/internal/feature/stock/usecase"
)

type mockDividendUsecase struct {
	GetDividendHistoryFunc func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error)
}

func (m *mockDividendUsecase) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
	return m.GetDividendHistoryFunc(ctx, symbol, since)
}

func TestDividendHandler_GetDividendHistory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		url            string
		mockFunc       func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "default since",
			url:  "/stocks/KO/dividend-history",
			mockFunc: func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
				assert.Equal(t, "KO", symbol)
				assert.True(t, since.Equal(usecase.DefaultDividendSince))
				return []entity.DividendHistory{
					{ID: "b", Symbol: "KO", PaymentDate: time.Date(2024, 9, 13, 0, 0, 0, 0, time.UTC), Amount: 0.49, Currency: "USD"},
					{ID: "a", Symbol: "KO", PaymentDate: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), Amount: 0.49, Currency: "USD"},
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody: `[
				{"id":"b","symbol":"KO","paymentDate":"2024-09-13","amount":0.49,"currency":"USD"},
				{"id":"a","symbol":"KO","paymentDate":"2024-06-14","amount":0.49,"currency":"USD"}
			]`,
		},
		{
			name: "explicit since and empty history",
			url:  "/stocks/VOO/dividend-history?since=2024-01-01",
			mockFunc: func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), since)
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "invalid since",
			url:            "/stocks/KO/dividend-history?since=yesterday",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"since must be YYYY-MM-DD"}`,
		},
		{
			name: "upstream failure without stored history",
			url:  "/stocks/KO/dividend-history",
			mockFunc: func(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error) {
				return nil, fmt.Errorf("%w: dividends KO: timeout", domain.ErrUpstreamUnavailable)
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"error":"market data provider unavailable: dividends KO: timeout"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := handler.NewDividendHandler(&mockDividendUsecase{GetDividendHistoryFunc: tt.mockFunc})
			r := gin.New()
			r.GET("/stocks/:symbol/dividend-history", h.GetDividendHistory)

			w := serve(r, http.MethodGet, tt.url, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
