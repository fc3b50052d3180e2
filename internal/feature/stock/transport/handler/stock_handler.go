// Package handler はstockフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/transport/http/dto"
	"divly_backend/internal/feature/stock/usecase"
)

// StockUsecase は銘柄操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type StockUsecase interface {
	GetStock(ctx context.Context, symbol string, opts usecase.GetOptions) (*entity.Stock, error)
	FindMany(ctx context.Context, symbols []string) ([]entity.Stock, error)
	SearchStocks(ctx context.Context, query string, limit int) ([]entity.Stock, error)
	Create(ctx context.Context, in *entity.Stock) (*entity.Stock, error)
	Remove(ctx context.Context, symbol string) error
}

// StockHandler は銘柄のHTTPリクエストを処理します。
type StockHandler struct {
	uc StockUsecase
}

// NewStockHandler は指定されたusecaseでStockHandlerの新しいインスタンスを生成します。
func NewStockHandler(uc StockUsecase) *StockHandler {
	return &StockHandler{uc: uc}
}

// GetStock はキャッシュ状態に応じて銘柄を返します。
//
// エンドポイント例:
// GET /stocks/:symbol?refresh=true&relations=true
func (h *StockHandler) GetStock(c *gin.Context) {
	refresh, err := parseBoolQuery(c, "refresh")
	if err != nil {
		badRequest(c, "refresh must be a boolean")
		return
	}
	relations, err := parseBoolQuery(c, "relations")
	if err != nil {
		badRequest(c, "relations must be a boolean")
		return
	}

	stock, err := h.uc.GetStock(c.Request.Context(), c.Param("symbol"), usecase.GetOptions{
		ForceRefresh:     refresh,
		IncludeRelations: relations,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockResponse(stock))
}

// ListStocks は保存済み銘柄の検索またはまとめて取得を行います。
//
// エンドポイント例:
// GET /stocks?q=coca&limit=10
// GET /stocks?symbols=KO,PEP,T
func (h *StockHandler) ListStocks(c *gin.Context) {
	if raw, ok := c.GetQuery("symbols"); ok {
		stocks, err := h.uc.FindMany(c.Request.Context(), splitSymbols(raw))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewStockResponses(stocks))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	stocks, err := h.uc.SearchStocks(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockResponses(stocks))
}

// CreateStock は銘柄を手動で登録します（管理用）。
func (h *StockHandler) CreateStock(c *gin.Context) {
	var req dto.CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	stock, err := h.uc.Create(c.Request.Context(), req.ToEntity())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewStockResponse(stock))
}

// DeleteStock は銘柄と配当履歴を削除します（管理用）。
func (h *StockHandler) DeleteStock(c *gin.Context) {
	if err := h.uc.Remove(c.Request.Context(), c.Param("symbol")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseBoolQuery(c *gin.Context, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
