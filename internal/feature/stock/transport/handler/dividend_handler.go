package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"divly_backend/internal/feature/stock/domain/entity"
	"divly_backend/internal/feature/stock/transport/http/dto"
	"divly_backend/internal/feature/stock/usecase"
)

// DividendUsecase は配当履歴取得のユースケースインターフェースです。
type DividendUsecase interface {
	GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]entity.DividendHistory, error)
}

// DividendHandler は配当履歴のHTTPリクエストを処理します。
type DividendHandler struct {
	uc DividendUsecase
}

// NewDividendHandler は指定されたusecaseでDividendHandlerの新しいインスタンスを生成します。
func NewDividendHandler(uc DividendUsecase) *DividendHandler {
	return &DividendHandler{uc: uc}
}

// GetDividendHistory は since 以降の配当履歴を新しい順に返します。
//
// エンドポイント例:
// GET /stocks/:symbol/dividend-history?since=2020-01-01
func (h *DividendHandler) GetDividendHistory(c *gin.Context) {
	since := usecase.DefaultDividendSince
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(c, "since must be YYYY-MM-DD")
			return
		}
		since = t
	}

	history, err := h.uc.GetDividendHistory(c.Request.Context(), c.Param("symbol"), since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewDividendHistoryResponses(history))
}
