// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"github.com/gin-gonic/gin"

	stockhandler "divly_backend/internal/feature/stock/transport/handler"
	"divly_backend/internal/platform/http/handler"
)

// NewRouter は全エンドポイントを登録したginエンジンを生成します。
// readiness には /readyz で確認する依存先（DB, Redisなど）を渡します。
func NewRouter(stocks *stockhandler.StockHandler, dividends *stockhandler.DividendHandler,
	readiness map[string]handler.Check) *gin.Engine {
	r := gin.Default()

	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	// 依存先の疎通確認
	r.GET("/readyz", handler.Ready(readiness))

	s := r.Group("/stocks")
	{
		// 検索（?q=）またはまとめて取得（?symbols=）
		s.GET("", stocks.ListStocks)
		s.GET("/:symbol", stocks.GetStock)
		s.GET("/:symbol/dividend-history", dividends.GetDividendHistory)

		// 管理用
		s.POST("", stocks.CreateStock)
		s.DELETE("/:symbol", stocks.DeleteStock)
	}

	return r
}
