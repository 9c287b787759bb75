package handler

import (
	"invoice-financing-engine/internal/adapter/http/middleware"
	"invoice-financing-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	FinancingSvc   ports.FinancingService
	LiquiditySvc   ports.LiquidityService
	PoolID         uuid.UUID
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check verifies PostgreSQL and Redis connectivity.
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	v1 := r.Group("/api/v1")

	financingHandler := NewFinancingHandler(deps.FinancingSvc)
	invoices := v1.Group("/invoices")
	{
		invoices.POST("", financingHandler.CreateInvoice)
		invoices.GET("", financingHandler.ListInvoices)
		invoices.GET("/:id", financingHandler.GetInvoice)
		invoices.POST("/:id/verify", financingHandler.Verify)
		invoices.POST("/:id/finance", financingHandler.Finance)
		invoices.POST("/:id/repay", financingHandler.Repay)
		invoices.POST("/:id/cancel", financingHandler.Cancel)
	}

	v1.GET("/quotes", financingHandler.GetQuote)

	liquidityHandler := NewLiquidityHandler(deps.LiquiditySvc, deps.PoolID)
	pool := v1.Group("/pool")
	{
		pool.POST("/deposits", liquidityHandler.Deposit)
		pool.POST("/withdrawals", liquidityHandler.Withdraw)
		pool.GET("/stats", liquidityHandler.GetPoolStats)
		pool.GET("/positions/:owner_id", liquidityHandler.GetPosition)
	}

	return r
}
