package handler

import (
	"strconv"

	"invoice-financing-engine/internal/adapter/http/dto"
	"invoice-financing-engine/internal/core/ports"
	"invoice-financing-engine/pkg/apperror"
	"invoice-financing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LiquidityHandler handles pool accounting endpoints. All routes operate on
// the single pool the engine was started with.
type LiquidityHandler struct {
	liquiditySvc ports.LiquidityService
	poolID       uuid.UUID
}

// NewLiquidityHandler creates a new LiquidityHandler.
func NewLiquidityHandler(liquiditySvc ports.LiquidityService, poolID uuid.UUID) *LiquidityHandler {
	return &LiquidityHandler{liquiditySvc: liquiditySvc, poolID: poolID}
}

// Deposit handles POST /api/v1/pool/deposits.
func (h *LiquidityHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner id"))
		return
	}

	result, err := h.liquiditySvc.Deposit(c.Request.Context(), ports.DepositRequest{
		PoolID:  h.poolID,
		OwnerID: ownerID,
		Amount:  req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		PositionID:    result.Position.ID.String(),
		Shares:        result.Position.Shares,
		SharesMinted:  result.SharesMinted,
		PoolBalance:   result.PoolBalance,
		PricePerShare: result.PricePerShare,
	})
}

// Withdraw handles POST /api/v1/pool/withdrawals.
func (h *LiquidityHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner id"))
		return
	}

	result, err := h.liquiditySvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		PoolID:  h.poolID,
		OwnerID: ownerID,
		Shares:  req.Shares,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawResponse{
		PositionID:  result.Position.ID.String(),
		Shares:      result.Position.Shares,
		Status:      string(result.Position.Status),
		AmountOut:   result.AmountOut,
		PoolBalance: result.PoolBalance,
	})
}

// GetPoolStats handles GET /api/v1/pool/stats.
func (h *LiquidityHandler) GetPoolStats(c *gin.Context) {
	stats, err := h.liquiditySvc.GetPoolStats(c.Request.Context(), h.poolID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPoolStats(stats))
}

// GetPosition handles GET /api/v1/pool/positions/:owner_id.
func (h *LiquidityHandler) GetPosition(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner id"))
		return
	}

	view, err := h.liquiditySvc.GetPosition(c.Request.Context(), h.poolID, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PositionResponse{
		PositionID:      view.Position.ID.String(),
		OwnerID:         view.Position.OwnerID.String(),
		Shares:          view.Position.Shares,
		Status:          string(view.Position.Status),
		RedeemableValue: view.RedeemableValue,
		PricePerShare:   view.PricePerShare,
	})
}

// queryInt parses an integer query parameter with a fallback default.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}
