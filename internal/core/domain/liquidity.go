package domain

import (
	"time"

	"github.com/google/uuid"
)

// PositionStatus represents the state of a liquidity position.
type PositionStatus string

const (
	PositionStatusActive    PositionStatus = "ACTIVE"
	PositionStatusWithdrawn PositionStatus = "WITHDRAWN"
)

// LiquidityPosition is one depositor's stake in a pool. The sum of all
// ACTIVE positions' shares equals the pool's TotalShares.
type LiquidityPosition struct {
	ID          uuid.UUID      `json:"id"`
	PoolID      uuid.UUID      `json:"pool_id"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Shares      int64          `json:"shares"`
	Status      PositionStatus `json:"status"`
	DepositedAt time.Time      `json:"deposited_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Pool is the shared ledger state of one liquidity pool. Balance and
// ActiveFinancedTotal are in minor units. Invariants: Balance >= 0 at all
// times, and TotalShares == 0 implies Balance == 0.
type Pool struct {
	ID                  uuid.UUID `json:"id"`
	TotalShares         int64     `json:"total_shares"`
	Balance             int64     `json:"balance"`
	ActiveFinancedTotal int64     `json:"active_financed_total"` // Capital currently deployed
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PricePerShare returns Balance/TotalShares, the yield signal for
// depositors. An empty pool returns the 1.0 sentinel rather than dividing
// by zero.
func (p *Pool) PricePerShare() float64 {
	if p.TotalShares == 0 {
		return 1.0
	}
	return float64(p.Balance) / float64(p.TotalShares)
}

// Utilization returns ActiveFinancedTotal/Balance clamped to [0,1].
// Display-only; returns 0 for an empty pool.
func (p *Pool) Utilization() float64 {
	if p.Balance <= 0 {
		return 0
	}
	u := float64(p.ActiveFinancedTotal) / float64(p.Balance)
	if u > 1 {
		return 1
	}
	return u
}

// PoolEventType tags an immutable pool ledger entry.
type PoolEventType string

const (
	PoolEventDeposit    PoolEventType = "DEPOSIT"
	PoolEventWithdraw   PoolEventType = "WITHDRAW"
	PoolEventFinanceOut PoolEventType = "FINANCE_OUT"
	PoolEventRepayIn    PoolEventType = "REPAY_IN"
)

// PoolEvent is an immutable ledger entry recording one pool mutation. It is
// written in the same transaction as the mutation it describes and carries
// the opaque external reference when a funds-movement executor was involved.
type PoolEvent struct {
	ID            uuid.UUID     `json:"id"`
	PoolID        uuid.UUID     `json:"pool_id"`
	Type          PoolEventType `json:"type"`
	Amount        int64         `json:"amount"`
	SharesDelta   int64         `json:"shares_delta"`
	InvoiceID     *uuid.UUID    `json:"invoice_id,omitempty"`
	PositionID    *uuid.UUID    `json:"position_id,omitempty"`
	ExternalTxRef *string       `json:"external_tx_ref,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
