package ports

import (
	"context"
	"time"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
)

// IdempotencyCache is the redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// StatsCache holds short-lived pool statistics for the read-only dashboard
// surface. A cache failure must never fail the read path.
type StatsCache interface {
	Get(ctx context.Context, poolID string) ([]byte, error)
	Set(ctx context.Context, poolID string, value []byte, ttl time.Duration) error
}

// HealthChecker reports the health of one infrastructure dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// --- Service Ports (Business Logic) ---

// FinancingService is the orchestrator over the invoice lifecycle, terms
// calculator and pool accounting.
type FinancingService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*domain.Invoice, error)
	Verify(ctx context.Context, invoiceID uuid.UUID, assessment domain.RiskAssessment) (*domain.Invoice, error)
	Finance(ctx context.Context, req FinanceRequest) (*FinancingResult, error)
	Repay(ctx context.Context, req RepayRequest) (*domain.Invoice, error)
	Cancel(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error)
	MarkDefaulted(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error)
	SweepOverdue(ctx context.Context) (int, error)
	GetQuote(ctx context.Context, faceValue int64, riskScore int) (*Quote, error)
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, params InvoiceListParams) ([]domain.Invoice, int64, error)
}

// CreateInvoiceRequest holds validated input for invoice creation.
type CreateInvoiceRequest struct {
	BusinessID uuid.UUID
	BuyerName  string
	Currency   string
	FaceValue  int64
	IssueDate  time.Time
	DueDate    time.Time
}

// FinanceRequest holds input for the financing operation. ExternalTxRef is
// the opaque provenance reference from the funds-movement executor.
type FinanceRequest struct {
	InvoiceID     uuid.UUID
	ExternalTxRef string
}

// RepayRequest holds input for the repayment operation.
type RepayRequest struct {
	InvoiceID     uuid.UUID
	Amount        int64
	ExternalTxRef string
}

// FinancingResult is the committed outcome of a finance operation.
type FinancingResult struct {
	Invoice     *domain.Invoice       `json:"invoice"`
	Terms       domain.FinancingTerms `json:"terms"`
	PoolBalance int64                 `json:"pool_balance"` // Balance after the debit
}

// Quote is a read-only financing preview. IsEligible reflects both exposure
// caps against the pool balance at quote time; nothing is reserved.
type Quote struct {
	Terms          domain.FinancingTerms `json:"terms"`
	DisplayRatePct int                   `json:"display_rate_pct"`
	IsEligible     bool                  `json:"is_eligible"`
	Reason         string                `json:"reason,omitempty"` // Why not eligible, when applicable
}

// LiquidityService owns the share-based pool accounting.
type LiquidityService interface {
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error)
	GetPosition(ctx context.Context, poolID, ownerID uuid.UUID) (*PositionView, error)
	GetPoolStats(ctx context.Context, poolID uuid.UUID) (*PoolStats, error)
}

// DepositRequest holds validated input for a pool deposit.
type DepositRequest struct {
	PoolID  uuid.UUID
	OwnerID uuid.UUID
	Amount  int64
}

// DepositResult reports the shares minted for a deposit.
type DepositResult struct {
	Position      *domain.LiquidityPosition `json:"position"`
	SharesMinted  int64                     `json:"shares_minted"`
	PoolBalance   int64                     `json:"pool_balance"`
	PricePerShare float64                   `json:"price_per_share"`
}

// WithdrawRequest holds validated input for a share redemption.
type WithdrawRequest struct {
	PoolID  uuid.UUID
	OwnerID uuid.UUID
	Shares  int64
}

// WithdrawResult reports the amount paid out for burned shares.
type WithdrawResult struct {
	Position    *domain.LiquidityPosition `json:"position"`
	AmountOut   int64                     `json:"amount_out"`
	PoolBalance int64                     `json:"pool_balance"`
}

// PositionView is a depositor's stake plus its current redeemable value.
type PositionView struct {
	Position        *domain.LiquidityPosition `json:"position"`
	RedeemableValue int64                     `json:"redeemable_value"`
	PricePerShare   float64                   `json:"price_per_share"`
}

// PoolStats is the read-only dashboard view of a pool.
type PoolStats struct {
	PoolID              uuid.UUID `json:"pool_id"`
	Balance             int64     `json:"balance"`
	TotalShares         int64     `json:"total_shares"`
	ActiveFinancedTotal int64     `json:"active_financed_total"`
	PricePerShare       float64   `json:"price_per_share"`
	Utilization         float64   `json:"utilization"`
	EstimatedAPYPct     float64   `json:"estimated_apy_pct"`
}
