package dto

import (
	"encoding/json"
	"time"

	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"
)

// CreateInvoiceRequest is the request body for invoice submission.
type CreateInvoiceRequest struct {
	BusinessID string    `json:"business_id" binding:"required,uuid"`
	BuyerName  string    `json:"buyer_name" binding:"required,min=1,max=200"`
	Currency   string    `json:"currency" binding:"required,len=3"`
	FaceValue  int64     `json:"face_value" binding:"required,gt=0"`
	IssueDate  time.Time `json:"issue_date" binding:"required"`
	DueDate    time.Time `json:"due_date" binding:"required"`
}

// VerifyRequest carries the external risk assessment result. Range and
// recommendation checks live in the domain so a malformed assessment maps
// to its own error code rather than a generic binding failure.
type VerifyRequest struct {
	OverallScore   int             `json:"overall_score"`
	Recommendation string          `json:"recommendation" binding:"required"`
	FraudFlags     []string        `json:"fraud_flags,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// FinanceRequest is the request body for disbursing an advance.
type FinanceRequest struct {
	ExternalTxRef string `json:"external_tx_ref" binding:"required,max=200,safe_ref"`
}

// RepayRequest is the request body for settling a financed invoice.
type RepayRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	ExternalTxRef string `json:"external_tx_ref" binding:"required,max=200,safe_ref"`
}

// QuoteQuery holds the query parameters for a financing preview.
type QuoteQuery struct {
	FaceValue int64 `form:"face_value" binding:"required,gt=0"`
	RiskScore int   `form:"risk_score" binding:"min=0,max=100"`
}

// DepositRequest is the request body for adding pool liquidity.
type DepositRequest struct {
	OwnerID string `json:"owner_id" binding:"required,uuid"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

// WithdrawRequest is the request body for redeeming pool shares.
type WithdrawRequest struct {
	OwnerID string `json:"owner_id" binding:"required,uuid"`
	Shares  int64  `json:"shares" binding:"required,gt=0"`
}

// InvoiceResponse is the API view of an invoice.
type InvoiceResponse struct {
	ID             string   `json:"id"`
	BusinessID     string   `json:"business_id"`
	BuyerName      string   `json:"buyer_name"`
	Currency       string   `json:"currency"`
	FaceValue      int64    `json:"face_value"`
	IssueDate      string   `json:"issue_date"`
	DueDate        string   `json:"due_date"`
	Status         string   `json:"status"`
	RiskScore      *int     `json:"risk_score,omitempty"`
	FraudFlags     []string `json:"fraud_flags,omitempty"`
	AdvanceRateBps *int     `json:"advance_rate_bps,omitempty"`
	FinancedAmount *int64   `json:"financed_amount,omitempty"`
	FeeAmount      *int64   `json:"fee_amount,omitempty"`
	FinancedAt     *string  `json:"financed_at,omitempty"`
	RepaidAt       *string  `json:"repaid_at,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// TermsResponse is the API view of computed financing terms.
type TermsResponse struct {
	AdvanceRateBps int   `json:"advance_rate_bps"`
	GrossAdvance   int64 `json:"gross_advance"`
	FeeAmount      int64 `json:"fee_amount"`
	AdvanceAmount  int64 `json:"advance_amount"`
}

// FinancingResponse is the response body for a financing result.
type FinancingResponse struct {
	Invoice     InvoiceResponse `json:"invoice"`
	Terms       TermsResponse   `json:"terms"`
	PoolBalance int64           `json:"pool_balance"`
}

// QuoteResponse is the response body for a financing preview.
type QuoteResponse struct {
	Terms          TermsResponse `json:"terms"`
	DisplayRatePct int           `json:"display_rate_pct"`
	IsEligible     bool          `json:"is_eligible"`
	Reason         string        `json:"reason,omitempty"`
}

// DepositResponse is the response body for a pool deposit.
type DepositResponse struct {
	PositionID    string  `json:"position_id"`
	Shares        int64   `json:"shares"`
	SharesMinted  int64   `json:"shares_minted"`
	PoolBalance   int64   `json:"pool_balance"`
	PricePerShare float64 `json:"price_per_share"`
}

// WithdrawResponse is the response body for a share redemption.
type WithdrawResponse struct {
	PositionID  string `json:"position_id"`
	Shares      int64  `json:"shares"`
	Status      string `json:"status"`
	AmountOut   int64  `json:"amount_out"`
	PoolBalance int64  `json:"pool_balance"`
}

// PositionResponse is the API view of a depositor's position.
type PositionResponse struct {
	PositionID      string  `json:"position_id"`
	OwnerID         string  `json:"owner_id"`
	Shares          int64   `json:"shares"`
	Status          string  `json:"status"`
	RedeemableValue int64   `json:"redeemable_value"`
	PricePerShare   float64 `json:"price_per_share"`
}

// PoolStatsResponse is the API view of pool statistics.
type PoolStatsResponse struct {
	PoolID              string  `json:"pool_id"`
	Balance             int64   `json:"balance"`
	TotalShares         int64   `json:"total_shares"`
	ActiveFinancedTotal int64   `json:"active_financed_total"`
	PricePerShare       float64 `json:"price_per_share"`
	Utilization         float64 `json:"utilization"`
	EstimatedAPYPct     float64 `json:"estimated_apy_pct"`
}

// InvoiceListResponse wraps a paginated invoice list.
type InvoiceListResponse struct {
	Items      []InvoiceResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// FromInvoice converts a domain invoice to its API view.
func FromInvoice(inv *domain.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID.String(),
		BusinessID:     inv.BusinessID.String(),
		BuyerName:      inv.BuyerName,
		Currency:       inv.Currency,
		FaceValue:      inv.FaceValue,
		IssueDate:      inv.IssueDate.Format(timeLayout),
		DueDate:        inv.DueDate.Format(timeLayout),
		Status:         string(inv.Status),
		RiskScore:      inv.RiskScore,
		FraudFlags:     inv.FraudFlags,
		AdvanceRateBps: inv.AdvanceRateBps,
		FinancedAmount: inv.FinancedAmount,
		FeeAmount:      inv.FeeAmount,
		CreatedAt:      inv.CreatedAt.Format(timeLayout),
	}
	if inv.FinancedAt != nil {
		s := inv.FinancedAt.Format(timeLayout)
		resp.FinancedAt = &s
	}
	if inv.RepaidAt != nil {
		s := inv.RepaidAt.Format(timeLayout)
		resp.RepaidAt = &s
	}
	return resp
}

// FromTerms converts domain financing terms to their API view.
func FromTerms(t domain.FinancingTerms) TermsResponse {
	return TermsResponse{
		AdvanceRateBps: t.AdvanceRateBps,
		GrossAdvance:   t.GrossAdvance,
		FeeAmount:      t.FeeAmount,
		AdvanceAmount:  t.AdvanceAmount,
	}
}

// FromPoolStats converts pool stats to their API view.
func FromPoolStats(s *ports.PoolStats) PoolStatsResponse {
	return PoolStatsResponse{
		PoolID:              s.PoolID.String(),
		Balance:             s.Balance,
		TotalShares:         s.TotalShares,
		ActiveFinancedTotal: s.ActiveFinancedTotal,
		PricePerShare:       s.PricePerShare,
		Utilization:         s.Utilization,
		EstimatedAPYPct:     s.EstimatedAPYPct,
	}
}
