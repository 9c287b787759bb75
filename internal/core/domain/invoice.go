package domain

import (
	"encoding/json"
	"time"

	"invoice-financing-engine/pkg/apperror"

	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusVerified  InvoiceStatus = "VERIFIED"
	InvoiceStatusFinanced  InvoiceStatus = "FINANCED"
	InvoiceStatusRepaid    InvoiceStatus = "REPAID"
	InvoiceStatusDefaulted InvoiceStatus = "DEFAULTED"
	InvoiceStatusRejected  InvoiceStatus = "REJECTED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// validTransitions is the authoritative transition table. Statuses absent
// from the map are terminal.
var validTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:  {InvoiceStatusVerified, InvoiceStatusRejected, InvoiceStatusCancelled},
	InvoiceStatusVerified: {InvoiceStatusFinanced},
	InvoiceStatusFinanced: {InvoiceStatusRepaid, InvoiceStatusDefaulted},
}

// Invoice represents a single financeable claim owned by one business.
// financedAmount/feeAmount are set exactly once at the FINANCED transition
// and never change afterwards.
type Invoice struct {
	ID                uuid.UUID       `json:"id"`
	BusinessID        uuid.UUID       `json:"business_id"`
	BuyerName         string          `json:"buyer_name"`
	Currency          string          `json:"currency"`
	FaceValue         int64           `json:"face_value"` // In minor units (cents)
	IssueDate         time.Time       `json:"issue_date"`
	DueDate           time.Time       `json:"due_date"`
	Status            InvoiceStatus   `json:"status"`
	RiskScore         *int            `json:"risk_score,omitempty"` // 0-100, nil until assessed
	AssessmentPayload json.RawMessage `json:"-"`                    // Raw provider response, provenance only
	FraudFlags        []string        `json:"fraud_flags,omitempty"`
	AdvanceRateBps    *int            `json:"advance_rate_bps,omitempty"`
	FinancedAmount    *int64          `json:"financed_amount,omitempty"`
	FeeAmount         *int64          `json:"fee_amount,omitempty"`
	FinancedAt        *time.Time      `json:"financed_at,omitempty"`
	RepaidAt          *time.Time      `json:"repaid_at,omitempty"`
	FinanceTxRef      *string         `json:"finance_tx_ref,omitempty"` // Opaque external provenance
	RepayTxRef        *string         `json:"repay_tx_ref,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewInvoice creates a PENDING invoice after validating the claim's shape.
func NewInvoice(businessID uuid.UUID, buyerName, currency string, faceValue int64, issueDate, dueDate time.Time, now time.Time) (*Invoice, error) {
	if faceValue <= 0 {
		return nil, apperror.ErrInvalidFaceValue(faceValue)
	}
	if !dueDate.After(issueDate) {
		return nil, apperror.ErrInvalidDates()
	}
	return &Invoice{
		ID:         uuid.New(),
		BusinessID: businessID,
		BuyerName:  buyerName,
		Currency:   currency,
		FaceValue:  faceValue,
		IssueDate:  issueDate,
		DueDate:    dueDate,
		Status:     InvoiceStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanTransition reports whether moving to the given status is legal.
func (i *Invoice) CanTransition(to InvoiceStatus) bool {
	for _, s := range validTransitions[i.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transitions leave the current status.
func (i *Invoice) IsTerminal() bool {
	return len(validTransitions[i.Status]) == 0
}

// ApplyAssessment records a risk assessment on a PENDING invoice and moves
// it to VERIFIED or REJECTED. Verification is not retryable: a second call
// fails with an invalid-state error regardless of outcome.
func (i *Invoice) ApplyAssessment(a RiskAssessment, now time.Time) error {
	if i.Status != InvoiceStatusPending {
		return apperror.ErrInvalidStateTransition("verify", string(i.Status))
	}

	score := a.OverallScore
	i.RiskScore = &score
	i.AssessmentPayload = a.Payload
	i.FraudFlags = a.FraudFlags
	if a.Recommendation == RecommendationReject {
		i.Status = InvoiceStatusRejected
	} else {
		i.Status = InvoiceStatusVerified
	}
	i.UpdatedAt = now
	return nil
}

// MarkFinanced records financing terms and moves a VERIFIED invoice to
// FINANCED. A repeat call on an invoice that already carries financed funds
// fails with an already-processed error so the funds movement cannot be
// re-executed.
func (i *Invoice) MarkFinanced(terms FinancingTerms, txRef string, now time.Time) error {
	switch i.Status {
	case InvoiceStatusVerified:
		// legal
	case InvoiceStatusFinanced, InvoiceStatusRepaid, InvoiceStatusDefaulted:
		return apperror.ErrAlreadyProcessed("finance", i.ID.String())
	default:
		return apperror.ErrInvalidStateTransition("finance", string(i.Status))
	}

	rate := terms.AdvanceRateBps
	advance := terms.AdvanceAmount
	fee := terms.FeeAmount
	i.AdvanceRateBps = &rate
	i.FinancedAmount = &advance
	i.FeeAmount = &fee
	i.FinancedAt = &now
	i.FinanceTxRef = &txRef
	i.Status = InvoiceStatusFinanced
	i.UpdatedAt = now
	return nil
}

// RequiredRepayment returns the full settlement amount: the financed advance
// plus the platform fee. Zero before financing.
func (i *Invoice) RequiredRepayment() int64 {
	if i.FinancedAmount == nil || i.FeeAmount == nil {
		return 0
	}
	return *i.FinancedAmount + *i.FeeAmount
}

// MarkRepaid settles a FINANCED invoice. Partial repayment is unsupported:
// amount must cover the full advance plus fee.
func (i *Invoice) MarkRepaid(amount int64, txRef string, now time.Time) error {
	switch i.Status {
	case InvoiceStatusFinanced:
		// legal
	case InvoiceStatusRepaid:
		return apperror.ErrAlreadyProcessed("repay", i.ID.String())
	default:
		return apperror.ErrInvalidStateTransition("repay", string(i.Status))
	}

	if required := i.RequiredRepayment(); amount < required {
		return apperror.ErrInsufficientRepayment(amount, required)
	}

	i.RepaidAt = &now
	i.RepayTxRef = &txRef
	i.Status = InvoiceStatusRepaid
	i.UpdatedAt = now
	return nil
}

// MarkDefaulted moves a FINANCED invoice to DEFAULTED. The wall-clock grace
// period check belongs to the orchestrator, not the entity.
func (i *Invoice) MarkDefaulted(now time.Time) error {
	if i.Status != InvoiceStatusFinanced {
		return apperror.ErrInvalidStateTransition("default", string(i.Status))
	}
	i.Status = InvoiceStatusDefaulted
	i.UpdatedAt = now
	return nil
}

// MarkCancelled withdraws a PENDING invoice. Ownership checks are the
// calling layer's concern.
func (i *Invoice) MarkCancelled(now time.Time) error {
	if i.Status != InvoiceStatusPending {
		return apperror.ErrInvalidStateTransition("cancel", string(i.Status))
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = now
	return nil
}
