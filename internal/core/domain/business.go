package domain

import (
	"time"

	"github.com/google/uuid"
)

// Business represents the financing counterparty that owns invoices.
// InvoicesFinanced and TotalFinanced are derived aggregates: they are only
// ever incremented by financing events, never edited directly.
type Business struct {
	ID               uuid.UUID `json:"id"`
	WalletAddress    string    `json:"wallet_address"` // Identity key
	Name             string    `json:"name"`
	RiskScore        int       `json:"risk_score"` // 0-100, higher = lower risk
	InvoicesFinanced int64     `json:"invoices_financed"`
	TotalFinanced    int64     `json:"total_financed"` // In minor units
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RecordFinancing increments the derived aggregates at a financing event.
func (b *Business) RecordFinancing(advanceAmount int64, now time.Time) {
	b.InvoicesFinanced++
	b.TotalFinanced += advanceAmount
	b.UpdatedAt = now
}

// RecordRepayment bumps the business risk score after a successful
// settlement, capped at 100.
func (b *Business) RecordRepayment(scoreBonus int, now time.Time) {
	b.RiskScore += scoreBonus
	if b.RiskScore > 100 {
		b.RiskScore = 100
	}
	b.UpdatedAt = now
}
