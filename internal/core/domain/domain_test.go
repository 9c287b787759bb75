package domain

import (
	"testing"
	"time"

	"invoice-financing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestInvoice(status InvoiceStatus) *Invoice {
	inv := &Invoice{
		ID:         uuid.New(),
		BusinessID: uuid.New(),
		BuyerName:  "Acme Corp",
		Currency:   "USD",
		FaceValue:  1000000,
		IssueDate:  testNow.AddDate(0, -1, 0),
		DueDate:    testNow.AddDate(0, 1, 0),
		Status:     status,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	if status == InvoiceStatusFinanced || status == InvoiceStatusRepaid || status == InvoiceStatusDefaulted {
		score := 50
		rate := 7500
		advance := int64(738750)
		fee := int64(11250)
		inv.RiskScore = &score
		inv.AdvanceRateBps = &rate
		inv.FinancedAmount = &advance
		inv.FeeAmount = &fee
		inv.FinancedAt = &testNow
	}
	return inv
}

func approvedAssessment(score int) RiskAssessment {
	return RiskAssessment{OverallScore: score, Recommendation: RecommendationApprove}
}

func testTerms() FinancingTerms {
	return FinancingTerms{AdvanceRateBps: 7500, GrossAdvance: 750000, FeeAmount: 11250, AdvanceAmount: 738750}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestNewInvoice(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		inv, err := NewInvoice(uuid.New(), "Acme", "USD", 1000000, testNow, testNow.AddDate(0, 2, 0), testNow)
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPending, inv.Status)
		assert.Nil(t, inv.RiskScore)
		assert.Nil(t, inv.FinancedAmount)
	})

	t.Run("non-positive face value", func(t *testing.T) {
		_, err := NewInvoice(uuid.New(), "Acme", "USD", 0, testNow, testNow.AddDate(0, 2, 0), testNow)
		assertCode(t, err, "INV_001")
	})

	t.Run("due date not after issue date", func(t *testing.T) {
		_, err := NewInvoice(uuid.New(), "Acme", "USD", 1000, testNow, testNow, testNow)
		assertCode(t, err, "INV_003")
	})
}

// Totality: every (state, operation) pair not listed as legal fails and
// mutates nothing.
func TestInvoice_TransitionTotality(t *testing.T) {
	allStatuses := []InvoiceStatus{
		InvoiceStatusPending, InvoiceStatusVerified, InvoiceStatusFinanced,
		InvoiceStatusRepaid, InvoiceStatusDefaulted, InvoiceStatusRejected, InvoiceStatusCancelled,
	}

	ops := []struct {
		name  string
		legal map[InvoiceStatus]bool
		apply func(*Invoice) error
	}{
		{
			name:  "verify",
			legal: map[InvoiceStatus]bool{InvoiceStatusPending: true},
			apply: func(i *Invoice) error { return i.ApplyAssessment(approvedAssessment(50), testNow) },
		},
		{
			name:  "finance",
			legal: map[InvoiceStatus]bool{InvoiceStatusVerified: true},
			apply: func(i *Invoice) error { return i.MarkFinanced(testTerms(), "0xabc", testNow) },
		},
		{
			name:  "repay",
			legal: map[InvoiceStatus]bool{InvoiceStatusFinanced: true},
			apply: func(i *Invoice) error { return i.MarkRepaid(750000, "0xdef", testNow) },
		},
		{
			name:  "default",
			legal: map[InvoiceStatus]bool{InvoiceStatusFinanced: true},
			apply: func(i *Invoice) error { return i.MarkDefaulted(testNow) },
		},
		{
			name:  "cancel",
			legal: map[InvoiceStatus]bool{InvoiceStatusPending: true},
			apply: func(i *Invoice) error { return i.MarkCancelled(testNow) },
		},
	}

	for _, op := range ops {
		for _, status := range allStatuses {
			t.Run(op.name+"/"+string(status), func(t *testing.T) {
				inv := newTestInvoice(status)
				err := op.apply(inv)
				if op.legal[status] {
					assert.NoError(t, err)
				} else {
					require.Error(t, err)
					var appErr *apperror.AppError
					require.ErrorAs(t, err, &appErr)
					assert.Contains(t, []string{"FIN_001", "FIN_002"}, appErr.Code)
					assert.Equal(t, status, inv.Status, "illegal operation must not mutate status")
				}
			})
		}
	}
}

func TestInvoice_ApplyAssessment(t *testing.T) {
	t.Run("approve moves to verified", func(t *testing.T) {
		inv := newTestInvoice(InvoiceStatusPending)
		err := inv.ApplyAssessment(approvedAssessment(72), testNow)
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusVerified, inv.Status)
		require.NotNil(t, inv.RiskScore)
		assert.Equal(t, 72, *inv.RiskScore)
	})

	t.Run("review moves to verified", func(t *testing.T) {
		inv := newTestInvoice(InvoiceStatusPending)
		err := inv.ApplyAssessment(RiskAssessment{OverallScore: 40, Recommendation: RecommendationReview}, testNow)
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusVerified, inv.Status)
	})

	t.Run("reject moves to rejected", func(t *testing.T) {
		inv := newTestInvoice(InvoiceStatusPending)
		err := inv.ApplyAssessment(RiskAssessment{
			OverallScore:   10,
			Recommendation: RecommendationReject,
			FraudFlags:     []string{"duplicate_submission"},
		}, testNow)
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusRejected, inv.Status)
		assert.Equal(t, []string{"duplicate_submission"}, inv.FraudFlags)
	})

	t.Run("verify is not retryable once decided", func(t *testing.T) {
		inv := newTestInvoice(InvoiceStatusPending)
		require.NoError(t, inv.ApplyAssessment(approvedAssessment(50), testNow))
		err := inv.ApplyAssessment(approvedAssessment(60), testNow)
		assertCode(t, err, "FIN_001")
		assert.Equal(t, 50, *inv.RiskScore, "second assessment must not overwrite the first")
	})
}

func TestInvoice_MarkFinanced(t *testing.T) {
	inv := newTestInvoice(InvoiceStatusVerified)
	score := 50
	inv.RiskScore = &score

	require.NoError(t, inv.MarkFinanced(testTerms(), "0xfeed", testNow))
	assert.Equal(t, InvoiceStatusFinanced, inv.Status)
	require.NotNil(t, inv.FinancedAmount)
	assert.Equal(t, int64(738750), *inv.FinancedAmount)
	assert.Equal(t, int64(11250), *inv.FeeAmount)
	assert.Equal(t, "0xfeed", *inv.FinanceTxRef)
	require.NotNil(t, inv.FinancedAt)

	// Exactly-once: a second finance fails with already-processed and leaves
	// the recorded terms untouched.
	err := inv.MarkFinanced(FinancingTerms{AdvanceRateBps: 8000, AdvanceAmount: 1}, "0xother", testNow)
	assertCode(t, err, "FIN_002")
	assert.Equal(t, int64(738750), *inv.FinancedAmount)
	assert.Equal(t, "0xfeed", *inv.FinanceTxRef)
}

func TestInvoice_MarkRepaid_SettlementBoundary(t *testing.T) {
	// financedAmount=7387.50, feeAmount=112.50 -> required exactly 7500.00
	tests := []struct {
		name    string
		amount  int64
		wantErr string
	}{
		{"one cent short fails", 749999, "FIN_005"},
		{"exact settlement succeeds", 750000, ""},
		{"overpayment succeeds", 760000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInvoice(InvoiceStatusFinanced)
			require.Equal(t, int64(750000), inv.RequiredRepayment())

			err := inv.MarkRepaid(tt.amount, "0xsettle", testNow)
			if tt.wantErr != "" {
				assertCode(t, err, tt.wantErr)
				assert.Equal(t, InvoiceStatusFinanced, inv.Status)
				assert.Nil(t, inv.RepaidAt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, InvoiceStatusRepaid, inv.Status)
			require.NotNil(t, inv.RepaidAt)
		})
	}
}

func TestInvoice_IsTerminal(t *testing.T) {
	tests := []struct {
		status InvoiceStatus
		want   bool
	}{
		{InvoiceStatusPending, false},
		{InvoiceStatusVerified, false},
		{InvoiceStatusFinanced, false},
		{InvoiceStatusRepaid, true},
		{InvoiceStatusDefaulted, true},
		{InvoiceStatusRejected, true},
		{InvoiceStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			inv := newTestInvoice(tt.status)
			assert.Equal(t, tt.want, inv.IsTerminal())
		})
	}
}

func TestRiskAssessment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		a       RiskAssessment
		wantErr bool
	}{
		{"approve", RiskAssessment{OverallScore: 80, Recommendation: RecommendationApprove}, false},
		{"review", RiskAssessment{OverallScore: 45, Recommendation: RecommendationReview}, false},
		{"reject", RiskAssessment{OverallScore: 5, Recommendation: RecommendationReject}, false},
		{"score floor", RiskAssessment{OverallScore: 0, Recommendation: RecommendationApprove}, false},
		{"score ceiling", RiskAssessment{OverallScore: 100, Recommendation: RecommendationApprove}, false},
		{"score too low", RiskAssessment{OverallScore: -1, Recommendation: RecommendationApprove}, true},
		{"score too high", RiskAssessment{OverallScore: 101, Recommendation: RecommendationApprove}, true},
		{"unknown recommendation", RiskAssessment{OverallScore: 50, Recommendation: "maybe"}, true},
		{"empty recommendation", RiskAssessment{OverallScore: 50}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if tt.wantErr {
				assertCode(t, err, "INV_005")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBusiness_Aggregates(t *testing.T) {
	b := &Business{ID: uuid.New(), RiskScore: 60}

	b.RecordFinancing(738750, testNow)
	b.RecordFinancing(500000, testNow)
	assert.Equal(t, int64(2), b.InvoicesFinanced)
	assert.Equal(t, int64(1238750), b.TotalFinanced)

	b.RecordRepayment(2, testNow)
	assert.Equal(t, 62, b.RiskScore)

	b.RiskScore = 99
	b.RecordRepayment(2, testNow)
	assert.Equal(t, 100, b.RiskScore, "risk score is capped at 100")
}

func TestPool_PricePerShare(t *testing.T) {
	empty := &Pool{}
	assert.Equal(t, 1.0, empty.PricePerShare(), "empty pool returns the sentinel")

	p := &Pool{TotalShares: 1000, Balance: 1500}
	assert.Equal(t, 1.5, p.PricePerShare())
}

func TestPool_Utilization(t *testing.T) {
	assert.Equal(t, 0.0, (&Pool{}).Utilization())
	assert.Equal(t, 0.5, (&Pool{Balance: 1000, ActiveFinancedTotal: 500}).Utilization())
	assert.Equal(t, 1.0, (&Pool{Balance: 1000, ActiveFinancedTotal: 2500}).Utilization(), "clamped at 1")
}

func TestFinancingTerms_DisplayRatePct(t *testing.T) {
	assert.Equal(t, 75, FinancingTerms{AdvanceRateBps: 7500}.DisplayRatePct())
	assert.Equal(t, 75, FinancingTerms{AdvanceRateBps: 7460}.DisplayRatePct())
	assert.Equal(t, 74, FinancingTerms{AdvanceRateBps: 7449}.DisplayRatePct())
	assert.Equal(t, 80, FinancingTerms{AdvanceRateBps: 8000}.DisplayRatePct())
}
