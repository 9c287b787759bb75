package service

import (
	"invoice-financing-engine/config"
	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/pkg/apperror"
)

const bpsDenominator = 10000

// TermsCalculator maps (face value, risk score) to financing terms. Pure:
// no side effects, no I/O, callable standalone for quoting.
//
// The advance rate is anchored at risk score zero: rate = base + slope*score
// (70% at score 0 rising linearly to 80% at score 100 with the default
// policy). The on-chain contract variant that anchors the base rate at the
// minimum risk score floor is deliberately not used; one formula applies
// uniformly across quoting and financing.
type TermsCalculator struct {
	cfg config.FinancingConfig
}

// NewTermsCalculator creates a TermsCalculator with the given policy.
func NewTermsCalculator(cfg config.FinancingConfig) *TermsCalculator {
	return &TermsCalculator{cfg: cfg}
}

// ComputeTerms calculates the advance for a face value at a risk score.
// The fee is deducted from the gross advance, not added on top, so
// advanceAmount + feeAmount == faceValue * rate always holds. Money values
// round half-up to the minor unit; the unrounded basis-point rate is used
// for all amount math.
func (c *TermsCalculator) ComputeTerms(faceValue int64, riskScore int) (domain.FinancingTerms, error) {
	if faceValue <= 0 {
		return domain.FinancingTerms{}, apperror.ErrInvalidFaceValue(faceValue)
	}
	// Out-of-range scores are rejected, not clamped: silent coercion would
	// hide a broken upstream assessment.
	if riskScore < 0 || riskScore > 100 {
		return domain.FinancingTerms{}, apperror.ErrInvalidRiskScore(riskScore)
	}

	rateBps := c.cfg.BaseRateBps + c.cfg.RateSlopeBpsPerPoint*riskScore
	gross := mulDivRoundHalfUp(faceValue, int64(rateBps), bpsDenominator)
	fee := mulDivRoundHalfUp(gross, int64(c.cfg.FeeBps), bpsDenominator)

	return domain.FinancingTerms{
		AdvanceRateBps: rateBps,
		GrossAdvance:   gross,
		FeeAmount:      fee,
		AdvanceAmount:  gross - fee,
	}, nil
}
