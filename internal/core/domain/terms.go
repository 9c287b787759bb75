package domain

// FinancingTerms is the output of the terms calculator. All amounts are in
// minor units; the rate is in basis points. The unrounded basis-point rate
// drives the amount math; DisplayRatePct is for presentation only.
type FinancingTerms struct {
	AdvanceRateBps int   `json:"advance_rate_bps"`
	GrossAdvance   int64 `json:"gross_advance"`
	FeeAmount      int64 `json:"fee_amount"`
	AdvanceAmount  int64 `json:"advance_amount"` // gross minus fee, paid to the seller
}

// DisplayRatePct returns the advance rate rounded to the nearest whole
// percent.
func (t FinancingTerms) DisplayRatePct() int {
	return (t.AdvanceRateBps + 50) / 100
}
