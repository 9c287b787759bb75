package service

// EstimateAPY derives a display-only yield estimate from pool utilization,
// linear between basePct and maxPct. It never fails: an empty or missing
// pool balance falls back to basePct, and utilization above 100% is capped
// at maxPct. Not part of any settlement guarantee.
func EstimateAPY(poolBalance, activeFinancedTotal int64, basePct, maxPct float64) float64 {
	if poolBalance <= 0 || activeFinancedTotal < 0 {
		return basePct
	}
	utilization := float64(activeFinancedTotal) / float64(poolBalance)
	if utilization > 1 {
		utilization = 1
	}
	return basePct + (maxPct-basePct)*utilization
}
