package service

import "math/big"

// mulDivFloor computes a*b/den truncated toward zero, with the intermediate
// product in big.Int so amount*shares style expressions cannot overflow
// int64. Inputs are expected to be non-negative; den must be positive.
func mulDivFloor(a, b, den int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	p.Quo(p, big.NewInt(den))
	return p.Int64()
}

// mulDivRoundHalfUp computes a*b/den rounded half-up. Used for terms math
// where money values round to the nearest minor unit.
func mulDivRoundHalfUp(a, b, den int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	q, r := new(big.Int).QuoRem(p, big.NewInt(den), new(big.Int))
	if r.Mul(r, big.NewInt(2)).Cmp(big.NewInt(den)) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}
