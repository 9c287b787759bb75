package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateAPY(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		active  int64
		want    float64
	}{
		{"empty pool falls back to base", 0, 0, 5.0},
		{"negative balance falls back to base", -1, 0, 5.0},
		{"idle pool", 1_000_000, 0, 5.0},
		{"half utilized", 1_000_000, 500_000, 12.5},
		{"fully utilized", 1_000_000, 1_000_000, 20.0},
		{"over-utilized clamps to max", 1_000_000, 2_000_000, 20.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateAPY(tt.balance, tt.active, 5.0, 20.0)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
