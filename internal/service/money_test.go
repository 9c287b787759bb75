package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulDivFloor(t *testing.T) {
	tests := []struct {
		name     string
		a, b, d  int64
		expected int64
	}{
		{"exact division", 100, 50, 10, 500},
		{"truncates remainder", 10, 3, 4, 7},
		{"zero numerator", 0, 12345, 100, 0},
		{"identity", 738750, 1, 1, 738750},
		{"large product beyond int64", math.MaxInt64, 2, 4, math.MaxInt64 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mulDivFloor(tt.a, tt.b, tt.d))
		})
	}
}

func TestMulDivRoundHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		a, b, d  int64
		expected int64
	}{
		{"rounds up at half", 1, 5, 10, 1},
		{"rounds down below half", 1, 4, 10, 0},
		{"bps rate application", 1000000, 7500, 10000, 750000},
		{"fee on gross", 750000, 150, 10000, 11250},
		{"large product beyond int64", math.MaxInt64, 2, 4, math.MaxInt64/2 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mulDivRoundHalfUp(tt.a, tt.b, tt.d))
		})
	}
}
