package util

import (
	"math"
	"testing"
)

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		tick     float64
		expected float64
	}{
		{
			name:     "spot below midpoint rounds down",
			x:        17512,
			tick:     50,
			expected: 17500,
		},
		{
			name:     "spot above midpoint rounds up",
			x:        17538,
			tick:     50,
			expected: 17550,
		},
		{
			name:     "exact strike unchanged",
			x:        17500,
			tick:     50,
			expected: 17500,
		},
		{
			name:     "midpoint rounds away from zero",
			x:        17525,
			tick:     50,
			expected: 17550,
		},
		{
			name:     "premium tick",
			x:        1.2345,
			tick:     0.01,
			expected: 1.23,
		},
		{
			name:     "negative value",
			x:        -1.237,
			tick:     0.01,
			expected: -1.24,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundToTick(tt.x, tt.tick)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("RoundToTick(%v, %v) = %v, expected %v", tt.x, tt.tick, result, tt.expected)
			}
		})
	}
}

func TestRoundToTick_DegenerateTicks(t *testing.T) {
	if result := RoundToTick(1.2345, 0); result != 1.2345 {
		t.Errorf("RoundToTick(1.2345, 0) = %v, expected input unchanged", result)
	}
	if result := RoundToTick(1.2345, -0.01); result != 1.2345 {
		t.Errorf("RoundToTick(1.2345, -0.01) = %v, expected input unchanged", result)
	}
	if result := RoundToTick(math.NaN(), 0.01); !math.IsNaN(result) {
		t.Errorf("RoundToTick(NaN, 0.01) = %v, expected NaN", result)
	}
}
