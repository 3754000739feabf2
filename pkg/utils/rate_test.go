package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRate(t *testing.T) {
	testCases := []struct {
		name  string
		value float64
		want  bool
	}{
		{"positive", 1.35, true},
		{"tiny positive", math.SmallestNonzeroFloat64, true},
		{"zero", 0, false},
		{"negative", -5, false},
		{"NaN", math.NaN(), false},
		{"positive infinity", math.Inf(1), false},
		{"negative infinity", math.Inf(-1), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidRate(tc.value))
		})
	}
}
