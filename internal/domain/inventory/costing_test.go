package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name     string
		qty      string
		avg      string
		inQty    string
		inCost   string
		expected string
	}{
		{"10 @ 2 plus 5 @ 5", "10", "2.00", "5", "5.00", "3"},
		{"empty stock takes incoming cost", "0", "0", "7", "4.25", "4.25"},
		{"same cost keeps average", "100", "10", "50", "10", "10"},
		{"rounds to cost scale", "3", "1", "0.0001", "2", "1"},
		{"thirds", "2", "1", "1", "2", "1.3333"},
		{"negative on hand takes incoming cost", "-2", "5", "10", "3", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverage(d(tt.qty), d(tt.avg), d(tt.inQty), d(tt.inCost))
			assert.True(t, d(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestWeightedAverage_HoldsPriorAverageWhenResultIsZero(t *testing.T) {
	got := WeightedAverage(d("5"), d("7.5"), d("-5"), d("1"))

	assert.True(t, d("7.5").Equal(got))
}

func TestWeightedAverage_NoDriftOnRepetition(t *testing.T) {
	avg := d("2.00")
	qty := d("10")

	for i := 0; i < 100; i++ {
		avg = WeightedAverage(qty, avg, d("5"), d("5.00"))
		qty = qty.Add(d("5"))
		avg = WeightedAverage(qty, avg, d("0"), d("0"))
	}

	again := WeightedAverage(qty, avg, d("0"), d("0"))
	assert.True(t, avg.Equal(again))
	assert.LessOrEqual(t, avg.Exponent(), int32(0))
	assert.GreaterOrEqual(t, avg.Exponent(), -CostScale)
}
