package batch

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(number string, qty int64, created time.Time, expires *time.Time) strategy.Batch {
	return strategy.Batch{
		ID:          uuid.New(),
		BatchNumber: number,
		Position:    "GENERAL",
		Quantity:    decimal.NewFromInt(qty),
		UnitCost:    decimal.NewFromInt(10),
		ExpiresAt:   expires,
		CreatedAt:   created,
	}
}

func pickedNumbers(result strategy.Selection) []string {
	numbers := make([]string, 0, len(result.Picks))
	for _, s := range result.Picks {
		numbers = append(numbers, s.BatchNumber)
	}
	return numbers
}

func TestFIFO_Select(t *testing.T) {
	s := NewFIFO()
	ctx := context.Background()
	now := time.Now()

	batches := []strategy.Batch{
		candidate("B003", 30, now.Add(-1*time.Hour), nil),
		candidate("B001", 50, now.Add(-24*time.Hour), nil),
		candidate("B000", 0, now.Add(-48*time.Hour), nil),
		candidate("B002", 40, now.Add(-12*time.Hour), nil),
	}

	t.Run("selects oldest first and skips empty batches", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.SelectionRequest{Quantity: decimal.NewFromInt(70)}, batches)
		require.NoError(t, err)

		assert.Equal(t, []string{"B001", "B002"}, pickedNumbers(result))
		assert.True(t, decimal.NewFromInt(50).Equal(result.Picks[0].Quantity))
		assert.True(t, decimal.NewFromInt(20).Equal(result.Picks[1].Quantity))
		assert.True(t, result.Satisfied())
	})

	t.Run("reports shortfall", func(t *testing.T) {
		result, err := s.Select(ctx, strategy.SelectionRequest{Quantity: decimal.NewFromInt(150)}, batches)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(120).Equal(result.Taken))
		assert.True(t, decimal.NewFromInt(30).Equal(result.Shortfall))
		assert.False(t, result.Satisfied())
	})

	t.Run("is deterministic for equal timestamps", func(t *testing.T) {
		a := candidate("A", 5, now, nil)
		b := candidate("B", 5, now, nil)

		first, err := s.Select(ctx, strategy.SelectionRequest{Quantity: decimal.NewFromInt(5)}, []strategy.Batch{a, b})
		require.NoError(t, err)
		second, err := s.Select(ctx, strategy.SelectionRequest{Quantity: decimal.NewFromInt(5)}, []strategy.Batch{b, a})
		require.NoError(t, err)

		assert.Equal(t, first.Picks[0].BatchID, second.Picks[0].BatchID)
	})

	assert.Equal(t, "fifo", s.Name())
	assert.False(t, s.ConsidersExpiry())
}
